package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile        = ".env"
	defaultPort           = "8080"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultEnvironment    = "local"
	defaultLogLevel       = "info"
	defaultCurrency       = "USD"
	defaultTemplatesDir   = "templates"
	defaultPublicDir      = "public"
	defaultCatalogFile    = "catalog/products.yaml"
	defaultStorageBackend = "memory"
	defaultSQLitePath     = "data/storefront.db"
	defaultCollection     = "carts"
	minSessionKeyLength   = 32
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Session   SessionConfig
	Storage   StorageConfig
	Analytics AnalyticsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// AppConfig holds storefront presentation settings.
type AppConfig struct {
	Environment  string
	LogLevel     string
	DevMode      bool
	TemplatesDir string
	PublicDir    string
	CatalogFile  string
	Currency     string
}

// SessionConfig controls the visitor cookie codec.
type SessionConfig struct {
	HashKey  []byte
	BlockKey []byte
	Secure   bool
}

// StorageConfig selects the durable cart storage backend.
type StorageConfig struct {
	Backend    string
	SQLitePath string
	Firestore  FirestoreConfig
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
	Collection   string
}

// AnalyticsConfig lists server-side sinks plus client instrumentation ids surfaced to templates.
type AnalyticsConfig struct {
	Sinks            []string
	PubSub           PubSubConfig
	GA4MeasurementID string
	GTMContainerID   string
	Debug            bool
}

// PubSubConfig identifies the analytics topic.
type PubSubConfig struct {
	ProjectID    string
	Topic        string
	EmulatorHost string
}

// HasSink reports whether the named server-side sink is enabled.
func (a AnalyticsConfig) HasSink(name string) bool {
	for _, s := range a.Sinks {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// IsProduction reports whether the environment is prod.
func (a AppConfig) IsProduction() bool {
	return a.Environment == "prod" || a.Environment == "production"
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the dotenv file location. An empty path disables dotenv loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration by combining defaults, .env overrides and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	// Cloud Run injects PORT; the prefixed key wins when both are present.
	port := stringWithDefault(lookup, "STOREFRONT_PORT", "")
	if port == "" {
		port = stringWithDefault(lookup, "PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:           port,
			ReadTimeout:    durationWithDefault(lookup, "STOREFRONT_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "STOREFRONT_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "STOREFRONT_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "STOREFRONT_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		App: AppConfig{
			Environment:  strings.ToLower(stringWithDefault(lookup, "STOREFRONT_ENV", defaultEnvironment)),
			LogLevel:     stringWithDefault(lookup, "STOREFRONT_LOG_LEVEL", defaultLogLevel),
			DevMode:      boolWithDefault(lookup, "STOREFRONT_DEV", false),
			TemplatesDir: stringWithDefault(lookup, "STOREFRONT_TEMPLATES_DIR", defaultTemplatesDir),
			PublicDir:    stringWithDefault(lookup, "STOREFRONT_PUBLIC_DIR", defaultPublicDir),
			CatalogFile:  stringWithDefault(lookup, "STOREFRONT_CATALOG_FILE", defaultCatalogFile),
			Currency:     strings.ToUpper(stringWithDefault(lookup, "STOREFRONT_CURRENCY", defaultCurrency)),
		},
		Session: SessionConfig{
			HashKey:  []byte(stringWithDefault(lookup, "STOREFRONT_SESSION_HASH_KEY", "")),
			BlockKey: []byte(stringWithDefault(lookup, "STOREFRONT_SESSION_BLOCK_KEY", "")),
		},
		Storage: StorageConfig{
			Backend:    strings.ToLower(stringWithDefault(lookup, "STOREFRONT_STORAGE_BACKEND", defaultStorageBackend)),
			SQLitePath: stringWithDefault(lookup, "STOREFRONT_SQLITE_PATH", defaultSQLitePath),
			Firestore: FirestoreConfig{
				ProjectID:    stringWithDefault(lookup, "STOREFRONT_FIRESTORE_PROJECT_ID", ""),
				EmulatorHost: stringWithDefault(lookup, "STOREFRONT_FIRESTORE_EMULATOR_HOST", ""),
				Collection:   stringWithDefault(lookup, "STOREFRONT_FIRESTORE_COLLECTION", defaultCollection),
			},
		},
		Analytics: AnalyticsConfig{
			Sinks: csvWithDefault(lookup, "STOREFRONT_ANALYTICS_SINKS", []string{"log"}),
			PubSub: PubSubConfig{
				ProjectID:    stringWithDefault(lookup, "STOREFRONT_PUBSUB_PROJECT_ID", ""),
				Topic:        stringWithDefault(lookup, "STOREFRONT_PUBSUB_TOPIC", ""),
				EmulatorHost: stringWithDefault(lookup, "STOREFRONT_PUBSUB_EMULATOR_HOST", ""),
			},
			GA4MeasurementID: stringWithDefault(lookup, "STOREFRONT_GA_MEASUREMENT_ID", ""),
			GTMContainerID:   stringWithDefault(lookup, "STOREFRONT_GTM_CONTAINER_ID", ""),
			Debug:            boolWithDefault(lookup, "STOREFRONT_ANALYTICS_DEBUG", false),
		},
	}

	cfg.Session.Secure = cfg.App.IsProduction()

	// Pub/Sub shares the Firestore project unless configured separately.
	if cfg.Analytics.PubSub.ProjectID == "" {
		cfg.Analytics.PubSub.ProjectID = cfg.Storage.Firestore.ProjectID
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	} else if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		missing = append(missing, "Server.Port")
	}
	if len(cfg.App.Currency) != 3 {
		missing = append(missing, "App.Currency")
	}
	if cfg.App.IsProduction() && len(cfg.Session.HashKey) < minSessionKeyLength {
		missing = append(missing, "Session.HashKey")
	}
	switch n := len(cfg.Session.BlockKey); n {
	case 0, 16, 24, 32:
	default:
		missing = append(missing, "Session.BlockKey")
	}

	switch cfg.Storage.Backend {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(cfg.Storage.SQLitePath) == "" {
			missing = append(missing, "Storage.SQLitePath")
		}
	case "firestore":
		if strings.TrimSpace(cfg.Storage.Firestore.ProjectID) == "" {
			missing = append(missing, "Storage.Firestore.ProjectID")
		}
	default:
		missing = append(missing, "Storage.Backend")
	}

	for _, sink := range cfg.Analytics.Sinks {
		switch strings.ToLower(sink) {
		case "log", "metrics":
		case "pubsub":
			if cfg.Analytics.PubSub.ProjectID == "" {
				missing = append(missing, "Analytics.PubSub.ProjectID")
			}
			if cfg.Analytics.PubSub.Topic == "" {
				missing = append(missing, "Analytics.PubSub.Topic")
			}
		default:
			missing = append(missing, fmt.Sprintf("Analytics.Sinks[%s]", sink))
		}
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(parts[1]), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string, fallback []string) []string {
	raw, ok := lookup(key)
	if !ok {
		return append([]string(nil), fallback...)
	}
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
