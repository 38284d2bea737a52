package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"finitefield.org/storefront/internal/config"
)

const (
	defaultFirestoreCollection = "carts"
	defaultDialTimeout         = 10 * time.Second
	envEmulatorHost            = "FIRESTORE_EMULATOR_HOST"
	envGoogleProjectID         = "GOOGLE_CLOUD_PROJECT"
)

// ErrProviderClosed is returned once the Firestore client has been released.
var ErrProviderClosed = errors.New("firestore: provider is closed")

type firestoreDoc struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// FirestoreStore keeps one document per key inside a collection.
type FirestoreStore struct {
	cfg        config.FirestoreConfig
	collection string
	clientOpts []option.ClientOption
	now        func() time.Time

	mu     sync.Mutex
	client *firestore.Client
	closed bool
}

// FirestoreOption customises the FirestoreStore behaviour.
type FirestoreOption func(*FirestoreStore)

// WithClientOptions appends client options applied during initialisation.
func WithClientOptions(opts ...option.ClientOption) FirestoreOption {
	return func(s *FirestoreStore) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

// WithFirestoreClient injects an already constructed client.
func WithFirestoreClient(client *firestore.Client) FirestoreOption {
	return func(s *FirestoreStore) {
		s.client = client
	}
}

// NewFirestoreStore constructs a store whose client is created lazily on first use.
func NewFirestoreStore(cfg config.FirestoreConfig, opts ...FirestoreOption) *FirestoreStore {
	collection := strings.TrimSpace(cfg.Collection)
	if collection == "" {
		collection = defaultFirestoreCollection
	}
	s := &FirestoreStore{cfg: cfg, collection: collection, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *FirestoreStore) clientFor(ctx context.Context) (*firestore.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrProviderClosed
	}
	if s.client != nil {
		return s.client, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	projectID := strings.TrimSpace(s.cfg.ProjectID)
	if projectID == "" {
		projectID = strings.TrimSpace(os.Getenv(envGoogleProjectID))
	}
	if projectID == "" {
		return nil, errors.New("firestore: project id is required")
	}

	opts := append([]option.ClientOption(nil), s.clientOpts...)
	if host := s.emulatorHost(); host != "" {
		if os.Getenv(envEmulatorHost) == "" {
			_ = os.Setenv(envEmulatorHost, host)
		}
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	client, err := firestore.NewClient(dialCtx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore: create client: %w", err)
	}
	s.client = client
	return client, nil
}

func (s *FirestoreStore) emulatorHost() string {
	if trimmed := strings.TrimSpace(s.cfg.EmulatorHost); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(os.Getenv(envEmulatorHost))
}

// Firestore document ids cannot contain '/'.
func docID(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}

// Get implements the Store interface.
func (s *FirestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	client, err := s.clientFor(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := client.Collection(s.collection).Doc(docID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("firestore store: get %q: %w", key, err)
	}
	var doc firestoreDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore store: decode %q: %w", key, err)
	}
	return []byte(doc.Value), nil
}

// Put implements the Store interface.
func (s *FirestoreStore) Put(ctx context.Context, key string, value []byte) error {
	client, err := s.clientFor(ctx)
	if err != nil {
		return err
	}
	doc := firestoreDoc{Value: string(value), UpdatedAt: s.now().UTC()}
	if _, err := client.Collection(s.collection).Doc(docID(key)).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore store: put %q: %w", key, err)
	}
	return nil
}

// Delete implements the Store interface.
func (s *FirestoreStore) Delete(ctx context.Context, key string) error {
	client, err := s.clientFor(ctx)
	if err != nil {
		return err
	}
	if _, err := client.Collection(s.collection).Doc(docID(key)).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore store: delete %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying client. The store cannot be reused afterwards.
func (s *FirestoreStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	client := s.client
	s.client = nil
	if client == nil {
		return nil
	}
	return client.Close()
}
