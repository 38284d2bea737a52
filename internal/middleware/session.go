package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName = "storefront_visitor"
	defaultLifetime   = 180 * 24 * time.Hour
)

// Visitor identifies the browser a cart belongs to.
type Visitor struct {
	ID        string    `json:"id"`
	CSRFToken string    `json:"csrf"`
	CreatedAt time.Time `json:"createdAt"`
	// set when the visitor was created by this request
	New bool `json:"-"`
}

// SessionConfig controls the visitor cookie.
type SessionConfig struct {
	CookieName string
	HashKey    []byte
	BlockKey   []byte
	Secure     bool
	Lifetime   time.Duration
	Now        func() time.Time
}

// Sessions issues and verifies the signed visitor cookie.
type Sessions struct {
	cfg   SessionConfig
	codec *securecookie.SecureCookie
	now   func() time.Time
}

// NewSessions constructs the visitor cookie codec. Without a hash key a
// process-ephemeral one is generated, so visitors lose their carts on restart.
func NewSessions(cfg SessionConfig) (*Sessions, error) {
	if len(cfg.HashKey) == 0 {
		cfg.HashKey = securecookie.GenerateRandomKey(32)
		if cfg.HashKey == nil {
			return nil, fmt.Errorf("session: generate hash key")
		}
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.Lifetime.Seconds()))

	return &Sessions{cfg: cfg, codec: codec, now: nowFn}, nil
}

// Secure reports whether cookies carry the Secure attribute.
func (s *Sessions) Secure() bool { return s.cfg.Secure }

// Middleware loads or creates the visitor and stores it in request context.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := s.load(r)
		if !ok {
			v = s.newVisitor()
			if err := s.write(w, v); err != nil {
				writeError(w, r, http.StatusInternalServerError, "session unavailable")
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(WithVisitor(r.Context(), v)))
	})
}

func (s *Sessions) load(r *http.Request) (*Visitor, bool) {
	c, err := r.Cookie(s.cfg.CookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	var v Visitor
	if err := s.codec.Decode(s.cfg.CookieName, c.Value, &v); err != nil {
		return nil, false
	}
	if _, err := uuid.Parse(v.ID); err != nil || v.CSRFToken == "" {
		return nil, false
	}
	return &v, true
}

func (s *Sessions) newVisitor() *Visitor {
	return &Visitor{
		ID:        uuid.NewString(),
		CSRFToken: newCSRFToken(),
		CreatedAt: s.now().UTC(),
		New:       true,
	}
}

func (s *Sessions) write(w http.ResponseWriter, v *Visitor) error {
	encoded, err := s.codec.Encode(s.cfg.CookieName, v)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.now().Add(s.cfg.Lifetime),
	})
	return nil
}

func newCSRFToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}
