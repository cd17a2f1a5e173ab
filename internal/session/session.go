// Package session provides Valkey-backed HTTP session management.
// Sessions are identified by a secure cookie and stored as JSON in Valkey
// with automatic TTL expiry. It also carries one-shot flash messages that
// survive a redirect and are consumed on the next render.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "np_session"

	// DefaultTTL is how long a session lives in Valkey before automatic expiry.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces session keys in Valkey to avoid collisions.
	keyPrefix = "session:"

	// flashPrefix namespaces flash-message keys in Valkey.
	flashPrefix = "flash:"

	// flashTTL is how long unread flashes survive. Generous enough for a
	// redirect round-trip, short enough not to linger.
	flashTTL = 10 * time.Minute

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

// Data holds the session payload stored in Valkey. It contains the
// authenticated author's identity and 2FA completion status.
type Data struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	PenName   string    `json:"pen_name"`
	TwoFADone bool      `json:"two_fa_done"`
	CreatedAt time.Time `json:"created_at"`
}

// Flash is a one-time notification message displayed after a redirect.
type Flash struct {
	Type    string `json:"type"` // "success", "error", "warning", "info"
	Message string `json:"message"`
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client        *redis.Client
	ttl           time.Duration
	secureCookies bool
}

// NewStore creates a session store backed by the given Valkey client.
// When secureCookies is true, cookies are marked Secure (HTTPS-only).
func NewStore(client *redis.Client, secureCookies bool) *Store {
	return &Store{
		client:        client,
		ttl:           DefaultTTL,
		secureCookies: secureCookies,
	}
}

// Create generates a new session, stores it in Valkey, and sets the
// session cookie on the response. Returns the session ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	data.CreatedAt = time.Now()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("session marshal: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+id, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})

	return id, nil
}

// Get retrieves session data from Valkey using the session ID from the
// request cookie. Returns nil if no valid session exists.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil // No cookie = no session (not an error)
	}

	payload, err := s.client.Get(ctx, keyPrefix+cookie.Value).Bytes()
	if err == redis.Nil {
		return nil, nil // Session expired or doesn't exist
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}

	return &data, nil
}

// Update replaces the session data in Valkey without changing the session
// ID or cookie. Resets the TTL.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return fmt.Errorf("session update: no cookie")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+cookie.Value, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session update: %w", err)
	}

	return nil
}

// Destroy removes the session (and any pending flashes) from Valkey and
// clears the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil // No cookie, nothing to destroy
	}

	s.client.Del(ctx, keyPrefix+cookie.Value, flashPrefix+cookie.Value)

	// Expire the cookie immediately.
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	return nil
}

// AddFlash queues a one-time message for the current session, shown on the
// next rendered page. No-op when the request carries no session cookie.
func (s *Store) AddFlash(ctx context.Context, r *http.Request, flash Flash) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}

	payload, err := json.Marshal(flash)
	if err != nil {
		return fmt.Errorf("flash marshal: %w", err)
	}

	key := flashPrefix + cookie.Value
	if err := s.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("flash store: %w", err)
	}
	s.client.Expire(ctx, key, flashTTL)

	return nil
}

// PopFlashes returns and clears all pending flashes for the current session.
func (s *Store) PopFlashes(ctx context.Context, r *http.Request) []Flash {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}

	key := flashPrefix + cookie.Value
	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil
	}
	s.client.Del(ctx, key)

	flashes := make([]Flash, 0, len(raw))
	for _, item := range raw {
		var f Flash
		if err := json.Unmarshal([]byte(item), &f); err == nil {
			flashes = append(flashes, f)
		}
	}
	return flashes
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
