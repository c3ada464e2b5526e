package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func sessionsKey(username string) string { return "sessions:" + username }

func contextIDKey(category, cohort string) string {
	return fmt.Sprintf("ctxid:%s:%s", category, cohort)
}

// Store keeps each user's simulated-login cookies, one per backend host, plus
// the per-cohort context-id cache. All state is server-side in Redis so any
// worker can reuse a session another one established.
type Store struct {
	client       *redis.Client
	contextIDTTL time.Duration
	logger       *zap.Logger
}

// NewStore constructs a session store. contextIDTTL bounds how long a scraped
// context id may be reused before it must be re-resolved.
func NewStore(client *redis.Client, contextIDTTL time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if contextIDTTL <= 0 {
		contextIDTTL = 30 * time.Minute
	}
	return &Store{client: client, contextIDTTL: contextIDTTL, logger: logger}
}

// SaveCookie stores (or replaces) the user's session cookie for one host.
func (s *Store) SaveCookie(ctx context.Context, username, host, cookie string) error {
	if cookie == "" || host == "" {
		return nil
	}
	if err := s.client.HSet(ctx, sessionsKey(username), host, cookie).Err(); err != nil {
		return fmt.Errorf("save session cookie: %w", err)
	}
	return nil
}

// Cookie returns the user's cookie for a host, or empty when absent.
func (s *Store) Cookie(ctx context.Context, username, host string) (string, error) {
	val, err := s.client.HGet(ctx, sessionsKey(username), host).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session cookie: %w", err)
	}
	return val, nil
}

// All returns every host→cookie pair the user holds.
func (s *Store) All(ctx context.Context, username string) (map[string]string, error) {
	pairs, err := s.client.HGetAll(ctx, sessionsKey(username)).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return pairs, nil
}

// Has reports whether the user holds a session on the given host.
func (s *Store) Has(ctx context.Context, username, host string) (bool, error) {
	ok, err := s.client.HExists(ctx, sessionsKey(username), host).Result()
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return ok, nil
}

// HasAny reports whether the user holds at least one session.
func (s *Store) HasAny(ctx context.Context, username string) (bool, error) {
	n, err := s.client.HLen(ctx, sessionsKey(username)).Result()
	if err != nil {
		return false, fmt.Errorf("count sessions: %w", err)
	}
	return n > 0, nil
}

// ContextID returns the cached context id for a category/cohort pair, or
// empty on a miss. Entries expire on their own; a stale id is re-resolved
// rather than served forever.
func (s *Store) ContextID(ctx context.Context, category, cohort string) (string, error) {
	val, err := s.client.Get(ctx, contextIDKey(category, cohort)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get context id: %w", err)
	}
	return val, nil
}

// SaveContextID caches a freshly resolved context id with the configured TTL.
func (s *Store) SaveContextID(ctx context.Context, category, cohort, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Set(ctx, contextIDKey(category, cohort), id, s.contextIDTTL).Err(); err != nil {
		return fmt.Errorf("save context id: %w", err)
	}
	return nil
}

// InvalidateContextID drops a cached context id, forcing re-resolution.
func (s *Store) InvalidateContextID(ctx context.Context, category, cohort string) error {
	if err := s.client.Del(ctx, contextIDKey(category, cohort)).Err(); err != nil {
		return fmt.Errorf("invalidate context id: %w", err)
	}
	return nil
}
