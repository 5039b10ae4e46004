package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when no valid token is cached for a username.
// Malformed cache state and transport errors collapse into it as well;
// an unreachable cache must read as "not logged in", never a 5xx.
var ErrNoSession = errors.New("no session")

// SessionStore tracks the single currently-valid bearer token per username.
// Writing a new token overwrites the old one, which is how logins on a new
// device invalidate existing sessions.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func Connect(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *SessionStore) key(username string) string {
	return "auth:" + username
}

// Put stores token as the only valid token for username, resetting the TTL.
func (s *SessionStore) Put(ctx context.Context, username, token string) error {
	return s.client.Set(ctx, s.key(username), token, s.ttl).Err()
}

// Get returns the cached token for username, or ErrNoSession.
func (s *SessionStore) Get(ctx context.Context, username string) (string, error) {
	val, err := s.client.Get(ctx, s.key(username)).Result()
	if err != nil {
		return "", ErrNoSession
	}
	return val, nil
}

// Delete drops the cache entry for username. Logout relies entirely on this.
func (s *SessionStore) Delete(ctx context.Context, username string) error {
	return s.client.Del(ctx, s.key(username)).Err()
}

// Matches reports whether token is the currently valid token for username.
func (s *SessionStore) Matches(ctx context.Context, username, token string) bool {
	cached, err := s.Get(ctx, username)
	if err != nil {
		return false
	}
	return cached == token
}
