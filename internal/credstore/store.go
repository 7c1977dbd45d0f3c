// Package credstore caches the last room/credential pair in Redis so a
// restarted client can rejoin its game.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/doljabi-session/internal/identity"
)

const ttlLast = 24 * time.Hour

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb, ttl: ttlLast} }

// Open connects to REDIS_URL (redis:// or rediss://) and pings it.
func Open(ctx context.Context, redisURL string) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("REDIS_URL required for credential cache")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStore(rdb), nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func keyLast(profile string) string {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = "default"
	}
	return "doljabi:last:" + profile
}

// Save stores c for profile and refreshes the TTL.
func (s *Store) Save(ctx context.Context, profile string, c identity.Credentials) error {
	if !c.Complete() {
		return identity.ErrNoCredentials
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyLast(profile), raw, s.ttl).Err()
}

// Load returns the cached credentials; ok is false when nothing is cached.
func (s *Store) Load(ctx context.Context, profile string) (identity.Credentials, bool, error) {
	raw, err := s.rdb.Get(ctx, keyLast(profile)).Bytes()
	if err == redis.Nil {
		return identity.Credentials{}, false, nil
	}
	if err != nil {
		return identity.Credentials{}, false, err
	}
	var c identity.Credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return identity.Credentials{}, false, fmt.Errorf("decode cached credentials: %w", err)
	}
	return c, c.Complete(), nil
}

// Forget drops the cached pair. The client calls it once the game has an outcome.
func (s *Store) Forget(ctx context.Context, profile string) error {
	return s.rdb.Del(ctx, keyLast(profile)).Err()
}

// Provider adapts the cache to identity.Provider for use in an identity.Chain.
func (s *Store) Provider(profile string) identity.Provider {
	return cached{s: s, profile: profile}
}

type cached struct {
	s       *Store
	profile string
}

func (c cached) Credentials(ctx context.Context) (identity.Credentials, error) {
	creds, ok, err := c.s.Load(ctx, c.profile)
	if err != nil {
		return identity.Credentials{}, err
	}
	if !ok {
		return identity.Credentials{}, identity.ErrNoCredentials
	}
	return creds, nil
}
