package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/opshub/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// Revocations invalidates sessions before they expire: one token on logout,
// or every token of a user when the account is deactivated
type Revocations interface {
	// Revoke blocks the token id for ttl, the token's remaining lifetime
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// RevokeUser rejects every token of the user issued up to now
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// RedisRevocations shares revocations between processes through Redis
type RedisRevocations struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRevocations connects to Redis and verifies the connection
func NewRedisRevocations(ctx context.Context, cfg config.RedisConfig) (*RedisRevocations, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis for session revocations: %w", err)
	}
	return NewRedisRevocationsWithClient(client), nil
}

// NewRedisRevocationsWithClient wraps an existing client
func NewRedisRevocationsWithClient(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{
		client:    client,
		keyPrefix: "opshub:session:revoked:",
	}
}

func (r *RedisRevocations) jtiKey(jti string) string {
	return r.keyPrefix + "jti:" + jti
}

func (r *RedisRevocations) userKey(userID string) string {
	return r.keyPrefix + "user:" + userID
}

// Revoke blocks one token id
func (r *RedisRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsRevoked checks one token id
func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session revocation: %w", err)
	}
	return exists > 0, nil
}

// RevokeUser stores the current time as the user's revocation cut-off
func (r *RedisRevocations) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.userKey(userID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	return nil
}

// IsUserRevoked reports whether issuedAt is at or before the user's cut-off
func (r *RedisRevocations) IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	value, err := r.client.Get(ctx, r.userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user session revocation: %w", err)
	}

	cutoff, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse revocation timestamp: %w", err)
	}
	return issuedAt.Unix() <= cutoff, nil
}

// Close closes the Redis client
func (r *RedisRevocations) Close() error {
	return r.client.Close()
}

var _ Revocations = (*RedisRevocations)(nil)

// MemoryRevocations keeps revocations in process memory. Used when Redis is
// disabled; revocations are lost on restart.
type MemoryRevocations struct {
	mu      sync.Mutex
	tokens  map[string]time.Time // jti -> expiry
	cutoffs map[string]time.Time // userID -> revocation time
	now     func() time.Time
}

// NewMemoryRevocations creates an empty in-memory revocation list
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		tokens:  make(map[string]time.Time),
		cutoffs: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryRevocations) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[jti] = m.now().Add(ttl)
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.tokens[jti]
	if !ok {
		return false, nil
	}
	if m.now().After(expiry) {
		delete(m.tokens, jti)
		return false, nil
	}
	return true, nil
}

func (m *MemoryRevocations) RevokeUser(_ context.Context, userID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs[userID] = m.now()
	return nil
}

func (m *MemoryRevocations) IsUserRevoked(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff, ok := m.cutoffs[userID]
	if !ok {
		return false, nil
	}
	// JWT timestamps have second precision
	return issuedAt.Unix() <= cutoff.Unix(), nil
}

var _ Revocations = (*MemoryRevocations)(nil)
