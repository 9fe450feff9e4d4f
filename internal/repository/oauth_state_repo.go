package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// OAuthStateRepository tracks in-flight authorization requests and consumed authorization codes.
type OAuthStateRepository interface {
	// SaveState binds a state value to the user who started the authorization.
	SaveState(ctx context.Context, state, userID string, ttl time.Duration) error
	// LookupState returns the bound user, or "" when the state is unknown or expired.
	LookupState(ctx context.Context, state string) (string, error)
	ConsumeState(ctx context.Context, state string) error
	// HasPendingState reports whether the user has an unexpired authorization request.
	HasPendingState(ctx context.Context, userID string) (bool, error)
	// ClaimCode marks an authorization code as used. It returns false if it was already claimed.
	ClaimCode(ctx context.Context, code string, ttl time.Duration) (bool, error)
	ReleaseCode(ctx context.Context, code string) error
	// MarkExchanging records that a claimed code for the user is being exchanged. The mark expires after ttl.
	MarkExchanging(ctx context.Context, userID string, ttl time.Duration) error
	ClearExchanging(ctx context.Context, userID string) error
	IsExchanging(ctx context.Context, userID string) (bool, error)
}

func stateKey(state string) string       { return "oauth:state:" + state }
func pendingKey(userID string) string    { return "oauth:pending:" + userID }
func exchangingKey(userID string) string { return "oauth:exchanging:" + userID }

// codeKey never stores the raw authorization code.
func codeKey(code string) string {
	sum := sha256.Sum256([]byte(code))
	return "oauth:code:" + hex.EncodeToString(sum[:])
}

var (
	ErrFailedToParseRedisURL = errors.New("failed to parse redis connection string")
	ErrRedisNotReady         = errors.New("redis did not become ready")
)

// ConnectRedis parses url and pings the server, retrying a few times before giving up.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for range 3 {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	return nil, ErrRedisNotReady
}

type redisOAuthStateRepo struct {
	client redis.UniversalClient
}

func NewRedisOAuthStateRepo(client redis.UniversalClient) OAuthStateRepository {
	return &redisOAuthStateRepo{client: client}
}

func (r *redisOAuthStateRepo) SaveState(ctx context.Context, state, userID string, ttl time.Duration) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, stateKey(state), userID, ttl)
		p.Set(ctx, pendingKey(userID), state, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save oauth state for user %s: %w", userID, err)
	}
	return nil
}

func (r *redisOAuthStateRepo) LookupState(ctx context.Context, state string) (string, error) {
	userID, err := r.client.Get(ctx, stateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup oauth state: %w", err)
	}
	return userID, nil
}

func (r *redisOAuthStateRepo) ConsumeState(ctx context.Context, state string) error {
	userID, err := r.LookupState(ctx, state)
	if err != nil {
		return err
	}
	keys := []string{stateKey(state)}
	if userID != "" {
		keys = append(keys, pendingKey(userID))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("consume oauth state: %w", err)
	}
	return nil
}

func (r *redisOAuthStateRepo) HasPendingState(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, pendingKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check pending oauth state for user %s: %w", userID, err)
	}
	return n > 0, nil
}

func (r *redisOAuthStateRepo) ClaimCode(ctx context.Context, code string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, codeKey(code), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim authorization code: %w", err)
	}
	return ok, nil
}

func (r *redisOAuthStateRepo) ReleaseCode(ctx context.Context, code string) error {
	if err := r.client.Del(ctx, codeKey(code)).Err(); err != nil {
		return fmt.Errorf("release authorization code: %w", err)
	}
	return nil
}

func (r *redisOAuthStateRepo) MarkExchanging(ctx context.Context, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, exchangingKey(userID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("mark code exchange for user %s: %w", userID, err)
	}
	return nil
}

func (r *redisOAuthStateRepo) ClearExchanging(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, exchangingKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear code exchange for user %s: %w", userID, err)
	}
	return nil
}

func (r *redisOAuthStateRepo) IsExchanging(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, exchangingKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check code exchange for user %s: %w", userID, err)
	}
	return n > 0, nil
}

// memoryOAuthStateRepo is the single-process fallback used when no Redis URL is configured.
type memoryOAuthStateRepo struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryOAuthStateRepo() OAuthStateRepository {
	return &memoryOAuthStateRepo{entries: make(map[string]memoryEntry), now: time.Now}
}

// get must be called with mu held.
func (r *memoryOAuthStateRepo) get(key string) (string, bool) {
	e, ok := r.entries[key]
	if !ok {
		return "", false
	}
	if !e.expiresAt.IsZero() && !r.now().Before(e.expiresAt) {
		delete(r.entries, key)
		return "", false
	}
	return e.value, true
}

func (r *memoryOAuthStateRepo) set(key, value string, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = r.now().Add(ttl)
	}
	r.entries[key] = memoryEntry{value: value, expiresAt: exp}
}

func (r *memoryOAuthStateRepo) SaveState(_ context.Context, state, userID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(stateKey(state), userID, ttl)
	r.set(pendingKey(userID), state, ttl)
	return nil
}

func (r *memoryOAuthStateRepo) LookupState(_ context.Context, state string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, _ := r.get(stateKey(state))
	return userID, nil
}

func (r *memoryOAuthStateRepo) ConsumeState(_ context.Context, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if userID, ok := r.get(stateKey(state)); ok {
		delete(r.entries, pendingKey(userID))
	}
	delete(r.entries, stateKey(state))
	return nil
}

func (r *memoryOAuthStateRepo) HasPendingState(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.get(pendingKey(userID))
	return ok, nil
}

func (r *memoryOAuthStateRepo) ClaimCode(_ context.Context, code string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.get(codeKey(code)); ok {
		return false, nil
	}
	r.set(codeKey(code), "1", ttl)
	return true, nil
}

func (r *memoryOAuthStateRepo) ReleaseCode(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, codeKey(code))
	return nil
}

func (r *memoryOAuthStateRepo) MarkExchanging(_ context.Context, userID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set(exchangingKey(userID), "1", ttl)
	return nil
}

func (r *memoryOAuthStateRepo) ClearExchanging(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, exchangingKey(userID))
	return nil
}

func (r *memoryOAuthStateRepo) IsExchanging(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.get(exchangingKey(userID))
	return ok, nil
}
