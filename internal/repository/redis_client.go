package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	scanCount  = 200
	mgetBatch  = 100
	noExpiry   = time.Duration(0)
	globEscape = `*?[]\`
)

// redisAPI is the subset of *redis.Client used by RedisStore.
type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// RedisStore is a JSON key-value store on Redis strings.
type RedisStore struct {
	api redisAPI
}

// NewRedisStore creates a RedisStore over the given client.
func NewRedisStore(api redisAPI) (*RedisStore, error) {
	if api == nil {
		return nil, errors.New("repository: redis client must not be nil")
	}
	return &RedisStore{api: api}, nil
}

// Get returns the JSON value stored under key, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	raw, err := s.api.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository: Get: %w", err)
	}
	return json.RawMessage(raw), nil
}

// Set writes value under key, replacing any previous value.
func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	encoded, err := encodeValue(key, value)
	if err != nil {
		return err
	}
	if err := s.api.Set(ctx, key, encoded, noExpiry).Err(); err != nil {
		return fmt.Errorf("repository: Set: %w", err)
	}
	return nil
}

// Create writes value under key only if the key is unused.
func (s *RedisStore) Create(ctx context.Context, key string, value any) error {
	encoded, err := encodeValue(key, value)
	if err != nil {
		return err
	}
	ok, err := s.api.SetNX(ctx, key, encoded, noExpiry).Result()
	if err != nil {
		return fmt.Errorf("repository: Create: %w", err)
	}
	if !ok {
		return fmt.Errorf("repository: Create %q: %w", key, ErrKeyExists)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.api.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("repository: Delete: %w", err)
	}
	return nil
}

// GetByPrefix returns every entry whose key starts with prefix, in key order.
// Keys removed between SCAN and MGET are skipped.
func (s *RedisStore) GetByPrefix(ctx context.Context, prefix string) ([]Entry, error) {
	keys, err := s.scanKeys(ctx, matchPattern(prefix))
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(keys))
	for start := 0; start < len(keys); start += mgetBatch {
		end := min(start+mgetBatch, len(keys))
		batch := keys[start:end]
		vals, err := s.api.MGet(ctx, batch...).Result()
		if err != nil {
			return nil, fmt.Errorf("repository: GetByPrefix mget: %w", err)
		}
		for i, v := range vals {
			if v == nil {
				continue
			}
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("repository: GetByPrefix: value for %q is %T", batch[i], v)
			}
			entries = append(entries, Entry{Key: batch[i], Value: json.RawMessage(str)})
		}
	}
	return entries, nil
}

func (s *RedisStore) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	seen := make(map[string]struct{})
	var cursor uint64
	for {
		page, next, err := s.api.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("repository: GetByPrefix scan: %w", err)
		}
		for _, k := range page {
			seen[k] = struct{}{}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// matchPattern escapes glob metacharacters so prefix is matched literally.
func matchPattern(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		if strings.ContainsRune(globEscape, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('*')
	return b.String()
}
