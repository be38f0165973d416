package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
)

const defaultRedisPrefix = "promptflow"

// RedisStore keeps each record as a JSON value at
// "<prefix>:prompt:<promptId>:<version>". Both key parts are path-escaped so
// a ':' inside one cannot collide with another key.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL expires records after ttl. Zero (the default) keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix. Default is "promptflow".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed record store.
//
//	store := NewRedisStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithPrefix("demo-1"),
//	)
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Put replaces the stored value for the record's key.
func (s *RedisStore) Put(ctx context.Context, r *Record) error {
	if r == nil || !validKey(r.Key()) {
		return ErrInvalidKey
	}
	data, err := json.Marshal(r)
	if err != nil {
		return pkgerrors.New(pkgerrors.ComponentStore, "MarshalRecord", err)
	}
	if err := s.client.Set(ctx, s.recordKey(r.Key()), data, s.ttl).Err(); err != nil {
		return pkgerrors.New(pkgerrors.ComponentStore, "RedisSet", err)
	}
	return nil
}

// Get loads the record for key.
func (s *RedisStore) Get(ctx context.Context, key Key) (*Record, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}
	data, err := s.client.Get(ctx, s.recordKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, pkgerrors.New(pkgerrors.ComponentStore, "RedisGet", err)
	}
	return decodeRecord(data)
}

// SetStatus rewrites the record inside a WATCH transaction so a concurrent
// Put is not lost. The key's TTL is kept.
func (s *RedisStore) SetStatus(ctx context.Context, key Key, status string, now time.Time) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	rk := s.recordKey(key)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, rk).Bytes()
		if err != nil {
			return err
		}
		r, err := decodeRecord(data)
		if err != nil {
			return err
		}
		r.Status = status
		r.UpdatedAt = now.UTC()
		updated, err := json.Marshal(r)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rk, updated, redis.KeepTTL)
			return nil
		})
		return err
	}, rk)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return fmt.Errorf("%w: %s/%s", ErrNotFound, key.PromptID, key.Version)
	default:
		return pkgerrors.New(pkgerrors.ComponentStore, "RedisSetStatus", err)
	}
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) recordKey(key Key) string {
	return fmt.Sprintf("%s:prompt:%s:%s", s.prefix, escapeKeyPart(key.PromptID), escapeKeyPart(key.Version))
}

// escapeKeyPart percent-encodes ':' on top of url.PathEscape, which leaves it
// as is.
func escapeKeyPart(part string) string {
	return strings.ReplaceAll(url.PathEscape(part), ":", "%3A")
}

func decodeRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, pkgerrors.New(pkgerrors.ComponentStore, "UnmarshalRecord", err)
	}
	return &r, nil
}
