package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/ivlev/replaydirector/internal/sequence"
)

// RedisMirror keeps a copy of saved sequences in Redis so another process
// (an editor on a second machine, a render farm) can pick them up.
type RedisMirror struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisMirror)

// WithTTL sets the expiration of mirrored snapshots.
func WithTTL(ttl time.Duration) RedisOption {
	return func(m *RedisMirror) {
		m.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(m *RedisMirror) {
		m.prefix = prefix
	}
}

func NewRedisMirror(address, password string, db int, opts ...RedisOption) *RedisMirror {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisMirrorFromClient(rdb, opts...)
}

func NewRedisMirrorFromClient(client *backend.Client, opts ...RedisOption) *RedisMirror {
	m := &RedisMirror{
		client: client,
		prefix: "replaydirector:sequence:",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *RedisMirror) key(name string) string {
	return m.prefix + name
}

func (m *RedisMirror) indexKey() string {
	return m.prefix + "index"
}

// Save stores the YAML form of seq and indexes it by save time.
func (m *RedisMirror) Save(ctx context.Context, seq *sequence.Sequence) error {
	data, err := sequence.Marshal(seq)
	if err != nil {
		return fmt.Errorf("failed to marshal sequence: %w", err)
	}

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, m.key(seq.Name), data, m.ttl)
	pipe.ZAdd(ctx, m.indexKey(), backend.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: seq.Name,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (m *RedisMirror) Load(ctx context.Context, name string) (*sequence.Sequence, error) {
	data, err := m.client.Get(ctx, m.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	seq, err := sequence.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return seq, nil
}

// List returns mirrored names, most recently saved first. Index members
// whose snapshot expired are dropped from the index.
func (m *RedisMirror) List(ctx context.Context) ([]string, error) {
	names, err := m.client.ZRevRange(ctx, m.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}

	live := names[:0]
	for _, name := range names {
		n, err := m.client.Exists(ctx, m.key(name)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check sequence %s: %w", name, err)
		}
		if n == 0 {
			m.client.ZRem(ctx, m.indexKey(), name)
			continue
		}
		live = append(live, name)
	}
	return live, nil
}

func (m *RedisMirror) Delete(ctx context.Context, name string) error {
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, m.key(name))
	pipe.ZRem(ctx, m.indexKey(), name)
	_, err := pipe.Exec(ctx)
	return err
}

func (m *RedisMirror) Close() error {
	return m.client.Close()
}
