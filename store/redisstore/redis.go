/*
Package redisstore provides a Redis-backed books.Substrate.

Each slot is one Redis string holding the JSON document. WithTx buffers the
writes of an operation and flushes them in a single MULTI/EXEC, so a sale and
its stock adjustment land together. Reads inside a transaction see the
buffered writes first.

Isolation between processes is not provided: books.Store serializes writers
inside one process, and the books are single-user by design.
*/
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/bubbelbudget/books/books"
	"github.com/redis/go-redis/v9"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

// Store implements books.TxSubstrate on top of a Redis client.
type Store struct {
	rdb redis.UniversalClient
}

// New connects to Redis and checks the connection.
func New(ctx context.Context, opts Options) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return NewFromClient(rdb), nil
}

// NewFromClient wraps an existing client without checking the connection.
func NewFromClient(rdb redis.UniversalClient) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}

// WithTx runs fn against a write buffer and commits the buffer atomically.
func (s *Store) WithTx(ctx context.Context, fn func(books.Substrate) error) error {
	tx := &txBuffer{parent: s, writes: make(map[string][]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.order) == 0 {
		return nil
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range tx.order {
			if v := tx.writes[key]; v != nil {
				pipe.Set(ctx, key, v, 0)
			} else {
				pipe.Del(ctx, key)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txBuffer records writes; a nil value marks a delete.
type txBuffer struct {
	parent *Store
	writes map[string][]byte
	order  []string
}

func (tb *txBuffer) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := tb.writes[key]; ok {
		return v, nil
	}
	return tb.parent.Get(ctx, key)
}

func (tb *txBuffer) Put(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	tb.record(key, v)
	return nil
}

func (tb *txBuffer) Delete(_ context.Context, key string) error {
	tb.record(key, nil)
	return nil
}

func (tb *txBuffer) record(key string, v []byte) {
	if _, seen := tb.writes[key]; !seen {
		tb.order = append(tb.order, key)
	}
	tb.writes[key] = v
}
