// Package store provides in-process Substrate implementations.
package store

import (
	"context"
	"sync"

	"github.com/bubbelbudget/books/books"
)

// =============================================================================
// MEMORY SUBSTRATE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(key), nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(key, value)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}

// Len returns the number of stored slots.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}

func (m *Memory) getLocked(key string) []byte {
	v, ok := m.slots[key]
	if !ok {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (m *Memory) putLocked(key string, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	m.slots[key] = v
}

// =============================================================================
// TRANSACTIONAL MEMORY SUBSTRATE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory substrate, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(books.Substrate) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.slots = snapshot
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() map[string][]byte {
	cp := make(map[string][]byte, len(tm.slots))
	for k, v := range tm.slots {
		cp[k] = v
	}
	return cp
}

type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) Get(_ context.Context, key string) ([]byte, error) {
	return tv.parent.getLocked(key), nil
}

func (tv *txMemoryView) Put(_ context.Context, key string, value []byte) error {
	tv.parent.putLocked(key, value)
	return nil
}

func (tv *txMemoryView) Delete(_ context.Context, key string) error {
	delete(tv.parent.slots, key)
	return nil
}
