/*
store.go - Record Store: named collections over a key-value substrate

PURPOSE:
  Persists the four slots of the books (sales, purchases, articles,
  inventory) as whole JSON documents in a durable key-value substrate.
  Every write replaces the entire slot; there are no partial updates.

KEY INTERFACES:
  Substrate:   Raw key-value slots (SQLite, Redis, memory)
  TxSubstrate: Substrate with all-or-nothing multi-key commits
  RecordStore: Typed view over the slots (list, append, remove, inventory)

FAIL-OPEN READS:
  A slot holding malformed JSON reads as its empty default ([] or {}).
  The corruption is logged, never returned to the caller. The next write to
  that slot replaces the bad payload.

SERIALIZATION:
  Store.Update holds an exclusive lock for the whole callback and, when the
  substrate supports it, runs inside a substrate transaction. Each mutation
  therefore reads the latest slot value before writing it back, even when
  the HTTP server calls in from many goroutines.

IMPLEMENTATIONS:
  - books/store/memory.go:     In-memory for testing/dev
  - store/sqlite/sqlite.go:    SQLite (default)
  - store/redisstore/redis.go: Redis

SEE ALSO:
  - ledger.go: Stock mutations applied through a RecordStore
*/
package books

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// =============================================================================
// SUBSTRATE - Durable key-value slots
// =============================================================================

// Substrate stores opaque values under string keys.
type Substrate interface {
	// Get returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// TxSubstrate adds atomic multi-key writes.
type TxSubstrate interface {
	Substrate

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the passed Substrate is discarded.
	WithTx(ctx context.Context, fn func(Substrate) error) error
}

// Slot names one of the persisted collections.
type Slot string

const (
	SlotSales     Slot = "sales"
	SlotPurchases Slot = "purchases"
	SlotInventory Slot = "inventory"
	SlotArticles  Slot = "articles"
)

// AllSlots lists every slot in export order.
var AllSlots = []Slot{SlotSales, SlotPurchases, SlotInventory, SlotArticles}

// DefaultNamespace prefixes slot keys in the substrate.
const DefaultNamespace = "bubbelbudget_"

// =============================================================================
// RECORD STORE - Typed view over the slots
// =============================================================================

// RecordStore is the read/write surface the services work against.
// Lists are returned in insertion order and are never nil.
type RecordStore interface {
	ListSales(ctx context.Context) ([]SaleRecord, error)
	AppendSale(ctx context.Context, rec SaleRecord) error
	RemoveSale(ctx context.Context, id RecordID) (SaleRecord, error)
	ReplaceSales(ctx context.Context, recs []SaleRecord) error

	ListPurchases(ctx context.Context) ([]PurchaseRecord, error)
	AppendPurchase(ctx context.Context, rec PurchaseRecord) error
	RemovePurchase(ctx context.Context, id RecordID) (PurchaseRecord, error)
	ReplacePurchases(ctx context.Context, recs []PurchaseRecord) error

	ListArticles(ctx context.Context) ([]ArticleRecord, error)
	AppendArticle(ctx context.Context, rec ArticleRecord) error
	RemoveArticle(ctx context.Context, id RecordID) (ArticleRecord, error)
	ReplaceArticles(ctx context.Context, recs []ArticleRecord) error

	Inventory(ctx context.Context) (InventoryMap, error)
	PutInventoryEntry(ctx context.Context, product ProductName, entry InventoryEntry) error
	ReplaceInventory(ctx context.Context, inv InventoryMap) error

	// Clear removes every slot.
	Clear(ctx context.Context) error
}

// =============================================================================
// STORE - Serialized access to a substrate
// =============================================================================

// Store serializes access to a Substrate and hands out RecordStore views.
type Store struct {
	mu        sync.RWMutex
	sub       Substrate
	namespace string
	log       *zap.Logger
}

type StoreOption func(*Store)

// WithNamespace overrides DefaultNamespace.
func WithNamespace(ns string) StoreOption {
	return func(s *Store) { s.namespace = ns }
}

func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore wraps sub using DefaultNamespace and a no-op logger.
func NewStore(sub Substrate, opts ...StoreOption) *Store {
	s := &Store{sub: sub, namespace: DefaultNamespace, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View runs fn against the current state. fn must not write.
func (s *Store) View(ctx context.Context, fn func(RecordStore) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.slotsOn(s.sub))
}

// Update runs fn with exclusive access. On a TxSubstrate the writes commit
// together or not at all.
func (s *Store) Update(ctx context.Context, fn func(RecordStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx, ok := s.sub.(TxSubstrate); ok {
		return tx.WithTx(ctx, func(sub Substrate) error {
			return fn(s.slotsOn(sub))
		})
	}
	return fn(s.slotsOn(s.sub))
}

// Key returns the substrate key of a slot.
func (s *Store) Key(slot Slot) string { return s.namespace + string(slot) }

func (s *Store) slotsOn(sub Substrate) *slots {
	return &slots{sub: sub, namespace: s.namespace, log: s.log}
}

// =============================================================================
// SLOTS - RecordStore over one Substrate handle
// =============================================================================

type slots struct {
	sub       Substrate
	namespace string
	log       *zap.Logger
}

func (v *slots) key(slot Slot) string { return v.namespace + string(slot) }

// read decodes a slot into out. Missing or malformed payloads leave out
// untouched and report ok=false.
func (v *slots) read(ctx context.Context, slot Slot, out any) (bool, error) {
	raw, err := v.sub.Get(ctx, v.key(slot))
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %w", ErrStoreUnavailable, slot, err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		v.log.Warn("malformed slot, reading as empty",
			zap.String("slot", string(slot)),
			zap.Int("bytes", len(raw)),
			zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (v *slots) write(ctx context.Context, slot Slot, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", slot, err)
	}
	if err := v.sub.Put(ctx, v.key(slot), raw); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStoreUnavailable, slot, err)
	}
	return nil
}

func listRecords[T Record](ctx context.Context, v *slots, slot Slot) ([]T, error) {
	var recs []T
	if ok, err := v.read(ctx, slot, &recs); err != nil || !ok {
		return []T{}, err
	}
	if recs == nil {
		recs = []T{}
	}
	return recs, nil
}

func appendRecord[T Record](ctx context.Context, v *slots, slot Slot, rec T) error {
	recs, err := listRecords[T](ctx, v, slot)
	if err != nil {
		return err
	}
	return v.write(ctx, slot, append(recs, rec))
}

func removeRecord[T Record](ctx context.Context, v *slots, slot Slot, id RecordID) (T, error) {
	var zero T
	recs, err := listRecords[T](ctx, v, slot)
	if err != nil {
		return zero, err
	}
	for i, rec := range recs {
		if rec.RecordID() != id {
			continue
		}
		rest := append(recs[:i:i], recs[i+1:]...)
		if err := v.write(ctx, slot, rest); err != nil {
			return zero, err
		}
		return rec, nil
	}
	return zero, fmt.Errorf("%s %s: %w", slot, id, ErrRecordNotFound)
}

func replaceRecords[T Record](ctx context.Context, v *slots, slot Slot, recs []T) error {
	if recs == nil {
		recs = []T{}
	}
	return v.write(ctx, slot, recs)
}

func (v *slots) ListSales(ctx context.Context) ([]SaleRecord, error) {
	return listRecords[SaleRecord](ctx, v, SlotSales)
}

func (v *slots) AppendSale(ctx context.Context, rec SaleRecord) error {
	return appendRecord(ctx, v, SlotSales, rec)
}

func (v *slots) RemoveSale(ctx context.Context, id RecordID) (SaleRecord, error) {
	return removeRecord[SaleRecord](ctx, v, SlotSales, id)
}

func (v *slots) ReplaceSales(ctx context.Context, recs []SaleRecord) error {
	return replaceRecords(ctx, v, SlotSales, recs)
}

func (v *slots) ListPurchases(ctx context.Context) ([]PurchaseRecord, error) {
	return listRecords[PurchaseRecord](ctx, v, SlotPurchases)
}

func (v *slots) AppendPurchase(ctx context.Context, rec PurchaseRecord) error {
	return appendRecord(ctx, v, SlotPurchases, rec)
}

func (v *slots) RemovePurchase(ctx context.Context, id RecordID) (PurchaseRecord, error) {
	return removeRecord[PurchaseRecord](ctx, v, SlotPurchases, id)
}

func (v *slots) ReplacePurchases(ctx context.Context, recs []PurchaseRecord) error {
	return replaceRecords(ctx, v, SlotPurchases, recs)
}

func (v *slots) ListArticles(ctx context.Context) ([]ArticleRecord, error) {
	return listRecords[ArticleRecord](ctx, v, SlotArticles)
}

func (v *slots) AppendArticle(ctx context.Context, rec ArticleRecord) error {
	return appendRecord(ctx, v, SlotArticles, rec)
}

func (v *slots) RemoveArticle(ctx context.Context, id RecordID) (ArticleRecord, error) {
	return removeRecord[ArticleRecord](ctx, v, SlotArticles, id)
}

func (v *slots) ReplaceArticles(ctx context.Context, recs []ArticleRecord) error {
	return replaceRecords(ctx, v, SlotArticles, recs)
}

func (v *slots) Inventory(ctx context.Context) (InventoryMap, error) {
	inv := InventoryMap{}
	if ok, err := v.read(ctx, SlotInventory, &inv); err != nil || !ok {
		return InventoryMap{}, err
	}
	if inv == nil {
		inv = InventoryMap{}
	}
	return inv, nil
}

func (v *slots) PutInventoryEntry(ctx context.Context, product ProductName, entry InventoryEntry) error {
	inv, err := v.Inventory(ctx)
	if err != nil {
		return err
	}
	inv[product] = entry
	return v.write(ctx, SlotInventory, inv)
}

func (v *slots) ReplaceInventory(ctx context.Context, inv InventoryMap) error {
	if inv == nil {
		inv = InventoryMap{}
	}
	return v.write(ctx, SlotInventory, inv)
}

func (v *slots) Clear(ctx context.Context) error {
	for _, slot := range AllSlots {
		if err := v.sub.Delete(ctx, v.key(slot)); err != nil {
			return fmt.Errorf("%w: clear %s: %w", ErrStoreUnavailable, slot, err)
		}
	}
	return nil
}
