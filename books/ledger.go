/*
ledger.go - Inventory Ledger: current stock per product name

PURPOSE:
  Applies stock changes caused by transactions (signed deltas) and by manual
  recounts (absolute values). Only the current quantity is retained; the
  history lives in the sales and purchase logs.

RULES:
  Adjust:      quantity = max(0, current + delta). A missing entry starts at 0.
  SetAbsolute: quantity = given value, no floor check.
  Both stamp LastUpdated and overwrite Reason (no reason history).

CLAMPING:
  A delta pushing stock below zero is not rejected; the result is stored as
  0 and reported as Clamped. Because of this, deleting a transaction is the
  exact inverse of creating it only if no clamp happened in between:
    stock 2, sell 3   -> 0 (clamped)
    delete that sale  -> 3, not 2
*/
package books

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Reasons stamped by the transaction services.
const (
	ReasonSale             = "Sale"
	ReasonPurchasePrefix   = "Purchase from "
	ReasonSaleReversal     = "Reversal of deleted sale"
	ReasonPurchaseReversal = "Reversal of deleted purchase"
	ReasonManual           = "Manual adjustment"
)

// Adjustment is the outcome of one ledger mutation.
type Adjustment struct {
	Product   ProductName
	Entry     InventoryEntry
	Requested int  // current + delta before clamping
	Clamped   bool // Requested < 0 and Entry.Quantity was forced to 0
}

// StockLedger applies mutations to the inventory slot of a RecordStore.
// It holds no state of its own; callers provide the store view so the
// mutation joins their transaction.
type StockLedger struct {
	now func() time.Time
}

// NewStockLedger returns a ledger stamping entries with now (time.Now if nil).
func NewStockLedger(now func() time.Time) *StockLedger {
	if now == nil {
		now = time.Now
	}
	return &StockLedger{now: now}
}

// Adjust adds delta to the product's stock, flooring the result at zero.
func (l *StockLedger) Adjust(ctx context.Context, rs RecordStore, product ProductName, delta int, reason string) (Adjustment, error) {
	inv, err := rs.Inventory(ctx)
	if err != nil {
		return Adjustment{}, err
	}

	requested := inv[product].Quantity + delta
	entry := InventoryEntry{
		Quantity:    max(0, requested),
		LastUpdated: l.now(),
		Reason:      reason,
	}
	if err := rs.PutInventoryEntry(ctx, product, entry); err != nil {
		return Adjustment{}, err
	}
	return Adjustment{
		Product:   product,
		Entry:     entry,
		Requested: requested,
		Clamped:   requested < 0,
	}, nil
}

// SetAbsolute replaces the product's stock with quantity.
func (l *StockLedger) SetAbsolute(ctx context.Context, rs RecordStore, product ProductName, quantity int, reason string) (Adjustment, error) {
	if reason == "" {
		reason = ReasonManual
	}
	entry := InventoryEntry{
		Quantity:    quantity,
		LastUpdated: l.now(),
		Reason:      reason,
	}
	if err := rs.PutInventoryEntry(ctx, product, entry); err != nil {
		return Adjustment{}, err
	}
	return Adjustment{Product: product, Entry: entry, Requested: quantity}, nil
}

// =============================================================================
// INVENTORY SERVICE - Ledger operations as standalone calls
// =============================================================================

// InventoryService exposes the ledger to callers outside a transaction.
type InventoryService struct {
	c *core
}

// Adjust applies a delta in its own transaction.
func (s *InventoryService) Adjust(ctx context.Context, product ProductName, delta int, reason string) (InventoryEntry, error) {
	if err := validateProduct(product); err != nil {
		return InventoryEntry{}, err
	}

	var adj Adjustment
	err := s.c.store.Update(ctx, func(rs RecordStore) error {
		var err error
		adj, err = s.c.ledger.Adjust(ctx, rs, product, delta, reason)
		return err
	})
	if err != nil {
		return InventoryEntry{}, fmt.Errorf("adjust stock of %q: %w", product, err)
	}

	s.c.committed("stock_adjusted", product, adj)
	return adj.Entry, nil
}

// SetAbsolute records a manual recount. The quantity is trusted as the
// current truth; callers are expected to pass a non-negative value.
func (s *InventoryService) SetAbsolute(ctx context.Context, product ProductName, quantity int, reason string) (InventoryEntry, error) {
	if err := validateProduct(product); err != nil {
		return InventoryEntry{}, err
	}

	var adj Adjustment
	err := s.c.store.Update(ctx, func(rs RecordStore) error {
		var err error
		adj, err = s.c.ledger.SetAbsolute(ctx, rs, product, quantity, reason)
		return err
	})
	if err != nil {
		return InventoryEntry{}, fmt.Errorf("set stock of %q: %w", product, err)
	}

	s.c.committed("stock_set", product, adj)
	return adj.Entry, nil
}

// Entry returns the stock of one product. ok is false if the name was
// never referenced.
func (s *InventoryService) Entry(ctx context.Context, product ProductName) (entry InventoryEntry, ok bool, err error) {
	err = s.c.store.View(ctx, func(rs RecordStore) error {
		inv, err := rs.Inventory(ctx)
		if err != nil {
			return err
		}
		entry, ok = inv[product]
		return nil
	})
	return entry, ok, err
}

// Stock lists every entry ordered by product name.
func (s *InventoryService) Stock(ctx context.Context) ([]StockLine, error) {
	var inv InventoryMap
	err := s.c.store.View(ctx, func(rs RecordStore) error {
		var err error
		inv, err = rs.Inventory(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	lines := make([]StockLine, 0, len(inv))
	for name, entry := range inv {
		lines = append(lines, StockLine{Product: name, InventoryEntry: entry})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Product < lines[j].Product })
	return lines, nil
}
