/*
books.go - Service wiring for the books

SERVICES:
  Inventory: Stock ledger operations (adjust, recount, listing)
  Sales:     Sale log, each entry takes stock out
  Purchases: Purchase log, each entry puts stock in
  Articles:  Product catalog (no stock effect)
  Reports:   Totals and profit
  Backup:    Export, import and wipe

SHARED STATE:
  Every service works through the same Store, so all writes are serialized
  by one lock. Clock, id generator and logger are injected through Options;
  tests pin the clock and ids.

NOTIFICATIONS:
  After a write commits, core.committed logs clamped adjustments and
  publishes events. Rolled-back writes publish nothing.
*/
package books

import (
	"time"

	"go.uber.org/zap"
)

// Books wires the services around one Store. All services share the
// store lock, the clock and the event bus.
type Books struct {
	Store     *Store
	Events    *Events
	Inventory *InventoryService
	Sales     *SaleService
	Purchases *PurchaseService
	Articles  *ArticleService
	Reports   *Reporter
	Backup    *BackupService
}

// core carries the dependencies every service needs.
type core struct {
	store  *Store
	ledger *StockLedger
	events *Events
	newID  IDGenerator
	now    func() time.Time
	log    *zap.Logger
}

// Option configures New.
type Option func(*core)

// WithClock replaces time.Now. Used for LastUpdated, CreatedAt and export dates.
func WithClock(now func() time.Time) Option {
	return func(c *core) { c.now = now }
}

// WithIDGenerator replaces NewRecordID.
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *core) { c.newID = gen }
}

// WithLogger sets the logger for clamp warnings and backup events. nil keeps
// the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *core) {
		if l != nil {
			c.log = l
		}
	}
}

// New builds the services over store.
func New(store *Store, opts ...Option) *Books {
	c := &core{
		store:  store,
		events: NewEvents(),
		newID:  NewRecordID,
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ledger = NewStockLedger(c.now)

	return &Books{
		Store:     store,
		Events:    c.events,
		Inventory: &InventoryService{c: c},
		Sales:     &SaleService{c: c},
		Purchases: &PurchaseService{c: c},
		Articles:  &ArticleService{c: c},
		Reports:   &Reporter{c: c},
		Backup:    &BackupService{c: c},
	}
}

// committed reports a successful write. Called after Update returns.
func (c *core) committed(action string, product ProductName, adjustments ...Adjustment) {
	at := c.now()
	for _, adj := range adjustments {
		if !adj.Clamped {
			continue
		}
		c.log.Warn("stock clamped at zero",
			zap.String("product", string(adj.Product)),
			zap.Int("requested", adj.Requested),
			zap.String("reason", adj.Entry.Reason))
		c.events.publish(Event{
			Kind:      EventStockClamped,
			At:        at,
			Action:    action,
			Product:   adj.Product,
			Requested: adj.Requested,
			Applied:   adj.Entry.Quantity,
		})
	}
	c.events.publish(Event{Kind: EventMutation, At: at, Action: action, Product: product})
}
