/*
Package books provides the bookkeeping core: the sales and purchase logs, the
article catalog and the per-product stock ledger they drive.

KEY CONCEPTS IN THIS FILE (types.go):
  - ProductName: free-text product identity shared by catalog, logs and stock
  - Date: calendar day of a transaction (YYYY-MM-DD on the wire)
  - SaleRecord / PurchaseRecord: immutable log entries
  - ArticleRecord: catalog entry used to pre-fill prices
  - InventoryEntry: current stock for one product name

DESIGN PRINCIPLES:
  1. Logs are append-only; a record is removed only by an explicit delete,
     which also applies a compensating stock adjustment.
  2. Amounts use decimal.Decimal; TotalAmount is fixed at creation.
  3. Product names are values, not foreign keys. The catalog and the stock
     ledger match by name only.

SEE ALSO:
  - store.go: Record Store contract
  - ledger.go: Stock mutation rules
  - sales.go, purchases.go: Transaction services
*/
package books

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// RecordID identifies a sale, purchase or article. Opaque to callers.
type RecordID string

// ProductName is the free-text key tying transactions to stock entries.
type ProductName string

func (p ProductName) String() string { return string(p) }

// Normalize trims surrounding whitespace. Case is preserved.
func (p ProductName) Normalize() ProductName { return ProductName(strings.TrimSpace(string(p))) }

// Matches compares names case-insensitively after trimming.
func (p ProductName) Matches(other ProductName) bool {
	return strings.EqualFold(string(p.Normalize()), string(other.Normalize()))
}

// =============================================================================
// DATE - Calendar day of a transaction
// =============================================================================

const dateLayout = "2006-01-02"

// Date is a calendar day in UTC.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date { return NewDate(t.Year(), t.Month(), t.Day()) }

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string { return d.Time.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a plain day or a full RFC3339 timestamp.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		*d = DateOf(t)
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// RECORDS
// =============================================================================

// SaleRecord is one entry of the sales log.
type SaleRecord struct {
	ID          RecordID        `json:"id"`
	Date        Date            `json:"date"`
	Product     ProductName     `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Note        string          `json:"note,omitempty"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// PurchaseRecord is one entry of the purchase log.
type PurchaseRecord struct {
	ID          RecordID        `json:"id"`
	Date        Date            `json:"date"`
	Product     ProductName     `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unitCost"`
	Supplier    string          `json:"supplier"`
	Note        string          `json:"note,omitempty"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// ArticleRecord is a catalog entry. Name is not unique.
type ArticleRecord struct {
	ID            RecordID        `json:"id"`
	Name          ProductName     `json:"name"`
	Description   string          `json:"description"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	Category      string          `json:"category"`
	Note          string          `json:"note"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (r SaleRecord) RecordID() RecordID     { return r.ID }
func (r PurchaseRecord) RecordID() RecordID { return r.ID }
func (r ArticleRecord) RecordID() RecordID  { return r.ID }

// Record is implemented by every log/catalog entry kept in a collection.
type Record interface {
	SaleRecord | PurchaseRecord | ArticleRecord
	RecordID() RecordID
}

// InventoryEntry is the current stock of one product. Quantity never goes
// below zero through Adjust.
type InventoryEntry struct {
	Quantity    int       `json:"quantity"`
	LastUpdated time.Time `json:"lastUpdated"`
	Reason      string    `json:"reason"`
}

// InventoryMap is the persisted shape of the inventory slot.
type InventoryMap map[ProductName]InventoryEntry

// StockLine pairs an entry with its product name for ordered listings.
type StockLine struct {
	Product ProductName
	InventoryEntry
}

// LineTotal computes quantity × unit price.
func LineTotal(quantity int, unit decimal.Decimal) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}
