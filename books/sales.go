/*
sales.go - Sale log

STOCK EFFECT:
  Create: append the sale, then Adjust(-quantity, "Sale")
  Delete: Adjust(+quantity, "Reversal of deleted sale"), then remove

  Both steps run in one Store.Update, so the log and the stock change
  commit together.

ORDERING:
  The slot keeps insertion order. Recent sorts by date, newest first.

SEE ALSO:
  - purchases.go: Same shape with the stock effect inverted
  - ledger.go: Clamping rules
*/
package books

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// NewSale is the input of SaleService.Create. A zero Date means today.
type NewSale struct {
	Date      Date
	Product   ProductName
	Quantity  int
	UnitPrice decimal.Decimal
	Note      string
}

func (n NewSale) validate() error {
	if err := validateProduct(n.Product); err != nil {
		return err
	}
	if n.Quantity <= 0 {
		return invalid("quantity", "must be a positive integer")
	}
	if n.UnitPrice.IsNegative() {
		return invalid("unitPrice", "must not be negative")
	}
	return nil
}

func validateProduct(p ProductName) error {
	if strings.TrimSpace(string(p)) == "" {
		return invalid("productName", "must not be empty")
	}
	return nil
}

// SaleService records sales and keeps stock in step with them.
type SaleService struct {
	c *core
}

// Create appends the sale and then takes its quantity out of stock, in one
// transaction.
func (s *SaleService) Create(ctx context.Context, in NewSale) (SaleRecord, error) {
	if err := in.validate(); err != nil {
		return SaleRecord{}, err
	}
	if in.Date.IsZero() {
		in.Date = DateOf(s.c.now())
	}

	rec := SaleRecord{
		ID:          s.c.newID(),
		Date:        in.Date,
		Product:     in.Product,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Note:        in.Note,
		TotalAmount: LineTotal(in.Quantity, in.UnitPrice),
	}

	var adj Adjustment
	err := s.c.store.Update(ctx, func(rs RecordStore) error {
		if err := rs.AppendSale(ctx, rec); err != nil {
			return err
		}
		var err error
		adj, err = s.c.ledger.Adjust(ctx, rs, rec.Product, -rec.Quantity, ReasonSale)
		return err
	})
	if err != nil {
		return SaleRecord{}, fmt.Errorf("create sale: %w", err)
	}

	s.c.committed("sale_created", rec.Product, adj)
	return rec, nil
}

// Delete puts the sale's quantity back into stock and removes the record.
// A missing id is a no-op and reports deleted=false.
func (s *SaleService) Delete(ctx context.Context, id RecordID) (deleted bool, err error) {
	var (
		rec SaleRecord
		adj Adjustment
	)
	err = s.c.store.Update(ctx, func(rs RecordStore) error {
		sales, err := rs.ListSales(ctx)
		if err != nil {
			return err
		}
		idx := indexOf(sales, id)
		if idx < 0 {
			return nil
		}
		rec = sales[idx]

		adj, err = s.c.ledger.Adjust(ctx, rs, rec.Product, rec.Quantity, ReasonSaleReversal)
		if err != nil {
			return err
		}
		if _, err := rs.RemoveSale(ctx, id); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete sale %s: %w", id, err)
	}
	if !deleted {
		s.c.log.Debug("delete of unknown sale ignored")
		return false, nil
	}

	s.c.committed("sale_deleted", rec.Product, adj)
	return true, nil
}

// List returns every sale in insertion order.
func (s *SaleService) List(ctx context.Context) ([]SaleRecord, error) {
	var sales []SaleRecord
	err := s.c.store.View(ctx, func(rs RecordStore) error {
		var err error
		sales, err = rs.ListSales(ctx)
		return err
	})
	return sales, err
}

// Recent returns up to limit sales, newest date first. Sales on the same
// date keep the most recently recorded first. limit <= 0 means all.
func (s *SaleService) Recent(ctx context.Context, limit int) ([]SaleRecord, error) {
	sales, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return newestFirst(sales, func(r SaleRecord) Date { return r.Date }, limit), nil
}

func indexOf[T Record](recs []T, id RecordID) int {
	for i, r := range recs {
		if r.RecordID() == id {
			return i
		}
	}
	return -1
}

func newestFirst[T any](recs []T, date func(T) Date, limit int) []T {
	out := make([]T, len(recs))
	for i, r := range recs {
		out[len(recs)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool {
		return date(out[i]).After(date(out[j]).Time)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
