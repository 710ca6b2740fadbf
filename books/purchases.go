/*
purchases.go - Purchase log

STOCK EFFECT:
  Create: append the purchase, then Adjust(+quantity, "Purchase from <supplier>")
  Delete: Adjust(-quantity, "Reversal of deleted purchase"), then remove

  A delete after the goods were sold clamps at zero, so the reversal can
  remove less than the purchase added.
*/
package books

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// NewPurchase is the input of PurchaseService.Create. A zero Date means today.
type NewPurchase struct {
	Date     Date
	Product  ProductName
	Quantity int
	UnitCost decimal.Decimal
	Supplier string
	Note     string
}

func (n NewPurchase) validate() error {
	if err := validateProduct(n.Product); err != nil {
		return err
	}
	if n.Quantity <= 0 {
		return invalid("quantity", "must be a positive integer")
	}
	if n.UnitCost.IsNegative() {
		return invalid("unitCost", "must not be negative")
	}
	return nil
}

// PurchaseService mirrors SaleService with the stock effect inverted.
type PurchaseService struct {
	c *core
}

// Create appends the purchase and then adds its quantity to stock.
func (s *PurchaseService) Create(ctx context.Context, in NewPurchase) (PurchaseRecord, error) {
	if err := in.validate(); err != nil {
		return PurchaseRecord{}, err
	}
	if in.Date.IsZero() {
		in.Date = DateOf(s.c.now())
	}

	rec := PurchaseRecord{
		ID:          s.c.newID(),
		Date:        in.Date,
		Product:     in.Product,
		Quantity:    in.Quantity,
		UnitCost:    in.UnitCost,
		Supplier:    in.Supplier,
		Note:        in.Note,
		TotalAmount: LineTotal(in.Quantity, in.UnitCost),
	}

	var adj Adjustment
	err := s.c.store.Update(ctx, func(rs RecordStore) error {
		if err := rs.AppendPurchase(ctx, rec); err != nil {
			return err
		}
		var err error
		adj, err = s.c.ledger.Adjust(ctx, rs, rec.Product, rec.Quantity, ReasonPurchasePrefix+rec.Supplier)
		return err
	})
	if err != nil {
		return PurchaseRecord{}, fmt.Errorf("create purchase: %w", err)
	}

	s.c.committed("purchase_created", rec.Product, adj)
	return rec, nil
}

// Delete takes the purchase's quantity back out of stock (clamping at zero)
// and removes the record. A missing id is a no-op.
func (s *PurchaseService) Delete(ctx context.Context, id RecordID) (deleted bool, err error) {
	var (
		rec PurchaseRecord
		adj Adjustment
	)
	err = s.c.store.Update(ctx, func(rs RecordStore) error {
		purchases, err := rs.ListPurchases(ctx)
		if err != nil {
			return err
		}
		idx := indexOf(purchases, id)
		if idx < 0 {
			return nil
		}
		rec = purchases[idx]

		adj, err = s.c.ledger.Adjust(ctx, rs, rec.Product, -rec.Quantity, ReasonPurchaseReversal)
		if err != nil {
			return err
		}
		if _, err := rs.RemovePurchase(ctx, id); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete purchase %s: %w", id, err)
	}
	if !deleted {
		s.c.log.Debug("delete of unknown purchase ignored")
		return false, nil
	}

	s.c.committed("purchase_deleted", rec.Product, adj)
	return true, nil
}

// List returns every purchase in insertion order.
func (s *PurchaseService) List(ctx context.Context) ([]PurchaseRecord, error) {
	var purchases []PurchaseRecord
	err := s.c.store.View(ctx, func(rs RecordStore) error {
		var err error
		purchases, err = rs.ListPurchases(ctx)
		return err
	})
	return purchases, err
}

// Recent returns up to limit purchases, newest date first.
func (s *PurchaseService) Recent(ctx context.Context, limit int) ([]PurchaseRecord, error) {
	purchases, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return newestFirst(purchases, func(r PurchaseRecord) Date { return r.Date }, limit), nil
}
