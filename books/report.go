package books

import (
	"context"

	"github.com/shopspring/decimal"
)

// Report holds the aggregate totals of the logs.
type Report struct {
	TotalSales     decimal.Decimal `json:"totalSales"`
	TotalPurchases decimal.Decimal `json:"totalPurchases"`
	Profit         decimal.Decimal `json:"profit"`
	SaleCount      int             `json:"saleCount"`
	PurchaseCount  int             `json:"purchaseCount"`
}

// Reporter folds the logs into a Report. Nothing is cached; every call
// reads the full logs.
type Reporter struct {
	c *core
}

// Compute folds the current logs into a Report.
func (r *Reporter) Compute(ctx context.Context) (Report, error) {
	var (
		sales     []SaleRecord
		purchases []PurchaseRecord
	)
	err := r.c.store.View(ctx, func(rs RecordStore) error {
		var err error
		if sales, err = rs.ListSales(ctx); err != nil {
			return err
		}
		purchases, err = rs.ListPurchases(ctx)
		return err
	})
	if err != nil {
		return Report{}, err
	}
	return Summarize(sales, purchases), nil
}

// Summarize computes the report of the given logs.
func Summarize(sales []SaleRecord, purchases []PurchaseRecord) Report {
	rep := Report{
		TotalSales:     decimal.Zero,
		TotalPurchases: decimal.Zero,
		SaleCount:      len(sales),
		PurchaseCount:  len(purchases),
	}
	for _, s := range sales {
		rep.TotalSales = rep.TotalSales.Add(s.TotalAmount)
	}
	for _, p := range purchases {
		rep.TotalPurchases = rep.TotalPurchases.Add(p.TotalAmount)
	}
	rep.Profit = rep.TotalSales.Sub(rep.TotalPurchases)
	return rep
}
