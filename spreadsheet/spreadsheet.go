// Package spreadsheet renders the books as an XLSX workbook with one sheet
// per log plus the stock list and the report totals.
package spreadsheet

import (
	"fmt"
	"io"
	"sort"

	"github.com/bubbelbudget/books/books"
	"github.com/xuri/excelize/v2"
)

const (
	SheetSales     = "Sales"
	SheetPurchases = "Purchases"
	SheetInventory = "Inventory"
	SheetReport    = "Report"
)

// FileName is the download name matching books.ExportFileName.
func FileName(snap books.Snapshot) string {
	return fmt.Sprintf("bubbelbudget_%s.xlsx", snap.ExportDate.Format("2006-01-02"))
}

// Write builds the workbook and writes it to w.
func Write(w io.Writer, snap books.Snapshot, rep books.Report) error {
	f, err := Build(snap, rep)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// Build returns the workbook. The caller closes it.
func Build(snap books.Snapshot, rep books.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSales); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetPurchases, SheetInventory, SheetReport} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	w := &sheetWriter{f: f, header: header}
	w.table(SheetSales, []string{"Date", "Product", "Quantity", "Unit price", "Total", "Note"}, len(snap.Sales), func(i int) []any {
		s := snap.Sales[i]
		return []any{s.Date.String(), string(s.Product), s.Quantity, s.UnitPrice.InexactFloat64(), s.TotalAmount.InexactFloat64(), s.Note}
	})
	w.table(SheetPurchases, []string{"Date", "Product", "Quantity", "Unit cost", "Total", "Supplier", "Note"}, len(snap.Purchases), func(i int) []any {
		p := snap.Purchases[i]
		return []any{p.Date.String(), string(p.Product), p.Quantity, p.UnitCost.InexactFloat64(), p.TotalAmount.InexactFloat64(), p.Supplier, p.Note}
	})

	names := make([]books.ProductName, 0, len(snap.Inventory))
	for name := range snap.Inventory {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	w.table(SheetInventory, []string{"Product", "Quantity", "Last updated", "Reason"}, len(names), func(i int) []any {
		e := snap.Inventory[names[i]]
		return []any{string(names[i]), e.Quantity, e.LastUpdated.Format("2006-01-02 15:04"), e.Reason}
	})

	w.table(SheetReport, []string{"Metric", "Amount"}, 3, func(i int) []any {
		return [][]any{
			{"Total sales", rep.TotalSales.InexactFloat64()},
			{"Total purchases", rep.TotalPurchases.InexactFloat64()},
			{"Profit", rep.Profit.InexactFloat64()},
		}[i]
	})

	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// sheetWriter keeps the first error so the table calls stay flat.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) table(sheet string, headers []string, rows int, row func(int) []any) {
	if w.err != nil {
		return
	}
	if w.err = w.f.SetSheetRow(sheet, "A1", &headers); w.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		w.err = err
		return
	}
	if w.err = w.f.SetCellStyle(sheet, "A1", last, w.header); w.err != nil {
		return
	}
	for i := 0; i < rows; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			w.err = err
			return
		}
		values := row(i)
		if w.err = w.f.SetSheetRow(sheet, cell, &values); w.err != nil {
			return
		}
	}
}
