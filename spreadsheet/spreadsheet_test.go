package spreadsheet_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/bubbelbudget/books/books"
	"github.com/bubbelbudget/books/spreadsheet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleSnapshot() (books.Snapshot, books.Report) {
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	snap := books.Snapshot{
		Sales: []books.SaleRecord{{
			ID: "s1", Date: books.NewDate(2025, 3, 9), Product: "Soap",
			Quantity: 3, UnitPrice: decimal.NewFromInt(50), TotalAmount: decimal.NewFromInt(150), Note: "market",
		}},
		Purchases: []books.PurchaseRecord{{
			ID: "p1", Date: books.NewDate(2025, 3, 1), Product: "Soap",
			Quantity: 6, UnitCost: decimal.NewFromInt(5), TotalAmount: decimal.NewFromInt(30), Supplier: "Acme",
		}},
		Inventory: books.InventoryMap{
			"Towel": {Quantity: 2, LastUpdated: at, Reason: "Manual adjustment"},
			"Soap":  {Quantity: 3, LastUpdated: at, Reason: "Sale"},
		},
		ExportDate: at,
	}
	return snap, books.Summarize(snap.Sales, snap.Purchases)
}

func TestBuild_WritesEverySheet(t *testing.T) {
	snap, rep := sampleSnapshot()

	f, err := spreadsheet.Build(snap, rep)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		spreadsheet.SheetSales, spreadsheet.SheetPurchases, spreadsheet.SheetInventory, spreadsheet.SheetReport,
	}, f.GetSheetList())

	cell := func(sheet, axis string) string {
		v, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Date", cell(spreadsheet.SheetSales, "A1"))
	assert.Equal(t, "2025-03-09", cell(spreadsheet.SheetSales, "A2"))
	assert.Equal(t, "Soap", cell(spreadsheet.SheetSales, "B2"))
	assert.Equal(t, "150", cell(spreadsheet.SheetSales, "E2"))
	assert.Equal(t, "market", cell(spreadsheet.SheetSales, "F2"))

	assert.Equal(t, "Acme", cell(spreadsheet.SheetPurchases, "F2"))

	// inventory rows are sorted by product
	assert.Equal(t, "Soap", cell(spreadsheet.SheetInventory, "A2"))
	assert.Equal(t, "Towel", cell(spreadsheet.SheetInventory, "A3"))
	assert.Equal(t, "2", cell(spreadsheet.SheetInventory, "B3"))

	assert.Equal(t, "Profit", cell(spreadsheet.SheetReport, "A4"))
	assert.Equal(t, "120", cell(spreadsheet.SheetReport, "B4"))
}

func TestWrite_ProducesReadableWorkbook(t *testing.T) {
	snap, rep := sampleSnapshot()

	var buf bytes.Buffer
	require.NoError(t, spreadsheet.Write(&buf, snap, rep))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(spreadsheet.SheetSales)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestBuild_EmptyBooks(t *testing.T) {
	f, err := spreadsheet.Build(books.Snapshot{}, books.Report{})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(spreadsheet.SheetPurchases)
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
	assert.Equal(t, "Unit cost", rows[0][3])
}

func TestFileName(t *testing.T) {
	snap := books.Snapshot{ExportDate: time.Date(2025, 1, 2, 23, 0, 0, 0, time.UTC)}
	assert.Equal(t, "bubbelbudget_2025-01-02.xlsx", spreadsheet.FileName(snap))
}
