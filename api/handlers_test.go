package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bubbelbudget/books/books"
	"github.com/bubbelbudget/books/books/store"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func newTestServer(t *testing.T) *chi.Mux {
	t.Helper()
	b := books.New(books.NewStore(store.NewTxMemory()),
		books.WithClock(func() time.Time { return testNow }))
	return NewRouter(NewHandler(b, nil), []string{"http://localhost:5173"})
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch v := body.(type) {
	case nil:
	case string:
		buf.WriteString(v)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(v))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func stockOf(t *testing.T, router http.Handler, product string) (StockDTO, bool) {
	t.Helper()
	rec := do(t, router, http.MethodGet, "/api/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, s := range decode[[]StockDTO](t, rec) {
		if s.Product == product {
			return s, true
		}
	}
	return StockDTO{}, false
}

// =============================================================================
// TESTS
// =============================================================================

func TestHealth(t *testing.T) {
	router := newTestServer(t)
	rec := do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSaleLifecycle(t *testing.T) {
	// GIVEN: 10 Soap counted in stock
	// WHEN: 3 are sold and the sale is deleted again
	// THEN: stock goes 10 -> 7 -> 10
	router := newTestServer(t)

	rec := do(t, router, http.MethodPut, "/api/inventory/Soap", SetStockRequest{Quantity: 10, Reason: "recount"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/api/sales", `{"date":"2025-03-09","productName":"Soap","quantity":3,"unitPrice":"12.50"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decode[books.SaleRecord](t, rec)
	assert.True(t, decimal.RequireFromString("37.5").Equal(sale.TotalAmount))
	assert.Equal(t, "2025-03-09", sale.Date.String())

	stock, ok := stockOf(t, router, "Soap")
	require.True(t, ok)
	assert.Equal(t, 7, stock.Quantity)
	assert.Equal(t, books.ReasonSale, stock.Reason)

	rec = do(t, router, http.MethodDelete, "/api/sales/"+string(sale.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	stock, _ = stockOf(t, router, "Soap")
	assert.Equal(t, 10, stock.Quantity)
	assert.Equal(t, books.ReasonSaleReversal, stock.Reason)

	rec = do(t, router, http.MethodGet, "/api/sales", nil)
	assert.Empty(t, decode[[]books.SaleRecord](t, rec))
}

func TestPurchaseLifecycle(t *testing.T) {
	router := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/purchases", `{"productName":"Towel","quantity":4,"unitCost":2,"supplier":"Acme"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	purchase := decode[books.PurchaseRecord](t, rec)
	assert.Equal(t, "2025-03-10", purchase.Date.String(), "empty date defaults to today")

	stock, ok := stockOf(t, router, "Towel")
	require.True(t, ok)
	assert.Equal(t, 4, stock.Quantity)
	assert.Equal(t, "Purchase from Acme", stock.Reason)

	rec = do(t, router, http.MethodDelete, "/api/purchases/"+string(purchase.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	stock, _ = stockOf(t, router, "Towel")
	assert.Equal(t, 0, stock.Quantity)
}

func TestCreateSale_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"blank product", `{"productName":"  ","quantity":1,"unitPrice":"1"}`},
		{"zero quantity", `{"productName":"Soap","quantity":0,"unitPrice":"1"}`},
		{"negative price", `{"productName":"Soap","quantity":1,"unitPrice":"-1"}`},
		{"bad date", `{"date":"10/03/2025","productName":"Soap","quantity":1,"unitPrice":"1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestServer(t)
			rec := do(t, router, http.MethodPost, "/api/sales", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)

			_, ok := stockOf(t, router, "Soap")
			assert.False(t, ok, "rejected sale must not touch stock")
		})
	}
}

func TestDeleteUnknownSale(t *testing.T) {
	router := newTestServer(t)
	rec := do(t, router, http.MethodDelete, "/api/sales/nope", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListSales_Limit(t *testing.T) {
	router := newTestServer(t)
	for _, date := range []string{"2025-03-01", "2025-03-05", "2025-03-03"} {
		rec := do(t, router, http.MethodPost, "/api/sales", CreateSaleRequest{
			Date: date, Product: "Soap", Quantity: 1, UnitPrice: decimal.NewFromInt(1),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, router, http.MethodGet, "/api/sales?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sales := decode[[]books.SaleRecord](t, rec)
	require.Len(t, sales, 2)
	assert.Equal(t, "2025-03-05", sales[0].Date.String())
	assert.Equal(t, "2025-03-03", sales[1].Date.String())

	rec = do(t, router, http.MethodGet, "/api/sales?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArticles(t *testing.T) {
	router := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/articles", `{"name":"Lavender Soap","salePrice":"8","purchasePrice":"3"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	article := decode[books.ArticleRecord](t, rec)

	rec = do(t, router, http.MethodGet, "/api/articles/lookup?name=lavender%20soap%20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[books.ArticleRecord](t, rec)
	assert.Equal(t, article.ID, found.ID)

	rec = do(t, router, http.MethodGet, "/api/articles/lookup?name=Candle", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/articles/lookup", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodDelete, "/api/articles/"+string(article.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/articles", nil)
	assert.Empty(t, decode[[]books.ArticleRecord](t, rec))

	_, ok := stockOf(t, router, "Lavender Soap")
	assert.False(t, ok, "articles never create stock entries")
}

func TestInventory(t *testing.T) {
	router := newTestServer(t)

	rec := do(t, router, http.MethodPut, "/api/inventory/Soap", SetStockRequest{Quantity: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/inventory/Bath%20Salt", SetStockRequest{Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stock := decode[StockDTO](t, rec)
	assert.Equal(t, "Bath Salt", stock.Product)
	assert.Equal(t, books.ReasonManual, stock.Reason)
	assert.Equal(t, testNow.Format(time.RFC3339), stock.LastUpdated)

	rec = do(t, router, http.MethodPost, "/api/inventory/Bath%20Salt/adjust", AdjustStockRequest{Delta: -5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[StockDTO](t, rec).Quantity, "clamped at zero")
}

func TestInventory_ProductNamesWithEscapes(t *testing.T) {
	// GIVEN: product names containing '%' and '/'
	// WHEN: they are recounted through the path-escaped inventory routes
	// THEN: each entry is stored under the name exactly as written
	tests := []struct {
		path string
		want string
	}{
		{"/api/inventory/50%25%20Soap", "50% Soap"},
		{"/api/inventory/x%2541", "x%41"},
		{"/api/inventory/Oil%2FVinegar", "Oil/Vinegar"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			router := newTestServer(t)

			rec := do(t, router, http.MethodPut, tt.path, SetStockRequest{Quantity: 4})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, decode[StockDTO](t, rec).Product)

			rec = do(t, router, http.MethodPost, tt.path+"/adjust", AdjustStockRequest{Delta: -1})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, 3, decode[StockDTO](t, rec).Quantity)

			stock, ok := stockOf(t, router, tt.want)
			require.True(t, ok)
			assert.Equal(t, 3, stock.Quantity)
		})
	}
}

func TestReport(t *testing.T) {
	router := newTestServer(t)
	do(t, router, http.MethodPost, "/api/sales", `{"productName":"Soap","quantity":3,"unitPrice":"50"}`)
	do(t, router, http.MethodPost, "/api/purchases", `{"productName":"Soap","quantity":6,"unitCost":"5"}`)

	rec := do(t, router, http.MethodGet, "/api/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rep := decode[books.Report](t, rec)
	assert.True(t, decimal.NewFromInt(150).Equal(rep.TotalSales))
	assert.True(t, decimal.NewFromInt(30).Equal(rep.TotalPurchases))
	assert.True(t, decimal.NewFromInt(120).Equal(rep.Profit))
	assert.Equal(t, 1, rep.SaleCount)
}

func TestExportImportReset(t *testing.T) {
	router := newTestServer(t)
	do(t, router, http.MethodPost, "/api/sales", `{"productName":"Soap","quantity":1,"unitPrice":"4"}`)

	rec := do(t, router, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="bubbelbudget_backup_2025-03-10.json"`, rec.Header().Get("Content-Disposition"))
	exported := rec.Body.String()

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(exported), &doc))
	for _, key := range []string{"sales", "purchases", "inventory", "articles", "exportDate"} {
		assert.Contains(t, doc, key)
	}

	rec = do(t, router, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/sales", nil)
	assert.Empty(t, decode[[]books.SaleRecord](t, rec))

	rec = do(t, router, http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[ImportResponse](t, rec).Replaced, 4)

	rec = do(t, router, http.MethodGet, "/api/sales", nil)
	assert.Len(t, decode[[]books.SaleRecord](t, rec), 1)

	for _, doc := range []string{`{"sales": "oops"}`, `{"sales": []} trailing`, `null`} {
		rec = do(t, router, http.MethodPost, "/api/import", doc)
		assert.Equal(t, http.StatusBadRequest, rec.Code, doc)
	}
	rec = do(t, router, http.MethodGet, "/api/sales", nil)
	assert.Len(t, decode[[]books.SaleRecord](t, rec), 1, "failed import leaves data unchanged")
}

func TestExport_FileNameMatchesExportDate(t *testing.T) {
	// GIVEN: a clock late in the evening west of UTC
	// WHEN: the books are exported
	// THEN: the file name and exportDate both use the UTC day
	evening := time.Date(2025, time.March, 10, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	b := books.New(books.NewStore(store.NewTxMemory()),
		books.WithClock(func() time.Time { return evening }))
	router := NewRouter(NewHandler(b, nil), nil)

	rec := do(t, router, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="bubbelbudget_backup_2025-03-11.json"`, rec.Header().Get("Content-Disposition"))

	snap := decode[books.Snapshot](t, rec)
	assert.Equal(t, "2025-03-11", snap.ExportDate.Format("2006-01-02"))
}

func TestExportSpreadsheet(t *testing.T) {
	router := newTestServer(t)
	do(t, router, http.MethodPost, "/api/sales", `{"productName":"Soap","quantity":2,"unitPrice":"4"}`)

	rec := do(t, router, http.MethodGet, "/api/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasSuffix(rec.Header().Get("Content-Disposition"), `.xlsx"`))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Sales", "E2")
	require.NoError(t, err)
	assert.Equal(t, "8", v)
}
