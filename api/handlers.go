/*
handlers.go - HTTP API handlers for the books

ENDPOINTS:
  Sales:
    GET    /api/sales?limit=N          Newest first; no limit = all
    POST   /api/sales                  Record a sale (stock -quantity)
    DELETE /api/sales/{id}             Remove a sale (stock +quantity)

  Purchases:
    GET    /api/purchases?limit=N
    POST   /api/purchases              Record a purchase (stock +quantity)
    DELETE /api/purchases/{id}         Remove a purchase (stock -quantity)

  Articles:
    GET    /api/articles
    POST   /api/articles
    GET    /api/articles/lookup?name=  Price pre-fill
    DELETE /api/articles/{id}

  Inventory:
    GET    /api/inventory
    PUT    /api/inventory/{product}         Manual recount
    POST   /api/inventory/{product}/adjust  Signed delta

  Backup:
    GET    /api/report
    GET    /api/export, /api/export.xlsx
    POST   /api/import
    POST   /api/reset

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed body or import document
  - 404: Article lookup without a match
  - 500: Internal errors

  Deleting an unknown id answers 204 like a real delete.
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bubbelbudget/books/books"
	"github.com/bubbelbudget/books/spreadsheet"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxImportBytes = 10 << 20

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Books *books.Books
	Log   *zap.Logger
}

// NewHandler creates a new handler around the given books.
func NewHandler(b *books.Books, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Books: b, Log: log}
}

// =============================================================================
// SALES
// =============================================================================

// ListSales returns sales newest first.
// GET /api/sales
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	sales, err := h.Books.Sales.Recent(r.Context(), limit)
	if err != nil {
		h.internalError(w, "Failed to list sales", err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

// CreateSale records a sale.
// POST /api/sales
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := optionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	sale, err := h.Books.Sales.Create(r.Context(), books.NewSale{
		Date:      date,
		Product:   books.ProductName(req.Product),
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Note:      req.Note,
	})
	if err != nil {
		h.serviceError(w, "Failed to create sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

// DeleteSale removes a sale and returns its quantity to stock.
// DELETE /api/sales/{id}
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id := books.RecordID(chi.URLParam(r, "id"))
	if _, err := h.Books.Sales.Delete(r.Context(), id); err != nil {
		h.internalError(w, "Failed to delete sale", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PURCHASES
// =============================================================================

// ListPurchases returns purchases newest first.
// GET /api/purchases
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	purchases, err := h.Books.Purchases.Recent(r.Context(), limit)
	if err != nil {
		h.internalError(w, "Failed to list purchases", err)
		return
	}
	writeJSON(w, http.StatusOK, purchases)
}

// CreatePurchase records a purchase.
// POST /api/purchases
func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req CreatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := optionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	purchase, err := h.Books.Purchases.Create(r.Context(), books.NewPurchase{
		Date:     date,
		Product:  books.ProductName(req.Product),
		Quantity: req.Quantity,
		UnitCost: req.UnitCost,
		Supplier: req.Supplier,
		Note:     req.Note,
	})
	if err != nil {
		h.serviceError(w, "Failed to create purchase", err)
		return
	}
	writeJSON(w, http.StatusCreated, purchase)
}

// DeletePurchase removes a purchase and takes its quantity out of stock.
// DELETE /api/purchases/{id}
func (h *Handler) DeletePurchase(w http.ResponseWriter, r *http.Request) {
	id := books.RecordID(chi.URLParam(r, "id"))
	if _, err := h.Books.Purchases.Delete(r.Context(), id); err != nil {
		h.internalError(w, "Failed to delete purchase", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ARTICLES
// =============================================================================

// GET /api/articles
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.Books.Articles.List(r.Context())
	if err != nil {
		h.internalError(w, "Failed to list articles", err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

// POST /api/articles
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req CreateArticleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	article, err := h.Books.Articles.Create(r.Context(), books.NewArticle{
		Name:          books.ProductName(req.Name),
		Description:   req.Description,
		SalePrice:     req.SalePrice,
		PurchasePrice: req.PurchasePrice,
		Category:      req.Category,
		Note:          req.Note,
	})
	if err != nil {
		h.serviceError(w, "Failed to create article", err)
		return
	}
	writeJSON(w, http.StatusCreated, article)
}

// LookupArticle finds the catalog entry for a product name.
// GET /api/articles/lookup?name=...
func (h *Handler) LookupArticle(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Missing name parameter", nil)
		return
	}
	article, ok, err := h.Books.Articles.Find(r.Context(), books.ProductName(name))
	if err != nil {
		h.internalError(w, "Failed to look up article", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Article not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// DELETE /api/articles/{id}
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := books.RecordID(chi.URLParam(r, "id"))
	if _, err := h.Books.Articles.Delete(r.Context(), id); err != nil {
		h.internalError(w, "Failed to delete article", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// INVENTORY
// =============================================================================

// ListInventory returns every stock entry sorted by product name.
// GET /api/inventory
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Books.Inventory.Stock(r.Context())
	if err != nil {
		h.internalError(w, "Failed to list inventory", err)
		return
	}
	dtos := make([]StockDTO, len(lines))
	for i, l := range lines {
		dtos[i] = toStockDTO(l.Product, l.InventoryEntry)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SetStock records a manual recount.
// PUT /api/inventory/{product}
func (h *Handler) SetStock(w http.ResponseWriter, r *http.Request) {
	product, err := productParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product name", err)
		return
	}
	var req SetStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "Quantity must not be negative", nil)
		return
	}

	entry, err := h.Books.Inventory.SetAbsolute(r.Context(), product, req.Quantity, req.Reason)
	if err != nil {
		h.serviceError(w, "Failed to set stock", err)
		return
	}
	writeJSON(w, http.StatusOK, toStockDTO(product, entry))
}

// AdjustStock applies a signed delta, clamping at zero.
// POST /api/inventory/{product}/adjust
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	product, err := productParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product name", err)
		return
	}
	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Reason == "" {
		req.Reason = books.ReasonManual
	}

	entry, err := h.Books.Inventory.Adjust(r.Context(), product, req.Delta, req.Reason)
	if err != nil {
		h.serviceError(w, "Failed to adjust stock", err)
		return
	}
	writeJSON(w, http.StatusOK, toStockDTO(product, entry))
}

// =============================================================================
// REPORT & BACKUP
// =============================================================================

// GET /api/report
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Books.Reports.Compute(r.Context())
	if err != nil {
		h.internalError(w, "Failed to compute report", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Export downloads the full books as JSON.
// GET /api/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Books.Backup.Export(r.Context())
	if err != nil {
		h.internalError(w, "Failed to export", err)
		return
	}
	w.Header().Set("Content-Disposition", attachment(books.ExportFileName(snap.ExportDate)))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		h.Log.Error("write export", zap.Error(err))
	}
}

// ExportSpreadsheet downloads the books as an XLSX workbook.
// GET /api/export.xlsx
func (h *Handler) ExportSpreadsheet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := h.Books.Backup.Export(ctx)
	if err != nil {
		h.internalError(w, "Failed to export", err)
		return
	}
	rep := books.Summarize(snap.Sales, snap.Purchases)

	var buf bytes.Buffer
	if err := spreadsheet.Write(&buf, snap, rep); err != nil {
		h.internalError(w, "Failed to build spreadsheet", err)
		return
	}

	w.Header().Set("Content-Disposition", attachment(spreadsheet.FileName(snap)))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Log.Error("write spreadsheet", zap.Error(err))
	}
}

// Import replaces the slots present in the uploaded document.
// POST /api/import
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	res, err := h.Books.Backup.Import(r.Context(), body)
	if err != nil {
		h.serviceError(w, "Import failed. Check that the file is a valid backup", err)
		return
	}
	if res.Replaced == nil {
		res.Replaced = []books.Slot{}
	}
	writeJSON(w, http.StatusOK, ImportResponse{Replaced: res.Replaced})
}

// Reset deletes all data.
// POST /api/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Books.Backup.ClearAll(r.Context()); err != nil {
		h.internalError(w, "Failed to clear data", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) serviceError(w http.ResponseWriter, message string, err error) {
	if books.IsClientError(err) {
		writeError(w, http.StatusBadRequest, message, err)
		return
	}
	h.internalError(w, message, err)
}

func (h *Handler) internalError(w http.ResponseWriter, message string, err error) {
	h.Log.Error(message, zap.Error(err))
	writeError(w, http.StatusInternalServerError, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func toStockDTO(product books.ProductName, e books.InventoryEntry) StockDTO {
	return StockDTO{
		Product:     string(product),
		Quantity:    e.Quantity,
		LastUpdated: e.LastUpdated.Format(time.RFC3339),
		Reason:      e.Reason,
	}
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer, got %q", raw)
	}
	return n, nil
}

// productParam returns the decoded {product} segment. chi matches on
// RawPath when it is set, and only then is the parameter still escaped.
func productParam(r *http.Request) (books.ProductName, error) {
	name := chi.URLParam(r, "product")
	if r.URL.RawPath != "" {
		var err error
		if name, err = url.PathUnescape(name); err != nil {
			return "", err
		}
	}
	if name == "" {
		return "", errors.New("empty product name")
	}
	return books.ProductName(name), nil
}

func optionalDate(s string) (books.Date, error) {
	if s == "" {
		return books.Date{}, nil
	}
	return books.ParseDate(s)
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
