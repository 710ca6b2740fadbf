/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO:     Response types that differ from the stored records

Sale, purchase and article records are returned as stored; their JSON
shape is the persisted shape. Inventory is flattened to a sorted list.

VALIDATION:
  Validation is done by the books services. Handlers only parse.
*/
package api

import (
	"github.com/bubbelbudget/books/books"
	"github.com/shopspring/decimal"
)

// CreateSaleRequest is the body of POST /api/sales.
type CreateSaleRequest struct {
	Date      string          `json:"date"` // YYYY-MM-DD, empty = today
	Product   string          `json:"productName"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Note      string          `json:"note"`
}

// CreatePurchaseRequest is the body of POST /api/purchases.
type CreatePurchaseRequest struct {
	Date     string          `json:"date"`
	Product  string          `json:"productName"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unitCost"`
	Supplier string          `json:"supplier"`
	Note     string          `json:"note"`
}

// CreateArticleRequest is the body of POST /api/articles.
type CreateArticleRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	Category      string          `json:"category"`
	Note          string          `json:"note"`
}

// SetStockRequest is the body of PUT /api/inventory/{product}.
type SetStockRequest struct {
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// AdjustStockRequest is the body of POST /api/inventory/{product}/adjust.
type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// StockDTO is one inventory line.
type StockDTO struct {
	Product     string `json:"productName"`
	Quantity    int    `json:"quantity"`
	LastUpdated string `json:"lastUpdated"`
	Reason      string `json:"reason"`
}

// ImportResponse lists the slots an import replaced.
type ImportResponse struct {
	Replaced []books.Slot `json:"replaced"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
