package books

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// NewArticle is the input of ArticleService.Create.
type NewArticle struct {
	Name          ProductName
	Description   string
	SalePrice     decimal.Decimal
	PurchasePrice decimal.Decimal // zero when unknown
	Category      string
	Note          string
}

func (n NewArticle) validate() error {
	if err := validateProduct(n.Name); err != nil {
		return invalid("name", "must not be empty")
	}
	if n.SalePrice.IsNegative() {
		return invalid("salePrice", "must not be negative")
	}
	if n.PurchasePrice.IsNegative() {
		return invalid("purchasePrice", "must not be negative")
	}
	return nil
}

// ArticleService manages the product catalog. Articles never touch stock.
type ArticleService struct {
	c *core
}

// Create adds a catalog entry stamped with the current time.
func (s *ArticleService) Create(ctx context.Context, in NewArticle) (ArticleRecord, error) {
	if err := in.validate(); err != nil {
		return ArticleRecord{}, err
	}

	rec := ArticleRecord{
		ID:            s.c.newID(),
		Name:          in.Name,
		Description:   in.Description,
		SalePrice:     in.SalePrice,
		PurchasePrice: in.PurchasePrice,
		Category:      in.Category,
		Note:          in.Note,
		CreatedAt:     s.c.now(),
	}
	err := s.c.store.Update(ctx, func(rs RecordStore) error {
		return rs.AppendArticle(ctx, rec)
	})
	if err != nil {
		return ArticleRecord{}, fmt.Errorf("create article: %w", err)
	}

	s.c.committed("article_created", rec.Name)
	return rec, nil
}

// Delete removes an article. A missing id is a no-op.
func (s *ArticleService) Delete(ctx context.Context, id RecordID) (bool, error) {
	var rec ArticleRecord
	err := s.c.store.Update(ctx, func(rs RecordStore) error {
		var err error
		rec, err = rs.RemoveArticle(ctx, id)
		return err
	})
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete article %s: %w", id, err)
	}

	s.c.committed("article_deleted", rec.Name)
	return true, nil
}

// List returns the catalog in insertion order.
func (s *ArticleService) List(ctx context.Context) ([]ArticleRecord, error) {
	var articles []ArticleRecord
	err := s.c.store.View(ctx, func(rs RecordStore) error {
		var err error
		articles, err = rs.ListArticles(ctx)
		return err
	})
	return articles, err
}

// Find returns the first article whose name matches, ignoring case and
// surrounding spaces. Forms use it to pre-fill prices.
func (s *ArticleService) Find(ctx context.Context, name ProductName) (ArticleRecord, bool, error) {
	articles, err := s.List(ctx)
	if err != nil {
		return ArticleRecord{}, false, err
	}
	for _, a := range articles {
		if a.Name.Matches(name) {
			return a, true, nil
		}
	}
	return ArticleRecord{}, false, nil
}
