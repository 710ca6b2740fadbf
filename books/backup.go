/*
backup.go - Export, import and wipe of the whole books

EXPORT FORMAT:
  {
    "sales":      [...],
    "purchases":  [...],
    "inventory":  {...},
    "articles":   [...],
    "exportDate": "2026-10-19T08:30:00Z"
  }

IMPORT RULES:
  - The whole body must be exactly one JSON object; trailing data or a
    top-level null is malformed.
  - The whole document is parsed and every present key is decoded before
    anything is written. Any failure returns ErrMalformedImport and leaves
    the books untouched.
  - Keys that are absent or null keep their current slot.
  - Present keys replace their slot wholesale (no record-level merge).
  - All replacements commit in one Update.
*/
package books

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Snapshot is the export document.
type Snapshot struct {
	Sales      []SaleRecord     `json:"sales"`
	Purchases  []PurchaseRecord `json:"purchases"`
	Inventory  InventoryMap     `json:"inventory"`
	Articles   []ArticleRecord  `json:"articles"`
	ExportDate time.Time        `json:"exportDate"`
}

type importDocument struct {
	Sales     *json.RawMessage `json:"sales"`
	Purchases *json.RawMessage `json:"purchases"`
	Inventory *json.RawMessage `json:"inventory"`
	Articles  *json.RawMessage `json:"articles"`
}

// ImportResult names the slots an import replaced.
type ImportResult struct {
	Replaced []Slot
}

// BackupService moves the whole books in and out as one document.
type BackupService struct {
	c *core
}

// ExportFileName is the download name for an export taken at t.
func ExportFileName(t time.Time) string {
	return fmt.Sprintf("bubbelbudget_backup_%s.json", t.Format(dateLayout))
}

// Export reads every slot in one View.
func (s *BackupService) Export(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{ExportDate: s.c.now().UTC()}
	err := s.c.store.View(ctx, func(rs RecordStore) error {
		var err error
		if snap.Sales, err = rs.ListSales(ctx); err != nil {
			return err
		}
		if snap.Purchases, err = rs.ListPurchases(ctx); err != nil {
			return err
		}
		if snap.Inventory, err = rs.Inventory(ctx); err != nil {
			return err
		}
		snap.Articles, err = rs.ListArticles(ctx)
		return err
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("export: %w", err)
	}
	return snap, nil
}

// WriteExport writes the snapshot as indented JSON.
func (s *BackupService) WriteExport(ctx context.Context, w io.Writer) error {
	snap, err := s.Export(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Import applies a backup document read from r.
func (s *BackupService) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: read: %w", ErrMalformedImport, err)
	}
	var doc *importDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %w", ErrMalformedImport, err)
	}
	if doc == nil {
		return ImportResult{}, fmt.Errorf("%w: document is null", ErrMalformedImport)
	}

	var (
		res       ImportResult
		sales     []SaleRecord
		purchases []PurchaseRecord
		inventory InventoryMap
		articles  []ArticleRecord
	)
	decode := func(slot Slot, raw *json.RawMessage, out any) error {
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(*raw, out); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformedImport, slot, err)
		}
		res.Replaced = append(res.Replaced, slot)
		return nil
	}
	if err := decode(SlotSales, doc.Sales, &sales); err != nil {
		return ImportResult{}, err
	}
	if err := decode(SlotPurchases, doc.Purchases, &purchases); err != nil {
		return ImportResult{}, err
	}
	if err := decode(SlotInventory, doc.Inventory, &inventory); err != nil {
		return ImportResult{}, err
	}
	if err := decode(SlotArticles, doc.Articles, &articles); err != nil {
		return ImportResult{}, err
	}

	err = s.c.store.Update(ctx, func(rs RecordStore) error {
		for _, slot := range res.Replaced {
			var err error
			switch slot {
			case SlotSales:
				err = rs.ReplaceSales(ctx, sales)
			case SlotPurchases:
				err = rs.ReplacePurchases(ctx, purchases)
			case SlotInventory:
				err = rs.ReplaceInventory(ctx, inventory)
			case SlotArticles:
				err = rs.ReplaceArticles(ctx, articles)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("import: %w", err)
	}

	s.c.log.Info("backup imported", zap.Int("slots", len(res.Replaced)))
	s.c.committed("imported", "")
	return res, nil
}

// ClearAll deletes every slot.
func (s *BackupService) ClearAll(ctx context.Context) error {
	if err := s.c.store.Update(ctx, func(rs RecordStore) error {
		return rs.Clear(ctx)
	}); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	s.c.log.Info("books cleared")
	s.c.committed("cleared", "")
	return nil
}
