package books_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/bubbelbudget/books/books"
	"github.com/bubbelbudget/books/books/store"
	"github.com/shopspring/decimal"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func newTestBooks(t *testing.T) (*books.Books, *store.TxMemory) {
	t.Helper()
	sub := store.NewTxMemory()
	return books.New(books.NewStore(sub), testOptions()...), sub
}

func testOptions() []books.Option {
	seq := 0
	return []books.Option{
		books.WithClock(func() time.Time { return testNow }),
		books.WithIDGenerator(func() books.RecordID {
			seq++
			return books.RecordID(fmt.Sprintf("id-%03d", seq))
		}),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(d int) books.Date {
	return books.NewDate(2025, time.March, d)
}
