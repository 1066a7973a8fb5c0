package recon

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucent-erp/lucent-erp/internal/ledger"
)

// memoryBooks models the accounts, journal lines and layers the
// reconciliation queries read, with a cached balance that tests can skew.
type memoryBooks struct {
	cached    map[string]int64
	lines     map[string][]ledger.PostingLineInput
	valuation []ValuationRow
	entryID   int64
}

func newMemoryBooks() *memoryBooks {
	return &memoryBooks{
		cached: make(map[string]int64),
		lines:  make(map[string][]ledger.PostingLineInput),
	}
}

func (b *memoryBooks) post(lines ...ledger.PostingLineInput) {
	for _, line := range lines {
		b.lines[line.AccountCode] = append(b.lines[line.AccountCode], line)
		b.cached[line.AccountCode] += line.Debit - line.Credit
	}
}

func (b *memoryBooks) computed(code string) int64 {
	var sum int64
	for _, line := range b.lines[code] {
		sum += line.Debit - line.Credit
	}
	return sum
}

func (b *memoryBooks) ListAccountSums(ctx context.Context) ([]AccountSum, error) {
	var out []AccountSum
	for code := range b.cached {
		out = append(out, AccountSum{AccountCode: code, Cached: b.cached[code], Computed: b.computed(code)})
	}
	return out, nil
}

func (b *memoryBooks) ListValuationRows(ctx context.Context) ([]ValuationRow, error) {
	return b.valuation, nil
}

// memoryBooks also satisfies ledger.Repository so corrections post against
// the same state the recomputation reads.
func (b *memoryBooks) WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error {
	return fn(ctx, &memoryBooksTx{books: b})
}

func (b *memoryBooks) GetLedger(ctx context.Context, accountCode string) ([]ledger.LedgerLine, error) {
	return nil, nil
}

func (b *memoryBooks) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return nil, nil
}

func (b *memoryBooks) GetAccount(ctx context.Context, code string) (ledger.Account, error) {
	bal, ok := b.cached[code]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return ledger.Account{Code: code, CachedBalance: bal}, nil
}

func (b *memoryBooks) TrialBalance(ctx context.Context) (ledger.TrialBalance, error) {
	var tb ledger.TrialBalance
	for _, lines := range b.lines {
		for _, line := range lines {
			tb.TotalDebit += line.Debit
			tb.TotalCredit += line.Credit
		}
	}
	return tb, nil
}

type memoryBooksTx struct {
	books *memoryBooks
}

func (t *memoryBooksTx) InsertEntry(ctx context.Context, in ledger.PostingInput) (ledger.JournalEntry, error) {
	t.books.entryID++
	return ledger.JournalEntry{ID: t.books.entryID, TransactionID: in.TransactionID}, nil
}

func (t *memoryBooksTx) InsertLines(ctx context.Context, entryID int64, lines []ledger.PostingLineInput) error {
	for _, line := range lines {
		t.books.lines[line.AccountCode] = append(t.books.lines[line.AccountCode], line)
	}
	return nil
}

func (t *memoryBooksTx) GetEntryWithLines(ctx context.Context, entryID int64) (ledger.JournalEntry, error) {
	return ledger.JournalEntry{}, ledger.ErrEntryNotFound
}

func (t *memoryBooksTx) AdjustAccountBalance(ctx context.Context, code string, delta int64) error {
	t.books.cached[code] += delta
	return nil
}

func (t *memoryBooksTx) RecomputeAccountBalance(ctx context.Context, code string) (int64, error) {
	sum := t.books.computed(code)
	t.books.cached[code] = sum
	return sum, nil
}

func newReconService(books *memoryBooks) *Service {
	svc := NewService(books, books, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), ServiceConfig{SuspenseAccount: "9999"})
	at := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return at })
	return svc
}

func TestRunCleanBooks(t *testing.T) {
	books := newMemoryBooks()
	books.post(
		ledger.PostingLineInput{AccountCode: "1400", Debit: 50_000},
		ledger.PostingLineInput{AccountCode: "2100", Credit: 50_000},
	)
	svc := newReconService(books)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Clean())
	require.NoError(t, svc.Verify(context.Background()))
}

func TestRunDetectsCacheDrift(t *testing.T) {
	books := newMemoryBooks()
	books.post(
		ledger.PostingLineInput{AccountCode: "1400", Debit: 50_000},
		ledger.PostingLineInput{AccountCode: "2100", Credit: 50_000},
	)
	books.cached["1400"] = 47_000 // simulate a missed balance bump

	svc := newReconService(books)
	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.Clean())
	require.Len(t, report.Discrepancies, 1)
	d := report.Discrepancies[0]
	require.Equal(t, "1400", d.AccountCode)
	require.Equal(t, int64(47_000), d.Cached)
	require.Equal(t, int64(50_000), d.Computed)
	require.Equal(t, int64(-3_000), d.Delta)

	var drift *DriftError
	require.ErrorAs(t, svc.Verify(context.Background()), &drift)
	require.Len(t, drift.Report.Discrepancies, 1)
}

func TestRunDetectsValuationDrift(t *testing.T) {
	books := newMemoryBooks()
	books.valuation = []ValuationRow{
		{Classification: "RAW", AccountCode: "1400", LayerValue: 62_000, GLBalance: 60_000},
		{Classification: "FG", AccountCode: "1410", LayerValue: 10_000, GLBalance: 10_000},
	}
	svc := newReconService(books)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.ValuationDrifts, 1)
	require.Equal(t, "RAW", report.ValuationDrifts[0].Classification)
	require.Equal(t, int64(2_000), report.ValuationDrifts[0].Delta)
}

func TestApplyCorrectionsResyncsCache(t *testing.T) {
	books := newMemoryBooks()
	books.post(
		ledger.PostingLineInput{AccountCode: "1400", Debit: 50_000},
		ledger.PostingLineInput{AccountCode: "2100", Credit: 50_000},
	)
	books.cached["1400"] = 47_000
	svc := newReconService(books)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.ApplyCorrections(context.Background(), report))

	// cache back in line with the lines
	require.Equal(t, int64(50_000), books.cached["1400"])

	// the correction left a marker entry on the suspense account
	require.Len(t, books.lines["9999"], 2)
	require.Zero(t, books.computed("9999"))

	after, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.True(t, after.Clean())
}

func TestApplyCorrectionsRequiresSuspenseAccount(t *testing.T) {
	books := newMemoryBooks()
	svc := NewService(books, books, nil, nil, nil, ServiceConfig{})
	err := svc.ApplyCorrections(context.Background(), Report{
		Discrepancies: []Discrepancy{{AccountCode: "1400", Delta: 1}},
	})
	require.Error(t, err)
}
