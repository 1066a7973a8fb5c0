package ledger

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucent-erp/lucent-erp/internal/shared"
)

type memoryLedgerRepo struct {
	entries    map[int64]JournalEntry
	lines      map[int64][]JournalEntryLine
	balances   map[string]int64
	nextID     int64
	nextLineID int64
}

type memoryLedgerTx struct {
	repo *memoryLedgerRepo
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		entries:  make(map[int64]JournalEntry),
		lines:    make(map[int64][]JournalEntryLine),
		balances: make(map[string]int64),
	}
}

func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryLedgerTx{repo: r})
}

func (r *memoryLedgerRepo) GetLedger(ctx context.Context, accountCode string) ([]LedgerLine, error) {
	var out []LedgerLine
	ids := make([]int64, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var running int64
	for _, id := range ids {
		entry := r.entries[id]
		for _, line := range r.lines[id] {
			if line.AccountCode != accountCode {
				continue
			}
			running += line.Debit - line.Credit
			out = append(out, LedgerLine{
				EntryID:       entry.ID,
				EntryDate:     entry.Date,
				Reference:     entry.Reference,
				TransactionID: entry.TransactionID,
				Debit:         line.Debit,
				Credit:        line.Credit,
				Running:       running,
			})
		}
	}
	return out, nil
}

func (r *memoryLedgerRepo) ListAccounts(ctx context.Context) ([]Account, error) {
	var out []Account
	for code, bal := range r.balances {
		out = append(out, Account{Code: code, CachedBalance: bal})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memoryLedgerRepo) GetAccount(ctx context.Context, code string) (Account, error) {
	bal, ok := r.balances[code]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return Account{Code: code, CachedBalance: bal}, nil
}

func (r *memoryLedgerRepo) TrialBalance(ctx context.Context) (TrialBalance, error) {
	var tb TrialBalance
	for _, lines := range r.lines {
		for _, line := range lines {
			tb.TotalDebit += line.Debit
			tb.TotalCredit += line.Credit
		}
	}
	return tb, nil
}

func (t *memoryLedgerTx) InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	t.repo.nextID++
	entry := JournalEntry{
		ID:            t.repo.nextID,
		Date:          in.Date,
		Reference:     in.Reference,
		TransactionID: in.TransactionID,
		Posted:        true,
	}
	t.repo.entries[entry.ID] = entry
	return entry, nil
}

func (t *memoryLedgerTx) InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		t.repo.nextLineID++
		t.repo.lines[entryID] = append(t.repo.lines[entryID], JournalEntryLine{
			ID:          t.repo.nextLineID,
			EntryID:     entryID,
			AccountCode: line.AccountCode,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}
	return nil
}

func (t *memoryLedgerTx) GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	entry, ok := t.repo.entries[entryID]
	if !ok {
		return JournalEntry{}, ErrEntryNotFound
	}
	entry.Lines = append([]JournalEntryLine(nil), t.repo.lines[entryID]...)
	return entry, nil
}

func (t *memoryLedgerTx) AdjustAccountBalance(ctx context.Context, code string, delta int64) error {
	t.repo.balances[code] += delta
	return nil
}

func (t *memoryLedgerTx) RecomputeAccountBalance(ctx context.Context, code string) (int64, error) {
	var sum int64
	for _, lines := range t.repo.lines {
		for _, line := range lines {
			if line.AccountCode == code {
				sum += line.Debit - line.Credit
			}
		}
	}
	t.repo.balances[code] = sum
	return sum, nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestPostEntryUpdatesBalances(t *testing.T) {
	repo := newMemoryLedgerRepo()
	audit := &memoryAudit{}
	svc := NewService(repo, audit)
	svc.WithNow(fixedClock())

	entry, err := svc.PostEntry(context.Background(), PostingInput{
		Date:          time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Reference:     "GRN-1001",
		TransactionID: "grn-1001",
		Lines: []PostingLineInput{
			{AccountCode: "1400", Debit: 50_000},
			{AccountCode: "2100", Credit: 50_000},
		},
	})
	require.NoError(t, err)
	require.NotZero(t, entry.ID)
	require.Len(t, entry.Lines, 2)

	require.Equal(t, int64(50_000), repo.balances["1400"])
	require.Equal(t, int64(-50_000), repo.balances["2100"])

	tb, err := svc.TrialBalance(context.Background())
	require.NoError(t, err)
	require.True(t, tb.Balanced())

	require.Len(t, audit.logs, 1)
	require.Equal(t, "journal.post", audit.logs[0].Action)
}

func TestPostEntryRejectsImbalance(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)

	_, err := svc.PostEntry(context.Background(), PostingInput{
		Date:          time.Now(),
		TransactionID: "bad-1",
		Lines: []PostingLineInput{
			{AccountCode: "1400", Debit: 100},
			{AccountCode: "2100", Credit: 90},
		},
	})
	require.ErrorIs(t, err, ErrImbalancedEntry)
	require.Empty(t, repo.entries)
	require.Empty(t, repo.balances)
}

func TestPostEntryRejectsSingleLine(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)

	_, err := svc.PostEntry(context.Background(), PostingInput{
		Date:          time.Now(),
		TransactionID: "bad-2",
		Lines:         []PostingLineInput{{AccountCode: "1400", Debit: 0}},
	})
	require.ErrorIs(t, err, ErrTooFewLines)
}

func TestPostEntryRejectsTwoSidedLine(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)

	_, err := svc.PostEntry(context.Background(), PostingInput{
		Date:          time.Now(),
		TransactionID: "bad-3",
		Lines: []PostingLineInput{
			{AccountCode: "1400", Debit: 100, Credit: 100},
			{AccountCode: "2100"},
		},
	})
	require.Error(t, err)
}

func TestReverseEntryMirrorsLines(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)
	svc.WithNow(fixedClock())

	entry, err := svc.PostEntry(context.Background(), PostingInput{
		Date:          time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Reference:     "INV-7",
		TransactionID: "inv-7",
		Lines: []PostingLineInput{
			{AccountCode: "1200", Debit: 11_000},
			{AccountCode: "4000", Credit: 11_000},
		},
	})
	require.NoError(t, err)

	reversal, err := svc.ReverseEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	require.Equal(t, "inv-7"+ReversalSuffix, reversal.TransactionID)
	require.Equal(t, "Reversal of INV-7", reversal.Reference)
	require.Len(t, reversal.Lines, 2)
	require.Equal(t, int64(11_000), reversal.Lines[0].Credit)
	require.Equal(t, "1200", reversal.Lines[0].AccountCode)
	require.Equal(t, int64(11_000), reversal.Lines[1].Debit)

	// original untouched, balances net to zero
	original, ok := repo.entries[entry.ID]
	require.True(t, ok)
	require.Equal(t, "inv-7", original.TransactionID)
	require.Zero(t, repo.balances["1200"])
	require.Zero(t, repo.balances["4000"])
}

func TestReverseEntryMissing(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)

	_, err := svc.ReverseEntry(context.Background(), 99)
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestGetLedgerRunningBalance(t *testing.T) {
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, nil)

	for i, amount := range []int64{10_000, 4_000} {
		_, err := svc.PostEntry(context.Background(), PostingInput{
			Date:          time.Date(2026, 3, 1+i, 0, 0, 0, 0, time.UTC),
			TransactionID: "tx-" + string(rune('a'+i)),
			Lines: []PostingLineInput{
				{AccountCode: "1100", Debit: amount},
				{AccountCode: "4000", Credit: amount},
			},
		})
		require.NoError(t, err)
	}

	lines, err := svc.GetLedger(context.Background(), "1100")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, int64(10_000), lines[0].Running)
	require.Equal(t, int64(14_000), lines[1].Running)
}

func TestGroupByAccountCollapsesLines(t *testing.T) {
	grouped := GroupByAccount([]PostingLineInput{
		{AccountCode: "1400", Debit: 30_000},
		{AccountCode: "1400", Debit: 20_000},
		{AccountCode: "2100", Credit: 50_000},
	})
	require.Len(t, grouped, 2)
	require.Equal(t, PostingLineInput{AccountCode: "1400", Debit: 50_000}, grouped[0])
	require.Equal(t, PostingLineInput{AccountCode: "2100", Credit: 50_000}, grouped[1])
}

func TestGroupByAccountDropsZeroNet(t *testing.T) {
	grouped := GroupByAccount([]PostingLineInput{
		{AccountCode: "1400", Debit: 5_000},
		{AccountCode: "1400", Credit: 5_000},
		{AccountCode: "5000", Debit: 5_000},
		{AccountCode: "2100", Credit: 5_000},
	})
	require.Len(t, grouped, 2)
	require.Equal(t, "2100", grouped[0].AccountCode)
	require.Equal(t, "5000", grouped[1].AccountCode)
}

func TestAccountDeltas(t *testing.T) {
	deltas := AccountDeltas([]PostingLineInput{
		{AccountCode: "1400", Debit: 100},
		{AccountCode: "1400", Credit: 40},
		{AccountCode: "2100", Credit: 60},
	})
	require.Equal(t, int64(60), deltas["1400"])
	require.Equal(t, int64(-60), deltas["2100"])
}
