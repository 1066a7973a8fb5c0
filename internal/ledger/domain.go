package ledger

import (
	"errors"
	"time"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Account models a chart of accounts node. CachedBalance is a materialized
// view of the account's ledger lines, maintained inside the same transaction
// that posts; reconciliation re-derives it from the lines at any time.
type Account struct {
	ID            int64
	Code          string
	Name          string
	Type          AccountType
	CachedBalance int64
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// JournalEntry captures posting metadata. Entries are append-only: they are
// never updated or deleted after insert, corrections post new entries.
type JournalEntry struct {
	ID            int64
	Date          time.Time
	Reference     string
	TransactionID string
	Posted        bool
	CreatedAt     time.Time
	Lines         []JournalEntryLine
}

// JournalEntryLine stores a debit or credit amount for an account.
// Amounts are minor currency units; exactly one side is non-zero.
type JournalEntryLine struct {
	ID          int64
	EntryID     int64
	AccountCode string
	Debit       int64
	Credit      int64
}

// LedgerLine is the read model returned by GetLedger: a journal line
// annotated with its owning entry and a running balance.
type LedgerLine struct {
	EntryID       int64
	EntryDate     time.Time
	Reference     string
	TransactionID string
	Debit         int64
	Credit        int64
	Running       int64
}

// TrialBalance sums every debit and credit line in the ledger.
type TrialBalance struct {
	TotalDebit  int64
	TotalCredit int64
}

// Balanced reports whether the ledger-wide identity holds.
func (tb TrialBalance) Balanced() bool {
	return tb.TotalDebit == tb.TotalCredit
}

// ReversalSuffix derives the transaction id of a reversal from its original.
const ReversalSuffix = "-reversal"

var (
	// ErrImbalancedEntry indicates debit != credit over a posting.
	ErrImbalancedEntry = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("ledger: account not found")
)
