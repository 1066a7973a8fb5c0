package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucent-erp/lucent-erp/internal/platform/db"
)

// Repository encapsulates DB operations for the journal and account registry.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetLedger(ctx context.Context, accountCode string) ([]LedgerLine, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, code string) (Account, error)
	TrialBalance(ctx context.Context) (TrialBalance, error)
}

// TxRepository exposes operations available within a posting transaction.
type TxRepository interface {
	InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error
	GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error)
	AdjustAccountBalance(ctx context.Context, code string, delta int64) error
	// RecomputeAccountBalance resets the cached balance to the sum of the
	// account's ledger lines and returns the recomputed value.
	RecomputeAccountBalance(ctx context.Context, code string) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) GetLedger(ctx context.Context, accountCode string) ([]LedgerLine, error) {
	rows, err := r.db.Query(ctx, `SELECT e.id, e.date, e.reference, e.transaction_id, l.debit, l.credit
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE l.account_code = $1
ORDER BY e.date ASC, e.id ASC, l.id ASC`, accountCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerLine
	var running int64
	for rows.Next() {
		var line LedgerLine
		if err := rows.Scan(&line.EntryID, &line.EntryDate, &line.Reference, &line.TransactionID, &line.Debit, &line.Credit); err != nil {
			return nil, err
		}
		running += line.Debit - line.Credit
		line.Running = running
		out = append(out, line)
	}
	return out, rows.Err()
}

func (r *repository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, type, cached_balance, is_active, created_at, updated_at FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.CachedBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) GetAccount(ctx context.Context, code string) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `SELECT id, code, name, type, cached_balance, is_active, created_at, updated_at FROM accounts WHERE code=$1`, code).
		Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.CachedBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) TrialBalance(ctx context.Context) (TrialBalance, error) {
	var tb TrialBalance
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(debit),0), COALESCE(SUM(credit),0) FROM journal_lines`).
		Scan(&tb.TotalDebit, &tb.TotalCredit)
	return tb, err
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	entry := JournalEntry{
		Date:          in.Date,
		Reference:     in.Reference,
		TransactionID: in.TransactionID,
		Posted:        true,
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (date, reference, transaction_id, posted)
VALUES ($1,$2,$3,TRUE) RETURNING id, created_at`, in.Date, in.Reference, in.TransactionID).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_code, debit, credit)
VALUES ($1,$2,$3,$4)`, entryID, line.AccountCode, line.Debit, line.Credit); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := r.tx.QueryRow(ctx, `SELECT id, date, reference, transaction_id, posted, created_at FROM journal_entries WHERE id=$1`, entryID).
		Scan(&entry.ID, &entry.Date, &entry.Reference, &entry.TransactionID, &entry.Posted, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, entry_id, account_code, debit, credit FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalEntryLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountCode, &line.Debit, &line.Credit); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

func (r *txRepository) AdjustAccountBalance(ctx context.Context, code string, delta int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET cached_balance = cached_balance + $2, updated_at = NOW() WHERE code=$1`, code, delta)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) RecomputeAccountBalance(ctx context.Context, code string) (int64, error) {
	var balance int64
	err := r.tx.QueryRow(ctx, `UPDATE accounts
SET cached_balance = (SELECT COALESCE(SUM(debit - credit),0) FROM journal_lines WHERE account_code=$1), updated_at = NOW()
WHERE code=$1
RETURNING cached_balance`, code).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return balance, nil
}
