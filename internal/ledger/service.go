package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lucent-erp/lucent-erp/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates journal postings against the account registry.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PostEntry creates one journal entry plus its lines atomically and bumps
// each referenced account's cached balance by (debit - credit) within the
// same transaction. An imbalanced posting writes nothing.
func (s *Service) PostEntry(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertEntry(ctx, input)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		for code, delta := range AccountDeltas(input.Lines) {
			if err := tx.AdjustAccountBalance(ctx, code, delta); err != nil {
				return err
			}
		}
		inserted.Lines = toEntryLines(inserted.ID, input.Lines)
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, "journal.post", entry, map[string]any{
		"transaction_id": entry.TransactionID,
		"lines":          len(entry.Lines),
	})
	return entry, nil
}

// ReverseEntry posts the mirror of an existing entry. The original entry is
// never mutated or removed; the reversal carries the derived transaction id.
func (s *Service) ReverseEntry(ctx context.Context, entryID int64) (JournalEntry, error) {
	if entryID == 0 {
		return JournalEntry{}, errors.New("ledger: entry id required")
	}
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		posting := PostingInput{
			Date:          s.now(),
			Reference:     reversalReference(original.Reference, original.ID),
			TransactionID: original.TransactionID + ReversalSuffix,
			Lines:         ReverseLines(original.Lines),
		}
		inserted, err := tx.InsertEntry(ctx, posting)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, posting.Lines); err != nil {
			return err
		}
		for code, delta := range AccountDeltas(posting.Lines) {
			if err := tx.AdjustAccountBalance(ctx, code, delta); err != nil {
				return err
			}
		}
		inserted.Lines = toEntryLines(inserted.ID, posting.Lines)
		reversal = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, "journal.reverse", reversal, map[string]any{
		"original_entry_id": entryID,
	})
	return reversal, nil
}

// GetLedger returns all lines for an account ordered by date, annotated
// with the owning entry's reference and a running balance.
func (s *Service) GetLedger(ctx context.Context, accountCode string) ([]LedgerLine, error) {
	if accountCode == "" {
		return nil, errors.New("ledger: account code required")
	}
	return s.repo.GetLedger(ctx, accountCode)
}

// ListAccounts lists the chart of accounts.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.repo.ListAccounts(ctx)
}

// GetAccount fetches a single account by code.
func (s *Service) GetAccount(ctx context.Context, code string) (Account, error) {
	return s.repo.GetAccount(ctx, code)
}

// TrialBalance sums every ledger line.
func (s *Service) TrialBalance(ctx context.Context) (TrialBalance, error) {
	return s.repo.TrialBalance(ctx)
}

func (s *Service) recordAudit(ctx context.Context, action string, entry JournalEntry, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entry.ID),
		Meta:     meta,
		At:       s.now(),
	})
}

func toEntryLines(entryID int64, lines []PostingLineInput) []JournalEntryLine {
	out := make([]JournalEntryLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalEntryLine{
			EntryID:     entryID,
			AccountCode: line.AccountCode,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}
	return out
}

func reversalReference(reference string, entryID int64) string {
	if reference != "" {
		return fmt.Sprintf("Reversal of %s", reference)
	}
	return fmt.Sprintf("Reversal of JE %d", entryID)
}
