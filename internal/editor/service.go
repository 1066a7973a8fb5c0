package editor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lucent-erp/lucent-erp/internal/costing"
	"github.com/lucent-erp/lucent-erp/internal/ledger"
	"github.com/lucent-erp/lucent-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AccountResolver supplies per-item default GL account codes from the
// master data module.
type AccountResolver interface {
	InventoryAccount(ctx context.Context, itemID int64) (string, error)
	COGSAccount(ctx context.Context, itemID int64) (string, error)
	RevenueAccount(ctx context.Context, itemID int64) (string, error)
}

// PaymentPort asks the payments collaborator whether money has been applied
// against a document. A nil port means no payments integration.
type PaymentPort interface {
	HasPaymentApplied(ctx context.Context, transactionID string) (bool, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the reversal-and-replay transaction editor. It coordinates the
// ledger and costing engines but owns neither: posted history is never
// mutated in place, corrections append a reversal and, for edits, a fresh
// footprint.
type Service struct {
	repo        RepositoryPort
	costing     *costing.Service
	accounts    AccountResolver
	payments    PaymentPort
	idempotency *shared.IdempotencyStore
	audit       AuditPort
	now         func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, costingSvc *costing.Service, accounts AccountResolver, payments PaymentPort, idem *shared.IdempotencyStore, audit AuditPort) *Service {
	return &Service{
		repo:        repo,
		costing:     costingSvc,
		accounts:    accounts,
		payments:    payments,
		idempotency: idem,
		audit:       audit,
		now:         time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PostForDocument creates the initial GL and inventory footprint for a
// source document in one all-or-nothing transaction.
func (s *Service) PostForDocument(ctx context.Context, input DocumentInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	key := uuid.NewSHA1(uuid.Nil, []byte("doc:"+input.TransactionID)).String()
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "editor"); err != nil {
			return err
		}
		insertedKey = true
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return s.buildFootprint(ctx, tx, input)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return err
	}
	s.recordAudit(ctx, "document.post", input.TransactionID, map[string]any{"kind": string(input.Kind), "lines": len(input.Lines)})
	return nil
}

// EditDocument replaces a posted document's footprint: the old footprint is
// reversed (never erased) and a fresh one is built from the replacement
// input, all inside one transaction. Documents whose layers have downstream
// consumption, or with payments applied, are rejected with
// DocumentLockedError and nothing changes.
func (s *Service) EditDocument(ctx context.Context, transactionID string, replacement DocumentInput) error {
	replacement.TransactionID = transactionID
	if err := replacement.Validate(); err != nil {
		return err
	}
	if err := s.ensureUnlocked(ctx, transactionID); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.rollbackFootprint(ctx, tx, transactionID); err != nil {
			return err
		}
		return s.buildFootprint(ctx, tx, replacement)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "document.edit", transactionID, map[string]any{"kind": string(replacement.Kind)})
	return nil
}

// DeleteDocument reverses a document's entire GL impact and removes its
// layers; no replacement footprint is created. The reversed entries stay in
// the ledger for audit.
func (s *Service) DeleteDocument(ctx context.Context, transactionID string) error {
	if transactionID == "" {
		return errors.New("editor: transaction id required")
	}
	if err := s.ensureUnlocked(ctx, transactionID); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return s.rollbackFootprint(ctx, tx, transactionID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "document.delete", transactionID, nil)
	return nil
}

func (s *Service) ensureUnlocked(ctx context.Context, transactionID string) error {
	if s.payments == nil {
		return nil
	}
	applied, err := s.payments.HasPaymentApplied(ctx, transactionID)
	if err != nil {
		return err
	}
	if applied {
		return &DocumentLockedError{TransactionID: transactionID, Reason: LockReasonPayment}
	}
	return nil
}

// rollbackFootprint undoes a document inside an open transaction: restores
// any quantity the document consumed from other layers, removes the layers
// it created (only when untouched), and posts one entry mirroring the
// document's net GL impact.
func (s *Service) rollbackFootprint(ctx context.Context, tx TxRepository, transactionID string) error {
	entries, err := tx.FindEntriesByTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return ledger.ErrEntryNotFound
	}
	layers, err := tx.ListLayersByDocument(ctx, transactionID)
	if err != nil {
		return err
	}
	for _, layer := range layers {
		if layer.RemainingQty != layer.InitialQty {
			return &DocumentLockedError{TransactionID: transactionID, Reason: LockReasonConsumed}
		}
	}
	consumptions, err := tx.ListConsumptionsByDocument(ctx, transactionID)
	if err != nil {
		return err
	}
	for _, c := range consumptions {
		if err := tx.RestoreLayerQty(ctx, c.LayerID, c.Qty); err != nil {
			return err
		}
	}
	if err := tx.DeleteConsumptionsByDocument(ctx, transactionID); err != nil {
		return err
	}
	if err := tx.DeleteLayersByDocument(ctx, transactionID); err != nil {
		return err
	}
	if err := tx.DeleteMovementsByDocument(ctx, transactionID); err != nil {
		return err
	}
	reversals, err := tx.FindEntriesByTransaction(ctx, transactionID+ledger.ReversalSuffix)
	if err != nil {
		return err
	}
	lines := mirrorLines(netDeltas(append(entries, reversals...)))
	if len(lines) == 0 {
		// Footprint already nets to zero; nothing left to reverse.
		return nil
	}
	return tx.PostJournal(ctx, ledger.PostingInput{
		Date:          s.now(),
		Reference:     fmt.Sprintf("Reversal of %s", transactionID),
		TransactionID: transactionID + ledger.ReversalSuffix,
		Lines:         lines,
	})
}

// buildFootprint posts a document's layers, consumptions and journal entry
// inside an open transaction. Lines mapping to the same GL account collapse
// into a single ledger line per account.
func (s *Service) buildFootprint(ctx context.Context, tx TxRepository, input DocumentInput) error {
	now := s.now().UTC()
	var glLines []ledger.PostingLineInput
	switch input.Kind {
	case DocumentKindReceipt:
		var total int64
		for i, line := range input.Lines {
			layer := costing.InventoryLayer{
				ItemID:       line.ItemID,
				BatchID:      fmt.Sprintf("%s-%d", input.TransactionID, i+1),
				DocumentRef:  input.TransactionID,
				InitialQty:   line.Qty,
				RemainingQty: line.Qty,
				UnitCost:     line.UnitPrice,
				ReceivedAt:   now,
			}
			if _, err := tx.InsertLayer(ctx, layer); err != nil {
				return err
			}
			if err := tx.InsertMovement(ctx, costing.MovementEvent{
				Kind:        costing.MovementReceipt,
				ItemID:      line.ItemID,
				Qty:         line.Qty,
				UnitCost:    line.UnitPrice,
				DocumentRef: input.TransactionID,
				Note:        input.Reference,
				OccurredAt:  now,
			}); err != nil {
				return err
			}
			account, err := s.accounts.InventoryAccount(ctx, line.ItemID)
			if err != nil {
				return err
			}
			value := line.Qty * line.UnitPrice
			glLines = append(glLines, ledger.PostingLineInput{AccountCode: account, Debit: value})
			total += value
		}
		glLines = append(glLines, ledger.PostingLineInput{AccountCode: input.CounterAccount, Credit: total})
	case DocumentKindIssue:
		for _, line := range input.Lines {
			plan, err := s.costing.DepleteTx(ctx, tx, costing.DepleteInput{
				ItemID:      line.ItemID,
				Qty:         line.Qty,
				DocumentRef: input.TransactionID,
				Note:        input.Reference,
			})
			if err != nil {
				return err
			}
			cost := costing.TotalCost(plan)
			inventoryAccount, err := s.accounts.InventoryAccount(ctx, line.ItemID)
			if err != nil {
				return err
			}
			cogsAccount, err := s.accounts.COGSAccount(ctx, line.ItemID)
			if err != nil {
				return err
			}
			revenueAccount, err := s.accounts.RevenueAccount(ctx, line.ItemID)
			if err != nil {
				return err
			}
			revenue := line.Qty * line.UnitPrice
			glLines = append(glLines,
				ledger.PostingLineInput{AccountCode: input.CounterAccount, Debit: revenue},
				ledger.PostingLineInput{AccountCode: revenueAccount, Credit: revenue},
				ledger.PostingLineInput{AccountCode: cogsAccount, Debit: cost},
				ledger.PostingLineInput{AccountCode: inventoryAccount, Credit: cost},
			)
		}
	case DocumentKindManual:
		glLines = input.GLLines
	default:
		return fmt.Errorf("editor: unknown document kind %q", input.Kind)
	}
	return tx.PostJournal(ctx, ledger.PostingInput{
		Date:          input.Date,
		Reference:     input.Reference,
		TransactionID: input.TransactionID,
		Lines:         ledger.GroupByAccount(glLines),
	})
}

// netDeltas sums (debit - credit) per account across entries.
func netDeltas(entries []ledger.JournalEntry) map[string]int64 {
	deltas := make(map[string]int64)
	for _, entry := range entries {
		for _, line := range entry.Lines {
			deltas[line.AccountCode] += line.Debit - line.Credit
		}
	}
	return deltas
}

// mirrorLines builds posting lines that cancel the given net deltas.
func mirrorLines(deltas map[string]int64) []ledger.PostingLineInput {
	codes := make([]string, 0, len(deltas))
	for code := range deltas {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	var lines []ledger.PostingLineInput
	for _, code := range codes {
		switch delta := deltas[code]; {
		case delta > 0:
			lines = append(lines, ledger.PostingLineInput{AccountCode: code, Credit: delta})
		case delta < 0:
			lines = append(lines, ledger.PostingLineInput{AccountCode: code, Debit: -delta})
		}
	}
	return lines
}

func (s *Service) recordAudit(ctx context.Context, action, transactionID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "source_document",
		EntityID: transactionID,
		Meta:     meta,
		At:       s.now(),
	})
}
