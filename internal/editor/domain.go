package editor

import (
	"fmt"
	"time"

	"github.com/lucent-erp/lucent-erp/internal/ledger"
)

// DocumentKind selects how a source document's footprint is built.
type DocumentKind string

const (
	// DocumentKindReceipt covers bills and other inbound documents that
	// create inventory layers.
	DocumentKindReceipt DocumentKind = "RECEIPT"
	// DocumentKindIssue covers invoices and other outbound documents that
	// consume layers.
	DocumentKindIssue DocumentKind = "ISSUE"
	// DocumentKindManual covers manual journal entries with no inventory
	// footprint.
	DocumentKindManual DocumentKind = "MANUAL"
)

// DocumentLine is one (item, qty, unit price) line supplied by the source
// document module. UnitPrice is the unit cost for receipts and the selling
// price for issues, in minor currency units.
type DocumentLine struct {
	ItemID    int64 `validate:"required,gt=0"`
	Qty       int64 `validate:"required,gt=0"`
	UnitPrice int64 `validate:"gte=0"`
}

// DocumentInput describes a source document footprint to post or replay.
type DocumentInput struct {
	TransactionID string       `validate:"required"`
	Date          time.Time    `validate:"required"`
	Reference     string       `validate:"-"`
	Kind          DocumentKind `validate:"required,oneof=RECEIPT ISSUE MANUAL"`
	// Lines drive the inventory footprint for RECEIPT and ISSUE documents.
	Lines []DocumentLine `validate:"omitempty,dive"`
	// GLLines are posted verbatim for MANUAL documents.
	GLLines []ledger.PostingLineInput `validate:"-"`
	// CounterAccount balances the document entry: accounts payable for
	// receipts, accounts receivable for issues.
	CounterAccount string `validate:"-"`
}

// DocumentConsumption links a document to quantity it took from a layer.
type DocumentConsumption struct {
	LayerID int64
	Qty     int64
}

// Lock reasons returned to the document module; actionable, not retried.
const (
	LockReasonPayment  = "payment applied; void the payment first"
	LockReasonConsumed = "items already sold or consumed; post an adjustment instead"
)

// DocumentLockedError rejects an edit or delete blocked by downstream
// state. The reason is meant for the end user verbatim.
type DocumentLockedError struct {
	TransactionID string
	Reason        string
}

func (e *DocumentLockedError) Error() string {
	return fmt.Sprintf("editor: document %s is locked: %s", e.TransactionID, e.Reason)
}
