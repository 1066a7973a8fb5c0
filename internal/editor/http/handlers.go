package editorhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lucent-erp/lucent-erp/internal/editor"
	"github.com/lucent-erp/lucent-erp/internal/ledger"
	"github.com/lucent-erp/lucent-erp/internal/platform/httpx"
	"github.com/lucent-erp/lucent-erp/internal/shared"
)

const requestTimeout = 10 * time.Second

// Service exposes the document mutations required by the handler.
type Service interface {
	PostForDocument(ctx context.Context, input editor.DocumentInput) error
	EditDocument(ctx context.Context, transactionID string, replacement editor.DocumentInput) error
	DeleteDocument(ctx context.Context, transactionID string) error
}

// Handler serves the source-document ingress endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

type documentLineVM struct {
	ItemID    int64 `json:"item_id"`
	Qty       int64 `json:"qty"`
	UnitPrice int64 `json:"unit_price"`
}

type glLineVM struct {
	AccountCode string `json:"account_code"`
	Debit       int64  `json:"debit"`
	Credit      int64  `json:"credit"`
}

type documentRequest struct {
	TransactionID  string           `json:"transaction_id"`
	Date           string           `json:"date"`
	Reference      string           `json:"reference"`
	Kind           string           `json:"kind"`
	Lines          []documentLineVM `json:"lines"`
	GLLines        []glLineVM       `json:"gl_lines"`
	CounterAccount string           `json:"counter_account"`
}

func (req documentRequest) toInput() (editor.DocumentInput, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return editor.DocumentInput{}, errors.New("date must be formatted YYYY-MM-DD")
	}
	input := editor.DocumentInput{
		TransactionID:  req.TransactionID,
		Date:           date,
		Reference:      req.Reference,
		Kind:           editor.DocumentKind(req.Kind),
		CounterAccount: req.CounterAccount,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, editor.DocumentLine{
			ItemID:    line.ItemID,
			Qty:       line.Qty,
			UnitPrice: line.UnitPrice,
		})
	}
	for _, line := range req.GLLines {
		input.GLLines = append(input.GLLines, ledger.PostingLineInput{
			AccountCode: line.AccountCode,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}
	return input, nil
}

func (h *Handler) handlePostDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	input, ok := h.decodeDocument(w, r)
	if !ok {
		return
	}
	if err := h.service.PostForDocument(ctx, input); err != nil {
		h.respondDocumentError(w, "post document", input.TransactionID, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"transaction_id": input.TransactionID})
}

func (h *Handler) handleEditDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	transactionID := chi.URLParam(r, "transactionID")
	input, ok := h.decodeDocument(w, r)
	if !ok {
		return
	}
	input.TransactionID = transactionID
	if err := h.service.EditDocument(ctx, transactionID, input); err != nil {
		h.respondDocumentError(w, "edit document", transactionID, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"transaction_id": transactionID})
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	transactionID := chi.URLParam(r, "transactionID")
	if err := h.service.DeleteDocument(ctx, transactionID); err != nil {
		h.respondDocumentError(w, "delete document", transactionID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeDocument(w http.ResponseWriter, r *http.Request) (editor.DocumentInput, bool) {
	var req documentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return editor.DocumentInput{}, false
	}
	input, err := req.toInput()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return editor.DocumentInput{}, false
	}
	if err := input.Validate(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return editor.DocumentInput{}, false
	}
	return input, true
}

func (h *Handler) respondDocumentError(w http.ResponseWriter, action, transactionID string, err error) {
	var locked *editor.DocumentLockedError
	switch {
	case errors.As(err, &locked):
		httpx.Problem(w, http.StatusConflict, "Locked", locked.Reason)
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "document already posted")
	case errors.Is(err, ledger.ErrEntryNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "document not found")
	default:
		h.logger.Error(action, slog.String("transaction_id", transactionID), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
