package ledgerhttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lucent-erp/lucent-erp/internal/ledger"
	"github.com/lucent-erp/lucent-erp/internal/platform/httpx"
)

const requestTimeout = 5 * time.Second

// Service exposes the ledger reads required by the handler.
type Service interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	GetAccount(ctx context.Context, code string) (ledger.Account, error)
	GetLedger(ctx context.Context, accountCode string) ([]ledger.LedgerLine, error)
	TrialBalance(ctx context.Context) (ledger.TrialBalance, error)
}

// Handler serves the read-only journal endpoints.
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

type accountVM struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	CachedBalance int64  `json:"cached_balance"`
	IsActive      bool   `json:"is_active"`
}

type ledgerLineVM struct {
	EntryID       int64  `json:"entry_id"`
	Date          string `json:"date"`
	Reference     string `json:"reference"`
	TransactionID string `json:"transaction_id"`
	Debit         int64  `json:"debit"`
	Credit        int64  `json:"credit"`
	Running       int64  `json:"running_balance"`
}

type trialBalanceVM struct {
	TotalDebit  int64 `json:"total_debit"`
	TotalCredit int64 `json:"total_credit"`
	Balanced    bool  `json:"balanced"`
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	accounts, err := h.service.ListAccounts(ctx)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]accountVM, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountVM(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	code := chi.URLParam(r, "code")
	account, err := h.service.GetAccount(ctx, code)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get account", slog.String("code", code), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountVM(account))
}

func (h *Handler) handleAccountLines(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	code := chi.URLParam(r, "code")
	if _, err := h.service.GetAccount(ctx, code); err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get account", slog.String("code", code), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	lines, err := h.service.GetLedger(ctx, code)
	if err != nil {
		h.logger.Error("get ledger", slog.String("code", code), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]ledgerLineVM, 0, len(lines))
	for _, line := range lines {
		out = append(out, ledgerLineVM{
			EntryID:       line.EntryID,
			Date:          line.EntryDate.Format("2006-01-02"),
			Reference:     line.Reference,
			TransactionID: line.TransactionID,
			Debit:         line.Debit,
			Credit:        line.Credit,
			Running:       line.Running,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleTrialBalance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	tb, err := h.service.TrialBalance(ctx)
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, trialBalanceVM{
		TotalDebit:  tb.TotalDebit,
		TotalCredit: tb.TotalCredit,
		Balanced:    tb.Balanced(),
	})
}

func toAccountVM(a ledger.Account) accountVM {
	return accountVM{
		Code:          a.Code,
		Name:          a.Name,
		Type:          string(a.Type),
		CachedBalance: a.CachedBalance,
		IsActive:      a.IsActive,
	}
}
