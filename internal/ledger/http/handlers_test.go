package ledgerhttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/lucent-erp/lucent-erp/internal/ledger"
)

type stubLedgerService struct {
	accounts map[string]ledger.Account
	lines    map[string][]ledger.LedgerLine
	tb       ledger.TrialBalance
}

func (s *stubLedgerService) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	var out []ledger.Account
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (s *stubLedgerService) GetAccount(ctx context.Context, code string) (ledger.Account, error) {
	a, ok := s.accounts[code]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return a, nil
}

func (s *stubLedgerService) GetLedger(ctx context.Context, accountCode string) ([]ledger.LedgerLine, error) {
	return s.lines[accountCode], nil
}

func (s *stubLedgerService) TrialBalance(ctx context.Context) (ledger.TrialBalance, error) {
	return s.tb, nil
}

func newLedgerRouter(svc Service) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	NewHandler(logger, svc).MountRoutes(r)
	return r
}

func TestHandleAccountLines(t *testing.T) {
	svc := &stubLedgerService{
		accounts: map[string]ledger.Account{
			"1400": {Code: "1400", Name: "Inventory", Type: ledger.AccountTypeAsset, CachedBalance: 50_000, IsActive: true},
		},
		lines: map[string][]ledger.LedgerLine{
			"1400": {
				{EntryID: 1, EntryDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), Reference: "GRN-1001", TransactionID: "grn-1001", Debit: 50_000, Running: 50_000},
			},
		},
	}
	router := newLedgerRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ledger/accounts/1400/lines", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body []ledgerLineVM
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.Equal(t, "2026-03-14", body[0].Date)
	require.Equal(t, int64(50_000), body[0].Running)
}

func TestHandleAccountLinesUnknownAccount(t *testing.T) {
	router := newLedgerRouter(&stubLedgerService{accounts: map[string]ledger.Account{}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ledger/accounts/4040/lines", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleTrialBalance(t *testing.T) {
	router := newLedgerRouter(&stubLedgerService{tb: ledger.TrialBalance{TotalDebit: 100, TotalCredit: 100}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ledger/trial-balance", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body trialBalanceVM
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Balanced)
}
