package recon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lucent-erp/lucent-erp/internal/ledger"
	"github.com/lucent-erp/lucent-erp/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig groups reconciliation settings.
type ServiceConfig struct {
	// SuspenseAccount carries the marker entry posted for each applied
	// correction.
	SuspenseAccount string
}

// Service independently recomputes ledger and layer truth and reports or
// corrects drift against the cached values.
type Service struct {
	repo   Repository
	ledger ledger.Repository
	cache  *Cache
	audit  AuditPort
	logger *slog.Logger
	cfg    ServiceConfig
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, ledgerRepo ledger.Repository, cache *Cache, audit AuditPort, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, ledger: ledgerRepo, cache: cache, audit: audit, logger: logger, cfg: cfg, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RecomputeAccountBalances sums every account's lines directly from the
// ledger and compares against the cached balance, one discrepancy per
// mismatched account.
func (s *Service) RecomputeAccountBalances(ctx context.Context) ([]Discrepancy, error) {
	sums, err := s.repo.ListAccountSums(ctx)
	if err != nil {
		return nil, err
	}
	var out []Discrepancy
	for _, sum := range sums {
		if sum.Cached == sum.Computed {
			continue
		}
		out = append(out, Discrepancy{
			AccountCode: sum.AccountCode,
			Cached:      sum.Cached,
			Computed:    sum.Computed,
			Delta:       sum.Cached - sum.Computed,
		})
	}
	return out, nil
}

// RecomputeInventoryValuation values every classification's open layers at
// remaining x (unit cost + landed adjustment) and compares against the GL
// asset account expected to represent it.
func (s *Service) RecomputeInventoryValuation(ctx context.Context) ([]ValuationDrift, error) {
	rows, err := s.repo.ListValuationRows(ctx)
	if err != nil {
		return nil, err
	}
	var out []ValuationDrift
	for _, row := range rows {
		if row.LayerValue == row.GLBalance {
			continue
		}
		out = append(out, ValuationDrift{
			Classification: row.Classification,
			AccountCode:    row.AccountCode,
			LayerValue:     row.LayerValue,
			GLBalance:      row.GLBalance,
			Delta:          row.LayerValue - row.GLBalance,
		})
	}
	return out, nil
}

// Run executes both recomputations concurrently and caches the report.
func (s *Service) Run(ctx context.Context) (Report, error) {
	report := Report{RanAt: s.now()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		discrepancies, err := s.RecomputeAccountBalances(gctx)
		if err != nil {
			return err
		}
		report.Discrepancies = discrepancies
		return nil
	})
	g.Go(func() error {
		drifts, err := s.RecomputeInventoryValuation(gctx)
		if err != nil {
			return err
		}
		report.ValuationDrifts = drifts
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if !report.Clean() {
		s.logger.Warn("reconciliation drift detected",
			slog.Int("accounts", len(report.Discrepancies)),
			slog.Int("classifications", len(report.ValuationDrifts)))
	}
	if s.cache != nil {
		if err := s.cache.StoreReport(ctx, report); err != nil {
			s.logger.Warn("cache reconciliation report", slog.Any("error", err))
		}
	}
	return report, nil
}

// Verify runs a reconciliation and surfaces drift as a DriftError.
func (s *Service) Verify(ctx context.Context) error {
	report, err := s.Run(ctx)
	if err != nil {
		return err
	}
	if !report.Clean() {
		return &DriftError{Report: report}
	}
	return nil
}

// ApplyCorrections resynchronises each flagged account's cached balance
// with the recomputed ledger truth. Every correction rides inside a posting
// transaction carrying a marker entry on the suspense account; cached
// balances are never overwritten outside a posting.
func (s *Service) ApplyCorrections(ctx context.Context, report Report) error {
	if s.cfg.SuspenseAccount == "" {
		return fmt.Errorf("recon: suspense account not configured")
	}
	for _, d := range report.Discrepancies {
		amount := d.Delta
		if amount < 0 {
			amount = -amount
		}
		posting := ledger.PostingInput{
			Date:          s.now(),
			Reference:     fmt.Sprintf("Reconciliation correction for %s (delta %d)", d.AccountCode, d.Delta),
			TransactionID: fmt.Sprintf("recon-%s-%d", d.AccountCode, s.now().UnixNano()),
			Lines: []ledger.PostingLineInput{
				{AccountCode: s.cfg.SuspenseAccount, Debit: amount},
				{AccountCode: s.cfg.SuspenseAccount, Credit: amount},
			},
		}
		if err := posting.Validate(); err != nil {
			return err
		}
		err := s.ledger.WithTx(ctx, func(ctx context.Context, tx ledger.TxRepository) error {
			entry, err := tx.InsertEntry(ctx, posting)
			if err != nil {
				return err
			}
			if err := tx.InsertLines(ctx, entry.ID, posting.Lines); err != nil {
				return err
			}
			corrected, err := tx.RecomputeAccountBalance(ctx, d.AccountCode)
			if err != nil {
				return err
			}
			if _, err := tx.RecomputeAccountBalance(ctx, s.cfg.SuspenseAccount); err != nil {
				return err
			}
			s.logger.Info("reconciliation correction applied",
				slog.String("account", d.AccountCode),
				slog.Int64("was", d.Cached),
				slog.Int64("now", corrected))
			return nil
		})
		if err != nil {
			return err
		}
		if s.audit != nil {
			_ = s.audit.Record(ctx, shared.AuditLog{
				Action:   "recon.correct",
				Entity:   "account",
				EntityID: d.AccountCode,
				Meta:     map[string]any{"cached": d.Cached, "computed": d.Computed, "delta": d.Delta},
				At:       s.now(),
			})
		}
	}
	return nil
}

// LatestReport returns the most recent cached run when present.
func (s *Service) LatestReport(ctx context.Context) (Report, bool, error) {
	if s.cache == nil {
		return Report{}, false, nil
	}
	return s.cache.LatestReport(ctx)
}
