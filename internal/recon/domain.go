package recon

import (
	"fmt"
	"time"
)

// Discrepancy records one account whose cached balance drifted from the
// sum of its ledger lines.
type Discrepancy struct {
	AccountCode string `json:"account_code"`
	Cached      int64  `json:"cached"`
	Computed    int64  `json:"computed"`
	Delta       int64  `json:"delta"`
}

// ValuationDrift records one item classification whose layer valuation
// disagrees with the GL asset account representing it.
type ValuationDrift struct {
	Classification string `json:"classification"`
	AccountCode    string `json:"account_code"`
	LayerValue     int64  `json:"layer_value"`
	GLBalance      int64  `json:"gl_balance"`
	Delta          int64  `json:"delta"`
}

// Report aggregates one reconciliation run.
type Report struct {
	RanAt           time.Time        `json:"ran_at"`
	Discrepancies   []Discrepancy    `json:"discrepancies"`
	ValuationDrifts []ValuationDrift `json:"valuation_drifts"`
}

// Clean reports whether the run found no drift at all.
func (r Report) Clean() bool {
	return len(r.Discrepancies) == 0 && len(r.ValuationDrifts) == 0
}

// DriftError is the non-fatal signal that a run found drift. Callers log
// it, record the report, and optionally apply corrections; the run itself
// succeeded.
type DriftError struct {
	Report Report
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("recon: drift detected in %d accounts and %d classifications",
		len(e.Report.Discrepancies), len(e.Report.ValuationDrifts))
}
