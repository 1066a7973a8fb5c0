package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReconcile runs a full ledger and inventory reconciliation.
	TaskReconcile = "recon:run"
)

// ReconcilePayload configures one reconciliation run.
type ReconcilePayload struct {
	// ApplyCorrections resynchronises drifted cached balances after the
	// recomputation instead of only reporting them.
	ApplyCorrections bool `json:"apply_corrections"`
}

// NewReconcileTask constructs an Asynq task for a reconciliation run.
func NewReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcile, data), nil
}
