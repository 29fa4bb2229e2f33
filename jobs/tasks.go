package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/tradedesk/backoffice/internal/trading"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskVendorSettingPropagate re-runs the letter propagation of a saved vendor setting.
	TaskVendorSettingPropagate = "vendor_settings:propagate"
)

var taskNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("backoffice/jobs"))

// VendorSettingPropagatePayload identifies the vendor setting to propagate.
type VendorSettingPropagatePayload struct {
	BalanceID      int64 `json:"balance_id"`
	BalanceEntryID int64 `json:"balance_entry_id"`
	VendorID       int64 `json:"vendor_id"`
}

// Key returns the vendor setting key carried by the payload.
func (p VendorSettingPropagatePayload) Key() trading.VendorKey {
	return trading.VendorKey{BalanceID: p.BalanceID, BalanceEntryID: p.BalanceEntryID, VendorID: p.VendorID}
}

// NewVendorSettingPropagateTask builds the retry task. Its id is derived
// from the key so a pending retry for the same setting is not queued twice.
func NewVendorSettingPropagateTask(key trading.VendorKey, maxRetry int) (*asynq.Task, error) {
	body, err := json.Marshal(VendorSettingPropagatePayload{
		BalanceID:      key.BalanceID,
		BalanceEntryID: key.BalanceEntryID,
		VendorID:       key.VendorID,
	})
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.Queue(QueueDefault), asynq.TaskID(PropagateTaskID(key))}
	if maxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(maxRetry))
	}
	return asynq.NewTask(TaskVendorSettingPropagate, body, opts...), nil
}

// PropagateTaskID is the deterministic task id for a vendor setting key.
func PropagateTaskID(key trading.VendorKey) string {
	name := fmt.Sprintf("%s/%d/%d/%d", TaskVendorSettingPropagate, key.BalanceID, key.BalanceEntryID, key.VendorID)
	return uuid.NewSHA1(taskNamespace, []byte(name)).String()
}
