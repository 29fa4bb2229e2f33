package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hibiken/asynq"

	"github.com/tradedesk/backoffice/internal/trading"
	"github.com/tradedesk/backoffice/jobs"
)

// Enqueuer submits vendor setting jobs. *jobs.Client satisfies it.
type Enqueuer interface {
	EnqueuePropagation(ctx context.Context, key trading.VendorKey) error
	EnqueueReconcile(ctx context.Context, limit int) (string, error)
}

// JobsCLI wraps manual management helpers for the vendor setting jobs.
type JobsCLI struct {
	enqueuer  Enqueuer
	inspector jobs.QueueInspector
}

// NewJobsCLI wires the helpers. Either dependency may be nil when the
// command that needs it is not used.
func NewJobsCLI(enqueuer Enqueuer, inspector jobs.QueueInspector) *JobsCLI {
	return &JobsCLI{enqueuer: enqueuer, inspector: inspector}
}

// PropagateOptions selects the vendor setting to push onto its items again.
type PropagateOptions struct {
	BalanceID      int64
	BalanceEntryID int64
	VendorID       int64
	Stdout         io.Writer
	Stderr         io.Writer
}

// PropagateCommand queues a propagation retry and returns the exit code.
func (c *JobsCLI) PropagateCommand(ctx context.Context, opts PropagateOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	if c == nil || c.enqueuer == nil {
		fmt.Fprintln(stderr, "jobs: client not configured")
		return 1
	}
	key := trading.VendorKey{BalanceID: opts.BalanceID, BalanceEntryID: opts.BalanceEntryID, VendorID: opts.VendorID}
	if key.BalanceID <= 0 || key.BalanceEntryID <= 0 || key.VendorID <= 0 {
		fmt.Fprintln(stderr, "jobs: balance, entry and vendor ids are required")
		return 2
	}
	if err := c.enqueuer.EnqueuePropagation(ctx, key); err != nil {
		fmt.Fprintf(stderr, "jobs: enqueue propagation: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "queued %s task %s\n", jobs.TaskVendorSettingPropagate, jobs.PropagateTaskID(key))
	return 0
}

// ReconcileOptions bounds a manual drift sweep.
type ReconcileOptions struct {
	Limit  int
	Stdout io.Writer
	Stderr io.Writer
}

// ReconcileCommand queues a drift sweep and returns the exit code.
func (c *JobsCLI) ReconcileCommand(ctx context.Context, opts ReconcileOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	if c == nil || c.enqueuer == nil {
		fmt.Fprintln(stderr, "jobs: client not configured")
		return 1
	}
	if opts.Limit < 0 {
		fmt.Fprintln(stderr, "jobs: limit must not be negative")
		return 2
	}
	id, err := c.enqueuer.EnqueueReconcile(ctx, opts.Limit)
	if err != nil {
		fmt.Fprintf(stderr, "jobs: enqueue reconcile: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "queued %s task %s\n", jobs.TaskVendorSettingReconcile, id)
	return 0
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// StatsOptions configures the stats output.
type StatsOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// StatsCommand prints the default queue statistics.
func (c *JobsCLI) StatsCommand(ctx context.Context, opts StatsOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	stats, err := c.InspectQueue(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "jobs: inspect queue: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fmt.Fprintf(stderr, "jobs: encode stats: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	return 0
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

func writers(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return stdout, stderr
}

var _ jobs.QueueInspector = (*asynq.Inspector)(nil)
