package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/tradedesk/backoffice/internal/trading"
	"github.com/tradedesk/backoffice/jobs"
)

type stubEnqueuer struct {
	keys   []trading.VendorKey
	limits []int
	err    error
}

func (s *stubEnqueuer) EnqueuePropagation(ctx context.Context, key trading.VendorKey) error {
	s.keys = append(s.keys, key)
	return s.err
}

func (s *stubEnqueuer) EnqueueReconcile(ctx context.Context, limit int) (string, error) {
	s.limits = append(s.limits, limit)
	if s.err != nil {
		return "", s.err
	}
	return "task-1", nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestPropagateCommand(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	cli := NewJobsCLI(enqueuer, nil)
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	code := cli.PropagateCommand(context.Background(), PropagateOptions{
		BalanceID: 1, BalanceEntryID: 2, VendorID: 3, Stdout: stdout, Stderr: stderr,
	})
	require.Equal(t, 0, code, stderr.String())
	key := trading.VendorKey{BalanceID: 1, BalanceEntryID: 2, VendorID: 3}
	require.Equal(t, []trading.VendorKey{key}, enqueuer.keys)
	require.Contains(t, stdout.String(), jobs.PropagateTaskID(key))
}

func TestPropagateCommandRequiresKey(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	stderr := new(bytes.Buffer)

	code := NewJobsCLI(enqueuer, nil).PropagateCommand(context.Background(), PropagateOptions{BalanceID: 1, Stderr: stderr})
	require.Equal(t, 2, code)
	require.Empty(t, enqueuer.keys)
	require.Contains(t, stderr.String(), "required")
}

func TestPropagateCommandReportsEnqueueFailure(t *testing.T) {
	stderr := new(bytes.Buffer)
	cli := NewJobsCLI(&stubEnqueuer{err: errors.New("redis down")}, nil)

	code := cli.PropagateCommand(context.Background(), PropagateOptions{BalanceID: 1, BalanceEntryID: 1, VendorID: 1, Stderr: stderr})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "redis down")
}

func TestReconcileCommand(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	stdout := new(bytes.Buffer)

	require.Equal(t, 0, NewJobsCLI(enqueuer, nil).ReconcileCommand(context.Background(), ReconcileOptions{Limit: 25, Stdout: stdout}))
	require.Equal(t, []int{25}, enqueuer.limits)
	require.Contains(t, stdout.String(), "task-1")

	require.Equal(t, 2, NewJobsCLI(enqueuer, nil).ReconcileCommand(context.Background(), ReconcileOptions{Limit: -1}))
}

func TestStatsCommandJSON(t *testing.T) {
	inspector := stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Retry: 2, Archived: 1}}
	stdout := new(bytes.Buffer)

	code := NewJobsCLI(nil, inspector).StatsCommand(context.Background(), StatsOptions{JSONOutput: true, Stdout: stdout})
	require.Equal(t, 0, code)
	var stats QueueStats
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &stats))
	require.Equal(t, QueueStats{Queue: "default", Pending: 3, Retry: 2, Archived: 1}, stats)
}

func TestStatsCommandText(t *testing.T) {
	stdout := new(bytes.Buffer)
	code := NewJobsCLI(nil, stubInspector{info: &asynq.QueueInfo{Pending: 4}}).StatsCommand(context.Background(), StatsOptions{Stdout: stdout})
	require.Equal(t, 0, code)
	require.Equal(t, "queue=default pending=4 active=0 scheduled=0 retry=0 archived=0\n", stdout.String())
}

func TestStatsCommandWithoutInspector(t *testing.T) {
	stderr := new(bytes.Buffer)
	require.Equal(t, 1, NewJobsCLI(nil, nil).StatsCommand(context.Background(), StatsOptions{Stderr: stderr}))
	require.Contains(t, stderr.String(), "inspector not configured")

	require.Equal(t, 1, NewJobsCLI(nil, stubInspector{err: errors.New("boom")}).StatsCommand(context.Background(), StatsOptions{Stderr: stderr}))
}
