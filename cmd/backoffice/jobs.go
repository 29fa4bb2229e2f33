package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/hibiken/asynq"

	"github.com/tradedesk/backoffice/cmd/backoffice/cli"
	"github.com/tradedesk/backoffice/internal/app"
	"github.com/tradedesk/backoffice/jobs"
)

const jobsUsage = `usage: backoffice jobs <command> [flags]

commands:
  propagate -balance ID -entry ID -vendor ID   queue a propagation retry
  reconcile [-limit N]                         queue a drift sweep now
  stats [-json]                                print default queue statistics
`

func runJobs(ctx context.Context, cfg *app.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, jobsUsage)
		return 2
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client, err := jobs.NewClient(redisOpts, cfg.PropagationMaxRetry, nil)
	if err != nil {
		fmt.Fprintf(stderr, "jobs: %v\n", err)
		return 1
	}
	defer func() { _ = client.Close() }()
	inspector := asynq.NewInspector(redisOpts)
	defer func() { _ = inspector.Close() }()
	commands := cli.NewJobsCLI(client, inspector)

	fs := flag.NewFlagSet("jobs "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	switch args[0] {
	case "propagate":
		opts := cli.PropagateOptions{Stdout: stdout, Stderr: stderr}
		fs.Int64Var(&opts.BalanceID, "balance", 0, "balance id")
		fs.Int64Var(&opts.BalanceEntryID, "entry", 0, "balance entry id")
		fs.Int64Var(&opts.VendorID, "vendor", 0, "vendor id")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return commands.PropagateCommand(ctx, opts)
	case "reconcile":
		opts := cli.ReconcileOptions{Stdout: stdout, Stderr: stderr}
		fs.IntVar(&opts.Limit, "limit", 0, "maximum settings to sweep (0 uses the job default)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return commands.ReconcileCommand(ctx, opts)
	case "stats":
		opts := cli.StatsOptions{Stdout: stdout, Stderr: stderr}
		fs.BoolVar(&opts.JSONOutput, "json", false, "print JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return commands.StatsCommand(ctx, opts)
	default:
		fmt.Fprint(stderr, jobsUsage)
		return 2
	}
}
