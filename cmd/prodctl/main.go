// Command prodctl runs production maintenance tasks against the live stores.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/maisoncleo/atelier-tracker/internal/app"
	"github.com/maisoncleo/atelier-tracker/internal/config"
	"github.com/maisoncleo/atelier-tracker/internal/jobs"
	"github.com/maisoncleo/atelier-tracker/internal/logging"
)

func main() {
	if err := newCLI(os.Stdout, nil).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "prodctl:", err)
		os.Exit(1)
	}
}

// newCLI builds the command tree. A nil open connects to the configured backends.
func newCLI(out io.Writer, open func(ctx context.Context) (*app.App, error)) *cli.App {
	if open == nil {
		open = func(ctx context.Context) (*app.App, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			return app.Build(ctx, cfg, logging.New(cfg.LogLevel))
		}
	}

	// withApp opens the services for one command and closes them afterwards.
	withApp := func(fn func(c *cli.Context, a *app.App) (any, error)) cli.ActionFunc {
		return func(c *cli.Context) error {
			a, err := open(c.Context)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := fn(c, a)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
	}

	runJob := func(jobType string) cli.ActionFunc {
		return withApp(func(c *cli.Context, a *app.App) (any, error) {
			return a.Runner.Run(c.Context, jobs.Message{
				JobType:        jobType,
				IdempotencyKey: "prodctl",
				Since:          c.String("since"),
			})
		})
	}

	return &cli.App{
		Name:      "prodctl",
		Usage:     "operate the atelier production tracker",
		Writer:    out,
		ErrWriter: os.Stderr,
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "pull orders from the shop now",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "since", Usage: "YYYY-MM-DD, defaults to the newest stored order"}},
				Action: runJob(jobs.TypeSync),
			},
			{
				Name:   "sweep",
				Usage:  "dispatch every item still lacking a production status",
				Action: runJob(jobs.TypeSweep),
			},
			{
				Name:   "reconcile",
				Usage:  "repair assignments against production statuses",
				Action: runJob(jobs.TypeReconcile),
			},
			{
				Name:  "reset",
				Usage: "move every item back to a_faire and drop all assignments",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "yes", Usage: "confirm the reset"}},
				Action: withApp(func(c *cli.Context, a *app.App) (any, error) {
					if !c.Bool("yes") {
						return nil, errors.New("reset touches every item, rerun with --yes")
					}
					return a.Reconciler.ResetAll(c.Context)
				}),
			},
			{
				Name:  "deadline",
				Usage: "print the deadline configuration and today's cutoff",
				Action: withApp(func(c *cli.Context, a *app.App) (any, error) {
					return a.Deadlines.Get(c.Context)
				}),
			},
			{
				Name:  "enqueue",
				Usage: "queue a job for the worker",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Required: true, Usage: "sync, reconcile or sweep"},
					&cli.StringFlag{Name: "key", Usage: "idempotency key, generated when empty"},
					&cli.StringFlag{Name: "since", Usage: "YYYY-MM-DD, sync only"},
				},
				Action: withApp(func(c *cli.Context, a *app.App) (any, error) {
					if a.Enqueuer == nil {
						return nil, errors.New("SYNC_QUEUE_URL is not set")
					}
					rec, _, err := a.Enqueuer.Enqueue(c.Context, jobs.Message{
						JobType:        c.String("type"),
						IdempotencyKey: c.String("key"),
						Since:          c.String("since"),
					})
					return rec, err
				}),
			},
			{
				Name:  "job",
				Usage: "show a queued job",
				Flags: []cli.Flag{&cli.StringFlag{Name: "key", Required: true}},
				Action: withApp(func(c *cli.Context, a *app.App) (any, error) {
					rec, err := a.Ledger.Get(c.Context, c.String("key"))
					if err == nil && rec == nil {
						err = fmt.Errorf("no job %q", c.String("key"))
					}
					return rec, err
				}),
			},
		},
	}
}
