// Package bootstrap runs one board bootstrap: it creates the board, brings
// its fields up to the desired state and seeds the work items, collecting a
// report of everything created.
//
// Every step is sequential and the first failure ends the run. Partial work
// is never undone. The report returned alongside an error lists what was
// created before the failure.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/boardseed/desired"
	"github.com/c360studio/boardseed/metrics"
	"github.com/c360studio/boardseed/reconcile"
	"github.com/c360studio/boardseed/report"
	"github.com/c360studio/boardseed/seed"
	"github.com/c360studio/boardseed/tracker"
)

// Journal records run progress. journal.Store implements it.
type Journal interface {
	StartRun(ctx context.Context, id, owner, repo, title string) error
	SetBoard(ctx context.Context, runID, boardURL string) error
	RecordItem(ctx context.Context, runID string, seq int, title, url string) error
	FinishRun(ctx context.Context, runID string, runErr error) error
}

// Options describes one run.
type Options struct {
	RunID string
	Owner string
	Repo  string
	Title string
	State desired.State
	// Strict fails the run when an existing field conflicts with the desired state.
	Strict bool
}

// Runner executes bootstrap runs against an adapter.
type Runner struct {
	adapter  tracker.Adapter
	journal  Journal
	metrics  *metrics.Metrics
	textfile string
	logger   *slog.Logger
}

// New creates a runner over adapter.
func New(adapter tracker.Adapter) *Runner {
	return &Runner{adapter: adapter, logger: slog.Default()}
}

// WithJournal records every run in j.
func (r *Runner) WithJournal(j Journal) *Runner {
	r.journal = j
	return r
}

// WithMetrics instruments adapter calls on m. When textfile is set the
// collectors are written there at the end of every run.
func (r *Runner) WithMetrics(m *metrics.Metrics, textfile string) *Runner {
	r.metrics = m
	r.textfile = textfile
	return r
}

// WithLogger sets the logger.
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Run performs the bootstrap described by opts.
func (r *Runner) Run(ctx context.Context, opts Options) (*report.Report, error) {
	logger := r.logger.With("run_id", opts.RunID)
	rep := report.New(opts.RunID, opts.Owner, opts.Repo)

	if err := opts.State.Validate(); err != nil {
		return rep, err
	}
	if opts.Owner == "" || opts.Repo == "" {
		return rep, fmt.Errorf("owner and repo are required")
	}

	if r.journal != nil {
		if err := r.journal.StartRun(ctx, opts.RunID, opts.Owner, opts.Repo, opts.Title); err != nil {
			return rep, fmt.Errorf("journal: %w", err)
		}
	}

	err := r.run(ctx, logger, opts, rep)

	if r.journal != nil {
		// Use a fresh context so a cancelled run is still closed out.
		if jerr := r.journal.FinishRun(context.WithoutCancel(ctx), opts.RunID, err); jerr != nil {
			logger.Warn("Failed to finish journal run", "error", jerr)
		}
	}
	r.exportMetrics(logger, len(rep.Items), err)

	if err != nil {
		// The caller reports err; only the partial progress is logged here.
		logger.Debug("Bootstrap failed", "items_created", len(rep.Items))
		return rep, err
	}
	logger.Info("Bootstrap complete", "board", rep.BoardURL, "items", len(rep.Items))
	return rep, nil
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, opts Options, rep *report.Report) error {
	adapter := r.adapter
	if r.metrics != nil {
		adapter = r.metrics.Wrap(adapter)
	}

	board, err := adapter.CreateBoard(ctx, opts.Owner, opts.Title)
	if err != nil {
		return fmt.Errorf("create board: %w", err)
	}
	rep.SetBoard(board)
	logger.Info("Created board", "number", board.Number, "url", board.URL)
	if r.journal != nil {
		if err := r.journal.SetBoard(ctx, opts.RunID, board.URL); err != nil {
			logger.Warn("Failed to journal board", "error", err)
		}
	}

	lookup, err := reconcile.New(adapter, opts.Owner).
		WithStrict(opts.Strict).
		WithLogger(logger).
		Reconcile(ctx, board, opts.State.Fields)
	if err != nil {
		return err
	}

	seeder := seed.New(adapter, opts.Owner, opts.Repo).
		WithLogger(logger).
		WithObserver(func(i int, s seed.Seeded) {
			rep.Add(s.Title, s.URL)
			if r.journal == nil {
				return
			}
			if err := r.journal.RecordItem(ctx, opts.RunID, i, s.Title, s.URL); err != nil {
				logger.Warn("Failed to journal item", "title", s.Title, "error", err)
			}
		})
	_, err = seeder.Seed(ctx, board, lookup, opts.State.ResolvedItems())
	return err
}

func (r *Runner) exportMetrics(logger *slog.Logger, items int, runErr error) {
	if r.metrics == nil {
		return
	}
	r.metrics.ObserveRun(items, runErr)
	if r.textfile == "" {
		return
	}
	if err := r.metrics.WriteTextfile(r.textfile); err != nil {
		logger.Warn("Failed to write metrics", "path", r.textfile, "error", err)
	}
}
