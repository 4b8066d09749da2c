package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/boardseed/bootstrap"
	"github.com/c360studio/boardseed/config"
	"github.com/c360studio/boardseed/desired"
	"github.com/c360studio/boardseed/journal"
	"github.com/c360studio/boardseed/metrics"
	"github.com/c360studio/boardseed/tools/git"
	"github.com/c360studio/boardseed/tools/github"
	"github.com/c360studio/boardseed/tracker"
)

// options holds command-line values. Empty strings mean "not set" so that
// configuration files are only overridden by flags actually given.
type options struct {
	configPath string
	logLevel   string
	manifest   string
	sprint     string
	journal    string

	owner           string
	repo            string
	title           string
	workspace       string
	metricsTextfile string
	strict          bool
	format          string

	limit int
	runID string
}

// app wires configuration, the gh adapter and the bootstrap runner.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// workDir and homeDir override config discovery when set.
	workDir string
	homeDir string

	newAdapter         func(cfg *config.Config, logger *slog.Logger) tracker.Adapter
	checkPrerequisites func(binary, tokenEnv string) error
	newRunID           func() string

	opts options
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		newAdapter: func(cfg *config.Config, logger *slog.Logger) tracker.Adapter {
			return github.NewClient(cfg.Workspace.Path).
				WithBinary(cfg.GitHub.Binary).
				WithLogger(logger)
		},
		checkPrerequisites: github.CheckPrerequisites,
		newRunID:           uuid.NewString,
	}
}

func (a *app) runBootstrap(ctx context.Context) error {
	logger := a.logger()

	if a.opts.format != "text" && a.opts.format != "json" {
		return fmt.Errorf("unknown output format %q (want text or json)", a.opts.format)
	}

	cfg, err := a.loadConfig(logger)
	if err != nil {
		return err
	}
	state, err := a.loadState(cfg)
	if err != nil {
		return err
	}
	if err := state.Validate(); err != nil {
		return err
	}

	// Nothing below this point may run without the CLI and a credential.
	if err := a.checkPrerequisites(cfg.GitHub.Binary, cfg.GitHub.TokenEnv); err != nil {
		return err
	}

	owner, repo, err := git.NewResolver(cfg.Workspace.Path).Resolve(ctx, cfg.Board.Owner, cfg.Board.Repo)
	if err != nil {
		return err
	}

	runID := a.newRunID()
	logger.Info("Starting bootstrap",
		"run_id", runID,
		"owner", owner,
		"repo", repo,
		"title", cfg.Board.Title,
		"fields", len(state.Fields),
		"items", len(state.Items))

	runner := bootstrap.New(a.newAdapter(cfg, logger)).WithLogger(logger)

	if cfg.Journal.Path != "" {
		store, err := openJournal(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		runner.WithJournal(store)
	}
	if cfg.Metrics.Textfile != "" {
		runner.WithMetrics(metrics.New(), cfg.Metrics.Textfile)
	}

	rep, err := runner.Run(ctx, bootstrap.Options{
		RunID:  runID,
		Owner:  owner,
		Repo:   repo,
		Title:  cfg.Board.Title,
		State:  state,
		Strict: cfg.Fields.Strict,
	})
	if err != nil {
		return err
	}
	return rep.Write(a.stdout, a.opts.format)
}

func (a *app) runManifest() error {
	cfg, err := a.loadConfig(a.logger())
	if err != nil {
		return err
	}
	state, err := a.loadState(cfg)
	if err != nil {
		return err
	}
	if err := state.Validate(); err != nil {
		return err
	}
	data, err := state.Marshal()
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(data)
	return err
}

func (a *app) runHistory(ctx context.Context) error {
	cfg, err := a.loadConfig(a.logger())
	if err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return fmt.Errorf("no journal configured (set journal.path or --journal)")
	}
	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	if a.opts.runID != "" {
		items, err := store.Items(ctx, a.opts.runID)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "SEQ\tTITLE\tURL")
		for _, it := range items {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", it.Seq, it.Title, it.URL)
		}
		return tw.Flush()
	}

	runs, err := store.Runs(ctx, a.opts.limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tREPO\tBOARD\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s/%s\t%s\t%s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Status,
			r.Owner, r.Repo,
			dash(r.BoardURL),
			dash(singleLineString(r.Error)))
	}
	return tw.Flush()
}

// loadConfig layers config files, then flags, and loads .env into the
// environment.
func (a *app) loadConfig(logger *slog.Logger) (*config.Config, error) {
	loader := config.NewLoader(logger)
	if a.workDir != "" {
		loader.WithDirs(a.workDir, a.homeDir)
	}
	if err := loader.LoadEnv(); err != nil {
		return nil, err
	}

	cfg, err := loader.Load(a.opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Merge(a.flagConfig())
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (a *app) flagConfig() *config.Config {
	return &config.Config{
		Board: config.BoardConfig{
			Owner:  a.opts.owner,
			Repo:   a.opts.repo,
			Title:  a.opts.title,
			Sprint: a.opts.sprint,
		},
		Manifest:  a.opts.manifest,
		Workspace: config.WorkspaceConfig{Path: a.opts.workspace},
		Journal:   config.JournalConfig{Path: a.opts.journal},
		Metrics:   config.MetricsConfig{Textfile: a.opts.metricsTextfile},
		Fields:    config.FieldsConfig{Strict: a.opts.strict},
	}
}

// loadState returns the manifest's state, or the built-in board when no
// manifest is configured. A manifest declaring the sprint field gets the
// configured sprint as its default unless it sets its own; --sprint always
// wins.
func (a *app) loadState(cfg *config.Config) (desired.State, error) {
	if cfg.Manifest == "" {
		return desired.Default(cfg.Board.Sprint), nil
	}
	state, err := desired.LoadManifests(cfg.Manifest)
	if err != nil {
		return desired.State{}, err
	}
	if _, ok := state.Field(desired.SprintField); ok {
		if _, set := state.Defaults[desired.SprintField]; !set || a.opts.sprint != "" {
			state.SetDefault(desired.SprintField, cfg.Board.Sprint)
		}
	}
	return state, nil
}

func (a *app) logger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(a.opts.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func openJournal(path string) (*journal.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	return journal.Open(path)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func singleLineString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
