// Package main provides the boardseed binary entry point.
// Boardseed creates a GitHub project board, brings its custom fields up to a
// desired state and seeds it with an initial set of issues.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "boardseed"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(os.Stdout, os.Stderr).rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", singleLine(err))
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Bootstrap a GitHub project board",
		Long: `Boardseed creates a GitHub project board, ensures it carries the
required custom fields and seeds it with work items.

Without --manifest the built-in risk hot-path board is used. Owner and
repository default to the origin remote of the current checkout.

On success the board URL is printed, followed by one URL per created issue.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBootstrap(cmd.Context())
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.opts.configPath, "config", "c", "", "Config file path (YAML)")
	pf.StringVar(&a.opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.opts.manifest, "manifest", "", "Desired-state manifest file or glob (YAML, JSON or TOML)")
	pf.StringVar(&a.opts.sprint, "sprint", "", "Sprint label applied to every item (default \"Sprint 1\")")
	pf.StringVar(&a.opts.journal, "journal", "", "SQLite run journal path")

	f := cmd.Flags()
	f.StringVar(&a.opts.owner, "owner", "", "Board owner (default: from the origin remote)")
	f.StringVar(&a.opts.repo, "repo", "", "Repository for new issues (default: from the origin remote)")
	f.StringVar(&a.opts.title, "project-title", "", "Board title (default \"risk_hotpath_hft\")")
	f.StringVar(&a.opts.workspace, "workspace", "", "Checkout whose origin remote supplies owner/repo")
	f.StringVar(&a.opts.metricsTextfile, "metrics-textfile", "", "Write adapter metrics to this file at the end of the run")
	f.BoolVar(&a.opts.strict, "strict-fields", false, "Fail when an existing field conflicts with the desired fields")
	f.StringVarP(&a.opts.format, "format", "o", "text", "Output format (text, json)")

	cmd.AddCommand(a.versionCmd(), a.manifestCmd(), a.historyCmd())
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

func (a *app) manifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Print the effective desired state as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runManifest()
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List bootstrap runs recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistory(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&a.opts.limit, "limit", 20, "Maximum runs to list (0 for all)")
	cmd.Flags().StringVar(&a.opts.runID, "run", "", "Show the items created by this run")
	return cmd
}

// singleLine folds a multi-line error message onto one line.
func singleLine(err error) string {
	var parts []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "; ")
}
