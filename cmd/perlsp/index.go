package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/dcache"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/observ"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/project"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/ui"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/workspace"
)

var indexCmd = &cobra.Command{
	Use:   "index [flags] [directory]",
	Short: "Scan and index a Perl workspace",
	Long:  `Index walks a workspace, parses and analyzes every Perl file, and fills the symbol index and the disk cache`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().Bool("no-ui", false, "plain text output instead of the progress view")
	indexCmd.Flags().Bool("no-cache", false, "skip the disk cache for this scan")
	indexCmd.Flags().Bool("drop-cache", false, "discard the disk cache before scanning")
}

func runIndex(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	noUI, _ := cmd.Flags().GetBool("no-ui")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	dropCache, _ := cmd.Flags().GetBool("drop-cache")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	timings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	jobs, _ := cmd.Root().PersistentFlags().GetInt("jobs")

	timer := observ.NewTimer()

	discover := timer.Begin("discover")
	cfg, root, err := project.Discover(dir)
	if err != nil {
		return fmt.Errorf("workspace discovery failed: %w", err)
	}
	timer.End(discover, root)

	ws := workspace.New(nil, nil)
	ws.SetIgnore(cfg.Ignored)

	if cfg.Cache && !noCache {
		cache, err := dcache.Open("perlsp")
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: disk cache unavailable: %v\n", err)
		} else {
			if dropCache {
				if err := cache.DropAll(); err != nil {
					fmt.Fprintf(os.Stderr, "warning: failed to drop cache: %v\n", err)
				}
			}
			ws.SetCache(cache, cfg.Digest())
		}
	}

	files, err := workspace.ListPerlFiles(root, cfg.Ignored)
	if err != nil {
		return fmt.Errorf("workspace walk failed: %w", err)
	}

	scan := timer.Begin("scan+index")
	var report workspace.ScanReport
	if !noUI && isTerminal(os.Stdout) && len(files) > 0 {
		report, err = runScanWithUI(cmd.Context(), ws, root, files, jobs)
	} else {
		report, err = ws.IndexAll(cmd.Context(), root, jobs)
	}
	timer.End(scan, fmt.Sprintf("%d files", report.Indexed))
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	if !quiet {
		fmt.Fprintf(os.Stdout, "indexed %d files (%d from cache)\n", report.Indexed, report.FromCache)
		for _, path := range report.Failed {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			fmt.Fprintf(os.Stdout, "failed: %s\n", rel)
		}
	}
	if timings {
		fmt.Fprint(os.Stderr, timer.Summary())
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d files failed to index", len(report.Failed))
	}
	return nil
}

type scanOutcome struct {
	report workspace.ScanReport
	err    error
}

func runScanWithUI(ctx context.Context, ws *workspace.Workspace, root string, files []string, jobs int) (workspace.ScanReport, error) {
	events := make(chan workspace.ScanEvent, 256)
	outcomeCh := make(chan scanOutcome, 1)

	ws.SetProgress(func(ev workspace.ScanEvent) { events <- ev })
	go func() {
		report, err := ws.IndexAll(ctx, root, jobs)
		outcomeCh <- scanOutcome{report: report, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(fmt.Sprintf("indexing %s", root), files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
