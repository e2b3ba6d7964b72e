package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pyscope/internal/analyzer"
	"pyscope/internal/astcache"
	"pyscope/internal/diagfmt"
	"pyscope/internal/driver"
	"pyscope/internal/observ"
	"pyscope/internal/project"
	"pyscope/internal/trace"
	"pyscope/internal/ui"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <file.py|directory>",
	Short: "Run whole-program type inference over a source tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().Bool("debug", false, "verbose trace output on stderr")
	analyzeCmd.Flags().Int("jobs", 0, "max parallel workers for cache warm-up (0=auto)")
	analyzeCmd.Flags().Bool("no-ui", false, "disable the interactive progress display")
	analyzeCmd.Flags().Bool("no-cache", false, "disable the on-disk AST cache")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	rootPath := args[0]

	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	colorMode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return fmt.Errorf("failed to get debug flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	noUI, err := cmd.Flags().GetBool("no-ui")
	if err != nil {
		return fmt.Errorf("failed to get no-ui flag: %w", err)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	timer := observ.NewTimer()

	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", rootPath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to stat %q: %w", abs, err)
	}
	startDir := abs
	if !info.IsDir() {
		startDir = filepath.Dir(abs)
	}

	opts, err := project.ResolveOptions(startDir, map[string]any{
		"quiet": quiet,
		"debug": debug,
	})
	if err != nil {
		return err
	}

	var cache *astcache.Cache
	if !noCache {
		// a cache directory we cannot create is fatal
		cache, err = astcache.Open(analyzer.Product)
		if err != nil {
			return err
		}
	}

	var tracer trace.Tracer = trace.Nop{}
	if opts.Debug {
		tracer = trace.NewStream(os.Stderr, trace.LevelDebug)
	}

	var files []string
	if info.IsDir() {
		files, err = analyzer.DiscoverFiles(abs)
		if err != nil {
			return err
		}
		warmPhase := timer.Begin("warm")
		if err := driver.WarmCache(context.Background(), files, cache, jobs); err != nil {
			return err
		}
		timer.End(warmPhase, fmt.Sprintf("%d files", len(files)))
	} else {
		files = []string{abs}
	}

	a := analyzer.New(opts, astcache.NewSource(cache), cache, tracer)
	defer func() { _ = a.Close() }()

	analyzePhase := timer.Begin("analyze")
	withUI := !noUI && !opts.Quiet && isTerminal(os.Stdout)
	if withUI {
		if err := runWithProgress(a, abs, len(files)); err != nil {
			return err
		}
	} else {
		if err := a.Analyze(abs); err != nil {
			return err
		}
	}
	timer.End(analyzePhase, "")
	finishPhase := timer.Begin("finish")
	a.Finish()
	timer.End(finishPhase, "")
	if showTimings {
		fmt.Fprint(os.Stderr, timer.Summary())
	}

	hasErrors := false
	pretty := diagfmt.PrettyOpts{Color: useColor(colorMode)}
	for _, path := range append(a.LoadedFiles(), a.FailedToParse()...) {
		items := a.DiagnosticsForFile(path)
		if len(items) == 0 {
			continue
		}
		hasErrors = true
		diagfmt.Pretty(os.Stderr, items, pretty)
	}
	if hasErrors {
		_ = a.Close()
		os.Exit(1)
	}
	return nil
}

// runWithProgress runs the analysis in a goroutine while the terminal
// renders its event stream.
func runWithProgress(a *analyzer.Analyzer, root string, total int) error {
	events := make(chan analyzer.Event, 64)
	a.SetNotify(func(ev analyzer.Event) { events <- ev })

	errc := make(chan error, 1)
	go func() {
		errc <- a.Analyze(root)
		close(events)
	}()

	model := ui.NewProgressModel("analyzing "+root, total, events)
	_, uiErr := tea.NewProgram(model).Run()
	// keep draining so the analysis goroutine never blocks on a send
	go func() {
		for range events {
		}
	}()
	if err := <-errc; err != nil {
		return err
	}
	return uiErr
}
