// Command apply-patch reads a patch in the LLM patch dialect from a file
// argument or standard input and applies it under a working directory.
//
// Exit codes: 0 on success, 1 on any parse/apply failure, 2 when no patch
// file is given and stdin is an interactive terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/marcius-llmus/apply-patch/internal/applog"
	"github.com/marcius-llmus/apply-patch/internal/config"
	"github.com/marcius-llmus/apply-patch/internal/ui"
	"github.com/marcius-llmus/apply-patch/internal/workspace"
	"github.com/marcius-llmus/apply-patch/patch"
)

// Version info set by ldflags at build time.
var (
	version    = "dev"
	commitHash = "dev"
	buildDate  = "unknown"
)

const usageText = `Usage: apply-patch [options] [patch-file]

Applies a patch in the LLM patch dialect (*** Begin Patch envelope) to the
working directory. When patch-file is omitted the patch is read from stdin.`

func main() {
	os.Exit(run())
}

func run() int {
	configPath := pflag.StringP("config", "c", "", "path to YAML config file")
	workdir := pflag.StringP("workdir", "C", "", "working directory patches are applied in (default \".\")")
	logFile := pflag.String("log", "", "log file path (empty to disable)")
	verbose := pflag.BoolP("verbose", "v", false, "log strategy-level detail")
	showVersion := pflag.Bool("version", false, "show version information and exit")
	writer := ui.NewWriter()
	pflag.Usage = func() {
		writer.Usage(usageText + "\n\nOptions:\n" + pflag.CommandLine.FlagUsages())
	}
	pflag.Parse()

	if *showVersion {
		fmt.Printf("apply-patch %s-%s (built %s)\n", version, commitHash, buildDate)
		return 0
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			writer.Error(fmt.Errorf("load config: %w", err))
			return 1
		}
		cfg = loaded
	}
	if *workdir != "" {
		cfg.Workspace.Root = *workdir
	}
	if *logFile != "" {
		cfg.Log.Path = *logFile
	}

	if pflag.NArg() > 1 {
		pflag.Usage()
		return 2
	}

	var patchText string
	if pflag.NArg() == 1 {
		data, err := os.ReadFile(pflag.Arg(0))
		if err != nil {
			writer.Error(err)
			return 1
		}
		patchText = string(data)
	} else {
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			pflag.Usage()
			return 2
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			writer.Error(err)
			return 1
		}
		patchText = string(data)
	}

	logger, err := applog.New(cfg.Log.Path, *verbose)
	if err != nil {
		writer.Error(fmt.Errorf("open log file: %w", err))
		return 1
	}
	defer logger.Sync()

	// One run at a time per working tree; there is no rollback to save a
	// tree two interleaved runs would leave behind.
	lock, err := workspace.Acquire(cfg.Workspace.Root)
	if err != nil {
		writer.Error(err)
		return 1
	}
	defer lock.Release()

	applier := patch.NewApplier(patch.ApplierOptions{
		Logger: logger,
		Matcher: &patch.FuzzyMatcher{
			MinRatio:       cfg.Fuzzy.MinRatio,
			AcceptScore:    cfg.Fuzzy.AcceptScore,
			MinCodeMatches: cfg.Fuzzy.MinCodeMatches,
		},
		DisableFuzzy: !cfg.FuzzyEnabled(),
	})

	affected, err := applier.Apply(context.Background(), patchText, cfg.Workspace.Root)
	if err != nil {
		writer.Error(err)
		return 1
	}

	writer.Summary(affected)
	return 0
}
