package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/sift/internal/output"
	"github.com/panbanda/sift/internal/progress"
	"github.com/panbanda/sift/internal/remote"
	"github.com/panbanda/sift/internal/scanner"
	"github.com/panbanda/sift/pkg/analyzer/similarity"
	"github.com/panbanda/sift/pkg/config"
	"github.com/panbanda/sift/pkg/source"
)

// compareFlags are shared by compare and watch.
func compareFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json, markdown, toon, yaml (default from config: text)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to file",
		},
		&cli.IntFlag{
			Name:    "kmer-length",
			Aliases: []string{"k"},
			Usage:   "Tokens hashed into one fingerprint (default 23)",
		},
		&cli.IntFlag{
			Name:    "window-size",
			Aliases: []string{"w"},
			Usage:   "Consecutive k-mers per winnowing window (default 17)",
		},
		&cli.StringFlag{
			Name:    "language",
			Aliases: []string{"l"},
			Usage:   "Language of all files, char for plain text, or auto to detect per file",
		},
		&cli.Float64Flag{
			Name:    "min-similarity",
			Aliases: []string{"m"},
			Usage:   "Only report pairs at or above this similarity (0.0-1.0)",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"L"},
			Usage:   "Report only the N most similar pairs (0 = all)",
		},
		&cli.Float64Flag{
			Name:  "max-hash-percentage",
			Usage: "Ignore fingerprints present in more than this fraction of the files",
		},
		&cli.IntFlag{
			Name:  "max-hash-count",
			Usage: "Ignore fingerprints present in more than N files",
		},
		&cli.IntFlag{
			Name:  "gap-tolerance",
			Usage: "Largest fingerprint gap that still continues a matching block (default 1)",
		},
		&cli.IntFlag{
			Name:  "min-block-length",
			Usage: "Drop matching blocks with fewer fingerprints (default 1)",
		},
		&cli.Float64Flag{
			Name:  "cluster-threshold",
			Usage: "Similarity that groups two files into a cluster, 0 disables clustering (default 0.75)",
		},
		&cli.StringSliceFlag{
			Name:    "ignore",
			Aliases: []string{"i"},
			Usage:   "Template file whose code never counts as a match (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Gitignore-style pattern of paths to skip (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "no-gitignore",
			Usage: "Do not skip files matched by .gitignore",
		},
		&cli.BoolFlag{
			Name:    "blocks",
			Aliases: []string{"b"},
			Usage:   "List the matching blocks of every reported pair",
		},
		&cli.BoolFlag{
			Name:  "reject-syntax-errors",
			Usage: "Skip files whose syntax tree contains errors",
		},
		&cli.BoolFlag{
			Name:  "fail-on-parse-error",
			Usage: "Abort on the first file that cannot be parsed instead of skipping it",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Maximum parallel workers (default 2x CPUs)",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
	}
}

func compareCmd() *cli.Command {
	flags := append(compareFlags(),
		&cli.Float64Flag{
			Name:  "fail-above",
			Usage: "Exit with an error when any pair reaches this similarity (for CI)",
		},
		&cli.BoolFlag{
			Name:  "full-clone",
			Usage: "Clone remote repositories with full history instead of the tip only",
		},
	)
	return &cli.Command{
		Name:      "compare",
		Aliases:   []string{"cmp"},
		Usage:     "Compare files pairwise for structural similarity",
		ArgsUsage: "[path...]",
		Description: `Compares every pair of files of the same language. Directories are searched
recursively; files named explicitly are always compared. A path that does not
exist locally but looks like a repository (owner/repo, github.com/owner/repo,
a git URL, optionally with @ref) is cloned to a temporary directory first.

Examples:
  sift compare submissions/
  sift compare -l python -m 0.5 --blocks a.py b.py c.py
  sift compare -f json -o report.json -i template.js src/
  sift compare ./mine owner/theirs@v1.2.0`,
		Flags:  flags,
		Action: runCompareCmd,
	}
}

// loadConfig reads the file given by --config or the first config file
// found in the working directory. It returns the file used, if any.
func loadConfig(c *cli.Context) (*config.Config, string, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	for _, name := range config.ConfigNames {
		if _, err := os.Stat(name); err == nil {
			cfg, err := config.Load(name)
			return cfg, name, err
		}
	}
	return config.DefaultConfig(), "", nil
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(c *cli.Context, cfg *config.Config) {
	sim := &cfg.Similarity
	if c.IsSet("kmer-length") {
		sim.KmerLength = c.Int("kmer-length")
	}
	if c.IsSet("window-size") {
		sim.WindowSize = c.Int("window-size")
	}
	if c.IsSet("language") {
		sim.Language = c.String("language")
	}
	if c.IsSet("min-similarity") {
		sim.MinSimilarity = c.Float64("min-similarity")
	}
	if c.IsSet("limit") {
		sim.Limit = c.Int("limit")
	}
	if c.IsSet("max-hash-percentage") {
		sim.MaxHashPercentage = c.Float64("max-hash-percentage")
	}
	if c.IsSet("max-hash-count") {
		sim.MaxHashCount = c.Int("max-hash-count")
	}
	if c.IsSet("gap-tolerance") {
		sim.GapTolerance = c.Int("gap-tolerance")
	}
	if c.IsSet("min-block-length") {
		sim.MinBlockLength = c.Int("min-block-length")
	}
	if c.IsSet("cluster-threshold") {
		sim.ClusterThreshold = c.Float64("cluster-threshold")
	}
	if c.IsSet("reject-syntax-errors") {
		sim.RejectSyntaxErrors = c.Bool("reject-syntax-errors")
	}
	if c.IsSet("fail-on-parse-error") {
		sim.FailOnParseError = c.Bool("fail-on-parse-error")
	}
	sim.IgnoreFiles = append(sim.IgnoreFiles, c.StringSlice("ignore")...)

	cfg.Exclude.Patterns = append(cfg.Exclude.Patterns, c.StringSlice("exclude")...)
	if c.Bool("no-gitignore") {
		cfg.Exclude.Gitignore = false
	}

	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.IsSet("blocks") {
		cfg.Output.ShowBlocks = c.Bool("blocks")
	}
	if c.Bool("no-color") {
		cfg.Output.Color = false
	}
	if c.IsSet("workers") {
		cfg.Runtime.MaxWorkers = c.Int("workers")
	}
}

// commandConfig loads the config and applies the command line on top.
func commandConfig(c *cli.Context) (*config.Config, error) {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	applyFlags(c, cfg)
	return cfg, nil
}

// compare scans paths and runs the analysis described by cfg.
func compare(ctx context.Context, c *cli.Context, cfg *config.Config, paths []string) (*similarity.Report, error) {
	quiet := c.Bool("quiet")
	log := logger(c)

	var spinner *progress.Tracker
	if !quiet {
		spinner = progress.NewSpinner("Scanning files...")
	}
	files, err := scanner.NewScanner(cfg).Expand(paths)
	if spinner != nil {
		spinner.FinishSuccess()
	}
	if err != nil {
		return nil, err
	}
	log.Debug("scanned", "paths", len(paths), "files", len(files))
	if len(files) < 2 {
		return nil, fmt.Errorf("%w: found %d source files in %v", similarity.ErrInsufficientInput, len(files), paths)
	}

	fs := source.NewFilesystem(source.WithMaxFileSize(cfg.Runtime.MaxFileSize))
	ignored := make([]source.File, 0, len(cfg.Similarity.IgnoreFiles))
	for _, p := range cfg.Similarity.IgnoreFiles {
		f, err := source.Load(fs, p)
		if err != nil {
			return nil, fmt.Errorf("ignore file: %w", err)
		}
		ignored = append(ignored, f)
	}

	opts := []similarity.Option{
		similarity.WithConfig(cfg.Similarity),
		similarity.WithIgnoredFiles(ignored...),
		similarity.WithMaxWorkers(cfg.Runtime.MaxWorkers),
		similarity.WithLogger(log),
	}
	var stages *progress.Stages
	if !quiet {
		stages = progress.NewStages()
		opts = append(opts, similarity.WithProgress(stages.Update))
	}

	report, err := similarity.New(opts...).AnalyzePaths(ctx, files, fs)
	if stages != nil {
		if err != nil {
			stages.Fail(err)
		} else {
			stages.Finish()
		}
	}
	return report, err
}

// render writes report in the configured format to --output or stdout.
func render(c *cli.Context, cfg *config.Config, report *similarity.Report) error {
	outPath := c.String("output")
	colored := cfg.Output.Color && outPath == ""

	formatter, err := output.NewFormatter(output.ParseFormat(cfg.Output.Format), outPath, colored)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.NewSimilarityReport(report, output.ReportOptions{
		ShowBlocks: cfg.Output.ShowBlocks,
		Colored:    colored,
	}))
}

// signalContext is cancelled on interrupt or termination.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runCompareCmd(c *cli.Context) error {
	cfg, err := commandConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(c.Context)
	defer stop()

	paths, cleanup, err := resolveRemotes(ctx, c, getPaths(c))
	defer cleanup()
	if err != nil {
		return err
	}

	report, err := compare(ctx, c, cfg, paths)
	if err != nil {
		return err
	}
	if err := render(c, cfg, report); err != nil {
		return err
	}

	if c.IsSet("fail-above") {
		return checkThreshold(report, c.Float64("fail-above"))
	}
	return nil
}

// resolveRemotes clones every path that names a remote repository and
// replaces it with the clone directory. cleanup removes the clones and is
// safe to call when err is not nil.
func resolveRemotes(ctx context.Context, c *cli.Context, paths []string) ([]string, func(), error) {
	var clones []*remote.Source
	cleanup := func() {
		for _, src := range clones {
			src.Cleanup()
		}
	}

	var progressOut io.Writer = os.Stderr
	if c.Bool("quiet") {
		progressOut = io.Discard
	}

	resolved := make([]string, len(paths))
	for i, p := range paths {
		src, err := remote.Parse(p)
		if err != nil {
			return nil, cleanup, err
		}
		if src == nil {
			resolved[i] = p
			continue
		}
		logger(c).Info("cloning", "url", src.URL, "ref", src.Ref)
		if err := src.Clone(ctx, progressOut, !c.Bool("full-clone")); err != nil {
			return nil, cleanup, err
		}
		clones = append(clones, src)
		resolved[i] = src.CloneDir
	}
	return resolved, cleanup, nil
}

var errAboveThreshold = errors.New("similarity threshold exceeded")

// checkThreshold fails when any reported pair reaches threshold.
func checkThreshold(report *similarity.Report, threshold float64) error {
	count := 0
	for _, d := range report.Diffs {
		if d.Similarity >= threshold {
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d pairs >= %s", errAboveThreshold, count, output.Percent(threshold))
}
