package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/sift/internal/log"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// logger returns the logger configured by the root command.
func logger(c *cli.Context) *slog.Logger {
	if l, ok := c.App.Metadata["logger"].(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "sift",
		Usage:    "Structural plagiarism and clone detection for source code",
		Version:  fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Metadata: make(map[string]interface{}),
		Description: `Sift compares source files pairwise by the structure of their syntax trees.
Renamed identifiers, edited comments and reformatting do not hide copied code.
Each pair gets a similarity score and the matching regions of both files.

Supports: Go, Rust, Python, TypeScript, JavaScript, Java, C, C++, C#, Ruby, PHP, Bash
Any other text can be compared character by character with --language char.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"SIFT_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug details to stderr",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log errors and hide progress bars",
			},
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "Enable pprof profiling and write to specified prefix (creates <prefix>.cpu.pprof and <prefix>.mem.pprof)",
			},
		},
		Before: func(c *cli.Context) error {
			c.App.Metadata["logger"] = log.Setup(c.Bool("verbose"), c.Bool("quiet"))

			prof, err := startProfile(c.String("pprof"))
			if err != nil {
				return err
			}
			c.App.Metadata["profile"] = prof
			return nil
		},
		After: func(c *cli.Context) error {
			prof, _ := c.App.Metadata["profile"].(*profile)
			return prof.stop(c.App.ErrWriter)
		},
		Commands: []*cli.Command{
			compareCmd(),
			watchCmd(),
			initCmd(),
			configCmd(),
			mcpCmd(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
