package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/sift/pkg/watch"
)

func watchCmd() *cli.Command {
	flags := append(compareFlags(), &cli.DurationFlag{
		Name:  "debounce",
		Value: 500 * time.Millisecond,
		Usage: "Wait this long after the last change before comparing again",
	})
	return &cli.Command{
		Name:      "watch",
		Usage:     "Compare files and compare again whenever they change",
		ArgsUsage: "[path...]",
		Flags:     flags,
		Action:    runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	cfg, err := commandConfig(c)
	if err != nil {
		return err
	}
	paths := getPaths(c)

	ctx, stop := signalContext(c.Context)
	defer stop()

	run := func() {
		report, err := compare(ctx, c, cfg, paths)
		if err == nil {
			err = render(c, cfg, report)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			color.Red("Error: %v", err)
		}
	}

	w, err := watch.NewWatcher(paths, cfg, c.Duration("debounce"), logger(c))
	if err != nil {
		return err
	}
	defer w.Stop()

	w.OnChange(func(changed []string) {
		color.Yellow("\n%d files changed, comparing again", len(changed))
		for _, p := range changed {
			logger(c).Debug("changed", "path", p)
		}
		fmt.Println()
		run()
	})

	run()
	color.Cyan("Watching %v for changes. Press Ctrl+C to stop.", paths)

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
