package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/panbanda/sift/pkg/analyzer/similarity"
)

// Tracker wraps a progress bar for file processing.
type Tracker struct {
	bar   *progressbar.ProgressBar
	label string
	out   io.Writer
}

// NewSpinner creates a spinner for operations with unknown total count.
func NewSpinner(label string) *Tracker {
	return newSpinner(os.Stderr, label)
}

func newSpinner(w io.Writer, label string) *Tracker {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Tracker{bar: bar, label: label, out: w}
}

// NewTracker creates a progress bar with the given label and total count.
func NewTracker(label string, total int) *Tracker {
	return newTracker(os.Stderr, label, total)
}

func newTracker(w io.Writer, label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label, out: w}
}

// Set moves the bar to n.
func (t *Tracker) Set(n int) {
	t.bar.Set(n)
}

// FinishSuccess clears the bar completely (no output).
func (t *Tracker) FinishSuccess() {
	t.bar.Finish()
	t.bar.Clear()
}

// FinishError clears the bar and prints an error message.
func (t *Tracker) FinishError(err error) {
	t.bar.Finish()
	t.bar.Clear()
	fmt.Fprintf(t.out, "  %s error: %v\n", t.label, err)
}

var stageLabels = map[similarity.Stage]string{
	similarity.StageLoad:        "Reading files",
	similarity.StageFingerprint: "Fingerprinting",
	similarity.StageCompare:     "Comparing pairs",
}

// Stages shows one bar per analysis stage. Update has the signature of
// similarity.ProgressFunc and may be called from several goroutines.
type Stages struct {
	mu      sync.Mutex
	out     io.Writer
	stage   similarity.Stage
	current *Tracker
	done    int
}

// NewStages creates a stage display writing to stderr.
func NewStages() *Stages {
	return &Stages{out: os.Stderr}
}

// Update reports progress of a stage. Starting a new stage clears the bar
// of the previous one. Counts arriving out of order never move a bar back.
func (s *Stages) Update(stage similarity.Stage, current, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || stage != s.stage {
		if s.current != nil {
			s.current.FinishSuccess()
		}
		label, ok := stageLabels[stage]
		if !ok {
			label = string(stage)
		}
		s.stage = stage
		s.current = newTracker(s.out, label, total)
		s.done = 0
	}
	if current > s.done {
		s.done = current
		s.current.Set(current)
	}
}

// Finish clears the bar of the running stage.
func (s *Stages) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.FinishSuccess()
		s.current = nil
	}
}

// Fail clears the running bar and prints err against its stage.
func (s *Stages) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.FinishError(err)
		s.current = nil
	}
}
