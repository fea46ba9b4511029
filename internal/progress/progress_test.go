package progress

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/panbanda/sift/pkg/analyzer/similarity"
)

func TestNewTracker(t *testing.T) {
	tests := []struct {
		name  string
		label string
		total int
	}{
		{
			name:  "standard tracker",
			label: "Processing files",
			total: 100,
		},
		{
			name:  "zero total",
			label: "Empty task",
			total: 0,
		},
		{
			name:  "large total",
			label: "Many files",
			total: 10000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTracker(&bytes.Buffer{}, tt.label, tt.total)

			if tracker.bar == nil {
				t.Error("tracker.bar should not be nil")
			}
			if tracker.label != tt.label {
				t.Errorf("tracker.label = %q, want %q", tracker.label, tt.label)
			}
		})
	}
}

func TestNewSpinner(t *testing.T) {
	tracker := newSpinner(&bytes.Buffer{}, "Scanning files")
	if tracker.bar == nil {
		t.Fatal("spinner bar should not be nil")
	}
	tracker.FinishSuccess()
}

func TestTrackerSet(t *testing.T) {
	tracker := newTracker(&bytes.Buffer{}, "Test", 10)
	for i := 1; i <= 10; i++ {
		tracker.Set(i)
	}
	if got := tracker.bar.State().CurrentNum; got != 10 {
		t.Errorf("CurrentNum = %d, want 10", got)
	}
	tracker.FinishSuccess()
}

func TestTrackerFinishError(t *testing.T) {
	var buf bytes.Buffer
	tracker := newTracker(&buf, "Fingerprinting", 10)
	tracker.Set(3)
	tracker.FinishError(errors.New("boom"))

	if !strings.Contains(buf.String(), "Fingerprinting error: boom") {
		t.Errorf("output %q should contain the error line", buf.String())
	}
}

func TestStagesSwitchesBars(t *testing.T) {
	s := &Stages{out: &bytes.Buffer{}}

	s.Update(similarity.StageFingerprint, 0, 3)
	first := s.current
	s.Update(similarity.StageFingerprint, 2, 3)
	s.Update(similarity.StageFingerprint, 1, 3)
	if s.current != first {
		t.Fatal("updates within a stage should keep the same bar")
	}
	if s.done != 2 {
		t.Errorf("done = %d, want 2 (out of order counts must not move back)", s.done)
	}

	s.Update(similarity.StageCompare, 0, 6)
	if s.current == first {
		t.Error("a new stage should start a new bar")
	}
	if s.current.label != "Comparing pairs" {
		t.Errorf("label = %q, want %q", s.current.label, "Comparing pairs")
	}
	if s.done != 0 {
		t.Errorf("done = %d, want 0 after stage switch", s.done)
	}

	s.Finish()
	if s.current != nil {
		t.Error("Finish should clear the running bar")
	}
	s.Finish()
}

func TestStagesConcurrentUpdates(t *testing.T) {
	s := &Stages{out: &bytes.Buffer{}}
	s.Update(similarity.StageCompare, 0, 1000)

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for j := 1; j <= 100; j++ {
				s.Update(similarity.StageCompare, w*100+j, 1000)
			}
		}(w)
	}
	wg.Wait()

	if s.done != 1000 {
		t.Errorf("done = %d, want 1000", s.done)
	}
	s.Finish()
}

func TestStagesFail(t *testing.T) {
	var buf bytes.Buffer
	s := &Stages{out: &buf}
	s.Fail(errors.New("ignored"))
	if buf.Len() != 0 {
		t.Errorf("Fail without a running stage should print nothing, got %q", buf.String())
	}

	s.Update(similarity.StageLoad, 0, 2)
	s.Fail(errors.New("disk gone"))
	if !strings.Contains(buf.String(), "Reading files error: disk gone") {
		t.Errorf("output %q should name the failing stage", buf.String())
	}
}
