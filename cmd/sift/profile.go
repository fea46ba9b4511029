package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/fatih/color"
)

// profile writes a CPU profile for the whole run and a heap profile at the
// end, to <prefix>.cpu.pprof and <prefix>.mem.pprof.
type profile struct {
	prefix string
	cpu    *os.File
}

// startProfile starts CPU profiling. An empty prefix disables profiling and
// returns a nil profile.
func startProfile(prefix string) (*profile, error) {
	if prefix == "" {
		return nil, nil
	}
	cpu, err := os.Create(prefix + ".cpu.pprof")
	if err != nil {
		return nil, fmt.Errorf("failed to create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpu); err != nil {
		cpu.Close()
		return nil, fmt.Errorf("failed to start CPU profile: %w", err)
	}
	return &profile{prefix: prefix, cpu: cpu}, nil
}

// stop finishes the CPU profile and writes the heap profile. Status lines go
// to w so they never mix with report output on stdout.
func (p *profile) stop(w io.Writer) error {
	if p == nil {
		return nil
	}
	pprof.StopCPUProfile()
	if err := p.cpu.Close(); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(w, "CPU profile written to %s\n", p.cpu.Name())

	memPath := p.prefix + ".mem.pprof"
	mem, err := os.Create(memPath)
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer mem.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(mem); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}
	color.New(color.FgGreen).Fprintf(w, "Memory profile written to %s\n", memPath)
	return nil
}
