package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/sift/pkg/analyzer/similarity"
	"github.com/panbanda/sift/pkg/config"
)

const sumJS = `function sum(values) {
  let total = 0;
  for (const value of values) {
    if (value > 0) {
      total += value;
    }
  }
  return total;
}

module.exports = { sum };
`

const greetJS = `class Greeter {
  constructor(name) {
    this.name = name;
  }

  greet() {
    console.log("Hello " + this.name);
  }
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// run executes the CLI with args and returns what it wrote to App.Writer.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	err := app.Run(append([]string{"sift"}, args...))
	return buf.String(), err
}

type reportJSON struct {
	Diffs []struct {
		Similarity float64           `json:"similarity"`
		Blocks     []json.RawMessage `json:"blocks"`
	} `json:"diffs"`
	Summary struct {
		AnalyzedFiles int `json:"analyzed_files"`
	} `json:"summary"`
	Options struct {
		KmerLength int `json:"kmer_length"`
		WindowSize int `json:"window_size"`
	} `json:"options"`
}

func readReport(t *testing.T, path string) reportJSON {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	var r reportJSON
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("output is not report JSON: %v\n%s", err, data)
	}
	return r
}

// TestGetPaths verifies path handling from CLI arguments.
func TestGetPaths(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"no args defaults to current dir", []string{}, []string{"."}},
		{"single path", []string{"/foo/bar"}, []string{"/foo/bar"}},
		{"multiple paths", []string{"/foo", "/bar"}, []string{"/foo", "/bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result []string
			app := &cli.App{
				Action: func(c *cli.Context) error {
					result = getPaths(c)
					return nil
				},
			}
			if err := app.Run(append([]string{"test"}, tt.args...)); err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if strings.Join(result, ",") != strings.Join(tt.expected, ",") {
				t.Errorf("getPaths() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	var cfg *config.Config
	app := &cli.App{
		Commands: []*cli.Command{{
			Name:  "compare",
			Flags: compareFlags(),
			Action: func(c *cli.Context) error {
				cfg = config.DefaultConfig()
				applyFlags(c, cfg)
				return nil
			},
		}},
	}

	err := app.Run([]string{"sift", "compare",
		"-k", "12", "-w", "8", "-l", "python", "-m", "0.4", "-L", "5",
		"--max-hash-count", "3", "--gap-tolerance", "2", "--min-block-length", "4",
		"--cluster-threshold", "0.9", "-i", "template.py", "--exclude", "gen/",
		"--no-gitignore", "-f", "json", "-b", "--no-color", "--workers", "2",
		"--reject-syntax-errors", "."})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	sim := cfg.Similarity
	if sim.KmerLength != 12 || sim.WindowSize != 8 || sim.Language != "python" {
		t.Errorf("fingerprint options = %+v", sim)
	}
	if sim.MinSimilarity != 0.4 || sim.Limit != 5 || sim.MaxHashCount != 3 {
		t.Errorf("filter options = %+v", sim)
	}
	if sim.GapTolerance != 2 || sim.MinBlockLength != 4 || sim.ClusterThreshold != 0.9 || !sim.RejectSyntaxErrors {
		t.Errorf("block options = %+v", sim)
	}
	if len(sim.IgnoreFiles) != 1 || sim.IgnoreFiles[0] != "template.py" {
		t.Errorf("ignore files = %v", sim.IgnoreFiles)
	}
	if cfg.Exclude.Gitignore || cfg.Exclude.Patterns[len(cfg.Exclude.Patterns)-1] != "gen/" {
		t.Errorf("exclude = %+v", cfg.Exclude)
	}
	if cfg.Output.Format != "json" || !cfg.Output.ShowBlocks || cfg.Output.Color {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Runtime.MaxWorkers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Runtime.MaxWorkers)
	}
}

func TestApplyFlagsKeepsConfig(t *testing.T) {
	var cfg *config.Config
	app := &cli.App{
		Commands: []*cli.Command{{
			Name:  "compare",
			Flags: compareFlags(),
			Action: func(c *cli.Context) error {
				cfg = config.DefaultConfig()
				cfg.Similarity.KmerLength = 40
				applyFlags(c, cfg)
				return nil
			},
		}},
	}
	if err := app.Run([]string{"sift", "compare", "."}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if cfg.Similarity.KmerLength != 40 {
		t.Errorf("unset flags must not override the config, kmer length = %d", cfg.Similarity.KmerLength)
	}
}

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.js", sumJS)
	writeFile(t, dir, "b.js", sumJS)
	writeFile(t, dir, "c.js", greetJS)
	out := filepath.Join(t.TempDir(), "report.json")

	if _, err := run(t, "-q", "compare", "-f", "json", "-o", out, "-k", "5", "-w", "3", "--blocks", dir); err != nil {
		t.Fatalf("compare error: %v", err)
	}

	r := readReport(t, out)
	if r.Summary.AnalyzedFiles != 3 {
		t.Errorf("analyzed files = %d, want 3", r.Summary.AnalyzedFiles)
	}
	if len(r.Diffs) != 3 {
		t.Fatalf("got %d pairs, want 3", len(r.Diffs))
	}
	if r.Diffs[0].Similarity != 1 || len(r.Diffs[0].Blocks) == 0 {
		t.Errorf("top pair = %+v, want identical with blocks", r.Diffs[0])
	}
	if r.Options.KmerLength != 5 || r.Options.WindowSize != 3 {
		t.Errorf("options = %+v", r.Options)
	}
}

func TestCompareCommandConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.js", sumJS)
	writeFile(t, dir, "b.js", greetJS)
	cfgPath := writeFile(t, t.TempDir(), "sift.toml", "[similarity]\nkmer_length = 7\nwindow_size = 4\n\n[output]\nformat = \"json\"\n")
	out := filepath.Join(t.TempDir(), "report.json")

	if _, err := run(t, "-q", "-c", cfgPath, "compare", "-o", out, dir); err != nil {
		t.Fatalf("compare error: %v", err)
	}

	r := readReport(t, out)
	if r.Options.KmerLength != 7 || r.Options.WindowSize != 4 {
		t.Errorf("options = %+v, want values from the config file", r.Options)
	}
}

func TestCompareCommandText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.js", sumJS)
	writeFile(t, dir, "b.js", sumJS)
	out := filepath.Join(t.TempDir(), "report.txt")

	if _, err := run(t, "-q", "compare", "-o", out, "-k", "5", "-w", "3", dir); err != nil {
		t.Fatalf("compare error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Structural Similarity", "100.0% (identical)", "Pairs compared:   1"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("text output missing %q:\n%s", want, data)
		}
	}
}

func TestCompareCommandFailAbove(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.js", sumJS)
	writeFile(t, dir, "b.js", sumJS)
	out := filepath.Join(t.TempDir(), "report.json")

	_, err := run(t, "-q", "compare", "-f", "json", "-o", out, "-k", "5", "-w", "3", "--fail-above", "0.9", dir)
	if !errors.Is(err, errAboveThreshold) {
		t.Fatalf("error = %v, want errAboveThreshold", err)
	}
	if _, statErr := os.Stat(out); statErr != nil {
		t.Error("the report should be written before failing")
	}
}

func TestCompareCommandErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.js", sumJS)

	_, err := run(t, "-q", "compare", dir)
	if !errors.Is(err, similarity.ErrInsufficientInput) {
		t.Errorf("single file error = %v, want ErrInsufficientInput", err)
	}

	writeFile(t, dir, "b.js", greetJS)
	_, err = run(t, "-q", "compare", "-k", "0", dir)
	if !errors.Is(err, similarity.ErrInvalidConfiguration) {
		t.Errorf("k=0 error = %v, want ErrInvalidConfiguration", err)
	}

	_, err = run(t, "-q", "compare", "-i", filepath.Join(dir, "missing.js"), dir)
	if err == nil {
		t.Error("expected an error for a missing ignore file")
	}
}

func TestResolveRemotesKeepsLocalPaths(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.js", sumJS)

	var resolved []string
	app := &cli.App{
		Flags: []cli.Flag{&cli.BoolFlag{Name: "quiet"}},
		Action: func(c *cli.Context) error {
			paths, cleanup, err := resolveRemotes(c.Context, c, getPaths(c))
			defer cleanup()
			resolved = paths
			return err
		},
	}
	if err := app.Run([]string{"sift", "--quiet", dir, file}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(resolved) != 2 || resolved[0] != dir || resolved[1] != file {
		t.Errorf("resolved = %v, want local paths unchanged", resolved)
	}
}

func TestResolveRemotesEmptyRef(t *testing.T) {
	_, err := run(t, "-q", "compare", "owner/repo@")
	if err == nil || !strings.Contains(err.Error(), "empty ref") {
		t.Errorf("error = %v, want empty ref error", err)
	}
}

func TestCheckThreshold(t *testing.T) {
	r := &similarity.Report{Diffs: []similarity.ScoredDiff{{Similarity: 0.9}, {Similarity: 0.5}}}

	if err := checkThreshold(r, 0.95); err != nil {
		t.Errorf("no pair reaches 0.95, got %v", err)
	}
	err := checkThreshold(r, 0.5)
	if !errors.Is(err, errAboveThreshold) {
		t.Fatalf("error = %v, want errAboveThreshold", err)
	}
	if !strings.Contains(err.Error(), "2 pairs") {
		t.Errorf("error = %q, want the pair count", err)
	}
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sift", "sift.toml")

	if _, err := run(t, "init", "-o", path); err != nil {
		t.Fatalf("init error: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Similarity.KmerLength != 23 {
		t.Errorf("kmer length = %d, want 23", cfg.Similarity.KmerLength)
	}

	if _, err := run(t, "init", "-o", path); err == nil {
		t.Error("init should refuse to overwrite without --force")
	}
	if _, err := run(t, "init", "-o", path, "--force"); err != nil {
		t.Errorf("init --force error: %v", err)
	}
}

func TestConfigCommands(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "sift.yaml", "similarity:\n  kmer_length: 9\n")

	if _, err := run(t, "-c", cfgPath, "config", "validate"); err != nil {
		t.Errorf("validate error: %v", err)
	}

	out, err := run(t, "-c", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("show error: %v", err)
	}
	if !strings.Contains(out, "# Configuration from: "+cfgPath) || !strings.Contains(out, "kmer_length = 9") {
		t.Errorf("show output:\n%s", out)
	}

	bad := writeFile(t, t.TempDir(), "sift.toml", "[similarity]\nkmer_length = 0\n")
	if _, err := run(t, "-c", bad, "config", "validate"); err == nil {
		t.Error("validate should reject kmer_length = 0")
	}
}

func TestMCPManifestCommand(t *testing.T) {
	out, err := run(t, "mcp", "manifest")
	if err != nil {
		t.Fatalf("manifest error: %v", err)
	}
	if !strings.Contains(out, `"name": "io.github.panbanda/sift"`) {
		t.Errorf("manifest output:\n%s", out)
	}
}

func TestProfile(t *testing.T) {
	prof, err := startProfile("")
	if err != nil || prof != nil {
		t.Fatalf("startProfile(\"\") = %v, %v, want nil, nil", prof, err)
	}
	if err := prof.stop(&bytes.Buffer{}); err != nil {
		t.Errorf("stop() on a nil profile error: %v", err)
	}

	prefix := filepath.Join(t.TempDir(), "run")
	prof, err = startProfile(prefix)
	if err != nil {
		t.Fatalf("startProfile() error: %v", err)
	}
	var status bytes.Buffer
	if err := prof.stop(&status); err != nil {
		t.Fatalf("stop() error: %v", err)
	}
	for _, suffix := range []string{".cpu.pprof", ".mem.pprof"} {
		if _, err := os.Stat(prefix + suffix); err != nil {
			t.Errorf("missing profile %s: %v", suffix, err)
		}
	}
	if !strings.Contains(status.String(), "Memory profile written") {
		t.Errorf("status = %q", status.String())
	}
}
