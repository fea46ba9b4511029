// Package similarity detects structurally similar source files.
//
// Files are tokenized into structural token streams, reduced to winnowed
// k-mer fingerprints and indexed. Every pair of files of the same language is
// then scored by the fingerprints it shares, and shared fingerprints are
// aligned into blocks pointing at the matching source regions.
package similarity

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/panbanda/sift/internal/fileproc"
	"github.com/panbanda/sift/pkg/config"
	"github.com/panbanda/sift/pkg/fingerprint"
	"github.com/panbanda/sift/pkg/index"
	"github.com/panbanda/sift/pkg/source"
	"github.com/panbanda/sift/pkg/stats"
	"github.com/panbanda/sift/pkg/tokenizer"
)

// Stage names a phase of the analysis for progress reporting.
type Stage string

const (
	StageLoad        Stage = "load"
	StageFingerprint Stage = "fingerprint"
	StageCompare     Stage = "compare"
)

// ProgressFunc is called once with current 0 when a stage starts and then
// after every processed item. It may be called from several goroutines.
type ProgressFunc func(stage Stage, current, total int)

// Analyzer compares source files for structural similarity.
type Analyzer struct {
	config     Config
	maxWorkers int
	ignored    []source.File
	onProgress ProgressFunc
	logger     *slog.Logger
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithConfig sets the engine options from the similarity config section.
func WithConfig(cfg config.SimilarityConfig) Option {
	return func(a *Analyzer) {
		a.config = Config{
			KmerLength:         cfg.KmerLength,
			WindowSize:         cfg.WindowSize,
			MaxHashPercentage:  cfg.MaxHashPercentage,
			MaxHashCount:       cfg.MaxHashCount,
			GapTolerance:       cfg.GapTolerance,
			MinBlockLength:     cfg.MinBlockLength,
			MinSimilarity:      cfg.MinSimilarity,
			Limit:              cfg.Limit,
			Language:           tokenizer.Language(cfg.Language),
			FailOnParseError:   cfg.FailOnParseError,
			RejectSyntaxErrors: cfg.RejectSyntaxErrors,
			ClusterThreshold:   cfg.ClusterThreshold,
		}
	}
}

// WithKmerLength sets the number of tokens per fingerprint.
func WithKmerLength(k int) Option {
	return func(a *Analyzer) {
		a.config.KmerLength = k
	}
}

// WithWindowSize sets the number of k-mers per winnowing window.
func WithWindowSize(w int) Option {
	return func(a *Analyzer) {
		a.config.WindowSize = w
	}
}

// WithMaxHashPercentage ignores hashes present in more than fraction of the
// files (0 = disabled).
func WithMaxHashPercentage(fraction float64) Option {
	return func(a *Analyzer) {
		a.config.MaxHashPercentage = fraction
	}
}

// WithMaxHashCount ignores hashes present in more than n files (0 = disabled).
func WithMaxHashCount(n int) Option {
	return func(a *Analyzer) {
		a.config.MaxHashCount = n
	}
}

// WithGapTolerance sets the largest ordinal step that continues a block.
func WithGapTolerance(gap int) Option {
	return func(a *Analyzer) {
		a.config.GapTolerance = gap
	}
}

// WithMinBlockLength drops blocks with fewer fingerprints.
func WithMinBlockLength(n int) Option {
	return func(a *Analyzer) {
		a.config.MinBlockLength = n
	}
}

// WithMinSimilarity drops pairs scoring below threshold from the report.
func WithMinSimilarity(threshold float64) Option {
	return func(a *Analyzer) {
		a.config.MinSimilarity = threshold
	}
}

// WithLimit keeps only the n most similar pairs (0 = all).
func WithLimit(n int) Option {
	return func(a *Analyzer) {
		a.config.Limit = n
	}
}

// WithLanguage forces a language instead of detecting it per file.
func WithLanguage(lang tokenizer.Language) Option {
	return func(a *Analyzer) {
		a.config.Language = lang
	}
}

// WithIgnoredFiles registers template files. Their fingerprints never count
// as evidence of similarity.
func WithIgnoredFiles(files ...source.File) Option {
	return func(a *Analyzer) {
		a.ignored = append(a.ignored, files...)
	}
}

// WithFailOnParseError aborts the analysis on the first file that cannot be
// tokenized.
func WithFailOnParseError(fail bool) Option {
	return func(a *Analyzer) {
		a.config.FailOnParseError = fail
	}
}

// WithRejectSyntaxErrors treats syntax trees containing errors as parse
// failures.
func WithRejectSyntaxErrors(reject bool) Option {
	return func(a *Analyzer) {
		a.config.RejectSyntaxErrors = reject
	}
}

// WithClusterThreshold sets the similarity that links files into clusters
// (0 = no clustering).
func WithClusterThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		a.config.ClusterThreshold = threshold
	}
}

// WithMaxWorkers bounds the number of goroutines per stage (0 = 2x NumCPU).
func WithMaxWorkers(n int) Option {
	return func(a *Analyzer) {
		a.maxWorkers = n
	}
}

// WithProgress sets a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Analyzer) {
		a.onProgress = fn
	}
}

// WithLogger sets the logger for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates a new similarity analyzer with default config.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		config: DefaultConfig(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the engine options the analyzer runs with.
func (a *Analyzer) Config() Config {
	return a.config
}

// fingerprinted is a tokenized file together with its selected fingerprints.
type fingerprinted struct {
	file         *tokenizer.TokenizedFile
	fingerprints []fingerprint.Fingerprint
}

func (f *fingerprinted) info() FileInfo {
	return FileInfo{
		Path:         f.file.File.Path,
		Language:     f.file.Language,
		Digest:       f.file.File.Digest,
		Tokens:       len(f.file.Tokens),
		Fingerprints: len(f.fingerprints),
	}
}

// AnalyzePaths reads paths from src and analyzes them. Files that cannot be
// read are reported as failures.
func (a *Analyzer) AnalyzePaths(ctx context.Context, paths []string, src source.ContentSource) (*Report, error) {
	cfg, err := a.prepare(len(paths))
	if err != nil {
		return nil, err
	}

	a.logger.Debug("reading files", "count", len(paths))
	files, readErrs, err := fileproc.LoadFiles(ctx, paths, src, a.maxWorkers, a.ticker(StageLoad, len(paths)))
	if err != nil {
		return nil, err
	}

	var failures []FileFailure
	for _, pe := range readErrs.Sorted() {
		a.logger.Warn("skipping unreadable file", "path", pe.Path, "error", pe.Err)
		failures = append(failures, NewFileFailure(pe.Path, FailureRead, pe.Err))
	}
	return a.analyze(ctx, cfg, files, len(paths), failures)
}

// Analyze compares files pairwise and returns the report.
func (a *Analyzer) Analyze(ctx context.Context, files []source.File) (*Report, error) {
	cfg, err := a.prepare(len(files))
	if err != nil {
		return nil, err
	}
	return a.analyze(ctx, cfg, files, len(files), nil)
}

// prepare validates the options before any file is touched.
func (a *Analyzer) prepare(inputs int) (Config, error) {
	cfg := a.config
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	lang, _ := tokenizer.ParseLanguage(string(cfg.Language))
	cfg.Language = lang
	if err := cfg.validateInput(inputs); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (a *Analyzer) analyze(ctx context.Context, cfg Config, files []source.File, inputs int, failures []FileFailure) (*Report, error) {
	winnower, err := fingerprint.NewWinnower(cfg.WindowSize, cfg.KmerLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	a.logger.Debug("fingerprinting files", "count", len(files), "k", cfg.KmerLength, "w", cfg.WindowSize)
	results, errs, err := fileproc.MapIndexed(ctx, files, a.maxWorkers, func(ctx context.Context, f source.File) (*fingerprinted, error) {
		return a.fingerprint(ctx, cfg, winnower, f)
	}, a.ticker(StageFingerprint, len(files)))
	if err != nil {
		return nil, err
	}

	analyzed := make([]*fingerprinted, 0, len(files))
	for i, fe := range errs {
		if fe == nil {
			analyzed = append(analyzed, results[i])
			continue
		}
		if cfg.FailOnParseError {
			return nil, fmt.Errorf("%s: %w", files[i].Path, fe)
		}
		a.logger.Warn("skipping file", "path", files[i].Path, "error", fe)
		failures = append(failures, NewFileFailure(files[i].Path, FailureParse, fe))
	}
	if len(analyzed) < 2 {
		return nil, fmt.Errorf("%w: only %d of %d files could be analyzed", ErrInsufficientInput, len(analyzed), inputs)
	}

	ignored, err := a.templateHashes(ctx, cfg, winnower)
	if err != nil {
		return nil, err
	}

	// Single writer: the index is complete before any pair is compared.
	idx := index.New()
	fpLists := make([][]fingerprint.Fingerprint, len(analyzed))
	for i, f := range analyzed {
		idx.AddFile(i, f.fingerprints)
		fpLists[i] = f.fingerprints
	}
	a.logger.Debug("index built", "files", len(analyzed), "hashes", idx.Hashes())

	comparer, err := NewComparer(idx, fpLists, CompareOptions{
		MaxHashPercentage: cfg.MaxHashPercentage,
		MaxHashCount:      cfg.MaxHashCount,
		Ignored:           ignored,
	})
	if err != nil {
		return nil, err
	}

	candidates := make(map[Pair]struct{})
	for _, c := range comparer.CandidatePairs() {
		candidates[Pair{Left: c.Left, Right: c.Right}] = struct{}{}
	}

	var pairs []Pair
	for i := range analyzed {
		for j := i + 1; j < len(analyzed); j++ {
			if analyzed[i].file.Language == analyzed[j].file.Language {
				pairs = append(pairs, Pair{Left: i, Right: j})
			}
		}
	}
	a.logger.Debug("comparing pairs", "pairs", len(pairs), "candidates", len(candidates))

	infos := make([]FileInfo, len(analyzed))
	for i, f := range analyzed {
		infos[i] = f.info()
	}

	aligner := NewAligner(cfg.GapTolerance, cfg.MinBlockLength)
	diffs := make([]ScoredDiff, len(pairs))
	err = fileproc.ForEachIndex(ctx, len(pairs), a.maxWorkers, func(_ context.Context, i int) error {
		p := pairs[i]
		left, right := analyzed[p.Left], analyzed[p.Right]
		diff := ScoredDiff{
			Left:      infos[p.Left],
			Right:     infos[p.Right],
			Identical: left.file.File.Digest == right.file.File.Digest,
		}
		if _, ok := candidates[p]; ok {
			res := comparer.Compare(p.Left, p.Right)
			diff.Similarity = res.Similarity
			diff.Shared = res.Shared
			diff.Blocks = aligner.Blocks(
				aligner.Align(res.Pairs),
				Side{File: left.file, Fingerprints: left.fingerprints},
				Side{File: right.file, Fingerprints: right.fingerprints},
				cfg.KmerLength,
			)
		}
		diffs[i] = diff
		return nil
	}, a.ticker(StageCompare, len(pairs)))
	if err != nil {
		return nil, err
	}

	links := make([]link, len(pairs))
	scores := make([]float64, len(pairs))
	identical := 0
	for i, d := range diffs {
		links[i] = link{left: pairs[i].Left, right: pairs[i].Right, similarity: d.Similarity}
		scores[i] = d.Similarity
		if d.Identical {
			identical++
		}
	}

	sortDiffs(diffs)
	reported := filterDiffs(diffs, cfg.MinSimilarity, cfg.Limit)

	slices.SortFunc(failures, func(x, y FileFailure) int {
		return cmp.Compare(x.Path, y.Path)
	})

	report := &Report{
		Files:    infos,
		Diffs:    reported,
		Clusters: clusters(infos, links, cfg.ClusterThreshold),
		Failures: failures,
		Summary: Summary{
			TotalFiles:     inputs,
			AnalyzedFiles:  len(analyzed),
			FailedFiles:    len(failures),
			ComparedPairs:  len(pairs),
			ReportedPairs:  len(reported),
			IdenticalPairs: identical,
			DistinctHashes: idx.Hashes(),
			Similarity:     stats.Summarize(scores),
		},
		Options: cfg,
	}
	a.logger.Debug("analysis complete", "pairs", len(pairs), "reported", len(reported), "failures", len(failures))
	return report, nil
}

// fingerprint tokenizes and winnows one file with its own tokenizer.
func (a *Analyzer) fingerprint(ctx context.Context, cfg Config, winnower *fingerprint.Winnower, f source.File) (*fingerprinted, error) {
	lang := tokenizer.Resolve(cfg.Language, f.Path)
	tok, err := tokenizer.ForLanguage(lang, tokenizer.WithRejectSyntaxErrors(cfg.RejectSyntaxErrors))
	if err != nil {
		return nil, err
	}
	defer tokenizer.Close(tok)

	tf, err := tokenizer.Tokenize(ctx, tok, f, lang)
	if err != nil {
		return nil, err
	}
	return &fingerprinted{
		file:         tf,
		fingerprints: winnower.Winnow(tf.Symbols()),
	}, nil
}

// templateHashes fingerprints the ignored files and returns their hashes.
func (a *Analyzer) templateHashes(ctx context.Context, cfg Config, winnower *fingerprint.Winnower) (map[uint64]struct{}, error) {
	if len(a.ignored) == 0 {
		return nil, nil
	}

	results, errs, err := fileproc.MapIndexed(ctx, a.ignored, a.maxWorkers, func(ctx context.Context, f source.File) (*fingerprinted, error) {
		return a.fingerprint(ctx, cfg, winnower, f)
	}, nil)
	if err != nil {
		return nil, err
	}

	hashes := make(map[uint64]struct{})
	for i, f := range results {
		if errs[i] != nil {
			if cfg.FailOnParseError {
				return nil, fmt.Errorf("%s: %w", a.ignored[i].Path, errs[i])
			}
			a.logger.Warn("skipping template file", "path", a.ignored[i].Path, "error", errs[i])
			continue
		}
		for _, fp := range f.fingerprints {
			hashes[fp.Hash] = struct{}{}
		}
	}
	a.logger.Debug("template hashes", "files", len(a.ignored), "hashes", len(hashes))
	return hashes, nil
}

func (a *Analyzer) ticker(stage Stage, total int) fileproc.ProgressFunc {
	if a.onProgress == nil {
		return nil
	}
	a.onProgress(stage, 0, total)
	var done atomic.Int64
	return func() {
		a.onProgress(stage, int(done.Add(1)), total)
	}
}

// sortDiffs orders diffs by similarity, highest first, then by paths.
func sortDiffs(diffs []ScoredDiff) {
	slices.SortStableFunc(diffs, func(x, y ScoredDiff) int {
		if c := cmp.Compare(y.Similarity, x.Similarity); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Left.Path, y.Left.Path); c != 0 {
			return c
		}
		return cmp.Compare(x.Right.Path, y.Right.Path)
	})
}

// filterDiffs applies the minimum similarity, then the limit, to sorted diffs.
func filterDiffs(diffs []ScoredDiff, minSimilarity float64, limit int) []ScoredDiff {
	end := len(diffs)
	for i, d := range diffs {
		if d.Similarity < minSimilarity {
			end = i
			break
		}
	}
	if limit > 0 && limit < end {
		end = limit
	}
	return diffs[:end]
}
