package mcpserver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/sift/internal/output"
	"github.com/panbanda/sift/internal/scanner"
	"github.com/panbanda/sift/pkg/analyzer/similarity"
	"github.com/panbanda/sift/pkg/config"
	"github.com/panbanda/sift/pkg/source"
)

// AnalyzeInput is the base input for tools that read files from disk.
type AnalyzeInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Files or directories to compare. Defaults to current directory if empty."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, or markdown."`
}

// CompareOptions overrides the configured engine options. Zero values keep
// the server configuration.
type CompareOptions struct {
	KmerLength    int     `json:"kmer_length,omitempty" jsonschema:"Tokens hashed into one fingerprint. Default 23."`
	WindowSize    int     `json:"window_size,omitempty" jsonschema:"Consecutive k-mers per winnowing window. Default 17."`
	Language      string  `json:"language,omitempty" jsonschema:"Language of all files, char for plain text, or auto (default) to detect per file."`
	MinSimilarity float64 `json:"min_similarity,omitempty" jsonschema:"Only report pairs at or above this similarity (0.0-1.0)."`
	Limit         int     `json:"limit,omitempty" jsonschema:"Report only the N most similar pairs. Default 20."`
	MaxHashCount  int     `json:"max_hash_count,omitempty" jsonschema:"Ignore fingerprints present in more than N files."`
	ShowBlocks    bool    `json:"show_blocks,omitempty" jsonschema:"Include the matching blocks of every reported pair."`
}

// CompareFilesInput is the input of compare_files.
type CompareFilesInput struct {
	AnalyzeInput
	CompareOptions
	IgnoreFiles []string `json:"ignore_files,omitempty" jsonschema:"Template files whose code never counts as a match."`
}

// SourceInput is one file passed inline.
type SourceInput struct {
	Path    string `json:"path" jsonschema:"File name; its extension selects the language."`
	Content string `json:"content" jsonschema:"Source code of the file."`
}

// CompareSourcesInput is the input of compare_sources.
type CompareSourcesInput struct {
	Files  []SourceInput `json:"files" jsonschema:"At least two files to compare."`
	Format string        `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, or markdown."`
	CompareOptions
}

const defaultLimit = 20

// Helper functions

func getPaths(input AnalyzeInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(format string) output.Format {
	switch format {
	case "json":
		return output.FormatJSON
	case "yaml", "yml":
		return output.FormatYAML
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf, false).Output(data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// effectiveConfig applies opts on top of the server configuration.
func (s *Server) effectiveConfig(opts CompareOptions) *config.Config {
	cfg := *s.config
	sim := &cfg.Similarity
	if opts.KmerLength > 0 {
		sim.KmerLength = opts.KmerLength
	}
	if opts.WindowSize > 0 {
		sim.WindowSize = opts.WindowSize
	}
	if opts.Language != "" {
		sim.Language = opts.Language
	}
	if opts.MinSimilarity > 0 {
		sim.MinSimilarity = opts.MinSimilarity
	}
	if opts.MaxHashCount > 0 {
		sim.MaxHashCount = opts.MaxHashCount
	}
	switch {
	case opts.Limit > 0:
		sim.Limit = opts.Limit
	case sim.Limit == 0:
		sim.Limit = defaultLimit
	}
	return &cfg
}

// newAnalyzer builds an analyzer for cfg, loading its template files from
// the filesystem.
func (s *Server) newAnalyzer(cfg *config.Config, ignoreFiles []string) (*similarity.Analyzer, error) {
	fs := source.NewFilesystem(source.WithMaxFileSize(cfg.Runtime.MaxFileSize))

	paths := append(append([]string{}, cfg.Similarity.IgnoreFiles...), ignoreFiles...)
	ignored := make([]source.File, 0, len(paths))
	for _, p := range paths {
		f, err := source.Load(fs, p)
		if err != nil {
			return nil, fmt.Errorf("ignore file: %w", err)
		}
		ignored = append(ignored, f)
	}

	return similarity.New(
		similarity.WithConfig(cfg.Similarity),
		similarity.WithIgnoredFiles(ignored...),
		similarity.WithMaxWorkers(cfg.Runtime.MaxWorkers),
		similarity.WithLogger(s.logger),
	), nil
}

// Tool handlers

func (s *Server) handleCompareFiles(ctx context.Context, req *mcp.CallToolRequest, input CompareFilesInput) (*mcp.CallToolResult, any, error) {
	paths := getPaths(input.AnalyzeInput)
	format := getFormat(input.Format)
	cfg := s.effectiveConfig(input.CompareOptions)

	files, err := scanner.NewScanner(cfg).Expand(paths)
	if err != nil {
		return toolError(err.Error())
	}
	if len(files) < 2 {
		return toolError(fmt.Sprintf("found %d source files, at least two are needed", len(files)))
	}

	a, err := s.newAnalyzer(cfg, input.IgnoreFiles)
	if err != nil {
		return toolError(err.Error())
	}

	s.logger.Debug("compare_files", "files", len(files))
	fs := source.NewFilesystem(source.WithMaxFileSize(cfg.Runtime.MaxFileSize))
	report, err := a.AnalyzePaths(ctx, files, fs)
	if err != nil {
		return toolError(err.Error())
	}

	return toolResult(output.NewSimilarityReport(report, output.ReportOptions{ShowBlocks: input.ShowBlocks}), format)
}

func (s *Server) handleCompareSources(ctx context.Context, req *mcp.CallToolRequest, input CompareSourcesInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.Format)
	cfg := s.effectiveConfig(input.CompareOptions)

	files := make([]source.File, 0, len(input.Files))
	seen := make(map[string]bool, len(input.Files))
	for i, f := range input.Files {
		if f.Path == "" {
			return toolError(fmt.Sprintf("file %d has no path", i+1))
		}
		if seen[f.Path] {
			return toolError("duplicate path " + f.Path)
		}
		seen[f.Path] = true
		files = append(files, source.NewFile(f.Path, []byte(f.Content)))
	}

	a, err := s.newAnalyzer(cfg, nil)
	if err != nil {
		return toolError(err.Error())
	}

	report, err := a.Analyze(ctx, files)
	if err != nil {
		return toolError(err.Error())
	}

	return toolResult(output.NewSimilarityReport(report, output.ReportOptions{ShowBlocks: input.ShowBlocks}), format)
}
