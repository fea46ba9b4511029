// Package config loads sift configuration from TOML, YAML or JSON files.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	koanfjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://github.com/panbanda/sift/schema.json"

// Config holds all configuration options for sift.
type Config struct {
	// Engine options of the comparison
	Similarity SimilarityConfig `koanf:"similarity" toml:"similarity"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	// Resource limits
	Runtime RuntimeConfig `koanf:"runtime" toml:"runtime"`
}

// SimilarityConfig controls fingerprinting, scoring and result filtering.
type SimilarityConfig struct {
	KmerLength        int     `koanf:"kmer_length" toml:"kmer_length"`
	WindowSize        int     `koanf:"window_size" toml:"window_size"`
	MaxHashPercentage float64 `koanf:"max_hash_percentage" toml:"max_hash_percentage"` // 0 = disabled
	MaxHashCount      int     `koanf:"max_hash_count" toml:"max_hash_count"`           // 0 = disabled
	GapTolerance      int     `koanf:"gap_tolerance" toml:"gap_tolerance"`
	MinBlockLength    int     `koanf:"min_block_length" toml:"min_block_length"`
	MinSimilarity     float64 `koanf:"min_similarity" toml:"min_similarity"`
	Limit             int     `koanf:"limit" toml:"limit"` // 0 = all pairs
	// Language is a language name or "auto" to detect it per file.
	Language           string  `koanf:"language" toml:"language"`
	FailOnParseError   bool    `koanf:"fail_on_parse_error" toml:"fail_on_parse_error"`
	RejectSyntaxErrors bool    `koanf:"reject_syntax_errors" toml:"reject_syntax_errors"`
	ClusterThreshold   float64 `koanf:"cluster_threshold" toml:"cluster_threshold"`
	// IgnoreFiles are template files whose code never counts as a match.
	IgnoreFiles []string `koanf:"ignore_files" toml:"ignore_files"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns   []string `koanf:"patterns" toml:"patterns"`
	Extensions []string `koanf:"extensions" toml:"extensions"`
	Dirs       []string `koanf:"dirs" toml:"dirs"`
	Gitignore  bool     `koanf:"gitignore" toml:"gitignore"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format     string `koanf:"format" toml:"format"` // text, json, markdown, toon, yaml
	Color      bool   `koanf:"color" toml:"color"`
	Verbose    bool   `koanf:"verbose" toml:"verbose"`
	ShowBlocks bool   `koanf:"show_blocks" toml:"show_blocks"`
}

// RuntimeConfig bounds resource usage.
type RuntimeConfig struct {
	MaxWorkers  int   `koanf:"max_workers" toml:"max_workers"`     // 0 = 2x NumCPU
	MaxFileSize int64 `koanf:"max_file_size" toml:"max_file_size"` // bytes, 0 = no limit
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Similarity: SimilarityConfig{
			KmerLength:       23,
			WindowSize:       17,
			GapTolerance:     1,
			MinBlockLength:   1,
			Language:         "auto",
			ClusterThreshold: 0.75,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.min.css",
			},
			Extensions: []string{
				".lock",
				".sum",
				".png",
				".jpg",
				".gif",
				".pdf",
				".zip",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				"dist",
				"build",
				"__pycache__",
			},
			Gitignore: true,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Runtime: RuntimeConfig{
			MaxFileSize: 1 << 20,
		},
	}
}

// Load loads configuration from a file. Values missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = koanfjson.Parser()
	default:
		parser = toml.Parser()
	}

	// Load the config file
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := validate(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// Unmarshal into config struct
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks a parsed document against the embedded JSON schema. The
// document goes through JSON first so that every parser's value types are
// normalised.
func validate(raw map[string]any) error {
	doc, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	schema, err := compileSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}
	return c.Compile(schemaURL)
}

// ConfigNames are the file names searched by LoadOrDefault, in order.
var ConfigNames = []string{
	"sift.toml",
	"sift.yaml",
	"sift.yml",
	"sift.json",
	".sift.toml",
	".sift.yaml",
	".sift.yml",
	".sift.json",
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	for _, name := range ConfigNames {
		if _, err := os.Stat(name); err == nil {
			cfg, err := Load(name)
			if err == nil {
				return cfg
			}
		}
	}
	return DefaultConfig()
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	// Check directory exclusions
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	// Check extension exclusions
	ext := filepath.Ext(path)
	for _, excludeExt := range c.Exclude.Extensions {
		if ext == excludeExt {
			return true
		}
	}

	// Check pattern exclusions
	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
