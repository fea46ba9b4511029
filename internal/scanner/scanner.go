package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/panbanda/sift/pkg/config"
	"github.com/panbanda/sift/pkg/tokenizer"
)

// Scanner finds the files to compare in a set of paths.
type Scanner struct {
	config   *config.Config
	language tokenizer.Language
	matchers []gitignore.Matcher
	// base is the directory exclusion patterns are matched relative to.
	base string
}

// NewScanner creates a new file scanner. Directory walks keep the files
// the configured similarity language can tokenize.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	lang, err := tokenizer.ParseLanguage(cfg.Similarity.Language)
	if err != nil {
		lang = tokenizer.LangAuto
	}
	return &Scanner{config: cfg, language: lang}
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns combines the configured patterns with the .gitignore
// files of the enclosing repository.
func (s *Scanner) loadExcludePatterns(root string) {
	s.matchers = s.matchers[:0]
	s.base = root

	var patterns []gitignore.Pattern
	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}
	for _, dir := range s.config.Exclude.Dirs {
		patterns = append(patterns, gitignore.ParsePattern(dir+"/", nil))
	}

	if s.config.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			if gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil); err == nil {
				patterns = append(patterns, gitPatterns...)
				s.base = gitRoot
			}
		}
	}

	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

// isExcluded checks if an absolute path is excluded.
func (s *Scanner) isExcluded(path string, isDir bool) bool {
	if !isDir && slices.Contains(s.config.Exclude.Extensions, filepath.Ext(path)) {
		return true
	}

	if rel, err := filepath.Rel(s.base, path); err == nil && !strings.HasPrefix(rel, "..") {
		path = rel
	} else {
		path = filepath.Base(path)
	}
	pathParts := strings.Split(path, string(filepath.Separator))
	for _, m := range s.matchers {
		if m.Match(pathParts, isDir) {
			return true
		}
	}
	return false
}

// accepts reports whether a walked file is one the configured language
// covers.
func (s *Scanner) accepts(path string) bool {
	return tokenizer.Covers(s.language, path)
}

// ScanDir recursively scans a directory for files to compare.
// Validates that all paths stay within the root directory to prevent traversal attacks.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 256)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(absRoot)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		if relPath == "." {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
			// WalkDir does not descend into linked directories.
			if info, err := os.Stat(resolved); err != nil || info.IsDir() {
				return nil
			}
		}

		abs := filepath.Join(absRoot, relPath)
		if d.IsDir() {
			if s.isExcluded(abs, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.isExcluded(abs, false) && s.accepts(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, walkErr
}

// isWithinRoot checks if a path is contained within the root directory.
// Returns false if the path escapes via symlinks or relative paths.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// ScanFile checks if a single file should be compared when found in a
// directory walk.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	s.loadExcludePatterns(filepath.Dir(abs))
	if s.isExcluded(abs, false) {
		return false, nil
	}
	return s.accepts(path), nil
}

// Expand resolves command line paths into the list of files to compare.
// Files named explicitly are always kept, directories are scanned. The
// result keeps argument order and holds every path once.
func (s *Scanner) Expand(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(path string) {
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; ok {
			return
		}
		seen[clean] = struct{}{}
		files = append(files, clean)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		found, err := s.ScanDir(p)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p, err)
		}
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}
