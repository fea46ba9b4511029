// Package remote clones git repositories named on the command line so their
// files can be compared like local ones.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Source represents a remote repository to compare.
type Source struct {
	URL      string // normalized git URL
	Ref      string // branch, tag, or SHA (empty = default branch)
	CloneDir string // temp directory after clone
}

// Parse detects if a path is a remote reference.
// Returns nil if path exists on filesystem (local path takes precedence).
func Parse(path string) (*Source, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, nil
	}

	if strings.HasSuffix(path, "@") {
		return nil, fmt.Errorf("empty ref in %q", path)
	}
	path, ref := splitRef(path)

	switch {
	case strings.HasPrefix(path, "https://"), strings.HasPrefix(path, "http://"),
		strings.HasPrefix(path, "ssh://"), strings.HasPrefix(path, "git@"):
		return &Source{URL: path, Ref: ref}, nil
	case strings.HasPrefix(path, "github.com/"), strings.HasPrefix(path, "gitlab.com/"), strings.HasPrefix(path, "bitbucket.org/"):
		return &Source{URL: "https://" + path, Ref: ref}, nil
	case isGitHubShorthand(path):
		return &Source{URL: "https://github.com/" + path, Ref: ref}, nil
	}
	return nil, nil
}

// splitRef separates a trailing @ref. The user part of an scp-style URL
// (git@host:path) is not a ref.
func splitRef(path string) (string, string) {
	start := 0
	if strings.HasPrefix(path, "git@") {
		start = len("git@")
	}
	idx := strings.LastIndex(path[start:], "@")
	if idx == -1 {
		return path, ""
	}
	idx += start
	return path[:idx], path[idx+1:]
}

// isGitHubShorthand returns true if path matches owner/repo pattern.
func isGitHubShorthand(path string) bool {
	slashIdx := strings.Index(path, "/")
	if slashIdx == -1 {
		return false
	}
	if strings.Count(path, "/") != 1 {
		return false
	}
	// A dot before the slash is a domain or a relative path
	if strings.Contains(path[:slashIdx], ".") {
		return false
	}
	return slashIdx > 0 && slashIdx < len(path)-1
}

// Clone clones the repository into a new temporary directory and checks out
// Ref. Git progress messages go to progress. A shallow clone fetches only the
// tip of the ref, which cannot reach an arbitrary commit SHA.
func (s *Source) Clone(ctx context.Context, progress io.Writer, shallow bool) error {
	dir, err := os.MkdirTemp("", "sift-remote-*")
	if err != nil {
		return err
	}
	s.CloneDir = dir

	opts := &git.CloneOptions{
		URL:          s.URL,
		Progress:     progress,
		SingleBranch: s.Ref != "",
	}
	if shallow {
		opts.Depth = 1
	}

	if s.Ref == "" {
		_, err = git.PlainCloneContext(ctx, dir, false, opts)
		return s.fail(err)
	}

	// A ref is a branch, a tag, or a revision, tried in that order.
	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(s.Ref),
		plumbing.NewTagReferenceName(s.Ref),
	} {
		opts.ReferenceName = name
		_, err = git.PlainCloneContext(ctx, dir, false, opts)
		if err == nil {
			return nil
		}
		if !isRefNotFound(err) {
			return s.fail(err)
		}
		if err := s.reset(); err != nil {
			return err
		}
	}

	opts.ReferenceName = ""
	opts.SingleBranch = false
	opts.Depth = 0
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return s.fail(err)
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(s.Ref))
	if err != nil {
		return s.fail(fmt.Errorf("resolve %s: %w", s.Ref, err))
	}
	wt, err := repo.Worktree()
	if err != nil {
		return s.fail(err)
	}
	return s.fail(wt.Checkout(&git.CheckoutOptions{Hash: *hash}))
}

func isRefNotFound(err error) bool {
	var noMatch git.NoMatchingRefSpecError
	return errors.As(err, &noMatch) || errors.Is(err, plumbing.ErrReferenceNotFound)
}

// reset empties the clone directory for another attempt.
func (s *Source) reset() error {
	if err := os.RemoveAll(s.CloneDir); err != nil {
		return err
	}
	return os.MkdirAll(s.CloneDir, 0o755)
}

// fail removes the clone directory when err is not nil.
func (s *Source) fail(err error) error {
	if err == nil {
		return nil
	}
	s.Cleanup()
	return fmt.Errorf("clone %s: %w", s.URL, err)
}

// Cleanup removes the clone directory.
func (s *Source) Cleanup() {
	if s.CloneDir != "" {
		os.RemoveAll(s.CloneDir)
		s.CloneDir = ""
	}
}
