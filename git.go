// This file contains code adapted from pulumictl (https://github.com/pulumi/pulumictl)
// which is licensed under the Apache License 2.0. See NOTICE file for full attribution.

package relver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

const (
	defaultTagPattern    = "v*.*.*.*-*"
	defaultNewTagPattern = "*-new"
)

// OpenRepository opens a Git repository at the specified path
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// ReadSnapshot finds the nearest release tag and the nearest non-placeholder
// tag reachable from opts.Commitish, and counts the commits since each.
func ReadSnapshot(opts Options) (Snapshot, error) {
	if opts.Repository == nil {
		return Snapshot{}, fmt.Errorf("repository is required")
	}
	if opts.Commitish == "" {
		opts.Commitish = "HEAD"
	}
	if opts.TagPattern == "" {
		opts.TagPattern = defaultTagPattern
	}
	if opts.NewTagPattern == "" {
		opts.NewTagPattern = defaultNewTagPattern
	}
	if !doublestar.ValidatePattern(opts.TagPattern) {
		return Snapshot{}, fmt.Errorf("invalid tag pattern: %q", opts.TagPattern)
	}
	if !doublestar.ValidatePattern(opts.NewTagPattern) {
		return Snapshot{}, fmt.Errorf("invalid new tag pattern: %q", opts.NewTagPattern)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	repo := opts.Repository
	revision, err := repo.ResolveRevision(opts.Commitish)
	if err != nil {
		return Snapshot{}, fmt.Errorf("resolving commitish: %w", err)
	}

	tagged, err := releaseTags(repo, opts.TagPattern, opts.TagFilter)
	if err != nil {
		return Snapshot{}, fmt.Errorf("listing release tags: %w", err)
	}

	latest, latestHash, err := mostRecentTag(repo, *revision, tagged, func(string) bool { return true })
	if err != nil {
		return Snapshot{}, fmt.Errorf("finding latest tag: %w", err)
	}
	if latest == "" {
		return Snapshot{}, fmt.Errorf("%w: nothing reachable from %s matches %q",
			ErrNoReleaseTag, opts.Commitish, opts.TagPattern)
	}

	notNew := func(name string) bool {
		// pattern validated above
		match, _ := doublestar.Match(opts.NewTagPattern, name)
		return !match
	}
	newTag, newHash, err := mostRecentTag(repo, *revision, tagged, notNew)
	if err != nil {
		return Snapshot{}, fmt.Errorf("finding last release tag: %w", err)
	}
	if newTag == "" {
		return Snapshot{}, fmt.Errorf("%w: no tag outside %q reachable from %s",
			ErrNoReleaseTag, opts.NewTagPattern, opts.Commitish)
	}

	sinceLatest, err := commitsSince(repo, *revision, latestHash)
	if err != nil {
		return Snapshot{}, fmt.Errorf("counting commits since %s: %w", latest, err)
	}
	sinceNew, err := commitsSince(repo, *revision, newHash)
	if err != nil {
		return Snapshot{}, fmt.Errorf("counting commits since %s: %w", newTag, err)
	}

	logger.Debug("read tag history",
		slog.String("commitish", string(opts.Commitish)),
		slog.String("latest_tag", latest),
		slog.Int("commits_since_latest", sinceLatest),
		slog.String("new_tag", newTag),
		slog.Int("commits_since_new", sinceNew))

	return Snapshot{
		LatestTag:          latest,
		CommitsSinceLatest: sinceLatest,
		NewTag:             newTag,
		CommitsSinceNew:    sinceNew,
	}, nil
}

// releaseTags maps each tagged commit to the short names of the tags on it
// that match pattern and filter. Annotated tags resolve to their target.
func releaseTags(repo *git.Repository, pattern string, filter func(string) bool) (map[plumbing.Hash][]string, error) {
	tags, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	tagged := make(map[plumbing.Hash][]string)
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}

		name := ref.Name().Short()
		match, err := doublestar.Match(pattern, name)
		if err != nil {
			return err
		}
		if !match {
			return nil
		}
		if filter != nil && !filter(name) {
			return nil
		}

		target := ref.Hash()
		obj, err := repo.TagObject(ref.Hash())
		switch {
		case err == nil:
			// Annotated tag
			target = obj.Target
		case errors.Is(err, plumbing.ErrObjectNotFound):
			// Lightweight tag
		default:
			return err
		}

		tagged[target] = append(tagged[target], name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for hash := range tagged {
		sort.Sort(sort.Reverse(sort.StringSlice(tagged[hash])))
	}
	return tagged, nil
}

// mostRecentTag walks history from ref and returns the first tag accepted by
// keep, along with the commit it points at.
func mostRecentTag(repo *git.Repository, ref plumbing.Hash, tagged map[plumbing.Hash][]string,
	keep func(string) bool) (string, plumbing.Hash, error) {

	commit, err := repo.CommitObject(ref)
	if err != nil {
		return "", plumbing.ZeroHash, fmt.Errorf("getting commit object: %w", err)
	}

	var found string
	var foundHash plumbing.Hash
	walker := object.NewCommitPreorderIter(commit, nil, nil)
	defer walker.Close()

	err = walker.ForEach(func(c *object.Commit) error {
		for _, name := range tagged[c.Hash] {
			if keep(name) {
				found = name
				foundHash = c.Hash
				return storer.ErrStop
			}
		}
		return nil
	})

	return found, foundHash, err
}

// commitsSince counts commits reachable from head but not from base, the
// same number as "git rev-list base..head --count".
func commitsSince(repo *git.Repository, head, base plumbing.Hash) (int, error) {
	baseCommit, err := repo.CommitObject(base)
	if err != nil {
		return 0, fmt.Errorf("getting commit object: %w", err)
	}

	seen := make(map[plumbing.Hash]bool)
	baseIter := object.NewCommitPreorderIter(baseCommit, nil, nil)
	defer baseIter.Close()
	err = baseIter.ForEach(func(c *object.Commit) error {
		seen[c.Hash] = true
		return nil
	})
	if err != nil {
		return 0, err
	}

	headCommit, err := repo.CommitObject(head)
	if err != nil {
		return 0, fmt.Errorf("getting commit object: %w", err)
	}

	count := 0
	headIter := object.NewCommitPreorderIter(headCommit, seen, nil)
	defer headIter.Close()
	err = headIter.ForEach(func(*object.Commit) error {
		count++
		return nil
	})

	return count, err
}
