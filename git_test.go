package relver

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"
)

func TestReadSnapshot(t *testing.T) {
	t.Run("Placeholder tag after a release", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		repo, err = testRepoTaggedHistory(repo, []testHistoryStep{
			{commits: 3, tag: "v24.4.1.2088-stable"},
			{commits: 4, tag: "v24.6.1.1-new"},
			{commits: 2},
		})
		require.NoError(t, err)

		snapshot, err := ReadSnapshot(Options{Repository: repo})
		require.NoError(t, err)
		require.Equal(t, Snapshot{
			LatestTag:          "v24.6.1.1-new",
			CommitsSinceLatest: 2,
			NewTag:             "v24.4.1.2088-stable",
			CommitsSinceNew:    6,
		}, snapshot)
	})

	t.Run("Head is tagged", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		repo, err = testRepoTaggedHistory(repo, []testHistoryStep{
			{commits: 2, tag: "v24.5.1.10-testing"},
		})
		require.NoError(t, err)

		snapshot, err := ReadSnapshot(Options{Repository: repo, Commitish: plumbing.Revision("HEAD")})
		require.NoError(t, err)
		require.Equal(t, "v24.5.1.10-testing", snapshot.LatestTag)
		require.Equal(t, 0, snapshot.CommitsSinceLatest)
		require.Equal(t, "v24.5.1.10-testing", snapshot.NewTag)
		require.Equal(t, 0, snapshot.CommitsSinceNew)
	})

	t.Run("Annotated tags", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		repo, err = testRepoTaggedHistory(repo, []testHistoryStep{
			{commits: 1, tag: "v24.5.1.1-stable", annotated: true},
			{commits: 5},
		})
		require.NoError(t, err)

		snapshot, err := ReadSnapshot(Options{Repository: repo})
		require.NoError(t, err)
		require.Equal(t, "v24.5.1.1-stable", snapshot.LatestTag)
		require.Equal(t, 5, snapshot.CommitsSinceLatest)
	})

	t.Run("Non release tags are ignored", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		repo, err = testRepoTaggedHistory(repo, []testHistoryStep{
			{commits: 1, tag: "v24.5.1.1-stable"},
			{commits: 1, tag: "deploy-2024"},
			{commits: 1, tag: "v1.0.0"},
		})
		require.NoError(t, err)

		snapshot, err := ReadSnapshot(Options{Repository: repo})
		require.NoError(t, err)
		require.Equal(t, "v24.5.1.1-stable", snapshot.LatestTag)
		require.Equal(t, 2, snapshot.CommitsSinceLatest)
	})

	t.Run("Tag filter", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		repo, err = testRepoTaggedHistory(repo, []testHistoryStep{
			{commits: 1, tag: "v24.5.1.1-stable"},
			{commits: 1, tag: "v24.6.1.1-testing"},
		})
		require.NoError(t, err)

		snapshot, err := ReadSnapshot(Options{
			Repository: repo,
			TagFilter: func(tag string) bool {
				return !strings.HasSuffix(tag, "-testing")
			},
		})
		require.NoError(t, err)
		require.Equal(t, "v24.5.1.1-stable", snapshot.LatestTag)
		require.Equal(t, 1, snapshot.CommitsSinceLatest)
	})

	t.Run("Malformed matching tags are passed through", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		repo, err = testRepoTaggedHistory(repo, []testHistoryStep{
			{commits: 1, tag: "v24.5.1.1-stable"},
			{commits: 1, tag: "v4.6.1.1-testin"},
		})
		require.NoError(t, err)

		snapshot, err := ReadSnapshot(Options{Repository: repo})
		require.NoError(t, err)
		require.Equal(t, "v4.6.1.1-testin", snapshot.LatestTag)

		_, err = Derive(snapshot, testRevisionTable(t))
		require.True(t, errors.Is(err, ErrMalformedTag))
	})

	t.Run("Older commitish", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		repo, err = testRepoTaggedHistory(repo, []testHistoryStep{
			{commits: 2, tag: "v24.5.1.1-stable"},
			{commits: 1, tag: "v24.5.2.3-stable"},
		})
		require.NoError(t, err)

		snapshot, err := ReadSnapshot(Options{Repository: repo, Commitish: "HEAD~1"})
		require.NoError(t, err)
		require.Equal(t, "v24.5.1.1-stable", snapshot.LatestTag)
		require.Equal(t, 0, snapshot.CommitsSinceLatest)
	})

	t.Run("Only placeholder tags", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		repo, err = testRepoTaggedHistory(repo, []testHistoryStep{
			{commits: 1, tag: "v24.6.1.1-new"},
		})
		require.NoError(t, err)

		_, err = ReadSnapshot(Options{Repository: repo})
		require.True(t, errors.Is(err, ErrNoReleaseTag))
	})

	t.Run("Repo with no tags", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		_, err = testRepoCommits(repo, 1)
		require.NoError(t, err)

		_, err = ReadSnapshot(Options{Repository: repo})
		require.True(t, errors.Is(err, ErrNoReleaseTag))
	})

	t.Run("Invalid tag pattern", func(t *testing.T) {
		repo, err := testRepoCreate()
		require.NoError(t, err)
		_, err = testRepoCommits(repo, 1)
		require.NoError(t, err)

		_, err = ReadSnapshot(Options{Repository: repo, TagPattern: "v[24"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid tag pattern")
	})

	t.Run("Nil repository", func(t *testing.T) {
		_, err := ReadSnapshot(Options{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "repository is required")
	})
}

func TestCommitsSince(t *testing.T) {
	repo, err := testRepoCreate()
	require.NoError(t, err)
	base, err := testRepoCommits(repo, 2)
	require.NoError(t, err)
	head, err := testRepoCommits(repo, 7)
	require.NoError(t, err)

	count, err := commitsSince(repo, head, base)
	require.NoError(t, err)
	require.Equal(t, 7, count)

	count, err = commitsSince(repo, head, head)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestMostRecentTag(t *testing.T) {
	repo, err := testRepoCreate()
	require.NoError(t, err)
	head, err := testRepoCommits(repo, 1)
	require.NoError(t, err)

	_, err = repo.CreateTag("v24.5.1.1-stable", head, nil)
	require.NoError(t, err)
	_, err = repo.CreateTag("v24.6.1.1-new", head, nil)
	require.NoError(t, err)

	tagged, err := releaseTags(repo, defaultTagPattern, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"v24.6.1.1-new", "v24.5.1.1-stable"}, tagged[head])

	t.Run("Greatest name wins on a shared commit", func(t *testing.T) {
		name, hash, err := mostRecentTag(repo, head, tagged, func(string) bool { return true })
		require.NoError(t, err)
		require.Equal(t, "v24.6.1.1-new", name)
		require.Equal(t, head, hash)
	})

	t.Run("Keep function skips placeholders", func(t *testing.T) {
		name, _, err := mostRecentTag(repo, head, tagged, func(tag string) bool {
			return !strings.HasSuffix(tag, "-new")
		})
		require.NoError(t, err)
		require.Equal(t, "v24.5.1.1-stable", name)
	})
}

func TestOpenRepository(t *testing.T) {
	t.Run("Valid git repository", func(t *testing.T) {
		dir, err := os.MkdirTemp("", "git-repo")
		require.NoError(t, err)
		defer os.RemoveAll(dir)

		// Initialize a git repo
		_, err = git.PlainInit(dir, false)
		require.NoError(t, err)

		repo, err := OpenRepository(dir)
		require.NoError(t, err)
		require.NotNil(t, repo)
	})

	t.Run("Filesystem repository with tags", func(t *testing.T) {
		dir := t.TempDir()
		repo, err := testRepoFSCreate(dir)
		require.NoError(t, err)
		_, err = testRepoTaggedHistory(repo, []testHistoryStep{
			{commits: 1, tag: "v24.5.1.1-lts"},
			{commits: 3},
		})
		require.NoError(t, err)

		opened, err := OpenRepository(dir)
		require.NoError(t, err)

		snapshot, err := ReadSnapshot(Options{Repository: opened})
		require.NoError(t, err)
		require.Equal(t, "v24.5.1.1-lts", snapshot.LatestTag)
		require.Equal(t, 3, snapshot.CommitsSinceLatest)
	})

	t.Run("Non-git directory", func(t *testing.T) {
		dir, err := os.MkdirTemp("", "non-git")
		require.NoError(t, err)
		defer os.RemoveAll(dir)

		_, err = OpenRepository(dir)
		require.Error(t, err)
	})

	t.Run("Non-existent directory", func(t *testing.T) {
		_, err := OpenRepository("/non/existent/path")
		require.Error(t, err)
	})
}
