package relver

import (
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"
)

var testSignature = &object.Signature{
	Name:  "test",
	Email: "test@example.com",
	When:  time.Now(),
}

// testRepoCreate creates a new in-memory git repository for testing
func testRepoCreate() (*git.Repository, error) {
	storage := memory.NewStorage()
	fs := memfs.New()
	return git.Init(storage, fs)
}

// testRepoFSCreate creates a new filesystem-based git repository for testing
func testRepoFSCreate(path string) (*git.Repository, error) {
	fs := osfs.New(path)
	dot, err := fs.Chroot(git.GitDirName)
	if err != nil {
		return nil, err
	}
	storage := filesystem.NewStorage(dot, cache.NewObjectLRUDefault())
	return git.Init(storage, fs)
}

// testRepoCommits adds n commits on the current branch and returns the last hash
func testRepoCommits(repo *git.Repository, n int) (plumbing.Hash, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	head := plumbing.ZeroHash
	for i := 0; i < n; i++ {
		if ref, err := repo.Head(); err == nil {
			head = ref.Hash()
		}
		filename := fmt.Sprintf("file_%s_%d.txt", head.String()[:8], i)

		err = writeFile(workTree.Filesystem, filename, "Content for "+filename)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		_, err = workTree.Add(filename)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		head, err = workTree.Commit("Commit "+filename, &git.CommitOptions{Author: testSignature})
		if err != nil {
			return plumbing.ZeroHash, err
		}
	}

	return head, nil
}

// testRepoTaggedHistory replays a history of tagged commits: for each step,
// it adds the given number of commits and tags the last one. An empty tag
// adds commits without tagging.
func testRepoTaggedHistory(repo *git.Repository, steps []testHistoryStep) (*git.Repository, error) {
	for _, step := range steps {
		head, err := testRepoCommits(repo, step.commits)
		if err != nil {
			return nil, err
		}
		if step.tag == "" {
			continue
		}

		var opts *git.CreateTagOptions
		if step.annotated {
			opts = &git.CreateTagOptions{Tagger: testSignature, Message: "Release " + step.tag}
		}
		if head == plumbing.ZeroHash {
			ref, err := repo.Head()
			if err != nil {
				return nil, err
			}
			head = ref.Hash()
		}
		if _, err := repo.CreateTag(step.tag, head, opts); err != nil {
			return nil, err
		}
	}

	return repo, nil
}

type testHistoryStep struct {
	commits   int
	tag       string
	annotated bool
}

// writeFile writes content to a file in the given filesystem
func writeFile(fs billy.Filesystem, filename, content string) error {
	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write([]byte(content))
	return err
}
