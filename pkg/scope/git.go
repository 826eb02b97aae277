package scope

import (
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrEmptyRevision is returned when no base revision is given.
var ErrEmptyRevision = errors.New("empty base revision")

// FromGit returns the files changed between baseRev and the working tree of
// the repository at repoPath: committed, staged, unstaged and untracked
// changes. Deleted files are not part of the scope.
func FromGit(repoPath, baseRev string) (*Files, error) {
	if baseRev == "" {
		return nil, ErrEmptyRevision
	}

	repo, err := git2go.OpenRepository(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	defer repo.Free()

	tree, err := revisionTree(repo, baseRev)
	if err != nil {
		return nil, err
	}
	defer tree.Free()

	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("diff options: %w", err)
	}

	opts.Flags |= git2go.DiffIncludeUntracked | git2go.DiffRecurseUntracked

	diff, err := repo.DiffTreeToWorkdirWithIndex(tree, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff %s against workdir: %w", baseRev, err)
	}
	defer diff.Free()

	numDeltas, err := diff.NumDeltas()
	if err != nil {
		return nil, fmt.Errorf("get num deltas: %w", err)
	}

	paths := make([]string, 0, numDeltas)

	for i := range numDeltas {
		delta, deltaErr := diff.Delta(i)
		if deltaErr != nil {
			return nil, fmt.Errorf("get delta %d: %w", i, deltaErr)
		}

		switch delta.Status {
		case git2go.DeltaAdded, git2go.DeltaModified, git2go.DeltaRenamed,
			git2go.DeltaCopied, git2go.DeltaUntracked, git2go.DeltaTypeChange:
			paths = append(paths, delta.NewFile.Path)
		case git2go.DeltaDeleted, git2go.DeltaUnmodified, git2go.DeltaIgnored,
			git2go.DeltaUnreadable, git2go.DeltaConflicted:
			continue
		}
	}

	return FromFiles(paths), nil
}

func revisionTree(repo *git2go.Repository, rev string) (*git2go.Tree, error) {
	obj, err := repo.RevparseSingle(rev)
	if err != nil {
		return nil, fmt.Errorf("resolve revision %q: %w", rev, err)
	}
	defer obj.Free()

	peeled, err := obj.Peel(git2go.ObjectCommit)
	if err != nil {
		return nil, fmt.Errorf("revision %q is not a commit: %w", rev, err)
	}
	defer peeled.Free()

	commit, err := peeled.AsCommit()
	if err != nil {
		return nil, fmt.Errorf("revision %q is not a commit: %w", rev, err)
	}
	defer commit.Free()

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree of %q: %w", rev, err)
	}

	return tree, nil
}
