package updater

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const originRemote = "origin"

// gitCheckout implements Checkout on top of go-git.
type gitCheckout struct {
	repo *git.Repository
}

// OpenCheckout opens the git working copy at path.
func OpenCheckout(path string) (Checkout, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, &VCSError{Op: "opening repository " + path, Err: err}
	}
	return &gitCheckout{repo: repo}, nil
}

func (g *gitCheckout) Head() (string, error) {
	ref, err := g.repo.Head()
	if err != nil {
		return "", &VCSError{Op: "reading HEAD", Err: err}
	}
	return ref.Hash().String(), nil
}

func (g *gitCheckout) FetchOrigin(ctx context.Context) (string, error) {
	err := g.repo.FetchContext(ctx, &git.FetchOptions{RemoteName: originRemote})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", &VCSError{Op: "fetching " + originRemote, Err: err}
	}
	return g.remoteHead()
}

// remoteHead resolves the remote-tracking ref of the current branch, falling
// back to origin/HEAD for a detached checkout.
func (g *gitCheckout) remoteHead() (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return "", &VCSError{Op: "reading HEAD", Err: err}
	}

	var candidates []plumbing.ReferenceName
	if head.Name().IsBranch() {
		candidates = append(candidates, plumbing.NewRemoteReferenceName(originRemote, head.Name().Short()))
	}
	candidates = append(candidates, plumbing.NewRemoteHEADReferenceName(originRemote))

	for _, name := range candidates {
		ref, err := g.repo.Reference(name, true)
		if err == nil {
			return ref.Hash().String(), nil
		}
	}
	return "", &VCSError{
		Op:  "resolving remote head",
		Err: fmt.Errorf("none of %v exist", candidates),
	}
}

// IsDirty ignores untracked files.
func (g *gitCheckout) IsDirty() (bool, error) {
	wt, err := g.repo.Worktree()
	if err != nil {
		return false, &VCSError{Op: "opening worktree", Err: err}
	}
	status, err := wt.Status()
	if err != nil {
		return false, &VCSError{Op: "reading worktree status", Err: err}
	}
	for _, fs := range status {
		if fs.Staging == git.Untracked && fs.Worktree == git.Untracked {
			continue
		}
		if fs.Staging != git.Unmodified || fs.Worktree != git.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

func (g *gitCheckout) Parents(id string) ([]string, error) {
	commit, err := g.repo.CommitObject(plumbing.NewHash(id))
	if err != nil {
		return nil, &VCSError{Op: "reading commit " + id, Err: err}
	}
	parents := make([]string, len(commit.ParentHashes))
	for i, h := range commit.ParentHashes {
		parents[i] = h.String()
	}
	return parents, nil
}
