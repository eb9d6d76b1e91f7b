package updater

import (
	"context"
	"fmt"
)

const (
	// maxBehind is where the ancestor walk stops counting.
	maxBehind = 10

	dirtyMessage    = "dirty checkout, no real check performed"
	overMaxMessage  = "over 10 commits behind"
	notFoundMessage = "local commit not found in remote history"
)

// Checkout is the view of a version-controlled working copy needed to decide
// whether it is behind its upstream.
type Checkout interface {
	// Head returns the commit id checked out locally.
	Head() (string, error)
	// FetchOrigin fetches the origin remote and returns its head commit id.
	FetchOrigin(ctx context.Context) (string, error)
	// IsDirty reports uncommitted local changes.
	IsDirty() (bool, error)
	// Parents returns the parent commit ids of id, first parent first.
	Parents(id string) ([]string, error)
}

type vcsStrategy struct {
	open     func() (Checkout, error)
	checkout Checkout
}

func (s *vcsStrategy) Check(ctx context.Context) (*Result, error) {
	if s.checkout == nil {
		c, err := s.open()
		if err != nil {
			return nil, err
		}
		s.checkout = c
	}
	c := s.checkout

	local, err := c.Head()
	if err != nil {
		return nil, err
	}
	remote, err := c.FetchOrigin(ctx)
	if err != nil {
		return nil, err
	}

	res := NewResult()
	res.LocalVersion = local
	res.ExternalVersion = remote

	dirty, err := c.IsDirty()
	if err != nil {
		return nil, err
	}
	if dirty {
		res.Extra["dirty"] = true
		res.Message = dirtyMessage
		return res, nil
	}

	if local == remote {
		return res, nil
	}

	res.NeedsUpdate = true
	msg, err := commitsBehind(c, remote, local)
	if err != nil {
		return nil, err
	}
	res.Message = msg
	return res, nil
}

// commitsBehind walks back from remote looking for local. The walk is an
// approximation of the commit distance: each step visits every parent of the
// current commit and then continues from the last of them, so on merge
// histories the count reflects visited commits rather than the shortest path.
func commitsBehind(c Checkout, remote, local string) (string, error) {
	behind := 0
	level := []string{remote}
	for len(level) > 0 {
		for _, id := range level {
			if id == local {
				return fmt.Sprintf("%d commits behind", behind), nil
			}
			behind++
			if behind >= maxBehind {
				return overMaxMessage, nil
			}
		}
		parents, err := c.Parents(level[len(level)-1])
		if err != nil {
			return "", err
		}
		level = parents
	}
	return notFoundMessage, nil
}
