package updater

import (
	"context"
	"errors"
	"fmt"
)

// ErrVCS matches every VCSError via errors.Is.
var ErrVCS = errors.New("version control error")

// VCSError wraps a failure reading or fetching the local checkout.
type VCSError struct {
	Op  string
	Err error
}

func (e *VCSError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *VCSError) Unwrap() error { return e.Err }

func (e *VCSError) Is(target error) bool { return target == ErrVCS }

// Strategy checks one kind of installation for updates.
type Strategy interface {
	Check(ctx context.Context) (*Result, error)
}

// binaryStrategy covers packaged builds; they are updated by reinstalling,
// so the check always reports the default result.
type binaryStrategy struct{}

func (binaryStrategy) Check(context.Context) (*Result, error) {
	return NewResult(), nil
}

// sourceStrategy covers plain source trees, which carry no version history.
type sourceStrategy struct{}

func (sourceStrategy) Check(context.Context) (*Result, error) {
	return NewResult(), nil
}

// strategies maps each install type to the factory building its strategy.
var strategies = map[InstallType]func(u *CoreUpdater) Strategy{
	WindowsBinary: func(*CoreUpdater) Strategy { return binaryStrategy{} },
	MacApp:        func(*CoreUpdater) Strategy { return binaryStrategy{} },
	VcsCheckout: func(u *CoreUpdater) Strategy {
		return &vcsStrategy{open: u.openCheckout}
	},
	PlainSource: func(*CoreUpdater) Strategy { return sourceStrategy{} },
}
