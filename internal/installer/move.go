package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// CollisionPolicy decides what happens when the plugin folder already exists
// at the destination.
type CollisionPolicy string

const (
	// Overwrite replaces the existing folder with the new one.
	Overwrite CollisionPolicy = "overwrite"
	// Reject keeps the existing folder and fails the install.
	Reject CollisionPolicy = "reject"
)

// ErrDestinationExists is returned under the Reject policy.
var ErrDestinationExists = errors.New("plugin folder already exists")

// ParseCollisionPolicy reads a policy name; the empty string is Overwrite.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch p := CollisionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", Overwrite:
		return Overwrite, nil
	case Reject:
		return Reject, nil
	default:
		return "", fmt.Errorf("unknown collision policy %q (want %q or %q)", s, Overwrite, Reject)
	}
}

// excludedNames are never installed, whichever way the folder is moved.
var excludedNames = map[string]bool{
	".git":        true,
	".DS_Store":   true,
	"__pycache__": true,
}

// backupSuffix names the sibling an existing installation is parked in while
// the new folder is moved into place.
const backupSuffix = ".xdm-backup"

// movePlugin moves the folder src to dst, applying policy when dst exists.
// A failed rename, typically across filesystems, falls back to copy and
// remove. An existing installation is only deleted once the new folder is in
// place; if the move fails it is restored.
func movePlugin(fs afero.Fs, src, dst string, policy CollisionPolicy) error {
	exists, err := afero.Exists(fs, dst)
	if err != nil {
		return fmt.Errorf("checking %s: %w", dst, err)
	}
	if exists && policy == Reject {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}

	if err := pruneExcluded(fs, src); err != nil {
		return fmt.Errorf("cleaning %s: %w", src, err)
	}
	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}

	if !exists {
		return transfer(fs, src, dst)
	}

	backup := dst + backupSuffix
	if err := fs.RemoveAll(backup); err != nil {
		return fmt.Errorf("removing stale backup %s: %w", backup, err)
	}
	if err := fs.Rename(dst, backup); err != nil {
		return fmt.Errorf("setting aside existing installation at %s: %w", dst, err)
	}
	if err := transfer(fs, src, dst); err != nil {
		if rmErr := fs.RemoveAll(dst); rmErr != nil {
			return errors.Join(err, fmt.Errorf("removing partial copy at %s: %w", dst, rmErr))
		}
		if rbErr := fs.Rename(backup, dst); rbErr != nil {
			return errors.Join(err, fmt.Errorf("restoring %s: %w", dst, rbErr))
		}
		return err
	}
	if err := fs.RemoveAll(backup); err != nil {
		return fmt.Errorf("removing backup %s: %w", backup, err)
	}
	return nil
}

// transfer renames src to dst, copying when the rename fails.
func transfer(fs afero.Fs, src, dst string) error {
	if err := fs.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyDir(fs, src, dst); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	if err := fs.RemoveAll(src); err != nil {
		return fmt.Errorf("removing %s: %w", src, err)
	}
	return nil
}

// pruneExcluded deletes every entry of excludedNames below root.
func pruneExcluded(fs afero.Fs, root string) error {
	var doomed []string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path != root && excludedNames[info.Name()] {
			doomed = append(doomed, path)
			if info.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, path := range doomed {
		if err := fs.RemoveAll(path); err != nil {
			return err
		}
	}
	return nil
}

// copyDir recursively copies src to dst, excluding entries in excludedNames.
func copyDir(fs afero.Fs, src, dst string) error {
	srcInfo, err := fs.Stat(src)
	if err != nil {
		return err
	}

	if err := fs.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}

	entries, err := afero.ReadDir(fs, src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if excludedNames[entry.Name()] {
			continue
		}

		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyDir(fs, srcPath, dstPath); err != nil {
				return err
			}
		} else if entry.Mode().IsRegular() {
			if err := copyFile(fs, srcPath, dstPath); err != nil {
				return err
			}
		}
	}

	return nil
}

// copyFile copies a single file from src to dst, preserving permissions.
func copyFile(fs afero.Fs, src, dst string) error {
	data, err := afero.ReadFile(fs, src)
	if err != nil {
		return err
	}

	srcInfo, err := fs.Stat(src)
	if err != nil {
		return err
	}

	return afero.WriteFile(fs, dst, data, srcInfo.Mode().Perm())
}
