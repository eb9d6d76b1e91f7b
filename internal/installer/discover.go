package installer

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// ErrPluginFolderNotFound means the archive has no folder named after the plugin.
var ErrPluginFolderNotFound = errors.New("plugin folder not found in archive")

var errFound = errors.New("found")

// findPluginDir walks root in lexical order and returns the first directory
// below it whose base name is name.
func findPluginDir(fs afero.Fs, root, name string) (string, error) {
	var found string
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && path != root && info.Name() == name {
			found = path
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return found, nil
	}
	if err != nil {
		return "", fmt.Errorf("walking %s: %w", root, err)
	}
	return "", fmt.Errorf("%w: %s", ErrPluginFolderNotFound, name)
}
