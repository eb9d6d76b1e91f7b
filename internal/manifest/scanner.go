package manifest

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xdm-project/xdm-updater/internal/logging"
	"github.com/xdm-project/xdm-updater/internal/registry"
)

// Entry is one plugin folder found by a scan. Err is set when the manifest
// is missing a version that parses or fails validation.
type Entry struct {
	Dir      string
	Manifest *Manifest
	Plugin   registry.InstalledPlugin
	Err      error
}

// Scanner finds installed plugins in the immediate subdirectories of a set of
// plugin paths. It implements registry.InstalledPlugins.
type Scanner struct {
	fs     afero.Fs
	paths  []string
	logger *zap.Logger
}

// NewScanner returns a Scanner over paths, searched in order. Empty paths
// are ignored.
func NewScanner(fsys afero.Fs, logger *zap.Logger, paths ...string) *Scanner {
	var clean []string
	for _, p := range paths {
		if p != "" {
			clean = append(clean, p)
		}
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Scanner{fs: fsys, paths: clean, logger: logging.OrNop(logger).Named("manifest")}
}

// Scan reads every plugin folder. A folder without a manifest is skipped;
// a folder with a broken manifest is returned with Err set.
func (s *Scanner) Scan() ([]Entry, error) {
	var entries []Entry
	for _, root := range s.paths {
		infos, err := afero.ReadDir(s.fs, root)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			if !info.IsDir() {
				continue
			}
			dir := filepath.Join(root, info.Name())
			path := filepath.Join(dir, FileName)
			if ok, _ := afero.Exists(s.fs, path); !ok {
				continue
			}
			entries = append(entries, s.read(dir, path))
		}
	}
	return entries, nil
}

func (s *Scanner) read(dir, path string) Entry {
	e := Entry{Dir: dir}
	m, err := ParseFile(s.fs, path)
	if err != nil {
		e.Err = err
		return e
	}
	e.Manifest = m

	v, err := m.Pair()
	if err != nil {
		e.Err = err
		return e
	}
	e.Plugin = registry.InstalledPlugin{
		Identifier: m.Identifier,
		Name:       m.Name,
		Version:    v,
		Path:       dir,
		Format:     m.Format,
	}
	return e
}

// GetAll returns the valid plugins configured for instance. When the same
// identifier is installed in more than one path, the first path wins.
func (s *Scanner) GetAll(instance string) []registry.InstalledPlugin {
	entries, err := s.Scan()
	if err != nil {
		s.logger.Error("scanning plugin folders failed", zap.Error(err))
		return nil
	}

	seen := map[string]bool{}
	var out []registry.InstalledPlugin
	for _, e := range entries {
		if e.Err != nil {
			s.logger.Warn("skipping plugin with a broken manifest", zap.String("dir", e.Dir), zap.Error(e.Err))
			continue
		}
		if !e.Manifest.InInstance(instance) || seen[e.Plugin.Identifier] {
			continue
		}
		seen[e.Plugin.Identifier] = true
		out = append(out, e.Plugin)
	}
	return out
}

// UpdateURL returns the update URL declared by the installed plugin with
// identifier, or "".
func (s *Scanner) UpdateURL(identifier string) string {
	entries, err := s.Scan()
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.Err == nil && e.Plugin.Identifier == identifier {
			return e.Manifest.UpdateURL
		}
	}
	return ""
}
