package updater

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

const (
	cacheFileName = "update-check.json"
	// DefaultCacheMaxAge is the default maximum age for the cached check.
	DefaultCacheMaxAge = 24 * time.Hour
)

// CheckCache holds the outcome of the last core update check.
type CheckCache struct {
	InstallType string    `json:"install_type"`
	Result      *Result   `json:"result"`
	CheckedAt   time.Time `json:"checked_at"`
}

// LoadCache reads the cached check from dir.
// Returns nil, nil if the cache file does not exist (first run).
func LoadCache(fsys afero.Fs, dir string) (*CheckCache, error) {
	path := filepath.Join(dir, cacheFileName)

	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading update check cache: %w", err)
	}

	var cache CheckCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing update check cache: %w", err)
	}
	return &cache, nil
}

// SaveCache writes the cached check to dir.
func SaveCache(fsys afero.Fs, dir string, cache *CheckCache) error {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling update check cache: %w", err)
	}

	path := filepath.Join(dir, cacheFileName)
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return fmt.Errorf("writing update check cache: %w", err)
	}
	return nil
}

// IsCacheStale returns true if the cache is nil or older than maxAge.
func IsCacheStale(cache *CheckCache, maxAge time.Duration, now time.Time) bool {
	if cache == nil {
		return true
	}
	return now.Sub(cache.CheckedAt) > maxAge
}
