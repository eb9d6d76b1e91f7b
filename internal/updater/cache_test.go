package updater

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCache_Missing(t *testing.T) {
	cache, err := LoadCache(afero.NewMemMapFs(), "/home/u/.xdm")
	require.NoError(t, err)
	assert.Nil(t, cache)
}

func TestSaveAndLoadCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/home/u/.xdm"

	now := time.Now().Truncate(time.Second)
	res := NewResult()
	res.NeedsUpdate = true
	res.LocalVersion = "abc"
	res.ExternalVersion = "def"
	res.Message = "3 commits behind"
	original := &CheckCache{InstallType: VcsCheckout.String(), Result: res, CheckedAt: now}

	require.NoError(t, SaveCache(fs, dir, original))

	loaded, err := LoadCache(fs, dir)
	require.NoError(t, err)
	assert.Equal(t, "Git", loaded.InstallType)
	assert.True(t, loaded.Result.NeedsUpdate)
	assert.Equal(t, "3 commits behind", loaded.Result.Message)
	assert.True(t, loaded.CheckedAt.Equal(now), "CheckedAt = %v, want %v", loaded.CheckedAt, now)
}

func TestLoadCache_Corrupted(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/home/u/.xdm"
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, cacheFileName), []byte("not valid json{{{"), 0o644))

	_, err := LoadCache(fs, dir)
	assert.Error(t, err)
}

func TestIsCacheStale(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		cache    *CheckCache
		expected bool
	}{
		{"nil cache is stale", nil, true},
		{"fresh cache", &CheckCache{CheckedAt: now.Add(-time.Hour)}, false},
		{"stale cache", &CheckCache{CheckedAt: now.Add(-25 * time.Hour)}, true},
		{"exactly at boundary", &CheckCache{CheckedAt: now.Add(-24 * time.Hour)}, false},
		{"just past boundary", &CheckCache{CheckedAt: now.Add(-24*time.Hour - time.Second)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsCacheStale(tt.cache, DefaultCacheMaxAge, now))
		})
	}
}

func TestPrintBanner(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/home/u/.xdm"
	now := time.Now()

	var buf bytes.Buffer
	assert.True(t, PrintBanner(&buf, fs, dir, "xdm-updater", now), "missing cache should be stale")
	assert.Zero(t, buf.Len(), "unexpected banner without cache: %q", buf.String())

	res := NewResult()
	res.NeedsUpdate = true
	res.Message = "over 10 commits behind"
	require.NoError(t, SaveCache(fs, dir, &CheckCache{Result: res, CheckedAt: now}))

	buf.Reset()
	assert.False(t, PrintBanner(&buf, fs, dir, "xdm-updater", now), "fresh cache reported stale")
	assert.Contains(t, buf.String(), "Update available: over 10 commits behind")
	assert.Contains(t, buf.String(), "xdm-updater check")
}

func TestPrintBanner_NoUpdate(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/home/u/.xdm"
	require.NoError(t, SaveCache(fs, dir, &CheckCache{Result: NewResult(), CheckedAt: time.Now()}))

	var buf bytes.Buffer
	PrintBanner(&buf, fs, dir, "xdm-updater", time.Now())
	assert.Zero(t, buf.Len(), "unexpected banner: %q", buf.String())
}
