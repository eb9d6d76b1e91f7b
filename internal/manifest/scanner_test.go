package manifest

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xdm-project/xdm-updater/internal/registry"
	"github.com/xdm-project/xdm-updater/internal/version"
)

func writeManifest(t *testing.T, fs afero.Fs, dir, body string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, FileName), []byte(body), 0o644))
}

func TestScannerGetAll(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/extra/X", "identifier: xdm.plugin.x\nname: X\nversion: \"0.3\"\nformat: zip\n")
	writeManifest(t, fs, "/plugins/X", "identifier: xdm.plugin.x\nname: X\nversion: \"0.1\"\n")
	writeManifest(t, fs, "/plugins/Y", "identifier: xdm.plugin.y\nname: Y\nversion: \"1.0\"\ninstances: [Secondary]\n")
	writeManifest(t, fs, "/plugins/Broken", "name: Broken\nversion: \"1.0\"\n")
	require.NoError(t, afero.WriteFile(fs, "/plugins/NoManifest/__init__.py", []byte(""), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/plugins/loose.yaml", []byte("x"), 0o644))

	s := NewScanner(fs, zaptest.NewLogger(t), "/extra", "", "/plugins", "/missing")

	assert.Equal(t, []registry.InstalledPlugin{
		{Identifier: "xdm.plugin.x", Name: "X", Version: version.New(0, 3), Path: filepath.Join("/extra", "X"), Format: "zip"},
	}, s.GetAll(registry.DefaultInstance))

	secondary := s.GetAll("Secondary")
	require.Len(t, secondary, 1)
	assert.Equal(t, "xdm.plugin.y", secondary[0].Identifier)
}

func TestScannerScanReportsBrokenManifests(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/plugins/Good", "identifier: good\nname: Good\nversion: \"2.1\"\n")
	writeManifest(t, fs, "/plugins/Bad", "identifier: bad\nname: Bad\nversion: latest\n")

	entries, err := NewScanner(fs, nil, "/plugins").Scan()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// ReadDir returns entries sorted by name.
	bad, good := entries[0], entries[1]
	assert.Error(t, bad.Err)
	require.NoError(t, good.Err)
	assert.Equal(t, version.New(2, 1), good.Plugin.Version)
}

func TestScannerUpdateURL(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, "/plugins/X", "identifier: xdm.plugin.x\nname: X\nversion: \"0.1\"\nupdate_url: http://example.com/x.json\n")

	s := NewScanner(fs, nil, "/plugins")
	assert.Equal(t, "http://example.com/x.json", s.UpdateURL("xdm.plugin.x"))
	assert.Empty(t, s.UpdateURL("xdm.plugin.nope"))
}
