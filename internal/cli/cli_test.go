package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xdm-project/xdm-updater/internal/config"
	"github.com/xdm-project/xdm-updater/internal/journal"
	"github.com/xdm-project/xdm-updater/internal/registry"
	"github.com/xdm-project/xdm-updater/internal/version"
)

func TestMatchesSearch(t *testing.T) {
	d := registry.Descriptor{
		Identifier:  "xdm.plugin.nzbget",
		Name:        "NZBGet",
		Description: "Download client for usenet",
		Version:     version.New(0, 4),
		RawFormat:   "zip",
		Kind:        "Downloader",
	}

	tests := []struct {
		name     string
		query    string
		format   string
		kind     string
		expected bool
	}{
		{"empty query matches all", "", "", "", true},
		{"name match", "nzb", "", "", true},
		{"case insensitive", "NZBGET", "", "", true},
		{"identifier match", "xdm.plugin", "", "", true},
		{"description match", "usenet", "", "", true},
		{"format filter", "", "zip", "", true},
		{"format filter mismatch", "", "py", "", false},
		{"type filter", "", "", "downloader", true},
		{"type filter mismatch", "", "", "Indexer", false},
		{"no match", "torrent", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, matchesSearch(d, tt.query, tt.format, tt.kind))
		})
	}
}

func TestTopLevel(t *testing.T) {
	root := &cobra.Command{Use: "root"}
	plugin := &cobra.Command{Use: "plugin"}
	check := &cobra.Command{Use: "check"}
	root.AddCommand(plugin)
	plugin.AddCommand(check)

	assert.Same(t, plugin, topLevel(check))
	assert.Same(t, plugin, topLevel(plugin))
	assert.Same(t, root, topLevel(root))
}

func TestPrintMessages(t *testing.T) {
	var buf bytes.Buffer
	printMessages(&buf, []journal.Message{
		{Level: journal.LevelInfo, Text: "Installing X(0.2)"},
		{Level: journal.LevelError, Text: "Installation unsuccessful"},
		{Level: journal.LevelInfo, Text: journal.Terminator},
	})
	assert.Equal(t, "Installing X(0.2)\nerror: Installation unsuccessful\nDone!\n", buf.String())
}

// pluginZip returns an archive holding plugin folder X with a manifest.
func pluginZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"xdm-plugin-x-master/X/__init__.py": "",
		"xdm-plugin-x-master/X/plugin.yaml": "identifier: xdm.plugin.x\nname: X\nversion: \"0.2\"\nformat: zip\n",
	}
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newRepoServer(t *testing.T) *httptest.Server {
	t.Helper()
	archive := pluginZip(t)
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repo.json":
			fmt.Fprintf(w, `{"name": "Test Repo", "plugins": {"xdm.plugin.x": [
				{"major_version": 0, "minor_version": 2, "format": "zip", "name": "X",
				 "desc": "test plugin", "download_url": "%s/x.zip"}]}}`, srv.URL)
		case "/x.zip":
			_, _ = w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testSettings(dir string) config.Settings {
	return config.Settings{
		AppPath:           dir,
		PluginInstallPath: filepath.Join(dir, "plugins"),
		TempPath:          filepath.Join(dir, "tmp"),
		RepositoriesFile:  filepath.Join(dir, "repositories.yaml"),
		CollisionPolicy:   "overwrite",
		HTTPTimeout:       5 * time.Second,
		LogLevel:          "error",
		LogFormat:         "console",
	}
}

func TestRunInstall(t *testing.T) {
	srv := newRepoServer(t)
	dir := t.TempDir()

	a, err := newAppWith(afero.NewOsFs(), testSettings(dir))
	require.NoError(t, err)
	require.NoError(t, a.store.Add("", srv.URL+"/repo.json"))
	reg, err := a.registry()
	require.NoError(t, err)
	reg.Refresh(context.Background())

	var out bytes.Buffer
	require.True(t, runInstall(context.Background(), &out, reg, "xdm.plugin.x"), out.String())
	for _, want := range []string{"X is not yet installed", "Download done.", "Installation successful", "Done!"} {
		assert.Contains(t, out.String(), want)
	}

	installed := a.scanner.GetAll(registry.DefaultInstance)
	require.Len(t, installed, 1)
	assert.Equal(t, version.New(0, 2), installed[0].Version)

	// The repository name reported by the listing is persisted.
	r, ok := a.store.Find(srv.URL + "/repo.json")
	require.True(t, ok)
	assert.Equal(t, "Test Repo", r.Name)

	out.Reset()
	assert.False(t, runInstall(context.Background(), &out, reg, "xdm.plugin.x"), "second install of an up to date plugin reported success")
	assert.Contains(t, out.String(), "X is already installed and does not need an update")
}

func TestNewAppRejectsBadCollisionPolicy(t *testing.T) {
	s := testSettings(t.TempDir())
	s.CollisionPolicy = "merge"
	a, err := newAppWith(afero.NewMemMapFs(), s)
	require.NoError(t, err)
	_, err = a.registry()
	assert.Error(t, err)
}

func TestRepoCommands(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	viper.Reset()
	t.Cleanup(viper.Reset)

	run := func(args ...string) string {
		t.Helper()
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetErr(&buf)
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.ExecuteContext(context.Background()), "%v\n%s", args, buf.String())
		return buf.String()
	}

	run("repo", "add", "https://plugins.example.com/repo.json", "--name", "Main")
	out := run("repo", "list")
	assert.Contains(t, out, "Main")
	assert.Contains(t, out, "https://plugins.example.com/repo.json")

	run("repo", "remove", "Main")
	out = run("repo", "list")
	assert.Contains(t, out, "No repositories configured")
}
