package installer

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xdm-project/xdm-updater/internal/journal"
	"github.com/xdm-project/xdm-updater/internal/registry"
	"github.com/xdm-project/xdm-updater/internal/version"
)

type entry struct {
	name string
	body string
	dir  bool
}

var pluginEntries = []entry{
	{name: "xdm-plugin-x-master/", dir: true},
	{name: "xdm-plugin-x-master/README.md", body: "readme"},
	{name: "xdm-plugin-x-master/X/", dir: true},
	{name: "xdm-plugin-x-master/X/__init__.py", body: "version = (0, 2)"},
	{name: "xdm-plugin-x-master/X/lib/helpers.py", body: "def help(): pass"},
}

func zipArchive(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		if !e.dir {
			_, err = w.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func tarGzArchive(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr = &tar.Header{Name: e.name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !e.dir {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func serve(t *testing.T, body []byte) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plugin" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/plugin"
}

func descriptor(url string) registry.Descriptor {
	return registry.Descriptor{
		Identifier:  "xdm.plugin.x",
		Name:        "X",
		Version:     version.New(0, 2),
		Format:      registry.FormatArchive,
		RawFormat:   "zip",
		DownloadURL: url,
	}
}

type dirs struct {
	temp string
	dest string
}

func newDirs(t *testing.T) dirs {
	root := t.TempDir()
	return dirs{temp: filepath.Join(root, "tmp"), dest: filepath.Join(root, "plugins")}
}

func texts(msgs []journal.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func TestArchiveInstall(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T, entries []entry) []byte
	}{
		{"zip", zipArchive},
		{"tar.gz", tarGzArchive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDirs(t)
			url := serve(t, tt.data(t, pluginEntries))
			a := NewArchive(d.temp, WithLogger(zaptest.NewLogger(t)))
			j := journal.New()

			require.True(t, a.Install(context.Background(), j, descriptor(url), d.dest))

			target := filepath.Join(d.dest, "X")
			assert.Equal(t, []string{
				"Download done.",
				"Extraction done.",
				"Found extracted plugin folder.",
				filepath.Join(d.temp, "xdm-plugin-x-master", "X"),
				"Moved plugin folder to " + target,
			}, texts(j.Messages()))

			got, err := os.ReadFile(filepath.Join(target, "__init__.py"))
			require.NoError(t, err)
			assert.Equal(t, "version = (0, 2)", string(got))
			assert.FileExists(t, filepath.Join(target, "lib", "helpers.py"))
			assert.NoFileExists(t, filepath.Join(target, "README.md"))
			assert.NoDirExists(t, filepath.Join(d.temp, "xdm-plugin-x-master", "X"))
		})
	}
}

func TestArchiveInstallOverwriteIsIdempotent(t *testing.T) {
	d := newDirs(t)
	url := serve(t, zipArchive(t, pluginEntries))
	a := NewArchive(d.temp, WithLogger(zaptest.NewLogger(t)))

	require.NoError(t, os.MkdirAll(filepath.Join(d.dest, "X"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(d.dest, "X", "stale.py"), []byte("old"), 0o644))

	for range 2 {
		require.True(t, a.Install(context.Background(), journal.New(), descriptor(url), d.dest))
	}

	assert.NoFileExists(t, filepath.Join(d.dest, "X", "stale.py"))
	assert.FileExists(t, filepath.Join(d.dest, "X", "__init__.py"))
	assert.FileExists(t, filepath.Join(d.dest, "X", "lib", "helpers.py"))
}

func TestArchiveInstallRejectPolicy(t *testing.T) {
	d := newDirs(t)
	url := serve(t, zipArchive(t, pluginEntries))
	a := NewArchive(d.temp, WithCollisionPolicy(Reject), WithLogger(zaptest.NewLogger(t)))

	existing := filepath.Join(d.dest, "X", "__init__.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0o755))
	require.NoError(t, os.WriteFile(existing, []byte("mine"), 0o644))

	j := journal.New()
	assert.False(t, a.Install(context.Background(), j, descriptor(url), d.dest))

	msgs := j.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, journal.LevelError, last.Level)
	assert.Contains(t, last.Text, "already exists")

	got, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(got))
}

func TestArchiveInstallFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    func(t *testing.T) []byte
		path    string
		opts    []Option
		message string
	}{
		{
			name:    "zip slip",
			body:    func(t *testing.T) []byte { return zipArchive(t, []entry{{name: "../../evil.py", body: "x"}}) },
			message: "Extraction failed",
		},
		{
			name:    "tar slip",
			body:    func(t *testing.T) []byte { return tarGzArchive(t, []entry{{name: "X/../../../evil.py", body: "x"}}) },
			message: "Extraction failed",
		},
		{
			name:    "not an archive",
			body:    func(*testing.T) []byte { return []byte("<html>not found</html>") },
			message: "Extraction failed",
		},
		{
			name:    "no folder named after the plugin",
			body:    func(t *testing.T) []byte { return zipArchive(t, []entry{{name: "other/__init__.py", body: "x"}}) },
			message: "Could not find a folder named X in the package",
		},
		{
			name:    "download not found",
			body:    func(t *testing.T) []byte { return zipArchive(t, pluginEntries) },
			path:    "/missing",
			message: "Download failed",
		},
		{
			name:    "package too large",
			body:    func(t *testing.T) []byte { return zipArchive(t, pluginEntries) },
			opts:    []Option{WithMaxDownloadSize(16)},
			message: "Download failed",
		},
		{
			name: "entry unpacks past the limit",
			body: func(t *testing.T) []byte {
				return zipArchive(t, []entry{{name: "X/data.bin", body: strings.Repeat("a", 64<<10)}})
			},
			opts:    []Option{WithMaxExtractedSize(1 << 10)},
			message: "Extraction failed",
		},
		{
			name: "entries together unpack past the limit",
			body: func(t *testing.T) []byte {
				return tarGzArchive(t, []entry{
					{name: "X/a.bin", body: strings.Repeat("a", 600)},
					{name: "X/b.bin", body: strings.Repeat("b", 600)},
				})
			},
			opts:    []Option{WithMaxExtractedSize(1000)},
			message: "Extraction failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDirs(t)
			url := serve(t, tt.body(t))
			if tt.path != "" {
				url = strings.TrimSuffix(url, "/plugin") + tt.path
			}
			opts := append([]Option{WithLogger(zaptest.NewLogger(t))}, tt.opts...)
			a := NewArchive(d.temp, opts...)
			j := journal.New()

			assert.False(t, a.Install(context.Background(), j, descriptor(url), d.dest))

			msgs := j.Messages()
			require.NotEmpty(t, msgs)
			last := msgs[len(msgs)-1]
			assert.Equal(t, journal.LevelError, last.Level)
			assert.Contains(t, last.Text, tt.message)
			assert.NoDirExists(t, filepath.Join(d.dest, "X"))
			assert.NoFileExists(t, filepath.Join(filepath.Dir(d.temp), "evil.py"))
		})
	}
}

func TestArchiveInstallClearsScratch(t *testing.T) {
	d := newDirs(t)
	leftover := filepath.Join(d.temp, "previous", "X")
	require.NoError(t, os.MkdirAll(leftover, 0o755))

	url := serve(t, zipArchive(t, pluginEntries))
	a := NewArchive(d.temp, WithLogger(zaptest.NewLogger(t)))
	j := journal.New()
	require.True(t, a.Install(context.Background(), j, descriptor(url), d.dest))

	assert.NoDirExists(t, leftover)
	assert.Contains(t, texts(j.Messages()), filepath.Join(d.temp, "xdm-plugin-x-master", "X"))
}

func TestArchiveInstallOnMemFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	url := serve(t, tarGzArchive(t, pluginEntries))
	a := NewArchive("/scratch", WithFs(fs), WithLogger(zaptest.NewLogger(t)))

	require.True(t, a.Install(context.Background(), journal.New(), descriptor(url), "/plugins"))

	got, err := afero.ReadFile(fs, "/plugins/X/__init__.py")
	require.NoError(t, err)
	assert.Equal(t, "version = (0, 2)", string(got))
	ok, err := afero.Exists(fs, "/plugins/X/lib/helpers.py")
	require.NoError(t, err)
	assert.True(t, ok)
}
