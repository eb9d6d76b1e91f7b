package installer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xdm-project/xdm-updater/internal/journal"
	"github.com/xdm-project/xdm-updater/internal/logging"
	"github.com/xdm-project/xdm-updater/internal/registry"
	"github.com/xdm-project/xdm-updater/internal/remote"
)

// DefaultMaxDownloadSize caps a plugin package held in memory.
const DefaultMaxDownloadSize = remote.DefaultMaxBodySize

// DefaultMaxExtractedSize caps the total size of the unpacked files.
const DefaultMaxExtractedSize = 512 << 20

// Archive installs zip and gzip'd tar plugin packages.
type Archive struct {
	fs       afero.Fs
	client   *remote.Client
	tempPath string
	policy   CollisionPolicy
	maxSize  int64
	maxTotal int64
	logger   *zap.Logger
}

// Option configures an Archive.
type Option func(*Archive)

// WithFs sets the filesystem used for scratch space and the destination.
func WithFs(fs afero.Fs) Option {
	return func(a *Archive) {
		a.fs = fs
	}
}

// WithClient sets the remote client used to download packages.
func WithClient(c *remote.Client) Option {
	return func(a *Archive) {
		a.client = c
	}
}

// WithCollisionPolicy sets what happens when the plugin folder already exists.
func WithCollisionPolicy(p CollisionPolicy) Option {
	return func(a *Archive) {
		a.policy = p
	}
}

// WithMaxDownloadSize overrides DefaultMaxDownloadSize.
func WithMaxDownloadSize(n int64) Option {
	return func(a *Archive) {
		if n > 0 {
			a.maxSize = n
		}
	}
}

// WithMaxExtractedSize overrides DefaultMaxExtractedSize.
func WithMaxExtractedSize(n int64) Option {
	return func(a *Archive) {
		if n > 0 {
			a.maxTotal = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Archive) {
		a.logger = l
	}
}

// NewArchive creates an installer extracting into tempPath. tempPath is
// wiped at the start of every install.
func NewArchive(tempPath string, opts ...Option) *Archive {
	a := &Archive{
		tempPath: tempPath,
		policy:   Overwrite,
		maxSize:  DefaultMaxDownloadSize,
		maxTotal: DefaultMaxExtractedSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.fs == nil {
		a.fs = afero.NewOsFs()
	}
	if a.client == nil {
		a.client = remote.New(remote.WithMaxBodySize(a.maxSize))
	}
	a.logger = logging.OrNop(a.logger).Named("installer")
	return a
}

// Install downloads d, extracts it and moves the folder named d.Name to
// destination/d.Name. Each failure is journaled as an error and reported as
// false.
func (a *Archive) Install(ctx context.Context, j *journal.Journal, d registry.Descriptor, destination string) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("archive install panicked", zap.Any("panic", rec))
			j.Error("Installation failed: %v", rec)
			ok = false
		}
	}()

	log := a.logger.With(zap.String("plugin", d.Identifier), zap.String("url", d.DownloadURL))

	if err := a.resetScratch(); err != nil {
		log.Error("preparing scratch directory failed", zap.Error(err))
		j.Error("Could not prepare %s: %v", a.tempPath, err)
		return false
	}

	data, err := a.download(ctx, d.DownloadURL)
	if err != nil {
		log.Error("download failed", zap.Error(err))
		j.Error("Download failed: %v", err)
		return false
	}
	j.Info("Download done.")

	if err := extract(a.fs, data, a.tempPath, a.maxTotal); err != nil {
		log.Error("extraction failed", zap.Error(err))
		j.Error("Extraction failed: %v", err)
		return false
	}
	j.Info("Extraction done.")

	src, err := findPluginDir(a.fs, a.tempPath, d.Name)
	if err != nil {
		log.Error("plugin folder not found", zap.Error(err))
		j.Error("Could not find a folder named %s in the package", d.Name)
		return false
	}
	j.Info("Found extracted plugin folder.")
	j.Info("%s", src)

	target := filepath.Join(destination, d.Name)
	if err := movePlugin(a.fs, src, target, a.policy); err != nil {
		log.Error("moving plugin folder failed", zap.Error(err))
		j.Error("Moving plugin folder failed: %v", err)
		return false
	}
	j.Info("Moved plugin folder to %s", target)
	log.Info("plugin folder installed", zap.String("path", target))
	return true
}

func (a *Archive) resetScratch() error {
	if a.tempPath == "" {
		return fmt.Errorf("no temporary directory configured")
	}
	if err := a.fs.RemoveAll(a.tempPath); err != nil {
		return fmt.Errorf("clearing: %w", err)
	}
	if err := a.fs.MkdirAll(a.tempPath, 0o755); err != nil {
		return fmt.Errorf("creating: %w", err)
	}
	return nil
}

func (a *Archive) download(ctx context.Context, url string) ([]byte, error) {
	data, err := a.client.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > a.maxSize {
		return nil, fmt.Errorf("package is %d bytes, limit is %d", len(data), a.maxSize)
	}
	return data, nil
}
