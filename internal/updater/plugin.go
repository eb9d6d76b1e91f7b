package updater

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/xdm-project/xdm-updater/internal/logging"
	"github.com/xdm-project/xdm-updater/internal/registry"
	"github.com/xdm-project/xdm-updater/internal/remote"
	"github.com/xdm-project/xdm-updater/internal/version"
)

// PluginChecker compares an installed plugin with the version published at
// its update URL. The published document is {"major": int, "minor": int}.
type PluginChecker struct {
	client  *remote.Client
	logger  *zap.Logger
	formats []string
}

// publishedVersion is the document served at a plugin's update URL. Both
// fields are required.
type publishedVersion struct {
	Major *int `json:"major"`
	Minor *int `json:"minor"`
}

func (v publishedVersion) validate(url string) error {
	switch {
	case v.Major == nil && v.Minor == nil:
		return &remote.FormatError{URL: url, Err: errors.New("missing major and minor")}
	case v.Major == nil:
		return &remote.FormatError{URL: url, Err: errors.New("missing major")}
	case v.Minor == nil:
		return &remote.FormatError{URL: url, Err: errors.New("missing minor")}
	case *v.Major < 0 || *v.Minor < 0:
		return &remote.FormatError{URL: url, Err: fmt.Errorf("negative version %d.%d", *v.Major, *v.Minor)}
	}
	return nil
}

// PluginCheckerOption configures a PluginChecker.
type PluginCheckerOption func(*PluginChecker)

// WithPluginClient sets the remote client.
func WithPluginClient(c *remote.Client) PluginCheckerOption {
	return func(p *PluginChecker) {
		p.client = c
	}
}

// WithPluginLogger sets the logger.
func WithPluginLogger(l *zap.Logger) PluginCheckerOption {
	return func(p *PluginChecker) {
		p.logger = l
	}
}

// WithDownloadableFormats lists the formats that have a downloader. Plugins
// installed from any other known format are never reported as outdated.
func WithDownloadableFormats(formats ...string) PluginCheckerOption {
	return func(p *PluginChecker) {
		p.formats = formats
	}
}

// NewPluginChecker creates a PluginChecker. Only zip-packaged plugins are
// downloadable unless WithDownloadableFormats says otherwise.
func NewPluginChecker(opts ...PluginCheckerOption) *PluginChecker {
	p := &PluginChecker{formats: []string{registry.FormatArchive.String()}}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = remote.New()
	}
	p.logger = logging.OrNop(p.logger).Named("plugin-updater")
	return p
}

// Check fetches updateURL and reports whether plugin is outdated. Failures
// are logged and produce the default result.
func (p *PluginChecker) Check(ctx context.Context, plugin registry.InstalledPlugin, updateURL string) *Result {
	res := NewResult()
	if updateURL == "" {
		return res
	}
	if plugin.Format != "" && !slices.Contains(p.formats, plugin.Format) {
		p.logger.Debug("no downloader for plugin format", zap.String("plugin", plugin.Name), zap.String("format", plugin.Format))
		return res
	}

	var doc publishedVersion
	err := p.client.FetchJSON(ctx, updateURL, &doc)
	if err == nil {
		err = doc.validate(updateURL)
	}
	if err != nil {
		p.logger.Warn("plugin update check failed", zap.String("plugin", plugin.Name), zap.Error(err))
		return res
	}
	published := version.New(*doc.Major, *doc.Minor)

	res.LocalVersion = plugin.Version.String()
	res.ExternalVersion = published.String()
	if published.Newer(plugin.Version) {
		res.NeedsUpdate = true
		res.Message = fmt.Sprintf("%s needs an update. local version: %s external version: %s",
			plugin.Name, res.LocalVersion, res.ExternalVersion)
		p.logger.Info(res.Message)
	}
	return res
}
