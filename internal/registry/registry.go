package registry

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/xdm-project/xdm-updater/internal/journal"
	"github.com/xdm-project/xdm-updater/internal/logging"
	"github.com/xdm-project/xdm-updater/internal/remote"
	"github.com/xdm-project/xdm-updater/internal/version"
)

// DefaultInstance is the plugin instance compared against repository listings.
const DefaultInstance = "Default"

var printer = message.NewPrinter(language.English)

// InstalledPlugin is a plugin already known to the host application.
type InstalledPlugin struct {
	Identifier string
	Name       string
	Version    version.Pair
	Path       string
	// Format is the packaging the plugin was installed from, "" if unknown.
	Format string
}

// InstalledPlugins exposes the host's installed plugin collection.
type InstalledPlugins interface {
	GetAll(instance string) []InstalledPlugin
}

// RepositoryRecord is a persisted repository entry.
type RepositoryRecord struct {
	Name string
	URL  string
}

// RepositoryStore persists the configured repositories.
type RepositoryStore interface {
	List() []RepositoryRecord
	Rename(url, name string) error
}

// Installer materializes a downloaded plugin into destination, reporting
// progress to j. A false return means the install failed; it is already
// journaled by the installer.
type Installer interface {
	Install(ctx context.Context, j *journal.Journal, d Descriptor, destination string) bool
}

// Outdated pairs an installed plugin with the newer remote descriptor.
type Outdated struct {
	Remote Descriptor
	Local  InstalledPlugin
}

// Config wires a Registry to its collaborators.
type Config struct {
	Store      RepositoryStore
	Installed  InstalledPlugins
	Installers map[Format]Installer

	// PluginInstallPath is the default destination for installs.
	PluginInstallPath string
	// ExtraPluginPath overrides PluginInstallPath when it is an existing directory.
	ExtraPluginPath string

	Fs     afero.Fs
	Client *remote.Client
	Logger *zap.Logger
	Now    func() time.Time
}

// Registry owns the configured repositories, aggregates their catalogs,
// tracks which installed plugins are outdated and drives installs.
type Registry struct {
	store      RepositoryStore
	installed  InstalledPlugins
	installers map[Format]Installer
	installDir string
	extraDir   string
	fs         afero.Fs
	client     *remote.Client
	logger     *zap.Logger
	now        func() time.Time
	journal    *journal.Journal

	mu          sync.RWMutex
	repos       []*Repository
	outdated    map[string]Outdated
	lastRefresh time.Time
	cached      bool
	refreshing  bool
}

// New creates a Registry with one Repository per stored record.
func New(cfg Config) *Registry {
	r := &Registry{
		store:      cfg.Store,
		installed:  cfg.Installed,
		installers: maps.Clone(cfg.Installers),
		installDir: cfg.PluginInstallPath,
		extraDir:   cfg.ExtraPluginPath,
		fs:         cfg.Fs,
		client:     cfg.Client,
		logger:     logging.OrNop(cfg.Logger).Named("registry"),
		now:        cfg.Now,
		journal:    journal.New(),
		outdated:   map[string]Outdated{},
	}
	if r.installers == nil {
		r.installers = map[Format]Installer{}
	}
	if r.fs == nil {
		r.fs = afero.NewOsFs()
	}
	if r.client == nil {
		r.client = remote.New()
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.Reload()
	return r
}

// Reload rebuilds the repository list from the store. Cached descriptors are
// dropped; call Refresh afterwards.
func (r *Registry) Reload() {
	var repos []*Repository
	if r.store != nil {
		for _, rec := range r.store.List() {
			repos = append(repos, NewRepository(rec.Name, rec.URL, r.client, r.logger))
		}
	}
	r.mu.Lock()
	r.repos = repos
	r.cached = false
	r.mu.Unlock()
}

// Repositories returns the current repositories.
func (r *Registry) Repositories() []*Repository {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.repos
}

// Descriptors returns every descriptor of every repository, in repository order.
func (r *Registry) Descriptors() []Descriptor {
	var out []Descriptor
	for _, repo := range r.Repositories() {
		out = append(out, repo.Plugins()...)
	}
	return out
}

// LastRefresh returns when Refresh last completed; zero if never.
func (r *Registry) LastRefresh() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastRefresh
}

// Cached reports whether a Refresh has completed since the last Reload.
func (r *Registry) Cached() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cached
}

// Refreshing reports whether a Refresh is in progress.
func (r *Registry) Refreshing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshing
}

// Refresh caches every repository. A failing repository is logged and left
// empty; it never stops the others. Remote-declared name changes are
// persisted through the store. When an installed plugin collection is
// configured the outdated set is recomputed afterwards.
func (r *Registry) Refresh(ctx context.Context) {
	r.mu.Lock()
	r.refreshing = true
	r.mu.Unlock()

	for _, repo := range r.Repositories() {
		if err := r.cacheRepository(ctx, repo); err != nil {
			r.logger.Error("repository had an error during cache", zap.Stringer("repository", repo), zap.Error(err))
			continue
		}
		r.persistName(repo)
	}

	r.mu.Lock()
	r.lastRefresh = r.now()
	r.cached = true
	r.refreshing = false
	r.mu.Unlock()

	if r.installed != nil {
		r.CheckForUpdates(r.installed.GetAll(DefaultInstance))
	}
}

func (r *Registry) cacheRepository(ctx context.Context, repo *Repository) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while caching: %v", rec)
		}
	}()
	return repo.Cache(ctx)
}

func (r *Registry) persistName(repo *Repository) {
	if r.store == nil {
		return
	}
	for _, rec := range r.store.List() {
		if rec.URL != repo.URL() || rec.Name == repo.Name() {
			continue
		}
		if err := r.store.Rename(rec.URL, repo.Name()); err != nil {
			r.logger.Error("persisting repository name failed", zap.String("url", rec.URL), zap.Error(err))
			continue
		}
		r.logger.Info("repository renamed", zap.String("url", rec.URL), zap.String("from", rec.Name), zap.String("to", repo.Name()))
	}
}

// CheckForUpdates computes which installed plugins have a strictly newer
// descriptor in any repository. Plugins without an identifier are skipped.
// When several entries qualify, the last one encountered wins. The result
// replaces the previous outdated set.
func (r *Registry) CheckForUpdates(installed []InstalledPlugin) map[string]Outdated {
	repos := r.Repositories()
	outdated := make(map[string]Outdated)
	for _, plugin := range installed {
		if plugin.Identifier == "" {
			continue
		}
		for _, repo := range repos {
			for _, d := range repo.Plugins() {
				if d.Identifier == plugin.Identifier && d.Version.Newer(plugin.Version) {
					outdated[plugin.Identifier] = Outdated{Remote: d, Local: plugin}
				}
			}
		}
	}

	r.logger.Info(printer.Sprintf("%d plugins have an update", len(outdated)))

	r.mu.Lock()
	r.outdated = outdated
	r.mu.Unlock()
	return maps.Clone(outdated)
}

// Outdated returns a copy of the last computed outdated set.
func (r *Registry) Outdated() map[string]Outdated {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.outdated)
}

// HasUpdate returns the remote version of an outdated plugin, or "".
func (r *Registry) HasUpdate(identifier string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if o, ok := r.outdated[identifier]; ok {
		return o.Remote.VersionHuman()
	}
	return ""
}

// IsOutdated reports whether identifier is in the outdated set.
func (r *Registry) IsOutdated(identifier string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.outdated[identifier]
	return ok
}

// Resolve returns the first descriptor for identifier, searching repositories
// in order and each repository's list in order.
func (r *Registry) Resolve(identifier string) (Descriptor, error) {
	for _, repo := range r.Repositories() {
		for _, d := range repo.Plugins() {
			if d.Identifier == identifier {
				return d, nil
			}
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %s", ErrNotFound, identifier)
}

// InstallPath returns the extra plugin path when it is an existing
// directory, otherwise the default install path.
func (r *Registry) InstallPath() string {
	if r.extraDir != "" {
		if ok, err := afero.IsDir(r.fs, r.extraDir); err == nil && ok {
			return r.extraDir
		}
	}
	return r.installDir
}

// Journal exposes the install journal for polling consumers.
func (r *Registry) Journal() *journal.Journal {
	return r.journal
}

// Messages returns the install messages not yet drained.
func (r *Registry) Messages() []journal.Message {
	return r.journal.Drain()
}

func (r *Registry) installerFor(d Descriptor) (Installer, error) {
	inst, ok := r.installers[d.Format]
	if !ok || inst == nil {
		return nil, &UnsupportedFormatError{Format: d.RawFormat}
	}
	return inst, nil
}

func (r *Registry) installedPlugin(identifier string) (InstalledPlugin, bool) {
	if r.installed == nil {
		return InstalledPlugin{}, false
	}
	for _, p := range r.installed.GetAll(DefaultInstance) {
		if p.Identifier == identifier {
			return p, true
		}
	}
	return InstalledPlugin{}, false
}

// Install downloads and installs the plugin with the given identifier,
// recording every step in the journal. It never returns an error: all
// failures are journaled and the journal always ends with the terminator.
// It reports whether files were installed.
func (r *Registry) Install(ctx context.Context, identifier string) (installed bool) {
	j := r.journal
	j.Reset(journal.Message{Level: journal.LevelInfo, Text: "install " + identifier})
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("install panicked", zap.String("identifier", identifier), zap.Any("panic", rec))
			j.Error("Installation failed: %v", rec)
			installed = false
		}
		j.Finish()
	}()

	j.Info("Getting download URL")
	d, err := r.Resolve(identifier)
	if err != nil {
		r.logger.Warn("install requested for unknown plugin", zap.String("identifier", identifier))
		j.Error("Could not find a plugin with identifier %s", identifier)
		return false
	}

	j.Info("Installing %s(%s)", d.Name, d.VersionHuman())

	if err := r.checkInstalled(j, d); err != nil {
		if errors.Is(err, ErrAlreadyUpToDate) {
			j.Info("%s is already installed and does not need an update", d.Name)
		} else {
			j.Error("%v", err)
		}
		return false
	}

	inst, err := r.installerFor(d)
	if err != nil {
		j.Error("Format %s is not supported", d.RawFormat)
		return false
	}

	dest := r.InstallPath()
	j.Info("Installing into %s", dest)
	j.Info("Starting download. please wait...")
	j.Info("%s", d.DownloadURL)

	if !inst.Install(ctx, j, d, dest) {
		r.logger.Error("plugin installation failed", zap.String("identifier", identifier))
		j.Error("Installation unsuccessful")
		return false
	}

	r.logger.Info("plugin installed", zap.String("identifier", identifier), zap.String("version", d.VersionHuman()), zap.String("path", dest))
	j.Info("Installation successful")
	return true
}

// checkInstalled journals the local state of d and returns
// ErrAlreadyUpToDate when the installed version is at least d's version.
func (r *Registry) checkInstalled(j *journal.Journal, d Descriptor) error {
	local, ok := r.installedPlugin(d.Identifier)
	if !ok {
		j.Info("%s is not yet installed", d.Name)
		return nil
	}
	if local.Version.AtLeast(d.Version) {
		return fmt.Errorf("%w: %s %s", ErrAlreadyUpToDate, d.Identifier, local.Version)
	}
	j.Info("%s is already installed but has an update", d.Name)
	return nil
}
