package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xdm-project/xdm-updater/internal/branding"
	"github.com/xdm-project/xdm-updater/internal/config"
	"github.com/xdm-project/xdm-updater/internal/installer"
	"github.com/xdm-project/xdm-updater/internal/logging"
	"github.com/xdm-project/xdm-updater/internal/manifest"
	"github.com/xdm-project/xdm-updater/internal/registry"
	"github.com/xdm-project/xdm-updater/internal/remote"
	"github.com/xdm-project/xdm-updater/internal/repostore"
	"github.com/xdm-project/xdm-updater/internal/updater"
)

// app holds the collaborators shared by every command.
type app struct {
	settings config.Settings
	fs       afero.Fs
	logger   *zap.Logger
	client   *remote.Client
	store    *repostore.Store
	scanner  *manifest.Scanner
}

// newApp loads the configuration and builds the shared collaborators.
func newApp() (*app, error) {
	config.Load()
	return newAppWith(afero.NewOsFs(), config.Current())
}

func newAppWith(fsys afero.Fs, s config.Settings) (*app, error) {
	logger, err := logging.New(s.LogFormat, s.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	store, err := repostore.Open(fsys, s.RepositoriesFile)
	if err != nil {
		return nil, fmt.Errorf("opening repository list: %w", err)
	}

	return &app{
		settings: s,
		fs:       fsys,
		logger:   logger,
		client: remote.New(
			remote.WithTimeout(s.HTTPTimeout),
			remote.WithUserAgent(branding.UserAgent()),
		),
		store:   store,
		scanner: manifest.NewScanner(fsys, logger, s.ExtraPluginPath, s.PluginInstallPath),
	}, nil
}

// registry builds a Registry with the archive installer attached.
func (a *app) registry() (*registry.Registry, error) {
	policy, err := installer.ParseCollisionPolicy(a.settings.CollisionPolicy)
	if err != nil {
		return nil, err
	}
	archive := installer.NewArchive(a.settings.TempPath,
		installer.WithFs(a.fs),
		installer.WithClient(a.client),
		installer.WithCollisionPolicy(policy),
		installer.WithLogger(a.logger),
	)
	return registry.New(registry.Config{
		Store:     a.store,
		Installed: a.scanner,
		Installers: map[registry.Format]registry.Installer{
			registry.FormatArchive: archive,
		},
		PluginInstallPath: a.settings.PluginInstallPath,
		ExtraPluginPath:   a.settings.ExtraPluginPath,
		Fs:                a.fs,
		Client:            a.client,
		Logger:            a.logger,
	}), nil
}

// coreUpdater builds the updater for the XDM install at the configured app path.
func (a *app) coreUpdater() *updater.CoreUpdater {
	env := updater.CurrentEnvironment(a.settings.AppPath)
	env.Fs = a.fs
	return updater.New(updater.Config{AppPath: a.settings.AppPath, Env: &env}, updater.WithLogger(a.logger))
}

// pluginChecker builds a checker that only considers formats with an installer.
func (a *app) pluginChecker() *updater.PluginChecker {
	return updater.NewPluginChecker(
		updater.WithPluginClient(a.client),
		updater.WithPluginLogger(a.logger),
		updater.WithDownloadableFormats(registry.FormatArchive.String()),
	)
}

func (a *app) close() {
	_ = a.logger.Sync()
}
