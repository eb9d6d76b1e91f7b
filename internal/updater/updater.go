package updater

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xdm-project/xdm-updater/internal/logging"
)

// Config describes the installation being checked.
type Config struct {
	// AppPath is the root of the XDM installation.
	AppPath string
	// Env overrides the detected environment. Nil means CurrentEnvironment(AppPath).
	Env *Environment
}

// CoreUpdater checks the running installation for updates. The install type
// is detected once, at construction.
type CoreUpdater struct {
	appPath     string
	installType InstallType
	strategy    Strategy
	logger      *zap.Logger
	checkout    Checkout

	mu   sync.Mutex
	last *Result
}

// Option configures a CoreUpdater.
type Option func(*CoreUpdater)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(u *CoreUpdater) {
		u.logger = l
	}
}

// WithCheckout supplies the checkout used by git installations instead of
// opening AppPath (useful for testing).
func WithCheckout(c Checkout) Option {
	return func(u *CoreUpdater) {
		u.checkout = c
	}
}

// New creates a CoreUpdater for cfg.
func New(cfg Config, opts ...Option) *CoreUpdater {
	env := CurrentEnvironment(cfg.AppPath)
	if cfg.Env != nil {
		env = *cfg.Env
	}
	u := &CoreUpdater{
		appPath:     cfg.AppPath,
		installType: Detect(env),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = logging.OrNop(u.logger).Named("updater")
	u.strategy = strategies[u.installType](u)
	return u
}

// InstallType returns the detected install type.
func (u *CoreUpdater) InstallType() InstallType {
	return u.installType
}

// LastResult returns the result of the last successful Check, or nil.
func (u *CoreUpdater) LastResult() *Result {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.last
}

// Check runs the strategy for the detected install type. Errors mean the
// update status is unknown.
func (u *CoreUpdater) Check(ctx context.Context) (*Result, error) {
	u.logger.Info(fmt.Sprintf("Checking if %s needs an update", u.installType))

	res, err := u.strategy.Check(ctx)
	if err != nil {
		u.logger.Error("update check failed", zap.Error(err))
		return nil, fmt.Errorf("checking %s install: %w", u.installType, err)
	}
	if !res.NeedsUpdate {
		u.logger.Info(res.Message)
	} else {
		u.logger.Info("update available",
			zap.String("local", res.LocalVersion),
			zap.String("external", res.ExternalVersion),
			zap.String("detail", res.Message))
	}

	u.mu.Lock()
	u.last = res
	u.mu.Unlock()
	return res, nil
}

func (u *CoreUpdater) openCheckout() (Checkout, error) {
	if u.checkout != nil {
		return u.checkout, nil
	}
	return OpenCheckout(u.appPath)
}
