package updater

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// CheckAndRemember runs Check and stores the result in the cache under dir.
// A failure to save is logged, not returned.
func (u *CoreUpdater) CheckAndRemember(ctx context.Context, fsys afero.Fs, dir string) (*Result, error) {
	res, err := u.Check(ctx)
	if err != nil {
		return nil, err
	}
	cache := &CheckCache{
		InstallType: u.installType.String(),
		Result:      res,
		CheckedAt:   time.Now(),
	}
	if err := SaveCache(fsys, dir, cache); err != nil {
		u.logger.Warn("saving update check cache failed", zap.Error(err))
	}
	return res, nil
}

// PrintBanner prints an update banner to w when the cached check under dir
// says an update is available and reports whether the cache is stale. It
// never touches the network.
func PrintBanner(w io.Writer, fsys afero.Fs, dir, cliName string, now time.Time) (stale bool) {
	cache, err := LoadCache(fsys, dir)
	if err != nil {
		return true
	}
	if cache != nil && cache.Result != nil && cache.Result.NeedsUpdate {
		PrintUpdateBanner(w, cache.Result, cliName)
	}
	return IsCacheStale(cache, DefaultCacheMaxAge, now)
}

// PrintUpdateBanner prints the update notification for res to w.
func PrintUpdateBanner(w io.Writer, res *Result, cliName string) {
	fmt.Fprintf(w, "\nUpdate available: %s\n", res.Message)
	fmt.Fprintf(w, "    Run `%s check` for details\n\n", cliName)
}
