package apikeys

import (
	"context"

	"github.com/sirupsen/logrus"
)

// ReloadSignal is the seam a peripheral notification mechanism (a message
// bus subscription, a SIGHUP handler, a poll timer) drives to pick up
// newly-provisioned or revoked keys without a process restart. This package
// does not implement or assume any particular transport for that signal; it
// only exposes Store.Reload for something else to call.
type ReloadSignal <-chan struct{}

// WatchReload calls store.Reload every time signal fires, logging failures
// rather than propagating them: a missed reload should not take the process
// down, since the previous key set remains valid until the next success.
func WatchReload(ctx context.Context, store Store, signal ReloadSignal, log *logrus.Entry) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signal:
			if !ok {
				return
			}
			if err := store.Reload(ctx); err != nil {
				log.WithError(err).Warn("api key reload failed, keeping previous key set")
			}
		}
	}
}
