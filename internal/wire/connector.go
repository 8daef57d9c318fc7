package wire

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
)

// MaxConnectionAttempts bounds how many times Connect retries an initial
// dial (as opposed to MaxReconnectionAttempts, which bounds mid-stream
// reconnects after a broken pipe).
const MaxConnectionAttempts = 60

// Connect dials repeatedly, 1s apart, until it succeeds, ctx is canceled, or
// MaxConnectionAttempts is exhausted. It is used for the initial connect to
// a peer that may not have started listening yet (e.g. WS starting before
// H finishes booting).
func Connect(ctx context.Context, dial Dialer, registry *FDRegistry, log logrus.FieldLogger) (*Conn, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	var lastErr error
	for attempt := 1; attempt <= MaxConnectionAttempts; attempt++ {
		conn, err := Dial(ctx, dial, registry, log)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.WithError(err).WithField("attempt", attempt).Debug("connect attempt failed, retrying")

		select {
		case <-ctx.Done():
			return nil, zkerr.Wrap(zkerr.KindConnection, "connect canceled", ctx.Err())
		case <-time.After(ReconnectBackoff):
		}
	}

	return nil, zkerr.Wrap(zkerr.KindConnection, "exhausted connection attempts", lastErr)
}
