package wire

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
)

// MaxReconnectionAttempts bounds how many times a broken-pipe write retries
// a fresh connection before surfacing a connection error, per §4.1/§5.
const MaxReconnectionAttempts = 5

// ReconnectBackoff is the sleep between reconnection attempts.
var ReconnectBackoff = time.Second

// Dialer opens a fresh transport connection. Unix and vsock transports each
// provide one; Conn uses it to reconnect after a broken pipe without caring
// which transport is underneath.
type Dialer func(ctx context.Context) (net.Conn, error)

// Conn is a framed duplex connection with reconnect-on-broken-pipe behavior.
// It serializes reads and writes under a single mutex so a full request/response
// exchange (SendRecv) cannot interleave with another goroutine's frames on
// the same Conn.
type Conn struct {
	dial Dialer
	log  logrus.FieldLogger

	mu     sync.Mutex
	nc     net.Conn
	reader *bufio.Reader
}

// NewConn wraps an already-established net.Conn, keeping dial around so a
// broken pipe can be healed by reconnecting through it.
func NewConn(nc net.Conn, dial Dialer, log logrus.FieldLogger) *Conn {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Conn{
		dial:   dial,
		log:    log,
		nc:     nc,
		reader: bufio.NewReader(nc),
	}
}

// Dial opens a new Conn using the given dialer, registering the resulting
// file descriptor-owning net.Conn so it can be force-closed on shutdown.
func Dial(ctx context.Context, dial Dialer, registry *FDRegistry, log logrus.FieldLogger) (*Conn, error) {
	nc, err := dial(ctx)
	if err != nil {
		return nil, zkerr.Wrap(zkerr.KindConnection, "dial", err)
	}
	if registry != nil {
		registry.Add(nc)
	}
	return NewConn(nc, dial, log), nil
}

// Send writes one frame, retrying through reconnection on a broken pipe.
func (c *Conn) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(ctx, payload)
}

func (c *Conn) sendLocked(ctx context.Context, payload []byte) error {
	err := WriteFrame(c.nc, payload)
	if err == nil {
		return nil
	}
	if !isBrokenPipe(err) {
		return err
	}

	if rerr := c.reconnectLocked(ctx); rerr != nil {
		return rerr
	}
	// Retry the original write exactly once after reconnecting.
	return WriteFrame(c.nc, payload)
}

// Recv reads one frame. Remote error sniffing (§4.1) is applied by the
// caller, not here, since only the caller knows whether a given op's
// success payload could legitimately contain the substring "error".
func (c *Conn) Recv() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ReadFrame(c.reader)
}

// SendRecv performs one full request/response exchange under a single lock
// hold, which is how WS serializes concurrent HTTP requests onto its one
// main IPC connection (§5) and how H serializes util-channel callbacks.
func (c *Conn) SendRecv(ctx context.Context, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sendLocked(ctx, payload); err != nil {
		return nil, err
	}
	return ReadFrame(c.reader)
}

// TrySendRecv is the non-blocking variant used by the util-channel log
// sink (§4.1, §5): if the connection is already busy with another exchange,
// it returns false immediately instead of waiting, so a contended log write
// is silently dropped rather than stalling the caller.
func (c *Conn) TrySendRecv(ctx context.Context, payload []byte) (resp []byte, ok bool, err error) {
	if !c.mu.TryLock() {
		return nil, false, nil
	}
	defer c.mu.Unlock()

	if err := c.sendLocked(ctx, payload); err != nil {
		return nil, true, err
	}
	resp, err = ReadFrame(c.reader)
	return resp, true, err
}

func (c *Conn) reconnectLocked(ctx context.Context) error {
	if c.dial == nil {
		return zkerr.New(zkerr.KindConnection, "broken pipe and no dialer configured for reconnection")
	}

	var lastErr error
	for attempt := 1; attempt <= MaxReconnectionAttempts; attempt++ {
		nc, err := c.dial(ctx)
		if err == nil {
			_ = c.nc.Close()
			c.nc = nc
			c.reader = bufio.NewReader(nc)
			c.log.WithField("attempt", attempt).Info("reconnected after broken pipe")
			return nil
		}
		lastErr = err
		c.log.WithError(err).WithField("attempt", attempt).Warn("reconnection attempt failed")

		select {
		case <-ctx.Done():
			return zkerr.Wrap(zkerr.KindConnection, "reconnection canceled", ctx.Err())
		case <-time.After(ReconnectBackoff):
		}
	}

	return zkerr.Wrap(zkerr.KindConnection, fmt.Sprintf("exhausted %d reconnection attempts", MaxReconnectionAttempts), lastErr)
}

// Close closes the underlying transport connection.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nc.Close()
}

func isBrokenPipe(err error) bool {
	if errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var ze *zkerr.Error
	if errors.As(err, &ze) {
		err = errors.Unwrap(ze)
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return netErr.Err != nil && (errors.Is(netErr.Err, io.ErrClosedPipe) || isEPIPE(netErr.Err))
	}
	return isEPIPE(err)
}
