package wire

import (
	"context"
	"fmt"
	"net"
	"os"
)

// UnixDialer returns a Dialer for the AF_UNIX socket at path.
func UnixDialer(path string) Dialer {
	return func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", path)
	}
}

// UnixListener wraps a net.Listener bound to an AF_UNIX socket path,
// implementing the Listener capability used by Serve.
type UnixListener struct {
	ln   net.Listener
	path string
}

// ListenUnix binds an AF_UNIX stream socket at path, removing any stale
// socket file left behind by a previous, uncleanly-terminated process.
func ListenUnix(path string) (*UnixListener, error) {
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("resolve unix addr %s: %w", path, err)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
	}

	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}

	return &UnixListener{ln: ln, path: path}, nil
}

func (l *UnixListener) Accept() (net.Conn, error) { return l.ln.Accept() }
func (l *UnixListener) Close() error               { return l.ln.Close() }
func (l *UnixListener) Addr() net.Addr             { return l.ln.Addr() }
