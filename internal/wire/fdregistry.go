package wire

import (
	"io"
	"sync"
)

// FDRegistry tracks every open connection so a shutdown signal can force
// them all closed, per §5 ("all registered socket FDs are shutdown and
// closed"). io.Closer is sufficient here: both net.UnixConn and the vsock
// connection type close their underlying file descriptor on Close.
type FDRegistry struct {
	mu    sync.Mutex
	conns []io.Closer
}

// NewFDRegistry creates an empty registry.
func NewFDRegistry() *FDRegistry {
	return &FDRegistry{}
}

// Add registers c for later shutdown.
func (r *FDRegistry) Add(c io.Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns = append(r.conns, c)
}

// CloseAll closes every registered connection, collecting but not stopping
// on individual errors.
func (r *FDRegistry) CloseAll() []error {
	r.mu.Lock()
	conns := r.conns
	r.conns = nil
	r.mu.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
