package mainsock

import (
	"context"
	"fmt"
	"sync"

	"github.com/gl-zkPass/zkpass-core/internal/wire"
)

// Socket is the RWMutex-guarded cell holding WS's one connection to H's
// main socket. Call holds the write lock for a full request/response
// exchange, serializing concurrent HTTP handlers onto the connection.
// Connected only takes the read lock, for callers that need to observe
// connection state without contending with an in-flight Call.
type Socket struct {
	mu   sync.RWMutex
	conn *wire.Conn
}

// New wraps an already-established connection to H's main socket.
func New(conn *wire.Conn) *Socket {
	return &Socket{conn: conn}
}

// Call sends payload and waits for H's response, holding the socket's write
// lock for the full exchange so concurrent callers serialize rather than
// interleave frames on the wire.
func (s *Socket) Call(ctx context.Context, payload []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, fmt.Errorf("main socket not connected")
	}
	return s.conn.SendRecv(ctx, payload)
}

// Replace swaps in a new underlying connection, e.g. after a supervisor
// reconnects following H's restart.
func (s *Socket) Replace(conn *wire.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

// Connected reports whether a connection is currently set, without
// attempting any I/O.
func (s *Socket) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}
