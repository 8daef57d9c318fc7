// Package utilsock holds H's single connection back to WS's util socket,
// used for resolving keyset-endpoint public keys, fetching WS's encrypted
// private key tokens during a handshake, and shipping log lines WS
// re-emits on H's behalf.
package utilsock

import (
	"context"
	"fmt"
	"sync"

	"github.com/gl-zkPass/zkpass-core/internal/wire"
)

// Socket is the Mutex-guarded cell holding H's one connection to WS's util
// socket.
type Socket struct {
	mu   sync.Mutex
	conn *wire.Conn
}

// New wraps an already-established connection to WS's util socket.
func New(conn *wire.Conn) *Socket {
	return &Socket{conn: conn}
}

// Call sends payload and waits for WS's response, blocking until the
// socket is free.
func (s *Socket) Call(ctx context.Context, payload []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, fmt.Errorf("util socket not connected")
	}
	return s.conn.SendRecv(ctx, payload)
}

// SendRecv satisfies wire.UtilChannel by delegating to Call, so a Socket can
// stand in anywhere a raw *wire.Conn is expected: the key handshake and the
// proof-generation pipeline both talk to H's util connection this way, and
// routing them through Call means their traffic shares Socket's mutex with
// TryEmitLog instead of racing it on the wire.
func (s *Socket) SendRecv(ctx context.Context, payload []byte) ([]byte, error) {
	return s.Call(ctx, payload)
}

// TryEmitLog attempts to ship one log line over the util socket without
// blocking: if the socket is already busy with another exchange, the line
// is dropped. This is the accepted fragility for the log-shipping path —
// correctness of proof generation never depends on a log line arriving.
func (s *Socket) TryEmitLog(ctx context.Context, payload []byte) (delivered bool) {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()

	if s.conn == nil {
		return false
	}
	_, _ = s.conn.SendRecv(ctx, payload)
	return true
}

// Replace swaps in a new underlying connection.
func (s *Socket) Replace(conn *wire.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}
