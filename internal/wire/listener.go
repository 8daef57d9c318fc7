package wire

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
)

// Listener is the capability both transports (unix, vsock) provide to
// Serve: Accept, Close, and an address for logging.
type Listener interface {
	Accept() (net.Conn, error)
	Close() error
	Addr() net.Addr
}

// Handler processes one accepted connection until it closes or errors.
type Handler func(ctx context.Context, conn *Conn)

// Serve races Accept against ctx cancellation: each accepted connection is
// registered in registry and handed to handler on its own goroutine. When
// ctx is canceled, Serve closes the listener (unblocking any in-flight
// Accept) and returns; it does not wait for in-flight handlers to finish,
// matching §5 ("Handlers in flight finish or fail naturally").
func Serve(ctx context.Context, ln Listener, registry *FDRegistry, log logrus.FieldLogger, handler Handler) error {
	if log == nil {
		log = logrus.StandardLogger()
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		if registry != nil {
			registry.Add(nc)
		}

		conn := NewConn(nc, nil, log)
		go handler(ctx, conn)
	}
}
