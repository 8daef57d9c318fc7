package httpapi

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/gl-zkPass/zkpass-core/internal/wire"
	"github.com/gl-zkPass/zkpass-core/internal/ws/mainsock"
)

// fakeAPIKeyStore is a minimal apikeys.Store double for handler/middleware
// tests that don't need a real file or database backend.
type fakeAPIKeyStore struct {
	apiKey, secret string
}

func (s fakeAPIKeyStore) Authenticate(_ context.Context, apiKey, secret string) (bool, error) {
	return apiKey == s.apiKey && secret == s.secret, nil
}

func (s fakeAPIKeyStore) Reload(_ context.Context) error { return nil }

// newLoopbackSocket wires a mainsock.Socket to an in-memory wire.Conn pair,
// with respond driving the other end: it reads one frame and writes back
// whatever it returns.
func newLoopbackSocket(respond func(op wire.OpName, arg []byte) []byte) *mainsock.Socket {
	client, server := net.Pipe()

	log := logrus.NewEntry(logrus.New())
	clientConn := wire.NewConn(client, nil, log)
	serverConn := wire.NewConn(server, nil, log)

	go func() {
		for {
			req, err := serverConn.Recv()
			if err != nil {
				return
			}
			payload, err := wire.DecodePayload(req)
			if err != nil {
				_ = serverConn.Send(context.Background(), []byte("error decoding payload"))
				continue
			}
			resp := respond(payload.Op, payload.Arg)
			if err := serverConn.Send(context.Background(), resp); err != nil {
				return
			}
		}
	}()

	return mainsock.New(clientConn)
}
