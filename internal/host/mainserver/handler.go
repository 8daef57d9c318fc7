// Package mainserver implements H's listening side of the main channel: it
// answers WS's generate_proof requests by driving proofgen.Pipeline, and is
// installed as the wire.Handler passed to wire.Serve on LocalSocketFile.
package mainserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gl-zkPass/zkpass-core/internal/wire"
)

// pipeline is the capability mainserver needs from internal/proofgen, named
// locally so this package doesn't force a concrete *proofgen.Pipeline on
// callers that want to substitute a fake in tests.
type pipeline interface {
	Generate(ctx context.Context, args wire.GenerateProofArgs) (string, error)
}

// NewHandler returns a wire.Handler that answers every generate_proof
// request on the connection by running it through p, one request at a
// time, for as long as the connection stays open.
func NewHandler(p pipeline, log logrus.FieldLogger) wire.Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return func(ctx context.Context, conn *wire.Conn) {
		for {
			req, err := conn.Recv()
			if err != nil {
				return
			}

			payload, err := wire.DecodePayload(req)
			if err != nil {
				respondError(ctx, conn, log, fmt.Errorf("decode main request: %w", err))
				continue
			}

			if payload.Op != wire.OpRequestGenerateProof {
				respondError(ctx, conn, log, fmt.Errorf("unrecognized main operation %q", payload.Op))
				continue
			}

			var args wire.GenerateProofArgs
			if err := json.Unmarshal(payload.Arg, &args); err != nil {
				respondError(ctx, conn, log, fmt.Errorf("decode generate-proof args: %w", err))
				continue
			}

			proof, err := p.Generate(ctx, args)
			if err != nil {
				respondError(ctx, conn, log, err)
				continue
			}

			if err := conn.Send(ctx, []byte(proof)); err != nil {
				log.WithError(err).Warn("failed to send generate-proof response")
			}
		}
	}
}

func respondError(ctx context.Context, conn *wire.Conn, log logrus.FieldLogger, err error) {
	log.WithError(err).Warn("generate-proof request failed")
	if sendErr := conn.Send(ctx, []byte("error: "+err.Error())); sendErr != nil {
		log.WithError(sendErr).Warn("failed to send main error response")
	}
}
