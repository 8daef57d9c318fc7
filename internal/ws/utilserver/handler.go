// Package utilserver implements WS's listening side of the util channel:
// it answers the three requests H makes of WS during key handshake and
// proof generation (resolve a keyset endpoint's public key, hand over the
// still-encrypted host key pairs, re-emit a log line), and is installed as
// the wire.Handler passed to wire.Serve on UtilLocalSocketFile.
package utilserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gl-zkPass/zkpass-core/internal/keys"
	"github.com/gl-zkPass/zkpass-core/internal/pkcache"
	"github.com/gl-zkPass/zkpass-core/internal/wire"
	"github.com/gl-zkPass/zkpass-core/internal/wskeys"
)

// Deps bundles everything the util-channel handler needs to answer each of
// the three operations.
type Deps struct {
	JWKS      jwksResolver
	Cache     pkcache.Cache
	KeyTokens *wskeys.KeyTokens
	KeyConfig wskeys.Config
	Log       logrus.FieldLogger
}

// jwksResolver is the capability utilserver needs from internal/jwksclient,
// named locally so this package doesn't force its callers to import
// jwksclient just to build a Deps.
type jwksResolver interface {
	Resolve(ctx context.Context, endpoint keys.KeysetEndpoint, cached func() (keys.PublicKey, bool), store func(keys.PublicKey)) (keys.PublicKey, error)
}

// NewHandler returns a wire.Handler that serves deps' three operations for
// as long as the connection stays open, one request at a time.
func NewHandler(deps Deps) wire.Handler {
	log := deps.Log
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
				respondError(ctx, conn, log, fmt.Errorf("decode util request: %w", err))
				continue
			}

			switch payload.Op {
			case wire.OpRequestFetchingKeysByHost:
				deps.handleFetchKeys(ctx, conn, log, payload.Arg)
			case wire.OpRequestFetchingPrivateKeysHost:
				deps.handleFetchPrivateKeys(ctx, conn, log)
			case wire.OpRequestPrintingLogsByHost:
				deps.handlePrintLogs(ctx, conn, log, payload.Arg)
			default:
				respondError(ctx, conn, log, fmt.Errorf("unrecognized util operation %q", payload.Op))
			}
		}
	}
}

func (deps Deps) handleFetchKeys(ctx context.Context, conn *wire.Conn, log logrus.FieldLogger, arg json.RawMessage) {
	var args wire.FetchKeysArgs
	if err := json.Unmarshal(arg, &args); err != nil {
		respondError(ctx, conn, log, fmt.Errorf("decode fetch-keys args: %w", err))
		return
	}

	endpoint := keys.KeysetEndpoint{JKU: args.JKU, Kid: args.Kid}
	pk, err := deps.JWKS.Resolve(ctx, endpoint,
		func() (keys.PublicKey, bool) {
			entry, ok := deps.Cache.Get(endpoint)
			if !ok || entry.Expired {
				return keys.PublicKey{}, false
			}
			return entry.PublicKey, true
		},
		func(pk keys.PublicKey) { deps.Cache.Insert(endpoint, pk) },
	)
	if err != nil {
		respondError(ctx, conn, log, fmt.Errorf("resolve keyset endpoint %s#%s: %w", args.JKU, args.Kid, err))
		return
	}

	respondJSON(ctx, conn, log, pk)
}

func (deps Deps) handleFetchPrivateKeys(ctx context.Context, conn *wire.Conn, log logrus.FieldLogger) {
	resp, err := wskeys.BuildHostKeyPairsResponse(ctx, deps.KeyTokens, deps.KeyConfig)
	if err != nil {
		respondError(ctx, conn, log, fmt.Errorf("build host key pairs response: %w", err))
		return
	}
	respondJSON(ctx, conn, log, resp)
}

func (deps Deps) handlePrintLogs(ctx context.Context, conn *wire.Conn, log logrus.FieldLogger, arg json.RawMessage) {
	var args wire.PrintLogsArgs
	if err := json.Unmarshal(arg, &args); err != nil {
		respondError(ctx, conn, log, fmt.Errorf("decode print-logs args: %w", err))
		return
	}

	level, err := logrus.ParseLevel(args.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.WithField("source", "host").Log(level, args.Message)

	if err := conn.Send(ctx, []byte("ok")); err != nil {
		log.WithError(err).Warn("failed to acknowledge printed log line")
	}
}

func respondJSON(ctx context.Context, conn *wire.Conn, log logrus.FieldLogger, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		respondError(ctx, conn, log, fmt.Errorf("encode util response: %w", err))
		return
	}
	if err := conn.Send(ctx, raw); err != nil {
		log.WithError(err).Warn("failed to send util response")
	}
}

func respondError(ctx context.Context, conn *wire.Conn, log logrus.FieldLogger, err error) {
	log.WithError(err).Warn("util request failed")
	if sendErr := conn.Send(ctx, []byte("error: "+err.Error())); sendErr != nil {
		log.WithError(sendErr).Warn("failed to send util error response")
	}
}
