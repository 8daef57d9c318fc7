package zkvm

import (
	"context"
	"fmt"

	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
)

// recoveringEngine wraps a ZkPassQueryEngine so a panic inside Execute or
// Verify is converted to an unhandled-panic error instead of crashing H's
// request-handling goroutine.
type recoveringEngine struct {
	inner ZkPassQueryEngine
}

// WithPanicRecovery wraps engine so its Execute/Verify calls convert a
// panic to zkerr.KindUnhandledPanic, letting H's request loop continue
// serving subsequent requests.
func WithPanicRecovery(engine ZkPassQueryEngine) ZkPassQueryEngine {
	return &recoveringEngine{inner: engine}
}

func (e *recoveringEngine) Execute(ctx context.Context, input ExecuteInput) (out ExecuteOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = zkerr.New(zkerr.KindUnhandledPanic, fmt.Sprintf("panic in zkvm execute: %v", r))
		}
	}()
	return e.inner.Execute(ctx, input)
}

func (e *recoveringEngine) Verify(ctx context.Context, receiptB64 string) (out VerifyOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = zkerr.New(zkerr.KindUnhandledPanic, fmt.Sprintf("panic in zkvm verify: %v", r))
		}
	}()
	return e.inner.Verify(ctx, receiptB64)
}

func (e *recoveringEngine) QueryMethodVersion() string { return e.inner.QueryMethodVersion() }
func (e *recoveringEngine) QueryEngineVersion() string { return e.inner.QueryEngineVersion() }
