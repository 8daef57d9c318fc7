// Package zkvm defines the pluggable query-engine capability proof
// generation and verification run against, and a named-backend registry so
// the DVR's zkvm selector picks a concrete adapter at runtime.
package zkvm

import (
	"context"
	"encoding/json"
)

// ExecuteInput is what a backend needs to run a query inside the zkVM and
// produce a proof receipt.
type ExecuteInput struct {
	// UserData is the {tag: payload} map (or the lone payload, for the
	// single empty-tag case) the query runs against.
	UserData json.RawMessage
	// Query is the DVR's query-language program.
	Query string
	// CurrentDate is days-since-epoch, supplied by H so queries like
	// get_age can be deterministic regardless of wall-clock skew between
	// H and the zkVM guest.
	CurrentDate int32
}

// ExecuteOutput is a successful proof-generation result.
type ExecuteOutput struct {
	// ReceiptB64 is the base64-encoded, engine-serialized receipt —
	// opaque outside the engine that produced it.
	ReceiptB64 string
}

// VerifyOutput is a successful proof-verification result: the query's
// output object, as JSON.
type VerifyOutput struct {
	JournalJSON json.RawMessage
}

// ZkPassQueryEngine is the fixed capability every backend (RISC Zero, SP1,
// ...) implements.
type ZkPassQueryEngine interface {
	// Execute runs input.Query against input.UserData inside the zkVM and
	// returns the resulting proof receipt.
	Execute(ctx context.Context, input ExecuteInput) (ExecuteOutput, error)

	// Verify checks receiptB64 against the backend's embedded program
	// image id and extracts its journal (output object, as JSON).
	Verify(ctx context.Context, receiptB64 string) (VerifyOutput, error)

	// QueryMethodVersion is a hex-encoded identifier of the query program
	// image bound into this backend build. Both processadapter backends
	// (r0 and sp1) report the hex SHA-256 of their program image file; no
	// RISC Zero method-id array is computed.
	QueryMethodVersion() string

	// QueryEngineVersion is the engine crate/binary's own version string.
	QueryEngineVersion() string
}
