// Package processadapter implements a ZkPassQueryEngine by shelling out to
// an external zkVM prover/verifier binary and speaking JSON over its
// stdin/stdout, the same boundary-crossing shape H already uses for its
// KMS decrypt path (kmstool_enclave_cli). No Go API for either zkVM
// runtime (RISC Zero, SP1) was available to bind against directly, so both
// backends share this adapter rather than each hand-rolling a cgo or RPC
// binding.
package processadapter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/gl-zkPass/zkpass-core/internal/version"
	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
	"github.com/gl-zkPass/zkpass-core/internal/zkvm"
)

// executeRequest/executeResponse and verifyRequest/verifyResponse are the
// JSON shapes exchanged with the subprocess on each call.
type executeRequest struct {
	UserData    json.RawMessage `json:"user_data"`
	Query       string          `json:"query"`
	CurrentDate int32           `json:"current_date"`
}

type executeResponse struct {
	ReceiptB64 string `json:"receipt_b64"`
	Error      string `json:"error,omitempty"`
}

type verifyRequest struct {
	ReceiptB64 string `json:"receipt_b64"`
}

type verifyResponse struct {
	JournalJSON json.RawMessage `json:"journal_json"`
	Error       string          `json:"error,omitempty"`
}

// Config names the subprocess binary and, optionally, the program image
// file whose hash identifies the query method version baked into it. The
// running binary embeds a fixed program image, so these do not change at
// runtime.
type Config struct {
	BinaryPath       string
	ProgramImagePath string
}

// Engine is a ZkPassQueryEngine backed by a subprocess.
type Engine struct {
	cfg       Config
	methodVer string
}

// New returns an Engine that invokes cfg.BinaryPath with a subcommand
// ("execute" or "verify") and a JSON request on stdin. QueryMethodVersion
// is computed once, eagerly, as the hex SHA-256 of cfg.ProgramImagePath;
// if that file can't be read, QueryMethodVersion reports an empty string
// rather than failing construction, since a backend misconfiguration
// should surface at call time through a failing Execute/Verify, not panic
// the caller building the registry.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, methodVer: hashProgramImage(cfg.ProgramImagePath)}
}

func hashProgramImage(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (e *Engine) Execute(ctx context.Context, input zkvm.ExecuteInput) (zkvm.ExecuteOutput, error) {
	reqBody, err := json.Marshal(executeRequest{
		UserData:    input.UserData,
		Query:       input.Query,
		CurrentDate: input.CurrentDate,
	})
	if err != nil {
		return zkvm.ExecuteOutput{}, fmt.Errorf("marshal execute request: %w", err)
	}

	out, err := e.run(ctx, "execute", reqBody)
	if err != nil {
		return zkvm.ExecuteOutput{}, err
	}

	var resp executeResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return zkvm.ExecuteOutput{}, zkerr.Wrap(zkerr.KindDeserialize, "decode execute response", err)
	}
	if resp.Error != "" {
		return zkvm.ExecuteOutput{}, zkerr.New(zkerr.KindProofGeneration, resp.Error)
	}

	return zkvm.ExecuteOutput{ReceiptB64: resp.ReceiptB64}, nil
}

func (e *Engine) Verify(ctx context.Context, receiptB64 string) (zkvm.VerifyOutput, error) {
	reqBody, err := json.Marshal(verifyRequest{ReceiptB64: receiptB64})
	if err != nil {
		return zkvm.VerifyOutput{}, fmt.Errorf("marshal verify request: %w", err)
	}

	out, err := e.run(ctx, "verify", reqBody)
	if err != nil {
		return zkvm.VerifyOutput{}, err
	}

	var resp verifyResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return zkvm.VerifyOutput{}, zkerr.Wrap(zkerr.KindDeserialize, "decode verify response", err)
	}
	if resp.Error != "" {
		return zkvm.VerifyOutput{}, zkerr.New(zkerr.KindProofGeneration, resp.Error)
	}

	return zkvm.VerifyOutput{JournalJSON: resp.JournalJSON}, nil
}

func (e *Engine) QueryMethodVersion() string { return e.methodVer }
func (e *Engine) QueryEngineVersion() string { return version.Version }

func (e *Engine) run(ctx context.Context, subcommand string, reqBody []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.cfg.BinaryPath, subcommand)
	cmd.Stdin = bytes.NewReader(reqBody)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, zkerr.Wrap(zkerr.KindProofGeneration, fmt.Sprintf("%s subprocess %s failed: %s", e.cfg.BinaryPath, subcommand, stderr.String()), err)
	}

	return stdout.Bytes(), nil
}
