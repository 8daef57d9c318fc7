package processadapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gl-zkPass/zkpass-core/internal/version"
	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
	"github.com/gl-zkPass/zkpass-core/internal/zkvm"
)

// writeFakeBinary writes an executable shell script standing in for a zkVM
// engine binary: each script ignores its arguments and stdin content and
// echoes the fixed JSON response it was written with.
func writeFakeBinary(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-engine.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestEngine_Execute_Success(t *testing.T) {
	path := writeFakeBinary(t, `#!/bin/sh
cat >/dev/null
echo '{"receipt_b64":"deadbeef"}'
`)
	engine := New(Config{BinaryPath: path})

	out, err := engine.Execute(context.Background(), zkvm.ExecuteInput{Query: "q", UserData: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", out.ReceiptB64)
}

func TestEngine_Execute_EngineReportsError(t *testing.T) {
	path := writeFakeBinary(t, `#!/bin/sh
cat >/dev/null
echo '{"error":"query parse failed"}'
`)
	engine := New(Config{BinaryPath: path})

	_, err := engine.Execute(context.Background(), zkvm.ExecuteInput{})
	require.Error(t, err)
	assert.True(t, zkerr.Is(err, zkerr.KindProofGeneration))
}

func TestEngine_Execute_SubprocessFails(t *testing.T) {
	path := writeFakeBinary(t, `#!/bin/sh
cat >/dev/null
echo "bad input" >&2
exit 1
`)
	engine := New(Config{BinaryPath: path})

	_, err := engine.Execute(context.Background(), zkvm.ExecuteInput{})
	require.Error(t, err)
	assert.True(t, zkerr.Is(err, zkerr.KindProofGeneration))
}

func TestEngine_Verify_Success(t *testing.T) {
	path := writeFakeBinary(t, `#!/bin/sh
cat >/dev/null
echo '{"journal_json":{"result":true}}'
`)
	engine := New(Config{BinaryPath: path})

	out, err := engine.Verify(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":true}`, string(out.JournalJSON))
}

func TestEngine_VersionAccessors(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "image.bin")
	require.NoError(t, os.WriteFile(imagePath, []byte("program image bytes"), 0o644))

	engine := New(Config{ProgramImagePath: imagePath})
	assert.Len(t, engine.QueryMethodVersion(), 64) // hex SHA-256
	assert.Equal(t, version.Version, engine.QueryEngineVersion())
}

func TestEngine_VersionAccessors_MissingImageFile(t *testing.T) {
	engine := New(Config{ProgramImagePath: "/nonexistent/image.bin"})
	assert.Equal(t, "", engine.QueryMethodVersion())
}
