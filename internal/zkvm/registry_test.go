package zkvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	methodVer string
	engineVer string
}

func (f *fakeEngine) Execute(ctx context.Context, input ExecuteInput) (ExecuteOutput, error) {
	return ExecuteOutput{ReceiptB64: "receipt"}, nil
}

func (f *fakeEngine) Verify(ctx context.Context, receiptB64 string) (VerifyOutput, error) {
	return VerifyOutput{}, nil
}

func (f *fakeEngine) QueryMethodVersion() string { return f.methodVer }
func (f *fakeEngine) QueryEngineVersion() string { return f.engineVer }

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	engine := &fakeEngine{methodVer: "v1", engineVer: "v1"}

	require.NoError(t, r.Register("r0", engine))

	got, err := r.Get("r0")
	require.NoError(t, err)
	assert.Same(t, engine, got)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("r0", &fakeEngine{}))

	err := r.Register("r0", &fakeEngine{})
	assert.ErrorIs(t, err, ErrBackendExists)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("sp1")
	assert.ErrorIs(t, err, ErrBackendNotFound)
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("r0", &fakeEngine{}))
	require.NoError(t, r.Register("sp1", &fakeEngine{}))

	assert.ElementsMatch(t, []string{"r0", "sp1"}, r.Names())
}
