package hostkeys

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
)

// KeyService decrypts a single ciphertext private key into its cleartext
// form.
type KeyService interface {
	Decrypt(ctx context.Context, ciphertextB64 string) (cleartext string, err error)
}

// NativeKeyService decrypts with AES-256-GCM under a key derived by
// SHA-256-hashing an env-sourced secret (PRIVATE_KEY_LOCAL_SECRET). The
// ciphertext is base64(nonce || sealed), matching the nonce-prefix
// convention the GCM construction expects on decrypt.
type NativeKeyService struct {
	aead cipher.AEAD
}

// NewNativeKeyService derives a 256-bit key from secret via SHA-256 and
// builds the corresponding AES-GCM cipher.
func NewNativeKeyService(secret string) (*NativeKeyService, error) {
	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("build aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("build gcm: %w", err)
	}

	return &NativeKeyService{aead: aead}, nil
}

func (s *NativeKeyService) Decrypt(_ context.Context, ciphertextB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", zkerr.Wrap(zkerr.KindKMSConnection, "decode ciphertext", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", zkerr.New(zkerr.KindKMSConnection, "ciphertext shorter than nonce")
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	cleartext, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", zkerr.Wrap(zkerr.KindKMSConnection, "aes-gcm open", err)
	}

	return string(cleartext), nil
}

// Seal is the inverse of Decrypt, used to produce test fixtures; neither
// process calls it.
func (s *NativeKeyService) Seal(cleartext string, nonce []byte) (string, error) {
	if len(nonce) != s.aead.NonceSize() {
		return "", zkerr.New(zkerr.KindKMSConnection, "wrong nonce size")
	}
	sealed := s.aead.Seal(nil, nonce, []byte(cleartext), nil)
	return base64.StdEncoding.EncodeToString(append(append([]byte{}, nonce...), sealed...)), nil
}

// KMSKeyService decrypts by shelling out to kmstool_enclave_cli, the AWS
// Nitro Enclaves helper binary that speaks to the KMS proxy over vsock on
// H's behalf. H never holds long-lived AWS credentials: the transient
// STS-assumed credentials in req are fed to the subprocess on each call.
type KMSKeyService struct {
	binaryPath string
	req        DecryptionRequest
}

// NewKMSKeyService returns a KeyService that invokes binaryPath (typically
// "/usr/bin/kmstool_enclave_cli") with req's transient credentials.
func NewKMSKeyService(binaryPath string, req DecryptionRequest) *KMSKeyService {
	return &KMSKeyService{binaryPath: binaryPath, req: req}
}

// kmsToolRequest is the JSON fed to kmstool_enclave_cli on stdin: the
// ciphertext to decrypt plus the credentials/region/key to decrypt it with.
type kmsToolRequest struct {
	Ciphertext      string `json:"ciphertext"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`
	Region          string `json:"region"`
	KeyID           string `json:"key_id"`
}

type kmsToolResponse struct {
	Plaintext string `json:"plaintext"`
	Error     string `json:"error,omitempty"`
}

func (s *KMSKeyService) Decrypt(ctx context.Context, ciphertextB64 string) (string, error) {
	reqBody, err := json.Marshal(kmsToolRequest{
		Ciphertext:      ciphertextB64,
		AccessKeyID:     s.req.AccessKeyID,
		SecretAccessKey: s.req.SecretAccessKey,
		SessionToken:    s.req.SessionToken,
		Region:          s.req.Region,
		KeyID:           s.req.KeyID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal kms tool request: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.binaryPath)
	cmd.Stdin = bytes.NewReader(reqBody)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", zkerr.Wrap(zkerr.KindKMSConnection, fmt.Sprintf("kmstool_enclave_cli failed: %s", stderr.String()), err)
	}

	var resp kmsToolResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", zkerr.Wrap(zkerr.KindKMSConnection, "decode kmstool_enclave_cli response", err)
	}
	if resp.Error != "" {
		return "", zkerr.New(zkerr.KindKMSConnection, resp.Error)
	}

	return resp.Plaintext, nil
}
