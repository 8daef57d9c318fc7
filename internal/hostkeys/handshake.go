package hostkeys

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gl-zkPass/zkpass-core/internal/wire"
	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
)

// KMSBinaryPath is the default location of the AWS Nitro Enclaves helper
// kmstool_enclave_cli expects to be installed at.
const KMSBinaryPath = "/usr/bin/kmstool_enclave_cli"

// RunHandshake performs H's startup key handshake over util: request the
// still-encrypted key pairs from WS, then decrypt them in place via
// whichever KeyService the response selects, storing the result in cell.
func RunHandshake(ctx context.Context, util wire.UtilChannel, cell *HostKeyPairs) error {
	payload, err := wire.EncodePayload(wire.OpRequestFetchingPrivateKeysHost, "")
	if err != nil {
		return fmt.Errorf("encode fetch-private-keys request: %w", err)
	}

	respRaw, err := util.SendRecv(ctx, payload)
	if err != nil {
		return fmt.Errorf("fetch private keys from ws: %w", err)
	}
	if wire.IsErrorBody(respRaw) {
		return zkerr.New(zkerr.KindKMSConnection, fmt.Sprintf("ws reported error fetching private keys: %s", string(respRaw)))
	}

	var wireResp HostKeyPairsWire
	if err := json.Unmarshal(respRaw, &wireResp); err != nil {
		return zkerr.Wrap(zkerr.KindDeserialize, "decode host key pairs response", err)
	}

	signing, ecdh := wireResp.ToPlaceholderPairs()
	cell.Set(signing, ecdh)

	var svc KeyService
	switch wireResp.KeyService {
	case KeyServiceKMS:
		if wireResp.DecryptionRequest == nil {
			return zkerr.New(zkerr.KindKMSConnection, "kms key service selected without a decryption request")
		}
		svc = NewKMSKeyService(KMSBinaryPath, *wireResp.DecryptionRequest)
	case KeyServiceNative:
		svc, err = nativeServiceFromEnv()
		if err != nil {
			return err
		}
	default:
		return zkerr.New(zkerr.KindKMSConnection, fmt.Sprintf("unrecognized key service %q", wireResp.KeyService))
	}

	decryptedSigning, err := decryptPair(ctx, svc, signing)
	if err != nil {
		return fmt.Errorf("decrypt signing key: %w", err)
	}
	decryptedECDH, err := decryptPair(ctx, svc, ecdh)
	if err != nil {
		return fmt.Errorf("decrypt ecdh key: %w", err)
	}

	cell.Set(decryptedSigning, decryptedECDH)
	return nil
}

func decryptPair(ctx context.Context, svc KeyService, pair KeyPair) (KeyPair, error) {
	cleartext, err := svc.Decrypt(ctx, pair.PrivateKey)
	if err != nil {
		return KeyPair{}, err
	}
	pair.PrivateKey = cleartext
	pair.Decrypted = true
	return pair, nil
}

func nativeServiceFromEnv() (*NativeKeyService, error) {
	secret, err := requireEnv("PRIVATE_KEY_LOCAL_SECRET")
	if err != nil {
		return nil, err
	}
	return NewNativeKeyService(secret)
}
