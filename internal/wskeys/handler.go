package wskeys

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/gl-zkPass/zkpass-core/internal/hostkeys"
	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
)

// Config configures BuildHostKeyPairsResponse: which decrypt path H should
// use and, for KMS mode, the parameters needed to mint transient
// credentials via STS AssumeRole.
type Config struct {
	KeyService hostkeys.KeyServiceKind
	SigningKid string
	ECDHKid    string
	KMS        KMSConfig
}

// KMSConfig names the AWS role/key H's kmstool_enclave_cli subprocess
// should use, resolved here via STS AssumeRole so H itself never holds
// long-lived AWS credentials.
type KMSConfig struct {
	RoleARN   string
	Region    string
	KeyID     string
	SessionID string
}

// BuildHostKeyPairsResponse answers H's request_fetching_private_keys_by_host:
// it packages the loaded, still-encrypted key tokens and, for KMS mode,
// resolves transient STS credentials for H's decrypt subprocess to use.
func BuildHostKeyPairsResponse(ctx context.Context, tokens *KeyTokens, cfg Config) (hostkeys.HostKeyPairsWire, error) {
	resp := hostkeys.HostKeyPairsWire{
		Signing: hostkeys.WireKeyPair{
			PrivateKeyCiphertext: tokens.Signing.PrivateKey,
			PublicKey:            tokens.Signing.PublicKey,
			Kid:                  cfg.SigningKid,
		},
		ECDH: hostkeys.WireKeyPair{
			PrivateKeyCiphertext: tokens.ECDH.PrivateKey,
			PublicKey:            tokens.ECDH.PublicKey,
			Kid:                  cfg.ECDHKid,
		},
		KeyService: cfg.KeyService,
	}

	if cfg.KeyService != hostkeys.KeyServiceKMS {
		return resp, nil
	}

	decReq, err := assumeRoleForKMS(ctx, cfg.KMS)
	if err != nil {
		return hostkeys.HostKeyPairsWire{}, fmt.Errorf("assume role for kms decrypt: %w", err)
	}
	resp.DecryptionRequest = &decReq

	return resp, nil
}

func assumeRoleForKMS(ctx context.Context, kmsCfg KMSConfig) (hostkeys.DecryptionRequest, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(kmsCfg.Region))
	if err != nil {
		return hostkeys.DecryptionRequest{}, zkerr.Wrap(zkerr.KindKMSConnection, "load aws config", err)
	}

	client := sts.NewFromConfig(awsCfg)

	sessionName := kmsCfg.SessionID
	if sessionName == "" {
		sessionName = "zkpass-host-decrypt"
	}

	out, err := client.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(kmsCfg.RoleARN),
		RoleSessionName: aws.String(sessionName),
	})
	if err != nil {
		return hostkeys.DecryptionRequest{}, zkerr.Wrap(zkerr.KindKMSConnection, "sts assume role", err)
	}
	if out.Credentials == nil {
		return hostkeys.DecryptionRequest{}, zkerr.New(zkerr.KindKMSConnection, "sts assume role returned no credentials")
	}

	return hostkeys.DecryptionRequest{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Region:          kmsCfg.Region,
		KeyID:           kmsCfg.KeyID,
	}, nil
}

// ConfigFromEnv reads KEY_SERVICE, HOST_SIGNING_KID, HOST_ECDH_KID,
// KMS_ROLE_ARN, AWS_REGION, and KMS_KEY_ID, defaulting KeyService to native
// when unset.
func ConfigFromEnv() Config {
	keyService := hostkeys.KeyServiceNative
	if os.Getenv("KEY_SERVICE") == string(hostkeys.KeyServiceKMS) {
		keyService = hostkeys.KeyServiceKMS
	}

	return Config{
		KeyService: keyService,
		SigningKid: envOr("HOST_SIGNING_KID", "host-signing-key"),
		ECDHKid:    envOr("HOST_ECDH_KID", "host-ecdh-key"),
		KMS: KMSConfig{
			RoleARN: os.Getenv("KMS_ROLE_ARN"),
			Region:  os.Getenv("AWS_REGION"),
			KeyID:   os.Getenv("KMS_KEY_ID"),
		},
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
