package config

// Config is the root configuration structure shared by both binaries. Each
// reads only the sections relevant to its process (WS reads WS plus
// Shared; H reads Host plus Shared), but both load it through the same
// file→env→flags precedence so the env var table in the operating
// environment has one definition.
type Config struct {
	// Shared is loaded by both zkpass-ws and zkpass-host.
	Shared SharedConfig `koanf:"shared"`

	// WS configures the web-service process.
	WS WSConfig `koanf:"ws"`

	// Host configures the host process.
	Host HostConfig `koanf:"host"`
}

// SharedConfig holds settings both processes need to agree on.
type SharedConfig struct {
	// LocalSocketFile is the AF_UNIX path for the main channel
	// (WS dials, H listens).
	LocalSocketFile string `koanf:"local_socket_file" usage:"path of the main IPC socket"`

	// UtilLocalSocketFile is the AF_UNIX path for the util channel
	// (H dials, WS listens).
	UtilLocalSocketFile string `koanf:"util_local_socket_file" usage:"path of the util IPC socket"`

	// MaxReconnectionAttempts is loaded but not read by either process; the
	// wire package redials a broken connection a fixed number of times.
	MaxReconnectionAttempts int `koanf:"max_reconnection_attempts" usage:"per-frame reconnection budget"`

	// LogLevel is the logrus level name ("debug", "info", "warn", "error").
	LogLevel string `koanf:"log_level" usage:"logrus level"`

	// ZkVMBackends lists which query-engine backends are registered
	// ("r0", "sp1"). H uses this to build its zkvm.Registry; WS uses the
	// same list to know which engines /healthcheck should probe.
	ZkVMBackends []string `koanf:"zkvm_backends"`

	// RabbitMQURL and CacheRebuildQueue locate the cache-invalidation bus.
	// Empty RabbitMQURL disables the subscriber entirely (the api-key
	// store still works, just without a push reload path). The bus only
	// reloads the api-key store; the public-key cache relies on its TTL.
	RabbitMQURL       string `koanf:"rabbitmq_url"`
	CacheRebuildQueue string `koanf:"cache_rebuild_queue" usage:"queue name for cache-rebuild notices"`
}

// WSConfig configures the internet-facing web service.
type WSConfig struct {
	// HTTPPort is the port the public HTTP surface listens on.
	HTTPPort int `koanf:"http_port" usage:"HTTP listen port"`

	// MaxWorkers is loaded but not read; the HTTP server does not cap its
	// concurrent handler goroutines.
	MaxWorkers int `koanf:"max_workers" usage:"HTTP worker concurrency limit"`

	// ClientRequestTimeout is the deadline for the HTTP server's graceful
	// shutdown (30s when unset or unparsable). Individual requests are cut
	// off by the router's fixed 30s timeout, not by this value.
	ClientRequestTimeout string `koanf:"client_request_timeout" usage:"HTTP graceful-shutdown timeout, e.g. 30s"`

	// CORSOrigins lists allowed CORS origins; empty means "*".
	CORSOrigins []string `koanf:"cors_origins"`

	// APIKeys configures the Basic-auth credential store.
	APIKeys APIKeysConfig `koanf:"api_keys"`

	// JWKSFilePath points at the service's own published JWKS.
	JWKSFilePath string `koanf:"jwks_file_path" usage:"path to this service's published JWKS"`

	// PrivateKeyFilePath points at the JWS-wrapped signing/ECDH key tokens
	// WS holds on H's behalf.
	PrivateKeyFilePath string `koanf:"private_key_file_path" usage:"path to the encrypted key-token file"`

	// PublicKeyCacheTimeoutSeconds is the public-key cache TTL.
	PublicKeyCacheTimeoutSeconds int `koanf:"timeout_in_seconds" usage:"public key cache TTL in seconds"`

	// PublicKeyCacheRedisURL, if set, switches the cache to the Redis
	// backend for multi-instance deployments; empty means in-process.
	PublicKeyCacheRedisURL string `koanf:"public_key_cache_redis_url"`
}

// APIKeysConfig selects and parameterizes the api-key Store.
type APIKeysConfig struct {
	// Source is "file" or "database" (API_KEY_SOURCE).
	Source string `koanf:"source" usage:"api key source: file or database"`

	// File is the JSON keys file path (API_KEY_FILE), used when Source is "file".
	File string `koanf:"file" usage:"path to the api keys JSON file"`

	// DatabaseURL is the Postgres connection string (DATABASE_URL), used
	// when Source is "database".
	DatabaseURL string `koanf:"database_url"`
}

// HostConfig holds the host process's key-service settings. They are loaded
// but not read by either process: the decryption path follows the key
// service named in WS's key-token response, and the native secret and KMS
// settings come from environment variables read directly by the key code.
type HostConfig struct {
	// KeyService selects "native" (local symmetric secret) or "kms"
	// (kmstool_enclave_cli subprocess) private-key decryption.
	KeyService string `koanf:"key_service" usage:"native or kms"`

	// PrivateKeyLocalSecret is the symmetric secret used in native mode.
	PrivateKeyLocalSecret string `koanf:"private_key_local_secret"`

	// AWSKMSKeyID, AWSKMSRegion, AWSKMSProxyPort configure kms mode.
	AWSKMSKeyID     string `koanf:"aws_kms_key_id"`
	AWSKMSRegion    string `koanf:"aws_kms_region"`
	AWSKMSProxyPort int    `koanf:"aws_kms_proxy_port"`
}

// Each registered backend locates its own prover binary and program image
// from a fixed, backend-specific env var pair (RISC0_PROVER_PATH /
// RISC0_PROGRAM_IMAGE_PATH, SP1_PROVER_PATH / SP1_PROGRAM_IMAGE_PATH — see
// internal/zkvm/risc0 and internal/zkvm/sp1), the same direct-os.Getenv
// convention as the rest of the key-management bootstrap path. Routing
// those paths through this struct would just be a second, unread copy of
// the same configuration.
