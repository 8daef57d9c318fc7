package cli

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gl-zkPass/zkpass-core/internal/apikeys"
	"github.com/gl-zkPass/zkpass-core/internal/cachebus"
	"github.com/gl-zkPass/zkpass-core/internal/clock"
	"github.com/gl-zkPass/zkpass-core/internal/config"
	"github.com/gl-zkPass/zkpass-core/internal/jwksclient"
	"github.com/gl-zkPass/zkpass-core/internal/keys"
	"github.com/gl-zkPass/zkpass-core/internal/pkcache"
	"github.com/gl-zkPass/zkpass-core/internal/wire"
	"github.com/gl-zkPass/zkpass-core/internal/ws/httpapi"
	"github.com/gl-zkPass/zkpass-core/internal/ws/mainsock"
	"github.com/gl-zkPass/zkpass-core/internal/ws/utilserver"
	"github.com/gl-zkPass/zkpass-core/internal/wskeys"
)

// serviceVersion is compared against the X-zkPass-Client header's
// major.minor to gate requests from incompatible SDK builds.
const serviceVersion = "0.1.0"

// keyManagementVerifyingKeyEnvVar names the file holding the long-lived
// key-management verifying public key used to check the JWS key tokens at
// PrivateKeyFilePath. It is provisioned out of band by whoever operates
// the key-management process that originally signed those tokens, so it
// follows the same direct-os.Getenv bootstrap convention as KEY_SERVICE and
// PRIVATE_KEY_LOCAL_SECRET rather than routing through internal/config.
const keyManagementVerifyingKeyEnvVar = "KEY_MANAGEMENT_VERIFYING_KEY_FILE_PATH"

func newWSServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the zkPass web service",
		RunE:  runWSServe,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runWSServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	path := resolveConfigPath("ZKPASS_WS_CONFIG", "./configs/zkpass-ws.yaml")
	loader, err := config.NewLoaderWithFlags(path, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg, err := loader.Get()
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	log := newLogger(cfg.Shared.LogLevel)

	mgmtKey, err := loadKeyManagementVerifyingKey()
	if err != nil {
		return fmt.Errorf("load key management verifying key: %w", err)
	}

	tokens, err := wskeys.LoadKeyTokens(cfg.WS.PrivateKeyFilePath, mgmtKey)
	if err != nil {
		return fmt.Errorf("load key tokens: %w", err)
	}

	apiKeyStore, err := apikeys.New(ctx, apikeys.Config{
		Source:   cfg.WS.APIKeys.Source,
		FilePath: cfg.WS.APIKeys.File,
		Postgres: apikeys.PostgresConfig{ConnectionString: cfg.WS.APIKeys.DatabaseURL},
	})
	if err != nil {
		return fmt.Errorf("build api key store: %w", err)
	}

	cache, err := buildPublicKeyCache(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("build public key cache: %w", err)
	}

	jwksPub, err := httpapi.NewJWKSPublisher(cfg.WS.JWKSFilePath)
	if err != nil {
		return fmt.Errorf("load service jwks: %w", err)
	}

	registry := wire.NewFDRegistry()
	defer registry.CloseAll()

	main, err := wire.Connect(ctx, wire.UnixDialer(cfg.Shared.LocalSocketFile), registry, log)
	if err != nil {
		return fmt.Errorf("connect to host main socket: %w", err)
	}
	mainSocket := mainsock.New(main)

	health, err := httpapi.NewHealthChecker(mainSocket, tokens.ECDH.PublicKey, cfg.Shared.ZkVMBackends)
	if err != nil {
		return fmt.Errorf("build healthchecker: %w", err)
	}

	utilLn, err := wire.ListenUnix(cfg.Shared.UtilLocalSocketFile)
	if err != nil {
		return fmt.Errorf("listen on util socket: %w", err)
	}

	utilDeps := utilserver.Deps{
		JWKS:      jwksclient.New(10 * time.Second),
		Cache:     cache,
		KeyTokens: tokens,
		KeyConfig: wskeys.ConfigFromEnv(),
		Log:       log,
	}

	router := httpapi.NewRouter(httpapi.Config{
		Main:        mainSocket,
		APIKeys:     apiKeyStore,
		Cache:       cache,
		JWKS:        jwksPub,
		Health:      health,
		ServiceVer:  serviceVersion,
		CORSOrigins: cfg.WS.CORSOrigins,
		Log:         log,
	})

	requestTimeout, err := time.ParseDuration(cfg.WS.ClientRequestTimeout)
	if err != nil || requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WS.HTTPPort),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return wire.Serve(gctx, utilLn, registry, log, utilserver.NewHandler(utilDeps))
	})

	if cfg.Shared.RabbitMQURL != "" {
		sub, err := cachebus.Subscribe(cachebus.Config{URL: cfg.Shared.RabbitMQURL, Queue: cfg.Shared.CacheRebuildQueue})
		if err != nil {
			return fmt.Errorf("subscribe to cache rebuild queue: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			return sub.Close(context.Background())
		})
		go apikeys.WatchReload(gctx, apiKeyStore, apikeys.ReloadSignal(sub.Signal), logrus.NewEntry(log))
	}

	g.Go(func() error {
		log.WithField("port", cfg.WS.HTTPPort).Info("zkpass-ws listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func loadKeyManagementVerifyingKey() (*ecdsa.PublicKey, error) {
	path := os.Getenv(keyManagementVerifyingKeyEnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s is not set", keyManagementVerifyingKeyEnvVar)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var pk keys.PublicKey
	if err := json.Unmarshal(raw, &pk); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return pk.ToECDSA()
}

func buildPublicKeyCache(ctx context.Context, cfg config.Config) (pkcache.Cache, error) {
	ttl := time.Duration(cfg.WS.PublicKeyCacheTimeoutSeconds) * time.Second
	if ttl <= 0 {
		ttl = pkcache.TTLFromEnv()
	}

	if cfg.WS.PublicKeyCacheRedisURL == "" {
		return pkcache.NewTimedCache(ttl, clock.NewSystemClock()), nil
	}

	return pkcache.NewRedisCache(ctx, pkcache.RedisConfig{
		ConnectionURL: cfg.WS.PublicKeyCacheRedisURL,
		KeyPrefix:     "zkpass:pkcache:",
		TTL:           ttl,
	})
}
