// Package httpapi is WS's public HTTP surface: proof generation, cached
// public-key inspection/invalidation, an end-to-end healthcheck, and the
// service's own published JWKS. Handlers only do authentication, the
// client-version gate, and request-shape validation; every bit of domain
// logic (DVR/user-data verification, zkVM execution, proof assembly) stays
// in H and is reached only through the main IPC socket.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/gl-zkPass/zkpass-core/internal/apikeys"
	"github.com/gl-zkPass/zkpass-core/internal/pkcache"
	"github.com/gl-zkPass/zkpass-core/internal/ws/mainsock"
)

// Config wires a Router to its dependencies.
type Config struct {
	Main        *mainsock.Socket
	APIKeys     apikeys.Store
	Cache       pkcache.Cache
	JWKS        *JWKSPublisher
	Health      *HealthChecker
	ServiceVer  string
	CORSOrigins []string
	Log         logrus.FieldLogger
}

// NewRouter assembles the chi router for WS's public surface.
func NewRouter(cfg Config) http.Handler {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(requestLogger(cfg.Log))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-zkPass-Client"},
		MaxAge:         300,
	}))

	r.Get("/.well-known/jwks.json", cfg.JWKS.ServeHTTP)
	r.Get("/healthcheck", cfg.Health.ServeHTTP)

	r.Group(func(protected chi.Router) {
		protected.Use(basicAuth(cfg.APIKeys))
		protected.Use(clientVersionGate(cfg.ServiceVer))

		protected.Post("/v1/proof", handleGenerateProof(cfg.Main))
		protected.Post("/public-keys", handleListPublicKeys(cfg.Cache))
		protected.Delete("/public-key", handleInvalidatePublicKey(cfg.Cache))
	})

	return r
}
