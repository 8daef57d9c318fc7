package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gl-zkPass/zkpass-core/internal/apikeys"
)

// statusResponse is the {status_code, status_text} error body shape every
// non-2xx response on this surface uses.
type statusResponse struct {
	StatusCode int    `json:"status_code"`
	StatusText string `json:"status_text"`
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).String(),
			}).Info("handled request")
		})
	}
}

// basicAuth enforces Authorization: Basic base64(api_key:secret_api_key)
// against store, per the spec's Basic-auth contract.
func basicAuth(store apikeys.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, secret, ok := parseBasicAuth(r.Header.Get("Authorization"))
			if !ok {
				writeStatus(w, http.StatusUnauthorized, "missing or malformed Authorization header")
				return
			}

			authenticated, err := store.Authenticate(r.Context(), apiKey, secret)
			if err != nil {
				writeStatus(w, http.StatusUnauthorized, "unable to authenticate api key")
				return
			}
			if !authenticated {
				writeStatus(w, http.StatusUnauthorized, "invalid api key or secret")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func parseBasicAuth(header string) (apiKey, secret string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}

	raw, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}

	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// clientVersionGate enforces the X-zkPass-Client same-major-minor rule
// against serviceVer. A missing header is allowed; an unparsable one is
// rejected with 403.
func clientVersionGate(serviceVer string) func(http.Handler) http.Handler {
	running, runningOK := parseSemver(serviceVer)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("X-zkPass-Client")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			clientVer, ok := parseSemver(header)
			if !ok || !runningOK || clientVer.major != running.major || clientVer.minor != running.minor {
				writeStatus(w, http.StatusForbidden, "incompatible X-zkPass-Client version")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeStatus(w http.ResponseWriter, code int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(statusResponse{StatusCode: code, StatusText: text})
}
