package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gl-zkPass/zkpass-core/internal/keys"
	"github.com/gl-zkPass/zkpass-core/internal/pkcache"
	"github.com/gl-zkPass/zkpass-core/internal/wire"
	"github.com/gl-zkPass/zkpass-core/internal/ws/mainsock"
)

type generateProofRequest struct {
	DVRToken      string `json:"dvr_token"`
	UserDataToken string `json:"user_data_token"`
}

type generateProofResponse struct {
	Status int    `json:"status"`
	Proof  string `json:"proof"`
}

// handleGenerateProof is POST /v1/proof: it shapes-validates the request,
// hands it to H over the main socket untouched, and translates H's response
// (or the transport error of getting one) into the documented success/error
// bodies. The actual verification and zkVM execution happen entirely in H.
func handleGenerateProof(main *mainsock.Socket) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateProofRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeStatus(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if req.DVRToken == "" || req.UserDataToken == "" {
			writeStatus(w, http.StatusBadRequest, "dvr_token and user_data_token are required")
			return
		}

		payload, err := wire.EncodePayload(wire.OpRequestGenerateProof, wire.GenerateProofArgs{
			DVRToken:      req.DVRToken,
			UserDataToken: req.UserDataToken,
		})
		if err != nil {
			writeStatus(w, http.StatusBadRequest, "unable to encode request")
			return
		}

		resp, err := main.Call(r.Context(), payload)
		if err != nil {
			writeStatus(w, http.StatusBadRequest, err.Error())
			return
		}
		if wire.IsErrorBody(resp) {
			writeStatus(w, http.StatusBadRequest, string(resp))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(generateProofResponse{Status: http.StatusOK, Proof: string(resp)})
	}
}

type publicKeysResponse struct {
	PublicKeys []keys.PublicKey `json:"public_keys"`
}

// handleListPublicKeys is POST /public-keys: an empty/absent body returns
// every currently cached public key, a body naming a KeysetEndpoint returns
// just that one (or 400 if nothing is cached for it).
func handleListPublicKeys(cache pkcache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var endpoint keys.KeysetEndpoint
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&endpoint); err != nil {
				writeStatus(w, http.StatusBadRequest, "malformed request body")
				return
			}
		}

		if endpoint.JKU == "" && endpoint.Kid == "" {
			writeJSON(w, http.StatusOK, publicKeysResponse{PublicKeys: cache.List()})
			return
		}

		entry, ok := cache.Get(endpoint)
		if !ok {
			writeStatus(w, http.StatusBadRequest, "no cached public key for that endpoint")
			return
		}
		writeJSON(w, http.StatusOK, publicKeysResponse{PublicKeys: []keys.PublicKey{entry.PublicKey}})
	}
}

// handleInvalidatePublicKey is DELETE /public-key: removes one cache entry
// named by the required KeysetEndpoint body.
func handleInvalidatePublicKey(cache pkcache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var endpoint keys.KeysetEndpoint
		if err := json.NewDecoder(r.Body).Decode(&endpoint); err != nil {
			writeStatus(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if endpoint.JKU == "" || endpoint.Kid == "" {
			writeStatus(w, http.StatusBadRequest, "jku and kid are required")
			return
		}

		cache.Remove(endpoint)
		w.WriteHeader(http.StatusOK)
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
