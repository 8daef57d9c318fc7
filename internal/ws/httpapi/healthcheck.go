package httpapi

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/gl-zkPass/zkpass-core/internal/dvrmodel"
	"github.com/gl-zkPass/zkpass-core/internal/jose"
	"github.com/gl-zkPass/zkpass-core/internal/keys"
	"github.com/gl-zkPass/zkpass-core/internal/wire"
	"github.com/gl-zkPass/zkpass-core/internal/ws/mainsock"
)

// healthcheckQuery is the canned query from the happy-path single-tag
// scenario: bind the user-data field "healthcheck" to a local, then echo
// whether it equals "ping".
const healthcheckQuery = `[{"assign":{"s":{"==":[{"dvar":"healthcheck"},"ping"]}}},{"output":{"result":{"lvar":"s"}}}]`

// EngineStatus is one zkVM backend's healthcheck result.
type EngineStatus struct {
	ZkVM    string `json:"zkvm"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// HealthChecker drives a real generate_proof round trip through H for each
// configured zkVM backend, using a self-contained probe DVR + user-data
// token pair so the check needs no externally-hosted keys.
type HealthChecker struct {
	main    *mainsock.Socket
	hostPub *ecdsa.PublicKey
	engines []string

	mu     sync.Mutex
	probes map[string]probeTokens
}

type probeTokens struct {
	dvrToken      string
	userDataToken string
}

// NewHealthChecker builds a checker that pings engines through main,
// encrypting probe envelopes to hostECDHPublicKey (the host's ECDH public
// key, known to WS from the key-token file it manages for H).
func NewHealthChecker(main *mainsock.Socket, hostECDHPublicKey keys.PublicKey, engines []string) (*HealthChecker, error) {
	pub, err := hostECDHPublicKey.ToECDSA()
	if err != nil {
		return nil, err
	}
	return &HealthChecker{main: main, hostPub: pub, engines: engines, probes: make(map[string]probeTokens)}, nil
}

// ServeHTTP answers GET /healthcheck?zkvm=r0|sp1|all.
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requested := r.URL.Query().Get("zkvm")
	if requested == "" {
		requested = "all"
	}

	targets := h.engines
	if requested != "all" {
		targets = []string{requested}
	}

	statuses := make([]EngineStatus, 0, len(targets))
	allOK := true
	for _, name := range targets {
		status := h.probe(r, name)
		statuses = append(statuses, status)
		allOK = allOK && status.OK
	}

	code := http.StatusOK
	if !allOK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, struct {
		Engines []EngineStatus `json:"engines"`
	}{Engines: statuses})
}

func (h *HealthChecker) probe(r *http.Request, zkvmName string) EngineStatus {
	tokens, err := h.probeTokens(zkvmName)
	if err != nil {
		return EngineStatus{ZkVM: zkvmName, OK: false, Message: err.Error()}
	}

	payload, err := wire.EncodePayload(wire.OpRequestGenerateProof, wire.GenerateProofArgs{
		DVRToken:      tokens.dvrToken,
		UserDataToken: tokens.userDataToken,
	})
	if err != nil {
		return EngineStatus{ZkVM: zkvmName, OK: false, Message: err.Error()}
	}

	resp, err := h.main.Call(r.Context(), payload)
	if err != nil {
		return EngineStatus{ZkVM: zkvmName, OK: false, Message: err.Error()}
	}
	if wire.IsErrorBody(resp) {
		return EngineStatus{ZkVM: zkvmName, OK: false, Message: string(resp)}
	}

	return EngineStatus{ZkVM: zkvmName, OK: true}
}

// probeTokens returns the cached probe envelope pair for zkvmName, building
// and caching it on first use — the probe's signing key and ids never need
// to change between calls.
func (h *HealthChecker) probeTokens(zkvmName string) (probeTokens, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if t, ok := h.probes[zkvmName]; ok {
		return t, nil
	}

	t, err := h.buildProbeTokens(zkvmName)
	if err != nil {
		return probeTokens{}, err
	}
	h.probes[zkvmName] = t
	return t, nil
}

func (h *HealthChecker) buildProbeTokens(zkvmName string) (probeTokens, error) {
	signingPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return probeTokens{}, err
	}
	signingPub, err := keys.NewPublicKeyFromECDSA(&signingPriv.PublicKey)
	if err != nil {
		return probeTokens{}, err
	}

	dvr := dvrmodel.DataVerificationRequest{
		ZkVM:           dvrmodel.ZkVM(zkvmName),
		DVRTitle:       "healthcheck",
		DVRID:          uuid.NewString(),
		QueryEngineVer: "healthcheck",
		QueryMethodVer: "healthcheck",
		Query:          healthcheckQuery,
		UserDataRequests: map[string]dvrmodel.UserDataRequest{
			"": {UserDataVerifyingKey: keys.PublicKeyOption{Inline: &signingPub}},
		},
		DVRVerifyingKey: keys.PublicKeyOption{Inline: &signingPub},
	}

	dvrJWS, err := jose.SignJWS(dvr, signingPriv, "", "healthcheck-dvr")
	if err != nil {
		return probeTokens{}, err
	}

	userJWS, err := jose.SignJWS(map[string]string{"healthcheck": "ping"}, signingPriv, "", "healthcheck-user-data")
	if err != nil {
		return probeTokens{}, err
	}

	taggedJSON, err := json.Marshal(dvrmodel.TaggedTokens{"": userJWS})
	if err != nil {
		return probeTokens{}, err
	}

	dvrToken, err := jose.EncryptJWE(dvrJWS, h.hostPub)
	if err != nil {
		return probeTokens{}, err
	}
	userDataToken, err := jose.EncryptJWE(string(taggedJSON), h.hostPub)
	if err != nil {
		return probeTokens{}, err
	}

	return probeTokens{dvrToken: dvrToken, userDataToken: userDataToken}, nil
}
