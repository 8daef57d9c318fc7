package zkpassclient

import (
	"fmt"
	"sync"

	"github.com/gl-zkPass/zkpass-core/internal/dvrmodel"
)

// DVRTable is a Proof Verifier's per-process record of DVRs it has issued
// but whose proof has not yet come back: inserted by RecordIssued when a
// DVR is handed to a Data Holder, removed by ValidateAndForget once its
// proof has been checked. Modeled on the teacher's issuer registry
// register/lookup shape, generalized from a by-token-type map to a
// by-dvr-id one.
type DVRTable struct {
	mu   sync.Mutex
	dvrs map[string]dvrmodel.DataVerificationRequest
}

// NewDVRTable returns an empty table.
func NewDVRTable() *DVRTable {
	return &DVRTable{dvrs: make(map[string]dvrmodel.DataVerificationRequest)}
}

// RecordIssued remembers dvr under its own DVRID, for later lookup by a
// MetadataValidator.
func (t *DVRTable) RecordIssued(dvr dvrmodel.DataVerificationRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dvrs[dvr.DVRID] = dvr
}

// ValidateAndForget removes and returns the DVR recorded under dvrID. A
// MetadataValidator calls this exactly once per proof it validates, so a
// stale or replayed dvr_id lookup fails rather than matching forever.
func (t *DVRTable) ValidateAndForget(dvrID string) (dvrmodel.DataVerificationRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	dvr, ok := t.dvrs[dvrID]
	if !ok {
		return dvrmodel.DataVerificationRequest{}, fmt.Errorf("no dvr recorded for id %q", dvrID)
	}
	delete(t.dvrs, dvrID)
	return dvr, nil
}

// Len reports how many issued-but-unvalidated DVRs are currently recorded.
func (t *DVRTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.dvrs)
}
