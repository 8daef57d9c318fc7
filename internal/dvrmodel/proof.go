package dvrmodel

import "github.com/gl-zkPass/zkpass-core/internal/keys"

// ZkPassProof is the signed output of proof generation: the opaque zkVM
// receipt plus enough context (digest, keys, timestamp) for a verifier to
// bind it back to the DVR that produced it.
type ZkPassProof struct {
	ZkProof   string `json:"zkproof"`
	DVRTitle  string `json:"dvr_title"`
	DVRID     string `json:"dvr_id"`
	DVRDigest string `json:"dvr_digest"`

	// UserDataVerifyingKey/DVRVerifyingKey are the concrete keys actually
	// used to verify the signatures during proof generation — already
	// resolved from whatever PublicKeyOption (inline or keyset-endpoint)
	// the DVR/user-data tokens carried, not the option itself.
	UserDataVerifyingKey keys.PublicKey `json:"user_data_verifying_key"`
	DVRVerifyingKey      keys.PublicKey `json:"dvr_verifying_key"`

	TimeStamp int64 `json:"time_stamp"`
}
