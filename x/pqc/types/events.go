package types

// Structured log keys and metric label values emitted by the pqc module.
const (
	AttributeKeyKeyID     = "kid"
	AttributeKeyAlgorithm = "alg"
	AttributeKeyPurpose   = "purpose"
	AttributeKeyCache     = "cache"
	AttributeKeyCacheKey  = "cache_key"
	AttributeKeyReason    = "reason"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"

	ResultSigned   = "signed"
	ResultVerified = "verified"
	ResultRejected = "rejected"
)
