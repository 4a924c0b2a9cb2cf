package types

const (
	// KeyIDMaxLen keeps key identifiers short; they double as cache keys.
	KeyIDMaxLen = 256
	// AlgorithmMaxLen bounds parameter set identifiers read from documents.
	AlgorithmMaxLen = 32
	// EncodedKeyMaxLen caps base64url key fields. ML-DSA-87 private keys are the largest at 4896 bytes.
	EncodedKeyMaxLen = 8192
	// DocumentMaxLen caps a single JWK document or JWK set read from disk or stdin.
	DocumentMaxLen = 1 << 20
)
