package types

// SecurityKey is the view of a key the hosting token-validation framework
// relies on for dispatch.
type SecurityKey interface {
	KeyID() string
	HasPrivateKey() bool
	IsSupportedAlgorithm(alg string) bool
}

// ProviderFactory is implemented by the signature provider factory and
// consumed by the framework.
type ProviderFactory[P any] interface {
	IsSupportedAlgorithm(alg string, key SecurityKey) bool
	ResolveForSigning(key SecurityKey, alg string) (P, error)
	ResolveForVerifying(key SecurityKey, alg string) (P, error)
}
