package types

import "pqsig/crypto/pqc/dilithium"

const (
	ModuleName = "pqc"
)

const (
	// KeyTypeMLWE tags round-3 Dilithium keys in JWK documents.
	KeyTypeMLWE = dilithium.KeyTypeMLWE
	// KeyTypeAKP tags ML-DSA keys in JWK documents.
	KeyTypeAKP = dilithium.KeyTypeAKP

	// SigningCacheSuffix distinguishes signing adapters from verifying ones
	// sharing the same key id.
	SigningCacheSuffix = "-S"
)
