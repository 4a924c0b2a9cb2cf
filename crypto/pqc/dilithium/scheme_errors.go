package dilithium

import "errors"

var (
	// ErrUnknownParameterSet is returned when an identifier is not registered.
	ErrUnknownParameterSet = errors.New("pqc: unknown parameter set")
	// ErrInvalidKeySize indicates key bytes of the wrong length for the parameter set.
	ErrInvalidKeySize = errors.New("pqc: invalid key size")
	// ErrKeyPairMismatch indicates a private key whose public half differs from the supplied public key.
	ErrKeyPairMismatch = errors.New("pqc: private key does not match public key")
	// ErrNoPrivateKey is returned when signing with a verify-only binding.
	ErrNoPrivateKey = errors.New("pqc: bound key has no private component")
)
