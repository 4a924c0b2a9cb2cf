package types

import (
	"strings"
	"unicode/utf8"

	errorsmod "cosmossdk.io/errors"
)

// ValidateKeyID checks a caller-supplied key identifier.
func ValidateKeyID(kid string) error {
	if strings.TrimSpace(kid) == "" {
		return errorsmod.Wrap(ErrInvalidKeyMaterial, "kid must be provided")
	}
	if len(kid) > KeyIDMaxLen {
		return ErrInvalidKeyMaterial.Wrapf("kid too long: %d > %d", len(kid), KeyIDMaxLen)
	}
	if !utf8.ValidString(kid) {
		return ErrInvalidKeyMaterial.Wrap("kid must be valid UTF-8")
	}
	for _, r := range kid {
		if r < 0x20 {
			return ErrInvalidKeyMaterial.Wrap("kid contains control characters")
		}
	}
	return nil
}

// ValidateAlgorithmName checks the shape of an algorithm identifier. It does
// not consult the registry.
func ValidateAlgorithmName(alg string) error {
	if alg == "" {
		return errorsmod.Wrap(ErrUnsupportedAlgorithm, "alg must be provided")
	}
	if len(alg) > AlgorithmMaxLen {
		return ErrUnsupportedAlgorithm.Wrapf("alg too long: %d > %d", len(alg), AlgorithmMaxLen)
	}
	return nil
}
