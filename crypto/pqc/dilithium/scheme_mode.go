package dilithium

import (
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign"
)

type modeScheme struct {
	scheme sign.Scheme
	algoID string
}

func newModeScheme(scheme sign.Scheme, algo string) (*modeScheme, error) {
	if scheme == nil {
		return nil, errors.New("dilithium: scheme unavailable")
	}
	return &modeScheme{scheme: scheme, algoID: algo}, nil
}

func (s *modeScheme) Name() string {
	return s.algoID
}

func (s *modeScheme) PublicKeySize() int {
	return s.scheme.PublicKeySize()
}

func (s *modeScheme) PrivateKeySize() int {
	return s.scheme.PrivateKeySize()
}

func (s *modeScheme) SignatureSize() int {
	return s.scheme.SignatureSize()
}

func (s *modeScheme) SeedSize() int {
	return s.scheme.SeedSize()
}

func (s *modeScheme) GenerateKey(seed []byte) (PublicKey, PrivateKey, error) {
	var (
		pk  sign.PublicKey
		sk  sign.PrivateKey
		err error
	)

	switch len(seed) {
	case 0:
		pk, sk, err = s.scheme.GenerateKey()
		if err != nil {
			return nil, nil, fmt.Errorf("dilithium: generate key: %w", err)
		}
	case s.scheme.SeedSize():
		seedCopy := make([]byte, len(seed))
		copy(seedCopy, seed)
		pk, sk = s.scheme.DeriveKey(seedCopy)
		wipe(seedCopy)
	default:
		return nil, nil, fmt.Errorf("dilithium: seed must be %d bytes", s.scheme.SeedSize())
	}

	pubBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("dilithium: marshal public key: %w", err)
	}
	privBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("dilithium: marshal private key: %w", err)
	}

	pubOut := make([]byte, len(pubBytes))
	copy(pubOut, pubBytes)
	privOut := make([]byte, len(privBytes))
	copy(privOut, privBytes)

	return PublicKey(pubOut), PrivateKey(privOut), nil
}

func (s *modeScheme) Sign(priv PrivateKey, msg []byte) (Signature, error) {
	sk, err := s.parsePrivate(priv)
	if err != nil {
		return nil, err
	}
	return s.signWith(sk, msg), nil
}

func (s *modeScheme) Verify(pub PublicKey, msg []byte, sig Signature) bool {
	pk, err := s.parsePublic(pub)
	if err != nil {
		return false
	}
	return s.verifyWith(pk, msg, sig)
}

func (s *modeScheme) Bind(pub PublicKey, priv PrivateKey) (*BoundKey, error) {
	pk, err := s.parsePublic(pub)
	if err != nil {
		return nil, err
	}
	bound := &BoundKey{scheme: s, pk: pk}
	if priv == nil {
		return bound, nil
	}

	sk, err := s.parsePrivate(priv)
	if err != nil {
		return nil, err
	}
	derived, ok := sk.Public().(sign.PublicKey)
	if !ok || !derived.Equal(pk) {
		return nil, ErrKeyPairMismatch
	}
	bound.sk = sk
	return bound, nil
}

func (s *modeScheme) parsePublic(pub PublicKey) (sign.PublicKey, error) {
	if len(pub) != s.scheme.PublicKeySize() {
		return nil, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidKeySize, s.scheme.PublicKeySize(), len(pub))
	}
	pk, err := s.scheme.UnmarshalBinaryPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("dilithium: invalid public key: %w", err)
	}
	return pk, nil
}

func (s *modeScheme) parsePrivate(priv PrivateKey) (sign.PrivateKey, error) {
	if len(priv) != s.scheme.PrivateKeySize() {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidKeySize, s.scheme.PrivateKeySize(), len(priv))
	}
	sk, err := s.scheme.UnmarshalBinaryPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("dilithium: invalid private key: %w", err)
	}
	return sk, nil
}

// signWith runs the scheme without a context string, which keeps both
// families deterministic.
func (s *modeScheme) signWith(sk sign.PrivateKey, msg []byte) Signature {
	sigBytes := s.scheme.Sign(sk, msg, nil)
	out := make([]byte, len(sigBytes))
	copy(out, sigBytes)
	return Signature(out)
}

func (s *modeScheme) verifyWith(pk sign.PublicKey, msg []byte, sig Signature) bool {
	if len(sig) != s.scheme.SignatureSize() {
		return false
	}
	return s.scheme.Verify(pk, msg, sig, nil)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
