package provider

import (
	errorsmod "cosmossdk.io/errors"

	"pqsig/crypto/pqc/dilithium"
	"pqsig/x/pqc/securitykey"
	"pqsig/x/pqc/types"
)

// SignerAdapter wraps the signature primitive bound to one key and purpose.
// It is initialized once, shared through the factory cache, and safe for
// concurrent use.
type SignerAdapter struct {
	purpose   Purpose
	keyID     string
	algorithm string
	bound     *dilithium.BoundKey
}

func newSignerAdapter(key *securitykey.SecurityKey, purpose Purpose) (*SignerAdapter, error) {
	scheme, err := dilithium.New(key.Algorithm())
	if err != nil {
		return nil, types.ErrUnsupportedAlgorithm.Wrapf("%q: %v", key.Algorithm(), err)
	}

	material := key.Material()
	pub := material.PublicKey()
	if len(pub) == 0 {
		return nil, types.ErrMissingKeyMaterial.Wrapf("key %q has no public component", key.KeyID())
	}

	var priv dilithium.PrivateKey
	if purpose == PurposeSign {
		priv = material.PrivateKey()
		if priv == nil {
			return nil, types.ErrMissingKeyMaterial.Wrapf("key %q has no private component", key.KeyID())
		}
		defer wipe(priv)
	}

	bound, err := scheme.Bind(pub, priv)
	if err != nil {
		return nil, errorsmod.Wrap(types.ErrInvalidKeyMaterial, err.Error())
	}

	return &SignerAdapter{
		purpose:   purpose,
		keyID:     key.KeyID(),
		algorithm: key.Algorithm(),
		bound:     bound,
	}, nil
}

func (a *SignerAdapter) Purpose() Purpose { return a.purpose }

func (a *SignerAdapter) KeyID() string { return a.keyID }

func (a *SignerAdapter) Algorithm() string { return a.algorithm }

func (a *SignerAdapter) sign(msg []byte) ([]byte, error) {
	if a.purpose != PurposeSign {
		return nil, types.ErrNotSupportedForVerifyOnly.Wrapf("key %q", a.keyID)
	}
	sig, err := a.bound.Sign(msg)
	if err != nil {
		return nil, errorsmod.Wrap(types.ErrInvalidKeyMaterial, err.Error())
	}
	return sig, nil
}

func (a *SignerAdapter) verify(msg, sig []byte) bool {
	return a.bound.Verify(msg, sig)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
