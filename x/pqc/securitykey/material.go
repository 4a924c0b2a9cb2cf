package securitykey

import "pqsig/crypto/pqc/dilithium"

// KeyMaterial is the immutable byte representation of one key pair for one
// parameter set. The public component is always present.
type KeyMaterial struct {
	keyID     string
	algorithm string
	pub       dilithium.PublicKey
	priv      dilithium.PrivateKey
}

func newKeyMaterial(keyID, alg string, pub dilithium.PublicKey, priv dilithium.PrivateKey) KeyMaterial {
	m := KeyMaterial{
		keyID:     keyID,
		algorithm: alg,
		pub:       cloneBytes(pub),
	}
	if priv != nil {
		m.priv = cloneBytes(priv)
	}
	return m
}

func (m KeyMaterial) KeyID() string { return m.keyID }

func (m KeyMaterial) Algorithm() string { return m.algorithm }

// PublicKey returns a copy of the public component.
func (m KeyMaterial) PublicKey() dilithium.PublicKey { return cloneBytes(m.pub) }

// PrivateKey returns a copy of the private component, or nil when absent.
func (m KeyMaterial) PrivateKey() dilithium.PrivateKey {
	if m.priv == nil {
		return nil
	}
	return cloneBytes(m.priv)
}

func (m KeyMaterial) HasPrivateKey() bool { return m.priv != nil }

func cloneBytes[T ~[]byte](b T) T {
	out := make(T, len(b))
	copy(out, b)
	return out
}
