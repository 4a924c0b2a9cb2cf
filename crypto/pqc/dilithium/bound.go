package dilithium

import "github.com/cloudflare/circl/sign"

// BoundKey holds decoded key material for one parameter set. It is immutable
// after Bind and safe for concurrent use.
type BoundKey struct {
	scheme *modeScheme
	pk     sign.PublicKey
	sk     sign.PrivateKey
}

// Algorithm returns the parameter set the key was bound under.
func (b *BoundKey) Algorithm() string {
	return b.scheme.Name()
}

// CanSign reports whether the binding carries a private component.
func (b *BoundKey) CanSign() bool {
	return b.sk != nil
}

func (b *BoundKey) Sign(msg []byte) (Signature, error) {
	if b.sk == nil {
		return nil, ErrNoPrivateKey
	}
	return b.scheme.signWith(b.sk, msg), nil
}

func (b *BoundKey) Verify(msg []byte, sig Signature) bool {
	return b.scheme.verifyWith(b.pk, msg, sig)
}
