package securitykey

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	errorsmod "cosmossdk.io/errors"
	"github.com/google/uuid"

	"pqsig/crypto/pqc/dilithium"
	"pqsig/x/pqc/types"
)

// PrivateKeyStatus records what is known about the private component.
type PrivateKeyStatus uint8

const (
	// PrivateKeyExists means the key carries a private component.
	PrivateKeyExists PrivateKeyStatus = iota
	// PrivateKeyDoesNotExist means the source guarantees there is none.
	PrivateKeyDoesNotExist
	// PrivateKeyUnknown means the source could have omitted the private
	// component; callers cannot tell a public-only key from a truncated one.
	PrivateKeyUnknown
)

func (s PrivateKeyStatus) String() string {
	switch s {
	case PrivateKeyExists:
		return "Exists"
	case PrivateKeyDoesNotExist:
		return "DoesNotExist"
	case PrivateKeyUnknown:
		return "Unknown"
	default:
		return "invalid"
	}
}

// SecurityKey binds key material to its parameter set.
type SecurityKey struct {
	material    KeyMaterial
	params      dilithium.ParameterSet
	status      PrivateKeyStatus
	fingerprint string
}

var _ types.SecurityKey = (*SecurityKey)(nil)

// Generate creates a fresh key pair for alg with a random key id.
func Generate(alg string) (*SecurityKey, error) {
	return GenerateWithID(alg, uuid.NewString())
}

// GenerateWithID creates a fresh key pair for alg under a caller-assigned key id.
func GenerateWithID(alg, keyID string) (*SecurityKey, error) {
	if err := types.ValidateKeyID(keyID); err != nil {
		return nil, err
	}
	scheme, params, err := lookupScheme(alg)
	if err != nil {
		return nil, err
	}
	pub, priv, err := scheme.GenerateKey(nil)
	if err != nil {
		return nil, errorsmod.Wrapf(types.ErrInvalidKeyMaterial, "generate %s key: %v", alg, err)
	}
	key := newSecurityKey(newKeyMaterial(keyID, alg, pub, priv), params, PrivateKeyExists)
	wipe(priv)
	return key, nil
}

// ImportFromBytes builds a key from raw encodings. A nil privateKey yields a
// verify-only key with status DoesNotExist.
func ImportFromBytes(alg, keyID string, publicKey, privateKey []byte) (*SecurityKey, error) {
	return importKey(alg, keyID, publicKey, privateKey, PrivateKeyDoesNotExist)
}

func importKey(alg, keyID string, pub, priv []byte, absentStatus PrivateKeyStatus) (*SecurityKey, error) {
	if err := types.ValidateKeyID(keyID); err != nil {
		return nil, err
	}
	scheme, params, err := lookupScheme(alg)
	if err != nil {
		return nil, err
	}
	if len(pub) == 0 {
		return nil, errorsmod.Wrap(types.ErrInvalidKeyMaterial, "public key must be provided")
	}
	if len(pub) != params.PublicKeySize {
		return nil, types.ErrInvalidKeyMaterial.Wrapf("%s public key must be %d bytes, got %d", alg, params.PublicKeySize, len(pub))
	}
	if priv != nil && len(priv) != params.PrivateKeySize {
		return nil, types.ErrInvalidKeyMaterial.Wrapf("%s private key must be %d bytes, got %d", alg, params.PrivateKeySize, len(priv))
	}
	// Bind decodes both halves and checks that they form a pair.
	if _, err := scheme.Bind(pub, priv); err != nil {
		if errors.Is(err, dilithium.ErrKeyPairMismatch) {
			return nil, errorsmod.Wrap(types.ErrInvalidKeyMaterial, "private key does not match public key")
		}
		return nil, errorsmod.Wrap(types.ErrInvalidKeyMaterial, err.Error())
	}

	status := absentStatus
	if priv != nil {
		status = PrivateKeyExists
	}
	return newSecurityKey(newKeyMaterial(keyID, alg, pub, priv), params, status), nil
}

func lookupScheme(alg string) (dilithium.Scheme, dilithium.ParameterSet, error) {
	if err := types.ValidateAlgorithmName(alg); err != nil {
		return nil, dilithium.ParameterSet{}, err
	}
	params, err := dilithium.Lookup(alg)
	if err != nil {
		return nil, dilithium.ParameterSet{}, types.ErrUnsupportedAlgorithm.Wrapf("%q", alg)
	}
	scheme, err := dilithium.New(alg)
	if err != nil {
		return nil, dilithium.ParameterSet{}, types.ErrUnsupportedAlgorithm.Wrapf("%q: %v", alg, err)
	}
	return scheme, params, nil
}

func newSecurityKey(material KeyMaterial, params dilithium.ParameterSet, status PrivateKeyStatus) *SecurityKey {
	return &SecurityKey{
		material:    material,
		params:      params,
		status:      status,
		fingerprint: Fingerprint(material.algorithm, material.pub),
	}
}

func (k *SecurityKey) KeyID() string { return k.material.keyID }

// Algorithm returns the parameter set identifier the key is bound to.
func (k *SecurityKey) Algorithm() string { return k.material.algorithm }

func (k *SecurityKey) ParameterSet() dilithium.ParameterSet { return k.params }

func (k *SecurityKey) Family() dilithium.Family { return k.params.Family }

func (k *SecurityKey) Material() KeyMaterial { return k.material }

func (k *SecurityKey) HasPrivateKey() bool { return k.material.HasPrivateKey() }

func (k *SecurityKey) PrivateKeyStatus() PrivateKeyStatus { return k.status }

func (k *SecurityKey) PublicKey() dilithium.PublicKey { return k.material.PublicKey() }

func (k *SecurityKey) PrivateKey() dilithium.PrivateKey { return k.material.PrivateKey() }

// IsSupportedAlgorithm reports whether alg is exactly the key's parameter set.
func (k *SecurityKey) IsSupportedAlgorithm(alg string) bool {
	return alg == k.material.algorithm
}

// Fingerprint returns the content-derived identity of the key.
func (k *SecurityKey) Fingerprint() string { return k.fingerprint }

// Public returns a verify-only copy of the key.
func (k *SecurityKey) Public() *SecurityKey {
	material := newKeyMaterial(k.material.keyID, k.material.algorithm, k.material.pub, nil)
	return newSecurityKey(material, k.params, PrivateKeyDoesNotExist)
}

// Fingerprint is the hex SHA-256 of alg || 0x00 || publicKey.
func Fingerprint(alg string, publicKey []byte) string {
	h := sha256.New()
	h.Write([]byte(alg))
	h.Write([]byte{0})
	h.Write(publicKey)
	return hex.EncodeToString(h.Sum(nil))
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
