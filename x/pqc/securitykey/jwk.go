package securitykey

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	errorsmod "cosmossdk.io/errors"

	"pqsig/crypto/pqc/dilithium"
	"pqsig/x/pqc/types"
)

// JSONWebKey is the key-exchange document for lattice signature keys.
type JSONWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	X   string `json:"x"`
	D   string `json:"d,omitempty"`
}

// JWKSet is a {"keys": [...]} document.
type JWKSet struct {
	Keys []JSONWebKey `json:"keys"`
}

var b64url = base64.RawURLEncoding.Strict()

// ToJWK exports the key. d is included only when includePrivate is set and a
// private component exists.
func (k *SecurityKey) ToJWK(includePrivate bool) JSONWebKey {
	doc := JSONWebKey{
		Kty: k.params.Family.KeyType(),
		Kid: k.material.keyID,
		Alg: k.material.algorithm,
		X:   b64url.EncodeToString(k.material.pub),
	}
	if includePrivate && k.material.HasPrivateKey() {
		doc.D = b64url.EncodeToString(k.material.priv)
	}
	return doc
}

// MarshalJWK encodes the key as a JSON document.
func (k *SecurityKey) MarshalJWK(includePrivate bool) ([]byte, error) {
	return json.Marshal(k.ToJWK(includePrivate))
}

// FromJWK imports a key document. Without d, the resulting status depends on
// the family: MLWE documents give Unknown, AKP documents give DoesNotExist.
func FromJWK(doc JSONWebKey) (*SecurityKey, error) {
	if err := types.ValidateAlgorithmName(doc.Alg); err != nil {
		return nil, err
	}
	params, err := dilithium.Lookup(doc.Alg)
	if err != nil {
		return nil, types.ErrUnsupportedAlgorithm.Wrapf("%q", doc.Alg)
	}
	family, ok := dilithium.FamilyForKeyType(doc.Kty)
	if !ok {
		return nil, types.ErrIncompatibleKeyType.Wrapf("kty %q", doc.Kty)
	}
	if family != params.Family {
		return nil, types.ErrIncompatibleKeyType.Wrapf("kty %q does not match %s (%s)", doc.Kty, doc.Alg, params.Family.KeyType())
	}

	if doc.X == "" {
		return nil, errorsmod.Wrap(types.ErrInvalidKeyMaterial, "x must be provided")
	}
	pub, err := decodeField("x", doc.X)
	if err != nil {
		return nil, err
	}
	var priv []byte
	if doc.D != "" {
		priv, err = decodeField("d", doc.D)
		if err != nil {
			return nil, err
		}
		defer wipe(priv)
	}

	return importKey(doc.Alg, doc.Kid, pub, priv, absentStatus(family))
}

// ParseJWK decodes and imports a single JSON key document.
func ParseJWK(data []byte) (*SecurityKey, error) {
	var doc JSONWebKey
	if err := decodeDocument(data, &doc); err != nil {
		return nil, err
	}
	return FromJWK(doc)
}

// NewJWKSet exports keys into a set.
func NewJWKSet(includePrivate bool, keys ...*SecurityKey) JWKSet {
	set := JWKSet{Keys: make([]JSONWebKey, 0, len(keys))}
	for _, key := range keys {
		set.Keys = append(set.Keys, key.ToJWK(includePrivate))
	}
	return set
}

// ParseJWKSet decodes a {"keys": [...]} document.
func ParseJWKSet(data []byte) (JWKSet, error) {
	var set JWKSet
	if err := decodeDocument(data, &set); err != nil {
		return JWKSet{}, err
	}
	return set, nil
}

// SecurityKeys imports every document in the set, failing on the first invalid entry.
func (s JWKSet) SecurityKeys() ([]*SecurityKey, error) {
	out := make([]*SecurityKey, 0, len(s.Keys))
	seen := make(map[string]struct{}, len(s.Keys))
	for i, doc := range s.Keys {
		key, err := FromJWK(doc)
		if err != nil {
			return nil, errorsmod.Wrapf(err, "keys[%d]", i)
		}
		if _, dup := seen[key.KeyID()]; dup {
			return nil, types.ErrInvalidKeyMaterial.Wrapf("keys[%d]: duplicate kid %q", i, key.KeyID())
		}
		seen[key.KeyID()] = struct{}{}
		out = append(out, key)
	}
	return out, nil
}

// Lookup returns the document with the given kid.
func (s JWKSet) Lookup(kid string) (JSONWebKey, bool) {
	for _, doc := range s.Keys {
		if doc.Kid == kid {
			return doc, true
		}
	}
	return JSONWebKey{}, false
}

func absentStatus(family dilithium.Family) PrivateKeyStatus {
	switch family {
	case dilithium.FamilyMLDSA:
		return PrivateKeyDoesNotExist
	case dilithium.FamilyDilithium:
		return PrivateKeyUnknown
	default:
		return PrivateKeyUnknown
	}
}

func decodeField(name, value string) ([]byte, error) {
	if len(value) > types.EncodedKeyMaxLen {
		return nil, types.ErrInvalidKeyMaterial.Wrapf("%s too large: %d > %d", name, len(value), types.EncodedKeyMaxLen)
	}
	out, err := b64url.DecodeString(value)
	if err != nil {
		return nil, types.ErrInvalidKeyMaterial.Wrapf("%s is not canonical base64url: %v", name, err)
	}
	return out, nil
}

func decodeDocument(data []byte, v any) error {
	if len(data) > types.DocumentMaxLen {
		return types.ErrInvalidKeyMaterial.Wrapf("document too large: %d > %d", len(data), types.DocumentMaxLen)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return errorsmod.Wrapf(types.ErrInvalidKeyMaterial, "decode jwk: %v", err)
	}
	if dec.More() {
		return errorsmod.Wrap(types.ErrInvalidKeyMaterial, "trailing data after jwk document")
	}
	return nil
}
