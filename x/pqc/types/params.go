package types

import "pqsig/crypto/pqc/dilithium"

// CacheIdentity selects how the provider factory derives adapter cache keys.
type CacheIdentity string

const (
	// CacheByKeyID keys the cache by the caller-assigned key id. Callers must
	// keep key ids unique within a process.
	CacheByKeyID CacheIdentity = "key-id"
	// CacheByFingerprint keys the cache by a hash of the algorithm and public key.
	CacheByFingerprint CacheIdentity = "fingerprint"
)

const DefaultCacheIdentity = CacheByKeyID

// Params configures a provider factory.
type Params struct {
	// AllowedAlgorithms restricts resolution to these parameter sets. Empty allows every registered set.
	AllowedAlgorithms []string
	CacheIdentity     CacheIdentity
}

func SupportedAlgorithms() []string {
	return dilithium.IDs()
}

func DefaultParams() Params {
	return Params{
		AllowedAlgorithms: nil,
		CacheIdentity:     DefaultCacheIdentity,
	}
}

func (p Params) Validate() error {
	switch p.CacheIdentity {
	case CacheByKeyID, CacheByFingerprint:
	default:
		return ErrInvalidParams.Wrapf("unknown cache identity %q", p.CacheIdentity)
	}

	seen := make(map[string]struct{}, len(p.AllowedAlgorithms))
	for _, alg := range p.AllowedAlgorithms {
		if !dilithium.IsSupported(alg) {
			return ErrInvalidParams.Wrapf("unsupported algorithm %q", alg)
		}
		if _, dup := seen[alg]; dup {
			return ErrInvalidParams.Wrapf("duplicate algorithm %q", alg)
		}
		seen[alg] = struct{}{}
	}
	return nil
}

// Allows reports whether alg passes the allow-list.
func (p Params) Allows(alg string) bool {
	if len(p.AllowedAlgorithms) == 0 {
		return true
	}
	for _, allowed := range p.AllowedAlgorithms {
		if allowed == alg {
			return true
		}
	}
	return false
}
