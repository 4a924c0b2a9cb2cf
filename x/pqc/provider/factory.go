package provider

import (
	"cosmossdk.io/log"

	"pqsig/app/metrics"
	"pqsig/crypto/pqc/dilithium"
	"pqsig/x/pqc/securitykey"
	"pqsig/x/pqc/types"
)

// Factory resolves security keys into signature providers and owns the
// adapter cache. One Factory is created at startup and shared by every
// caller that needs signature resolution.
//
// Adapters are cached for the lifetime of the factory, keyed by key id (or
// fingerprint, see types.CacheByFingerprint). With key-id caching, two keys
// that share an id are treated as the same logical key; callers must keep
// ids unique.
type Factory struct {
	logger  log.Logger
	params  types.Params
	cache   *adapterCache
	metrics bool
}

var _ types.ProviderFactory[*SignatureProvider] = (*Factory)(nil)

// NewFactory returns a factory configured by opts. It fails when the
// resulting params do not validate.
func NewFactory(opts ...Option) (*Factory, error) {
	f := &Factory{
		logger:  log.NewNopLogger(),
		params:  types.DefaultParams(),
		cache:   newAdapterCache(),
		metrics: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.params.Validate(); err != nil {
		return nil, err
	}
	f.logger = f.logger.With(log.ModuleKey, types.ModuleName)
	return f, nil
}

// Params returns the params the factory was built with.
func (f *Factory) Params() types.Params {
	return f.params
}

// IsSupportedAlgorithm reports whether key can be resolved under alg.
func (f *Factory) IsSupportedAlgorithm(alg string, key types.SecurityKey) bool {
	sk, err := asSecurityKey(key)
	if err != nil {
		return false
	}
	return f.checkAlgorithm(sk, alg) == nil
}

// ResolveForSigning returns a provider able to sign and verify with key.
func (f *Factory) ResolveForSigning(key types.SecurityKey, alg string) (*SignatureProvider, error) {
	return f.resolve(key, alg, PurposeSign)
}

// ResolveForVerifying returns a verify-only provider for key.
func (f *Factory) ResolveForVerifying(key types.SecurityKey, alg string) (*SignatureProvider, error) {
	return f.resolve(key, alg, PurposeVerify)
}

// Purge drops every cached adapter and returns how many were removed.
// Providers already handed out keep working.
func (f *Factory) Purge() int {
	n := f.cache.purge()
	f.logger.Debug("purged signer adapters", "count", n)
	return n
}

// CacheLen returns the number of cached adapters.
func (f *Factory) CacheLen() int {
	return f.cache.len()
}

func (f *Factory) resolve(key types.SecurityKey, alg string, purpose Purpose) (*SignatureProvider, error) {
	sk, err := asSecurityKey(key)
	if err != nil {
		f.observeResolution(purpose, types.CacheError)
		return nil, err
	}
	if err := f.checkAlgorithm(sk, alg); err != nil {
		f.observeResolution(purpose, types.CacheError)
		return nil, err
	}
	if purpose == PurposeSign && !sk.HasPrivateKey() {
		f.observeResolution(purpose, types.CacheError)
		return nil, types.ErrMissingKeyMaterial.Wrapf("key %q has no private component", sk.KeyID())
	}

	cacheKey := f.cacheKey(sk, purpose)
	if adapter, ok := f.cache.get(cacheKey); ok {
		if err := checkResident(adapter, sk); err != nil {
			f.observeResolution(purpose, types.CacheError)
			return nil, err
		}
		f.observeResolution(purpose, types.CacheHit)
		f.logResolution(sk, purpose, cacheKey, types.CacheHit)
		return newSignatureProvider(adapter, f.logger, f.metrics), nil
	}

	// Construction runs outside the cache lock. A concurrent resolver may win
	// the insert; both adapters are equivalent and the resident one is used.
	adapter, err := newSignerAdapter(sk, purpose)
	if err != nil {
		f.observeResolution(purpose, types.CacheError)
		return nil, err
	}
	adapter, inserted := f.cache.getOrInsert(cacheKey, adapter)
	if !inserted {
		if err := checkResident(adapter, sk); err != nil {
			f.observeResolution(purpose, types.CacheError)
			return nil, err
		}
	}
	outcome := types.CacheMiss
	if !inserted {
		outcome = types.CacheHit
	}
	f.observeResolution(purpose, outcome)
	f.logResolution(sk, purpose, cacheKey, outcome)
	return newSignatureProvider(adapter, f.logger, f.metrics), nil
}

func (f *Factory) checkAlgorithm(sk *securitykey.SecurityKey, alg string) error {
	if !dilithium.IsSupported(alg) {
		return types.ErrUnsupportedAlgorithm.Wrapf("%q is not a registered parameter set", alg)
	}
	if !f.params.Allows(alg) {
		return types.ErrUnsupportedAlgorithm.Wrapf("%q is not allowed", alg)
	}
	if !sk.IsSupportedAlgorithm(alg) {
		return types.ErrUnsupportedAlgorithm.Wrapf("key %q is bound to %s, not %s", sk.KeyID(), sk.Algorithm(), alg)
	}
	return nil
}

// checkResident rejects a cached adapter bound to a different parameter set
// than the key being resolved, as happens when two keys share an id.
func checkResident(adapter *SignerAdapter, sk *securitykey.SecurityKey) error {
	if adapter.Algorithm() != sk.Algorithm() {
		return types.ErrIncompatibleKeyType.Wrapf("cached adapter for %q is bound to %s, not %s", sk.KeyID(), adapter.Algorithm(), sk.Algorithm())
	}
	return nil
}

func (f *Factory) cacheKey(sk *securitykey.SecurityKey, purpose Purpose) string {
	var id string
	switch f.params.CacheIdentity {
	case types.CacheByFingerprint:
		id = sk.Fingerprint()
	default:
		id = sk.KeyID()
	}
	if purpose == PurposeSign {
		return id + types.SigningCacheSuffix
	}
	return id
}

// asSecurityKey narrows the framework-facing key to the one variant this
// factory handles.
func asSecurityKey(key types.SecurityKey) (*securitykey.SecurityKey, error) {
	switch k := key.(type) {
	case *securitykey.SecurityKey:
		if k == nil {
			return nil, types.ErrIncompatibleKeyType.Wrap("nil security key")
		}
		return k, nil
	case nil:
		return nil, types.ErrIncompatibleKeyType.Wrap("nil key")
	default:
		return nil, types.ErrIncompatibleKeyType.Wrapf("unsupported key type %T", key)
	}
}

func (f *Factory) observeResolution(purpose Purpose, outcome string) {
	if !f.metrics {
		return
	}
	metrics.ResolutionsCounter().WithLabelValues(purpose.String(), outcome).Inc()
}

func (f *Factory) logResolution(sk *securitykey.SecurityKey, purpose Purpose, cacheKey, outcome string) {
	f.logger.Debug("resolved signature provider",
		types.AttributeKeyKeyID, sk.KeyID(),
		types.AttributeKeyAlgorithm, sk.Algorithm(),
		types.AttributeKeyPurpose, purpose.String(),
		types.AttributeKeyCache, outcome,
		types.AttributeKeyCacheKey, cacheKey,
	)
}
