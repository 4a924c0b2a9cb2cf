package provider

import (
	"math"
	"testing"

	"cosmossdk.io/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"pqsig/app/metrics"
	"pqsig/crypto/pqc/dilithium"
	"pqsig/x/pqc/securitykey"
	"pqsig/x/pqc/types"
)

type foreignKey struct{}

func (foreignKey) KeyID() string                    { return "foreign" }
func (foreignKey) HasPrivateKey() bool              { return true }
func (foreignKey) IsSupportedAlgorithm(string) bool { return true }

func newTestFactory(t *testing.T, opts ...Option) *Factory {
	t.Helper()
	f, err := NewFactory(append([]Option{WithLogger(log.NewTestLogger(t))}, opts...)...)
	require.NoError(t, err)
	return f
}

func generateKey(t *testing.T, alg string) *securitykey.SecurityKey {
	t.Helper()
	key, err := securitykey.Generate(alg)
	require.NoError(t, err)
	return key
}

func TestResolvePublicOnlyKey(t *testing.T) {
	f := newTestFactory(t)
	key := generateKey(t, dilithium.AlgMLDSA65).Public()

	_, err := f.ResolveForSigning(key, dilithium.AlgMLDSA65)
	require.ErrorIs(t, err, types.ErrMissingKeyMaterial)

	p, err := f.ResolveForVerifying(key, dilithium.AlgMLDSA65)
	require.NoError(t, err)
	require.False(t, p.CanSign())
	require.Equal(t, PurposeVerify, p.Purpose())
}

func TestSignThenVerifyWithPublicHalf(t *testing.T) {
	for _, alg := range dilithium.IDs() {
		t.Run(alg, func(t *testing.T) {
			f := newTestFactory(t)
			key := generateKey(t, alg)

			signer, err := f.ResolveForSigning(key, alg)
			require.NoError(t, err)
			verifier, err := f.ResolveForVerifying(key.Public(), alg)
			require.NoError(t, err)

			msg := []byte("header.payload")
			sig, err := signer.Sign(msg)
			require.NoError(t, err)
			require.Len(t, sig, key.ParameterSet().SignatureSize)

			require.True(t, verifier.Verify(msg, sig))
			require.True(t, signer.Verify(msg, sig))

			tampered := append([]byte(nil), sig...)
			tampered[len(tampered)/2] ^= 0x01
			require.False(t, verifier.Verify(msg, tampered))

			require.False(t, verifier.Verify([]byte("header.other"), sig))
			require.False(t, verifier.Verify(msg, sig[:len(sig)-1]))
			require.False(t, verifier.Verify(msg, nil))
		})
	}
}

func TestSignIsDeterministic(t *testing.T) {
	f := newTestFactory(t)
	key := generateKey(t, dilithium.AlgCRYDI3)

	first, err := f.ResolveForSigning(key, dilithium.AlgCRYDI3)
	require.NoError(t, err)
	f.Purge()
	second, err := f.ResolveForSigning(key, dilithium.AlgCRYDI3)
	require.NoError(t, err)

	msg := []byte("deterministic")
	a, err := first.Sign(msg)
	require.NoError(t, err)
	b, err := second.Sign(msg)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestVerifyOnlyProviderRejectsSign(t *testing.T) {
	f := newTestFactory(t)
	key := generateKey(t, dilithium.AlgMLDSA44)

	p, err := f.ResolveForVerifying(key, dilithium.AlgMLDSA44)
	require.NoError(t, err)

	_, err = p.Sign([]byte("nope"))
	require.ErrorIs(t, err, types.ErrNotSupportedForVerifyOnly)
}

func TestResolveIncompatibleKeyType(t *testing.T) {
	f := newTestFactory(t)

	_, err := f.ResolveForSigning(foreignKey{}, dilithium.AlgMLDSA65)
	require.ErrorIs(t, err, types.ErrIncompatibleKeyType)

	_, err = f.ResolveForVerifying(nil, dilithium.AlgMLDSA65)
	require.ErrorIs(t, err, types.ErrIncompatibleKeyType)

	var typedNil *securitykey.SecurityKey
	_, err = f.ResolveForSigning(typedNil, dilithium.AlgMLDSA65)
	require.ErrorIs(t, err, types.ErrIncompatibleKeyType)

	require.False(t, f.IsSupportedAlgorithm(dilithium.AlgMLDSA65, foreignKey{}))
	require.Zero(t, f.CacheLen())
}

func TestResolveAlgorithmMismatch(t *testing.T) {
	f := newTestFactory(t)
	key := generateKey(t, dilithium.AlgMLDSA65)

	_, err := f.ResolveForVerifying(key, dilithium.AlgMLDSA44)
	require.ErrorIs(t, err, types.ErrUnsupportedAlgorithm)

	_, err = f.ResolveForVerifying(key, "RS256")
	require.ErrorIs(t, err, types.ErrUnsupportedAlgorithm)

	require.True(t, f.IsSupportedAlgorithm(dilithium.AlgMLDSA65, key))
	require.False(t, f.IsSupportedAlgorithm(dilithium.AlgMLDSA87, key))
	require.False(t, f.IsSupportedAlgorithm("ml-dsa-65", key))
	require.Zero(t, f.CacheLen())
}

func TestAllowedAlgorithms(t *testing.T) {
	f := newTestFactory(t, WithAllowedAlgorithms(dilithium.AlgMLDSA87))
	key := generateKey(t, dilithium.AlgMLDSA65)

	require.False(t, f.IsSupportedAlgorithm(dilithium.AlgMLDSA65, key))
	_, err := f.ResolveForVerifying(key, dilithium.AlgMLDSA65)
	require.ErrorIs(t, err, types.ErrUnsupportedAlgorithm)

	_, err = NewFactory(WithAllowedAlgorithms("ES256"))
	require.ErrorIs(t, err, types.ErrInvalidParams)
}

func TestCacheReusesAdapters(t *testing.T) {
	f := newTestFactory(t)
	key := generateKey(t, dilithium.AlgMLDSA44)

	v1, err := f.ResolveForVerifying(key, dilithium.AlgMLDSA44)
	require.NoError(t, err)
	v2, err := f.ResolveForVerifying(key, dilithium.AlgMLDSA44)
	require.NoError(t, err)
	require.NotSame(t, v1, v2)
	require.Same(t, v1.adapter, v2.adapter)
	require.Equal(t, 1, f.CacheLen())

	s1, err := f.ResolveForSigning(key, dilithium.AlgMLDSA44)
	require.NoError(t, err)
	require.NotSame(t, v1.adapter, s1.adapter)
	require.Equal(t, 2, f.CacheLen())

	_, ok := f.cache.get(key.KeyID())
	require.True(t, ok)
	_, ok = f.cache.get(key.KeyID() + types.SigningCacheSuffix)
	require.True(t, ok)

	// Same logical key imported again shares the adapter.
	doc := key.ToJWK(false)
	again, err := securitykey.FromJWK(doc)
	require.NoError(t, err)
	v3, err := f.ResolveForVerifying(again, dilithium.AlgMLDSA44)
	require.NoError(t, err)
	require.Same(t, v1.adapter, v3.adapter)
}

func TestPurgeKeepsIssuedProviders(t *testing.T) {
	f := newTestFactory(t)
	key := generateKey(t, dilithium.AlgMLDSA44)

	signer, err := f.ResolveForSigning(key, dilithium.AlgMLDSA44)
	require.NoError(t, err)
	_, err = f.ResolveForVerifying(key, dilithium.AlgMLDSA44)
	require.NoError(t, err)

	require.Equal(t, 2, f.Purge())
	require.Zero(t, f.CacheLen())

	msg := []byte("still usable")
	sig, err := signer.Sign(msg)
	require.NoError(t, err)
	require.True(t, signer.Verify(msg, sig))
}

func TestCloseLeavesAdapterCached(t *testing.T) {
	f := newTestFactory(t)
	key := generateKey(t, dilithium.AlgCRYDI2)

	p, err := f.ResolveForSigning(key, dilithium.AlgCRYDI2)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.Equal(t, 1, f.CacheLen())

	again, err := f.ResolveForSigning(key, dilithium.AlgCRYDI2)
	require.NoError(t, err)
	require.Same(t, p.adapter, again.adapter)
}

func TestFingerprintCacheIdentity(t *testing.T) {
	a, err := securitykey.GenerateWithID(dilithium.AlgMLDSA44, "shared-kid")
	require.NoError(t, err)
	b, err := securitykey.GenerateWithID(dilithium.AlgMLDSA44, "shared-kid")
	require.NoError(t, err)

	msg := []byte("collision")

	byID := newTestFactory(t)
	signA, err := byID.ResolveForSigning(a, dilithium.AlgMLDSA44)
	require.NoError(t, err)
	sigA, err := signA.Sign(msg)
	require.NoError(t, err)
	vb, err := byID.ResolveForVerifying(b, dilithium.AlgMLDSA44)
	require.NoError(t, err)
	va, err := byID.ResolveForVerifying(a, dilithium.AlgMLDSA44)
	require.NoError(t, err)
	// Colliding ids share one adapter under key-id caching.
	require.Same(t, va.adapter, vb.adapter)

	byFP := newTestFactory(t, WithCacheIdentity(types.CacheByFingerprint))
	fa, err := byFP.ResolveForVerifying(a, dilithium.AlgMLDSA44)
	require.NoError(t, err)
	fb, err := byFP.ResolveForVerifying(b, dilithium.AlgMLDSA44)
	require.NoError(t, err)
	require.NotSame(t, fa.adapter, fb.adapter)
	require.True(t, fa.Verify(msg, sigA))
	require.False(t, fb.Verify(msg, sigA))
	require.Equal(t, 2, byFP.CacheLen())
}

func TestSharedKeyIDAcrossParameterSets(t *testing.T) {
	classic, err := securitykey.GenerateWithID(dilithium.AlgCRYDI3, "kid-1")
	require.NoError(t, err)
	modern, err := securitykey.GenerateWithID(dilithium.AlgMLDSA65, "kid-1")
	require.NoError(t, err)

	f := newTestFactory(t)
	_, err = f.ResolveForSigning(classic, dilithium.AlgCRYDI3)
	require.NoError(t, err)
	_, err = f.ResolveForVerifying(classic, dilithium.AlgCRYDI3)
	require.NoError(t, err)

	_, err = f.ResolveForSigning(modern, dilithium.AlgMLDSA65)
	require.ErrorIs(t, err, types.ErrIncompatibleKeyType)
	_, err = f.ResolveForVerifying(modern, dilithium.AlgMLDSA65)
	require.ErrorIs(t, err, types.ErrIncompatibleKeyType)
	require.Equal(t, 2, f.CacheLen())

	byFP := newTestFactory(t, WithCacheIdentity(types.CacheByFingerprint))
	_, err = byFP.ResolveForSigning(classic, dilithium.AlgCRYDI3)
	require.NoError(t, err)
	p, err := byFP.ResolveForSigning(modern, dilithium.AlgMLDSA65)
	require.NoError(t, err)
	sig, err := p.Sign([]byte("msg"))
	require.NoError(t, err)
	require.Len(t, sig, modern.ParameterSet().SignatureSize)
}

func TestAdapterSignFailureIsInvalidKeyMaterial(t *testing.T) {
	key := generateKey(t, dilithium.AlgMLDSA44)
	scheme, err := dilithium.New(dilithium.AlgMLDSA44)
	require.NoError(t, err)
	bound, err := scheme.Bind(key.Material().PublicKey(), nil)
	require.NoError(t, err)

	a := &SignerAdapter{purpose: PurposeSign, keyID: key.KeyID(), algorithm: key.Algorithm(), bound: bound}
	_, err = a.sign([]byte("msg"))
	require.ErrorIs(t, err, types.ErrInvalidKeyMaterial)
	require.NotErrorIs(t, err, types.ErrMissingKeyMaterial)
}

func TestVerifyRange(t *testing.T) {
	f := newTestFactory(t)
	key := generateKey(t, dilithium.AlgMLDSA44)
	p, err := f.ResolveForSigning(key, dilithium.AlgMLDSA44)
	require.NoError(t, err)

	msg := []byte("payload")
	sig, err := p.Sign(msg)
	require.NoError(t, err)

	input := append(append([]byte("xx"), msg...), []byte("yyy")...)
	sigBuf := append(append([]byte{0, 0, 0}, sig...), 0)

	ok, err := p.VerifyRange(input, 2, len(msg), sigBuf, 3, len(sig))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.VerifyRange(input, 1, len(msg), sigBuf, 3, len(sig))
	require.NoError(t, err)
	require.False(t, ok)

	bad := []struct {
		name                       string
		inOff, inLen, sigOff, sLen int
	}{
		{"negative input offset", -1, len(msg), 3, len(sig)},
		{"negative signature length", 2, len(msg), 3, -1},
		{"input past end", 2, len(input), 3, len(sig)},
		{"signature past end", 2, len(msg), 5, len(sig)},
		{"offset beyond buffer", len(input) + 1, 0, 3, len(sig)},
		{"overflowing length", 2, math.MaxInt, 3, len(sig)},
		{"overflowing offset", math.MaxInt, 1, 3, len(sig)},
	}
	for _, tc := range bad {
		_, err := p.VerifyRange(input, tc.inOff, tc.inLen, sigBuf, tc.sigOff, tc.sLen)
		require.ErrorIs(t, err, types.ErrInvalidRange, tc.name)
	}

	ok, err = p.VerifyRange(input, len(input), 0, sigBuf, 0, 0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolutionMetrics(t *testing.T) {
	f := newTestFactory(t)
	key := generateKey(t, dilithium.AlgMLDSA44)

	miss := metrics.ResolutionsCounter().WithLabelValues("verify", types.CacheMiss)
	hit := metrics.ResolutionsCounter().WithLabelValues("verify", types.CacheHit)
	failed := metrics.ResolutionsCounter().WithLabelValues("sign", types.CacheError)
	missBefore, hitBefore, failedBefore := testutil.ToFloat64(miss), testutil.ToFloat64(hit), testutil.ToFloat64(failed)

	_, err := f.ResolveForVerifying(key, dilithium.AlgMLDSA44)
	require.NoError(t, err)
	_, err = f.ResolveForVerifying(key, dilithium.AlgMLDSA44)
	require.NoError(t, err)
	_, err = f.ResolveForSigning(key.Public(), dilithium.AlgMLDSA44)
	require.Error(t, err)

	require.Equal(t, missBefore+1, testutil.ToFloat64(miss))
	require.Equal(t, hitBefore+1, testutil.ToFloat64(hit))
	require.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestWithoutMetricsSkipsCollectors(t *testing.T) {
	f := newTestFactory(t, WithoutMetrics())
	key := generateKey(t, dilithium.AlgMLDSA44)

	rejected := metrics.SignaturesCounter().WithLabelValues(types.ResultRejected)
	before := testutil.ToFloat64(rejected)

	p, err := f.ResolveForVerifying(key, dilithium.AlgMLDSA44)
	require.NoError(t, err)
	require.False(t, p.Verify([]byte("m"), []byte("not a signature")))
	require.Equal(t, before, testutil.ToFloat64(rejected))
}
