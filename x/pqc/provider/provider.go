package provider

import (
	"context"
	"runtime"
	"time"

	"cosmossdk.io/log"
	"golang.org/x/sync/errgroup"

	"pqsig/app/metrics"
	"pqsig/x/pqc/types"
)

// SignatureProvider is the per-request facade over a shared SignerAdapter.
type SignatureProvider struct {
	adapter *SignerAdapter
	logger  log.Logger
	metrics bool
}

func newSignatureProvider(adapter *SignerAdapter, logger log.Logger, withMetrics bool) *SignatureProvider {
	return &SignatureProvider{adapter: adapter, logger: logger, metrics: withMetrics}
}

func (p *SignatureProvider) Algorithm() string { return p.adapter.Algorithm() }

func (p *SignatureProvider) KeyID() string { return p.adapter.KeyID() }

func (p *SignatureProvider) Purpose() Purpose { return p.adapter.Purpose() }

// CanSign reports whether Sign is permitted.
func (p *SignatureProvider) CanSign() bool { return p.adapter.Purpose() == PurposeSign }

// Sign returns a deterministic signature over input.
func (p *SignatureProvider) Sign(input []byte) ([]byte, error) {
	start := time.Now()
	sig, err := p.adapter.sign(input)
	if err != nil {
		return nil, err
	}
	if p.metrics {
		metrics.SignObserver().Observe(time.Since(start).Seconds())
		metrics.SignaturesCounter().WithLabelValues(types.ResultSigned).Inc()
	}
	return sig, nil
}

// Verify reports whether signature is valid for input. A mismatch is a false
// result, not an error.
func (p *SignatureProvider) Verify(input, signature []byte) bool {
	start := time.Now()
	ok := p.adapter.verify(input, signature)
	if p.metrics {
		metrics.VerifyObserver().Observe(time.Since(start).Seconds())
		result := types.ResultVerified
		if !ok {
			result = types.ResultRejected
		}
		metrics.SignaturesCounter().WithLabelValues(result).Inc()
	}
	if !ok {
		p.logger.Debug("signature rejected",
			types.AttributeKeyKeyID, p.adapter.KeyID(),
			types.AttributeKeyAlgorithm, p.adapter.Algorithm(),
		)
	}
	return ok
}

// VerifyRange verifies signature[sigOffset:sigOffset+sigLength] over
// input[inputOffset:inputOffset+inputLength].
func (p *SignatureProvider) VerifyRange(input []byte, inputOffset, inputLength int, signature []byte, sigOffset, sigLength int) (bool, error) {
	if err := checkRange("input", len(input), inputOffset, inputLength); err != nil {
		return false, err
	}
	if err := checkRange("signature", len(signature), sigOffset, sigLength); err != nil {
		return false, err
	}
	msg := make([]byte, inputLength)
	copy(msg, input[inputOffset:inputOffset+inputLength])
	sig := make([]byte, sigLength)
	copy(sig, signature[sigOffset:sigOffset+sigLength])
	return p.Verify(msg, sig), nil
}

// VerifyBatch verifies pairs of inputs and signatures concurrently. The
// result at index i belongs to inputs[i].
func (p *SignatureProvider) VerifyBatch(ctx context.Context, inputs, signatures [][]byte) ([]bool, error) {
	if len(inputs) != len(signatures) {
		return nil, types.ErrInvalidRange.Wrapf("%d inputs for %d signatures", len(inputs), len(signatures))
	}
	results := make([]bool, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = p.Verify(inputs[i], signatures[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Close releases the provider. The shared adapter stays in the factory cache.
func (p *SignatureProvider) Close() error {
	return nil
}

func checkRange(name string, size, offset, length int) error {
	if offset < 0 || length < 0 {
		return types.ErrInvalidRange.Wrapf("%s offset %d length %d must not be negative", name, offset, length)
	}
	if offset > size || length > size-offset {
		return types.ErrInvalidRange.Wrapf("%s offset %d length %d exceeds buffer of %d bytes", name, offset, length, size)
	}
	return nil
}
