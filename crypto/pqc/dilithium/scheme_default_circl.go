package dilithium

// Default returns the ML-DSA-65 scheme used by tooling when no parameter set is chosen.
func Default() Scheme {
	scheme, err := New(DefaultAlgorithm)
	if err != nil {
		panic("pqc: circl backend unavailable: " + err.Error())
	}
	if scheme == nil {
		panic("pqc: circl backend unavailable: nil scheme")
	}
	return scheme
}
