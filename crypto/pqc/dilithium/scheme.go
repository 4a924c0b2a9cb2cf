package dilithium

// PublicKey represents a packed lattice signature public key.
type PublicKey []byte

// PrivateKey represents a packed lattice signature private key.
type PrivateKey []byte

// Signature represents a packed lattice signature.
type Signature []byte

const (
	BackendCircl = "circl"
)

var activeBackend = "unknown"

func ActiveBackend() string { return activeBackend }

func setActiveBackend(name string) {
	activeBackend = name
}

// Scheme defines the minimal interface implemented by every parameter set backend.
type Scheme interface {
	// Name returns the parameter set identifier (e.g. "ML-DSA-65").
	Name() string
	// PublicKeySize returns the expected public key length in bytes.
	PublicKeySize() int
	// PrivateKeySize returns the expected private key length in bytes.
	PrivateKeySize() int
	// SignatureSize returns the expected signature length in bytes.
	SignatureSize() int
	// SeedSize returns the length of the seed accepted by GenerateKey.
	SeedSize() int

	GenerateKey(seed []byte) (PublicKey, PrivateKey, error)
	Sign(priv PrivateKey, msg []byte) (Signature, error)
	Verify(pub PublicKey, msg []byte, sig Signature) bool

	// Bind decodes key material once so it can be reused across many
	// operations. priv may be nil for a verify-only binding.
	Bind(pub PublicKey, priv PrivateKey) (*BoundKey, error)
}
