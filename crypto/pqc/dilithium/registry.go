package dilithium

import (
	"fmt"
	"sort"
	"sync"
)

// Family groups parameter sets that share a key format.
type Family uint8

const (
	FamilyUnknown Family = iota
	// FamilyDilithium covers the round-3 CRYSTALS-Dilithium parameter sets.
	FamilyDilithium
	// FamilyMLDSA covers the FIPS 204 ML-DSA parameter sets.
	FamilyMLDSA
)

const (
	KeyTypeMLWE = "MLWE"
	KeyTypeAKP  = "AKP"
)

func (f Family) String() string {
	switch f {
	case FamilyDilithium:
		return "Dilithium"
	case FamilyMLDSA:
		return "ML-DSA"
	default:
		return "unknown"
	}
}

// KeyType returns the JWK kty tag carried by keys of this family.
func (f Family) KeyType() string {
	switch f {
	case FamilyDilithium:
		return KeyTypeMLWE
	case FamilyMLDSA:
		return KeyTypeAKP
	default:
		return ""
	}
}

// FamilyForKeyType maps a JWK kty tag back to its family.
func FamilyForKeyType(kty string) (Family, bool) {
	switch kty {
	case KeyTypeMLWE:
		return FamilyDilithium, true
	case KeyTypeAKP:
		return FamilyMLDSA, true
	default:
		return FamilyUnknown, false
	}
}

const (
	AlgCRYDI2  = "CRYDI2"
	AlgCRYDI3  = "CRYDI3"
	AlgCRYDI5  = "CRYDI5"
	AlgMLDSA44 = "ML-DSA-44"
	AlgMLDSA65 = "ML-DSA-65"
	AlgMLDSA87 = "ML-DSA-87"

	DefaultAlgorithm = AlgMLDSA65
)

// ParameterSet describes one registered parameter set. Sizes are taken from
// the backing scheme.
type ParameterSet struct {
	ID             string
	Family         Family
	SecurityLevel  int
	PublicKeySize  int
	PrivateKeySize int
	SignatureSize  int
}

type registration struct {
	desc   ParameterSet
	scheme Scheme
}

var (
	registryOnce sync.Once
	registry     map[string]registration
	registryErr  error
)

func loadRegistry() {
	levels := []struct {
		id     string
		family Family
		level  int
	}{
		{AlgCRYDI2, FamilyDilithium, 2},
		{AlgCRYDI3, FamilyDilithium, 3},
		{AlgCRYDI5, FamilyDilithium, 5},
		{AlgMLDSA44, FamilyMLDSA, 2},
		{AlgMLDSA65, FamilyMLDSA, 3},
		{AlgMLDSA87, FamilyMLDSA, 5},
	}

	registry = make(map[string]registration, len(levels))
	for _, l := range levels {
		scheme, err := newCirclScheme(l.id)
		if err != nil {
			registryErr = err
			return
		}
		registry[l.id] = registration{
			desc: ParameterSet{
				ID:             l.id,
				Family:         l.family,
				SecurityLevel:  l.level,
				PublicKeySize:  scheme.PublicKeySize(),
				PrivateKeySize: scheme.PrivateKeySize(),
				SignatureSize:  scheme.SignatureSize(),
			},
			scheme: scheme,
		}
	}
}

func lookup(id string) (registration, error) {
	registryOnce.Do(loadRegistry)
	if registryErr != nil {
		return registration{}, registryErr
	}
	reg, ok := registry[id]
	if !ok {
		return registration{}, fmt.Errorf("%w: %q", ErrUnknownParameterSet, id)
	}
	return reg, nil
}

// Lookup resolves a parameter set by its exact, case-sensitive identifier.
func Lookup(id string) (ParameterSet, error) {
	reg, err := lookup(id)
	if err != nil {
		return ParameterSet{}, err
	}
	return reg.desc, nil
}

// IsSupported reports whether id names a registered parameter set.
func IsSupported(id string) bool {
	_, err := lookup(id)
	return err == nil
}

// New returns the scheme backing the given parameter set.
func New(id string) (Scheme, error) {
	reg, err := lookup(id)
	if err != nil {
		return nil, err
	}
	return reg.scheme, nil
}

// ParameterSets returns every registered descriptor ordered by family then
// level, or nil when the registry failed to load.
func ParameterSets() []ParameterSet {
	registryOnce.Do(loadRegistry)
	if registryErr != nil {
		return nil
	}
	out := make([]ParameterSet, 0, len(registry))
	for _, reg := range registry {
		out = append(out, reg.desc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Family != out[j].Family {
			return out[i].Family < out[j].Family
		}
		return out[i].SecurityLevel < out[j].SecurityLevel
	})
	return out
}

// IDs returns the identifiers of every registered parameter set.
func IDs() []string {
	sets := ParameterSets()
	ids := make([]string, len(sets))
	for i, ps := range sets {
		ids[i] = ps.ID
	}
	return ids
}
