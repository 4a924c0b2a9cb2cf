package dilithium

import (
	"fmt"

	"github.com/cloudflare/circl/sign"
	dilithium2 "github.com/cloudflare/circl/sign/dilithium/mode2"
	dilithium3 "github.com/cloudflare/circl/sign/dilithium/mode3"
	dilithium5 "github.com/cloudflare/circl/sign/dilithium/mode5"
	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/cloudflare/circl/sign/mldsa/mldsa87"
)

// circlSchemes lists the backing circl scheme for every registered parameter set.
func circlSchemes() map[string]sign.Scheme {
	return map[string]sign.Scheme{
		AlgCRYDI2:  dilithium2.Scheme(),
		AlgCRYDI3:  dilithium3.Scheme(),
		AlgCRYDI5:  dilithium5.Scheme(),
		AlgMLDSA44: mldsa44.Scheme(),
		AlgMLDSA65: mldsa65.Scheme(),
		AlgMLDSA87: mldsa87.Scheme(),
	}
}

func newCirclScheme(algo string) (Scheme, error) {
	sch, ok := circlSchemes()[algo]
	if !ok || sch == nil {
		return nil, fmt.Errorf("dilithium: circl scheme unavailable for %q", algo)
	}
	setActiveBackend(BackendCircl)
	return newModeScheme(sch, algo)
}
