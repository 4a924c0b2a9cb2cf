package metrics

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var (
	registerOnce sync.Once

	pqcResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pqsig",
			Subsystem: "pqc",
			Name:      "resolutions_total",
			Help:      "Count of signature provider resolutions by purpose and cache outcome",
		},
		[]string{"purpose", "cache"},
	)

	pqcSignatures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pqsig",
			Subsystem: "pqc",
			Name:      "signatures_total",
			Help:      "Count of PQC signature operations classified by result",
		},
		[]string{"result"},
	)

	pqcVerifySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pqsig",
			Subsystem: "pqc",
			Name:      "verify_seconds",
			Help:      "Time spent verifying lattice signatures",
			Buckets:   []float64{0.0001, 0.0002, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05},
		},
	)

	pqcSignSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pqsig",
			Subsystem: "pqc",
			Name:      "sign_seconds",
			Help:      "Time spent producing lattice signatures",
			Buckets:   []float64{0.0002, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1},
		},
	)
)

func ensureRegistered() {
	registerOnce.Do(func() {
		prometheus.MustRegister(pqcResolutions, pqcSignatures, pqcVerifySeconds, pqcSignSeconds)
	})
}

func ResolutionsCounter() *prometheus.CounterVec {
	ensureRegistered()
	return pqcResolutions
}

func SignaturesCounter() *prometheus.CounterVec {
	ensureRegistered()
	return pqcSignatures
}

func VerifyObserver() prometheus.Observer {
	ensureRegistered()
	return pqcVerifySeconds
}

func SignObserver() prometheus.Observer {
	ensureRegistered()
	return pqcSignSeconds
}

const namespacePrefix = "pqsig_"

// WriteText encodes the pqsig collectors known to gatherer in the Prometheus
// text exposition format.
func WriteText(w io.Writer, gatherer prometheus.Gatherer) error {
	ensureRegistered()
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), namespacePrefix) {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
