// Package signal implements the six fraud-signal detectors. Each detector
// is a pure reader of the catalog: detectors share no state, run in any
// order or concurrently, and emit deterministic, sorted signal lists.
package signal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gyeh/fraud-signals/internal/catalog"
	"github.com/gyeh/fraud-signals/internal/table"
)

// Type identifies one of the six signals.
type Type string

const (
	TypeExcludedProvider         Type = "excluded_provider"
	TypeBillingOutlier           Type = "billing_outlier"
	TypeRapidEscalation          Type = "rapid_escalation"
	TypeWorkforceImpossibility   Type = "workforce_impossibility"
	TypeSharedOfficial           Type = "shared_official"
	TypeGeographicImplausibility Type = "geographic_implausibility"
)

// AllTypes lists the signal types in report order.
var AllTypes = []Type{
	TypeExcludedProvider,
	TypeBillingOutlier,
	TypeRapidEscalation,
	TypeWorkforceImpossibility,
	TypeSharedOfficial,
	TypeGeographicImplausibility,
}

// Severity is the coarse investigative priority: critical > high > medium.
type Severity int

const (
	SeverityMedium Severity = iota + 1
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	}
	return "unknown"
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Evidence is an insertion-ordered key/value mapping. Order matters for
// byte-identical report output across runs.
type Evidence struct {
	keys []string
	vals map[string]any
}

// Set appends (or overwrites) a key, preserving first-insertion order.
func (e *Evidence) Set(key string, val any) *Evidence {
	if e.vals == nil {
		e.vals = make(map[string]any)
	}
	if _, exists := e.vals[key]; !exists {
		e.keys = append(e.keys, key)
	}
	e.vals[key] = val
	return e
}

// Get returns the value stored under key.
func (e *Evidence) Get(key string) (any, bool) {
	v, ok := e.vals[key]
	return v, ok
}

func (e Evidence) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(e.vals[k])
		if err != nil {
			return nil, fmt.Errorf("evidence key %s: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Signal is one detected fraud signal for a provider.
type Signal struct {
	NPI                  string   `json:"npi"`
	Type                 Type     `json:"signal_type"`
	Severity             Severity `json:"severity"`
	Evidence             Evidence `json:"evidence"`
	EstimatedOverpayment float64  `json:"estimated_overpayment"`
}

// Detector computes one signal type from the catalog.
type Detector interface {
	Name() string
	Detect(ctx context.Context, cat *catalog.Catalog, budget *table.Budget) ([]Signal, error)
}

// Detectors returns all six detectors in report order.
func Detectors(cfg Config) []Detector {
	return []Detector{
		&ExcludedProviderDetector{cfg: cfg},
		&BillingOutlierDetector{cfg: cfg},
		&RapidEscalationDetector{cfg: cfg},
		&WorkforceDetector{cfg: cfg},
		&SharedOfficialDetector{cfg: cfg},
		&GeographicDetector{cfg: cfg},
	}
}
