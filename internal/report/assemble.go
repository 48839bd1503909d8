// Package report merges per-detector signals into the final report
// document: one entry per flagged provider with aggregate overpayment,
// highest severity, provider identity, and billing context.
package report

import (
	"sort"
	"time"

	"github.com/gyeh/fraud-signals/internal/catalog"
	"github.com/gyeh/fraud-signals/internal/signal"
)

// ToolVersion is stamped into every report.
const ToolVersion = "1.0.0"

// Report is the emitted document.
type Report struct {
	GeneratedAt           string            `json:"generated_at"`
	ToolVersion           string            `json:"tool_version"`
	TotalProvidersScanned int               `json:"total_providers_scanned"`
	TotalProvidersFlagged int               `json:"total_providers_flagged"`
	SignalCounts          map[string]int    `json:"signal_counts"`
	FlaggedProviders      []FlaggedProvider `json:"flagged_providers"`
}

// FlaggedProvider aggregates all signals for one NPI.
type FlaggedProvider struct {
	NPI                             string        `json:"npi"`
	ProviderName                    string        `json:"provider_name"`
	EntityType                      string        `json:"entity_type"`
	TaxonomyCode                    *string       `json:"taxonomy_code"`
	State                           *string       `json:"state"`
	EnumerationDate                 *string       `json:"enumeration_date"`
	TotalPaidAllTime                float64       `json:"total_paid_all_time"`
	TotalClaimsAllTime              int64         `json:"total_claims_all_time"`
	TotalUniqueBeneficiariesAllTime int64         `json:"total_unique_beneficiaries_all_time"`
	HighestSeverity                 string        `json:"highest_severity"`
	Signals                         []SignalEntry `json:"signals"`
	EstimatedOverpaymentUSD         float64       `json:"estimated_overpayment_usd"`
	FCARelevance                    FCARelevance  `json:"fca_relevance"`
}

// SignalEntry is one signal as it appears under a flagged provider.
type SignalEntry struct {
	SignalType string          `json:"signal_type"`
	Severity   string          `json:"severity"`
	Evidence   signal.Evidence `json:"evidence"`
}

// billingTotals is the aggregate billing context joined per flagged NPI.
type billingTotals struct {
	paid          float64
	claims        int64
	beneficiaries int64
}

// Assemble merges signals across detectors into the final report. Provider
// identity and billing totals are joined in single batch passes over the
// catalog rather than per-flagged-row scans.
func Assemble(signalsByType map[signal.Type][]signal.Signal, cat *catalog.Catalog, generatedAt time.Time) *Report {
	// Group signals per NPI, iterating types in fixed order so each
	// provider's signal list (and its primary signal) is deterministic.
	byNPI := make(map[string][]signal.Signal)
	var npiOrder []string
	counts := make(map[string]int, len(signal.AllTypes))
	for _, t := range signal.AllTypes {
		sigs := signalsByType[t]
		counts[string(t)] = len(sigs)
		for _, s := range sigs {
			if _, seen := byNPI[s.NPI]; !seen {
				npiOrder = append(npiOrder, s.NPI)
			}
			byNPI[s.NPI] = append(byNPI[s.NPI], s)
		}
	}

	// Batch join: one pass over the fact table for the flagged set.
	totals := make(map[string]*billingTotals, len(byNPI))
	for npi := range byNPI {
		totals[npi] = &billingTotals{}
	}
	for _, c := range cat.Claims() {
		if t, ok := totals[c.BillingNPI]; ok {
			t.paid += c.TotalPaid
			t.claims += int64(c.ClaimCount)
			t.beneficiaries += int64(c.UniqueBeneficiaries)
		}
	}

	flagged := make([]FlaggedProvider, 0, len(byNPI))
	for _, npi := range npiOrder {
		sigs := byNPI[npi]

		var overpayment float64
		highest := signal.SeverityMedium
		entries := make([]SignalEntry, len(sigs))
		for i, s := range sigs {
			overpayment += s.EstimatedOverpayment
			if s.Severity > highest {
				highest = s.Severity
			}
			entries[i] = SignalEntry{
				SignalType: string(s.Type),
				Severity:   s.Severity.String(),
				Evidence:   s.Evidence,
			}
		}

		fp := FlaggedProvider{
			NPI:                     npi,
			ProviderName:            "Unknown",
			EntityType:              catalog.EntityUnknown.String(),
			HighestSeverity:         highest.String(),
			Signals:                 entries,
			EstimatedOverpaymentUSD: overpayment,
			FCARelevance:            relevanceFor(sigs[0], cat),
		}
		if prov, ok := cat.Provider(npi); ok {
			fp.ProviderName = prov.DisplayName
			fp.EntityType = prov.EntityType.String()
			fp.TaxonomyCode = optional(prov.TaxonomyCode)
			fp.State = optional(prov.State)
			if prov.EnumerationDate != nil {
				d := prov.EnumerationDate.Format("2006-01-02")
				fp.EnumerationDate = &d
			}
		}
		if t := totals[npi]; t != nil {
			fp.TotalPaidAllTime = t.paid
			fp.TotalClaimsAllTime = t.claims
			fp.TotalUniqueBeneficiariesAllTime = t.beneficiaries
		}
		flagged = append(flagged, fp)
	}

	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].EstimatedOverpaymentUSD != flagged[j].EstimatedOverpaymentUSD {
			return flagged[i].EstimatedOverpaymentUSD > flagged[j].EstimatedOverpaymentUSD
		}
		return flagged[i].NPI < flagged[j].NPI
	})

	return &Report{
		GeneratedAt:           generatedAt.UTC().Format(time.RFC3339),
		ToolVersion:           ToolVersion,
		TotalProvidersScanned: cat.DistinctBillingNPIs(),
		TotalProvidersFlagged: len(flagged),
		SignalCounts:          counts,
		FlaggedProviders:      flagged,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
