package report

import (
	"fmt"
	"strings"

	"github.com/gyeh/fraud-signals/internal/catalog"
	"github.com/gyeh/fraud-signals/internal/signal"
)

// FCARelevance ties a provider's primary signal to the False Claims Act
// provision it most plausibly implicates.
type FCARelevance struct {
	ClaimType          string   `json:"claim_type"`
	StatuteReference   string   `json:"statute_reference"`
	SuggestedNextSteps []string `json:"suggested_next_steps"`
}

const defaultStatute = "31 U.S.C. § 3729(a)(1)(A)"

var statuteByType = map[signal.Type]string{
	signal.TypeExcludedProvider:         "31 U.S.C. § 3729(a)(1)(A)",
	signal.TypeBillingOutlier:           "31 U.S.C. § 3729(a)(1)(A)",
	signal.TypeRapidEscalation:          "31 U.S.C. § 3729(a)(1)(A)",
	signal.TypeWorkforceImpossibility:   "31 U.S.C. § 3729(a)(1)(B)",
	signal.TypeSharedOfficial:           "31 U.S.C. § 3729(a)(1)(C)",
	signal.TypeGeographicImplausibility: "31 U.S.C. § 3729(a)(1)(G)",
}

var claimTypeByType = map[signal.Type]string{
	signal.TypeExcludedProvider:         "False claims submitted by excluded provider - provider was barred from federal healthcare programs but continued billing",
	signal.TypeBillingOutlier:           "Potential overbilling - provider billing volume significantly exceeds peer group norms",
	signal.TypeRapidEscalation:          "Potential bust-out scheme - newly formed entity showed rapid, unsustainable billing escalation",
	signal.TypeWorkforceImpossibility:   "False records - claimed service volume is physically impossible given workforce constraints",
	signal.TypeSharedOfficial:           "Conspiracy - coordinated billing through multiple entities controlled by same individual",
	signal.TypeGeographicImplausibility: "Reverse false claims - repeated billing on same patients suggests phantom services",
}

// relevanceFor builds the FCA block from a provider's primary signal.
func relevanceFor(primary signal.Signal, cat *catalog.Catalog) FCARelevance {
	claimType, ok := claimTypeByType[primary.Type]
	if !ok {
		claimType = "Potential false claims violation"
	}
	statute, ok := statuteByType[primary.Type]
	if !ok {
		statute = defaultStatute
	}
	return FCARelevance{
		ClaimType:          claimType,
		StatuteReference:   statute,
		SuggestedNextSteps: nextSteps(primary, cat),
	}
}

// nextSteps proposes concrete follow-up actions for a signal. At most three
// steps are returned.
func nextSteps(s signal.Signal, cat *catalog.Catalog) []string {
	npi := s.NPI
	var steps []string

	switch s.Type {
	case signal.TypeExcludedProvider:
		steps = append(steps,
			fmt.Sprintf("Verify exclusion status of NPI %s in OIG LEIE database", npi),
			fmt.Sprintf("Request detailed claims records for %s from %s forward", npi, evidenceString(s.Evidence, "exclusion_date", "exclusion date")),
			fmt.Sprintf("Calculate total Medicaid payments to %s during exclusion period", npi),
		)
		if prov, ok := cat.Provider(npi); ok && prov.State != "" {
			steps = append(steps, fmt.Sprintf("Contact %s Medicaid Fraud Control Unit", prov.State))
		}

	case signal.TypeBillingOutlier:
		taxonomy := evidenceString(s.Evidence, "taxonomy_code", "unknown")
		state := evidenceString(s.Evidence, "state", "unknown")
		steps = append(steps,
			fmt.Sprintf("Audit claims for NPI %s against peer providers in %s/%s", npi, taxonomy, state),
			"Request medical records supporting high-volume claims",
			"Compare service patterns to specialty norms",
			"Interview beneficiaries to verify services were rendered",
		)

	case signal.TypeRapidEscalation:
		enumDate := evidenceString(s.Evidence, "enumeration_date", "unknown")
		steps = append(steps,
			fmt.Sprintf("Investigate ownership/management of entity NPI %s (enumerated %s)", npi, enumDate),
			"Review business formation documents and license applications",
			"Analyze referral patterns for evidence of kickback arrangements",
			"Compare growth trajectory to legitimate new practices",
		)

	case signal.TypeWorkforceImpossibility:
		rate, _ := s.Evidence.Get("implied_claims_per_hour")
		perHour, _ := rate.(float64)
		steps = append(steps,
			fmt.Sprintf("Request employment records and staffing levels for NPI %s", npi),
			fmt.Sprintf("Verify claimed %.1f claims/hour is humanly possible", perHour),
			"Audit time-of-service documentation for sample claims",
			"Interview staff and patients regarding actual service delivery",
		)

	case signal.TypeSharedOfficial:
		official := evidenceString(s.Evidence, "authorized_official_name", "unknown")
		count, _ := s.Evidence.Get("controlled_npi_count")
		n, _ := count.(int)
		steps = append(steps,
			fmt.Sprintf("Investigate business relationships among %d entities controlled by %s", n, official),
			"Review corporate formation documents for common ownership",
			"Analyze billing patterns for coordinated fraud indicators",
			"Examine referral patterns between controlled entities",
		)

	case signal.TypeGeographicImplausibility:
		state := evidenceString(s.Evidence, "state", "unknown")
		var codes []string
		if v, ok := s.Evidence.Get("flagged_hcpcs_codes"); ok {
			codes, _ = v.([]string)
		}
		if len(codes) > 5 {
			codes = codes[:5]
		}
		steps = append(steps,
			fmt.Sprintf("Audit home health claims for NPI %s in %s", npi, state),
			"Verify beneficiary addresses and ability to receive home services",
			fmt.Sprintf("Request documentation for HCPCS codes: %s", strings.Join(codes, ", ")),
			"Interview beneficiaries regarding services actually received",
		)
	}

	if len(steps) > 3 {
		steps = steps[:3]
	}
	return steps
}

// evidenceString reads an evidence value as a string, substituting fallback
// for missing keys, nulls, and non-string values.
func evidenceString(ev signal.Evidence, key, fallback string) string {
	v, ok := ev.Get(key)
	if !ok || v == nil {
		return fallback
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}
