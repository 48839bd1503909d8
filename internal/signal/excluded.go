package signal

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gyeh/fraud-signals/internal/catalog"
	"github.com/gyeh/fraud-signals/internal/table"
)

// ExcludedProviderDetector finds claims billed by (or serviced by) a
// provider inside an active LEIE exclusion window: claim month on or after
// the exclusion date, and before the reinstatement date when one exists. A
// nil reinstatement date means the provider is still excluded.
type ExcludedProviderDetector struct {
	cfg Config
}

func (d *ExcludedProviderDetector) Name() string { return string(TypeExcludedProvider) }

// exclusionHit is one claim matched to one exclusion episode.
type exclusionHit struct {
	Key   string // npi + "|" + episode index, fixed width for sort order
	Month catalog.Month
	Paid  float64
}

type exclusionAcc struct {
	First catalog.Month
	Total float64
	Count int64
}

func (d *ExcludedProviderDetector) Detect(ctx context.Context, cat *catalog.Catalog, budget *table.Budget) ([]Signal, error) {
	grouper := table.NewGrouper(budget,
		func(h exclusionHit) string { return h.Key },
		func(string) exclusionAcc { return exclusionAcc{} },
		func(acc exclusionAcc, h exclusionHit) exclusionAcc {
			if acc.Count == 0 || h.Month < acc.First {
				acc.First = h.Month
			}
			acc.Count++
			acc.Total += h.Paid
			return acc
		},
	)

	for i, claim := range cat.Claims() {
		if i%8192 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		// A claim where billing and servicing NPI hit the same episode
		// counts once, matching the registry cross-reference semantics.
		seen := make(map[string]struct{}, 2)
		for _, npi := range []string{claim.BillingNPI, claim.ServicingNPI} {
			if npi == "" {
				continue
			}
			for epi, excl := range cat.ExclusionsByNPI(npi) {
				if !claimInExclusionWindow(claim.ClaimMonth, excl) {
					continue
				}
				key := fmt.Sprintf("%s|%04d", npi, epi)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				hit := exclusionHit{Key: key, Month: claim.ClaimMonth, Paid: claim.TotalPaid}
				if err := grouper.Add(hit); err != nil {
					return nil, err
				}
			}
		}
	}

	var signals []Signal
	err := grouper.Each(func(key string, acc exclusionAcc) error {
		npi, epiStr, _ := strings.Cut(key, "|")
		epi, _ := strconv.Atoi(epiStr)
		excl := cat.ExclusionsByNPI(npi)[epi]

		ev := Evidence{}
		ev.Set("exclusion_date", evidenceDate(excl.ExclusionDate))
		ev.Set("exclusion_type", excl.ExclusionType)
		ev.Set("reinstatement_date", evidenceDate(excl.ReinstatementDate))
		ev.Set("first_post_exclusion_billing", acc.First.String())
		ev.Set("total_paid_after_exclusion", acc.Total)

		signals = append(signals, Signal{
			NPI:                  npi,
			Type:                 TypeExcludedProvider,
			Severity:             SeverityCritical,
			Evidence:             ev,
			EstimatedOverpayment: acc.Total,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	byOverpaymentDesc(signals)
	return signals, nil
}

// claimInExclusionWindow reports whether the claim month falls inside the
// episode's active window. Comparison is at day granularity against the
// first of the claim month, so a mid-month exclusion does not capture that
// month's claims.
func claimInExclusionWindow(m catalog.Month, excl catalog.ExclusionRecord) bool {
	if excl.ExclusionDate == nil {
		return false
	}
	t := m.Time()
	if t.Before(*excl.ExclusionDate) {
		return false
	}
	return excl.ReinstatementDate == nil || t.Before(*excl.ReinstatementDate)
}
