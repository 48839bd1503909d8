package signal

import (
	"context"
	"sort"

	"github.com/gyeh/fraud-signals/internal/catalog"
	"github.com/gyeh/fraud-signals/internal/table"
)

// WorkforceDetector flags organizational providers whose peak monthly claim
// volume implies a physically impossible service rate: more than 6 claims
// per hour across a 22-working-day, 8-hour month.
type WorkforceDetector struct {
	cfg Config
}

func (d *WorkforceDetector) Name() string { return string(TypeWorkforceImpossibility) }

type monthVolume struct {
	Month  catalog.Month
	Claims int64
	Paid   float64
}

func (d *WorkforceDetector) Detect(ctx context.Context, cat *catalog.Catalog, budget *table.Budget) ([]Signal, error) {
	grouper := table.NewGrouper(budget,
		func(c catalog.ClaimRecord) string { return c.BillingNPI + "|" + monthKey(c.ClaimMonth) },
		func(string) monthVolume { return monthVolume{} },
		func(acc monthVolume, c catalog.ClaimRecord) monthVolume {
			acc.Month = c.ClaimMonth
			acc.Claims += int64(c.ClaimCount)
			acc.Paid += c.TotalPaid
			return acc
		},
	)

	for i, claim := range cat.Claims() {
		if i%8192 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !catalog.ValidNPI(claim.BillingNPI) {
			continue
		}
		prov, ok := cat.Provider(claim.BillingNPI)
		if !ok || prov.EntityType != catalog.EntityOrganization {
			continue
		}
		if err := grouper.Add(claim); err != nil {
			return nil, err
		}
	}

	hoursPerMonth := float64(d.cfg.WorkingDaysPerMonth * d.cfg.WorkingHoursPerDay)
	maxClaims := d.cfg.MaxMonthlyClaims()

	var (
		signals []Signal
		curNPI  string
		peak    monthVolume
	)
	flush := func() {
		if curNPI == "" || peak.Claims == 0 {
			return
		}
		rate, ok := table.Ratio(float64(peak.Claims), hoursPerMonth)
		if !ok || rate <= d.cfg.WorkforceClaimsPerHour {
			return
		}
		avgClaim, ok := table.Ratio(peak.Paid, float64(peak.Claims))
		if !ok {
			return
		}
		excess := float64(peak.Claims) - maxClaims
		if excess < 0 {
			excess = 0
		}

		ev := Evidence{}
		ev.Set("peak_month", peak.Month.String())
		ev.Set("peak_claims_count", peak.Claims)
		ev.Set("implied_claims_per_hour", rate)
		ev.Set("total_paid_peak_month", peak.Paid)

		signals = append(signals, Signal{
			NPI:                  curNPI,
			Type:                 TypeWorkforceImpossibility,
			Severity:             SeverityHigh,
			Evidence:             ev,
			EstimatedOverpayment: excess * avgClaim,
		})
	}

	err := grouper.Each(func(key string, acc monthVolume) error {
		npi := key[:len(key)-7]
		if npi != curNPI {
			flush()
			curNPI = npi
			peak = monthVolume{}
		}
		// Strict > keeps the earliest month on ties, since months arrive
		// in ascending order.
		if acc.Claims > peak.Claims {
			peak = acc
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	flush()

	sort.Slice(signals, func(i, j int) bool {
		ri, _ := signals[i].Evidence.Get("implied_claims_per_hour")
		rj, _ := signals[j].Evidence.Get("implied_claims_per_hour")
		if ri.(float64) != rj.(float64) {
			return ri.(float64) > rj.(float64)
		}
		return signals[i].NPI < signals[j].NPI
	})
	return signals, nil
}
