package signal

import (
	"context"

	"github.com/gyeh/fraud-signals/internal/catalog"
	"github.com/gyeh/fraud-signals/internal/table"
)

// RapidEscalationDetector flags providers whose monthly billing jumps
// implausibly fast. Two definitions exist in the source data and exactly one
// is active per run (Config.EscalationVariant):
//
//   - month-over-month (default): any transition where the prior month
//     cleared $1000 and growth exceeded 500%.
//   - new-entity: providers enumerated within 24 months of first billing,
//     evaluated on a 3-month rolling average of month-over-month growth
//     against a 200% threshold over their first 12 billing months.
//
// The two produce different flagged sets; the active variant is recorded in
// each signal's evidence.
type RapidEscalationDetector struct {
	cfg Config
}

func (d *RapidEscalationDetector) Name() string { return string(TypeRapidEscalation) }

type monthPaid struct {
	Month catalog.Month
	Paid  float64
}

func (d *RapidEscalationDetector) Detect(ctx context.Context, cat *catalog.Catalog, budget *table.Budget) ([]Signal, error) {
	grouper := table.NewGrouper(budget,
		func(c catalog.ClaimRecord) string { return c.BillingNPI + "|" + monthKey(c.ClaimMonth) },
		func(string) monthPaid { return monthPaid{} },
		func(acc monthPaid, c catalog.ClaimRecord) monthPaid {
			acc.Month = c.ClaimMonth
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
		if err := grouper.Add(claim); err != nil {
			return nil, err
		}
	}

	// Keys sort as npi then month, so each provider's series arrives
	// contiguous and in month order.
	var (
		signals []Signal
		curNPI  string
		series  []monthPaid
	)
	flush := func() {
		if curNPI == "" || len(series) < 2 {
			return
		}
		var sig *Signal
		if d.cfg.EscalationVariant == EscalationNewEntity {
			sig = d.detectNewEntity(cat, curNPI, series)
		} else {
			sig = d.detectMonthOverMonth(curNPI, series)
		}
		if sig != nil {
			signals = append(signals, *sig)
		}
	}

	err := grouper.Each(func(key string, acc monthPaid) error {
		npi := key[:len(key)-7] // strip "|" + 6-digit month suffix
		if npi != curNPI {
			flush()
			curNPI = npi
			series = series[:0]
		}
		series = append(series, acc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	flush()

	byOverpaymentDesc(signals)
	return signals, nil
}

// detectMonthOverMonth flags the steepest qualifying transition: prior
// billing month at or above the dollar floor, growth above the threshold.
func (d *RapidEscalationDetector) detectMonthOverMonth(npi string, series []monthPaid) *Signal {
	best := -1
	var bestPct float64
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		if prev.Paid < d.cfg.EscalationPriorFloor {
			continue
		}
		pct, ok := table.GrowthPct(prev.Paid, cur.Paid)
		if !ok || pct <= d.cfg.EscalationGrowthPct {
			continue
		}
		if best < 0 || pct > bestPct {
			best = i
			bestPct = pct
		}
	}
	if best < 0 {
		return nil
	}

	prev, cur := series[best-1], series[best]
	severity := SeverityMedium
	if bestPct > d.cfg.EscalationHighPct {
		severity = SeverityHigh
	}

	ev := Evidence{}
	ev.Set("variant", EscalationMonthOverMonth)
	ev.Set("prior_month", prev.Month.String())
	ev.Set("flagged_month", cur.Month.String())
	ev.Set("prior_month_paid", prev.Paid)
	ev.Set("flagged_month_paid", cur.Paid)
	ev.Set("growth_pct", bestPct)

	return &Signal{
		NPI:                  npi,
		Type:                 TypeRapidEscalation,
		Severity:             severity,
		Evidence:             ev,
		EstimatedOverpayment: cur.Paid - prev.Paid,
	}
}

// detectNewEntity implements the enumeration-recency variant over the first
// 12 billing months.
func (d *RapidEscalationDetector) detectNewEntity(cat *catalog.Catalog, npi string, series []monthPaid) *Signal {
	prov, ok := cat.Provider(npi)
	if !ok || prov.EnumerationDate == nil {
		return nil
	}
	firstBilling := series[0].Month
	cutoff := prov.EnumerationDate.AddDate(0, d.cfg.NewEntityMonths, 0)
	if firstBilling.Time().After(cutoff) {
		return nil
	}

	first12 := series
	if len(first12) > 12 {
		first12 = first12[:12]
	}

	// Undefined growths (zero prior month) are dropped before the rolling
	// window, so the window spans defined growth observations.
	var growths []float64
	for i := 1; i < len(first12); i++ {
		if pct, ok := table.GrowthPct(first12[i-1].Paid, first12[i].Paid); ok {
			growths = append(growths, pct)
		}
	}
	if len(growths) == 0 {
		return nil
	}

	rolling := table.RollingAverage(growths, d.cfg.NewEntityWindow)
	peak := rolling[0]
	for _, v := range rolling[1:] {
		if v > peak {
			peak = v
		}
	}
	if peak <= d.cfg.NewEntityGrowthPct {
		return nil
	}

	severity := SeverityMedium
	if peak > d.cfg.NewEntityHighPct {
		severity = SeverityHigh
	}

	var total float64
	monthly := make([]float64, len(first12))
	for i, mp := range first12 {
		monthly[i] = mp.Paid
		total += mp.Paid
	}

	ev := Evidence{}
	ev.Set("variant", EscalationNewEntity)
	ev.Set("enumeration_date", evidenceDate(prov.EnumerationDate))
	ev.Set("first_billing_month", firstBilling.String())
	ev.Set("monthly_paid_first_12", monthly)
	ev.Set("peak_3_month_growth_rate_pct", peak)

	return &Signal{
		NPI:                  npi,
		Type:                 TypeRapidEscalation,
		Severity:             severity,
		Evidence:             ev,
		EstimatedOverpayment: total,
	}
}
