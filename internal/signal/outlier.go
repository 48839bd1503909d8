package signal

import (
	"context"
	"sort"

	"github.com/gyeh/fraud-signals/internal/catalog"
	"github.com/gyeh/fraud-signals/internal/table"
)

// BillingOutlierDetector flags providers whose total paid exceeds the 99th
// percentile of their (taxonomy, state) peer group. Thin peer groups (fewer
// than MinPeerGroup members) are excluded from comparison entirely.
type BillingOutlierDetector struct {
	cfg Config
}

func (d *BillingOutlierDetector) Name() string { return string(TypeBillingOutlier) }

type npiTotal struct {
	NPI   string
	Total float64
}

type peerRef struct {
	NPI      string
	Taxonomy string
	State    string
}

type peerMember struct {
	NPI      string
	Total    float64
	Taxonomy string
	State    string
}

func (d *BillingOutlierDetector) Detect(ctx context.Context, cat *catalog.Catalog, budget *table.Budget) ([]Signal, error) {
	// Total paid per billing NPI.
	grouper := table.NewGrouper(budget,
		func(c catalog.ClaimRecord) string { return c.BillingNPI },
		func(string) float64 { return 0 },
		func(total float64, c catalog.ClaimRecord) float64 { return total + c.TotalPaid },
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

	// Left-join totals to the directory for taxonomy and state; providers
	// absent from NPPES land in the UNKNOWN/UNKNOWN peer group.
	join := table.NewJoiner(budget, table.LeftJoin,
		func(t npiTotal) string { return t.NPI },
		func(p peerRef) string { return p.NPI },
	)
	err := grouper.Each(func(npi string, total float64) error {
		return join.AddLeft(npiTotal{NPI: npi, Total: total})
	})
	if err != nil {
		return nil, err
	}
	for _, p := range cat.Providers() {
		if err := join.AddRight(peerRef{NPI: p.NPI, Taxonomy: p.TaxonomyCode, State: p.State}); err != nil {
			return nil, err
		}
	}

	members := make(map[string][]peerMember) // keyed by taxonomy|state
	err = join.Each(func(j table.Joined[npiTotal, peerRef]) error {
		m := peerMember{NPI: j.Left.NPI, Total: j.Left.Total, Taxonomy: "UNKNOWN", State: "UNKNOWN"}
		if j.Matched {
			if j.Right.Taxonomy != "" {
				m.Taxonomy = j.Right.Taxonomy
			}
			if j.Right.State != "" {
				m.State = j.Right.State
			}
		}
		groupKey := m.Taxonomy + "|" + m.State
		members[groupKey] = append(members[groupKey], m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var signals []Signal
	groupKeys := make([]string, 0, len(members))
	for k := range members {
		groupKeys = append(groupKeys, k)
	}
	sort.Strings(groupKeys)

	for _, gk := range groupKeys {
		group := members[gk]
		if len(group) < d.cfg.MinPeerGroup {
			continue
		}
		totals := make([]float64, len(group))
		for i, m := range group {
			totals[i] = m.Total
		}
		p99 := table.Percentile(totals, d.cfg.OutlierPercentile)
		median := table.Median(totals)

		for _, m := range group {
			if m.Total <= p99 {
				continue
			}
			ratio, ok := table.Ratio(m.Total, median)
			if !ok {
				continue
			}
			severity := SeverityMedium
			if ratio > d.cfg.OutlierHighRatio {
				severity = SeverityHigh
			}
			overpayment := m.Total - p99
			if overpayment < 0 {
				overpayment = 0
			}

			ev := Evidence{}
			ev.Set("total_paid", m.Total)
			ev.Set("taxonomy_code", m.Taxonomy)
			ev.Set("state", m.State)
			ev.Set("peer_group_median", median)
			ev.Set("peer_group_99th_percentile", p99)
			ev.Set("ratio_to_peer_median", ratio)

			signals = append(signals, Signal{
				NPI:                  m.NPI,
				Type:                 TypeBillingOutlier,
				Severity:             severity,
				Evidence:             ev,
				EstimatedOverpayment: overpayment,
			})
		}
	}

	byOverpaymentDesc(signals)
	return signals, nil
}
