package signal

import (
	"context"
	"sort"
	"strings"

	"github.com/gyeh/fraud-signals/internal/catalog"
	"github.com/gyeh/fraud-signals/internal/table"
)

// SharedOfficialDetector finds authorized officials controlling five or
// more NPIs whose combined billing exceeds $1M. The emitted signal's NPI is
// the group's smallest member (a deterministic representative) and the
// evidence carries the full member list with per-member totals, since
// attributing a group total to a single entity is not meaningful.
type SharedOfficialDetector struct {
	cfg Config
}

func (d *SharedOfficialDetector) Name() string { return string(TypeSharedOfficial) }

type officialGroup struct {
	key         string
	displayName string // official's name with source casing, first encountered row
	npis        []string
}

func (d *SharedOfficialDetector) Detect(ctx context.Context, cat *catalog.Catalog, budget *table.Budget) ([]Signal, error) {
	// Group directory rows by normalized official name.
	groups := make(map[string]*officialGroup)
	seen := make(map[string]struct{}) // key + "|" + npi
	for _, p := range cat.Providers() {
		last := strings.TrimSpace(p.AuthorizedOfficialLast)
		first := strings.TrimSpace(p.AuthorizedOfficialFirst)
		if last == "" || first == "" {
			continue
		}
		key := strings.ToUpper(last) + "|" + strings.ToUpper(first)
		g := groups[key]
		if g == nil {
			g = &officialGroup{key: key, displayName: first + " " + last}
			groups[key] = g
		}
		memberKey := key + "|" + p.NPI
		if _, dup := seen[memberKey]; dup {
			continue
		}
		seen[memberKey] = struct{}{}
		g.npis = append(g.npis, p.NPI)
	}

	// Candidate members across qualifying groups; totals are computed only
	// for these NPIs.
	candidates := make(map[string]float64)
	var keys []string
	for key, g := range groups {
		if len(g.npis) < d.cfg.SharedOfficialMinNPIs {
			continue
		}
		keys = append(keys, key)
		for _, npi := range g.npis {
			candidates[npi] = 0
		}
	}
	sort.Strings(keys)

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
		if _, ok := candidates[claim.BillingNPI]; !ok {
			continue
		}
		if err := grouper.Add(claim); err != nil {
			return nil, err
		}
	}
	err := grouper.Each(func(npi string, total float64) error {
		candidates[npi] = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	var signals []Signal
	for _, key := range keys {
		g := groups[key]
		sort.Strings(g.npis)

		perNPI := make(map[string]float64, len(g.npis))
		var combined float64
		for _, npi := range g.npis {
			perNPI[npi] = candidates[npi]
			combined += candidates[npi]
		}
		if combined <= d.cfg.SharedOfficialMinTotal {
			continue
		}
		severity := SeverityMedium
		if combined > d.cfg.SharedOfficialHighTotal {
			severity = SeverityHigh
		}

		ev := Evidence{}
		ev.Set("authorized_official_name", g.displayName)
		ev.Set("controlled_npi_count", len(g.npis))
		ev.Set("controlled_npis", g.npis)
		ev.Set("paid_per_npi", perNPI)
		ev.Set("combined_total_paid", combined)

		signals = append(signals, Signal{
			NPI:      g.npis[0],
			Type:     TypeSharedOfficial,
			Severity: severity,
			Evidence: ev,
			// Attribution to a single entity is not meaningful for a
			// group signal.
			EstimatedOverpayment: 0,
		})
	}

	sort.Slice(signals, func(i, j int) bool {
		ci, _ := signals[i].Evidence.Get("combined_total_paid")
		cj, _ := signals[j].Evidence.Get("combined_total_paid")
		if ci.(float64) != cj.(float64) {
			return ci.(float64) > cj.(float64)
		}
		return signals[i].NPI < signals[j].NPI
	})
	return signals, nil
}
