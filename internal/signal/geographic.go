package signal

import (
	"context"
	"sort"
	"strings"

	"github.com/gyeh/fraud-signals/internal/catalog"
	"github.com/gyeh/fraud-signals/internal/table"
)

// GeographicDetector flags home-health providers billing a high monthly
// claim volume against a tiny beneficiary pool: the same patients billed
// over and over, a phantom-billing pattern. Restricted to the fixed
// home-health HCPCS set; rows must clear the claim-volume floor before the
// ratio test applies.
type GeographicDetector struct {
	cfg Config
}

func (d *GeographicDetector) Name() string { return string(TypeGeographicImplausibility) }

type geoVolume struct {
	Claims        int64
	Beneficiaries int64
}

type geoFlag struct {
	npi    string
	state  string
	month  catalog.Month
	codes  []string
	claims int64
	benes  int64
}

func (d *GeographicDetector) Detect(ctx context.Context, cat *catalog.Catalog, budget *table.Budget) ([]Signal, error) {
	grouper := table.NewGrouper(budget,
		// npi | month | state | code, with month before code so one provider's
		// flagged codes for a month stream out adjacent.
		func(c geoClaim) string { return c.NPI + "|" + monthKey(c.Month) + "|" + c.State + "|" + c.Code },
		func(string) geoVolume { return geoVolume{} },
		func(acc geoVolume, c geoClaim) geoVolume {
			acc.Claims += c.Claims
			acc.Beneficiaries += c.Beneficiaries
			return acc
		},
	)

	for i, claim := range cat.Claims() {
		if i%8192 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if _, ok := homeHealthCodes[claim.HCPCSCode]; !ok {
			continue
		}
		prov, ok := cat.Provider(claim.BillingNPI)
		if !ok {
			continue
		}
		state := prov.State
		if state == "" {
			state = "UNKNOWN"
		}
		err := grouper.Add(geoClaim{
			NPI:           claim.BillingNPI,
			State:         state,
			Code:          claim.HCPCSCode,
			Month:         claim.ClaimMonth,
			Claims:        int64(claim.ClaimCount),
			Beneficiaries: int64(claim.UniqueBeneficiaries),
		})
		if err != nil {
			return nil, err
		}
	}

	// Merge flagged (npi, month) rows across codes.
	flagged := make(map[string]*geoFlag)
	var order []string
	err := grouper.Each(func(key string, acc geoVolume) error {
		if acc.Claims <= d.cfg.GeoMinClaims {
			return nil
		}
		ratio, ok := table.Ratio(float64(acc.Beneficiaries), float64(acc.Claims))
		if !ok || ratio >= d.cfg.GeoMaxRatio {
			return nil
		}
		parts := strings.SplitN(key, "|", 4)
		npi, monthStr, state, code := parts[0], parts[1], parts[2], parts[3]

		fk := npi + "|" + monthStr
		f := flagged[fk]
		if f == nil {
			m, _ := parseMonthKey(monthStr)
			f = &geoFlag{npi: npi, state: state, month: m}
			flagged[fk] = f
			order = append(order, fk)
		}
		f.codes = append(f.codes, code)
		f.claims += acc.Claims
		f.benes += acc.Beneficiaries
		return nil
	})
	if err != nil {
		return nil, err
	}

	var signals []Signal
	for _, fk := range order {
		f := flagged[fk]
		ratio, ok := table.Ratio(float64(f.benes), float64(f.claims))
		if !ok {
			continue
		}
		sort.Strings(f.codes)

		ev := Evidence{}
		ev.Set("state", f.state)
		ev.Set("flagged_hcpcs_codes", f.codes)
		ev.Set("flagged_month", f.month.String())
		ev.Set("claims_count", f.claims)
		ev.Set("unique_beneficiaries", f.benes)
		ev.Set("beneficiary_to_claims_ratio", ratio)

		signals = append(signals, Signal{
			NPI:      f.npi,
			Type:     TypeGeographicImplausibility,
			Severity: SeverityMedium,
			Evidence: ev,
			// No overpayment heuristic: the volume itself may be payable,
			// the pattern is what warrants review.
			EstimatedOverpayment: 0,
		})
	}

	sort.Slice(signals, func(i, j int) bool {
		ri, _ := signals[i].Evidence.Get("beneficiary_to_claims_ratio")
		rj, _ := signals[j].Evidence.Get("beneficiary_to_claims_ratio")
		if ri.(float64) != rj.(float64) {
			return ri.(float64) < rj.(float64)
		}
		return signals[i].NPI < signals[j].NPI
	})
	return signals, nil
}

type geoClaim struct {
	NPI           string
	State         string
	Code          string
	Month         catalog.Month
	Claims        int64
	Beneficiaries int64
}
