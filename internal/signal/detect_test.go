package signal

import (
	"testing"
	"time"

	"github.com/gyeh/fraud-signals/internal/catalog"
	"github.com/gyeh/fraud-signals/internal/table"
)

func month(t *testing.T, s string) catalog.Month {
	t.Helper()
	m, err := catalog.ParseMonth(s)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func date(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return &d
}

func claim(t *testing.T, npi, hcpcs, m string, benes, count uint32, paid float64) catalog.ClaimRecord {
	t.Helper()
	return catalog.ClaimRecord{
		BillingNPI:          npi,
		HCPCSCode:           hcpcs,
		ClaimMonth:          month(t, m),
		UniqueBeneficiaries: benes,
		ClaimCount:          count,
		TotalPaid:           paid,
	}
}

func evidence(t *testing.T, s Signal, key string) any {
	t.Helper()
	v, ok := s.Evidence.Get(key)
	if !ok {
		t.Fatalf("evidence key %q missing", key)
	}
	return v
}

func testBudget() *table.Budget {
	return table.Unbounded()
}
