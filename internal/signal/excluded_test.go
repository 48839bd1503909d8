package signal

import (
	"context"
	"testing"

	"github.com/gyeh/fraud-signals/internal/catalog"
)

func TestExcludedProvider_FlagsBillingInsideWindow(t *testing.T) {
	excluded := "1234567890"
	cat := catalog.New(
		[]catalog.ClaimRecord{
			claim(t, excluded, "99213", "2019-12", 1, 1, 100), // before exclusion
			claim(t, excluded, "99213", "2020-01", 1, 1, 150), // exclusion mid-month, month starts before it
			claim(t, excluded, "99213", "2020-02", 1, 1, 200),
			claim(t, excluded, "99213", "2020-03", 1, 1, 300),
		},
		[]catalog.ExclusionRecord{{
			NPI:           excluded,
			ExclusionType: "1128b4",
			ExclusionDate: date(t, "2020-01-15"),
		}},
		nil,
	)

	det := &ExcludedProviderDetector{cfg: DefaultConfig()}
	signals, err := det.Detect(context.Background(), cat, testBudget())
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}

	s := signals[0]
	if s.NPI != excluded || s.Severity != SeverityCritical {
		t.Errorf("signal = %+v", s)
	}
	if s.EstimatedOverpayment != 500 {
		t.Errorf("overpayment = %v, want 500", s.EstimatedOverpayment)
	}
	if got := evidence(t, s, "first_post_exclusion_billing"); got != "2020-02" {
		t.Errorf("first_post_exclusion_billing = %v", got)
	}
	if got := evidence(t, s, "total_paid_after_exclusion"); got != 500.0 {
		t.Errorf("total_paid_after_exclusion = %v", got)
	}
	if got := evidence(t, s, "exclusion_date"); got != "2020-01-15" {
		t.Errorf("exclusion_date = %v", got)
	}
	if got := evidence(t, s, "reinstatement_date"); got != nil {
		t.Errorf("reinstatement_date = %v, want nil", got)
	}
}

func TestExcludedProvider_ReinstatementEndsWindow(t *testing.T) {
	npi := "1234567890"
	cat := catalog.New(
		[]catalog.ClaimRecord{
			claim(t, npi, "99213", "2021-05", 1, 1, 400), // inside window
			claim(t, npi, "99213", "2021-07", 1, 1, 900), // after reinstatement
		},
		[]catalog.ExclusionRecord{{
			NPI:               npi,
			ExclusionType:     "1128a1",
			ExclusionDate:     date(t, "2018-06-01"),
			ReinstatementDate: date(t, "2021-06-01"),
		}},
		nil,
	)

	det := &ExcludedProviderDetector{cfg: DefaultConfig()}
	signals, err := det.Detect(context.Background(), cat, testBudget())
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	if signals[0].EstimatedOverpayment != 400 {
		t.Errorf("overpayment = %v, want only the pre-reinstatement claim", signals[0].EstimatedOverpayment)
	}
}

func TestExcludedProvider_ReinstatedBeforeFirstClaimNotFlagged(t *testing.T) {
	npi := "1234567890"
	cat := catalog.New(
		[]catalog.ClaimRecord{claim(t, npi, "99213", "2023-01", 1, 1, 5000)},
		[]catalog.ExclusionRecord{{
			NPI:               npi,
			ExclusionType:     "1128a1",
			ExclusionDate:     date(t, "2015-01-01"),
			ReinstatementDate: date(t, "2018-01-01"),
		}},
		nil,
	)

	det := &ExcludedProviderDetector{cfg: DefaultConfig()}
	signals, err := det.Detect(context.Background(), cat, testBudget())
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 0 {
		t.Fatalf("expected no signals, got %+v", signals)
	}
}

func TestExcludedProvider_ServicingRoleCountsOnce(t *testing.T) {
	excluded := "1234567890"
	biller := "1111111111"

	c := claim(t, biller, "T1019", "2022-03", 1, 1, 600)
	c.ServicingNPI = excluded
	// Excluded provider billing for itself: both roles hit the same episode.
	self := claim(t, excluded, "T1019", "2022-04", 1, 1, 250)
	self.ServicingNPI = excluded

	cat := catalog.New(
		[]catalog.ClaimRecord{c, self},
		[]catalog.ExclusionRecord{{
			NPI:           excluded,
			ExclusionType: "1128b4",
			ExclusionDate: date(t, "2021-01-01"),
		}},
		nil,
	)

	det := &ExcludedProviderDetector{cfg: DefaultConfig()}
	signals, err := det.Detect(context.Background(), cat, testBudget())
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	if signals[0].NPI != excluded {
		t.Errorf("signal NPI = %q", signals[0].NPI)
	}
	if signals[0].EstimatedOverpayment != 850 {
		t.Errorf("overpayment = %v, want 850 (each claim counted once)", signals[0].EstimatedOverpayment)
	}
}
