package signal

import (
	"context"
	"math"
	"testing"

	"github.com/gyeh/fraud-signals/internal/catalog"
)

func TestRapidEscalation_MonthOverMonth(t *testing.T) {
	spiker := "1234567890"
	steady := "1111111111"
	lowBase := "2222222222"

	cat := catalog.New(
		[]catalog.ClaimRecord{
			// 1000 -> 7000 (600%), then 7000 -> 90000 (~1186%, the steepest).
			claim(t, spiker, "99213", "2024-01", 1, 1, 1000),
			claim(t, spiker, "99213", "2024-02", 1, 1, 7000),
			claim(t, spiker, "99213", "2024-03", 1, 1, 90000),
			// Modest growth, never flagged.
			claim(t, steady, "99213", "2024-01", 1, 1, 5000),
			claim(t, steady, "99213", "2024-02", 1, 1, 6000),
			// Huge growth off a sub-floor base, never flagged.
			claim(t, lowBase, "99213", "2024-01", 1, 1, 500),
			claim(t, lowBase, "99213", "2024-02", 1, 1, 50000),
		},
		nil, nil,
	)

	det := &RapidEscalationDetector{cfg: DefaultConfig()}
	signals, err := det.Detect(context.Background(), cat, testBudget())
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}

	s := signals[0]
	if s.NPI != spiker {
		t.Errorf("NPI = %q", s.NPI)
	}
	if got := evidence(t, s, "variant"); got != EscalationMonthOverMonth {
		t.Errorf("variant = %v", got)
	}
	if got := evidence(t, s, "prior_month"); got != "2024-02" {
		t.Errorf("prior_month = %v, want the steepest transition's prior", got)
	}
	if got := evidence(t, s, "flagged_month"); got != "2024-03" {
		t.Errorf("flagged_month = %v", got)
	}
	if s.Severity != SeverityHigh {
		t.Errorf("severity = %v, want high for growth above 1000%%", s.Severity)
	}
	if s.EstimatedOverpayment != 83000 {
		t.Errorf("overpayment = %v, want 83000", s.EstimatedOverpayment)
	}
}

func TestRapidEscalation_NewEntityVariant(t *testing.T) {
	newEntity := "1234567890"
	oldEntity := "1111111111"

	providers := []catalog.ProviderRecord{
		{NPI: newEntity, EnumerationDate: date(t, "2023-06-15")},
		{NPI: oldEntity, EnumerationDate: date(t, "2010-01-01")},
	}
	claims := []catalog.ClaimRecord{
		// 300% growth each month for the new entity.
		claim(t, newEntity, "99213", "2024-01", 1, 1, 100),
		claim(t, newEntity, "99213", "2024-02", 1, 1, 400),
		claim(t, newEntity, "99213", "2024-03", 1, 1, 1600),
		// Same trajectory but enumerated far outside the recency window.
		claim(t, oldEntity, "99213", "2024-01", 1, 1, 100),
		claim(t, oldEntity, "99213", "2024-02", 1, 1, 400),
		claim(t, oldEntity, "99213", "2024-03", 1, 1, 1600),
	}
	cat := catalog.New(claims, nil, providers)

	cfg := DefaultConfig()
	cfg.EscalationVariant = EscalationNewEntity
	det := &RapidEscalationDetector{cfg: cfg}
	signals, err := det.Detect(context.Background(), cat, testBudget())
	if err != nil {
		t.Fatal(err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected only the recently enumerated provider, got %d signals", len(signals))
	}

	s := signals[0]
	if s.NPI != newEntity {
		t.Errorf("NPI = %q", s.NPI)
	}
	if got := evidence(t, s, "variant"); got != EscalationNewEntity {
		t.Errorf("variant = %v", got)
	}
	if got := evidence(t, s, "enumeration_date"); got != "2023-06-15" {
		t.Errorf("enumeration_date = %v", got)
	}
	if peak := evidence(t, s, "peak_3_month_growth_rate_pct").(float64); math.Abs(peak-300) > 1e-9 {
		t.Errorf("peak growth = %v, want 300", peak)
	}
	if s.Severity != SeverityMedium {
		t.Errorf("severity = %v, want medium for peak at 300%%", s.Severity)
	}
	if s.EstimatedOverpayment != 2100 {
		t.Errorf("overpayment = %v, want total of first billing months", s.EstimatedOverpayment)
	}
	monthly := evidence(t, s, "monthly_paid_first_12").([]float64)
	if len(monthly) != 3 || monthly[0] != 100 || monthly[2] != 1600 {
		t.Errorf("monthly_paid_first_12 = %v", monthly)
	}
}
