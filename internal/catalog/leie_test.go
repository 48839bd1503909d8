package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/gyeh/fraud-signals/internal/progress"
)

func noopTestTracker() progress.Tracker {
	return (&progress.NoopManager{}).NewTracker(0, 1, "test")
}

func TestLoadExclusions_ParsesDatesAndEpisodes(t *testing.T) {
	dir := t.TempDir()

	csv := "\ufeffLASTNAME,FIRSTNAME,NPI,EXCLTYPE,EXCLDATE,REINDATE\n" +
		"DOE,JANE,1234567890,1128b4,20200115,00000000\n" +
		"SMITH,JOHN,987654321,1128a1,20180601,20210601\n" +
		"SHORT,ROW\n" +
		"NONE,BLANK,,1128a1,20190101,00000000\n"
	path := writeTestFile(t, dir, "UPDATED.csv", csv)

	records, skipped, err := loadExclusions(context.Background(), path, noopTestTracker())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if skipped != 2 {
		t.Errorf("expected 2 skipped rows, got %d", skipped)
	}

	first := records[0]
	if first.NPI != "1234567890" {
		t.Errorf("NPI = %q", first.NPI)
	}
	if first.ExclusionType != "1128b4" {
		t.Errorf("ExclusionType = %q", first.ExclusionType)
	}
	if first.ExclusionDate == nil || first.ExclusionDate.Format("2006-01-02") != "2020-01-15" {
		t.Errorf("ExclusionDate = %v", first.ExclusionDate)
	}
	if first.ReinstatementDate != nil {
		t.Errorf("expected nil reinstatement for 00000000, got %v", first.ReinstatementDate)
	}

	second := records[1]
	if second.NPI != "0987654321" {
		t.Errorf("expected left-padded NPI, got %q", second.NPI)
	}
	if second.ReinstatementDate == nil || second.ReinstatementDate.Format("2006-01-02") != "2021-06-01" {
		t.Errorf("ReinstatementDate = %v", second.ReinstatementDate)
	}
}

func TestLoadExclusions_MissingColumnFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "UPDATED.csv", "NPI,EXCLTYPE,EXCLDATE\n1234567890,1128a1,20200101\n")

	_, _, err := loadExclusions(context.Background(), path, noopTestTracker())
	if err == nil {
		t.Fatal("expected error for missing REINDATE column")
	}
	if !strings.Contains(err.Error(), "REINDATE") {
		t.Errorf("error should name the missing column: %v", err)
	}
}

func TestParseLEIEDate(t *testing.T) {
	if d := parseLEIEDate("20240630"); d == nil || d.Format("20060102") != "20240630" {
		t.Errorf("parseLEIEDate(20240630) = %v", d)
	}
	for _, s := range []string{"00000000", "", "2024063", "202406300", "2024063X"} {
		if d := parseLEIEDate(s); d != nil {
			t.Errorf("parseLEIEDate(%q) = %v, want nil", s, d)
		}
	}
}
