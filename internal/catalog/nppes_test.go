package catalog

import (
	"context"
	"strings"
	"testing"
)

const nppesHeader = `"NPI","Entity Type Code","Employer Identification Number (EIN)","Provider Organization Name (Legal Business Name)","Provider Last Name (Legal Name)","Provider First Name","Provider Business Practice Location Address State Name","Provider Business Practice Location Address Postal Code","Healthcare Provider Taxonomy Code_1","Provider Enumeration Date","Authorized Official Last Name","Authorized Official First Name"`

func nppesRow(npi, entity, org, last, first, state, zip, taxonomy, enumDate, offLast, offFirst string) string {
	return strings.Join([]string{
		`"` + npi + `"`, `"` + entity + `"`, `""`, `"` + org + `"`, `"` + last + `"`,
		`"` + first + `"`, `"` + state + `"`, `"` + zip + `"`, `"` + taxonomy + `"`,
		`"` + enumDate + `"`, `"` + offLast + `"`, `"` + offFirst + `"`,
	}, ",")
}

func TestLoadProviders_OrgAndIndividual(t *testing.T) {
	dir := t.TempDir()

	csv := nppesHeader + "\n" +
		nppesRow("1234567890", "2", "ACME HOME HEALTH LLC", "", "", "TX", "75001", "251E00000X", "06/15/2022", "DOE", "JANE") + "\n" +
		nppesRow("1111111111", "1", "", "SMITH", "ALICE", "CA", "90210", "207R00000X", "01/02/2010", "", "") + "\n"
	path := writeTestFile(t, dir, "npidata_pfile_20240101-20240107.csv", csv)

	records, skipped, err := loadProviders(context.Background(), path, noopTestTracker())
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 0 {
		t.Errorf("expected 0 skipped, got %d", skipped)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	org := records[0]
	if org.EntityType != EntityOrganization {
		t.Errorf("EntityType = %v", org.EntityType)
	}
	if org.DisplayName != "ACME HOME HEALTH LLC" {
		t.Errorf("DisplayName = %q", org.DisplayName)
	}
	if org.State != "TX" || org.TaxonomyCode != "251E00000X" {
		t.Errorf("state/taxonomy = %q/%q", org.State, org.TaxonomyCode)
	}
	if org.EnumerationDate == nil || org.EnumerationDate.Format("2006-01-02") != "2022-06-15" {
		t.Errorf("EnumerationDate = %v", org.EnumerationDate)
	}
	if org.AuthorizedOfficialLast != "DOE" || org.AuthorizedOfficialFirst != "JANE" {
		t.Errorf("authorized official = %q %q", org.AuthorizedOfficialFirst, org.AuthorizedOfficialLast)
	}

	ind := records[1]
	if ind.EntityType != EntityIndividual {
		t.Errorf("EntityType = %v", ind.EntityType)
	}
	if ind.DisplayName != "SMITH, ALICE" {
		t.Errorf("DisplayName = %q", ind.DisplayName)
	}
}

func TestLoadProviders_DedupeKeepsFirst(t *testing.T) {
	dir := t.TempDir()

	csv := nppesHeader + "\n" +
		nppesRow("1234567890", "2", "FIRST ROW INC", "", "", "TX", "", "", "", "", "") + "\n" +
		nppesRow("1234567890", "2", "SECOND ROW INC", "", "", "NY", "", "", "", "", "") + "\n"
	path := writeTestFile(t, dir, "npidata_pfile_dupes.csv", csv)

	records, _, err := loadProviders(context.Background(), path, noopTestTracker())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record after dedupe, got %d", len(records))
	}
	if records[0].DisplayName != "FIRST ROW INC" {
		t.Errorf("dedupe should keep the first row, got %q", records[0].DisplayName)
	}
}

func TestLoadProviders_MissingColumnFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "npidata_pfile_bad.csv", `"NPI","Entity Type Code"`+"\n")

	_, _, err := loadProviders(context.Background(), path, noopTestTracker())
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		org, last, first, want string
	}{
		{"ACME LLC", "DOE", "JANE", "ACME LLC"},
		{"", "DOE", "JANE", "DOE, JANE"},
		{"", "DOE", "", "DOE"},
		{"", "", "", "Unknown"},
	}
	for _, tt := range tests {
		if got := displayName(tt.org, tt.last, tt.first); got != tt.want {
			t.Errorf("displayName(%q, %q, %q) = %q, want %q", tt.org, tt.last, tt.first, got, tt.want)
		}
	}
}

func TestParseNPPESDate(t *testing.T) {
	if d := parseNPPESDate("06/15/2022"); d == nil || d.Format("2006-01-02") != "2022-06-15" {
		t.Errorf("parseNPPESDate(06/15/2022) = %v", d)
	}
	if d := parseNPPESDate("2022-06-15"); d == nil || d.Format("2006-01-02") != "2022-06-15" {
		t.Errorf("parseNPPESDate(2022-06-15) = %v", d)
	}
	if d := parseNPPESDate(""); d != nil {
		t.Errorf("parseNPPESDate(empty) = %v, want nil", d)
	}
}
