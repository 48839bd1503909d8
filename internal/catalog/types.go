package catalog

import (
	"fmt"
	"time"
)

// Month is a year-month at claim granularity, encoded as year*12 + (month-1)
// so values order and compare naturally.
type Month int

// MonthOf returns the Month containing t.
func MonthOf(t time.Time) Month {
	return Month(t.Year()*12 + int(t.Month()) - 1)
}

// ParseMonth accepts "2024-06", "2024-06-01", and "20240601".
func ParseMonth(s string) (Month, error) {
	for _, layout := range []string{"2006-01", "2006-01-02", "20060102", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthOf(t), nil
		}
	}
	return 0, fmt.Errorf("unrecognized month %q", s)
}

// Time returns the first day of the month in UTC. Comparisons against exact
// dates (e.g. exclusion dates) are done at day granularity via this value.
func (m Month) Time() time.Time {
	return time.Date(int(m)/12, time.Month(int(m)%12+1), 1, 0, 0, 0, 0, time.UTC)
}

func (m Month) Year() int         { return int(m) / 12 }
func (m Month) Month() time.Month { return time.Month(int(m)%12 + 1) }

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year(), int(m.Month()))
}

// EntityType distinguishes individual practitioners from organizations.
type EntityType int

const (
	EntityUnknown EntityType = iota
	EntityIndividual
	EntityOrganization
)

func (e EntityType) String() string {
	switch e {
	case EntityIndividual:
		return "individual"
	case EntityOrganization:
		return "organization"
	}
	return "unknown"
}

// ClaimRecord is one row of the spending fact table: monthly billing activity
// for a (billing, servicing, HCPCS) triple. The same triple may repeat within
// a month; consumers must aggregate rather than assume one row per key.
type ClaimRecord struct {
	BillingNPI          string
	ServicingNPI        string
	HCPCSCode           string
	ClaimMonth          Month
	UniqueBeneficiaries uint32
	ClaimCount          uint32
	TotalPaid           float64
}

// ExclusionRecord is one LEIE exclusion episode. An NPI may appear in several
// episodes. A nil ReinstatementDate means the provider is still excluded.
type ExclusionRecord struct {
	NPI               string
	ExclusionType     string
	ExclusionDate     *time.Time
	ReinstatementDate *time.Time
}

// ProviderRecord is the NPPES directory entry for one NPI.
type ProviderRecord struct {
	NPI                     string
	EntityType              EntityType
	DisplayName             string
	State                   string
	ZipCode                 string
	TaxonomyCode            string
	EnumerationDate         *time.Time
	AuthorizedOfficialLast  string
	AuthorizedOfficialFirst string
}
