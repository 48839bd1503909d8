package catalog

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/gyeh/fraud-signals/internal/progress"
)

// The NPPES data dissemination file carries ~329 columns; only these are read.
var nppesColumns = []string{
	"NPI",
	"Entity Type Code",
	"Provider Organization Name (Legal Business Name)",
	"Provider Last Name (Legal Name)",
	"Provider First Name",
	"Provider Business Practice Location Address State Name",
	"Provider Business Practice Location Address Postal Code",
	"Healthcare Provider Taxonomy Code_1",
	"Provider Enumeration Date",
	"Authorized Official Last Name",
	"Authorized Official First Name",
}

func loadProviders(ctx context.Context, path string, tracker progress.Tracker) ([]ProviderRecord, int64, error) {
	tracker.SetStage("Reading NPPES CSV")

	r, err := openMaybeGzip(path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	cr := csv.NewReader(bufio.NewReaderSize(r, 1024*1024))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading NPPES header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(h)] = i
	}
	idx := make([]int, len(nppesColumns))
	maxIdx := 0
	for i, name := range nppesColumns {
		j, ok := colIdx[name]
		if !ok {
			return nil, 0, fmt.Errorf("NPPES %s: required column %q missing", path, name)
		}
		idx[i] = j
		if j > maxIdx {
			maxIdx = j
		}
	}

	var (
		records []ProviderRecord
		seen    = make(map[string]struct{})
		skipped int64
		rows    int64
	)

	for {
		if rows%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		row, err := cr.Read()
		if err != nil {
			break
		}
		rows++
		if len(row) <= maxIdx {
			skipped++
			continue
		}

		npi := NormalizeNPI(row[idx[0]])
		if npi == "" {
			skipped++
			continue
		}
		if _, dup := seen[npi]; dup {
			continue // keep the first representative row per NPI
		}
		seen[npi] = struct{}{}

		rec := ProviderRecord{
			NPI:                     npi,
			EntityType:              parseEntityType(row[idx[1]]),
			State:                   strings.TrimSpace(row[idx[5]]),
			ZipCode:                 strings.TrimSpace(row[idx[6]]),
			TaxonomyCode:            strings.TrimSpace(row[idx[7]]),
			EnumerationDate:         parseNPPESDate(row[idx[8]]),
			AuthorizedOfficialLast:  strings.TrimSpace(row[idx[9]]),
			AuthorizedOfficialFirst: strings.TrimSpace(row[idx[10]]),
		}
		rec.DisplayName = displayName(row[idx[2]], row[idx[3]], row[idx[4]])
		records = append(records, rec)

		if len(records)%100_000 == 0 {
			tracker.SetRows(int64(len(records)))
		}
	}

	tracker.SetRows(int64(len(records)))
	return records, skipped, nil
}

func parseEntityType(s string) EntityType {
	switch strings.TrimSpace(s) {
	case "1":
		return EntityIndividual
	case "2":
		return EntityOrganization
	}
	return EntityUnknown
}

// displayName prefers the legal business name, falling back to "LAST, FIRST".
func displayName(org, last, first string) string {
	org = strings.TrimSpace(org)
	if org != "" {
		return org
	}
	last = strings.TrimSpace(last)
	first = strings.TrimSpace(first)
	switch {
	case last != "" && first != "":
		return last + ", " + first
	case last != "":
		return last
	}
	return "Unknown"
}

// parseNPPESDate accepts the registry's MM/DD/YYYY format plus ISO dates
// found in re-exported files.
func parseNPPESDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"01/02/2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
