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

// loadExclusions reads the OIG LEIE CSV. Dates use an 8-digit YYYYMMDD
// encoding; rows whose exclusion date fails to parse are kept with a nil
// date (the excluded-provider detector skips them), matching the registry's
// own convention of blank-for-unknown.
func loadExclusions(ctx context.Context, path string, tracker progress.Tracker) ([]ExclusionRecord, int64, error) {
	tracker.SetStage("Reading LEIE CSV")

	r, err := openMaybeGzip(path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	cr := csv.NewReader(bufio.NewReaderSize(r, 256*1024))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading LEIE header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	var idx struct{ npi, exclType, exclDate, reinDate int }
	var ok bool
	if idx.npi, ok = colIdx["NPI"]; !ok {
		return nil, 0, fmt.Errorf("LEIE %s: required column NPI missing", path)
	}
	if idx.exclType, ok = colIdx["EXCLTYPE"]; !ok {
		return nil, 0, fmt.Errorf("LEIE %s: required column EXCLTYPE missing", path)
	}
	if idx.exclDate, ok = colIdx["EXCLDATE"]; !ok {
		return nil, 0, fmt.Errorf("LEIE %s: required column EXCLDATE missing", path)
	}
	if idx.reinDate, ok = colIdx["REINDATE"]; !ok {
		return nil, 0, fmt.Errorf("LEIE %s: required column REINDATE missing", path)
	}

	var (
		records []ExclusionRecord
		skipped int64
	)
	maxIdx := max(idx.npi, max(idx.exclType, max(idx.exclDate, idx.reinDate)))

	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		row, err := cr.Read()
		if err != nil {
			break // io.EOF or unrecoverable parse error: stop, keep what loaded
		}
		if len(row) <= maxIdx {
			skipped++
			continue
		}
		npi := NormalizeNPI(row[idx.npi])
		if npi == "" {
			skipped++
			continue
		}
		records = append(records, ExclusionRecord{
			NPI:               npi,
			ExclusionType:     strings.TrimSpace(row[idx.exclType]),
			ExclusionDate:     parseLEIEDate(row[idx.exclDate]),
			ReinstatementDate: parseLEIEDate(row[idx.reinDate]),
		})
		if len(records)%50_000 == 0 {
			tracker.SetRows(int64(len(records)))
		}
	}

	tracker.SetRows(int64(len(records)))
	return records, skipped, nil
}

// parseLEIEDate parses an 8-digit YYYYMMDD date. "00000000", blanks, and
// malformed values all map to nil.
func parseLEIEDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if len(s) != 8 || s == "00000000" {
		return nil
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return nil
	}
	return &t
}
