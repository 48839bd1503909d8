package catalog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/fraud-signals/internal/progress"
)

// Required fact-table columns, by source name.
const (
	colBillingNPI    = "BILLING_PROVIDER_NPI_NUM"
	colServicingNPI  = "SERVICING_PROVIDER_NPI_NUM"
	colHCPCS         = "HCPCS_CODE"
	colClaimMonth    = "CLAIM_FROM_MONTH"
	colBeneficiaries = "TOTAL_UNIQUE_BENEFICIARIES"
	colClaims        = "TOTAL_CLAIMS"
	colPaid          = "TOTAL_PAID"
)

var spendingColumns = []string{
	colBillingNPI, colServicingNPI, colHCPCS, colClaimMonth,
	colBeneficiaries, colClaims, colPaid,
}

// loadClaims dispatches on file extension: parquet for the HHS snapshot,
// NDJSON (optionally gzipped) for re-exported extracts.
func loadClaims(ctx context.Context, path string, tracker progress.Tracker) ([]ClaimRecord, int64, error) {
	if strings.HasSuffix(path, ".parquet") {
		return loadClaimsParquet(ctx, path, tracker)
	}
	return loadClaimsNDJSON(ctx, path, tracker)
}

func loadClaimsParquet(ctx context.Context, path string, tracker progress.Tracker) ([]ClaimRecord, int64, error) {
	tracker.SetStage("Reading parquet")

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, 0, fmt.Errorf("opening parquet %s: %w", path, err)
	}

	// Map required column names to leaf column indexes.
	colIdx := make(map[string]int, len(spendingColumns))
	for i, colPath := range pf.Schema().Columns() {
		if len(colPath) == 1 {
			colIdx[colPath[0]] = i
		}
	}
	fieldFor := make(map[int]string)
	for _, name := range spendingColumns {
		idx, ok := colIdx[name]
		if !ok {
			return nil, 0, fmt.Errorf("parquet %s: required column %s missing", path, name)
		}
		fieldFor[idx] = name
	}

	var (
		claims  []ClaimRecord
		skipped int64
	)
	buf := make([]parquet.Row, 1024)

	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			if err := ctx.Err(); err != nil {
				rows.Close()
				return nil, 0, err
			}
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				rec, ok := claimFromParquetRow(row, fieldFor)
				if !ok {
					skipped++
					continue
				}
				claims = append(claims, rec)
				if len(claims)%100_000 == 0 {
					tracker.SetRows(int64(len(claims)))
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, 0, fmt.Errorf("reading parquet rows: %w", err)
			}
		}
		rows.Close()
	}

	tracker.SetRows(int64(len(claims)))
	return claims, skipped, nil
}

func claimFromParquetRow(row parquet.Row, fieldFor map[int]string) (ClaimRecord, bool) {
	var rec ClaimRecord
	for _, v := range row {
		name, ok := fieldFor[v.Column()]
		if !ok || v.IsNull() {
			continue
		}
		switch name {
		case colBillingNPI:
			rec.BillingNPI = NormalizeNPI(parquetString(v))
		case colServicingNPI:
			rec.ServicingNPI = NormalizeNPI(parquetString(v))
		case colHCPCS:
			rec.HCPCSCode = strings.TrimSpace(parquetString(v))
		case colClaimMonth:
			m, ok := parquetMonth(v)
			if !ok {
				return ClaimRecord{}, false
			}
			rec.ClaimMonth = m
		case colBeneficiaries:
			rec.UniqueBeneficiaries = uint32(v.Int64())
		case colClaims:
			rec.ClaimCount = uint32(v.Int64())
		case colPaid:
			rec.TotalPaid = parquetFloat(v)
		}
	}
	if rec.BillingNPI == "" || rec.ClaimMonth == 0 {
		return ClaimRecord{}, false
	}
	return rec, true
}

func parquetString(v parquet.Value) string {
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return v.String()
	case parquet.Int32, parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	default:
		return v.String()
	}
}

func parquetFloat(v parquet.Value) float64 {
	switch v.Kind() {
	case parquet.Double, parquet.Float:
		return v.Double()
	case parquet.Int32, parquet.Int64:
		return float64(v.Int64())
	default:
		f, _ := strconv.ParseFloat(v.String(), 64)
		return f
	}
}

// parquetMonth handles the claim month encoded as a string, a DATE (days
// since epoch), or a millisecond timestamp.
func parquetMonth(v parquet.Value) (Month, bool) {
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		m, err := ParseMonth(v.String())
		if err != nil {
			return 0, false
		}
		return m, true
	case parquet.Int32:
		t := time.Unix(0, 0).UTC().AddDate(0, 0, int(v.Int32()))
		return MonthOf(t), true
	case parquet.Int64:
		n := v.Int64()
		if n > 10_000_000 { // timestamp millis, not days
			return MonthOf(time.UnixMilli(n).UTC()), true
		}
		t := time.Unix(0, 0).UTC().AddDate(0, 0, int(n))
		return MonthOf(t), true
	}
	return 0, false
}

// claimLineParser parses one NDJSON fact line. Two implementations: simdjson
// when the CPU supports it, stdlib encoding/json otherwise.
type claimLineParser interface {
	parse(line []byte) (ClaimRecord, bool)
}

// spendingLine mirrors one NDJSON fact row. NPIs arrive as strings or bare
// numbers depending on the exporter, so they get a tolerant decode.
type spendingLine struct {
	BillingNPI    json.RawMessage `json:"BILLING_PROVIDER_NPI_NUM"`
	ServicingNPI  json.RawMessage `json:"SERVICING_PROVIDER_NPI_NUM"`
	HCPCSCode     string          `json:"HCPCS_CODE"`
	ClaimMonth    string          `json:"CLAIM_FROM_MONTH"`
	Beneficiaries uint32          `json:"TOTAL_UNIQUE_BENEFICIARIES"`
	Claims        uint32          `json:"TOTAL_CLAIMS"`
	TotalPaid     float64         `json:"TOTAL_PAID"`
}

type stdClaimParser struct{}

func (stdClaimParser) parse(line []byte) (ClaimRecord, bool) {
	var sl spendingLine
	if err := json.Unmarshal(line, &sl); err != nil {
		return ClaimRecord{}, false
	}
	m, err := ParseMonth(sl.ClaimMonth)
	if err != nil {
		return ClaimRecord{}, false
	}
	return ClaimRecord{
		BillingNPI:          NormalizeNPI(rawString(sl.BillingNPI)),
		ServicingNPI:        NormalizeNPI(rawString(sl.ServicingNPI)),
		HCPCSCode:           strings.TrimSpace(sl.HCPCSCode),
		ClaimMonth:          m,
		UniqueBeneficiaries: sl.Beneficiaries,
		ClaimCount:          sl.Claims,
		TotalPaid:           sl.TotalPaid,
	}, true
}

func loadClaimsNDJSON(ctx context.Context, path string, tracker progress.Tracker) ([]ClaimRecord, int64, error) {
	tracker.SetStage("Reading NDJSON")

	r, err := openMaybeGzip(path)
	if err != nil {
		return nil, 0, err
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	var parser claimLineParser = stdClaimParser{}
	if simdAvailable() {
		parser = &simdClaimParser{}
	}

	var (
		claims  []ClaimRecord
		skipped int64
	)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		rec, ok := parser.parse(line)
		if !ok || rec.BillingNPI == "" {
			skipped++
			continue
		}
		claims = append(claims, rec)
		if len(claims)%100_000 == 0 {
			tracker.SetRows(int64(len(claims)))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scanning %s: %w", path, err)
	}

	tracker.SetRows(int64(len(claims)))
	return claims, skipped, nil
}

// rawString decodes a JSON value that may be a string or a bare number.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
