// Package npi queries the live NPPES NPI Registry API. The detect pipeline
// works entirely from local snapshots; this client exists for the lookup
// subcommand, to verify a flagged provider against the registry of record.
package npi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const registryURL = "https://npiregistry.cms.hhs.gov/api/?version=2.1"

var client = &http.Client{Timeout: 10 * time.Second}

// ProviderInfo holds the registry details relevant to reviewing a flagged
// provider.
type ProviderInfo struct {
	NPI             string
	Name            string // "LAST, FIRST" for individuals, org name for organizations
	EntityType      string // "individual" or "organization"
	PrimaryTaxonomy string // e.g. "Home Health"
	TaxonomyCode    string // e.g. "251E00000X"
	State           string
	EnumerationDate string
	Status          string // "A" = active
}

type apiResponse struct {
	ResultCount int         `json:"result_count"`
	Results     []apiResult `json:"results"`
}

type apiResult struct {
	Number          string        `json:"number"`
	EnumerationType string        `json:"enumeration_type"`
	Basic           apiBasic      `json:"basic"`
	Addresses       []apiAddress  `json:"addresses"`
	Taxonomies      []apiTaxonomy `json:"taxonomies"`
}

type apiBasic struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	OrganizationName string `json:"organization_name"`
	EnumerationDate  string `json:"enumeration_date"`
	Status           string `json:"status"`
}

type apiAddress struct {
	State          string `json:"state"`
	AddressPurpose string `json:"address_purpose"` // "LOCATION" or "MAILING"
}

type apiTaxonomy struct {
	Code    string `json:"code"`
	Desc    string `json:"desc"`
	Primary bool   `json:"primary"`
}

// Lookup queries the registry for a single NPI. Returns nil if the NPI is
// not found.
func Lookup(ctx context.Context, number string) (*ProviderInfo, error) {
	url := registryURL + "&number=" + number

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying NPI registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NPI registry returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing NPI registry response: %w", err)
	}

	if apiResp.ResultCount == 0 || len(apiResp.Results) == 0 {
		return nil, nil
	}

	return resultToProviderInfo(apiResp.Results[0]), nil
}

// LookupAll queries the registry for multiple NPIs concurrently. Results are
// in input order; missing NPIs have nil entries.
func LookupAll(ctx context.Context, npis []string) ([]*ProviderInfo, []error) {
	results := make([]*ProviderInfo, len(npis))
	errs := make([]error, len(npis))

	type indexedResult struct {
		idx  int
		info *ProviderInfo
		err  error
	}

	ch := make(chan indexedResult, len(npis))
	for i, n := range npis {
		go func(idx int, number string) {
			info, err := Lookup(ctx, number)
			ch <- indexedResult{idx, info, err}
		}(i, n)
	}

	for range npis {
		r := <-ch
		results[r.idx] = r.info
		errs[r.idx] = r.err
	}

	return results, errs
}

func resultToProviderInfo(r apiResult) *ProviderInfo {
	info := &ProviderInfo{
		NPI:             r.Number,
		EnumerationDate: r.Basic.EnumerationDate,
		Status:          r.Basic.Status,
	}

	if r.EnumerationType == "NPI-1" {
		info.EntityType = "individual"
		info.Name = formatIndividualName(r.Basic)
	} else {
		info.EntityType = "organization"
		info.Name = r.Basic.OrganizationName
	}

	for _, t := range r.Taxonomies {
		if t.Primary {
			info.PrimaryTaxonomy = t.Desc
			info.TaxonomyCode = t.Code
			break
		}
	}
	if info.PrimaryTaxonomy == "" && len(r.Taxonomies) > 0 {
		info.PrimaryTaxonomy = r.Taxonomies[0].Desc
		info.TaxonomyCode = r.Taxonomies[0].Code
	}

	for _, addr := range r.Addresses {
		if addr.AddressPurpose == "LOCATION" {
			info.State = addr.State
			break
		}
	}
	if info.State == "" && len(r.Addresses) > 0 {
		info.State = r.Addresses[0].State
	}

	return info
}

func formatIndividualName(b apiBasic) string {
	last := cleanField(b.LastName)
	first := cleanField(b.FirstName)
	if first == "" {
		return last
	}
	return last + ", " + first
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if s == "--" {
		return ""
	}
	return s
}
