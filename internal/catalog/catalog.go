// Package catalog loads the three input datasets (the Medicaid provider
// spending fact table, the OIG LEIE exclusion registry, and the NPPES
// provider directory) into immutable, queryable in-memory sources.
package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gyeh/fraud-signals/internal/progress"
)

// Sources names the three input files of a run.
type Sources struct {
	SpendingPath  string
	ExclusionPath string
	ProviderPath  string
}

// FindSources locates the expected input files under dataDir. Missing files
// are fatal and reported with the path that was searched.
func FindSources(dataDir string) (Sources, error) {
	var s Sources

	for _, name := range []string{
		"medicaid-provider-spending.parquet",
		"medicaid-provider-spending.ndjson",
		"medicaid-provider-spending.ndjson.gz",
	} {
		p := filepath.Join(dataDir, name)
		if _, err := os.Stat(p); err == nil {
			s.SpendingPath = p
			break
		}
	}
	if s.SpendingPath == "" {
		return s, fmt.Errorf("spending data not found: %s", filepath.Join(dataDir, "medicaid-provider-spending.parquet"))
	}

	for _, name := range []string{"UPDATED.csv", "UPDATED.csv.gz"} {
		p := filepath.Join(dataDir, name)
		if _, err := os.Stat(p); err == nil {
			s.ExclusionPath = p
			break
		}
	}
	if s.ExclusionPath == "" {
		return s, fmt.Errorf("LEIE data not found: %s", filepath.Join(dataDir, "UPDATED.csv"))
	}

	for _, pattern := range []string{"npidata_pfile_*.csv", "npidata_pfile_*.csv.gz"} {
		matches, _ := filepath.Glob(filepath.Join(dataDir, pattern))
		if len(matches) > 0 {
			sort.Strings(matches)
			s.ProviderPath = matches[0]
			break
		}
	}
	if s.ProviderPath == "" {
		return s, fmt.Errorf("NPPES data not found: %s", filepath.Join(dataDir, "npidata_pfile_*.csv"))
	}

	return s, nil
}

// Options controls loading behavior.
type Options struct {
	Log      *logrus.Logger
	Progress progress.Manager
}

func (o Options) logger() *logrus.Logger {
	if o.Log != nil {
		return o.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (o Options) progressMgr() progress.Manager {
	if o.Progress != nil {
		return o.Progress
	}
	return &progress.NoopManager{}
}

// Catalog owns the loaded tabular sources for the duration of a run.
// It is immutable after Load; detectors share it without synchronization.
type Catalog struct {
	claims     []ClaimRecord
	exclusions []ExclusionRecord
	exclByNPI  map[string][]int // indexes into exclusions
	providers  []ProviderRecord // load order, deduplicated by NPI
	provByNPI  map[string]int   // indexes into providers
}

// Load reads and validates all three sources concurrently.
func Load(ctx context.Context, src Sources, opts Options) (*Catalog, error) {
	log := opts.logger()
	mgr := opts.progressMgr()

	cat := &Catalog{}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tracker := mgr.NewTracker(0, 3, filepath.Base(src.SpendingPath))
		defer tracker.Done()
		claims, skipped, err := loadClaims(ctx, src.SpendingPath, tracker)
		if err != nil {
			return fmt.Errorf("loading spending data: %w", err)
		}
		log.WithFields(logrus.Fields{"rows": len(claims), "skipped": skipped}).Info("spending data loaded")
		cat.claims = claims
		return nil
	})

	g.Go(func() error {
		tracker := mgr.NewTracker(1, 3, filepath.Base(src.ExclusionPath))
		defer tracker.Done()
		excl, skipped, err := loadExclusions(ctx, src.ExclusionPath, tracker)
		if err != nil {
			return fmt.Errorf("loading LEIE data: %w", err)
		}
		log.WithFields(logrus.Fields{"rows": len(excl), "skipped": skipped}).Info("LEIE data loaded")
		cat.exclusions = excl
		return nil
	})

	g.Go(func() error {
		tracker := mgr.NewTracker(2, 3, filepath.Base(src.ProviderPath))
		defer tracker.Done()
		provs, skipped, err := loadProviders(ctx, src.ProviderPath, tracker)
		if err != nil {
			return fmt.Errorf("loading NPPES data: %w", err)
		}
		log.WithFields(logrus.Fields{"rows": len(provs), "skipped": skipped}).Info("NPPES data loaded")
		cat.providers = provs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	cat.buildIndexes()
	return cat, nil
}

// New builds a Catalog directly from already-loaded records.
func New(claims []ClaimRecord, exclusions []ExclusionRecord, providers []ProviderRecord) *Catalog {
	cat := &Catalog{claims: claims, exclusions: exclusions, providers: providers}
	cat.buildIndexes()
	return cat
}

func (c *Catalog) buildIndexes() {
	c.exclByNPI = make(map[string][]int, len(c.exclusions))
	for i, e := range c.exclusions {
		if e.NPI == "" {
			continue
		}
		c.exclByNPI[e.NPI] = append(c.exclByNPI[e.NPI], i)
	}

	c.provByNPI = make(map[string]int, len(c.providers))
	for i, p := range c.providers {
		if _, dup := c.provByNPI[p.NPI]; !dup {
			c.provByNPI[p.NPI] = i
		}
	}
}

// Claims returns the full fact table. Read-only.
func (c *Catalog) Claims() []ClaimRecord { return c.claims }

// Exclusions returns all exclusion episodes. Read-only.
func (c *Catalog) Exclusions() []ExclusionRecord { return c.exclusions }

// ExclusionsByNPI returns the exclusion episodes recorded for npi.
func (c *Catalog) ExclusionsByNPI(npi string) []ExclusionRecord {
	idxs := c.exclByNPI[npi]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]ExclusionRecord, len(idxs))
	for i, idx := range idxs {
		out[i] = c.exclusions[idx]
	}
	return out
}

// Provider looks up the directory entry for npi.
func (c *Catalog) Provider(npi string) (ProviderRecord, bool) {
	idx, ok := c.provByNPI[npi]
	if !ok {
		return ProviderRecord{}, false
	}
	return c.providers[idx], true
}

// Providers returns all directory entries in load order, one per NPI.
func (c *Catalog) Providers() []ProviderRecord { return c.providers }

// ClaimsInRange returns claims with from <= ClaimMonth <= to.
func (c *Catalog) ClaimsInRange(from, to Month) []ClaimRecord {
	var out []ClaimRecord
	for _, cl := range c.claims {
		if cl.ClaimMonth >= from && cl.ClaimMonth <= to {
			out = append(out, cl)
		}
	}
	return out
}

// DistinctBillingNPIs counts distinct billing NPIs in the fact table.
func (c *Catalog) DistinctBillingNPIs() int {
	seen := make(map[string]struct{})
	for _, cl := range c.claims {
		seen[cl.BillingNPI] = struct{}{}
	}
	return len(seen)
}

// openMaybeGzip opens path, decompressing transparently when it ends in .gz.
// pgzip decompresses in parallel, which matters for the multi-GB NPPES file.
func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := pgzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gzip reader for %s: %w", path, err)
	}
	return &gzipReadCloser{zr: zr, f: f}, nil
}

type gzipReadCloser struct {
	zr *pgzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipReadCloser) Close() error {
	g.zr.Close()
	return g.f.Close()
}
