package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gyeh/fraud-signals/internal/catalog"
	"github.com/gyeh/fraud-signals/internal/npi"
	"github.com/gyeh/fraud-signals/internal/progress"
	"github.com/gyeh/fraud-signals/internal/report"
	sig "github.com/gyeh/fraud-signals/internal/signal"
	"github.com/gyeh/fraud-signals/internal/table"
	"github.com/gyeh/fraud-signals/internal/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "fraud-signals",
		Short:         "Scan Medicaid provider spending for FCA fraud signals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newDetectCmd())
	rootCmd.AddCommand(newLookupCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newDetectCmd() *cobra.Command {
	var (
		cfgFile      string
		dataDir      string
		outputFile   string
		memoryLimit  string
		scratchDir   string
		scratchLimit string
		workers      int
		noProgress   bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run the six fraud-signal detectors and write a JSON report",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(verbose)

			cfg, err := loadConfig(cfgFile, log)
			if err != nil {
				return err
			}

			memBytes, err := parseByteSize(memoryLimit)
			if err != nil {
				return fmt.Errorf("parsing --memory-limit: %w", err)
			}
			var scratchBytes int64
			if scratchLimit != "" {
				scratchBytes, err = parseByteSize(scratchLimit)
				if err != nil {
					return fmt.Errorf("parsing --scratch-limit: %w", err)
				}
			}

			if workers < 1 {
				workers = 1
			}

			src, err := catalog.FindSources(dataDir)
			if err != nil {
				return err
			}

			var mgr progress.Manager
			if noProgress {
				mgr = progress.NewLogManager()
			} else {
				mgr = progress.NewMPBManager()
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
				cancel()
			}()

			startTime := time.Now()

			cat, err := catalog.Load(ctx, src, catalog.Options{Log: log, Progress: mgr})
			if err != nil {
				return fmt.Errorf("loading catalog: %w", err)
			}

			if scratchDir == "" {
				scratchDir = os.TempDir()
			}
			scratch, err := table.NewScratch(scratchDir, scratchBytes)
			if err != nil {
				return fmt.Errorf("creating scratch dir: %w", err)
			}
			defer scratch.Close()

			// Each concurrent detector gets an equal memory slice; the
			// scratch arena and its ceiling are shared.
			perDetector := memBytes / int64(workers)

			pool := &worker.Pool{
				Workers:  workers,
				Progress: mgr,
				Budget: func() *table.Budget {
					return &table.Budget{MemoryBytes: perDetector, Scratch: scratch}
				},
			}

			results := pool.Run(ctx, cat, sig.Detectors(cfg))
			mgr.Wait()

			signalsByType := make(map[sig.Type][]sig.Signal, len(results))
			totalSignals := 0
			for _, r := range results {
				if r.Err != nil {
					return fmt.Errorf("detector %s: %w", r.Name, r.Err)
				}
				signalsByType[sig.Type(r.Name)] = r.Signals
				totalSignals += len(r.Signals)
				log.WithFields(logrus.Fields{"detector": r.Name, "signals": len(r.Signals)}).Debug("detector finished")
			}

			rep := report.Assemble(signalsByType, cat, time.Now())
			if err := report.Write(outputFile, rep); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}

			log.WithFields(logrus.Fields{
				"providers_scanned": rep.TotalProvidersScanned,
				"providers_flagged": rep.TotalProvidersFlagged,
				"signals":           totalSignals,
				"scratch_bytes":     scratch.Used(),
				"duration":          time.Since(startTime).Round(time.Millisecond).String(),
			}).Info("detection complete")
			fmt.Fprintf(os.Stderr, "Report written to %s\n", outputFile)

			return nil
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "Optional YAML config file with a signals: section")
	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "./data", "Directory containing the input data files")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "fraud_signals.json", "Output JSON path (use '-' for stdout)")
	cmd.Flags().StringVar(&memoryLimit, "memory-limit", "8GB", "Total memory budget for detector intermediates (e.g. 512MB, 8GB)")
	cmd.Flags().StringVar(&scratchDir, "scratch-dir", "", "Parent directory for spill files (default: system temp)")
	cmd.Flags().StringVar(&scratchLimit, "scratch-limit", "", "Ceiling on spill bytes (default: unlimited)")
	cmd.Flags().IntVar(&workers, "workers", 3, "Number of detectors to run concurrently")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Log progress lines instead of progress bars")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <npi> [<npi>...]",
		Short: "Look up providers in the live NPPES NPI Registry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, a := range args {
				if !catalog.ValidNPI(catalog.NormalizeNPI(a)) {
					return fmt.Errorf("%q is not a valid 10-digit NPI", a)
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			infos, errs := npi.LookupAll(ctx, args)
			var failed int
			for i, info := range infos {
				if errs[i] != nil {
					fmt.Fprintf(os.Stderr, "Error looking up %s: %v\n", args[i], errs[i])
					failed++
					continue
				}
				if info == nil {
					fmt.Printf("%s: not found in NPI registry\n", args[i])
					continue
				}
				fmt.Printf("%s  %s (%s)\n", info.NPI, info.Name, info.EntityType)
				if info.PrimaryTaxonomy != "" {
					fmt.Printf("  taxonomy:   %s (%s)\n", info.PrimaryTaxonomy, info.TaxonomyCode)
				}
				if info.State != "" {
					fmt.Printf("  state:      %s\n", info.State)
				}
				if info.EnumerationDate != "" {
					fmt.Printf("  enumerated: %s\n", info.EnumerationDate)
				}
				if info.Status != "" && info.Status != "A" {
					fmt.Printf("  status:     %s\n", info.Status)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d lookups failed", failed, len(args))
			}
			return nil
		},
	}

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tool version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("fraud-signals v" + report.ToolVersion)
		},
	}
}

func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// loadConfig reads detector thresholds from an optional YAML file and
// FRAUDSIG_* environment variables. Unset fields fall back to defaults.
func loadConfig(cfgFile string, log *logrus.Logger) (sig.Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FRAUDSIG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return sig.Config{}, fmt.Errorf("reading config: %w", err)
		}
		log.WithField("file", v.ConfigFileUsed()).Debug("config file loaded")
	}

	var cfg sig.Config
	if err := v.UnmarshalKey("signals", &cfg); err != nil {
		return sig.Config{}, fmt.Errorf("parsing signals config: %w", err)
	}
	cfg = cfg.Normalize()

	if cfg.EscalationVariant != sig.EscalationMonthOverMonth && cfg.EscalationVariant != sig.EscalationNewEntity {
		return sig.Config{}, fmt.Errorf("unknown escalation variant %q", cfg.EscalationVariant)
	}
	return cfg, nil
}

// parseByteSize parses human sizes like "512MB", "8GB", or a bare byte
// count. A zero value means unbounded.
func parseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" || s == "0" {
		return 0, nil
	}

	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "GB"):
		mult, s = 1<<30, strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		mult, s = 1<<20, strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		mult, s = 1<<10, strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("size must be non-negative")
	}
	return n * mult, nil
}
