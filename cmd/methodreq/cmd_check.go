package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"methodreq/internal/check"
	"methodreq/internal/diag"
	"methodreq/internal/scan"
	"methodreq/internal/store"
)

var (
	checkKeepGoing bool
	checkJSON      bool
	checkNoColor   bool
	checkTests     bool
)

var checkCmd = &cobra.Command{
	Use:   "check [path...]",
	Short: "Run one validation round over the given paths",
	Long: `Scans the given paths (default: current directory) for types carrying
require directives and validates each declared signature. Exits with status 1
when any requirement is violated.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkKeepGoing, "keep-going", false, "validate all requirements instead of stopping at the first mismatch")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "emit diagnostics as JSON")
	checkCmd.Flags().BoolVar(&checkNoColor, "no-color", false, "disable styled output")
	checkCmd.Flags().BoolVar(&checkTests, "tests", false, "include _test.go files")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if checkTests {
		cfg.IncludeTests = true
	}
	failFast := cfg.FailFast && !checkKeepGoing

	collector := diag.NewCollector()
	var reporter diag.Reporter = collector
	if !checkJSON {
		reporter = diag.Tee{collector, diag.NewPrinter(os.Stderr, !checkNoColor)}
	}

	scanner := scan.New(scan.Options{
		Marker:       cfg.Marker,
		IncludeTests: cfg.IncludeTests,
		Exclude:      cfg.Exclude,
	})
	pkgs, err := scanner.Scan(cmd.Context(), scanRoots(args), reporter)
	if err != nil {
		return err
	}

	checker := &check.Checker{FailFast: failFast, Reporter: reporter}
	round := checker.Run(cmd.Context(), pkgs)

	// Scanner diagnostics (parse failures, bad directives) count too.
	diags := collector.Diagnostics()

	if checkJSON {
		if err := diag.WriteJSON(os.Stdout, diags); err != nil {
			return err
		}
	} else {
		fmt.Printf("round %s: %d packages, %d requirements, %d diagnostics in %v\n",
			round.ID, round.Packages, round.Requirements, len(diags), round.Duration.Round(time.Millisecond))
	}

	if cfg.History.Enabled {
		if err := recordHistory(cfg.History.Path, round); err != nil {
			logger.Warn("could not record round history", zap.Error(err))
		}
	}

	if collector.ErrorCount() > 0 {
		os.Exit(1)
	}
	return nil
}

func recordHistory(path string, round check.Round) error {
	hs, err := store.Open(path)
	if err != nil {
		return err
	}
	defer hs.Close()
	return hs.RecordRound(round)
}
