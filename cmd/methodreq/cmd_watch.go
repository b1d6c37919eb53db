package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"methodreq/internal/check"
	"methodreq/internal/diag"
	"methodreq/internal/scan"
	"methodreq/internal/watch"
)

var watchNoColor bool

var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "Re-run validation whenever Go sources change",
	Long: `Watches the given paths and re-runs the validation round when .go files
change, debounced so a burst of saves triggers one round. Stops on SIGINT.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoColor, "no-color", false, "disable styled output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	roots := scanRoots(args)

	scanner := scan.New(scan.Options{
		Marker:       cfg.Marker,
		IncludeTests: cfg.IncludeTests,
		Exclude:      cfg.Exclude,
	})
	runRound := func(ctx context.Context) {
		collector := diag.NewCollector()
		reporter := diag.Tee{collector, diag.NewPrinter(os.Stderr, !watchNoColor)}

		pkgs, err := scanner.Scan(ctx, roots, reporter)
		if err != nil {
			logger.Error("scan failed", zap.Error(err))
			return
		}
		checker := &check.Checker{FailFast: false, Reporter: reporter}
		round := checker.Run(ctx, pkgs)

		if n := collector.ErrorCount(); n > 0 {
			fmt.Printf("round %s: %d problems\n", round.ID, n)
		} else {
			fmt.Printf("round %s: ok (%d requirements)\n", round.ID, round.Requirements)
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	w, err := watch.New(roots, runRound)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	// Initial round before waiting for changes.
	runRound(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		fmt.Println("\nstopping watch")
	case <-ctx.Done():
	}
	return nil
}
