package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"methodreq/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent validation rounds from the history store",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of rounds to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled; enable it in %s", "`.methodreq.yaml`")
	}

	hs, err := store.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer hs.Close()

	rounds, err := hs.RecentRounds(historyLimit)
	if err != nil {
		return err
	}
	if len(rounds) == 0 {
		fmt.Println("no recorded rounds")
		return nil
	}

	for _, r := range rounds {
		status := "ok"
		if r.Diagnostics > 0 {
			status = fmt.Sprintf("%d diagnostics", r.Diagnostics)
		}
		fmt.Printf("%s  %s  %dms  %d pkgs  %d reqs  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.ID[:8], r.DurationMs, r.Packages, r.Requirements, status)
	}
	return nil
}
