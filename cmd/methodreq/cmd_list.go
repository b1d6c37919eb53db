package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"methodreq/internal/diag"
	"methodreq/internal/scan"
)

var listCmd = &cobra.Command{
	Use:   "list [path...]",
	Short: "List every require directive found under the given paths",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reporter := diag.NewPrinter(os.Stderr, false)
	scanner := scan.New(scan.Options{
		Marker:       cfg.Marker,
		IncludeTests: cfg.IncludeTests,
		Exclude:      cfg.Exclude,
	})
	pkgs, err := scanner.Scan(cmd.Context(), scanRoots(args), reporter)
	if err != nil {
		return err
	}

	total := 0
	for _, pkg := range pkgs {
		for _, req := range pkg.Requirements {
			fmt.Printf("%s: package %s requires func %s\n", req.Pos, pkg.Name, req.Signature())
			total++
		}
		for _, t := range pkg.Types {
			for _, req := range t.Requirements {
				noun := "method"
				if req.Kind == "func" {
					noun = "func"
				}
				fmt.Printf("%s: %s requires %s %s\n", t.Pos, t.Ref, noun, req.Signature())
				total++
			}
		}
	}
	fmt.Printf("%d requirements in %d packages\n", total, len(pkgs))
	return nil
}
