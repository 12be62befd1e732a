// File path: cmd/auditor/cmd_runs.go
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func runRuns(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cat, err := openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	runs, err := cat.Recent(ctx, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}
	fmt.Printf("%-36s  %-11s  %-9s  %-20s  %s\n", "ID", "KIND", "STATUS", "STARTED", "DURATION")
	for _, run := range runs {
		duration := "-"
		if d := run.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		fmt.Printf("%-36s  %-11s  %-9s  %-20s  %s\n",
			run.ID, run.Kind, run.Status, run.StartedAt.Local().Format("2006-01-02 15:04:05"), duration)
	}
	return nil
}
