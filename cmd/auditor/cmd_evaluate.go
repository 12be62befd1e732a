// File path: cmd/auditor/cmd_evaluate.go
package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/beefed-up-geek/code-as-auditors/internal/catalog"
	"github.com/beefed-up-geek/code-as-auditors/internal/evaluation"
	"github.com/beefed-up-geek/code-as-auditors/internal/rulecode"
)

// runCase executes one bound case program. The evaluation engine shells out
// to this subcommand so a failing program cannot abort the whole batch; a
// non-zero exit here is what the engine records as an execution failure.
func runCase(cmd *cobra.Command, args []string) error {
	programPath := args[0]
	program, err := rulecode.ReadProgram(programPath)
	if err != nil {
		return err
	}
	outcome := rulecode.Run(program)
	reportPath, err := rulecode.WriteReport(filepath.Dir(programPath), program.CaseID, outcome)
	if err != nil {
		return err
	}
	fmt.Printf("Report written: %s\n", reportPath)
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	root := args[0]

	cases, err := loadCases(ctx, casesDir)
	if err != nil {
		return err
	}
	runner, err := evaluation.NewSubprocessRunner()
	if err != nil {
		return err
	}
	evaluator := evaluation.NewEvaluator(runner, cases)

	rec, err := beginCatalogRun(ctx, catalog.KindEvaluate, map[string]any{
		"root":  root,
		"cases": len(cases),
	})
	if err != nil {
		return err
	}
	written, err := evaluator.EvaluateTree(ctx, root)
	if err != nil {
		return rec.abort(err)
	}
	rec.succeed(map[string]any{"root": root, "results": len(written)})
	for _, path := range written {
		fmt.Println("Wrote", path)
	}
	return nil
}
