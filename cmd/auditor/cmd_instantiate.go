// File path: cmd/auditor/cmd_instantiate.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beefed-up-geek/code-as-auditors/internal/casedata"
	"github.com/beefed-up-geek/code-as-auditors/internal/catalog"
	"github.com/beefed-up-geek/code-as-auditors/internal/checklist"
	"github.com/beefed-up-geek/code-as-auditors/internal/llm"
	"github.com/beefed-up-geek/code-as-auditors/internal/rulecode"
)

func runInstantiate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	root := args[0]

	cases, err := loadCases(ctx, casesDir)
	if err != nil {
		return err
	}
	sampled := casedata.Sample(cases, instSampleSize, instSampleSeed)

	stopServer, err := maybeStartModelServer(ctx)
	if err != nil {
		return err
	}
	defer stopServer()

	resolver := checklist.NewResolver(llm.NewMux(), instAnswerModel)

	rec, err := beginCatalogRun(ctx, catalog.KindInstantiate, map[string]any{
		"root":         root,
		"output_dir":   instOutputDir,
		"cases":        len(sampled),
		"answer_model": instAnswerModel,
	})
	if err != nil {
		return err
	}
	written, err := rulecode.InstantiateTree(ctx, root, instOutputDir, sampled, resolver)
	if err != nil {
		return rec.abort(err)
	}
	rec.succeed(map[string]any{"programs": len(written), "output_dir": instOutputDir})
	fmt.Printf("Bound %d case program(s) under %s\n", len(written), instOutputDir)
	return nil
}
