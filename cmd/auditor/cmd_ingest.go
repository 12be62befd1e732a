// File path: cmd/auditor/cmd_ingest.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beefed-up-geek/code-as-auditors/internal/casedata"
	"github.com/beefed-up-geek/code-as-auditors/internal/catalog"
	"github.com/beefed-up-geek/code-as-auditors/internal/law"
	"github.com/beefed-up-geek/code-as-auditors/internal/llm"
)

func runIngestCases(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	root := args[0]

	store, err := casedata.NewStore(casesDir)
	if err != nil {
		return err
	}

	stopServer, err := maybeStartModelServer(ctx)
	if err != nil {
		return err
	}
	defer stopServer()

	ingestor := casedata.NewIngestor(llm.NewMux(), store, law.NewStore(lawPath), ingestModel)

	rec, err := beginCatalogRun(ctx, catalog.KindIngest, map[string]any{
		"root":  root,
		"model": ingestModel,
	})
	if err != nil {
		return err
	}
	summary, err := ingestor.Run(ctx, root)
	if err != nil {
		return rec.abort(err)
	}
	rec.succeed(map[string]any{
		"folders":  summary.Folders,
		"ingested": summary.Ingested,
		"skipped":  summary.Skipped,
		"failures": summary.Failures,
	})
	fmt.Printf("Ingested %d of %d folder(s), %d skipped, %d failed\n",
		summary.Ingested, summary.Folders, summary.Skipped, summary.Failures)
	return nil
}
