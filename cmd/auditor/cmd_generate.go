// File path: cmd/auditor/cmd_generate.go
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/beefed-up-geek/code-as-auditors/internal/catalog"
	"github.com/beefed-up-geek/code-as-auditors/internal/generation"
	"github.com/beefed-up-geek/code-as-auditors/internal/law"
	"github.com/beefed-up-geek/code-as-auditors/internal/llm"
)

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var cfg generation.Config
	if strings.TrimSpace(genConfigPath) != "" {
		loaded, err := generation.LoadConfigFile(genConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if strings.TrimSpace(genModel) != "" {
		cfg.GenerationModel = genModel
	}
	if strings.TrimSpace(genFeedbackModel) != "" {
		cfg.FeedbackModel = genFeedbackModel
	}
	if genRounds > 0 {
		cfg.MaxFeedbackRounds = genRounds
	}
	if len(genArticles) > 0 {
		cfg.Articles = append([]string(nil), genArticles...)
	}
	if strings.TrimSpace(genOutputDir) != "" {
		cfg.OutputDir = genOutputDir
	}
	cfg.ApplyDefaults()

	stopServer, err := maybeStartModelServer(ctx)
	if err != nil {
		return err
	}
	defer stopServer()

	gen := generation.New(llm.NewMux(), law.NewStore(lawPath), cfg)
	gen.Progress = func(line string) { fmt.Println(line) }

	rec, err := beginCatalogRun(ctx, catalog.KindGenerate, map[string]any{
		"articles":         cfg.Articles,
		"generation_model": cfg.GenerationModel,
		"feedback_model":   cfg.FeedbackModel,
		"output_dir":       cfg.OutputDir,
	})
	if err != nil {
		return err
	}
	result, err := gen.Run(ctx)
	if err != nil {
		return rec.abort(err)
	}
	rec.succeed(map[string]any{
		"dir":        result.Dir,
		"provisions": len(result.Records),
		"variables":  len(result.Variables),
	})
	fmt.Printf("Encoded %d provision(s) into %s\n", len(result.Records), result.Dir)
	return nil
}
