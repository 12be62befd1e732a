// File path: cmd/auditor/cmd_build.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beefed-up-geek/code-as-auditors/internal/catalog"
	"github.com/beefed-up-geek/code-as-auditors/internal/law"
	"github.com/beefed-up-geek/code-as-auditors/internal/rulecode"
)

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	root := args[0]

	fullLaw, err := law.NewStore(lawPath).Records()
	if err != nil {
		return err
	}
	dirs, err := rulecode.DiscoverTemplateDirs(root)
	if err != nil {
		return err
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no rule templates under %s", root)
	}

	rec, err := beginCatalogRun(ctx, catalog.KindBuild, map[string]any{
		"root":      root,
		"templates": len(dirs),
	})
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		artifact, err := rulecode.BuildDir(dir, fullLaw)
		if err != nil {
			return rec.abort(fmt.Errorf("build %s: %w", dir, err))
		}
		fmt.Printf("Compiled %s (%d units)\n", dir, len(artifact.Program.Units))
	}
	rec.succeed(map[string]any{"root": root, "templates": len(dirs)})
	return nil
}
