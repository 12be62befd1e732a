// File path: cmd/auditor/cmd_law.go
package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/beefed-up-geek/code-as-auditors/internal/law"
	"github.com/beefed-up-geek/code-as-auditors/internal/rulecode"
)

func runTree(cmd *cobra.Command, args []string) error {
	records, err := rulecode.ReadRuleRecords(filepath.Join(args[0], rulecode.RuleCodeFile))
	if err != nil {
		return err
	}
	tree, err := law.BuildTree(records)
	if err != nil {
		return err
	}
	fmt.Println(tree.Render())
	return nil
}

func runTerms(cmd *cobra.Command, _ []string) error {
	terms, err := law.NewStore(lawPath).DefinedTerms()
	if err != nil {
		return err
	}
	if len(terms) == 0 {
		fmt.Println("No defined terms found.")
		return nil
	}
	for _, term := range terms {
		fmt.Printf("%s\t%q\t%s\n", term.ProvisionID, term.Term, term.FullTerm)
	}
	return nil
}
