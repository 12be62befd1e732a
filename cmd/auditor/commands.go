// File path: cmd/auditor/commands.go
package main

import (
	"github.com/spf13/cobra"

	"github.com/beefed-up-geek/code-as-auditors/internal/casedata"
	"github.com/beefed-up-geek/code-as-auditors/internal/checklist"
	"github.com/beefed-up-geek/code-as-auditors/internal/generation"
)

var (
	lawPath     string
	catalogPath string
	casesDir    string

	genConfigPath    string
	genModel         string
	genFeedbackModel string
	genRounds        int
	genArticles      []string
	genOutputDir     string

	instOutputDir   string
	instSampleSize  int
	instSampleSeed  int64
	instAnswerModel string

	ingestModel string

	runsLimit int

	serveLocalModel bool

	rootCmd = &cobra.Command{
		Use:   "auditor",
		Short: "Encode privacy statutes as executable rule programs and audit business cases",
		Long: `auditor turns the Personal Information Protection Act into executable
compliance rule programs, instantiates them against adjudicated business
cases, runs them, and scores the predicted violations against ground truth.`,
		SilenceUsage: true,
	}

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Generate rule pseudocode for the target articles via the LLM feedback loop",
		RunE:  runGenerate,
	}

	buildCmd = &cobra.Command{
		Use:   "build [template-dir|root]",
		Short: "Compile generated rule templates into executable rule programs",
		Args:  cobra.ExactArgs(1),
		RunE:  runBuild,
	}

	instantiateCmd = &cobra.Command{
		Use:   "instantiate [template-dir|root]",
		Short: "Bind compiled rule programs to sampled business cases",
		Args:  cobra.ExactArgs(1),
		RunE:  runInstantiate,
	}

	runCaseCmd = &cobra.Command{
		Use:   "run-case [program.json]",
		Short: "Execute one case program and write its report",
		Args:  cobra.ExactArgs(1),
		RunE:  runCase,
	}

	evaluateCmd = &cobra.Command{
		Use:   "evaluate [case-code-root]",
		Short: "Run case programs and score predictions against ground truth",
		Args:  cobra.ExactArgs(1),
		RunE:  runEvaluate,
	}

	ingestCasesCmd = &cobra.Command{
		Use:   "ingest-cases [corpus-root]",
		Short: "Extract adjudicated cases from a raw ruling corpus into the case store",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngestCases,
	}

	treeCmd = &cobra.Command{
		Use:   "tree [template-dir]",
		Short: "Print the rule tree layout of a generated template",
		Args:  cobra.ExactArgs(1),
		RunE:  runTree,
	}

	termsCmd = &cobra.Command{
		Use:   "terms",
		Short: "List terms the statute defines via (이하 ...이라 한다) clauses",
		RunE:  runTerms,
	}

	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs from the catalog",
		RunE:  runRuns,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&lawPath, "law", defaultLawPath(),
		"path to the statute record JSON")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "",
		"path to the run catalog database (defaults to AUDITOR_CATALOG_PATH)")

	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&genConfigPath, "config", "", "YAML run configuration")
	generateCmd.Flags().StringVar(&genModel, "model", "", "generation model (default "+generation.DefaultGenerationModel+")")
	generateCmd.Flags().StringVar(&genFeedbackModel, "feedback-model", "", "feedback model (default "+generation.DefaultFeedbackModel+")")
	generateCmd.Flags().IntVar(&genRounds, "rounds", 0, "maximum feedback rounds per provision")
	generateCmd.Flags().StringSliceVar(&genArticles, "articles", nil, "articles to encode (default the evaluation set)")
	generateCmd.Flags().StringVar(&genOutputDir, "output", "", "template output root (default "+generation.DefaultOutputDir+")")
	generateCmd.Flags().BoolVar(&serveLocalModel, "serve-local-model", false,
		"launch a local vLLM server for the duration of the run")

	rootCmd.AddCommand(buildCmd)

	rootCmd.AddCommand(instantiateCmd)
	instantiateCmd.Flags().StringVar(&casesDir, "cases", defaultCasesDir(), "case store directory")
	instantiateCmd.Flags().StringVar(&instOutputDir, "output", defaultCaseCodeDir(), "case program output root")
	instantiateCmd.Flags().IntVar(&instSampleSize, "sample", casedata.DefaultSampleSize, "number of cases to sample")
	instantiateCmd.Flags().Int64Var(&instSampleSeed, "seed", casedata.DefaultSampleSeed, "sampling seed")
	instantiateCmd.Flags().StringVar(&instAnswerModel, "answer-model", checklist.DefaultAnswerModel, "checklist answer model")
	instantiateCmd.Flags().BoolVar(&serveLocalModel, "serve-local-model", false,
		"launch a local vLLM server for the duration of the run")

	rootCmd.AddCommand(runCaseCmd)

	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&casesDir, "cases", defaultCasesDir(), "case store directory holding ground truth")

	rootCmd.AddCommand(ingestCasesCmd)
	ingestCasesCmd.Flags().StringVar(&casesDir, "cases", defaultCasesDir(), "case store directory to append to")
	ingestCasesCmd.Flags().StringVar(&ingestModel, "model", casedata.DefaultExtractionModel, "violation extraction model")
	ingestCasesCmd.Flags().BoolVar(&serveLocalModel, "serve-local-model", false,
		"launch a local vLLM server for the duration of the run")

	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(termsCmd)

	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to list")
}
