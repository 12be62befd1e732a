// File path: internal/evaluation/evaluate.go
package evaluation

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beefed-up-geek/code-as-auditors/internal/casedata"
	"github.com/beefed-up-geek/code-as-auditors/internal/common"
)

const (
	// ResultFileName collects per-run macro metrics inside a run directory.
	ResultFileName = "_result.txt"
	// AggregateFileName collects cross-run metrics at the evaluation root.
	AggregateFileName = "_aggregate_result.txt"
)

// CaseResult scores one executed case program against its ground truth.
type CaseResult struct {
	CaseID     string
	Predicted  []string
	Actual     []string
	TP         []string
	FP         []string
	TN         []string
	FN         []string
	Precision  float64
	Recall     float64
	F1         float64
	ReportPath string
}

// RunSummary aggregates one run directory's case results and failures.
type RunSummary struct {
	Dir        string
	Results    []CaseResult
	Failures   []string
	ResultPath string
}

// Evaluator runs compiled case programs and scores their reported violations
// against the case corpus. The true-negative universe is the union of every
// case's ground-truth variables, extended by whatever a program predicts.
type Evaluator struct {
	runner      CaseRunner
	groundTruth map[string][]string
	universe    map[string]struct{}
}

func NewEvaluator(runner CaseRunner, cases []casedata.Case) *Evaluator {
	groundTruth := make(map[string][]string, len(cases))
	universe := make(map[string]struct{})
	for _, c := range cases {
		caseID := strings.TrimSpace(c.CaseID)
		if caseID == "" {
			continue
		}
		seen := make(map[string]struct{})
		var names []string
		for _, article := range c.ViolatedArticles {
			if article.VarName == "" {
				continue
			}
			name := NormalizeVarName(article.VarName)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
			universe[name] = struct{}{}
		}
		groundTruth[caseID] = names
	}
	return &Evaluator{runner: runner, groundTruth: groundTruth, universe: universe}
}

// EvaluateCase executes one case program, scores its report, and rewrites the
// report with a fresh evaluation section.
func (e *Evaluator) EvaluateCase(ctx context.Context, programPath string) (CaseResult, error) {
	if _, err := os.Stat(programPath); err != nil {
		return CaseResult{}, fmt.Errorf("case program: %w", err)
	}
	if err := e.runner.RunCase(ctx, programPath); err != nil {
		return CaseResult{}, err
	}
	reportPath := strings.TrimSuffix(programPath, filepath.Ext(programPath)) + ".txt"
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return CaseResult{}, fmt.Errorf("case report: %w", err)
	}
	lines := splitReportLines(string(data))

	predicted := parsePredictions(lines)
	caseID := reportCaseID(lines, programPath)
	actual := e.groundTruth[caseID]

	predictedSet := toSet(predicted)
	actualSet := toSet(actual)
	candidates := make(map[string]struct{}, len(e.universe)+len(predictedSet))
	for name := range e.universe {
		candidates[name] = struct{}{}
	}
	for name := range predictedSet {
		candidates[name] = struct{}{}
	}

	var tp, fp, fn, tn []string
	for name := range predictedSet {
		if _, ok := actualSet[name]; ok {
			tp = append(tp, name)
		} else {
			fp = append(fp, name)
		}
	}
	for name := range actualSet {
		if _, ok := predictedSet[name]; !ok {
			fn = append(fn, name)
		}
	}
	for name := range candidates {
		_, inActual := actualSet[name]
		_, inPredicted := predictedSet[name]
		if !inActual && !inPredicted {
			tn = append(tn, name)
		}
	}
	sort.Strings(tp)
	sort.Strings(fp)
	sort.Strings(fn)
	sort.Strings(tn)

	var precision, recall, f1 float64
	if len(tp)+len(fp) > 0 {
		precision = float64(len(tp)) / float64(len(tp)+len(fp))
	}
	if len(tp)+len(fn) > 0 {
		recall = float64(len(tp)) / float64(len(tp)+len(fn))
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	if err := rewriteReport(reportPath, lines, tp, fp, tn, fn, precision, recall, f1); err != nil {
		return CaseResult{}, err
	}
	return CaseResult{
		CaseID:     caseID,
		Predicted:  sortedKeys(predictedSet),
		Actual:     sortedKeys(actualSet),
		TP:         tp,
		FP:         fp,
		TN:         tn,
		FN:         fn,
		Precision:  precision,
		Recall:     recall,
		F1:         f1,
		ReportPath: reportPath,
	}, nil
}

// EvaluateRunDir evaluates every case program in a run directory, collecting
// failures instead of aborting, and writes the run's _result.txt.
func (e *Evaluator) EvaluateRunDir(ctx context.Context, dir string) (RunSummary, error) {
	summary := RunSummary{Dir: dir}
	programs, err := listCasePrograms(dir)
	if err != nil {
		return summary, err
	}
	for _, program := range programs {
		result, err := e.EvaluateCase(ctx, program)
		if err != nil {
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %v", program, err))
			common.Logger().Warn("evaluate: case failed", "program", program, "error", err)
			continue
		}
		summary.Results = append(summary.Results, result)
	}
	summary.ResultPath = filepath.Join(dir, ResultFileName)
	if err := writeRunResult(summary); err != nil {
		return summary, err
	}
	common.Logger().Info("evaluate: run complete",
		"dir", dir, "evaluated", len(summary.Results), "failed", len(summary.Failures))
	return summary, nil
}

// EvaluateTree evaluates each run directory under root, or root itself when
// it has no subdirectories, then writes the aggregate result. Returns the
// paths of every result file written.
func (e *Evaluator) EvaluateTree(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("evaluation root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("evaluation root %s is not a directory", root)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read evaluation root: %w", err)
	}
	var targets []string
	for _, entry := range entries {
		if entry.IsDir() {
			targets = append(targets, filepath.Join(root, entry.Name()))
		}
	}
	if len(targets) == 0 {
		targets = []string{root}
	}

	var written []string
	var successful []RunSummary
	for _, target := range targets {
		summary, err := e.EvaluateRunDir(ctx, target)
		if err != nil {
			return written, err
		}
		written = append(written, summary.ResultPath)
		if len(summary.Results) > 0 {
			successful = append(successful, summary)
		}
	}

	aggregatePath := filepath.Join(root, AggregateFileName)
	if err := writeAggregate(aggregatePath, successful, len(targets)); err != nil {
		return written, err
	}
	return append(written, aggregatePath), nil
}

// reportCaseID reads the case id from the report header, falling back to the
// program file stem when the header is missing.
func reportCaseID(lines []string, programPath string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "CASE_ID:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	base := filepath.Base(programPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func listCasePrograms(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read run dir: %w", err)
	}
	var programs []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		programs = append(programs, filepath.Join(dir, entry.Name()))
	}
	return programs, nil
}

func rewriteReport(reportPath string, lines, tp, fp, tn, fn []string, precision, recall, f1 float64) error {
	base := stripEvaluationSection(lines)
	for len(base) > 0 && strings.TrimSpace(base[len(base)-1]) == "" {
		base = base[:len(base)-1]
	}
	out := append([]string{}, base...)
	if len(out) > 0 && out[len(out)-1] != "" {
		out = append(out, "")
	}
	out = append(out,
		"Evaluation Summary:",
		"| Category | Articles |",
		"| --- | --- |",
		fmt.Sprintf("| TP | %s |", formatArticleList(tp)),
		fmt.Sprintf("| FP | %s |", formatArticleList(fp)),
		fmt.Sprintf("| TN | %s |", formatArticleList(tn)),
		fmt.Sprintf("| FN | %s |", formatArticleList(fn)),
		"",
		"Metrics:",
		fmt.Sprintf("Precision: %.4f", precision),
		fmt.Sprintf("Recall: %.4f", recall),
		fmt.Sprintf("F1 Score: %.4f", f1),
	)
	if err := os.WriteFile(reportPath, []byte(strings.Join(out, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("write evaluated report: %w", err)
	}
	return nil
}

func writeRunResult(summary RunSummary) error {
	var lines []string
	if len(summary.Results) > 0 {
		precisions, recalls, f1s := metricSeries(summary.Results)
		lines = append(lines,
			fmt.Sprintf("Evaluated cases: %d", len(summary.Results)),
			"Macro metrics (mean across cases):",
			fmt.Sprintf("* Precision: %.4f", mean(precisions)),
			fmt.Sprintf("* Recall: %.4f", mean(recalls)),
			fmt.Sprintf("* F1 Score: %.4f", mean(f1s)),
			"",
			"Case-level variation (std across cases):",
			fmt.Sprintf("* Precision std: %.4f", sampleStd(precisions)),
			fmt.Sprintf("* Recall std: %.4f", sampleStd(recalls)),
			fmt.Sprintf("* F1 Score std: %.4f", sampleStd(f1s)),
		)
	} else {
		lines = append(lines,
			"Evaluated cases: 0",
			"No successful evaluations. Precision/Recall/F1 statistics unavailable.",
		)
	}
	if len(summary.Failures) > 0 {
		lines = append(lines, "", fmt.Sprintf("Failed evaluations: %d", len(summary.Failures)))
		lines = append(lines, summary.Failures...)
	}
	if err := os.WriteFile(summary.ResultPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("write run result: %w", err)
	}
	return nil
}

func writeAggregate(path string, successful []RunSummary, totalRuns int) error {
	var lines []string
	if len(successful) > 0 {
		var precisionMeans, recallMeans, f1Means []float64
		for _, summary := range successful {
			precisions, recalls, f1s := metricSeries(summary.Results)
			precisionMeans = append(precisionMeans, mean(precisions))
			recallMeans = append(recallMeans, mean(recalls))
			f1Means = append(f1Means, mean(f1s))
		}
		lines = append(lines,
			"Aggregated run metrics (macro means across cases):",
			fmt.Sprintf("Runs aggregated: %d / %d", len(successful), totalRuns),
			fmt.Sprintf("* Precision mean: %.4f, std over runs: %.4f", mean(precisionMeans), sampleStd(precisionMeans)),
			fmt.Sprintf("* Recall mean: %.4f, std over runs: %.4f", mean(recallMeans), sampleStd(recallMeans)),
			fmt.Sprintf("* F1 Score mean: %.4f, std over runs: %.4f", mean(f1Means), sampleStd(f1Means)),
		)
	} else {
		lines = append(lines, "No successful runs to aggregate.")
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("write aggregate result: %w", err)
	}
	return nil
}

func metricSeries(results []CaseResult) (precisions, recalls, f1s []float64) {
	for _, result := range results {
		precisions = append(precisions, result.Precision)
		recalls = append(recalls, result.Recall)
		f1s = append(f1s, result.F1)
	}
	return precisions, recalls, f1s
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd is the n-1 standard deviation, zero for fewer than two samples.
func sampleStd(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
