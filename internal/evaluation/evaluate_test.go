// File path: internal/evaluation/evaluate_test.go
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/beefed-up-geek/code-as-auditors/internal/casedata"
)

type fakeRunner struct {
	reports map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) RunCase(ctx context.Context, programPath string) error {
	f.calls = append(f.calls, programPath)
	base := filepath.Base(programPath)
	if err, ok := f.errs[base]; ok {
		return err
	}
	reportPath := strings.TrimSuffix(programPath, ".json") + ".txt"
	if _, err := os.Stat(reportPath); err == nil {
		return nil
	}
	content, ok := f.reports[base]
	if !ok {
		return fmt.Errorf("no scripted report for %s", base)
	}
	return os.WriteFile(reportPath, []byte(content), 0o644)
}

func caseReport(caseID, resultLine string) string {
	return fmt.Sprintf("CASE_ID: %s\n\nResults:\n%s\n\nErrors:\nNone\n", caseID, resultLine)
}

func evalCases() []casedata.Case {
	return []casedata.Case{
		{CaseID: "2019-001", ViolatedArticles: []casedata.ViolatedArticle{
			{VarName: "LAW_A26"},
			{VarName: "LAW_A24_2_P9"},
		}},
		{CaseID: "2019-002", ViolatedArticles: []casedata.ViolatedArticle{
			{VarName: "LAW_A21"},
		}},
	}
}

func writeProgram(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write program: %v", err)
	}
	return path
}

func TestNormalizeVarName(t *testing.T) {
	scenarios := []struct {
		raw  string
		want string
	}{
		{"LAW_A26", "LAW_A26"},
		{"LAW_A26['legal']", "LAW_A26"},
		{" LAW_A26_P1 ", "LAW_A26_P1"},
		{"LAW_A26_P1_S2", "LAW_A26_P1"},
		{"LAW_A24_2_P1", "LAW_A24_2"},
		{"law_a26_p1", "LAW_A26"},
		{"random", "RANDOM"},
		{"", ""},
	}
	for _, sc := range scenarios {
		if got := NormalizeVarName(sc.raw); got != sc.want {
			t.Fatalf("NormalizeVarName(%q) = %q, want %q", sc.raw, got, sc.want)
		}
	}
}

func TestParsePredictions(t *testing.T) {
	lines := []string{
		"CASE_ID: x",
		"",
		"Results:",
		"Non-compliant law variables: LAW_A26, LAW_A24_2_P1, LAW_A26",
	}
	got := parsePredictions(lines)
	want := []string{"LAW_A26", "LAW_A24_2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parsePredictions = %v, want %v", got, want)
	}

	if got := parsePredictions([]string{"No non-compliant law variables detected."}); got != nil {
		t.Fatalf("compliant report should yield no predictions, got %v", got)
	}
	if got := parsePredictions([]string{"Non-compliant law variables:"}); got != nil {
		t.Fatalf("empty payload should yield no predictions, got %v", got)
	}
	if got := parsePredictions([]string{"Non-compliant law variables: no violations found"}); got != nil {
		t.Fatalf("negative payload should yield no predictions, got %v", got)
	}
}

func TestEvaluateCaseScoresReport(t *testing.T) {
	dir := t.TempDir()
	program := writeProgram(t, dir, "2019-001.json")
	runner := &fakeRunner{reports: map[string]string{
		"2019-001.json": caseReport("2019-001", "Non-compliant law variables: LAW_A26, LAW_A15"),
	}}
	ev := NewEvaluator(runner, evalCases())

	result, err := ev.EvaluateCase(context.Background(), program)
	if err != nil {
		t.Fatalf("evaluate case: %v", err)
	}
	if result.CaseID != "2019-001" {
		t.Fatalf("unexpected case id: %s", result.CaseID)
	}
	if !reflect.DeepEqual(result.TP, []string{"LAW_A26"}) ||
		!reflect.DeepEqual(result.FP, []string{"LAW_A15"}) ||
		!reflect.DeepEqual(result.FN, []string{"LAW_A24_2"}) ||
		!reflect.DeepEqual(result.TN, []string{"LAW_A21"}) {
		t.Fatalf("unexpected sets: tp=%v fp=%v fn=%v tn=%v", result.TP, result.FP, result.FN, result.TN)
	}
	if result.Precision != 0.5 || result.Recall != 0.5 || result.F1 != 0.5 {
		t.Fatalf("unexpected metrics: %+v", result)
	}

	data, err := os.ReadFile(result.ReportPath)
	if err != nil {
		t.Fatalf("read evaluated report: %v", err)
	}
	want := "CASE_ID: 2019-001\n\nResults:\nNon-compliant law variables: LAW_A26, LAW_A15\n\nErrors:\nNone\n\n" +
		"Evaluation Summary:\n| Category | Articles |\n| --- | --- |\n" +
		"| TP | LAW_A26 |\n| FP | LAW_A15 |\n| TN | LAW_A21 |\n| FN | LAW_A24_2 |\n\n" +
		"Metrics:\nPrecision: 0.5000\nRecall: 0.5000\nF1 Score: 0.5000\n"
	if string(data) != want {
		t.Fatalf("unexpected evaluated report:\n%s\nwant:\n%s", data, want)
	}
}

func TestEvaluateCaseReplacesOldSummary(t *testing.T) {
	dir := t.TempDir()
	program := writeProgram(t, dir, "2019-001.json")
	runner := &fakeRunner{reports: map[string]string{
		"2019-001.json": caseReport("2019-001", "Non-compliant law variables: LAW_A26"),
	}}
	ev := NewEvaluator(runner, evalCases())

	if _, err := ev.EvaluateCase(context.Background(), program); err != nil {
		t.Fatalf("first evaluation: %v", err)
	}
	result, err := ev.EvaluateCase(context.Background(), program)
	if err != nil {
		t.Fatalf("second evaluation: %v", err)
	}
	data, err := os.ReadFile(result.ReportPath)
	if err != nil {
		t.Fatalf("read evaluated report: %v", err)
	}
	if count := strings.Count(string(data), "Evaluation Summary:"); count != 1 {
		t.Fatalf("expected a single evaluation section, found %d", count)
	}
}

func TestEvaluateCaseMetricEdges(t *testing.T) {
	dir := t.TempDir()
	withHit := writeProgram(t, dir, "hit.json")
	empty := writeProgram(t, dir, "empty.json")
	runner := &fakeRunner{reports: map[string]string{
		"hit.json":   caseReport("hit", "Non-compliant law variables: LAW_A26, LAW_A15"),
		"empty.json": caseReport("empty", "No non-compliant law variables detected."),
	}}
	cases := []casedata.Case{
		{CaseID: "hit", ViolatedArticles: []casedata.ViolatedArticle{{VarName: "LAW_A26"}}},
		{CaseID: "empty"},
	}
	ev := NewEvaluator(runner, cases)

	hit, err := ev.EvaluateCase(context.Background(), withHit)
	if err != nil {
		t.Fatalf("evaluate hit case: %v", err)
	}
	if hit.Precision != 0.5 || hit.Recall != 1.0 {
		t.Fatalf("unexpected hit metrics: %+v", hit)
	}
	data, _ := os.ReadFile(hit.ReportPath)
	if !strings.Contains(string(data), "F1 Score: 0.6667") {
		t.Fatalf("expected rounded f1 in report: %s", data)
	}

	none, err := ev.EvaluateCase(context.Background(), empty)
	if err != nil {
		t.Fatalf("evaluate empty case: %v", err)
	}
	if none.Precision != 0 || none.Recall != 0 || none.F1 != 0 {
		t.Fatalf("empty sets must score zero, got %+v", none)
	}
}

func TestEvaluateCaseExecutionFailure(t *testing.T) {
	dir := t.TempDir()
	program := writeProgram(t, dir, "boom.json")
	runner := &fakeRunner{errs: map[string]error{
		"boom.json": fmt.Errorf("%w for boom.json (exit 1): unit LAW_A26 missing", ErrExecutionFailed),
	}}
	ev := NewEvaluator(runner, evalCases())

	_, err := ev.EvaluateCase(context.Background(), program)
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("expected execution failure, got %v", err)
	}
}

func TestEvaluateRunDirCollectsFailures(t *testing.T) {
	dir := t.TempDir()
	writeProgram(t, dir, "2019-001.json")
	writeProgram(t, dir, "fail.json")
	runner := &fakeRunner{
		reports: map[string]string{
			"2019-001.json": caseReport("2019-001", "Non-compliant law variables: LAW_A26, LAW_A24_2"),
		},
		errs: map[string]error{
			"fail.json": fmt.Errorf("%w for fail.json (exit 1): boom", ErrExecutionFailed),
		},
	}
	ev := NewEvaluator(runner, evalCases())

	summary, err := ev.EvaluateRunDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("evaluate run dir: %v", err)
	}
	if len(summary.Results) != 1 || len(summary.Failures) != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	data, err := os.ReadFile(summary.ResultPath)
	if err != nil {
		t.Fatalf("read run result: %v", err)
	}
	content := string(data)
	wantHead := "Evaluated cases: 1\nMacro metrics (mean across cases):\n" +
		"* Precision: 1.0000\n* Recall: 1.0000\n* F1 Score: 1.0000\n\n" +
		"Case-level variation (std across cases):\n" +
		"* Precision std: 0.0000\n* Recall std: 0.0000\n* F1 Score std: 0.0000\n\n" +
		"Failed evaluations: 1\n"
	if !strings.HasPrefix(content, wantHead) {
		t.Fatalf("unexpected run result:\n%s", content)
	}
	if !strings.Contains(content, "fail.json") {
		t.Fatalf("run result should name the failed program: %s", content)
	}
}

func TestEvaluateTreeAggregatesRuns(t *testing.T) {
	root := t.TempDir()
	goodDir := filepath.Join(root, "run_a")
	badDir := filepath.Join(root, "run_b")
	for _, dir := range []string{goodDir, badDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir run dir: %v", err)
		}
	}
	writeProgram(t, goodDir, "2019-001.json")
	writeProgram(t, badDir, "2019-002.json")
	runner := &fakeRunner{reports: map[string]string{
		"2019-001.json": caseReport("2019-001", "Non-compliant law variables: LAW_A26, LAW_A24_2"),
		"2019-002.json": caseReport("2019-002", "Non-compliant law variables: LAW_A15"),
	}}
	ev := NewEvaluator(runner, evalCases())

	written, err := ev.EvaluateTree(context.Background(), root)
	if err != nil {
		t.Fatalf("evaluate tree: %v", err)
	}
	if len(written) != 3 {
		t.Fatalf("expected 2 run results and 1 aggregate, got %v", written)
	}

	data, err := os.ReadFile(filepath.Join(root, AggregateFileName))
	if err != nil {
		t.Fatalf("read aggregate: %v", err)
	}
	want := "Aggregated run metrics (macro means across cases):\n" +
		"Runs aggregated: 2 / 2\n" +
		"* Precision mean: 0.5000, std over runs: 0.7071\n" +
		"* Recall mean: 0.5000, std over runs: 0.7071\n" +
		"* F1 Score mean: 0.5000, std over runs: 0.7071\n"
	if string(data) != want {
		t.Fatalf("unexpected aggregate:\n%s\nwant:\n%s", data, want)
	}
}

func TestEvaluateTreeWithoutSubdirsTargetsRoot(t *testing.T) {
	root := t.TempDir()
	writeProgram(t, root, "2019-001.json")
	runner := &fakeRunner{reports: map[string]string{
		"2019-001.json": caseReport("2019-001", "Non-compliant law variables: LAW_A26, LAW_A24_2"),
	}}
	ev := NewEvaluator(runner, evalCases())

	written, err := ev.EvaluateTree(context.Background(), root)
	if err != nil {
		t.Fatalf("evaluate tree: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected root result and aggregate, got %v", written)
	}
	if _, err := os.Stat(filepath.Join(root, ResultFileName)); err != nil {
		t.Fatalf("root itself should have been evaluated: %v", err)
	}
}

func TestEvaluateTreeNoSuccessfulRuns(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "run_a")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir run dir: %v", err)
	}
	writeProgram(t, sub, "boom.json")
	runner := &fakeRunner{errs: map[string]error{
		"boom.json": fmt.Errorf("%w for boom.json (exit 1): boom", ErrExecutionFailed),
	}}
	ev := NewEvaluator(runner, evalCases())

	if _, err := ev.EvaluateTree(context.Background(), root); err != nil {
		t.Fatalf("evaluate tree: %v", err)
	}
	agg, err := os.ReadFile(filepath.Join(root, AggregateFileName))
	if err != nil {
		t.Fatalf("read aggregate: %v", err)
	}
	if string(agg) != "No successful runs to aggregate.\n" {
		t.Fatalf("unexpected aggregate: %q", agg)
	}
	result, err := os.ReadFile(filepath.Join(sub, ResultFileName))
	if err != nil {
		t.Fatalf("read run result: %v", err)
	}
	if !strings.HasPrefix(string(result), "Evaluated cases: 0\nNo successful evaluations.") {
		t.Fatalf("unexpected run result: %s", result)
	}
}
