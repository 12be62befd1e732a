// File path: cmd/auditor/helpers.go
package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/beefed-up-geek/code-as-auditors/internal/casedata"
	"github.com/beefed-up-geek/code-as-auditors/internal/catalog"
	"github.com/beefed-up-geek/code-as-auditors/internal/common"
)

func defaultLawPath() string {
	return filepath.Join("dataset", "PIPA", "law", "law_LRX.json")
}

func defaultCasesDir() string {
	return filepath.Join("dataset", "PIPA", "cases")
}

func defaultCaseCodeDir() string {
	return filepath.Join("outputs", "case_code_output")
}

func loadCases(ctx context.Context, dir string) ([]casedata.Case, error) {
	store, err := casedata.NewStore(dir)
	if err != nil {
		return nil, err
	}
	cases, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no cases under %s", dir)
	}
	return cases, nil
}

func openCatalog() (*catalog.Catalog, error) {
	cfg := catalog.LoadConfig()
	if trimmed := strings.TrimSpace(catalogPath); trimmed != "" {
		cfg.Path = trimmed
	}
	return catalog.OpenWithConfig(cfg)
}

// runRecorder tracks one pipeline invocation in the run catalog and owns the
// catalog handle for the command's lifetime.
type runRecorder struct {
	cat *catalog.Catalog
	id  string
}

func beginCatalogRun(ctx context.Context, kind string, detail map[string]any) (*runRecorder, error) {
	cat, err := openCatalog()
	if err != nil {
		return nil, fmt.Errorf("run catalog: %w", err)
	}
	id, err := cat.Begin(ctx, kind, detail)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("run catalog: %w", err)
	}
	return &runRecorder{cat: cat, id: id}, nil
}

// abort marks the run failed and hands the causing error back so callers can
// return it in one line. The catalog write uses a fresh context: the run
// error may be the command context's own cancellation.
func (r *runRecorder) abort(err error) error {
	detail := map[string]any{"error": err.Error()}
	if tail := problemTail(problemTailLimit); len(tail) > 0 {
		detail["problems"] = tail
	}
	if ferr := r.cat.Finish(context.Background(), r.id, catalog.StatusFailed, detail); ferr != nil {
		common.Logger().Warn("auditor: catalog update failed", "run", r.id, "error", ferr)
	}
	r.cat.Close()
	return err
}

func (r *runRecorder) succeed(detail map[string]any) {
	if tail := problemTail(problemTailLimit); len(tail) > 0 {
		if detail == nil {
			detail = map[string]any{}
		}
		detail["problems"] = tail
	}
	if err := r.cat.Finish(context.Background(), r.id, catalog.StatusSucceeded, detail); err != nil {
		common.Logger().Warn("auditor: catalog update failed", "run", r.id, "error", err)
	}
	r.cat.Close()
}

const problemTailLimit = 5

// problemTail condenses the most recent warn/error log entries so the run
// catalog records what went sideways, newest last.
func problemTail(limit int) []string {
	problems := common.ProblemEntries()
	if len(problems) > limit {
		problems = problems[len(problems)-limit:]
	}
	tail := make([]string, 0, len(problems))
	for _, e := range problems {
		line := e.Level + " " + e.Message
		if errText, ok := e.Attributes["error"]; ok {
			line = fmt.Sprintf("%s (%v)", line, errText)
		}
		tail = append(tail, line)
	}
	return tail
}
