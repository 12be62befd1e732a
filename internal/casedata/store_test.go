// File path: internal/casedata/store_test.go
package casedata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreAppendLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	cases := []Case{
		{
			CaseID:   "2023-001",
			Business: "알파테크",
			ViolatedArticles: []ViolatedArticle{
				{Law: "개인정보보호법", ID: "제26조", VarName: "LAW_A26"},
			},
			SourcePath: "2023/의안-12",
			Content:    "개인정보 <처리방침> & 위탁 현황",
		},
		{CaseID: "2023-002", Business: "베타유통"},
	}

	if err := store.Append(ctx, "", cases); err != nil {
		t.Fatalf("append: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(loaded))
	}
	if loaded[0].CaseID != "2023-001" || loaded[0].ViolatedArticles[0].VarName != "LAW_A26" {
		t.Fatalf("unexpected first case: %+v", loaded[0])
	}
	if loaded[1].Business != "베타유통" {
		t.Fatalf("unexpected second case: %+v", loaded[1])
	}

	raw, err := os.ReadFile(filepath.Join(store.Dir(), DefaultCasesFile))
	if err != nil {
		t.Fatalf("read raw store: %v", err)
	}
	if !strings.Contains(string(raw), "개인정보 <처리방침> & 위탁 현황") {
		t.Fatalf("store should keep Korean text and angle brackets unescaped: %s", raw)
	}
}

func TestStoreLoadSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	content := "\n" + `{"case_id":"a","business":"","violated_articles":[],"source_path":"","content":""}` + "\n\n" +
		`{"case_id":"b","business":"","violated_articles":[],"source_path":"","content":""}` + "\n"
	if err := os.WriteFile(filepath.Join(dir, "cases.jsonl"), []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 || loaded[0].CaseID != "a" || loaded[1].CaseID != "b" {
		t.Fatalf("unexpected cases: %+v", loaded)
	}
}

func TestStoreLoadReportsLineNumber(t *testing.T) {
	dir := t.TempDir()
	content := `{"case_id":"a"}` + "\n" + "{broken\n"
	if err := os.WriteFile(filepath.Join(dir, "cases.jsonl"), []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_, err = store.Load(context.Background())
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if !strings.Contains(err.Error(), "line 2") || !strings.Contains(err.Error(), "cases.jsonl") {
		t.Fatalf("error should name the line and file: %v", err)
	}
}

func TestStoreLoadReadsFilesInNameOrder(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b_extra.jsonl"), []byte(`{"case_id":"late"}`+"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a_cases.jsonl"), []byte(`{"case_id":"early"}`+"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 || loaded[0].CaseID != "early" || loaded[1].CaseID != "late" {
		t.Fatalf("expected name-ordered load, got %+v", loaded)
	}
}
