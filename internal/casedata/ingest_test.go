// File path: internal/casedata/ingest_test.go
package casedata

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/korean"

	"github.com/beefed-up-geek/code-as-auditors/internal/law"
	"github.com/beefed-up-geek/code-as-auditors/internal/llm"
)

type fakeClient struct {
	replies []string
	errs    []error
	calls   int
	models  []string
	params  []llm.Params
	sysSeen []string
	usrSeen []string
}

func (f *fakeClient) ChatParams(ctx context.Context, model, sysPrompt, usrPrompt string, params llm.Params) (string, error) {
	idx := f.calls
	f.calls++
	f.models = append(f.models, model)
	f.params = append(f.params, params)
	f.sysSeen = append(f.sysSeen, sysPrompt)
	f.usrSeen = append(f.usrSeen, usrPrompt)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.replies) {
		return f.replies[idx], nil
	}
	return "", errors.New("no scripted reply")
}

func (f *fakeClient) ParseObject(ctx context.Context, content string, v interface{}) error {
	return llm.DecodeObject(content, v)
}

func writeLawFixture(t *testing.T) *law.Store {
	t.Helper()
	records := []law.Record{
		{
			ID:      "제26조",
			Class:   "조",
			VarName: "LAW_A26",
			Title:   "업무위탁에 따른 개인정보의 처리 제한",
			Content: "위탁하는 경우에는 문서로 한다.",
		},
	}
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("marshal law fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "law.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write law fixture: %v", err)
	}
	return law.NewStore(path)
}

func writeCorpusFolder(t *testing.T, root, year, name string, files map[string]string) {
	t.Helper()
	yearDir := filepath.Join(root, year)
	if err := os.MkdirAll(yearDir, 0o755); err != nil {
		t.Fatalf("mkdir year: %v", err)
	}
	if err := os.WriteFile(filepath.Join(yearDir, name+".txt"), []byte("표지"), 0o644); err != nil {
		t.Fatalf("write sibling txt: %v", err)
	}
	folder := filepath.Join(yearDir, name)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatalf("mkdir case folder: %v", err)
	}
	for file, content := range files {
		if err := os.WriteFile(filepath.Join(folder, file), []byte(content), 0o644); err != nil {
			t.Fatalf("write case file: %v", err)
		}
	}
}

func TestIngestRunExtractsCases(t *testing.T) {
	root := t.TempDir()
	writeCorpusFolder(t, root, "2023", "의결-12", map[string]string{
		"a.txt": "피심인의 개인정보 처리가 위법 하다고 판단하였다.",
		"b.txt": "별첨 자료 목록",
	})
	writeCorpusFolder(t, root, "2023", "의결-13", map[string]string{
		"only.txt": "참고 자료",
	})
	if err := os.WriteFile(filepath.Join(root, "안내.txt"), []byte("안내문"), 0o644); err != nil {
		t.Fatalf("write stray txt: %v", err)
	}

	reply := `{"case_id": "2023-012", "business": "감마페이", "violated_articles": [` +
		`{"law": "개인정보보호법", "id": "제26조", "reason": "위탁 계약서 미작성"},` +
		`{"law": "개인정보보호법", "id": "제24조의2 제1항", "reason": "주민등록번호 처리"},` +
		`{"law": "시행령", "id": "제30조", "reason": "내부 관리계획 미수립"}` +
		`], "content": "위탁 운영 현황"}`
	fake := &fakeClient{replies: []string{reply}}

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ing := NewIngestor(fake, store, writeLawFixture(t), "")
	summary, err := ing.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Folders != 2 || summary.Ingested != 1 || summary.Skipped != 1 || summary.Failures != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if fake.models[0] != DefaultExtractionModel {
		t.Fatalf("expected default extraction model, got %s", fake.models[0])
	}
	if !fake.params[0].JSONObject || fake.params[0].Temperature == nil || *fake.params[0].Temperature != extractionTemperature {
		t.Fatalf("unexpected params: %+v", fake.params[0])
	}
	if fake.sysSeen[0] != extractionSystemPrompt {
		t.Fatalf("unexpected system prompt: %q", fake.sysSeen[0])
	}
	usr := fake.usrSeen[0]
	if !strings.Contains(usr, "파일명: a.txt") {
		t.Fatalf("prompt should include the violation file: %q", usr)
	}
	if strings.Contains(usr, "파일명: b.txt") {
		t.Fatalf("prompt should exclude files without the marker: %q", usr)
	}
	if !strings.Contains(usr, "------ 사건 문서 시작 ------") {
		t.Fatalf("prompt should frame the document: %q", usr)
	}

	cases, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("expected 1 ingested case, got %d", len(cases))
	}
	c := cases[0]
	if c.CaseID != "2023-012" || c.Business != "감마페이" {
		t.Fatalf("unexpected case header: %+v", c)
	}
	if c.SourcePath != filepath.Join("2023", "의결-12") {
		t.Fatalf("unexpected source path: %s", c.SourcePath)
	}
	if len(c.ViolatedArticles) != 3 {
		t.Fatalf("expected 3 violated articles, got %d", len(c.ViolatedArticles))
	}
	if c.ViolatedArticles[0].VarName != "LAW_A26" {
		t.Fatalf("store-backed provision should use the stored var name: %+v", c.ViolatedArticles[0])
	}
	if c.ViolatedArticles[1].VarName != "LAW_A24_2_P1" {
		t.Fatalf("unlisted provision should derive its var name: %+v", c.ViolatedArticles[1])
	}
	if c.ViolatedArticles[2].VarName != "" {
		t.Fatalf("other statutes should not get a var name: %+v", c.ViolatedArticles[2])
	}
}

func TestIngestContinuesAfterExtractionFailure(t *testing.T) {
	root := t.TempDir()
	writeCorpusFolder(t, root, "2023", "의결-12", map[string]string{
		"a.txt": "위법 판단",
	})
	fake := &fakeClient{errs: []error{errors.New("model unavailable")}}

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ing := NewIngestor(fake, store, nil, "gpt-4o")
	summary, err := ing.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Folders != 1 || summary.Failures != 1 || summary.Ingested != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	cases, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cases) != 0 {
		t.Fatalf("failed extraction must not append cases, got %d", len(cases))
	}
}

func TestIngestTruncatesLongDocuments(t *testing.T) {
	root := t.TempDir()
	long := "위법 " + strings.Repeat("personal data processing record described in detail.\n\n", 300)
	writeCorpusFolder(t, root, "2023", "의결-12", map[string]string{
		"a.txt": long,
	})
	fake := &fakeClient{replies: []string{`{"case_id": "x", "business": "", "violated_articles": [], "content": ""}`}}

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ing := NewIngestor(fake, store, nil, "")
	if _, err := ing.Run(context.Background(), root); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(fake.usrSeen[0], truncationNotice) {
		t.Fatalf("long document should be truncated with the notice")
	}
	if len(fake.usrSeen[0]) >= len(long) {
		t.Fatalf("prompt should be shorter than the raw document")
	}
}

func TestDeriveVarName(t *testing.T) {
	scenarios := []struct {
		id   string
		want string
	}{
		{"제26조", "LAW_A26"},
		{"제24조의2", "LAW_A24_2"},
		{"제24조의2 제1항", "LAW_A24_2_P1"},
		{"제30조 제2항 제4호", "LAW_A30_P2_S4"},
		{"제39조의4 제3항", "LAW_A39_4_P3"},
		{"개인정보보호법 제26조 제1항", "LAW_A26_P1"},
		{"별표 1", ""},
	}
	for _, sc := range scenarios {
		if got := DeriveVarName(sc.id); got != sc.want {
			t.Fatalf("DeriveVarName(%q) = %q, want %q", sc.id, got, sc.want)
		}
	}
}

func TestDecodeCaseTextEncodingFallback(t *testing.T) {
	eucKR, err := korean.EUCKR.NewEncoder().Bytes([]byte("위법 판단 자료"))
	if err != nil {
		t.Fatalf("encode euc-kr fixture: %v", err)
	}
	if got := decodeCaseText(eucKR); got != "위법 판단 자료" {
		t.Fatalf("euc-kr decode failed: %q", got)
	}

	bom := append([]byte{0xEF, 0xBB, 0xBF}, []byte("plain utf-8")...)
	if got := decodeCaseText(bom); got != "plain utf-8" {
		t.Fatalf("utf-8 BOM should be stripped: %q", got)
	}

	utf16le := []byte{0xFF, 0xFE, 0x41, 0x00, 0x42, 0x00}
	if got := decodeCaseText(utf16le); got != "AB" {
		t.Fatalf("utf-16le decode failed: %q", got)
	}

	if got := decodeCaseText([]byte{0x41, 0xFF, 0x42}); got != "AB" {
		t.Fatalf("lossy fallback should drop invalid bytes: %q", got)
	}
}
