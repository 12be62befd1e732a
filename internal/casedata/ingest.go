// File path: internal/casedata/ingest.go
package casedata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
	"github.com/beefed-up-geek/code-as-auditors/internal/common/telemetry"
	"github.com/beefed-up-geek/code-as-auditors/internal/law"
	"github.com/beefed-up-geek/code-as-auditors/internal/llm"
)

// DefaultExtractionModel distills ruling documents into case records.
const DefaultExtractionModel = "gpt-4o"

const (
	violationMarker  = "위법"
	maxPromptRunes   = 6000
	chunkOverlap     = 200
	truncationNotice = "\n\n[이후 내용 생략]"
)

var extractionTemperature float32 = 0.2

const extractionSystemPrompt = "You are a legal assistant who only outputs JSON. " +
	"Extract the case details and violated legal articles described in the user message."

const extractionPromptTemplate = `아래는 하나의 개인정보보호위원회 의결에서 '위법'이라는 표현이 포함된 문서 조각들입니다.
보호법은 개인정보보호법과 동일함을 유념하세요.
각 조각을 읽고 사업자의 개인정보 처리 방식과 위반된 법 조항을 하나의 JSON 객체로만 응답하세요.

출력 형식 예시:
{
  "case_id": "2021-013-103",
  "business": "넷플릭스",
  "violated_articles": [
    {"law": "개인정보보호법", "id": "제24조 제1항", "reason": "..."},
    {"law": "시행령", "id": "제30조 제2항 제4호", "reason": "..."}
  ],
  "content": "..."
}

주의사항:
- 반드시 JSON만 출력하고, 다른 설명문이나 해설을 덧붙이지 않는다.
- case_id와 business는 문서에서 직접 추출 가능한 정보를 기반으로 작성한다.
- violated_articles에는 문서에서 위법이라고 판별한 법률 조항들을 중복 없이 모두 포함한다.
- id는 조, 항, 호를 형식에 맞게 구체적으로 표시한다. (예: 제3조, 제4조의2 제1항, 제5조 제7항)
- content에는 사업자의 데이터 처리 방식(수집 항목, 목적, 시점, 보관 기간, 국외 이전, 시스템 구조 등)을 객관적으로 기술하되 법 위반 여부나 법과 관련된 표현은 사용하지 않는다.

------ 사건 문서 시작 ------
{document}
------ 사건 문서 끝 ------`

var articleRefPattern = regexp.MustCompile(`제(\d+)조(?:의(\d+))?(?:\s*제(\d+)항)?(?:\s*제(\d+)호)?`)

// DeriveVarName maps a provision reference such as "제24조의2 제1항" to the
// law-tree variable naming scheme, here LAW_A24_2_P1. References without an
// article component yield an empty name.
func DeriveVarName(articleID string) string {
	m := articleRefPattern.FindStringSubmatch(articleID)
	if m == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("LAW_A")
	b.WriteString(m[1])
	if m[2] != "" {
		b.WriteString("_")
		b.WriteString(m[2])
	}
	if m[3] != "" {
		b.WriteString("_P")
		b.WriteString(m[3])
	}
	if m[4] != "" {
		b.WriteString("_S")
		b.WriteString(m[4])
	}
	return b.String()
}

// Client is the slice of the model mux the ingestor needs.
type Client interface {
	ChatParams(ctx context.Context, model, sysPrompt, usrPrompt string, params llm.Params) (string, error)
	ParseObject(ctx context.Context, content string, v interface{}) error
}

// Ingestor walks a raw ruling corpus, extracts case records with the
// configured model, and appends them to the case store.
type Ingestor struct {
	client   Client
	store    *Store
	laws     *law.Store
	model    string
	splitter textsplitter.TextSplitter
}

func NewIngestor(client Client, store *Store, laws *law.Store, model string) *Ingestor {
	if model == "" {
		model = DefaultExtractionModel
	}
	return &Ingestor{
		client: client,
		store:  store,
		laws:   laws,
		model:  model,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(maxPromptRunes),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}
}

// Summary counts what one ingest run did with the discovered case folders.
type Summary struct {
	Folders  int
	Ingested int
	Skipped  int
	Failures int
}

// Run ingests every case folder under root. Folders without violation text
// are skipped and per-folder failures are logged without aborting the walk.
func (ing *Ingestor) Run(ctx context.Context, root string) (Summary, error) {
	var summary Summary
	folders, err := collectCaseFolders(root)
	if err != nil {
		return summary, err
	}
	summary.Folders = len(folders)
	for _, folder := range folders {
		if err := telemetry.CheckMemoryBudget("ingest"); err != nil {
			return summary, err
		}
		sections, err := violationSections(folder)
		if err != nil {
			summary.Failures++
			common.Logger().Warn("ingest: folder read failed", "folder", folder, "error", err)
			continue
		}
		if len(sections) == 0 {
			summary.Skipped++
			continue
		}
		record, err := ing.extract(ctx, root, folder, sections)
		if err != nil {
			summary.Failures++
			common.Logger().Warn("ingest: extraction failed", "folder", folder, "error", err)
			continue
		}
		if err := ing.store.Append(ctx, DefaultCasesFile, []Case{record}); err != nil {
			return summary, err
		}
		summary.Ingested++
	}
	common.Logger().Info("ingest: run complete",
		"folders", summary.Folders, "ingested", summary.Ingested,
		"skipped", summary.Skipped, "failures", summary.Failures)
	return summary, nil
}

// collectCaseFolders finds directories named after a sibling .txt file, the
// layout the ruling corpus uses for per-case attachments.
func collectCaseFolders(root string) ([]string, error) {
	seen := make(map[string]struct{})
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".txt" {
			return nil
		}
		stem := strings.TrimSuffix(filepath.Base(path), ".txt")
		candidate := filepath.Join(filepath.Dir(path), stem)
		if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() {
			seen[candidate] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus: %w", err)
	}
	folders := make([]string, 0, len(seen))
	for folder := range seen {
		folders = append(folders, folder)
	}
	sort.Strings(folders)
	return folders, nil
}

// violationSections returns one labeled section per .txt file in the folder
// whose text mentions the violation marker.
func violationSections(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read case folder: %w", err)
	}
	var sections []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".txt" {
			continue
		}
		text, err := readCaseFile(filepath.Join(folder, entry.Name()))
		if err != nil {
			return nil, err
		}
		if strings.Contains(text, violationMarker) {
			sections = append(sections, fmt.Sprintf("파일명: %s\n%s", entry.Name(), strings.TrimSpace(text)))
		}
	}
	return sections, nil
}

type extractedArticle struct {
	Law    string `json:"law"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type extractionPayload struct {
	CaseID           string             `json:"case_id"`
	Business         string             `json:"business"`
	ViolatedArticles []extractedArticle `json:"violated_articles"`
	Content          string             `json:"content"`
}

func (ing *Ingestor) extract(ctx context.Context, root, folder string, sections []string) (Case, error) {
	document := ing.truncate(strings.Join(sections, "\n\n"))
	usrPrompt := strings.Replace(extractionPromptTemplate, "{document}", document, 1)
	params := llm.Params{Temperature: &extractionTemperature, JSONObject: true}
	content, err := ing.client.ChatParams(ctx, ing.model, extractionSystemPrompt, usrPrompt, params)
	if err != nil {
		return Case{}, err
	}
	var payload extractionPayload
	if err := ing.client.ParseObject(ctx, content, &payload); err != nil {
		return Case{}, fmt.Errorf("parse extraction: %w", err)
	}
	caseID := strings.TrimSpace(payload.CaseID)
	if caseID == "" {
		caseID = filepath.Base(folder)
	}
	sourcePath := folder
	if rel, relErr := filepath.Rel(root, folder); relErr == nil {
		sourcePath = rel
	}
	return Case{
		CaseID:           caseID,
		Business:         strings.TrimSpace(payload.Business),
		ViolatedArticles: ing.resolveVarNames(payload.ViolatedArticles),
		SourcePath:       sourcePath,
		Content:          strings.TrimSpace(payload.Content),
	}, nil
}

// resolveVarNames maps statute provisions onto law-tree variables, preferring
// the store's var_name and falling back to the derived form.
func (ing *Ingestor) resolveVarNames(articles []extractedArticle) []ViolatedArticle {
	out := make([]ViolatedArticle, 0, len(articles))
	for _, art := range articles {
		v := ViolatedArticle{
			Law:    strings.TrimSpace(art.Law),
			ID:     strings.TrimSpace(art.ID),
			Reason: strings.TrimSpace(art.Reason),
		}
		if v.Law == law.StatuteName && v.ID != "" {
			if ing.laws != nil {
				if rec, err := ing.laws.Lookup(v.ID); err == nil && rec.VarName != "" {
					v.VarName = rec.VarName
					out = append(out, v)
					continue
				}
			}
			v.VarName = DeriveVarName(v.ID)
		}
		out = append(out, v)
	}
	return out
}

func (ing *Ingestor) truncate(text string) string {
	if utf8.RuneCountInString(text) <= maxPromptRunes {
		return text
	}
	chunks, err := ing.splitter.SplitText(text)
	if err != nil || len(chunks) == 0 {
		runes := []rune(text)
		return string(runes[:maxPromptRunes]) + truncationNotice
	}
	return chunks[0] + truncationNotice
}
