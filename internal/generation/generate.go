// File path: internal/generation/generate.go
package generation

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
	"github.com/beefed-up-geek/code-as-auditors/internal/common/telemetry"
	"github.com/beefed-up-geek/code-as-auditors/internal/law"
	"github.com/beefed-up-geek/code-as-auditors/internal/rulecode"
)

// Output names inside a generated template directory, next to the
// rulecode law_code.json and variables.json artifacts.
const (
	LogFile         = "log.txt"
	RunMetadataFile = "code_gen_metadata.json"
)

// acceptMarker in a feedback summary ends the loop for a provision.
const acceptMarker = "No major issues found"

var (
	//go:embed prompts/fewshot_examples.txt
	fewshotExamples string
	//go:embed prompts/initial_system.txt
	initialSystemTemplate string
	//go:embed prompts/initial_user.txt
	initialUserTemplate string
	//go:embed prompts/feedback_system.txt
	feedbackSystemTemplate string
	//go:embed prompts/feedback_user.txt
	feedbackUserTemplate string
	//go:embed prompts/regeneration_system.txt
	regenerationSystemPrompt string
	//go:embed prompts/regeneration_user.txt
	regenerationUserTemplate string
)

var (
	initialSystemPrompt  = strings.Replace(initialSystemTemplate, "{fewshot_examples}", fewshotExamples, 1)
	feedbackSystemPrompt = strings.Replace(feedbackSystemTemplate, "{fewshot_examples}", fewshotExamples, 1)
)

// Client is the slice of the model mux the generator needs.
type Client interface {
	Chat(ctx context.Context, model, sysPrompt, usrPrompt string) (string, error)
	ParseObject(ctx context.Context, content string, v interface{}) error
}

// Candidate is one generated rule encoding for a provision.
type Candidate struct {
	Pseudocode     *law.Pseudocode     `json:"pseudocode"`
	AddedVariables []rulecode.Variable `json:"added_variables"`
}

// Scores are the four feedback axes, 0 through 5. An axis the evaluator left
// out stays nil and ranks below zero when picking a fallback candidate.
type Scores struct {
	Necessity   *int `json:"necessity"`
	Specificity *int `json:"specificity"`
	Logic       *int `json:"logic"`
	Code        *int `json:"code"`
}

func (s Scores) progressText() string {
	text := func(v *int) string {
		if v == nil {
			return "-"
		}
		return strconv.Itoa(*v)
	}
	return fmt.Sprintf("code: %s, logic: %s, necs: %s, spec: %s",
		text(s.Code), text(s.Logic), text(s.Necessity), text(s.Specificity))
}

// tuple orders candidates by code, then logic, necessity and specificity.
func (s Scores) tuple() [4]int {
	value := func(v *int) int {
		if v == nil {
			return -1
		}
		return *v
	}
	return [4]int{value(s.Code), value(s.Logic), value(s.Necessity), value(s.Specificity)}
}

func betterTuple(a, b [4]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// Feedback is the evaluator's verdict on a candidate.
type Feedback struct {
	Summary         string              `json:"summary"`
	Scores          Scores              `json:"scores"`
	Issues          map[string][]string `json:"issues,omitempty"`
	Recommendations []string            `json:"recommendations,omitempty"`
}

// RunMetadata records the configuration a template directory was generated
// with.
type RunMetadata struct {
	GenerationModel   string   `json:"generation_model"`
	FeedbackModel     string   `json:"feedback_model"`
	MaxFeedbackRounds int      `json:"max_feedback_rounds"`
	Articles          []string `json:"articles"`
	OutputDir         string   `json:"output_dir"`
}

// Result is one finished generation run.
type Result struct {
	Dir       string
	Records   []law.Record
	Variables []rulecode.Variable
	LogLines  []string
}

// Generator encodes statute articles into rule pseudocode through a
// generation, feedback and regeneration loop, then assembles a rule
// template directory.
type Generator struct {
	client Client
	laws   *law.Store
	cfg    Config

	// Progress receives every progress line as it is recorded. Optional.
	Progress func(line string)
}

func New(client Client, laws *law.Store, cfg Config) *Generator {
	cfg.ApplyDefaults()
	return &Generator{client: client, laws: laws, cfg: cfg}
}

// Run processes every provision under the configured articles and writes the
// template directory under the output dir, named by run timestamp.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	var datalist []law.Record
	for _, articleID := range g.cfg.Articles {
		records, err := g.laws.ArticleRecords(articleID)
		if err != nil {
			return nil, fmt.Errorf("generation: article %s: %w", articleID, err)
		}
		datalist = append(datalist, records...)
	}

	variables := append([]rulecode.Variable(nil), g.cfg.BaseVariables...)
	existing := make(map[string]bool, len(variables))
	for _, variable := range variables {
		existing[variable.Name] = true
	}

	var logLines []string
	record := func(line string) {
		logLines = append(logLines, line)
		if g.Progress != nil {
			g.Progress(line)
		}
	}

	total := len(datalist)
	processed := make([]law.Record, 0, total)
	for index, lawData := range datalist {
		record(fmt.Sprintf("[%d/%d] Processing %s", index+1, total, lawData.ID))
		candidate, err := g.generateSingle(ctx, lawData, variables, record)
		if err != nil {
			return nil, fmt.Errorf("generation: %s: %w", lawData.ID, err)
		}

		withCode := lawData.Clone()
		if candidate.Pseudocode != nil {
			pc := *candidate.Pseudocode
			withCode.Pseudocode = &pc
		}
		processed = append(processed, withCode)

		for _, added := range candidate.AddedVariables {
			name := strings.TrimSpace(added.Name)
			if name == "" || existing[name] {
				continue
			}
			existing[name] = true
			variables = append(variables, rulecode.Variable{Name: name, Question: added.Question})
		}
	}

	dir := filepath.Join(g.cfg.OutputDir, time.Now().Format("20060102_150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("generation: create output dir: %w", err)
	}
	if err := rulecode.WriteJSON(filepath.Join(dir, rulecode.RuleCodeFile), processed); err != nil {
		return nil, err
	}
	if err := rulecode.WriteJSON(filepath.Join(dir, rulecode.VariablesFile), variables); err != nil {
		return nil, err
	}
	logText := strings.Join(logLines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, LogFile), []byte(logText), 0o644); err != nil {
		return nil, fmt.Errorf("generation: write log: %w", err)
	}
	meta := RunMetadata{
		GenerationModel:   g.cfg.GenerationModel,
		FeedbackModel:     g.cfg.FeedbackModel,
		MaxFeedbackRounds: g.cfg.MaxFeedbackRounds,
		Articles:          g.cfg.Articles,
		OutputDir:         g.cfg.OutputDir,
	}
	if err := rulecode.WriteJSON(filepath.Join(dir, RunMetadataFile), meta); err != nil {
		return nil, err
	}
	common.Logger().Info("generation: run complete", "dir", dir, "records", len(processed), "variables", len(variables))
	return &Result{Dir: dir, Records: processed, Variables: variables, LogLines: logLines}, nil
}

// generateSingle runs the loop for one provision. When the round limit is
// exhausted the best scored candidate wins, earliest first on ties.
func (g *Generator) generateSingle(ctx context.Context, lawData law.Record, variables []rulecode.Variable, record func(string)) (Candidate, error) {
	spanCtx, end := telemetry.StartSpan(ctx, "generation.provision")
	defer end("id", lawData.ID)

	current, err := g.initialGeneration(spanCtx, lawData, variables)
	if err != nil {
		return Candidate{}, err
	}
	record("\t↳ initial generation")

	type scored struct {
		candidate Candidate
		tuple     [4]int
	}
	var history []scored
	for round := 0; round < g.cfg.MaxFeedbackRounds; round++ {
		verdict, err := g.feedback(spanCtx, lawData, current, variables)
		if err != nil {
			return Candidate{}, err
		}
		history = append(history, scored{current, verdict.Scores.tuple()})
		record(fmt.Sprintf("\t↳ %dth feedback (%s)", round, verdict.Scores.progressText()))
		if strings.Contains(verdict.Summary, acceptMarker) {
			record("\t↳ No Major Issues Found")
			return current, nil
		}
		current, err = g.regenerate(spanCtx, lawData, current, verdict, variables)
		if err != nil {
			return Candidate{}, err
		}
		record(fmt.Sprintf("\t↳ %dth regeneration", round))
	}
	record(fmt.Sprintf("\t↳ Max iteration (%d) finished", g.cfg.MaxFeedbackRounds))

	best := history[0]
	for _, entry := range history[1:] {
		if betterTuple(entry.tuple, best.tuple) {
			best = entry
		}
	}
	return best.candidate, nil
}

func (g *Generator) initialGeneration(ctx context.Context, lawData law.Record, variables []rulecode.Variable) (Candidate, error) {
	usrPrompt, err := g.userPrompt(initialUserTemplate, lawData, variables, nil, nil)
	if err != nil {
		return Candidate{}, err
	}
	return g.askCandidate(ctx, initialSystemPrompt, usrPrompt)
}

func (g *Generator) feedback(ctx context.Context, lawData law.Record, candidate Candidate, variables []rulecode.Variable) (Feedback, error) {
	usrPrompt, err := g.userPrompt(feedbackUserTemplate, lawData, variables, &candidate, nil)
	if err != nil {
		return Feedback{}, err
	}
	content, err := g.client.Chat(ctx, g.cfg.FeedbackModel, feedbackSystemPrompt, usrPrompt)
	if err != nil {
		return Feedback{}, err
	}
	var verdict Feedback
	if err := g.client.ParseObject(ctx, content, &verdict); err != nil {
		return Feedback{}, err
	}
	return verdict, nil
}

func (g *Generator) regenerate(ctx context.Context, lawData law.Record, candidate Candidate, verdict Feedback, variables []rulecode.Variable) (Candidate, error) {
	usrPrompt, err := g.userPrompt(regenerationUserTemplate, lawData, variables, &candidate, &verdict)
	if err != nil {
		return Candidate{}, err
	}
	return g.askCandidate(ctx, regenerationSystemPrompt, usrPrompt)
}

func (g *Generator) askCandidate(ctx context.Context, sysPrompt, usrPrompt string) (Candidate, error) {
	content, err := g.client.Chat(ctx, g.cfg.GenerationModel, sysPrompt, usrPrompt)
	if err != nil {
		return Candidate{}, err
	}
	var candidate Candidate
	if err := g.client.ParseObject(ctx, content, &candidate); err != nil {
		return Candidate{}, err
	}
	return candidate, nil
}

// userPrompt fills a user template with the provision's article text, its
// references and the running variable list, plus the candidate and feedback
// payloads where the template asks for them.
func (g *Generator) userPrompt(template string, lawData law.Record, variables []rulecode.Variable, candidate *Candidate, verdict *Feedback) (string, error) {
	fullArticle, err := g.laws.ArticleText(lawData.ID)
	if err != nil {
		return "", err
	}
	references, err := g.laws.ReferencedText(lawData.ID)
	if err != nil {
		return "", err
	}
	out := template
	out = strings.Replace(out, "{variables}", indentedJSON(variables), 1)
	out = strings.Replace(out, "{full_article}", fullArticle, 1)
	out = strings.Replace(out, "{target_article}", lawData.FormattedLine(), 1)
	out = strings.Replace(out, "{references}", references, 1)
	out = strings.Replace(out, "{id}", lawData.ID, 1)
	if candidate != nil {
		out = strings.Replace(out, "{candidate}", indentedJSON(candidate), 1)
	}
	if verdict != nil {
		out = strings.Replace(out, "{feedback}", indentedJSON(verdict), 1)
	}
	return out, nil
}

func indentedJSON(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimRight(buf.String(), "\n")
}
