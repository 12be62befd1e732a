// File path: internal/checklist/resolver.go
package checklist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
	"github.com/beefed-up-geek/code-as-auditors/internal/common/telemetry"
	"github.com/beefed-up-geek/code-as-auditors/internal/rulecode"
)

// ErrClassificationFailed marks a checklist question the model could not
// answer, either because the call itself failed or because the reply did not
// carry the expected JSON shape.
var ErrClassificationFailed = errors.New("checklist classification failed")

// DefaultAnswerModel answers checklist questions during case instantiation.
const DefaultAnswerModel = "gpt-5"

const answerSystemPrompt = `You are a business expert.
You will be given a business case text and a question.
Understand the text and answer the question.
If the given text does not include the answer to the question, answer true or false in the direction of legality.
Answer only True or False according to the JSON format below.
{
    "answer": True or False
}`

// Client is the slice of the model mux the resolver needs.
type Client interface {
	Chat(ctx context.Context, model, sysPrompt, usrPrompt string) (string, error)
	ParseObject(ctx context.Context, content string, v interface{}) error
}

// Resolver answers checklist questions against a case description. A question
// that cannot be answered resolves to false rather than aborting the run.
type Resolver struct {
	client Client
	model  string
}

func NewResolver(client Client, model string) *Resolver {
	if model == "" {
		model = DefaultAnswerModel
	}
	return &Resolver{client: client, model: model}
}

// Resolve answers a single checklist question. An empty question resolves to
// false without consulting the model.
func (r *Resolver) Resolve(ctx context.Context, caseContext, question string) bool {
	key := strings.TrimSpace(question)
	if key == "" {
		return false
	}
	return r.ask(ctx, caseContext, key)
}

// ResolveAll answers every variable's question for one case and returns
// checklist values keyed by variable name, ready for seeding a case program.
// Answers are memoized by trimmed question for the duration of the call only:
// wording shared by several variables is asked once, but the answers of one
// case never bleed into the next.
func (r *Resolver) ResolveAll(ctx context.Context, caseContext string, variables []rulecode.Variable) map[string]bool {
	cache := newAnswerCache(len(variables))
	values := make(map[string]bool, len(variables))
	for _, variable := range variables {
		key := strings.TrimSpace(variable.Question)
		if key == "" {
			values[variable.Name] = false
			continue
		}
		answer, ok := cache.Get(key)
		telemetry.RecordChecklistLookup(ok)
		if !ok {
			answer = r.ask(ctx, caseContext, key)
			cache.Set(key, answer)
		}
		values[variable.Name] = answer
		common.Logger().Debug("checklist: resolved variable", "variable", variable.Name, "answer", answer)
	}
	return values
}

func (r *Resolver) ask(ctx context.Context, caseContext, question string) bool {
	answer, err := r.answer(ctx, caseContext, question)
	if err != nil {
		common.Logger().Warn("checklist: answer defaulted to false", "question", question, "error", err)
		return false
	}
	return answer
}

func (r *Resolver) answer(ctx context.Context, caseContext, question string) (bool, error) {
	usrPrompt := fmt.Sprintf("[business case text]\n%s\n\n[question]\n%s\n\n[Answer in JSON format]", caseContext, question)
	content, err := r.client.Chat(ctx, r.model, answerSystemPrompt, usrPrompt)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrClassificationFailed, err)
	}
	var payload struct {
		Answer interface{} `json:"answer"`
	}
	if err := r.client.ParseObject(ctx, content, &payload); err != nil {
		return false, fmt.Errorf("%w: %s", ErrClassificationFailed, err)
	}
	return coerceAnswer(payload.Answer), nil
}

// coerceAnswer accepts the shapes models actually produce for the answer
// field: a JSON boolean, the strings "True"/"False", or a number.
func coerceAnswer(v interface{}) bool {
	switch answer := v.(type) {
	case bool:
		return answer
	case string:
		return strings.EqualFold(strings.TrimSpace(answer), "true")
	case float64:
		return answer != 0
	default:
		return false
	}
}
