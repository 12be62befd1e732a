// File path: internal/generation/config.go
package generation

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/beefed-up-geek/code-as-auditors/internal/rulecode"
)

// Generation defaults matching the published research runs.
const (
	DefaultGenerationModel   = "gpt-5-mini"
	DefaultFeedbackModel     = "gpt-5"
	DefaultMaxFeedbackRounds = 15
	DefaultOutputDir         = "outputs/legal_code_output"
)

// DefaultArticles are the statute articles encoded by default.
var DefaultArticles = []string{
	"제21조", "제24조", "제24조의2", "제26조", "제29조", "제34조", "제39조의4",
}

// DefaultBaseVariables seed every generation run. Added variables from the
// model join this list as articles are processed.
var DefaultBaseVariables = []rulecode.Variable{
	{
		Name:     "BUSINESS_USES_PERSONAL_INFORMATION",
		Question: "귀사는 고객 또는 이용자의 개인정보를 처리하거나 보유합니까?",
	},
	{
		Name:     "BUSINESS_OUTSOURCES_PROCESSING",
		Question: "귀사는 개인정보 처리 업무를 제3자에게 위탁합니까?",
	},
}

// Config drives one generation run. Zero fields take the defaults above.
type Config struct {
	GenerationModel   string              `yaml:"generation_model"`
	FeedbackModel     string              `yaml:"feedback_model"`
	MaxFeedbackRounds int                 `yaml:"max_feedback_rounds"`
	Articles          []string            `yaml:"articles"`
	OutputDir         string              `yaml:"output_dir"`
	BaseVariables     []rulecode.Variable `yaml:"-"`

	// RawBaseVariables mirrors BaseVariables for YAML round-tripping with
	// the variable/question key names the JSON artifacts use.
	RawBaseVariables []configVariable `yaml:"base_variables"`
}

type configVariable struct {
	Variable string `yaml:"variable"`
	Question string `yaml:"question"`
}

// LoadConfigFile reads a YAML run configuration and applies defaults.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("generation: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("generation: parse config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills unset fields with the package defaults.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.GenerationModel) == "" {
		c.GenerationModel = DefaultGenerationModel
	}
	if strings.TrimSpace(c.FeedbackModel) == "" {
		c.FeedbackModel = DefaultFeedbackModel
	}
	if c.MaxFeedbackRounds <= 0 {
		c.MaxFeedbackRounds = DefaultMaxFeedbackRounds
	}
	if len(c.Articles) == 0 {
		c.Articles = append([]string(nil), DefaultArticles...)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		c.OutputDir = DefaultOutputDir
	}
	if len(c.BaseVariables) == 0 {
		for _, raw := range c.RawBaseVariables {
			if strings.TrimSpace(raw.Variable) == "" {
				continue
			}
			c.BaseVariables = append(c.BaseVariables, rulecode.Variable{
				Name:     raw.Variable,
				Question: raw.Question,
			})
		}
	}
	if len(c.BaseVariables) == 0 {
		c.BaseVariables = append([]rulecode.Variable(nil), DefaultBaseVariables...)
	}
}
