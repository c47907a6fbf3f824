package openai

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptConfig holds the prompts and model parameters of the document check
type PromptConfig struct {
	DocumentCheck struct {
		Temperature  float32 `yaml:"temperature"`
		MaxTokens    int     `yaml:"max_tokens"`
		System       string  `yaml:"system"`
		UserTemplate string  `yaml:"user_template"`
	} `yaml:"document_check"`
}

const defaultSystemPrompt = `You review supporting documents filed with insolvency claims. ` +
	`You judge only whether a document is legible and complete enough for a verifier to read. ` +
	`Always respond with valid JSON.`

const defaultUserTemplate = `The attached page(s) belong to the document "{{.Name}}" of kind {{.Kind}}.
Check that the pages are legible, not truncated, and that amounts and dates can be read.
Respond with JSON: {"acceptable": true|false, "issues": ["short description of each problem"]}.
Return an empty issues list when the document is acceptable.`

// DefaultPrompts returns the built-in prompt configuration
func DefaultPrompts() *PromptConfig {
	p := &PromptConfig{}
	p.DocumentCheck.Temperature = 0.1
	p.DocumentCheck.MaxTokens = 512
	p.DocumentCheck.System = defaultSystemPrompt
	p.DocumentCheck.UserTemplate = defaultUserTemplate
	return p
}

// LoadPrompts loads prompt configuration from a YAML file. Missing fields keep
// their defaults.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	prompts := DefaultPrompts()
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	return prompts, nil
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
