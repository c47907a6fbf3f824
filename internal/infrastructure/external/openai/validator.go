// Package openai checks supporting documents with a vision model. Its
// verdicts are advisory; the engine stores them as warnings.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/claim"
)

// ChatCompleter is the part of the OpenAI client the validator calls
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds validator settings
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	MaxPages int
}

// NewClient creates an OpenAI client, honouring a custom base URL
func NewClient(cfg Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// DocumentValidator renders a document's first pages and asks a vision model
// whether they are legible
type DocumentValidator struct {
	client   ChatCompleter
	store    port.DocumentStore
	prompts  *PromptConfig
	model    string
	maxPages int
	logger   *zap.Logger
}

var _ port.DocumentValidator = (*DocumentValidator)(nil)

// NewDocumentValidator creates a validator. A nil prompts uses the defaults.
func NewDocumentValidator(client ChatCompleter, store port.DocumentStore, cfg Config, prompts *PromptConfig, logger *zap.Logger) *DocumentValidator {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 2
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &DocumentValidator{
		client:   client,
		store:    store,
		prompts:  prompts,
		model:    model,
		maxPages: maxPages,
		logger:   logger,
	}
}

type checkResponse struct {
	Acceptable bool     `json:"acceptable"`
	Issues     []string `json:"issues"`
}

// Check fetches the document and returns the model's quality verdict
func (v *DocumentValidator) Check(ctx context.Context, doc claim.DocumentRef) (*port.QualityReport, error) {
	stored, err := v.store.Fetch(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch document %s: %w", doc.ID, err)
	}

	pages, err := renderPages(stored, v.maxPages)
	if err != nil {
		// an unreadable file is a quality finding, not a failure
		v.logger.Warn("Document could not be rendered",
			zap.String("document_id", doc.ID),
			zap.Error(err))
		return &port.QualityReport{Acceptable: false, Issues: []string{"document could not be opened"}}, nil
	}

	prompt, err := renderTemplate(v.prompts.DocumentCheck.UserTemplate, struct {
		Name string
		Kind claim.DocumentKind
	}{Name: doc.Name, Kind: doc.Kind})
	if err != nil {
		return nil, err
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt}}
	for _, page := range pages {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(page),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       v.model,
		MaxTokens:   v.prompts.DocumentCheck.MaxTokens,
		Temperature: v.prompts.DocumentCheck.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: v.prompts.DocumentCheck.System},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		v.logger.Error("Vision API call failed", zap.String("document_id", doc.ID), zap.Error(err))
		return nil, fmt.Errorf("vision API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from vision API")
	}

	result, err := parseCheck(resp.Choices[0].Message.Content)
	if err != nil {
		v.logger.Error("Failed to parse vision API response",
			zap.String("document_id", doc.ID),
			zap.Error(err))
		return nil, err
	}

	v.logger.Info("Document checked",
		zap.String("document_id", doc.ID),
		zap.Int("pages", len(pages)),
		zap.Bool("acceptable", result.Acceptable),
		zap.Int("issues", len(result.Issues)))

	return result, nil
}

func parseCheck(content string) (*port.QualityReport, error) {
	var parsed checkResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		// models sometimes wrap the object in prose or a code fence
		raw := extractJSON(content)
		if raw == "" {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	report := &port.QualityReport{Acceptable: parsed.Acceptable}
	for _, issue := range parsed.Issues {
		if issue = strings.TrimSpace(issue); issue != "" {
			report.Issues = append(report.Issues, issue)
		}
	}
	if !report.Acceptable && len(report.Issues) == 0 {
		report.Issues = []string{"document quality is insufficient"}
	}
	return report, nil
}

// extractJSON returns the first balanced JSON object in content
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}
	end := findJSONEnd(content, start)
	if end <= start {
		return ""
	}
	return content[start:end]
}

// findJSONEnd finds the end of the object starting at start
func findJSONEnd(content string, start int) int {
	depth := 0
	inString := false
	escapeNext := false

	for i := start; i < len(content); i++ {
		char := content[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if char == '\\' {
			escapeNext = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch char {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}

	return -1
}
