package openai

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/claim"
)

type mockChat struct {
	content string
	err     error
	got     openai.ChatCompletionRequest
}

func (m *mockChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.got = req
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: m.content}}},
	}, nil
}

type mapStore map[string]*port.Document

func (s mapStore) Fetch(ctx context.Context, id string) (*port.Document, error) {
	doc, ok := s[id]
	if !ok {
		return nil, claim.ErrNotFound
	}
	return doc, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func newValidator(chat *mockChat, store mapStore) *DocumentValidator {
	return NewDocumentValidator(chat, store, Config{Model: "gpt-4o"}, nil, zap.NewNop())
}

func TestDocumentValidator_Check(t *testing.T) {
	store := mapStore{
		"doc-1": {ID: "doc-1", Name: "ledger.png", ContentType: "image/png", Content: pngBytes(t)},
	}
	ref := claim.DocumentRef{ID: "doc-1", Kind: claim.DocumentLedger, Name: "ledger.png"}

	tests := []struct {
		name       string
		content    string
		acceptable bool
		issues     []string
	}{
		{
			name:       "acceptable",
			content:    `{"acceptable": true, "issues": []}`,
			acceptable: true,
		},
		{
			name:    "issues reported",
			content: `{"acceptable": false, "issues": ["page 2 is cut off", " "]}`,
			issues:  []string{"page 2 is cut off"},
		},
		{
			name:    "wrapped in prose",
			content: "Here is the result:\n```json\n{\"acceptable\": false, \"issues\": [\"blurred totals\"]}\n```",
			issues:  []string{"blurred totals"},
		},
		{
			name:    "rejected without reasons",
			content: `{"acceptable": false}`,
			issues:  []string{"document quality is insufficient"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &mockChat{content: tt.content}
			report, err := newValidator(chat, store).Check(context.Background(), ref)
			require.NoError(t, err)
			assert.Equal(t, tt.acceptable, report.Acceptable)
			assert.Equal(t, tt.issues, report.Issues)

			require.Len(t, chat.got.Messages, 2)
			parts := chat.got.Messages[1].MultiContent
			require.Len(t, parts, 2)
			assert.Contains(t, parts[0].Text, `"ledger.png"`)
			assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,"))
			assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, chat.got.ResponseFormat.Type)
		})
	}
}

func TestDocumentValidator_Check_Errors(t *testing.T) {
	store := mapStore{
		"doc-1": {ID: "doc-1", ContentType: "image/png", Content: pngBytes(t)},
		"doc-2": {ID: "doc-2", ContentType: "application/zip", Content: []byte("PK")},
	}

	t.Run("unknown document", func(t *testing.T) {
		_, err := newValidator(&mockChat{}, store).Check(context.Background(), claim.DocumentRef{ID: "missing"})
		assert.ErrorIs(t, err, claim.ErrNotFound)
	})

	t.Run("unrenderable document is a finding", func(t *testing.T) {
		chat := &mockChat{}
		report, err := newValidator(chat, store).Check(context.Background(), claim.DocumentRef{ID: "doc-2"})
		require.NoError(t, err)
		assert.False(t, report.Acceptable)
		assert.Equal(t, []string{"document could not be opened"}, report.Issues)
		assert.Empty(t, chat.got.Model, "model must not be called")
	})

	t.Run("api failure", func(t *testing.T) {
		_, err := newValidator(&mockChat{err: errors.New("rate limited")}, store).Check(context.Background(), claim.DocumentRef{ID: "doc-1"})
		assert.ErrorContains(t, err, "rate limited")
	})

	t.Run("unparsable answer", func(t *testing.T) {
		_, err := newValidator(&mockChat{content: "no idea"}, store).Check(context.Background(), claim.DocumentRef{ID: "doc-1"})
		assert.ErrorContains(t, err, "failed to parse response")
	})
}

func TestLoadPrompts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("document_check:\n  max_tokens: 256\n"), 0o644))

	prompts, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, 256, prompts.DocumentCheck.MaxTokens)
	assert.Equal(t, defaultSystemPrompt, prompts.DocumentCheck.System)
	assert.InDelta(t, 0.1, prompts.DocumentCheck.Temperature, 1e-6)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":"}"}`, extractJSON(`x {"a":"}"} y`))
	assert.Equal(t, "", extractJSON("none"))
	assert.Equal(t, "", extractJSON(`{"open": true`))
}
