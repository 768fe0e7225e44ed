package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Suggester proposes canonical fields for labels the alias table could not
// resolve. Implementations may return fields outside vocabulary; the mapper
// discards them.
type Suggester interface {
	Suggest(ctx context.Context, labels []string, vocabulary []string) (map[string]string, error)
}

// ErrEmptySuggestion is returned when the provider answered without content.
var ErrEmptySuggestion = errors.New("empty suggestion response")

const suggestSystemPrompt = `You map spreadsheet column labels to canonical field names.
Answer with a single JSON object whose keys are the given labels and whose values are field names taken ONLY from the allowed list.
Use null for labels that do not clearly correspond to any allowed field. Do not guess.`

// OpenAISuggester asks an OpenAI-compatible chat model for column mappings.
type OpenAISuggester struct {
	client openai.Client
	model  string
}

// NewOpenAISuggester builds a suggester. baseURL may be empty for the
// public endpoint.
func NewOpenAISuggester(apiKey, baseURL, model string) *OpenAISuggester {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAISuggester{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Suggest sends one request for all labels.
func (s *OpenAISuggester) Suggest(ctx context.Context, labels []string, vocabulary []string) (map[string]string, error) {
	if len(labels) == 0 {
		return map[string]string{}, nil
	}

	resp, err := s.client.Chat.Completions.New(ctx, s.params(labels, vocabulary))
	if err != nil {
		return nil, fmt.Errorf("suggestion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptySuggestion
	}

	return ParseSuggestion(resp.Choices[0].Message.Content, labels, vocabulary)
}

// params builds the chat request. The model is held to a JSON object answer.
func (s *OpenAISuggester) params(labels []string, vocabulary []string) openai.ChatCompletionNewParams {
	prompt := fmt.Sprintf("Allowed fields: %s\nLabels: %s",
		mustJSON(vocabulary), mustJSON(labels))

	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(suggestSystemPrompt),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0),
	}
}

// ParseSuggestion extracts the label->field object from a model answer and
// keeps only entries whose label was asked for and whose field is in
// vocabulary. Code fences and text around the object are ignored.
func ParseSuggestion(content string, labels []string, vocabulary []string) (map[string]string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, ErrEmptySuggestion
	}

	var raw map[string]*string
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode suggestion: %w", err)
	}

	asked := make(map[string]bool, len(labels))
	for _, l := range labels {
		asked[l] = true
	}
	allowed := make(map[string]bool, len(vocabulary))
	for _, f := range vocabulary {
		allowed[f] = true
	}

	out := make(map[string]string)
	for label, field := range raw {
		if field == nil || !asked[label] {
			continue
		}
		f := strings.TrimSpace(*field)
		if allowed[f] {
			out[label] = f
		}
	}
	return out, nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
