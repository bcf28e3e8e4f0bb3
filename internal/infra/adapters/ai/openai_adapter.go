package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"essaygenius/internal/domain/ports/adapter"
	"essaygenius/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.AIServiceAdapter using the Chat
// Completions and Embeddings APIs.
type OpenAIAdapter struct {
	apiKey     string
	base       string // e.g., https://api.openai.com/v1
	embedModel string
	client     *http.Client
}

func NewOpenAIAdapter(apiKey, baseURL, embedModel string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	return &OpenAIAdapter{
		apiKey:     apiKey,
		base:       strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		client:     &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (o *OpenAIAdapter) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, err
		}
	}
	// Per-message framing overhead mirrors the chat format: 4 tokens per
	// message plus 2 for the reply priming.
	total := 2
	for _, m := range messages {
		total += 4
		total += len(enc.Encode(m.Content, nil, nil))
		total += len(enc.Encode(m.Role, nil, nil))
	}
	return total, nil
}

func (o *OpenAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	text, _, err := o.complete(ctx, model, messages, false)
	return text, err
}

func (o *OpenAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	return o.complete(ctx, model, messages, false)
}

func (o *OpenAIAdapter) ChatJSON(ctx context.Context, model string, messages []adapter.Message, out any) error {
	text, _, err := o.complete(ctx, model, messages, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFences(text)), out); err != nil {
		return fmt.Errorf("decode model json: %w", err)
	}
	return nil
}

type responseFormat struct {
	Type string `json:"type"`
}

func (o *OpenAIAdapter) complete(ctx context.Context, model string, messages []adapter.Message, jsonMode bool) (string, adapter.Usage, error) {
	reqBody := struct {
		Model          string            `json:"model"`
		Messages       []adapter.Message `json:"messages"`
		ResponseFormat *responseFormat   `json:"response_format,omitempty"`
	}{Model: model, Messages: messages}
	if jsonMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	if n, err := o.CountTokens(ctx, model, messages); err == nil {
		metrics.ObservePromptTokens(model, n)
	}

	started := time.Now()
	var payload struct {
		Choices []struct {
			Message adapter.Message `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	err := o.post(ctx, "/chat/completions", reqBody, &payload)
	usage := adapter.Usage{
		PromptTokens:     payload.Usage.PromptTokens,
		CompletionTokens: payload.Usage.CompletionTokens,
		TotalTokens:      payload.Usage.TotalTokens,
	}
	metrics.ObserveAICall(model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens,
		time.Since(started).Milliseconds(), err == nil)
	if err != nil {
		return "", usage, err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, usage, nil
		}
	}
	return "", usage, errors.New("no choice content")
}

func (o *OpenAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := struct {
		Model string `json:"model"`
		Input string `json:"input"`
	}{Model: o.embedModel, Input: text}

	var payload struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	started := time.Now()
	err := o.post(ctx, "/embeddings", reqBody, &payload)
	metrics.ObserveAICall(o.embedModel, 0, 0, 0, time.Since(started).Milliseconds(), err == nil)
	if err != nil {
		return nil, err
	}
	if len(payload.Data) == 0 {
		return nil, errors.New("no embedding data")
	}
	return payload.Data[0].Embedding, nil
}

func (o *OpenAIAdapter) post(ctx context.Context, path string, in, out any) error {
	b, _ := json.Marshal(in)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error.Message != "" {
			return fmt.Errorf("openai http %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("openai http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// stripFences removes a markdown code fence the model sometimes wraps its
// JSON in despite json_object mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
