package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// LLMClassifier calls an OpenAI-compatible chat-completions endpoint and
// asks for a structured verdict. Every failure path collapses to Fallback().
type LLMClassifier struct {
	endpoint string
	model    string
	apiKey   string
	prompt   string
	client   *http.Client
}

type LLMOptions struct {
	Endpoint string
	Model    string
	APIKey   string
	// PromptVariant selects the system instruction wording; see PromptFor.
	PromptVariant string
	Timeout       time.Duration
}

func NewLLMClassifier(opts LLMOptions) *LLMClassifier {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LLMClassifier{
		endpoint: opts.Endpoint,
		model:    opts.Model,
		apiKey:   opts.APIKey,
		prompt:   PromptFor(opts.PromptVariant),
		client:   &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// verdict is the structured reply shape requested from the service.
type verdict struct {
	Risk       string   `json:"risk"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

func (c *LLMClassifier) Classify(ctx context.Context, raw string) Classification {
	v, err := c.request(ctx, raw)
	if err != nil {
		slog.Warn("classification unavailable, using fallback", "error", err)
		return Fallback()
	}
	return Normalize(v.Risk, v.Confidence, v.Reasons)
}

func (c *LLMClassifier) request(ctx context.Context, raw string) (*verdict, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.prompt},
			{Role: "user", Content: "URL: " + raw},
		},
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("empty response from service")
	}

	v := &verdict{}
	content := stripCodeFence(chat.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return nil, fmt.Errorf("malformed verdict: %w", err)
	}
	return v, nil
}

// stripCodeFence removes a markdown fence some models wrap around JSON
// output despite the response_format request.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
