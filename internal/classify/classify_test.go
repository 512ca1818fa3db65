package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNormalizeRisk(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		label string
		want  RiskCategory
	}{
		{"exact", "Safe", RiskSafe},
		{"lowercase", "phishing", RiskPhishing},
		{"uppercase", "SUSPICIOUS", RiskSuspicious},
		{"whitespace", "  safe  ", RiskSafe},
		{"synonymMalicious", "Malicious", RiskPhishing},
		{"synonymBenign", "benign", RiskSafe},
		{"unknown", "dangerous", RiskSuspicious},
		{"empty", "", RiskSuspicious},
		{"garbage", "¯\\_(ツ)_/¯", RiskSuspicious},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeRisk(tt.label); got != tt.want {
				t.Fatalf("NormalizeRisk(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}

func TestNormalizeClampsConfidence(t *testing.T) {
	t.Parallel()

	if got := Normalize("safe", 1.7, []string{"x"}); got.Confidence != 1 {
		t.Fatalf("confidence = %v, want 1", got.Confidence)
	}
	if got := Normalize("safe", -0.3, []string{"x"}); got.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", got.Confidence)
	}
	if got := Normalize("safe", 0.5, nil); len(got.Reasons) == 0 {
		t.Fatal("empty reasons should get a placeholder")
	}
}

func TestFallbackIsConservative(t *testing.T) {
	t.Parallel()

	fb := Fallback()
	if fb.Risk != RiskSuspicious {
		t.Fatalf("fallback risk = %v, want Suspicious", fb.Risk)
	}
	if fb.Confidence != 0.5 {
		t.Fatalf("fallback confidence = %v, want 0.5", fb.Confidence)
	}
	if len(fb.Reasons) == 0 {
		t.Fatal("fallback must carry an explanatory reason")
	}
}

// fakeLLM returns a chat-completions response whose message content is the
// given verdict JSON.
func fakeLLM(t *testing.T, verdictJSON string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": verdictJSON}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestClassifyLookalikeDomain(t *testing.T) {
	t.Parallel()

	srv := fakeLLM(t, `{"risk":"Phishing","confidence":0.92,"reasons":["lookalike domain"]}`)
	defer srv.Close()

	c := NewLLMClassifier(LLMOptions{Endpoint: srv.URL, Model: "test"})
	got := c.Classify(context.Background(), "https://g00gle.com/login")

	if got.Risk != RiskPhishing {
		t.Fatalf("risk = %v, want Phishing", got.Risk)
	}
	if got.Confidence != 0.92 {
		t.Fatalf("confidence = %v, want 0.92", got.Confidence)
	}
	if len(got.Reasons) != 1 || got.Reasons[0] != "lookalike domain" {
		t.Fatalf("reasons = %v", got.Reasons)
	}
}

func TestClassifyFencedContent(t *testing.T) {
	t.Parallel()

	srv := fakeLLM(t, "```json\n{\"risk\":\"Safe\",\"confidence\":0.8,\"reasons\":[\"well-known domain\"]}\n```")
	defer srv.Close()

	c := NewLLMClassifier(LLMOptions{Endpoint: srv.URL, Model: "test"})
	if got := c.Classify(context.Background(), "https://example.com"); got.Risk != RiskSafe {
		t.Fatalf("risk = %v, want Safe", got.Risk)
	}
}

func TestClassifyServiceFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "serverError",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream exploded", http.StatusInternalServerError)
			},
		},
		{
			name: "malformedBody",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json at all"))
			},
		},
		{
			name: "emptyChoices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
		},
		{
			name: "malformedVerdict",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"choices": []map[string]any{
						{"message": map[string]any{"content": "sorry, I cannot help with that"}},
					},
				})
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewLLMClassifier(LLMOptions{Endpoint: srv.URL, Model: "test"})
			got := c.Classify(context.Background(), "https://example.com")

			if got.Risk != RiskSuspicious || got.Confidence != 0.5 || len(got.Reasons) == 0 {
				t.Fatalf("got %+v, want conservative fallback", got)
			}
		})
	}
}

func TestClassifyNetworkOutage(t *testing.T) {
	t.Parallel()

	// Nothing listens here.
	c := NewLLMClassifier(LLMOptions{
		Endpoint: "http://127.0.0.1:1/v1/chat/completions",
		Model:    "test",
		Timeout:  200 * time.Millisecond,
	})
	got := c.Classify(context.Background(), "https://example.com")

	if got.Risk != RiskSuspicious || got.Confidence != 0.5 {
		t.Fatalf("got %+v, want conservative fallback", got)
	}
	if got.Reasons[0] != FallbackReason {
		t.Fatalf("reasons = %v", got.Reasons)
	}
}

func TestPromptFor(t *testing.T) {
	t.Parallel()

	if PromptFor("forensic") == PromptFor("balanced") {
		t.Fatal("variants should differ")
	}
	if PromptFor("no-such-variant") != PromptFor("balanced") {
		t.Fatal("unknown variant should fall back to balanced")
	}
}
