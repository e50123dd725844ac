package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/labelsense/labelsense/internal/store"
)

func TestFilterReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"keyword present", "This product is high in sugar.", "This product is high in sugar."},
		{"keyword uppercase", "Check the INGREDIENT list first.", "Check the INGREDIENT list first."},
		{"keyword embedded", "Carbohydrates matter here.", "Carbohydrates matter here."},
		{"off topic", "The capital of France is Paris.", offTopicReply},
		{"empty", "", offTopicReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilterReply(tt.reply); got != tt.want {
				t.Errorf("FilterReply(%q) = %q, want %q", tt.reply, got, tt.want)
			}
		})
	}
}

func completionResponse(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":` + encodeJSONString(content) + `}}]}`
}

func encodeJSONString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestGetChatCompletion(t *testing.T) {
	var captured chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("got path %s, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("got Authorization %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionResponse("  Sugar content is moderate.  ")))
	}))
	defer srv.Close()

	svc := NewLLMService("test-key", srv.URL, zap.NewNop())
	img := &store.Image{OriginalName: "label.jpg", MimeType: "image/jpeg", Size: 1234}

	reply, err := svc.GetChatCompletion(context.Background(), "is it sweet?", img)
	if err != nil {
		t.Fatalf("GetChatCompletion failed: %v", err)
	}
	if reply != "Sugar content is moderate." {
		t.Errorf("got reply %q, want trimmed completion", reply)
	}

	if captured.Model != defaultChatModel {
		t.Errorf("got model %q, want %q", captured.Model, defaultChatModel)
	}
	if captured.Temperature != chatTemperature {
		t.Errorf("got temperature %v, want %v", captured.Temperature, chatTemperature)
	}
	if captured.MaxTokens != chatMaxTokens {
		t.Errorf("got max_tokens %d, want %d", captured.MaxTokens, chatMaxTokens)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("got messages %+v, want system then user", captured.Messages)
	}
	userPrompt := captured.Messages[1].Content
	if !strings.Contains(userPrompt, "Uploaded product: label.jpg (mime: image/jpeg, size: 1234 bytes).") {
		t.Errorf("user prompt missing image context: %q", userPrompt)
	}
	if !strings.Contains(userPrompt, "User question: is it sweet?") {
		t.Errorf("user prompt missing question: %q", userPrompt)
	}
}

func TestGetChatCompletionNoImageContext(t *testing.T) {
	var captured chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(completionResponse("ok, food wise")))
	}))
	defer srv.Close()

	svc := NewLLMService("test-key", srv.URL, zap.NewNop())
	if _, err := svc.GetChatCompletion(context.Background(), "hello", nil); err != nil {
		t.Fatalf("GetChatCompletion failed: %v", err)
	}
	if !strings.Contains(captured.Messages[1].Content, "No uploaded product context.") {
		t.Errorf("user prompt missing placeholder context: %q", captured.Messages[1].Content)
	}
}

func TestGetChatCompletionMissingKey(t *testing.T) {
	svc := NewLLMService("", "http://localhost:0", zap.NewNop())
	_, err := svc.GetChatCompletion(context.Background(), "hi", nil)
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("got error %v, want ErrAPIKeyMissing", err)
	}
}

func TestGetChatCompletionNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	svc := NewLLMService("test-key", srv.URL, zap.NewNop())
	_, err := svc.GetChatCompletion(context.Background(), "hi", nil)
	if err == nil {
		t.Fatal("expected error for non-success status")
	}
	msg := err.Error()
	if !strings.Contains(msg, "429") {
		t.Errorf("error should include status code: %q", msg)
	}
	if !strings.Contains(msg, "rate limited") {
		t.Errorf("error should include response body: %q", msg)
	}
}

func TestGetChatCompletionNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	svc := NewLLMService("test-key", srv.URL, zap.NewNop())
	if _, err := svc.GetChatCompletion(context.Background(), "hi", nil); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
