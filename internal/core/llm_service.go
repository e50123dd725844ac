package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/labelsense/labelsense/internal/store"
)

const (
	defaultChatModel = "gpt-3.5-turbo"
	chatTemperature  = 0.2
	chatMaxTokens    = 400

	chatSystemInstruction = "You are an assistant that only answers user questions about food, ingredients, " +
		"nutrition, and general health-related food guidance (e.g., sugar, allergens, diet suitability). " +
		"Do NOT provide medical diagnoses, professional medical advice, or answer questions outside this domain. " +
		"If the user asks about unrelated topics, reply briefly that you can only help with food and health related questions."

	// offTopicReply replaces any completion that fails the domain filter.
	offTopicReply = "I can only answer food and health related questions — please ask a question about ingredients, nutrition, or dietary concerns."
)

// ErrAPIKeyMissing is returned when the gateway is invoked without a
// configured credential.
var ErrAPIKeyMissing = errors.New("OPENAI_API_KEY is not set")

// allowedKeywords is a coarse topical guard for completions: replies must
// mention at least one food/nutrition/health term or they are replaced by
// offTopicReply. Substring matching, so false positives are accepted.
var allowedKeywords = []string{
	"food", "nutrition", "ingredient", "sugar", "fat", "calories", "allergen",
	"vitamin", "protein", "carb", "sodium", "cholesterol", "diet", "health", "allergy",
}

// LLMService is a thin outbound client for an OpenAI-compatible
// chat-completions endpoint.
type LLMService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewLLMService(apiKey, baseURL string, logger *zap.Logger) *LLMService {
	return &LLMService{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []chatCompletionMessage `json:"messages"`
	Temperature float64                 `json:"temperature"`
	MaxTokens   int                     `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
	} `json:"choices"`
}

// GetChatCompletion sends one request to the chat-completions endpoint,
// scoping the assistant to food/health topics and including the uploaded
// image's metadata as context when present. Single attempt, no retry.
func (s *LLMService) GetChatCompletion(ctx context.Context, message string, image *store.Image) (string, error) {
	if s.apiKey == "" {
		return "", ErrAPIKeyMissing
	}

	productContext := "No uploaded product context."
	if image != nil {
		productContext = fmt.Sprintf("Uploaded product: %s (mime: %s, size: %d bytes).", image.OriginalName, image.MimeType, image.Size)
	}
	userPrompt := fmt.Sprintf("%s\nUser question: %s", productContext, message)

	payload := chatCompletionRequest{
		Model: defaultChatModel,
		Messages: []chatCompletionMessage{
			{Role: "system", Content: chatSystemInstruction},
			{Role: "user", Content: userPrompt},
		},
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		txt, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("LLM request failed: %d %s - %s", resp.StatusCode, http.StatusText(resp.StatusCode), string(txt))
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	reply := strings.TrimSpace(completion.Choices[0].Message.Content)
	s.logger.Debug("completion received", zap.Int("length", len(reply)))
	return reply, nil
}

// FilterReply applies the topical guard to a raw completion.
func FilterReply(reply string) string {
	lc := strings.ToLower(reply)
	for _, keyword := range allowedKeywords {
		if strings.Contains(lc, keyword) {
			return reply
		}
	}
	return offTopicReply
}
