package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/labelsense/labelsense/internal/store"
)

const (
	// gatewayApology is returned when the external assistant cannot be
	// reached; the chat turn still succeeds.
	gatewayApology = "Sorry, I could not reach the external assistant; I can still help with basic food-related answers."

	// llmProbeQuestion is the fixed prompt used by the connectivity probe.
	llmProbeQuestion = "Is this product high in added sugars? Answer briefly using food/health terms only."
)

// ChatService records chat turns and produces replies, either through the
// external LLM gateway or a deterministic fallback.
type ChatService struct {
	dbStore        *store.SQLiteStore
	llmService     *LLMService
	useExternalLLM bool
	logger         *zap.Logger
}

func NewChatService(db *store.SQLiteStore, llm *LLMService, useExternalLLM bool, logger *zap.Logger) *ChatService {
	return &ChatService{
		dbStore:        db,
		llmService:     llm,
		useExternalLLM: useExternalLLM,
		logger:         logger,
	}
}

// PostMessage persists the user's message, determines a reply, persists it
// with role "bot", and returns it. The two inserts are not wrapped in a
// transaction: if the reply insert fails the user row stays, matching the
// documented inconsistency window.
func (s *ChatService) PostMessage(ctx context.Context, message string, imageID *int64) (string, error) {
	if _, err := s.dbStore.InsertChat(imageID, "user", message); err != nil {
		return "", fmt.Errorf("failed to store user message: %w", err)
	}

	var reply string
	if s.useExternalLLM {
		reply = s.externalReply(ctx, message, imageID)
	}
	if reply == "" {
		var err error
		reply, err = s.fallbackReply(message, imageID)
		if err != nil {
			return "", err
		}
	}

	if _, err := s.dbStore.InsertChat(imageID, "bot", reply); err != nil {
		return "", fmt.Errorf("failed to store bot reply: %w", err)
	}
	return reply, nil
}

// externalReply asks the gateway for a completion and applies the domain
// filter. Any gateway failure degrades to a fixed apology; there is no retry.
func (s *ChatService) externalReply(ctx context.Context, message string, imageID *int64) string {
	var img *store.Image
	if imageID != nil {
		var err error
		img, err = s.dbStore.GetImage(*imageID)
		if err != nil {
			s.logger.Warn("image lookup for LLM context failed", zap.Int64("imageId", *imageID), zap.Error(err))
		}
	}

	completion, err := s.llmService.GetChatCompletion(ctx, message, img)
	if err != nil {
		s.logger.Error("LLM error", zap.Error(err))
		return gatewayApology
	}
	return FilterReply(completion)
}

// fallbackReply echoes the message, acknowledging the referenced image when
// one was supplied.
func (s *ChatService) fallbackReply(message string, imageID *int64) (string, error) {
	reply := fmt.Sprintf("Thanks — I received your message: \"%s\".", message)
	if imageID == nil {
		return reply, nil
	}

	img, err := s.dbStore.GetImage(*imageID)
	if err != nil {
		return "", fmt.Errorf("failed to look up image for reply: %w", err)
	}
	if img != nil {
		return fmt.Sprintf("I reviewed the uploaded image (%s). %s", img.OriginalName, reply), nil
	}
	return fmt.Sprintf("I couldn't find the uploaded image, but %s", reply), nil
}

// GetChats returns every chat row tied to an image, oldest first.
func (s *ChatService) GetChats(imageID int64) ([]store.Chat, error) {
	return s.dbStore.GetChatsByImage(imageID)
}

// GetImage exposes the image lookup for the HTTP surface; nil means no such
// record.
func (s *ChatService) GetImage(id int64) (*store.Image, error) {
	return s.dbStore.GetImage(id)
}

// ProbeLLM sends the fixed diagnostic question through the gateway without
// touching the store. Used by the /llm-test endpoint.
func (s *ChatService) ProbeLLM(ctx context.Context) (string, error) {
	return s.llmService.GetChatCompletion(ctx, llmProbeQuestion, nil)
}
