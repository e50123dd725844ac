package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/labelsense/labelsense/internal/core"
	"github.com/labelsense/labelsense/internal/store"
)

// APIHandler translates HTTP requests into service calls and service
// results into status codes. No business logic lives here.
type APIHandler struct {
	chatService   *core.ChatService
	uploadService *core.UploadService
	llmEnabled    bool
	llmConfigured bool
	startedAt     time.Time
	logger        *zap.Logger
}

func NewAPIHandler(cs *core.ChatService, us *core.UploadService, llmEnabled, llmConfigured bool, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		chatService:   cs,
		uploadService: us,
		llmEnabled:    llmEnabled,
		llmConfigured: llmConfigured,
		startedAt:     time.Now(),
		logger:        logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("image")
	if err != nil {
		h.logger.Warn("upload attempted with no file")
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	id, err := h.uploadService.SaveUpload(file, header)
	if err != nil {
		h.logger.Error("failed to save upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (h *APIHandler) GetImageHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	img, err := h.chatService.GetImage(id)
	if err != nil {
		h.logger.Error("failed to get image", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if img == nil {
		writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (h *APIHandler) GetChatsHandler(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Query().Get("imageId")
	if param == "" {
		writeError(w, http.StatusBadRequest, "imageId query param required")
		return
	}
	imageID, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "imageId must be an integer")
		return
	}

	chats, err := h.chatService.GetChats(imageID)
	if err != nil {
		h.logger.Error("failed to fetch chats", zap.Int64("imageId", imageID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

type ChatRequest struct {
	Message string `json:"message"`
	ImageID *int64 `json:"imageId"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}

	reply, err := h.chatService.PostMessage(r.Context(), req.Message, req.ImageID)
	if err != nil {
		h.logger.Error("chat handling error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "reply": reply})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"llmEnabled":    h.llmEnabled,
		"llmConfigured": h.llmConfigured,
		"pid":           os.Getpid(),
		"uptimeSeconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

func (h *APIHandler) LLMTestHandler(w http.ResponseWriter, r *http.Request) {
	if !h.llmEnabled {
		writeError(w, http.StatusBadRequest, "LLM is disabled. Set USE_EXTERNAL_LLM=true to enable.")
		return
	}
	if !h.llmConfigured {
		writeError(w, http.StatusBadRequest, "OPENAI_API_KEY is not configured.")
		return
	}

	reply, err := h.chatService.ProbeLLM(r.Context())
	if err != nil {
		h.logger.Error("LLM test error", zap.Error(err))
		if errors.Is(err, core.ErrAPIKeyMissing) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "reply": reply})
}
