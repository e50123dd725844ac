package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	r.Use(permissiveCORS)

	r.Post("/upload", apiHandler.UploadHandler)
	r.Get("/images/{id}", apiHandler.GetImageHandler)
	r.Get("/chats", apiHandler.GetChatsHandler)
	r.Post("/chat", apiHandler.ChatHandler)
	r.Get("/health", apiHandler.HealthHandler)
	r.Get("/llm-test", apiHandler.LLMTestHandler)

	// Uploaded files are served read-only under /uploads.
	uploadsFS := http.StripPrefix("/uploads", http.FileServer(http.Dir(apiHandler.uploadService.UploadDir())))
	r.Get("/uploads/*", uploadsFS.ServeHTTP)

	return r
}

// permissiveCORS allows any origin, matching the development posture of the
// frontend; restrict to known origins in production.
func permissiveCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
