package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/folio/internal/assistant"
	"github.com/kalambet/folio/internal/composer"
	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Assistant is the assist surface used by the handlers. *assistant.Assistant
// satisfies it.
type Assistant interface {
	Ask(ctx context.Context, history []composer.Turn, message string) (assistant.Reply, error)
	Draft(ctx context.Context, intent string) assistant.Reply
}

// Store is the persistence surface used by the handlers.
type Store interface {
	SaveContactMessage(m storage.ContactMessage) (storage.ContactMessage, error)
	ListContactMessages(limit int) ([]storage.ContactMessage, error)
	GetContactMessage(id string) (storage.ContactMessage, error)
	RecentInteractions(limit int) ([]storage.Interaction, error)
	InteractionStats() ([]storage.StatusCount, error)
}

// Deps holds the dependencies of the HTTP surface.
type Deps struct {
	Assistant  Assistant
	Profile    *profile.Snapshot
	ResumePath string // optional; /api/cv returns 404 when empty
	Store      Store
	AdminToken string // admin routes are not mounted when empty
	Logger     *slog.Logger
}

// NewHandler returns the site's HTTP handler.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(AccessLog(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/profile", handleGetProfile(deps))
		r.Get("/cv", handleGetCV(deps))
		r.Post("/chat", handleChat(deps))
		r.Post("/draft", handleDraft(deps))
		r.Post("/contact", handleContact(deps))

		if deps.AdminToken != "" {
			r.Route("/admin", func(r chi.Router) {
				r.Use(BearerAuth(deps.AdminToken))
				r.Get("/contact", handleListContact(deps))
				r.Get("/contact/{id}", handleGetContact(deps))
				r.Get("/interactions", handleListInteractions(deps))
				r.Get("/stats", handleStats(deps))
			})
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
