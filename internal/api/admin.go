package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/folio/internal/storage"
)

type contactMessageJSON struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
}

type interactionJSON struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	Attempts   int       `json:"attempts"`
	DurationMs int64     `json:"duration_ms"`
}

type statJSON struct {
	Kind          string  `json:"kind"`
	Status        string  `json:"status"`
	Count         int     `json:"count"`
	AvgAttempts   float64 `json:"avg_attempts"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

func toContactJSON(m storage.ContactMessage) contactMessageJSON {
	return contactMessageJSON{ID: m.ID, CreatedAt: m.CreatedAt, Name: m.Name, Email: m.Email, Message: m.Message}
}

func handleListContact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		msgs, err := deps.Store.ListContactMessages(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list contact messages: %v", err)
			return
		}

		out := make([]contactMessageJSON, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, toContactJSON(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetContact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := deps.Store.GetContactMessage(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "contact message not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get contact message: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, toContactJSON(m))
	}
}

func handleListInteractions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		items, err := deps.Store.RecentInteractions(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}

		out := make([]interactionJSON, 0, len(items))
		for _, i := range items {
			out = append(out, interactionJSON{
				ID:         i.ID,
				CreatedAt:  i.CreatedAt,
				Kind:       i.Kind,
				Status:     i.Status,
				Attempts:   i.Attempts,
				DurationMs: i.DurationMs,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Store.InteractionStats()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to compute stats: %v", err)
			return
		}

		out := make([]statJSON, 0, len(stats))
		for _, s := range stats {
			out = append(out, statJSON(s))
		}
		writeJSON(w, http.StatusOK, out)
	}
}
