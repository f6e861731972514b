package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kalambet/folio/internal/assistant"
	"github.com/kalambet/folio/internal/composer"
	"github.com/kalambet/folio/internal/render"
)

// ChatRequest is the body of POST /api/chat. History is owned by the caller
// and sent in full; only its trailing window reaches the model.
type ChatRequest struct {
	History []composer.Turn `json:"history"`
	Message string          `json:"message"`
}

// DraftRequest is the body of POST /api/draft.
type DraftRequest struct {
	Intent string `json:"intent"`
}

// AssistResponse is returned by both assist endpoints. Degraded outcomes are
// still 200 with the fallback text and a non-"ok" status.
type AssistResponse struct {
	Status   string `json:"status"`
	Text     string `json:"text"`
	HTML     string `json:"html"`
	Attempts int    `json:"attempts"`
}

func newAssistResponse(reply assistant.Reply) AssistResponse {
	text := reply.Display()
	return AssistResponse{
		Status:   reply.Status.String(),
		Text:     text,
		HTML:     render.HTML(text),
		Attempts: reply.Attempts,
	}
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}

		reply, err := deps.Assistant.Ask(r.Context(), req.History, req.Message)
		if errors.Is(err, composer.ErrInvalidTurn) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "chat failed: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, newAssistResponse(reply))
	}
}

func handleDraft(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req DraftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Intent) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "intent is required")
			return
		}

		reply := deps.Assistant.Draft(r.Context(), req.Intent)
		writeJSON(w, http.StatusOK, newAssistResponse(reply))
	}
}
