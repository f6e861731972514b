package api

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/folio/internal/storage"
)

const (
	maxContactNameLen    = 200
	maxContactMessageLen = 5000
)

// ContactRequest is the body of POST /api/contact.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Profile.Profile())
	}
}

func handleGetCV(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.ResumePath == "" {
			httpError(w, http.StatusNotFound, "not_found", "no resume configured")
			return
		}
		f, err := os.Open(deps.ResumePath)
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "resume unavailable")
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to stat resume: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="cv.pdf"`)
		http.ServeContent(w, r, "cv.pdf", info.ModTime(), f)
	}
}

func handleContact(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ContactRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)
		req.Message = strings.TrimSpace(req.Message)

		switch {
		case req.Name == "":
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		case utf8.RuneCountInString(req.Name) > maxContactNameLen:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is too long")
			return
		case req.Message == "":
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		case utf8.RuneCountInString(req.Message) > maxContactMessageLen:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message exceeds %d characters", maxContactMessageLen)
			return
		}
		addr, err := mail.ParseAddress(req.Email)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid email address")
			return
		}

		// Only the bare address is kept, so "Bob <bob@x.com>" is stored as bob@x.com.
		saved, err := deps.Store.SaveContactMessage(storage.ContactMessage{
			Name:    req.Name,
			Email:   addr.Address,
			Message: req.Message,
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save message: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"id": saved.ID})
	}
}
