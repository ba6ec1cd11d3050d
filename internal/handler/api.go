package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/service"
)

// maxBodyBytes caps JSON request bodies; MaxTextLength plus headroom.
const maxBodyBytes = 1 << 20

// NoteAPIHandler is the JSON twin of NoteHandler, mounted under /api/notes
// behind auth.RequireAuth. It calls the same service, so slug and ownership
// rules are identical.
type NoteAPIHandler struct {
	notes  NoteService
	logger *slog.Logger
}

func NewNoteAPIHandler(notes NoteService, logger *slog.Logger) *NoteAPIHandler {
	return &NoteAPIHandler{notes: notes, logger: logger}
}

// noteRequest is the body of POST and PUT. Slug is optional.
type noteRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Slug  string `json:"slug"`
}

func (req noteRequest) input() service.NoteInput {
	return service.NoteInput{Title: req.Title, Text: req.Text, Slug: req.Slug}
}

// List handles GET /api/notes.
func (h *NoteAPIHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.List(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// Create handles POST /api/notes → 201 with the stored note.
func (h *NoteAPIHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	note, err := h.notes.Create(r.Context(), userID(r), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/notes/"+note.Slug)
	writeJSON(w, http.StatusCreated, note)
}

// Get handles GET /api/notes/{slug}.
func (h *NoteAPIHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.Get(r.Context(), userID(r), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Update handles PUT /api/notes/{slug}.
func (h *NoteAPIHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	note, err := h.notes.Update(r.Context(), userID(r), chi.URLParam(r, "slug"), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Delete handles DELETE /api/notes/{slug} → 204.
func (h *NoteAPIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Delete(r.Context(), userID(r), chi.URLParam(r, "slug")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NoteAPIHandler) decode(w http.ResponseWriter, r *http.Request) (noteRequest, bool) {
	var req noteRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		writeError(w, apperror.ValidationFailed("", msg))
		return req, false
	}
	return req, true
}

func (h *NoteAPIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		h.logger.Error("api request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, err)
}
