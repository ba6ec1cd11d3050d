package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notes/internal/view"
)

// NoteHandler serves the HTML note pages.
//
// Every route except Home sits behind auth.RequireLogin, so userID(r) is
// always set here. Ownership is enforced by the service: a slug owned by
// someone else comes back as ErrNotFound and renders the 404 page.
type NoteHandler struct {
	pages
	notes NoteService
}

func NewNoteHandler(notes NoteService, users UserLookup, renderer Renderer, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{
		pages: pages{renderer: renderer, users: users, logger: logger},
		notes: notes,
	}
}

// Home serves GET /. Open to everyone.
func (h *NoteHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "home.html", &view.Page{})
}

// List serves GET /notes/ with the user's notes as ObjectList.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.List(r.Context(), userID(r))
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "notes/list.html", &view.Page{
		Title:      "Your notes",
		ObjectList: notes,
	})
}

// AddForm serves GET /add/ with an empty NoteForm.
func (h *NoteHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, &NoteForm{})
}

// Add handles POST /add/.
//
//	valid          → create, 302 to /done/
//	invalid / dup  → re-render the form, status 200, field errors filled in
func (h *NoteHandler) Add(w http.ResponseWriter, r *http.Request) {
	form, err := newNoteForm(r)
	if err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "malformed form", h.currentUser(r))
		return
	}
	if !form.Valid() {
		h.renderForm(w, r, form)
		return
	}

	if _, err := h.notes.Create(r.Context(), userID(r), form.Input()); err != nil {
		if form.Errors = fieldErrors(err); form.Errors != nil {
			h.renderForm(w, r, form)
			return
		}
		h.renderServiceError(w, r, err)
		return
	}

	http.Redirect(w, r, SuccessPath, http.StatusFound)
}

// Success serves GET /done/.
func (h *NoteHandler) Success(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "notes/success.html", &view.Page{Title: "Done"})
}

// Detail serves GET /note/{slug}/.
func (h *NoteHandler) Detail(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.Get(r.Context(), userID(r), chi.URLParam(r, "slug"))
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "notes/detail.html", &view.Page{
		Title:  note.Title,
		Object: note,
	})
}

// EditForm serves GET /edit/{slug}/ with the note's current values.
func (h *NoteHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.Get(r.Context(), userID(r), chi.URLParam(r, "slug"))
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	h.renderForm(w, r, noteFormFrom(note))
}

// Edit handles POST /edit/{slug}/. Same outcomes as Add, plus 404 for a
// note the user does not own.
func (h *NoteHandler) Edit(w http.ResponseWriter, r *http.Request) {
	form, err := newNoteForm(r)
	if err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "malformed form", h.currentUser(r))
		return
	}
	form.Editing = true

	slug := chi.URLParam(r, "slug")
	if !form.Valid() {
		// Check ownership first so a non-owner never sees the form.
		if _, err := h.notes.Get(r.Context(), userID(r), slug); err != nil {
			h.renderServiceError(w, r, err)
			return
		}
		h.renderForm(w, r, form)
		return
	}

	if _, err := h.notes.Update(r.Context(), userID(r), slug, form.Input()); err != nil {
		if form.Errors = fieldErrors(err); form.Errors != nil {
			h.renderForm(w, r, form)
			return
		}
		h.renderServiceError(w, r, err)
		return
	}

	http.Redirect(w, r, SuccessPath, http.StatusFound)
}

// DeleteConfirm serves GET /delete/{slug}/.
func (h *NoteHandler) DeleteConfirm(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.Get(r.Context(), userID(r), chi.URLParam(r, "slug"))
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "notes/delete.html", &view.Page{
		Title:  "Delete " + note.Title,
		Object: note,
	})
}

// Delete handles POST /delete/{slug}/.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Delete(r.Context(), userID(r), chi.URLParam(r, "slug")); err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, SuccessPath, http.StatusFound)
}

func (h *NoteHandler) renderForm(w http.ResponseWriter, r *http.Request, form *NoteForm) {
	title := "New note"
	if form.Editing {
		title = "Edit note"
	}
	h.render(w, r, http.StatusOK, "notes/form.html", &view.Page{Title: title, Form: form})
}
