// Package handler contains the HTTP handlers of the notes application.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (path params, form values, JSON bodies)
//  2. Call the service layer
//  3. Turn the result into a page, a redirect or a JSON response
//
// Handlers never decide business rules. They depend on small interfaces
// (NoteService, Authenticator, Renderer) so tests can swap in fakes and
// check exactly what reached the service.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/service"
	"github.com/sakif/notes/internal/view"
)

// Route paths shared by handlers that redirect.
const (
	HomePath    = "/"
	LoginPath   = "/auth/login/"
	SuccessPath = "/done/"
)

// NoteService is the subset of *service.NoteService the handlers call.
type NoteService interface {
	List(ctx context.Context, userID string) ([]model.Note, error)
	Create(ctx context.Context, userID string, in service.NoteInput) (*model.Note, error)
	Get(ctx context.Context, userID, slug string) (*model.Note, error)
	Update(ctx context.Context, userID, slug string, in service.NoteInput) (*model.Note, error)
	Delete(ctx context.Context, userID, slug string) error
}

// UserLookup resolves the signed-in user for the page header.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Renderer writes HTML pages. *view.Renderer implements it.
type Renderer interface {
	Render(w http.ResponseWriter, status int, page string, data *view.Page) error
	RenderError(w http.ResponseWriter, status int, message string, user *model.User)
}

// pages bundles what every HTML handler needs.
type pages struct {
	renderer Renderer
	users    UserLookup
	logger   *slog.Logger
}

// currentUser returns the signed-in user, or nil for anonymous requests.
// A token whose user no longer exists is treated as anonymous.
func (p *pages) currentUser(r *http.Request) *model.User {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	user, err := p.users.GetUserByID(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			p.logger.Error("failed to load current user",
				slog.String("userID", userID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return user
}

// render writes page and falls back to a 500 if the template fails.
func (p *pages) render(w http.ResponseWriter, r *http.Request, status int, page string, data *view.Page) {
	if data.CurrentUser == nil {
		data.CurrentUser = p.currentUser(r)
	}
	if err := p.renderer.Render(w, status, page, data); err != nil {
		p.logger.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		p.renderer.RenderError(w, http.StatusInternalServerError, "", data.CurrentUser)
	}
}

// renderServiceError maps a service error to an error page.
//
// ErrNotFound → 404 with no detail, so a note owned by someone else looks
// exactly like a missing one. Anything unexpected → 500, logged.
func (p *pages) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		p.renderer.RenderError(w, http.StatusNotFound, "", p.currentUser(r))
		return
	}
	p.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	p.renderer.RenderError(w, http.StatusInternalServerError, "", p.currentUser(r))
}

// NotFound renders the 404 page for unknown routes.
func (p *pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.renderer.RenderError(w, http.StatusNotFound, "", p.currentUser(r))
}

// userID is only called behind auth.RequireLogin / auth.RequireAuth.
func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
