package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notes/internal/apperror"
	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/service"
	"github.com/sakif/notes/internal/view"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// =========================================================================
// FAKE RENDERER
// =========================================================================

// fakeRenderer records what would have been rendered instead of executing
// templates, so tests can assert on the page context directly.
type fakeRenderer struct {
	Page      string
	Status    int
	Data      *view.Page
	ErrStatus int
	renderErr error
}

func (f *fakeRenderer) Render(w http.ResponseWriter, status int, page string, data *view.Page) error {
	if f.renderErr != nil {
		return f.renderErr
	}
	f.Page, f.Status, f.Data = page, status, data
	w.WriteHeader(status)
	io.WriteString(w, page)
	return nil
}

func (f *fakeRenderer) RenderError(w http.ResponseWriter, status int, message string, _ *model.User) {
	f.ErrStatus = status
	w.WriteHeader(status)
	io.WriteString(w, message)
}

// =========================================================================
// MOCK SERVICES
// =========================================================================

// mockNotes records the last call and returns canned results.
type mockNotes struct {
	Calls      []string
	LastUserID string
	LastSlug   string
	LastInput  service.NoteInput

	Note   *model.Note
	Notes  []model.Note
	Err    error
	GetErr error // overrides Err for Get only
}

func (m *mockNotes) record(call, userID, slug string) {
	m.Calls = append(m.Calls, call)
	m.LastUserID, m.LastSlug = userID, slug
}

func (m *mockNotes) List(_ context.Context, userID string) ([]model.Note, error) {
	m.record("List", userID, "")
	return m.Notes, m.Err
}

func (m *mockNotes) Create(_ context.Context, userID string, in service.NoteInput) (*model.Note, error) {
	m.record("Create", userID, "")
	m.LastInput = in
	if m.Err != nil {
		return nil, m.Err
	}
	return &model.Note{ID: "n1", Title: in.Title, Text: in.Text, Slug: in.Slug, AuthorID: userID}, nil
}

func (m *mockNotes) Get(_ context.Context, userID, slug string) (*model.Note, error) {
	m.record("Get", userID, slug)
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Note, nil
}

func (m *mockNotes) Update(_ context.Context, userID, slug string, in service.NoteInput) (*model.Note, error) {
	m.record("Update", userID, slug)
	m.LastInput = in
	if m.Err != nil {
		return nil, m.Err
	}
	return &model.Note{ID: "n1", Title: in.Title, Text: in.Text, Slug: in.Slug, AuthorID: userID}, nil
}

func (m *mockNotes) Delete(_ context.Context, userID, slug string) error {
	m.record("Delete", userID, slug)
	return m.Err
}

// mockAccounts implements handler.Authenticator.
type mockAccounts struct {
	Calls []string

	User     *model.User
	Result   *service.AuthResult
	Err      error
	GitHubIn *auth.GitHubUser
}

func (m *mockAccounts) Signup(_ context.Context, username, _, _ string) (*model.User, error) {
	m.Calls = append(m.Calls, "Signup")
	if m.Err != nil {
		return nil, m.Err
	}
	return &model.User{ID: "u-new", Username: username}, nil
}

func (m *mockAccounts) Login(_ context.Context, _, _ string) (*service.AuthResult, error) {
	m.Calls = append(m.Calls, "Login")
	return m.Result, m.Err
}

func (m *mockAccounts) LoginOrRegisterGitHub(_ context.Context, gh *auth.GitHubUser) (*service.AuthResult, error) {
	m.Calls = append(m.Calls, "LoginOrRegisterGitHub")
	m.GitHubIn = gh
	return m.Result, m.Err
}

func (m *mockAccounts) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if m.User != nil && m.User.ID == id {
		return m.User, nil
	}
	return nil, apperror.NotFound("user", id)
}

// =========================================================================
// REQUEST HELPERS
// =========================================================================

// asUser runs every request as userID, the way auth.OptionalAuth would for a
// valid cookie.
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID != "" {
				r = r.WithContext(auth.WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func serve(router chi.Router, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
