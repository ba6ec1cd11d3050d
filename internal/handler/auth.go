package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/service"
	"github.com/sakif/notes/internal/view"
)

const oauthStateCookie = "oauth_state"

// Authenticator is the subset of *service.AuthService the auth pages call.
type Authenticator interface {
	Signup(ctx context.Context, username, password, confirm string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
	LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*service.AuthResult, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// OAuthProvider is implemented by *auth.GitHubProvider.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves login, logout, signup and the optional GitHub flow.
//
// Sessions are a JWT in an HttpOnly cookie. "Logging out" deletes the
// cookie; the token itself stays valid until it expires.
type AuthHandler struct {
	pages
	accounts Authenticator
	tokens   *auth.TokenService
	github   OAuthProvider // nil when GitHub login is not configured
}

func NewAuthHandler(
	accounts Authenticator,
	tokens *auth.TokenService,
	github OAuthProvider,
	renderer Renderer,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		pages:    pages{renderer: renderer, users: accounts, logger: logger},
		accounts: accounts,
		tokens:   tokens,
		github:   github,
	}
}

// GitHubEnabled reports whether the GitHub routes should be mounted.
func (h *AuthHandler) GitHubEnabled() bool {
	return h.github != nil
}

// LoginForm serves GET /auth/login/. ?next= is carried into a hidden input.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, &LoginForm{}, r.URL.Query().Get("next"))
}

// Login handles POST /auth/login/.
//
// Success sets the session cookie and redirects to next (if it is a local
// path) or to the home page. Failure re-renders the form with one generic
// error.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "malformed form", nil)
		return
	}
	form := &LoginForm{Username: r.PostForm.Get("username")}
	next := r.PostForm.Get("next")

	result, err := h.accounts.Login(r.Context(), form.Username, r.PostForm.Get("password"))
	if err != nil {
		if form.Errors = fieldErrors(err); form.Errors != nil {
			h.renderLogin(w, r, form, next)
			return
		}
		h.renderServiceError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.tokens)
	h.logger.Info("user logged in", slog.String("userID", result.User.ID))
	http.Redirect(w, r, auth.SafeNext(next, HomePath), http.StatusFound)
}

// Logout handles GET and POST /auth/logout/: clear the cookie and show a
// "logged out" page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	// Render as anonymous even though the request still carried a token.
	if err := h.renderer.Render(w, http.StatusOK, "auth/logout.html", &view.Page{Title: "Logged out"}); err != nil {
		h.logger.Error("failed to render page", slog.String("page", "auth/logout.html"), slog.String("error", err.Error()))
		h.renderer.RenderError(w, http.StatusInternalServerError, "", nil)
	}
}

// SignupForm serves GET /auth/signup/.
func (h *AuthHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "auth/signup.html", &view.Page{Title: "Sign up", Form: &SignupForm{}})
}

// Signup handles POST /auth/signup/. A new account is sent to the login page.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "malformed form", nil)
		return
	}
	form := &SignupForm{Username: r.PostForm.Get("username")}

	_, err := h.accounts.Signup(r.Context(),
		form.Username,
		r.PostForm.Get("password1"),
		r.PostForm.Get("password2"),
	)
	if err != nil {
		if form.Errors = fieldErrors(err); form.Errors != nil {
			h.render(w, r, http.StatusOK, "auth/signup.html", &view.Page{Title: "Sign up", Form: form})
			return
		}
		h.renderServiceError(w, r, err)
		return
	}

	http.Redirect(w, r, LoginPath, http.StatusFound)
}

// GitHubLogin redirects to GitHub's consent page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived HttpOnly cookie and into the
// consent URL. GitHubCallback only proceeds when both match.
func (h *AuthHandler) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		h.logger.Error("github login: generating state", slog.String("error", err.Error()))
		h.renderer.RenderError(w, http.StatusInternalServerError, "", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// GitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Find or create the local user, issue a session cookie
//  4. Redirect to the notes list
func (h *AuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		h.renderer.RenderError(w, http.StatusBadRequest, "invalid OAuth state", nil)
		return
	}

	// single-use
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.renderer.RenderError(w, http.StatusBadRequest, "missing OAuth code", nil)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		h.renderer.RenderError(w, http.StatusBadGateway, "GitHub authentication failed", nil)
		return
	}

	result, err := h.accounts.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("github callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		h.renderer.RenderError(w, http.StatusInternalServerError, "", nil)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.tokens)
	http.Redirect(w, r, "/notes/", http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, form *LoginForm, next string) {
	h.render(w, r, http.StatusOK, "auth/login.html", &view.Page{
		Title:         "Log in",
		Form:          form,
		Next:          auth.SafeNext(next, ""),
		GitHubEnabled: h.GitHubEnabled(),
	})
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
