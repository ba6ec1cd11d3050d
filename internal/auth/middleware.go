package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// SessionCookie is the name of the HttpOnly cookie carrying the session JWT.
const SessionCookie = "token"

// contextKey is unexported so no other package can read or overwrite our
// context values by guessing the key.
type contextKey string

const userIDKey contextKey = "userID"

// OptionalAuth extracts the user identity if a valid session cookie is
// present but never blocks the request. It runs on every route so templates
// can tell anonymous visitors from signed-in users.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireLogin guards HTML pages. Anonymous requests are redirected to the
// login page with ?next= pointing back at the page they asked for, and the
// wrapped handler never runs.
//
// It relies on OptionalAuth having run earlier in the chain.
func RequireLogin(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromContext(r.Context()); !ok {
				http.Redirect(w, r, LoginURL(loginPath, r.URL.RequestURI()), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth guards the JSON API: anonymous requests get 401 with a JSON
// body instead of a redirect.
//
// It relies on OptionalAuth having run earlier in the chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginURL builds "<loginPath>?next=<next>".
//
// Slashes in next are left unescaped ("/auth/login/?next=/add/"), which is
// what browsers and people expect to see. Everything else is query-escaped.
func LoginURL(loginPath, next string) string {
	if next == "" {
		return loginPath
	}
	escaped := strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
	return loginPath + "?next=" + escaped
}

// SafeNext returns next if it is a local absolute path, otherwise fallback.
// It stops ?next= from being used as an open redirect to another site.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. Returns ("", false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SetSessionCookie stores a freshly issued token in the HttpOnly cookie.
func SetSessionCookie(w http.ResponseWriter, token string, tokens *TokenService) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(tokens.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
