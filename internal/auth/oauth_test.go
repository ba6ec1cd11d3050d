package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGitHub serves the token endpoint and /user like GitHub does.
func fakeGitHub(t *testing.T, userStatus int, user GitHubUser) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"bad_verification_code"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "gho_test",
			"token_type":   "bearer",
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userStatus)
		_ = json.NewEncoder(w).Encode(user)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *GitHubProvider {
	return newGitHubProvider("client", "secret", "http://localhost/auth/github/callback",
		oauth2.Endpoint{
			AuthURL:   srv.URL + "/login/oauth/authorize",
			TokenURL:  srv.URL + "/login/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		srv.URL+"/user",
	)
}

func TestGitHubProvider_AuthURL(t *testing.T) {
	p := NewGitHubProvider("client-id", "secret", "http://localhost:8080/auth/github/callback")

	u, err := url.Parse(p.AuthURL("state-123"))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "http://localhost:8080/auth/github/callback", q.Get("redirect_uri"))
}

func TestGitHubProvider_Exchange(t *testing.T) {
	srv := fakeGitHub(t, http.StatusOK, GitHubUser{ID: 42, Login: "octocat"})
	p := newTestProvider(srv)

	user, err := p.Exchange(context.Background(), "good-code")

	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "octocat", user.Login)
}

func TestGitHubProvider_Exchange_Failures(t *testing.T) {
	t.Run("bad code", func(t *testing.T) {
		p := newTestProvider(fakeGitHub(t, http.StatusOK, GitHubUser{ID: 42, Login: "octocat"}))
		_, err := p.Exchange(context.Background(), "bad-code")
		assert.Error(t, err)
	})

	t.Run("user API error", func(t *testing.T) {
		p := newTestProvider(fakeGitHub(t, http.StatusInternalServerError, GitHubUser{}))
		_, err := p.Exchange(context.Background(), "good-code")
		assert.Error(t, err)
	})

	t.Run("incomplete user", func(t *testing.T) {
		p := newTestProvider(fakeGitHub(t, http.StatusOK, GitHubUser{ID: 0, Login: "ghost"}))
		_, err := p.Exchange(context.Background(), "good-code")
		assert.Error(t, err)
	})
}
