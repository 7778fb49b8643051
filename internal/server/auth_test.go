package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Farx1/hrfaq-go/internal/stream"
)

func authedRequest(t *testing.T, s *Server, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"vacation?"}`))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAuth_Disabled(t *testing.T) {
	t.Parallel()

	// No API key configured: protected routes are open.
	s := newTestServer(t, &fakeAsker{resp: &stream.Response{Answer: "ok"}}, nil, nil)
	if rec := authedRequest(t, s, ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAuth_MissingToken(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAsker{resp: &stream.Response{}}, nil, &Config{APIKey: "secret"})
	rec := authedRequest(t, s, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("WWW-Authenticate"), "Bearer") {
		t.Error("401 should carry a Bearer challenge")
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAsker{resp: &stream.Response{}}, nil, &Config{APIKey: "secret"})
	rec := authedRequest(t, s, "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("WWW-Authenticate"), "invalid_token") {
		t.Error("401 should flag the invalid token")
	}
}

func TestAuth_ValidToken(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAsker{resp: &stream.Response{Answer: "ok"}}, nil, &Config{APIKey: "secret"})
	if rec := authedRequest(t, s, "secret"); rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAuth_HealthUnprotected(t *testing.T) {
	t.Parallel()

	// Liveness must stay reachable without credentials.
	s := newTestServer(t, &fakeAsker{}, nil, &Config{APIKey: "secret"})
	rec := doJSON(t, s, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"Bearer  spaced ", "spaced"},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if c.header != "" {
			r.Header.Set("Authorization", c.header)
		}
		if got := bearerToken(r); got != c.want {
			t.Errorf("bearerToken(%q) = %q, want %q", c.header, got, c.want)
		}
	}
}
