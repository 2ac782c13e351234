package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/joaovieira77/contactForm/internal/config"
	"github.com/joaovieira77/contactForm/internal/contact"
	formerrors "github.com/joaovieira77/contactForm/internal/errors"
	"github.com/joaovieira77/contactForm/internal/metrics"
	"github.com/joaovieira77/contactForm/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWindow = 50 * time.Millisecond

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Form.SuccessWindow = testWindow
	for _, fn := range mutate {
		fn(cfg)
	}
	s := New(cfg, nil, metrics.New())
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})
	return s
}

func do(t *testing.T, s *Server, method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie set", SessionCookie)
	return nil
}

func validForm() url.Values {
	return url.Values{
		"fullName": {"Jane Doe"},
		"email":    {"jane@example.com"},
		"subject":  {"Hello"},
		"message":  {"Hi there"},
	}
}

func TestIndex(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	body := rec.Body.String()
	assert.Contains(t, body, view.Heading)
	assert.Contains(t, body, `data-state="editing"`)
	assert.Contains(t, body, `var path="/ws"`)

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 1, s.Sessions().Count())

	// The same visitor keeps their instance.
	rec = do(t, s, http.MethodGet, "/", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 1, s.Sessions().Count())
}

func TestSubmitInvalid(t *testing.T) {
	s := newTestServer(t)

	form := validForm()
	form.Set("email", "bad-email")
	form.Set("subject", "   ")
	rec := do(t, s, http.MethodPost, "/submit", form, nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, contact.MsgEmailInvalid)
	assert.Contains(t, body, contact.MsgSubjectRequired)
	assert.NotContains(t, body, contact.MsgFullNameRequired)
	assert.Contains(t, body, `value="Jane Doe"`)
	assert.Contains(t, body, `data-state="invalid"`)
	assert.NotContains(t, body, view.SuccessMessage)

	sess, ok := s.Sessions().Get(sessionCookie(t, rec).Value)
	require.True(t, ok)
	snap := sess.Controller.Snapshot()
	assert.Equal(t, contact.StateInvalid, snap.State)
	assert.Len(t, snap.Errors, 2)
}

func TestSubmitSuccessAndReset(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/submit", validForm(), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cookie := sessionCookie(t, rec)

	rec = do(t, s, http.MethodGet, "/", nil, cookie)
	body := rec.Body.String()
	assert.Contains(t, body, view.SuccessMessage)
	assert.Contains(t, body, `data-state="submitted_success"`)
	assert.NotContains(t, body, "Jane Doe")

	assert.Eventually(t, func() bool {
		rec := do(t, s, http.MethodGet, "/", nil, cookie)
		return !strings.Contains(rec.Body.String(), view.SuccessMessage)
	}, time.Second, 10*time.Millisecond)
}

func TestSubmitEmptyForm(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/submit", url.Values{}, nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	for _, msg := range []string{
		contact.MsgFullNameRequired,
		contact.MsgEmailRequired,
		contact.MsgSubjectRequired,
		contact.MsgMessageRequired,
	} {
		assert.Contains(t, body, msg)
	}
}

func TestFieldFragment(t *testing.T) {
	s := newTestServer(t)

	// Fail a submit first so there are errors to clear.
	rec := do(t, s, http.MethodPost, "/submit", url.Values{}, nil)
	cookie := sessionCookie(t, rec)

	rec = do(t, s, http.MethodPost, "/fields/email", url.Values{"value": {"x@y.z"}}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, `<form id="contact-form"`))
	assert.Contains(t, body, `value="x@y.z"`)
	assert.NotContains(t, body, contact.MsgEmailRequired)
	assert.Contains(t, body, contact.MsgFullNameRequired)

	rec = do(t, s, http.MethodPost, "/fields/phone", url.Values{"value": {"1"}}, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFieldTruncation(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Form.MaxFieldLength = 5
	})

	rec := do(t, s, http.MethodPost, "/fields/subject", url.Values{"value": {"abcdefghij"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	sess, ok := s.Sessions().Get(sessionCookie(t, rec).Value)
	require.True(t, ok)
	assert.Equal(t, "abcde", sess.Controller.Snapshot().Values.Subject)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodGet, "/", nil, nil)

	rec := do(t, s, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status["status"])
	assert.Equal(t, 1.0, status["sessions"])
	assert.Equal(t, float64(testWindow.Milliseconds()), status["success_window_ms"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/submit", validForm(), nil)
	do(t, s, http.MethodPost, "/submit", url.Values{"email": {"nope"}}, nil)

	rec := do(t, s, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `contactform_submissions_total{outcome="success"} 1`)
	assert.Contains(t, body, `contactform_submissions_total{outcome="invalid"} 1`)
	assert.Contains(t, body, `contactform_field_errors_total{field="email",kind="invalid_format"} 1`)
	assert.Contains(t, body, `contactform_active_sessions 2`)
}

func TestApplyConfig(t *testing.T) {
	s := newTestServer(t)

	updated := config.Default()
	updated.Form.SuccessWindow = 7 * time.Second
	s.ApplyConfig(updated)
	s.ApplyConfig(nil)

	assert.Same(t, updated, s.Config())

	rec := do(t, s, http.MethodGet, "/", nil, nil)
	sess, ok := s.Sessions().Get(sessionCookie(t, rec).Value)
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, sess.Controller.SuccessWindow())
}

func TestCheckOrigin(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.Host = "0.0.0.0"
		cfg.Server.Port = 8080
		cfg.Server.AllowedOrigins = []string{"https://contact.example.com"}
	})

	tests := []struct {
		name   string
		host   string
		origin string
		want   bool
	}{
		{"missing origin", "form.local", "", false},
		{"same origin", "form.local", "http://form.local", true},
		{"localhost port", "form.local", "http://localhost:8080", true},
		{"loopback port", "form.local", "http://127.0.0.1:8080", true},
		{"configured origin", "form.local", "https://contact.example.com", true},
		{"configured origin wrong scheme", "form.local", "http://contact.example.com", false},
		{"foreign origin", "form.local", "https://evil.example.com", false},
		{"non http scheme", "form.local", "file://form.local", false},
		{"unparseable", "form.local", "http://[::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, s.checkOrigin(req))
		})
	}
}

func TestShutdownClosesSessions(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/submit", validForm(), nil)
	sess, ok := s.Sessions().Get(sessionCookie(t, rec).Value)
	require.True(t, ok)

	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))

	assert.True(t, sess.Controller.Closed())
	assert.Equal(t, 0, s.Sessions().Count())

	// A closed instance keeps its success flag: the reset was cancelled.
	time.Sleep(2 * testWindow)
	assert.True(t, sess.Controller.Snapshot().Submitted)

	assert.Error(t, s.Start(context.Background()))
}

func TestControllerStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"closed form", contact.ErrClosed, http.StatusServiceUnavailable},
		{"wrapped closed form", fmt.Errorf("edit: %w", contact.ErrClosed), http.StatusServiceUnavailable},
		{"unknown field", formerrors.NewTransportError(formerrors.ErrCodeUnknownField, "unknown field", nil), http.StatusBadRequest},
		{"internal", formerrors.NewInternalError(formerrors.ErrCodeRender, "boom", nil), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, controllerStatus(tt.err))
		})
	}
}

func TestSubmitToClosedFormAsksForReload(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/fields/subject", url.Values{"value": {"Hi"}}, nil)
	cookie := sessionCookie(t, rec)
	sess, ok := s.Sessions().Get(cookie.Value)
	require.True(t, ok)
	sess.Controller.Close()

	rec = do(t, s, http.MethodPost, "/submit", validForm(), cookie)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "reload the page")
}
