package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/joaovieira77/contactForm/internal/contact"
	formerrors "github.com/joaovieira77/contactForm/internal/errors"
	"github.com/joaovieira77/contactForm/internal/view"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.visitorSession(w, r)
	s.renderHTML(w, r, http.StatusOK, view.Page(sess.Controller.Snapshot(), view.PageOptions{LivePath: PathLive}))
}

// handleSubmit is the no-script path: the posted values are applied as edits,
// then submitted. Success redirects so a reload does not post again.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	sess := s.visitorSession(w, r)
	for _, f := range contact.Fields {
		if _, ok := r.PostForm[string(f)]; !ok {
			continue
		}
		if err := sess.Controller.Edit(f, r.PostForm.Get(string(f))); err != nil {
			s.controllerError(w, r, err)
			return
		}
	}

	res, err := s.submit(sess)
	if err != nil {
		s.controllerError(w, r, err)
		return
	}

	if res.Accepted {
		http.Redirect(w, r, PathIndex, http.StatusSeeOther)
		return
	}
	s.renderHTML(w, r, http.StatusUnprocessableEntity,
		view.Page(sess.Controller.Snapshot(), view.PageOptions{LivePath: PathLive}))
}

// handleField applies one edit and answers with the form fragment.
func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	f, err := contact.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	sess := s.visitorSession(w, r)
	if err := sess.Controller.Edit(f, r.PostForm.Get("value")); err != nil {
		s.controllerError(w, r, err)
		return
	}
	s.renderHTML(w, r, http.StatusOK, view.Form(sess.Controller.Snapshot()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := map[string]interface{}{
		"status":            "healthy",
		"sessions":          s.sessions.Count(),
		"live_connections":  s.hub.count(),
		"success_window_ms": s.Config().Form.SuccessWindow.Milliseconds(),
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	}

	response, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		http.Error(w, "Failed to marshal health status", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(response)
}

// renderHTML renders into a buffer first so a failed render becomes a 500
// rather than a truncated page.
func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		renderErr := formerrors.NewInternalError(formerrors.ErrCodeRender, "page render failed", err).
			WithContext("path", r.URL.Path)
		s.logger.Error(r.Context(), renderErr, "Render failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// controllerStatus maps a controller failure to a response status. A closed
// form asks the visitor to reload; other recoverable errors are the client's.
func controllerStatus(err error) int {
	switch {
	case errors.Is(err, contact.ErrClosed):
		return http.StatusServiceUnavailable
	case formerrors.IsRecoverable(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) controllerError(w http.ResponseWriter, r *http.Request, err error) {
	switch status := controllerStatus(err); status {
	case http.StatusServiceUnavailable:
		http.Error(w, "Form session closed, reload the page", status)
	case http.StatusBadRequest:
		http.Error(w, err.Error(), status)
	default:
		s.logger.Error(r.Context(), err, "Form operation failed", "path", r.URL.Path)
		http.Error(w, "Internal server error", status)
	}
}
