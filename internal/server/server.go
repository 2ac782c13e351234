// Package server serves the contact form over HTTP.
//
// Every visitor gets their own form instance, kept by the session manager and
// identified by a cookie. The page works as a plain HTML form posting to
// /submit; when the live script is enabled, edits and submits travel over a
// websocket and every state change of the instance is pushed back, including
// the timer-driven reset after a successful submit.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joaovieira77/contactForm/internal/config"
	"github.com/joaovieira77/contactForm/internal/contact"
	formerrors "github.com/joaovieira77/contactForm/internal/errors"
	"github.com/joaovieira77/contactForm/internal/logging"
	"github.com/joaovieira77/contactForm/internal/metrics"
	"github.com/joaovieira77/contactForm/internal/session"
)

// SessionCookie carries the visitor's session id.
const SessionCookie = "contactform_session"

// Routes.
const (
	PathIndex  = "/"
	PathSubmit = "/submit"
	PathField  = "/fields/{field}"
	PathLive   = "/ws"
	PathHealth = "/health"
	PathMetric = "/metrics"
)

// maxFormBytes bounds POST bodies. Values past max_field_length are truncated
// by the controller; this only rejects absurd payloads.
const maxFormBytes = 1 << 20

// Server serves contact form instances.
type Server struct {
	configMu sync.RWMutex
	config   *config.Config

	logger   logging.Logger
	metrics  *metrics.Metrics
	sessions *session.Manager
	hub      *hub
	router   chi.Router

	serverMu     sync.RWMutex
	httpServer   *http.Server
	shutdownOnce sync.Once
	isShutdown   bool
}

// New creates a server. A nil logger discards output; nil metrics get a
// private registry.
func New(cfg *config.Config, logger logging.Logger, m *metrics.Metrics) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		config:  cfg,
		logger:  logger.WithComponent("server"),
		metrics: m,
	}
	s.hub = newHub(s.logger)
	s.sessions = session.NewManager(
		session.ManagerConfig{
			TTL:         cfg.Form.SessionTTL,
			MaxSessions: cfg.Form.MaxSessions,
		},
		s.newController,
		logger,
		session.WithCountHook(m.SetActiveSessions),
		session.WithRemoveHook(s.hub.dropSession),
	)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get(PathIndex, s.handleIndex)
	r.Post(PathSubmit, s.handleSubmit)
	r.Post(PathField, s.handleField)
	r.Get(PathLive, s.handleLive)
	r.Get(PathHealth, s.handleHealth)
	r.Method(http.MethodGet, PathMetric, s.metrics.Handler())
	return r
}

// Handler returns the routed handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions exposes the session manager.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Config returns the active configuration.
func (s *Server) Config() *config.Config {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.config
}

// ApplyConfig swaps in a reloaded configuration. The success window and the
// field length limit apply to sessions created afterwards; origins apply to
// the next websocket handshake. Listen address changes need a restart.
func (s *Server) ApplyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.configMu.Lock()
	old := s.config
	s.config = cfg
	s.configMu.Unlock()

	if old.Address() != cfg.Address() {
		s.logger.Warn(context.Background(), nil, "Listen address change ignored until restart",
			"current", old.Address(),
			"configured", cfg.Address())
	}
	s.logger.Info(context.Background(), "Configuration applied",
		"success_window", cfg.Form.SuccessWindow.String(),
		"allowed_origins", len(cfg.Server.AllowedOrigins))
}

// Start runs the session expiry loop and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.Config()

	s.serverMu.Lock()
	if s.isShutdown {
		s.serverMu.Unlock()
		return formerrors.NewTransportError(formerrors.ErrCodeShutdown, "server already shut down", nil)
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMu.Unlock()

	s.sessions.Start(ctx)

	s.logger.Info(ctx, "Contact form listening", "address", cfg.Address())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return formerrors.WrapTransport(err, formerrors.ErrCodeShutdown, "server error")
	}
	return nil
}

// Shutdown stops accepting requests, closes live connections and tears down
// every form instance, which cancels pending success resets.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.serverMu.Lock()
		s.isShutdown = true
		server := s.httpServer
		s.serverMu.Unlock()

		if server != nil {
			if err := server.Shutdown(ctx); err != nil {
				shutdownErr = formerrors.WrapTransport(err, formerrors.ErrCodeShutdown, "http shutdown")
			}
		}

		s.hub.closeAll()

		if err := s.sessions.Shutdown(ctx); err != nil && shutdownErr == nil {
			shutdownErr = formerrors.WrapTransport(err, formerrors.ErrCodeShutdown, "session shutdown")
		}
	})

	return shutdownErr
}

// newController is the session factory: one controller per visitor, wired to
// the live hub and the metrics.
func (s *Server) newController(id string) *contact.Controller {
	form := s.Config().Form

	opts := []contact.Option{
		contact.WithLogger(s.logger.With("session", id)),
		contact.WithMaxFieldLength(form.MaxFieldLength),
	}
	if form.SuccessWindow > 0 {
		opts = append(opts, contact.WithSuccessWindow(form.SuccessWindow))
	}

	ctrl := contact.NewController(opts...)
	ctrl.OnChange(func(tr contact.Transition) {
		s.onTransition(id, tr)
	})
	return ctrl
}

func (s *Server) onTransition(id string, tr contact.Transition) {
	if tr.Event == contact.EventReset {
		s.metrics.ObserveReset()
	}
	if !s.hub.has(id) {
		return
	}
	msg, err := newServerMessage(context.Background(), tr)
	if err != nil {
		renderErr := formerrors.NewInternalError(formerrors.ErrCodeRender, "transition render failed", err).
			WithComponent("live").
			WithContext("event", string(tr.Event))
		s.logger.Error(context.Background(), renderErr, "Failed to render transition", "session", id)
		return
	}
	s.hub.publish(id, msg)
}

// submit runs one submit attempt and records it.
func (s *Server) submit(sess *session.Session) (contact.SubmitResult, error) {
	res, err := sess.Controller.Submit()
	if err != nil {
		return res, err
	}
	s.metrics.ObserveSubmit(res.Accepted, res.Failures)
	return res, nil
}

// visitorSession resolves the request's session, creating one and setting the
// cookie when needed.
func (s *Server) visitorSession(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	sess, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			MaxAge:   int(s.Config().Form.SessionTTL / time.Second),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}
