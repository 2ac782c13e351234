package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/joaovieira77/contactForm/internal/contact"
	formerrors "github.com/joaovieira77/contactForm/internal/errors"
	"github.com/joaovieira77/contactForm/internal/logging"
	"github.com/joaovieira77/contactForm/internal/session"
	"github.com/joaovieira77/contactForm/internal/view"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Outgoing messages buffered per connection before it is dropped.
	sendBuffer = 16

	// Envelope allowance on top of the largest field value.
	messageOverhead = 512

	// Worst case JSON size of one rune: a surrogate pair of \uXXXX escapes.
	maxEscapedRuneBytes = 12
)

// liveReadLimit bounds one client message. It is never below the POST body
// limit, so any value the form endpoints accept also fits here; the
// controller truncates past max_field_length.
func liveReadLimit(maxFieldLength int) int64 {
	limit := int64(maxFieldLength)*maxEscapedRuneBytes + messageOverhead
	if limit < maxFormBytes {
		return maxFormBytes
	}
	return limit
}

// Message types on the live channel.
const (
	MsgEdit   = "edit"
	MsgSubmit = "submit"
	MsgRender = "render"
	MsgErrors = "errors"
	MsgError  = "error"
)

// ClientMessage is sent by the browser.
type ClientMessage struct {
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

// ServerMessage is pushed to the browser after every transition. Edits only
// carry the error map so the input being typed into is not replaced; every
// other transition carries the re-rendered form.
type ServerMessage struct {
	Type    string            `json:"type"`
	State   string            `json:"state,omitempty"`
	Content string            `json:"content,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func newServerMessage(ctx context.Context, tr contact.Transition) (ServerMessage, error) {
	if tr.Event == contact.EventEdit {
		return errorsMessage(tr.Snapshot), nil
	}
	return renderMessage(ctx, tr.Snapshot)
}

func renderMessage(ctx context.Context, snap contact.Snapshot) (ServerMessage, error) {
	content, err := view.RenderString(ctx, view.Form(snap))
	if err != nil {
		return ServerMessage{}, err
	}
	return ServerMessage{Type: MsgRender, State: snap.State.String(), Content: content}, nil
}

func errorsMessage(snap contact.Snapshot) ServerMessage {
	errs := make(map[string]string, len(snap.Errors))
	for f, msg := range snap.Errors {
		errs[string(f)] = msg
	}
	return ServerMessage{Type: MsgErrors, State: snap.State.String(), Errors: errs}
}

// client is one websocket connection bound to a session.
type client struct {
	conn    *websocket.Conn
	session string
	send    chan ServerMessage

	done        chan struct{}
	closeOnce   sync.Once
	closeCode   websocket.StatusCode
	closeReason string
}

func newClient(conn *websocket.Conn, sessionID string) *client {
	return &client{
		conn:    conn,
		session: sessionID,
		send:    make(chan ServerMessage, sendBuffer),
		done:    make(chan struct{}),
	}
}

// close asks the write pump to close the connection. Only the first call
// decides the status code.
func (c *client) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

// enqueue never blocks; a full buffer means the peer is not reading.
func (c *client) enqueue(msg ServerMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// writePump owns every write to the connection.
func (c *client) writePump(logger logging.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := wsjson.Write(ctx, c.conn, msg)
			cancel()
			if err != nil {
				logger.Debug(context.Background(), "WebSocket write failed", "session", c.session, "error", err.Error())
				c.close(websocket.StatusGoingAway, "write failed")
				_ = c.conn.CloseNow()
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				c.close(websocket.StatusGoingAway, "ping failed")
				_ = c.conn.CloseNow()
				return
			}

		case <-c.done:
			_ = c.conn.Close(c.closeCode, c.closeReason)
			return
		}
	}
}

// hub tracks the live connections of every session.
type hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	closed  bool
	logger  logging.Logger
}

func newHub(logger logging.Logger) *hub {
	return &hub{
		clients: make(map[string]map[*client]struct{}),
		logger:  logger,
	}
}

func (h *hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[c.session]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.session] = set
	}
	set[c] = struct{}{}
	return true
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.session]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.session)
	}
}

func (h *hub) has(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID]) > 0
}

// publish fans msg out to every connection of the session. Connections whose
// buffer is full are closed.
func (h *hub) publish(sessionID string, msg ServerMessage) {
	h.mu.RLock()
	var failed []*client
	for c := range h.clients[sessionID] {
		if !c.enqueue(msg) {
			failed = append(failed, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range failed {
		h.logger.Warn(context.Background(), nil, "Dropping slow live connection", "session", sessionID)
		c.close(websocket.StatusPolicyViolation, "too slow")
	}
}

// dropSession closes the connections of a removed session.
func (h *hub) dropSession(sessionID string) {
	h.mu.Lock()
	set := h.clients[sessionID]
	delete(h.clients, sessionID)
	h.mu.Unlock()

	for c := range set {
		c.close(websocket.StatusGoingAway, "session expired")
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	h.closed = true
	all := h.clients
	h.clients = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			c.close(websocket.StatusGoingAway, "server shutting down")
		}
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		s.logger.Warn(r.Context(), formerrors.NewTransportError(formerrors.ErrCodeOriginRejected, "origin not allowed", nil),
			"WebSocket handshake rejected",
			"origin", logging.SanitizeForLog(r.Header.Get("Origin")))
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	sess := s.visitorSession(w, r)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// checkOrigin above already applied the allowed origin list.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(liveReadLimit(s.Config().Form.MaxFieldLength))

	c := newClient(conn, sess.ID)
	if err := s.attachLive(r.Context(), c, sess); err != nil {
		if errors.Is(err, errHubClosed) {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
		s.logger.Error(r.Context(), err, "Failed to render initial form", "session", sess.ID)
		_ = conn.Close(websocket.StatusInternalError, "render failed")
		return
	}

	s.metrics.ConnectionOpened()
	defer s.metrics.ConnectionClosed()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(s.logger)
	}()

	s.readPump(r.Context(), c, sess)

	s.hub.unregister(c)
	c.close(websocket.StatusNormalClosure, "")
	<-writerDone
}

var errHubClosed = errors.New("live hub is closed")

// attachLive registers c and queues the initial render. Registering before
// the snapshot means a concurrent transition is either in the snapshot or
// pushed after it.
func (s *Server) attachLive(ctx context.Context, c *client, sess *session.Session) error {
	if !s.hub.register(c) {
		return errHubClosed
	}
	initial, err := renderMessage(ctx, sess.Controller.Snapshot())
	if err != nil {
		s.hub.unregister(c)
		return err
	}
	c.enqueue(initial)
	return nil
}

// readPump handles client messages until the connection fails or is closed.
func (s *Server) readPump(ctx context.Context, c *client, sess *session.Session) {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway &&
				!errors.Is(err, context.Canceled) {
				s.logger.Debug(ctx, "WebSocket read ended", "session", c.session, "error", err.Error())
			}
			return
		}

		s.sessions.Touch(sess.ID)
		if err := s.handleClientMessage(sess, msg); err != nil {
			if errors.Is(err, contact.ErrClosed) {
				c.close(websocket.StatusGoingAway, "session closed")
				return
			}
			c.enqueue(ServerMessage{Type: MsgError, Error: err.Error()})
		}
	}
}

func (s *Server) handleClientMessage(sess *session.Session, msg ClientMessage) error {
	switch msg.Type {
	case MsgEdit:
		f, err := contact.ParseField(msg.Field)
		if err != nil {
			return formerrors.NewTransportError(formerrors.ErrCodeUnknownField, err.Error(), nil)
		}
		return sess.Controller.Edit(f, msg.Value)
	case MsgSubmit:
		_, err := s.submit(sess)
		return err
	default:
		return formerrors.NewTransportError(formerrors.ErrCodeBadMessage,
			fmt.Sprintf("unknown message type %q", logging.SanitizeForLog(msg.Type)), nil)
	}
}

// checkOrigin accepts same-origin handshakes, the configured listen address
// on localhost, and the configured allowed origins. Requests without an
// Origin header are rejected.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	if originURL.Host == r.Host {
		return true
	}

	cfg := s.Config()
	allowedHosts := []string{
		cfg.Address(),
		fmt.Sprintf("localhost:%d", cfg.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
	}
	for _, allowed := range allowedHosts {
		if originURL.Host == allowed {
			return true
		}
	}

	for _, allowed := range cfg.Server.AllowedOrigins {
		allowedURL, err := url.Parse(allowed)
		if err != nil {
			continue
		}
		if allowedURL.Scheme == originURL.Scheme && allowedURL.Host == originURL.Host {
			return true
		}
	}

	return false
}
