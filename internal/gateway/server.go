package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"chatgate/pkg/logging"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
)

// SessionIDHeader carries the opaque session identifier on every
// non-initialization request, per the MCP streamable HTTP transport.
const SessionIDHeader = "Mcp-Session-Id"

// maxInitBodyBytes bounds the buffered initialization body.
const maxInitBodyBytes = 1 << 20

// ToolsetFactory builds the per-session tool set, closed over the session's
// resolved bearer token.
type ToolsetFactory func(accessToken string) []server.ServerTool

// ManagerConfig configures the session manager.
type ManagerConfig struct {
	// Name and Version identify the MCP server to clients.
	Name    string
	Version string

	// Resolver turns initialization credentials into a bearer token.
	Resolver *CredentialResolver

	// Toolset builds the tools bound to a resolved token.
	Toolset ToolsetFactory

	// GraceDelay is how long a closed session stays registered before it is
	// reaped (default 60s).
	GraceDelay time.Duration

	// IdleTimeout removes sessions with no traffic (default 30m).
	IdleTimeout time.Duration

	// MaxSessions caps concurrent sessions (default 10000).
	MaxSessions int
}

// Manager maps session identifiers to live protocol transports, each bound
// to one resolved token.
//
// State machine per session: an initialization request with resolvable
// credentials creates and registers a session (*initializing* -> *active*);
// requests bearing its identifier route to its transport; a DELETE moves it
// to *closing*; after the grace delay it is reaped unless a superseding
// registration under the same identifier won the identity check in between.
type Manager struct {
	cfg   ManagerConfig
	table *sessionTable
}

// NewManager creates a session manager. Callers must Stop it to release the
// background sweeper.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		cfg:   cfg,
		table: newSessionTable(cfg.GraceDelay, cfg.IdleTimeout, cfg.MaxSessions),
	}
}

// Stop tears down all sessions and stops the idle sweeper.
func (m *Manager) Stop() {
	m.table.stop()
	logging.Info("Gateway", "Session manager stopped")
}

// SessionCount returns the number of registered sessions.
func (m *Manager) SessionCount() int {
	return m.table.count()
}

// ServeHTTP is the single MCP endpoint. Requests without a session header
// must be initialization requests; everything else routes by session
// identifier to the bound transport.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(SessionIDHeader)
	if sessionID == "" {
		if r.Method != http.MethodPost {
			writeBadRequest(w, "missing session ID")
			return
		}
		m.handleInitialize(w, r)
		return
	}

	if err := validateSessionID(sessionID); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	sess, ok := m.table.lookup(sessionID)
	if !ok {
		logging.Debug("Gateway", "Rejected request: %v", &UnknownSessionError{SessionID: sessionID})
		writeBadRequest(w, "unknown session ID")
		return
	}

	sess.touch()
	sess.handler.ServeHTTP(w, r)

	if r.Method == http.MethodDelete {
		m.table.scheduleReap(sess)
	}
}

// initFrame is the slice of the initialization body the gateway inspects:
// the request type, and the legacy body-level token channel.
type initFrame struct {
	Method string `json:"method"`
	Token  string `json:"token"`
}

// handleInitialize resolves credentials, creates a transport bound to the
// resolved token, and registers it under a fresh unguessable identifier.
// The buffered body is replayed into the new transport so the client's
// initialize call is answered on the same request.
func (m *Manager) handleInitialize(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInitBodyBytes))
	if err != nil {
		writeBadRequest(w, "unreadable request body")
		return
	}

	var frame initFrame
	if err := json.Unmarshal(body, &frame); err != nil {
		writeBadRequest(w, "malformed initialize request")
		return
	}
	if frame.Method != "initialize" {
		writeBadRequest(w, "expected initialize request")
		return
	}

	creds := CredentialsFromRequest(r, frame.Token)
	token, err := m.cfg.Resolver.Resolve(r.Context(), creds)
	if err != nil {
		if !errors.Is(err, ErrNoCredentials) {
			logging.Warn("Gateway", "Credential resolution failed: %v", err)
		}
		writeUnauthorized(w)
		return
	}

	sess, err := m.newSession(token)
	if err != nil {
		logging.Warn("Gateway", "Session creation rejected: %v", err)
		writeBadRequest(w, err.Error())
		return
	}

	logging.Info("Gateway", "Session %s initialized", logging.TruncateSessionID(sess.ID))

	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
	sess.handler.ServeHTTP(w, r)
}

// newSession constructs an MCP server carrying the token-bound tool set,
// wraps it in a streamable HTTP transport with a fixed session identifier,
// and registers it.
func (m *Manager) newSession(accessToken string) (*Session, error) {
	sessionID := uuid.NewString()

	mcpServer := server.NewMCPServer(
		m.cfg.Name,
		m.cfg.Version,
		server.WithToolCapabilities(false),
	)
	mcpServer.AddTools(m.cfg.Toolset(accessToken)...)

	ids := &staticSessionID{id: sessionID}
	transport := server.NewStreamableHTTPServer(
		mcpServer,
		server.WithSessionIdManager(ids),
		server.WithHeartbeatInterval(30*time.Second),
	)

	sess := &Session{
		ID:           sessionID,
		CreatedAt:    time.Now(),
		handler:      transport,
		ids:          ids,
		lastActivity: time.Now(),
	}

	if err := m.table.register(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// staticSessionID pins a transport to one pre-generated session identifier.
// The manager owns identifier generation so the session table and the
// transport always agree on the key.
type staticSessionID struct {
	id         string
	terminated atomic.Bool
}

// Generate returns the pre-assigned identifier; called by the transport
// while answering the initialize request.
func (s *staticSessionID) Generate() string {
	return s.id
}

// Validate accepts only the pinned identifier.
func (s *staticSessionID) Validate(sessionID string) (bool, error) {
	if sessionID != s.id {
		return false, fmt.Errorf("unknown session ID: %s", logging.TruncateSessionID(sessionID))
	}
	return s.terminated.Load(), nil
}

// Terminate marks the pinned identifier as terminated.
func (s *staticSessionID) Terminate(sessionID string) (bool, error) {
	if sessionID != s.id {
		return true, nil
	}
	s.terminated.Store(true)
	return false, nil
}

var _ server.SessionIdManager = (*staticSessionID)(nil)
