package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"chatgate/pkg/logging"
)

// JSON-RPC error codes used on the HTTP surface, matching the envelope the
// streamable transport itself emits for protocol-level failures.
const (
	codeBadRequest   = -32000
	codeUnauthorized = -32001
)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcErrorEnvelope struct {
	JSONRPC string   `json:"jsonrpc"`
	Error   rpcError `json:"error"`
	ID      any      `json:"id"`
}

// writeProtocolError writes a JSON-RPC error envelope with the given HTTP
// status. Framing errors are fatal to the request; they never reach a
// session transport.
func writeProtocolError(w http.ResponseWriter, httpStatus, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	envelope := rpcErrorEnvelope{
		JSONRPC: "2.0",
		Error:   rpcError{Code: code, Message: message},
		ID:      nil,
	}
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logging.Warn("Gateway", "Failed to write error response: %v", err)
	}
}

func writeBadRequest(w http.ResponseWriter, reason string) {
	writeProtocolError(w, http.StatusBadRequest, codeBadRequest, "Bad Request: "+reason)
}

func writeUnauthorized(w http.ResponseWriter) {
	writeProtocolError(w, http.StatusUnauthorized, codeUnauthorized, "Unauthorized: no valid credentials provided")
}

// UnknownSessionError is returned when a request references a session the
// manager does not know about.
type UnknownSessionError struct {
	SessionID string
}

func (e *UnknownSessionError) Error() string {
	return "unknown session: " + logging.TruncateSessionID(e.SessionID)
}

// SessionLimitExceededError is returned when the maximum session count is
// reached.
type SessionLimitExceededError struct {
	Limit int
}

func (e *SessionLimitExceededError) Error() string {
	return fmt.Sprintf("session limit exceeded: %d sessions", e.Limit)
}
