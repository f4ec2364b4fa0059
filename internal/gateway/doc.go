// Package gateway implements the session-oriented MCP surface of chatgate.
//
// The Manager is the single HTTP endpoint. An initialization request is
// authenticated by the CredentialResolver (bearer header, API id/secret pair
// via the token cache and OAuth exchanger, or the legacy body token, in that
// order) and, on success, bound to a fresh streamable HTTP transport whose
// tool set carries the resolved token. Subsequent requests route by the
// Mcp-Session-Id header. Closed sessions stay registered for a grace delay
// so an in-flight reconnection is not cut off; reaping is identity-checked
// against superseding registrations.
//
// Authentication and framing failures are answered at the HTTP level with a
// JSON-RPC error envelope and never create a session.
package gateway
