// Package tools declares the callable MCP tools and binds each one to an
// upstream ChatHub call.
//
// A Registry is created once per session, closed over that session's
// token-bound upstream client, so a tool invocation can never cross session
// credentials. Argument validation failures and upstream failures both come
// back to the caller as textual results; nothing thrown inside a handler
// escapes the tool boundary.
package tools
