// Package logging provides a small subsystem-tagged wrapper around log/slog.
//
// All components log through the package-level Debug/Info/Warn/Error helpers,
// passing a subsystem name as the first argument:
//
//	logging.Info("Gateway", "session created: %s", logging.TruncateSessionID(id))
//	logging.Error("OAuth", err, "token exchange failed for api id %s", apiID)
//
// The logger is initialized once from the serve command via Init; before that
// a stderr text handler at INFO level is in effect so early messages are not
// lost.
package logging
