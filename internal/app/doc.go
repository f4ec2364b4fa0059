// Package app bootstraps the chatgate server: it loads configuration,
// initializes logging, wires the credential resolver and upstream client
// into the session manager, and runs the HTTP listener until shutdown.
package app
