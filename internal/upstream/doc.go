// Package upstream talks to the ChatHub REST API and its OAuth token
// endpoint.
//
// It contains the three leaf components of the gateway:
//
//   - Exchanger: client-credentials grants against the token endpoint
//   - TokenCache: process-wide API-id -> token cache with lazy expiry
//   - Client: the request proxy that normalizes every upstream call into a
//     uniform Result value
//
// Nothing in this package stores chat data; it proxies, never persists.
package upstream
