// Package middleware provides the HTTP middleware wrapped around the BFF's
// routes: request ids, access logging, rate limiting and panic recovery.
package middleware
