// Package handler implements the browser-facing HTTP handlers. Greeting
// requests are forwarded to the upstream API and passed back verbatim; any
// forwarding failure is translated to a single 502 contract.
package handler
