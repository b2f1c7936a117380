// Package healthcheck periodically polls the upstream API's health endpoint
// and remembers the last result for the BFF's own health route.
package healthcheck
