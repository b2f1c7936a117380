// Package paramstore fetches single configuration values from a remote
// key-value parameter store.
//
// Keys are hierarchical paths of the form /{namespace}/{leaf}. A Client either
// returns the stored string or fails; it never invents a default. Defaulting
// belongs to the settings package.
//
// Three implementations are provided:
//
//   - SSMClient talks to AWS Systems Manager Parameter Store (or a local
//     emulator when an endpoint override is configured).
//   - Disabled is returned by New when no endpoint is configured. It fails
//     immediately without any network I/O so the service can run offline.
//   - Breaker wraps another Client and short-circuits calls while the store
//     keeps failing.
package paramstore
