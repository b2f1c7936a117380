// Package settings resolves named runtime settings from the parameter store.
//
// Every accessor returns a usable typed value. Store failures, missing keys and
// unparsable numbers all resolve to the setting's static fallback, so callers
// never handle configuration errors. Values are not cached; each call reads the
// store again so changes apply on the next request.
//
// Diagnostics are written to a plain log.Logger rather than the structured
// application logger, because the application logger takes its level from this
// package.
package settings
