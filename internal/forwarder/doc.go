// Package forwarder performs upstream HTTP calls with a per-attempt deadline
// and a bounded number of retries.
//
// Only transport failures are retried: network errors and expired deadlines.
// Any response that arrives, whatever its status code, ends the call and is
// returned to the caller unchanged. The timeout and retry count are read from
// the settings source once per call, so the bound is the same for every
// attempt of that call and changes apply to the next call.
//
// Attempts are sequential. A call logs zero or more warnings (one per failed
// attempt) followed by either one recovery message or one exhausted error.
package forwarder
