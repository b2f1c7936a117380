// Package refresh re-reads runtime settings from the parameter store in the
// background and applies them to the running process.
package refresh
