// Package startup loads configuration from the environment and exposes
// build metadata injected at link time.
package startup
