// Package indexer runs library scans: root registration, two-pass
// discovery and extraction, progress reporting, and cooperative
// cancellation. One scan per store at a time.
package indexer
