// Package extract probes media files for duration, pixel dimensions,
// and embedded tags. Every probe is fail-soft: a corrupt or unsupported
// file yields a typed failure on the result, never an error that would
// abort the scan it belongs to.
package extract
