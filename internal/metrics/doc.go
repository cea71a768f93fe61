// Package metrics defines Prometheus collectors for the media center.
//
// Collectors are registered at init time via promauto and cover the
// library store, scans, metadata extraction, the preview cache, and the
// HTTP query surface.
package metrics
