// Package handlers exposes the media library over a JSON HTTP API:
// record queries, category browsing, root management, scan lifecycle,
// preferences, and preview delivery.
package handlers
