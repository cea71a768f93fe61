// Package scanner discovers media files under registered root folders.
// Walks are depth-first, skip hidden directories, and treat unreadable
// entries as absent rather than fatal.
package scanner
