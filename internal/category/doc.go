// Package category derives hierarchical category labels from folder paths.
//
// A category is not stored anywhere: it is computed on demand from a
// folder's path relative to the registered root folders, with components
// joined by " > " (e.g. "investments > stocks"). Because the projection is
// recomputed on every query, root changes are reflected immediately without
// any migration.
package category
