// Package middleware provides HTTP access logging and Prometheus
// request instrumentation for the API router.
package middleware
