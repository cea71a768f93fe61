// Package workers calculates worker pool sizes scaled to the CPUs
// available to the process, with an environment override for operators.
package workers
