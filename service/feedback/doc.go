// Package feedback collects structured reviewer feedback on decided gates:
// ratings, comments and correction lists keyed by gate id, with workspace
// level aggregation for reporting.
package feedback
