// Package approval defines the shared data types of the approval-gate
// subsystem: the request/response records, their status state machine and the
// ordinal risk classification. All records serialise through the versioned
// codec in codec.go so that every stored JSON document carries a schema
// version and can be re-read by future revisions.
package approval
