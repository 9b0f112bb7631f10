// Package store defines the key-value store contract every approval-gate
// component persists through. Any backend offering TTL-based string keys and
// list primitives satisfies it; the redis sub-package is the production
// implementation and the memory sub-package backs tests and standalone use.
package store
