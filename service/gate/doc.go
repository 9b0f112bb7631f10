// Package gate implements the human-in-the-loop approval lifecycle: a risky
// automated action is parked behind a gate record in the shared store and
// resumes only after a human decision, or expires. The store is the single
// source of truth; no in-process state survives a restart.
package gate
