// Package override lets a privileged human modify or reject a gate's output
// after the decision was recorded: direct content replacement, rejection
// with rework instructions, and a small catalog of canned override
// templates.
package override
