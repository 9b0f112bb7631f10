// Package gatekeeper pauses risky automated-agent actions behind a human
// approval gate. A caller asks the policy engine whether an action needs
// sign-off; if so it opens a gate and blocks (or polls) until a reviewer
// approves, rejects or the gate expires. Decisions feed an append-only
// compliance trail, a feedback collector and a post-decision override
// facility. All authoritative state lives in a shared TTL-based key-value
// store, so any number of processes can cooperate on the same gates.
package gatekeeper
