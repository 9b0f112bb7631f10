// Package policy decides whether an automated action needs a human approval
// gate before its effects are committed. The engine is a pure decision
// function over an ordered rule list plus per-tier cost thresholds; it holds
// no external dependencies and fails closed: any internal evaluation failure
// yields "approval required".
package policy
