// Package audit keeps the append-only compliance trail of approval
// decisions and derives periodic compliance reports from it. Entries are
// checksum-chained so that tampering with a stored record is detectable.
package audit
