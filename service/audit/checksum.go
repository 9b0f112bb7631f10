package audit

import (
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/blake2b"
)

// checksum computes the chained digest of an entry: blake2b-256 over the
// previous entry's checksum concatenated with this entry's canonical JSON
// (checksum field blanked). Any in-place edit of a stored entry breaks the
// chain of every newer entry.
func checksum(prev string, e *Entry) string {
	canonical := *e
	canonical.Checksum = ""
	data, err := json.Marshal(&canonical)
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(append([]byte(prev), data...))
	return hex.EncodeToString(sum[:])
}

// verifyChain walks entries from newest to oldest and reports the index of
// the first entry whose checksum does not match, or -1 when the chain is
// intact. Entries written before chaining existed (empty checksum) terminate
// the walk, as does the oldest retained entry: its predecessor may have been
// trimmed away, so its own digest cannot be recomputed.
func verifyChain(entries []*Entry) int {
	for i := 0; i < len(entries); i++ {
		if entries[i].Checksum == "" {
			return -1
		}
		if i+1 >= len(entries) {
			return -1
		}
		if entries[i].Checksum != checksum(entries[i+1].Checksum, entries[i]) {
			return i
		}
	}
	return -1
}
