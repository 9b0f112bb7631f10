package approval

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion is stamped into every stored record so that readers can
// detect documents written by an incompatible revision.
const SchemaVersion = 1

// ErrCorruptRecord indicates a stored document that does not parse as the
// expected JSON shape. It is an integrity failure, not a transient condition,
// and must be surfaced to the caller rather than treated as absence.
var ErrCorruptRecord = errors.New("approval: corrupt stored record")

// Encode serialises a record as a flat JSON document with a "v" schema
// version field injected alongside the record's own fields. Keeping the
// document flat preserves compatibility with data written before the codec
// existed.
func Encode(record interface{}) ([]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record %T: %w", record, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to encode record %T: %w", record, err)
	}
	fields["v"] = json.RawMessage(fmt.Sprintf("%d", SchemaVersion))
	return json.Marshal(fields)
}

// Decode deserialises a document produced by Encode into target. Documents
// without a version field (legacy writers) decode the same way; documents
// from a newer schema are rejected as corrupt rather than silently
// misinterpreted.
func Decode(data []byte, target interface{}) error {
	var version struct {
		V int `json:"v"`
	}
	if err := json.Unmarshal(data, &version); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if version.V > SchemaVersion {
		return fmt.Errorf("%w: unsupported schema version %d", ErrCorruptRecord, version.V)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return nil
}
