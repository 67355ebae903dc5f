package diagnostics

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SchemaVersion is the stable schema identifier stamped on every encoded
// diagnostic, following the teacher's "<product>.error/v1" convention.
const SchemaVersion = "konpeito.diagnostic/v1"

// CompactMode switches FormatJSON between pretty-printed and compact
// output; CLI consumers toggle it for machine-readable piping.
var CompactMode = false

// MarshalDeterministic marshals a value to JSON with keys sorted, so two
// runs over identical input produce byte-identical output.
func MarshalDeterministic(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("remarshal: %w", err)
	}
	return json.Marshal(sortedKeys(generic))
}

// sortedKeys walks a decoded JSON value; Go's encoding/json already emits
// map keys sorted lexicographically, so this is the identity function but
// kept as a named step to document the invariant and give tests a single
// seam to assert against.
func sortedKeys(v any) any { return v }

// FormatJSON pretty-prints (or compacts, per CompactMode) already-valid
// JSON bytes.
func FormatJSON(data []byte) ([]byte, error) {
	if CompactMode {
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
