package stimulus

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Word is a numeric stimulus value. In files it may be written as a plain
// integer, as a string with a Go-style prefix ("0x80000000", "0b1010"), or
// as a physical address in base_offset form ("0x80000000_004").
type Word uint64

// ParseWord parses a decimal or prefixed integer literal. A literal of eight
// hex digits, an underscore and three hex digits is read as a physical
// address: base<<10 | offset.
func ParseWord(s string) (Word, error) {
	if w, ok := parsePhysical(s); ok {
		return w, nil
	}

	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid word %q: %w", s, err)
	}
	return Word(v), nil
}

func parsePhysical(s string) (Word, bool) {
	base, offset, ok := strings.Cut(s, "_")
	if !ok || len(base) != 10 || len(offset) != 3 ||
		!(strings.HasPrefix(base, "0x") || strings.HasPrefix(base, "0X")) {
		return 0, false
	}

	b, err := strconv.ParseUint(base[2:], 16, 32)
	if err != nil {
		return 0, false
	}
	o, err := strconv.ParseUint(offset, 16, 16)
	if err != nil || o > 0x3FF {
		return 0, false
	}
	return Word(b<<10 | o), true
}

// String renders the word in hex.
func (w Word) String() string {
	return fmt.Sprintf("0x%X", uint64(w))
}

// UnmarshalYAML accepts integer and string scalars.
func (w *Word) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: word must be a scalar", node.Line)
	}
	v, err := ParseWord(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*w = v
	return nil
}

// MarshalYAML writes the word as a hex string.
func (w Word) MarshalYAML() (interface{}, error) {
	return w.String(), nil
}

// UnmarshalJSON accepts numbers and strings.
func (w *Word) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = string(data)
	}
	v, err := ParseWord(s)
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// MarshalJSON writes the word as a hex string.
func (w Word) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.String())
}
