package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Text is an upstream string field that the marketplace sometimes serves as
// a JSON number. Both decode into the same textual form.
type Text string

// UnmarshalJSON accepts a JSON string or number.
func (t *Text) UnmarshalJSON(b []byte) error {
	s, err := decodeText(b)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

func (t Text) String() string { return string(t) }

// ID is an opaque upstream identifier, string or number on the wire.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(b []byte) error {
	s, err := decodeText(b)
	if err != nil {
		return err
	}
	*id = ID(s)
	return nil
}

func (id ID) String() string { return string(id) }

func decodeText(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", fmt.Errorf("expected a string or number, got %s", b)
	}
	return n.String(), nil
}
