package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Value is a report field: either a string or a boolean.
//
// Booleans stay booleans in memory. At the encoding boundary a false boolean
// is written as the empty string, which is how downstream consumers of the
// summary have always seen "no" values. A true boolean encodes as JSON true
// and reads as "True" in text.
type Value struct {
	isBool bool
	b      bool
	s      string
}

// String returns a string value.
func String(s string) Value {
	return Value{s: s}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{isBool: true, b: b}
}

// ValueOf converts a decoded JSON or YAML scalar into a Value. Nil becomes
// the empty string; numbers and other scalars use their text form. Decoders
// keep numeric literals as written (see UnmarshalJSON and UnmarshalYAML), so
// a version such as 10.10 never passes through float64.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return String("")
	case Value:
		return x
	case bool:
		return Bool(x)
	case string:
		return String(x)
	case json.Number:
		return String(x.String())
	case float64:
		return String(strconv.FormatFloat(x, 'f', -1, 64))
	default:
		return String(fmt.Sprint(x))
	}
}

// IsBool reports whether v holds a boolean.
func (v Value) IsBool() bool {
	return v.isBool
}

// Bool returns the boolean held by v, or false for a string value.
func (v Value) Bool() bool {
	return v.isBool && v.b
}

// Truthy reports whether v is a true boolean or a non-empty string.
func (v Value) Truthy() bool {
	if v.isBool {
		return v.b
	}
	return v.s != ""
}

// String returns the text form of v.
func (v Value) String() string {
	if v.isBool {
		if v.b {
			return "True"
		}
		return ""
	}
	return v.s
}

// Equal reports whether two values hold the same kind and content.
func (v Value) Equal(other Value) bool {
	return v == other
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isBool && v.b {
		return []byte("true"), nil
	}
	return json.Marshal(v.String())
}

// UnmarshalJSON implements json.Unmarshaler. Numbers keep their literal
// text.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = ValueOf(raw)
	return nil
}

// UnmarshalYAML implements yaml.BytesUnmarshaler. Booleans, strings and
// nulls decode as usual; any other scalar keeps its source text.
func (v *Value) UnmarshalYAML(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.(type) {
	case nil, bool, string, map[string]any, []any:
		*v = ValueOf(raw)
	default:
		*v = String(scalarText(data))
	}
	return nil
}

// scalarText returns a plain scalar as written, without comments.
func scalarText(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line != "" && !strings.HasPrefix(line, "#") {
			return line
		}
	}
	return ""
}

// MarshalYAML encodes v the same way as MarshalJSON.
func (v Value) MarshalYAML() (any, error) {
	if v.isBool && v.b {
		return true, nil
	}
	return v.String(), nil
}
