package maint

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Params are the members of a request object. JSON null counts as absent
// everywhere except Raw.
type Params map[string]json.RawMessage

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// Raw returns the member verbatim, including an explicit null.
func (p Params) Raw(name string) (json.RawMessage, bool) {
	raw, ok := p[name]
	return raw, ok
}

// Has reports whether name is present and not null.
func (p Params) Has(name string) bool {
	raw, ok := p[name]
	return ok && !isNull(raw)
}

// String returns a string member. Other scalars are returned in their JSON form.
func (p Params) String(name string) (string, bool) {
	raw, ok := p[name]
	if !ok || isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", false
	}
	return buf.String(), true
}

// Bool returns a member as a flag. Numbers are true when non-zero; strings are
// true unless empty, "0" or "false".
func (p Params) Bool(name string) (bool, bool) {
	raw, ok := p[name]
	if !ok || isNull(raw) {
		return false, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		return t != 0, true
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		return s != "" && s != "0" && s != "false", true
	}
	return true, true
}

// Int returns a member as an integer. Numbers are truncated, strings must hold an
// integer and booleans map to 0 and 1.
func (p Params) Int(name string) (int, bool) {
	raw, ok := p[name]
	if !ok || isNull(raw) {
		return 0, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || t > math.MaxInt32 || t < math.MinInt32 {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Object returns a member that is itself an object.
func (p Params) Object(name string) (Params, bool) {
	raw, ok := p[name]
	if !ok || isNull(raw) {
		return nil, false
	}
	var obj Params
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
