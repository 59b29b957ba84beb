package model

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
)

// ValueKind identifies which arm of the Value sum type is populated.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

// Value is a closed sum type for claim field values: a primitive, an ordered
// list, or a string-keyed map. Claims carry arbitrary extracted JSON, so the
// engine never inspects a value beyond equality on its canonical form.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []Value
	obj  map[string]Value
}

// NullValue returns the null Value. The zero Value is also null.
func NullValue() Value { return Value{kind: KindNull} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps a number.
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// ListValue wraps a list of values.
func ListValue(items ...Value) Value { return Value{kind: KindList, list: items} }

// MapValue wraps a string-keyed map of values.
func MapValue(m map[string]Value) Value { return Value{kind: KindMap, obj: m} }

// Kind reports which arm of the sum type this value is.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is null (including the zero Value).
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string arm, or false if the value is not a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsNumber returns the numeric arm, or false if the value is not a number.
func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsBool returns the bool arm, or false if the value is not a bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsList returns the list arm, or false if the value is not a list.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsMap returns the map arm, or false if the value is not a map.
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.obj, true
}

var whitespaceFields = strings.Fields

// Canonical returns the normalized comparison form of a value. Two claims
// whose values canonicalize identically support the same candidate.
//
// Rules:
//   - strings: case-folded, trimmed, internal whitespace runs collapsed
//   - numbers and bools: stringified as-is
//   - lists: element canonical forms, sorted, joined as [a,b,...]
//   - maps: key-sorted {k:canonical,...}
//
// No fuzzy matching beyond this: "3-6pm" and "3:00-6:00pm" stay distinct.
func (v Value) Canonical() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		folded := cases.Fold().String(v.str)
		return strings.Join(whitespaceFields(folded), " ")
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.Canonical()
		}
		sort.Strings(parts)
		return "[" + strings.Join(parts, ",") + "]"
	case KindMap:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ":" + v.obj[k].Canonical()
		}
		return "{" + strings.Join(parts, ",") + "}"
	}
	return ""
}

// MarshalJSON renders the value as its native JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		return json.Marshal(v.list)
	case KindMap:
		return json.Marshal(v.obj)
	}
	return nil, eris.Errorf("model: unknown value kind %d", v.kind)
}

// UnmarshalJSON parses arbitrary JSON into the sum type. Numbers always land
// on the number arm as float64, matching encoding/json's default.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = NullValue()
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: unmarshal string value")
		}
		*v = StringValue(s)
	case '[':
		var list []Value
		if err := json.Unmarshal(data, &list); err != nil {
			return eris.Wrap(err, "model: unmarshal list value")
		}
		*v = ListValue(list...)
	case '{':
		var obj map[string]Value
		if err := json.Unmarshal(data, &obj); err != nil {
			return eris.Wrap(err, "model: unmarshal map value")
		}
		*v = MapValue(obj)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return eris.Wrap(err, "model: unmarshal bool value")
		}
		*v = BoolValue(b)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return eris.Wrap(err, "model: unmarshal number value")
		}
		*v = NumberValue(n)
	}
	return nil
}
