package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical_Strings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "Monday 3-6pm", "monday 3-6pm"},
		{"collapse whitespace", "monday   3-6pm", "monday 3-6pm"},
		{"trim", "  active  ", "active"},
		{"tabs and newlines", "mon\t3pm\n6pm", "mon 3pm 6pm"},
		{"already canonical", "monday 3-6pm", "monday 3-6pm"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StringValue(tc.in).Canonical())
		})
	}
}

func TestCanonical_WhitespaceCaseInsensitive(t *testing.T) {
	// Same candidate bucket.
	a := StringValue("Monday 3-6pm")
	b := StringValue("monday   3-6pm")
	assert.Equal(t, a.Canonical(), b.Canonical())

	// Distinct candidates: no semantic time parsing.
	c := StringValue("3-6pm")
	d := StringValue("3:00-6:00pm")
	assert.NotEqual(t, c.Canonical(), d.Canonical())
}

func TestCanonical_Primitives(t *testing.T) {
	assert.Equal(t, "15", NumberValue(15).Canonical())
	assert.Equal(t, "3.5", NumberValue(3.5).Canonical())
	assert.Equal(t, "true", BoolValue(true).Canonical())
	assert.Equal(t, "false", BoolValue(false).Canonical())
	assert.Equal(t, "null", NullValue().Canonical())
	assert.Equal(t, "null", Value{}.Canonical())
}

func TestCanonical_MapKeyOrderIrrelevant(t *testing.T) {
	a := MapValue(map[string]Value{
		"start": StringValue("15:00"),
		"end":   StringValue("18:00"),
	})
	b := MapValue(map[string]Value{
		"end":   StringValue("18:00"),
		"start": StringValue("15:00"),
	})
	assert.Equal(t, a.Canonical(), b.Canonical())
	assert.Equal(t, "{end:18:00,start:15:00}", a.Canonical())
}

func TestCanonical_ListOrderIrrelevant(t *testing.T) {
	a := ListValue(StringValue("bar"), StringValue("patio"))
	b := ListValue(StringValue("patio"), StringValue("bar"))
	assert.Equal(t, a.Canonical(), b.Canonical())
	assert.Equal(t, "[bar,patio]", a.Canonical())
}

func TestCanonical_Nested(t *testing.T) {
	v := MapValue(map[string]Value{
		"days":  ListValue(StringValue("Mon"), StringValue("Tue")),
		"price": NumberValue(5),
	})
	assert.Equal(t, "{days:[mon,tue],price:5}", v.Canonical())
}

func TestValue_JSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"string", `"3-6pm"`},
		{"number", `4.5`},
		{"bool", `true`},
		{"null", `null`},
		{"list", `["bar","patio"]`},
		{"map", `{"start":"15:00","end":"18:00"}`},
		{"nested", `{"offers":[{"item":"wells","price":5}]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tc.in), &v))
			out, err := json.Marshal(v)
			require.NoError(t, err)

			// Round-trip again; canonical forms must agree.
			var v2 Value
			require.NoError(t, json.Unmarshal(out, &v2))
			assert.Equal(t, v.Canonical(), v2.Canonical())
		})
	}
}

func TestValue_UnmarshalKinds(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`"active"`), &v))
	assert.Equal(t, KindString, v.Kind())
	s, ok := v.AsString()
	assert.True(t, ok)
	assert.Equal(t, "active", s)

	require.NoError(t, json.Unmarshal([]byte(`17`), &v))
	n, ok := v.AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 17.0, n)

	require.NoError(t, json.Unmarshal([]byte(`false`), &v))
	b, ok := v.AsBool()
	assert.True(t, ok)
	assert.False(t, b)

	require.NoError(t, json.Unmarshal([]byte(`[1,2]`), &v))
	list, ok := v.AsList()
	assert.True(t, ok)
	assert.Len(t, list, 2)

	require.NoError(t, json.Unmarshal([]byte(`{"a":1}`), &v))
	m, ok := v.AsMap()
	assert.True(t, ok)
	assert.Len(t, m, 1)
}

func TestValue_AccessorsWrongKind(t *testing.T) {
	v := StringValue("x")
	_, ok := v.AsNumber()
	assert.False(t, ok)
	_, ok = v.AsBool()
	assert.False(t, ok)
	_, ok = v.AsList()
	assert.False(t, ok)
	_, ok = v.AsMap()
	assert.False(t, ok)
}
