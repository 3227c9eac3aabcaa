package sanitize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilBecomesNull(t *testing.T) {
	assert.Nil(t, Value(nil))
}

func TestTypedNilPointerBecomesNull(t *testing.T) {
	var p *string
	assert.Nil(t, Value(p))

	var m map[string]any
	assert.Nil(t, Value(m))

	var s []any
	assert.Nil(t, Value(s))
}

func TestMapAndArrayRecursion(t *testing.T) {
	in := map[string]any{
		"a": nil,
		"b": []any{1, nil},
	}
	got := Value(in)

	want := map[string]any{
		"a": nil,
		"b": []any{1, nil},
	}
	assert.Equal(t, want, got)
}

func TestNestedAbsentFields(t *testing.T) {
	var missing *int
	in := map[string]any{
		"outer": map[string]any{
			"present": "x",
			"absent":  missing,
		},
		"list": []any{map[string]any{"v": missing}},
	}

	got, ok := Value(in).(map[string]any)
	assert.True(t, ok)
	outer := got["outer"].(map[string]any)
	assert.Equal(t, "x", outer["present"])
	assert.Nil(t, outer["absent"])
	assert.Nil(t, got["list"].([]any)[0].(map[string]any)["v"])
}

func TestTimestampPassesThrough(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got := Value(map[string]any{"createdAt": now})
	assert.Equal(t, now, got.(map[string]any)["createdAt"])

	// A nil *time.Time is still an absent value.
	var absent *time.Time
	assert.Nil(t, Value(absent))
}

func TestIdempotent(t *testing.T) {
	var missing *bool
	in := map[string]any{
		"a": missing,
		"b": []any{nil, "x", map[string]any{"c": missing}},
		"t": time.Now().UTC(),
	}

	once := Value(in)
	twice := Value(once)
	assert.Equal(t, once, twice)
}

func TestScalarsUnchanged(t *testing.T) {
	assert.Equal(t, 42, Value(42))
	assert.Equal(t, "x", Value("x"))
	assert.Equal(t, true, Value(true))
	assert.Equal(t, 1.5, Value(1.5))
}

func TestInputNotMutated(t *testing.T) {
	inner := []any{nil, "keep"}
	in := map[string]any{"list": inner}

	got := Value(in).(map[string]any)
	got["list"].([]any)[1] = "changed"

	assert.Equal(t, "keep", inner[1])
}
