package activity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrefersDetail(t *testing.T) {
	summary := Record{"startLatitude": json.Number("47.1")}
	detail := Record{"summaryDTO": map[string]any{"startLatitude": json.Number("47.2")}}

	assert.Equal(t, json.Number("47.2"), Resolve("startLatitude", summary, detail, "summaryDTO"))
}

func TestResolveFallsBackToSummary(t *testing.T) {
	summary := Record{"startLatitude": json.Number("47.1")}

	cases := map[string]Record{
		"no container":    {},
		"null container":  {"summaryDTO": nil},
		"missing field":   {"summaryDTO": map[string]any{"other": json.Number("1")}},
		"null field":      {"summaryDTO": map[string]any{"startLatitude": nil}},
		"zero field":      {"summaryDTO": map[string]any{"startLatitude": json.Number("0")}},
		"empty container": {"summaryDTO": map[string]any{}},
	}
	for name, detail := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, json.Number("47.1"), Resolve("startLatitude", summary, detail, "summaryDTO"))
		})
	}
}

func TestResolveBothAbsent(t *testing.T) {
	assert.Nil(t, Resolve("startLatitude", Record{}, Record{}, "summaryDTO"))
	assert.Nil(t, Resolve("startLatitude", nil, nil, "summaryDTO"))
	// a summary zero is absent too
	assert.Nil(t, Resolve("distance", Record{"distance": json.Number("0.0")}, nil, "summaryDTO"))
}

// Zero and empty values are deliberately reported as absent so they become empty CSV cells.
func TestAbsentOrNullTreatsFalsyAsAbsent(t *testing.T) {
	r := Record{
		"zero":     json.Number("0"),
		"zeroF":    json.Number("0.0"),
		"empty":    "",
		"null":     nil,
		"false":    false,
		"list":     []any{},
		"distance": json.Number("1523.4"),
		"name":     "Run",
		"flag":     true,
	}
	for _, k := range []string{"zero", "zeroF", "empty", "null", "false", "list", "missing"} {
		assert.True(t, AbsentOrNull(k, r), k)
	}
	for _, k := range []string{"distance", "name", "flag"} {
		assert.True(t, Present(k, r), k)
	}
	assert.True(t, AbsentOrNull("x", nil))
}

func TestDecodeKeepsNumberText(t *testing.T) {
	r, err := Decode([]byte(`{"maxHR": 150, "avg": 141.0, "summaryDTO": {"calories": 512.5}}`))
	require.NoError(t, err)

	assert.Equal(t, "150", r.String("maxHR"))
	assert.Equal(t, "141.0", r.String("avg"))
	assert.Equal(t, "512.5", r.Sub("summaryDTO").String("calories"))

	f, ok := r.Float("avg")
	require.True(t, ok)
	assert.Equal(t, 141.0, f)

	_, err = Decode([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestDecodeList(t *testing.T) {
	rs, err := DecodeList([]byte(`[{"activityId": 1}, {"activityId": 2}]`))
	require.NoError(t, err)
	require.Len(t, rs, 2)
	id, ok := rs[1].Int("activityId")
	assert.True(t, ok)
	assert.Equal(t, 2, id)
}
