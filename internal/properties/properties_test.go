package properties

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := ParseString(`
# activity types
activity_type_running=Running
activity_type_cycling = "Cycling"
url=https://example.com/?a=b

broken_line
`)
	require.NoError(t, err)

	assert.Equal(t, []string{"activity_type_running", "activity_type_cycling", "url", "broken_line"}, p.Keys)
	assert.Equal(t, "Cycling", p.Values["activity_type_cycling"])
	// only the first '=' separates key and value
	assert.Equal(t, "https://example.com/?a=b", p.Values["url"])
	assert.Equal(t, "", p.Values["broken_line"])
}

func TestParseDuplicateKeepsFirstPosition(t *testing.T) {
	p, err := ParseString("a=1\nb=2\na=3\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, p.Keys)
	assert.Equal(t, "3", p.Values["a"])
}

func TestValueOrKey(t *testing.T) {
	p, err := ParseString("activity_type_running=Running")
	require.NoError(t, err)
	assert.Equal(t, "Running", p.ValueOrKey("activity_type_running"))
	assert.Equal(t, "activity_type_yoga", p.ValueOrKey("activity_type_yoga"))

	var empty Properties
	assert.Equal(t, "x", empty.ValueOrKey("x"))
}
