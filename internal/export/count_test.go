package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want Count
	}{
		{"1", Count{Mode: CountN, N: 1}},
		{"0", Count{Mode: CountN, N: 0}},
		{" 25 ", Count{Mode: CountN, N: 25}},
		{"all", Count{Mode: CountAll}},
		{"ALL", Count{Mode: CountAll}},
		{"new", Count{Mode: CountNew}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "-1", "some", "1.5"} {
		_, err := ParseCount(bad)
		assert.ErrorIs(t, err, ErrInvalidCount, bad)
	}
}

func TestCountResolve(t *testing.T) {
	assert.Equal(t, 7, Count{Mode: CountN, N: 7}.resolve(100, 50))
	assert.Equal(t, 100, Count{Mode: CountAll}.resolve(100, 50))
	assert.Equal(t, 50, Count{Mode: CountNew}.resolve(100, 50))
	assert.Equal(t, 0, Count{Mode: CountNew}.resolve(40, 50))
	assert.Equal(t, "new", Count{Mode: CountNew}.String())
	assert.Equal(t, "7", Count{Mode: CountN, N: 7}.String())
}

func TestPageSize(t *testing.T) {
	assert.Equal(t, 1000, PageSize(2500, 1000))
	assert.Equal(t, 500, PageSize(500, 1000))
	assert.Equal(t, 2, PageSize(5, 2))
	assert.Equal(t, 1000, PageSize(5000, 0))
	assert.Equal(t, 1000, PageSize(5000, 4000))
}
