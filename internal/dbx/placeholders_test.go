package dbx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		start, n int
		want     string
	}{
		{name: "empty", start: 1, n: 0, want: ""},
		{name: "single", start: 1, n: 1, want: "$1"},
		{name: "offset", start: 2, n: 3, want: "$2, $3, $4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Placeholders(tt.start, tt.n))
		})
	}
}

func TestStringArgs(t *testing.T) {
	got := StringArgs([]string{"a", "b"})
	assert.Equal(t, []any{"a", "b"}, got)
	assert.Empty(t, StringArgs(nil))
}
