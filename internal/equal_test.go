package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEqual(t *testing.T) {
	type point struct{ X, Y int }
	type tagged struct {
		Name string
		Tags []string
	}
	err := errors.New("oops")

	tests := []struct {
		name  string
		a, b  any
		equal bool
	}{
		{"ints", 1, 1, true},
		{"different ints", 1, 2, false},
		{"different types", 1, int64(1), false},
		{"nils", nil, nil, true},
		{"nil and value", nil, 0, false},
		{"structs", point{1, 2}, point{1, 2}, true},
		{"slices", []int{1, 2}, []int{1, 2}, true},
		{"different slices", []int{1, 2}, []int{2, 1}, false},
		{"maps", map[string]int{"a": 1}, map[string]int{"a": 1}, true},
		{"struct holding a slice", tagged{"a", []string{"x"}}, tagged{"a", []string{"x"}}, true},
		{"same error", err, err, true},
		{"distinct errors with the same text", errors.New("oops"), err, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, isEqual(tt.a, tt.b))
		})
	}
}
