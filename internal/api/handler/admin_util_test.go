package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampQueryInt(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", defaultListLimit},
		{"abc", defaultListLimit},
		{"0", defaultListLimit},
		{"-3", defaultListLimit},
		{" 20 ", 20},
		{"200", 200},
		{"5000", maxListLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampQueryInt(tt.raw, defaultListLimit), "limit=%q", tt.raw)
	}
}

func TestClampNonNegativeQueryInt(t *testing.T) {
	assert.Equal(t, 0, clampNonNegativeQueryInt("", 0))
	assert.Equal(t, 0, clampNonNegativeQueryInt("-1", 0))
	assert.Equal(t, 7, clampNonNegativeQueryInt("7", 0))
}
