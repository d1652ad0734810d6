package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFullWeight(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		want  bool
	}{
		{"exact", 100, true},
		{"rescaled thirds", 44.44 + 44.44 + 11.11, true},
		{"one cent under", 99.99, true},
		{"one cent over", 100.01, true},
		{"just past tolerance over", 100.014, false},
		{"just past tolerance under", 99.986, false},
		{"short", 90, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFullWeight(tt.total))
		})
	}
}

func TestTotalWeight_PastToleranceIsNotFull(t *testing.T) {
	total := TotalWeight([]CategoryConfig{{Name: "A", Weight: 60}, {Name: "B", Weight: 40.014}})
	assert.False(t, IsFullWeight(total))
}
