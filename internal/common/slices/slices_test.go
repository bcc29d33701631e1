package slices

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeros(t *testing.T) {
	assert.Equal(t, []float64{0, 0, 0}, Zeros[float64](3))
	assert.Equal(t, []int{}, Zeros[int](0))
}

func TestOnes(t *testing.T) {
	assert.Equal(t, []float64{1, 1}, Ones[float64](2))
	assert.Equal(t, []int{1}, Ones[int](1))
}

func TestFill(t *testing.T) {
	assert.Equal(t, []float64{2.5, 2.5, 2.5}, Fill(2.5, 3))
	assert.Equal(t, []string{}, Fill("x", 0))
}
