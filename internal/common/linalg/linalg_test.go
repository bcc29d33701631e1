package linalg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	segaslices "github.com/armadaproject/sega/internal/common/slices"
)

func TestDenseViewOf(t *testing.T) {
	vec := mat.NewVecDense(3, []float64{1, 2, 3})
	view := DenseViewOf(vec)
	r, c := view.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 1, c)

	// Writes through the view are visible in the vector and vice versa.
	view.Set(0, 0, 10)
	assert.Equal(t, 10.0, vec.AtVec(0))
	vec.SetVec(2, 30)
	assert.Equal(t, 30.0, view.At(2, 0))
}

func TestRowVecView(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	row := RowVecView(m, 1)
	assert.Equal(t, []float64{4, 5, 6}, row.RawVector().Data)

	row.SetVec(0, 40)
	assert.Equal(t, 40.0, m.At(1, 0))
}

func TestRowVecViewZeroRow(t *testing.T) {
	m := mat.NewDense(1, 2, segaslices.Zeros[float64](2))
	row := RowVecView(m, 0)
	assert.Equal(t, segaslices.Zeros[float64](2), row.RawVector().Data)
}
