package linalg

import "gonum.org/v1/gonum/mat"

// DenseViewOf returns an n-by-1 matrix sharing the storage of vec.
// Writes through either object are visible in the other.
// Vec must be of unit increment, which holds for any vector created
// with mat.NewVecDense.
func DenseViewOf(vec *mat.VecDense) *mat.Dense {
	rawVec := vec.RawVector()
	if rawVec.Inc != 1 {
		panic("linalg: cannot view a strided vector as a dense matrix")
	}
	return mat.NewDense(rawVec.N, 1, rawVec.Data[:rawVec.N])
}

// RowVecView returns a vector sharing the storage of row i of m.
func RowVecView(m *mat.Dense, i int) *mat.VecDense {
	_, c := m.Dims()
	return mat.NewVecDense(c, m.RawRowView(i))
}
