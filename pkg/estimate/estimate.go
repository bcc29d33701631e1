// Package estimate provides the gradient-shaped numeric containers on which
// the projection engine and the SEGA estimators operate. An estimate is a
// vector, a matrix whose columns are independent parameter blocks, or a
// sequence of equally sized parameter vectors; all three expose a uniform
// column-wise surface so that the projection routines need no per-shape code.
package estimate

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/armadaproject/sega/internal/common/linalg"
	"github.com/armadaproject/sega/internal/common/segaerrors"
)

// Kind identifies the shape category of an estimate.
type Kind int

const (
	// KindVector is a rank-1 estimate: a single parameter vector.
	KindVector Kind = iota
	// KindMatrix is a rank-2 estimate; each column is an independent parameter block.
	KindMatrix
	// KindBlocks is a sequence of equally sized parameter vectors.
	KindBlocks
)

func (k Kind) String() string {
	switch k {
	case KindVector:
		return "vector"
	case KindMatrix:
		return "matrix"
	case KindBlocks:
		return "blocks"
	}
	return "unknown"
}

// Estimate holds one gradient-shaped array. Exactly one of vec, dense, and
// blocks is non-nil, according to kind. All elements are float64, the gonum
// scalar type.
//
// An estimate either owns its storage (New* constructors, Clone) or borrows
// caller storage for its lifetime (From* constructors), in which case writes
// through the estimate are visible in the caller's array and vice versa and
// the caller is responsible for serializing access.
type Estimate struct {
	kind   Kind
	rows   int
	cols   int
	vec    *mat.VecDense
	dense  *mat.Dense
	blocks []*mat.VecDense
}

// NewVector returns an owned, zero-initialized vector estimate of length n.
func NewVector(n int) (*Estimate, error) {
	if n < 1 {
		return nil, errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "n",
			Value:   n,
			Message: "vector length must be at least 1",
		})
	}
	return &Estimate{kind: KindVector, rows: n, cols: 1, vec: mat.NewVecDense(n, nil)}, nil
}

// NewMatrix returns an owned, zero-initialized matrix estimate with the given
// dimensions.
func NewMatrix(rows, cols int) (*Estimate, error) {
	if rows < 1 || cols < 1 {
		return nil, errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "rows, cols",
			Value:   []int{rows, cols},
			Message: "matrix dimensions must be at least 1",
		})
	}
	return &Estimate{kind: KindMatrix, rows: rows, cols: cols, dense: mat.NewDense(rows, cols, nil)}, nil
}

// NewBlocks returns an owned, zero-initialized estimate made up of blocks
// vectors of length rows each.
func NewBlocks(rows, blocks int) (*Estimate, error) {
	if rows < 1 || blocks < 1 {
		return nil, errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "rows, blocks",
			Value:   []int{rows, blocks},
			Message: "block dimensions must be at least 1",
		})
	}
	vs := make([]*mat.VecDense, blocks)
	for j := range vs {
		vs[j] = mat.NewVecDense(rows, nil)
	}
	return &Estimate{kind: KindBlocks, rows: rows, cols: blocks, blocks: vs}, nil
}

// MustVector is like NewVector but panics on error.
func MustVector(n int) *Estimate {
	e, err := NewVector(n)
	if err != nil {
		panic(err)
	}
	return e
}

// MustMatrix is like NewMatrix but panics on error.
func MustMatrix(rows, cols int) *Estimate {
	e, err := NewMatrix(rows, cols)
	if err != nil {
		panic(err)
	}
	return e
}

// MustBlocks is like NewBlocks but panics on error.
func MustBlocks(rows, blocks int) *Estimate {
	e, err := NewBlocks(rows, blocks)
	if err != nil {
		panic(err)
	}
	return e
}

// FromVec returns a vector estimate borrowing the storage of vec.
// Vec must be of unit increment, which holds for any vector created with
// mat.NewVecDense.
func FromVec(vec *mat.VecDense) (*Estimate, error) {
	if vec == nil || vec.Len() == 0 {
		return nil, errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "vec",
			Value:   vec,
			Message: "vector must be non-empty",
		})
	}
	if vec.RawVector().Inc != 1 {
		return nil, errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "vec",
			Value:   vec,
			Message: "vector must be of unit increment",
		})
	}
	return &Estimate{kind: KindVector, rows: vec.Len(), cols: 1, vec: vec}, nil
}

// FromDense returns a matrix estimate borrowing the storage of m.
func FromDense(m *mat.Dense) (*Estimate, error) {
	if m == nil || m.IsEmpty() {
		return nil, errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "m",
			Value:   m,
			Message: "matrix must be non-empty",
		})
	}
	r, c := m.Dims()
	return &Estimate{kind: KindMatrix, rows: r, cols: c, dense: m}, nil
}

// FromBlocks returns a block estimate borrowing the storage of blocks, all of
// which must be non-empty, of unit increment, and of equal length.
func FromBlocks(blocks []*mat.VecDense) (*Estimate, error) {
	if len(blocks) == 0 {
		return nil, errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "blocks",
			Value:   blocks,
			Message: "at least one block is required",
		})
	}
	rows := 0
	for j, b := range blocks {
		if b == nil || b.Len() == 0 {
			return nil, errors.WithStack(&segaerrors.ErrInvalidArgument{
				Name:    "blocks",
				Value:   b,
				Message: "blocks must be non-empty",
			})
		}
		if b.RawVector().Inc != 1 {
			return nil, errors.WithStack(&segaerrors.ErrInvalidArgument{
				Name:    "blocks",
				Value:   b,
				Message: "blocks must be of unit increment",
			})
		}
		if j == 0 {
			rows = b.Len()
		} else if b.Len() != rows {
			return nil, errors.WithStack(&segaerrors.ErrShapeMismatch{
				Name:    "blocks",
				Got:     []int{b.Len()},
				Want:    []int{rows},
				Message: "all blocks must have equal length",
			})
		}
	}
	return &Estimate{kind: KindBlocks, rows: rows, cols: len(blocks), blocks: blocks}, nil
}

// Kind returns the shape category of the estimate.
func (e *Estimate) Kind() Kind {
	return e.kind
}

// Dims returns the dimensions of the uniform 2-D view of the estimate:
// rows is the block length and cols the number of columns or blocks.
// Vector estimates have a single column.
func (e *Estimate) Dims() (rows, cols int) {
	return e.rows, e.cols
}

// Rows returns the leading dimension of the estimate.
func (e *Estimate) Rows() int {
	return e.rows
}

// Cols returns the number of columns of the uniform 2-D view.
func (e *Estimate) Cols() int {
	return e.cols
}

// Blocks returns the number of independently addressable blocks: the number
// of coordinates for a vector estimate and the number of columns otherwise.
func (e *Estimate) Blocks() int {
	if e.kind == KindVector {
		return e.rows
	}
	return e.cols
}

// BlockLen returns the length of one addressable block: 1 for a vector
// estimate and the leading dimension otherwise.
func (e *Estimate) BlockLen() int {
	if e.kind == KindVector {
		return 1
	}
	return e.rows
}

// At returns the element in row i of column j. It panics if i or j are out of
// range, following gonum conventions for element access.
func (e *Estimate) At(i, j int) float64 {
	switch e.kind {
	case KindVector:
		if j != 0 {
			panic(mat.ErrColAccess)
		}
		return e.vec.AtVec(i)
	case KindMatrix:
		return e.dense.At(i, j)
	default:
		return e.blocks[j].AtVec(i)
	}
}

// Set assigns v to the element in row i of column j. It panics if i or j are
// out of range.
func (e *Estimate) Set(i, j int, v float64) {
	switch e.kind {
	case KindVector:
		if j != 0 {
			panic(mat.ErrColAccess)
		}
		e.vec.SetVec(i, v)
	case KindMatrix:
		e.dense.Set(i, j, v)
	default:
		e.blocks[j].SetVec(i, v)
	}
}

// Zero sets all elements to zero.
func (e *Estimate) Zero() {
	switch e.kind {
	case KindVector:
		e.vec.Zero()
	case KindMatrix:
		e.dense.Zero()
	default:
		for _, b := range e.blocks {
			b.Zero()
		}
	}
}

// Clone returns an owned deep copy of e with the same kind and dimensions.
func (e *Estimate) Clone() *Estimate {
	rv := &Estimate{kind: e.kind, rows: e.rows, cols: e.cols}
	switch e.kind {
	case KindVector:
		rv.vec = mat.VecDenseCopyOf(e.vec)
	case KindMatrix:
		rv.dense = mat.DenseCopyOf(e.dense)
	default:
		rv.blocks = make([]*mat.VecDense, e.cols)
		for j, b := range e.blocks {
			rv.blocks[j] = mat.VecDenseCopyOf(b)
		}
	}
	return rv
}

// CopyFrom overwrites e with the contents of src. The two estimates must be
// of the same kind and dimensions.
func (e *Estimate) CopyFrom(src *Estimate) error {
	if err := e.checkSameShape("src", src); err != nil {
		return err
	}
	switch e.kind {
	case KindVector:
		e.vec.CopyVec(src.vec)
	case KindMatrix:
		e.dense.Copy(src.dense)
	default:
		for j, b := range e.blocks {
			b.CopyVec(src.blocks[j])
		}
	}
	return nil
}

// CopyTo overwrites dst with the contents of e. The two estimates must be of
// the same kind and dimensions.
func (e *Estimate) CopyTo(dst *Estimate) error {
	if dst == nil {
		return errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "dst",
			Value:   dst,
			Message: "destination must be non-nil",
		})
	}
	return dst.CopyFrom(e)
}

// Scale multiplies every element by alpha.
func (e *Estimate) Scale(alpha float64) {
	switch e.kind {
	case KindVector:
		e.vec.ScaleVec(alpha, e.vec)
	case KindMatrix:
		for i := 0; i < e.rows; i++ {
			floats.Scale(alpha, e.dense.RawRowView(i))
		}
	default:
		for _, b := range e.blocks {
			b.ScaleVec(alpha, b)
		}
	}
}

// AddScaled adds alpha times other to e element-wise. The two estimates must
// be of the same kind and dimensions.
func (e *Estimate) AddScaled(alpha float64, other *Estimate) error {
	if err := e.checkSameShape("other", other); err != nil {
		return err
	}
	switch e.kind {
	case KindVector:
		e.vec.AddScaledVec(e.vec, alpha, other.vec)
	case KindMatrix:
		for i := 0; i < e.rows; i++ {
			floats.AddScaled(e.dense.RawRowView(i), alpha, other.dense.RawRowView(i))
		}
	default:
		for j, b := range e.blocks {
			b.AddScaledVec(b, alpha, other.blocks[j])
		}
	}
	return nil
}

// SetBlock overwrites block i with values. For a vector estimate block i is
// coordinate i and values must have length 1; otherwise block i is column or
// block i and values must have length Rows().
func (e *Estimate) SetBlock(i int, values *mat.VecDense) error {
	if i < 0 || i >= e.Blocks() {
		return errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "i",
			Value:   i,
			Message: "block index out of range",
		})
	}
	if values == nil || values.Len() != e.BlockLen() {
		got := 0
		if values != nil {
			got = values.Len()
		}
		return errors.WithStack(&segaerrors.ErrShapeMismatch{
			Name: "values",
			Got:  []int{got},
			Want: []int{e.BlockLen()},
		})
	}
	switch e.kind {
	case KindVector:
		e.vec.SetVec(i, values.AtVec(0))
	case KindMatrix:
		for r := 0; r < e.rows; r++ {
			e.dense.Set(r, i, values.AtVec(r))
		}
	default:
		e.blocks[i].CopyVec(values)
	}
	return nil
}

// ColDot returns the inner product of s with column j. The length of s must
// equal Rows(); callers are expected to have validated this.
func (e *Estimate) ColDot(s mat.Vector, j int) float64 {
	switch e.kind {
	case KindVector:
		return mat.Dot(s, e.vec)
	case KindMatrix:
		return mat.Dot(s, e.dense.ColView(j))
	default:
		return mat.Dot(s, e.blocks[j])
	}
}

// AddScaledCol adds alpha times u to column j in place.
func (e *Estimate) AddScaledCol(j int, alpha float64, u *mat.VecDense) {
	switch e.kind {
	case KindVector:
		e.vec.AddScaledVec(e.vec, alpha, u)
	case KindMatrix:
		for i := 0; i < e.rows; i++ {
			e.dense.Set(i, j, e.dense.At(i, j)+alpha*u.AtVec(i))
		}
	default:
		e.blocks[j].AddScaledVec(e.blocks[j], alpha, u)
	}
}

// DenseView returns a Rows()-by-Cols() dense matrix view of the estimate
// together with a flush function. For vector and matrix estimates the view
// aliases the underlying storage and flush is a no-op; for block estimates
// the view is a copy and flush writes it back into the blocks.
func (e *Estimate) DenseView() (*mat.Dense, func()) {
	switch e.kind {
	case KindVector:
		return linalg.DenseViewOf(e.vec), func() {}
	case KindMatrix:
		return e.dense, func() {}
	default:
		d := mat.NewDense(e.rows, e.cols, nil)
		for j, b := range e.blocks {
			d.SetCol(j, b.RawVector().Data)
		}
		return d, func() {
			for j, b := range e.blocks {
				mat.Col(b.RawVector().Data, j, d)
			}
		}
	}
}

// Shape returns the dimensions of the estimate for error reporting: [n] for
// vectors and [rows, cols] otherwise.
func (e *Estimate) Shape() []int {
	if e.kind == KindVector {
		return []int{e.rows}
	}
	return []int{e.rows, e.cols}
}

// EqualShape reports whether other has the same kind and dimensions as e.
func (e *Estimate) EqualShape(other *Estimate) bool {
	return other != nil && other.kind == e.kind && other.rows == e.rows && other.cols == e.cols
}

func (e *Estimate) checkSameShape(name string, other *Estimate) error {
	if other == nil {
		return errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    name,
			Value:   other,
			Message: "estimate must be non-nil",
		})
	}
	if other.kind != e.kind || other.rows != e.rows || other.cols != e.cols {
		return errors.WithStack(&segaerrors.ErrShapeMismatch{
			Name:    name,
			Got:     other.Shape(),
			Want:    e.Shape(),
			Message: "estimates must be of the same kind and dimensions",
		})
	}
	return nil
}
