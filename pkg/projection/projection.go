// Package projection implements the linear-algebra core of the SEGA
// estimators: routines that update a gradient estimate in place so that it
// satisfies a new linear observation while moving as little as possible, in a
// weighted norm, from its previous value.
//
// All routines validate their arguments before touching the estimate, so a
// failed call leaves the estimate exactly as it was.
package projection

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/armadaproject/sega/internal/common/linalg"
	"github.com/armadaproject/sega/internal/common/logging"
	"github.com/armadaproject/sega/internal/common/segaerrors"
	"github.com/armadaproject/sega/pkg/estimate"
)

// Project updates h in place to the closest point, in the binv-weighted norm,
// satisfying the single-direction constraint sᵀ·h = obs. The sketch direction
// s must have length h.Rows() and obs one entry per column of h. A nil binv
// means the identity, i.e. the Euclidean projection; a non-nil binv must be a
// symmetric positive-definite matrix of order h.Rows().
//
// The update is the closed-form rank-one correction
//
//	h ← h − binv·s/(sᵀ·binv·s) · (sᵀ·h − obs)
//
// applied independently to each column.
func Project(h *estimate.Estimate, obs *mat.VecDense, s mat.Vector, binv mat.Symmetric) error {
	if err := checkEstimate(h); err != nil {
		return err
	}
	rows, cols := h.Dims()
	if s == nil || s.Len() != rows {
		return errors.WithStack(&segaerrors.ErrShapeMismatch{
			Name:    "s",
			Got:     []int{vecLen(s)},
			Want:    []int{rows},
			Message: "sketch direction must match the leading dimension of the estimate",
		})
	}
	if obs == nil || obs.Len() != cols {
		got := 0
		if obs != nil {
			got = obs.Len()
		}
		return errors.WithStack(&segaerrors.ErrShapeMismatch{
			Name:    "obs",
			Got:     []int{got},
			Want:    []int{cols},
			Message: "one observed value per column is required",
		})
	}
	if err := checkPreconditioner(binv, rows); err != nil {
		return err
	}
	u, err := correctionDirection(s, binv)
	if err != nil {
		return err
	}
	for j := 0; j < cols; j++ {
		r := h.ColDot(s, j) - obs.AtVec(j)
		h.AddScaledCol(j, -r, u)
	}
	return nil
}

// ProjectBatch updates h in place to the least-norm point satisfying all
// constraints Sᵀ·h = obs simultaneously. S holds one direction per column and
// must have h.Rows() rows; obs must be S.Cols()-by-h.Cols(). The correction
//
//	h ← h − S·(S \ (Sᵀ \ (Sᵀ·h − obs)))
//
// is computed with least-squares solves rather than an explicit inverse, so
// it remains stable when S is rank-deficient or has more columns than rows.
//
// Only the Euclidean norm is supported: a non-nil binv fails with
// ErrUnsupported rather than silently computing the wrong projection.
func ProjectBatch(h *estimate.Estimate, obs *mat.Dense, S *mat.Dense, binv mat.Symmetric) error {
	if err := checkEstimate(h); err != nil {
		return err
	}
	if err := checkBatchShapes(h, obs, S); err != nil {
		return err
	}
	if binv != nil {
		return errors.WithStack(&segaerrors.ErrUnsupported{
			Operation: "ProjectBatch",
			Message:   "non-identity preconditioner; project each direction separately or use ProjectApprox",
		})
	}
	hv, flush := h.DenseView()

	var r mat.Dense
	r.Mul(S.T(), hv)
	r.Sub(&r, obs)
	var x mat.Dense
	if err := solveTolerant(&x, S.T(), &r); err != nil {
		return err
	}
	var y mat.Dense
	if err := solveTolerant(&y, S, &x); err != nil {
		return err
	}
	var d mat.Dense
	d.Mul(S, &y)

	hv.Sub(hv, &d)
	flush()
	return nil
}

// ProjectCoordinate overwrites block i of h with obs: coordinate i for a
// vector estimate (obs of length 1), column or block i otherwise (obs of
// length h.Rows()). This is the degenerate axis-aligned sketch; no linear
// algebra is involved.
func ProjectCoordinate(h *estimate.Estimate, obs *mat.VecDense, i int) error {
	if err := checkEstimate(h); err != nil {
		return err
	}
	return h.SetBlock(i, obs)
}

// ProjectApprox approximates ProjectBatch by randomized Kaczmarz relaxation:
// it performs passes sweeps, each over a freshly randomized permutation of
// S's columns, applying the single-direction Project for each column in turn.
// The result equals the exact joint projection when the columns of S are
// mutually orthogonal and converges to it as passes grows otherwise.
//
// Unlike ProjectBatch, a non-nil binv is supported, since every inner step is
// a single-direction projection. passes must be at least 1. A nil rng draws
// from the global source; a nil logger suppresses the per-pass residual debug
// lines. A single-column S degenerates to one exact Project call.
func ProjectApprox(h *estimate.Estimate, obs *mat.Dense, S *mat.Dense, binv mat.Symmetric, passes int, rng *rand.Rand, logger logrus.FieldLogger) error {
	if err := checkEstimate(h); err != nil {
		return err
	}
	if passes < 1 {
		return errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "passes",
			Value:   passes,
			Message: "outside allowed range [1, Inf)",
		})
	}
	if err := checkBatchShapes(h, obs, S); err != nil {
		return err
	}
	rows, _ := h.Dims()
	if err := checkPreconditioner(binv, rows); err != nil {
		return err
	}
	_, k := S.Dims()
	// Degenerate directions would only be detected mid-sweep, after part of
	// the estimate has been updated. Reject them before mutating anything.
	for j := 0; j < k; j++ {
		if _, err := correctionDirection(S.ColView(j), binv); err != nil {
			return err
		}
	}
	if k == 1 {
		return Project(h, linalg.RowVecView(obs, 0), S.ColView(0), binv)
	}
	logger = logging.Ensure(logger)
	for pass := 1; pass <= passes; pass++ {
		for _, j := range permutation(rng, k) {
			if err := Project(h, linalg.RowVecView(obs, j), S.ColView(j), binv); err != nil {
				return err
			}
		}
		logger.WithField("pass", pass).Debugf("kaczmarz sweep complete, residual %v", Residual(h, obs, S))
	}
	return nil
}

// Residual returns the largest absolute violation of the constraints
// Sᵀ·h = obs, i.e. the infinity norm of Sᵀ·h − obs taken entry-wise. Shapes
// must agree as for ProjectBatch.
func Residual(h *estimate.Estimate, obs *mat.Dense, S *mat.Dense) float64 {
	hv, _ := h.DenseView()
	var r mat.Dense
	r.Mul(S.T(), hv)
	r.Sub(&r, obs)
	max := 0.0
	n, _ := r.Dims()
	for i := 0; i < n; i++ {
		max = math.Max(max, floats.Norm(r.RawRowView(i), math.Inf(1)))
	}
	return max
}

// correctionDirection returns u = binv·s / (sᵀ·binv·s), the direction along
// which a single-direction projection moves the estimate. A nil binv is the
// identity. Fails if the denominator is not strictly positive, which for a
// positive-definite binv only happens for a zero sketch direction.
func correctionDirection(s mat.Vector, binv mat.Symmetric) (*mat.VecDense, error) {
	u := mat.NewVecDense(s.Len(), nil)
	var denom float64
	if binv == nil {
		denom = mat.Dot(s, s)
	} else {
		u.MulVec(binv, s)
		denom = mat.Dot(s, u)
	}
	if denom <= 0 {
		return nil, errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "s",
			Value:   s,
			Message: "sketch direction has non-positive energy under the preconditioner",
		})
	}
	if binv == nil {
		u.ScaleVec(1/denom, s)
	} else {
		u.ScaleVec(1/denom, u)
	}
	return u, nil
}

// solveTolerant computes the least-squares solution of a·dst = b. gonum
// reports near-singular systems with a mat.Condition warning alongside a
// valid solution; that warning is swallowed here since rank-deficient
// sketches are expected in normal operation.
func solveTolerant(dst *mat.Dense, a, b mat.Matrix) error {
	if err := dst.Solve(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return errors.WithStack(err)
		}
	}
	return nil
}

func checkEstimate(h *estimate.Estimate) error {
	if h == nil {
		return errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "h",
			Value:   h,
			Message: "estimate must be non-nil",
		})
	}
	return nil
}

func checkPreconditioner(binv mat.Symmetric, rows int) error {
	if binv != nil && binv.SymmetricDim() != rows {
		return errors.WithStack(&segaerrors.ErrShapeMismatch{
			Name:    "binv",
			Got:     []int{binv.SymmetricDim(), binv.SymmetricDim()},
			Want:    []int{rows, rows},
			Message: "preconditioner must match the leading dimension of the estimate",
		})
	}
	return nil
}

func checkBatchShapes(h *estimate.Estimate, obs *mat.Dense, S *mat.Dense) error {
	rows, cols := h.Dims()
	if S == nil || S.IsEmpty() {
		return errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "S",
			Value:   S,
			Message: "sketch matrix must be non-empty",
		})
	}
	sr, sc := S.Dims()
	if sr != rows {
		return errors.WithStack(&segaerrors.ErrShapeMismatch{
			Name:    "S",
			Got:     []int{sr, sc},
			Want:    []int{rows, sc},
			Message: "sketch directions must match the leading dimension of the estimate",
		})
	}
	if obs == nil {
		return errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "obs",
			Value:   obs,
			Message: "observations must be non-nil",
		})
	}
	or, oc := obs.Dims()
	if or != sc || oc != cols {
		return errors.WithStack(&segaerrors.ErrShapeMismatch{
			Name:    "obs",
			Got:     []int{or, oc},
			Want:    []int{sc, cols},
			Message: "one observation row per sketch direction and one column per estimate column is required",
		})
	}
	return nil
}

func permutation(rng *rand.Rand, n int) []int {
	if rng == nil {
		return rand.Perm(n)
	}
	return rng.Perm(n)
}

func vecLen(v mat.Vector) int {
	if v == nil {
		return 0
	}
	return v.Len()
}
