package sega

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/armadaproject/sega/internal/common/segaerrors"
	"github.com/armadaproject/sega/pkg/estimate"
	"github.com/armadaproject/sega/pkg/projection"
)

func TestNewValidation(t *testing.T) {
	tests := map[string]struct {
		theta float64
		valid bool
	}{
		"negative":       {theta: -1, valid: false},
		"zero":           {theta: 0, valid: false},
		"just above one": {theta: 1.0001, valid: false},
		"two":            {theta: 2, valid: false},
		"small":          {theta: 0.001, valid: true},
		"half":           {theta: 0.5, valid: true},
		"one":            {theta: 1, valid: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s, err := NewVector(tc.theta, 3)
			if tc.valid {
				require.NoError(t, err)
				assert.Equal(t, tc.theta, s.Theta())
			} else {
				assert.Nil(t, s)
				var target *segaerrors.ErrInvalidArgument
				require.ErrorAs(t, err, &target)
				assert.Equal(t, "theta", target.Name)
			}
		})
	}
}

func TestNewWithStateShapeMismatch(t *testing.T) {
	h := estimate.MustVector(3)
	tests := map[string]struct {
		hp *estimate.Estimate
		g  *estimate.Estimate
	}{
		"shadow copy too short": {
			hp: estimate.MustVector(2),
			g:  estimate.MustVector(3),
		},
		"output buffer of wrong kind": {
			hp: estimate.MustVector(3),
			g:  estimate.MustMatrix(3, 1),
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s, err := NewWithState(0.5, h, tc.hp, tc.g)
			assert.Nil(t, s)
			var target *segaerrors.ErrShapeMismatch
			assert.ErrorAs(t, err, &target)
		})
	}
}

func TestBiasDelegatesToProjection(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	h := estimate.MustVector(4)
	b, err := NewBias(h)
	require.NoError(t, err)

	reference := h.Clone()
	s := randVec(rng, 4)
	obs := mat.NewVecDense(1, []float64{2.5})
	require.NoError(t, b.Project(obs, s, nil))
	require.NoError(t, projection.Project(reference, obs, s, nil))
	assertEstimatesEqual(t, reference, b.Gradient(), 1e-12)

	// The estimator borrows h, so the update is visible through it.
	assertEstimatesEqual(t, reference, h, 1e-12)
}

func TestBiasGradientIsACopy(t *testing.T) {
	b, err := NewBiasVector(2)
	require.NoError(t, err)
	require.NoError(t, b.ProjectCoordinate(mat.NewVecDense(1, []float64{3}), 0))

	g := b.Gradient()
	g.Set(0, 0, 100)
	assert.Equal(t, 3.0, b.Gradient().At(0, 0))
}

func TestBiasGradientToShapeMismatch(t *testing.T) {
	b, err := NewBiasVector(3)
	require.NoError(t, err)
	err = b.GradientTo(estimate.MustVector(2))
	var target *segaerrors.ErrShapeMismatch
	assert.ErrorAs(t, err, &target)
}

func TestThetaOneMatchesBias(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	b, err := NewBiasVector(3)
	require.NoError(t, err)
	s, err := NewVector(1.0, 3)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		dir := randVec(rng, 3)
		obs := mat.NewVecDense(1, []float64{rng.NormFloat64()})
		require.NoError(t, b.Project(obs, dir, nil))
		require.NoError(t, s.Project(obs, dir, nil))
	}
	assertEstimatesEqual(t, b.Gradient(), s.Gradient(), 1e-12)
}

func TestThetaHalf(t *testing.T) {
	// A projection from zero landing exactly on the correct gradient must
	// read back as half of it when theta is one half and hp is still zero.
	correct := mat.NewVecDense(2, []float64{3, 4})
	s, err := NewVector(0.5, 2)
	require.NoError(t, err)

	obs := mat.NewVecDense(1, []float64{mat.Dot(correct, correct)})
	require.NoError(t, s.Project(obs, correct, nil))

	g := s.Gradient()
	assert.InDelta(t, 1.5, g.At(0, 0), 1e-12)
	assert.InDelta(t, 2.0, g.At(1, 0), 1e-12)
}

func TestSnapshotHoldsPreUpdateValue(t *testing.T) {
	h := estimate.MustVector(2)
	hp := estimate.MustVector(2)
	g := estimate.MustVector(2)
	s, err := NewWithState(0.5, h, hp, g)
	require.NoError(t, err)

	require.NoError(t, s.ProjectCoordinate(mat.NewVecDense(1, []float64{5}), 0))
	assert.Equal(t, []float64{0, 0}, flatten(hp))
	assert.Equal(t, []float64{5, 0}, flatten(h))

	require.NoError(t, s.ProjectCoordinate(mat.NewVecDense(1, []float64{7}), 1))
	assert.Equal(t, []float64{5, 0}, flatten(hp))
	assert.Equal(t, []float64{5, 7}, flatten(h))

	// g = 0.5·h + 0.5·hp.
	assert.Equal(t, []float64{5, 3.5}, flatten(s.Gradient()))
}

func TestRepeatedReadsHaveNoSideEffects(t *testing.T) {
	s, err := NewVector(0.5, 2)
	require.NoError(t, err)
	require.NoError(t, s.ProjectCoordinate(mat.NewVecDense(1, []float64{4}), 1))

	first := s.Gradient()
	second := s.Gradient()
	assertEstimatesEqual(t, first, second, 0)

	// Mutating a returned copy must not leak back into the estimator.
	first.Set(0, 0, 100)
	assertEstimatesEqual(t, second, s.Gradient(), 0)
}

func TestGradientToShapeMismatch(t *testing.T) {
	s, err := NewVector(0.5, 3)
	require.NoError(t, err)
	err = s.GradientTo(estimate.MustMatrix(3, 1))
	var target *segaerrors.ErrShapeMismatch
	assert.ErrorAs(t, err, &target)
}

func TestMatrixAndBlockEstimators(t *testing.T) {
	tests := map[string]struct {
		sega *SEGA
	}{
		"matrix": {sega: mustNewMatrix(t, 0.5, 2, 2)},
		"blocks": {sega: mustNewBlocks(t, 0.5, 2, 2)},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, tc.sega.ProjectCoordinate(mat.NewVecDense(2, []float64{4, 6}), 1))
			g := tc.sega.Gradient()
			assert.Equal(t, []float64{0, 0, 2, 3}, flatten(g))
		})
	}
}

func TestUnbiasedness(t *testing.T) {
	// Sketch a fixed gradient with a long sequence of independent gaussian
	// directions. The running error of the de-biased read must average out
	// to zero: the estimate converges to the true gradient and stays there,
	// so the early bias washes out of the mean.
	const (
		n     = 5
		iters = 100000
	)
	grad := mat.NewVecDense(n, []float64{1, -2, 0.5, 3, -1})
	s, err := NewVector(0.8, n)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	buf := estimate.MustVector(n)
	obs := mat.NewVecDense(1, nil)
	sum := make([]float64, n)
	for i := 0; i < iters; i++ {
		dir := randVec(rng, n)
		obs.SetVec(0, mat.Dot(dir, grad))
		if err := s.Project(obs, dir, nil); err != nil {
			t.Fatal(err)
		}
		if err := s.GradientTo(buf); err != nil {
			t.Fatal(err)
		}
		for j := 0; j < n; j++ {
			sum[j] += buf.At(j, 0) - grad.AtVec(j)
		}
	}
	for j := 0; j < n; j++ {
		assert.InDelta(t, 0, sum[j]/iters, 1e-2)
	}

	// After this many consistent observations the estimate itself has
	// converged to the true gradient.
	final := s.Gradient()
	for j := 0; j < n; j++ {
		assert.InDelta(t, grad.AtVec(j), final.At(j, 0), 1e-8)
	}
}

func mustNewMatrix(t *testing.T, theta float64, rows, cols int) *SEGA {
	s, err := NewMatrix(theta, rows, cols)
	require.NoError(t, err)
	return s
}

func mustNewBlocks(t *testing.T, theta float64, rows, blocks int) *SEGA {
	s, err := NewBlocks(theta, rows, blocks)
	require.NoError(t, err)
	return s
}

func randVec(rng *rand.Rand, n int) *mat.VecDense {
	data := make([]float64, n)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewVecDense(n, data)
}

func flatten(e *estimate.Estimate) []float64 {
	r, c := e.Dims()
	rv := make([]float64, 0, r*c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			rv = append(rv, e.At(i, j))
		}
	}
	return rv
}

func assertEstimatesEqual(t *testing.T, expected, actual *estimate.Estimate, tol float64) {
	t.Helper()
	require.True(t, expected.EqualShape(actual))
	ef, af := flatten(expected), flatten(actual)
	for i := range ef {
		assert.InDelta(t, ef[i], af[i], tol)
	}
}
