package sega

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/armadaproject/sega/internal/common/segaerrors"
	"github.com/armadaproject/sega/pkg/estimate"
)

// SEGA is the unbiased gradient sketching estimator. It maintains a BiasSEGA
// estimate h, a shadow copy hp of h's value before the latest update, and a
// fixed bias-correction coefficient theta in (0, 1]. Updates snapshot h into
// hp and then project as BiasSEGA does; reads return the de-biased linear
// extrapolation
//
//	g = theta·h + (1−theta)·hp
//
// which, with theta chosen to match the sketch sampling weight, has the true
// gradient as its expectation over the sketch randomness. Reads are free of
// side effects and may be repeated at any point.
type SEGA struct {
	bias  *BiasSEGA
	hp    *estimate.Estimate
	g     *estimate.Estimate
	theta float64
}

// New returns a SEGA estimator borrowing h as its estimate, with the shadow
// copy and output buffer freshly allocated and zeroed at h's shape. theta
// must lie in (0, 1].
func New(theta float64, h *estimate.Estimate) (*SEGA, error) {
	if err := checkTheta(theta); err != nil {
		return nil, err
	}
	bias, err := NewBias(h)
	if err != nil {
		return nil, err
	}
	hp := h.Clone()
	hp.Zero()
	g := h.Clone()
	g.Zero()
	return &SEGA{bias: bias, hp: hp, g: g, theta: theta}, nil
}

// NewWithState returns a SEGA estimator borrowing all three arrays: the
// estimate h, the shadow copy hp, and the output buffer g. The three must
// agree in kind and dimensions.
func NewWithState(theta float64, h, hp, g *estimate.Estimate) (*SEGA, error) {
	if err := checkTheta(theta); err != nil {
		return nil, err
	}
	bias, err := NewBias(h)
	if err != nil {
		return nil, err
	}
	for name, e := range map[string]*estimate.Estimate{"hp": hp, "g": g} {
		if e == nil {
			return nil, errors.WithStack(&segaerrors.ErrInvalidArgument{
				Name:    name,
				Value:   e,
				Message: "estimate must be non-nil",
			})
		}
		if !h.EqualShape(e) {
			return nil, errors.WithStack(&segaerrors.ErrShapeMismatch{
				Name:    name,
				Got:     e.Shape(),
				Want:    h.Shape(),
				Message: "all estimator arrays must agree in kind and dimensions",
			})
		}
	}
	return &SEGA{bias: bias, hp: hp, g: g, theta: theta}, nil
}

// MustNew is like New but panics on error.
func MustNew(theta float64, h *estimate.Estimate) *SEGA {
	s, err := New(theta, h)
	if err != nil {
		panic(err)
	}
	return s
}

// NewVector returns a SEGA estimator owning a zero-initialized vector
// estimate of length n.
func NewVector(theta float64, n int) (*SEGA, error) {
	h, err := estimate.NewVector(n)
	if err != nil {
		return nil, err
	}
	return New(theta, h)
}

// NewMatrix returns a SEGA estimator owning a zero-initialized matrix
// estimate.
func NewMatrix(theta float64, rows, cols int) (*SEGA, error) {
	h, err := estimate.NewMatrix(rows, cols)
	if err != nil {
		return nil, err
	}
	return New(theta, h)
}

// NewBlocks returns a SEGA estimator owning a zero-initialized block
// estimate.
func NewBlocks(theta float64, rows, blocks int) (*SEGA, error) {
	h, err := estimate.NewBlocks(rows, blocks)
	if err != nil {
		return nil, err
	}
	return New(theta, h)
}

// Theta returns the bias-correction coefficient.
func (s *SEGA) Theta() float64 {
	return s.theta
}

// Project snapshots the current estimate and then applies a single-direction
// sketch; see projection.Project.
func (s *SEGA) Project(obs *mat.VecDense, sk mat.Vector, binv mat.Symmetric) error {
	s.snapshot()
	return s.bias.Project(obs, sk, binv)
}

// ProjectBatch snapshots the current estimate and then applies several sketch
// directions at once; see projection.ProjectBatch.
func (s *SEGA) ProjectBatch(obs *mat.Dense, S *mat.Dense, binv mat.Symmetric) error {
	s.snapshot()
	return s.bias.ProjectBatch(obs, S, binv)
}

// ProjectCoordinate snapshots the current estimate and then overwrites one
// coordinate or block; see projection.ProjectCoordinate.
func (s *SEGA) ProjectCoordinate(obs *mat.VecDense, i int) error {
	s.snapshot()
	return s.bias.ProjectCoordinate(obs, i)
}

// ProjectApprox snapshots the current estimate and then applies several
// sketch directions by randomized Kaczmarz relaxation; see
// projection.ProjectApprox.
func (s *SEGA) ProjectApprox(obs *mat.Dense, S *mat.Dense, binv mat.Symmetric, passes int, rng *rand.Rand, logger logrus.FieldLogger) error {
	s.snapshot()
	return s.bias.ProjectApprox(obs, S, binv, passes, rng, logger)
}

// Gradient returns a fresh copy of the de-biased estimate.
func (s *SEGA) Gradient() *estimate.Estimate {
	s.materialize()
	return s.g.Clone()
}

// GradientTo copies the de-biased estimate into dst, whose kind and
// dimensions must match.
func (s *SEGA) GradientTo(dst *estimate.Estimate) error {
	s.materialize()
	return s.g.CopyTo(dst)
}

// Kind returns the shape category of the estimate.
func (s *SEGA) Kind() estimate.Kind {
	return s.bias.Kind()
}

// Dims returns the dimensions of the estimate.
func (s *SEGA) Dims() (rows, cols int) {
	return s.bias.Dims()
}

// snapshot copies the current estimate into the shadow copy. Shapes agree by
// construction, so the copy cannot fail.
func (s *SEGA) snapshot() {
	if err := s.bias.h.CopyTo(s.hp); err != nil {
		panic(fmt.Sprintf("sega: shadow copy out of shape: %v", err))
	}
}

// materialize recomputes g = theta·h + (1−theta)·hp into the output buffer.
func (s *SEGA) materialize() {
	if err := s.bias.h.CopyTo(s.g); err != nil {
		panic(fmt.Sprintf("sega: output buffer out of shape: %v", err))
	}
	s.g.Scale(s.theta)
	if err := s.g.AddScaled(1-s.theta, s.hp); err != nil {
		panic(fmt.Sprintf("sega: shadow copy out of shape: %v", err))
	}
}

func checkTheta(theta float64) error {
	if theta <= 0 || theta > 1 {
		return errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "theta",
			Value:   theta,
			Message: "outside allowed range (0, 1]",
		})
	}
	return nil
}
