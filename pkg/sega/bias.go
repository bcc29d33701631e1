// Package sega implements the SEGA family of gradient sketching estimators:
// stateful objects that accumulate randomly sketched observations of an
// unknown gradient and produce progressively better estimates of it. BiasSEGA
// is the plain projection-based estimator; SEGA layers a bias correction on
// top of it so that its reads are statistically unbiased.
package sega

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/armadaproject/sega/internal/common/segaerrors"
	"github.com/armadaproject/sega/pkg/estimate"
	"github.com/armadaproject/sega/pkg/projection"
)

// BiasSEGA owns one gradient estimate and updates it by projection: after
// every update the estimate is the closest point to its previous value that
// satisfies the newly observed constraint. The estimate it produces is biased
// by construction, hence the name; see SEGA for the de-biased variant.
//
// A BiasSEGA is not safe for concurrent use; the surrounding optimization
// loop is expected to be the single writer.
type BiasSEGA struct {
	h *estimate.Estimate
}

// NewBias returns a BiasSEGA borrowing h as its estimate. Mutations of the
// estimator are visible through h and vice versa.
func NewBias(h *estimate.Estimate) (*BiasSEGA, error) {
	if h == nil {
		return nil, errors.WithStack(&segaerrors.ErrInvalidArgument{
			Name:    "h",
			Value:   h,
			Message: "estimate must be non-nil",
		})
	}
	return &BiasSEGA{h: h}, nil
}

// NewBiasVector returns a BiasSEGA owning a zero-initialized vector estimate
// of length n.
func NewBiasVector(n int) (*BiasSEGA, error) {
	h, err := estimate.NewVector(n)
	if err != nil {
		return nil, err
	}
	return &BiasSEGA{h: h}, nil
}

// NewBiasMatrix returns a BiasSEGA owning a zero-initialized matrix estimate.
func NewBiasMatrix(rows, cols int) (*BiasSEGA, error) {
	h, err := estimate.NewMatrix(rows, cols)
	if err != nil {
		return nil, err
	}
	return &BiasSEGA{h: h}, nil
}

// NewBiasBlocks returns a BiasSEGA owning a zero-initialized block estimate.
func NewBiasBlocks(rows, blocks int) (*BiasSEGA, error) {
	h, err := estimate.NewBlocks(rows, blocks)
	if err != nil {
		return nil, err
	}
	return &BiasSEGA{h: h}, nil
}

// Project applies a single-direction sketch; see projection.Project.
func (b *BiasSEGA) Project(obs *mat.VecDense, s mat.Vector, binv mat.Symmetric) error {
	return projection.Project(b.h, obs, s, binv)
}

// ProjectBatch applies several sketch directions at once; see
// projection.ProjectBatch.
func (b *BiasSEGA) ProjectBatch(obs *mat.Dense, S *mat.Dense, binv mat.Symmetric) error {
	return projection.ProjectBatch(b.h, obs, S, binv)
}

// ProjectCoordinate overwrites one coordinate or block of the estimate; see
// projection.ProjectCoordinate.
func (b *BiasSEGA) ProjectCoordinate(obs *mat.VecDense, i int) error {
	return projection.ProjectCoordinate(b.h, obs, i)
}

// ProjectApprox applies several sketch directions by randomized Kaczmarz
// relaxation; see projection.ProjectApprox.
func (b *BiasSEGA) ProjectApprox(obs *mat.Dense, S *mat.Dense, binv mat.Symmetric, passes int, rng *rand.Rand, logger logrus.FieldLogger) error {
	return projection.ProjectApprox(b.h, obs, S, binv, passes, rng, logger)
}

// Gradient returns a fresh copy of the current estimate.
func (b *BiasSEGA) Gradient() *estimate.Estimate {
	return b.h.Clone()
}

// GradientTo copies the current estimate into dst, whose kind and dimensions
// must match.
func (b *BiasSEGA) GradientTo(dst *estimate.Estimate) error {
	return b.h.CopyTo(dst)
}

// Kind returns the shape category of the estimate.
func (b *BiasSEGA) Kind() estimate.Kind {
	return b.h.Kind()
}

// Dims returns the dimensions of the estimate.
func (b *BiasSEGA) Dims() (rows, cols int) {
	return b.h.Dims()
}
