/*
DESCRIPTION
  ceres.go implements two alternative kernel configurations
  corresponding in spirit to ceres-solver-style implementations: the
  same analytic-Jacobian column routine as lmder.go, but a
  trust-region damping schedule that grows/shrinks lambda more
  conservatively than the classic LM schedule.

AUTHORS
  The mmsolver Authors.
*/

package kernel

import (
	"github.com/mmsolver/mmsolver/affects"
	"github.com/mmsolver/mmsolver/attr"
)

type ceresKernel struct {
	lmderKernel
	variant int
}

// NewCeresStyle returns one of the two ceres-style kernel
// configurations (variant 1 or 2); any other variant value behaves as
// variant 1.
func NewCeresStyle(variant int, packer *attr.Packer, paramToFrame, errorToParam *affects.Matrix2D, attrDelta float64, central bool, residualFn ResidualFunc) Kernel {
	return ceresKernel{
		lmderKernel: lmderKernel{
			packer: packer, paramToFrame: paramToFrame, errorToParam: errorToParam,
			attrDelta: attrDelta, central: central, residualFn: residualFn,
		},
		variant: variant,
	}
}

func (k ceresKernel) Solve(x0 []float64, opts Options, numResiduals int, eval EvalFunc) ([]float64, Result) {
	return runLM(x0, opts, numResiduals, eval, k.lmderKernel.jacobianFn(numResiduals), ceresDampingVariant(k.variant))
}
