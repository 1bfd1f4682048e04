/*
DESCRIPTION
  lmder.go implements the analytic-Jacobian LM kernel: forward or
  central differencing via the affects-aware column routine in
  jacobian.go, rather than lmdif's naive dense perturbation.

AUTHORS
  The mmsolver Authors.
*/

package kernel

import (
	"gonum.org/v1/gonum/mat"

	"github.com/mmsolver/mmsolver/affects"
	"github.com/mmsolver/mmsolver/attr"
)

type lmderKernel struct {
	packer                     *attr.Packer
	paramToFrame, errorToParam *affects.Matrix2D
	attrDelta                  float64
	central                    bool
	residualFn                 ResidualFunc
}

// NewLMDer returns the analytic-Jacobian LM kernel. central selects
// central differencing (auto_diff_type=central); false selects
// forward differencing.
func NewLMDer(packer *attr.Packer, paramToFrame, errorToParam *affects.Matrix2D, attrDelta float64, central bool, residualFn ResidualFunc) Kernel {
	return lmderKernel{
		packer: packer, paramToFrame: paramToFrame, errorToParam: errorToParam,
		attrDelta: attrDelta, central: central, residualFn: residualFn,
	}
}

func (k lmderKernel) jacobianFn(numResiduals int) func(x, r []float64) (*mat.Dense, error) {
	return func(x, _ []float64) (*mat.Dense, error) {
		numParams := k.packer.NumParameters()
		jac := mat.NewDense(numResiduals, numParams, nil)
		for j := 0; j < numParams; j++ {
			col, err := JacobianColumn(x, j, k.packer, k.paramToFrame, k.errorToParam, k.attrDelta, k.central, k.residualFn)
			if err != nil {
				return nil, err
			}
			for i, v := range col {
				jac.Set(i, j, v)
			}
		}
		return jac, nil
	}
}

func (k lmderKernel) Solve(x0 []float64, opts Options, numResiduals int, eval EvalFunc) ([]float64, Result) {
	return runLM(x0, opts, numResiduals, eval, k.jacobianFn(numResiduals), classicDamping)
}
