/*
DESCRIPTION
  kernelselect.go selects and wires the concrete LM kernel for a
  sub-solve and adapts the driver's ResidualFunc into the kernel
  package's narrow EvalFunc callback, erasing driver state behind that
  interface.

AUTHORS
  The mmsolver Authors.
*/

package solve

import (
	"gonum.org/v1/gonum/mat"

	"github.com/mmsolver/mmsolver/affects"
	"github.com/mmsolver/mmsolver/attr"
	"github.com/mmsolver/mmsolver/kernel"
	"github.com/mmsolver/mmsolver/logging"
	"github.com/mmsolver/mmsolver/residual"
)

// selectKernel returns the Kernel named by opts.SolverType, falling
// back to the finite-difference lmdif kernel on an unrecognised value.
func selectKernel(opts Options, packer *attr.Packer, paramToFrame, errorToParam *affects.Matrix2D, residualFn kernel.ResidualFunc) kernel.Kernel {
	central := opts.AutoDiffType == AutoDiffCentral && opts.SolverSupportsAutoDiffCentral
	// The analytic-Jacobian kernels see the evaluator's cancellation as
	// kernel.ErrCancelled, so a cancel mid-Jacobian ends the solve as
	// cancelled.
	evalResidual := residualFn
	residualFn = func(params []float64, frameEnable, skip []bool) ([]float64, error) {
		out, err := evalResidual(params, frameEnable, skip)
		if err == residual.Cancelled {
			err = kernel.ErrCancelled
		}
		return out, err
	}
	switch opts.SolverType {
	case SolverTypeLMDifBC:
		return kernel.NewLMDifBC(packer, opts.Delta)
	case SolverTypeLMDer:
		return kernel.NewLMDer(packer, paramToFrame, errorToParam, opts.Delta, central, residualFn)
	case SolverTypeCeres1:
		return kernel.NewCeresStyle(1, packer, paramToFrame, errorToParam, opts.Delta, central, residualFn)
	case SolverTypeCeres2:
		return kernel.NewCeresStyle(2, packer, paramToFrame, errorToParam, opts.Delta, central, residualFn)
	case SolverTypeLMDif:
		fallthrough
	default:
		return kernel.NewLMDif()
	}
}

// wireEval adapts residualFn into a kernel.EvalFunc evaluating the
// full (unmasked) residual vector every call, for the LM outer loop's
// cost evaluation. The jacobian parameter is never populated here;
// analytic-Jacobian kernels acquire their Jacobian through a separate
// jacobianFn closure (kernel/jacobian.go), not through this callback's
// optional out-parameter.
func wireEval(residualFn kernel.ResidualFunc, frameEnable []bool, logger logging.Logger) kernel.EvalFunc {
	return func(params, residuals []float64, jacobian *mat.Dense) bool {
		out, err := residualFn(params, frameEnable, nil)
		if err == residual.Cancelled {
			return false
		}
		if err != nil {
			if logger != nil {
				logger.Error("solve: residual evaluation failed", "error", err)
			}
			return false
		}
		copy(residuals, out)
		return true
	}
}
