/*
DESCRIPTION
  lmdif.go implements the finite-difference, unbounded LM kernel: a
  naive dense forward-difference Jacobian over every parameter, with
  no affects-sparsity awareness and no bounds handling. It is the
  simplest of the five kernel variants and the default when
  solver_type is unrecognised.

AUTHORS
  The mmsolver Authors.
*/

package kernel

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

type lmdifKernel struct{}

// NewLMDif returns the finite-difference, unbounded LM kernel.
func NewLMDif() Kernel { return lmdifKernel{} }

func (lmdifKernel) Solve(x0 []float64, opts Options, numResiduals int, eval EvalFunc) ([]float64, Result) {
	step := opts.Delta
	if step <= 0 {
		step = 1e-6
	}
	jacFn := func(x, _ []float64) (*mat.Dense, error) {
		jac := mat.NewDense(numResiduals, len(x), nil)
		var cancelled bool
		fd.Jacobian(jac, func(y, p []float64) {
			if !eval(p, y, nil) {
				cancelled = true
			}
		}, x, &fd.JacobianSettings{
			Formula: fd.Forward,
			Step:    step,
		})
		if cancelled {
			return nil, ErrCancelled
		}
		return jac, nil
	}
	return runLM(x0, opts, numResiduals, eval, jacFn, classicDamping)
}
