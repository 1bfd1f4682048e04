//go:build legacy

/*
DESCRIPTION
  lmdifbc.go implements the historical, feature-gated finite-
  difference boxed LM kernel: a dense per-parameter forward difference
  with bounds-aware step sign flipping, but no affects-sparsity masking
  (unlike lmder.go's analytic-style columns). Kept behind the "legacy"
  build tag for callers still depending on its exact numerical
  behaviour, the same way a vendored codec gets gated behind its own
  build tag rather than deleted outright.

AUTHORS
  The mmsolver Authors.
*/

package kernel

import (
	"gonum.org/v1/gonum/mat"

	"github.com/mmsolver/mmsolver/attr"
)

type lmdifBCKernel struct {
	packer *attr.Packer
	delta  float64
}

// NewLMDifBC returns the historical boxed finite-difference LM
// kernel. Build with -tags legacy to include it.
func NewLMDifBC(packer *attr.Packer, delta float64) Kernel {
	return lmdifBCKernel{packer: packer, delta: delta}
}

func (k lmdifBCKernel) Solve(x0 []float64, opts Options, numResiduals int, eval EvalFunc) ([]float64, Result) {
	jacFn := func(x, base []float64) (*mat.Dense, error) {
		jac := mat.NewDense(numResiduals, len(x), nil)
		for j := range x {
			h := k.packer.Delta(x, j, k.delta)
			xp := append([]float64(nil), x...)
			xp[j] += h
			fp := make([]float64, numResiduals)
			if !eval(xp, fp, nil) {
				return nil, ErrCancelled
			}
			for i := 0; i < numResiduals; i++ {
				jac.Set(i, j, (fp[i]-base[i])/h)
			}
		}
		return jac, nil
	}
	return runLM(x0, opts, numResiduals, eval, jacFn, classicDamping)
}
