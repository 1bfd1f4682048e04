/*
DESCRIPTION
  jacobian.go implements the affects-aware Jacobian column routine
  shared by the analytic-Jacobian kernel variants (lmder, ceres): each
  column is computed from a bounded, sparsity-masked finite difference
  rather than a closed-form derivative — "analytic-Jacobian" here means
  central or forward differencing per column, not a symbolic
  derivative.

AUTHORS
  The mmsolver Authors.
*/

package kernel

import (
	"math"

	"github.com/mmsolver/mmsolver/affects"
	"github.com/mmsolver/mmsolver/attr"
)

// ResidualFunc evaluates residuals for a full parameter vector,
// honouring a per-frame enable mask and a per-marker-residual-pair
// skip mask. It is the narrow surface the column-perturbation routine
// needs from the driver's evaluator, kept free of any
// attr/scenegraph/residual dependency so this package stays a thin
// adapter rather than an evaluator of its own.
type ResidualFunc func(params []float64, frameEnable []bool, skip []bool) ([]float64, error)

// JacobianColumn computes Jacobian column j = (attr_idx, frame_idx):
// frame_enable is paramToFrame's row j, skip is the logical NOT of
// errorToParam's row j, and the perturbation step is sign-flipped by
// packer.Delta to stay inside bounds. When central is true a second,
// independently-signed perturbation is taken; equal forward/backward
// steps (bounds pinned both directions to the same sign) collapse the
// result to the forward-difference formula.
func JacobianColumn(params []float64, j int, packer *attr.Packer, paramToFrame, errorToParam *affects.Matrix2D, attrDelta float64, central bool, residualFn ResidualFunc) ([]float64, error) {
	numFrames := paramToFrame.Cols()
	frameEnable := make([]bool, numFrames)
	for f := 0; f < numFrames; f++ {
		frameEnable[f] = paramToFrame.Get(j, f)
	}
	numPairs := errorToParam.Cols()
	skip := make([]bool, numPairs)
	for i := 0; i < numPairs; i++ {
		skip[i] = !errorToParam.Get(j, i)
	}

	base, err := residualFn(params, frameEnable, skip)
	if err != nil {
		return nil, err
	}

	h := packer.Delta(params, j, attrDelta)
	plus := append([]float64(nil), params...)
	plus[j] += h
	fPlus, err := residualFn(plus, frameEnable, skip)
	if err != nil {
		return nil, err
	}

	col := make([]float64, len(base))
	if !central {
		for i := range col {
			col[i] = (fPlus[i] - base[i]) / h
		}
		return col, nil
	}

	hMinus := packer.Delta(params, j, -attrDelta)
	if hMinus == h {
		// Bounds pinned both directions to the same step; collapse to
		// forward differencing.
		for i := range col {
			col[i] = (fPlus[i] - base[i]) / h
		}
		return col, nil
	}

	minus := append([]float64(nil), params...)
	minus[j] += hMinus
	fMinus, err := residualFn(minus, frameEnable, skip)
	if err != nil {
		return nil, err
	}
	denom := math.Abs(h) + math.Abs(hMinus)
	for i := range col {
		col[i] = (fPlus[i] - fMinus[i]) / denom
	}
	return col, nil
}
