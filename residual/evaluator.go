/*
DESCRIPTION
  evaluator.go implements the residual evaluator's "evaluate" mode: it
  re-projects every enabled (marker, frame) pair in a baked FlatScene,
  applies the marker's lens-distortion chain, and writes pixel-space
  residuals into a caller-owned buffer. The column-perturbation
  "evaluate with Jacobian" mode lives in kernel/jacobian.go, which
  calls Evaluate repeatedly with different frame_enable/skip masks.

AUTHORS
  The mmsolver Authors.
*/

// Package residual projects bundles through cameras at each enabled
// frame and turns the result into pixel-space solver residuals,
// including the robust-loss post-pass and the lens-distortion gateway
// call.
package residual

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mmsolver/mmsolver/attr"
	"github.com/mmsolver/mmsolver/lensmodel"
	"github.com/mmsolver/mmsolver/scenegraph"
)

// Cancelled is the sentinel error Evaluate returns when Cancel reports
// true mid-evaluation.
var Cancelled = errCancelled{}

type errCancelled struct{}

func (errCancelled) Error() string { return "residual: evaluation cancelled" }

// Evaluator fills a residual vector from a baked FlatScene.
type Evaluator struct {
	scene      *scenegraph.FlatScene
	block      *attr.Block
	lensArena  *lensmodel.Arena
	lensChain  []lensmodel.Index // per marker slot, None if unwired
	imageWidth float64
	weight     []float64 // per (marker slot, frame slot), already sqrt'd
	lossType   RobustLossType
	lossScale  float64

	// Cancel is polled at the top of every residual pair; a nil Cancel
	// disables cancellation.
	Cancel func() bool
}

// NewEvaluator builds an Evaluator over scene, using rawWeight (one
// entry per marker slot, the Marker.Weight field) normalised per frame
// to a maximum of 1.0. lensChain maps marker slot to the lens arena
// index applied to that marker, or lensmodel.None.
func NewEvaluator(scene *scenegraph.FlatScene, block *attr.Block, lensArena *lensmodel.Arena, lensChain []lensmodel.Index, rawWeight []float64, imageWidth float64, lossType RobustLossType, lossScale float64) *Evaluator {
	norm := normalizeWeights(scene, rawWeight)
	w := make([]float64, len(norm))
	for i, v := range norm {
		w[i] = math.Sqrt(v)
	}
	return &Evaluator{
		scene:      scene,
		block:      block,
		lensArena:  lensArena,
		lensChain:  lensChain,
		imageWidth: imageWidth,
		weight:     w,
		lossType:   lossType,
		lossScale:  lossScale,
	}
}

// NumResiduals returns 2 * numMarkerSlots * numFrameSlots, the size of
// the errors buffer Evaluate expects.
func (e *Evaluator) NumResiduals() int {
	return 2 * e.scene.NumMarkers() * e.scene.NumFrames()
}

// NumMarkerPairs returns numMarkerSlots * numFrameSlots, the size of
// the errorDistance buffer Evaluate expects.
func (e *Evaluator) NumMarkerPairs() int {
	return e.scene.NumMarkers() * e.scene.NumFrames()
}

// Evaluate re-projects every enabled (marker, frame) pair in the
// scene. frameEnable is indexed by frame slot; skip and
// errors/errorDistance are indexed by marker-residual pair
// i = mi*numFrames+fi, matching FlatScene's own slot layout. Pairs
// with frameEnable false, skip true, or affects false retain their
// previous value in errors/errorDistance — the sparsity-aware-Jacobian
// cornerstone that lets kernel/jacobian.go perturb one column at a
// time without re-evaluating the whole residual vector. affects
// reports, for a marker/frame pair, whether any enabled attribute
// could change it; pass nil to treat every pair as affected. A pair
// with no recorded marker observation at that frame (FlatScene bakes
// it to a NaN MarkerObserved) is skipped the same way, leaving its
// errors/errorDistance slots untouched.
func (e *Evaluator) Evaluate(frameEnable []bool, skip []bool, affects func(mi, fi int) bool, errors, errorDistance []float64) error {
	if err := e.scene.Evaluate(e.block); err != nil {
		return err
	}
	nf := e.scene.NumFrames()
	for mi := 0; mi < e.scene.NumMarkers(); mi++ {
		for fi := 0; fi < nf; fi++ {
			i := mi*nf + fi
			if e.Cancel != nil && e.Cancel() {
				return Cancelled
			}
			if !frameEnable[fi] || (skip != nil && skip[i]) || (affects != nil && !affects(mi, fi)) {
				continue
			}
			p := e.scene.Point(mi, fi)
			px, py := p.X, p.Y
			if e.lensArena != nil && mi < len(e.lensChain) {
				px, py = e.lensArena.ApplyChain(e.lensChain[mi], px, py)
			}
			obs := e.scene.MarkerObserved(mi, fi)
			if math.IsNaN(obs.X) || math.IsNaN(obs.Y) {
				continue
			}

			dx := (obs.X - px) * e.imageWidth
			dy := (obs.Y - py) * e.imageWidth
			w := e.weight[i]

			ex := Apply(e.lossType, e.lossScale, dx*w)
			ey := Apply(e.lossType, e.lossScale, dy*w)
			errors[2*i] = ex
			errors[2*i+1] = ey
			errorDistance[i] = math.Hypot(dx, dy)
		}
	}
	return nil
}

// AggregateDistance computes (min, avg, max) over errorDistance. NaN
// and Inf entries (pairs Evaluate skipped, or a numerical failure) are
// filtered out first, since neither floats.Min/Max nor stat.Mean skip
// non-finite values on their own.
func AggregateDistance(errorDistance []float64) (min, avg, max float64) {
	finite := make([]float64, 0, len(errorDistance))
	for _, d := range errorDistance {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		finite = append(finite, d)
	}
	if len(finite) == 0 {
		return 0, 0, 0
	}
	return floats.Min(finite), stat.Mean(finite, nil), floats.Max(finite)
}
