/*
DESCRIPTION
  weights.go normalises marker weights per frame to a maximum of 1.0
  before residuals are scaled by sqrt(weight).

AUTHORS
  The mmsolver Authors.
*/

package residual

import "github.com/mmsolver/mmsolver/scenegraph"

// normalizeWeights returns, for each (marker slot, frame slot) in a
// FlatScene laid out as slot = mi*numFrames+fi, the marker's raw
// weight divided by the maximum raw weight over every marker slot.
// Whether a marker has an observation at a frame is not checked, so
// every frame uses the same divisor; entries stay at zero only when
// that maximum is not positive.
func normalizeWeights(fs *scenegraph.FlatScene, rawWeight []float64) []float64 {
	nm, nf := fs.NumMarkers(), fs.NumFrames()
	maxAtFrame := make([]float64, nf)
	for mi := 0; mi < nm; mi++ {
		for fi := 0; fi < nf; fi++ {
			if rawWeight[mi] > maxAtFrame[fi] {
				maxAtFrame[fi] = rawWeight[mi]
			}
		}
	}
	out := make([]float64, nm*nf)
	for mi := 0; mi < nm; mi++ {
		for fi := 0; fi < nf; fi++ {
			if maxAtFrame[fi] <= 0 {
				continue
			}
			out[mi*nf+fi] = rawWeight[mi] / maxAtFrame[fi]
		}
	}
	return out
}
