/*
DESCRIPTION
  normal.go implements the normal GraphMode: the precise reachability
  walk from each attribute's plug to a marker's world-position plug.
  mmSolver's host graph allows arbitrary
  expression/utility-node wiring that objectStrategy's coarse
  ancestor-chain test cannot see; this scene graph only models
  transform/camera/bundle/lens wiring, so the one place the precise
  walk differs from the ownership-chain approximation is lens
  coefficients, where a marker's lens chain may or may not actually
  include the attribute's owning lens model. Everywhere else the
  ownership chain *is* the exact reachability path, so normal and
  object agree there.

AUTHORS
  The mmsolver Authors.
*/

package affects

import (
	"github.com/mmsolver/mmsolver/attr"
	"github.com/mmsolver/mmsolver/frame"
	"github.com/mmsolver/mmsolver/scenegraph"
)

// LensAffectsFunc reports whether attribute id (an ObjectLens
// attribute) actually lies on the lens chain applied to the marker at
// graph index markerGraphIdx, at frame f.
type LensAffectsFunc func(id attr.Id, markerGraphIdx int, f frame.Number) bool

// normalStrategy performs the exact walk; lensAffects resolves lens
// coefficient reachability precisely. A nil lensAffects defaults to
// "always affects", the conservative tie-break policy, making normal
// degrade gracefully to object's behaviour for scenes with no lens
// wiring.
type normalStrategy struct {
	lensAffects LensAffectsFunc
}

// NewNormalStrategy returns a normal-mode Strategy using lensAffects
// to resolve lens-coefficient reachability precisely.
func NewNormalStrategy(lensAffects LensAffectsFunc) Strategy {
	return normalStrategy{lensAffects: lensAffects}
}

func (s normalStrategy) Compute(g *scenegraph.Graph, markerIndices []int, attrs []*attr.Attribute, frames *frame.List) (*Cube, error) {
	nf := frames.Len()
	cube := NewCube(len(markerIndices), len(attrs), nf)
	for m, gmi := range markerIndices {
		mk := g.Markers[gmi]
		cam := g.Cameras[mk.CameraIndex]
		bundle := g.Bundles[mk.BundleIndex]
		camChain := ancestorSet(g.AncestorChain(cam.TransformIndex))
		bundleChain := ancestorSet(g.AncestorChain(bundle.TransformIndex))
		for a, at := range attrs {
			if at.Object == attr.ObjectLens {
				if s.lensAffects == nil {
					for f := 0; f < nf; f++ {
						cube.Set(m, a, f, true)
					}
					continue
				}
				for fi := 0; fi < nf; fi++ {
					f := frames.At(fi)
					if s.lensAffects(at.Id, gmi, f) {
						cube.Set(m, a, fi, true)
					}
				}
				continue
			}
			if attributeAffectsViaObject(g, at, camChain, bundleChain) {
				for f := 0; f < nf; f++ {
					cube.Set(m, a, f, true)
				}
			}
		}
	}
	return cube, nil
}
