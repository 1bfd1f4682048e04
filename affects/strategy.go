/*
DESCRIPTION
  strategy.go defines the Strategy interface and the GraphMode
  enumeration that selects among the four concrete strategies: simple,
  object, node-name, normal.

AUTHORS
  The mmsolver Authors.
*/

package affects

import (
	"github.com/mmsolver/mmsolver/attr"
	"github.com/mmsolver/mmsolver/frame"
	"github.com/mmsolver/mmsolver/scenegraph"
)

// GraphMode selects which Strategy computes the sparsity cube.
type GraphMode uint8

// Recognised graph modes.
const (
	ModeNormal GraphMode = iota
	ModeNodeName
	ModeObject
	ModeSimple
)

// Strategy computes the sparsity cube for a set of markers,
// attributes and frames.
type Strategy interface {
	Compute(g *scenegraph.Graph, markerIndices []int, attrs []*attr.Attribute, frames *frame.List) (*Cube, error)
}

// NewStrategy returns the concrete Strategy for mode. store is only
// consulted by ModeNodeName and may be nil for the other modes.
func NewStrategy(mode GraphMode, store ChannelStore) Strategy {
	switch mode {
	case ModeSimple:
		return simpleStrategy{}
	case ModeObject:
		return objectStrategy{}
	case ModeNodeName:
		return nodeNameStrategy{store: store}
	case ModeNormal:
		fallthrough
	default:
		return normalStrategy{}
	}
}

// simpleStrategy marks every (marker, attr, frame) triple as
// affecting: the coarsest, always-correct, most expensive-downstream
// mode.
type simpleStrategy struct{}

func (simpleStrategy) Compute(g *scenegraph.Graph, markerIndices []int, attrs []*attr.Attribute, frames *frame.List) (*Cube, error) {
	nf := frames.Len()
	cube := NewCube(len(markerIndices), len(attrs), nf)
	for m := range markerIndices {
		for a := range attrs {
			for f := 0; f < nf; f++ {
				cube.Set(m, a, f, true)
			}
		}
	}
	return cube, nil
}

// objectStrategy marks (marker, attr) as affecting (for every frame)
// iff the attribute's owning node is in the marker's ancestor chain:
// its camera, its bundle, or a transform above either.
type objectStrategy struct{}

func (objectStrategy) Compute(g *scenegraph.Graph, markerIndices []int, attrs []*attr.Attribute, frames *frame.List) (*Cube, error) {
	nf := frames.Len()
	cube := NewCube(len(markerIndices), len(attrs), nf)
	for m, gmi := range markerIndices {
		mk := g.Markers[gmi]
		cam := g.Cameras[mk.CameraIndex]
		bundle := g.Bundles[mk.BundleIndex]
		camChain := ancestorSet(g.AncestorChain(cam.TransformIndex))
		bundleChain := ancestorSet(g.AncestorChain(bundle.TransformIndex))
		for a, at := range attrs {
			affects := attributeAffectsViaObject(g, at, camChain, bundleChain)
			if !affects {
				continue
			}
			for f := 0; f < nf; f++ {
				cube.Set(m, a, f, true)
			}
		}
	}
	return cube, nil
}

func attributeAffectsViaObject(g *scenegraph.Graph, at *attr.Attribute, camChain, bundleChain map[int]bool) bool {
	switch at.Object {
	case attr.ObjectCamera:
		owner := g.AttrOwnerTransform(at.Id)
		return owner == -1 || camChain[owner]
	case attr.ObjectBundle:
		owner := g.AttrOwnerTransform(at.Id)
		return owner == -1 || bundleChain[owner]
	case attr.ObjectTransform:
		owner := g.AttrOwnerTransform(at.Id)
		return owner == -1 || camChain[owner] || bundleChain[owner]
	case attr.ObjectLens:
		// Lens wiring is resolved per-marker by the lens-model gateway,
		// not by ancestry; default to the conservative true — missing
		// information means "affects".
		return true
	default:
		return true
	}
}

func ancestorSet(chain []int) map[int]bool {
	set := make(map[int]bool, len(chain))
	for _, idx := range chain {
		set[idx] = true
	}
	return set
}
