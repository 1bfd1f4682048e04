/*
DESCRIPTION
  graph.go defines the typed scene DAG (TransformNode, CameraNode via
  Camera, BundleNode via Bundle, MarkerNode via Marker) and the
  topological evaluation of a transform chain's world matrix. This is
  the "host graph" the affects analyser's normal/object GraphModes walk
  and BakeSceneGraph flattens into a FlatScene.

AUTHORS
  The mmsolver Authors.
*/

package scenegraph

import (
	"github.com/pkg/errors"

	"github.com/mmsolver/mmsolver/attr"
	"github.com/mmsolver/mmsolver/frame"
)

// Vec2 is a 2D point, used for marker/image-space coordinates.
type Vec2 struct{ X, Y float64 }

// TransformNode is one node of the translate/rotate/scale DAG. Any of
// Translate/Rotate/Scale's attr.Id entries may be attr.NoId, meaning
// that axis is a fixed value (the Static fields) rather than a solved
// or animated channel. A zero ScaleStatic (the zero value) is read as
// unit scale.
type TransformNode struct {
	Id     int
	Name   string
	Parent int // index into Graph.Transforms, or -1 for root

	Translate       [3]attr.Id
	TranslateStatic Vec3
	Rotate          [3]attr.Id
	RotateStatic    Vec3
	Scale           [3]attr.Id
	ScaleStatic     Vec3
	RotateOrder     RotateOrder
}

// Bundle is a 3D point whose position comes from evaluating its
// transform chain.
type Bundle struct {
	Id             int
	Name           string
	TransformIndex int
}

// Marker is a 2D observation tied to a Camera and a Bundle.
type Marker struct {
	Id          int
	Name        string
	CameraIndex int
	BundleIndex int
	Enable      bool
	Weight      float64 // > 0
	// Positions holds the observed screen-space position per frame, in
	// the normalised range [-0.5, 0.5]^2 adjusted by OverscanX/Y.
	Positions map[frame.Number]Vec2
	OverscanX float64
	OverscanY float64
}

// Position returns the marker's observed position at f, adjusted by
// marker-group overscan, and whether an observation exists.
func (m *Marker) Position(f frame.Number) (Vec2, bool) {
	p, ok := m.Positions[f]
	if !ok {
		return Vec2{}, false
	}
	return Vec2{p.X * m.OverscanX, p.Y * m.OverscanY}, true
}

// Graph is the scene DAG: transforms, cameras, bundles and markers,
// cross-referenced by index.
type Graph struct {
	Transforms []*TransformNode
	Cameras    []*Camera
	Bundles    []*Bundle
	Markers    []*Marker
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph { return &Graph{} }

// AddTransform appends a transform node and returns its index.
func (g *Graph) AddTransform(t *TransformNode) int {
	g.Transforms = append(g.Transforms, t)
	return len(g.Transforms) - 1
}

// AddCamera appends a camera and returns its index.
func (g *Graph) AddCamera(c *Camera) int {
	g.Cameras = append(g.Cameras, c)
	return len(g.Cameras) - 1
}

// AddBundle appends a bundle and returns its index.
func (g *Graph) AddBundle(b *Bundle) int {
	g.Bundles = append(g.Bundles, b)
	return len(g.Bundles) - 1
}

// AddMarker appends a marker and returns its index.
func (g *Graph) AddMarker(m *Marker) int {
	g.Markers = append(g.Markers, m)
	return len(g.Markers) - 1
}

// localMatrix evaluates one transform node's local TRS matrix at
// frame f.
func (g *Graph) localMatrix(idx int, block *attr.Block, f frame.Number) (Mat4, error) {
	n := g.Transforms[idx]
	t, err := g.resolveVec3(n.Translate, n.TranslateStatic, block, f)
	if err != nil {
		return Mat4{}, err
	}
	r, err := g.resolveVec3(n.Rotate, n.RotateStatic, block, f)
	if err != nil {
		return Mat4{}, err
	}
	sStatic := n.ScaleStatic
	if sStatic == (Vec3{}) {
		sStatic = Vec3{1, 1, 1}
	}
	s, err := g.resolveVec3(n.Scale, sStatic, block, f)
	if err != nil {
		return Mat4{}, err
	}
	return Compose(t, r, n.RotateOrder, s), nil
}

func (g *Graph) resolveVec3(ids [3]attr.Id, static Vec3, block *attr.Block, f frame.Number) (Vec3, error) {
	out := static
	vals := [3]*float64{&out.X, &out.Y, &out.Z}
	for i, id := range ids {
		if id == attr.NoId {
			continue
		}
		v, err := block.Get(id, f)
		if err != nil {
			return Vec3{}, err
		}
		*vals[i] = v
	}
	return out, nil
}

// WorldMatrix evaluates the full parent chain for transform idx at
// frame f, root-to-leaf.
func (g *Graph) WorldMatrix(idx int, block *attr.Block, f frame.Number) (Mat4, error) {
	if idx < 0 || idx >= len(g.Transforms) {
		return Mat4{}, errors.Errorf("scenegraph: transform index %d out of range", idx)
	}
	chain := g.AncestorChain(idx)
	m := Identity4()
	for i := len(chain) - 1; i >= 0; i-- {
		local, err := g.localMatrix(chain[i], block, f)
		if err != nil {
			return Mat4{}, err
		}
		m = m.Mul(local)
	}
	return m, nil
}

// AncestorChain returns idx followed by each of its ancestors, up to
// (and including) the root transform.
func (g *Graph) AncestorChain(idx int) []int {
	var chain []int
	for idx >= 0 {
		chain = append(chain, idx)
		idx = g.Transforms[idx].Parent
	}
	return chain
}

// BundleWorldPosition evaluates a bundle's world-space position at
// frame f.
func (g *Graph) BundleWorldPosition(bundleIdx int, block *attr.Block, f frame.Number) (Vec3, error) {
	b := g.Bundles[bundleIdx]
	m, err := g.WorldMatrix(b.TransformIndex, block, f)
	if err != nil {
		return Vec3{}, err
	}
	return m.MulPoint(Vec3{}), nil
}

// CameraWorldMatrix evaluates a camera's world matrix at frame f.
func (g *Graph) CameraWorldMatrix(cameraIdx int, block *attr.Block, f frame.Number) (Mat4, error) {
	c := g.Cameras[cameraIdx]
	return g.WorldMatrix(c.TransformIndex, block, f)
}

// AttrOwnerTransform returns the index of the transform node that
// declares id as one of its Translate/Rotate/Scale channels, or -1 if
// none does. Used by the affects analyser's "object" GraphMode.
func (g *Graph) AttrOwnerTransform(id attr.Id) int {
	if id == attr.NoId {
		return -1
	}
	for i, n := range g.Transforms {
		for _, set := range [][3]attr.Id{n.Translate, n.Rotate, n.Scale} {
			for _, a := range set {
				if a == id {
					return i
				}
			}
		}
	}
	return -1
}
