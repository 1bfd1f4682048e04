package scenegraph

import (
	"math"
	"testing"

	"github.com/mmsolver/mmsolver/attr"
	"github.com/mmsolver/mmsolver/frame"
)

func newCamera(transformIdx int) *Camera {
	return &Camera{
		Id:                0,
		TransformIndex:    transformIdx,
		FocalLengthStatic: 35,
		FilmbackWidth:     36,
		FilmbackHeight:    24,
		FilmFit:           FilmFitFill,
		Near:              0.1,
		Far:               10000,
		CameraScale:       1,
		RenderWidth:       1920,
		RenderHeight:      1080,
	}
}

func TestProjectCenteredBundle(t *testing.T) {
	g := NewGraph()
	camTransform := g.AddTransform(&TransformNode{Name: "cam_xform", Parent: -1})
	camIdx := g.AddCamera(newCamera(camTransform))

	bundleTransform := g.AddTransform(&TransformNode{
		Name:            "bundle_xform",
		Parent:          -1,
		TranslateStatic: Vec3{0, 0, 10},
	})
	bundleIdx := g.AddBundle(&Bundle{TransformIndex: bundleTransform})

	block := attr.NewBlock()
	world, err := g.BundleWorldPosition(bundleIdx, block, 1)
	if err != nil {
		t.Fatal(err)
	}
	camWorld, err := g.CameraWorldMatrix(camIdx, block, 1)
	if err != nil {
		t.Fatal(err)
	}
	cam := g.Cameras[camIdx]
	proj, err := cam.ProjectionMatrix(block)
	if err != nil {
		t.Fatal(err)
	}
	x, y, inFront := Project(world, camWorld, proj, cam.Near)
	if !inFront {
		t.Fatal("expected bundle to be in front of camera")
	}
	if math.Abs(x) > 1e-9 || math.Abs(y) > 1e-9 {
		t.Errorf("centered bundle projected to (%v, %v), want (0, 0)", x, y)
	}
}

func TestProjectOffsetBundleNonZero(t *testing.T) {
	g := NewGraph()
	camTransform := g.AddTransform(&TransformNode{Parent: -1})
	camIdx := g.AddCamera(newCamera(camTransform))
	bundleTransform := g.AddTransform(&TransformNode{
		Parent:          -1,
		TranslateStatic: Vec3{1, 0, 10},
	})
	bundleIdx := g.AddBundle(&Bundle{TransformIndex: bundleTransform})

	block := attr.NewBlock()
	world, _ := g.BundleWorldPosition(bundleIdx, block, 1)
	camWorld, _ := g.CameraWorldMatrix(camIdx, block, 1)
	cam := g.Cameras[camIdx]
	proj, _ := cam.ProjectionMatrix(block)
	x, _, _ := Project(world, camWorld, proj, cam.Near)
	if x <= 0 {
		t.Errorf("offset bundle projected x = %v, want > 0", x)
	}
}

func TestFilmFitScale(t *testing.T) {
	c := &Camera{FilmbackWidth: 36, FilmbackHeight: 24, RenderWidth: 1920, RenderHeight: 1080, FilmFit: FilmFitHorizontal}
	sx, sy := c.FilmFitScale()
	if sx != 1 {
		t.Errorf("horizontal fit: sx = %v, want 1", sx)
	}
	// filmAspect (1.5) < imageAspect (1.778) so no scaling is applied
	// in this case.
	if sy != 1 {
		t.Errorf("horizontal fit: sy = %v, want 1", sy)
	}
}

func TestAttrOwnerTransform(t *testing.T) {
	g := NewGraph()
	tx := attr.Id(7)
	idx := g.AddTransform(&TransformNode{Translate: [3]attr.Id{tx, attr.NoId, attr.NoId}})
	if got := g.AttrOwnerTransform(tx); got != idx {
		t.Errorf("AttrOwnerTransform = %d, want %d", got, idx)
	}
	if got := g.AttrOwnerTransform(attr.Id(999)); got != -1 {
		t.Errorf("AttrOwnerTransform of unknown id = %d, want -1", got)
	}
}

func TestAncestorChain(t *testing.T) {
	g := NewGraph()
	root := g.AddTransform(&TransformNode{Parent: -1})
	child := g.AddTransform(&TransformNode{Parent: root})
	leaf := g.AddTransform(&TransformNode{Parent: child})
	chain := g.AncestorChain(leaf)
	want := []int{leaf, child, root}
	if len(chain) != len(want) {
		t.Fatalf("chain = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("chain[%d] = %d, want %d", i, chain[i], want[i])
		}
	}
}

func TestBakeSceneGraphAndEvaluate(t *testing.T) {
	g := NewGraph()
	camTransform := g.AddTransform(&TransformNode{Parent: -1})
	camIdx := g.AddCamera(newCamera(camTransform))
	bundleTransform := g.AddTransform(&TransformNode{Parent: -1, TranslateStatic: Vec3{0, 0, 10}})
	bundleIdx := g.AddBundle(&Bundle{TransformIndex: bundleTransform})
	markerIdx := g.AddMarker(&Marker{
		CameraIndex: camIdx,
		BundleIndex: bundleIdx,
		Enable:      true,
		Weight:      1,
		OverscanX:   1,
		OverscanY:   1,
		Positions:   map[frame.Number]Vec2{1: {0, 0}},
	})

	fl, err := frame.NewList([]frame.Number{1})
	if err != nil {
		t.Fatal(err)
	}
	fs, err := BakeSceneGraph(g, EvaluationObjects{MarkerIndices: []int{markerIdx}, Frames: fl})
	if err != nil {
		t.Fatal(err)
	}
	block := attr.NewBlock()
	if err := fs.Evaluate(block); err != nil {
		t.Fatal(err)
	}
	p := fs.Point(0, 0)
	if math.Abs(p.X) > 1e-9 || math.Abs(p.Y) > 1e-9 {
		t.Errorf("baked point = %+v, want (0, 0)", p)
	}
}
