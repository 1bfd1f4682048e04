package residual

import (
	"math"
	"testing"

	"github.com/mmsolver/mmsolver/attr"
	"github.com/mmsolver/mmsolver/frame"
	"github.com/mmsolver/mmsolver/lensmodel"
	"github.com/mmsolver/mmsolver/scenegraph"
)

func buildOneMarkerScene(t *testing.T, bundleX float64, observed scenegraph.Vec2) (*scenegraph.FlatScene, *attr.Block) {
	t.Helper()
	g := scenegraph.NewGraph()
	camTransform := g.AddTransform(&scenegraph.TransformNode{Parent: -1})
	camIdx := g.AddCamera(&scenegraph.Camera{
		FocalLengthStatic: 35, FilmbackWidth: 36, FilmbackHeight: 24,
		FilmFit: scenegraph.FilmFitFill, Near: 0.1, Far: 10000,
		CameraScale: 1, RenderWidth: 1920, RenderHeight: 1080,
	})
	bundleTransform := g.AddTransform(&scenegraph.TransformNode{
		Parent: -1, TranslateStatic: scenegraph.Vec3{X: bundleX, Y: 0, Z: 10},
	})
	bundleIdx := g.AddBundle(&scenegraph.Bundle{TransformIndex: bundleTransform})
	markerIdx := g.AddMarker(&scenegraph.Marker{
		CameraIndex: camIdx, BundleIndex: bundleIdx, Enable: true, Weight: 1,
		OverscanX: 1, OverscanY: 1,
		Positions: map[frame.Number]scenegraph.Vec2{1: observed},
	})

	fl, err := frame.NewList([]frame.Number{1})
	if err != nil {
		t.Fatal(err)
	}
	fs, err := scenegraph.BakeSceneGraph(g, scenegraph.EvaluationObjects{MarkerIndices: []int{markerIdx}, Frames: fl})
	if err != nil {
		t.Fatal(err)
	}
	return fs, attr.NewBlock()
}

func TestEvaluateCenteredBundleZeroResidual(t *testing.T) {
	fs, block := buildOneMarkerScene(t, 0, scenegraph.Vec2{})
	eval := NewEvaluator(fs, block, nil, nil, []float64{1}, 1920, LossTrivial, 1)

	errs := make([]float64, eval.NumResiduals())
	dist := make([]float64, eval.NumMarkerPairs())
	if err := eval.Evaluate([]bool{true}, nil, nil, errs, dist); err != nil {
		t.Fatal(err)
	}
	if math.Abs(errs[0]) > 1e-6 || math.Abs(errs[1]) > 1e-6 {
		t.Errorf("errors = %v, want ~0", errs)
	}
	if dist[0] > 1e-6 {
		t.Errorf("errorDistance = %v, want ~0", dist[0])
	}
}

func TestEvaluateSkipsDisabledFrame(t *testing.T) {
	fs, block := buildOneMarkerScene(t, 1, scenegraph.Vec2{})
	eval := NewEvaluator(fs, block, nil, nil, []float64{1}, 1920, LossTrivial, 1)

	errs := make([]float64, eval.NumResiduals())
	dist := make([]float64, eval.NumMarkerPairs())
	errs[0], errs[1] = 42, 43
	dist[0] = 44
	if err := eval.Evaluate([]bool{false}, nil, nil, errs, dist); err != nil {
		t.Fatal(err)
	}
	if errs[0] != 42 || errs[1] != 43 || dist[0] != 44 {
		t.Errorf("disabled frame overwrote buffers: errs=%v dist=%v", errs, dist)
	}
}

func TestEvaluateSkipMaskAndAffects(t *testing.T) {
	fs, block := buildOneMarkerScene(t, 1, scenegraph.Vec2{})
	eval := NewEvaluator(fs, block, nil, nil, []float64{1}, 1920, LossTrivial, 1)

	errs := make([]float64, eval.NumResiduals())
	dist := make([]float64, eval.NumMarkerPairs())
	errs[0] = 7
	if err := eval.Evaluate([]bool{true}, []bool{true}, nil, errs, dist); err != nil {
		t.Fatal(err)
	}
	if errs[0] != 7 {
		t.Errorf("skip mask should have preserved errs[0], got %v", errs[0])
	}

	affects := func(mi, fi int) bool { return false }
	errs[0] = 9
	if err := eval.Evaluate([]bool{true}, nil, affects, errs, dist); err != nil {
		t.Fatal(err)
	}
	if errs[0] != 9 {
		t.Errorf("affects=false should have preserved errs[0], got %v", errs[0])
	}
}

func TestEvaluateAppliesLensChain(t *testing.T) {
	fs, block := buildOneMarkerScene(t, 0, scenegraph.Vec2{})
	arena := lensmodel.NewArena()
	idx, err := arena.Add(constantOffsetLens{dx: 0.01, dy: -0.02}, lensmodel.None)
	if err != nil {
		t.Fatal(err)
	}
	eval := NewEvaluator(fs, block, arena, []lensmodel.Index{idx}, []float64{1}, 1000, LossTrivial, 1)

	errs := make([]float64, eval.NumResiduals())
	dist := make([]float64, eval.NumMarkerPairs())
	if err := eval.Evaluate([]bool{true}, nil, nil, errs, dist); err != nil {
		t.Fatal(err)
	}
	// Distorted projection point is (0.01, -0.02); observed is (0,0), so
	// dx = (0 - 0.01) * 1000 = -10, dy = (0 - -0.02) * 1000 = 20.
	if math.Abs(errs[0]+10) > 1e-6 {
		t.Errorf("errs[0] = %v, want -10", errs[0])
	}
	if math.Abs(errs[1]-20) > 1e-6 {
		t.Errorf("errs[1] = %v, want 20", errs[1])
	}
}

func TestRobustLossTrivialIsIdentity(t *testing.T) {
	for _, f := range []float64{0, 1.5, -3.2, 100} {
		if got := Apply(LossTrivial, 1, f); got != f {
			t.Errorf("Apply(trivial, %v) = %v, want %v", f, got, f)
		}
	}
}

func TestAggregateDistanceSkipsNonFinite(t *testing.T) {
	min, avg, max := AggregateDistance([]float64{1, 2, math.NaN(), 3})
	if min != 1 || max != 3 || math.Abs(avg-2) > 1e-9 {
		t.Errorf("got (%v, %v, %v), want (1, 2, 3)", min, avg, max)
	}
}

type constantOffsetLens struct{ dx, dy float64 }

func (l constantOffsetLens) ApplyDistort(x, y float64) (float64, float64) {
	return x + l.dx, y + l.dy
}
