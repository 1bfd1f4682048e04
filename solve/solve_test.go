package solve

import (
	"math"
	"testing"

	"github.com/mmsolver/mmsolver/affects"
	"github.com/mmsolver/mmsolver/attr"
	"github.com/mmsolver/mmsolver/frame"
	"github.com/mmsolver/mmsolver/scenegraph"
)

func defaultOptions() Options {
	return Options{
		IterMax:                       50,
		Tau:                           1e-3,
		FunctionTolerance:             1e-10,
		ParameterTolerance:            1e-10,
		GradientTolerance:             1e-10,
		Delta:                         1e-6,
		ImageWidth:                    1920,
		SceneGraphMode:                affects.ModeSimple,
		SolverType:                    SolverTypeLMDif,
		SolverSupportsAutoDiffForward: true,
		SolverSupportsParameterBounds: true,
	}
}

func newTestCamera(transformIdx int) *scenegraph.Camera {
	return &scenegraph.Camera{
		TransformIndex:    transformIdx,
		FocalLengthStatic: 35,
		FilmbackWidth:     36,
		FilmbackHeight:    24,
		FilmFit:           scenegraph.FilmFitFill,
		Near:              0.1,
		Far:               10000,
		CameraScale:       1,
		RenderWidth:       1920,
		RenderHeight:      1080,
	}
}

// oneBundleOneAttr builds the scenario S1 fixture: a single camera, a
// single bundle whose world-space X translation is the only unknown,
// and a single marker observing it at one frame. The observed position
// is generated by projecting a known bundle position, so the solve
// should recover that position's X coordinate.
func oneBundleOneAttr(t *testing.T) (*Inputs, attr.Id) {
	t.Helper()
	g := scenegraph.NewGraph()
	camTransform := g.AddTransform(&scenegraph.TransformNode{Parent: -1})
	camIdx := g.AddCamera(newTestCamera(camTransform))

	xAttr, err := attr.New(1, "bundle1_translateX", attr.ObjectBundle, attr.RoleTranslateX, false, -1e6, 1e6, 0)
	if err != nil {
		t.Fatal(err)
	}
	block := attr.NewBlock()
	if err := block.Add(xAttr, 0); err != nil {
		t.Fatal(err)
	}

	bundleTransform := g.AddTransform(&scenegraph.TransformNode{
		Parent:          -1,
		Translate:       [3]attr.Id{xAttr.Id, attr.NoId, attr.NoId},
		TranslateStatic: scenegraph.Vec3{Z: 10},
	})
	bundleIdx := g.AddBundle(&scenegraph.Bundle{TransformIndex: bundleTransform})

	// Known true X is 2; project it once with a throwaway block to get
	// the observed marker position the solve must recover.
	truth := attr.NewBlock()
	truthAttr, _ := attr.New(1, "truth", attr.ObjectBundle, attr.RoleTranslateX, false, -1e6, 1e6, 2)
	truth.Add(truthAttr, 2)
	world, err := g.BundleWorldPosition(bundleIdx, truth, 1)
	if err != nil {
		t.Fatal(err)
	}
	camWorld, _ := g.CameraWorldMatrix(camIdx, truth, 1)
	cam := g.Cameras[camIdx]
	proj, _ := cam.ProjectionMatrix(truth)
	obsX, obsY, _ := scenegraph.Project(world, camWorld, proj, cam.Near)

	markerIdx := g.AddMarker(&scenegraph.Marker{
		CameraIndex: camIdx,
		BundleIndex: bundleIdx,
		Enable:      true,
		Weight:      1,
		OverscanX:   1,
		OverscanY:   1,
		Positions:   map[frame.Number]scenegraph.Vec2{1: {X: obsX, Y: obsY}},
	})

	frames, err := frame.NewList([]frame.Number{1})
	if err != nil {
		t.Fatal(err)
	}

	in := &Inputs{
		Graph:         g,
		MarkerIndices: []int{markerIdx},
		Attrs:         []*attr.Attribute{xAttr},
		Block:         block,
		Frames:        frames,
		ChannelStore:  affects.NewMemoryChannelStore(),
	}
	return in, xAttr.Id
}

func TestSolveOneBundleOneAttrRecoversTranslation(t *testing.T) {
	in, xId := oneBundleOneAttr(t)
	res := Solve(in, defaultOptions(), 0, nil)
	if !res.Success {
		t.Fatalf("solve failed: %s", res.ReasonString)
	}
	got, err := in.Block.Get(xId, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-2) > 1e-2 {
		t.Errorf("solved translateX = %v, want ~2", got)
	}
	if res.NumberOfParameters != 1 {
		t.Errorf("NumberOfParameters = %d, want 1", res.NumberOfParameters)
	}
}

func TestSolveRigidBodyTenFrames(t *testing.T) {
	g := scenegraph.NewGraph()
	camTransform := g.AddTransform(&scenegraph.TransformNode{Parent: -1})
	camIdx := g.AddCamera(newTestCamera(camTransform))

	xAttr, err := attr.New(1, "bundle_translateX", attr.ObjectBundle, attr.RoleTranslateX, true, -1e6, 1e6, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := xAttr.SetRange(1, 10); err != nil {
		t.Fatal(err)
	}
	block := attr.NewBlock()
	if err := block.Add(xAttr, 0); err != nil {
		t.Fatal(err)
	}

	bundleTransform := g.AddTransform(&scenegraph.TransformNode{
		Parent:          -1,
		Translate:       [3]attr.Id{xAttr.Id, attr.NoId, attr.NoId},
		TranslateStatic: scenegraph.Vec3{Z: 10},
	})
	bundleIdx := g.AddBundle(&scenegraph.Bundle{TransformIndex: bundleTransform})

	frameNums := make([]frame.Number, 0, 10)
	positions := make(map[frame.Number]scenegraph.Vec2, 10)
	truth := attr.NewBlock()
	truthAttr, _ := attr.New(1, "truth", attr.ObjectBundle, attr.RoleTranslateX, true, -1e6, 1e6, 0)
	truthAttr.SetRange(1, 10)
	truth.Add(truthAttr, 0)
	for f := frame.Number(1); f <= 10; f++ {
		frameNums = append(frameNums, f)
		truth.Set(truthAttr.Id, f, float64(f)*0.1) // a slow rigid pan
		world, err := g.BundleWorldPosition(bundleIdx, truth, f)
		if err != nil {
			t.Fatal(err)
		}
		camWorld, _ := g.CameraWorldMatrix(camIdx, truth, f)
		cam := g.Cameras[camIdx]
		proj, _ := cam.ProjectionMatrix(truth)
		x, y, _ := scenegraph.Project(world, camWorld, proj, cam.Near)
		positions[f] = scenegraph.Vec2{X: x, Y: y}
	}

	markerIdx := g.AddMarker(&scenegraph.Marker{
		CameraIndex: camIdx,
		BundleIndex: bundleIdx,
		Enable:      true,
		Weight:      1,
		OverscanX:   1,
		OverscanY:   1,
		Positions:   positions,
	})

	frames, err := frame.NewList(frameNums)
	if err != nil {
		t.Fatal(err)
	}
	in := &Inputs{
		Graph:         g,
		MarkerIndices: []int{markerIdx},
		Attrs:         []*attr.Attribute{xAttr},
		Block:         block,
		Frames:        frames,
		ChannelStore:  affects.NewMemoryChannelStore(),
	}

	res := Solve(in, defaultOptions(), 0, nil)
	if !res.Success {
		t.Fatalf("solve failed: %s", res.ReasonString)
	}
	if res.NumberOfParameters != 10 {
		t.Errorf("NumberOfParameters = %d, want 10 (one per frame)", res.NumberOfParameters)
	}
	for f := frame.Number(1); f <= 10; f++ {
		got, err := block.Get(xAttr.Id, f)
		if err != nil {
			t.Fatal(err)
		}
		want := float64(f) * 0.1
		if math.Abs(got-want) > 5e-2 {
			t.Errorf("frame %d: solved translateX = %v, want ~%v", f, got, want)
		}
	}
}

// TestSolveBoundedParameterClampsToBound exercises the bounded-param
// scenario S3: an attribute whose xmax is well inside the unbounded
// optimum, verifying the solve never reports a parameter outside
// [xmin, xmax].
func TestSolveBoundedParameterClampsToBound(t *testing.T) {
	in, xId := oneBundleOneAttr(t)
	// Tighten the bound so the true value (2) is out of reach.
	in.Attrs[0].Max = 1

	res := Solve(in, defaultOptions(), 0, nil)
	if !res.Success {
		t.Fatalf("solve failed: %s", res.ReasonString)
	}
	got, err := in.Block.Get(xId, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got > 1+1e-6 || got < -1e6 {
		t.Errorf("solved translateX = %v, want <= 1 (bound)", got)
	}
}

// TestSolveCancellationStopsAndRestoresInitial exercises S4: a Cancel
// func that fires immediately should report UserInterrupted and leave
// the block holding its initial value.
func TestSolveCancellationStopsAndRestoresInitial(t *testing.T) {
	in, xId := oneBundleOneAttr(t)
	in.Cancel = func() bool { return true }

	res := Solve(in, defaultOptions(), 0, nil)
	if res.Success {
		t.Fatalf("expected cancellation failure, got success: %+v", res)
	}
	if !res.UserInterrupted {
		t.Errorf("UserInterrupted = false, want true")
	}
	got, err := in.Block.Get(xId, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("translateX after cancellation = %v, want unchanged initial 0", got)
	}
}

// TestSolveSparsityExcludesUnusedMarker exercises S5: a second,
// disabled and disconnected bundle/marker pair that shares no
// attribute with the first is excluded, its attribute must be
// reported unused, and it must not move the first bundle's solved
// value.
func TestSolveSparsityExcludesUnusedMarker(t *testing.T) {
	in, xId := oneBundleOneAttr(t)

	// A second camera/bundle/marker with its own attribute, wired into
	// the same graph but independent of xAttr.
	camTransform2 := in.Graph.AddTransform(&scenegraph.TransformNode{Parent: -1})
	camIdx2 := in.Graph.AddCamera(newTestCamera(camTransform2))
	yAttr, err := attr.New(2, "bundle2_translateX", attr.ObjectBundle, attr.RoleTranslateX, false, -1e6, 1e6, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := in.Block.Add(yAttr, 0); err != nil {
		t.Fatal(err)
	}
	bundleTransform2 := in.Graph.AddTransform(&scenegraph.TransformNode{
		Parent:          -1,
		Translate:       [3]attr.Id{yAttr.Id, attr.NoId, attr.NoId},
		TranslateStatic: scenegraph.Vec3{Z: 10},
	})
	bundleIdx2 := in.Graph.AddBundle(&scenegraph.Bundle{TransformIndex: bundleTransform2})
	markerIdx2 := in.Graph.AddMarker(&scenegraph.Marker{
		CameraIndex: camIdx2,
		BundleIndex: bundleIdx2,
		Enable:      false, // disabled: must be excluded from the solve entirely
		Weight:      1,
		OverscanX:   1,
		OverscanY:   1,
		Positions:   map[frame.Number]scenegraph.Vec2{1: {X: 0, Y: 0}},
	})
	_ = markerIdx2

	in.Attrs = append(in.Attrs, yAttr)

	opts := defaultOptions()
	opts.SceneGraphMode = affects.ModeObject // need real connectivity, not ModeSimple's all-true cube
	res := Solve(in, opts, 0, nil)
	if !res.Success {
		t.Fatalf("solve failed: %s", res.ReasonString)
	}
	got, err := in.Block.Get(xId, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-2) > 1e-2 {
		t.Errorf("solved translateX = %v, want ~2 (unaffected by unused attribute)", got)
	}
	found := false
	for _, id := range res.AttributesUnused {
		if attr.Id(id) == yAttr.Id {
			found = true
		}
	}
	if !found {
		t.Errorf("AttributesUnused = %v, want to contain yAttr.Id=%d", res.AttributesUnused, yAttr.Id)
	}
}

// TestSolvePerFrameMatchesAllAtOnceForIndependentFrames exercises S6:
// when every frame's parameter is independent (an animated attribute
// solved per-frame has no cross-frame coupling here), FrameSolvePerFrame
// and FrameSolveAllAtOnce should recover the same per-frame values.
func TestSolvePerFrameMatchesAllAtOnceForIndependentFrames(t *testing.T) {
	buildInputs := func(t *testing.T) *Inputs {
		g := scenegraph.NewGraph()
		camTransform := g.AddTransform(&scenegraph.TransformNode{Parent: -1})
		camIdx := g.AddCamera(newTestCamera(camTransform))

		xAttr, err := attr.New(1, "bundle_translateX", attr.ObjectBundle, attr.RoleTranslateX, true, -1e6, 1e6, 0)
		if err != nil {
			t.Fatal(err)
		}
		if err := xAttr.SetRange(1, 3); err != nil {
			t.Fatal(err)
		}
		block := attr.NewBlock()
		if err := block.Add(xAttr, 0); err != nil {
			t.Fatal(err)
		}
		bundleTransform := g.AddTransform(&scenegraph.TransformNode{
			Parent:          -1,
			Translate:       [3]attr.Id{xAttr.Id, attr.NoId, attr.NoId},
			TranslateStatic: scenegraph.Vec3{Z: 10},
		})
		bundleIdx := g.AddBundle(&scenegraph.Bundle{TransformIndex: bundleTransform})

		truth := attr.NewBlock()
		truthAttr, _ := attr.New(1, "truth", attr.ObjectBundle, attr.RoleTranslateX, true, -1e6, 1e6, 0)
		truthAttr.SetRange(1, 3)
		truth.Add(truthAttr, 0)
		want := map[frame.Number]float64{1: 1, 2: 2, 3: -1}
		positions := make(map[frame.Number]scenegraph.Vec2, 3)
		for f, v := range want {
			truth.Set(truthAttr.Id, f, v)
			world, _ := g.BundleWorldPosition(bundleIdx, truth, f)
			camWorld, _ := g.CameraWorldMatrix(camIdx, truth, f)
			cam := g.Cameras[camIdx]
			proj, _ := cam.ProjectionMatrix(truth)
			x, y, _ := scenegraph.Project(world, camWorld, proj, cam.Near)
			positions[f] = scenegraph.Vec2{X: x, Y: y}
		}
		markerIdx := g.AddMarker(&scenegraph.Marker{
			CameraIndex: camIdx,
			BundleIndex: bundleIdx,
			Enable:      true,
			Weight:      1,
			OverscanX:   1,
			OverscanY:   1,
			Positions:   positions,
		})
		frames, err := frame.NewList([]frame.Number{1, 2, 3})
		if err != nil {
			t.Fatal(err)
		}
		return &Inputs{
			Graph:         g,
			MarkerIndices: []int{markerIdx},
			Attrs:         []*attr.Attribute{xAttr},
			Block:         block,
			Frames:        frames,
			ChannelStore:  affects.NewMemoryChannelStore(),
		}
	}

	allAtOnce := buildInputs(t)
	optsAll := defaultOptions()
	optsAll.FrameSolveMode = FrameSolveAllAtOnce
	resAll := Solve(allAtOnce, optsAll, 0, nil)
	if !resAll.Success {
		t.Fatalf("all-at-once solve failed: %s", resAll.ReasonString)
	}

	perFrame := buildInputs(t)
	optsPer := defaultOptions()
	optsPer.FrameSolveMode = FrameSolvePerFrame
	resPer := Solve(perFrame, optsPer, 0, nil)
	if !resPer.Success {
		t.Fatalf("per-frame solve failed: %s", resPer.ReasonString)
	}

	xAttr := allAtOnce.Attrs[0].Id
	for f := frame.Number(1); f <= 3; f++ {
		gotAll, err := allAtOnce.Block.Get(xAttr, f)
		if err != nil {
			t.Fatal(err)
		}
		gotPer, err := perFrame.Block.Get(xAttr, f)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(gotAll-gotPer) > 1e-2 {
			t.Errorf("frame %d: all-at-once = %v, per-frame = %v, want approximately equal", f, gotAll, gotPer)
		}
	}
}

// TestSolveInvalidInputReportsFailure exercises the preflight
// rejection path: zero enabled markers must fail fast with
// reasonInvalidInput rather than reaching the kernel.
func TestSolveInvalidInputReportsFailure(t *testing.T) {
	in, _ := oneBundleOneAttr(t)
	in.Graph.Markers[0].Enable = false

	res := Solve(in, defaultOptions(), 0, nil)
	if res.Success {
		t.Fatal("expected failure for zero enabled markers")
	}
	if res.ReasonNum != int(reasonInvalidInput) {
		t.Errorf("ReasonNum = %d, want %d (reasonInvalidInput)", res.ReasonNum, reasonInvalidInput)
	}
}

// TestSolvePrintStatsDoesNotInvokeKernel exercises the do-not-solve
// PrintStats bitmask: affects/count analysis still runs but the kernel
// is never invoked.
func TestSolvePrintStatsDoesNotInvokeKernel(t *testing.T) {
	in, xId := oneBundleOneAttr(t)
	res := Solve(in, defaultOptions(), PrintInputs, nil)
	if !res.Success {
		t.Fatalf("print-stats solve reported failure: %s", res.ReasonString)
	}
	got, err := in.Block.Get(xId, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("translateX after print-stats-only run = %v, want unchanged 0", got)
	}
	if res.MarkerAffectsAttribute == nil {
		t.Errorf("MarkerAffectsAttribute = nil, want a computed sparsity cube")
	}
}
