package affects

import (
	"testing"

	"github.com/mmsolver/mmsolver/attr"
	"github.com/mmsolver/mmsolver/frame"
	"github.com/mmsolver/mmsolver/scenegraph"
)

func buildTestGraph(t *testing.T) (*scenegraph.Graph, attr.Id, attr.Id, attr.Id) {
	t.Helper()
	g := scenegraph.NewGraph()

	camTx, err := attr.New(1, "camera.tx", attr.ObjectCamera, attr.RoleTranslateX, true, -1e9, 1e9, 0)
	if err != nil {
		t.Fatalf("camTx: %v", err)
	}
	bundleTx, err := attr.New(2, "bundle.tx", attr.ObjectBundle, attr.RoleTranslateX, false, -1e9, 1e9, 0)
	if err != nil {
		t.Fatalf("bundleTx: %v", err)
	}
	lensK1, err := attr.New(3, "lens.k1", attr.ObjectLens, attr.RoleLensCoeff0, false, -1, 1, 0)
	if err != nil {
		t.Fatalf("lensK1: %v", err)
	}

	camTransform := g.AddTransform(&scenegraph.TransformNode{
		Id:     1,
		Name:   "cam_tfm",
		Parent: -1,
		Translate: [3]attr.Id{camTx.Id, attr.NoId, attr.NoId},
	})
	bundleTransform := g.AddTransform(&scenegraph.TransformNode{
		Id:     2,
		Name:   "bundle_tfm",
		Parent: -1,
		Translate: [3]attr.Id{bundleTx.Id, attr.NoId, attr.NoId},
	})

	camIdx := g.AddCamera(&scenegraph.Camera{
		Id: 1, Name: "cam", TransformIndex: camTransform,
		FilmbackWidth: 36, FilmbackHeight: 24, Near: 0.1, Far: 1e6,
		RenderWidth: 1920, RenderHeight: 1080, CameraScale: 1,
	})
	bundleIdx := g.AddBundle(&scenegraph.Bundle{Id: 1, Name: "bundle", TransformIndex: bundleTransform})
	g.AddMarker(&scenegraph.Marker{
		Id: 1, Name: "marker", CameraIndex: camIdx, BundleIndex: bundleIdx,
		Enable: true, Weight: 1, OverscanX: 1, OverscanY: 1,
		Positions: map[frame.Number]scenegraph.Vec2{1: {}},
	})

	return g, camTx.Id, bundleTx.Id, lensK1.Id
}

func TestCubeContainmentSimpleObjectNormal(t *testing.T) {
	g, camTxId, bundleTxId, lensId := buildTestGraph(t)
	frames, err := frame.NewList([]frame.Number{1, 2})
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	attrs := []*attr.Attribute{
		mustAttr(t, camTxId, attr.ObjectCamera, attr.RoleTranslateX),
		mustAttr(t, bundleTxId, attr.ObjectBundle, attr.RoleTranslateX),
		mustAttr(t, lensId, attr.ObjectLens, attr.RoleLensCoeff0),
	}
	markerIndices := []int{0}

	simple, err := NewStrategy(ModeSimple, nil).Compute(g, markerIndices, attrs, frames)
	if err != nil {
		t.Fatalf("simple: %v", err)
	}
	object, err := NewStrategy(ModeObject, nil).Compute(g, markerIndices, attrs, frames)
	if err != nil {
		t.Fatalf("object: %v", err)
	}
	// lensAffects rejects the lens coefficient for this marker, making
	// normal a strict subset of object for the lens attribute.
	lensAffects := func(id attr.Id, markerGraphIdx int, f frame.Number) bool { return false }
	normal, err := NewNormalStrategy(lensAffects).Compute(g, markerIndices, attrs, frames)
	if err != nil {
		t.Fatalf("normal: %v", err)
	}

	if !simple.Contains(object) {
		t.Error("simple does not contain object")
	}
	if !object.Contains(normal) {
		t.Error("object does not contain normal")
	}
	if object.Contains(normal) && normal.Contains(object) {
		t.Error("expected normal to be a strict subset of object for the lens attribute, got equal cubes")
	}
	// The translate attributes are identical between object and normal.
	for f := 0; f < frames.Len(); f++ {
		if object.Get(0, 0, f) != normal.Get(0, 0, f) {
			t.Errorf("camera translate attr: object[%d]=%v normal[%d]=%v", f, object.Get(0, 0, f), f, normal.Get(0, 0, f))
		}
	}
	// The lens attribute is true under object (conservative) but false
	// under normal (lensAffects rejected it).
	for f := 0; f < frames.Len(); f++ {
		if !object.Get(0, 2, f) {
			t.Errorf("expected object to conservatively mark lens attr true at frame %d", f)
		}
		if normal.Get(0, 2, f) {
			t.Errorf("expected normal to mark lens attr false at frame %d per lensAffects", f)
		}
	}
}

func TestNormalStrategyDefaultsLikeObjectWhenNoLensFunc(t *testing.T) {
	g, camTxId, _, lensId := buildTestGraph(t)
	frames, err := frame.NewList([]frame.Number{1})
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	attrs := []*attr.Attribute{
		mustAttr(t, camTxId, attr.ObjectCamera, attr.RoleTranslateX),
		mustAttr(t, lensId, attr.ObjectLens, attr.RoleLensCoeff0),
	}
	markerIndices := []int{0}

	object, err := NewStrategy(ModeObject, nil).Compute(g, markerIndices, attrs, frames)
	if err != nil {
		t.Fatalf("object: %v", err)
	}
	normal, err := NewStrategy(ModeNormal, nil).Compute(g, markerIndices, attrs, frames)
	if err != nil {
		t.Fatalf("normal: %v", err)
	}
	if !object.Contains(normal) || !normal.Contains(object) {
		t.Error("expected normal to equal object when lensAffects is nil")
	}
}

func TestNodeNameStrategyDefaultsToTrueWhenUnknown(t *testing.T) {
	g, camTxId, _, _ := buildTestGraph(t)
	frames, err := frame.NewList([]frame.Number{1, 2})
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	attrs := []*attr.Attribute{mustAttr(t, camTxId, attr.ObjectCamera, attr.RoleTranslateX)}
	markerIndices := []int{0}

	store := NewMemoryChannelStore()
	store.Set(0, int(camTxId), 2, -1) // explicit "does not affect" at frame 2.

	cube, err := NewStrategy(ModeNodeName, store).Compute(g, markerIndices, attrs, frames)
	if err != nil {
		t.Fatalf("node-name: %v", err)
	}
	if !cube.Get(0, 0, 0) {
		t.Error("expected default-true for a frame with no stored channel value")
	}
	if cube.Get(0, 0, 1) {
		t.Error("expected false at the frame with an explicit -1 channel value")
	}

	WriteBack(store, markerIndices, attrs, frames, cube)
	v, has := store.Get(0, int(camTxId), 1)
	if !has || v != 1 {
		t.Errorf("WriteBack: got (%d, %v), want (1, true)", v, has)
	}
}

func TestMatricesDerivation(t *testing.T) {
	g, camTxId, bundleTxId, _ := buildTestGraph(t)
	frames, err := frame.NewList([]frame.Number{1, 2})
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	attrs := []*attr.Attribute{
		mustAttr(t, camTxId, attr.ObjectCamera, attr.RoleTranslateX),
		mustAttr(t, bundleTxId, attr.ObjectBundle, attr.RoleTranslateX),
	}
	markerIndices := []int{0}

	cube, err := NewStrategy(ModeObject, nil).Compute(g, markerIndices, attrs, frames)
	if err != nil {
		t.Fatalf("object: %v", err)
	}

	block := attr.NewBlock()
	for _, a := range attrs {
		if err := block.Add(a, 0); err != nil {
			t.Fatalf("block.Add: %v", err)
		}
	}
	packer := attr.NewPacker(block, attrs, frames, true)

	paramToFrame := BuildParameterToFrameMatrix(packer, frames.Len())
	if paramToFrame.Rows() != packer.NumParameters() || paramToFrame.Cols() != frames.Len() {
		t.Fatalf("paramToFrame shape = (%d, %d), want (%d, %d)", paramToFrame.Rows(), paramToFrame.Cols(), packer.NumParameters(), frames.Len())
	}

	pairMarker := []int{0, 0}
	pairFrame := []int{0, 1}
	errToParam := BuildErrorToParamMatrix(cube, packer, paramToFrame, pairMarker, pairFrame)
	if errToParam.Cols() != len(pairMarker) {
		t.Fatalf("errToParam cols = %d, want %d", errToParam.Cols(), len(pairMarker))
	}
}

func mustAttr(t *testing.T, id attr.Id, obj attr.ObjectType, role attr.Role) *attr.Attribute {
	t.Helper()
	a, err := attr.New(id, "attr", obj, role, false, -1e9, 1e9, 0)
	if err != nil {
		t.Fatalf("attr.New: %v", err)
	}
	return a
}
