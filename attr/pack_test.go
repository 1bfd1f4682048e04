package attr

import (
	"math"
	"testing"

	"github.com/mmsolver/mmsolver/frame"
)

func TestBoxConstraintRoundTrip(t *testing.T) {
	// Testable property 4: ext_to_int(int_to_ext(v_int)) ~= v_int
	// within 1e-9 for v_int in (-pi/2, pi/2), for finite bounds.
	xmin, xmax := -5.0, 5.0
	for vInt := -math.Pi/2 + 0.01; vInt < math.Pi/2; vInt += 0.05 {
		vExt := InternalToExternal(vInt, xmin, xmax, 0, 1)
		got := ExternalToInternal(vExt, xmin, xmax, 0, 1)
		if math.Abs(got-vInt) > 1e-9 {
			t.Errorf("round trip v_int=%v: got %v, want within 1e-9", vInt, got)
		}
	}
}

func TestBoxConstraintStaysInBounds(t *testing.T) {
	// Testable property 5: parameterBoundFromInternalToExternal(v_int,
	// xmin, xmax, 0, 1) in [xmin, xmax] for every finite v_int.
	xmin, xmax := 0.0, 1.0
	for vInt := -50.0; vInt <= 50.0; vInt += 0.37 {
		got := InternalToExternal(vInt, xmin, xmax, 0, 1)
		if got < xmin-1e-12 || got > xmax+1e-12 {
			t.Errorf("v_int=%v: got %v outside [%v, %v]", vInt, got, xmin, xmax)
		}
	}
}

func TestBoxConstraintLowerOnly(t *testing.T) {
	xmin := 2.0
	for vInt := -10.0; vInt <= 10.0; vInt += 1 {
		vExt := InternalToExternal(vInt, xmin, math.Inf(1), 0, 1)
		if vExt < xmin-1e-9 {
			t.Errorf("vExt %v below xmin %v", vExt, xmin)
		}
	}
}

func TestBoxConstraintUpperOnly(t *testing.T) {
	xmax := 2.0
	for vInt := -10.0; vInt <= 10.0; vInt += 1 {
		vExt := InternalToExternal(vInt, math.Inf(-1), xmax, 0, 1)
		if vExt > xmax+1e-9 {
			t.Errorf("vExt %v above xmax %v", vExt, xmax)
		}
	}
}

func TestBoxConstraintUnbounded(t *testing.T) {
	got := InternalToExternal(3.0, math.Inf(-1), math.Inf(1), 1.0, 2.0)
	want := 3.0/2.0 - 1.0
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func newTestAttr(t *testing.T, id Id, name string, animated bool, min, max, initial float64) *Attribute {
	t.Helper()
	a, err := New(id, name, ObjectBundle, RoleTranslateX, animated, min, max, initial)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestPackerNumParameters(t *testing.T) {
	fl, err := frame.NewList([]frame.Number{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	block := NewBlock()

	static := newTestAttr(t, 1, "static", false, math.Inf(-1), math.Inf(1), 0)
	if err := block.Add(static, 0); err != nil {
		t.Fatal(err)
	}

	anim := newTestAttr(t, 2, "anim", true, math.Inf(-1), math.Inf(1), 0)
	if err := anim.SetRange(1, 3); err != nil {
		t.Fatal(err)
	}
	if err := block.Add(anim, 0); err != nil {
		t.Fatal(err)
	}

	p := NewPacker(block, []*Attribute{static, anim}, fl, true)
	// 1 static parameter + 3 animated (one per enabled frame) = 4.
	if p.NumParameters() != 4 {
		t.Fatalf("NumParameters() = %d, want 4", p.NumParameters())
	}

	fl.SetEnabled(2, false)
	p = NewPacker(block, []*Attribute{static, anim}, fl, true)
	if p.NumParameters() != 3 {
		t.Fatalf("NumParameters() = %d, want 3 after disabling frame 2", p.NumParameters())
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	fl, err := frame.NewList([]frame.Number{10})
	if err != nil {
		t.Fatal(err)
	}
	block := NewBlock()
	a := newTestAttr(t, 5, "bounded", false, -5, 5, 1.0)
	if err := block.Add(a, 1.0); err != nil {
		t.Fatal(err)
	}
	p := NewPacker(block, []*Attribute{a}, fl, true)

	params, err := p.Pack()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Unpack(params); err != nil {
		t.Fatal(err)
	}
	got, err := block.Get(a.Id, 10)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("round trip value = %v, want 1.0", got)
	}
}
