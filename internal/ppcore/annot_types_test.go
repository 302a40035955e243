package ppcore

import "testing"

func TestRectNormalize(t *testing.T) {
	r := Rect{X0: 10, Y0: 10, X1: 0, Y1: 0}.Normalize()
	if r.X0 != 0 || r.Y0 != 0 || r.X1 != 10 || r.Y1 != 10 {
		t.Fatalf("Normalize() = %+v", r)
	}
}

func TestRectUnion(t *testing.T) {
	a := Rect{0, 0, 5, 5}
	b := Rect{3, 3, 10, 10}
	u := a.Union(b)
	want := Rect{0, 0, 10, 10}
	if u != want {
		t.Fatalf("Union() = %+v, want %+v", u, want)
	}
}

func TestBoundsOfEmpty(t *testing.T) {
	if got := BoundsOf(nil); got != (Rect{}) {
		t.Fatalf("BoundsOf(nil) = %+v, want zero rect", got)
	}
}

func TestBoundsOf(t *testing.T) {
	pts := []Point{{1, 1}, {5, 2}, {3, 8}}
	got := BoundsOf(pts)
	want := Rect{1, 1, 5, 8}
	if got != want {
		t.Fatalf("BoundsOf() = %+v, want %+v", got, want)
	}
}

func TestObjectIDPacking(t *testing.T) {
	id := packObjectID(42, 3)
	if id.objNum() != 42 {
		t.Fatalf("objNum() = %d, want 42", id.objNum())
	}
	if id.gen() != 3 {
		t.Fatalf("gen() = %d, want 3", id.gen())
	}
	if id.String() != "42:3" {
		t.Fatalf("String() = %q", id.String())
	}
}

func TestObjectIDNone(t *testing.T) {
	id := packObjectID(0, 0)
	if id != NoObjectID {
		t.Fatalf("packObjectID(0,0) = %v, want NoObjectID", id)
	}
	if NoObjectID.String() != "none" {
		t.Fatalf("NoObjectID.String() = %q", NoObjectID.String())
	}
}

func TestColorClamp(t *testing.T) {
	c := Color{R: -0.5, G: 0.5, B: 1.5}.clamp()
	if c.R != 0 || c.G != 0.5 || c.B != 1 {
		t.Fatalf("clamp() = %+v", c)
	}
}

func TestAnnotTypeString(t *testing.T) {
	cases := map[AnnotType]string{
		AnnotHighlight: "HIGHLIGHT",
		AnnotFreeText:  "FREE_TEXT",
		AnnotInk:       "INK",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", typ, got, want)
		}
	}
}
