package ppcore

import "testing"

func TestSimplifyPolylineKeepsEndpoints(t *testing.T) {
	pts := []Point{{0, 0}, {1, 0.01}, {2, -0.01}, {3, 0.02}, {10, 0}}
	out := SimplifyPolyline(pts, 1.0)
	if len(out) < 2 {
		t.Fatalf("simplified to %d points, want at least endpoints", len(out))
	}
	if out[0] != pts[0] || out[len(out)-1] != pts[len(pts)-1] {
		t.Fatalf("endpoints not preserved: got %+v", out)
	}
}

func TestSimplifyPolylineDropsNearlyColinearPoints(t *testing.T) {
	// A near-straight line: all interior points are within the tolerance of
	// the chord from (0,0) to (10,0), so they should all be dropped.
	pts := []Point{{0, 0}, {2, 0.1}, {4, -0.1}, {6, 0.05}, {8, -0.05}, {10, 0}}
	out := SimplifyPolyline(pts, 1.0)
	if len(out) != 2 {
		t.Fatalf("got %d points, want 2 (endpoints only): %+v", len(out), out)
	}
}

func TestSimplifyPolylineKeepsSharpCorner(t *testing.T) {
	pts := []Point{{0, 0}, {5, 10}, {10, 0}}
	out := SimplifyPolyline(pts, 0.5)
	if len(out) != 3 {
		t.Fatalf("got %d points, want all 3 kept for a sharp corner: %+v", len(out), out)
	}
}

func TestSimplifyPolylineShortInputUnchanged(t *testing.T) {
	pts := []Point{{0, 0}, {1, 1}}
	out := SimplifyPolyline(pts, 10)
	if len(out) != 2 {
		t.Fatalf("got %d points, want 2 unchanged", len(out))
	}
}
