package pdf

import (
	"math"
	"testing"
)

// TestParseHexColor tests hex color parsing
func TestParseHexColor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		r, g, b float64
		wantErr bool
	}{
		{"red with hash", "#ff0000", 1, 0, 0, false},
		{"yellow without hash", "ffff00", 1, 1, 0, false},
		{"black", "#000000", 0, 0, 0, false},
		{"white", "#FFFFFF", 1, 1, 1, false},
		{"mid grey", "#808080", 128.0 / 255, 128.0 / 255, 128.0 / 255, false},
		{"surrounding whitespace", "  #00ff00  ", 0, 1, 0, false},
		{"too short", "#fff", 0, 0, 0, true},
		{"not hex", "#zzzzzz", 0, 0, 0, true},
		{"empty", "", 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseHexColor(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			const eps = 1e-9
			if math.Abs(c.R-tt.r) > eps || math.Abs(c.G-tt.g) > eps || math.Abs(c.B-tt.b) > eps {
				t.Errorf("got (%v,%v,%v), want (%v,%v,%v)", c.R, c.G, c.B, tt.r, tt.g, tt.b)
			}
		})
	}
}

// TestRectDTORoundTrip tests the pixel-rect DTO conversion
func TestRectDTORoundTrip(t *testing.T) {
	in := AnnotRect{X0: 10.5, Y0: 20, X1: 300, Y1: 442.25}
	out := rectToDTO(rectFromDTO(in))
	if out != in {
		t.Errorf("round trip changed rect: %+v != %+v", out, in)
	}
}

// TestAnnotationService_NoDocument tests that operations without an open
// document fail cleanly instead of panicking
func TestAnnotationService_NoDocument(t *testing.T) {
	service := NewAnnotationService(nil)

	if _, err := service.ListAnnotations(0, 595, 842); err == nil {
		t.Error("ListAnnotations should fail with no document")
	}
	if _, err := service.AddInk(0, 595, 842, [][]AnnotPoint{{{X: 1, Y: 1}}}, "", 0); err == nil {
		t.Error("AddInk should fail with no document")
	}
	if err := service.DeleteAnnotation(0, 42); err == nil {
		t.Error("DeleteAnnotation should fail with no document")
	}
	if err := service.Save("/tmp/out.pdf", false); err == nil {
		t.Error("Save should fail with no document")
	}
	if service.HasUnsavedChanges() {
		t.Error("HasUnsavedChanges should be false with no document")
	}
	if service.CurrentFile() != "" {
		t.Error("CurrentFile should be empty with no document")
	}
}

// TestAddMarkup_CornerValidation tests quad-corner group validation
func TestAddMarkup_CornerValidation(t *testing.T) {
	service := NewAnnotationService(nil)

	for _, n := range []int{0, 3, 5, 7} {
		if _, err := service.AddMarkup(0, 595, 842, "highlight", make([]AnnotPoint, n), "", 0.5); err == nil {
			t.Errorf("AddMarkup should reject %d corners", n)
		}
	}
}
