package ppcore

import "testing"

func TestParseBuildDARoundTrip(t *testing.T) {
	style := FreeTextStyle{FontName: "Helv", FontSize: 14, Color: Color{0.2, 0.4, 0.6}}
	da := BuildDA(style)
	got := ParseDA(da)
	if got.FontName != style.FontName || got.FontSize != style.FontSize {
		t.Fatalf("round trip mismatch: got %+v, want %+v (da=%q)", got, style, da)
	}
	if !colorsClose(got.Color, style.Color) {
		t.Fatalf("color round trip mismatch: got %+v, want %+v", got.Color, style.Color)
	}
}

func TestParseDAGreyscale(t *testing.T) {
	got := ParseDA("/Helv 10 Tf 0.5 g")
	if !colorsClose(got.Color, Color{0.5, 0.5, 0.5}) {
		t.Fatalf("grey parse = %+v", got.Color)
	}
}

func TestParseDAMalformedFallsBackToDefault(t *testing.T) {
	got := ParseDA("not a da string")
	want := DefaultFreeTextStyle()
	if got != want {
		t.Fatalf("malformed DA should fall back to default, got %+v", got)
	}
}

func TestParseBuildDSRoundTrip(t *testing.T) {
	style := FreeTextStyle{
		FontName: "Helvetica",
		FontSize: 12,
		Color:    Color{0, 0, 0},
		Flags:    FreeTextBold | FreeTextItalic,
	}
	ds := BuildDS(style)
	got := ParseDS(ds)
	if got.FontName != style.FontName || got.FontSize != style.FontSize || got.Flags != style.Flags {
		t.Fatalf("DS round trip mismatch: got %+v, want %+v (ds=%q)", got, style, ds)
	}
}

func TestParseHexColor(t *testing.T) {
	c, ok := parseHexColor("#ff0000")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !colorsClose(c, Color{1, 0, 0}) {
		t.Fatalf("parseHexColor = %+v", c)
	}
	if _, ok := parseHexColor("bad"); ok {
		t.Fatal("expected ok=false for malformed hex")
	}
}

func colorsClose(a, b Color) bool {
	const eps = 0.01
	return abs(a.R-b.R) < eps && abs(a.G-b.G) < eps && abs(a.B-b.B) < eps
}
