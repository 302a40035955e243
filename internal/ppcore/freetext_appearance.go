package ppcore

import (
	"fmt"
	"strings"
)

// apPatchMarker is the idempotence marker this engine writes at the front
// of every appearance stream it patches. A prior run of the same patcher
// is detected and its prefix replaced rather than stacked. The legacy
// marker is kept as a recognized alias so documents patched by an older
// build still re-patch cleanly instead of accumulating prefixes.
const apPatchMarker = "%OPD_AP_PATCH"
const legacyAPPatchMarker = "%OPD_BG_FILL"

// patchFreeTextAppearance rewrites a FreeText annotation's normal
// appearance stream to draw its interior fill and border ahead of MuPDF's
// own text layout: MuPDF lays out the text first (via pdf_update_annot,
// already called by the time this runs), then a small content-stream
// prologue is prepended that paints background/border underneath it. Failures are swallowed: a missing/malformed appearance
// stream just leaves the annotation with MuPDF's own (borderless, fill-
// less) rendering, which is still a valid FreeText appearance.
func (d *Document) patchFreeTextAppearance(annot annotHandle) {
	// Border suppression: force /BS/W (and the legacy /Border width
	// slot) to 0 on every FreeText mutation so MuPDF's own annotation
	// renderer never double-strokes a border this patcher already paints.
	bridgeSetAnnotBorderWidth(d.ctx, d.pdfDoc, annot, 0)

	if bridgeGetDictBool(d.ctx, annot, "OPDSuppressBorderGen", false) {
		return
	}

	bbox, ok := bridgeAnnotAPBBox(d.ctx, annot)
	if !ok {
		return
	}

	prefix := d.buildFreeTextAPPrefix(annot, bbox)
	if prefix == "" {
		return
	}
	bridgePatchAnnotAP(d.ctx, d.pdfDoc, annot, []byte(prefix))
}

// buildFreeTextAPPrefix renders the content-stream prologue: an interior
// fill (when /IC is present) and a border stroke (using the captured
// OPDBorderWidth/OPDBorderDashed). No border is drawn when OPDBorderWidth
// is absent or 0.
func (d *Document) buildFreeTextAPPrefix(annot annotHandle, bbox Rect) string {
	var b strings.Builder
	b.WriteString("q\n")
	b.WriteString(apPatchMarker)
	b.WriteByte('\n')
	wroteAny := false
	if bridgeAnnotHasOpacityGState(d.ctx, annot) {
		b.WriteString("/H gs\n")
		wroteAny = true
	}

	if ic, ok := d.dictColor(annot, "OPDIC"); ok {
		fmt.Fprintf(&b, "%s %s %s rg\n", trimFloat(ic.R), trimFloat(ic.G), trimFloat(ic.B))
		fmt.Fprintf(&b, "%s %s %s %s re f\n",
			trimFloat(bbox.X0), trimFloat(bbox.Y0), trimFloat(bbox.Width()), trimFloat(bbox.Height()))
		wroteAny = true
	}

	// An absent OPDBorderWidth key means no border: freshly created
	// FreeTexts are borderless until a border is explicitly set or a
	// pre-existing one is captured.
	width, _ := bridgeGetDictReal(d.ctx, annot, "OPDBorderWidth", 0)
	if width > 0 {
		if c, ok := d.dictColor(annot, "OPDC"); ok {
			dashed := bridgeGetDictBool(d.ctx, annot, "OPDBorderDashed", false)
			fmt.Fprintf(&b, "%s %s %s RG\n", trimFloat(c.R), trimFloat(c.G), trimFloat(c.B))
			fmt.Fprintf(&b, "%s w\n", trimFloat(width))
			if dashed {
				fmt.Fprintf(&b, "[%s %s] 0 d\n", trimFloat(max(1, width*3)), trimFloat(max(1, width*2)))
			} else {
				b.WriteString("[] 0 d\n")
			}
			radius, _ := bridgeGetDictReal(d.ctx, annot, "OPDBorderRadius", 0)
			half := width / 2
			inset := Rect{bbox.X0 + half, bbox.Y0 + half, bbox.X1 - half, bbox.Y1 - half}
			if radius > 0 {
				writeRoundedRectPath(&b, inset, radius)
				b.WriteString("S\n")
			} else {
				fmt.Fprintf(&b, "%s %s %s %s re S\n",
					trimFloat(inset.X0), trimFloat(inset.Y0), trimFloat(inset.Width()), trimFloat(inset.Height()))
			}
			wroteAny = true
		}
	}

	b.WriteString("Q\n")
	if !wroteAny {
		return ""
	}
	return b.String()
}

// writeRoundedRectPath approximates a rounded rectangle with four cubic
// Bezier corners, the standard circle-via-4-bezier construction (corner
// handle offset k * radius).
func writeRoundedRectPath(b *strings.Builder, r Rect, radius float64) {
	const k = 0.5522847498
	x0, y0, x1, y1 := r.X0, r.Y0, r.X1, r.Y1
	if radius > r.Width()/2 {
		radius = r.Width() / 2
	}
	if radius > r.Height()/2 {
		radius = r.Height() / 2
	}
	h := radius * k

	fmt.Fprintf(b, "%s %s m\n", trimFloat(x0+radius), trimFloat(y0))
	fmt.Fprintf(b, "%s %s l\n", trimFloat(x1-radius), trimFloat(y0))
	fmt.Fprintf(b, "%s %s %s %s %s %s c\n",
		trimFloat(x1-radius+h), trimFloat(y0), trimFloat(x1), trimFloat(y0+radius-h), trimFloat(x1), trimFloat(y0+radius))
	fmt.Fprintf(b, "%s %s l\n", trimFloat(x1), trimFloat(y1-radius))
	fmt.Fprintf(b, "%s %s %s %s %s %s c\n",
		trimFloat(x1), trimFloat(y1-radius+h), trimFloat(x1-radius+h), trimFloat(y1), trimFloat(x1-radius), trimFloat(y1))
	fmt.Fprintf(b, "%s %s l\n", trimFloat(x0+radius), trimFloat(y1))
	fmt.Fprintf(b, "%s %s %s %s %s %s c\n",
		trimFloat(x0+radius-h), trimFloat(y1), trimFloat(x0), trimFloat(y1-radius+h), trimFloat(x0), trimFloat(y1-radius))
	fmt.Fprintf(b, "%s %s l\n", trimFloat(x0), trimFloat(y0+radius))
	fmt.Fprintf(b, "%s %s %s %s %s %s c\n",
		trimFloat(x0), trimFloat(y0+radius-h), trimFloat(x0+radius-h), trimFloat(y0), trimFloat(x0+radius), trimFloat(y0))
	b.WriteString("h\n")
}

// dictColor reads a 3-element /C or /IC-style colour array. Since the
// bridge's flat accessors only reach scalar dict values, colour arrays are
// read back through the same setter path in reverse is not available; this
// engine only ever needs to re-read colours it wrote itself for the
// appearance patcher, so it tracks the last-written colour in the private
// OPD* shadow keys instead of re-parsing the PDF array.
func (d *Document) dictColor(annot annotHandle, key string) (Color, bool) {
	r, rok := bridgeGetDictReal(d.ctx, annot, key+"R", -1)
	g, gok := bridgeGetDictReal(d.ctx, annot, key+"G", -1)
	bl, bok := bridgeGetDictReal(d.ctx, annot, key+"B", -1)
	if !rok || !gok || !bok {
		return Color{}, false
	}
	return Color{r, g, bl}, true
}

// shadowColor writes the same colour into both the real PDF array (via
// bridgeSetAnnotColor/bridgeSetAnnotInteriorColor) and the flat OPD*R/G/B
// shadow keys dictColor reads back, keeping the appearance patcher's input
// consistent without a dedicated array-reading bridge call.
func (d *Document) shadowColor(annot annotHandle, key string, c Color) {
	c = c.clamp()
	bridgeSetDictReal(d.ctx, d.pdfDoc, annot, key+"R", c.R)
	bridgeSetDictReal(d.ctx, d.pdfDoc, annot, key+"G", c.G)
	bridgeSetDictReal(d.ctx, d.pdfDoc, annot, key+"B", c.B)
}
