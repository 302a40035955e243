package ppcore

import "fmt"

// TextQuad is one rectangular span of selected text, given as four pixel-
// space corners in ul, ur, ll, lr order — the same order SearchPage/
// PageText hit rectangles imply when read as a quad rather than an
// axis-aligned Rect.
type TextQuad struct {
	UL, UR, LL, LR Point
}

func (q TextQuad) toSlice() []Point { return []Point{q.UL, q.UR, q.LL, q.LR} }

// addQuadMarkup is the shared create-and-write-quads path for HIGHLIGHT,
// UNDERLINE and STRIKE_OUT, differing only in annotation type and an
// intentionally preserved legacy quirk: HIGHLIGHT's lower two corners are
// swapped (LL/LR) before being written, while UNDERLINE/STRIKE_OUT keep the
// natural ul,ur,ll,lr order. The asymmetry dates back to how the first UI
// emitted highlight quads, and downstream viewers now depend on it, so it
// is kept rather than "fixed".
func (d *Document) addQuadMarkup(pageIndex int, annotType AnnotType, quads []TextQuad, color Color, opacity float64, pageW, pageH int) (ObjectID, Rect, error) {
	if len(quads) == 0 {
		return NoObjectID, Rect{}, fmt.Errorf("ppcore: add markup: no quads")
	}

	var id ObjectID
	var pixelBounds Rect
	err := d.withLock(func() error {
		pc, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		annot, err := bridgeCreateAnnot(d.ctx, pp, annotType)
		if err != nil {
			return err
		}

		corners := make([]Point, 0, len(quads)*4)
		var unionPixel Rect
		for i, q := range quads {
			pts := q.toSlice()
			if annotType == AnnotHighlight {
				pts[2], pts[3] = pts[3], pts[2] // swap LL/LR, the preserved legacy quirk
			}
			corners = append(corners, pts...)
			qb := BoundsOf(q.toSlice())
			if i == 0 {
				unionPixel = qb
			} else {
				unionPixel = unionPixel.Union(qb)
			}
		}

		if err := d.setAnnotQuadPointsFromPixel(annot, corners, pageW, pageH, pc.bounds); err != nil {
			return err
		}
		d.setAnnotRectFromPixel(annot, unionPixel, pageW, pageH, pc.bounds)
		d.setAnnotColorAndOpacity(annot, color, opacity)
		bridgeFinishAnnot(d.ctx, pp, annot)

		id = bridgeAnnotObjectID(d.ctx, annot)
		bounds := bridgeBoundAnnot(d.ctx, annot)
		pixelBounds = rectPageToPixel(bounds, pageW, pageH, pc.bounds)

		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
	if err != nil {
		return NoObjectID, Rect{}, err
	}
	return id, pixelBounds, nil
}

// AddHighlight creates a HIGHLIGHT annotation covering quads.
func (d *Document) AddHighlight(pageIndex int, quads []TextQuad, color Color, opacity float64, pageW, pageH int) (ObjectID, Rect, error) {
	return d.addQuadMarkup(pageIndex, AnnotHighlight, quads, color, opacity, pageW, pageH)
}

// AddUnderline creates an UNDERLINE annotation covering quads.
func (d *Document) AddUnderline(pageIndex int, quads []TextQuad, color Color, pageW, pageH int) (ObjectID, Rect, error) {
	return d.addQuadMarkup(pageIndex, AnnotUnderline, quads, color, 1.0, pageW, pageH)
}

// AddStrikeOut creates a STRIKE_OUT annotation covering quads.
func (d *Document) AddStrikeOut(pageIndex int, quads []TextQuad, color Color, pageW, pageH int) (ObjectID, Rect, error) {
	return d.addQuadMarkup(pageIndex, AnnotStrikeOut, quads, color, 1.0, pageW, pageH)
}

// caretMinWidth, caretMinHeight are the CARET minimum box, applied in
// pixel space before the page/PDF-space conversion.
const (
	caretMinWidth  = 6
	caretMinHeight = 10
)

// freeTextMinWidth, freeTextMinHeight are the FREE_TEXT minimum box.
const (
	freeTextMinWidth  = 16
	freeTextMinHeight = 12
)

// AddCaret creates a CARET annotation at pixelRect, the lightweight
// "insertion point" marker used for suggested-edit-style annotations.
func (d *Document) AddCaret(pageIndex int, pixelRect Rect, color Color, pageW, pageH int) (ObjectID, error) {
	pixelRect = pixelRect.Normalize().PadToMinimum(caretMinWidth, caretMinHeight)
	var id ObjectID
	err := d.withLock(func() error {
		pc, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		annot, err := bridgeCreateAnnot(d.ctx, pp, AnnotCaret)
		if err != nil {
			return err
		}
		d.setAnnotRectFromPixel(annot, pixelRect, pageW, pageH, pc.bounds)
		d.setAnnotColorAndOpacity(annot, color, 1.0)
		bridgeFinishAnnot(d.ctx, pp, annot)
		id = bridgeAnnotObjectID(d.ctx, annot)
		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
	return id, err
}

// AddTextAnnot creates a TEXT ("sticky note") annotation at pixelRect with
// the given note body.
func (d *Document) AddTextAnnot(pageIndex int, pixelRect Rect, contents string, color Color, pageW, pageH int) (ObjectID, error) {
	pixelRect = pixelRect.Normalize()
	var id ObjectID
	err := d.withLock(func() error {
		pc, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		annot, err := bridgeCreateAnnot(d.ctx, pp, AnnotText)
		if err != nil {
			return err
		}
		d.setAnnotRectFromPixel(annot, pixelRect, pageW, pageH, pc.bounds)
		d.setAnnotColorAndOpacity(annot, color, 1.0)
		bridgeSetAnnotContents(d.ctx, annot, contents)
		bridgeFinishAnnot(d.ctx, pp, annot)
		id = bridgeAnnotObjectID(d.ctx, annot)
		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
	return id, err
}

// AddFreeText creates a FREE_TEXT annotation at pixelRect with contents
// rendered per style, then immediately patches its appearance stream so
// the border/fill are visible without waiting on a consuming viewer's own
// FreeText support.
func (d *Document) AddFreeText(pageIndex int, pixelRect Rect, contents string, style FreeTextStyle, fill *Color, pageW, pageH int) (ObjectID, error) {
	pixelRect = pixelRect.Normalize().PadToMinimum(freeTextMinWidth, freeTextMinHeight)
	var id ObjectID
	err := d.withLock(func() error {
		pc, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		annot, err := bridgeCreateAnnot(d.ctx, pp, AnnotFreeText)
		if err != nil {
			return err
		}

		d.setAnnotRectFromPixel(annot, pixelRect, pageW, pageH, pc.bounds)
		d.setAnnotColorAndOpacity(annot, style.Color, 1.0)
		d.setAnnotInteriorColor(annot, fill)
		bridgeSetAnnotContents(d.ctx, annot, contents)
		bridgeSetDictString(d.ctx, d.pdfDoc, annot, "DA", BuildDA(style), true)
		bridgeSetDictString(d.ctx, d.pdfDoc, annot, "DS", BuildDS(style), true)
		bridgeSetDictReal(d.ctx, d.pdfDoc, annot, "Q", float64(style.Alignment))
		if style.Rotation != 0 {
			bridgeSetDictReal(d.ctx, d.pdfDoc, annot, "Rotate", float64(normalizeRotation(style.Rotation)))
		}
		bridgeSetDictBool(d.ctx, annot, "OPDUserResized", false)
		bridgeFinishAnnot(d.ctx, pp, annot)

		d.patchFreeTextAppearance(annot)

		id = bridgeAnnotObjectID(d.ctx, annot)
		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
	return id, err
}
