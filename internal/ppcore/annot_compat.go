package ppcore

import "fmt"

// ErrNotPDF is returned by any annotation operation on a document that was
// not opened from a PDF (XPS/EPUB/CBZ have no annotation model).
var ErrNotPDF = fmt.Errorf("ppcore: document is not a PDF")

// pixelToPage converts a pixel-space point, rendered at pageW x pageH over a
// page whose native bounds are `bounds`, back into page space. This is the
// first of the two coordinate hops every annotation-creation/editing call
// must undo before writing a PDF rect/quad; the second hop, page -> PDF,
// is bridgePageToPDFCTM.
func pixelToPage(pt Point, pageW, pageH int, bounds Rect) Point {
	sx := bounds.Width() / float64(pageW)
	sy := bounds.Height() / float64(pageH)
	return Point{
		X: bounds.X0 + pt.X*sx,
		Y: bounds.Y0 + pt.Y*sy,
	}
}

// pageToPixel is pixelToPage's inverse, used when converting a freshly
// bound annotation rect back to pixel space for the caller (e.g. after
// creating an annotation, returning its on-screen bounds).
func pageToPixel(pt Point, pageW, pageH int, bounds Rect) Point {
	sx := float64(pageW) / bounds.Width()
	sy := float64(pageH) / bounds.Height()
	return Point{
		X: (pt.X - bounds.X0) * sx,
		Y: (pt.Y - bounds.Y0) * sy,
	}
}

func rectPixelToPage(r Rect, pageW, pageH int, bounds Rect) Rect {
	a := pixelToPage(Point{r.X0, r.Y0}, pageW, pageH, bounds)
	b := pixelToPage(Point{r.X1, r.Y1}, pageW, pageH, bounds)
	return Rect{a.X, a.Y, b.X, b.Y}.Normalize()
}

func rectPageToPixel(r Rect, pageW, pageH int, bounds Rect) Rect {
	a := pageToPixel(Point{r.X0, r.Y0}, pageW, pageH, bounds)
	b := pageToPixel(Point{r.X1, r.Y1}, pageW, pageH, bounds)
	return Rect{a.X, a.Y, b.X, b.Y}.Normalize()
}

// pdfPageHandle loads (or reuses) the cache slot for pageIndex and
// downcasts it to a pdf_page, failing with ErrNotPDF for non-PDF documents.
// Callers must already hold d.owner.mu (via withLock).
func (d *Document) pdfPageHandle(pageIndex int) (*cachedPage, pageHandle, error) {
	if d.pdfDoc == nil {
		return nil, nil, ErrNotPDF
	}
	pc, err := d.ensurePageLocked(pageIndex)
	if err != nil {
		return nil, nil, err
	}
	pp := bridgePDFPage(d.ctx, pc.page)
	if pp == nil {
		return nil, nil, ErrNotPDF
	}
	return pc, pp, nil
}

// setAnnotColorAndOpacity writes /C, and /CA+/ca when opacity < 1
// (deleting both when opacity == 1).
func (d *Document) setAnnotColorAndOpacity(annot annotHandle, c Color, opacity float64) {
	bridgeSetAnnotColor(d.ctx, d.pdfDoc, annot, c.clamp(), clamp01(opacity))
	d.shadowColor(annot, "OPDC", c)
}

// setAnnotInteriorColor writes /IC, or deletes it when c is nil.
func (d *Document) setAnnotInteriorColor(annot annotHandle, c *Color) {
	if c == nil {
		bridgeSetAnnotInteriorColor(d.ctx, d.pdfDoc, annot, nil)
		bridgeDelDictKey(d.ctx, annot, "OPDICR")
		bridgeDelDictKey(d.ctx, annot, "OPDICG")
		bridgeDelDictKey(d.ctx, annot, "OPDICB")
		return
	}
	clamped := c.clamp()
	bridgeSetAnnotInteriorColor(d.ctx, d.pdfDoc, annot, &clamped)
	d.shadowColor(annot, "OPDIC", clamped)
}

// setAnnotRectFromPixel converts a pixel-space rect to page space and
// writes it as the annotation's /Rect.
func (d *Document) setAnnotRectFromPixel(annot annotHandle, pixelRect Rect, pageW, pageH int, bounds Rect) {
	pageRect := rectPixelToPage(pixelRect, pageW, pageH, bounds)
	bridgeSetAnnotRect(d.ctx, annot, pageRect)
}

// setAnnotQuadPointsFromPixel converts groups of 4 pixel-space corners
// (ul,ur,ll,lr) into page space and writes /QuadPoints.
func (d *Document) setAnnotQuadPointsFromPixel(annot annotHandle, pixelCorners []Point, pageW, pageH int, bounds Rect) error {
	if len(pixelCorners)%4 != 0 {
		return fmt.Errorf("ppcore: quad points: length %d not a multiple of 4", len(pixelCorners))
	}
	pagePts := make([]Point, len(pixelCorners))
	for i, p := range pixelCorners {
		pagePts[i] = pixelToPage(p, pageW, pageH, bounds)
	}
	bridgeSetAnnotQuadPoints(d.ctx, annot, pagePts)
	return nil
}
