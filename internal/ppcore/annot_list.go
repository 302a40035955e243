package ppcore

import "fmt"

// ListAnnots enumerates every annotation on pageIndex, converting bounds
// (and, for INK, every arc point) from page space to pixel space at the
// given render resolution. Per-type payload: TEXT/FREE_TEXT carry
// Contents, INK carries Arcs.
func (d *Document) ListAnnots(pageIndex, pageW, pageH int) ([]AnnotInfo, error) {
	var out []AnnotInfo
	err := d.withLock(func() error {
		pc, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}

		for a := bridgeFirstAnnot(d.ctx, pp); a != nil; a = bridgeNextAnnot(d.ctx, a) {
			info := AnnotInfo{
				Type:     bridgeAnnotType(d.ctx, a),
				ObjectID: bridgeAnnotObjectID(d.ctx, a),
			}
			bounds := bridgeBoundAnnot(d.ctx, a)
			info.Bounds = rectPageToPixel(bounds, pageW, pageH, pc.bounds)

			switch info.Type {
			case AnnotText, AnnotFreeText:
				info.Contents = bridgeAnnotContents(d.ctx, a)
			case AnnotInk:
				info.Arcs = d.readInkArcs(pp, a, pageW, pageH, pc.bounds)
			}
			out = append(out, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// readInkArcs reads /InkList back into pixel space. The stored points are
// in PDF space (AddInk writes them through bridgePageToPDFCTM), so each
// point must be carried back through the inverse hop, bridgePDFToPageCTM,
// before the page -> pixel conversion; skipping that hop is what produced
// the vertically-flipped ink rendering the write-side fix corrects.
func (d *Document) readInkArcs(pp pageHandle, annot annotHandle, pageW, pageH int, bounds Rect) []Arc {
	toPage := bridgePDFToPageCTM(d.ctx, pp)
	n := bridgeInkArcCount(d.ctx, annot)
	arcs := make([]Arc, 0, n)
	for i := 0; i < n; i++ {
		pc := bridgeInkArcPointCount(d.ctx, annot, i)
		pts := make([]Point, pc)
		for j := 0; j < pc; j++ {
			pdfPt := bridgeInkArcPoint(d.ctx, annot, i, j)
			pts[j] = pageToPixel(toPage(pdfPt), pageW, pageH, bounds)
		}
		arcs = append(arcs, Arc{Points: pts})
	}
	return arcs
}

// DeleteAnnot removes the annotation identified by id from pageIndex.
func (d *Document) DeleteAnnot(pageIndex int, id ObjectID) error {
	return d.withLock(func() error {
		return d.deleteAnnotByObjectIDLocked(pageIndex, id)
	})
}

// deleteAnnotByObjectIDLocked is the lock-held primitive shared by
// DeleteAnnot and the ink undo driver.
func (d *Document) deleteAnnotByObjectIDLocked(pageIndex int, id ObjectID) error {
	_, pp, err := d.pdfPageHandle(pageIndex)
	if err != nil {
		return err
	}
	annot := bridgeFindAnnotByObjectID(d.ctx, pp, id)
	if annot == nil {
		return fmt.Errorf("ppcore: delete annot: object %s not found on page %d", id, pageIndex)
	}
	bridgeDeleteAnnot(d.ctx, pp, annot)
	d.invalidatePageLocked(pageIndex)
	d.markDirty()
	return nil
}

// UpdateAnnotContents rewrites an annotation's /Contents. For FREE_TEXT
// annotations this also drops any stale /RC (rich content, regenerated from
// /Contents + /DS on next style read) and deletes /AP so the next render
// regenerates the appearance stream from the new text.
func (d *Document) UpdateAnnotContents(pageIndex int, id ObjectID, text string) error {
	return d.withLock(func() error {
		_, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		annot := bridgeFindAnnotByObjectID(d.ctx, pp, id)
		if annot == nil {
			return fmt.Errorf("ppcore: update annot contents: object %s not found on page %d", id, pageIndex)
		}

		if bridgeAnnotType(d.ctx, annot) == AnnotFreeText {
			bridgeDelDictKey(d.ctx, annot, "RC")
			d.captureFreeTextBorderStyleIfMissing(annot)
			bridgeDelDictKey(d.ctx, annot, "AP")
		}

		bridgeSetAnnotContents(d.ctx, annot, text)
		bridgeFinishAnnot(d.ctx, pp, annot)

		if bridgeAnnotType(d.ctx, annot) == AnnotFreeText {
			d.patchFreeTextAppearance(annot)
		}

		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
}

// UpdateAnnotRect moves/resizes an annotation given a new pixel-space rect.
// For FREE_TEXT annotations the border style is captured before the rect
// change invalidates the appearance stream's geometry, then an appearance
// patch is forced so text reflows into the new box.
func (d *Document) UpdateAnnotRect(pageIndex int, id ObjectID, pixelRect Rect, pageW, pageH int) error {
	return d.withLock(func() error {
		pc, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}
		annot := bridgeFindAnnotByObjectID(d.ctx, pp, id)
		if annot == nil {
			return fmt.Errorf("ppcore: update annot rect: object %s not found on page %d", id, pageIndex)
		}

		isFreeText := bridgeAnnotType(d.ctx, annot) == AnnotFreeText
		if isFreeText {
			d.captureFreeTextBorderStyleIfMissing(annot)
			bridgeDelDictKey(d.ctx, annot, "AP")
		}

		d.setAnnotRectFromPixel(annot, pixelRect, pageW, pageH, pc.bounds)
		bridgeFinishAnnot(d.ctx, pp, annot)

		if isFreeText {
			d.patchFreeTextAppearance(annot)
		}

		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		return nil
	})
}
