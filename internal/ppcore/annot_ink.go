package ppcore

import (
	"fmt"
	"math"
)

// DefaultInkSimplifyTolerance is a reasonable perpendicular-distance
// threshold (in pixel units) for callers that thin raw pointer samples
// with SimplifyPolyline before AddInk; AddInk itself never simplifies.
const DefaultInkSimplifyTolerance = 1.5

// AddInk creates an INK annotation on pageIndex from one or more freehand
// strokes given in pixel space, converting each point pixel -> page -> PDF
// and writing /InkList exactly as supplied — points round-trip through
// ListAnnots within a pixel. Callers that want to thin raw pointer samples
// run SimplifyPolyline themselves before calling in.
// Returns the new annotation's object id and its bounds in pixel space.
func (d *Document) AddInk(pageIndex int, strokes []Arc, color Color, thicknessPt float64, pageW, pageH int) (ObjectID, Rect, error) {
	if len(strokes) == 0 {
		return NoObjectID, Rect{}, fmt.Errorf("ppcore: add ink: no strokes")
	}

	var id ObjectID
	var pixelBounds Rect
	err := d.withLock(func() error {
		pc, pp, err := d.pdfPageHandle(pageIndex)
		if err != nil {
			return err
		}

		annot, err := bridgeCreateAnnot(d.ctx, pp, AnnotInk)
		if err != nil {
			return err
		}

		toPDF := bridgePageToPDFCTM(d.ctx, pp)

		arcCounts := make([]int, 0, len(strokes))
		pdfPoints := make([]Point, 0, 64)
		var unionPage Rect
		first := true
		for _, stroke := range strokes {
			if len(stroke.Points) == 0 {
				continue
			}
			arcCounts = append(arcCounts, len(stroke.Points))
			for _, p := range stroke.Points {
				pagePt := pixelToPage(p, pageW, pageH, pc.bounds)
				pdfPoints = append(pdfPoints, toPDF(pagePt))
				if first {
					unionPage = Rect{pagePt.X, pagePt.Y, pagePt.X, pagePt.Y}
					first = false
				} else {
					unionPage = unionPage.Union(Rect{pagePt.X, pagePt.Y, pagePt.X, pagePt.Y})
				}
			}
		}
		if len(arcCounts) == 0 {
			return fmt.Errorf("ppcore: add ink: all strokes empty")
		}
		unionPage = unionPage.Normalize()

		bridgeSetAnnotInkList(d.ctx, d.pdfDoc, annot, arcCounts, pdfPoints)
		bridgeSetAnnotRect(d.ctx, annot, unionPage.Inflate(thicknessPt))
		bridgeSetAnnotColor(d.ctx, d.pdfDoc, annot, color.clamp(), 1.0)
		bridgeSetAnnotBorderWidth(d.ctx, d.pdfDoc, annot, thicknessPt)
		bridgeFinishAnnot(d.ctx, pp, annot)

		id = bridgeAnnotObjectID(d.ctx, annot)
		bounds := bridgeBoundAnnot(d.ctx, annot)
		pixelBounds = rectPageToPixel(bounds, pageW, pageH, pc.bounds)

		d.invalidatePageLocked(pageIndex)
		d.markDirty()
		d.pushInkUndo(inkUndoEntry{
			pageIndex: pageIndex,
			objectID:  id,
			created:   true,
			snapshot: &inkSnapshot{
				arcCounts:   append([]int(nil), arcCounts...),
				pdfPoints:   append([]Point(nil), pdfPoints...),
				color:       color,
				thicknessPt: thicknessPt,
				unionPage:   unionPage,
			},
		})
		return nil
	})
	if err != nil {
		return NoObjectID, Rect{}, err
	}
	return id, pixelBounds, nil
}

// SimplifyPolyline thins a freehand point sequence using the
// perpendicular-distance (single-pass Douglas-Peucker) method: a point is
// dropped when its distance from the line connecting its still-kept
// neighbours is below tolerance. Endpoints are always kept.
func SimplifyPolyline(points []Point, tolerance float64) []Point {
	if len(points) < 3 {
		return points
	}
	keep := make([]bool, len(points))
	keep[0] = true
	keep[len(points)-1] = true
	simplifySegment(points, 0, len(points)-1, tolerance, keep)

	out := make([]Point, 0, len(points))
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}
	return out
}

func simplifySegment(points []Point, lo, hi int, tolerance float64, keep []bool) {
	if hi-lo < 2 {
		return
	}
	maxDist := -1.0
	maxIdx := -1
	for i := lo + 1; i < hi; i++ {
		dist := perpendicularDistance(points[i], points[lo], points[hi])
		if dist > maxDist {
			maxDist = dist
			maxIdx = i
		}
	}
	if maxDist > tolerance && maxIdx >= 0 {
		keep[maxIdx] = true
		simplifySegment(points, lo, maxIdx, tolerance, keep)
		simplifySegment(points, maxIdx, hi, tolerance, keep)
	}
}

func perpendicularDistance(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	num := dy*p.X - dx*p.Y + b.X*a.Y - b.Y*a.X
	return math.Abs(num) / math.Hypot(dx, dy)
}

// inkUndoEntry records enough to reverse one ink-stroke-producing call, and
// (for an ADD) to replay it on redo: the PDF-space ink list, color and
// border width are kept verbatim rather than re-derived from the
// already-simplified pixel strokes.
type inkUndoEntry struct {
	pageIndex int
	objectID  ObjectID
	created   bool
	snapshot  *inkSnapshot
}

// inkSnapshot is the PDF-space payload of one AddInk call, retained so
// RedoInk can recreate the annotation without asking the caller to replay
// the original pixel strokes.
type inkSnapshot struct {
	arcCounts   []int
	pdfPoints   []Point
	color       Color
	thicknessPt float64
	unionPage   Rect
}

func (d *Document) pushInkUndo(e inkUndoEntry) {
	d.inkUndoStack = append(d.inkUndoStack, e)
	d.inkRedoStack = d.inkRedoStack[:0]
}

// UndoInk reverses the most recent AddInk call by deleting the annotation
// it created, and pushes the entry onto the redo stack.
func (d *Document) UndoInk() error {
	return d.withLock(func() error {
		if len(d.inkUndoStack) == 0 {
			return fmt.Errorf("ppcore: undo ink: nothing to undo")
		}
		e := d.inkUndoStack[len(d.inkUndoStack)-1]
		d.inkUndoStack = d.inkUndoStack[:len(d.inkUndoStack)-1]

		if err := d.deleteAnnotByObjectIDLocked(e.pageIndex, e.objectID); err != nil {
			return err
		}
		d.inkRedoStack = append(d.inkRedoStack, e)
		return nil
	})
}

// RedoInk reverses the most recent UndoInk by recreating the ink
// annotation from its retained PDF-space snapshot. The recreated
// annotation gets a new object id (a fresh PDF indirect object, same as any
// other add): undoing an ADD is a delete-by-id, undoing a DELETE is an add,
// and redo applies the same pair in reverse.
func (d *Document) RedoInk() error {
	return d.withLock(func() error {
		if len(d.inkRedoStack) == 0 {
			return fmt.Errorf("ppcore: redo ink: nothing to redo")
		}
		e := d.inkRedoStack[len(d.inkRedoStack)-1]
		d.inkRedoStack = d.inkRedoStack[:len(d.inkRedoStack)-1]
		if e.snapshot == nil {
			return fmt.Errorf("ppcore: redo ink: no stroke data retained for object %s", e.objectID)
		}

		_, pp, err := d.pdfPageHandle(e.pageIndex)
		if err != nil {
			return err
		}
		annot, err := bridgeCreateAnnot(d.ctx, pp, AnnotInk)
		if err != nil {
			return err
		}

		s := e.snapshot
		bridgeSetAnnotInkList(d.ctx, d.pdfDoc, annot, s.arcCounts, s.pdfPoints)
		bridgeSetAnnotRect(d.ctx, annot, s.unionPage.Inflate(s.thicknessPt))
		bridgeSetAnnotColor(d.ctx, d.pdfDoc, annot, s.color.clamp(), 1.0)
		bridgeSetAnnotBorderWidth(d.ctx, d.pdfDoc, annot, s.thicknessPt)
		bridgeFinishAnnot(d.ctx, pp, annot)

		newID := bridgeAnnotObjectID(d.ctx, annot)
		d.invalidatePageLocked(e.pageIndex)
		d.markDirty()
		d.inkUndoStack = append(d.inkUndoStack, inkUndoEntry{
			pageIndex: e.pageIndex,
			objectID:  newID,
			created:   true,
			snapshot:  s,
		})
		return nil
	})
}
