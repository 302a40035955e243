package ppcore

import "fmt"

// RenderPageRGBA renders an entire page at pageW x pageH pixels into a
// freshly allocated RGBA buffer: a patch at the origin covering the whole
// page.
func (d *Document) RenderPageRGBA(pageIndex, pageW, pageH int, cookie *Cookie, renderAnnots bool) ([]byte, error) {
	stride := pageW * 4
	buf := make([]byte, stride*pageH)
	if err := d.RenderPatchRGBA(pageIndex, pageW, pageH, 0, 0, pageW, pageH, buf, stride, cookie, renderAnnots); err != nil {
		return nil, err
	}
	return buf, nil
}

// RenderPatchRGBA renders the rectangle (patchX,patchY)-(patchX+patchW,
// patchY+patchH) of a page scaled to pageW x pageH, into the caller-owned
// rgba buffer (row-major, stride bytes per row, 4 bytes per pixel). This is
// the engine's core rendering primitive: it loads/reuses the cached page
// and display list, then replays against a pixmap that wraps the caller's
// buffer with an offset bbox so no extra copy is needed.
func (d *Document) RenderPatchRGBA(pageIndex, pageW, pageH, patchX, patchY, patchW, patchH int,
	rgba []byte, stride int, cookie *Cookie, renderAnnots bool) error {
	if pageW <= 0 || pageH <= 0 || patchW <= 0 || patchH <= 0 {
		return fmt.Errorf("ppcore: render patch: non-positive dimensions")
	}
	if stride != patchW*4 {
		return fmt.Errorf("ppcore: render patch: stride must equal patch width * 4 bytes")
	}
	need := stride * patchH
	if len(rgba) < need {
		return fmt.Errorf("ppcore: render patch: buffer too small (need %d, have %d)", need, len(rgba))
	}

	return d.withLock(func() error {
		pc, err := d.ensurePageLocked(pageIndex)
		if err != nil {
			return err
		}
		d.ensureDisplayListLocked(pc, cookie)

		ok := bridgeRenderPatch(d.ctx, pc.page, pc.displayList, pc.bounds,
			pageW, pageH, patchX, patchY, patchW, patchH, rgba, stride, cookie, renderAnnots)
		if !ok {
			if cookie != nil && cookie.Aborted() {
				return fmt.Errorf("ppcore: render patch: aborted")
			}
			return fmt.Errorf("ppcore: render patch: failed")
		}
		return nil
	})
}
