package ppcore

import (
	"fmt"
	"strings"
)

// DefaultSearchHitMax bounds a single Search call when the caller passes
// 0; the bridge builds a fixed-size hit array.
const DefaultSearchHitMax = 256

// PageText returns the full extracted text of a page in reading order,
// fz_stext_page's plain-text rendering.
func (d *Document) PageText(pageIndex int) (string, error) {
	var text string
	err := d.withLock(func() error {
		pc, err := d.ensurePageLocked(pageIndex)
		if err != nil {
			return err
		}
		text, err = bridgePageTextUTF8(d.ctx, pc.page, pc.bounds)
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// PageHTML returns the page text as a standalone HTML document, each block
// wrapped in positioned markup between the library's header and trailer tags.
func (d *Document) PageHTML(pageIndex int) (string, error) {
	var html string
	err := d.withLock(func() error {
		pc, err := d.ensurePageLocked(pageIndex)
		if err != nil {
			return err
		}
		html, err = bridgePageTextHTML(d.ctx, pc.page, pc.bounds, pageIndex)
		return err
	})
	if err != nil {
		return "", err
	}
	return html, nil
}

// SearchPage returns the pixel-space bounding rects of every match of
// needle on a page, up to hitMax hits (0 uses DefaultSearchHitMax): one
// rect per hit, needle matched against the structured-text run.
func (d *Document) SearchPage(pageIndex int, needle string, hitMax int) ([]Rect, error) {
	if needle == "" {
		return nil, fmt.Errorf("ppcore: search: empty needle")
	}
	if hitMax <= 0 {
		hitMax = DefaultSearchHitMax
	}

	var rects []Rect
	err := d.withLock(func() error {
		pc, err := d.ensurePageLocked(pageIndex)
		if err != nil {
			return err
		}
		rects, err = bridgeSearchPage(d.ctx, pc.page, pc.bounds, needle, hitMax)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rects, nil
}

// WordAt returns the word containing pt (page-space coordinates), found by
// extracting the page's full text and locating the smallest whitespace-
// delimited token whose search hit covers pt. Used by double-click-to-
// select-word UX; built atop PageText/SearchPage rather than a new MuPDF
// primitive since fz_stext already tokenizes on whitespace the same way
// strings.Fields does for the common case.
func (d *Document) WordAt(pageIndex int, pt Point) (string, Rect, error) {
	text, err := d.PageText(pageIndex)
	if err != nil {
		return "", Rect{}, err
	}

	for _, word := range strings.Fields(text) {
		rects, err := d.SearchPage(pageIndex, word, 4)
		if err != nil {
			continue
		}
		for _, r := range rects {
			if pt.X >= r.X0 && pt.X <= r.X1 && pt.Y >= r.Y0 && pt.Y <= r.Y1 {
				return word, r, nil
			}
		}
	}
	return "", Rect{}, fmt.Errorf("ppcore: word at point: not found")
}
