package pdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
)

// renderPageWithAnnotations renders a PDF page including all annotations and
// signature widgets, through the annotation engine's display-list-cached
// render path. The engine keeps its own handle on the open file, so a failed
// engine open (tracked as a nil ppDoc) degrades to renderPageStandard.
func (s *PDFService) renderPageWithAnnotations(pageNum int, dpi float64) (*PageInfo, error) {
	s.mu.RLock()
	doc := s.ppDoc
	totalPages := s.pageCount
	s.mu.RUnlock()

	if doc == nil {
		return nil, fmt.Errorf("annotation engine has no open document")
	}

	if pageNum < 0 || pageNum >= totalPages {
		return nil, fmt.Errorf("invalid page number: %d (document has %d pages)", pageNum, totalPages)
	}

	size, err := doc.PageSize(pageNum)
	if err != nil {
		return nil, fmt.Errorf("failed to get page size: %w", err)
	}

	scale := dpi / 72.0
	pageW := int(size.W*scale + 0.5)
	pageH := int(size.H*scale + 0.5)
	if pageW <= 0 || pageH <= 0 {
		return nil, fmt.Errorf("degenerate page size %gx%g at %g dpi", size.W, size.H, dpi)
	}

	rgba, err := doc.RenderPageRGBA(pageNum, pageW, pageH, nil, true)
	if err != nil {
		return nil, fmt.Errorf("failed to render page with annotations: %w", err)
	}

	img := &image.RGBA{
		Pix:    rgba,
		Stride: pageW * 4,
		Rect:   image.Rect(0, 0, pageW, pageH),
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}

	base64Data := base64.StdEncoding.EncodeToString(buf.Bytes())

	return &PageInfo{
		PageNumber: pageNum,
		Width:      pageW,
		Height:     pageH,
		ImageData:  "data:image/png;base64," + base64Data,
	}, nil
}

// renderPageStandard is a fallback that uses the standard go-fitz rendering
func (s *PDFService) renderPageStandard(pageNum int, dpi float64) (*PageInfo, error) {
	img, err := s.doc.ImageDPI(pageNum, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}

	base64Data := base64.StdEncoding.EncodeToString(buf.Bytes())

	bounds := img.Bounds()
	return &PageInfo{
		PageNumber: pageNum,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		ImageData:  "data:image/png;base64," + base64Data,
	}, nil
}
