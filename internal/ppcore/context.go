// Package ppcore is the Go realization of the PDF annotation and rendering
// engine: document lifecycle, the page cache, patch rendering, text/search,
// the annotation model (ink/highlight/underline/strikeout/caret/text/
// free-text), the FreeText style/appearance pipeline, widgets, and the JS
// alert rendezvous. It drives MuPDF directly over CGO for everything
// go-fitz's image-only API does not expose, reusing the same fz_context/
// fz_document pair go-fitz already opened.
package ppcore

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/go-fitz"
)

// warningsSuppressed, once set, silences the library's stderr warning
// stream on every subsequently opened document.
var warningsSuppressed atomic.Bool

// SuppressWarnings silences MuPDF's warning output for documents opened
// after the call. Hosts flip this when debug logging is off so malformed
// PDFs don't spam stderr.
func SuppressWarnings() {
	warningsSuppressed.Store(true)
}

// These handle types are opaque unsafe.Pointer aliases standing in for the
// MuPDF C types (fz_context*, fz_document*, fz_page*, fz_display_list*,
// pdf_annot*, pdf_document*, pdf_widget*). Only bridge.go imports "C" and
// knows their real shape; every other file in this package treats them as
// opaque handles, keeping the cgo surface confined to a single file.
type (
	ctxHandle         unsafe.Pointer
	docHandle         unsafe.Pointer
	pageHandle        unsafe.Pointer
	displayListHandle unsafe.Pointer
	pdfDocHandle      unsafe.Pointer
	annotHandle       unsafe.Pointer
	widgetHandle      unsafe.Pointer
	cookieHandle      unsafe.Pointer
)

// Context groups one or more open Documents under a single mutex, matching
// the engine's locking discipline: every stateful entry point acquires the
// context's mutex for the duration of the call, including the render path,
// because the underlying MuPDF context is not thread-safe. Multiple
// Contexts may coexist and share nothing.
type Context struct {
	mu   sync.Mutex
	docs map[*Document]struct{}
}

// NewContext creates a new, empty engine context.
func NewContext() *Context {
	return &Context{docs: make(map[*Document]struct{})}
}

// Document is a single opened document, owned by a Context. It wraps a
// go-fitz Document for the convenience lifecycle operations (metadata,
// whole-page image render) and extracts the private fz_context/fz_document
// pointers go-fitz never exposes so the rest of this package can drive
// MuPDF's annotation/widget/alert surface directly.
type Document struct {
	owner  *Context
	fzDoc  *fitz.Document
	ctx    ctxHandle
	doc    docHandle
	pdfDoc pdfDocHandle // nil for non-PDF formats (XPS/EPUB/CBZ)
	path   string
	format string

	useCounter uint64
	cache      [cacheSize]cachedPage

	dirty bool // HasUnsavedChanges; set by any annotation mutation, save/export clears it

	inkUndoStack []inkUndoEntry
	inkRedoStack []inkUndoEntry
}

// Open opens a document at path under this context. The returned Document
// is owned by c and must be closed via c.Close before the context is
// dropped.
func (c *Context) Open(path string) (*Document, error) {
	fzDoc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("ppcore: open %q: %w", path, err)
	}

	ctx, doc, err := extractMuPDFHandles(fzDoc)
	if err != nil {
		fzDoc.Close()
		return nil, fmt.Errorf("ppcore: open %q: %w", path, err)
	}
	if warningsSuppressed.Load() {
		bridgeSuppressWarnings(ctx)
	}

	d := &Document{
		owner:  c,
		fzDoc:  fzDoc,
		ctx:    ctx,
		doc:    doc,
		pdfDoc: bridgePDFSpecifics(ctx, doc),
		path:   path,
		format: formatTag(path),
	}
	for i := range d.cache {
		d.cache[i].pageIndex = -1
	}

	c.mu.Lock()
	c.docs[d] = struct{}{}
	c.mu.Unlock()

	return d, nil
}

// Close releases a document's cache slots and the underlying library
// document. Best-effort: errors from the underlying library are not
// surfaced.
func (c *Context) Close(d *Document) error {
	if d == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	d.clearCacheLocked()
	if d.fzDoc != nil {
		d.fzDoc.Close()
	}
	delete(c.docs, d)
	return nil
}

// Drop releases every document still open under this context.
func (c *Context) Drop() {
	c.mu.Lock()
	docs := make([]*Document, 0, len(c.docs))
	for d := range c.docs {
		docs = append(docs, d)
	}
	c.mu.Unlock()

	for _, d := range docs {
		c.Close(d)
	}
}

// withLock runs fn with the owning context's mutex held, the shape every
// stateful entry point in this package follows.
func (d *Document) withLock(fn func() error) error {
	d.owner.mu.Lock()
	defer d.owner.mu.Unlock()
	return fn()
}

// Format returns a short tag for the opened document's underlying format
// ("PDF", "EPUB", ...), a coarse label for UI display.
func (d *Document) Format() string {
	return d.format
}

// Path returns the path the document was opened from.
func (d *Document) Path() string {
	return d.path
}

// HasUnsavedChanges reports whether any mutation has been applied since the
// last successful save/export.
func (d *Document) HasUnsavedChanges() bool {
	d.owner.mu.Lock()
	defer d.owner.mu.Unlock()
	return d.dirty
}

func (d *Document) markDirty() {
	d.dirty = true
}

// PageCount returns the number of pages, or -1 on error.
func (d *Document) PageCount() int {
	n := d.fzDoc.NumPage()
	if n < 0 {
		return -1
	}
	return n
}

// PageSize returns a page's bounds in the document's native unit system.
func (d *Document) PageSize(pageIndex int) (PageSize, error) {
	bounds, err := d.fzDoc.Bound(pageIndex)
	if err != nil {
		return PageSize{}, fmt.Errorf("ppcore: page size: %w", err)
	}
	return PageSize{W: float64(bounds.Dx()), H: float64(bounds.Dy())}, nil
}

// extractMuPDFHandles pulls the private ctx/doc fields out of a
// *fitz.Document via reflection, the only way to reach MuPDF calls
// go-fitz's image-only API does not expose.
func extractMuPDFHandles(fzDoc *fitz.Document) (ctxHandle, docHandle, error) {
	v := reflect.ValueOf(fzDoc).Elem()
	ctxField := v.FieldByName("ctx")
	docField := v.FieldByName("doc")
	if !ctxField.IsValid() || !docField.IsValid() {
		return nil, nil, fmt.Errorf("go-fitz: unexpected Document layout (ctx/doc field missing)")
	}
	return ctxHandle(unsafe.Pointer(ctxField.Pointer())), docHandle(unsafe.Pointer(docField.Pointer())), nil
}

func formatTag(path string) string {
	// go-fitz/MuPDF both dispatch on extension/magic; this is a coarse tag
	// for UI purposes only, not a parser decision.
	switch ext := lowerExt(path); ext {
	case ".pdf":
		return "PDF"
	case ".xps":
		return "XPS"
	case ".epub":
		return "EPUB"
	case ".cbz":
		return "CBZ"
	default:
		return "PDF"
	}
}

func lowerExt(path string) string {
	dot := -1
	for i := len(path) - 1; i >= 0 && !isSlash(path[i]); i-- {
		if path[i] == '.' {
			dot = i
			break
		}
	}
	if dot < 0 {
		return ""
	}
	b := []byte(path[dot:])
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

func isSlash(b byte) bool { return b == '/' || b == '\\' }
