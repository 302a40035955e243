package ppcore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// tempSavePath builds the sibling temp-file name "<target>_<6-hex>.pdf",
// so a save/export in flight is never mistaken for a finished file and a
// crash mid-write never corrupts the real target.
func tempSavePath(path string) string {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand failing is effectively unrecoverable on any real host;
		// fall back to a fixed suffix rather than aborting the save outright.
		copy(suffix, []byte{0xde, 0xad, 0xbe})
	}
	hexSuffix := hex.EncodeToString(suffix)
	ext := ".pdf"
	base := path
	if strings.HasSuffix(strings.ToLower(path), ext) {
		base = path[:len(path)-len(ext)]
	}
	return base + "_" + hexSuffix + ext
}

// SaveAs writes the document's current state to path. When incremental is
// true (and path equals the document's own open path) MuPDF appends an
// incremental update section instead of rewriting the whole file,
// matching pp_pdf_save_as_impl's fast path for "save" vs. "save as".
// The write lands via a temp-file-then-rename so a crash or disk-full
// mid-write never corrupts an existing file at path, the same pattern
// internal/config.Service.Save uses.
func (d *Document) SaveAs(path string, incremental bool) error {
	return d.withLock(func() error {
		if d.pdfDoc == nil {
			return ErrNotPDF
		}
		// Incremental save is only valid when the save target is the
		// currently-open path; anywhere else it silently falls back to a
		// full rewrite, since there is no prior trailer at that path to
		// append to.
		if incremental && path != d.path {
			incremental = false
		}
		tmp := tempSavePath(path)
		if !bridgeSaveDocument(d.ctx, d.pdfDoc, tmp, incremental) {
			os.Remove(tmp)
			return fmt.Errorf("ppcore: save %q: failed", path)
		}
		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("ppcore: save %q: rename: %w", path, err)
		}
		d.dirty = false
		return nil
	})
}

// ExportPDF saves to the document's own open path, incrementally when
// possible. This is the "Save" (not "Save As") entry point.
func (d *Document) ExportPDF() error {
	return d.SaveAs(d.path, true)
}

// ExportFlattenedPDF renders every page to a raster image at dpi and
// writes a new single-image-per-page PDF, the "print to PDF"-style export
// that guarantees annotations can never be edited or lost in a downstream
// tool, matching pp_export_flattened_pdf_impl.
func (d *Document) ExportFlattenedPDF(path string, dpi int) error {
	if dpi <= 0 {
		dpi = 150
	}
	return d.withLock(func() error {
		tmp := path + ".tmp"
		if !bridgeExportFlattened(d.ctx, d.doc, tmp, dpi) {
			os.Remove(tmp)
			return fmt.Errorf("ppcore: export flattened %q: failed", path)
		}
		if err := os.Rename(tmp, path); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("ppcore: export flattened %q: rename: %w", path, err)
		}
		return nil
	})
}
