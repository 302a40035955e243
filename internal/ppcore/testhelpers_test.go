package ppcore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createTestPDF writes a minimal multi-page A4 PDF to path, in the same
// spirit as internal/pdf's CreateTestPDF: a hand-built object stream with an
// intentionally approximate xref, since MuPDF falls back to its own repair
// scan for any xref it can't trust rather than failing outright.
func createTestPDF(t *testing.T, path string, pages int) {
	t.Helper()
	if pages < 1 {
		pages = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var b strings.Builder
	b.WriteString("%PDF-1.7\n")
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	kids := make([]string, pages)
	for i := 0; i < pages; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i*2)
	}
	fmt.Fprintf(&b, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), pages)

	for i := 0; i < pages; i++ {
		pageObj := 3 + i*2
		contentObj := pageObj + 1
		text := fmt.Sprintf("Page %d", i+1)
		stream := fmt.Sprintf("BT /F1 18 Tf 72 770 Td (%s) Tj ET", text)
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] "+
			"/Contents %d 0 R /Resources << /Font << /F1 << /Type /Font /Subtype /Type1 /BaseFont /Helvetica >> >> >> >>\nendobj\n",
			pageObj, contentObj)
		fmt.Fprintf(&b, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", contentObj, len(stream), stream)
	}

	totalObjs := 2 + pages*2 + 1
	b.WriteString("xref\n")
	fmt.Fprintf(&b, "0 %d\n", totalObjs)
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i < totalObjs; i++ {
		b.WriteString("0000000010 00000 n \n")
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n0\n%%%%EOF\n", totalObjs)

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write test pdf: %v", err)
	}
}
