package ppcore

import (
	"path/filepath"
	"testing"
)

func TestCookieNilSafe(t *testing.T) {
	var c *Cookie
	if !c.Aborted() {
		t.Fatal("nil cookie should report Aborted() == true")
	}
	c.Abort() // must not panic
	c.Reset() // must not panic
	c.Drop()  // must not panic
	if c.Progress() != 0 {
		t.Fatalf("nil cookie Progress() = %d, want 0", c.Progress())
	}
}

func TestCookieAbort(t *testing.T) {
	c := NewCookie()
	defer c.Drop()
	if c.Aborted() {
		t.Fatal("fresh cookie should not be aborted")
	}
	c.Abort()
	if !c.Aborted() {
		t.Fatal("cookie should be aborted after Abort()")
	}
	c.Reset()
	if c.Aborted() {
		t.Fatal("cookie should not be aborted after Reset()")
	}
}

func TestCookieDrop(t *testing.T) {
	c := NewCookie()
	c.Drop()
	if !c.Aborted() {
		t.Fatal("dropped cookie should read as aborted")
	}
	c.Drop()  // second drop must be a no-op
	c.Abort() // must not touch freed memory
}

// TestCookieAbortBeforeRender pins the deterministic half of the abort
// contract: a render started with an already-aborted cookie fails, and a
// Reset makes the same cookie usable again.
func TestCookieAbortBeforeRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abort.pdf")
	createTestPDF(t, path, 1)

	engine := NewContext()
	defer engine.Drop()
	doc, err := engine.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	c := NewCookie()
	defer c.Drop()
	c.Abort()

	if _, err := doc.RenderPageRGBA(0, 595, 842, c, true); err == nil {
		t.Fatal("render with aborted cookie should fail")
	}
	if !c.Aborted() {
		t.Fatal("abort flag must survive the failed render")
	}

	c.Reset()
	if _, err := doc.RenderPageRGBA(0, 595, 842, c, true); err != nil {
		t.Fatalf("render after Reset failed: %v", err)
	}
}

// TestCookieAbortMidRender aborts from a second goroutine while a large
// render is in flight. The cookie's backing memory is shared with the
// draw, so wherever the abort lands — before, during, or after the last
// tile — the render must return promptly and the flag must read aborted
// afterwards.
func TestCookieAbortMidRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abort.pdf")
	createTestPDF(t, path, 1)

	engine := NewContext()
	defer engine.Drop()
	doc, err := engine.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	c := NewCookie()
	defer c.Drop()

	done := make(chan error, 1)
	go func() {
		_, err := doc.RenderPageRGBA(0, 595*4, 842*4, c, true)
		done <- err
	}()
	c.Abort()

	// If the abort landed mid-draw the render errors; if the draw won the
	// race it may have finished cleanly. Either way it must return, and the
	// flag must still be set.
	<-done
	if !c.Aborted() {
		t.Fatal("cookie should read aborted after concurrent Abort")
	}

	c.Reset()
	if c.Aborted() {
		t.Fatal("cookie should be clean after Reset")
	}
	if _, err := doc.RenderPageRGBA(0, 595, 842, c, true); err != nil {
		t.Fatalf("render after Reset failed: %v", err)
	}
}
