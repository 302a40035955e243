package ppcore

import "runtime"

// Cookie is a small cooperative cancellation token shared between a request
// submitter and the render/search routine carrying it out. The backing
// memory is a C-allocated fz_cookie handed to MuPDF directly, so an Abort
// from another goroutine is visible to a render already in flight: MuPDF
// polls the same abort word between tiles and returns within one tile's
// worth of work. Allocated independently of any Context or Document so it
// safely outlives either — platforms may drop a document out from under a
// background render while a cookie pointer is still held by that render's
// goroutine.
type Cookie struct {
	c cookieHandle
}

// NewCookie allocates a zero-filled cookie, not tied to any Context.
func NewCookie() *Cookie {
	ck := &Cookie{c: bridgeCookieAlloc()}
	runtime.SetFinalizer(ck, (*Cookie).Drop)
	return ck
}

// Drop releases the cookie's backing memory. Safe to call more than once,
// and safe after any document or context the cookie was used with has been
// dropped. A dropped cookie reads as aborted.
func (c *Cookie) Drop() {
	if c == nil || c.c == nil {
		return
	}
	bridgeCookieFree(c.c)
	c.c = nil
	runtime.SetFinalizer(c, nil)
}

// Abort sets the abort flag. Observable immediately by any routine polling
// Aborted, from any goroutine — including MuPDF's own polling inside a
// render that is already under way.
func (c *Cookie) Abort() {
	if c == nil || c.c == nil {
		return
	}
	bridgeCookieAbort(c.c)
}

// Aborted reports whether the cookie has been aborted. A nil (or dropped)
// cookie is considered already aborted so callers may defensively pass nil.
func (c *Cookie) Aborted() bool {
	if c == nil || c.c == nil {
		return true
	}
	return bridgeCookieAborted(c.c)
}

// Reset zero-fills the cookie so it can be reused for a subsequent render.
func (c *Cookie) Reset() {
	if c == nil || c.c == nil {
		return
	}
	bridgeCookieReset(c.c)
}

// Progress returns the work-unit counter the current consumer reports;
// MuPDF advances it as it draws.
func (c *Cookie) Progress() int {
	if c == nil || c.c == nil {
		return 0
	}
	return bridgeCookieProgress(c.c)
}
