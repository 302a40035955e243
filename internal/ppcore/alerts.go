package ppcore

import (
	"fmt"
	"runtime/cgo"
	"sync"

	"github.com/google/uuid"
)

// AlertButton is the button a consumer (the UI thread) chose to dismiss a
// JS-originated alert/confirm/prompt dialog.
type AlertButton int

const (
	AlertOK AlertButton = iota
	AlertCancel
	AlertYes
	AlertNo
)

// int32AlertDefaultButton is returned to MuPDF when a delivery races a
// Stop() or finds no session registered: an unanswerable alert is treated
// as OK so a script blocked on app.alert() never wedges the whole
// document open.
const int32AlertDefaultButton = int(AlertOK)

// PendingAlert is one JS alert/confirm/prompt request awaiting a UI
// response.
type PendingAlert struct {
	ID          string
	Message     string
	ButtonGroup int
}

// AlertSession is the rendezvous between a document's JS engine (which
// calls app.alert() on whatever goroutine is driving a script, blocking
// until answered) and the UI thread that actually shows a dialog and
// supplies the answer. A single mutex with two sync.Cond waiters over it
// is enough: both conditions (alert pending / reply recorded) only ever
// need to wake one side at a time and never contend with each other
// directly.
type AlertSession struct {
	mu        sync.Mutex
	cond      *sync.Cond // broadcast when pending becomes non-nil or stopped flips
	replyCond *sync.Cond // broadcast when reply becomes non-nil or stopped flips

	pending  *PendingAlert
	reply    *AlertButton
	consumed bool // pending has been handed out by Wait; don't return it twice
	stopped  bool

	handle cgo.Handle
}

// NewAlertSession creates a session not yet wired into any document.
func NewAlertSession() *AlertSession {
	s := &AlertSession{}
	s.cond = sync.NewCond(&s.mu)
	s.replyCond = sync.NewCond(&s.mu)
	return s
}

// Start registers this session as d's JS alert handler. Only one session
// may be active per document at a time; starting a second replaces the
// first's registration (MuPDF keeps one callback slot per pdf_document).
func (s *AlertSession) Start(d *Document) error {
	if d.pdfDoc == nil {
		return ErrNotPDF
	}
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
	s.handle = cgo.NewHandle(s)
	bridgeRegisterAlertCallback(d.ctx, d.pdfDoc, s.handle)
	return nil
}

// Stop marks the session stopped, wakes any blocked Wait/deliver calls (an
// in-flight JS alert receives the default button rather than hanging
// forever), and releases the cgo handle. Safe to call more than once.
func (s *AlertSession) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cond.Broadcast()
	s.replyCond.Broadcast()
	s.mu.Unlock()

	if s.handle != 0 {
		s.handle.Delete()
		s.handle = 0
	}
}

// deliver is called synchronously from the C callback (goAlertDeliver) on
// whichever goroutine is driving the document's JS engine. It publishes the
// alert for Wait() to pick up and blocks until Reply() answers it or the
// session stops.
func (s *AlertSession) deliver(message string, buttonGroupType int) int {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return int32AlertDefaultButton
	}

	id := uuid.NewString()
	s.pending = &PendingAlert{ID: id, Message: message, ButtonGroup: buttonGroupType}
	s.consumed = false
	s.cond.Broadcast()

	for s.reply == nil && !s.stopped {
		s.replyCond.Wait()
	}

	button := AlertOK
	if s.reply != nil {
		button = *s.reply
	}
	s.pending = nil
	s.reply = nil
	s.mu.Unlock()
	return int(button)
}

// Wait blocks until a fresh alert is pending, returning it along with
// true; it returns false if the session is stopped with nothing pending.
// Each alert is handed out once: a second Wait before the first alert is
// answered blocks for the next alert instead of re-returning the same one.
func (s *AlertSession) Wait() (PendingAlert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for (s.pending == nil || s.consumed) && !s.stopped {
		s.cond.Wait()
	}
	if s.pending == nil || s.consumed {
		return PendingAlert{}, false
	}
	s.consumed = true
	return *s.pending, true
}

// Reply answers the alert identified by id. Returns an error if id does not
// match the currently pending alert (e.g. a stale reply after Stop/a new
// alert superseded it).
func (s *AlertSession) Reply(id string, button AlertButton) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.pending.ID != id {
		return fmt.Errorf("ppcore: alert reply: %q is not the pending alert", id)
	}
	s.reply = &button
	s.replyCond.Broadcast()
	return nil
}
