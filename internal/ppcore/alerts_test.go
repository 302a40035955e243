package ppcore

import (
	"testing"
	"time"
)

func TestAlertSessionDeliverAndReply(t *testing.T) {
	s := NewAlertSession()
	done := make(chan int, 1)

	go func() {
		done <- s.deliver("are you sure?", 0)
	}()

	pending, ok := s.Wait()
	if !ok {
		t.Fatal("Wait() returned ok=false")
	}
	if pending.Message != "are you sure?" {
		t.Fatalf("pending.Message = %q", pending.Message)
	}

	if err := s.Reply(pending.ID, AlertYes); err != nil {
		t.Fatalf("Reply: %v", err)
	}

	select {
	case got := <-done:
		if AlertButton(got) != AlertYes {
			t.Fatalf("deliver() returned %d, want AlertYes", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("deliver() never returned after Reply")
	}
}

func TestAlertSessionWaitConsumesAlert(t *testing.T) {
	s := NewAlertSession()
	go s.deliver("once only", 0)

	if _, ok := s.Wait(); !ok {
		t.Fatal("Wait() returned ok=false")
	}

	// A defensive re-poll before the alert is answered must not hand the
	// same alert out again; with the session stopped it reports nothing
	// pending instead.
	got := make(chan bool, 1)
	go func() {
		_, ok := s.Wait()
		got <- ok
	}()
	select {
	case <-got:
		t.Fatal("second Wait() returned an already-consumed alert")
	case <-time.After(50 * time.Millisecond):
	}

	s.Stop()
	select {
	case ok := <-got:
		if ok {
			t.Fatal("second Wait() after Stop should report no alert")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second Wait() did not return after Stop")
	}
}

func TestAlertSessionReplyWrongIDRejected(t *testing.T) {
	s := NewAlertSession()
	go s.deliver("hello", 0)

	pending, ok := s.Wait()
	if !ok {
		t.Fatal("Wait() returned ok=false")
	}

	if err := s.Reply("not-the-real-id", AlertOK); err == nil {
		t.Fatal("Reply with wrong id should fail")
	}

	// Clean up the still-pending alert so the goroutine doesn't leak past
	// the test.
	_ = s.Reply(pending.ID, AlertOK)
}

func TestAlertSessionStopUnblocksDeliver(t *testing.T) {
	s := NewAlertSession()
	done := make(chan int, 1)

	go func() {
		done <- s.deliver("blocked forever?", 0)
	}()

	// Give deliver a moment to publish its pending alert before stopping.
	if _, ok := s.Wait(); !ok {
		t.Fatal("Wait() returned ok=false before Stop")
	}
	s.Stop()

	select {
	case got := <-done:
		if AlertButton(got) != AlertOK {
			t.Fatalf("deliver() after Stop returned %d, want default AlertOK", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not unblock deliver()")
	}
}

func TestAlertSessionStopBeforeDeliverReturnsDefault(t *testing.T) {
	s := NewAlertSession()
	s.Stop()
	if got := s.deliver("too late", 0); AlertButton(got) != AlertOK {
		t.Fatalf("deliver() on stopped session returned %d, want AlertOK", got)
	}
}
