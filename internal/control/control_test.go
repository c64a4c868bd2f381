package control

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitPassesWithNoSignals(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.Wait(context.Background()); err != nil {
		t.Errorf("Wait: %v, want nil", err)
	}
}

func TestStopSignal(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.SendStop(); err != nil {
		t.Fatalf("SendStop: %v", err)
	}
	if err := w.Wait(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Wait = %v, want ErrStopped", err)
	}
}

func TestPauseBlocksUntilResumed(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.SendPause(); err != nil {
		t.Fatalf("SendPause: %v", err)
	}
	if !w.ShouldPause() {
		t.Fatal("ShouldPause = false after SendPause")
	}

	released := make(chan error, 1)
	go func() {
		released <- w.Wait(context.Background())
	}()

	select {
	case err := <-released:
		t.Fatalf("Wait returned %v while paused", err)
	case <-time.After(100 * time.Millisecond):
	}

	if err := w.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	select {
	case err := <-released:
		if err != nil {
			t.Errorf("Wait after resume: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after resume")
	}
}

func TestWaitHonorsContextWhilePaused(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.SendPause(); err != nil {
		t.Fatalf("SendPause: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := w.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want deadline exceeded", err)
	}
}

func TestClearSignals(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.SendStop(); err != nil {
		t.Fatalf("SendStop: %v", err)
	}
	w.ClearSignals()
	if w.ShouldStop() {
		t.Error("ShouldStop = true after ClearSignals")
	}
}
