package main

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestForwardSignalsRequestsClose(t *testing.T) {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	defer close(done)
	requests := 0
	sigs <- syscall.SIGINT
	forwardSignals(sigs, done, func() error {
		requests++
		return errors.New("engine already gone")
	})
	if requests != 1 {
		t.Fatalf("expected one close request, got %d", requests)
	}
}

func TestForwardSignalsReturnsWhenDone(t *testing.T) {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		forwardSignals(sigs, done, func() error {
			t.Error("no signal was sent")
			return nil
		})
	}()
	close(done)
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("signal forwarding outlived the engine")
	}
}
