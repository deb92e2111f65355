package service

import (
	"context"
	"testing"
	"time"

	"github.com/totegamma/questlog"
)

func TestSignalServiceLocalFanOut(t *testing.T) {
	s := NewSignalService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	output := make(chan questlog.Event, 1)
	done := make(chan struct{})
	go func() {
		s.Realtime(ctx, 7, output)
		close(done)
	}()

	// wait for the subscription to register
	deadline := time.Now().Add(time.Second)
	for {
		s.mu.Lock()
		n := len(s.local[7])
		s.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscription never registered")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.Publish(ctx, questlog.Event{Type: questlog.EventGraphChanged, CampaignID: 8}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := s.Publish(ctx, questlog.Event{Type: questlog.EventGraphChanged, CampaignID: 7}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case event := <-output:
		if event.CampaignID != 7 {
			t.Fatalf("received event of another campaign: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("realtime did not stop on cancel")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.local) != 0 {
		t.Fatalf("subscription leaked: %+v", s.local)
	}
}

func TestChannelName(t *testing.T) {
	if got := channel(42); got != "questlog:campaign:42" {
		t.Fatalf("unexpected channel %s", got)
	}
}
