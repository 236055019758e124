package relay

import (
	"fmt"
	"log/slog"
	"testing"
)

func drain(sub *subscriber, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		select {
		case frame := <-sub.send:
			out = append(out, string(frame))
		default:
			return out
		}
	}
	return out
}

func TestBroadcastFanOut(t *testing.T) {
	hub := NewHub(slog.Default())

	a := hub.Subscribe("chat1")
	b := hub.Subscribe("chat1")
	other := hub.Subscribe("chat2")

	hub.Broadcast("chat1", []byte("first"))
	hub.Broadcast("chat1", []byte("second"))

	for name, sub := range map[string]*subscriber{"a": a, "b": b} {
		got := drain(sub, 2)
		if len(got) != 2 || got[0] != "first" || got[1] != "second" {
			t.Errorf("subscriber %s frames = %v, want [first second]", name, got)
		}
	}

	if got := drain(other, 1); len(got) != 0 {
		t.Errorf("chat2 subscriber received chat1 frames: %v", got)
	}
}

func TestBroadcastToEmptyGroup(t *testing.T) {
	hub := NewHub(slog.Default())
	// Must not panic or block.
	hub.Broadcast("nobody", []byte("x"))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(slog.Default())
	sub := hub.Subscribe("chat1")

	hub.Unsubscribe("chat1", sub)
	if _, open := <-sub.send; open {
		t.Error("send channel still open after unsubscribe")
	}
	if n := hub.Subscribers("chat1"); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}

	// A second unsubscribe for the same subscriber is a no-op.
	hub.Unsubscribe("chat1", sub)
}

func TestSlowSubscriberDropsFramesNotBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())
	slow := hub.Subscribe("chat1")
	fast := hub.Subscribe("chat1")

	// Overfill the slow subscriber's buffer.
	for i := 0; i < sendBuffer+10; i++ {
		hub.Broadcast("chat1", []byte(fmt.Sprintf("frame-%d", i)))
		drain(fast, 1)
	}

	if got := len(slow.send); got != sendBuffer {
		t.Errorf("slow subscriber buffered %d frames, want %d", got, sendBuffer)
	}
}
