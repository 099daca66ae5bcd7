package event

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSignalEmitsInSubscriptionOrder(t *testing.T) {
	s := NewSignal[int]("test", nil, 0)
	var got []string
	s.Subscribe(func(v int) { got = append(got, "a") })
	s.Subscribe(func(v int) { got = append(got, "b") })
	s.Subscribe(func(v int) { got = append(got, "c") })

	s.Emit(1)

	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("expected [a b c], got %v", got)
	}
}

func TestSignalUnsubscribe(t *testing.T) {
	s := NewSignal[int]("test", nil, 0)
	calls := 0
	sub := s.Subscribe(func(int) { calls++ })

	sub.Unsubscribe()
	sub.Unsubscribe()
	s.Emit(1)

	if calls != 0 {
		t.Fatalf("expected 0 calls after unsubscribe, got %d", calls)
	}
	if s.Len() != 0 {
		t.Fatalf("expected no subscribers, got %d", s.Len())
	}
	if sub.Active() {
		t.Fatal("subscription should be inactive")
	}
}

func TestSignalPanicIsIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := NewSignal[int]("test", zap.New(core), 0)
	second := false
	s.Subscribe(func(int) { panic("boom") })
	s.Subscribe(func(int) { second = true })

	s.Emit(7)

	if !second {
		t.Fatal("second subscriber should run after the first panicked")
	}
	if logs.FilterMessage("signal subscriber panicked").Len() != 1 {
		t.Fatalf("expected one panic log, got %d", logs.Len())
	}
}

func TestSignalUnsubscribeDuringEmit(t *testing.T) {
	s := NewSignal[int]("test", nil, 0)
	var later *Subscription
	laterCalls := 0
	s.Subscribe(func(int) { later.Unsubscribe() })
	later = s.Subscribe(func(int) { laterCalls++ })

	s.Emit(1)
	s.Emit(2)

	if laterCalls != 0 {
		t.Fatalf("unsubscribed handler ran %d times", laterCalls)
	}
}

func TestSignalWarnsAboveLimit(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := NewSignal[int]("test", zap.New(core), 2)
	for i := 0; i < 3; i++ {
		s.Subscribe(func(int) {})
	}

	if s.Len() != 3 {
		t.Fatalf("registration must not be blocked, got %d subscribers", s.Len())
	}
	if logs.FilterMessage("signal subscriber limit exceeded").Len() != 1 {
		t.Fatalf("expected exactly one warning, got %d", logs.Len())
	}
}

func TestBufferSwap(t *testing.T) {
	b := NewBuffer[int](4)
	b.Push(1)
	b.Push(2)

	got := b.Swap()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected [1 2], got %v", got)
	}
	b.Push(3)
	if b.Len() != 1 {
		t.Fatalf("push after swap should go to the next batch, len=%d", b.Len())
	}
	got = b.Swap()
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("expected [3], got %v", got)
	}
	if len(b.Swap()) != 0 {
		t.Fatal("expected empty batch")
	}
}
