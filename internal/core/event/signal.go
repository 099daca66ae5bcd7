package event

import (
	"go.uber.org/zap"
)

// Signal is an ordered list of subscribers for one kind of notification.
// Subscribers run synchronously in subscription order. Single-goroutine only.
type Signal[T any] struct {
	name      string
	log       *zap.Logger
	warnAbove int
	subs      []*Subscription
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	fn     any
	remove func(*Subscription)
}

// Unsubscribe detaches the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.remove == nil {
		return
	}
	rm := s.remove
	s.remove = nil
	rm(s)
}

// Active reports whether the subscription is still attached.
func (s *Subscription) Active() bool { return s != nil && s.remove != nil }

// NewSignal creates a signal. warnAbove <= 0 disables the subscriber count warning.
func NewSignal[T any](name string, log *zap.Logger, warnAbove int) *Signal[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Signal[T]{name: name, log: log, warnAbove: warnAbove}
}

// Subscribe appends fn to the subscriber list.
func (s *Signal[T]) Subscribe(fn func(T)) *Subscription {
	sub := &Subscription{fn: fn, remove: s.remove}
	s.subs = append(s.subs, sub)
	if s.warnAbove > 0 && len(s.subs) > s.warnAbove {
		s.log.Warn("signal subscriber limit exceeded",
			zap.String("signal", s.name),
			zap.Int("subscribers", len(s.subs)),
			zap.Int("limit", s.warnAbove))
	}
	return sub
}

func (s *Signal[T]) remove(sub *Subscription) {
	for i, o := range s.subs {
		if o == sub {
			// copy-on-write so an in-flight Emit keeps iterating its snapshot
			next := make([]*Subscription, 0, len(s.subs)-1)
			next = append(next, s.subs[:i]...)
			s.subs = append(next, s.subs[i+1:]...)
			return
		}
	}
}

// Emit delivers v to every subscriber attached when Emit starts.
func (s *Signal[T]) Emit(v T) {
	if len(s.subs) == 0 {
		return
	}
	snapshot := s.subs
	for _, sub := range snapshot {
		if !sub.Active() {
			continue
		}
		s.call(sub, v)
	}
}

func (s *Signal[T]) call(sub *Subscription, v T) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("signal subscriber panicked",
				zap.String("signal", s.name),
				zap.Any("panic", r))
		}
	}()
	sub.fn.(func(T))(v)
}

// Len returns the number of attached subscribers.
func (s *Signal[T]) Len() int { return len(s.subs) }

// Clear detaches every subscriber.
func (s *Signal[T]) Clear() {
	for _, sub := range s.subs {
		sub.remove = nil
	}
	s.subs = nil
}
