// Package subscription provides an unbounded, ordered message queue for one subscriber.
package subscription

import "sync"

// Subscription delivers messages to one receiver in the order they were sent.
// Send never blocks; messages queue until the receiver drains them.
type Subscription[T any] struct {
	mu     sync.Mutex
	queue  []T
	closed bool
	notify chan struct{}
	out    chan T
	done   chan struct{}
}

// New creates a subscription and starts its delivery loop.
func New[T any]() *Subscription[T] {
	s := &Subscription[T]{
		notify: make(chan struct{}, 1),
		out:    make(chan T),
		done:   make(chan struct{}),
	}
	go s.deliver()
	return s
}

// Send queues a message for the receiver.
func (s *Subscription[T]) Send(message T) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, message)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Receive returns the channel messages are delivered on. It is closed after Close.
func (s *Subscription[T]) Receive() <-chan T {
	return s.out
}

// Close stops delivery and drops any queued messages.
func (s *Subscription[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.queue = nil
	close(s.done)
}

func (s *Subscription[T]) deliver() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}
		msg := s.queue[0]
		var zero T
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- msg:
		case <-s.done:
			return
		}
	}
}
