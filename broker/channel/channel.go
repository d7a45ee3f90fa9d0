// Package channel provides the implementation of message channels.
package channel

import (
	"sync"

	"studycall/broker/subscription"
)

// Channel represents a message channel that can have multiple subscribers.
type Channel[T any] struct {
	mu   sync.RWMutex
	subs []*subscription.Subscription[T]
}

// New creates and initializes a new Channel instance.
func New[T any]() *Channel[T] {
	return &Channel[T]{
		subs: make([]*subscription.Subscription[T], 0),
	}
}

// SendAll sends a message to all subscriptions. Each subscription keeps the order
// in which messages were sent.
func (c *Channel[T]) SendAll(message T) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, sub := range c.subs {
		sub.Send(message)
	}
}

// AddSubscription adds a new Subscription Channel.
func (c *Channel[T]) AddSubscription(sub *subscription.Subscription[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subs = append(c.subs, sub)
}

// RemoveSubscription removes a Subscription Channel.
func (c *Channel[T]) RemoveSubscription(sub *subscription.Subscription[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			sub.Close()
			return
		}
	}
}

// Len returns the number of subscriptions.
func (c *Channel[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}
