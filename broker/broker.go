// Package broker carries typed messages from one component to the components that
// observe it, without blocking the publisher.
package broker

import (
	"studycall/broker/channel"
	"studycall/broker/subscription"
)

// Publisher is the write side of a topic. Components receive it at construction
// so they can publish without knowing who listens.
type Publisher[T any] interface {
	Publish(message T)
}

// Topic is a typed pub/sub channel.
type Topic[T any] struct {
	ch *channel.Channel[T]
}

// New creates a new Topic.
func New[T any]() *Topic[T] {
	return &Topic[T]{
		ch: channel.New[T](),
	}
}

// Publish sends the message to every subscriber.
func (t *Topic[T]) Publish(message T) {
	t.ch.SendAll(message)
}

// Subscribe registers a new subscriber. Messages published before the call are not
// delivered to it.
func (t *Topic[T]) Subscribe() *subscription.Subscription[T] {
	sub := subscription.New[T]()
	t.ch.AddSubscription(sub)
	return sub
}

// Unsubscribe removes and closes the subscription.
func (t *Topic[T]) Unsubscribe(sub *subscription.Subscription[T]) {
	t.ch.RemoveSubscription(sub)
}

// Subscribers returns the number of current subscribers.
func (t *Topic[T]) Subscribers() int {
	return t.ch.Len()
}
