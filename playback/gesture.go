package playback

import "sync"

// Gestures delivers the next user gesture.
type Gestures interface {
	// Once calls fn on the next gesture only. The returned function removes fn
	// if it has not run yet.
	Once(fn func()) (cancel func())
}

// GestureHub collects user gestures reported by the control surface. Once a
// gesture was seen the hub stays activated.
type GestureHub struct {
	mu        sync.Mutex
	activated bool
	listeners map[int]func()
	next      int
}

// NewGestureHub creates a new GestureHub.
func NewGestureHub() *GestureHub {
	return &GestureHub{
		listeners: make(map[int]func()),
	}
}

// Once implements Gestures.
func (h *GestureHub) Once(fn func()) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

// Fire reports a gesture. Every pending listener runs once, in registration order.
func (h *GestureHub) Fire() {
	h.mu.Lock()
	h.activated = true
	var fns []func()
	for id := 1; id <= h.next; id++ {
		if fn, ok := h.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	h.listeners = make(map[int]func())
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Activated reports whether a gesture was ever seen.
func (h *GestureHub) Activated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.activated
}

// Listeners returns the number of listeners waiting for a gesture.
func (h *GestureHub) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}
