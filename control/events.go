package control

import (
	"encoding/json"
	"fmt"

	"studycall/pkg/socket"
)

// stateStream pushes every state snapshot to a websocket client. The current
// state is sent first.
type stateStream struct {
	calls Calls
}

// Process implements middleware.Processor.
func (s *stateStream) Process(sock socket.Socket) error {
	sub := s.calls.Subscribe()
	defer s.calls.Unsubscribe(sub)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var discard json.RawMessage
			if err := sock.ReadJSON(&discard); err != nil {
				return
			}
		}
	}()

	if err := sock.WriteJSON(NewState(s.calls.State())); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	for {
		select {
		case <-closed:
			return nil
		case state, ok := <-sub.Receive():
			if !ok {
				return nil
			}
			if err := sock.WriteJSON(NewState(state)); err != nil {
				return fmt.Errorf("write state: %w", err)
			}
		}
	}
}
