package coordinator

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"studycall/cue"
	"studycall/database"
	"studycall/peer"
	"studycall/types/call"
	"studycall/types/event"
	"studycall/types/request"
)

// handle is the signaling handler. It runs on the signaling reader, so it
// never waits for an acknowledgement itself.
func (c *Coordinator) handle(ev event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handleLocked(ev)
}

func (c *Coordinator) handleLocked(ev event.Event) {
	if ce, ok := ev.(event.CallEvent); ok && c.deferLocked(ce) {
		return
	}

	switch e := ev.(type) {
	case event.Ring:
		c.onRing(e)
	case event.Accepted:
		c.onAccepted(e)
	case event.Declined:
		c.onDeclined(e)
	case event.Ended:
		c.onEnded(e)
	case event.Offer:
		c.onOffer(e)
	case event.Answer:
		c.onAnswer(e)
	case event.IceCandidate:
		c.onIceCandidate(e)
	case event.MediaState:
		c.onMediaState(e)
	case event.Disconnected:
		c.onDisconnected(e)
	}
}

// deferLocked keeps the negotiation events of a call whose acceptance is not
// acknowledged yet. They are replayed once the call is active.
func (c *Coordinator) deferLocked(ev event.CallEvent) bool {
	s := c.scope
	if s == nil || !s.accepting || ev.Target() != s.callID {
		return false
	}
	switch ev.(type) {
	case event.Accepted, event.Offer, event.Answer, event.IceCandidate, event.MediaState:
		s.early = append(s.early, ev)
		return true
	}
	return false
}

// activeLocked returns the active call when it has the given id.
func (c *Coordinator) activeLocked(callID string) (*call.Call, *scope) {
	active := c.state.ActiveCall
	if c.scope == nil || active == nil || active.ID != callID {
		return nil, nil
	}
	return active, c.scope
}

// incomingLocked returns the incoming call when it has the given id and is not
// being accepted.
func (c *Coordinator) incomingLocked(callID string) *call.Call {
	incoming := c.state.IncomingCall
	if incoming == nil || incoming.ID != callID {
		return nil
	}
	if c.scope != nil && c.scope.accepting && c.scope.callID == callID {
		return nil
	}
	return incoming
}

func (c *Coordinator) onRing(e event.Ring) {
	incoming := e.Call.DeepCopy()
	if incoming.ID == "" || incoming.InitiatorID == c.config.UserID {
		return
	}
	if cur := c.state.IncomingCall; cur != nil && cur.ID == incoming.ID {
		return
	}
	if s := c.scope; s != nil && c.crossesLocked(s, incoming) {
		if c.config.UserID < incoming.InitiatorID {
			log.Info().Str("call", incoming.ID).Str("from", incoming.InitiatorID).Msg("crossing call ignored, local call is kept")
			return
		}
		c.abandonLocked(s)
		c.ringLocked(incoming, false)
		go func() {
			if err := c.AcceptCall(context.Background()); err != nil {
				log.Warn().Err(err).Str("call", incoming.ID).Msg("failed to accept crossing call")
			}
		}()
		return
	}
	if c.scope != nil || c.state.IncomingCall != nil {
		log.Info().Str("call", incoming.ID).Str("from", incoming.InitiatorID).Msg("call declined while busy")
		go c.declineBusy(incoming.ID)
		return
	}
	c.ringLocked(incoming, true)
}

// crossesLocked reports whether incoming is the other side calling back in the
// same direct chat while the local call is still ringing.
func (c *Coordinator) crossesLocked(s *scope, incoming *call.Call) bool {
	if s.accepting || s.contextType != call.Direct || incoming.ContextType != call.Direct {
		return false
	}
	if s.contextID != incoming.ContextID {
		return false
	}
	active := c.state.ActiveCall
	return active == nil || active.Status == call.Ringing
}

func (c *Coordinator) ringLocked(incoming *call.Call, audible bool) {
	incoming.IsInitiator = false
	incoming.Status = call.Ringing
	if incoming.StartedAt.IsZero() {
		incoming.StartedAt = call.At(c.clock.Now())
	}
	c.state.IncomingCall = incoming
	c.armIncomingTimerLocked(incoming.ID)
	if audible {
		c.player.Play(cue.Ringtone)
	}
	c.publishLocked()
	log.Info().Str("call", incoming.ID).Str("from", incoming.InitiatorID).Msg("incoming call")
}

// forgetIncomingLocked drops the incoming call without a history record. It is
// used when the call was handled on another device.
func (c *Coordinator) forgetIncomingLocked() {
	c.stopIncomingTimerLocked()
	c.state.IncomingCall = nil
	if c.scope == nil {
		c.player.Stop()
		c.player.Release()
	}
	c.publishLocked()
}

func (c *Coordinator) onAccepted(e event.Accepted) {
	if incoming := c.incomingLocked(e.CallID); incoming != nil {
		if e.UserID == c.config.UserID {
			c.forgetIncomingLocked()
			return
		}
		incoming.UpsertParticipant(e.UserID, e.UserName, call.ParticipantJoined)
		c.publishLocked()
		return
	}
	active, s := c.activeLocked(e.CallID)
	if active == nil || e.UserID == c.config.UserID {
		return
	}
	active.UpsertParticipant(e.UserID, e.UserName, call.ParticipantJoined)

	switch {
	case active.Status == call.Ringing && active.IsInitiator:
		c.activateLocked(s)
	case active.Status == call.Active && active.ContextType == call.Group && !active.IsInitiator && e.UserID > c.config.UserID:
		if _, ok := c.peers.State(e.UserID); !ok {
			c.offerLocked(s, e.UserID)
		}
	}
	c.publishLocked()
}

func (c *Coordinator) onDeclined(e event.Declined) {
	if incoming := c.incomingLocked(e.CallID); incoming != nil {
		if e.UserID == c.config.UserID {
			c.forgetIncomingLocked()
			return
		}
		incoming.UpsertParticipant(e.UserID, "", call.ParticipantDeclined)
		c.publishLocked()
		return
	}
	active, s := c.activeLocked(e.CallID)
	if active == nil || e.UserID == c.config.UserID {
		return
	}
	active.UpsertParticipant(e.UserID, "", call.ParticipantDeclined)

	outcome := database.Completed
	if active.Status == call.Ringing {
		outcome = database.Declined
	}
	if active.ContextType == call.Direct {
		c.teardownLocked(s, outcome, "")
		return
	}
	if !active.Remaining(c.config.UserID) && (active.Status == call.Ringing || c.config.EndWhenAlone) {
		c.teardownLocked(s, outcome, "")
		return
	}
	c.publishLocked()
}

func (c *Coordinator) onEnded(e event.Ended) {
	if incoming := c.incomingLocked(e.CallID); incoming != nil {
		c.dismissLocked(database.Missed)
		return
	}
	if s := c.scope; s != nil && s.accepting && s.callID == e.CallID {
		c.teardownLocked(s, database.Missed, "")
		return
	}
	active, s := c.activeLocked(e.CallID)
	if active == nil {
		return
	}
	outcome := database.Completed
	if active.Status == call.Ringing {
		outcome = database.Unanswered
	}
	log.Info().Str("call", active.ID).Str("by", e.EndedBy).Msg("call ended remotely")
	c.teardownLocked(s, outcome, "")
}

func (c *Coordinator) onOffer(e event.Offer) {
	active, s := c.activeLocked(e.CallID)
	if active == nil {
		log.Debug().Str("call", e.CallID).Msg("offer for unknown call ignored")
		return
	}
	if active.Status == call.Ringing && active.IsInitiator {
		active.UpsertParticipant(e.FromUserID, "", call.ParticipantJoined)
		c.activateLocked(s)
		c.publishLocked()
	}

	answer, err := c.peers.HandleOffer(s.ctx, e.FromUserID, e.Offer, c.relay(s.callID, e.FromUserID))
	if errors.Is(err, peer.ErrGlare) {
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("peer", e.FromUserID).Msg("failed to answer offer")
		return
	}
	if err := c.signal.Emit(request.SendAnswer, request.Answer{
		CallID:   s.callID,
		ToUserID: e.FromUserID,
		Answer:   answer,
	}); err != nil {
		log.Warn().Err(err).Str("peer", e.FromUserID).Msg("failed to send answer")
	}
}

func (c *Coordinator) onAnswer(e event.Answer) {
	active, _ := c.activeLocked(e.CallID)
	if active == nil {
		return
	}
	if err := c.peers.HandleAnswer(e.FromUserID, e.Answer); err != nil {
		log.Warn().Err(err).Str("peer", e.FromUserID).Msg("failed to apply answer")
	}
}

func (c *Coordinator) onIceCandidate(e event.IceCandidate) {
	active, _ := c.activeLocked(e.CallID)
	if active == nil {
		return
	}
	if err := c.peers.HandleIceCandidate(e.FromUserID, e.Candidate); err != nil {
		log.Debug().Err(err).Str("peer", e.FromUserID).Msg("ice candidate for unknown peer")
	}
}

func (c *Coordinator) onMediaState(e event.MediaState) {
	active, _ := c.activeLocked(e.CallID)
	if active == nil || e.UserID == c.config.UserID {
		return
	}
	p, ok := active.Participant(e.UserID)
	if !ok {
		p = active.UpsertParticipant(e.UserID, "", call.ParticipantJoined)
	}
	p.MediaFlags = e.MediaFlags
	c.publishLocked()
}

// onDisconnected keeps the call running on its peer connections. The caller
// reconnects by placing or accepting the next call.
func (c *Coordinator) onDisconnected(e event.Disconnected) {
	if e.Err == nil {
		return
	}
	log.Warn().Err(e.Err).Msg("signaling channel lost")
	if c.scope != nil || c.state.IncomingCall != nil {
		c.state.Error = (&Error{Kind: KindSignalingUnavailable, Err: e.Err}).Error()
		c.publishLocked()
	}
}

// handlePeer applies a peer session event. Events of sessions that are gone
// are dropped.
func (c *Coordinator) handlePeer(ev peer.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	active := c.state.ActiveCall
	s := c.scope
	if active == nil || s == nil {
		return
	}

	switch e := ev.(type) {
	case peer.RemoteStreamAdded:
		if c.peers.RemoteStream(e.UserID) != e.Stream {
			return
		}
		c.state.RemoteStreams[e.UserID] = e.Stream
		c.publishLocked()
	case peer.StateChanged:
		if generation, ok := c.peers.Generation(e.UserID); !ok || generation != e.Generation {
			return
		}
		switch e.State {
		case webrtc.PeerConnectionStateFailed:
			c.peerLostLocked(s, active, e.UserID, true)
		case webrtc.PeerConnectionStateClosed:
			c.peerLostLocked(s, active, e.UserID, false)
		}
	}
}

// peerLostLocked handles a session that can no longer carry media. A direct
// call ends with it; a group call drops only that participant.
func (c *Coordinator) peerLostLocked(s *scope, active *call.Call, remoteUserID string, failed bool) {
	if active.ContextType == call.Direct {
		if !failed {
			return
		}
		e := &Error{Kind: KindConnectionFailed, Detail: "connection to " + remoteUserID + " failed"}
		log.Warn().Str("peer", remoteUserID).Msg("peer connection failed, ending call")
		c.teardownLocked(s, database.Failed, e.Error())
		return
	}

	log.Info().Str("peer", remoteUserID).Bool("failed", failed).Msg("group participant dropped")
	c.peers.Close(remoteUserID)
	delete(c.state.RemoteStreams, remoteUserID)
	active.UpsertParticipant(remoteUserID, "", call.ParticipantLeft)
	if c.config.EndWhenAlone && !active.Remaining(c.config.UserID) {
		c.teardownLocked(s, database.Completed, "")
		return
	}
	c.publishLocked()
}
