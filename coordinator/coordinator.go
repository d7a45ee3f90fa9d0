// Package coordinator drives one-to-one and group calls. It turns user commands
// and signaling events into operations on the signaling client, the peer
// sessions and the local media, and publishes the resulting call state.
package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"studycall/broker"
	"studycall/broker/subscription"
	"studycall/cue"
	"studycall/database"
	"studycall/media"
	"studycall/metric"
	"studycall/peer"
	"studycall/signal"
	"studycall/types/call"
	"studycall/types/event"
	"studycall/types/request"
	"studycall/types/response"
)

// Signaler is the signaling channel the coordinator drives.
type Signaler interface {
	Connect(ctx context.Context, token string) error
	Request(ctx context.Context, command string, payload any) (json.RawMessage, error)
	Emit(command string, payload any) error
	On(kind event.Kind, handler signal.Handler) func()
}

// scope lives from the first command of a call until its teardown. Its context
// is cancelled by the teardown, which abandons every step still in flight.
type scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	contextType call.ContextType
	contextID   string
	callID      string

	// accepting is set while the receiver waits for the accept acknowledgement.
	// Events for the call that arrive meanwhile are kept in early.
	accepting bool
	early     []event.Event

	ringTimer *clock.Timer
	ticker    *clock.Ticker
	tickDone  chan struct{}
	connected bool
}

// Coordinator is the call state machine.
type Coordinator struct {
	config  Config
	signal  Signaler
	peers   *peer.Manager
	media   *media.Controller
	player  cue.Player
	db      database.Database
	clock   clock.Clock
	metrics *metric.Metrics

	peerEvents  *broker.Topic[peer.Event]
	peerSub     *subscription.Subscription[peer.Event]
	states      *broker.Topic[State]
	unsubscribe []func()

	mu            sync.Mutex
	state         State
	scope         *scope
	incomingTimer *clock.Timer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces the wall clock used for ring timeouts and call durations.
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) {
		c.clock = clk
	}
}

// New creates a new Coordinator and registers it for the call events of sig.
// Peer sessions are opened with factory.
func New(
	config Config,
	sig Signaler,
	factory peer.Factory,
	controller *media.Controller,
	player cue.Player,
	db database.Database,
	m *metric.Metrics,
	opts ...Option,
) *Coordinator {
	peerEvents := broker.New[peer.Event]()
	c := &Coordinator{
		config:     config,
		signal:     sig,
		peers:      peer.New(config.UserID, factory, peerEvents, m),
		media:      controller,
		player:     player,
		db:         db,
		clock:      clock.New(),
		metrics:    m,
		peerEvents: peerEvents,
		peerSub:    peerEvents.Subscribe(),
		states:     broker.New[State](),
		state: State{
			RemoteStreams: make(map[string]*peer.RemoteStream),
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, kind := range []event.Kind{
		event.KindRing,
		event.KindAccepted,
		event.KindDeclined,
		event.KindEnded,
		event.KindOffer,
		event.KindAnswer,
		event.KindIceCandidate,
		event.KindMediaState,
		event.KindDisconnected,
	} {
		c.unsubscribe = append(c.unsubscribe, sig.On(kind, c.handle))
	}
	controller.OnScreenShareEnded(c.screenShareEnded)
	return c
}

// Peers returns the peer session manager of the coordinator.
func (c *Coordinator) Peers() *peer.Manager {
	return c.peers
}

// Run delivers peer session events to the state machine until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c.peerSub.Receive():
			if !ok {
				return nil
			}
			c.handlePeer(ev)
		}
	}
}

// Close ends the current call and detaches the coordinator from its collaborators.
func (c *Coordinator) Close(ctx context.Context) {
	if err := c.EndCall(ctx); err != nil && KindOf(err) != KindStateViolation {
		log.Warn().Err(err).Msg("failed to end call on close")
	}
	c.mu.Lock()
	if c.state.IncomingCall != nil {
		c.dismissLocked(database.Missed)
	}
	c.mu.Unlock()

	for _, fn := range c.unsubscribe {
		fn()
	}
	c.peerEvents.Unsubscribe(c.peerSub)
	c.player.Release()
}

// State returns a snapshot of the call state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a subscription receiving a snapshot after every change and
// every second while a call is active.
func (c *Coordinator) Subscribe() *subscription.Subscription[State] {
	return c.states.Subscribe()
}

// Unsubscribe closes a subscription returned by Subscribe.
func (c *Coordinator) Unsubscribe(sub *subscription.Subscription[State]) {
	c.states.Unsubscribe(sub)
}

func (c *Coordinator) snapshotLocked() State {
	s := c.state.clone()
	s.CallDuration = c.durationLocked()
	return s
}

func (c *Coordinator) durationLocked() time.Duration {
	active := c.state.ActiveCall
	if active == nil || active.Status != call.Active || active.AnsweredAt.IsZero() {
		return 0
	}
	if d := c.clock.Now().Sub(active.AnsweredAt.Time); d > 0 {
		return d
	}
	return 0
}

func (c *Coordinator) publishLocked() {
	c.states.Publish(c.snapshotLocked())
}

// InitiateCall places a call in the given chat or group.
func (c *Coordinator) InitiateCall(ctx context.Context, callType call.Type, contextType call.ContextType, contextID string) error {
	c.mu.Lock()
	if c.scope != nil {
		c.mu.Unlock()
		return violation("a call is already in progress")
	}
	if c.state.IncomingCall != nil {
		c.mu.Unlock()
		return violation("an incoming call is ringing")
	}
	s := c.beginLocked(contextType, contextID)
	c.state.Error = ""
	c.publishLocked()
	c.mu.Unlock()

	actx, cancel := within(ctx, s)
	defer cancel()

	if err := c.signal.Connect(actx, c.config.Token); err != nil {
		return c.abort(s, classify(err, KindTransport))
	}
	stream, err := c.media.EnsureLocalStream(actx, media.Constraints{Audio: true, Video: callType == call.Video})
	if err != nil {
		return c.abort(s, classify(err, KindDeviceUnavailable))
	}
	raw, err := c.signal.Request(actx, request.InitiateCall, request.Initiate{
		CallType:    callType,
		ContextType: contextType,
		ContextID:   contextID,
	})
	if err != nil {
		return c.abort(s, classifyRequest(err, true))
	}
	var ack response.Initiate
	if err := json.Unmarshal(raw, &ack); err != nil || ack.Call.ID == "" {
		return c.abort(s, &Error{Kind: KindSignalingUnavailable, Detail: "malformed call:initiate acknowledgement", Err: err})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scope != s {
		go c.endRemote(context.Background(), ack.Call.ID)
		return &Error{Kind: KindCancelled, Detail: "call ended while it was being placed"}
	}

	active := ack.Call.DeepCopy()
	active.IsInitiator = true
	active.Status = call.Ringing
	if active.CallType == "" {
		active.CallType = callType
	}
	if active.ContextType == "" {
		active.ContextType = contextType
		active.ContextID = contextID
	}
	if active.InitiatorID == "" {
		active.InitiatorID = c.config.UserID
	}
	if active.StartedAt.IsZero() {
		active.StartedAt = call.At(c.clock.Now())
	}
	s.callID = active.ID
	c.state.ActiveCall = active
	c.resetFlagsLocked(active.CallType)
	c.peers.SetLocalStream(stream)
	s.ringTimer = c.clock.AfterFunc(c.config.RingTimeout, func() {
		c.ringTimedOut(s)
	})
	c.player.Play(cue.Ringback)
	c.publishLocked()
	log.Info().Str("call", active.ID).Str("type", string(callType)).Str("context", contextID).Msg("call placed")
	return nil
}

// AcceptCall answers the incoming call.
func (c *Coordinator) AcceptCall(ctx context.Context) error {
	c.mu.Lock()
	incoming := c.state.IncomingCall.DeepCopy()
	if incoming == nil {
		c.mu.Unlock()
		return violation("no incoming call")
	}
	if c.scope != nil {
		c.mu.Unlock()
		return &Error{Kind: KindBusy, Detail: "another call is in progress"}
	}
	c.stopIncomingTimerLocked()
	c.player.Stop()
	s := c.beginLocked(incoming.ContextType, incoming.ContextID)
	s.callID = incoming.ID
	s.accepting = true
	c.state.Error = ""
	c.mu.Unlock()

	actx, cancel := within(ctx, s)
	defer cancel()

	if err := c.signal.Connect(actx, c.config.Token); err != nil {
		return c.abort(s, classify(err, KindTransport))
	}
	stream, err := c.media.EnsureLocalStream(actx, media.Constraints{Audio: true, Video: incoming.CallType == call.Video})
	if err != nil {
		return c.abort(s, classify(err, KindDeviceUnavailable))
	}
	if _, err := c.signal.Request(actx, request.AcceptCall, request.CallRef{CallID: incoming.ID}); err != nil {
		return c.abort(s, classifyRequest(err, true))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scope != s {
		return &Error{Kind: KindCancelled, Detail: "call ended while it was being accepted"}
	}

	active := incoming
	active.IsInitiator = false
	active.UpsertParticipant(c.config.UserID, "", call.ParticipantJoined)
	c.state.IncomingCall = nil
	c.state.ActiveCall = active
	c.resetFlagsLocked(active.CallType)
	s.accepting = false
	c.peers.SetLocalStream(stream)
	c.activateLocked(s)

	for _, remoteUserID := range offerTargets(active, c.config.UserID) {
		c.offerLocked(s, remoteUserID)
	}
	early := s.early
	s.early = nil
	for _, ev := range early {
		c.handleLocked(ev)
	}
	c.publishLocked()
	log.Info().Str("call", active.ID).Msg("call accepted")
	return nil
}

// DeclineCall refuses the incoming call.
func (c *Coordinator) DeclineCall(ctx context.Context) error {
	c.mu.Lock()
	incoming := c.state.IncomingCall
	if incoming == nil {
		c.mu.Unlock()
		return violation("no incoming call")
	}
	if c.scope != nil && c.scope.accepting {
		c.mu.Unlock()
		return violation("the incoming call is being accepted")
	}
	callID := incoming.ID
	c.dismissLocked(database.Declined)
	c.mu.Unlock()

	if _, err := c.signal.Request(ctx, request.DeclineCall, request.CallRef{CallID: callID}); err != nil {
		log.Warn().Err(err).Str("call", callID).Msg("failed to decline call")
		return classifyRequest(err, false)
	}
	return nil
}

// EndCall hangs up the current call, or abandons the one being set up. The
// server is told on a best-effort basis.
func (c *Coordinator) EndCall(ctx context.Context) error {
	c.mu.Lock()
	s := c.scope
	if s == nil {
		c.mu.Unlock()
		return violation("no active call")
	}
	callID := s.callID
	c.teardownLocked(s, c.localOutcomeLocked(s), "")
	c.mu.Unlock()

	if callID != "" {
		c.endRemote(ctx, callID)
	}
	return nil
}

// ToggleMute flips the microphone of the current call.
func (c *Coordinator) ToggleMute() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.ActiveCall == nil {
		return violation("no active call")
	}
	muted := !c.state.IsMuted
	c.media.SetAudioEnabled(!muted)
	c.state.IsMuted = muted
	c.announceLocked()
	c.publishLocked()
	return nil
}

// ToggleVideo flips the camera of the current call, acquiring one when the
// call has none yet.
func (c *Coordinator) ToggleVideo(ctx context.Context) error {
	c.mu.Lock()
	s := c.scope
	if c.state.ActiveCall == nil || s == nil {
		c.mu.Unlock()
		return violation("no active call")
	}
	if !c.state.IsVideoOff {
		c.media.SetVideoEnabled(false)
		c.state.IsVideoOff = true
		c.announceLocked()
		c.publishLocked()
		c.mu.Unlock()
		return nil
	}
	if c.media.SetVideoEnabled(true) {
		c.state.IsVideoOff = false
		c.announceLocked()
		c.publishLocked()
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	actx, cancel := within(ctx, s)
	defer cancel()
	if _, err := c.media.EnsureLocalStream(actx, media.Constraints{Video: true}); err != nil {
		return classify(err, KindDeviceUnavailable)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scope != s {
		return &Error{Kind: KindCancelled, Detail: "call ended while the camera was starting"}
	}
	c.state.IsVideoOff = false
	c.announceLocked()
	c.publishLocked()
	return nil
}

// ToggleScreenShare starts or stops sharing the screen in place of the camera.
func (c *Coordinator) ToggleScreenShare(ctx context.Context) error {
	c.mu.Lock()
	s := c.scope
	if c.state.ActiveCall == nil || s == nil {
		c.mu.Unlock()
		return violation("no active call")
	}
	if c.state.IsScreenSharing {
		c.media.StopScreenShare()
		c.state.IsScreenSharing = false
		c.announceLocked()
		c.publishLocked()
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	actx, cancel := within(ctx, s)
	defer cancel()
	if _, err := c.media.StartScreenShare(actx); err != nil {
		return classify(err, KindUnsupported)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scope != s {
		return &Error{Kind: KindCancelled, Detail: "call ended while screen sharing was starting"}
	}
	c.state.IsScreenSharing = true
	c.announceLocked()
	c.publishLocked()
	return nil
}

// SetMinimized records whether the call view is minimized.
func (c *Coordinator) SetMinimized(minimized bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.IsMinimized = minimized
	c.publishLocked()
}

func (c *Coordinator) screenShareEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.IsScreenSharing {
		return
	}
	c.state.IsScreenSharing = false
	c.announceLocked()
	c.publishLocked()
}

// beginLocked opens the scope of a new call.
func (c *Coordinator) beginLocked(contextType call.ContextType, contextID string) *scope {
	ctx, cancel := context.WithCancel(context.Background())
	s := &scope{
		ctx:         ctx,
		cancel:      cancel,
		contextType: contextType,
		contextID:   contextID,
	}
	c.scope = s
	return s
}

// within returns a context that ends with ctx or with the scope, whichever
// ends first.
func within(ctx context.Context, s *scope) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

// abort undoes a call set up that failed after s was opened. The local media
// acquired so far is released.
func (c *Coordinator) abort(s *scope, e *Error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scope != s {
		return &Error{Kind: KindCancelled, Detail: "call ended while it was being set up", Err: e}
	}
	c.closeScopeLocked(s)
	c.scope = nil
	c.peers.CloseAll()
	c.media.StopAll()
	if s.accepting && c.state.IncomingCall != nil {
		c.armIncomingTimerLocked(c.state.IncomingCall.ID)
	}
	c.state.Error = e.Error()
	c.publishLocked()
	log.Warn().Err(e).Str("context", s.contextID).Msg("failed to set up call")
	return e
}

// activateLocked moves the ringing active call to active. It runs once per call.
func (c *Coordinator) activateLocked(s *scope) {
	active := c.state.ActiveCall
	if active == nil || active.Status == call.Active {
		return
	}
	if s.ringTimer != nil {
		s.ringTimer.Stop()
		s.ringTimer = nil
	}
	c.player.Stop()
	active.Status = call.Active
	active.AnsweredAt = call.At(c.clock.Now())
	if !s.connected {
		s.connected = true
		c.player.Play(cue.Connected)
	}
	s.ticker = c.clock.Ticker(time.Second)
	s.tickDone = make(chan struct{})
	go c.tick(s.ticker, s.tickDone)
	if active.ContextType == call.Group {
		s.ringTimer = c.clock.AfterFunc(c.config.RingTimeout, func() {
			c.ringersTimedOut(s)
		})
	}
	log.Info().Str("call", active.ID).Msg("call active")
}

func (c *Coordinator) tick(ticker *clock.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.publishLocked()
			c.mu.Unlock()
		}
	}
}

// closeScopeLocked stops the timers of s and cancels its pending steps.
func (c *Coordinator) closeScopeLocked(s *scope) {
	if s.ringTimer != nil {
		s.ringTimer.Stop()
		s.ringTimer = nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
		close(s.tickDone)
		s.ticker = nil
	}
	s.cancel()
}

// teardownLocked ends the call of s: sessions are closed and local tracks are
// stopped before the call record is dropped.
func (c *Coordinator) teardownLocked(s *scope, outcome database.Outcome, reason string) {
	c.closeScopeLocked(s)
	c.player.Stop()

	ended := c.state.ActiveCall
	announced := ended != nil
	if ended == nil && s.accepting && c.state.IncomingCall != nil && c.state.IncomingCall.ID == s.callID {
		ended = c.state.IncomingCall
		c.state.IncomingCall = nil
	}
	if ended != nil {
		ended.Status = call.Ended
		ended.EndedAt = call.At(c.clock.Now())
	}

	c.peers.CloseAll()
	c.media.StopAll()
	if announced {
		c.player.Play(cue.Ended)
	}
	if ended != nil {
		c.recordLocked(ended, outcome)
		log.Info().Str("call", ended.ID).Str("outcome", string(outcome)).Msg("call ended")
	}

	c.scope = nil
	c.state.ActiveCall = nil
	c.state.RemoteStreams = make(map[string]*peer.RemoteStream)
	c.resetFlagsLocked("")
	c.state.Error = reason
	if c.state.IncomingCall == nil {
		c.player.Release()
	}
	c.publishLocked()
}

// abandonLocked drops the outgoing call of s without a cue or a history
// record. The server is told in the background.
func (c *Coordinator) abandonLocked(s *scope) {
	callID := s.callID
	c.closeScopeLocked(s)
	c.player.Stop()
	c.peers.CloseAll()
	c.media.StopAll()
	c.scope = nil
	c.state.ActiveCall = nil
	c.state.RemoteStreams = make(map[string]*peer.RemoteStream)
	c.resetFlagsLocked("")
	if callID != "" {
		go c.endRemote(context.Background(), callID)
	}
	log.Info().Str("call", callID).Msg("outgoing call abandoned for the crossing one")
}

// localOutcomeLocked is the outcome of a call the local user hangs up.
func (c *Coordinator) localOutcomeLocked(s *scope) database.Outcome {
	active := c.state.ActiveCall
	switch {
	case active != nil && active.Status == call.Active:
		return database.Completed
	case s.accepting:
		return database.Declined
	default:
		return database.Cancelled
	}
}

func (c *Coordinator) resetFlagsLocked(callType call.Type) {
	c.state.IsMuted = false
	c.state.IsVideoOff = callType != call.Video
	c.state.IsScreenSharing = false
}

// dismissLocked drops the incoming call.
func (c *Coordinator) dismissLocked(outcome database.Outcome) {
	incoming := c.state.IncomingCall
	if incoming == nil {
		return
	}
	c.stopIncomingTimerLocked()
	incoming.Status = call.Ended
	incoming.EndedAt = call.At(c.clock.Now())
	c.recordLocked(incoming, outcome)
	c.state.IncomingCall = nil
	if c.scope == nil {
		c.player.Stop()
		c.player.Release()
	}
	c.publishLocked()
}

func (c *Coordinator) armIncomingTimerLocked(callID string) {
	c.stopIncomingTimerLocked()
	c.incomingTimer = c.clock.AfterFunc(c.config.RingTimeout, func() {
		c.incomingTimedOut(callID)
	})
}

func (c *Coordinator) stopIncomingTimerLocked() {
	if c.incomingTimer != nil {
		c.incomingTimer.Stop()
		c.incomingTimer = nil
	}
}

// ringTimedOut ends an outgoing call nobody answered.
func (c *Coordinator) ringTimedOut(s *scope) {
	c.mu.Lock()
	active := c.state.ActiveCall
	if c.scope != s || active == nil || active.Status != call.Ringing {
		c.mu.Unlock()
		return
	}
	log.Info().Str("call", s.callID).Msg("call was not answered in time")
	callID := s.callID
	c.teardownLocked(s, database.Unanswered, "")
	c.mu.Unlock()

	c.endRemote(context.Background(), callID)
}

// ringersTimedOut gives up on the group participants who are still rung once
// the ring timeout passed in the active call.
func (c *Coordinator) ringersTimedOut(s *scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	active := c.state.ActiveCall
	if c.scope != s || active == nil || active.Status != call.Active {
		return
	}
	s.ringTimer = nil

	expired := 0
	for i := range active.Participants {
		p := &active.Participants[i]
		if p.UserID == c.config.UserID {
			continue
		}
		if p.Status == call.ParticipantInvited || p.Status == call.ParticipantRinging {
			p.Status = call.ParticipantDeclined
			expired++
		}
	}
	if expired == 0 {
		return
	}
	log.Info().Str("call", active.ID).Int("participants", expired).Msg("group participants did not answer in time")
	if c.config.EndWhenAlone && !active.Remaining(c.config.UserID) {
		c.teardownLocked(s, database.Completed, "")
		return
	}
	c.publishLocked()
}

// incomingTimedOut declines an incoming call the user did not answer.
func (c *Coordinator) incomingTimedOut(callID string) {
	c.mu.Lock()
	incoming := c.state.IncomingCall
	if incoming == nil || incoming.ID != callID || (c.scope != nil && c.scope.accepting) {
		c.mu.Unlock()
		return
	}
	log.Info().Str("call", callID).Msg("incoming call was not answered in time")
	c.incomingTimer = nil
	c.dismissLocked(database.Missed)
	c.mu.Unlock()

	if _, err := c.signal.Request(context.Background(), request.DeclineCall, request.CallRef{CallID: callID}); err != nil {
		log.Warn().Err(err).Str("call", callID).Msg("failed to decline missed call")
	}
}

func (c *Coordinator) endRemote(ctx context.Context, callID string) {
	if _, err := c.signal.Request(ctx, request.EndCall, request.CallRef{CallID: callID}); err != nil {
		log.Warn().Err(err).Str("call", callID).Msg("failed to end call on the server")
	}
}

func (c *Coordinator) declineBusy(callID string) {
	if _, err := c.signal.Request(context.Background(), request.DeclineCall, request.CallRef{CallID: callID}); err != nil {
		log.Warn().Err(err).Str("call", callID).Msg("failed to decline call while busy")
	}
}

func (c *Coordinator) recordLocked(ended *call.Call, outcome database.Outcome) {
	c.metrics.ObserveCall(string(outcome))
	if err := c.db.CreateCallRecord(database.NewCallRecord(ended, outcome)); err != nil {
		log.Warn().Err(err).Str("call", ended.ID).Msg("failed to record call")
	}
}

// announceLocked sends the local media flags to the other participants.
func (c *Coordinator) announceLocked() {
	active := c.state.ActiveCall
	if active == nil {
		return
	}
	if err := c.signal.Emit(request.UpdateMediaState, request.MediaState{
		CallID: active.ID,
		MediaFlags: call.MediaFlags{
			IsMuted:         c.state.IsMuted,
			IsVideoOff:      c.state.IsVideoOff,
			IsScreenSharing: c.state.IsScreenSharing,
		},
	}); err != nil {
		log.Warn().Err(err).Str("call", active.ID).Msg("failed to announce media state")
	}
}

// offerLocked opens a session with the given participant and relays the offer.
func (c *Coordinator) offerLocked(s *scope, remoteUserID string) {
	offer, err := c.peers.CreateOffer(s.ctx, remoteUserID, c.relay(s.callID, remoteUserID))
	if err != nil {
		log.Warn().Err(err).Str("peer", remoteUserID).Msg("failed to create offer")
		return
	}
	if err := c.signal.Emit(request.SendOffer, request.Offer{
		CallID:   s.callID,
		ToUserID: remoteUserID,
		Offer:    offer,
	}); err != nil {
		log.Warn().Err(err).Str("peer", remoteUserID).Msg("failed to send offer")
		return
	}
	c.peers.OfferSent(remoteUserID)
}

// relay forwards the local candidates of one session to its participant.
func (c *Coordinator) relay(callID, remoteUserID string) peer.IceHandler {
	return func(candidate webrtc.ICECandidateInit) {
		if err := c.signal.Emit(request.SendIceCandidate, request.IceCandidate{
			CallID:    callID,
			ToUserID:  remoteUserID,
			Candidate: candidate,
		}); err != nil {
			log.Debug().Err(err).Str("peer", remoteUserID).Msg("failed to send ice candidate")
		}
	}
}

// offerTargets returns the participants an accepting user offers to. The
// initiator comes first, then everyone who already joined.
func offerTargets(c *call.Call, localUserID string) []string {
	var targets []string
	for _, id := range c.Remotes(localUserID) {
		if id == c.InitiatorID {
			targets = append(targets, id)
			continue
		}
		if p, ok := c.Participant(id); ok && p.Status == call.ParticipantJoined {
			targets = append(targets, id)
		}
	}
	return targets
}
