package coordinator_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/mock/gomock"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studycall/coordinator"
	"studycall/cue"
	"studycall/database"
	"studycall/database/memory"
	"studycall/media"
	"studycall/peer"
	"studycall/peer/peertest"
	"studycall/signal"
	"studycall/types/call"
	"studycall/types/event"
	"studycall/types/request"
	"studycall/types/response"
)

const waitFor = 2 * time.Second

type sent struct {
	command string
	payload any
}

// fakeSignal is an in-memory signaling channel. Events are delivered
// synchronously by the test.
type fakeSignal struct {
	mu         sync.Mutex
	handlers   map[event.Kind][]signal.Handler
	requests   []sent
	emits      []sent
	connectErr error
	placed     call.Call
	respond    func(ctx context.Context, command string, payload any) (json.RawMessage, error)
}

func newFakeSignal() *fakeSignal {
	return &fakeSignal{handlers: make(map[event.Kind][]signal.Handler)}
}

func (f *fakeSignal) Connect(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectErr
}

func (f *fakeSignal) Request(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	f.mu.Lock()
	f.requests = append(f.requests, sent{command: command, payload: payload})
	respond := f.respond
	placed := f.placed
	f.mu.Unlock()

	if respond != nil {
		if raw, err := respond(ctx, command, payload); raw != nil || err != nil {
			return raw, err
		}
	}
	if command == request.InitiateCall {
		in := payload.(request.Initiate)
		placed.CallType = in.CallType
		placed.ContextType = in.ContextType
		placed.ContextID = in.ContextID
		return json.Marshal(response.Initiate{Success: true, Call: placed})
	}
	return json.Marshal(response.Success{Success: true})
}

func (f *fakeSignal) Emit(command string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = append(f.emits, sent{command: command, payload: payload})
	return nil
}

func (f *fakeSignal) On(kind event.Kind, handler signal.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[kind] = append(f.handlers[kind], handler)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, kind)
	}
}

func (f *fakeSignal) deliver(ev event.Event) {
	f.mu.Lock()
	handlers := append([]signal.Handler(nil), f.handlers[ev.Kind()]...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (f *fakeSignal) requested(command string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return filter(f.requests, command)
}

func (f *fakeSignal) emitted(command string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return filter(f.emits, command)
}

// sequence returns the emitted commands among the given ones, in order.
func (f *fakeSignal) sequence(commands ...string) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, s := range f.emits {
		for _, command := range commands {
			if s.command == command {
				out = append(out, s)
			}
		}
	}
	return out
}

func filter(list []sent, command string) []any {
	var payloads []any
	for _, s := range list {
		if s.command == command {
			payloads = append(payloads, s.payload)
		}
	}
	return payloads
}

type plays struct {
	mu       sync.Mutex
	sounds   []cue.Sound
	releases int
}

func (p *plays) play(s cue.Sound) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sounds = append(p.sounds, s)
}

func (p *plays) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releases++
}

func (p *plays) count(s cue.Sound) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, played := range p.sounds {
		if played == s {
			n++
		}
	}
	return n
}

type fixture struct {
	sig     *fakeSignal
	factory *peertest.Factory
	source  *media.StaticSource
	media   *media.Controller
	db      database.Database
	clock   *clock.Mock
	plays   *plays
	c       *coordinator.Coordinator
}

func newFixture(t *testing.T, userID string) *fixture {
	return newFixtureWithDB(t, userID, memory.New())
}

func newFixtureWithDB(t *testing.T, userID string, db database.Database) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	player := cue.NewMockPlayer(ctrl)
	p := &plays{}
	player.EXPECT().Play(gomock.Any()).Do(p.play).AnyTimes()
	player.EXPECT().Stop().AnyTimes()
	player.EXPECT().Release().Do(p.release).AnyTimes()

	f := &fixture{
		sig:     newFakeSignal(),
		factory: peertest.NewFactory(),
		source:  media.NewStaticSource(),
		db:      db,
		clock:   clock.NewMock(),
		plays:   p,
	}
	f.media = media.NewController(f.source)

	config := coordinator.DefaultConfig()
	config.UserID = userID
	config.Token = "token"
	f.c = coordinator.New(config, f.sig, f.factory.New, f.media, player, db, nil, coordinator.WithClock(f.clock))

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = f.c.Run(ctx) }()
	t.Cleanup(cancel)
	return f
}

// place starts an outgoing call that the fake server acknowledges as callID.
func (f *fixture) place(t *testing.T, callID string, callType call.Type, contextType call.ContextType, contextID string, remotes ...string) {
	t.Helper()
	f.sig.mu.Lock()
	f.sig.placed = call.Call{
		ID:           callID,
		InitiatorID:  "u1",
		Participants: []call.Participant{{UserID: "u1", Status: call.ParticipantJoined}},
	}
	for _, id := range remotes {
		f.sig.placed.Participants = append(f.sig.placed.Participants, call.Participant{UserID: id, Status: call.ParticipantRinging})
	}
	f.sig.mu.Unlock()
	require.NoError(t, f.c.InitiateCall(context.Background(), callType, contextType, contextID))
}

func (f *fixture) history(t *testing.T) []*database.CallRecord {
	t.Helper()
	records, err := f.db.FindCallRecords(10)
	require.NoError(t, err)
	return records
}

func offer(sdp string) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
}

func ring(callID string, contextType call.ContextType, contextID, initiator string, participants ...call.Participant) event.Ring {
	return event.Ring{Call: call.Call{
		ID:           callID,
		CallType:     call.Voice,
		ContextType:  contextType,
		ContextID:    contextID,
		InitiatorID:  initiator,
		Status:       call.Ringing,
		Participants: participants,
	}}
}

func joined(id string) call.Participant {
	return call.Participant{UserID: id, Status: call.ParticipantJoined}
}

func ringing(id string) call.Participant {
	return call.Participant{UserID: id, Status: call.ParticipantRinging}
}

func videoSender(t *testing.T, conn *peertest.Connection) *peertest.Sender {
	t.Helper()
	for _, s := range conn.Senders() {
		if s.Kind() == webrtc.RTPCodecTypeVideo {
			return s
		}
	}
	t.Fatal("no video sender")
	return nil
}

func TestDirectCall(t *testing.T) {
	t.Run("given placed voice call when the callee joins then the call runs and ends cleanly", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Voice, call.Direct, "chat-42", "u2")

		state := f.c.State()
		require.NotNil(t, state.ActiveCall)
		assert.Equal(t, call.Ringing, state.ActiveCall.Status)
		assert.True(t, state.ActiveCall.IsInitiator)
		assert.True(t, state.IsVideoOff)
		assert.Equal(t, []any{request.Initiate{CallType: call.Voice, ContextType: call.Direct, ContextID: "chat-42"}}, f.sig.requested(request.InitiateCall))
		assert.Equal(t, 1, f.source.Live())
		assert.Equal(t, 1, f.plays.count(cue.Ringback))

		f.sig.deliver(event.Accepted{CallID: "C1", UserID: "u2", UserName: "Bo"})
		state = f.c.State()
		assert.Equal(t, call.Active, state.ActiveCall.Status)
		assert.Zero(t, state.CallDuration)
		f.clock.Add(3 * time.Second)
		assert.Equal(t, 3*time.Second, f.c.State().CallDuration)

		f.sig.deliver(event.Offer{CallID: "C1", FromUserID: "u2", Offer: offer("remote-offer")})
		conn := f.factory.Last()
		require.NotNil(t, conn)
		assert.Equal(t, "remote-offer", conn.Remote().SDP)
		answers := f.sig.emitted(request.SendAnswer)
		require.Len(t, answers, 1)
		assert.Equal(t, "u2", answers[0].(request.Answer).ToUserID)
		assert.Equal(t, "C1", answers[0].(request.Answer).CallID)

		f.sig.deliver(event.IceCandidate{CallID: "C1", FromUserID: "u2", Candidate: webrtc.ICECandidateInit{Candidate: "candidate:1"}})
		assert.Len(t, conn.Candidates(), 1)

		conn.ReceiveTrack(peertest.NewRemoteTrack("a2", webrtc.RTPCodecTypeAudio))
		assert.Eventually(t, func() bool { return f.c.State().RemoteStreams["u2"] != nil }, waitFor, 5*time.Millisecond)
		conn.SetState(webrtc.PeerConnectionStateConnected)
		assert.Eventually(t, func() bool {
			state, _ := f.c.Peers().State("u2")
			return state == peer.StateConnected
		}, waitFor, 5*time.Millisecond)

		f.sig.deliver(event.MediaState{CallID: "C1", UserID: "u2", MediaFlags: call.MediaFlags{IsMuted: true}})
		p, ok := f.c.State().ActiveCall.Participant("u2")
		require.True(t, ok)
		assert.True(t, p.IsMuted)
		assert.Equal(t, "Bo", p.UserName)

		require.NoError(t, f.c.EndCall(context.Background()))
		assert.Equal(t, []any{request.CallRef{CallID: "C1"}}, f.sig.requested(request.EndCall))
		state = f.c.State()
		assert.Nil(t, state.ActiveCall)
		assert.Empty(t, state.RemoteStreams)
		assert.Zero(t, state.CallDuration)
		assert.Zero(t, f.source.Live())
		assert.True(t, conn.Closed())
		assert.Empty(t, f.c.Peers().Peers())
		assert.Equal(t, 1, f.plays.count(cue.Connected))
		assert.Equal(t, 1, f.plays.count(cue.Ended))

		records := f.history(t)
		require.Len(t, records, 1)
		assert.Equal(t, database.Completed, records[0].Outcome)
		assert.Equal(t, 3*time.Second, records[0].Duration())
	})

	t.Run("given incoming ring when accepted then the receiver offers to the initiator", func(t *testing.T) {
		f := newFixture(t, "u2")
		f.sig.deliver(ring("C1", call.Direct, "chat-42", "u1", joined("u1"), ringing("u2")))

		state := f.c.State()
		require.NotNil(t, state.IncomingCall)
		assert.Nil(t, state.ActiveCall)
		assert.Equal(t, 1, f.plays.count(cue.Ringtone))

		require.NoError(t, f.c.AcceptCall(context.Background()))
		state = f.c.State()
		assert.Nil(t, state.IncomingCall)
		require.NotNil(t, state.ActiveCall)
		assert.Equal(t, call.Active, state.ActiveCall.Status)
		assert.False(t, state.ActiveCall.IsInitiator)
		assert.Equal(t, []any{request.CallRef{CallID: "C1"}}, f.sig.requested(request.AcceptCall))
		assert.Equal(t, 1, f.plays.count(cue.Connected))

		offers := f.sig.emitted(request.SendOffer)
		require.Len(t, offers, 1)
		assert.Equal(t, "u1", offers[0].(request.Offer).ToUserID)
		conn := f.factory.Last()
		state1, _ := f.c.Peers().State("u1")
		assert.Equal(t, peer.StateOfferSent, state1)

		conn.GatherCandidate(webrtc.ICECandidateInit{Candidate: "candidate:local"})
		candidates := f.sig.emitted(request.SendIceCandidate)
		require.Len(t, candidates, 1)
		assert.Equal(t, request.IceCandidate{CallID: "C1", ToUserID: "u1", Candidate: webrtc.ICECandidateInit{Candidate: "candidate:local"}}, candidates[0])

		f.sig.deliver(event.Answer{CallID: "C1", FromUserID: "u1", Answer: webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "remote-answer"}})
		state1, _ = f.c.Peers().State("u1")
		assert.Equal(t, peer.StateConnected, state1)
	})

	t.Run("given offer before accepted when received then the call becomes active once", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Voice, call.Direct, "chat-42", "u2")

		f.sig.deliver(event.Offer{CallID: "C1", FromUserID: "u2", Offer: offer("early")})
		state := f.c.State()
		assert.Equal(t, call.Active, state.ActiveCall.Status)
		assert.Len(t, f.sig.emitted(request.SendAnswer), 1)
		f.clock.Add(time.Second)
		assert.Equal(t, time.Second, f.c.State().CallDuration)

		f.sig.deliver(event.Accepted{CallID: "C1", UserID: "u2"})
		assert.Equal(t, call.Active, f.c.State().ActiveCall.Status)
		assert.Equal(t, time.Second, f.c.State().CallDuration)
		assert.Equal(t, 1, f.plays.count(cue.Connected))
	})

	t.Run("given unanswered call when the ring times out then the call is ended", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Video, call.Direct, "c", "u2")
		assert.Equal(t, 2, f.source.Live())

		f.clock.Add(coordinator.DefaultRingTimeout)
		assert.Eventually(t, func() bool { return len(f.sig.requested(request.EndCall)) == 1 }, waitFor, 5*time.Millisecond)
		assert.Nil(t, f.c.State().ActiveCall)
		assert.Zero(t, f.source.Live())
		assert.Equal(t, 1, f.plays.count(cue.Ended))
		assert.Zero(t, f.plays.count(cue.Connected))

		records := f.history(t)
		require.Len(t, records, 1)
		assert.Equal(t, database.Unanswered, records[0].Outcome)
	})

	t.Run("given answered call when the ring timeout passes then nothing happens", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Voice, call.Direct, "c", "u2")
		f.sig.deliver(event.Accepted{CallID: "C1", UserID: "u2"})

		f.clock.Add(2 * coordinator.DefaultRingTimeout)
		require.NotNil(t, f.c.State().ActiveCall)
		assert.Equal(t, 2*coordinator.DefaultRingTimeout, f.c.State().CallDuration)
		assert.Empty(t, f.sig.requested(request.EndCall))
	})

	t.Run("given unanswered ring when it times out then it is declined as missed", func(t *testing.T) {
		f := newFixture(t, "u2")
		f.sig.deliver(ring("C1", call.Direct, "chat-42", "u1", joined("u1"), ringing("u2")))

		f.clock.Add(coordinator.DefaultRingTimeout)
		assert.Eventually(t, func() bool { return len(f.sig.requested(request.DeclineCall)) == 1 }, waitFor, 5*time.Millisecond)
		assert.Nil(t, f.c.State().IncomingCall)
		records := f.history(t)
		require.Len(t, records, 1)
		assert.Equal(t, database.Missed, records[0].Outcome)
	})

	t.Run("given ringing call when the callee declines then the call is torn down without ending it on the server", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Voice, call.Direct, "chat-42", "u2")

		f.sig.deliver(event.Declined{CallID: "C1", UserID: "u2"})
		assert.Nil(t, f.c.State().ActiveCall)
		assert.Empty(t, f.sig.requested(request.EndCall))
		assert.Zero(t, f.source.Live())
		assert.Equal(t, database.Declined, f.history(t)[0].Outcome)
	})

	t.Run("given active call when the remote ends it then the call is torn down", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Voice, call.Direct, "chat-42", "u2")
		f.sig.deliver(event.Offer{CallID: "C1", FromUserID: "u2", Offer: offer("o")})
		conn := f.factory.Last()

		f.sig.deliver(event.Ended{CallID: "other", EndedBy: "u9"})
		require.NotNil(t, f.c.State().ActiveCall)

		f.sig.deliver(event.Ended{CallID: "C1", EndedBy: "u2"})
		assert.Nil(t, f.c.State().ActiveCall)
		assert.True(t, conn.Closed())
		assert.Empty(t, f.sig.requested(request.EndCall))
		assert.Equal(t, 1, f.plays.count(cue.Ended))
	})

	t.Run("given incoming ring when the caller hangs up then it is recorded as missed", func(t *testing.T) {
		f := newFixture(t, "u2")
		f.sig.deliver(ring("C1", call.Direct, "chat-42", "u1", joined("u1"), ringing("u2")))

		f.sig.deliver(event.Ended{CallID: "C1", EndedBy: "u1"})
		assert.Nil(t, f.c.State().IncomingCall)
		assert.Equal(t, database.Missed, f.history(t)[0].Outcome)
		assert.Zero(t, f.plays.count(cue.Ended))
	})

	t.Run("given incoming ring when declined then the server is told", func(t *testing.T) {
		f := newFixture(t, "u2")
		f.sig.deliver(ring("C1", call.Direct, "chat-42", "u1", joined("u1"), ringing("u2")))

		require.NoError(t, f.c.DeclineCall(context.Background()))
		assert.Equal(t, []any{request.CallRef{CallID: "C1"}}, f.sig.requested(request.DeclineCall))
		assert.Nil(t, f.c.State().IncomingCall)
		assert.Equal(t, database.Declined, f.history(t)[0].Outcome)
	})

	t.Run("given ring answered on another device then it disappears without a record", func(t *testing.T) {
		f := newFixture(t, "u2")
		f.sig.deliver(ring("C1", call.Direct, "chat-42", "u1", joined("u1"), ringing("u2")))

		f.sig.deliver(event.Accepted{CallID: "C1", UserID: "u2"})
		assert.Nil(t, f.c.State().IncomingCall)
		assert.Empty(t, f.history(t))
	})
}

func TestCrossingCalls(t *testing.T) {
	t.Run("given both users call each other when the smaller id rings then the larger id switches to it", func(t *testing.T) {
		f := newFixture(t, "u2")
		f.sig.mu.Lock()
		f.sig.placed = call.Call{ID: "C2", InitiatorID: "u2"}
		f.sig.mu.Unlock()
		require.NoError(t, f.c.InitiateCall(context.Background(), call.Video, call.Direct, "d1"))

		f.sig.deliver(ring("C1", call.Direct, "d1", "u1", joined("u1"), ringing("u2")))
		assert.Eventually(t, func() bool {
			state := f.c.State()
			return state.ActiveCall != nil && state.ActiveCall.ID == "C1" && state.ActiveCall.Status == call.Active
		}, waitFor, 5*time.Millisecond)
		assert.Eventually(t, func() bool { return len(f.sig.requested(request.EndCall)) == 1 }, waitFor, 5*time.Millisecond)
		assert.Equal(t, request.CallRef{CallID: "C2"}, f.sig.requested(request.EndCall)[0])
		assert.Equal(t, []any{request.CallRef{CallID: "C1"}}, f.sig.requested(request.AcceptCall))
		assert.Empty(t, f.sig.requested(request.DeclineCall))

		require.NoError(t, f.c.EndCall(context.Background()))
		records := f.history(t)
		require.Len(t, records, 1)
		assert.Equal(t, "C1", records[0].ID)
		assert.Equal(t, 1, f.plays.count(cue.Ended))
	})

	t.Run("given both users call each other when the larger id rings then the smaller id keeps its call", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Video, call.Direct, "d1", "u2")

		f.sig.deliver(ring("C2", call.Direct, "d1", "u2", joined("u2"), ringing("u1")))
		state := f.c.State()
		assert.Nil(t, state.IncomingCall)
		assert.Equal(t, "C1", state.ActiveCall.ID)
		assert.Empty(t, f.sig.requested(request.DeclineCall))

		f.sig.deliver(event.Accepted{CallID: "C1", UserID: "u2"})
		f.sig.deliver(event.Offer{CallID: "C1", FromUserID: "u2", Offer: offer("o")})
		assert.Equal(t, call.Active, f.c.State().ActiveCall.Status)
		assert.Len(t, f.sig.emitted(request.SendAnswer), 1)
	})

	t.Run("given active call when another ring arrives then it is declined as busy", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Voice, call.Direct, "chat-42", "u2")

		f.sig.deliver(ring("C9", call.Direct, "chat-7", "u7", joined("u7"), ringing("u1")))
		assert.Eventually(t, func() bool { return len(f.sig.requested(request.DeclineCall)) == 1 }, waitFor, 5*time.Millisecond)
		assert.Equal(t, request.CallRef{CallID: "C9"}, f.sig.requested(request.DeclineCall)[0])
		assert.Nil(t, f.c.State().IncomingCall)
		assert.Equal(t, "C1", f.c.State().ActiveCall.ID)
	})
}

func TestGroupCall(t *testing.T) {
	t.Run("given connected group when one peer fails then only that session is dropped", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "G1", call.Voice, call.Group, "group-1", "u2", "u3", "u4")

		conns := map[string]*peertest.Connection{}
		for _, id := range []string{"u2", "u3", "u4"} {
			f.sig.deliver(event.Accepted{CallID: "G1", UserID: id})
			f.sig.deliver(event.Offer{CallID: "G1", FromUserID: id, Offer: offer("o-" + id)})
			conns[id] = f.factory.Last()
			conns[id].ReceiveTrack(peertest.NewRemoteTrack("a-"+id, webrtc.RTPCodecTypeAudio))
			conns[id].SetState(webrtc.PeerConnectionStateConnected)
		}
		assert.Eventually(t, func() bool { return len(f.c.State().RemoteStreams) == 3 }, waitFor, 5*time.Millisecond)

		conns["u3"].SetState(webrtc.PeerConnectionStateFailed)
		assert.Eventually(t, func() bool { return len(f.c.State().RemoteStreams) == 2 }, waitFor, 5*time.Millisecond)
		state := f.c.State()
		assert.Equal(t, []string{"u2", "u4"}, state.RemoteUserIDs())
		assert.Equal(t, call.Active, state.ActiveCall.Status)
		assert.True(t, conns["u3"].Closed())
		_, ok := f.c.Peers().State("u3")
		assert.False(t, ok)
		p, _ := state.ActiveCall.Participant("u3")
		assert.Equal(t, call.ParticipantLeft, p.Status)

		before := state.CallDuration
		f.clock.Add(time.Second)
		assert.Greater(t, f.c.State().CallDuration, before)

		conns["u2"].SetState(webrtc.PeerConnectionStateFailed)
		conns["u4"].SetState(webrtc.PeerConnectionStateFailed)
		assert.Eventually(t, func() bool { return f.c.State().ActiveCall == nil }, waitFor, 5*time.Millisecond)
		assert.Equal(t, 1, f.plays.count(cue.Ended))
	})

	t.Run("given joining member when both sides offer then the larger id answers", func(t *testing.T) {
		f := newFixture(t, "u5")
		f.sig.deliver(ring("G1", call.Group, "group-1", "u1", joined("u1"), joined("u3"), ringing("u5")))
		require.NoError(t, f.c.AcceptCall(context.Background()))

		offers := f.sig.emitted(request.SendOffer)
		require.Len(t, offers, 2)
		assert.Equal(t, "u1", offers[0].(request.Offer).ToUserID)
		assert.Equal(t, "u3", offers[1].(request.Offer).ToUserID)
		pending := f.factory.Last()

		f.sig.deliver(event.Offer{CallID: "G1", FromUserID: "u3", Offer: offer("from-u3")})
		answers := f.sig.emitted(request.SendAnswer)
		require.Len(t, answers, 1)
		assert.Equal(t, "u3", answers[0].(request.Answer).ToUserID)
		assert.True(t, pending.Closed())
		state, _ := f.c.Peers().State("u3")
		assert.Equal(t, peer.StateAnswered, state)
	})

	t.Run("given candidates gathered while offering then each offer goes out before its candidates", func(t *testing.T) {
		f := newFixture(t, "u5")
		f.factory.Gather = []webrtc.ICECandidateInit{{Candidate: "candidate:local"}}
		f.sig.deliver(ring("G1", call.Group, "group-1", "u1", joined("u1"), joined("u3"), ringing("u5")))
		require.NoError(t, f.c.AcceptCall(context.Background()))

		got := f.sig.sequence(request.SendOffer, request.SendIceCandidate)
		require.Len(t, got, 4)
		for i, want := range []struct {
			command string
			to      string
		}{
			{request.SendOffer, "u1"},
			{request.SendIceCandidate, "u1"},
			{request.SendOffer, "u3"},
			{request.SendIceCandidate, "u3"},
		} {
			assert.Equal(t, want.command, got[i].command)
			switch payload := got[i].payload.(type) {
			case request.Offer:
				assert.Equal(t, want.to, payload.ToUserID)
			case request.IceCandidate:
				assert.Equal(t, want.to, payload.ToUserID)
				assert.Equal(t, "candidate:local", payload.Candidate.Candidate)
			default:
				t.Fatalf("unexpected payload %T", payload)
			}
		}
	})

	t.Run("given group with an unanswered member when the last peer leaves then the call ends after the ring timeout", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "G1", call.Voice, call.Group, "group-1", "u2", "u3")

		f.sig.deliver(event.Accepted{CallID: "G1", UserID: "u2"})
		f.sig.deliver(event.Offer{CallID: "G1", FromUserID: "u2", Offer: offer("o-u2")})
		conn := f.factory.Last()
		conn.SetState(webrtc.PeerConnectionStateConnected)
		conn.SetState(webrtc.PeerConnectionStateFailed)
		assert.Eventually(t, func() bool {
			state := f.c.State()
			if state.ActiveCall == nil {
				return false
			}
			p, _ := state.ActiveCall.Participant("u2")
			return p.Status == call.ParticipantLeft
		}, waitFor, 5*time.Millisecond)
		assert.Equal(t, call.Active, f.c.State().ActiveCall.Status)

		f.clock.Add(coordinator.DefaultRingTimeout)
		assert.Eventually(t, func() bool { return f.c.State().ActiveCall == nil }, waitFor, 5*time.Millisecond)
		records := f.history(t)
		require.Len(t, records, 1)
		assert.Equal(t, database.Completed, records[0].Outcome)
	})

	t.Run("given connected group when the ring timeout passes then unanswered members are declined", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "G1", call.Voice, call.Group, "group-1", "u2", "u3")

		f.sig.deliver(event.Accepted{CallID: "G1", UserID: "u2"})
		f.sig.deliver(event.Offer{CallID: "G1", FromUserID: "u2", Offer: offer("o-u2")})
		f.factory.Last().SetState(webrtc.PeerConnectionStateConnected)

		f.clock.Add(coordinator.DefaultRingTimeout)
		assert.Eventually(t, func() bool {
			state := f.c.State()
			if state.ActiveCall == nil {
				return false
			}
			p, _ := state.ActiveCall.Participant("u3")
			return p.Status == call.ParticipantDeclined
		}, waitFor, 5*time.Millisecond)
		state := f.c.State()
		assert.Equal(t, call.Active, state.ActiveCall.Status)
		p, _ := state.ActiveCall.Participant("u2")
		assert.Equal(t, call.ParticipantJoined, p.Status)
		assert.Empty(t, f.history(t))
	})

	t.Run("given existing member when a larger id joins then it offers and keeps its offer on collision", func(t *testing.T) {
		f := newFixture(t, "u3")
		f.sig.deliver(ring("G1", call.Group, "group-1", "u1", joined("u1"), ringing("u3"), ringing("u5")))
		require.NoError(t, f.c.AcceptCall(context.Background()))
		require.Len(t, f.sig.emitted(request.SendOffer), 1)

		f.sig.deliver(event.Accepted{CallID: "G1", UserID: "u5"})
		offers := f.sig.emitted(request.SendOffer)
		require.Len(t, offers, 2)
		assert.Equal(t, "u5", offers[1].(request.Offer).ToUserID)
		conn := f.factory.Last()

		f.sig.deliver(event.Offer{CallID: "G1", FromUserID: "u5", Offer: offer("from-u5")})
		assert.Empty(t, f.sig.emitted(request.SendAnswer))

		f.sig.deliver(event.IceCandidate{CallID: "G1", FromUserID: "u5", Candidate: webrtc.ICECandidateInit{Candidate: "candidate:5"}})
		assert.Empty(t, conn.Candidates())
		f.sig.deliver(event.Answer{CallID: "G1", FromUserID: "u5", Answer: webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "a"}})
		assert.Equal(t, []webrtc.ICECandidateInit{{Candidate: "candidate:5"}}, conn.Candidates())
		state, _ := f.c.Peers().State("u5")
		assert.Equal(t, peer.StateConnected, state)
	})

	t.Run("given offer during acceptance when the acknowledgement arrives then it is answered", func(t *testing.T) {
		f := newFixture(t, "u4")
		gate := make(chan struct{})
		f.sig.respond = func(ctx context.Context, command string, _ any) (json.RawMessage, error) {
			if command == request.AcceptCall {
				<-gate
			}
			return nil, nil
		}
		f.sig.deliver(ring("G1", call.Group, "group-1", "u1", joined("u1"), joined("u3"), ringing("u4")))

		done := make(chan error, 1)
		go func() { done <- f.c.AcceptCall(context.Background()) }()
		assert.Eventually(t, func() bool { return len(f.sig.requested(request.AcceptCall)) == 1 }, waitFor, 5*time.Millisecond)

		f.sig.deliver(event.Offer{CallID: "G1", FromUserID: "u3", Offer: offer("early")})
		assert.Empty(t, f.sig.emitted(request.SendAnswer))

		close(gate)
		require.NoError(t, <-done)
		answers := f.sig.emitted(request.SendAnswer)
		require.Len(t, answers, 1)
		assert.Equal(t, "u3", answers[0].(request.Answer).ToUserID)
	})
}

func TestMediaCommands(t *testing.T) {
	t.Run("given video call when screen is shared then the camera is replaced without renegotiation", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Video, call.Direct, "chat-42", "u2")
		f.sig.deliver(event.Offer{CallID: "C1", FromUserID: "u2", Offer: offer("o")})
		conn := f.factory.Last()
		camera, ok := f.media.Stream().Track(media.Video)
		require.True(t, ok)
		assert.Same(t, camera.Local(), videoSender(t, conn).Track())

		require.NoError(t, f.c.ToggleScreenShare(context.Background()))
		screen, ok := f.media.Stream().Track(media.Screen)
		require.True(t, ok)
		assert.Same(t, screen.Local(), videoSender(t, conn).Track())
		assert.True(t, f.c.State().IsScreenSharing)
		states := f.sig.emitted(request.UpdateMediaState)
		require.Len(t, states, 1)
		assert.True(t, states[0].(request.MediaState).IsScreenSharing)

		require.NoError(t, f.c.ToggleScreenShare(context.Background()))
		assert.Same(t, camera.Local(), videoSender(t, conn).Track())
		assert.True(t, screen.Stopped())
		assert.False(t, f.c.State().IsScreenSharing)

		assert.Len(t, f.factory.Connections(), 1)
		assert.Empty(t, f.sig.emitted(request.SendOffer))
		assert.Len(t, f.sig.emitted(request.SendAnswer), 1)
	})

	t.Run("given shared screen when the system ends it then the flag is cleared", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Video, call.Direct, "chat-42", "u2")
		require.NoError(t, f.c.ToggleScreenShare(context.Background()))
		screen, _ := f.media.Stream().Track(media.Screen)

		screen.End()
		assert.False(t, f.c.State().IsScreenSharing)
		assert.Len(t, f.sig.emitted(request.UpdateMediaState), 2)
	})

	t.Run("given muted call when toggled twice then the microphone is back as it was", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Voice, call.Direct, "chat-42", "u2")
		mic, _ := f.media.Stream().Track(media.Audio)

		require.NoError(t, f.c.ToggleMute())
		assert.True(t, f.c.State().IsMuted)
		assert.False(t, mic.Enabled())
		require.NoError(t, f.c.ToggleMute())
		assert.False(t, f.c.State().IsMuted)
		assert.True(t, mic.Enabled())

		states := f.sig.emitted(request.UpdateMediaState)
		require.Len(t, states, 2)
		assert.Equal(t, request.MediaState{CallID: "C1", MediaFlags: call.MediaFlags{IsMuted: true, IsVideoOff: true}}, states[0])
	})

	t.Run("given voice call when video is turned on then a camera is acquired", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Voice, call.Direct, "chat-42", "u2")
		f.sig.deliver(event.Offer{CallID: "C1", FromUserID: "u2", Offer: offer("o")})
		conn := f.factory.Last()
		assert.True(t, videoSender(t, conn).Placeholder())

		require.NoError(t, f.c.ToggleVideo(context.Background()))
		camera, ok := f.media.Stream().Track(media.Video)
		require.True(t, ok)
		assert.False(t, f.c.State().IsVideoOff)
		assert.Same(t, camera.Local(), videoSender(t, conn).Track())

		require.NoError(t, f.c.ToggleVideo(context.Background()))
		assert.True(t, f.c.State().IsVideoOff)
		assert.False(t, camera.Enabled())
		assert.False(t, camera.Stopped())
		assert.Nil(t, videoSender(t, conn).Track())

		require.NoError(t, f.c.ToggleVideo(context.Background()))
		assert.True(t, camera.Enabled())
		assert.Equal(t, 2, f.source.Live())
	})

	t.Run("given missing camera when video is turned on then device unavailable", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.source.Camera = false
		f.place(t, "C1", call.Voice, call.Direct, "chat-42", "u2")

		err := f.c.ToggleVideo(context.Background())
		assert.Equal(t, coordinator.KindDeviceUnavailable, coordinator.KindOf(err))
		assert.True(t, f.c.State().IsVideoOff)
	})

	t.Run("given minimized view then the flag is published", func(t *testing.T) {
		f := newFixture(t, "u1")
		sub := f.c.Subscribe()
		defer f.c.Unsubscribe(sub)

		f.c.SetMinimized(true)
		select {
		case state := <-sub.Receive():
			assert.True(t, state.IsMinimized)
		case <-time.After(waitFor):
			t.Fatal("no state published")
		}
	})
}

func TestFailures(t *testing.T) {
	t.Run("given denied microphone when placing a call then nothing is sent", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.source.Deny = true

		err := f.c.InitiateCall(context.Background(), call.Voice, call.Direct, "chat-42")
		assert.Equal(t, coordinator.KindMediaPermissionDenied, coordinator.KindOf(err))
		assert.Empty(t, f.sig.requested(request.InitiateCall))
		state := f.c.State()
		assert.Nil(t, state.ActiveCall)
		assert.NotEmpty(t, state.Error)
	})

	t.Run("given setup failures when placing a call then tracks are released and the kind is reported", func(t *testing.T) {
		tests := []struct {
			name       string
			connectErr error
			requestErr error
			kind       coordinator.Kind
		}{
			{"rejected token", signal.ErrAuth, nil, coordinator.KindAuth},
			{"unreachable server", signal.ErrTransport, nil, coordinator.KindTransport},
			{"request timeout", nil, signal.ErrTimeout, coordinator.KindSignalingUnavailable},
			{"lost channel", nil, signal.ErrNotConnected, coordinator.KindSignalingUnavailable},
			{"callee busy", nil, &signal.ServerError{Kind: "busy", Message: "user is in another call"}, coordinator.KindBusy},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t, "u1")
				f.sig.connectErr = tt.connectErr
				f.sig.respond = func(context.Context, string, any) (json.RawMessage, error) {
					return nil, tt.requestErr
				}

				err := f.c.InitiateCall(context.Background(), call.Video, call.Direct, "chat-42")
				assert.Equal(t, tt.kind, coordinator.KindOf(err))
				assert.Zero(t, f.source.Live())
				assert.Nil(t, f.c.State().ActiveCall)

				f.sig.connectErr = nil
				f.sig.respond = nil
				f.place(t, "C1", call.Voice, call.Direct, "chat-42", "u2")
				assert.Empty(t, f.c.State().Error)
			})
		}
	})

	t.Run("given call being placed when ended then placement is cancelled and media released", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.sig.respond = func(ctx context.Context, command string, _ any) (json.RawMessage, error) {
			if command == request.InitiateCall {
				<-ctx.Done()
				return nil, signal.ErrCancelled
			}
			return nil, nil
		}

		done := make(chan error, 1)
		go func() { done <- f.c.InitiateCall(context.Background(), call.Voice, call.Direct, "chat-42") }()
		assert.Eventually(t, func() bool { return len(f.sig.requested(request.InitiateCall)) == 1 }, waitFor, 5*time.Millisecond)

		require.NoError(t, f.c.EndCall(context.Background()))
		err := <-done
		assert.Equal(t, coordinator.KindCancelled, coordinator.KindOf(err))
		assert.Zero(t, f.source.Live())
		assert.Nil(t, f.c.State().ActiveCall)
		assert.Empty(t, f.sig.requested(request.EndCall))
		assert.Zero(t, f.plays.count(cue.Ended))
	})

	t.Run("given direct call when the peer connection fails then the call ends with connection failed", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Voice, call.Direct, "chat-42", "u2")
		f.sig.deliver(event.Offer{CallID: "C1", FromUserID: "u2", Offer: offer("o")})

		f.factory.Last().SetState(webrtc.PeerConnectionStateFailed)
		assert.Eventually(t, func() bool { return f.c.State().ActiveCall == nil }, waitFor, 5*time.Millisecond)
		assert.Contains(t, f.c.State().Error, string(coordinator.KindConnectionFailed))
		assert.Equal(t, database.Failed, f.history(t)[0].Outcome)
		assert.Equal(t, 1, f.plays.count(cue.Ended))
	})

	t.Run("given lost signaling channel then the call keeps running with an error", func(t *testing.T) {
		f := newFixture(t, "u1")
		f.place(t, "C1", call.Voice, call.Direct, "chat-42", "u2")

		f.sig.deliver(event.Disconnected{Err: signal.ErrTransport})
		state := f.c.State()
		require.NotNil(t, state.ActiveCall)
		assert.Contains(t, state.Error, string(coordinator.KindSignalingUnavailable))
	})

	t.Run("given commands in the wrong state then state violation", func(t *testing.T) {
		f := newFixture(t, "u1")
		ctx := context.Background()
		assert.Equal(t, coordinator.KindStateViolation, coordinator.KindOf(f.c.AcceptCall(ctx)))
		assert.Equal(t, coordinator.KindStateViolation, coordinator.KindOf(f.c.DeclineCall(ctx)))
		assert.Equal(t, coordinator.KindStateViolation, coordinator.KindOf(f.c.EndCall(ctx)))
		assert.Equal(t, coordinator.KindStateViolation, coordinator.KindOf(f.c.ToggleMute()))
		assert.Equal(t, coordinator.KindStateViolation, coordinator.KindOf(f.c.ToggleVideo(ctx)))
		assert.Equal(t, coordinator.KindStateViolation, coordinator.KindOf(f.c.ToggleScreenShare(ctx)))

		f.place(t, "C1", call.Voice, call.Direct, "chat-42", "u2")
		err := f.c.InitiateCall(ctx, call.Voice, call.Direct, "chat-43")
		assert.Equal(t, coordinator.KindStateViolation, coordinator.KindOf(err))
		assert.Len(t, f.sig.requested(request.InitiateCall), 1)
	})

	t.Run("given failing history store when the call ends then teardown still completes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		db := database.NewMockDatabase(ctrl)
		db.EXPECT().CreateCallRecord(gomock.Any()).Return(errors.New("disk full")).Times(1)
		f := newFixtureWithDB(t, "u1", db)
		f.place(t, "C1", call.Voice, call.Direct, "chat-42", "u2")

		require.NoError(t, f.c.EndCall(context.Background()))
		assert.Nil(t, f.c.State().ActiveCall)
		assert.Zero(t, f.source.Live())
	})
}

func TestConfigValidate(t *testing.T) {
	config := coordinator.DefaultConfig()
	assert.ErrorIs(t, config.Validate(), coordinator.ErrInvalidConfig)
	config.UserID = "u1"
	assert.NoError(t, config.Validate())
	config.RingTimeout = 0
	assert.ErrorIs(t, config.Validate(), coordinator.ErrInvalidConfig)
}
