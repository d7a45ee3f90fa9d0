package control_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studycall/broker"
	"studycall/control"
	"studycall/coordinator"
	"studycall/database"
	"studycall/database/memory"
	"studycall/pkg/socket"
	"studycall/playback"
	"studycall/types/api/response"
	"studycall/types/call"
)

type fixture struct {
	calls *control.MockCalls
	db    *memory.DB
	hub   *playback.GestureHub
	url   string
}

func newFixture(t *testing.T, config control.Config) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		calls: control.NewMockCalls(ctrl),
		db:    memory.New(),
		hub:   playback.NewGestureHub(),
	}
	srv := httptest.NewServer(control.New(config, "u1", f.calls, f.db, f.hub).Handler())
	t.Cleanup(srv.Close)
	f.url = srv.URL
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.url+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func activeState() coordinator.State {
	return coordinator.State{
		ActiveCall: &call.Call{
			ID:          "C1",
			CallType:    call.Voice,
			ContextType: call.Direct,
			ContextID:   "chat-42",
			Status:      call.Active,
		},
		IsMuted:      true,
		IsVideoOff:   true,
		CallDuration: 42 * time.Second,
	}
}

func TestCalls(t *testing.T) {
	t.Run("given active call when state is read then it is reported", func(t *testing.T) {
		f := newFixture(t, control.Config{})
		f.calls.EXPECT().State().Return(activeState())

		resp := f.do(t, http.MethodGet, "/state", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		state := decode[response.State](t, resp)
		require.NotNil(t, state.ActiveCall)
		assert.Equal(t, "C1", state.ActiveCall.ID)
		assert.True(t, state.IsMuted)
		assert.Equal(t, int64(42), state.CallDuration)
		assert.Empty(t, state.RemoteUserIDs)
	})

	t.Run("given call request when posted then the call is placed", func(t *testing.T) {
		f := newFixture(t, control.Config{})
		gomock.InOrder(
			f.calls.EXPECT().InitiateCall(gomock.Any(), call.Video, call.Group, "g1").Return(nil),
			f.calls.EXPECT().State().Return(activeState()),
		)

		resp := f.do(t, http.MethodPost, "/calls", map[string]string{
			"call_type":    "video",
			"context_type": "group",
			"context_id":   "g1",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("given incomplete call request when posted then bad request", func(t *testing.T) {
		f := newFixture(t, control.Config{})

		resp := f.do(t, http.MethodPost, "/calls", map[string]string{"call_type": "voice"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp = f.do(t, http.MethodPost, "/calls", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("given commands when posted then the coordinator runs them", func(t *testing.T) {
		f := newFixture(t, control.Config{})
		f.calls.EXPECT().State().Return(coordinator.State{}).AnyTimes()
		f.calls.EXPECT().AcceptCall(gomock.Any()).Return(nil)
		f.calls.EXPECT().DeclineCall(gomock.Any()).Return(nil)
		f.calls.EXPECT().EndCall(gomock.Any()).Return(nil)
		f.calls.EXPECT().ToggleMute().Return(nil)
		f.calls.EXPECT().ToggleVideo(gomock.Any()).Return(nil)
		f.calls.EXPECT().ToggleScreenShare(gomock.Any()).Return(nil)
		f.calls.EXPECT().SetMinimized(true)

		for _, path := range []string{"accept", "decline", "end", "mute", "video", "screen"} {
			resp := f.do(t, http.MethodPost, "/calls/"+path, nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		}
		resp := f.do(t, http.MethodPut, "/minimized", map[string]bool{"is_minimized": true})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("given failing commands then the kind maps to a status", func(t *testing.T) {
		tests := []struct {
			kind   coordinator.Kind
			status int
		}{
			{coordinator.KindStateViolation, http.StatusConflict},
			{coordinator.KindBusy, http.StatusConflict},
			{coordinator.KindAuth, http.StatusUnauthorized},
			{coordinator.KindMediaPermissionDenied, http.StatusForbidden},
			{coordinator.KindDeviceUnavailable, http.StatusServiceUnavailable},
			{coordinator.KindUnsupported, http.StatusNotImplemented},
			{coordinator.KindTimeout, http.StatusGatewayTimeout},
			{coordinator.KindSignalingUnavailable, http.StatusBadGateway},
		}
		for _, tt := range tests {
			t.Run(string(tt.kind), func(t *testing.T) {
				f := newFixture(t, control.Config{})
				f.calls.EXPECT().EndCall(gomock.Any()).Return(&coordinator.Error{Kind: tt.kind, Detail: "nope"})

				resp := f.do(t, http.MethodPost, "/calls/end", nil)
				assert.Equal(t, tt.status, resp.StatusCode)
				body := decode[response.Error](t, resp)
				assert.Equal(t, string(tt.kind), body.Kind)
				assert.Equal(t, tt.status, body.StatusCode)
				assert.Contains(t, body.Message, "nope")
			})
		}
	})
}

func TestBubble(t *testing.T) {
	t.Run("given no stored position when read then the default is returned", func(t *testing.T) {
		f := newFixture(t, control.Config{})

		resp := f.do(t, http.MethodGet, "/bubble", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		pos := decode[response.BubblePosition](t, resp)
		def := database.DefaultBubblePosition("u1")
		assert.Equal(t, response.BubblePosition{X: def.X, Y: def.Y}, pos)
	})

	t.Run("given moved bubble when read then the position is kept", func(t *testing.T) {
		f := newFixture(t, control.Config{})

		resp := f.do(t, http.MethodPut, "/bubble", map[string]float64{"x": 120, "y": 48.5})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		pos := decode[response.BubblePosition](t, f.do(t, http.MethodGet, "/bubble", nil))
		assert.Equal(t, response.BubblePosition{X: 120, Y: 48.5}, pos)
		stored, err := f.db.FindBubblePosition("u1")
		require.NoError(t, err)
		assert.Equal(t, 120.0, stored.X)
	})
}

func TestHistory(t *testing.T) {
	f := newFixture(t, control.Config{})
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"C1", "C2", "C3"} {
		contextID := "chat-42"
		if id == "C2" {
			contextID = "chat-7"
		}
		c := &call.Call{
			ID:          id,
			CallType:    call.Voice,
			ContextType: call.Direct,
			ContextID:   contextID,
			InitiatorID: "u1",
			StartedAt:   call.At(base.Add(time.Duration(i) * time.Hour)),
			AnsweredAt:  call.At(base.Add(time.Duration(i)*time.Hour + 5*time.Second)),
			EndedAt:     call.At(base.Add(time.Duration(i)*time.Hour + time.Minute)),
		}
		require.NoError(t, f.db.CreateCallRecord(database.NewCallRecord(c, database.Completed)))
	}

	t.Run("given records when listed then the latest come first", func(t *testing.T) {
		history := decode[response.History](t, f.do(t, http.MethodGet, "/history?limit=2", nil))
		require.Len(t, history.Records, 2)
		assert.Equal(t, "C3", history.Records[0].ID)
		assert.Equal(t, "C2", history.Records[1].ID)
		assert.Equal(t, int64(55), history.Records[0].Duration)
		assert.Equal(t, "completed", history.Records[0].Outcome)
	})

	t.Run("given context filter when listed then only that chat is returned", func(t *testing.T) {
		history := decode[response.History](t, f.do(t, http.MethodGet, "/history?context_type=direct&context_id=chat-42", nil))
		require.Len(t, history.Records, 2)
		assert.Equal(t, "C3", history.Records[0].ID)
		assert.Equal(t, "C1", history.Records[1].ID)
	})

	t.Run("given invalid limit then bad request", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/history?limit=zero", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGesture(t *testing.T) {
	f := newFixture(t, control.Config{})
	require.False(t, f.hub.Activated())

	resp := f.do(t, http.MethodPost, "/gesture", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.True(t, f.hub.Activated())
}

func TestMiddleware(t *testing.T) {
	t.Run("given token when missing then unauthorized", func(t *testing.T) {
		f := newFixture(t, control.Config{Token: "secret"})
		f.calls.EXPECT().State().Return(coordinator.State{})

		resp := f.do(t, http.MethodGet, "/state", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		req, err := http.NewRequest(http.MethodGet, f.url+"/state", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer secret")
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("given preflight request then cors headers are set", func(t *testing.T) {
		f := newFixture(t, control.Config{Token: "secret"})

		resp := f.do(t, http.MethodOptions, "/calls", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PUT")
	})

	t.Run("given plain request to events then upgrade required", func(t *testing.T) {
		f := newFixture(t, control.Config{})

		resp := f.do(t, http.MethodGet, "/events", nil)
		assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	})
}

func TestEvents(t *testing.T) {
	f := newFixture(t, control.Config{})
	topic := broker.New[coordinator.State]()
	f.calls.EXPECT().Subscribe().DoAndReturn(topic.Subscribe)
	f.calls.EXPECT().Unsubscribe(gomock.Any()).Do(topic.Unsubscribe).AnyTimes()
	f.calls.EXPECT().State().Return(coordinator.State{IsVideoOff: true})

	ws, _, err := socket.Dial(context.Background(), "ws"+strings.TrimPrefix(f.url, "http")+"/events", time.Second)
	require.NoError(t, err)

	var first response.State
	require.NoError(t, ws.ReadJSON(&first))
	assert.True(t, first.IsVideoOff)
	require.Equal(t, 1, topic.Subscribers())

	topic.Publish(activeState())
	var next response.State
	require.NoError(t, ws.ReadJSON(&next))
	require.NotNil(t, next.ActiveCall)
	assert.Equal(t, "C1", next.ActiveCall.ID)

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return topic.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}
