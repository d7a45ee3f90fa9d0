package coordinator

import (
	"sort"
	"time"

	"studycall/peer"
	"studycall/types/call"
)

// State is the observable state of the call core.
type State struct {
	ActiveCall      *call.Call
	IncomingCall    *call.Call
	RemoteStreams   map[string]*peer.RemoteStream
	IsMuted         bool
	IsVideoOff      bool
	IsScreenSharing bool
	CallDuration    time.Duration
	IsMinimized     bool
	Error           string
}

// clone copies s so that it can leave the coordinator lock. Remote streams are
// shared handles.
func (s State) clone() State {
	cp := s
	cp.ActiveCall = s.ActiveCall.DeepCopy()
	cp.IncomingCall = s.IncomingCall.DeepCopy()
	cp.RemoteStreams = make(map[string]*peer.RemoteStream, len(s.RemoteStreams))
	for id, stream := range s.RemoteStreams {
		cp.RemoteStreams[id] = stream
	}
	return cp
}

// RemoteUserIDs returns the sorted users a remote stream was received from.
func (s State) RemoteUserIDs() []string {
	ids := make([]string, 0, len(s.RemoteStreams))
	for id := range s.RemoteStreams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
