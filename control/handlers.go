package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"studycall/coordinator"
	"studycall/database"
	"studycall/types/api/request"
	"studycall/types/api/response"
)

// statusOf maps a coordinator failure to an HTTP status.
func statusOf(kind coordinator.Kind) int {
	switch kind {
	case coordinator.KindStateViolation, coordinator.KindBusy, coordinator.KindCancelled:
		return http.StatusConflict
	case coordinator.KindAuth:
		return http.StatusUnauthorized
	case coordinator.KindMediaPermissionDenied:
		return http.StatusForbidden
	case coordinator.KindUnknownPeer:
		return http.StatusNotFound
	case coordinator.KindUnsupported:
		return http.StatusNotImplemented
	case coordinator.KindDeviceUnavailable:
		return http.StatusServiceUnavailable
	case coordinator.KindTimeout:
		return http.StatusGatewayTimeout
	case coordinator.KindTransport, coordinator.KindServer, coordinator.KindSignalingUnavailable, coordinator.KindConnectionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, kind coordinator.Kind, message string) {
	writeJSON(w, status, response.Error{
		StatusCode: status,
		Kind:       string(kind),
		Message:    message,
	})
}

func writeCallError(w http.ResponseWriter, err error) {
	kind := coordinator.KindOf(err)
	writeError(w, statusOf(kind), kind, err.Error())
}

// NewState converts a coordinator snapshot to its wire form.
func NewState(s coordinator.State) response.State {
	return response.State{
		ActiveCall:      s.ActiveCall,
		IncomingCall:    s.IncomingCall,
		RemoteUserIDs:   s.RemoteUserIDs(),
		IsMuted:         s.IsMuted,
		IsVideoOff:      s.IsVideoOff,
		IsScreenSharing: s.IsScreenSharing,
		CallDuration:    int64(s.CallDuration.Seconds()),
		IsMinimized:     s.IsMinimized,
		Error:           s.Error,
	}
}

func (s *Server) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NewState(s.calls.State()))
}

func (s *Server) initiateCall(w http.ResponseWriter, r *http.Request) {
	var req request.InitiateCall
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "malformed body")
		return
	}
	if req.CallType == "" || req.ContextType == "" || req.ContextID == "" {
		writeError(w, http.StatusBadRequest, "", "call_type, context_type and context_id are required")
		return
	}
	if err := s.calls.InitiateCall(r.Context(), req.CallType, req.ContextType, req.ContextID); err != nil {
		writeCallError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewState(s.calls.State()))
}

// command adapts a coordinator command without arguments to a handler
// answering with the resulting state.
func (s *Server) command(run func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := run(r.Context()); err != nil {
			writeCallError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, NewState(s.calls.State()))
	}
}

func (s *Server) setMinimized(w http.ResponseWriter, r *http.Request) {
	var req request.Minimized
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "malformed body")
		return
	}
	s.calls.SetMinimized(req.IsMinimized)
	writeJSON(w, http.StatusOK, NewState(s.calls.State()))
}

func (s *Server) getBubble(w http.ResponseWriter, _ *http.Request) {
	pos, err := s.db.FindBubblePosition(s.userID)
	if errors.Is(err, database.ErrBubbleNotFound) {
		pos = database.DefaultBubblePosition(s.userID)
	} else if err != nil {
		log.Warn().Err(err).Msg("failed to load bubble position")
		writeError(w, http.StatusInternalServerError, "", "failed to load bubble position")
		return
	}
	writeJSON(w, http.StatusOK, response.BubblePosition{X: pos.X, Y: pos.Y})
}

func (s *Server) putBubble(w http.ResponseWriter, r *http.Request) {
	var req request.BubblePosition
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "malformed body")
		return
	}
	if err := s.db.UpdateBubblePosition(&database.BubblePosition{
		UserID: s.userID,
		X:      req.X,
		Y:      req.Y,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to save bubble position")
		writeError(w, http.StatusInternalServerError, "", "failed to save bubble position")
		return
	}
	writeJSON(w, http.StatusOK, response.BubblePosition{X: req.X, Y: req.Y})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := database.DefaultHistoryLimit
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "", "limit must be a positive integer")
			return
		}
		limit = n
	}

	var (
		records []*database.CallRecord
		err     error
	)
	contextType, contextID := query.Get("context_type"), query.Get("context_id")
	if contextType != "" && contextID != "" {
		records, err = s.db.FindCallRecordsByContext(contextType, contextID, limit)
	} else {
		records, err = s.db.FindCallRecords(limit)
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to load call history")
		writeError(w, http.StatusInternalServerError, "", "failed to load call history")
		return
	}

	history := response.History{Records: make([]response.CallRecord, 0, len(records))}
	for _, rec := range records {
		history.Records = append(history.Records, response.CallRecord{
			ID:          rec.ID,
			CallType:    rec.CallType,
			ContextType: rec.ContextType,
			ContextID:   rec.ContextID,
			InitiatorID: rec.InitiatorID,
			Outcome:     string(rec.Outcome),
			StartedAt:   rec.StartedAt,
			EndedAt:     rec.EndedAt,
			Duration:    int64(rec.Duration().Seconds()),
		})
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) gesture(w http.ResponseWriter, _ *http.Request) {
	s.gestures.Fire()
	w.WriteHeader(http.StatusNoContent)
}
