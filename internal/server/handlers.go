package server

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/jonathan/jobaru/internal/apply"
	"github.com/jonathan/jobaru/internal/server/middleware"
	"github.com/jonathan/jobaru/internal/session"
)

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Pending *apply.Pause    `json:"pending"`
	Recent  []session.Event `json:"recent"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{Recent: s.events.Recent()}
	if p, ok := s.confirmer.Pending(); ok {
		resp.Pending = &p
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleGetPause(w http.ResponseWriter, _ *http.Request) {
	p, ok := s.confirmer.Pending()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.Atoi(r.PathValue("seq"))
	if err != nil || seq < 1 {
		s.errorResponse(w, http.StatusBadRequest, "seq must be a positive integer")
		return
	}

	if err := s.confirmer.Resume(seq); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	subject, _ := middleware.GetSubject(r)
	s.logger.Info("pause resumed remotely", zap.Int("seq", seq), zap.String("subject", subject))
	s.jsonResponse(w, http.StatusOK, map[string]any{"resumed": seq})
}

// handleEvents streams "pause" and "progress" events until the client
// disconnects or the server shuts down. A pause already pending is sent first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the headers go out so nothing published after the
	// client sees the stream open is missed.
	pauses, stopPauses := s.confirmer.Subscribe()
	defer stopPauses()
	progress, stopProgress := s.events.Subscribe()
	defer stopProgress()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	lastSeq := 0
	if p, ok := s.confirmer.Pending(); ok {
		if err := sse.WriteEvent(EventPause, p); err != nil {
			return
		}
		lastSeq = p.Seq
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-pauses:
			if !ok {
				return
			}
			if p.Seq <= lastSeq {
				continue
			}
			lastSeq = p.Seq
			err = sse.WriteEvent(EventPause, p)
		case ev, ok := <-progress:
			if !ok {
				return
			}
			err = sse.WriteEvent(EventProgress, ev)
		}
		if err != nil {
			s.logger.Debug("event stream closed", zap.Error(err))
			return
		}
	}
}
