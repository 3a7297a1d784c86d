package api

import (
	"net/http"

	"github.com/boardworks/govrec/internal/types"
)

func (s *Server) listMotions(w http.ResponseWriter, r *http.Request, _ actor) {
	motions, err := s.svc.ListMotions(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(motions))
}

func (s *Server) motionStats(w http.ResponseWriter, r *http.Request, _ actor) {
	stats, err := s.svc.GetMeetingMotionStats(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) createMotion(w http.ResponseWriter, r *http.Request, who actor) {
	var input types.Motion
	if err := decodeJSON(w, r, &input); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.CreateMotion(r.Context(), r.PathValue("id"), &input, who.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) getMotion(w http.ResponseWriter, r *http.Request, _ actor) {
	m, err := s.svc.GetMotion(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) updateMotion(w http.ResponseWriter, r *http.Request, who actor) {
	var update types.MotionUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.UpdateMotion(r.Context(), r.PathValue("id"), update, who.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) recordVote(w http.ResponseWriter, r *http.Request, who actor) {
	var vote types.Vote
	if err := decodeJSON(w, r, &vote); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.RecordVote(r.Context(), r.PathValue("id"), vote, who.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) deleteMotion(w http.ResponseWriter, r *http.Request, who actor) {
	if err := s.svc.DeleteMotion(r.Context(), r.PathValue("id"), who.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
