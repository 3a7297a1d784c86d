package api

import (
	"net/http"
	"strings"

	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/types"
)

func (s *Server) listMeetings(w http.ResponseWriter, r *http.Request, _ actor) {
	var filter types.MeetingFilter
	if raw := r.URL.Query().Get("type"); raw != "" {
		mt := types.MeetingType(strings.ToUpper(raw))
		if !mt.IsValid() {
			s.writeError(w, r, goverr.BadRequest("invalid meeting type: %q", raw))
			return
		}
		filter.Type = &mt
	}
	var err error
	if filter.From, err = queryDate(r, "from"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if filter.To, err = queryDate(r, "to"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if filter.Page, err = queryPage(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	items, err := s.svc.ListMeetings(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

func (s *Server) createMeeting(w http.ResponseWriter, r *http.Request, who actor) {
	var input types.Meeting
	if err := decodeJSON(w, r, &input); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.CreateMeeting(r.Context(), &input, who.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) getMeeting(w http.ResponseWriter, r *http.Request, _ actor) {
	m, err := s.svc.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) updateMeeting(w http.ResponseWriter, r *http.Request, who actor) {
	var update types.MeetingUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.UpdateMeeting(r.Context(), r.PathValue("id"), update, who.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) deleteMeeting(w http.ResponseWriter, r *http.Request, who actor) {
	if err := s.svc.DeleteMeeting(r.Context(), r.PathValue("id"), who.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
