package api

import (
	"net/http"
	"strings"

	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/types"
)

type resolutionRequest struct {
	Resolution string `json:"resolution"`
}

func (s *Server) listFlags(w http.ResponseWriter, r *http.Request, _ actor) {
	q := r.URL.Query()
	filter := types.FlagFilter{
		TargetType: types.TargetType(q.Get("targetType")),
		TargetID:   q.Get("targetId"),
	}
	if raw := q.Get("status"); raw != "" {
		status := types.FlagStatus(strings.ToUpper(raw))
		if !status.IsValid() {
			s.writeError(w, r, goverr.BadRequest("invalid flag status: %q", raw))
			return
		}
		filter.Status = &status
	}
	if raw := q.Get("flagType"); raw != "" {
		ft := types.FlagType(strings.ToUpper(raw))
		if !ft.IsValid() {
			s.writeError(w, r, goverr.BadRequest("invalid flag type: %q", raw))
			return
		}
		filter.FlagType = &ft
	}
	var err error
	if filter.Page, err = queryPage(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	flags, err := s.svc.ListFlags(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(flags))
}

// overdueFlags uses ?today=YYYY-MM-DD when given, else the server clock.
func (s *Server) overdueFlags(w http.ResponseWriter, r *http.Request, _ actor) {
	today, err := queryDate(r, "today")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if today.IsZero() {
		today = types.DateOf(s.now())
	}
	flags, err := s.svc.GetOverdueFlags(r.Context(), today)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(flags))
}

func (s *Server) getFlag(w http.ResponseWriter, r *http.Request, _ actor) {
	f, err := s.svc.GetFlag(r.Context(), r.PathValue("id"))
	s.respondFlag(w, r, http.StatusOK, f, err)
}

func (s *Server) createFlag(w http.ResponseWriter, r *http.Request, who actor) {
	var input types.ReviewFlag
	if err := decodeJSON(w, r, &input); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.svc.CreateFlag(r.Context(), &input, who.ID)
	s.respondFlag(w, r, http.StatusCreated, f, err)
}

func (s *Server) updateFlag(w http.ResponseWriter, r *http.Request, who actor) {
	var update types.FlagUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.svc.UpdateFlag(r.Context(), r.PathValue("id"), update, who.ID)
	s.respondFlag(w, r, http.StatusOK, f, err)
}

func (s *Server) deleteFlag(w http.ResponseWriter, r *http.Request, who actor) {
	if err := s.svc.DeleteFlag(r.Context(), r.PathValue("id"), who.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) startFlag(w http.ResponseWriter, r *http.Request, who actor) {
	f, err := s.svc.StartFlag(r.Context(), r.PathValue("id"), who.ID)
	s.respondFlag(w, r, http.StatusOK, f, err)
}

func (s *Server) resolveFlag(w http.ResponseWriter, r *http.Request, who actor) {
	var req resolutionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.svc.ResolveFlag(r.Context(), r.PathValue("id"), req.Resolution, who.ID)
	s.respondFlag(w, r, http.StatusOK, f, err)
}

func (s *Server) dismissFlag(w http.ResponseWriter, r *http.Request, who actor) {
	var req resolutionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.svc.DismissFlag(r.Context(), r.PathValue("id"), req.Resolution, who.ID)
	s.respondFlag(w, r, http.StatusOK, f, err)
}

func (s *Server) reopenFlag(w http.ResponseWriter, r *http.Request, who actor) {
	f, err := s.svc.ReopenFlag(r.Context(), r.PathValue("id"), who.ID)
	s.respondFlag(w, r, http.StatusOK, f, err)
}

func (s *Server) respondFlag(w http.ResponseWriter, r *http.Request, status int, f *types.ReviewFlag, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, f)
}

func (s *Server) listAudit(w http.ResponseWriter, r *http.Request, _ actor) {
	q := r.URL.Query()
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.svc.ListAudit(r.Context(), types.AuditFilter{
		ObjectType: q.Get("objectType"),
		ObjectID:   q.Get("objectId"),
		ActorID:    q.Get("actorId"),
		Limit:      limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(entries))
}
