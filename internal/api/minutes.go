package api

import (
	"encoding/json"
	"net/http"

	"github.com/boardworks/govrec/internal/types"
)

type createMinutesRequest struct {
	Content json.RawMessage `json:"content,omitempty"`
	Summary string          `json:"summary,omitempty"`
}

type createRevisionRequest struct {
	FromVersionID string          `json:"from_version_id"`
	Content       json.RawMessage `json:"content,omitempty"`
}

type approveRequest struct {
	Notes string `json:"notes,omitempty"`
}

type requestRevisionRequest struct {
	ReviewNotes string `json:"review_notes,omitempty"`
}

func (s *Server) listMinutesVersions(w http.ResponseWriter, r *http.Request, _ actor) {
	versions, err := s.svc.ListMinutesVersions(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(versions))
}

func (s *Server) getCurrentMinutes(w http.ResponseWriter, r *http.Request, _ actor) {
	m, err := s.svc.GetCurrentMinutes(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) createMinutes(w http.ResponseWriter, r *http.Request, who actor) {
	var req createMinutesRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.CreateMinutes(r.Context(), r.PathValue("id"), req.Content, req.Summary, who.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) createMinutesRevision(w http.ResponseWriter, r *http.Request, who actor) {
	var req createRevisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.CreateMinutesRevision(r.Context(), r.PathValue("id"), req.FromVersionID, req.Content, who.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) getMinutes(w http.ResponseWriter, r *http.Request, _ actor) {
	m, err := s.svc.GetMinutes(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) updateMinutes(w http.ResponseWriter, r *http.Request, who actor) {
	var update types.MinutesUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.UpdateMinutes(r.Context(), r.PathValue("id"), update, who.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) submitMinutes(w http.ResponseWriter, r *http.Request, who actor) {
	m, err := s.svc.SubmitMinutes(r.Context(), r.PathValue("id"), who.ID)
	s.respondMinutes(w, r, m, err)
}

func (s *Server) approveMinutes(w http.ResponseWriter, r *http.Request, who actor) {
	var req approveRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.ApproveMinutes(r.Context(), r.PathValue("id"), who.ID, req.Notes)
	s.respondMinutes(w, r, m, err)
}

// requestRevision answers 201 with the new REVISED version; the submitted
// version it replaces is left untouched.
func (s *Server) requestRevision(w http.ResponseWriter, r *http.Request, who actor) {
	var req requestRevisionRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.svc.RequestRevision(r.Context(), r.PathValue("id"), who.ID, req.ReviewNotes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) publishMinutes(w http.ResponseWriter, r *http.Request, who actor) {
	m, err := s.svc.PublishMinutes(r.Context(), r.PathValue("id"), who.ID)
	s.respondMinutes(w, r, m, err)
}

func (s *Server) archiveMinutes(w http.ResponseWriter, r *http.Request, who actor) {
	m, err := s.svc.ArchiveMinutes(r.Context(), r.PathValue("id"), who.ID)
	s.respondMinutes(w, r, m, err)
}

func (s *Server) respondMinutes(w http.ResponseWriter, r *http.Request, m *types.Minutes, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
