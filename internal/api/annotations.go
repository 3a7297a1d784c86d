package api

import (
	"net/http"

	"github.com/boardworks/govrec/internal/authz"
	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/types"
)

// annotationFilter reads the list/count query. includeUnpublished is
// honored only for roles that may view unpublished annotations; for
// everyone else it is silently forced to false.
func (s *Server) annotationFilter(r *http.Request, who actor) (types.AnnotationFilter, error) {
	q := r.URL.Query()
	filter := types.AnnotationFilter{
		TargetType: types.TargetType(q.Get("targetType")),
		TargetID:   q.Get("targetId"),
		MotionID:   q.Get("motionId"),
		MinutesID:  q.Get("minutesId"),
	}
	include, err := queryBool(r, "includeUnpublished")
	if err != nil {
		return filter, err
	}
	filter.IncludeUnpublished = include && s.oracle.HasCapability(who.Role, authz.AnnotationsViewUnpublished)
	if filter.Page, err = queryPage(r); err != nil {
		return filter, err
	}
	return filter, nil
}

func (s *Server) listAnnotations(w http.ResponseWriter, r *http.Request, who actor) {
	filter, err := s.annotationFilter(r, who)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	annotations, err := s.svc.ListAnnotations(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(annotations))
}

func (s *Server) annotationCounts(w http.ResponseWriter, r *http.Request, who actor) {
	filter, err := s.annotationFilter(r, who)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	counts, err := s.svc.GetAnnotationCounts(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// getAnnotation hides unpublished annotations from readers without the
// view-unpublished capability by answering 404, not 403.
func (s *Server) getAnnotation(w http.ResponseWriter, r *http.Request, who actor) {
	id := r.PathValue("id")
	a, err := s.svc.GetAnnotation(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !a.IsPublished && !s.oracle.HasCapability(who.Role, authz.AnnotationsViewUnpublished) {
		s.writeError(w, r, goverr.NotFound("annotation", id))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) createAnnotation(w http.ResponseWriter, r *http.Request, who actor) {
	var input types.Annotation
	if err := decodeJSON(w, r, &input); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.svc.CreateAnnotation(r.Context(), &input, who.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) updateAnnotation(w http.ResponseWriter, r *http.Request, who actor) {
	var update types.AnnotationUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.svc.UpdateAnnotation(r.Context(), r.PathValue("id"), update, who.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) deleteAnnotation(w http.ResponseWriter, r *http.Request, who actor) {
	if err := s.svc.DeleteAnnotation(r.Context(), r.PathValue("id"), who.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) publishAnnotation(w http.ResponseWriter, r *http.Request, who actor) {
	a, err := s.svc.PublishAnnotation(r.Context(), r.PathValue("id"), who.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) unpublishAnnotation(w http.ResponseWriter, r *http.Request, who actor) {
	a, err := s.svc.UnpublishAnnotation(r.Context(), r.PathValue("id"), who.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
