package governance

import (
	"context"

	"github.com/boardworks/govrec/internal/types"
)

// CreateAnnotation attaches an unpublished annotation to a target
func (s *Service) CreateAnnotation(ctx context.Context, input *types.Annotation, actor string) (*types.Annotation, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	a := *input
	a.CreatedBy = actor
	if err := s.store.CreateAnnotation(ctx, &a); err != nil {
		return nil, err
	}
	s.audit(ctx, types.AuditCreated, types.ObjectAnnotation, a.ID, actor, map[string]any{
		"target_type": string(a.TargetType),
		"target_id":   a.TargetID,
	})
	return &a, nil
}

// GetAnnotation retrieves an annotation
func (s *Service) GetAnnotation(ctx context.Context, id string) (*types.Annotation, error) {
	return s.store.GetAnnotation(ctx, id)
}

// UpdateAnnotation edits body or anchor
func (s *Service) UpdateAnnotation(ctx context.Context, id string, update types.AnnotationUpdate, actor string) (*types.Annotation, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	a, err := s.store.UpdateAnnotation(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, types.AuditUpdated, types.ObjectAnnotation, id, actor, changedFields(map[string]bool{
		"body":   update.Body != nil,
		"anchor": update.Anchor != nil,
	}))
	return a, nil
}

// PublishAnnotation makes an annotation visible to all readers
func (s *Service) PublishAnnotation(ctx context.Context, id, actor string) (*types.Annotation, error) {
	return s.setPublished(ctx, id, true, actor)
}

// UnpublishAnnotation hides an annotation from readers without the
// view-unpublished capability
func (s *Service) UnpublishAnnotation(ctx context.Context, id, actor string) (*types.Annotation, error) {
	return s.setPublished(ctx, id, false, actor)
}

func (s *Service) setPublished(ctx context.Context, id string, published bool, actor string) (*types.Annotation, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	a, err := s.store.SetAnnotationPublished(ctx, id, published)
	if err != nil {
		return nil, err
	}
	action := types.AuditUnpublished
	if published {
		action = types.AuditPublished
	}
	s.audit(ctx, action, types.ObjectAnnotation, id, actor, nil)
	return a, nil
}

// DeleteAnnotation removes an annotation
func (s *Service) DeleteAnnotation(ctx context.Context, id, actor string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.store.DeleteAnnotation(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, types.AuditDeleted, types.ObjectAnnotation, id, actor, nil)
	return nil
}

// ListAnnotations lists annotations matching filter. Unpublished annotations
// are only included when filter.IncludeUnpublished is set; callers decide
// whether the reader may see them.
func (s *Service) ListAnnotations(ctx context.Context, filter types.AnnotationFilter) ([]*types.Annotation, error) {
	annotations, err := s.store.ListAnnotations(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, a := range annotations {
		if a.TargetMissing {
			s.logger.Warn("annotation target no longer exists",
				"annotation_id", a.ID,
				"target_type", a.TargetType,
				"target_id", a.TargetID)
		}
	}
	return annotations, nil
}

// GetAnnotationCounts counts annotations matching filter
func (s *Service) GetAnnotationCounts(ctx context.Context, filter types.AnnotationFilter) (*types.AnnotationCounts, error) {
	return s.store.GetAnnotationCounts(ctx, filter)
}
