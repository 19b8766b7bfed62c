package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/authz"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
	"github.com/sakif/utility-lineups/internal/storage"
)

// UploadPresigner signs direct-to-bucket uploads. *storage.Presigner
// implements it.
type UploadPresigner interface {
	PresignUpload(ctx context.Context, userID, contentType string) (*storage.Upload, error)
}

// MediaService manages screenshots and clips.
//
// OWNERSHIP:
// A media row is reachable by its uploader (user_id) and, while attached, by
// the owner of the utility or throwing point it hangs off. The uploader is
// always recorded, so detaching never strands a row.
type MediaService struct {
	store     repository.Store
	gate      Authorizer
	presigner UploadPresigner
	logger    *slog.Logger
}

// NewMediaService wires the service. presigner may be nil when no bucket is
// configured; UploadURL then reports uploads as unavailable.
func NewMediaService(store repository.Store, gate Authorizer, presigner UploadPresigner, logger *slog.Logger) *MediaService {
	return &MediaService{store: store, gate: gate, presigner: presigner, logger: logger}
}

type MediaInput struct {
	URL             string          `json:"url"`
	Type            model.MediaType `json:"type"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	UtilityID       *string         `json:"utilityId"`
	ThrowingPointID *string         `json:"throwingPointId"`
}

type MediaUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// MediaTarget names what a media row is attached to. Exactly one field is
// set.
type MediaTarget struct {
	UtilityID       string `json:"utilityId"`
	ThrowingPointID string `json:"throwingPointId"`
}

func (t MediaTarget) resource() (authz.Resource, error) {
	switch {
	case t.UtilityID != "" && t.ThrowingPointID != "":
		return authz.Resource{}, apperror.ValidationFailed("target", "Media can be attached to a utility or a throwing point, not both")
	case t.UtilityID != "":
		return authz.Utility(t.UtilityID), nil
	case t.ThrowingPointID != "":
		return authz.ThrowingPoint(t.ThrowingPointID), nil
	}
	return authz.Resource{}, apperror.ValidationFailed("target", "A utility or throwing point is required")
}

func ref(s string) *string { return &s }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Create records a media row. With a target the caller must own it; without
// one the row is unattached and owned by the caller alone.
func (s *MediaService) Create(ctx context.Context, user *model.User, in MediaInput) (*model.Media, error) {
	if user == nil {
		return nil, apperror.Unauthenticated()
	}
	if err := validateMediaURL(in.URL); err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, apperror.ValidationFailed("type", "Type must be one of image, video, gif")
	}
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}

	target := MediaTarget{UtilityID: deref(in.UtilityID), ThrowingPointID: deref(in.ThrowingPointID)}
	m := &model.Media{
		URL:         in.URL,
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
		UserID:      ref(user.ID),
	}
	if target != (MediaTarget{}) {
		res, err := target.resource()
		if err != nil {
			return nil, err
		}
		if err := s.gate.AuthorizeTarget(ctx, user, res); err != nil {
			return nil, err
		}
		setTarget(m, res)
	}

	if err := s.store.Media().Create(ctx, m); err != nil {
		return nil, fmt.Errorf("service/media: creating: %w", err)
	}

	s.logger.Info("media created",
		slog.String("mediaID", m.ID),
		slog.String("userID", user.ID),
		slog.Bool("attached", m.Attached()),
	)
	return m, nil
}

func setTarget(m *model.Media, res authz.Resource) {
	id := res.ID
	m.UtilityID, m.ThrowingPointID = nil, nil
	switch res.Kind {
	case authz.KindUtility:
		m.UtilityID = &id
	case authz.KindThrowingPoint:
		m.ThrowingPointID = &id
	}
}

func (s *MediaService) Get(ctx context.Context, user *model.User, id string) (*model.Media, error) {
	if err := s.gate.AuthorizeTarget(ctx, user, authz.Media(id)); err != nil {
		return nil, err
	}
	m, err := s.store.Media().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/media: loading %s: %w", id, err)
	}
	return m, nil
}

// ListByTarget lists the media attached to a utility or throwing point the
// caller owns.
func (s *MediaService) ListByTarget(ctx context.Context, user *model.User, target MediaTarget) ([]model.Media, error) {
	res, err := target.resource()
	if err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizeTarget(ctx, user, res); err != nil {
		return nil, err
	}

	var media []model.Media
	if res.Kind == authz.KindUtility {
		media, err = s.store.Media().ListByUtility(ctx, res.ID)
	} else {
		media, err = s.store.Media().ListByThrowingPoint(ctx, res.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("service/media: listing for %s %s: %w", res.Kind, res.ID, err)
	}
	return media, nil
}

func (s *MediaService) Update(ctx context.Context, user *model.User, id string, in MediaUpdate) (*model.Media, error) {
	if err := s.gate.AuthorizeTarget(ctx, user, authz.Media(id)); err != nil {
		return nil, err
	}

	m, err := s.store.Media().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/media: loading %s: %w", id, err)
	}
	if in.Title != nil {
		m.Title = *in.Title
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
	if err := validateDescription(m.Description); err != nil {
		return nil, err
	}
	if err := s.store.Media().Update(ctx, m); err != nil {
		return nil, fmt.Errorf("service/media: updating %s: %w", id, err)
	}
	return m, nil
}

// Attach moves media onto target. The caller must own both the media and
// the target; any previous attachment is replaced.
func (s *MediaService) Attach(ctx context.Context, user *model.User, id string, target MediaTarget) (*model.Media, error) {
	res, err := target.resource()
	if err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizeTarget(ctx, user, authz.Media(id)); err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizeTarget(ctx, user, res); err != nil {
		return nil, err
	}

	m, err := s.store.Media().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/media: loading %s: %w", id, err)
	}
	setTarget(m, res)
	m.UserID = ref(user.ID)
	if err := s.store.Media().SetAttachment(ctx, m); err != nil {
		return nil, fmt.Errorf("service/media: attaching %s: %w", id, err)
	}
	return m, nil
}

// Detach clears the attachment and makes the caller the direct owner so the
// row stays reachable.
func (s *MediaService) Detach(ctx context.Context, user *model.User, id string) (*model.Media, error) {
	if err := s.gate.AuthorizeTarget(ctx, user, authz.Media(id)); err != nil {
		return nil, err
	}

	m, err := s.store.Media().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/media: loading %s: %w", id, err)
	}
	m.UtilityID, m.ThrowingPointID = nil, nil
	m.UserID = ref(user.ID)
	if err := s.store.Media().SetAttachment(ctx, m); err != nil {
		return nil, fmt.Errorf("service/media: detaching %s: %w", id, err)
	}
	return m, nil
}

func (s *MediaService) Delete(ctx context.Context, user *model.User, id string) error {
	if err := s.gate.AuthorizeTarget(ctx, user, authz.Media(id)); err != nil {
		return err
	}
	if err := s.store.Media().Delete(ctx, id); err != nil {
		return fmt.Errorf("service/media: deleting %s: %w", id, err)
	}
	return nil
}

// UploadURL presigns a direct upload for the caller. The returned public URL
// is what the client later passes to Create.
func (s *MediaService) UploadURL(ctx context.Context, user *model.User, contentType string) (*storage.Upload, error) {
	if user == nil {
		return nil, apperror.Unauthenticated()
	}
	if s.presigner == nil {
		return nil, apperror.ValidationFailed("upload", "Media uploads are not configured")
	}

	up, err := s.presigner.PresignUpload(ctx, user.ID, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedContentType) {
			return nil, apperror.ValidationFailed("contentType", "Unsupported file type")
		}
		return nil, fmt.Errorf("service/media: presigning upload: %w", err)
	}
	return up, nil
}
