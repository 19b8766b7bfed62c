package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/utility-lineups/internal/authz"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
)

// ThrowingPointService manages the spots a utility is thrown from. A
// throwing point has no owner column; every check goes through its utility.
type ThrowingPointService struct {
	store  repository.Store
	gate   Authorizer
	logger *slog.Logger
}

func NewThrowingPointService(store repository.Store, gate Authorizer, logger *slog.Logger) *ThrowingPointService {
	return &ThrowingPointService{store: store, gate: gate, logger: logger}
}

type ThrowingPointInput struct {
	Position    model.Position `json:"position"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
}

func (in ThrowingPointInput) validate() error {
	if err := validatePosition(in.Position); err != nil {
		return err
	}
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	return validateDescription(in.Description)
}

type ThrowingPointUpdate struct {
	Position    *model.Position `json:"position"`
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
}

// Create adds a throwing point under utilityID.
//
// The parent must belong to the caller (404 if missing, 403 if not theirs)
// before the quota is consulted, so a denied parent never reports a quota
// problem.
func (s *ThrowingPointService) Create(ctx context.Context, user *model.User, utilityID string, in ThrowingPointInput) (*model.ThrowingPoint, error) {
	if err := s.gate.AuthorizeTarget(ctx, user, authz.Utility(utilityID)); err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizeCreate(ctx, user, authz.KindThrowingPoint); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	tp := &model.ThrowingPoint{
		UtilityID:   utilityID,
		Position:    in.Position,
		Title:       in.Title,
		Description: in.Description,
	}
	quota := authz.Quota(user, authz.KindThrowingPoint)
	if err := s.store.ThrowingPoints().CreateWithinQuota(ctx, tp, user.ID, quota); err != nil {
		return nil, quotaError(err, authz.KindThrowingPoint)
	}

	s.logger.Info("throwing point created",
		slog.String("throwingPointID", tp.ID),
		slog.String("utilityID", utilityID),
		slog.String("userID", user.ID),
	)
	return tp, nil
}

// Get returns the throwing point with its media.
func (s *ThrowingPointService) Get(ctx context.Context, user *model.User, id string) (*model.ThrowingPoint, error) {
	if err := s.gate.AuthorizeTarget(ctx, user, authz.ThrowingPoint(id)); err != nil {
		return nil, err
	}

	tp, err := s.store.ThrowingPoints().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/throwing_point: loading %s: %w", id, err)
	}
	media, err := s.store.Media().ListByThrowingPoint(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/throwing_point: listing media of %s: %w", id, err)
	}
	tp.Media = media
	return tp, nil
}

func (s *ThrowingPointService) ListByUtility(ctx context.Context, user *model.User, utilityID string) ([]model.ThrowingPoint, error) {
	if err := s.gate.AuthorizeTarget(ctx, user, authz.Utility(utilityID)); err != nil {
		return nil, err
	}
	points, err := s.store.ThrowingPoints().ListByUtility(ctx, utilityID)
	if err != nil {
		return nil, fmt.Errorf("service/throwing_point: listing for utility %s: %w", utilityID, err)
	}
	return points, nil
}

func (s *ThrowingPointService) Update(ctx context.Context, user *model.User, id string, in ThrowingPointUpdate) (*model.ThrowingPoint, error) {
	if err := s.gate.AuthorizeTarget(ctx, user, authz.ThrowingPoint(id)); err != nil {
		return nil, err
	}

	tp, err := s.store.ThrowingPoints().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/throwing_point: loading %s: %w", id, err)
	}
	if in.Position != nil {
		tp.Position = *in.Position
	}
	if in.Title != nil {
		tp.Title = *in.Title
	}
	if in.Description != nil {
		tp.Description = *in.Description
	}
	if err := (ThrowingPointInput{tp.Position, tp.Title, tp.Description}).validate(); err != nil {
		return nil, err
	}

	if err := s.store.ThrowingPoints().Update(ctx, tp); err != nil {
		return nil, fmt.Errorf("service/throwing_point: updating %s: %w", id, err)
	}
	return tp, nil
}

// Delete removes the throwing point and the media attached to it.
func (s *ThrowingPointService) Delete(ctx context.Context, user *model.User, id string) error {
	if err := s.gate.AuthorizeTarget(ctx, user, authz.ThrowingPoint(id)); err != nil {
		return err
	}
	if err := s.store.ThrowingPoints().Delete(ctx, id); err != nil {
		return fmt.Errorf("service/throwing_point: deleting %s: %w", id, err)
	}
	return nil
}
