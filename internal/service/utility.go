// Package service holds the business rules that sit between the HTTP
// handlers and the repositories:
//
//	handler (HTTP) → service (validation, authorization) → repository (DB)
//	                        ↘ authz.Gate (quota, ownership)
//
// Every mutating or reading method takes the authenticated *model.User and
// asks the gate first. Services never read cookies or write responses.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/authz"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
)

// UtilityService manages landing points.
//
// DEPENDENCIES (injected via NewUtilityService):
//   - store  repository.Store → utilities, throwing points, media, maps
//   - gate   Authorizer       → quota and ownership decisions
//   - logger *slog.Logger     → structured logging
type UtilityService struct {
	store  repository.Store
	gate   Authorizer
	logger *slog.Logger
}

func NewUtilityService(store repository.Store, gate Authorizer, logger *slog.Logger) *UtilityService {
	return &UtilityService{store: store, gate: gate, logger: logger}
}

// UtilityInput is the payload for creating a utility.
type UtilityInput struct {
	MapID       string            `json:"mapId"`
	UtilityType model.UtilityType `json:"utilityType"`
	Team        model.Team        `json:"team"`
	Position    model.Position    `json:"position"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
}

func (in UtilityInput) validate() error {
	if !in.UtilityType.Valid() {
		return apperror.ValidationFailed("utilityType", "Utility type must be one of smoke, flash, molotov, he")
	}
	if !in.Team.Valid() {
		return apperror.ValidationFailed("team", "Team must be T or CT")
	}
	if err := validatePosition(in.Position); err != nil {
		return err
	}
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	return validateDescription(in.Description)
}

// UtilityUpdate is a partial update. Nil fields are left unchanged. The map
// and the creator are not updatable.
type UtilityUpdate struct {
	UtilityType *model.UtilityType `json:"utilityType"`
	Team        *model.Team        `json:"team"`
	Position    *model.Position    `json:"position"`
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
}

// apply copies the set fields onto u and validates the result.
func (in UtilityUpdate) apply(u *model.Utility) error {
	if in.UtilityType != nil {
		u.UtilityType = *in.UtilityType
	}
	if in.Team != nil {
		u.Team = *in.Team
	}
	if in.Position != nil {
		u.Position = *in.Position
	}
	if in.Title != nil {
		u.Title = *in.Title
	}
	if in.Description != nil {
		u.Description = *in.Description
	}
	return UtilityInput{
		MapID:       u.MapID,
		UtilityType: u.UtilityType,
		Team:        u.Team,
		Position:    u.Position,
		Title:       u.Title,
		Description: u.Description,
	}.validate()
}

// Create places a new utility owned by user.
//
// The gate's count check gives the friendly denial up front; the guarded
// insert repeats it atomically so two parallel requests from an unverified
// user cannot both get through.
func (s *UtilityService) Create(ctx context.Context, user *model.User, in UtilityInput) (*model.Utility, error) {
	if err := s.gate.AuthorizeCreate(ctx, user, authz.KindUtility); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := requireMap(ctx, s.store.Maps(), in.MapID); err != nil {
		return nil, err
	}

	u := &model.Utility{
		MapID:       in.MapID,
		UtilityType: in.UtilityType,
		Team:        in.Team,
		Position:    in.Position,
		Title:       in.Title,
		Description: in.Description,
		CreatedBy:   user.ID,
	}
	if err := s.store.Utilities().CreateWithinQuota(ctx, u, authz.Quota(user, authz.KindUtility)); err != nil {
		return nil, quotaError(err, authz.KindUtility)
	}

	s.logger.Info("utility created",
		slog.String("utilityID", u.ID),
		slog.String("userID", user.ID),
		slog.String("mapID", u.MapID),
	)
	return u, nil
}

// Get returns one utility with its throwing points and all attached media.
func (s *UtilityService) Get(ctx context.Context, user *model.User, id string) (*model.Utility, error) {
	if err := s.gate.AuthorizeTarget(ctx, user, authz.Utility(id)); err != nil {
		return nil, err
	}

	u, err := s.store.Utilities().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/utility: loading %s: %w", id, err)
	}
	if err := s.loadChildren(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UtilityService) loadChildren(ctx context.Context, u *model.Utility) error {
	points, err := s.store.ThrowingPoints().ListByUtility(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("service/utility: listing throwing points of %s: %w", u.ID, err)
	}
	for i := range points {
		media, err := s.store.Media().ListByThrowingPoint(ctx, points[i].ID)
		if err != nil {
			return fmt.Errorf("service/utility: listing media of throwing point %s: %w", points[i].ID, err)
		}
		points[i].Media = media
	}
	media, err := s.store.Media().ListByUtility(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("service/utility: listing media of %s: %w", u.ID, err)
	}
	u.ThrowingPoints = points
	u.Media = media
	return nil
}

// ListByMap returns the caller's own utilities on mapID, each with its
// throwing points. Other users' lineups are never listed.
func (s *UtilityService) ListByMap(ctx context.Context, user *model.User, mapID string, filter repository.UtilityFilter) ([]model.Utility, error) {
	if user == nil {
		return nil, apperror.Unauthenticated()
	}
	if filter.Team != "" && !filter.Team.Valid() {
		return nil, apperror.ValidationFailed("team", "Team must be T or CT")
	}
	if filter.UtilityType != "" && !filter.UtilityType.Valid() {
		return nil, apperror.ValidationFailed("utilityType", "Utility type must be one of smoke, flash, molotov, he")
	}
	if err := requireMap(ctx, s.store.Maps(), mapID); err != nil {
		return nil, err
	}

	utilities, err := s.store.Utilities().ListByMap(ctx, user.ID, mapID, filter)
	if err != nil {
		return nil, fmt.Errorf("service/utility: listing map %s: %w", mapID, err)
	}
	for i := range utilities {
		points, err := s.store.ThrowingPoints().ListByUtility(ctx, utilities[i].ID)
		if err != nil {
			return nil, fmt.Errorf("service/utility: listing throwing points of %s: %w", utilities[i].ID, err)
		}
		utilities[i].ThrowingPoints = points
	}
	return utilities, nil
}

func (s *UtilityService) Update(ctx context.Context, user *model.User, id string, in UtilityUpdate) (*model.Utility, error) {
	if err := s.gate.AuthorizeTarget(ctx, user, authz.Utility(id)); err != nil {
		return nil, err
	}

	u, err := s.store.Utilities().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/utility: loading %s: %w", id, err)
	}
	if err := in.apply(u); err != nil {
		return nil, err
	}
	if err := s.store.Utilities().Update(ctx, u); err != nil {
		return nil, fmt.Errorf("service/utility: updating %s: %w", id, err)
	}
	return u, nil
}

// Delete removes the utility together with its throwing points and media.
// For an unverified user this frees the quota slot immediately.
func (s *UtilityService) Delete(ctx context.Context, user *model.User, id string) error {
	if err := s.gate.AuthorizeTarget(ctx, user, authz.Utility(id)); err != nil {
		return err
	}
	if err := s.store.Utilities().Delete(ctx, id); err != nil {
		return fmt.Errorf("service/utility: deleting %s: %w", id, err)
	}

	s.logger.Info("utility deleted",
		slog.String("utilityID", id),
		slog.String("userID", user.ID),
	)
	return nil
}
