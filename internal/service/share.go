package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/authz"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
)

const (
	shareFormatVersion = 1
	// MaxShareUtilities bounds one code.
	MaxShareUtilities = 50
	maxShareCodeBytes = 512 << 10
)

// sharePayload is the decoded form of a share code. IDs and owners are not
// carried: an import always creates fresh rows owned by the importer.
type sharePayload struct {
	Version   int            `json:"v"`
	Utilities []shareUtility `json:"utilities"`
}

type shareUtility struct {
	MapID          string               `json:"mapId"`
	UtilityType    model.UtilityType    `json:"utilityType"`
	Team           model.Team           `json:"team"`
	Position       model.Position       `json:"position"`
	Title          string               `json:"title"`
	Description    string               `json:"description,omitempty"`
	ThrowingPoints []ThrowingPointInput `json:"throwingPoints,omitempty"`
}

// ShareService exports lineups to a code and imports them back.
type ShareService struct {
	store  repository.Store
	gate   Authorizer
	logger *slog.Logger
}

func NewShareService(store repository.Store, gate Authorizer, logger *slog.Logger) *ShareService {
	return &ShareService{store: store, gate: gate, logger: logger}
}

// Export encodes the given utilities and their throwing points. Every ID must
// belong to the caller.
func (s *ShareService) Export(ctx context.Context, user *model.User, utilityIDs []string) (string, error) {
	if len(utilityIDs) == 0 {
		return "", apperror.ValidationFailed("utilityIds", "Select at least one utility to export")
	}
	if len(utilityIDs) > MaxShareUtilities {
		return "", apperror.ValidationFailed("utilityIds",
			fmt.Sprintf("At most %d utilities can be shared at once", MaxShareUtilities))
	}

	payload := sharePayload{Version: shareFormatVersion}
	for _, id := range utilityIDs {
		if err := s.gate.AuthorizeTarget(ctx, user, authz.Utility(id)); err != nil {
			return "", err
		}
		u, err := s.store.Utilities().GetByID(ctx, id)
		if err != nil {
			return "", fmt.Errorf("service/share: loading %s: %w", id, err)
		}
		points, err := s.store.ThrowingPoints().ListByUtility(ctx, id)
		if err != nil {
			return "", fmt.Errorf("service/share: listing throwing points of %s: %w", id, err)
		}

		su := shareUtility{
			MapID:       u.MapID,
			UtilityType: u.UtilityType,
			Team:        u.Team,
			Position:    u.Position,
			Title:       u.Title,
			Description: u.Description,
		}
		for _, tp := range points {
			su.ThrowingPoints = append(su.ThrowingPoints, ThrowingPointInput{
				Position:    tp.Position,
				Title:       tp.Title,
				Description: tp.Description,
			})
		}
		payload.Utilities = append(payload.Utilities, su)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("service/share: encoding: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeShareCode(code string) (*sharePayload, error) {
	invalid := apperror.ValidationFailed("code", "Share code is invalid")
	if code == "" || len(code) > maxShareCodeBytes {
		return nil, invalid
	}
	raw, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return nil, invalid
	}
	var p sharePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Version != shareFormatVersion {
		return nil, invalid
	}
	if len(p.Utilities) == 0 {
		return nil, invalid
	}
	if len(p.Utilities) > MaxShareUtilities {
		return nil, apperror.ValidationFailed("code",
			fmt.Sprintf("At most %d utilities can be shared at once", MaxShareUtilities))
	}
	return &p, nil
}

// Import creates copies of every lineup in code owned by the caller, all or
// nothing.
//
// The gate runs first against the live counts. Inside the transaction each
// row goes through the same guarded insert as a single create, so an
// unverified user importing two utilities gets VERIFICATION_REQUIRED and
// nothing is written.
func (s *ShareService) Import(ctx context.Context, user *model.User, code string) ([]model.Utility, error) {
	if user == nil {
		return nil, apperror.Unauthenticated()
	}
	payload, err := decodeShareCode(code)
	if err != nil {
		return nil, err
	}

	hasPoints := false
	for _, su := range payload.Utilities {
		in := UtilityInput{su.MapID, su.UtilityType, su.Team, su.Position, su.Title, su.Description}
		if err := in.validate(); err != nil {
			return nil, err
		}
		for _, tp := range su.ThrowingPoints {
			if err := tp.validate(); err != nil {
				return nil, err
			}
			hasPoints = true
		}
	}

	if err := s.gate.AuthorizeCreate(ctx, user, authz.KindUtility); err != nil {
		return nil, err
	}
	if hasPoints {
		if err := s.gate.AuthorizeCreate(ctx, user, authz.KindThrowingPoint); err != nil {
			return nil, err
		}
	}

	utilityQuota := authz.Quota(user, authz.KindUtility)
	pointQuota := authz.Quota(user, authz.KindThrowingPoint)

	var created []model.Utility
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		created = created[:0]
		for _, su := range payload.Utilities {
			if err := requireMap(ctx, tx.Maps(), su.MapID); err != nil {
				return err
			}
			u := &model.Utility{
				MapID:       su.MapID,
				UtilityType: su.UtilityType,
				Team:        su.Team,
				Position:    su.Position,
				Title:       su.Title,
				Description: su.Description,
				CreatedBy:   user.ID,
			}
			if err := tx.Utilities().CreateWithinQuota(ctx, u, utilityQuota); err != nil {
				return quotaError(err, authz.KindUtility)
			}
			for _, in := range su.ThrowingPoints {
				tp := &model.ThrowingPoint{
					UtilityID:   u.ID,
					Position:    in.Position,
					Title:       in.Title,
					Description: in.Description,
				}
				if err := tx.ThrowingPoints().CreateWithinQuota(ctx, tp, user.ID, pointQuota); err != nil {
					return quotaError(err, authz.KindThrowingPoint)
				}
				u.ThrowingPoints = append(u.ThrowingPoints, *tp)
			}
			created = append(created, *u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("share code imported",
		slog.String("userID", user.ID),
		slog.Int("utilities", len(created)),
	)
	return created, nil
}
