package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/dbx"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
)

var _ repository.OwnershipRepository = (*OwnershipDB)(nil)

// OwnershipDB resolves owner chains with one query per lookup, joining
// through the relationship tables instead of fetching each hop separately.
type OwnershipDB struct {
	q dbx.DBTX
}

func (r *OwnershipDB) UtilityOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := r.q.QueryRowContext(ctx,
		`SELECT created_by FROM utilities WHERE id = ?`, id,
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.NotFound("utility", id)
		}
		return "", fmt.Errorf("sqlite: resolving utility owner %s: %w", id, err)
	}
	return owner, nil
}

func (r *OwnershipDB) ThrowingPointOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := r.q.QueryRowContext(ctx,
		`SELECT u.created_by
		 FROM throwing_points tp
		 JOIN utilities u ON u.id = tp.utility_id
		 WHERE tp.id = ?`, id,
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.NotFound("throwing point", id)
		}
		return "", fmt.Errorf("sqlite: resolving throwing point owner %s: %w", id, err)
	}
	return owner, nil
}

// MediaOwnership returns all three owner paths of a media row at once. LEFT
// JOINs leave a path empty when the media does not use that storage shape.
func (r *OwnershipDB) MediaOwnership(ctx context.Context, id string) (*model.MediaOwnership, error) {
	var direct, viaUtility, viaThrowingPoint sql.NullString
	err := r.q.QueryRowContext(ctx,
		`SELECT m.user_id, u.created_by, tu.created_by
		 FROM media m
		 LEFT JOIN utilities u        ON u.id  = m.utility_id
		 LEFT JOIN throwing_points tp ON tp.id = m.throwing_point_id
		 LEFT JOIN utilities tu       ON tu.id = tp.utility_id
		 WHERE m.id = ?`, id,
	).Scan(&direct, &viaUtility, &viaThrowingPoint)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("media", id)
		}
		return nil, fmt.Errorf("sqlite: resolving media owner %s: %w", id, err)
	}
	return &model.MediaOwnership{
		MediaID:            id,
		DirectOwner:        direct.String,
		UtilityOwner:       viaUtility.String,
		ThrowingPointOwner: viaThrowingPoint.String,
	}, nil
}
