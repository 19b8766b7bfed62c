package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/utility-lineups/internal/apperror"
	"github.com/sakif/utility-lineups/internal/dbx"
	"github.com/sakif/utility-lineups/internal/model"
	"github.com/sakif/utility-lineups/internal/repository"
)

var _ repository.UtilityRepository = (*UtilityDB)(nil)

// UtilityDB implements repository.UtilityRepository.
type UtilityDB struct {
	q dbx.DBTX
}

const utilityColumns = `id, map_id, utility_type, team, position_x, position_y, title, description, created_by, created_at, updated_at`

func scanUtility(row interface{ Scan(...any) error }) (*model.Utility, error) {
	var u model.Utility
	if err := row.Scan(
		&u.ID,
		&u.MapID,
		&u.UtilityType,
		&u.Team,
		&u.Position.X,
		&u.Position.Y,
		&u.Title,
		&u.Description,
		&u.CreatedBy,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateWithinQuota inserts the utility unless its creator already owns
// quota or more utilities.
//
// QUOTA-GUARDED INSERT:
// The count and the insert are one statement (INSERT ... SELECT ... WHERE),
// so two concurrent requests from the same unverified user cannot both see
// a count of zero and both insert. When the WHERE clause is false the
// statement inserts nothing and RowsAffected is 0.
func (r *UtilityDB) CreateWithinQuota(ctx context.Context, u *model.Utility, quota int) error {
	now := time.Now().UTC()
	u.ID = xid.New().String()
	u.CreatedAt = now
	u.UpdatedAt = now

	result, err := r.q.ExecContext(ctx,
		`INSERT INTO utilities (`+utilityColumns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE ? < 0 OR (SELECT COUNT(*) FROM utilities WHERE created_by = ?) < ?`,
		u.ID,
		u.MapID,
		string(u.UtilityType),
		string(u.Team),
		u.Position.X,
		u.Position.Y,
		u.Title,
		u.Description,
		u.CreatedBy,
		u.CreatedAt,
		u.UpdatedAt,
		quota, u.CreatedBy, quota,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating utility: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		u.ID = ""
		return apperror.VerificationRequired("utility quota reached")
	}
	return nil
}

// GetByID retrieves a single utility. Returns apperror.ErrNotFound when the
// row does not exist.
func (r *UtilityDB) GetByID(ctx context.Context, id string) (*model.Utility, error) {
	u, err := scanUtility(r.q.QueryRowContext(ctx,
		`SELECT `+utilityColumns+` FROM utilities WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("utility", id)
		}
		return nil, fmt.Errorf("sqlite: getting utility %s: %w", id, err)
	}
	return u, nil
}

// ListByMap returns the utilities createdBy placed on mapID, oldest first.
// Empty filter fields match everything.
func (r *UtilityDB) ListByMap(ctx context.Context, createdBy, mapID string, filter repository.UtilityFilter) ([]model.Utility, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+utilityColumns+`
		 FROM utilities
		 WHERE created_by = ? AND map_id = ?
		   AND (? = '' OR team = ?)
		   AND (? = '' OR utility_type = ?)
		 ORDER BY created_at ASC`,
		createdBy, mapID,
		string(filter.Team), string(filter.Team),
		string(filter.UtilityType), string(filter.UtilityType),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing utilities: %w", err)
	}
	defer rows.Close()

	utilities := make([]model.Utility, 0)
	for rows.Next() {
		u, err := scanUtility(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning utility row: %w", err)
		}
		utilities = append(utilities, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating utilities: %w", err)
	}
	return utilities, nil
}

// Update writes the mutable fields. map_id and created_by are not touched:
// a utility never changes hands or maps.
func (r *UtilityDB) Update(ctx context.Context, u *model.Utility) error {
	u.UpdatedAt = time.Now().UTC()

	result, err := r.q.ExecContext(ctx,
		`UPDATE utilities
		 SET utility_type = ?, team = ?, position_x = ?, position_y = ?,
		     title = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		string(u.UtilityType),
		string(u.Team),
		u.Position.X,
		u.Position.Y,
		u.Title,
		u.Description,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating utility %s: %w", u.ID, err)
	}
	return requireOneRow(result, "utility", u.ID)
}

// Delete removes the utility. Its throwing points and every media row hanging
// off either of them go with it through ON DELETE CASCADE.
func (r *UtilityDB) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM utilities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting utility %s: %w", id, err)
	}
	return requireOneRow(result, "utility", id)
}

// CountByCreator is a live count; nothing is cached between calls.
func (r *UtilityDB) CountByCreator(ctx context.Context, createdBy string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM utilities WHERE created_by = ?`, createdBy,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting utilities for %s: %w", createdBy, err)
	}
	return n, nil
}

// requireOneRow turns "no rows affected" into NotFound.
func requireOneRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
