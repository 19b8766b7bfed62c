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

var _ repository.ThrowingPointRepository = (*ThrowingPointDB)(nil)

type ThrowingPointDB struct {
	q dbx.DBTX
}

const throwingPointColumns = `id, utility_id, position_x, position_y, title, description, created_at, updated_at`

func scanThrowingPoint(row interface{ Scan(...any) error }) (*model.ThrowingPoint, error) {
	var tp model.ThrowingPoint
	if err := row.Scan(
		&tp.ID,
		&tp.UtilityID,
		&tp.Position.X,
		&tp.Position.Y,
		&tp.Title,
		&tp.Description,
		&tp.CreatedAt,
		&tp.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tp, nil
}

// CreateWithinQuota inserts tp unless owner already has quota or more
// throwing points across all of their utilities. Same single-statement guard
// as UtilityDB.CreateWithinQuota.
func (r *ThrowingPointDB) CreateWithinQuota(ctx context.Context, tp *model.ThrowingPoint, owner string, quota int) error {
	now := time.Now().UTC()
	tp.ID = xid.New().String()
	tp.CreatedAt = now
	tp.UpdatedAt = now

	result, err := r.q.ExecContext(ctx,
		`INSERT INTO throwing_points (`+throwingPointColumns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE ? < 0 OR (
		     SELECT COUNT(*) FROM throwing_points tp
		     JOIN utilities u ON u.id = tp.utility_id
		     WHERE u.created_by = ?
		 ) < ?`,
		tp.ID,
		tp.UtilityID,
		tp.Position.X,
		tp.Position.Y,
		tp.Title,
		tp.Description,
		tp.CreatedAt,
		tp.UpdatedAt,
		quota, owner, quota,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating throwing point: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		tp.ID = ""
		return apperror.VerificationRequired("throwing point quota reached")
	}
	return nil
}

func (r *ThrowingPointDB) GetByID(ctx context.Context, id string) (*model.ThrowingPoint, error) {
	tp, err := scanThrowingPoint(r.q.QueryRowContext(ctx,
		`SELECT `+throwingPointColumns+` FROM throwing_points WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("throwing point", id)
		}
		return nil, fmt.Errorf("sqlite: getting throwing point %s: %w", id, err)
	}
	return tp, nil
}

func (r *ThrowingPointDB) ListByUtility(ctx context.Context, utilityID string) ([]model.ThrowingPoint, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+throwingPointColumns+`
		 FROM throwing_points WHERE utility_id = ?
		 ORDER BY created_at ASC`,
		utilityID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing throwing points: %w", err)
	}
	defer rows.Close()

	points := make([]model.ThrowingPoint, 0)
	for rows.Next() {
		tp, err := scanThrowingPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning throwing point row: %w", err)
		}
		points = append(points, *tp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating throwing points: %w", err)
	}
	return points, nil
}

// Update never moves a throwing point to another utility.
func (r *ThrowingPointDB) Update(ctx context.Context, tp *model.ThrowingPoint) error {
	tp.UpdatedAt = time.Now().UTC()

	result, err := r.q.ExecContext(ctx,
		`UPDATE throwing_points
		 SET position_x = ?, position_y = ?, title = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		tp.Position.X,
		tp.Position.Y,
		tp.Title,
		tp.Description,
		tp.UpdatedAt,
		tp.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating throwing point %s: %w", tp.ID, err)
	}
	return requireOneRow(result, "throwing point", tp.ID)
}

func (r *ThrowingPointDB) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM throwing_points WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting throwing point %s: %w", id, err)
	}
	return requireOneRow(result, "throwing point", id)
}

func (r *ThrowingPointDB) CountByCreator(ctx context.Context, createdBy string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM throwing_points tp
		 JOIN utilities u ON u.id = tp.utility_id
		 WHERE u.created_by = ?`,
		createdBy,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting throwing points for %s: %w", createdBy, err)
	}
	return n, nil
}
