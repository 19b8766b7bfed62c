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

var _ repository.MediaRepository = (*MediaDB)(nil)

type MediaDB struct {
	q dbx.DBTX
}

const mediaColumns = `id, url, type, title, description, user_id, utility_id, throwing_point_id, created_at`

func scanMedia(row interface{ Scan(...any) error }) (*model.Media, error) {
	var (
		m                        model.Media
		userID, utilityID, tpID sql.NullString
	)
	if err := row.Scan(
		&m.ID,
		&m.URL,
		&m.Type,
		&m.Title,
		&m.Description,
		&userID,
		&utilityID,
		&tpID,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	m.UserID = stringPtr(userID)
	m.UtilityID = stringPtr(utilityID)
	m.ThrowingPointID = stringPtr(tpID)
	return &m, nil
}

func (r *MediaDB) Create(ctx context.Context, m *model.Media) error {
	m.ID = xid.New().String()
	m.CreatedAt = time.Now().UTC()

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO media (`+mediaColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.URL,
		string(m.Type),
		m.Title,
		m.Description,
		nullString(m.UserID),
		nullString(m.UtilityID),
		nullString(m.ThrowingPointID),
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating media: %w", err)
	}
	return nil
}

func (r *MediaDB) GetByID(ctx context.Context, id string) (*model.Media, error) {
	m, err := scanMedia(r.q.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("media", id)
		}
		return nil, fmt.Errorf("sqlite: getting media %s: %w", id, err)
	}
	return m, nil
}

func (r *MediaDB) ListByUtility(ctx context.Context, utilityID string) ([]model.Media, error) {
	return r.list(ctx, `utility_id = ?`, utilityID)
}

func (r *MediaDB) ListByThrowingPoint(ctx context.Context, throwingPointID string) ([]model.Media, error) {
	return r.list(ctx, `throwing_point_id = ?`, throwingPointID)
}

func (r *MediaDB) list(ctx context.Context, where string, arg string) ([]model.Media, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE `+where+` ORDER BY created_at ASC`, arg)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing media: %w", err)
	}
	defer rows.Close()

	media := make([]model.Media, 0)
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning media row: %w", err)
		}
		media = append(media, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating media: %w", err)
	}
	return media, nil
}

// Update writes title and description only. Attachment changes go through
// SetAttachment.
func (r *MediaDB) Update(ctx context.Context, m *model.Media) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE media SET title = ?, description = ? WHERE id = ?`,
		m.Title, m.Description, m.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating media %s: %w", m.ID, err)
	}
	return requireOneRow(result, "media", m.ID)
}

func (r *MediaDB) SetAttachment(ctx context.Context, m *model.Media) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE media SET user_id = ?, utility_id = ?, throwing_point_id = ? WHERE id = ?`,
		nullString(m.UserID),
		nullString(m.UtilityID),
		nullString(m.ThrowingPointID),
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: attaching media %s: %w", m.ID, err)
	}
	return requireOneRow(result, "media", m.ID)
}

func (r *MediaDB) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting media %s: %w", id, err)
	}
	return requireOneRow(result, "media", id)
}
