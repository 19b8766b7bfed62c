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

var _ repository.MapRepository = (*MapDB)(nil)

type MapDB struct {
	q dbx.DBTX
}

func (r *MapDB) List(ctx context.Context) ([]model.Map, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, display_name FROM maps ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing maps: %w", err)
	}
	defer rows.Close()

	var maps []model.Map
	for rows.Next() {
		var m model.Map
		if err := rows.Scan(&m.ID, &m.Name, &m.DisplayName); err != nil {
			return nil, fmt.Errorf("sqlite: scanning map row: %w", err)
		}
		maps = append(maps, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating maps: %w", err)
	}
	return maps, nil
}

func (r *MapDB) GetByID(ctx context.Context, id string) (*model.Map, error) {
	var m model.Map
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, display_name FROM maps WHERE id = ?`, id,
	).Scan(&m.ID, &m.Name, &m.DisplayName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("map", id)
		}
		return nil, fmt.Errorf("sqlite: getting map %s: %w", id, err)
	}
	return &m, nil
}
