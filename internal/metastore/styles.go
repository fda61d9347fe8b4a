package metastore

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

func (s *SQLiteStore) CreateWritingStyle(ctx context.Context, ws WritingStyle) (WritingStyle, error) {
	if ws.StyleID == "" {
		ws.StyleID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO writing_styles (style_id, name, description, owner_id) VALUES (?, ?, ?, ?)`,
		ws.StyleID, ws.Name, ws.Description, ws.OwnerID)
	if err != nil {
		return WritingStyle{}, ragerr.DependencyUnavailableError("create writing style failed", err)
	}
	return ws, nil
}

func (s *SQLiteStore) GetWritingStyle(ctx context.Context, styleID string) (WritingStyle, error) {
	var ws WritingStyle
	err := s.db.QueryRowContext(ctx,
		`SELECT style_id, name, description, owner_id FROM writing_styles WHERE style_id = ?`, styleID,
	).Scan(&ws.StyleID, &ws.Name, &ws.Description, &ws.OwnerID)
	if err == sql.ErrNoRows {
		return WritingStyle{}, ragerr.NotFoundError("writing style not found").WithField("style_id").WithDetail("style_id", styleID)
	}
	if err != nil {
		return WritingStyle{}, ragerr.DependencyUnavailableError("get writing style failed", err)
	}
	return ws, nil
}

func (s *SQLiteStore) ListWritingStyles(ctx context.Context) ([]WritingStyle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT style_id, name, description, owner_id FROM writing_styles ORDER BY name`)
	if err != nil {
		return nil, ragerr.DependencyUnavailableError("list writing styles failed", err)
	}
	defer rows.Close()

	var out []WritingStyle
	for rows.Next() {
		var ws WritingStyle
		if err := rows.Scan(&ws.StyleID, &ws.Name, &ws.Description, &ws.OwnerID); err != nil {
			return nil, ragerr.InternalError("scan writing style row failed", err)
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}
