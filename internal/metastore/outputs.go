package metastore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

func (s *SQLiteStore) CreateOutput(ctx context.Context, out Output) (Output, error) {
	if out.OutputID == "" {
		out.OutputID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}

	var dateStr sql.NullString
	if !out.Date.IsZero() {
		dateStr = sql.NullString{String: out.Date.Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outputs (output_id, conversation_id, funder, amount, date, text, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		out.OutputID, out.ConversationID, out.Funder, out.Amount, dateStr, out.Text, out.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Output{}, ragerr.DependencyUnavailableError("create output failed", err)
	}
	return out, nil
}

func (s *SQLiteStore) GetOutput(ctx context.Context, outputID string) (Output, error) {
	var out Output
	var dateStr sql.NullString
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT output_id, conversation_id, funder, amount, date, text, created_at FROM outputs WHERE output_id = ?`,
		outputID,
	).Scan(&out.OutputID, &out.ConversationID, &out.Funder, &out.Amount, &dateStr, &out.Text, &createdAt)
	if err == sql.ErrNoRows {
		return Output{}, ragerr.NotFoundError("output not found").WithField("output_id").WithDetail("output_id", outputID)
	}
	if err != nil {
		return Output{}, ragerr.DependencyUnavailableError("get output failed", err)
	}

	if dateStr.Valid {
		out.Date, _ = time.Parse(time.RFC3339, dateStr.String)
	}
	out.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return out, nil
}

// LinkGeneration records that outputID was derived from messageID within
// conversationID, for downstream success tracking (spec §3 "Output").
func (s *SQLiteStore) LinkGeneration(ctx context.Context, outputID, conversationID, messageID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO generation_links (output_id, conversation_id, message_id) VALUES (?, ?, ?)`,
		outputID, conversationID, messageID)
	if err != nil {
		return ragerr.DependencyUnavailableError("link generation failed", err)
	}
	return nil
}
