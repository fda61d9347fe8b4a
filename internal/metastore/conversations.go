package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

func (s *SQLiteStore) CreateConversation(ctx context.Context, principalID string, cctx ConversationContext) (Conversation, error) {
	ctxJSON, err := json.Marshal(cctx)
	if err != nil {
		return Conversation{}, ragerr.InternalError("marshal conversation context failed", err)
	}

	now := time.Now().UTC()
	conv := Conversation{
		ConversationID: uuid.NewString(),
		PrincipalID:    principalID,
		Context:        cctx,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, principal_id, context, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		conv.ConversationID, principalID, string(ctxJSON), now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return Conversation{}, ragerr.DependencyUnavailableError("create conversation failed", err)
	}
	return conv, nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (Conversation, error) {
	var conv Conversation
	var ctxJSON, createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, principal_id, context, created_at, updated_at FROM conversations WHERE conversation_id = ?`,
		conversationID,
	).Scan(&conv.ConversationID, &conv.PrincipalID, &ctxJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Conversation{}, ragerr.NotFoundError("conversation not found").WithField("conversation_id").WithDetail("conversation_id", conversationID)
	}
	if err != nil {
		return Conversation{}, ragerr.DependencyUnavailableError("get conversation failed", err)
	}

	_ = json.Unmarshal([]byte(ctxJSON), &conv.Context)
	conv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	conv.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return conv, nil
}

func (s *SQLiteStore) UpdateConversationContext(ctx context.Context, conversationID string, cctx ConversationContext) error {
	ctxJSON, err := json.Marshal(cctx)
	if err != nil {
		return ragerr.InternalError("marshal conversation context failed", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET context = ?, updated_at = ? WHERE conversation_id = ?`,
		string(ctxJSON), time.Now().UTC().Format(time.RFC3339), conversationID)
	if err != nil {
		return ragerr.DependencyUnavailableError("update conversation context failed", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ragerr.NotFoundError("conversation not found").WithField("conversation_id").WithDetail("conversation_id", conversationID)
	}
	return nil
}

// AppendMessage persists one turn and bumps the conversation's updated_at.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg Message) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	citationsJSON, err := json.Marshal(nonNilInts(msg.Citations))
	if err != nil {
		return ragerr.InternalError("marshal citations failed", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ragerr.DependencyUnavailableError("begin append message failed", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, conversation_id, role, text, citations, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.ConversationID, string(msg.Role), msg.Text, string(citationsJSON), msg.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return ragerr.DependencyUnavailableError("append message failed", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE conversation_id = ?`,
		msg.CreatedAt.Format(time.RFC3339), msg.ConversationID)
	if err != nil {
		return ragerr.DependencyUnavailableError("touch conversation failed", err)
	}

	if err := tx.Commit(); err != nil {
		return ragerr.DependencyUnavailableError("commit append message failed", err)
	}
	return nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, conversation_id, role, text, citations, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, ragerr.DependencyUnavailableError("list messages failed", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var msg Message
		var role, citationsJSON, createdAt string
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &role, &msg.Text, &citationsJSON, &createdAt); err != nil {
			return nil, ragerr.InternalError("scan message row failed", err)
		}
		msg.Role = MessageRole(role)
		_ = json.Unmarshal([]byte(citationsJSON), &msg.Citations)
		msg.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, msg)
	}
	return out, rows.Err()
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
