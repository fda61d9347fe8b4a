package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ZacharyN/org-archivist-sub001/internal/metadata"
	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// InsertDocument records a document after C6 has successfully processed
// it. SensitivityConfirmedAt must be non-zero; callers validate program
// membership against ActiveProgramNames before calling this.
func (s *SQLiteStore) InsertDocument(ctx context.Context, doc Document) error {
	if doc.SensitivityConfirmedAt.IsZero() {
		return ragerr.ValidationError("sensitivity_confirmed_at is required at insert time").
			WithField("sensitivity_confirmed_at")
	}
	if doc.DocID == "" {
		return ragerr.ValidationError("doc_id is required").WithField("doc_id")
	}

	programsJSON, err := json.Marshal(nonNil(doc.Programs))
	if err != nil {
		return ragerr.InternalError("marshal programs failed", err)
	}
	tagsJSON, err := json.Marshal(nonNil(doc.Tags))
	if err != nil {
		return ragerr.InternalError("marshal tags failed", err)
	}

	now := doc.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ragerr.DependencyUnavailableError("begin document insert failed", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (doc_id, filename, doc_type, year, programs, tags, outcome,
			sensitivity_confirmed_at, is_sensitive, created_by, chunk_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.DocID, doc.Filename, string(doc.DocType), doc.Year, string(programsJSON), string(tagsJSON),
		string(doc.Outcome), doc.SensitivityConfirmedAt.UTC().Format(time.RFC3339), boolToInt(doc.IsSensitive),
		doc.CreatedBy, doc.ChunkCount, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintErr(err) {
			return ragerr.ConflictError("document already exists").WithField("doc_id").WithDetail("doc_id", doc.DocID)
		}
		return ragerr.DependencyUnavailableError("insert document failed", err)
	}

	for _, program := range doc.Programs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO document_programs (doc_id, program_name) VALUES (?, ?)`, doc.DocID, program); err != nil {
			if isForeignKeyErr(err) {
				return ragerr.ValidationError("unknown or inactive program").
					WithField("programs").WithDetail("invalid_programs", []string{program})
			}
			return ragerr.DependencyUnavailableError("link document program failed", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ragerr.DependencyUnavailableError("commit document insert failed", err)
	}
	return nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, docID string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, filename, doc_type, year, programs, tags, outcome,
			sensitivity_confirmed_at, is_sensitive, created_by, chunk_count, created_at, updated_at
		FROM documents WHERE doc_id = ?`, docID)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return Document{}, ragerr.NotFoundError("document not found").WithField("doc_id").WithDetail("doc_id", docID)
	}
	if err != nil {
		return Document{}, ragerr.DependencyUnavailableError("get document failed", err)
	}
	return doc, nil
}

func (s *SQLiteStore) UpdateDocumentMetadata(ctx context.Context, docID string, update DocumentUpdate) error {
	doc, err := s.GetDocument(ctx, docID)
	if err != nil {
		return err
	}

	if update.DocType != nil {
		doc.DocType = *update.DocType
	}
	if update.Year != nil {
		doc.Year = *update.Year
	}
	if update.Outcome != nil {
		doc.Outcome = *update.Outcome
	}
	if update.Tags != nil {
		doc.Tags = *update.Tags
	}

	tagsJSON, _ := json.Marshal(nonNil(doc.Tags))
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ragerr.DependencyUnavailableError("begin document update failed", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET doc_type = ?, year = ?, tags = ?, outcome = ?, updated_at = ? WHERE doc_id = ?`,
		string(doc.DocType), doc.Year, string(tagsJSON), string(doc.Outcome), now.Format(time.RFC3339), docID)
	if err != nil {
		return ragerr.DependencyUnavailableError("update document failed", err)
	}

	if update.Programs != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_programs WHERE doc_id = ?`, docID); err != nil {
			return ragerr.DependencyUnavailableError("clear document programs failed", err)
		}
		programsJSON, _ := json.Marshal(nonNil(*update.Programs))
		if _, err := tx.ExecContext(ctx, `UPDATE documents SET programs = ? WHERE doc_id = ?`, string(programsJSON), docID); err != nil {
			return ragerr.DependencyUnavailableError("update document programs failed", err)
		}
		for _, program := range *update.Programs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO document_programs (doc_id, program_name) VALUES (?, ?)`, docID, program); err != nil {
				if isForeignKeyErr(err) {
					return ragerr.ValidationError("unknown or inactive program").
						WithField("programs").WithDetail("invalid_programs", []string{program})
				}
				return ragerr.DependencyUnavailableError("link document program failed", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return ragerr.DependencyUnavailableError("commit document update failed", err)
	}
	return nil
}

// DeleteDocument removes the metadata record for docID. Per §9's
// "delete is the reverse" policy, callers call this before deleting
// from the vector index: a reader that still observes the document in
// C4 during the brief window between the two calls will never observe
// it in the metadata store, mirroring how insert writes chunks first.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return ragerr.DependencyUnavailableError("delete document failed", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ragerr.NotFoundError("document not found").WithField("doc_id").WithDetail("doc_id", docID)
	}
	return nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]Document, error) {
	query := `SELECT doc_id, filename, doc_type, year, programs, tags, outcome,
		sensitivity_confirmed_at, is_sensitive, created_by, chunk_count, created_at, updated_at
		FROM documents`
	var clauses []string
	var args []any

	if filter.DocType != nil {
		clauses = append(clauses, "doc_type = ?")
		args = append(args, string(*filter.DocType))
	}
	if len(filter.Years) > 0 {
		placeholders := ""
		for i, y := range filter.Years {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
			args = append(args, y)
		}
		clauses = append(clauses, "year IN ("+placeholders+")")
	}
	if filter.Program != "" {
		clauses = append(clauses, "doc_id IN (SELECT doc_id FROM document_programs WHERE program_name = ?)")
		args = append(args, filter.Program)
	}

	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ragerr.DependencyUnavailableError("list documents failed", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, ragerr.InternalError("scan document row failed", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var doc Document
	var docType, outcome, programsJSON, tagsJSON, sensitivityConfirmed, createdAt, updatedAt string
	var isSensitive int

	err := row.Scan(&doc.DocID, &doc.Filename, &docType, &doc.Year, &programsJSON, &tagsJSON, &outcome,
		&sensitivityConfirmed, &isSensitive, &doc.CreatedBy, &doc.ChunkCount, &createdAt, &updatedAt)
	if err != nil {
		return Document{}, err
	}

	doc.DocType = metadata.DocType(docType)
	doc.Outcome = metadata.Outcome(outcome)
	doc.IsSensitive = isSensitive != 0
	_ = json.Unmarshal([]byte(programsJSON), &doc.Programs)
	_ = json.Unmarshal([]byte(tagsJSON), &doc.Tags)
	doc.SensitivityConfirmedAt, _ = time.Parse(time.RFC3339, sensitivityConfirmed)
	doc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	doc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return doc, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
