package metastore

import (
	"context"
	"strings"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

func (s *SQLiteStore) ListPrograms(ctx context.Context) ([]Program, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT program_id, name, active, display_order FROM programs ORDER BY display_order, name`)
	if err != nil {
		return nil, ragerr.DependencyUnavailableError("list programs failed", err)
	}
	defer rows.Close()

	var out []Program
	for rows.Next() {
		var p Program
		var active int
		if err := rows.Scan(&p.ProgramID, &p.Name, &active, &p.DisplayOrder); err != nil {
			return nil, ragerr.InternalError("scan program row failed", err)
		}
		p.Active = active != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// ActiveProgramNames returns the canonical-case names of every active
// program, for validating document-program linkage at ingest time.
func (s *SQLiteStore) ActiveProgramNames(ctx context.Context) ([]string, error) {
	programs, err := s.ListPrograms(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(programs))
	for _, p := range programs {
		if p.Active {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

func (s *SQLiteStore) CreateProgram(ctx context.Context, name string, displayOrder int) (Program, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Program{}, ragerr.ValidationError("program name cannot be empty").WithField("name")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO programs (name, active, display_order) VALUES (?, 1, ?)`, name, displayOrder)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return Program{}, ragerr.ConflictError("program already exists").WithField("name").WithDetail("name", name)
		}
		return Program{}, ragerr.DependencyUnavailableError("create program failed", err)
	}
	id, _ := res.LastInsertId()
	return Program{ProgramID: id, Name: name, Active: true, DisplayOrder: displayOrder}, nil
}

func (s *SQLiteStore) SetProgramActive(ctx context.Context, name string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE programs SET active = ? WHERE name = ?`, boolToInt(active), name)
	if err != nil {
		return ragerr.DependencyUnavailableError("update program failed", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ragerr.NotFoundError("program not found").WithField("name").WithDetail("name", name)
	}
	return nil
}

// DeleteProgram removes a program by name. A program referenced by any
// document is not deleted: without force the reference pre-check
// returns Conflict; force skips only the pre-check, and the FK RESTRICT
// then blocks the delete at the database layer, also surfaced as
// Conflict.
func (s *SQLiteStore) DeleteProgram(ctx context.Context, name string, force bool) error {
	if !force {
		var count int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM document_programs WHERE program_name = ?`, name).Scan(&count); err != nil {
			return ragerr.DependencyUnavailableError("check program references failed", err)
		}
		if count > 0 {
			return ragerr.ConflictError("program is referenced by existing documents").
				WithField("name").WithDetail("name", name).WithDetail("document_count", count).
				WithSuggestion("remove the program from affected documents first")
		}
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM programs WHERE name = ?`, name)
	if err != nil {
		if isForeignKeyErr(err) {
			return ragerr.ConflictError("program is referenced by existing documents").WithField("name").WithDetail("name", name)
		}
		return ragerr.DependencyUnavailableError("delete program failed", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintErr(err error) bool {
	return containsAny(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyErr(err error) bool {
	return containsAny(err.Error(), "FOREIGN KEY constraint failed")
}

func containsAny(s, substr string) bool {
	return strings.Contains(s, substr)
}
