package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/repository"
)

type CandidateRepo struct{ db *sql.DB }

func NewCandidateRepo(db *sql.DB) repository.CandidateRepository {
	return &CandidateRepo{db: db}
}

func (repo *CandidateRepo) Load(ctx context.Context) ([]entity.GroupID, error) {
	const query = `
SELECT group_id
FROM candidate_groups
ORDER BY added_at ASC, group_id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids, err := scanGroupIDs(rows)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	return ids, nil
}

// Save replaces the stored candidate list with ids in a single transaction.
func (repo *CandidateRepo) Save(ctx context.Context, ids []entity.GroupID) error {
	arr := pq.Array(toStrings(ids))

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Save: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const deleteQuery = `
DELETE FROM candidate_groups
WHERE NOT (group_id = ANY($1::text[]))`
	if _, err := tx.ExecContext(ctx, deleteQuery, arr); err != nil {
		return fmt.Errorf("Save: delete: %w", err)
	}

	const insertQuery = `
INSERT INTO candidate_groups (group_id)
SELECT unnest($1::text[])
ON CONFLICT (group_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insertQuery, arr); err != nil {
		return fmt.Errorf("Save: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Save: commit: %w", err)
	}
	return nil
}

func (repo *CandidateRepo) Append(ctx context.Context, id entity.GroupID) (bool, error) {
	if !id.Valid() {
		return false, entity.ErrInvalidGroupID
	}
	const query = `
INSERT INTO candidate_groups (group_id)
VALUES ($1)
ON CONFLICT (group_id) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, query, string(id))
	if err != nil {
		return false, fmt.Errorf("Append: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Append: rows affected: %w", err)
	}
	return n > 0, nil
}

// scanGroupIDs reads single-column group id rows, skipping values that are not canonical ids.
func scanGroupIDs(rows *sql.Rows) ([]entity.GroupID, error) {
	ids := make([]entity.GroupID, 0, 64)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		id, err := entity.ParseGroupID(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return ids, nil
}

func toStrings(ids []entity.GroupID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id.Valid() {
			out = append(out, string(id))
		}
	}
	return out
}
