package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/repository"
)

type ReportedRepo struct{ db *sql.DB }

func NewReportedRepo(db *sql.DB) repository.ReportedRepository {
	return &ReportedRepo{db: db}
}

func (repo *ReportedRepo) Load(ctx context.Context) ([]entity.GroupID, error) {
	const query = `
SELECT group_id
FROM reported_groups
ORDER BY reported_at ASC, group_id ASC`
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

// Save inserts any ids not yet recorded. Existing rows are never deleted.
func (repo *ReportedRepo) Save(ctx context.Context, ids []entity.GroupID) error {
	const query = `
INSERT INTO reported_groups (group_id)
SELECT unnest($1::text[])
ON CONFLICT (group_id) DO NOTHING`
	if _, err := repo.db.ExecContext(ctx, query, pq.Array(toStrings(ids))); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

func (repo *ReportedRepo) Add(ctx context.Context, id entity.GroupID) error {
	if !id.Valid() {
		return entity.ErrInvalidGroupID
	}
	const query = `
INSERT INTO reported_groups (group_id)
VALUES ($1)
ON CONFLICT (group_id) DO NOTHING`
	if _, err := repo.db.ExecContext(ctx, query, string(id)); err != nil {
		return fmt.Errorf("Add: %w", err)
	}
	return nil
}
