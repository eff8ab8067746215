// Package repository defines the persistence contracts used by the scanner.
// Implementations live under internal/infra/adapter/persistence.
package repository

import (
	"context"

	"groupwatch/internal/domain/entity"
)

// CandidateRepository persists the user-submitted list of group ids to scan.
//
// Load and Save operate on whole snapshots. Append adds a single id and is the
// only path the control surface uses to extend the list, so concurrent
// additions are not lost to a stale Save.
type CandidateRepository interface {
	Load(ctx context.Context) ([]entity.GroupID, error)
	Save(ctx context.Context, ids []entity.GroupID) error
	// Append adds id if absent. added is false when id was already present.
	Append(ctx context.Context, id entity.GroupID) (added bool, err error)
}

// ReportedRepository persists the append-only set of group ids that have
// already been notified. Entries are never removed.
type ReportedRepository interface {
	Load(ctx context.Context) ([]entity.GroupID, error)
	Save(ctx context.Context, ids []entity.GroupID) error
	// Add durably records id as reported before returning.
	Add(ctx context.Context, id entity.GroupID) error
}
