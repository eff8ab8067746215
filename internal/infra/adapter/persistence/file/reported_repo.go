package file

import (
	"context"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/repository"
)

// ReportedRepo stores the append-only reported set in a snapshot file.
type ReportedRepo struct{ snap *snapshotFile }

// NewReportedRepo returns a ReportedRepository backed by the file at path.
func NewReportedRepo(path string) repository.ReportedRepository {
	return &ReportedRepo{snap: newSnapshotFile(path, "reported")}
}

func (repo *ReportedRepo) Load(ctx context.Context) ([]entity.GroupID, error) {
	return repo.snap.load(ctx)
}

// Save merges ids into the stored set. Existing entries are kept so the set
// stays append-only even when a caller saves a stale snapshot.
func (repo *ReportedRepo) Save(ctx context.Context, ids []entity.GroupID) error {
	return repo.snap.update(ctx, func(cur []entity.GroupID) ([]entity.GroupID, bool) {
		merged := dedupe(append(cur, ids...))
		return merged, len(merged) != len(cur)
	})
}

func (repo *ReportedRepo) Add(ctx context.Context, id entity.GroupID) error {
	if !id.Valid() {
		return entity.ErrInvalidGroupID
	}
	return repo.snap.update(ctx, func(cur []entity.GroupID) ([]entity.GroupID, bool) {
		for _, existing := range cur {
			if existing == id {
				return cur, false
			}
		}
		return append(cur, id), true
	})
}
