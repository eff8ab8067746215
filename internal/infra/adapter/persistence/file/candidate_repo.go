package file

import (
	"context"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/repository"
)

// CandidateRepo stores candidate ids in a snapshot file.
type CandidateRepo struct{ snap *snapshotFile }

// NewCandidateRepo returns a CandidateRepository backed by the file at path.
func NewCandidateRepo(path string) repository.CandidateRepository {
	return &CandidateRepo{snap: newSnapshotFile(path, "candidates")}
}

func (repo *CandidateRepo) Load(ctx context.Context) ([]entity.GroupID, error) {
	return repo.snap.load(ctx)
}

func (repo *CandidateRepo) Save(ctx context.Context, ids []entity.GroupID) error {
	deduped := dedupe(ids)
	return repo.snap.update(ctx, func([]entity.GroupID) ([]entity.GroupID, bool) {
		return deduped, true
	})
}

func (repo *CandidateRepo) Append(ctx context.Context, id entity.GroupID) (bool, error) {
	if !id.Valid() {
		return false, entity.ErrInvalidGroupID
	}
	added := false
	err := repo.snap.update(ctx, func(cur []entity.GroupID) ([]entity.GroupID, bool) {
		for _, existing := range cur {
			if existing == id {
				return cur, false
			}
		}
		added = true
		return append(cur, id), true
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

func dedupe(ids []entity.GroupID) []entity.GroupID {
	out := make([]entity.GroupID, 0, len(ids))
	seen := make(map[entity.GroupID]struct{}, len(ids))
	for _, id := range ids {
		if !id.Valid() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
