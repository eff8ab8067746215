package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/repository"
)

func TestCandidateRepo_LoadMissingFile(t *testing.T) {
	repo := NewCandidateRepo(filepath.Join(t.TempDir(), "candidates.json"))

	ids, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCandidateRepo_AppendPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "candidates.json")

	repo := NewCandidateRepo(path)
	added, err := repo.Append(ctx, "123456")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Append(ctx, "123456")
	require.NoError(t, err)
	assert.False(t, added, "duplicate append must report not added")

	_, err = repo.Append(ctx, "777")
	require.NoError(t, err)

	reopened := NewCandidateRepo(path)
	ids, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.GroupID{"123456", "777"}, ids)
}

func TestCandidateRepo_AppendRejectsInvalidID(t *testing.T) {
	repo := NewCandidateRepo(filepath.Join(t.TempDir(), "candidates.json"))

	_, err := repo.Append(context.Background(), "12ab")
	assert.ErrorIs(t, err, entity.ErrInvalidGroupID)
}

func TestCandidateRepo_SaveReplacesAndDedupes(t *testing.T) {
	ctx := context.Background()
	repo := NewCandidateRepo(filepath.Join(t.TempDir(), "candidates.json"))

	require.NoError(t, repo.Save(ctx, []entity.GroupID{"1", "2", "2", "bad", "3"}))
	ids, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.GroupID{"1", "2", "3"}, ids)

	require.NoError(t, repo.Save(ctx, []entity.GroupID{"9"}))
	ids, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.GroupID{"9"}, ids)
}

func TestCandidateRepo_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "candidates.json")
	repo := NewCandidateRepo(path)

	var wg sync.WaitGroup
	for i := 1000; i < 1050; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := repo.Append(ctx, entity.GroupID(strconv.Itoa(n)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	ids, err := NewCandidateRepo(path).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 50)
}

func TestReportedRepo_AddIsDurableImmediately(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reported.json")

	repo := NewReportedRepo(path)
	require.NoError(t, repo.Add(ctx, "123456"))

	// A fresh instance simulates a process restart.
	ids, err := NewReportedRepo(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.GroupID{"123456"}, ids)
}

func TestReportedRepo_SaveNeverRemovesEntries(t *testing.T) {
	ctx := context.Background()
	repo := NewReportedRepo(filepath.Join(t.TempDir(), "reported.json"))

	require.NoError(t, repo.Add(ctx, "1"))
	require.NoError(t, repo.Add(ctx, "2"))
	require.NoError(t, repo.Save(ctx, []entity.GroupID{"3"}))

	ids, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []entity.GroupID{"1", "2", "3"}, ids)
}

func TestSnapshot_MigratesLegacyArray(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reported.json")
	require.NoError(t, os.WriteFile(path, []byte(`["111", 222, "not-an-id", "111", 3.5]`), 0o600))

	ids, err := NewReportedRepo(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.GroupID{"111", "222"}, ids)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc snapshotDoc
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, currentVersion, doc.Version)
	assert.Equal(t, "reported", doc.Kind)
	assert.Equal(t, []entity.GroupID{"111", "222"}, doc.IDs)
}

func TestSnapshot_RejectsFutureVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "ids": ["1"]}`), 0o600))

	_, err := NewCandidateRepo(path).Load(context.Background())
	assert.Error(t, err)
}

func TestSnapshot_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.json")
	require.NoError(t, os.WriteFile(path, []byte(`hello`), 0o600))

	_, err := NewCandidateRepo(path).Load(context.Background())
	assert.Error(t, err)
}

func TestSnapshot_EmptyFileIsEmptySet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	ids, err := NewCandidateRepo(path).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCandidateRepo_SeesWritesFromOtherInstance(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "candidates.json")
	worker := NewCandidateRepo(path)
	cli := NewCandidateRepo(path)

	_, err := worker.Append(ctx, "111")
	require.NoError(t, err)
	_, err = cli.Append(ctx, "222")
	require.NoError(t, err)

	ids, err := worker.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.GroupID{"111", "222"}, ids)

	_, err = worker.Append(ctx, "333")
	require.NoError(t, err)

	ids, err = cli.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.GroupID{"111", "222", "333"}, ids)
}

func TestCandidateRepo_AppendKeepsHandEdits(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "candidates.json")
	repo := NewCandidateRepo(path)

	_, err := repo.Append(ctx, "111")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(`["111", "444"]`), 0o600))

	added, err := repo.Append(ctx, "444")
	require.NoError(t, err)
	assert.False(t, added)
	_, err = repo.Append(ctx, "555")
	require.NoError(t, err)

	ids, err := NewCandidateRepo(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.GroupID{"111", "444", "555"}, ids)
}

func TestCandidateRepo_ConcurrentAppendsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "candidates.json")
	repos := []repository.CandidateRepository{NewCandidateRepo(path), NewCandidateRepo(path)}

	var wg sync.WaitGroup
	for i := 2000; i < 2040; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := repos[n%2].Append(ctx, entity.GroupID(strconv.Itoa(n)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	ids, err := repos[0].Load(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 40)
	_, err = os.Stat(path + ".lock")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSnapshot_RemovesStaleLock(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reported.json")
	lockPath := path + ".lock"
	require.NoError(t, os.WriteFile(lockPath, nil, 0o600))
	old := time.Now().Add(-2 * lockStale)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	require.NoError(t, NewReportedRepo(path).Add(ctx, "9"))
}

func TestSnapshot_HeldLockHonorsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reported.json")
	require.NoError(t, os.WriteFile(path+".lock", nil, 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := NewReportedRepo(path).Add(ctx, "9")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
