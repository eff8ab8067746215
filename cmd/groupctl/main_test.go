package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/handler/http/auth"
	"groupwatch/internal/infra/groupapi"
	"groupwatch/internal/usecase/scan"
)

func init() {
	color.NoColor = true
}

type memIDs struct {
	mu  sync.Mutex
	ids []entity.GroupID
	err error
}

func (m *memIDs) Load(context.Context) ([]entity.GroupID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return slices.Clone(m.ids), nil
}

func (m *memIDs) Save(_ context.Context, ids []entity.GroupID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = slices.Clone(ids)
	return nil
}

func (m *memIDs) Append(_ context.Context, id entity.GroupID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if slices.Contains(m.ids, id) {
		return false, nil
	}
	m.ids = append(m.ids, id)
	return true, nil
}

func (m *memIDs) Add(ctx context.Context, id entity.GroupID) error {
	_, err := m.Append(ctx, id)
	return err
}

type stubFetcher map[entity.GroupID]*entity.GroupRecord

func (s stubFetcher) FetchGroup(_ context.Context, id entity.GroupID) (*entity.GroupRecord, error) {
	rec, ok := s[id]
	if !ok {
		return nil, groupapi.ErrGroupNotFound
	}
	return rec, nil
}

var _ scan.GroupFetcher = stubFetcher(nil)

func TestRunExtract(t *testing.T) {
	t.Run("all inputs resolve", func(t *testing.T) {
		var out, errOut bytes.Buffer
		err := runExtract(&out, &errOut, []string{"https://www.roblox.com/groups/987654/Some-Group", "12345"})
		require.NoError(t, err)
		assert.Equal(t, "987654\n12345\n", out.String())
		assert.Empty(t, errOut.String())
	})

	t.Run("unresolvable input is reported", func(t *testing.T) {
		var out, errOut bytes.Buffer
		err := runExtract(&out, &errOut, []string{"no digits here", "42"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 2")
		assert.Equal(t, "42\n", out.String())
		assert.Contains(t, errOut.String(), `"no digits here"`)
	})
}

func TestRunCheck(t *testing.T) {
	fetcher := stubFetcher{
		"100": {ID: "100", Name: "Open Group"},
		"200": {ID: "200", Name: "Owned Group", Owner: &entity.Owner{Username: "builder"}},
		"300": {ID: "300", Name: "Seen Group"},
	}
	reported := &memIDs{ids: []entity.GroupID{"300"}}
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "unclaimed", input: "100", want: []string{"100  Open Group", "unclaimed (not yet reported)"}},
		{name: "owned", input: "https://www.roblox.com/groups/200/x", want: []string{"200  Owned Group", "owned by builder"}},
		{name: "already reported", input: "300", want: []string{"unclaimed (already reported)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, runCheck(ctx, &out, fetcher, reported, tt.input, false))
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}

	t.Run("json output", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runCheck(ctx, &out, fetcher, reported, "300", true))
		var res scan.CheckResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		assert.Equal(t, entity.GroupID("300"), res.GroupID)
		assert.True(t, res.Unclaimed)
		assert.True(t, res.AlreadyReported)
		assert.False(t, res.Notified)
	})

	t.Run("no id in input", func(t *testing.T) {
		err := runCheck(ctx, &bytes.Buffer{}, fetcher, reported, "nothing", false)
		assert.ErrorIs(t, err, entity.ErrGroupIDNotFound)
	})

	t.Run("unknown group", func(t *testing.T) {
		err := runCheck(ctx, &bytes.Buffer{}, fetcher, reported, "999", false)
		assert.ErrorIs(t, err, groupapi.ErrGroupNotFound)
	})

	t.Run("reported store failure", func(t *testing.T) {
		broken := &memIDs{err: errors.New("disk gone")}
		err := runCheck(ctx, &bytes.Buffer{}, fetcher, broken, "100", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load reported")
	})
}

func TestRunCandidatesAdd(t *testing.T) {
	ctx := context.Background()
	repo := &memIDs{ids: []entity.GroupID{"5"}}

	var out bytes.Buffer
	err := runCandidatesAdd(ctx, &out, repo, []string{"https://www.roblox.com/groups/7/a", "5", "???"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3")

	text := out.String()
	assert.Contains(t, text, "added 7")
	assert.Contains(t, text, "5 already listed")
	assert.Contains(t, text, `"???"`)

	ids, _ := repo.Load(ctx)
	assert.Equal(t, []entity.GroupID{"5", "7"}, ids)

	t.Run("store error aborts", func(t *testing.T) {
		err := runCandidatesAdd(ctx, &bytes.Buffer{}, &memIDs{err: errors.New("boom")}, []string{"1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "add 1")
	})
}

func TestRunList_SortsNumerically(t *testing.T) {
	var out bytes.Buffer
	repo := &memIDs{ids: []entity.GroupID{"100", "9", "20"}}
	require.NoError(t, runList(context.Background(), &out, repo))
	assert.Equal(t, "9\n20\n100\n", out.String())
}

func TestRunToken(t *testing.T) {
	now := time.Now()

	t.Run("missing secret", func(t *testing.T) {
		err := runToken(&bytes.Buffer{}, "", "ops", time.Hour, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CONTROL_JWT_SECRET")
	})

	t.Run("token validates", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runToken(&out, "s3cret", "ops", time.Hour, now))
		tok := strings.TrimSpace(out.String())

		subject, role, err := auth.NewAuthenticator("s3cret").Validate("Bearer " + tok)
		require.NoError(t, err)
		assert.Equal(t, "ops", subject)
		assert.Equal(t, auth.RoleOperator, role)
	})
}

func TestRootCommand_Tree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"extract", "check", "candidates", "reported", "token", "db"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRunMigrate(t *testing.T) {
	t.Run("down keeps reported", func(t *testing.T) {
		database, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = database.Close() }()

		mock.ExpectExec("DROP INDEX IF EXISTS idx_candidate_groups_added_at").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DROP TABLE IF EXISTS candidate_groups").
			WillReturnResult(sqlmock.NewResult(0, 0))

		var out bytes.Buffer
		require.NoError(t, runMigrate(&out, database, true))
		assert.Contains(t, out.String(), "reported history kept")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("up", func(t *testing.T) {
		database, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = database.Close() }()

		for range 4 {
			mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
		}

		var out bytes.Buffer
		require.NoError(t, runMigrate(&out, database, false))
		assert.Contains(t, out.String(), "up to date")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("down error", func(t *testing.T) {
		database, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = database.Close() }()

		mock.ExpectExec("DROP INDEX").WillReturnError(sql.ErrConnDone)

		err = runMigrate(&bytes.Buffer{}, database, true)
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})
}
