// Package file implements the candidate and reported repositories as
// versioned JSON snapshot files on local disk.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"groupwatch/internal/domain/entity"
)

// currentVersion is the snapshot format written by this package.
// Version 0 is the legacy format: a bare JSON array of ids (strings or numbers).
const currentVersion = 1

// snapshotDoc is the on-disk document.
type snapshotDoc struct {
	Version   int              `json:"version"`
	Kind      string           `json:"kind"`
	UpdatedAt time.Time        `json:"updated_at"`
	IDs       []entity.GroupID `json:"ids"`
}

// snapshotFile guards one snapshot document. Every load and update reads the
// file again, so ids written by another process (groupctl, a hand edit) are
// never overwritten by a stale copy. Updates hold both the in-process mutex and
// a sibling lock file for the whole read-modify-write. Loads take the same lock
// because reading a legacy file rewrites it.
type snapshotFile struct {
	path string
	kind string

	mu sync.Mutex
}

const (
	lockRetry = 10 * time.Millisecond
	// lockStale is how old a lock file must be before it is treated as
	// abandoned by a crashed writer.
	lockStale = 30 * time.Second
)

func newSnapshotFile(path, kind string) *snapshotFile {
	return &snapshotFile{path: path, kind: kind}
}

// load returns the ids currently on disk. A missing file is an empty snapshot.
func (s *snapshotFile) load(ctx context.Context) ([]entity.GroupID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.read(ctx)
}

// update applies fn to the ids on disk under the lock and persists the result
// if fn reports a change.
func (s *snapshotFile) update(ctx context.Context, fn func([]entity.GroupID) ([]entity.GroupID, bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := s.read(ctx)
	if err != nil {
		return err
	}
	next, changed := fn(current)
	if !changed {
		return nil
	}
	return s.write(next)
}

func (s *snapshotFile) read(ctx context.Context) ([]entity.GroupID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s snapshot: %w", s.kind, err)
	}

	ids, version, err := decodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s snapshot %s: %w", s.kind, s.path, err)
	}
	if version < currentVersion {
		slog.Info("migrating snapshot to current format",
			slog.String("kind", s.kind),
			slog.String("path", s.path),
			slog.Int("from_version", version),
			slog.Int("to_version", currentVersion),
			slog.Int("ids", len(ids)))
		if err := s.write(ids); err != nil {
			return nil, fmt.Errorf("migrate %s snapshot: %w", s.kind, err)
		}
	}
	return ids, nil
}

// lock takes the cross-process lock file next to the snapshot, waiting until
// it is free or ctx is done.
func (s *snapshotFile) lock(ctx context.Context) (func(), error) {
	lockPath := s.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("lock %s snapshot: %w", s.kind, err)
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lockStale {
			slog.Warn("removing stale snapshot lock", slog.String("path", lockPath))
			_ = os.Remove(lockPath)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s snapshot: %w", s.kind, ctx.Err())
		case <-time.After(lockRetry):
		}
	}
}

func (s *snapshotFile) write(ids []entity.GroupID) error {
	doc := snapshotDoc{
		Version:   currentVersion,
		Kind:      s.kind,
		UpdatedAt: time.Now().UTC(),
		IDs:       ids,
	}
	if doc.IDs == nil {
		doc.IDs = []entity.GroupID{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", s.kind, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// decodeSnapshot accepts the versioned document or the legacy bare array.
// Entries that are not canonical group ids are dropped with a warning.
func decodeSnapshot(data []byte) ([]entity.GroupID, int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, currentVersion, nil
	}

	var raw []json.RawMessage
	version := 0

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, 0, err
		}
	case '{':
		var doc struct {
			Version int               `json:"version"`
			IDs     []json.RawMessage `json:"ids"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, 0, err
		}
		if doc.Version > currentVersion {
			return nil, 0, fmt.Errorf("unsupported snapshot version %d", doc.Version)
		}
		raw = doc.IDs
		version = doc.Version
	default:
		return nil, 0, errors.New("unrecognized snapshot format")
	}

	ids := make([]entity.GroupID, 0, len(raw))
	seen := make(map[entity.GroupID]struct{}, len(raw))
	for _, r := range raw {
		id, ok := decodeID(r)
		if !ok {
			slog.Warn("dropping invalid id from snapshot", slog.String("value", string(r)))
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, version, nil
}

func decodeID(r json.RawMessage) (entity.GroupID, bool) {
	var s string
	if err := json.Unmarshal(r, &s); err != nil {
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(r))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return "", false
		}
		s = n.String()
	}
	id, err := entity.ParseGroupID(s)
	if err != nil {
		return "", false
	}
	return id, true
}
