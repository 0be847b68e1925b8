package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"appaccess-backend/application/reader"
	"appaccess-backend/domain/access"
	"appaccess-backend/domain/events"
	apperrors "appaccess-backend/pkg/errors"
)

// FileEventStore persists the event log as a JSON array in a single file.
// Writes rewrite the file through a temp-file rename so a crash mid-write
// never leaves a truncated log behind.
type FileEventStore struct {
	mu     sync.Mutex
	path   string
	log    []events.TemporalEvent
	seen   map[uuid.UUID]struct{}
	logger *zap.Logger
}

// NewFileEventStore opens or creates the log at path. An existing file is
// read eagerly so idempotency survives restarts.
func NewFileEventStore(path string, logger *zap.Logger) (*FileEventStore, error) {
	s := &FileEventStore{path: path, seen: make(map[uuid.UUID]struct{}), logger: logger}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, apperrors.NewInternal("reading event log file", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.log); err != nil {
		return nil, apperrors.NewInternal("parsing event log file", err)
	}
	for _, ev := range s.log {
		s.seen[ev.EventID] = struct{}{}
	}
	logger.Info("event log opened", zap.String("path", path), zap.Int("events", len(s.log)))
	return s, nil
}

// PersistEvents appends the batch and rewrites the file. Already persisted
// event ids are skipped.
func (s *FileEventStore) PersistEvents(_ context.Context, batch []events.TemporalEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	appended := false
	for _, ev := range batch {
		if _, ok := s.seen[ev.EventID]; ok {
			continue
		}
		s.log = append(s.log, ev)
		s.seen[ev.EventID] = struct{}{}
		appended = true
	}
	if !appended {
		return nil
	}
	return s.write()
}

func (s *FileEventStore) write() error {
	data, err := json.Marshal(s.log)
	if err != nil {
		return apperrors.NewInternal("encoding event log", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".eventlog-*")
	if err != nil {
		return apperrors.NewInternal("creating event log temp file", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return apperrors.NewInternal("writing event log", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return apperrors.NewInternal("closing event log temp file", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return apperrors.NewInternal("replacing event log file", err)
	}
	return nil
}

// Events returns a copy of the persisted log in order.
func (s *FileEventStore) Events() []events.TemporalEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := make([]events.TemporalEvent, len(s.log))
	copy(log, s.log)
	return log
}

// Load replays the log into sink. An empty or absent log raises
// PersistentStorageEmpty.
func (s *FileEventStore) Load(_ context.Context, sink access.Mutator) (reader.SnapshotMetadata, error) {
	s.mu.Lock()
	log := make([]events.TemporalEvent, len(s.log))
	copy(log, s.log)
	s.mu.Unlock()

	if len(log) == 0 {
		return reader.SnapshotMetadata{}, apperrors.NewPersistentStorageEmpty()
	}
	for _, ev := range log {
		if err := access.ApplyEvent(sink, ev); err != nil {
			return reader.SnapshotMetadata{}, apperrors.Wrap(err, "replaying persisted events")
		}
	}
	last := log[len(log)-1]
	return reader.SnapshotMetadata{EventID: last.EventID, Timestamp: last.OccurredTime}, nil
}
