package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunEventType identifies a moment in a run's lifecycle.
type RunEventType string

const (
	EventRunStarted    RunEventType = "run_started"
	EventRunCompleted  RunEventType = "run_completed"
	EventRunFailed     RunEventType = "run_failed"
	EventRunPaused     RunEventType = "run_paused"
	EventRunResumed    RunEventType = "run_resumed"
	EventNodeStarted   RunEventType = "node_started"
	EventNodeCompleted RunEventType = "node_completed"
	EventNodeFailed    RunEventType = "node_failed"
)

// RunEvent is one entry in a run's observable event stream.
type RunEvent struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id"`
	Sequence  int64          `json:"sequence"`
	Timestamp time.Time      `json:"timestamp"`
	Type      RunEventType   `json:"type"`
	NodeID    string         `json:"node_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// RunEventStore receives the event stream produced during execution.
type RunEventStore interface {
	Append(ctx context.Context, event *RunEvent) error
	Events(ctx context.Context, runID string) ([]*RunEvent, error)
}

// NullEventStore discards all events. It is the default.
type NullEventStore struct{}

var _ RunEventStore = &NullEventStore{}

func NewNullEventStore() *NullEventStore { return &NullEventStore{} }

func (s *NullEventStore) Append(ctx context.Context, event *RunEvent) error { return nil }

func (s *NullEventStore) Events(ctx context.Context, runID string) ([]*RunEvent, error) {
	return nil, nil
}

// MemoryEventStore keeps events in memory, primarily for tests and
// short-lived sessions.
type MemoryEventStore struct {
	mutex  sync.RWMutex
	events map[string][]*RunEvent
}

var _ RunEventStore = &MemoryEventStore{}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{events: make(map[string][]*RunEvent)}
}

func (s *MemoryEventStore) Append(ctx context.Context, event *RunEvent) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.events[event.RunID] = append(s.events[event.RunID], event)
	return nil
}

func (s *MemoryEventStore) Events(ctx context.Context, runID string) ([]*RunEvent, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	events := make([]*RunEvent, len(s.events[runID]))
	copy(events, s.events[runID])
	return events, nil
}

// FileEventStore appends events to one JSON Lines file per run under a
// base directory.
type FileEventStore struct {
	basePath string
	mutex    sync.RWMutex
}

var _ RunEventStore = &FileEventStore{}

func NewFileEventStore(basePath string) *FileEventStore {
	return &FileEventStore{basePath: basePath}
}

func (s *FileEventStore) Append(ctx context.Context, event *RunEvent) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create event store directory: %w", err)
	}
	path := s.eventsPath(event.RunID)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open events file: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return nil
}

func (s *FileEventStore) Events(ctx context.Context, runID string) ([]*RunEvent, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	file, err := os.Open(s.eventsPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*RunEvent{}, nil
		}
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}
	defer file.Close()

	var events []*RunEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event RunEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		events = append(events, &event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events file: %w", err)
	}
	return events, nil
}

func (s *FileEventStore) eventsPath(runID string) string {
	return filepath.Join(s.basePath, runID+".jsonl")
}

// recorder hands sequenced events to a store, swallowing store errors so
// observability problems never fail a run.
type recorder struct {
	runID    string
	store    RunEventStore
	sequence int64
}

func newRecorder(runID string, store RunEventStore) *recorder {
	if store == nil {
		store = NewNullEventStore()
	}
	return &recorder{runID: runID, store: store}
}

func (r *recorder) record(ctx context.Context, eventType RunEventType, nodeID string, data map[string]any) {
	r.sequence++
	_ = r.store.Append(ctx, &RunEvent{
		ID:        uuid.NewString(),
		RunID:     r.runID,
		Sequence:  r.sequence,
		Timestamp: time.Now(),
		Type:      eventType,
		NodeID:    nodeID,
		Data:      data,
	})
}
