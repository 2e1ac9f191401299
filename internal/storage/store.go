package storage

import (
	"context"
	"errors"
	"time"

	"attrinfer/internal/evaluate"
	"attrinfer/internal/predict"
	"attrinfer/internal/profile"
	"attrinfer/internal/snapshot"
)

var (
	// ErrNoSnapshot is returned when loading from a store nothing was imported
	// into.
	ErrNoSnapshot = errors.New("no snapshot imported")
	// ErrRunNotFound is returned for unknown run ids.
	ErrRunNotFound = errors.New("run not found")
)

// Store combines snapshot and run persistence.
type Store interface {
	SnapshotStore
	RunStore
	Close() error
}

// SnapshotStore persists the inputs of a prediction run.
type SnapshotStore interface {
	// SaveSnapshot replaces the stored snapshot.
	SaveSnapshot(ctx context.Context, s *snapshot.Snapshot) error

	// LoadSnapshot rebuilds the stored snapshot.
	LoadSnapshot(ctx context.Context) (*snapshot.Snapshot, error)
}

// RunStore records prediction runs and their scores.
type RunStore interface {
	SaveRun(ctx context.Context, r *Run) error
	ListRuns(ctx context.Context) ([]Run, error)
	LoadRunPredictions(ctx context.Context, id string) (map[profile.Type]profile.Predictions, error)
}

// Run is one invocation of a prediction method.
type Run struct {
	ID          string                               `json:"id"`
	CreatedAt   time.Time                            `json:"created_at"`
	Method      string                               `json:"method"`
	Options     predict.Options                      `json:"options"`
	Predictions map[profile.Type]profile.Predictions `json:"-"`
	Scores      map[profile.Type]evaluate.Summary    `json:"scores,omitempty"`
}
