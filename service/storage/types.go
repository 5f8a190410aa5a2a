package storage

import (
	"context"
	"time"
)

// Service defines run-history persistence and maintenance operations.
type Service interface {
	SaveRun(ctx context.Context, input SaveRunInput) (int64, error)
	GetRecentRuns(limit int) ([]RunSummary, error)
	ListRunAccounts(runID int64) ([]RunAccount, error)
	Vacuum(ctx context.Context) error
	Reindex(ctx context.Context) error
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
	Close() error
}

// SaveRunInput is the payload saved for a completed report run.
type SaveRunInput struct {
	RunUUID     string
	DurationSec int64
	Version     string
	Profile     string
	Region      string
	RowCount    int
	Accounts    []RunAccount
}

// RunAccount records one requested account's outcome within a run.
type RunAccount struct {
	AccountID string
	Status    string // "ok" or "failed"
	RowCount  int
	Stage     string
	ErrorKind string
	Message   string
}

// RunSummary provides compact run metadata.
type RunSummary struct {
	RunID          int64
	RunUUID        string
	RunTimestamp   time.Time
	AccountCount   int
	FailedAccounts int
	RowCount       int
	DurationSec    int64
	Version        string
}
