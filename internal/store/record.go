package store

import (
	"context"
	"time"
)

// Record is one persisted generation: the prompt, the parameters used, and
// where the image ended up. Rows are insert-only.
type Record struct {
	ID        int64
	UserID    string
	Prompt    string
	ImageURL  string
	Width     int
	Height    int
	CfgScale  float64
	Steps     int
	Seed      int64
	CreatedAt time.Time
}

// Recorder writes and reads generation records. Create is safe to call
// concurrently from independent dispatch tasks; each writes a disjoint row.
type Recorder interface {
	Create(context.Context, Record) (int64, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]Record, error)
}
