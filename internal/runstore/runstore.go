// Package runstore persists reports of finished runs so that past results
// can be listed and inspected after the process exits.
package runstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for an unknown run.
var ErrNotFound = errors.New("run not found")

// Report summarises one finished run.
type Report struct {
	RunID       uuid.UUID
	Status      string
	Started     time.Time
	Finished    time.Time
	CacheHits   int
	CacheMisses int
	// Error is the run error text, empty on success.
	Error    string
	Warnings []string
	Nodes    []NodeReport
}

// NodeReport is the final state of one node in a run.
type NodeReport struct {
	NodeID uuid.UUID
	Name   string
	Type   string
	Status string
	// State is the cache state the node ran with, empty if it never ran.
	State string
	Error string
}

// Store persists run reports.
type Store interface {
	Save(ctx context.Context, r *Report) error
	// Get returns a report including its node reports.
	Get(ctx context.Context, id uuid.UUID) (*Report, error)
	// List returns up to limit reports, newest first, without node reports.
	List(ctx context.Context, limit int) ([]*Report, error)
	Close() error
}
