// Package storage defines persistence for resume records and the identity ledger.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/resumatch/internal/models"
)

// ErrNotFound is returned when a resume does not exist.
var ErrNotFound = errors.New("resume not found")

// Storage persists resume records and the identity ledger rows.
// It satisfies ledger.Store.
type Storage interface {
	// Resume operations
	SaveResume(ctx context.Context, resume *models.Resume) error
	GetResume(ctx context.Context, id string) (*models.Resume, error)
	ResumeExists(ctx context.Context, id string) (bool, error)
	ListResumes(ctx context.Context, offset, limit int) ([]*models.Resume, error)
	CountResumes(ctx context.Context) (int64, error)

	// Ledger operations
	LoadLedger(ctx context.Context) ([]string, error)
	AppendLedger(ctx context.Context, start int, ids []string) error

	Close() error
}
