package repository

import (
	"context"
	"errors"
	"time"

	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/models"
)

var (
	ErrReviewRequestNotFound = errors.New("review request not found")
	ErrReviewRequestExists   = errors.New("review request already exists")
)

// DefaultListLimit caps ListReviewRequests when no limit is given.
const DefaultListLimit = 100

// ListFilter narrows ListReviewRequests. Zero fields are ignored.
type ListFilter struct {
	Status    models.Status
	OwnerID   string
	DueBefore time.Time
	Limit     int
}

type Repository interface {
	// CreateReviewRequest fills in ID, CreatedAt and UpdatedAt. It returns
	// ErrReviewRequestExists if a record for the same SourceEventID exists.
	CreateReviewRequest(ctx context.Context, req *models.ReviewRequest) error
	GetReviewRequest(ctx context.Context, id string) (*models.ReviewRequest, error)
	GetReviewRequestBySourceEvent(ctx context.Context, sourceEventID string) (*models.ReviewRequest, error)
	ListReviewRequests(ctx context.Context, filter ListFilter) ([]*models.ReviewRequest, error)

	// Lifecycle updates, used by the sender.
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, message string) error
	CancelReviewRequest(ctx context.Context, id string) error
	DeleteReviewRequest(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close()
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*InMemoryRepository)(nil)
)
