package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/models"
)

// InMemoryRepository is a Repository for development and tests.
// Records are copied on the way in and out.
type InMemoryRepository struct {
	requests      map[string]*models.ReviewRequest
	bySourceEvent map[string]string
	now           func() time.Time
	mu            sync.RWMutex
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		requests:      make(map[string]*models.ReviewRequest),
		bySourceEvent: make(map[string]string),
		now:           time.Now,
	}
}

func (r *InMemoryRepository) CreateReviewRequest(ctx context.Context, req *models.ReviewRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySourceEvent[req.SourceEventID]; exists {
		return ErrReviewRequestExists
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	now := r.now().UTC()

	req.ID = id.String()
	req.CreatedAt = now
	req.UpdatedAt = now
	if req.Status == "" {
		req.Status = models.StatusPending
	}

	r.requests[req.ID] = cloneRequest(req)
	r.bySourceEvent[req.SourceEventID] = req.ID
	return nil
}

func (r *InMemoryRepository) GetReviewRequest(ctx context.Context, id string) (*models.ReviewRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, exists := r.requests[id]
	if !exists {
		return nil, ErrReviewRequestNotFound
	}
	return cloneRequest(req), nil
}

func (r *InMemoryRepository) GetReviewRequestBySourceEvent(ctx context.Context, sourceEventID string) (*models.ReviewRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.bySourceEvent[sourceEventID]
	if !exists {
		return nil, ErrReviewRequestNotFound
	}
	return cloneRequest(r.requests[id]), nil
}

func (r *InMemoryRepository) ListReviewRequests(ctx context.Context, filter ListFilter) ([]*models.ReviewRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.ReviewRequest
	for _, req := range r.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.OwnerID != "" && req.OwnerID != filter.OwnerID {
			continue
		}
		if !filter.DueBefore.IsZero() && req.ScheduledSendTime.After(filter.DueBefore) {
			continue
		}
		out = append(out, cloneRequest(req))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledSendTime.Equal(out[j].ScheduledSendTime) {
			return out[i].ScheduledSendTime.Before(out[j].ScheduledSendTime)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if limit := listLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return r.update(id, func(req *models.ReviewRequest) {
		t := sentAt
		req.Status = models.StatusSent
		req.SentAt = &t
		req.ErrorMessage = ""
	})
}

func (r *InMemoryRepository) MarkFailed(ctx context.Context, id string, message string) error {
	return r.update(id, func(req *models.ReviewRequest) {
		req.Status = models.StatusFailed
		req.ErrorMessage = message
		req.RetryCount++
	})
}

func (r *InMemoryRepository) CancelReviewRequest(ctx context.Context, id string) error {
	return r.update(id, func(req *models.ReviewRequest) {
		req.Status = models.StatusCancelled
	})
}

func (r *InMemoryRepository) DeleteReviewRequest(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, exists := r.requests[id]
	if !exists {
		return ErrReviewRequestNotFound
	}
	delete(r.bySourceEvent, req.SourceEventID)
	delete(r.requests, id)
	return nil
}

func (r *InMemoryRepository) update(id string, fn func(*models.ReviewRequest)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, exists := r.requests[id]
	if !exists {
		return ErrReviewRequestNotFound
	}
	fn(req)
	req.UpdatedAt = r.now().UTC()
	return nil
}

// Count returns the number of stored records.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.requests)
}

func (r *InMemoryRepository) Ping(ctx context.Context) error { return nil }

func (r *InMemoryRepository) Close() {}

func cloneRequest(req *models.ReviewRequest) *models.ReviewRequest {
	c := *req
	if req.RawWebhookData != nil {
		c.RawWebhookData = append([]byte(nil), req.RawWebhookData...)
	}
	if req.SentAt != nil {
		t := *req.SentAt
		c.SentAt = &t
	}
	return &c
}
