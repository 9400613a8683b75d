package domain

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upay/backend/internal/metrics"
)

const (
	DefaultRetention = 30 * 24 * time.Hour
	// MaxBatchWrites is Firestore's limit on writes in one commit.
	MaxBatchWrites = 500
)

// CleanupService deletes messages past the retention window.
type CleanupService struct {
	repo      MessageRepository
	retention time.Duration
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

func NewCleanupService(repo MessageRepository, retention time.Duration, batchSize int, logger *zap.Logger) *CleanupService {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if batchSize <= 0 || batchSize > MaxBatchWrites {
		batchSize = MaxBatchWrites
	}
	return &CleanupService{
		repo:      repo,
		retention: retention,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// Cutoff returns the creation time before which messages are deleted.
func (s *CleanupService) Cutoff() time.Time {
	return s.now().UTC().Add(-s.retention)
}

// Run deletes every message created strictly before the cutoff and returns
// how many were removed. Up to batchSize matches go in a single atomic
// commit; larger result sets are committed in consecutive chunks.
func (s *CleanupService) Run(ctx context.Context) (int, error) {
	cutoff := s.Cutoff()

	ids, err := s.repo.ListMessageIDsCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list messages before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if len(ids) == 0 {
		s.logger.Info("no old messages to delete", zap.Time("cutoff", cutoff))
		return 0, nil
	}

	deleted := 0
	for start := 0; start < len(ids); start += s.batchSize {
		end := min(start+s.batchSize, len(ids))
		if err := s.repo.DeleteMessages(ctx, ids[start:end]); err != nil {
			metrics.MessagesDeleted.Add(float64(deleted))
			return deleted, fmt.Errorf("delete messages batch: %w", err)
		}
		deleted += end - start
	}

	metrics.MessagesDeleted.Add(float64(deleted))
	s.logger.Info("deleted old messages", zap.Int("count", deleted), zap.Time("cutoff", cutoff))
	return deleted, nil
}
