package ingest

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/logging"
)

// NewBatchID returns a fresh opaque batch identifier.
func NewBatchID() string {
	return uuid.NewString()
}

// ListBatches returns the most recent result batches with their record
// counts, newest first.
func (s *Service) ListBatches(ctx context.Context) ([]domain.BatchInfo, error) {
	batches, err := s.store.ListBatches(ctx, s.opts.BatchListLimit)
	if err != nil {
		return nil, errors.Wrap(err, "list batches")
	}
	return batches, nil
}

// DeleteBatchResult reports the outcome of a batch deletion.
type DeleteBatchResult struct {
	BatchID      string `json:"batchId"`
	DeletedCount int64  `json:"deletedCount"`
	NotFound     bool   `json:"notFound,omitempty"`
}

// DeleteBatch removes every result written by one import run. Deleting an
// unknown batch is not an error; the result has NotFound set.
func (s *Service) DeleteBatch(ctx context.Context, batchID string) (*DeleteBatchResult, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, ErrBatchIDRequired
	}

	n, err := s.store.DeleteBatch(ctx, batchID)
	if err != nil {
		return nil, errors.Wrapf(err, "delete batch %s", batchID)
	}

	result := &DeleteBatchResult{BatchID: batchID, DeletedCount: n, NotFound: n == 0}
	log := logging.WithFields(ctx, logrus.Fields{"batch": batchID, "deleted": n})
	if result.NotFound {
		log.Warn("batch delete matched no results")
	} else {
		log.Info("batch deleted")
	}
	return result, nil
}
