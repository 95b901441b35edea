package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/store"
)

const codeDuplicateKey = 11000

// UpsertResult inserts or replaces the result keyed by (enrollmentNo,
// examId). The upload batch and upload time are re-stamped on update.
func (s *Store) UpsertResult(ctx context.Context, r *domain.ExamResult) (bool, error) {
	now := s.now()
	doc := newResultDoc(r)
	doc.UploadedAt, doc.UpdatedAt = now, now

	set, err := setFields(doc, "_id", "createdAt")
	if err != nil {
		return false, fmt.Errorf("encode result: %w", err)
	}
	id := newID()

	res, err := s.results.UpdateOne(ctx,
		bson.M{"enrollmentNo": r.EnrollmentNo, "examId": r.ExamID},
		bson.M{"$set": set, "$setOnInsert": bson.M{"_id": id, "createdAt": now}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, classify(err)
	}

	r.UploadedAt, r.UpdatedAt = now, now
	if res.UpsertedCount == 1 {
		r.ID, r.CreatedAt = id, now
		return true, nil
	}

	var existing struct {
		ID        string    `bson:"_id"`
		CreatedAt time.Time `bson:"createdAt"`
	}
	err = s.results.FindOne(ctx,
		bson.M{"enrollmentNo": r.EnrollmentNo, "examId": r.ExamID},
		options.FindOne().SetProjection(bson.M{"_id": 1, "createdAt": 1}),
	).Decode(&existing)
	if err != nil {
		return false, classify(err)
	}
	r.ID, r.CreatedAt = existing.ID, existing.CreatedAt
	return false, nil
}

// InsertResults inserts results with one unordered InsertMany. A key that
// already exists is reported as store.ErrDuplicateKey in its slot; the other
// documents are still written.
func (s *Store) InsertResults(ctx context.Context, results []domain.ExamResult) []error {
	errs := make([]error, len(results))
	if len(results) == 0 {
		return errs
	}

	now := s.now()
	docs := make([]any, len(results))
	for i := range results {
		doc := newResultDoc(&results[i])
		doc.ID = newID()
		doc.UploadedAt, doc.CreatedAt, doc.UpdatedAt = now, now, now
		docs[i] = doc
	}

	_, err := s.results.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		var bwe mongo.BulkWriteException
		if !errors.As(err, &bwe) || len(bwe.WriteErrors) == 0 {
			err = classify(err)
			for i := range errs {
				errs[i] = err
			}
			return errs
		}
		for _, we := range bwe.WriteErrors {
			if we.Index < 0 || we.Index >= len(errs) {
				continue
			}
			if we.Code == codeDuplicateKey {
				errs[we.Index] = store.Duplicate(we)
			} else {
				errs[we.Index] = we
			}
		}
	}

	for i := range results {
		if errs[i] == nil {
			doc := docs[i].(resultDoc)
			results[i].ID = doc.ID
			results[i].UploadedAt, results[i].CreatedAt, results[i].UpdatedAt = now, now, now
		}
	}
	return errs
}

// ListResults returns matching results ordered by enrollment number and exam.
func (s *Store) ListResults(ctx context.Context, f domain.ResultFilter) ([]domain.ExamResult, error) {
	filter := bson.M{}
	if f.BatchID != "" {
		filter["uploadBatch"] = f.BatchID
	}
	if f.ExamID != "" {
		filter["examId"] = f.ExamID
	}
	if f.EnrollmentNo != "" {
		filter["enrollmentNo"] = f.EnrollmentNo
	}

	cur, err := s.results.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "enrollmentNo", Value: 1}, {Key: "examId", Value: 1}}))
	if err != nil {
		return nil, classify(err)
	}
	var docs []resultDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}
	out := make([]domain.ExamResult, len(docs))
	for i, d := range docs {
		out[i] = d.result()
	}
	return out, nil
}

// ListBatches groups results by upload batch, most recent first.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]domain.BatchInfo, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"uploadBatch": bson.M{"$ne": ""}}}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$uploadBatch",
			"count":  bson.M{"$sum": 1},
			"latest": bson.M{"$max": "$uploadedAt"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "latest", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cur, err := s.results.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, classify(err)
	}
	var rows []struct {
		BatchID string    `bson:"_id"`
		Count   int64     `bson:"count"`
		Latest  time.Time `bson:"latest"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, classify(err)
	}
	out := make([]domain.BatchInfo, len(rows))
	for i, r := range rows {
		out[i] = domain.BatchInfo{BatchID: r.BatchID, Count: r.Count, LatestUpload: r.Latest}
	}
	return out, nil
}

// DeleteBatch removes every result of a batch and returns how many were removed.
func (s *Store) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	res, err := s.results.DeleteMany(ctx, bson.M{"uploadBatch": batchID})
	if err != nil {
		return 0, classify(err)
	}
	return res.DeletedCount, nil
}
