package mongo

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/store"
)

func TestResultDocRoundTrip(t *testing.T) {
	in := domain.ExamResult{
		ID:           "r1",
		EnrollmentNo: "20230045",
		ExamID:       "EX-W24",
		Semester:     3,
		Subjects: []domain.Subject{
			{Code: "4330701", Name: "DS", Credits: decimal.RequireFromString("4.5"), Grade: "AA"},
			{Code: "4330703", Name: "CN", Credits: decimal.RequireFromString("3"), Grade: "FF", IsBacklog: true},
		},
		SPI:         decimal.RequireFromString("7.85"),
		CPI:         decimal.RequireFromString("7.9"),
		UploadBatch: "b1",
		UploadedAt:  time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}

	raw, err := bson.Marshal(newResultDoc(&in))
	require.NoError(t, err)
	var doc resultDoc
	require.NoError(t, bson.Unmarshal(raw, &doc))
	out := doc.result()

	assert.Equal(t, in.EnrollmentNo, out.EnrollmentNo)
	assert.Equal(t, "7.85", out.SPI.String())
	assert.Equal(t, "7.9", out.CPI.String())
	assert.True(t, out.CGPA.IsZero())
	require.Len(t, out.Subjects, 2)
	assert.Equal(t, "4.5", out.Subjects[0].Credits.String())
	assert.True(t, out.Subjects[1].IsBacklog)
	assert.True(t, in.UploadedAt.Equal(out.UploadedAt))
}

func TestStudentDocRoundTrip(t *testing.T) {
	statuses := domain.NewSemesterStatuses()
	statuses.Set(1, domain.SemesterCleared)
	statuses.Set(2, domain.SemesterPending)

	in := domain.Student{
		EnrollmentNo:   "20230045",
		FullName:       "Patel Raj",
		SemesterStatus: statuses,
		Status:         domain.StudentGraduated,
	}
	doc := newStudentDoc(&in)
	assert.Equal(t, "CLEARED", doc.SemesterStatus["sem1"])
	assert.Equal(t, "NOT_ATTEMPTED", doc.SemesterStatus["sem8"])

	out := doc.student()
	assert.Equal(t, statuses, out.SemesterStatus)
	assert.Equal(t, domain.StudentGraduated, out.Status)
}

func TestStudentDocOmitsEmptyUserID(t *testing.T) {
	raw, err := bson.Marshal(newStudentDoc(&domain.Student{EnrollmentNo: "1"}))
	require.NoError(t, err)
	_, err = bson.Raw(raw).LookupErr("userId")
	assert.Error(t, err, "an empty link must not be indexed")
}

func TestSetFields(t *testing.T) {
	m, err := setFields(departmentDoc{ID: "x", Code: "06", Name: "CE"}, "_id")
	require.NoError(t, err)
	assert.Equal(t, bson.M{"code": "06", "name": "CE"}, m)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(mongo.ErrNoDocuments), store.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, classify(dup), store.ErrDuplicateKey)

	network := mongo.CommandError{Message: "connection reset", Labels: []string{"NetworkError"}}
	assert.ErrorIs(t, classify(network), store.ErrUnavailable)

	assert.ErrorIs(t, classify(mongo.ErrClientDisconnected), store.ErrUnavailable)

	other := errors.New("document too large")
	assert.Equal(t, other, classify(other))
}
