package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/store"
)

func (s *Store) DepartmentByCode(ctx context.Context, code string) (domain.Department, error) {
	var d departmentDoc
	if err := s.departments.FindOne(ctx, bson.M{"code": code}).Decode(&d); err != nil {
		return domain.Department{}, classify(err)
	}
	return domain.Department{ID: d.ID, Code: d.Code, Name: d.Name, ProgramSemesters: d.ProgramSemesters}, nil
}

// setFields marshals doc into an update document without the given keys.
func setFields(doc any, omit ...string) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for _, key := range omit {
		delete(m, key)
	}
	return m, nil
}

// UpsertStudent inserts or updates by enrollment number. An existing user
// link is kept when the incoming record has none.
func (s *Store) UpsertStudent(ctx context.Context, st *domain.Student) (bool, error) {
	now := s.now()
	doc := newStudentDoc(st)
	doc.UpdatedAt = now

	set, err := setFields(doc, "_id", "createdAt", "userId")
	if err != nil {
		return false, fmt.Errorf("encode student: %w", err)
	}
	id := newID()
	onInsert := bson.M{"_id": id, "createdAt": now}
	if st.UserID != "" {
		onInsert["userId"] = st.UserID
	}

	res, err := s.students.UpdateOne(ctx,
		bson.M{"enrollmentNo": st.EnrollmentNo},
		bson.M{"$set": set, "$setOnInsert": onInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, classify(err)
	}
	if res.UpsertedCount == 1 {
		st.ID, st.CreatedAt, st.UpdatedAt = id, now, now
		return true, nil
	}

	if st.UserID != "" {
		_, err = s.students.UpdateOne(ctx,
			bson.M{"enrollmentNo": st.EnrollmentNo, "userId": bson.M{"$exists": false}},
			bson.M{"$set": bson.M{"userId": st.UserID}},
		)
		if err != nil {
			return false, classify(err)
		}
	}

	current, err := s.StudentByEnrollmentNo(ctx, st.EnrollmentNo)
	if err != nil {
		return false, err
	}
	st.ID, st.CreatedAt, st.UpdatedAt, st.UserID = current.ID, current.CreatedAt, current.UpdatedAt, current.UserID
	return false, nil
}

// CreateStudent inserts a new student; an existing enrollment number or
// user link fails with store.ErrDuplicateKey.
func (s *Store) CreateStudent(ctx context.Context, st *domain.Student) error {
	now := s.now()
	doc := newStudentDoc(st)
	doc.ID = newID()
	doc.CreatedAt, doc.UpdatedAt = now, now

	if _, err := s.students.InsertOne(ctx, doc); err != nil {
		return classify(err)
	}
	st.ID, st.CreatedAt, st.UpdatedAt = doc.ID, now, now
	return nil
}

func (s *Store) StudentByUserID(ctx context.Context, userID string) (domain.Student, error) {
	if userID == "" {
		return domain.Student{}, store.ErrNotFound
	}
	return s.findStudent(ctx, bson.M{"userId": userID})
}

func (s *Store) StudentByEnrollmentNo(ctx context.Context, enrollmentNo string) (domain.Student, error) {
	return s.findStudent(ctx, bson.M{"enrollmentNo": enrollmentNo})
}

func (s *Store) findStudent(ctx context.Context, filter bson.M) (domain.Student, error) {
	var doc studentDoc
	if err := s.students.FindOne(ctx, filter).Decode(&doc); err != nil {
		return domain.Student{}, classify(err)
	}
	return doc.student(), nil
}

type counterDoc struct {
	Year int `bson:"_id"`
	Seq  int `bson:"seq"`
}

// NextEnrollmentSequence raises the year's counter with $max to the greatest
// stored enrollment number, then increments it with $inc. Numbers written by
// roster imports are therefore skipped, and concurrent callers converge.
func (s *Store) NextEnrollmentSequence(ctx context.Context, year int) (int, error) {
	if err := s.raiseCounter(ctx, year); err != nil {
		return 0, err
	}

	var c counterDoc
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": year},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, classify(err)
	}
	return c.Seq, nil
}

// raiseCounter sets the counter to at least the greatest stored sequence.
// Allocated numbers are fixed width, so the lexically greatest match is the
// numerically greatest one.
func (s *Store) raiseCounter(ctx context.Context, year int) error {
	prefix := domain.EnrollmentPrefix(year)
	var doc struct {
		EnrollmentNo string `bson:"enrollmentNo"`
	}
	err := s.students.FindOne(ctx,
		bson.M{"enrollmentNo": bson.M{"$regex": fmt.Sprintf("^%s[0-9]{%d}$", prefix, domain.EnrollmentSeqWidth)}},
		options.FindOne().
			SetSort(bson.D{{Key: "enrollmentNo", Value: -1}}).
			SetProjection(bson.M{"enrollmentNo": 1}),
	).Decode(&doc)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return classify(err)
	}
	greatest, _ := domain.EnrollmentSequence(doc.EnrollmentNo, year)

	_, err = s.counters.UpdateOne(ctx,
		bson.M{"_id": year},
		bson.M{"$max": bson.M{"seq": greatest}},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent caller created the counter first
		return nil
	}
	return classify(err)
}

func (s *Store) UsersByRole(ctx context.Context, role string) ([]domain.User, error) {
	cur, err := s.users.Find(ctx,
		bson.M{"roles": role},
		options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, classify(err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err)
	}
	users := make([]domain.User, len(docs))
	for i, d := range docs {
		users[i] = domain.User{
			ID:             d.ID,
			FullName:       d.FullName,
			Email:          d.Email,
			Roles:          d.Roles,
			DepartmentCode: d.DepartmentCode,
			EnrollmentNo:   d.EnrollmentNo,
		}
	}
	return users, nil
}
