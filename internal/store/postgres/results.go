package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/store"
)

const resultInsertColumns = `enrollment_no, student_name, exam_id, exam_type, exam_name,
	declaration_date, academic_year, semester,
	institution_code, institution_name, course_code, course_name, branch_code, branch_name,
	subjects, total_credits, earned_credits, spi, cpi, cgpa,
	result, trials, remark, upload_batch`

const resultValues = `$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
	$15::jsonb, $16, $17, $18, $19, $20, $21, $22, $23, $24`

const resultColumns = `id::text, enrollment_no, student_name, exam_id, exam_type, exam_name,
	declaration_date, academic_year, semester,
	institution_code, institution_name, course_code, course_name, branch_code, branch_name,
	subjects, total_credits::text, earned_credits::text, spi::text, cpi::text, cgpa::text,
	result, trials, remark, upload_batch, uploaded_at, created_at, updated_at`

func resultArgs(r *domain.ExamResult) ([]any, error) {
	subjects, err := encodeSubjects(r.Subjects)
	if err != nil {
		return nil, errors.Wrap(err, "encode subjects")
	}
	return []any{
		r.EnrollmentNo, r.StudentName, r.ExamID, r.ExamType, r.ExamName,
		r.DeclarationDate, r.AcademicYear, r.Semester,
		r.InstitutionCode, r.InstitutionName, r.CourseCode, r.CourseName, r.BranchCode, r.BranchName,
		string(subjects),
		toPgNumeric(r.TotalCredits), toPgNumeric(r.EarnedCredits),
		toPgNumeric(r.SPI), toPgNumeric(r.CPI), toPgNumeric(r.CGPA),
		r.Result, r.Trials, r.Remark, r.UploadBatch,
	}, nil
}

// UpsertResult inserts or replaces the result keyed by (enrollment_no,
// exam_id). The upload batch and upload time are re-stamped on update.
func (s *Store) UpsertResult(ctx context.Context, r *domain.ExamResult) (bool, error) {
	args, err := resultArgs(r)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO exam_results (` + resultInsertColumns + `)
		VALUES (` + resultValues + `)
		ON CONFLICT (enrollment_no, exam_id) DO UPDATE SET
			student_name = EXCLUDED.student_name,
			exam_type = EXCLUDED.exam_type,
			exam_name = EXCLUDED.exam_name,
			declaration_date = EXCLUDED.declaration_date,
			academic_year = EXCLUDED.academic_year,
			semester = EXCLUDED.semester,
			institution_code = EXCLUDED.institution_code,
			institution_name = EXCLUDED.institution_name,
			course_code = EXCLUDED.course_code,
			course_name = EXCLUDED.course_name,
			branch_code = EXCLUDED.branch_code,
			branch_name = EXCLUDED.branch_name,
			subjects = EXCLUDED.subjects,
			total_credits = EXCLUDED.total_credits,
			earned_credits = EXCLUDED.earned_credits,
			spi = EXCLUDED.spi,
			cpi = EXCLUDED.cpi,
			cgpa = EXCLUDED.cgpa,
			result = EXCLUDED.result,
			trials = EXCLUDED.trials,
			remark = EXCLUDED.remark,
			upload_batch = EXCLUDED.upload_batch,
			uploaded_at = now(),
			updated_at = now()
		RETURNING id::text, uploaded_at, created_at, updated_at, (xmax = 0)`

	var created bool
	err = s.db.QueryRow(ctx, query, args...).Scan(&r.ID, &r.UploadedAt, &r.CreatedAt, &r.UpdatedAt, &created)
	if err != nil {
		return false, classify(err)
	}
	return created, nil
}

// InsertResults bulk-inserts results in one round trip. Existing keys are
// reported as store.ErrDuplicateKey in their slot. When the batch fails as a
// whole, each row is retried on its own so one bad row does not hide the
// outcome of the others.
func (s *Store) InsertResults(ctx context.Context, results []domain.ExamResult) []error {
	errs := make([]error, len(results))
	query := `INSERT INTO exam_results (` + resultInsertColumns + `) VALUES (` + resultValues + `)
		ON CONFLICT (enrollment_no, exam_id) DO NOTHING
		RETURNING id::text`

	batch := &pgx.Batch{}
	queued := make([]int, 0, len(results))
	for i := range results {
		args, err := resultArgs(&results[i])
		if err != nil {
			errs[i] = err
			continue
		}
		batch.Queue(query, args...)
		queued = append(queued, i)
	}
	if len(queued) == 0 {
		return errs
	}

	if err := s.sendInsertBatch(ctx, batch, results, queued, errs); err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			for _, i := range queued {
				errs[i] = err
			}
			return errs
		}
		for _, i := range queued {
			errs[i] = s.insertOne(ctx, &results[i])
		}
	}
	return errs
}

func (s *Store) sendInsertBatch(ctx context.Context, batch *pgx.Batch, results []domain.ExamResult, queued []int, errs []error) error {
	br := s.db.SendBatch(ctx, batch)
	for _, i := range queued {
		err := br.QueryRow().Scan(&results[i].ID)
		switch {
		case err == nil:
		case errors.Is(err, pgx.ErrNoRows):
			errs[i] = store.ErrDuplicateKey
		default:
			_ = br.Close()
			return classify(err)
		}
	}
	return classify(br.Close())
}

func (s *Store) insertOne(ctx context.Context, r *domain.ExamResult) error {
	args, err := resultArgs(r)
	if err != nil {
		return err
	}
	query := `INSERT INTO exam_results (` + resultInsertColumns + `) VALUES (` + resultValues + `) RETURNING id::text`
	return classify(s.db.QueryRow(ctx, query, args...).Scan(&r.ID))
}

// ListResults returns matching results ordered by enrollment number and exam.
func (s *Store) ListResults(ctx context.Context, f domain.ResultFilter) ([]domain.ExamResult, error) {
	var (
		conds []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}
	add("upload_batch", f.BatchID)
	add("exam_id", f.ExamID)
	add("enrollment_no", f.EnrollmentNo)

	query := `SELECT ` + resultColumns + ` FROM exam_results`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY enrollment_no, exam_id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	results, err := pgx.CollectRows(rows, scanResult)
	if err != nil {
		return nil, classify(err)
	}
	return results, nil
}

func scanResult(row pgx.CollectableRow) (domain.ExamResult, error) {
	var (
		r                             domain.ExamResult
		subjects                      []byte
		total, earned, spi, cpi, cgpa pgtype.Text
	)
	err := row.Scan(
		&r.ID, &r.EnrollmentNo, &r.StudentName, &r.ExamID, &r.ExamType, &r.ExamName,
		&r.DeclarationDate, &r.AcademicYear, &r.Semester,
		&r.InstitutionCode, &r.InstitutionName, &r.CourseCode, &r.CourseName, &r.BranchCode, &r.BranchName,
		&subjects, &total, &earned, &spi, &cpi, &cgpa,
		&r.Result, &r.Trials, &r.Remark, &r.UploadBatch, &r.UploadedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return domain.ExamResult{}, err
	}
	r.Subjects, err = decodeSubjects(subjects)
	if err != nil {
		return domain.ExamResult{}, errors.Wrap(err, "decode subjects")
	}
	r.TotalCredits = parseNumericText(total)
	r.EarnedCredits = parseNumericText(earned)
	r.SPI = parseNumericText(spi)
	r.CPI = parseNumericText(cpi)
	r.CGPA = parseNumericText(cgpa)
	return r, nil
}

// ListBatches returns the most recent upload batches first.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]domain.BatchInfo, error) {
	rows, err := s.db.Query(ctx, `
		SELECT upload_batch, COUNT(*), MAX(uploaded_at)
		FROM exam_results
		WHERE upload_batch <> ''
		GROUP BY upload_batch
		ORDER BY MAX(uploaded_at) DESC, upload_batch
		LIMIT $1`, limit)
	if err != nil {
		return nil, classify(err)
	}
	batches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.BatchInfo, error) {
		var b domain.BatchInfo
		err := row.Scan(&b.BatchID, &b.Count, &b.LatestUpload)
		return b, err
	})
	if err != nil {
		return nil, classify(err)
	}
	return batches, nil
}

// DeleteBatch removes every result of a batch and returns how many were removed.
func (s *Store) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM exam_results WHERE upload_batch = $1`, batchID)
	if err != nil {
		return 0, classify(err)
	}
	return tag.RowsAffected(), nil
}
