package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/milavdabgar/gpp-ingest/internal/domain"
	"github.com/milavdabgar/gpp-ingest/internal/store"
)

const studentColumns = `id::text, enrollment_no, first_name, middle_name, last_name, full_name,
	institutional_email, personal_email, department_id::text, department_code,
	admission_year, batch, semester_status, current_semester,
	gender, category, mobile, date_of_birth,
	is_complete, term_close, is_cancel, is_pass_all,
	status, user_id, created_at, updated_at`

func (s *Store) DepartmentByCode(ctx context.Context, code string) (domain.Department, error) {
	var d domain.Department
	err := s.db.QueryRow(ctx,
		`SELECT id::text, code, name, program_semesters FROM departments WHERE code = $1`, code,
	).Scan(&d.ID, &d.Code, &d.Name, &d.ProgramSemesters)
	if err != nil {
		return domain.Department{}, classify(err)
	}
	return d, nil
}

func studentArgs(st *domain.Student) ([]any, error) {
	statuses, err := json.Marshal(st.SemesterStatus)
	if err != nil {
		return nil, errors.Wrap(err, "encode semester status")
	}
	return []any{
		st.EnrollmentNo, st.FirstName, st.MiddleName, st.LastName, st.FullName,
		st.InstitutionalEmail, st.PersonalEmail, toPgUUID(st.DepartmentID), st.DepartmentCode,
		st.AdmissionYear, st.Batch, string(statuses), st.CurrentSemester,
		st.Gender, st.Category, st.Mobile, st.DateOfBirth,
		st.IsComplete, st.TermClose, st.IsCancel, st.IsPassAll,
		string(st.Status), toPgUUID(st.UserID),
	}, nil
}

const studentInsertColumns = `enrollment_no, first_name, middle_name, last_name, full_name,
	institutional_email, personal_email, department_id, department_code,
	admission_year, batch, semester_status, current_semester,
	gender, category, mobile, date_of_birth,
	is_complete, term_close, is_cancel, is_pass_all,
	status, user_id`

const studentValues = `$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, $13,
	$14, $15, $16, $17, $18, $19, $20, $21, $22, $23`

// UpsertStudent inserts or updates by enrollment number. An existing user
// link is kept when the incoming record has none.
func (s *Store) UpsertStudent(ctx context.Context, st *domain.Student) (bool, error) {
	args, err := studentArgs(st)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		INSERT INTO students (%s)
		VALUES (%s)
		ON CONFLICT (enrollment_no) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			middle_name = EXCLUDED.middle_name,
			last_name = EXCLUDED.last_name,
			full_name = EXCLUDED.full_name,
			institutional_email = EXCLUDED.institutional_email,
			personal_email = EXCLUDED.personal_email,
			department_id = EXCLUDED.department_id,
			department_code = EXCLUDED.department_code,
			admission_year = EXCLUDED.admission_year,
			batch = EXCLUDED.batch,
			semester_status = EXCLUDED.semester_status,
			current_semester = EXCLUDED.current_semester,
			gender = EXCLUDED.gender,
			category = EXCLUDED.category,
			mobile = EXCLUDED.mobile,
			date_of_birth = EXCLUDED.date_of_birth,
			is_complete = EXCLUDED.is_complete,
			term_close = EXCLUDED.term_close,
			is_cancel = EXCLUDED.is_cancel,
			is_pass_all = EXCLUDED.is_pass_all,
			status = EXCLUDED.status,
			user_id = COALESCE(students.user_id, EXCLUDED.user_id),
			updated_at = now()
		RETURNING id::text, user_id, created_at, updated_at, (xmax = 0)`,
		studentInsertColumns, studentValues)

	var (
		userID  pgtype.UUID
		created bool
	)
	err = s.db.QueryRow(ctx, query, args...).Scan(&st.ID, &userID, &st.CreatedAt, &st.UpdatedAt, &created)
	if err != nil {
		return false, classify(err)
	}
	st.UserID = uuidString(userID)
	return created, nil
}

// CreateStudent inserts a new student; an existing enrollment number or
// user link fails with store.ErrDuplicateKey.
func (s *Store) CreateStudent(ctx context.Context, st *domain.Student) error {
	args, err := studentArgs(st)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO students (%s) VALUES (%s) RETURNING id::text, created_at, updated_at`,
		studentInsertColumns, studentValues)
	return classify(s.db.QueryRow(ctx, query, args...).Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt))
}

func (s *Store) StudentByUserID(ctx context.Context, userID string) (domain.Student, error) {
	id := toPgUUID(userID)
	if !id.Valid {
		return domain.Student{}, store.ErrNotFound
	}
	return s.studentWhere(ctx, "user_id = $1", id)
}

func (s *Store) StudentByEnrollmentNo(ctx context.Context, enrollmentNo string) (domain.Student, error) {
	return s.studentWhere(ctx, "enrollment_no = $1", enrollmentNo)
}

func (s *Store) studentWhere(ctx context.Context, cond string, arg any) (domain.Student, error) {
	row := s.db.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE `+cond, arg)
	st, err := scanStudent(row)
	if err != nil {
		return domain.Student{}, classify(err)
	}
	return st, nil
}

func scanStudent(row pgx.Row) (domain.Student, error) {
	var (
		st       domain.Student
		statuses []byte
		status   string
		userID   pgtype.UUID
	)
	err := row.Scan(
		&st.ID, &st.EnrollmentNo, &st.FirstName, &st.MiddleName, &st.LastName, &st.FullName,
		&st.InstitutionalEmail, &st.PersonalEmail, &st.DepartmentID, &st.DepartmentCode,
		&st.AdmissionYear, &st.Batch, &statuses, &st.CurrentSemester,
		&st.Gender, &st.Category, &st.Mobile, &st.DateOfBirth,
		&st.IsComplete, &st.TermClose, &st.IsCancel, &st.IsPassAll,
		&status, &userID, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return domain.Student{}, err
	}
	st.Status = domain.StudentStatus(status)
	st.UserID = uuidString(userID)
	st.SemesterStatus = domain.NewSemesterStatuses()
	if len(statuses) > 0 {
		if err := json.Unmarshal(statuses, &st.SemesterStatus); err != nil {
			return domain.Student{}, errors.Wrap(err, "decode semester status")
		}
	}
	return st, nil
}

// NextEnrollmentSequence advances the year's counter past both its own value
// and the greatest enrollment number stored for the year, so numbers written
// by roster imports are skipped. The counter row lock serializes allocations.
func (s *Store) NextEnrollmentSequence(ctx context.Context, year int) (int, error) {
	prefix := domain.EnrollmentPrefix(year)
	var seq int
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO enrollment_counters (year, seq) VALUES ($1, 0)
			ON CONFLICT (year) DO NOTHING`, year)
		if err != nil {
			return classify(err)
		}
		return classify(tx.QueryRow(ctx, `
			UPDATE enrollment_counters
			SET seq = GREATEST(seq, (
				SELECT COALESCE(MAX(substring(enrollment_no FROM $3::int)::int), 0)
				FROM students
				WHERE enrollment_no ~ ('^' || $2::text || '[0-9]+$')
			)) + 1
			WHERE year = $1
			RETURNING seq`,
			year, prefix, len(prefix)+1,
		).Scan(&seq))
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *Store) UsersByRole(ctx context.Context, role string) ([]domain.User, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, full_name, email, roles, department_code, enrollment_no
		FROM users WHERE $1 = ANY(roles) ORDER BY full_name, id`, role)
	if err != nil {
		return nil, classify(err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.User, error) {
		var u domain.User
		err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Roles, &u.DepartmentCode, &u.EnrollmentNo)
		return u, err
	})
	if err != nil {
		return nil, classify(err)
	}
	return users, nil
}
