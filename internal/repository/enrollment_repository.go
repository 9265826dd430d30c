package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/classroom-backend/internal/enrollment"
	"github.com/stemsi/classroom-backend/internal/model"
)

// EnrollmentRepository handles the class_students roster.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// EnrollStudents enrolls a batch of students into one class in a single
// transaction. The class row is locked FOR UPDATE first, so concurrent
// batches for the same class are serialized and the seat count read here
// stays valid until commit. Students that cannot be enrolled are reported
// per id; the batch as a whole only fails on database errors.
func (r *EnrollmentRepository) EnrollStudents(ctx context.Context, req enrollment.Request) (*model.BulkEnrollResult, error) {
	var result *model.BulkEnrollResult

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		in := enrollment.Input{
			ActorSchoolID: req.SchoolID,
			Requested:     req.StudentIDs,
			Candidates:    make(map[uuid.UUID]enrollment.Candidate, len(req.StudentIDs)),
			EnrolledSet:   make(map[uuid.UUID]bool),
		}

		err := tx.QueryRow(ctx,
			`SELECT school_id, max_students FROM classes
			 WHERE id = $1 AND deleted_at IS NULL
			 FOR UPDATE`, req.ClassID,
		).Scan(&in.ClassSchoolID, &in.Capacity)
		if err != nil {
			return err
		}

		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM class_students WHERE class_id = $1`, req.ClassID,
		).Scan(&in.Enrolled); err != nil {
			return err
		}

		if err := loadCandidates(ctx, tx, req.StudentIDs, in.Candidates); err != nil {
			return err
		}

		rows, err := tx.Query(ctx,
			`SELECT student_id FROM class_students WHERE class_id = $1 AND student_id = ANY($2)`,
			req.ClassID, req.StudentIDs)
		if err != nil {
			return err
		}
		enrolled, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
		if err != nil {
			return err
		}
		for _, id := range enrolled {
			in.EnrolledSet[id] = true
		}

		plan := enrollment.Build(in)
		if len(plan.Accepted) > 0 {
			date := req.EnrollmentDate
			inserted, err := tx.CopyFrom(ctx,
				pgx.Identifier{"class_students"},
				[]string{"class_id", "student_id", "enrollment_date", "notes", "enrolled_by"},
				pgx.CopyFromSlice(len(plan.Accepted), func(i int) ([]any, error) {
					return []any{req.ClassID, plan.Accepted[i], date, req.Notes, req.TeacherID}, nil
				}),
			)
			if err != nil {
				return err
			}
			if int(inserted) != len(plan.Accepted) {
				return fmt.Errorf("copy class_students: inserted %d of %d rows", inserted, len(plan.Accepted))
			}
		}

		result = plan.Result()
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}

func loadCandidates(ctx context.Context, tx pgx.Tx, ids []uuid.UUID, into map[uuid.UUID]enrollment.Candidate) error {
	rows, err := tx.Query(ctx,
		`SELECT id, COALESCE(school_id, 0), role FROM profiles WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var c enrollment.Candidate
		if err := rows.Scan(&id, &c.SchoolID, &c.Role); err != nil {
			return err
		}
		into[id] = c
	}
	return rows.Err()
}

const studentColumns = `p.id, p.school_id, p.full_name, COALESCE(sd.nis, ''), COALESCE(sd.gender, ''), COALESCE(sd.boarding, '')`

// ListAvailable pages through students of a school not yet enrolled in the class.
// Filtering, counting and pagination all run in the database.
func (r *EnrollmentRepository) ListAvailable(ctx context.Context, classID, schoolID int, q model.AvailableStudentsQuery) ([]model.Student, int, error) {
	var w whereBuilder
	w.add("p.role = 'student'")
	w.add("p.school_id = ?", schoolID)
	w.add("NOT EXISTS (SELECT 1 FROM class_students cs WHERE cs.class_id = ? AND cs.student_id = p.id)", classID)
	if q.SearchTerm != "" {
		pattern := containsPattern(q.SearchTerm)
		w.add("(p.full_name ILIKE ? OR sd.nis ILIKE ?)", pattern, pattern)
	}
	if q.Gender != "" {
		w.add("sd.gender = ?", q.Gender)
	}
	if q.Boarding != "" {
		w.add("sd.boarding = ?", q.Boarding)
	}

	from := ` FROM profiles p LEFT JOIN student_details sd ON sd.user_id = p.id`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}

	where := w.sql()
	limit := w.next(q.Limit)
	offset := w.next((q.Page - 1) * q.Limit)

	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+from+where+` ORDER BY p.full_name, p.id LIMIT `+limit+` OFFSET `+offset,
		w.args...)
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()

	students := []model.Student{}
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.SchoolID, &s.FullName, &s.NIS, &s.Gender, &s.Boarding); err != nil {
			return nil, 0, classify(err)
		}
		students = append(students, s)
	}
	return students, total, classify(rows.Err())
}

var rosterSortColumns = map[string]string{
	"full_name":       "p.full_name",
	"nis":             "sd.nis",
	"enrollment_date": "cs.enrollment_date",
}

// ListEnrolled pages through the roster of a class.
func (r *EnrollmentRepository) ListEnrolled(ctx context.Context, classID int, q model.ClassStudentsQuery) ([]model.StudentWithDetails, int, error) {
	var w whereBuilder
	w.add("cs.class_id = ?", classID)
	if q.SearchTerm != "" {
		pattern := containsPattern(q.SearchTerm)
		w.add("(p.full_name ILIKE ? OR sd.nis ILIKE ?)", pattern, pattern)
	}

	from := ` FROM class_students cs
		 JOIN profiles p ON p.id = cs.student_id
		 LEFT JOIN student_details sd ON sd.user_id = p.id`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}

	sortCol, ok := rosterSortColumns[q.SortBy]
	if !ok {
		sortCol = "p.full_name"
	}
	where := w.sql()
	limit := w.next(q.Limit)
	offset := w.next(q.Offset)

	query := fmt.Sprintf(`SELECT %s, cs.enrollment_date, COALESCE(cs.notes, '')%s%s ORDER BY %s %s, p.id LIMIT %s OFFSET %s`,
		studentColumns, from, where, sortCol, orderDirection(q.SortOrder), limit, offset)

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()

	students := []model.StudentWithDetails{}
	for rows.Next() {
		var s model.StudentWithDetails
		if err := rows.Scan(&s.ID, &s.SchoolID, &s.FullName, &s.NIS, &s.Gender, &s.Boarding, &s.EnrollmentDate, &s.Notes); err != nil {
			return nil, 0, classify(err)
		}
		students = append(students, s)
	}
	return students, total, classify(rows.Err())
}

// Remove takes a student off a class roster.
func (r *EnrollmentRepository) Remove(ctx context.Context, classID int, studentID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM class_students WHERE class_id = $1 AND student_id = $2`, classID, studentID)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
