package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/classroom-backend/internal/model"
)

// ClassRepository handles class and class-teacher data access.
type ClassRepository struct {
	pool *pgxpool.Pool
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

const classColumns = `c.id, c.school_id, c.teacher_id, c.name, c.level, c.description, c.max_students,
	c.academic_year, c.semester, c.status, c.created_by, c.updated_by, c.created_at, c.updated_at, c.deleted_at`

func classDest(c *model.Class) []interface{} {
	return []interface{}{
		&c.ID, &c.SchoolID, &c.TeacherID, &c.Name, &c.Level, &c.Description, &c.MaxStudents,
		&c.AcademicYear, &c.Semester, &c.Status, &c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	}
}

// Create inserts a class and, when TeacherID is set, assigns that teacher
// as primary in the same transaction.
func (r *ClassRepository) Create(ctx context.Context, c *model.Class) error {
	return classify(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO classes (school_id, teacher_id, name, level, description, max_students,
			                      academic_year, semester, status, created_by, updated_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
			 RETURNING id, created_at, updated_at`,
			c.SchoolID, c.TeacherID, c.Name, c.Level, c.Description, c.MaxStudents,
			c.AcademicYear, c.Semester, c.Status, c.CreatedBy,
		).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return err
		}
		c.UpdatedBy = c.CreatedBy

		if c.TeacherID == nil {
			return nil
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO class_teachers (class_id, user_id, role) VALUES ($1, $2, 'primary')`,
			c.ID, *c.TeacherID,
		)
		return err
	}))
}

// GetByID retrieves a class by ID, soft-deleted classes included.
func (r *ClassRepository) GetByID(ctx context.Context, id int) (*model.Class, error) {
	c := &model.Class{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+classColumns+` FROM classes c WHERE c.id = $1`, id,
	).Scan(classDest(c)...)
	if err != nil {
		return nil, classify(err)
	}
	return c, nil
}

// GetWithDetails retrieves a class with its counts and teachers.
func (r *ClassRepository) GetWithDetails(ctx context.Context, id int) (*model.ClassWithDetails, error) {
	d := &model.ClassWithDetails{}
	dest := append(classDest(&d.Class), &d.StudentCount)
	err := r.pool.QueryRow(ctx,
		`SELECT `+classColumns+`,
		        (SELECT COUNT(*) FROM class_students cs WHERE cs.class_id = c.id)
		 FROM classes c WHERE c.id = $1`, id,
	).Scan(dest...)
	if err != nil {
		return nil, classify(err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT ct.user_id, p.full_name, ct.role, ct.assigned_date
		 FROM class_teachers ct
		 JOIN profiles p ON p.id = ct.user_id
		 WHERE ct.class_id = $1
		 ORDER BY ct.role = 'primary' DESC, ct.assigned_date`, id)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	d.Teachers = []model.ClassTeacher{}
	for rows.Next() {
		var t model.ClassTeacher
		if err := rows.Scan(&t.UserID, &t.FullName, &t.Role, &t.AssignedDate); err != nil {
			return nil, classify(err)
		}
		d.Teachers = append(d.Teachers, t)
	}
	d.TeacherCount = len(d.Teachers)
	return d, classify(rows.Err())
}

var classSortColumns = map[string]string{
	"name":          "c.name",
	"level":         "c.level",
	"student_count": "student_count",
	"created_at":    "c.created_at",
}

// ListByTeacher lists the live classes a teacher is assigned to.
func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherID uuid.UUID, q model.ClassListQuery) ([]model.ClassWithDetails, int, error) {
	var w whereBuilder
	w.add("c.deleted_at IS NULL")
	w.add("EXISTS (SELECT 1 FROM class_teachers ct WHERE ct.class_id = c.id AND ct.user_id = ?)", teacherID)
	if q.Status != "" {
		w.add("c.status = ?", q.Status)
	}
	if q.SearchTerm != "" {
		pattern := containsPattern(q.SearchTerm)
		w.add("(c.name ILIKE ? OR c.description ILIKE ?)", pattern, pattern)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM classes c`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}

	sortCol, ok := classSortColumns[q.SortBy]
	if !ok {
		sortCol = "c.created_at"
	}
	where := w.sql()
	limit := w.next(q.Limit)
	offset := w.next(q.Offset)

	query := fmt.Sprintf(
		`SELECT `+classColumns+`,
		        (SELECT COUNT(*) FROM class_students cs WHERE cs.class_id = c.id) AS student_count,
		        (SELECT COUNT(*) FROM class_teachers ct WHERE ct.class_id = c.id) AS teacher_count
		 FROM classes c%s
		 ORDER BY %s %s, c.id
		 LIMIT %s OFFSET %s`,
		where, sortCol, orderDirection(q.SortOrder), limit, offset)

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()

	classes := []model.ClassWithDetails{}
	for rows.Next() {
		var d model.ClassWithDetails
		dest := append(classDest(&d.Class), &d.StudentCount, &d.TeacherCount)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, classify(err)
		}
		classes = append(classes, d)
	}
	return classes, total, classify(rows.Err())
}

// Update writes the editable columns of a class.
func (r *ClassRepository) Update(ctx context.Context, c *model.Class) error {
	return classify(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		enrolled, err := lockClass(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		if c.MaxStudents < enrolled {
			return ErrBelowRoster
		}
		return tx.QueryRow(ctx,
			`UPDATE classes
			 SET name = $1, level = $2, description = $3, max_students = $4, academic_year = $5,
			     semester = $6, status = $7, teacher_id = $8, updated_by = $9, updated_at = NOW()
			 WHERE id = $10
			 RETURNING updated_at`,
			c.Name, c.Level, c.Description, c.MaxStudents, c.AcademicYear,
			c.Semester, c.Status, c.TeacherID, c.UpdatedBy, c.ID,
		).Scan(&c.UpdatedAt)
	}))
}

// SoftDelete archives a live class. It holds the class row lock taken by
// EnrollStudents, so no enrollment can commit between the roster check and
// the archive.
func (r *ClassRepository) SoftDelete(ctx context.Context, id int, by uuid.UUID) error {
	return classify(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		enrolled, err := lockClass(ctx, tx, id)
		if err != nil {
			return err
		}
		if enrolled > 0 {
			return ErrRosterNotEmpty
		}
		tag, err := tx.Exec(ctx,
			`UPDATE classes
			 SET status = 'archived', deleted_at = NOW(), updated_by = $2, updated_at = NOW()
			 WHERE id = $1`, id, by)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	}))
}

// lockClass locks a live class row and returns its roster size.
func lockClass(ctx context.Context, tx pgx.Tx, id int) (int, error) {
	var locked int
	err := tx.QueryRow(ctx,
		`SELECT id FROM classes WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id,
	).Scan(&locked)
	if err != nil {
		return 0, err
	}
	var n int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM class_students WHERE class_id = $1`, id,
	).Scan(&n)
	return n, err
}

// Restore brings a soft-deleted class back as active.
func (r *ClassRepository) Restore(ctx context.Context, id int, by uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE classes
		 SET status = 'active', deleted_at = NULL, updated_by = $2, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NOT NULL`, id, by)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// NameExists reports whether another live, non-archived class of the school
// uses the name, compared case-insensitively.
func (r *ClassRepository) NameExists(ctx context.Context, schoolID int, name string, excludeID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM classes
		     WHERE school_id = $1 AND lower(name) = lower($2) AND id <> $3
		       AND deleted_at IS NULL AND status <> 'archived')`,
		schoolID, name, excludeID,
	).Scan(&exists)
	return exists, classify(err)
}

// IsTeacherAssigned reports whether the teacher is associated with the class.
func (r *ClassRepository) IsTeacherAssigned(ctx context.Context, classID int, teacherID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM class_teachers WHERE class_id = $1 AND user_id = $2)`,
		classID, teacherID,
	).Scan(&ok)
	return ok, classify(err)
}

// AssignTeacher adds or updates a teacher assignment. A primary assignment
// also becomes the class's teacher_id.
func (r *ClassRepository) AssignTeacher(ctx context.Context, classID int, teacherID uuid.UUID, role string) error {
	return classify(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO class_teachers (class_id, user_id, role) VALUES ($1, $2, $3)
			 ON CONFLICT (class_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
			classID, teacherID, role,
		); err != nil {
			return err
		}
		if role != "primary" {
			return nil
		}
		_, err := tx.Exec(ctx,
			`UPDATE classes SET teacher_id = $2, updated_at = NOW() WHERE id = $1`, classID, teacherID)
		return err
	}))
}

// RemoveTeacher deletes a teacher assignment.
func (r *ClassRepository) RemoveTeacher(ctx context.Context, classID int, teacherID uuid.UUID) error {
	return classify(pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM class_teachers WHERE class_id = $1 AND user_id = $2`, classID, teacherID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		_, err = tx.Exec(ctx,
			`UPDATE classes SET teacher_id = NULL, updated_at = NOW() WHERE id = $1 AND teacher_id = $2`,
			classID, teacherID)
		return err
	}))
}

// CountStudents returns the number of students enrolled in a class.
func (r *ClassRepository) CountStudents(ctx context.Context, classID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM class_students WHERE class_id = $1`, classID,
	).Scan(&n)
	return n, classify(err)
}
