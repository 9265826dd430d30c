package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/repository"
)

// ClassStore serves classes and teacher assignments.
type ClassStore struct{ db *DB }

// Classes returns the class view of the database.
func (s *DB) Classes() *ClassStore { return &ClassStore{db: s} }

func (c *ClassStore) Create(_ context.Context, class *model.Class) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	c.db.nextClassID++
	now := time.Now()
	class.ID = c.db.nextClassID
	class.CreatedAt, class.UpdatedAt = now, now
	class.UpdatedBy = class.CreatedBy
	c.db.classes[class.ID] = *class

	if class.TeacherID != nil {
		c.db.assignLocked(class.ID, *class.TeacherID, "primary")
	}
	return nil
}

func (c *ClassStore) GetByID(_ context.Context, id int) (*model.Class, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	class, ok := c.db.classes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &class, nil
}

func (c *ClassStore) GetWithDetails(_ context.Context, id int) (*model.ClassWithDetails, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	class, ok := c.db.classes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	d := c.db.detailsLocked(class)
	d.Teachers = []model.ClassTeacher{}
	for _, t := range c.db.teachers[id] {
		d.Teachers = append(d.Teachers, t)
	}
	sortBy(d.Teachers, false, func(a, b model.ClassTeacher) int {
		if (a.Role == "primary") != (b.Role == "primary") {
			if a.Role == "primary" {
				return -1
			}
			return 1
		}
		return a.AssignedDate.Compare(b.AssignedDate)
	})
	return &d, nil
}

func (c *ClassStore) ListByTeacher(_ context.Context, teacherID uuid.UUID, q model.ClassListQuery) ([]model.ClassWithDetails, int, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	var matched []model.ClassWithDetails
	for id, class := range c.db.classes {
		if class.Deleted() {
			continue
		}
		if _, ok := c.db.teachers[id][teacherID]; !ok {
			continue
		}
		if q.Status != "" && class.Status != q.Status {
			continue
		}
		if q.SearchTerm != "" && !containsFold(class.Name, q.SearchTerm) && !containsFold(class.Description, q.SearchTerm) {
			continue
		}
		matched = append(matched, c.db.detailsLocked(class))
	}

	sortBy(matched, strings.EqualFold(q.SortOrder, "desc"), func(a, b model.ClassWithDetails) int {
		var r int
		switch q.SortBy {
		case "name":
			r = strings.Compare(a.Name, b.Name)
		case "level":
			r = strings.Compare(a.Level, b.Level)
		case "student_count":
			r = a.StudentCount - b.StudentCount
		default:
			r = a.CreatedAt.Compare(b.CreatedAt)
		}
		if r == 0 {
			r = a.ID - b.ID
		}
		return r
	})
	return page(matched, q.Offset, q.Limit), len(matched), nil
}

func (c *ClassStore) Update(_ context.Context, class *model.Class) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if cur, ok := c.db.classes[class.ID]; !ok || cur.Deleted() {
		return repository.ErrNotFound
	}
	if class.MaxStudents < len(c.db.roster[class.ID]) {
		return repository.ErrBelowRoster
	}
	class.UpdatedAt = time.Now()
	c.db.classes[class.ID] = *class
	return nil
}

func (c *ClassStore) SoftDelete(_ context.Context, id int, by uuid.UUID) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	class, ok := c.db.classes[id]
	if !ok || class.Deleted() {
		return repository.ErrNotFound
	}
	if len(c.db.roster[id]) > 0 {
		return repository.ErrRosterNotEmpty
	}
	now := time.Now()
	class.Status = model.ClassArchived
	class.DeletedAt = &now
	class.UpdatedBy = &by
	class.UpdatedAt = now
	c.db.classes[id] = class
	return nil
}

func (c *ClassStore) Restore(_ context.Context, id int, by uuid.UUID) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	class, ok := c.db.classes[id]
	if !ok || !class.Deleted() {
		return repository.ErrNotFound
	}
	class.Status = model.ClassActive
	class.DeletedAt = nil
	class.UpdatedBy = &by
	class.UpdatedAt = time.Now()
	c.db.classes[id] = class
	return nil
}

func (c *ClassStore) NameExists(_ context.Context, schoolID int, name string, excludeID int) (bool, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	for id, class := range c.db.classes {
		if id == excludeID || class.SchoolID != schoolID || class.Deleted() || class.Status == model.ClassArchived {
			continue
		}
		if strings.EqualFold(class.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (c *ClassStore) IsTeacherAssigned(_ context.Context, classID int, teacherID uuid.UUID) (bool, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	_, ok := c.db.teachers[classID][teacherID]
	return ok, nil
}

func (c *ClassStore) AssignTeacher(_ context.Context, classID int, teacherID uuid.UUID, role string) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	class, ok := c.db.classes[classID]
	if !ok {
		return repository.ErrNotFound
	}
	c.db.assignLocked(classID, teacherID, role)
	if role == "primary" {
		class.TeacherID = &teacherID
		c.db.classes[classID] = class
	}
	return nil
}

func (c *ClassStore) RemoveTeacher(_ context.Context, classID int, teacherID uuid.UUID) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if _, ok := c.db.teachers[classID][teacherID]; !ok {
		return repository.ErrNotFound
	}
	delete(c.db.teachers[classID], teacherID)
	if class := c.db.classes[classID]; class.TeacherID != nil && *class.TeacherID == teacherID {
		class.TeacherID = nil
		c.db.classes[classID] = class
	}
	return nil
}

func (c *ClassStore) CountStudents(_ context.Context, classID int) (int, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	return len(c.db.roster[classID]), nil
}

func (s *DB) assignLocked(classID int, teacherID uuid.UUID, role string) {
	if s.teachers[classID] == nil {
		s.teachers[classID] = map[uuid.UUID]model.ClassTeacher{}
	}
	s.teachers[classID][teacherID] = model.ClassTeacher{
		UserID:       teacherID,
		FullName:     s.profiles[teacherID].FullName,
		Role:         role,
		AssignedDate: time.Now(),
	}
}

func (s *DB) detailsLocked(class model.Class) model.ClassWithDetails {
	return model.ClassWithDetails{
		Class:        class,
		StudentCount: len(s.roster[class.ID]),
		TeacherCount: len(s.teachers[class.ID]),
	}
}
