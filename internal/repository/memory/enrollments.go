package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/enrollment"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/repository"
)

// EnrollmentStore serves class rosters.
type EnrollmentStore struct{ db *DB }

// Enrollments returns the roster view of the database.
func (s *DB) Enrollments() *EnrollmentStore { return &EnrollmentStore{db: s} }

// EnrollStudents applies an enrollment plan under the database lock, the
// in-memory counterpart of the class row lock.
func (e *EnrollmentStore) EnrollStudents(ctx context.Context, req enrollment.Request) (*model.BulkEnrollResult, error) {
	e.db.mu.Lock()
	e.db.enrollCalls++
	call := e.db.enrollCalls
	fault := e.db.EnrollFault
	e.db.mu.Unlock()

	if fault != nil {
		if err := fault(call); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.db.mu.Lock()
	defer e.db.mu.Unlock()

	class, ok := e.db.classes[req.ClassID]
	if !ok || class.Deleted() {
		return nil, repository.ErrNotFound
	}

	in := enrollment.Input{
		ClassSchoolID: class.SchoolID,
		ActorSchoolID: req.SchoolID,
		Capacity:      class.MaxStudents,
		Enrolled:      len(e.db.roster[req.ClassID]),
		Requested:     req.StudentIDs,
		Candidates:    make(map[uuid.UUID]enrollment.Candidate, len(req.StudentIDs)),
		EnrolledSet:   make(map[uuid.UUID]bool),
	}
	for _, id := range req.StudentIDs {
		if p, ok := e.db.profiles[id]; ok {
			in.Candidates[id] = enrollment.Candidate{SchoolID: p.SchoolID, Role: p.Role}
		}
		if _, ok := e.db.roster[req.ClassID][id]; ok {
			in.EnrolledSet[id] = true
		}
	}

	plan := enrollment.Build(in)
	for _, id := range plan.Accepted {
		e.db.addToRosterLocked(req.ClassID, id, req.EnrollmentDate, req.Notes)
	}
	return plan.Result(), nil
}

func (e *EnrollmentStore) ListAvailable(_ context.Context, classID, schoolID int, q model.AvailableStudentsQuery) ([]model.Student, int, error) {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()

	var matched []model.Student
	for id, st := range e.db.students {
		if st.SchoolID != schoolID || e.db.profiles[id].Role != model.RoleStudent {
			continue
		}
		if _, enrolled := e.db.roster[classID][id]; enrolled {
			continue
		}
		if q.SearchTerm != "" && !containsFold(st.FullName, q.SearchTerm) && !containsFold(st.NIS, q.SearchTerm) {
			continue
		}
		if (q.Gender != "" && st.Gender != q.Gender) || (q.Boarding != "" && st.Boarding != q.Boarding) {
			continue
		}
		matched = append(matched, st)
	}

	sortBy(matched, false, func(a, b model.Student) int {
		if r := strings.Compare(a.FullName, b.FullName); r != 0 {
			return r
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return page(matched, (q.Page-1)*q.Limit, q.Limit), len(matched), nil
}

func (e *EnrollmentStore) ListEnrolled(_ context.Context, classID int, q model.ClassStudentsQuery) ([]model.StudentWithDetails, int, error) {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()

	var matched []model.StudentWithDetails
	for _, st := range e.db.roster[classID] {
		if q.SearchTerm != "" && !containsFold(st.FullName, q.SearchTerm) && !containsFold(st.NIS, q.SearchTerm) {
			continue
		}
		matched = append(matched, st)
	}

	sortBy(matched, strings.EqualFold(q.SortOrder, "desc"), func(a, b model.StudentWithDetails) int {
		var r int
		switch q.SortBy {
		case "nis":
			r = strings.Compare(a.NIS, b.NIS)
		case "enrollment_date":
			r = a.EnrollmentDate.Compare(b.EnrollmentDate)
		default:
			r = strings.Compare(a.FullName, b.FullName)
		}
		if r == 0 {
			r = strings.Compare(a.ID.String(), b.ID.String())
		}
		return r
	})
	return page(matched, q.Offset, q.Limit), len(matched), nil
}

func (e *EnrollmentStore) Remove(_ context.Context, classID int, studentID uuid.UUID) error {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	if _, ok := e.db.roster[classID][studentID]; !ok {
		return repository.ErrNotFound
	}
	delete(e.db.roster[classID], studentID)
	return nil
}

func (s *DB) addToRosterLocked(classID int, id uuid.UUID, date time.Time, notes string) {
	if s.roster[classID] == nil {
		s.roster[classID] = map[uuid.UUID]model.StudentWithDetails{}
	}
	st, ok := s.students[id]
	if !ok {
		p := s.profiles[id]
		st = model.Student{ID: id, SchoolID: p.SchoolID, FullName: p.FullName}
	}
	s.roster[classID][id] = model.StudentWithDetails{Student: st, EnrollmentDate: date, Notes: notes}
}
