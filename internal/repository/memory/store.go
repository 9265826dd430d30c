// Package memory implements the service store interfaces in process memory.
// It follows the same locking and enrollment rules as the PostgreSQL
// repositories and backs the service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/model"
)

// DB is a goroutine-safe in-memory database. Its store views share one lock.
type DB struct {
	mu sync.Mutex

	profiles map[uuid.UUID]model.Profile
	students map[uuid.UUID]model.Student
	classes  map[int]model.Class
	teachers map[int]map[uuid.UUID]model.ClassTeacher
	roster   map[int]map[uuid.UUID]model.StudentWithDetails
	audit    []model.AuditEntry
	events   []model.RosterEvent
	revoked  map[string]time.Time

	listeners map[int]map[chan model.RosterEvent]struct{}

	nextClassID int
	nextAuditID int64
	enrollCalls int

	// EnrollFault, when set, is consulted with the 1-based call number
	// before every EnrollStudents call. A non-nil result fails the call
	// without touching the roster.
	EnrollFault func(call int) error
}

// New returns an empty store.
func New() *DB {
	return &DB{
		profiles: map[uuid.UUID]model.Profile{},
		students: map[uuid.UUID]model.Student{},
		classes:  map[int]model.Class{},
		teachers: map[int]map[uuid.UUID]model.ClassTeacher{},
		roster:   map[int]map[uuid.UUID]model.StudentWithDetails{},
		revoked:  map[string]time.Time{},

		listeners: map[int]map[chan model.RosterEvent]struct{}{},
	}
}

// ─── Seeding ────────────────────────────────────────────────────────────────

// AddTeacher stores a teacher profile and returns its id.
func (s *DB) AddTeacher(schoolID int, name string) uuid.UUID {
	return s.AddProfile(model.Profile{SchoolID: schoolID, FullName: name, Role: model.RoleTeacher})
}

// AddProfile stores a profile, generating an id when it has none.
func (s *DB) AddProfile(p model.Profile) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.profiles[p.ID] = p
	return p.ID
}

// AddStudent stores a student profile with its details and returns its id.
func (s *DB) AddStudent(st model.Student) uuid.UUID {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	s.AddProfile(model.Profile{ID: st.ID, SchoolID: st.SchoolID, FullName: st.FullName, Role: model.RoleStudent})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
	return st.ID
}

// AddStudents stores n students of a school and returns their ids.
func (s *DB) AddStudents(schoolID, n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = s.AddStudent(model.Student{
			SchoolID: schoolID,
			FullName: "Student " + uuid.NewString()[:8],
			NIS:      uuid.NewString()[:6],
			Gender:   model.GenderFemale,
			Boarding: model.BoardingDay,
		})
	}
	return ids
}

// AddClass stores an active class taught by teacherID and returns its id.
func (s *DB) AddClass(schoolID int, teacherID uuid.UUID, name string, capacity int) int {
	c := &model.Class{
		SchoolID:     schoolID,
		TeacherID:    &teacherID,
		Name:         name,
		Level:        "10",
		MaxStudents:  capacity,
		AcademicYear: "2026/2027",
		Semester:     "1",
		Status:       model.ClassActive,
		CreatedBy:    &teacherID,
	}
	_ = s.Classes().Create(context.Background(), c)
	return c.ID
}

// Enroll puts students on a roster directly, bypassing capacity checks.
func (s *DB) Enroll(classID int, ids ...uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.addToRosterLocked(classID, id, time.Now(), "")
	}
}

// ─── Inspection ─────────────────────────────────────────────────────────────

// EnrollCalls returns how many times EnrollStudents was called.
func (s *DB) EnrollCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enrollCalls
}

// RosterSize returns the number of students enrolled in a class.
func (s *DB) RosterSize(classID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.roster[classID])
}

// AuditEntries returns a copy of every recorded audit entry.
func (s *DB) AuditEntries() []model.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditEntry(nil), s.audit...)
}

// Events returns a copy of every published roster event.
func (s *DB) Events() []model.RosterEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RosterEvent(nil), s.events...)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func page[T any](items []T, offset, limit int) []T {
	out := []T{}
	if offset >= len(items) {
		return out
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return append(out, items[offset:end]...)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

func sortBy[T any](items []T, desc bool, less func(a, b T) int) {
	sort.SliceStable(items, func(i, j int) bool {
		c := less(items[i], items[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

