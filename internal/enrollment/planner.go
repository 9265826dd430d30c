// Package enrollment decides, for one bulk enrollment call, which students
// join a class and why the others do not. It holds no state: callers load
// the class, the candidate profiles and the current roster under a lock and
// apply the returned plan inside the same transaction.
package enrollment

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/model"
)

// Per-student rejection reasons reported in BulkEnrollResult.Errors.
const (
	MsgAccessDenied     = "Class access denied"
	MsgStudentNotFound  = "Student not found"
	MsgDifferentSchool  = "Student must belong to the same school"
	MsgAlreadyEnrolled  = "Student already enrolled in this class"
	MsgCapacityExceeded = "Class capacity exceeded"
)

// Request is a single enrollment call against one class.
type Request struct {
	ClassID        int
	SchoolID       int // school of the acting teacher
	TeacherID      uuid.UUID
	StudentIDs     []uuid.UUID
	EnrollmentDate time.Time
	Notes          string
}

// Candidate is what the store knows about a requested profile.
type Candidate struct {
	SchoolID int
	Role     model.Role
}

// Input is the locked snapshot the plan is computed from.
type Input struct {
	ClassSchoolID int
	ActorSchoolID int
	Capacity      int
	Enrolled      int
	Requested     []uuid.UUID
	Candidates    map[uuid.UUID]Candidate
	EnrolledSet   map[uuid.UUID]bool
}

// Plan partitions the distinct requested ids.
type Plan struct {
	Accepted []uuid.UUID
	Rejected []model.EnrollmentError
}

// Result converts the plan into the API result.
func (p Plan) Result() *model.BulkEnrollResult {
	res := &model.BulkEnrollResult{
		Results:       make([]uuid.UUID, 0, len(p.Accepted)),
		Errors:        make([]model.EnrollmentError, 0, len(p.Rejected)),
		EnrolledCount: len(p.Accepted),
	}
	res.Results = append(res.Results, p.Accepted...)
	res.Errors = append(res.Errors, p.Rejected...)
	return res
}

// Dedupe drops repeated ids, keeping the first occurrence.
func Dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Build classifies every distinct requested id in request order. Seats are
// handed out first come first served until the class is full.
func Build(in Input) Plan {
	ids := Dedupe(in.Requested)
	plan := Plan{}

	if in.ClassSchoolID != in.ActorSchoolID {
		for _, id := range ids {
			plan.reject(id, MsgAccessDenied)
		}
		return plan
	}

	seats := in.Capacity - in.Enrolled
	if seats < 0 {
		seats = 0
	}

	for _, id := range ids {
		cand, ok := in.Candidates[id]
		switch {
		case !ok || cand.Role != model.RoleStudent:
			plan.reject(id, MsgStudentNotFound)
		case cand.SchoolID != in.ClassSchoolID:
			plan.reject(id, MsgDifferentSchool)
		case in.EnrolledSet[id]:
			plan.reject(id, MsgAlreadyEnrolled)
		case seats == 0:
			plan.reject(id, MsgCapacityExceeded)
		default:
			plan.Accepted = append(plan.Accepted, id)
			seats--
		}
	}
	return plan
}

func (p *Plan) reject(id uuid.UUID, msg string) {
	p.Rejected = append(p.Rejected, model.EnrollmentError{StudentID: id, Error: msg})
}
