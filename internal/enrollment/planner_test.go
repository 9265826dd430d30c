package enrollment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func students(n, school int) ([]uuid.UUID, map[uuid.UUID]Candidate) {
	ids := make([]uuid.UUID, n)
	cands := make(map[uuid.UUID]Candidate, n)
	for i := range ids {
		ids[i] = uuid.New()
		cands[ids[i]] = Candidate{SchoolID: school, Role: model.RoleStudent}
	}
	return ids, cands
}

func assertPartition(t *testing.T, requested []uuid.UUID, plan Plan) {
	t.Helper()
	seen := map[uuid.UUID]int{}
	for _, id := range plan.Accepted {
		seen[id]++
	}
	for _, e := range plan.Rejected {
		seen[e.StudentID]++
	}
	distinct := Dedupe(requested)
	require.Len(t, seen, len(distinct))
	for _, id := range distinct {
		assert.Equal(t, 1, seen[id], "id %s must appear exactly once", id)
	}
}

func TestBuildAcceptsUpToCapacity(t *testing.T) {
	ids, cands := students(5, 1)

	plan := Build(Input{
		ClassSchoolID: 1, ActorSchoolID: 1,
		Capacity: 4, Enrolled: 1,
		Requested: ids, Candidates: cands,
	})

	assert.Equal(t, ids[:3], plan.Accepted)
	require.Len(t, plan.Rejected, 2)
	for _, e := range plan.Rejected {
		assert.Equal(t, MsgCapacityExceeded, e.Error)
	}
	assertPartition(t, ids, plan)
}

func TestBuildFullClassRejectsSingleStudent(t *testing.T) {
	ids, cands := students(1, 1)

	res := Build(Input{
		ClassSchoolID: 1, ActorSchoolID: 1,
		Capacity: 30, Enrolled: 30,
		Requested: ids, Candidates: cands,
	}).Result()

	assert.Empty(t, res.Results)
	assert.Equal(t, []model.EnrollmentError{{StudentID: ids[0], Error: MsgCapacityExceeded}}, res.Errors)
	assert.Zero(t, res.EnrolledCount)
}

func TestBuildClassifiesEachReason(t *testing.T) {
	ids, cands := students(5, 1)
	cands[ids[1]] = Candidate{SchoolID: 2, Role: model.RoleStudent}
	cands[ids[2]] = Candidate{SchoolID: 1, Role: model.RoleTeacher}
	delete(cands, ids[3])

	plan := Build(Input{
		ClassSchoolID: 1, ActorSchoolID: 1,
		Capacity:    10,
		Requested:   ids,
		Candidates:  cands,
		EnrolledSet: map[uuid.UUID]bool{ids[4]: true},
	})

	assert.Equal(t, []uuid.UUID{ids[0]}, plan.Accepted)
	assert.Equal(t, []model.EnrollmentError{
		{StudentID: ids[1], Error: MsgDifferentSchool},
		{StudentID: ids[2], Error: MsgStudentNotFound},
		{StudentID: ids[3], Error: MsgStudentNotFound},
		{StudentID: ids[4], Error: MsgAlreadyEnrolled},
	}, plan.Rejected)
}

func TestBuildRejectedSeatsDoNotConsumeCapacity(t *testing.T) {
	ids, cands := students(3, 1)
	cands[ids[0]] = Candidate{SchoolID: 9, Role: model.RoleStudent}

	plan := Build(Input{
		ClassSchoolID: 1, ActorSchoolID: 1,
		Capacity: 2, Requested: ids, Candidates: cands,
	})

	assert.Equal(t, ids[1:], plan.Accepted)
}

func TestBuildSchoolMismatchRejectsEverything(t *testing.T) {
	ids, cands := students(3, 1)

	plan := Build(Input{
		ClassSchoolID: 1, ActorSchoolID: 2,
		Capacity: 30, Requested: ids, Candidates: cands,
	})

	assert.Empty(t, plan.Accepted)
	require.Len(t, plan.Rejected, 3)
	assert.Equal(t, MsgAccessDenied, plan.Rejected[0].Error)
}

func TestBuildDuplicatesCountOnce(t *testing.T) {
	ids, cands := students(2, 1)
	requested := []uuid.UUID{ids[0], ids[1], ids[0], ids[0]}

	plan := Build(Input{
		ClassSchoolID: 1, ActorSchoolID: 1,
		Capacity: 1, Requested: requested, Candidates: cands,
	})

	assert.Equal(t, []uuid.UUID{ids[0]}, plan.Accepted)
	assert.Equal(t, []model.EnrollmentError{{StudentID: ids[1], Error: MsgCapacityExceeded}}, plan.Rejected)
	assertPartition(t, requested, plan)
}

func TestBuildOverfullClassHasNoSeats(t *testing.T) {
	ids, cands := students(1, 1)

	plan := Build(Input{
		ClassSchoolID: 1, ActorSchoolID: 1,
		Capacity: 10, Enrolled: 12,
		Requested: ids, Candidates: cands,
	})

	assert.Empty(t, plan.Accepted)
}
