package service

import (
	"context"
	"testing"

	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkDeleteClassesReportsPerClassFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	empty := f.class(30)
	busy := f.class(30)
	f.db.Enroll(busy, f.db.AddStudents(schoolA, 1)...)

	res, err := f.classes.BulkDeleteClasses(ctx, model.BulkClassIDsRequest{ClassIDs: []int{empty, busy, empty}}, f.teacher)

	require.NoError(t, err)
	assert.Equal(t, []int{empty}, res.Results)
	assert.Equal(t, []model.ClassError{{ClassID: busy, Error: ErrClassHasStudents.Message}}, res.Errors)
}

func TestBulkOperationsDenyWholeSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.class(30)
	other := f.db.AddTeacher(schoolA, "Guru Lain")
	theirs := f.db.AddClass(schoolA, other, "Bukan Milikku", 30)

	_, err := f.bulk.BulkDeleteClasses(ctx, model.BulkClassIDsRequest{ClassIDs: []int{mine, theirs, 999}}, f.teacher)

	var bae *BulkAccessError
	require.ErrorAs(t, err, &bae)
	assert.Equal(t, []int{theirs, 999}, bae.ClassIDs)
	assert.ErrorIs(t, err, ErrBulkAccessDenied)
	assert.Equal(t, "BULK_ACCESS_DENIED", Code(err))

	d, err := f.classes.GetClassByID(ctx, mine, f.teacher)
	require.NoError(t, err, "nothing is deleted when access is denied")
	assert.False(t, d.Deleted())
}

func TestBulkUpdateClasses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.class(30), f.class(30)
	f.db.Enroll(b, f.db.AddStudents(schoolA, 3)...)

	res, err := f.classes.BulkUpdateClasses(ctx, model.BulkUpdateClassesRequest{
		ClassIDs: []int{a, b},
		Updates:  model.UpdateClassRequest{MaxStudents: ptr(2)},
	}, f.teacher)

	require.NoError(t, err)
	assert.Equal(t, []int{a}, res.Results)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, b, res.Errors[0].ClassID)
	assert.Equal(t, ErrCapacityBelowEnrolled.Message, res.Errors[0].Error)

	_, err = f.bulk.BulkUpdateClasses(ctx, model.BulkUpdateClassesRequest{ClassIDs: []int{a}}, f.teacher)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBulkRestoreClasses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	deleted, live := f.class(30), f.class(30)
	require.NoError(t, f.classes.DeleteClass(ctx, deleted, f.teacher))

	res, err := f.bulk.BulkRestoreClasses(ctx, model.BulkClassIDsRequest{ClassIDs: []int{deleted, live, 999}}, f.teacher)

	require.NoError(t, err)
	assert.Equal(t, []int{deleted}, res.Results)
	assert.Equal(t, []model.ClassError{
		{ClassID: live, Error: ErrClassNotDeleted.Message},
		{ClassID: 999, Error: ErrClassNotFound.Message},
	}, res.Errors)
}

func TestBulkAssignTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.class(30), f.class(30)
	colleague := f.db.AddTeacher(schoolA, "Bu Rina")
	outsider := f.db.AddTeacher(schoolB, "Pak Joko")

	res, err := f.bulk.BulkAssignTeacher(ctx, model.BulkAssignTeacherRequest{ClassIDs: []int{a, b}, TeacherID: colleague}, f.teacher)
	require.NoError(t, err)
	assert.Equal(t, []int{a, b}, res.Results)

	d, err := f.classes.GetClassByID(ctx, a, colleague)
	require.NoError(t, err)
	require.NotNil(t, d.TeacherID)
	assert.Equal(t, colleague, *d.TeacherID)

	_, err = f.bulk.BulkAssignTeacher(ctx, model.BulkAssignTeacherRequest{ClassIDs: []int{a}, TeacherID: outsider}, f.teacher)
	assert.ErrorIs(t, err, ErrSchoolMismatch)
}

func TestBulkOperationSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	active, withStudents, deleted := f.class(30), f.class(30), f.class(30)
	f.db.Enroll(withStudents, f.db.AddStudents(schoolA, 2)...)
	require.NoError(t, f.classes.DeleteClass(ctx, deleted, f.teacher))
	other := f.db.AddTeacher(schoolB, "Pak Joko")
	foreign := f.db.AddClass(schoolB, other, "Asing", 30)
	f.db.Enroll(foreign, f.db.AddStudents(schoolB, 3)...)
	unassigned := f.db.AddClass(schoolA, f.db.AddTeacher(schoolA, "Bu Ani"), "Lain", 30)

	summary, err := f.bulk.GetBulkOperationSummary(ctx, model.BulkClassIDsRequest{
		ClassIDs: []int{active, withStudents, deleted, foreign, unassigned, 999},
	}, f.teacher)

	require.NoError(t, err)
	assert.Equal(t, &model.BulkOperationSummary{
		Total:        6,
		Accessible:   2,
		WithStudents: 1,
		Deleted:      1,
		Active:       2,
	}, summary)
}

func TestBulkOperationSummaryIgnoresOtherSchools(t *testing.T) {
	f := newFixture(t)
	other := f.db.AddTeacher(schoolB, "Pak Joko")
	foreign := f.db.AddClass(schoolB, other, "Asing", 30)
	f.db.Enroll(foreign, f.db.AddStudents(schoolB, 3)...)

	summary, err := f.bulk.GetBulkOperationSummary(context.Background(), model.BulkClassIDsRequest{
		ClassIDs: []int{foreign},
	}, f.teacher)

	require.NoError(t, err)
	assert.Equal(t, &model.BulkOperationSummary{Total: 1}, summary)
}
