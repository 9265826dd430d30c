package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClassReq(name string) model.CreateClassRequest {
	return model.CreateClassRequest{
		Name:         name,
		Level:        "10",
		AcademicYear: "2026/2027",
		Semester:     "1",
	}
}

func ptr[T any](v T) *T { return &v }

func TestCreateClass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	class, err := f.classes.CreateClass(ctx, newClassReq("  X IPA 1 "), f.teacher)
	require.NoError(t, err)
	assert.Equal(t, "X IPA 1", class.Name)
	assert.Equal(t, schoolA, class.SchoolID)
	assert.Equal(t, model.DefaultClassCapacity, class.MaxStudents)
	assert.Equal(t, model.ClassActive, class.Status)

	d, err := f.classes.GetClassByID(ctx, class.ID, f.teacher)
	require.NoError(t, err)
	require.Len(t, d.Teachers, 1)
	assert.Equal(t, f.teacher, d.Teachers[0].UserID)
	assert.Equal(t, "primary", d.Teachers[0].Role)

	_, err = f.classes.CreateClass(ctx, newClassReq("x ipa 1"), f.teacher)
	assert.ErrorIs(t, err, ErrDuplicateClassName)

	other := f.db.AddTeacher(schoolB, "Pak Budi")
	_, err = f.classes.CreateClass(ctx, newClassReq("X IPA 1"), other)
	assert.NoError(t, err, "names are unique per school")
}

func TestCreateClassValidates(t *testing.T) {
	f := newFixture(t)
	req := newClassReq("X IPA 2")
	req.Semester = "3"
	req.MaxStudents = -1

	_, err := f.classes.CreateClass(context.Background(), req, f.teacher)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "semester")
	assert.Contains(t, ve.Fields, "max_students")
}

func TestGetClassesListsAssignedClasses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.class(30)
	f.class(30)
	other := f.db.AddTeacher(schoolA, "Guru Lain")
	f.db.AddClass(schoolA, other, "Not mine", 30)
	require.NoError(t, f.classes.DeleteClass(ctx, mine, f.teacher))

	classes, total, err := f.classes.GetClasses(ctx, f.teacher, model.ClassListQuery{})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, classes, 1)
	assert.NotEqual(t, mine, classes[0].ID)
}

func TestUpdateClass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	classID := f.class(30)
	f.db.Enroll(classID, f.db.AddStudents(schoolA, 5)...)
	taken := f.class(30)

	updated, err := f.classes.UpdateClass(ctx, classID, model.UpdateClassRequest{
		Name:        ptr("XI IPS 2"),
		MaxStudents: ptr(35),
	}, f.teacher)
	require.NoError(t, err)
	assert.Equal(t, "XI IPS 2", updated.Name)
	assert.Equal(t, 35, updated.MaxStudents)

	_, err = f.classes.UpdateClass(ctx, classID, model.UpdateClassRequest{MaxStudents: ptr(4)}, f.teacher)
	assert.ErrorIs(t, err, ErrCapacityBelowEnrolled)

	d, err := f.classes.GetClassByID(ctx, taken, f.teacher)
	require.NoError(t, err)
	_, err = f.classes.UpdateClass(ctx, classID, model.UpdateClassRequest{Name: ptr(d.Name)}, f.teacher)
	assert.ErrorIs(t, err, ErrDuplicateClassName)

	entries := f.db.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.AuditUpdate, entries[0].Action)
	assert.ElementsMatch(t, []string{"name", "max_students"}, entries[0].ChangedFields)
}

func TestUpdateClassWithoutChangesIsNotAudited(t *testing.T) {
	f := newFixture(t)
	classID := f.class(30)

	_, err := f.classes.UpdateClass(context.Background(), classID, model.UpdateClassRequest{MaxStudents: ptr(30)}, f.teacher)

	require.NoError(t, err)
	assert.Empty(t, f.db.AuditEntries())
}

func TestDeleteAndRestoreClass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	classID := f.class(30)
	student := f.db.AddStudents(schoolA, 1)[0]
	f.db.Enroll(classID, student)

	assert.ErrorIs(t, f.classes.DeleteClass(ctx, classID, f.teacher), ErrClassHasStudents)

	require.NoError(t, f.enrollment.RemoveStudent(ctx, classID, student, f.teacher))
	require.NoError(t, f.classes.DeleteClass(ctx, classID, f.teacher))

	_, err := f.classes.GetClassByID(ctx, classID, f.teacher)
	assert.ErrorIs(t, err, ErrClassNotFound)
	assert.ErrorIs(t, f.classes.DeleteClass(ctx, classID, f.teacher), ErrClassNotFound)

	require.NoError(t, f.classes.RestoreClass(ctx, classID, f.teacher))
	assert.ErrorIs(t, f.classes.RestoreClass(ctx, classID, f.teacher), ErrClassNotDeleted)

	d, err := f.classes.GetClassByID(ctx, classID, f.teacher)
	require.NoError(t, err)
	assert.Equal(t, model.ClassActive, d.Status)
}

func TestRestoreClassRejectsNameTakenMeanwhile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	class, err := f.classes.CreateClass(ctx, newClassReq("X IPA 3"), f.teacher)
	require.NoError(t, err)
	require.NoError(t, f.classes.DeleteClass(ctx, class.ID, f.teacher))
	_, err = f.classes.CreateClass(ctx, newClassReq("X IPA 3"), f.teacher)
	require.NoError(t, err)

	assert.ErrorIs(t, f.classes.RestoreClass(ctx, class.ID, f.teacher), ErrDuplicateClassName)
}

func TestAssignAndRemoveTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	classID := f.class(30)
	colleague := f.db.AddTeacher(schoolA, "Bu Rina")
	outsider := f.db.AddTeacher(schoolB, "Pak Joko")

	require.NoError(t, f.classes.AssignTeacher(ctx, classID, model.AssignTeacherRequest{TeacherID: colleague}, f.teacher))
	d, err := f.classes.GetClassByID(ctx, classID, colleague)
	require.NoError(t, err, "assigned colleague gains access")
	assert.Equal(t, 2, d.TeacherCount)

	err = f.classes.AssignTeacher(ctx, classID, model.AssignTeacherRequest{TeacherID: outsider}, f.teacher)
	assert.ErrorIs(t, err, ErrSchoolMismatch)

	err = f.classes.AssignTeacher(ctx, classID, model.AssignTeacherRequest{TeacherID: uuid.New()}, f.teacher)
	assert.ErrorIs(t, err, ErrTeacherNotFound)

	require.NoError(t, f.classes.RemoveTeacher(ctx, classID, colleague, f.teacher))
	assert.ErrorIs(t, f.classes.RemoveTeacher(ctx, classID, colleague, f.teacher), ErrTeacherNotAssigned)

	_, err = f.classes.GetClassByID(ctx, classID, colleague)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

// lateEnrollClasses enrolls students right after the first roster count,
// the way a concurrent bulk enrollment would.
type lateEnrollClasses struct {
	ClassStore
	enroll func()
}

func (c *lateEnrollClasses) CountStudents(ctx context.Context, classID int) (int, error) {
	n, err := c.ClassStore.CountStudents(ctx, classID)
	if c.enroll != nil {
		c.enroll()
		c.enroll = nil
	}
	return n, err
}

func (f *fixture) classServiceOver(classes ClassStore) *ClassService {
	access := NewClassAccessControl(f.db.Profiles(), classes, zerolog.Nop())
	return NewClassService(access, classes, f.enrollment, f.bulk, f.audit, zerolog.Nop())
}

func TestDeleteClassRefusesRosterFilledAfterCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	classID := f.class(30)
	late := f.db.AddStudents(schoolA, 1)
	svc := f.classServiceOver(&lateEnrollClasses{
		ClassStore: f.db.Classes(),
		enroll:     func() { f.db.Enroll(classID, late...) },
	})

	err := svc.DeleteClass(ctx, classID, f.teacher)

	assert.ErrorIs(t, err, ErrClassHasStudents)
	class, err := f.db.Classes().GetByID(ctx, classID)
	require.NoError(t, err)
	assert.False(t, class.Deleted())
	assert.Equal(t, 1, f.db.RosterSize(classID))
}

func TestUpdateClassKeepsCapacityAboveLateEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	classID := f.class(2)
	f.db.Enroll(classID, f.db.AddStudents(schoolA, 1)...)
	late := f.db.AddStudents(schoolA, 1)
	svc := f.classServiceOver(&lateEnrollClasses{
		ClassStore: f.db.Classes(),
		enroll:     func() { f.db.Enroll(classID, late...) },
	})
	one := 1

	_, err := svc.UpdateClass(ctx, classID, model.UpdateClassRequest{MaxStudents: &one}, f.teacher)

	assert.ErrorIs(t, err, ErrCapacityBelowEnrolled)
	class, err := f.db.Classes().GetByID(ctx, classID)
	require.NoError(t, err)
	assert.Equal(t, 2, class.MaxStudents)
}
