package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyClassAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	classID := f.class(30)
	colleague := f.db.AddTeacher(schoolA, "Bu Rina")
	outsider := f.db.AddTeacher(schoolB, "Pak Joko")
	require.NoError(t, f.db.Classes().AssignTeacher(ctx, classID, outsider, "assistant"))

	tests := []struct {
		name           string
		classID        int
		teacher        uuid.UUID
		validateSchool bool
		want           bool
	}{
		{"assigned teacher", classID, f.teacher, true, true},
		{"unassigned colleague", classID, colleague, true, false},
		{"assigned teacher of another school", classID, outsider, true, false},
		{"assignment only", classID, outsider, false, true},
		{"missing class", 404, f.teacher, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := f.access.VerifyClassAccess(ctx, tt.classID, tt.teacher, tt.validateSchool)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestAuthorizeClassDistinguishesMissingFromDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	classID := f.class(30)
	colleague := f.db.AddTeacher(schoolA, "Bu Rina")

	_, err := f.access.AuthorizeClass(ctx, 404, f.teacher, "view class")
	assert.ErrorIs(t, err, ErrClassNotFound)

	_, err = f.access.AuthorizeClass(ctx, classID, colleague, "view class")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, "ACCESS_DENIED", Code(err))

	class, err := f.access.AuthorizeClass(ctx, classID, f.teacher, "view class")
	require.NoError(t, err)
	assert.Equal(t, classID, class.ID)
}

func TestValidateTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.db.AddStudents(schoolA, 1)[0]

	_, err := f.access.ValidateTeacher(ctx, f.teacher, schoolA)
	assert.NoError(t, err)

	_, err = f.access.ValidateTeacher(ctx, f.teacher, schoolB)
	assert.ErrorIs(t, err, ErrSchoolMismatch)

	_, err = f.access.ValidateTeacher(ctx, student, schoolA)
	assert.ErrorIs(t, err, ErrInvalidTeacher)

	_, err = f.access.ValidateTeacher(ctx, uuid.New(), schoolA)
	assert.ErrorIs(t, err, ErrTeacherNotFound)
}

func TestValidateUniqueClassNameIgnoresArchivedAndSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	classID := f.db.AddClass(schoolA, f.teacher, "XII Bahasa", 30)

	assert.ErrorIs(t, f.access.ValidateUniqueClassName(ctx, schoolA, "xii bahasa", 0), ErrDuplicateClassName)
	assert.NoError(t, f.access.ValidateUniqueClassName(ctx, schoolA, "XII Bahasa", classID))
	assert.NoError(t, f.access.ValidateUniqueClassName(ctx, schoolB, "XII Bahasa", 0))

	require.NoError(t, f.db.Classes().SoftDelete(ctx, classID, f.teacher))
	assert.NoError(t, f.access.ValidateUniqueClassName(ctx, schoolA, "XII Bahasa", 0))
}

func TestTeacherSchool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	school, err := f.access.TeacherSchool(ctx, f.teacher)
	require.NoError(t, err)
	assert.Equal(t, schoolA, school)

	_, err = f.access.TeacherSchool(ctx, f.db.AddProfile(model.Profile{Role: model.RoleTeacher}))
	assert.ErrorIs(t, err, ErrMissingSchoolID)
}
