package validator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructReportsJSONFieldNames(t *testing.T) {
	Setup()

	fields := Struct(&model.CreateClassRequest{Name: "X", Level: "10", AcademicYear: "2026", Semester: "3"})

	require.NotNil(t, fields)
	assert.Contains(t, fields, "semester")
	assert.Len(t, fields, 1)
}

func TestStructEmptyBatch(t *testing.T) {
	Setup()

	fields := Struct(&model.BulkEnrollStudentsRequest{})
	assert.Contains(t, fields, "student_ids")

	assert.Nil(t, Struct(&model.BulkEnrollStudentsRequest{StudentIDs: []uuid.UUID{uuid.New()}}))
}

func TestStructNilElement(t *testing.T) {
	Setup()

	fields := Struct(&model.BulkEnrollStudentsRequest{StudentIDs: []uuid.UUID{uuid.New(), uuid.Nil}})
	assert.Contains(t, fields, "student_ids[1]")
}
