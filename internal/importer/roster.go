// Package importer reads student rosters from uploaded spreadsheets.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/xuri/excelize/v2"
)

// StudentIDHeader names the column holding student ids. Sheets without it
// are read from their first column.
const StudentIDHeader = "student_id"

var (
	ErrUnreadable = errors.New("file is not a readable xlsx workbook")
	ErrEmptySheet = errors.New("roster sheet has no student rows")
)

// Roster is what was read from a sheet. Rows are 1-based as shown in
// spreadsheet applications.
type Roster struct {
	StudentIDs  []uuid.UUID
	InvalidRows []model.ImportRowError
}

// ReadStudentIDs reads the student id column of the first sheet. Blank rows
// are skipped and cells that are not UUIDs are reported, not fatal.
func ReadStudentIDs(r io.Reader) (*Roster, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	col, start := 0, 0
	if len(rows) > 0 {
		if i := headerIndex(rows[0]); i >= 0 {
			col, start = i, 1
		}
	}

	roster := &Roster{StudentIDs: []uuid.UUID{}, InvalidRows: []model.ImportRowError{}}
	for i := start; i < len(rows); i++ {
		if col >= len(rows[i]) {
			continue
		}
		cell := strings.TrimSpace(rows[i][col])
		if cell == "" {
			continue
		}
		id, err := uuid.Parse(cell)
		if err != nil {
			roster.InvalidRows = append(roster.InvalidRows, model.ImportRowError{
				Row:   i + 1,
				Value: cell,
				Error: "invalid student id",
			})
			continue
		}
		roster.StudentIDs = append(roster.StudentIDs, id)
	}

	if len(roster.StudentIDs) == 0 && len(roster.InvalidRows) == 0 {
		return nil, ErrEmptySheet
	}
	return roster, nil
}

func headerIndex(row []string) int {
	for i, cell := range row {
		if strings.EqualFold(strings.TrimSpace(cell), StudentIDHeader) {
			return i
		}
	}
	return -1
}
