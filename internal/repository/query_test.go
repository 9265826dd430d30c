package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%100\%\_a\\b%`, containsPattern(" 100%_a\\b "))
	assert.Equal(t, "%%", containsPattern(""))
}

func TestWhereBuilderNumbersPlaceholders(t *testing.T) {
	var w whereBuilder
	w.add("c.school_id = ?", 4)
	w.add("(p.full_name ILIKE ? OR sd.nis ILIKE ?)", "%a%", "%a%")
	limit := w.next(10)

	assert.Equal(t, " WHERE c.school_id = $1 AND (p.full_name ILIKE $2 OR sd.nis ILIKE $3)", w.sql())
	assert.Equal(t, "$4", limit)
	assert.Equal(t, []interface{}{4, "%a%", "%a%", 10}, w.args)
}

func TestOrderDirection(t *testing.T) {
	assert.Equal(t, "DESC", orderDirection("desc"))
	assert.Equal(t, "ASC", orderDirection("DROP TABLE"))
}
