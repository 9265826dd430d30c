package service

const (
	defaultLimit = 10
	maxLimit     = 100
)

// SanitizePagination clamps a page number to >= 1 and a page size to 1..100,
// using 10 when no size was given.
func SanitizePagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	return page, clampLimit(limit)
}

func clampLimit(limit int) int {
	switch {
	case limit < 1:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
