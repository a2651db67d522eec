package util

import (
	"fmt"
	"strconv"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

func ParseIntDefault(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return v, nil
}

// Window turns the raw limit and skip query values into an offset and a limit.
// A missing or non-positive limit means DefaultLimit; limits above MaxLimit are capped.
func Window(rawLimit, rawSkip string) (offset, limit int, err error) {
	limit, err = ParseIntDefault(rawLimit, DefaultLimit)
	if err != nil {
		return 0, 0, fmt.Errorf("limit: %w", err)
	}
	offset, err = ParseIntDefault(rawSkip, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("skip: %w", err)
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit, nil
}
