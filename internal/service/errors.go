package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/agrokasa/advert_market/internal/repo"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidID       = fmt.Errorf("%w: malformed id", ErrInvalidArgument)

	ErrUnauthorized   = errors.New("unauthorized")
	ErrUnknownSubject = fmt.Errorf("%w: token subject no longer exists", ErrUnauthorized)

	ErrForbidden = repo.ErrForbidden
	ErrNotFound  = repo.ErrNotFound
	ErrConflict  = repo.ErrConflict

	ErrUpstream = errors.New("upstream failure")
)

// ParseID validates a client supplied identifier before it reaches the store.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
