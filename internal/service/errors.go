package service

import (
	"database/sql"
	"errors"
	"fmt"

	"qcportal/internal/repository"
)

var (
	// ErrValidation means a required field is missing or a value is out of range.
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	// ErrConflict means a rename target already holds incompatible data.
	ErrConflict = errors.New("conflict")
	// ErrDependency means a delete is blocked by live dependent records.
	ErrDependency = errors.New("dependent records exist")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// translate maps repository errors onto the service taxonomy.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrHasDependents):
		return fmt.Errorf("%w: %s", ErrDependency, what)
	}
	return err
}
