package service

import (
	"errors"

	appwf "github.com/plantops/workdesk/internal/application/workflow"
)

// Expected business failures. These are returned as values, recovered
// by the interface layer and shown to the user; only unexpected faults
// get logged with full detail.
var (
	// ErrNotFound is returned when the entity or sub-item does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the authorization guard denies
	ErrUnauthorized = appwf.ErrUnauthorized

	// ErrInvalidStatus is returned when the transition is illegal from
	// the entity's current status
	ErrInvalidStatus = appwf.ErrInvalidStatus

	// ErrCannotCancel is the cancel-specific invalid-status failure
	ErrCannotCancel = errors.New("cannot cancel")

	// ErrCannotEdit is returned when edits are attempted in a status
	// that no longer permits them
	ErrCannotEdit = errors.New("cannot edit - invalid status")

	// ErrVacancyRequired blocks an elevated approval until the
	// department has coverage registered for the order window
	ErrVacancyRequired = errors.New("vacancy_required")

	// ErrValidation is returned for malformed or incomplete input
	ErrValidation = errors.New("invalid input")
)
