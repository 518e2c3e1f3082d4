package service

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/internship-attendance-api/pkg/database"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
)

// storeError converts a repository failure into a typed error. Typed errors
// pass through, retryable storage failures become ErrTransient.
func storeError(err error, message string) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	if database.IsTransient(err) {
		return appErrors.Wrap(err, appErrors.ErrTransient.Code, appErrors.ErrTransient.Status, appErrors.ErrTransient.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		message = message + ": " + fieldErrs[0].Field() + " failed " + fieldErrs[0].Tag()
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
