package service

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"

	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
)

// storeError maps a repository error to NOT_FOUND or INTERNAL.
func storeError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// checkRecordID reports NOT_FOUND for ids that cannot name a stored row.
func checkRecordID(id, notFound string) error {
	if _, err := uuid.Parse(id); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return nil
}
