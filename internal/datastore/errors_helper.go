// Package datastore provides error handling helpers for database operations
package datastore

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/friendswall/friendswall-go/internal/errors"
)

var errNotInitialized = errors.NewStd("database connection is not initialized")

// dbError creates a properly categorized database error with context
func dbError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// validationError creates a validation error whose message is safe to show to users
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}

// notFoundError reports a missing entity
func notFoundError(message, operation string) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("operation", operation).
		Build()
}

// conflictError reports a uniqueness violation
func conflictError(message, operation string) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryConflict).
		Context("operation", operation).
		Build()
}

// authError reports failed credentials without revealing which part was wrong
func authError(operation string) error {
	return errors.Newf("invalid email or password").
		Component("datastore").
		Category(errors.CategoryAuthentication).
		Context("operation", operation).
		Build()
}

// lookupError maps a failed single-row lookup to not-found or database categories
func lookupError(err error, message, operation string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError(message, operation)
	}
	return dbError(err, operation)
}
