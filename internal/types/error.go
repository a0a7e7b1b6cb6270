package types

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error kinds. Every error surfaced by the service is one of these five.
const (
	KindUnauthorized = "unauthorized" // no valid caller identity, no side effects attempted
	KindValidation   = "validation"   // bad input, rejected before storage or database work
	KindStorage      = "storage"      // object store write failed, no rows created
	KindPersistence  = "persistence"  // database insert/update failed
	KindNotFound     = "not_found"    // unknown room or piece
)

type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Cause   error  `json:"-"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

func (e *CustomError) Unwrap() error {
	return e.Cause
}

// Unauthorized builds an unauthorized error (401).
func Unauthorized(message string) *CustomError {
	return &CustomError{Code: fiber.StatusUnauthorized, Message: message, Type: KindUnauthorized}
}

// Validation builds a validation error (400).
func Validation(message string) *CustomError {
	return &CustomError{Code: fiber.StatusBadRequest, Message: message, Type: KindValidation}
}

// Storage builds a storage failure (502) wrapping the object store error.
func Storage(message string, cause error) *CustomError {
	return &CustomError{Code: fiber.StatusBadGateway, Message: message, Type: KindStorage, Cause: cause}
}

// Persistence builds a persistence failure (500) wrapping the database error.
func Persistence(message string, cause error) *CustomError {
	return &CustomError{Code: fiber.StatusInternalServerError, Message: message, Type: KindPersistence, Cause: cause}
}

// NotFound builds a not found error (404).
func NotFound(message string) *CustomError {
	return &CustomError{Code: fiber.StatusNotFound, Message: message, Type: KindNotFound}
}

// IsKind reports whether err is a CustomError of the given kind.
func IsKind(err error, kind string) bool {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Type == kind
	}
	return false
}
