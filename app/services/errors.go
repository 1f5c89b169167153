// Package services holds the shop's business rules. Controllers call the
// services, services call the stores, and every failure that reaches a
// controller is an *Error carrying a Kind the HTTP layer maps to a status.
package services

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindNotFound
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// Error is a classified failure. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind and message so wrapped copies still compare
// equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == e.Message
}

var (
	ErrUserExists      = &Error{Kind: KindValidation, Message: "User already exists"}
	ErrPasswordTooLong = &Error{Kind: KindValidation, Message: "The password must not exceed 72 bytes."}
	ErrWrongEmail      = &Error{Kind: KindAuth, Message: "Wrong email address"}
	ErrInvalidPassword = &Error{Kind: KindAuth, Message: "Invalid Password"}
	ErrUnknownAccount  = &Error{Kind: KindAuth, Message: "Invalid token"}
	ErrProductNotFound = &Error{Kind: KindNotFound, Message: "Product not found"}
	ErrInvalidItem     = &Error{Kind: KindValidation, Message: "Invalid item id"}
	ErrNoFile          = &Error{Kind: KindValidation, Message: "No file uploaded or multer failed to parse the file"}
)

// storageError hides err behind the generic message.
func storageError(op string, err error) error {
	return &Error{Kind: KindStorage, Message: "Internal Server Error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the Kind of err, KindStorage for unclassified errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindStorage
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "Internal Server Error"
}
