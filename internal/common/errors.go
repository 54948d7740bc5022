// Package common defines shared constants and sentinel errors used across
// the store, service and transport layers of folioguard. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBadRequest         = errors.New("bad request")

	// Session errors (invalid, malformed or forged token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ErrorCode classifies a use-case failure for the transport layer.
type ErrorCode string

const (
	CodeBadRequest   ErrorCode = "BAD_REQUEST"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// CodedError is a domain-level outcome carrying a user-presentable message.
// It unwraps to ErrBadRequest or ErrorUnauthorized depending on Code.
type CodedError struct {
	Code    ErrorCode
	Message string
}

func (e *CodedError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e *CodedError) Unwrap() error {
	switch e.Code {
	case CodeBadRequest:
		return ErrBadRequest
	case CodeUnauthorized:
		return ErrorUnauthorized
	}
	return nil
}

// NewBadRequest returns a CodedError with CodeBadRequest.
func NewBadRequest(msg string) *CodedError {
	return &CodedError{Code: CodeBadRequest, Message: msg}
}

// NewUnauthorized returns a CodedError with CodeUnauthorized.
func NewUnauthorized(msg string) *CodedError {
	return &CodedError{Code: CodeUnauthorized, Message: msg}
}
