// Package errs defines the error kinds returned by the Dyson cloud client.
//
// There are three kinds layered under one base. Every *Error matches ErrAPI
// with errors.Is; authentication and connection failures additionally match
// ErrAuth and ErrConnection respectively:
//
//	if errors.Is(err, errs.ErrAuth) {
//		// log in again
//	}
//
// The message of an *Error is part of the contract and stays stable.
package errs

import (
	"errors"
)

// Kind classifies an *Error.
type Kind int

const (
	// KindAPI is a response that arrived but was unusable.
	KindAPI Kind = iota
	// KindAuth is a missing precondition, missing configuration or rejected credentials.
	KindAuth
	// KindConnection is a transport failure. The request may not have been processed.
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindConnection:
		return "connection"
	default:
		return "api"
	}
}

var (
	ErrAPI        error = errors.New("dyson api error")
	ErrAuth       error = errors.New("dyson authentication error")
	ErrConnection error = errors.New("dyson connection error")
)

// Error is the error type returned by every network operation of the client.
type Error struct {
	Kind    Kind
	Message string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of this error's kind. ErrAPI is
// the base and matches every kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAPI:
		return true
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrConnection:
		return e.Kind == KindConnection
	}
	return false
}

// API returns an error of kind KindAPI.
func API(message string, cause error) *Error {
	return &Error{Kind: KindAPI, Message: message, Err: cause}
}

// Auth returns an error of kind KindAuth.
func Auth(message string, cause error) *Error {
	return &Error{Kind: KindAuth, Message: message, Err: cause}
}

// Connection returns an error of kind KindConnection.
func Connection(message string, cause error) *Error {
	return &Error{Kind: KindConnection, Message: message, Err: cause}
}

// KindOf returns the kind of err and true if err wraps an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindAPI, false
}
