// Copyright 2026 The Agora Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errs defines the application error taxonomy. Every failure that
// crosses the transport boundary is one of these kinds; internal detail is
// logged server-side and never echoed to clients.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind identifies a class of application error. Each kind carries a stable
// five-digit code (4xxxx client-caused, 5xxxx server-caused) distinct from
// the HTTP status.
type Kind int

const (
	KindParseID Kind = iota
	KindValidation
	KindNotFound
	KindWrongCredentials
	KindInvalidToken
	KindLocked
	KindForbidden
	KindRateLimited
	KindTokenCreation
	KindDatabase
	KindTaskExecution
	KindHashPassword
	KindInternal
)

// codes maps each kind to its (application code, HTTP status) pair.
var codes = map[Kind]struct {
	code   int
	status int
}{
	KindParseID:          {40001, http.StatusBadRequest},
	KindValidation:       {40002, http.StatusBadRequest},
	KindNotFound:         {40003, http.StatusNotFound},
	KindWrongCredentials: {40004, http.StatusUnauthorized},
	KindInvalidToken:     {40005, http.StatusUnauthorized},
	KindLocked:           {40006, http.StatusLocked},
	KindForbidden:        {40007, http.StatusForbidden},
	KindRateLimited:      {40008, http.StatusTooManyRequests},
	KindTokenCreation:    {50001, http.StatusInternalServerError},
	KindDatabase:         {50002, http.StatusInternalServerError},
	KindTaskExecution:    {50003, http.StatusInternalServerError},
	KindHashPassword:     {50004, http.StatusInternalServerError},
	KindInternal:         {50010, http.StatusInternalServerError},
}

// Error is an application error with a stable code and client-safe message.
// Cause holds the internal error for server-side logs and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// LockedAt is set only for KindLocked so clients can display when the
	// lockout began.
	LockedAt *time.Time
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Code returns the stable five-digit application code.
func (e *Error) Code() int { return codes[e.Kind].code }

// Status returns the HTTP status this error maps to.
func (e *Error) Status() int { return codes[e.Kind].status }

// ServerCaused reports whether the error is in the 5xxxx range. Server-caused
// errors are logged at error severity, everything else at warn.
func (e *Error) ServerCaused() bool { return e.Code() >= 50000 }

// Body is the uniform JSON error response shape.
type Body struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Error   bool   `json:"error"`
}

// ResponseBody builds the client-visible JSON body for this error.
func (e *Error) ResponseBody() Body {
	return Body{
		Code:    e.Code(),
		Message: e.Message,
		Status:  e.Status(),
		Error:   true,
	}
}

// New creates an error of the given kind with a client-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind keeping cause for server-side logs.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validation is shorthand for a KindValidation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// WrongCredentials returns the single externally-visible authentication
// failure. Unknown username and wrong password both map here so responses
// never reveal whether an account exists.
func WrongCredentials() *Error {
	return New(KindWrongCredentials, "wrong authentication credentials")
}

// InvalidToken returns the collapsed token failure. Forged signature,
// malformed structure and expiry are indistinguishable to callers.
func InvalidToken() *Error {
	return New(KindInvalidToken, "invalid authentication credentials")
}

// Locked returns the account-locked error. The lock timestamp is folded into
// the message so clients can display when the lockout began.
func Locked(lockedAt *time.Time) *Error {
	message := "account is locked"
	if lockedAt != nil {
		message = fmt.Sprintf("account is locked since %s", lockedAt.UTC().Format(time.RFC3339))
	}
	e := New(KindLocked, message)
	e.LockedAt = lockedAt
	return e
}

// Forbidden returns an authorization failure, distinct from authentication.
func Forbidden(message string) *Error {
	if message == "" {
		message = "you do not have permission to access this resource"
	}
	return New(KindForbidden, message)
}

// RateLimited returns the throttling error; clients should retry later.
func RateLimited() *Error {
	return New(KindRateLimited, "rate limit exceeded")
}

// Database wraps a persistence failure.
func Database(cause error) *Error {
	return Wrap(KindDatabase, "database error", cause)
}

// TaskExecution wraps a worker-pool dispatch failure.
func TaskExecution(cause error) *Error {
	return Wrap(KindTaskExecution, "task execution failed", cause)
}

// Internal wraps an unclassified server failure.
func Internal(cause error) *Error {
	return Wrap(KindInternal, "internal server error", cause)
}

// From converts any error into an *Error, wrapping unknown errors as
// internal so raw error text never reaches a client.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
