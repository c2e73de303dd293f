// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a rejected auth operation.
type ErrorCode string

// Error codes surfaced to forms.
const (
	CodeInvalidCredential ErrorCode = "invalid-credential"
	CodeEmailInUse        ErrorCode = "email-already-in-use"
	CodeInvalidEmail      ErrorCode = "invalid-email"
	CodeWeakPassword      ErrorCode = "weak-password"
	CodeInvalidToken      ErrorCode = "invalid-token"
	CodeNotSignedIn       ErrorCode = "not-signed-in"
	CodeUnavailable       ErrorCode = "unavailable"
)

var messages = map[ErrorCode]string{
	CodeInvalidCredential: "Invalid email or password.",
	CodeEmailInUse:        "An account with this email already exists.",
	CodeInvalidEmail:      "Please enter a valid email address.",
	CodeWeakPassword:      fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength),
	CodeInvalidToken:      "The sign-in link is invalid or has expired.",
	CodeNotSignedIn:       "You need to sign in first.",
	CodeUnavailable:       "Sign-in is temporarily unavailable.",
}

// Error is an AuthError: the provider rejected an operation.
type Error struct {
	Op   string
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("auth: %s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns text suitable for showing next to the form.
func (e *Error) Message() string {
	if m, ok := messages[e.Code]; ok {
		return m
	}
	return "Authentication failed."
}

// IsCode reports whether err is an auth Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

// ErrPrincipalNotFound is returned by directories for unknown principals.
var ErrPrincipalNotFound = errors.New("principal not found")

// errEmailTaken is returned by directories when the email key is in use.
var errEmailTaken = errors.New("email already registered")
