// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package editor

import (
	"errors"
	"fmt"
)

// ErrNotConfirmed is returned by Remove without confirmation.
var ErrNotConfirmed = errors.New("delete requires confirmation")

// StoreWriteError reports a failed create, update or delete.
type StoreWriteError struct {
	Op         string // "create", "update" or "delete"
	Collection string
	ID         string
	Err        error
}

func (e *StoreWriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s in %s failed: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("%s of %s/%s failed: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// FieldError is one invalid form field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists the invalid fields of a submit.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return e.Fields[0].Message
	}
	return fmt.Sprintf("%s (and %d more)", e.Fields[0].Message, len(e.Fields)-1)
}

// For returns the message for field, or "".
func (e *ValidationError) For(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}
