package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/thekillacodar/Sparo-Exam-Sync/internal/persistence"
)

var (
	// ErrPermission is returned when the acting principal neither owns the target nor is an admin.
	ErrPermission = errors.New("application: permission denied")
	// ErrNotFound is returned when the requested exam, notification or pending change does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrUnavailable is returned when the backing storage cannot be reached.
	ErrUnavailable = errors.New("application: storage unavailable")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error lists the offending fields in a stable order.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// UnknownChangeTypeError reports a batch item whose type is not recognised.
type UnknownChangeTypeError struct {
	Type string
}

func (e *UnknownChangeTypeError) Error() string {
	return fmt.Sprintf("unknown change type %q", e.Type)
}

// UnknownActionError reports a batch item whose action is not valid for its type.
type UnknownActionError struct {
	Type   string
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q for change type %q", e.Action, e.Type)
}

// SafeMessage renders err for untrusted callers. Storage and other unexpected
// failures collapse to a generic message; the detail belongs in the logs.
func SafeMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		vErr      *ValidationError
		typeErr   *UnknownChangeTypeError
		actionErr *UnknownActionError
	)
	switch {
	case errors.As(err, &vErr):
		return vErr.Error()
	case errors.As(err, &typeErr):
		return typeErr.Error()
	case errors.As(err, &actionErr):
		return actionErr.Error()
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrPermission):
		return "permission denied"
	case errors.Is(err, ErrUnavailable):
		return "storage unavailable"
	}
	return "internal error"
}

// mapRepoError translates storage sentinels into application errors.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("record", "violates a storage constraint")
		return vErr
	}
	return err
}
