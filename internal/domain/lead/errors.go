package lead

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLeadNotFound        = errors.New("lead not found")
	ErrDuplicateEmail      = errors.New("a lead with this email already exists")
	ErrInvalidExportFormat = errors.New("export format must be csv or xlsx")
)

// FieldError is one customer-facing validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violated field of a submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return "validation failed: " + strings.Join(names, ", ")
}

// InvalidStatusError is returned when an admin picks a status outside the pipeline.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	valid := make([]string, 0, len(Statuses))
	for _, s := range Statuses {
		valid = append(valid, string(s))
	}
	return "Invalid status. Must be one of: " + strings.Join(valid, ", ")
}

// StoreError wraps an unexpected persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("lead store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// storeError passes domain errors through and wraps everything else.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrLeadNotFound) || errors.Is(err, ErrDuplicateEmail) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
