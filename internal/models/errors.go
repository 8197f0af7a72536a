package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork indicates a transport failure talking to the roster site.
	ErrNetwork = errors.New("network error")

	// ErrParse indicates a document lacked a required signal.
	ErrParse = errors.New("parse error")

	// ErrArgument indicates invalid caller input.
	ErrArgument = errors.New("argument error")

	ErrInternal    = errors.New("internal error")
	ErrStore       = errors.New("store error")
	ErrObjectStore = errors.New("object store error")

	// ErrDuplicateInmate is returned when an inmate with the same first name,
	// last name, date of birth and booking timestamp already exists.
	ErrDuplicateInmate = errors.New("inmate already exists")
)

// InternalError is a logic or contract violation, e.g. a malformed enrichment request.
type InternalError struct {
	Detail string
	Err    error
}

func (e *InternalError) Error() string { return describe("internal error", e.Detail, e.Err) }

func (e *InternalError) Unwrap() []error { return unwrap(ErrInternal, e.Err) }

// StoreError wraps a relational store failure.
type StoreError struct {
	Detail string
	Err    error
}

func (e *StoreError) Error() string { return describe("store error", e.Detail, e.Err) }

func (e *StoreError) Unwrap() []error { return unwrap(ErrStore, e.Err) }

// ObjectStoreError wraps an object storage failure.
type ObjectStoreError struct {
	Detail string
	Err    error
}

func (e *ObjectStoreError) Error() string { return describe("object store error", e.Detail, e.Err) }

func (e *ObjectStoreError) Unwrap() []error { return unwrap(ErrObjectStore, e.Err) }

func describe(kind, detail string, err error) string {
	switch {
	case err != nil && detail != "":
		return fmt.Sprintf("%s: %s: %v", kind, detail, err)
	case err != nil:
		return fmt.Sprintf("%s: %v", kind, err)
	case detail != "":
		return fmt.Sprintf("%s: %s", kind, detail)
	default:
		return kind
	}
}

func unwrap(sentinel, err error) []error {
	if err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, err}
}
