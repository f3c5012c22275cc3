package wmi

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrInvalidEntityType is returned in case of unsupported destination type
	// given to the `Query` call.
	ErrInvalidEntityType = errors.New("wmi: invalid entity type")

	// ErrNilCreateObject is the error returned if CreateObject returns nil even
	// if the error was nil.
	ErrNilCreateObject = errors.New("wmi: create object returned nil")

	// ErrConnectionClosed is returned for methods called on a closed
	// SWbemServices or SWbemServicesConnection.
	ErrConnectionClosed = errors.New("wmi: connection has been closed")

	// ErrResultEmpty is returned by single-object getters when the query
	// matched nothing.
	ErrResultEmpty = errors.New("wmi: query returned no results")

	// ErrNotSupported is returned by every operation on non-Windows builds.
	ErrNotSupported = errors.New("wmi: only supported on windows")
)

// ErrFieldMismatch is returned when a field is to be loaded into a different
// type than the one it was stored from, or when a field is missing or
// unexported in the destination struct.
// FieldType is the type of the struct pointed to by the destination argument.
type ErrFieldMismatch struct {
	FieldType reflect.Type
	FieldName string
	Reason    string
}

func (e ErrFieldMismatch) Error() string {
	return fmt.Sprintf("wmi: cannot load field %q into a %q: %s",
		e.FieldName, e.FieldType, e.Reason)
}
