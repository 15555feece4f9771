package serialization

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrorKind classifies a serialization error
type ErrorKind string

const (
	KindParse           ErrorKind = "ParseError"
	KindStrictMismatch  ErrorKind = "StrictModeMismatch"
	KindUnknownElement  ErrorKind = "UnknownElement"
	KindUnknownProperty ErrorKind = "UnknownProperty"
	KindConversion      ErrorKind = "PropertyConversionError"
	KindEngine          ErrorKind = "EngineError" // aborts the whole operation
)

// Error is a recorded, non-fatal problem found while reading or writing
type Error struct {
	Kind         ErrorKind
	ElementID    uuid.UUID
	ElementName  string
	PropertyName string
	Message      string
	Phase        Phase
	Inner        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Kind)
	if e.ElementName != "" {
		fmt.Fprintf(&b, " in %s", e.ElementName)
	}
	if e.ElementID != uuid.Nil {
		fmt.Fprintf(&b, " (%s)", e.ElementID)
	}
	if e.PropertyName != "" {
		fmt.Fprintf(&b, " property %s", e.PropertyName)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	if e.Inner != nil {
		fmt.Fprintf(&b, ": %v", e.Inner)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Inner
}
