package amf

import "fmt"

// ErrorKind identifies a class of codec failure, matching the error
// taxonomy: wire violations, encoder policy violations and class-mapper
// failures. All are fatal for the session that raised them.
type ErrorKind int

const (
	ErrUnexpectedEnd ErrorKind = iota
	ErrBadMarker
	ErrBadReference
	ErrBadU29
	ErrInvalidUTF8
	ErrIntegerOutOfRange
	ErrReferenceIndexOverflow
	ErrStreamTooLarge
	ErrUnknownClass
	ErrExternalizable
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnexpectedEnd:
		return "UnexpectedEnd"
	case ErrBadMarker:
		return "BadMarker"
	case ErrBadReference:
		return "BadReference"
	case ErrBadU29:
		return "BadU29"
	case ErrInvalidUTF8:
		return "InvalidUtf8"
	case ErrIntegerOutOfRange:
		return "IntegerOutOfRange"
	case ErrReferenceIndexOverflow:
		return "ReferenceIndexOverflow"
	case ErrStreamTooLarge:
		return "StreamTooLarge"
	case ErrUnknownClass:
		return "UnknownClass"
	case ErrExternalizable:
		return "ExternalizableError"
	default:
		return "Unknown"
	}
}

// Error is the single error type surfaced to session entry points. It
// carries enough context (byte offset, marker, table sizes) to diagnose a
// wire violation without re-running the decoder.
type Error struct {
	Kind ErrorKind

	// Offset is the byte position in the stream where the failure was
	// detected, or -1 when not applicable (e.g. pure encoder policy errors).
	Offset int

	// Marker is the offending type marker, valid only when HasMarker.
	Marker    byte
	HasMarker bool

	// Dialect is "amf0" or "amf3", when relevant.
	Dialect string

	// Table/Index/Size describe a bad reference.
	Table string
	Index int
	Size  int

	// Class is the offending wire class name, for UnknownClass/Externalizable errors.
	Class string

	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" (offset %d)", e.Offset)
	}
	if e.HasMarker {
		msg += fmt.Sprintf(" (marker 0x%02X, dialect %s)", e.Marker, e.Dialect)
	}
	if e.Table != "" {
		msg += fmt.Sprintf(" (%s[%d], size %d)", e.Table, e.Index, e.Size)
	}
	if e.Class != "" {
		msg += fmt.Sprintf(" (class %q)", e.Class)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func errUnexpectedEnd(offset int) error {
	return &Error{Kind: ErrUnexpectedEnd, Offset: offset}
}

func errBadMarker(offset int, marker byte, dialect string) error {
	return &Error{Kind: ErrBadMarker, Offset: offset, Marker: marker, HasMarker: true, Dialect: dialect}
}

func errBadReference(offset int, table string, index, size int) error {
	return &Error{Kind: ErrBadReference, Offset: offset, Table: table, Index: index, Size: size}
}

func errBadU29(offset int) error {
	return &Error{Kind: ErrBadU29, Offset: offset}
}

func errInvalidUTF8(offset int) error {
	return &Error{Kind: ErrInvalidUTF8, Offset: offset}
}

func errIntegerOutOfRange(message string) error {
	return &Error{Kind: ErrIntegerOutOfRange, Offset: -1, Message: message}
}

func errReferenceIndexOverflow(index int) error {
	return &Error{Kind: ErrReferenceIndexOverflow, Offset: -1, Index: index}
}

func errStreamTooLarge(size int) error {
	return &Error{Kind: ErrStreamTooLarge, Offset: -1, Size: size}
}

func errUnknownClass(class string) error {
	return &Error{Kind: ErrUnknownClass, Offset: -1, Class: class}
}

func errExternalizable(class string, cause error) error {
	return &Error{Kind: ErrExternalizable, Offset: -1, Class: class, Cause: cause}
}
