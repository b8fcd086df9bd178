package amf

import (
	"strings"
	"unicode"
)

// ClassMapper is the external collaborator the codec consults whenever it
// decodes an AMF0 typed object or any AMF3 object, and whenever it encodes
// a Record. AMF0 anonymous objects and hashes decode to a Mapping without
// consulting it. It never owns wire
// format knowledge; it only resolves wire class names to host handles and
// back.
//
// Implementations must be re-entrant: encoding one record's properties may
// itself trigger PropertiesFor/ClassNameFor calls for nested records.
type ClassMapper interface {
	// Instantiate constructs a handle for className, or returns (nil, nil)
	// to fall back to the generic Record/Mapping representation with no
	// host handle attached.
	Instantiate(className string) (interface{}, error)

	// Populate bulk-assigns decoded properties onto handle. handle may be
	// nil, in which case Populate should be a no-op.
	Populate(handle interface{}, sealed []KeyValue, dynamic []KeyValue, hasDynamic bool) error

	// ClassNameFor returns the wire class name for handle, or ("", false)
	// to encode it as an anonymous object/mapping.
	ClassNameFor(handle interface{}) (string, bool)

	// PropertiesFor enumerates handle's properties for encoding, in the
	// order they should be written.
	PropertiesFor(handle interface{}) ([]KeyValue, error)

	// Option reports a boolean out-of-band setting, such as
	// "translate_case", for handle.
	Option(handle interface{}, name string) bool
}

// ExternalClassMapper is implemented by a ClassMapper that also knows how
// to read externalizable payloads for particular classes. With a ClassMapper
// that does not implement this interface, decoding an externalizable object
// fails with ExternalizableError.
type ExternalClassMapper interface {
	ClassMapper
	ReadExternal(className string, r *Reader) ([]byte, error)
}

// NilMapper is a ClassMapper that always falls back to the generic
// representation: every record decodes to a plain Record/Mapping with no
// host handle, and translate_case is never applied. It is useful for tools
// that only need the wire-level Value tree (such as a dump/inspect CLI).
type NilMapper struct{}

func (NilMapper) Instantiate(string) (interface{}, error) { return nil, nil }
func (NilMapper) Populate(interface{}, []KeyValue, []KeyValue, bool) error {
	return nil
}
func (NilMapper) ClassNameFor(interface{}) (string, bool)      { return "", false }
func (NilMapper) PropertiesFor(interface{}) ([]KeyValue, error) { return nil, nil }
func (NilMapper) Option(interface{}, string) bool               { return false }

// camelToSnake converts a wire-style camelCase identifier to the host-style
// snake_case form: each uppercase letter becomes an underscore followed by
// its lowercase form.
func camelToSnake(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// snakeToCamel converts a host-style snake_case identifier to the wire-style
// camelCase form: each run of "_x" becomes "X".
func snakeToCamel(s string) string {
	var b strings.Builder
	upperNext := false
	for _, r := range s {
		if r == '_' {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// translateKeysToHost converts a list of wire-cased keys to host case when
// enabled is true; otherwise it returns pairs unchanged.
func translateKeysToHost(pairs []KeyValue, enabled bool) []KeyValue {
	if !enabled {
		return pairs
	}
	out := make([]KeyValue, len(pairs))
	for i, kv := range pairs {
		out[i] = KeyValue{Key: camelToSnake(kv.Key), Value: kv.Value}
	}
	return out
}

// translateKeysToWire converts a list of host-cased keys to wire case when
// enabled is true; otherwise it returns pairs unchanged.
func translateKeysToWire(pairs []KeyValue, enabled bool) []KeyValue {
	if !enabled {
		return pairs
	}
	out := make([]KeyValue, len(pairs))
	for i, kv := range pairs {
		out[i] = KeyValue{Key: snakeToCamel(kv.Key), Value: kv.Value}
	}
	return out
}
