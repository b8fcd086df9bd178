// Package classmap is the default reflection-based binding between AMF wire
// class names and Go struct types, implementing amf.ClassMapper without
// requiring callers to hand-write Instantiate/Populate/ClassNameFor for
// every registered type.
//
// Struct fields opt into a wire property name with an `amf:"name"` tag; a
// field with `amf:"-"` is skipped entirely. Fields with no tag use their Go
// name translated to wire case according to the mapper's TranslateCase
// setting.
package classmap

import (
	"reflect"

	"github.com/ossrs/goamf/amf"
)

// Mapper maps AMF wire class names to registered Go struct types by
// reflection. The zero value is usable; register types with Register before
// decoding any stream that references them.
type Mapper struct {
	// TranslateCase, when true, causes the codec to convert wire camelCase
	// property names to Go-style snake_case on decode and back on encode.
	TranslateCase bool

	byClassName map[string]reflect.Type
	byGoType    map[reflect.Type]string
}

// NewMapper returns an empty Mapper. Types must be registered with Register
// before they can be instantiated during decode.
func NewMapper() *Mapper {
	return &Mapper{
		byClassName: make(map[string]reflect.Type),
		byGoType:    make(map[reflect.Type]string),
	}
}

// Register binds className to the type of zero, a pointer to the struct
// that should back Records with that wire class name. Register panics if
// zero is not a struct pointer, since that indicates a programming error at
// startup rather than a recoverable runtime condition.
func (m *Mapper) Register(className string, zero interface{}) {
	t := reflect.TypeOf(zero)
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		panic("classmap: Register requires a pointer to a struct, got " + t.String())
	}
	elem := t.Elem()
	if m.byClassName == nil {
		m.byClassName = make(map[string]reflect.Type)
		m.byGoType = make(map[reflect.Type]string)
	}
	m.byClassName[className] = elem
	m.byGoType[elem] = className
}

func (m *Mapper) Instantiate(className string) (interface{}, error) {
	t, ok := m.byClassName[className]
	if !ok {
		return nil, nil
	}
	return reflect.New(t).Interface(), nil
}

func (m *Mapper) Populate(handle interface{}, sealed, dynamic []amf.KeyValue, hasDynamic bool) error {
	if handle == nil {
		return nil
	}
	v := reflect.ValueOf(handle).Elem()
	fields := fieldsByWireName(v.Type())
	for _, kv := range sealed {
		assign(v, fields, kv)
	}
	for _, kv := range dynamic {
		assign(v, fields, kv)
	}
	return nil
}

func (m *Mapper) ClassNameFor(handle interface{}) (string, bool) {
	if handle == nil {
		return "", false
	}
	t := reflect.TypeOf(handle)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name, ok := m.byGoType[t]
	return name, ok
}

func (m *Mapper) PropertiesFor(handle interface{}) ([]amf.KeyValue, error) {
	if handle == nil {
		return nil, nil
	}
	v := reflect.ValueOf(handle)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()
	out := make([]amf.KeyValue, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, skip := wireName(f)
		if skip {
			continue
		}
		out = append(out, amf.KeyValue{Key: name, Value: valueOf(v.Field(i))})
	}
	return out, nil
}

func (m *Mapper) Option(handle interface{}, name string) bool {
	return name == "translate_case" && m.TranslateCase
}

// wireName returns the wire property name for struct field f and whether it
// should be skipped (amf:"-").
func wireName(f reflect.StructField) (name string, skip bool) {
	tag, ok := f.Tag.Lookup("amf")
	if ok {
		if tag == "-" {
			return "", true
		}
		return tag, false
	}
	return f.Name, false
}

func fieldsByWireName(t reflect.Type) map[string]int {
	out := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, skip := wireName(f)
		if skip {
			continue
		}
		out[name] = i
	}
	return out
}

func assign(v reflect.Value, fields map[string]int, kv amf.KeyValue) {
	idx, ok := fields[kv.Key]
	if !ok {
		return
	}
	field := v.Field(idx)
	if !field.CanSet() {
		return
	}
	setFromValue(field, kv.Value)
}

// setFromValue assigns the scalar AMF value wv onto the Go field, coercing
// between AMF's limited numeric/string vocabulary and the destination
// field's Go type. Shape mismatches are silently skipped rather than
// treated as fatal: a partially-typed decode is still useful to a caller
// that only cares about a subset of properties.
func setFromValue(field reflect.Value, wv *amf.Value) {
	if wv == nil {
		return
	}
	switch field.Kind() {
	case reflect.String:
		if wv.Kind == amf.KindString || wv.Kind == amf.KindXML {
			field.SetString(wv.Str)
		}
	case reflect.Bool:
		if wv.Kind == amf.KindBoolean {
			field.SetBool(wv.Bool)
		}
	case reflect.Float32, reflect.Float64:
		switch wv.Kind {
		case amf.KindNumber:
			field.SetFloat(wv.Num)
		case amf.KindInteger:
			field.SetFloat(float64(wv.Int))
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch wv.Kind {
		case amf.KindInteger:
			field.SetInt(int64(wv.Int))
		case amf.KindNumber:
			field.SetInt(int64(wv.Num))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 && wv.Kind == amf.KindByteArray {
			field.SetBytes(wv.Bytes)
		}
	}
}

// valueOf converts a Go field back into its AMF wire representation for
// encoding. Unsupported field kinds encode as Null rather than failing the
// whole record, matching the codec's general policy of surfacing failures
// only at points where the wire format itself cannot represent a value.
func valueOf(field reflect.Value) *amf.Value {
	switch field.Kind() {
	case reflect.String:
		return amf.NewString(field.String())
	case reflect.Bool:
		return amf.NewBoolean(field.Bool())
	case reflect.Float32, reflect.Float64:
		return amf.NewNumber(field.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return amf.NewInteger(int32(field.Int()))
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, field.Len())
			reflect.Copy(reflect.ValueOf(b), field)
			return amf.NewByteArray(b)
		}
	}
	return amf.NewNull()
}
