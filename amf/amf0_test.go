package amf

import "testing"

func TestAMF0Number(t *testing.T) {
	b := []byte{0x00, 0x40, 0x0C, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	v, err := DecodeAMF0(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindNumber || v.Num != 3.5 {
		t.Fatalf("got %v", v)
	}

	out, err := EncodeAMF0(v, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != string(b) {
		t.Errorf("re-encode = % X, want % X", out, b)
	}
}

func TestAMF0TypedObjectOneProperty(t *testing.T) {
	b := []byte{
		0x10, // typed-object
		0x00, 0x07, 'f', 'o', 'o', '.', 'B', 'a', 'r',
		0x00, 0x01, 'x',
		0x00, 0x40, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // 3.0
		0x00, 0x00, 0x09, // empty key + object-end
	}
	v, err := DecodeAMF0(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindRecord {
		t.Fatalf("want Record, got %v", v.Kind)
	}
	if v.Record.ClassName != "foo.Bar" {
		t.Errorf("ClassName = %q", v.Record.ClassName)
	}
	if len(v.Record.Sealed) != 1 || v.Record.Sealed[0].Key != "x" || v.Record.Sealed[0].Value.Num != 3.0 {
		t.Errorf("Sealed = %+v", v.Record.Sealed)
	}
}

func TestAMF0TypedObjectRoundTrip(t *testing.T) {
	v := NewRecord(&Record{
		ClassName: "foo.Bar",
		Sealed:    []KeyValue{{Key: "x", Value: NewNumber(3.0)}},
	})
	out, err := EncodeAMF0(v, nil)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeAMF0(out, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Equal(back) {
		t.Errorf("round-trip mismatch: %+v vs %+v", v, back)
	}
}

func TestAMF0CircularArray(t *testing.T) {
	b := []byte{
		0x0A, 0x00, 0x00, 0x00, 0x01, // strict-array, length 1
		0x07, 0x00, 0x00, // reference to index 0
	}
	v, err := DecodeAMF0(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindArray || len(v.Elements) != 1 {
		t.Fatalf("got %v", v)
	}
	if v.Elements[0] != v {
		t.Error("element 0 must be the same Array by pointer identity")
	}
}

func TestAMF0MixedArrayFoldsToHash(t *testing.T) {
	v := NewMixedArray(
		[]*Value{NewString("a"), NewString("b")},
		[]KeyValue{{Key: "name", Value: NewString("x")}},
	)
	out, err := EncodeAMF0(v, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != amf0EcmaArray {
		t.Fatalf("expected ECMA-array marker, got %#x", out[0])
	}
	back, err := DecodeAMF0(out, nil)
	if err != nil {
		t.Fatal(err)
	}
	// AMF0 has no mixed-array marker, so the dense part folds into the
	// associative part keyed by its decimal index; decoding it back
	// yields a plain Mapping, not the original MixedArray shape.
	if back.Kind != KindMapping {
		t.Fatalf("got %v", back.Kind)
	}
	if got, ok := back.Get("name"); !ok || got.Str != "x" {
		t.Errorf("Get(name) = %v, %v", got, ok)
	}
	if got, ok := back.Get("0"); !ok || got.Str != "a" {
		t.Errorf("Get(0) = %v, %v", got, ok)
	}
	if got, ok := back.Get("1"); !ok || got.Str != "b" {
		t.Errorf("Get(1) = %v, %v", got, ok)
	}
}

func TestAMF0LongStringThreshold(t *testing.T) {
	short := string(make([]byte, 10))
	out, err := EncodeAMF0(NewString(short), nil)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != amf0String {
		t.Errorf("short string should use STRING marker, got %#x", out[0])
	}

	long := string(make([]byte, 0x10000))
	out, err = EncodeAMF0(NewString(long), nil)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != amf0LongString {
		t.Errorf("string over 0xFFFF bytes should use LONG-STRING marker, got %#x", out[0])
	}
	back, err := DecodeAMF0(out, nil)
	if err != nil {
		t.Fatal(err)
	}
	if back.Str != long {
		t.Error("long string round-trip mismatch")
	}
}

func TestAMF0ReferenceIndexOverflow(t *testing.T) {
	s := newEncodeSession(nil)
	err := s.encodeAMF0Reference(0x10000)
	if err == nil {
		t.Fatal("expected ReferenceIndexOverflow for an index beyond u16 range")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != ErrReferenceIndexOverflow {
		t.Errorf("got %v", err)
	}
}

func TestAMF0BadMarker(t *testing.T) {
	_, err := DecodeAMF0([]byte{0xFF}, nil)
	if err == nil {
		t.Fatal("expected BadMarker")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != ErrBadMarker {
		t.Errorf("got %v", err)
	}
}

func TestAMF0NullUndefinedUnsupported(t *testing.T) {
	for _, marker := range []byte{amf0Null, amf0Undefined, amf0Unsupported} {
		v, err := DecodeAMF0([]byte{marker}, nil)
		if err != nil {
			t.Fatalf("marker %#x: %v", marker, err)
		}
		if v.Kind != KindNull {
			t.Errorf("marker %#x decoded to %v, want Null", marker, v.Kind)
		}
	}
}
