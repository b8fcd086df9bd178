package amf

import "testing"

// corpus exercises a representative spread of Value shapes against both
// dialects' round-trip invariant.
func corpus() []*Value {
	return []*Value{
		NewNull(),
		NewBoolean(true),
		NewBoolean(false),
		NewNumber(3.5),
		NewNumber(-0.125),
		NewInteger(0),
		NewInteger(127),
		NewInteger(-268435456),
		NewString(""),
		NewString("hello"),
		NewDate(1_600_000_000_000),
		NewArray(NewInteger(1), NewString("a"), NewBoolean(true)),
		NewByteArray([]byte{1, 2, 3, 4}),
		NewMapping(
			KeyValue{Key: "a", Value: NewInteger(1)},
			KeyValue{Key: "b", Value: NewString("two")},
		),
	}
}

func TestRoundTripAMF3(t *testing.T) {
	for _, v := range corpus() {
		out, err := EncodeAMF3(v, nil)
		if err != nil {
			t.Fatalf("encode %v: %v", v.Kind, err)
		}
		back, err := DecodeAMF3(out, nil)
		if err != nil {
			t.Fatalf("decode %v: %v", v.Kind, err)
		}
		if !v.Equal(back) {
			t.Errorf("round-trip mismatch for %v: %+v vs %+v", v.Kind, v, back)
		}
	}
}

func TestRoundTripAMF0(t *testing.T) {
	for _, v := range corpus() {
		if v.Kind == KindByteArray {
			continue // ByteArray has no AMF0 representation
		}
		out, err := EncodeAMF0(v, nil)
		if err != nil {
			t.Fatalf("encode %v: %v", v.Kind, err)
		}
		back, err := DecodeAMF0(out, nil)
		if err != nil {
			t.Fatalf("decode %v: %v", v.Kind, err)
		}
		want := amf0Expected(v)
		if !want.Equal(back) {
			t.Errorf("round-trip mismatch for %v: %+v vs %+v", v.Kind, want, back)
		}
	}
}

// amf0Expected returns what an AMF0 round-trip of v decodes to: AMF0 has no
// integer marker, so every Integer comes back as the equal Number.
func amf0Expected(v *Value) *Value {
	switch v.Kind {
	case KindInteger:
		return NewNumber(float64(v.Int))
	case KindArray:
		elems := make([]*Value, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = amf0Expected(e)
		}
		return NewArray(elems...)
	case KindMapping:
		pairs := make([]KeyValue, len(v.Assoc))
		for i, kv := range v.Assoc {
			pairs[i] = KeyValue{Key: kv.Key, Value: amf0Expected(kv.Value)}
		}
		return NewMapping(pairs...)
	}
	return v
}

// TestByteStability confirms a decoded-then-re-encoded stream is
// byte-identical when the source already used canonical reference and
// property ordering.
func TestByteStability(t *testing.T) {
	v := NewArray(NewString("abc"), NewString("abc"), NewMapping(KeyValue{Key: "k", Value: NewInteger(1)}))
	out1, err := EncodeAMF3(v, nil)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeAMF3(out1, nil)
	if err != nil {
		t.Fatal(err)
	}
	out2, err := EncodeAMF3(decoded, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(out1) != string(out2) {
		t.Errorf("re-encode not byte-stable:\n%X\n%X", out1, out2)
	}
}

// TestReferenceResolution confirms that a decoded back-reference yields the
// same pointer identity as the value it refers back to, not merely an
// equal-valued copy.
func TestReferenceResolution(t *testing.T) {
	shared := NewMapping(KeyValue{Key: "id", Value: NewInteger(1)})
	v := NewArray(shared, shared)
	out, err := EncodeAMF3(v, nil)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeAMF3(out, nil)
	if err != nil {
		t.Fatal(err)
	}
	if back.Elements[0] != back.Elements[1] {
		t.Error("two references to the same encoded object must decode to the same pointer")
	}
}

// TestBoundsSafetyTruncatedPrefixes exercises every strict prefix of a
// multi-field encoded stream and confirms each either fails cleanly with
// UnexpectedEnd or succeeds — it must never panic or read out of bounds.
func TestBoundsSafetyTruncatedPrefixes(t *testing.T) {
	v := NewRecord(&Record{
		ClassName: "geo.Point",
		Sealed: []KeyValue{
			{Key: "x", Value: NewInteger(1)},
			{Key: "y", Value: NewInteger(2)},
		},
	})
	full, err := EncodeAMF3(v, nil)
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < len(full); n++ {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("prefix length %d panicked: %v", n, r)
				}
			}()
			_, err := DecodeAMF3(full[:n], nil)
			if err == nil {
				return // a short prefix may happen to be self-contained (e.g. just a Null marker)
			}
			if e, ok := err.(*Error); !ok || e.Kind != ErrUnexpectedEnd {
				t.Fatalf("prefix length %d: want UnexpectedEnd, got %v", n, err)
			}
		}()
	}
}

// TestCacheGrowthMonotonicity confirms object cache indices assigned during
// decode are consecutive integers starting at 0.
func TestCacheGrowthMonotonicity(t *testing.T) {
	s := newDecodeSession(nil, nil)
	values := []*Value{NewNull(), NewNull(), NewNull()}
	for i, v := range values {
		if idx := s.amf3Objects.push(v); idx != i {
			t.Errorf("push #%d returned index %d, want %d", i, idx, i)
		}
	}
}
