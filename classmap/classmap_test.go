package classmap

import (
	"testing"

	"github.com/ossrs/goamf/amf"
)

type point struct {
	X int32   `amf:"x"`
	Y int32   `amf:"y"`
	Z float64 `amf:"-"`
}

func TestMapperRoundTrip(t *testing.T) {
	m := NewMapper()
	m.Register("geo.Point", &point{})

	v := amf.NewRecord(&amf.Record{
		ClassName: "geo.Point",
		Sealed: []amf.KeyValue{
			{Key: "x", Value: amf.NewInteger(1)},
			{Key: "y", Value: amf.NewInteger(2)},
		},
	})
	out, err := amf.EncodeAMF3(v, m)
	if err != nil {
		t.Fatal(err)
	}
	back, err := amf.DecodeAMF3(out, m)
	if err != nil {
		t.Fatal(err)
	}
	p, ok := back.Record.Handle.(*point)
	if !ok {
		t.Fatalf("Handle = %T, want *point", back.Record.Handle)
	}
	if p.X != 1 || p.Y != 2 {
		t.Errorf("got %+v", p)
	}
}

func TestMapperUnregisteredClassFallsBackToGeneric(t *testing.T) {
	m := NewMapper()
	handle, err := m.Instantiate("some.Unknown")
	if err != nil || handle != nil {
		t.Fatalf("Instantiate = %v, %v", handle, err)
	}
}

func TestMapperSkipsIgnoredField(t *testing.T) {
	m := NewMapper()
	m.Register("geo.Point", &point{})
	handle, _ := m.Instantiate("geo.Point")
	if err := m.Populate(handle, []amf.KeyValue{{Key: "z", Value: amf.NewNumber(9)}}, nil, false); err != nil {
		t.Fatal(err)
	}
	p := handle.(*point)
	if p.Z != 0 {
		t.Errorf("field tagged amf:\"-\" must not be assigned, got %v", p.Z)
	}
}

func TestMapperPropertiesForEncodesRegisteredFields(t *testing.T) {
	m := NewMapper()
	m.Register("geo.Point", &point{})
	p := &point{X: 5, Y: 6}
	props, err := m.PropertiesFor(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(props) != 2 {
		t.Fatalf("got %d properties, want 2 (Z is tagged amf:\"-\")", len(props))
	}
	name, ok := m.ClassNameFor(p)
	if !ok || name != "geo.Point" {
		t.Errorf("ClassNameFor = %q, %v", name, ok)
	}
}
