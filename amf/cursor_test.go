package amf

import "testing"

func TestReaderPrimitives(t *testing.T) {
	r := NewReader([]byte{0x00, 0x40, 0x0C, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})
	marker, err := r.ReadU8()
	if err != nil || marker != 0x00 {
		t.Fatalf("ReadU8: %v, %v", marker, err)
	}
	f, err := r.ReadF64BE()
	if err != nil {
		t.Fatal(err)
	}
	if f != 3.5 {
		t.Errorf("ReadF64BE = %v, want 3.5", f)
	}
}

func TestReaderBoundsChecked(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	_, err := r.ReadU32BE()
	if err == nil {
		t.Fatal("expected UnexpectedEnd reading u32 from a 2-byte buffer")
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if e.Kind != ErrUnexpectedEnd {
		t.Errorf("expected ErrUnexpectedEnd, got %v", e.Kind)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	w := NewWriter()
	if err := w.WriteU8(0xAB); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteU16BE(0x1234); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteU32BE(0xDEADBEEF); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteF64BE(3.5); err != nil {
		t.Fatal(err)
	}

	r := NewReader(w.Bytes())
	if b, _ := r.ReadU8(); b != 0xAB {
		t.Errorf("u8 = %x", b)
	}
	if v, _ := r.ReadU16BE(); v != 0x1234 {
		t.Errorf("u16 = %x", v)
	}
	if v, _ := r.ReadU32BE(); v != 0xDEADBEEF {
		t.Errorf("u32 = %x", v)
	}
	if f, _ := r.ReadF64BE(); f != 3.5 {
		t.Errorf("f64 = %v", f)
	}
}

func TestWriterStreamTooLarge(t *testing.T) {
	w := &Writer{buf: make([]byte, MaxStreamLength)}
	if err := w.WriteU8(0); err == nil {
		t.Error("expected StreamTooLarge once the cap is reached")
	}
}
