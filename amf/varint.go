package amf

// U29 is AMF3's variable-length 29-bit encoding: 1 to 4 bytes, the high bit
// of each of the first three bytes a continuation flag, the fourth byte (if
// reached) contributing all 8 of its bits instead of 7.

const (
	u29Max  = 0x1FFFFFFF // 2^29 - 1, the largest unsigned value U29 can hold.
	i29Min  = -(1 << 28)
	i29Max  = (1 << 28) - 1
	i29Mask = 0x1FFFFFFF
	i29Sign = 0x10000000 // bit 28
)

// decodeU29Raw reads a U29 and returns its unsigned bit pattern (0..2^29-1),
// with no sign interpretation.
func decodeU29Raw(r *Reader) (uint32, error) {
	var result uint32
	for i := 0; i < 3; i++ {
		b, err := r.ReadU8()
		if err != nil {
			return 0, err
		}
		result = result<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return result, nil
		}
	}
	// Fourth byte: all 8 bits count, not 7.
	b, err := r.ReadU8()
	if err != nil {
		return 0, err
	}
	result = result<<8 | uint32(b)
	return result, nil
}

// DecodeU29 reads an unsigned U29 value.
func DecodeU29(r *Reader) (uint32, error) {
	return decodeU29Raw(r)
}

// DecodeI29 reads a U29 and sign-extends it to a signed 29-bit integer.
func DecodeI29(r *Reader) (int32, error) {
	u, err := decodeU29Raw(r)
	if err != nil {
		return 0, err
	}
	if u&i29Sign != 0 {
		u -= 0x20000000
	}
	return int32(u), nil
}

// encodeU29Raw encodes the low 29 bits of v as 1-4 bytes, selecting the
// shortest width for v's magnitude. v must already be in [0, 2^29-1].
func encodeU29Raw(v uint32) ([]byte, error) {
	if v > u29Max {
		return nil, errIntegerOutOfRange("u29 value exceeds 2^29-1")
	}
	switch {
	case v < 0x80:
		return []byte{byte(v)}, nil
	case v < 0x4000:
		return []byte{
			byte(0x80 | (v >> 7)),
			byte(v & 0x7F),
		}, nil
	case v < 0x200000:
		return []byte{
			byte(0x80 | (v >> 14)),
			byte(0x80 | ((v >> 7) & 0x7F)),
			byte(v & 0x7F),
		}, nil
	default: // < 2^29
		return []byte{
			byte(0x80 | ((v >> 22) & 0x7F)),
			byte(0x80 | ((v >> 15) & 0x7F)),
			byte(0x80 | ((v >> 8) & 0x7F)),
			byte(v),
		}, nil
	}
}

// EncodeU29 encodes an unsigned value already known to fit in 29 bits.
func EncodeU29(v uint32) ([]byte, error) {
	return encodeU29Raw(v)
}

// EncodeI29 encodes a signed integer in [-2^28, 2^28-1] as U29.
func EncodeI29(v int32) ([]byte, error) {
	if v < i29Min || v > i29Max {
		return nil, errIntegerOutOfRange("integer outside representable 29-bit signed range")
	}
	u := uint32(v) & i29Mask
	return encodeU29Raw(u)
}

func writeU29(w *Writer, v uint32) error {
	b, err := encodeU29Raw(v)
	if err != nil {
		return err
	}
	return w.WriteBytes(b)
}

func writeI29(w *Writer, v int32) error {
	b, err := EncodeI29(v)
	if err != nil {
		return err
	}
	return w.WriteBytes(b)
}
