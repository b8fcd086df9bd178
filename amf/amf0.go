package amf

// AMF0 type markers.
const (
	amf0Number      = 0x00
	amf0Boolean     = 0x01
	amf0String      = 0x02
	amf0Object      = 0x03
	amf0MovieClip   = 0x04 // reserved, not supported
	amf0Null        = 0x05
	amf0Undefined   = 0x06
	amf0Reference   = 0x07
	amf0EcmaArray   = 0x08
	amf0ObjectEnd   = 0x09
	amf0StrictArray = 0x0A
	amf0Date        = 0x0B
	amf0LongString  = 0x0C
	amf0Unsupported = 0x0D
	amf0RecordSet   = 0x0E // reserved, not supported
	amf0XMLDocument = 0x0F
	amf0TypedObject = 0x10
	amf0AVMPlus     = 0x11 // escape into AMF3
)

func (s *decodeSession) decodeAMF0Value() (*Value, error) {
	offset := s.r.Pos()
	marker, err := s.r.ReadU8()
	if err != nil {
		return nil, err
	}

	switch marker {
	case amf0Number:
		f, err := s.r.ReadF64BE()
		if err != nil {
			return nil, err
		}
		return NewNumber(f), nil

	case amf0Boolean:
		b, err := s.r.ReadU8()
		if err != nil {
			return nil, err
		}
		return NewBoolean(b != 0), nil

	case amf0String:
		n, err := s.r.ReadU16BE()
		if err != nil {
			return nil, err
		}
		str, err := s.r.ReadString(int(n))
		if err != nil {
			return nil, err
		}
		return NewString(str), nil

	case amf0LongString:
		n, err := s.r.ReadU32BE()
		if err != nil {
			return nil, err
		}
		str, err := s.r.ReadString(int(n))
		if err != nil {
			return nil, err
		}
		return NewString(str), nil

	case amf0XMLDocument:
		n, err := s.r.ReadU32BE()
		if err != nil {
			return nil, err
		}
		str, err := s.r.ReadString(int(n))
		if err != nil {
			return nil, err
		}
		return NewXML(str), nil

	case amf0Null, amf0Undefined, amf0Unsupported:
		return NewNull(), nil

	case amf0Reference:
		idx, err := s.r.ReadU16BE()
		if err != nil {
			return nil, err
		}
		v, err := s.amf0Objects.get(int(idx))
		if err != nil {
			return nil, err
		}
		return v, nil

	case amf0Date:
		ms, err := s.r.ReadF64BE()
		if err != nil {
			return nil, err
		}
		if _, err := s.r.ReadU16BE(); err != nil { // timezone, ignored
			return nil, err
		}
		return NewDate(ms), nil

	case amf0StrictArray:
		n, err := s.r.ReadU32BE()
		if err != nil {
			return nil, err
		}
		v := &Value{Kind: KindArray}
		s.amf0Objects.push(v)
		elems := make([]*Value, 0, n)
		for i := uint32(0); i < n; i++ {
			s.enter()
			elem, err := s.decodeAMF0Value()
			s.leave()
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
		v.Elements = elems
		return v, nil

	case amf0Object:
		v := &Value{Kind: KindMapping}
		s.amf0Objects.push(v)
		pairs, err := s.decodeAMF0Properties()
		if err != nil {
			return nil, err
		}
		v.Assoc = pairs
		return v, nil

	case amf0TypedObject:
		n, err := s.r.ReadU16BE()
		if err != nil {
			return nil, err
		}
		className, err := s.r.ReadString(int(n))
		if err != nil {
			return nil, err
		}
		rec := &Record{ClassName: className}
		v := &Value{Kind: KindRecord, Record: rec}
		s.amf0Objects.push(v)

		pairs, err := s.decodeAMF0Properties()
		if err != nil {
			return nil, err
		}
		rec.Sealed = pairs

		handle, err := s.mapper.Instantiate(className)
		if err != nil {
			e := errUnknownClass(className).(*Error)
			e.Cause = err
			return nil, e
		}
		rec.Handle = handle
		translate := s.mapper.Option(handle, "translate_case")
		rec.Sealed = translateKeysToHost(rec.Sealed, translate)
		if err := s.mapper.Populate(handle, rec.Sealed, nil, false); err != nil {
			return nil, errExternalizable(className, err)
		}
		return v, nil

	case amf0EcmaArray:
		if _, err := s.r.ReadU32BE(); err != nil { // informational count, ignored
			return nil, err
		}
		v := &Value{Kind: KindMapping}
		s.amf0Objects.push(v)
		pairs, err := s.decodeAMF0Properties()
		if err != nil {
			return nil, err
		}
		v.Assoc = pairs
		return v, nil

	case amf0AVMPlus:
		return s.decodeAMF3Value()

	default:
		return nil, errBadMarker(offset, marker, "amf0")
	}
}

// decodeAMF0Properties reads the OBJECT/TYPED-OBJECT/HASH property-pair
// loop: u16-length key, value, repeated until a zero-length key followed
// by the OBJECT-END marker.
func (s *decodeSession) decodeAMF0Properties() ([]KeyValue, error) {
	var pairs []KeyValue
	for {
		n, err := s.r.ReadU16BE()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			offset := s.r.Pos()
			marker, err := s.r.ReadU8()
			if err != nil {
				return nil, err
			}
			if marker != amf0ObjectEnd {
				return nil, errBadMarker(offset, marker, "amf0")
			}
			return pairs, nil
		}
		key, err := s.r.ReadString(int(n))
		if err != nil {
			return nil, err
		}
		s.enter()
		val, err := s.decodeAMF0Value()
		s.leave()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, KeyValue{Key: key, Value: val})
	}
}

// encodeAMF0Value dispatches on v.Kind, consulting the object cache for
// Array/Mapping/Record so repeated values become REFERENCE markers.
func (s *encodeSession) encodeAMF0Value(v *Value) error {
	if v == nil {
		return s.w.WriteU8(amf0Null)
	}

	switch v.Kind {
	case KindNull:
		return s.w.WriteU8(amf0Null)

	case KindBoolean:
		if err := s.w.WriteU8(amf0Boolean); err != nil {
			return err
		}
		var b byte
		if v.Bool {
			b = 1
		}
		return s.w.WriteU8(b)

	case KindNumber:
		if err := s.w.WriteU8(amf0Number); err != nil {
			return err
		}
		return s.w.WriteF64BE(v.Num)

	case KindInteger:
		if err := s.w.WriteU8(amf0Number); err != nil {
			return err
		}
		return s.w.WriteF64BE(float64(v.Int))

	case KindString:
		return s.encodeAMF0String(v.Str)

	case KindXML:
		if err := s.w.WriteU8(amf0XMLDocument); err != nil {
			return err
		}
		if err := s.w.WriteU32BE(uint32(len(v.Str))); err != nil {
			return err
		}
		return s.w.WriteString(v.Str)

	case KindDate:
		if err := s.w.WriteU8(amf0Date); err != nil {
			return err
		}
		if err := s.w.WriteF64BE(v.DateMS); err != nil {
			return err
		}
		return s.w.WriteU16BE(0)

	case KindArray:
		if idx, ok := s.amf0Objects.lookup(v); ok {
			return s.encodeAMF0Reference(idx)
		}
		s.amf0Objects.add(v)
		if err := s.w.WriteU8(amf0StrictArray); err != nil {
			return err
		}
		if err := s.w.WriteU32BE(uint32(len(v.Elements))); err != nil {
			return err
		}
		for _, e := range v.Elements {
			if err := s.encodeAMF0Value(e); err != nil {
				return err
			}
		}
		return nil

	case KindMixedArray:
		// AMF0 has no mixed-array marker; fold dense+assoc into a HASH,
		// writing the associative part first, then dense entries keyed
		// by their decimal string index.
		if idx, ok := s.amf0Objects.lookup(v); ok {
			return s.encodeAMF0Reference(idx)
		}
		s.amf0Objects.add(v)
		if err := s.w.WriteU8(amf0EcmaArray); err != nil {
			return err
		}
		if err := s.w.WriteU32BE(uint32(len(v.Assoc) + len(v.Elements))); err != nil {
			return err
		}
		if err := s.encodeAMF0PropertyPairs(v.Assoc); err != nil {
			return err
		}
		for i, e := range v.Elements {
			if err := s.encodeAMF0Property(decimalIndex(i), e); err != nil {
				return err
			}
		}
		return s.encodeAMF0Terminator()

	case KindMapping:
		if idx, ok := s.amf0Objects.lookup(v); ok {
			return s.encodeAMF0Reference(idx)
		}
		s.amf0Objects.add(v)
		if err := s.w.WriteU8(amf0Object); err != nil {
			return err
		}
		if err := s.encodeAMF0PropertyPairs(v.Assoc); err != nil {
			return err
		}
		return s.encodeAMF0Terminator()

	case KindRecord:
		return s.encodeAMF0Record(v)

	default:
		return errIntegerOutOfRange("value kind " + v.Kind.String() + " has no AMF0 representation")
	}
}

func (s *encodeSession) encodeAMF0Reference(idx int) error {
	if idx > 0xFFFF {
		return errReferenceIndexOverflow(idx)
	}
	if err := s.w.WriteU8(amf0Reference); err != nil {
		return err
	}
	return s.w.WriteU16BE(uint16(idx))
}

func (s *encodeSession) encodeAMF0String(str string) error {
	if len(str) <= 0xFFFF {
		if err := s.w.WriteU8(amf0String); err != nil {
			return err
		}
		if err := s.w.WriteU16BE(uint16(len(str))); err != nil {
			return err
		}
		return s.w.WriteString(str)
	}
	if err := s.w.WriteU8(amf0LongString); err != nil {
		return err
	}
	if err := s.w.WriteU32BE(uint32(len(str))); err != nil {
		return err
	}
	return s.w.WriteString(str)
}

func (s *encodeSession) encodeAMF0Record(v *Value) error {
	if idx, ok := s.amf0Objects.lookup(v); ok {
		return s.encodeAMF0Reference(idx)
	}
	s.amf0Objects.add(v)

	rec := v.Record
	className := rec.ClassName
	sealed := rec.Sealed
	dynamic := rec.Dynamic
	if rec.Handle != nil {
		if name, ok := s.mapper.ClassNameFor(rec.Handle); ok {
			className = name
		}
		if props, err := s.mapper.PropertiesFor(rec.Handle); err == nil && props != nil {
			sealed = props
			dynamic = nil
		}
	}
	translate := s.mapper.Option(rec.Handle, "translate_case")
	sealed = translateKeysToWire(sealed, translate)
	dynamic = translateKeysToWire(dynamic, translate)

	if className == "" {
		if err := s.w.WriteU8(amf0Object); err != nil {
			return err
		}
	} else {
		if err := s.w.WriteU8(amf0TypedObject); err != nil {
			return err
		}
		if len(className) > 0xFFFF {
			return errIntegerOutOfRange("AMF0 class name exceeds 0xFFFF bytes")
		}
		if err := s.w.WriteU16BE(uint16(len(className))); err != nil {
			return err
		}
		if err := s.w.WriteString(className); err != nil {
			return err
		}
	}

	if err := s.encodeAMF0PropertyPairs(sealed); err != nil {
		return err
	}
	if err := s.encodeAMF0PropertyPairs(dynamic); err != nil {
		return err
	}
	return s.encodeAMF0Terminator()
}

func (s *encodeSession) encodeAMF0PropertyPairs(pairs []KeyValue) error {
	for _, kv := range pairs {
		if err := s.encodeAMF0Property(kv.Key, kv.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *encodeSession) encodeAMF0Property(key string, val *Value) error {
	if len(key) > 0xFFFF {
		return errIntegerOutOfRange("AMF0 property key exceeds 0xFFFF bytes")
	}
	if err := s.w.WriteU16BE(uint16(len(key))); err != nil {
		return err
	}
	if err := s.w.WriteString(key); err != nil {
		return err
	}
	return s.encodeAMF0Value(val)
}

func (s *encodeSession) encodeAMF0Terminator() error {
	if err := s.w.WriteU16BE(0); err != nil {
		return err
	}
	return s.w.WriteU8(amf0ObjectEnd)
}

func decimalIndex(i int) string {
	if i == 0 {
		return "0"
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
