package amf

// AMF3 type markers.
const (
	amf3Undefined  = 0x00
	amf3Null       = 0x01
	amf3False      = 0x02
	amf3True       = 0x03
	amf3Integer    = 0x04
	amf3Double     = 0x05
	amf3String     = 0x06
	amf3XMLDoc     = 0x07
	amf3Date       = 0x08
	amf3Array      = 0x09
	amf3Object     = 0x0A
	amf3XML        = 0x0B
	amf3ByteArray  = 0x0C
	amf3Dictionary = 0x11
)

const arrayCollectionClassName = "flex.messaging.io.ArrayCollection"

func (s *decodeSession) decodeAMF3Value() (*Value, error) {
	offset := s.r.Pos()
	marker, err := s.r.ReadU8()
	if err != nil {
		return nil, err
	}

	switch marker {
	case amf3Undefined, amf3Null:
		return NewNull(), nil
	case amf3False:
		return NewBoolean(false), nil
	case amf3True:
		return NewBoolean(true), nil

	case amf3Integer:
		i, err := DecodeI29(s.r)
		if err != nil {
			return nil, err
		}
		return NewInteger(i), nil

	case amf3Double:
		f, err := s.r.ReadF64BE()
		if err != nil {
			return nil, err
		}
		return NewNumber(f), nil

	case amf3String:
		str, err := s.decodeAMF3StringInline()
		if err != nil {
			return nil, err
		}
		return NewString(str), nil

	case amf3XMLDoc, amf3XML:
		return s.decodeAMF3XML()

	case amf3Date:
		return s.decodeAMF3Date()

	case amf3Array:
		return s.decodeAMF3Array()

	case amf3Object:
		return s.decodeAMF3Object()

	case amf3ByteArray:
		return s.decodeAMF3ByteArray()

	case amf3Dictionary:
		return s.decodeAMF3Dictionary()

	default:
		return nil, errBadMarker(offset, marker, "amf3")
	}
}

// decodeAMF3Header reads a U29 header and reports whether it denotes a
// back-reference (h&1==0, index h>>1) or an inline value (remaining bits
// in h>>1).
func (s *decodeSession) decodeAMF3Header() (h uint32, isReference bool, err error) {
	h, err = decodeU29Raw(s.r)
	if err != nil {
		return 0, false, err
	}
	return h, h&1 == 0, nil
}

// decodeAMF3StringInline reads a U29 header for a STRING marker already
// consumed, resolving either a string-cache reference or an inline value
// that (if non-empty) is added to the string cache.
func (s *decodeSession) decodeAMF3StringInline() (string, error) {
	h, isRef, err := s.decodeAMF3Header()
	if err != nil {
		return "", err
	}
	if isRef {
		return s.amf3Strings.get(int(h >> 1))
	}
	n := int(h >> 1)
	str, err := s.r.ReadString(n)
	if err != nil {
		return "", err
	}
	if len(str) > 0 {
		s.amf3Strings.push(str)
	}
	return str, nil
}

func (s *decodeSession) decodeAMF3XML() (*Value, error) {
	h, isRef, err := s.decodeAMF3Header()
	if err != nil {
		return nil, err
	}
	if isRef {
		return s.amf3Objects.get(int(h >> 1))
	}
	n := int(h >> 1)
	str, err := s.r.ReadString(n)
	if err != nil {
		return nil, err
	}
	v := NewXML(str)
	s.amf3Objects.push(v)
	return v, nil
}

func (s *decodeSession) decodeAMF3Date() (*Value, error) {
	h, isRef, err := s.decodeAMF3Header()
	if err != nil {
		return nil, err
	}
	if isRef {
		return s.amf3Objects.get(int(h >> 1))
	}
	ms, err := s.r.ReadF64BE()
	if err != nil {
		return nil, err
	}
	v := NewDate(ms)
	s.amf3Objects.push(v)
	return v, nil
}

func (s *decodeSession) decodeAMF3ByteArray() (*Value, error) {
	h, isRef, err := s.decodeAMF3Header()
	if err != nil {
		return nil, err
	}
	if isRef {
		return s.amf3Objects.get(int(h >> 1))
	}
	n := int(h >> 1)
	raw, err := s.r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, raw)
	v := NewByteArray(b)
	s.amf3Objects.push(v)
	return v, nil
}

func (s *decodeSession) decodeAMF3Dictionary() (*Value, error) {
	h, isRef, err := s.decodeAMF3Header()
	if err != nil {
		return nil, err
	}
	if isRef {
		return s.amf3Objects.get(int(h >> 1))
	}
	count := int(h >> 1)
	v := &Value{Kind: KindDictionary}
	s.amf3Objects.push(v)

	if _, err := decodeU29Raw(s.r); err != nil { // weak-keys flag, discarded
		return nil, err
	}

	entries := make([]DictEntry, 0, count)
	for i := 0; i < count; i++ {
		s.enter()
		key, err := s.decodeAMF3Value()
		s.leave()
		if err != nil {
			return nil, err
		}
		s.enter()
		val, err := s.decodeAMF3Value()
		s.leave()
		if err != nil {
			return nil, err
		}
		entries = append(entries, DictEntry{Key: key, Value: val})
	}
	v.Entries = entries
	return v, nil
}

func (s *decodeSession) decodeAMF3Array() (*Value, error) {
	h, isRef, err := s.decodeAMF3Header()
	if err != nil {
		return nil, err
	}
	if isRef {
		return s.amf3Objects.get(int(h >> 1))
	}
	denseCount := int(h >> 1)

	v := &Value{Kind: KindArray}
	s.amf3Objects.push(v)

	var assoc []KeyValue
	for {
		s.enter()
		key, err := s.decodeAMF3StringInline()
		s.leave()
		if err != nil {
			return nil, err
		}
		if key == "" {
			break
		}
		s.enter()
		val, err := s.decodeAMF3Value()
		s.leave()
		if err != nil {
			return nil, err
		}
		assoc = append(assoc, KeyValue{Key: key, Value: val})
	}

	dense := make([]*Value, 0, denseCount)
	for i := 0; i < denseCount; i++ {
		s.enter()
		elem, err := s.decodeAMF3Value()
		s.leave()
		if err != nil {
			return nil, err
		}
		dense = append(dense, elem)
	}

	v.Elements = dense
	if len(assoc) > 0 {
		v.Kind = KindMixedArray
		v.Assoc = assoc
	}
	return v, nil
}

func (s *decodeSession) decodeAMF3Object() (*Value, error) {
	h, isRef, err := s.decodeAMF3Header()
	if err != nil {
		return nil, err
	}
	if isRef {
		return s.amf3Objects.get(int(h >> 1))
	}

	var traits *Traits
	if h&0x02 == 0 {
		traits, err = s.amf3Traits.get(int(h >> 2))
		if err != nil {
			return nil, err
		}
	} else {
		externalizable := h&0x04 != 0
		dynamic := h&0x08 != 0
		memberCount := int(h >> 4)

		s.enter()
		className, err := s.decodeAMF3StringInline()
		s.leave()
		if err != nil {
			return nil, err
		}

		members := make([]string, memberCount)
		for i := 0; i < memberCount; i++ {
			s.enter()
			members[i], err = s.decodeAMF3StringInline()
			s.leave()
			if err != nil {
				return nil, err
			}
		}

		traits = &Traits{
			ClassName:      className,
			Externalizable: externalizable,
			Dynamic:        dynamic,
			Members:        members,
		}
		s.amf3Traits.push(traits)
	}

	if traits.ClassName == arrayCollectionClassName {
		s.enter()
		inner, err := s.decodeAMF3Value()
		s.leave()
		if err != nil {
			return nil, err
		}
		s.amf3Objects.push(inner)
		return inner, nil
	}

	rec := &Record{ClassName: traits.ClassName, Externalizable: traits.Externalizable}
	v := &Value{Kind: KindRecord, Record: rec}
	s.amf3Objects.push(v)

	handle, err := s.mapper.Instantiate(traits.ClassName)
	if err != nil {
		e := errUnknownClass(traits.ClassName).(*Error)
		e.Cause = err
		return nil, e
	}
	rec.Handle = handle

	if traits.Externalizable {
		payload, err := s.readExternal(traits.ClassName)
		if err != nil {
			return nil, err
		}
		rec.External = payload
		if err := s.mapper.Populate(handle, nil, nil, false); err != nil {
			return nil, errExternalizable(traits.ClassName, err)
		}
		return v, nil
	}

	translate := s.mapper.Option(handle, "translate_case")

	sealed := make([]KeyValue, len(traits.Members))
	for i, name := range traits.Members {
		s.enter()
		val, err := s.decodeAMF3Value()
		s.leave()
		if err != nil {
			return nil, err
		}
		sealed[i] = KeyValue{Key: name, Value: val}
	}
	rec.Sealed = translateKeysToHost(sealed, translate)

	if traits.Dynamic {
		var dynamicProps []KeyValue
		for {
			s.enter()
			key, err := s.decodeAMF3StringInline()
			s.leave()
			if err != nil {
				return nil, err
			}
			if key == "" {
				break
			}
			s.enter()
			val, err := s.decodeAMF3Value()
			s.leave()
			if err != nil {
				return nil, err
			}
			dynamicProps = append(dynamicProps, KeyValue{Key: key, Value: val})
		}
		rec.HasDynamic = true
		rec.Dynamic = translateKeysToHost(dynamicProps, translate)
	}

	if err := s.mapper.Populate(handle, rec.Sealed, rec.Dynamic, rec.HasDynamic); err != nil {
		return nil, errExternalizable(traits.ClassName, err)
	}

	// An anonymous, dynamic object with no sealed members and no host handle
	// is the wire form encodeAMF3Mapping writes; it decodes as a Mapping.
	if traits.ClassName == "" && traits.Dynamic && len(traits.Members) == 0 && handle == nil {
		v.Kind = KindMapping
		v.Assoc = rec.Dynamic
		v.Record = nil
	}
	return v, nil
}

// readExternal hands off to the mapper's externalizable reader when it
// implements ExternalClassMapper. Since the core has no way to know the
// externalizable payload's length without the class's help, a mapper that
// does not implement ExternalClassMapper makes decoding an externalizable
// object fail with ExternalizableError.
func (s *decodeSession) readExternal(className string) ([]byte, error) {
	ext, ok := s.mapper.(ExternalClassMapper)
	if !ok {
		return nil, errExternalizable(className, errUnknownClass(className))
	}
	return ext.ReadExternal(className, s.r)
}

// --- encoding ---

func (s *encodeSession) encodeAMF3Value(v *Value) error {
	if v == nil {
		return s.w.WriteU8(amf3Null)
	}

	switch v.Kind {
	case KindNull:
		return s.w.WriteU8(amf3Null)

	case KindBoolean:
		if v.Bool {
			return s.w.WriteU8(amf3True)
		}
		return s.w.WriteU8(amf3False)

	case KindInteger:
		if v.Int < i29Min || v.Int > i29Max {
			if err := s.w.WriteU8(amf3Double); err != nil {
				return err
			}
			return s.w.WriteF64BE(float64(v.Int))
		}
		if err := s.w.WriteU8(amf3Integer); err != nil {
			return err
		}
		return writeI29(s.w, v.Int)

	case KindNumber:
		if err := s.w.WriteU8(amf3Double); err != nil {
			return err
		}
		return s.w.WriteF64BE(v.Num)

	case KindString:
		if err := s.w.WriteU8(amf3String); err != nil {
			return err
		}
		return s.encodeAMF3StringInline(v.Str)

	case KindXML:
		if idx, ok := s.amf3Objects.lookup(v); ok {
			if err := s.w.WriteU8(amf3XML); err != nil {
				return err
			}
			return writeU29(s.w, uint32(idx)<<1)
		}
		s.amf3Objects.add(v)
		if err := s.w.WriteU8(amf3XML); err != nil {
			return err
		}
		if err := writeU29(s.w, uint32(len(v.Str))<<1|1); err != nil {
			return err
		}
		return s.w.WriteString(v.Str)

	case KindDate:
		if idx, ok := s.amf3Objects.lookup(v); ok {
			if err := s.w.WriteU8(amf3Date); err != nil {
				return err
			}
			return writeU29(s.w, uint32(idx)<<1)
		}
		s.amf3Objects.add(v)
		if err := s.w.WriteU8(amf3Date); err != nil {
			return err
		}
		if err := writeU29(s.w, 1); err != nil {
			return err
		}
		return s.w.WriteF64BE(v.DateMS)

	case KindByteArray:
		if idx, ok := s.amf3Objects.lookup(v); ok {
			if err := s.w.WriteU8(amf3ByteArray); err != nil {
				return err
			}
			return writeU29(s.w, uint32(idx)<<1)
		}
		s.amf3Objects.add(v)
		if err := s.w.WriteU8(amf3ByteArray); err != nil {
			return err
		}
		if err := writeU29(s.w, uint32(len(v.Bytes))<<1|1); err != nil {
			return err
		}
		return s.w.WriteBytes(v.Bytes)

	case KindArray, KindMixedArray:
		return s.encodeAMF3Array(v)

	case KindMapping:
		return s.encodeAMF3Mapping(v)

	case KindRecord:
		return s.encodeAMF3Record(v)

	case KindDictionary:
		return s.encodeAMF3Dictionary(v)

	default:
		return errIntegerOutOfRange("value kind " + v.Kind.String() + " has no AMF3 representation")
	}
}

func (s *encodeSession) encodeAMF3StringInline(str string) error {
	if str == "" {
		return writeU29(s.w, 1)
	}
	if idx, ok := s.amf3Strings.lookup(str); ok {
		return writeU29(s.w, uint32(idx)<<1)
	}
	s.amf3Strings.add(str)
	if err := writeU29(s.w, uint32(len(str))<<1|1); err != nil {
		return err
	}
	return s.w.WriteString(str)
}

func (s *encodeSession) encodeAMF3Array(v *Value) error {
	if idx, ok := s.amf3Objects.lookup(v); ok {
		if err := s.w.WriteU8(amf3Array); err != nil {
			return err
		}
		return writeU29(s.w, uint32(idx)<<1)
	}
	s.amf3Objects.add(v)
	if err := s.w.WriteU8(amf3Array); err != nil {
		return err
	}
	if err := writeU29(s.w, uint32(len(v.Elements))<<1|1); err != nil {
		return err
	}
	for _, kv := range v.Assoc {
		if err := s.encodeAMF3StringInline(kv.Key); err != nil {
			return err
		}
		if err := s.encodeAMF3Value(kv.Value); err != nil {
			return err
		}
	}
	if err := s.encodeAMF3StringInline(""); err != nil {
		return err
	}
	for _, e := range v.Elements {
		if err := s.encodeAMF3Value(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *encodeSession) encodeAMF3Mapping(v *Value) error {
	if idx, ok := s.amf3Objects.lookup(v); ok {
		if err := s.w.WriteU8(amf3Object); err != nil {
			return err
		}
		return writeU29(s.w, uint32(idx)<<1)
	}
	s.amf3Objects.add(v)

	// Anonymous, fully-dynamic object: inline traits, no sealed members.
	// bit0 inline-object, bit1 inline-traits, bit3 dynamic.
	const header = 0x01 | 0x02 | 0x08
	if err := s.w.WriteU8(amf3Object); err != nil {
		return err
	}
	if err := writeU29(s.w, header); err != nil {
		return err
	}
	if err := s.encodeAMF3StringInline(""); err != nil { // anonymous class name
		return err
	}
	// The decoder appends these inline traits to its trait table; take the
	// matching slot so later trait references keep the same indices.
	s.amf3Traits.next++
	for _, kv := range v.Assoc {
		if err := s.encodeAMF3StringInline(kv.Key); err != nil {
			return err
		}
		if err := s.encodeAMF3Value(kv.Value); err != nil {
			return err
		}
	}
	return s.encodeAMF3StringInline("")
}

func (s *encodeSession) encodeAMF3Record(v *Value) error {
	if idx, ok := s.amf3Objects.lookup(v); ok {
		if err := s.w.WriteU8(amf3Object); err != nil {
			return err
		}
		return writeU29(s.w, uint32(idx)<<1)
	}
	s.amf3Objects.add(v)

	rec := v.Record
	className := rec.ClassName
	sealed := rec.Sealed
	dynamic := rec.Dynamic
	hasDynamic := rec.HasDynamic
	if rec.Handle != nil {
		if name, ok := s.mapper.ClassNameFor(rec.Handle); ok {
			className = name
		}
		if props, err := s.mapper.PropertiesFor(rec.Handle); err == nil && props != nil {
			sealed = props
		}
	}
	translate := s.mapper.Option(rec.Handle, "translate_case")
	sealed = translateKeysToWire(sealed, translate)
	dynamic = translateKeysToWire(dynamic, translate)

	if err := s.w.WriteU8(amf3Object); err != nil {
		return err
	}

	if rec.Externalizable {
		if len(rec.External) == 0 {
			return errExternalizable(className, errIntegerOutOfRange("externalizable serialization requires a preserved payload; fresh externalizable encoding is unsupported"))
		}
		header := uint32(0x03) | 0x04 // inline object | inline traits | externalizable
		if err := writeU29(s.w, header); err != nil {
			return err
		}
		if err := s.encodeAMF3StringInline(className); err != nil {
			return err
		}
		s.amf3Traits.next++ // inline traits occupy a decoder trait slot
		return s.w.WriteBytes(rec.External)
	}

	if traitIdx, ok := s.amf3Traits.lookup(className); ok {
		header := uint32(traitIdx)<<2 | 0x01
		if err := writeU29(s.w, header); err != nil {
			return err
		}
	} else {
		s.amf3Traits.add(className)
		var dynFlag uint32
		if hasDynamic {
			dynFlag = 0x08
		}
		header := uint32(0x03) | dynFlag | uint32(len(sealed))<<4
		if err := writeU29(s.w, header); err != nil {
			return err
		}
		if err := s.encodeAMF3StringInline(className); err != nil {
			return err
		}
		for _, kv := range sealed {
			if err := s.encodeAMF3StringInline(kv.Key); err != nil {
				return err
			}
		}
	}

	for _, kv := range sealed {
		if err := s.encodeAMF3Value(kv.Value); err != nil {
			return err
		}
	}
	if hasDynamic {
		for _, kv := range dynamic {
			if err := s.encodeAMF3StringInline(kv.Key); err != nil {
				return err
			}
			if err := s.encodeAMF3Value(kv.Value); err != nil {
				return err
			}
		}
		return s.encodeAMF3StringInline("")
	}
	return nil
}

func (s *encodeSession) encodeAMF3Dictionary(v *Value) error {
	if idx, ok := s.amf3Objects.lookup(v); ok {
		if err := s.w.WriteU8(amf3Dictionary); err != nil {
			return err
		}
		return writeU29(s.w, uint32(idx)<<1)
	}
	s.amf3Objects.add(v)
	if err := s.w.WriteU8(amf3Dictionary); err != nil {
		return err
	}
	if err := writeU29(s.w, uint32(len(v.Entries))<<1|1); err != nil {
		return err
	}
	if err := writeU29(s.w, 0); err != nil { // weak-keys flag, always false
		return err
	}
	for _, e := range v.Entries {
		if err := s.encodeAMF3Value(e.Key); err != nil {
			return err
		}
		if err := s.encodeAMF3Value(e.Value); err != nil {
			return err
		}
	}
	return nil
}
