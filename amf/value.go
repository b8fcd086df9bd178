package amf

// Kind discriminates the shape a Value carries. Values are a closed tagged
// union: exactly one of the fields below is meaningful for a given Kind.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindNumber
	KindInteger
	KindString
	KindDate
	KindArray
	KindMixedArray
	KindMapping
	KindRecord
	KindByteArray
	KindXML
	KindDictionary
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBoolean:
		return "Boolean"
	case KindNumber:
		return "Number"
	case KindInteger:
		return "Integer"
	case KindString:
		return "String"
	case KindDate:
		return "Date"
	case KindArray:
		return "Array"
	case KindMixedArray:
		return "MixedArray"
	case KindMapping:
		return "Mapping"
	case KindRecord:
		return "Record"
	case KindByteArray:
		return "ByteArray"
	case KindXML:
		return "Xml"
	case KindDictionary:
		return "Dictionary"
	default:
		return "Invalid"
	}
}

// KeyValue is an ordered (key, value) pair, used wherever the wire format
// requires insertion-order-preserving string-keyed properties.
type KeyValue struct {
	Key   string
	Value *Value
}

// DictEntry is a (key, value) pair for Dictionary, where the key is itself
// an arbitrary Value rather than a plain string.
type DictEntry struct {
	Key   *Value
	Value *Value
}

// Traits is the schema of a Record: its wire class name and the shape of
// its sealed member list, plus the externalizable/dynamic flags that
// determine how the record body is framed on the wire.
type Traits struct {
	ClassName      string
	Externalizable bool
	Dynamic        bool
	Members        []string
}

// Record is a typed or anonymous object: a class name (possibly empty), an
// ordered list of sealed properties, an optional dynamic property list, and
// an optional externalizable payload. Handle is an optional host-language
// object attached by a ClassMapper during decode (see ClassMapper.Instantiate);
// it has no wire representation and is nil unless a mapper supplied one.
type Record struct {
	ClassName      string
	Sealed         []KeyValue
	HasDynamic     bool
	Dynamic        []KeyValue
	Externalizable bool
	External       []byte
	Handle         interface{}
}

// Value is a tagged sum of every shape the AMF wire format can carry. Arrays,
// mixed arrays, records and dictionaries are built from *Value elements so a
// decoded graph can be cyclic: an element may be the same pointer as one of
// its own ancestors, exactly as the ArrayCollection and circular-array cases
// in the wire format require.
type Value struct {
	Kind Kind

	Bool bool
	Num  float64
	Int  int32
	Str  string

	// DateMS is milliseconds since the Unix epoch, UTC.
	DateMS float64

	// Elements backs Array and the dense part of MixedArray.
	Elements []*Value

	// Assoc backs Mapping and the associative part of MixedArray.
	Assoc []KeyValue

	Record *Record

	// Bytes backs ByteArray.
	Bytes []byte

	Entries []DictEntry
}

func NewNull() *Value { return &Value{Kind: KindNull} }

func NewBoolean(b bool) *Value { return &Value{Kind: KindBoolean, Bool: b} }

func NewNumber(f float64) *Value { return &Value{Kind: KindNumber, Num: f} }

func NewInteger(i int32) *Value { return &Value{Kind: KindInteger, Int: i} }

func NewString(s string) *Value { return &Value{Kind: KindString, Str: s} }

func NewDate(ms float64) *Value { return &Value{Kind: KindDate, DateMS: ms} }

func NewArray(elems ...*Value) *Value { return &Value{Kind: KindArray, Elements: elems} }

func NewMixedArray(dense []*Value, assoc []KeyValue) *Value {
	return &Value{Kind: KindMixedArray, Elements: dense, Assoc: assoc}
}

func NewMapping(pairs ...KeyValue) *Value { return &Value{Kind: KindMapping, Assoc: pairs} }

func NewRecord(r *Record) *Value { return &Value{Kind: KindRecord, Record: r} }

func NewByteArray(b []byte) *Value { return &Value{Kind: KindByteArray, Bytes: b} }

func NewXML(s string) *Value { return &Value{Kind: KindXML, Str: s} }

func NewDictionary(entries ...DictEntry) *Value {
	return &Value{Kind: KindDictionary, Entries: entries}
}

// Get returns the value bound to key in a Mapping or the sealed/dynamic
// properties of a Record, and whether it was found.
func (v *Value) Get(key string) (*Value, bool) {
	if v == nil {
		return nil, false
	}
	switch v.Kind {
	case KindMapping, KindMixedArray:
		for _, kv := range v.Assoc {
			if kv.Key == key {
				return kv.Value, true
			}
		}
	case KindRecord:
		for _, kv := range v.Record.Sealed {
			if kv.Key == key {
				return kv.Value, true
			}
		}
		for _, kv := range v.Record.Dynamic {
			if kv.Key == key {
				return kv.Value, true
			}
		}
	}
	return nil, false
}

// Equal reports whether v and other describe the same wire-observable
// value tree. Pointer identity (back-references) is not part of the
// comparison; cycles are handled via a visited set keyed by pointer pairs
// so that Equal terminates on cyclic graphs such as circular arrays.
func (v *Value) Equal(other *Value) bool {
	return equalValue(v, other, map[[2]*Value]bool{})
}

func equalValue(a, b *Value, seen map[[2]*Value]bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	key := [2]*Value{a, b}
	if seen[key] {
		return true
	}
	seen[key] = true

	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBoolean:
		return a.Bool == b.Bool
	case KindNumber:
		return a.Num == b.Num
	case KindInteger:
		return a.Int == b.Int
	case KindString, KindXML:
		return a.Str == b.Str
	case KindDate:
		return a.DateMS == b.DateMS
	case KindByteArray:
		return bytesEqual(a.Bytes, b.Bytes)
	case KindArray:
		return equalElements(a.Elements, b.Elements, seen)
	case KindMixedArray:
		return equalElements(a.Elements, b.Elements, seen) && equalAssoc(a.Assoc, b.Assoc, seen)
	case KindMapping:
		return equalAssoc(a.Assoc, b.Assoc, seen)
	case KindDictionary:
		if len(a.Entries) != len(b.Entries) {
			return false
		}
		for i := range a.Entries {
			if !equalValue(a.Entries[i].Key, b.Entries[i].Key, seen) {
				return false
			}
			if !equalValue(a.Entries[i].Value, b.Entries[i].Value, seen) {
				return false
			}
		}
		return true
	case KindRecord:
		return equalRecord(a.Record, b.Record, seen)
	}
	return false
}

func equalElements(a, b []*Value, seen map[[2]*Value]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalValue(a[i], b[i], seen) {
			return false
		}
	}
	return true
}

func equalAssoc(a, b []KeyValue, seen map[[2]*Value]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key {
			return false
		}
		if !equalValue(a[i].Value, b[i].Value, seen) {
			return false
		}
	}
	return true
}

func equalRecord(a, b *Record, seen map[[2]*Value]bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ClassName != b.ClassName || a.Externalizable != b.Externalizable || a.HasDynamic != b.HasDynamic {
		return false
	}
	if a.Externalizable {
		return bytesEqual(a.External, b.External)
	}
	if !equalAssoc(a.Sealed, b.Sealed, seen) {
		return false
	}
	if a.HasDynamic {
		return equalAssoc(a.Dynamic, b.Dynamic, seen)
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
