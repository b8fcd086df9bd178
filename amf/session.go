package amf

// sessionState mirrors the two-state decode/encode session lifecycle: Idle
// before the top-level call, Decoding/Encoding while depth > 0. It exists
// mostly as self-documentation and, for encode sessions, a panic guard
// against accidental reuse.
type sessionState int

const (
	stateIdle sessionState = iota
	stateActive
	stateFinalized
)

// decodeSession is shared by a top-level DecodeAMF0 or DecodeAMF3 call and
// every recursive value it reads, including an AMF0-to-AMF3 escape. AMF0
// and AMF3 each own their own object cache; AMF3 additionally owns string
// and trait caches, all scoped to this one call.
type decodeSession struct {
	r      *Reader
	mapper ClassMapper

	amf0Objects decodeCache

	amf3Objects decodeCache
	amf3Strings decodeStringCache
	amf3Traits  decodeTraitCache

	depth int
	state sessionState
}

func newDecodeSession(b []byte, mapper ClassMapper) *decodeSession {
	if mapper == nil {
		mapper = NilMapper{}
	}
	return &decodeSession{r: NewReader(b), mapper: mapper, state: stateIdle}
}

func (s *decodeSession) enter() {
	s.state = stateActive
	s.depth++
}

func (s *decodeSession) leave() {
	s.depth--
	if s.depth == 0 {
		s.state = stateIdle
	}
}

// encodeSession is shared by a top-level EncodeAMF0 or EncodeAMF3 call.
// Once the top-level call returns, the session is Finalized and must not
// be reused for a second value.
type encodeSession struct {
	w      *Writer
	mapper ClassMapper

	amf0Objects *encodeObjectCache

	amf3Objects *encodeObjectCache
	amf3Strings *encodeStringCache
	amf3Traits  *encodeTraitCache

	depth int
	state sessionState
}

func newEncodeSession(mapper ClassMapper) *encodeSession {
	if mapper == nil {
		mapper = NilMapper{}
	}
	return &encodeSession{
		w:           NewWriter(),
		mapper:      mapper,
		amf0Objects: newEncodeObjectCache(),
		amf3Objects: newEncodeObjectCache(),
		amf3Strings: newEncodeStringCache(),
		amf3Traits:  newEncodeTraitCache(),
		state:       stateIdle,
	}
}

func (s *encodeSession) enter() {
	if s.state == stateFinalized {
		panic("amf: encode session reused after its top-level value was written")
	}
	s.state = stateActive
	s.depth++
}

func (s *encodeSession) leave() {
	s.depth--
	if s.depth == 0 {
		s.state = stateFinalized
	}
}

// DecodeAMF0 decodes one AMF0-encoded value from b using mapper to resolve
// typed objects. mapper may be nil, in which case records decode to the
// generic Record representation with no host handle attached.
func DecodeAMF0(b []byte, mapper ClassMapper) (*Value, error) {
	s := newDecodeSession(b, mapper)
	s.enter()
	defer s.leave()
	return s.decodeAMF0Value()
}

// DecodeAMF3 decodes one AMF3-encoded value from b using mapper.
func DecodeAMF3(b []byte, mapper ClassMapper) (*Value, error) {
	s := newDecodeSession(b, mapper)
	s.enter()
	defer s.leave()
	return s.decodeAMF3Value()
}

// EncodeAMF0 encodes v as AMF0, using mapper to resolve Records with a host
// Handle back to wire class names and properties.
func EncodeAMF0(v *Value, mapper ClassMapper) ([]byte, error) {
	s := newEncodeSession(mapper)
	s.enter()
	defer s.leave()
	if err := s.encodeAMF0Value(v); err != nil {
		return nil, err
	}
	return s.w.Bytes(), nil
}

// EncodeAMF3 encodes v as AMF3.
func EncodeAMF3(v *Value, mapper ClassMapper) ([]byte, error) {
	s := newEncodeSession(mapper)
	s.enter()
	defer s.leave()
	if err := s.encodeAMF3Value(v); err != nil {
		return nil, err
	}
	return s.w.Bytes(), nil
}
