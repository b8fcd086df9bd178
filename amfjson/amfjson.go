// Package amfjson renders a decoded amf.Value tree as a JSON-friendly
// interface{} graph (for dump/inspect tooling and the serve subcommand's
// logged rendering of decoded values) and builds a Value tree back from one
// (for the encode side of the same tooling). It is a CLI/transport
// convenience, not part of the wire codec: a node reached a second time
// (such as a back-reference to an ancestor in a cyclic graph) renders as a
// {"kind": "Reference", "ref": n} node rather than recursing forever, since
// JSON has no way to express identity.
package amfjson

import (
	"encoding/base64"
	"fmt"

	"github.com/ossrs/goamf/amf"
)

// ToInterface converts v into a tree of map[string]interface{}, []interface{},
// string, float64 and bool (plus the int32, int and []byte payloads inside
// tagged nodes) suitable for encoding/json. Null, Boolean, Number, String,
// Array and Mapping render as plain JSON; every other kind (Integer, Date,
// MixedArray, Record, ByteArray, Xml, Dictionary, Reference) carries a
// "kind" tag so FromInterface (or a human reading the dump) can tell a
// Record from a Mapping, and a ByteArray from a String, without guessing.
func ToInterface(v *amf.Value) interface{} {
	return toInterface(v, map[*amf.Value]int{})
}

func toInterface(v *amf.Value, seen map[*amf.Value]int) interface{} {
	if v == nil {
		return nil
	}
	if idx, ok := seen[v]; ok {
		return map[string]interface{}{"kind": "Reference", "ref": idx}
	}
	idx := len(seen)
	seen[v] = idx

	switch v.Kind {
	case amf.KindNull:
		return nil
	case amf.KindBoolean:
		return v.Bool
	case amf.KindNumber:
		return v.Num
	case amf.KindInteger:
		return map[string]interface{}{"kind": "Integer", "value": v.Int}
	case amf.KindString:
		return v.Str
	case amf.KindDate:
		return map[string]interface{}{"kind": "Date", "millis": v.DateMS}
	case amf.KindArray:
		out := make([]interface{}, len(v.Elements))
		for i, e := range v.Elements {
			out[i] = toInterface(e, seen)
		}
		return out
	case amf.KindMixedArray:
		return map[string]interface{}{
			"kind":  "MixedArray",
			"dense": toInterfaceSlice(v.Elements, seen),
			"assoc": toInterfaceAssoc(v.Assoc, seen),
		}
	case amf.KindMapping:
		return toInterfaceAssoc(v.Assoc, seen)
	case amf.KindRecord:
		return recordToInterface(v.Record, seen)
	case amf.KindByteArray:
		return map[string]interface{}{"kind": "ByteArray", "bytes": v.Bytes}
	case amf.KindXML:
		return map[string]interface{}{"kind": "Xml", "value": v.Str}
	case amf.KindDictionary:
		entries := make([]interface{}, len(v.Entries))
		for i, e := range v.Entries {
			entries[i] = map[string]interface{}{
				"key":   toInterface(e.Key, seen),
				"value": toInterface(e.Value, seen),
			}
		}
		return map[string]interface{}{"kind": "Dictionary", "entries": entries}
	default:
		return nil
	}
}

func toInterfaceSlice(elems []*amf.Value, seen map[*amf.Value]int) []interface{} {
	out := make([]interface{}, len(elems))
	for i, e := range elems {
		out[i] = toInterface(e, seen)
	}
	return out
}

func toInterfaceAssoc(pairs []amf.KeyValue, seen map[*amf.Value]int) map[string]interface{} {
	out := make(map[string]interface{}, len(pairs))
	for _, kv := range pairs {
		out[kv.Key] = toInterface(kv.Value, seen)
	}
	return out
}

func recordToInterface(r *amf.Record, seen map[*amf.Value]int) interface{} {
	out := map[string]interface{}{
		"kind":      "Record",
		"className": r.ClassName,
	}
	if r.Externalizable {
		out["externalizable"] = true
		out["external"] = r.External
		return out
	}
	out["sealed"] = toInterfaceAssoc(r.Sealed, seen)
	if r.HasDynamic {
		out["dynamic"] = toInterfaceAssoc(r.Dynamic, seen)
	}
	return out
}

// FromInterface builds a Value tree from parsed JSON (the output of
// encoding/json.Unmarshal into interface{}), the inverse of ToInterface for
// the common shapes. Plain JSON scalars map onto the obvious Value kind;
// the tagged map shapes ToInterface emits for Integer/Date/Record/etc. are
// recognized by their "kind" field. Anything else errors rather than
// guessing, since a malformed "kind" tag is a tooling-input mistake, not a
// wire condition the codec itself should paper over.
func FromInterface(x interface{}) (*amf.Value, error) {
	switch t := x.(type) {
	case nil:
		return amf.NewNull(), nil
	case bool:
		return amf.NewBoolean(t), nil
	case float64:
		return amf.NewNumber(t), nil
	case string:
		return amf.NewString(t), nil
	case []interface{}:
		elems := make([]*amf.Value, len(t))
		for i, e := range t {
			v, err := FromInterface(e)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return amf.NewArray(elems...), nil
	case map[string]interface{}:
		kind, _ := t["kind"].(string)
		switch kind {
		case "":
			return mappingFromInterface(t)
		case "Integer":
			n, _ := t["value"].(float64)
			return amf.NewInteger(int32(n)), nil
		case "Date":
			n, _ := t["millis"].(float64)
			return amf.NewDate(n), nil
		case "Xml":
			s, _ := t["value"].(string)
			return amf.NewXML(s), nil
		case "ByteArray":
			return amf.NewByteArray(bytesFromInterface(t["bytes"])), nil
		case "MixedArray":
			dense, err := sliceFromInterface(t["dense"])
			if err != nil {
				return nil, err
			}
			assoc, err := assocFromInterface(t["assoc"])
			if err != nil {
				return nil, err
			}
			return amf.NewMixedArray(dense, assoc), nil
		case "Record":
			return recordFromInterface(t)
		case "Dictionary":
			return dictionaryFromInterface(t)
		case "Reference":
			return nil, fmt.Errorf("amfjson: cannot reconstruct a \"Reference\" back-reference from JSON input")
		default:
			return nil, fmt.Errorf("amfjson: unrecognized kind %q", kind)
		}
	default:
		return nil, fmt.Errorf("amfjson: unsupported JSON shape %T", x)
	}
}

func mappingFromInterface(m map[string]interface{}) (*amf.Value, error) {
	pairs, err := assocFromMap(m)
	if err != nil {
		return nil, err
	}
	return &amf.Value{Kind: amf.KindMapping, Assoc: pairs}, nil
}

func assocFromMap(m map[string]interface{}) ([]amf.KeyValue, error) {
	out := make([]amf.KeyValue, 0, len(m))
	for k, raw := range m {
		v, err := FromInterface(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, amf.KeyValue{Key: k, Value: v})
	}
	return out, nil
}

func assocFromInterface(x interface{}) ([]amf.KeyValue, error) {
	m, ok := x.(map[string]interface{})
	if !ok {
		return nil, nil
	}
	return assocFromMap(m)
}

func sliceFromInterface(x interface{}) ([]*amf.Value, error) {
	arr, ok := x.([]interface{})
	if !ok {
		return nil, nil
	}
	out := make([]*amf.Value, len(arr))
	for i, e := range arr {
		v, err := FromInterface(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func bytesFromInterface(x interface{}) []byte {
	switch t := x.(type) {
	case []byte:
		return append([]byte(nil), t...)
	case string:
		// encoding/json renders the []byte ToInterface emits as base64.
		b, err := base64.StdEncoding.DecodeString(t)
		if err != nil {
			return nil
		}
		return b
	}
	arr, ok := x.([]interface{})
	if !ok {
		return nil
	}
	out := make([]byte, len(arr))
	for i, e := range arr {
		if n, ok := e.(float64); ok {
			out[i] = byte(n)
		}
	}
	return out
}

func recordFromInterface(m map[string]interface{}) (*amf.Value, error) {
	className, _ := m["className"].(string)
	r := &amf.Record{ClassName: className}

	if ext, _ := m["externalizable"].(bool); ext {
		r.Externalizable = true
		r.External = bytesFromInterface(m["external"])
		return amf.NewRecord(r), nil
	}

	sealed, err := assocFromInterface(m["sealed"])
	if err != nil {
		return nil, err
	}
	r.Sealed = sealed

	if dyn, ok := m["dynamic"]; ok {
		dynamic, err := assocFromInterface(dyn)
		if err != nil {
			return nil, err
		}
		r.HasDynamic = true
		r.Dynamic = dynamic
	}
	return amf.NewRecord(r), nil
}

func dictionaryFromInterface(m map[string]interface{}) (*amf.Value, error) {
	raw, ok := m["entries"].([]interface{})
	if !ok {
		return amf.NewDictionary(), nil
	}
	entries := make([]amf.DictEntry, len(raw))
	for i, e := range raw {
		em, ok := e.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("amfjson: dictionary entry %d is not an object", i)
		}
		k, err := FromInterface(em["key"])
		if err != nil {
			return nil, err
		}
		v, err := FromInterface(em["value"])
		if err != nil {
			return nil, err
		}
		entries[i] = amf.DictEntry{Key: k, Value: v}
	}
	return amf.NewDictionary(entries...), nil
}
