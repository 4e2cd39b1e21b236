package wire

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Luvion1/fax-native/errors"
)

// Wire schema, fax.compiler.Module. The module AST crosses the boundary
// as JSON text; on the wire it is a self-describing value tree:
//
//	message Value {
//	  uint32 kind = 1;          // 0 null, 1 bool, 2 number, 3 string,
//	                            // 4 array, 5 object
//	  bool   b = 2;
//	  double num = 3;
//	  string str = 4;
//	  repeated Value elems = 5;
//	  repeated Field fields = 6;
//	}
//	message Field { string name = 1; Value value = 2; }
const (
	fieldValueKind   = 1
	fieldValueBool   = 2
	fieldValueNum    = 3
	fieldValueStr    = 4
	fieldValueElems  = 5
	fieldValueFields = 6

	fieldFieldName  = 1
	fieldFieldValue = 2
)

type valueKind uint32

const (
	valueNull valueKind = iota
	valueBool
	valueNumber
	valueString
	valueArray
	valueObject
)

// maxValueDepth bounds recursion so malformed or adversarial input fails
// with DecodeFailed instead of exhausting the stack.
const maxValueDepth = 1024

type moduleValue struct {
	str    string
	elems  []moduleValue
	fields []moduleField
	num    float64
	kind   valueKind
	b      bool
}

// moduleField keeps object entries ordered; the AST interchange text must
// round-trip deterministically.
type moduleField struct {
	name  string
	value moduleValue
}

// ModuleCodec serializes module ASTs between JSON text and wire bytes.
type ModuleCodec interface {
	Encode(jsonText string) ([]byte, error)
	Decode(data []byte) (string, error)
}

// Module returns the module AST codec.
func Module() ModuleCodec {
	return moduleCodec{}
}

type moduleCodec struct{}

func (moduleCodec) Encode(jsonText string) ([]byte, error) {
	v, err := parseModuleJSON(jsonText)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidInput, err, "module source is not valid JSON")
	}
	return appendValue(nil, v, 0)
}

func (moduleCodec) Decode(data []byte) (string, error) {
	v, err := decodeValue(data, 0)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	writeModuleJSON(&b, v)
	return b.String(), nil
}

// parseModuleJSON walks the JSON token stream directly instead of
// unmarshalling into map[string]any, which would lose object key order.
func parseModuleJSON(text string) (moduleValue, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	v, err := parseValue(dec, 0)
	if err != nil {
		return moduleValue{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return moduleValue{}, fmt.Errorf("trailing data after module value")
	}
	return v, nil
}

func parseValue(dec *json.Decoder, depth int) (moduleValue, error) {
	if depth > maxValueDepth {
		return moduleValue{}, fmt.Errorf("module nesting exceeds %d levels", maxValueDepth)
	}

	tok, err := dec.Token()
	if err != nil {
		return moduleValue{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			v := moduleValue{kind: valueObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return moduleValue{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return moduleValue{}, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				fv, err := parseValue(dec, depth+1)
				if err != nil {
					return moduleValue{}, err
				}
				v.fields = append(v.fields, moduleField{name: key, value: fv})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return moduleValue{}, err
			}
			return v, nil
		case '[':
			v := moduleValue{kind: valueArray}
			for dec.More() {
				ev, err := parseValue(dec, depth+1)
				if err != nil {
					return moduleValue{}, err
				}
				v.elems = append(v.elems, ev)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return moduleValue{}, err
			}
			return v, nil
		}
		return moduleValue{}, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return moduleValue{kind: valueString, str: t}, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return moduleValue{}, err
		}
		return moduleValue{kind: valueNumber, num: f}, nil
	case bool:
		return moduleValue{kind: valueBool, b: t}, nil
	case nil:
		return moduleValue{kind: valueNull}, nil
	}
	return moduleValue{}, fmt.Errorf("unexpected JSON token %v", tok)
}

func writeModuleJSON(b *strings.Builder, v moduleValue) {
	switch v.kind {
	case valueNull:
		b.WriteString("null")
	case valueBool:
		if v.b {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case valueNumber:
		b.WriteString(strconv.FormatFloat(v.num, 'g', -1, 64))
	case valueString:
		enc, _ := json.Marshal(v.str)
		b.Write(enc)
	case valueArray:
		b.WriteByte('[')
		for i, ev := range v.elems {
			if i > 0 {
				b.WriteByte(',')
			}
			writeModuleJSON(b, ev)
		}
		b.WriteByte(']')
	case valueObject:
		b.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				b.WriteByte(',')
			}
			enc, _ := json.Marshal(f.name)
			b.Write(enc)
			b.WriteByte(':')
			writeModuleJSON(b, f.value)
		}
		b.WriteByte('}')
	}
}

func appendValue(dst []byte, v moduleValue, depth int) ([]byte, error) {
	if depth > maxValueDepth {
		return nil, errors.InvalidInput(errors.PhaseEncode, "module nesting too deep")
	}

	if v.kind != valueNull {
		dst = protowire.AppendTag(dst, fieldValueKind, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(v.kind))
	}

	switch v.kind {
	case valueBool:
		if v.b {
			dst = protowire.AppendTag(dst, fieldValueBool, protowire.VarintType)
			dst = protowire.AppendVarint(dst, 1)
		}
	case valueNumber:
		if v.num != 0 {
			dst = protowire.AppendTag(dst, fieldValueNum, protowire.Fixed64Type)
			dst = protowire.AppendFixed64(dst, math.Float64bits(v.num))
		}
	case valueString:
		if v.str != "" {
			dst = protowire.AppendTag(dst, fieldValueStr, protowire.BytesType)
			dst = protowire.AppendString(dst, v.str)
		}
	case valueArray:
		for _, ev := range v.elems {
			body, err := appendValue(nil, ev, depth+1)
			if err != nil {
				return nil, err
			}
			dst = protowire.AppendTag(dst, fieldValueElems, protowire.BytesType)
			dst = protowire.AppendBytes(dst, body)
		}
	case valueObject:
		for _, f := range v.fields {
			body, err := appendValue(nil, f.value, depth+1)
			if err != nil {
				return nil, err
			}
			var fb []byte
			fb = protowire.AppendTag(fb, fieldFieldName, protowire.BytesType)
			fb = protowire.AppendString(fb, f.name)
			fb = protowire.AppendTag(fb, fieldFieldValue, protowire.BytesType)
			fb = protowire.AppendBytes(fb, body)

			dst = protowire.AppendTag(dst, fieldValueFields, protowire.BytesType)
			dst = protowire.AppendBytes(dst, fb)
		}
	}
	return dst, nil
}

func decodeValue(data []byte, depth int) (moduleValue, error) {
	if depth > maxValueDepth {
		return moduleValue{}, errors.DecodeFailed("module", fmt.Errorf("nesting exceeds %d levels", maxValueDepth))
	}

	var v moduleValue
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return v, errors.DecodeFailed("module value", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldValueKind && typ == protowire.VarintType:
			k, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return v, errors.DecodeFailed("module value kind", protowire.ParseError(n))
			}
			if k > uint64(valueObject) {
				return v, errors.DecodeFailed("module value kind", fmt.Errorf("unknown kind %d", k))
			}
			v.kind = valueKind(k)
			data = data[n:]
		case num == fieldValueBool && typ == protowire.VarintType:
			b, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return v, errors.DecodeFailed("module bool", protowire.ParseError(n))
			}
			v.b = b != 0
			data = data[n:]
		case num == fieldValueNum && typ == protowire.Fixed64Type:
			bits, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return v, errors.DecodeFailed("module number", protowire.ParseError(n))
			}
			v.num = math.Float64frombits(bits)
			data = data[n:]
		case num == fieldValueStr && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return v, errors.DecodeFailed("module string", protowire.ParseError(n))
			}
			v.str = s
			data = data[n:]
		case num == fieldValueElems && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return v, errors.DecodeFailed("module array", protowire.ParseError(n))
			}
			ev, err := decodeValue(body, depth+1)
			if err != nil {
				return v, err
			}
			v.elems = append(v.elems, ev)
			data = data[n:]
		case num == fieldValueFields && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return v, errors.DecodeFailed("module object", protowire.ParseError(n))
			}
			f, err := decodeField(body, depth+1)
			if err != nil {
				return v, err
			}
			v.fields = append(v.fields, f)
			data = data[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return v, errors.DecodeFailed("module value", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return v, nil
}

func decodeField(data []byte, depth int) (moduleField, error) {
	var f moduleField
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return f, errors.DecodeFailed("module field", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldFieldName && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return f, errors.DecodeFailed("module field name", protowire.ParseError(n))
			}
			f.name = s
			data = data[n:]
		case num == fieldFieldValue && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return f, errors.DecodeFailed("module field value", protowire.ParseError(n))
			}
			v, err := decodeValue(body, depth+1)
			if err != nil {
				return f, errors.New(errors.PhaseDecode, errors.KindDecodeFailed).
					Path(f.name).
					Cause(err).
					Detail("field %q holds an undecodable value", f.name).
					Build()
			}
			f.value = v
			data = data[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return f, errors.DecodeFailed("module field", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return f, nil
}
