package resp

import (
	"bytes"
	"math"
	"math/big"
	"reflect"
	"strconv"

	"github.com/spf13/cast"
)

// maxInlineBodyLen bounds the length of a bulk-string body the
// non-allocating decoder will read onto the stack when the target is a
// numeric or boolean primitive rather than a FixBuf. Redis never sends
// longer numeric-as-bulk-string replies than this in practice; a longer
// body against a numeric target is almost certainly a caller decoding the
// wrong command's reply, not a legitimate oversized number.
const maxInlineBodyLen = 128

// Decode reads exactly one RESP frame from fr and stores it into target,
// which must be a non-nil pointer to one of the non-allocating target
// shapes: a numeric primitive, bool, FixBuf, Optional[T], OrErr[T], KV[K,V],
// a fixed-length Go array, Void, or a Record (struct with resp tags) built
// from those.
//
// Decode never retains fr's internal buffer past its return and performs no
// heap allocation of its own beyond what reflection and short-lived scratch
// arrays require (invariant 3).
func Decode(fr *FrameReader, target any) error {
	hdr, err := fr.ReadHeader()
	if err != nil {
		return err
	}
	return decodeFrame(fr, target, hdr)
}

func decodeFrame(fr *FrameReader, target any, hdr Header) error {
	isNil, err := isNilFrame(hdr)
	if err != nil {
		return err
	}
	if isNil {
		return routeNil(target)
	}
	if hdr.Tag == TagError {
		return routeError(target, hdr)
	}
	return routeValue(fr, target, hdr)
}

func isNilFrame(hdr Header) (bool, error) {
	switch hdr.Tag {
	case TagNil:
		return true, nil
	case TagBulkString, TagArray:
		n, err := ParseLength(hdr.Line)
		if err != nil {
			return false, err
		}
		return isNilLength(n), nil
	default:
		return false, nil
	}
}

// nilTarget is implemented by target shapes that resolve a nil frame
// themselves instead of failing with UnexpectedNilError.
type nilTarget interface {
	setNil()
}

// errTarget is implemented by target shapes that resolve an error frame
// themselves instead of failing the call with ServerError.
type errTarget interface {
	setErr(code []byte)
}

// naValueSetter is implemented by non-allocating container targets
// (Optional[T], OrErr[T]) that need to see the still-unconsumed header of a
// non-nil, non-error frame so they can recurse into decoding their wrapped
// value.
type naValueSetter interface {
	setFromValueFrame(fr *FrameReader, hdr Header) error
}

type kvTarget interface {
	decodeKVFrame(fr *FrameReader, hdr Header) error
}

func routeNil(target any) error {
	switch t := target.(type) {
	case *Void:
		return nil
	case nilTarget:
		t.setNil()
		return nil
	default:
		return &UnexpectedNilError{Target: typeName(target)}
	}
}

func routeError(target any, hdr Header) error {
	code, message := parseErrorBody(hdr.Line)
	switch t := target.(type) {
	case errTarget:
		t.setErr([]byte(code))
		return nil
	default:
		return ServerError{Code: code, Message: message}
	}
}

func parseErrorBody(line []byte) (code, message string) {
	message = string(line)
	if i := bytes.IndexByte(line, ' '); i >= 0 {
		return message[:i], message
	}
	return message, message
}

func routeValue(fr *FrameReader, target any, hdr Header) error {
	switch t := target.(type) {
	case *Void:
		return fr.skipBody(hdr)
	case naValueSetter:
		return t.setFromValueFrame(fr, hdr)
	case kvTarget:
		return t.decodeKVFrame(fr, hdr)
	case *FixBuf:
		return decodeFixBuf(fr, hdr, t)
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return newProtocolError("decode target must be a non-nil pointer, got %T", target)
	}
	elem := rv.Elem()
	switch elem.Kind() {
	case reflect.Bool:
		return decodeBoolValue(fr, hdr, elem)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return decodeNumericValue(fr, hdr, elem)
	case reflect.Struct:
		return decodeRecord(fr, hdr, target, elem)
	case reflect.Array:
		return decodeFixedArray(fr, hdr, elem)
	default:
		return &UnexpectedTagError{Tag: hdr.Tag, Target: elem.Type().String()}
	}
}

func typeName(target any) string {
	return reflect.TypeOf(target).String()
}

// decodeFixBuf decodes a simple-string or bulk-string frame into fb,
// copying into its caller-supplied backing array.
func decodeFixBuf(fr *FrameReader, hdr Header, fb *FixBuf) error {
	switch hdr.Tag {
	case TagSimpleString:
		n := len(hdr.Line)
		if n > fb.Cap() {
			return &BufferTooSmallError{Capacity: fb.Cap(), Need: n}
		}
		copy(fb.buf[:n], hdr.Line)
		fb.setLen(n)
		return nil
	case TagBulkString:
		ln, err := ParseLength(hdr.Line)
		if err != nil {
			return err
		}
		n := int(ln)
		if n > fb.Cap() {
			return &BufferTooSmallError{Capacity: fb.Cap(), Need: n}
		}
		if err := fr.ReadBodyInto(fb.buf[:n]); err != nil {
			return err
		}
		fb.setLen(n)
		return nil
	default:
		return &UnexpectedTagError{Tag: hdr.Tag, Target: "resp.FixBuf"}
	}
}

func decodeBoolValue(fr *FrameReader, hdr Header, elem reflect.Value) error {
	switch hdr.Tag {
	case TagBoolean:
		if len(hdr.Line) != 1 {
			return &NotABoolError{Value: string(hdr.Line)}
		}
		switch hdr.Line[0] {
		case 't':
			elem.SetBool(true)
			return nil
		case 'f':
			elem.SetBool(false)
			return nil
		default:
			return &NotABoolError{Value: string(hdr.Line)}
		}
	case TagInteger:
		n, err := strconv.ParseInt(string(hdr.Line), 10, 64)
		if err != nil {
			return &NotABoolError{Value: string(hdr.Line)}
		}
		elem.SetBool(n != 0)
		return nil
	case TagBulkString:
		body, err := readInlineBody(fr, hdr)
		if err != nil {
			return err
		}
		b, cerr := cast.ToBoolE(string(body))
		if cerr != nil {
			return &NotABoolError{Value: string(body)}
		}
		elem.SetBool(b)
		return nil
	default:
		return &UnexpectedTagError{Tag: hdr.Tag, Target: "bool"}
	}
}

// readInlineBody reads a bulk-string body of at most maxInlineBodyLen bytes
// onto the stack, for primitives that need to look at the body's text
// without retaining it (numeric/boolean bulk-string replies).
func readInlineBody(fr *FrameReader, hdr Header) ([]byte, error) {
	n, err := ParseLength(hdr.Line)
	if err != nil {
		return nil, err
	}
	if n > maxInlineBodyLen {
		return nil, newProtocolError("inline value too long (%d bytes)", n)
	}
	var scratch [maxInlineBodyLen]byte
	buf := scratch[:n]
	if err := fr.ReadBodyInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func decodeNumericValue(fr *FrameReader, hdr Header, elem reflect.Value) error {
	switch hdr.Tag {
	case TagInteger:
		n, err := strconv.ParseInt(string(hdr.Line), 10, 64)
		if err != nil {
			return &NotANumberError{Target: elem.Type().String(), Value: string(hdr.Line)}
		}
		return assignInt(elem, n)
	case TagDouble:
		f, err := strconv.ParseFloat(string(hdr.Line), 64)
		if err != nil {
			return &NotANumberError{Target: elem.Type().String(), Value: string(hdr.Line)}
		}
		return assignFloat(elem, f)
	case TagBigNumber:
		return assignBig(elem, hdr.Line)
	case TagBulkString:
		body, err := readInlineBody(fr, hdr)
		if err != nil {
			return err
		}
		s := string(body)
		if elem.Kind() == reflect.Float32 || elem.Kind() == reflect.Float64 {
			f, cerr := cast.ToFloat64E(s)
			if cerr != nil {
				return &NotANumberError{Target: elem.Type().String(), Value: s}
			}
			return assignFloat(elem, f)
		}
		n, cerr := cast.ToInt64E(s)
		if cerr != nil {
			f, ferr := cast.ToFloat64E(s)
			if ferr != nil {
				return &NotANumberError{Target: elem.Type().String(), Value: s}
			}
			return assignFloat(elem, f)
		}
		return assignInt(elem, n)
	default:
		return &UnexpectedTagError{Tag: hdr.Tag, Target: elem.Type().String()}
	}
}

func assignInt(elem reflect.Value, n int64) error {
	switch elem.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if elem.OverflowInt(n) {
			return &NumericRangeError{Target: elem.Type().String(), Value: strconv.FormatInt(n, 10)}
		}
		elem.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n < 0 || elem.OverflowUint(uint64(n)) {
			return &NumericRangeError{Target: elem.Type().String(), Value: strconv.FormatInt(n, 10)}
		}
		elem.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		elem.SetFloat(float64(n))
		return nil
	default:
		return &NotANumberError{Target: elem.Type().String(), Value: strconv.FormatInt(n, 10)}
	}
}

func assignUint(elem reflect.Value, n uint64) error {
	switch elem.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if elem.OverflowUint(n) {
			return &NumericRangeError{Target: elem.Type().String(), Value: strconv.FormatUint(n, 10)}
		}
		elem.SetUint(n)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n > math.MaxInt64 || elem.OverflowInt(int64(n)) {
			return &NumericRangeError{Target: elem.Type().String(), Value: strconv.FormatUint(n, 10)}
		}
		elem.SetInt(int64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		elem.SetFloat(float64(n))
		return nil
	default:
		return &NotANumberError{Target: elem.Type().String(), Value: strconv.FormatUint(n, 10)}
	}
}

func assignFloat(elem reflect.Value, f float64) error {
	switch elem.Kind() {
	case reflect.Float32, reflect.Float64:
		if elem.OverflowFloat(f) {
			return &NumericRangeError{Target: elem.Type().String(), Value: strconv.FormatFloat(f, 'g', -1, 64)}
		}
		elem.SetFloat(f)
		return nil
	default:
		return &NotANumberError{Target: elem.Type().String(), Value: strconv.FormatFloat(f, 'g', -1, 64)}
	}
}

func assignBig(elem reflect.Value, line []byte) error {
	bi, ok := new(big.Int).SetString(string(line), 10)
	if !ok {
		return &NotANumberError{Target: elem.Type().String(), Value: string(line)}
	}
	switch elem.Kind() {
	case reflect.Float32, reflect.Float64:
		f := new(big.Float).SetInt(bi)
		v, _ := f.Float64()
		return assignFloat(elem, v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if !bi.IsUint64() {
			return &NumericRangeError{Target: elem.Type().String(), Value: string(line)}
		}
		return assignUint(elem, bi.Uint64())
	default:
		if !bi.IsInt64() {
			return &NumericRangeError{Target: elem.Type().String(), Value: string(line)}
		}
		return assignInt(elem, bi.Int64())
	}
}

// decodeFixedArray decodes an aggregate into a fixed-length Go array.
//
// When the element type is a sequence of KV[K, V] (§3/§4.2), a Map frame's
// header count is always the pair count; an Array/Set frame's header count
// is either the pair count (n == k, one nested 2-element sub-aggregate per
// pair) or twice the pair count (n == 2k, flat adjacent key/value frames).
// A fixed-length target knows k up front, so unlike the slice case, no
// peeking is needed: the two wire shapes produce different counts.
func decodeFixedArray(fr *FrameReader, hdr Header, elem reflect.Value) error {
	elemType := elem.Type().Elem()
	k := elem.Len()
	if hdr.Tag == TagMap {
		if !isKVElemType(elemType) {
			return &UnexpectedTagError{Tag: hdr.Tag, Target: elem.Type().String()}
		}
		n, err := ParseLength(hdr.Line)
		if err != nil {
			return err
		}
		if int(n) != k {
			return newProtocolError("expected map of %d pairs, got %d", k, n)
		}
		return decodeFlatKVPairsInto(fr, elem)
	}
	if hdr.Tag != TagArray && hdr.Tag != TagSet {
		return &UnexpectedTagError{Tag: hdr.Tag, Target: elem.Type().String()}
	}
	n, err := ParseLength(hdr.Line)
	if err != nil {
		return err
	}
	if isKVElemType(elemType) && int(n) == 2*k {
		return decodeFlatKVPairsInto(fr, elem)
	}
	if int(n) != k {
		return newProtocolError("expected array of length %d, got %d", k, n)
	}
	for i := 0; i < k; i++ {
		if err := Decode(fr, elem.Index(i).Addr().Interface()); err != nil {
			return err
		}
	}
	return nil
}

// decodeFlatKVPairsInto decodes len(elem) flat key/value pairs directly
// into a fixed [K]KV[K, V] array, for the wire shape where adjacent
// key/value frames are not wrapped in their own per-pair sub-aggregate.
func decodeFlatKVPairsInto(fr *FrameReader, elem reflect.Value) error {
	for i := 0; i < elem.Len(); i++ {
		kv := elem.Index(i)
		if err := Decode(fr, kv.FieldByName("Key").Addr().Interface()); err != nil {
			return err
		}
		if err := Decode(fr, kv.FieldByName("Value").Addr().Interface()); err != nil {
			return err
		}
	}
	return nil
}
