package resp

import (
	"math/big"
	"reflect"
	"strconv"
)

// DecodeAlloc reads exactly one RESP frame from fr and stores it into
// target using a, which backs every heap allocation the decode needs:
// owned []byte bodies, variable-length sequences, owned pointers, and
// DynamicReply's recursive tree. Every value DecodeAlloc produces must
// later be passed to Free with the same Allocator (§5); mixing allocators
// between Decode and Free is a caller error.
//
// DecodeAlloc accepts every non-allocating target shape Decode does, plus
// OrFullErr[T], DynamicReply, []byte, variable-length slices, and owned
// pointers.
//
// If the decode fails after making one or more allocations — a later
// sibling field rejects the wire, say, after an earlier one already
// allocated — DecodeAlloc releases everything it allocated during this
// call before returning the error. Callers must not call Free again for a
// call that returned an error.
func DecodeAlloc(fr *FrameReader, target any, a Allocator) error {
	if err := decodeValueAlloc(fr, target, a); err != nil {
		_ = Free(target, a)
		return err
	}
	return nil
}

// decodeValueAlloc is the recursive counterpart of DecodeAlloc: it performs
// exactly one decode with no cleanup-on-error of its own, since a nested
// decode's partial allocations are released by the single cleanup walk the
// outermost DecodeAlloc call performs over the whole target.
func decodeValueAlloc(fr *FrameReader, target any, a Allocator) error {
	hdr, err := fr.ReadHeader()
	if err != nil {
		return err
	}
	return decodeFrameAlloc(fr, target, hdr, a)
}

func decodeFrameAlloc(fr *FrameReader, target any, hdr Header, a Allocator) error {
	if dr, ok := target.(*DynamicReply); ok {
		return decodeDynamicFrame(fr, hdr, dr, a)
	}
	isNil, err := isNilFrame(hdr)
	if err != nil {
		return err
	}
	if isNil {
		return routeNil(target)
	}
	if hdr.Tag == TagError {
		return routeErrorAlloc(target, hdr)
	}
	return routeValueAlloc(fr, target, hdr, a)
}

// allocErrTarget is implemented by target shapes that resolve an error
// frame themselves and want the full message alongside the inline code
// (OrFullErr[T]).
type allocErrTarget interface {
	setErrAlloc(code []byte, message string)
}

// naAllocValueSetter is implemented by allocating-aware container targets
// (Optional[T], OrErr[T], OrFullErr[T]) that recurse into decoding their
// wrapped value with the allocator in hand.
type naAllocValueSetter interface {
	setFromValueFrameAlloc(fr *FrameReader, hdr Header, a Allocator) error
}

type kvAllocTarget interface {
	decodeKVFrameAlloc(fr *FrameReader, hdr Header, a Allocator) error
}

func routeErrorAlloc(target any, hdr Header) error {
	code, message := parseErrorBody(hdr.Line)
	switch t := target.(type) {
	case allocErrTarget:
		t.setErrAlloc([]byte(code), message)
		return nil
	case errTarget:
		t.setErr([]byte(code))
		return nil
	default:
		return ServerError{Code: code, Message: message}
	}
}

func routeValueAlloc(fr *FrameReader, target any, hdr Header, a Allocator) error {
	switch t := target.(type) {
	case *Void:
		return fr.skipBody(hdr)
	case naAllocValueSetter:
		return t.setFromValueFrameAlloc(fr, hdr, a)
	case kvAllocTarget:
		return t.decodeKVFrameAlloc(fr, hdr, a)
	case *FixBuf:
		return decodeFixBuf(fr, hdr, t)
	case *[]byte:
		return decodeOwnedBytes(fr, hdr, t, a)
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
		return decodeRecordAlloc(fr, hdr, target, elem, a)
	case reflect.Array:
		return decodeFixedArrayAlloc(fr, hdr, elem, a)
	case reflect.Slice:
		return decodeSliceAlloc(fr, hdr, elem, a)
	case reflect.Ptr:
		return decodeOwnedPtrAlloc(fr, hdr, elem, a)
	default:
		return &UnexpectedTagError{Tag: hdr.Tag, Target: elem.Type().String()}
	}
}

// decodeOwnedBytes decodes a simple-string or bulk-string body into a
// freshly Allocator-backed []byte, owned by the caller until it is passed
// to Free.
func decodeOwnedBytes(fr *FrameReader, hdr Header, target *[]byte, a Allocator) error {
	switch hdr.Tag {
	case TagBulkString:
		n, err := ParseLength(hdr.Line)
		if err != nil {
			return err
		}
		buf, err := a.AllocBytes(int(n))
		if err != nil {
			return err
		}
		*target = buf
		if err := fr.ReadBodyInto(buf); err != nil {
			return err
		}
		return nil
	case TagSimpleString:
		buf, err := a.AllocBytes(len(hdr.Line))
		if err != nil {
			return err
		}
		copy(buf, hdr.Line)
		*target = buf
		return nil
	default:
		return &UnexpectedTagError{Tag: hdr.Tag, Target: "[]byte"}
	}
}

func decodeFixedArrayAlloc(fr *FrameReader, hdr Header, elem reflect.Value, a Allocator) error {
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
		return decodeFlatKVPairsIntoAlloc(fr, elem, a)
	}
	if hdr.Tag != TagArray && hdr.Tag != TagSet {
		return &UnexpectedTagError{Tag: hdr.Tag, Target: elem.Type().String()}
	}
	n, err := ParseLength(hdr.Line)
	if err != nil {
		return err
	}
	if isKVElemType(elemType) && int(n) == 2*k {
		return decodeFlatKVPairsIntoAlloc(fr, elem, a)
	}
	if int(n) != k {
		return newProtocolError("expected array of length %d, got %d", k, n)
	}
	for i := 0; i < k; i++ {
		if err := decodeValueAlloc(fr, elem.Index(i).Addr().Interface(), a); err != nil {
			return err
		}
	}
	return nil
}

// decodeFlatKVPairsIntoAlloc decodes len(elem) flat key/value pairs
// directly into a fixed [K]KV[K, V] array, for the wire shape where
// adjacent key/value frames are not wrapped in their own per-pair
// sub-aggregate (see kvSequenceElem).
func decodeFlatKVPairsIntoAlloc(fr *FrameReader, elem reflect.Value, a Allocator) error {
	for i := 0; i < elem.Len(); i++ {
		kv := elem.Index(i)
		if err := decodeValueAlloc(fr, kv.FieldByName("Key").Addr().Interface(), a); err != nil {
			return err
		}
		if err := decodeValueAlloc(fr, kv.FieldByName("Value").Addr().Interface(), a); err != nil {
			return err
		}
	}
	return nil
}

// decodeSliceAlloc decodes a variable-length aggregate into a freshly
// allocated Go slice. The backing array counts as one Allocator cell;
// elements that themselves allocate are tracked independently.
//
// When the element type is a sequence of KV[K, V] (§3/§4.2), a Map frame's
// n children are always n flat key/value pairs; an Array/Set frame's n
// children may be either n flat pairs or n nested 2-element sub-aggregates,
// disambiguated by peeking the tag of what follows (kvSequenceIsFlat).
func decodeSliceAlloc(fr *FrameReader, hdr Header, elem reflect.Value, a Allocator) error {
	elemType := elem.Type().Elem()
	if hdr.Tag == TagMap {
		if !isKVElemType(elemType) {
			return &UnexpectedTagError{Tag: hdr.Tag, Target: elem.Type().String()}
		}
		n, err := ParseLength(hdr.Line)
		if err != nil {
			return err
		}
		return decodeFlatKVPairsAlloc(fr, n, elem, a)
	}
	if hdr.Tag != TagArray && hdr.Tag != TagSet {
		return &UnexpectedTagError{Tag: hdr.Tag, Target: elem.Type().String()}
	}
	n, err := ParseLength(hdr.Line)
	if err != nil {
		return err
	}
	if isKVElemType(elemType) {
		flat, err := kvSequenceIsFlat(fr, n)
		if err != nil {
			return err
		}
		if flat {
			if n%2 != 0 {
				return newProtocolError("flat KV sequence must have even length, got %d", n)
			}
			return decodeFlatKVPairsAlloc(fr, n/2, elem, a)
		}
	}
	a.AllocCell()
	slice := reflect.MakeSlice(elem.Type(), int(n), int(n))
	// Set before the per-element loop: a mid-loop failure must still leave
	// the already-decoded prefix reachable from elem so the top-level
	// cleanup walk in DecodeAlloc can find and release it.
	elem.Set(slice)
	for i := 0; i < int(n); i++ {
		if err := decodeValueAlloc(fr, slice.Index(i).Addr().Interface(), a); err != nil {
			return err
		}
	}
	return nil
}

// decodeFlatKVPairsAlloc decodes pairs flat adjacent key/value frames into
// a freshly allocated []KV[K, V], with no per-pair sub-aggregate header.
func decodeFlatKVPairsAlloc(fr *FrameReader, pairs int64, elem reflect.Value, a Allocator) error {
	a.AllocCell()
	slice := reflect.MakeSlice(elem.Type(), int(pairs), int(pairs))
	elem.Set(slice)
	for i := int64(0); i < pairs; i++ {
		kv := slice.Index(int(i))
		if err := decodeValueAlloc(fr, kv.FieldByName("Key").Addr().Interface(), a); err != nil {
			return err
		}
		if err := decodeValueAlloc(fr, kv.FieldByName("Value").Addr().Interface(), a); err != nil {
			return err
		}
	}
	return nil
}

// decodeOwnedPtrAlloc decodes the current frame (its header already
// consumed into hdr) into a freshly allocated T, boxed behind elem (a *T
// field). The pointer itself counts as one Allocator cell.
func decodeOwnedPtrAlloc(fr *FrameReader, hdr Header, elem reflect.Value, a Allocator) error {
	a.AllocCell()
	inner := reflect.New(elem.Type().Elem())
	elem.Set(inner)
	if err := decodeFrameAlloc(fr, inner.Interface(), hdr, a); err != nil {
		return err
	}
	return nil
}

// decodeDynamicFrame decodes any single frame, of any tag, into dr. Unlike
// every other allocating target shape it handles nil and error frames
// itself rather than going through routeNil/routeErrorAlloc, since building
// its recursive tree needs the allocator at every level including those
// branches.
func decodeDynamicFrame(fr *FrameReader, hdr Header, dr *DynamicReply, a Allocator) error {
	switch hdr.Tag {
	case TagNil:
		dr.Kind = ReplyNil
		return nil
	case TagInteger:
		n, err := strconv.ParseInt(string(hdr.Line), 10, 64)
		if err != nil {
			return newProtocolError("invalid integer %q", hdr.Line)
		}
		dr.Kind = ReplyNumber
		dr.Number = n
		return nil
	case TagDouble:
		f, err := strconv.ParseFloat(string(hdr.Line), 64)
		if err != nil {
			return newProtocolError("invalid double %q", hdr.Line)
		}
		dr.Kind = ReplyDouble
		dr.Double = f
		return nil
	case TagBoolean:
		if len(hdr.Line) != 1 {
			return &NotABoolError{Value: string(hdr.Line)}
		}
		dr.Kind = ReplyBool
		dr.Bool = hdr.Line[0] == 't'
		return nil
	case TagBigNumber:
		bi, ok := new(big.Int).SetString(string(hdr.Line), 10)
		if !ok {
			return newProtocolError("invalid big number %q", hdr.Line)
		}
		dr.Kind = ReplyBigNumber
		dr.Big = bi
		return nil
	case TagSimpleString:
		buf, err := a.AllocBytes(len(hdr.Line))
		if err != nil {
			return err
		}
		copy(buf, hdr.Line)
		dr.Kind = ReplyString
		dr.Str = buf
		return nil
	case TagBulkString:
		n, err := ParseLength(hdr.Line)
		if err != nil {
			return err
		}
		if isNilLength(n) {
			dr.Kind = ReplyNil
			return nil
		}
		buf, err := a.AllocBytes(int(n))
		if err != nil {
			return err
		}
		if err := fr.ReadBodyInto(buf); err != nil {
			return err
		}
		dr.Kind = ReplyString
		dr.Str = buf
		return nil
	case TagError:
		_, message := parseErrorBody(hdr.Line)
		buf, err := a.AllocBytes(len(message))
		if err != nil {
			return err
		}
		copy(buf, message)
		dr.Kind = ReplyError
		dr.Str = buf
		return nil
	case TagArray, TagSet:
		n, err := ParseLength(hdr.Line)
		if err != nil {
			return err
		}
		if isNilLength(n) {
			dr.Kind = ReplyNil
			return nil
		}
		a.AllocCell()
		list := make([]DynamicReply, n)
		if hdr.Tag == TagSet {
			dr.Kind = ReplySet
		} else {
			dr.Kind = ReplyList
		}
		dr.List = list
		for i := range list {
			if err := decodeValueAlloc(fr, &list[i], a); err != nil {
				return err
			}
		}
		return nil
	case TagMap:
		n, err := ParseLength(hdr.Line)
		if err != nil {
			return err
		}
		if isNilLength(n) {
			dr.Kind = ReplyNil
			return nil
		}
		a.AllocCell()
		pairs := make([]KV[DynamicReply, DynamicReply], n)
		dr.Kind = ReplyMap
		dr.Map = pairs
		for i := range pairs {
			if err := decodeValueAlloc(fr, &pairs[i].Key, a); err != nil {
				return err
			}
			if err := decodeValueAlloc(fr, &pairs[i].Value, a); err != nil {
				return err
			}
		}
		return nil
	default:
		return newProtocolError("unrecognized frame tag %q", byte(hdr.Tag))
	}
}
