package resp

import (
	"reflect"

	"github.com/hashicorp/go-multierror"
)

// Void decodes and discards exactly one frame, failing if it is an error
// frame. It is the target shape for commands whose reply carries no useful
// payload (e.g. "SET key value").
type Void struct{}

// FixBuf is an inline, fixed-capacity byte buffer: the non-allocating
// counterpart of an owned string. The caller supplies the backing array (a
// slice with spare capacity) via Reset; decoding never grows it.
type FixBuf struct {
	buf []byte
	n   int
}

// NewFixBuf wraps buf as a FixBuf with capacity cap(buf).
func NewFixBuf(buf []byte) FixBuf {
	var fb FixBuf
	fb.Reset(buf)
	return fb
}

// Reset points fb at a new backing array, clearing any previously decoded
// length. cap(buf) becomes the buffer's capacity N.
func (fb *FixBuf) Reset(buf []byte) {
	fb.buf = buf[:cap(buf)]
	fb.n = 0
}

// Cap returns the buffer's fixed capacity.
func (fb *FixBuf) Cap() int { return cap(fb.buf) }

// Len returns the number of valid bytes currently held.
func (fb *FixBuf) Len() int { return fb.n }

// Bytes returns the valid prefix of the buffer. The returned slice aliases
// fb's backing array and is invalidated by the next decode into fb.
func (fb *FixBuf) Bytes() []byte { return fb.buf[:fb.n] }

// String copies the valid prefix into a new Go string.
func (fb *FixBuf) String() string { return string(fb.Bytes()) }

// Equal reports whether fb and other hold byte-identical valid prefixes.
func (fb FixBuf) Equal(other FixBuf) bool {
	if fb.n != other.n {
		return false
	}
	for i := 0; i < fb.n; i++ {
		if fb.buf[i] != other.buf[i] {
			return false
		}
	}
	return true
}

func (fb *FixBuf) setLen(n int) { fb.n = n }

// Optional decodes a nil frame ($-1, *-1, _) to an absent value; any other
// frame is decoded as T into Value. Optional does not itself accept error
// frames — an error reply against an
// Optional[T] target surfaces as ServerError, the same as any plain T
// target, so that a caller who only expected "value or missing" is not
// silently handed a zero value on a genuine server error.
type Optional[T any] struct {
	Valid bool
	Value T
}

// Get returns the value and whether it was present.
func (o Optional[T]) Get() (T, bool) { return o.Value, o.Valid }

// optionalMarker lets decodeRecord recognize an Optional[T] field by type,
// without knowing T, to decide whether a missing wire key is an error.
func (Optional[T]) optionalMarker() {}

func (o *Optional[T]) setNil() {
	o.Valid = false
	var zero T
	o.Value = zero
}

func (o *Optional[T]) setFromValueFrame(fr *FrameReader, hdr Header) error {
	o.Valid = true
	return routeValue(fr, &o.Value, hdr)
}

func (o *Optional[T]) setFromValueFrameAlloc(fr *FrameReader, hdr Header, a Allocator) error {
	o.Valid = true
	return routeValueAlloc(fr, &o.Value, hdr, a)
}

// respFree frees Value only when it was actually populated; an absent
// Optional never allocated anything.
func (o Optional[T]) respFree(a Allocator) error {
	if !o.Valid {
		return nil
	}
	return freeValue(reflect.ValueOf(o.Value), a)
}

// ErrKind distinguishes the three branches of OrErr/OrFullErr.
type ErrKind int

const (
	// KindOk means the wire frame decoded successfully into the wrapped T.
	KindOk ErrKind = iota
	// KindNilReply means the wire frame was a nil frame.
	KindNilReply
	// KindErr means the wire frame was a RESP error ("-...").
	KindErr
)

// maxInlineCodeLen bounds the inline error-code buffer carried by OrErr and
// OrFullErr, per §4.3 ("a short fixed code ... typically 32
// bytes, stored inline"). A code longer than this is truncated; Redis error
// codes ("ERR", "WRONGTYPE", "NOSCRIPT", ...) are always far shorter.
const maxInlineCodeLen = 32

// OrErr is the tagged sum {Ok(T), Nil, Err{code}} used whenever a reply may
// legitimately be an error or nil instead of T — most commonly because the
// caller is willing to observe but not be killed by a server-side error
// (e.g. inside a pipeline or transaction, where one command's failure must
// not abort decoding of the others).
type OrErr[T any] struct {
	Kind    ErrKind
	Value   T
	codeBuf [maxInlineCodeLen]byte
	codeLen int
}

// Ok returns the decoded value and true when Kind == KindOk.
func (o OrErr[T]) Ok() (T, bool) {
	if o.Kind == KindOk {
		return o.Value, true
	}
	var zero T
	return zero, false
}

// IsNil reports whether the reply was a nil frame.
func (o OrErr[T]) IsNil() bool { return o.Kind == KindNilReply }

// Code returns the error's leading token ("ERR", "WRONGTYPE", ...).
func (o OrErr[T]) Code() string { return string(o.codeBuf[:o.codeLen]) }

// Err returns the error code and true when Kind == KindErr.
func (o OrErr[T]) Err() (string, bool) {
	if o.Kind == KindErr {
		return o.Code(), true
	}
	return "", false
}

func (o *OrErr[T]) setNil() {
	o.Kind = KindNilReply
	var zero T
	o.Value = zero
}

func (o *OrErr[T]) setErr(code []byte) {
	o.Kind = KindErr
	o.codeLen = copy(o.codeBuf[:], code)
}

func (o *OrErr[T]) setFromValueFrame(fr *FrameReader, hdr Header) error {
	o.Kind = KindOk
	return routeValue(fr, &o.Value, hdr)
}

func (o *OrErr[T]) setFromValueFrameAlloc(fr *FrameReader, hdr Header, a Allocator) error {
	o.Kind = KindOk
	return routeValueAlloc(fr, &o.Value, hdr, a)
}

// respFree frees Value only when Kind == KindOk. The inline code buffer is
// never allocator-tracked.
func (o OrErr[T]) respFree(a Allocator) error {
	if o.Kind != KindOk {
		return nil
	}
	return freeValue(reflect.ValueOf(o.Value), a)
}

// OrFullErr extends OrErr so that, in the allocating decoder, the Err
// branch also carries the full error message as an owned string. The
// non-allocating decoder has no way to store an unbounded message and so
// never produces OrFullErr; it is an allocating-mode-only target shape.
type OrFullErr[T any] struct {
	Kind    ErrKind
	Value   T
	codeBuf [maxInlineCodeLen]byte
	codeLen int
	Message string // valid when Kind == KindErr
}

// Ok returns the decoded value and true when Kind == KindOk.
func (o OrFullErr[T]) Ok() (T, bool) {
	if o.Kind == KindOk {
		return o.Value, true
	}
	var zero T
	return zero, false
}

// IsNil reports whether the reply was a nil frame.
func (o OrFullErr[T]) IsNil() bool { return o.Kind == KindNilReply }

// Code returns the error's leading token.
func (o OrFullErr[T]) Code() string { return string(o.codeBuf[:o.codeLen]) }

// Err returns the error code, full message, and true when Kind == KindErr.
func (o OrFullErr[T]) Err() (code, message string, ok bool) {
	if o.Kind == KindErr {
		return o.Code(), o.Message, true
	}
	return "", "", false
}

func (o *OrFullErr[T]) setNil() {
	o.Kind = KindNilReply
	var zero T
	o.Value = zero
}

func (o *OrFullErr[T]) setErrAlloc(code []byte, message string) {
	o.Kind = KindErr
	o.codeLen = copy(o.codeBuf[:], code)
	o.Message = message
}

func (o *OrFullErr[T]) setFromValueFrameAlloc(fr *FrameReader, hdr Header, a Allocator) error {
	o.Kind = KindOk
	return routeValueAlloc(fr, &o.Value, hdr, a)
}

// respFree frees Value only when Kind == KindOk. The inline code buffer
// and the owned Message string are never allocator-tracked: Message is a
// plain Go string, immutable and not something FreeBytes can take back.
func (o OrFullErr[T]) respFree(a Allocator) error {
	if o.Kind != KindOk {
		return nil
	}
	return freeValue(reflect.ValueOf(o.Value), a)
}

// KV is a key/value pair. It decodes from a 2-element aggregate frame, or,
// as an element of a sequence-of-KV target, from two adjacent frames within
// a flat even-length aggregate.
type KV[K, V any] struct {
	Key   K
	Value V
}

func (kv *KV[K, V]) decodeKVFrame(fr *FrameReader, hdr Header) error {
	if hdr.Tag != TagArray && hdr.Tag != TagSet {
		return &UnexpectedTagError{Tag: hdr.Tag, Target: "resp.KV"}
	}
	n, err := ParseLength(hdr.Line)
	if err != nil {
		return err
	}
	if n != 2 {
		return newProtocolError("KV expects a 2-element aggregate, got %d elements", n)
	}
	if err := Decode(fr, &kv.Key); err != nil {
		return err
	}
	return Decode(fr, &kv.Value)
}

func (kv *KV[K, V]) decodeKVFrameAlloc(fr *FrameReader, hdr Header, a Allocator) error {
	if hdr.Tag != TagArray && hdr.Tag != TagSet {
		return &UnexpectedTagError{Tag: hdr.Tag, Target: "resp.KV"}
	}
	n, err := ParseLength(hdr.Line)
	if err != nil {
		return err
	}
	if n != 2 {
		return newProtocolError("KV expects a 2-element aggregate, got %d elements", n)
	}
	if err := decodeValueAlloc(fr, &kv.Key, a); err != nil {
		return err
	}
	return decodeValueAlloc(fr, &kv.Value, a)
}

// respFree frees both Key and Value, continuing past either one's failure
// so the other is still released.
func (kv KV[K, V]) respFree(a Allocator) error {
	var errs *multierror.Error
	if err := freeValue(reflect.ValueOf(kv.Key), a); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := freeValue(reflect.ValueOf(kv.Value), a); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// kvSequenceElem is implemented by KV[K, V] so a slice/array decoder can
// recognize a "sequence of KV" target without knowing K or V, and apply
// §3/§4.2's dual wire-shape rule: a flat aggregate of 2n adjacent
// key/value frames, or an aggregate of n 2-element sub-aggregates, each
// decoded as one pair.
type kvSequenceElem interface {
	isKVSequenceElem()
}

func (KV[K, V]) isKVSequenceElem() {}

var kvSequenceElemType = reflect.TypeOf((*kvSequenceElem)(nil)).Elem()

func isKVElemType(t reflect.Type) bool {
	return t.Implements(kvSequenceElemType)
}

// kvSequenceIsFlat decides, for an Array/Set-tagged "sequence of KV"
// target, whether the n children on the wire are n flat adjacent
// key/value frames or n nested 2-element sub-aggregates, by peeking the
// tag of whatever comes next: a nested pair begins with its own
// Array/Set header, a flat key does not.
func kvSequenceIsFlat(fr *FrameReader, n int64) (bool, error) {
	if n == 0 {
		return true, nil
	}
	tag, err := fr.PeekTag()
	if err != nil {
		return false, err
	}
	return tag != TagArray && tag != TagSet, nil
}
