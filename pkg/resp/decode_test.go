package resp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInteger(t *testing.T) {
	fr := NewFrameReader(strings.NewReader(":1000\r\n"))
	var n int64
	require.NoError(t, Decode(fr, &n))
	assert.Equal(t, int64(1000), n)
}

func TestDecodeIntegerOverflow(t *testing.T) {
	fr := NewFrameReader(strings.NewReader(":1000\r\n"))
	var n int8
	err := Decode(fr, &n)
	var rangeErr *NumericRangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestDecodeDoubleIntoFloat(t *testing.T) {
	fr := NewFrameReader(strings.NewReader(",3.14\r\n"))
	var f float64
	require.NoError(t, Decode(fr, &f))
	assert.InDelta(t, 3.14, f, 0.0001)
}

func TestDecodeBigNumberIntoInt(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("(12345678901234567890\r\n"))
	var n uint64
	require.NoError(t, Decode(fr, &n))
	assert.Equal(t, uint64(12345678901234567890), n)
}

func TestDecodeBoolean(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("#t\r\n#f\r\n"))
	var b bool
	require.NoError(t, Decode(fr, &b))
	assert.True(t, b)
	require.NoError(t, Decode(fr, &b))
	assert.False(t, b)
}

func TestDecodeFixBufBulkString(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("$5\r\nhello\r\n"))
	var buf [5]byte
	fb := NewFixBuf(buf[:0])
	require.NoError(t, Decode(fr, &fb))
	assert.Equal(t, "hello", fb.String())
}

func TestDecodeFixBufTooSmall(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("$5\r\nhello\r\n"))
	var buf [2]byte
	fb := NewFixBuf(buf[:0])
	err := Decode(fr, &fb)
	var tooSmall *BufferTooSmallError
	assert.ErrorAs(t, err, &tooSmall)
}

func TestDecodeServerErrorAgainstPlainTarget(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("-ERR no such key\r\n"))
	var n int64
	err := Decode(fr, &n)
	var serr ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "ERR", serr.Code)
	assert.Equal(t, "ERR no such key", serr.Message)
}

func TestDecodeUnexpectedNil(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("$-1\r\n"))
	var n int64
	err := Decode(fr, &n)
	var nilErr *UnexpectedNilError
	assert.ErrorAs(t, err, &nilErr)
}

func TestDecodeFixedArray(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("*3\r\n:1\r\n:2\r\n:3\r\n"))
	var arr [3]int64
	require.NoError(t, Decode(fr, &arr))
	assert.Equal(t, [3]int64{1, 2, 3}, arr)
}

func TestDecodeOptionalPresentAndAbsent(t *testing.T) {
	fr := NewFrameReader(strings.NewReader(":7\r\n$-1\r\n"))

	var present Optional[int64]
	require.NoError(t, Decode(fr, &present))
	v, ok := present.Get()
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)

	var absent Optional[int64]
	require.NoError(t, Decode(fr, &absent))
	_, ok = absent.Get()
	assert.False(t, ok)
}

func TestDecodeOptionalDoesNotAbsorbErrors(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("-ERR boom\r\n"))
	var o Optional[int64]
	err := Decode(fr, &o)
	var serr ServerError
	assert.ErrorAs(t, err, &serr)
}

func TestDecodeOrErrAllBranches(t *testing.T) {
	fr := NewFrameReader(strings.NewReader(":9\r\n$-1\r\n-WRONGTYPE oops\r\n"))

	var ok OrErr[int64]
	require.NoError(t, Decode(fr, &ok))
	v, got := ok.Ok()
	assert.True(t, got)
	assert.Equal(t, int64(9), v)

	var nilVal OrErr[int64]
	require.NoError(t, Decode(fr, &nilVal))
	assert.True(t, nilVal.IsNil())

	var errVal OrErr[int64]
	require.NoError(t, Decode(fr, &errVal))
	code, isErr := errVal.Err()
	assert.True(t, isErr)
	assert.Equal(t, "WRONGTYPE", code)
}

func TestDecodeKV(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("*2\r\n$3\r\nfoo\r\n:1\r\n"))
	var buf [3]byte
	var kv KV[FixBuf, int64]
	kv.Key.Reset(buf[:0])
	require.NoError(t, Decode(fr, &kv))
	assert.Equal(t, "foo", kv.Key.String())
	assert.Equal(t, int64(1), kv.Value)
}

func TestDecodeFixedArrayKVFlat(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("*4\r\n$3\r\nfoo\r\n:1\r\n$3\r\nbar\r\n:2\r\n"))
	var bufA, bufB [3]byte
	var pairs [2]KV[FixBuf, int64]
	pairs[0].Key.Reset(bufA[:0])
	pairs[1].Key.Reset(bufB[:0])
	require.NoError(t, Decode(fr, &pairs))
	assert.Equal(t, "foo", pairs[0].Key.String())
	assert.Equal(t, int64(1), pairs[0].Value)
	assert.Equal(t, "bar", pairs[1].Key.String())
	assert.Equal(t, int64(2), pairs[1].Value)
}

func TestDecodeFixedArrayKVNested(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("*2\r\n*2\r\n$3\r\nfoo\r\n:1\r\n*2\r\n$3\r\nbar\r\n:2\r\n"))
	var bufA, bufB [3]byte
	var pairs [2]KV[FixBuf, int64]
	pairs[0].Key.Reset(bufA[:0])
	pairs[1].Key.Reset(bufB[:0])
	require.NoError(t, Decode(fr, &pairs))
	assert.Equal(t, "foo", pairs[0].Key.String())
	assert.Equal(t, int64(1), pairs[0].Value)
	assert.Equal(t, "bar", pairs[1].Key.String())
	assert.Equal(t, int64(2), pairs[1].Value)
}

func TestDecodeFixedArrayKVFromMap(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("%2\r\n$3\r\nfoo\r\n:1\r\n$3\r\nbar\r\n:2\r\n"))
	var bufA, bufB [3]byte
	var pairs [2]KV[FixBuf, int64]
	pairs[0].Key.Reset(bufA[:0])
	pairs[1].Key.Reset(bufB[:0])
	require.NoError(t, Decode(fr, &pairs))
	assert.Equal(t, "foo", pairs[0].Key.String())
	assert.Equal(t, int64(1), pairs[0].Value)
	assert.Equal(t, "bar", pairs[1].Key.String())
	assert.Equal(t, int64(2), pairs[1].Value)
}

type helloRecord struct {
	Server  FixBuf
	Proto   int64
	Extra   Optional[int64]
}

func TestDecodeRecordFromMap(t *testing.T) {
	wire := "%2\r\n$6\r\nServer\r\n$5\r\nredis\r\n$5\r\nProto\r\n:3\r\n"
	fr := NewFrameReader(strings.NewReader(wire))
	var rec helloRecord
	var buf [16]byte
	rec.Server.Reset(buf[:0])
	require.NoError(t, Decode(fr, &rec))
	assert.Equal(t, "redis", rec.Server.String())
	assert.Equal(t, int64(3), rec.Proto)
	_, ok := rec.Extra.Get()
	assert.False(t, ok)
}

func TestDecodeRecordMissingRequiredField(t *testing.T) {
	wire := "%1\r\n$5\r\nProto\r\n:3\r\n"
	fr := NewFrameReader(strings.NewReader(wire))
	var rec helloRecord
	var buf [16]byte
	rec.Server.Reset(buf[:0])
	err := Decode(fr, &rec)
	var missing *MissingFieldError
	assert.ErrorAs(t, err, &missing)
}

func TestDecodeRecordSkipsUnknownFields(t *testing.T) {
	wire := "%2\r\n$5\r\nProto\r\n:3\r\n$7\r\nUnknown\r\n:99\r\n"
	fr := NewFrameReader(strings.NewReader(wire))
	var rec helloRecord
	var buf [16]byte
	rec.Server.Reset(buf[:0])
	err := Decode(fr, &rec)
	var missing *MissingFieldError
	assert.ErrorAs(t, err, &missing) // Server still required and absent
}

func TestDecodeVoidDiscardsAnyFrame(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("*2\r\n:1\r\n:2\r\n+OK\r\n"))
	var v Void
	require.NoError(t, Decode(fr, &v))

	var fb FixBuf
	var buf [2]byte
	fb.Reset(buf[:0])
	require.NoError(t, Decode(fr, &fb))
	assert.Equal(t, "OK", fb.String())
}
