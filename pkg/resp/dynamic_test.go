package resp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicReplyScalarKinds(t *testing.T) {
	arena := NewArena()
	wire := ":5\r\n,1.5\r\n#t\r\n(999999999999999999999\r\n_\r\n"
	fr := NewFrameReader(strings.NewReader(wire))

	var n DynamicReply
	require.NoError(t, DecodeAlloc(fr, &n, arena))
	assert.Equal(t, ReplyNumber, n.Kind)
	assert.Equal(t, "5", n.String())

	var d DynamicReply
	require.NoError(t, DecodeAlloc(fr, &d, arena))
	assert.Equal(t, ReplyDouble, d.Kind)
	assert.InDelta(t, 1.5, d.Double, 0.0001)

	var b DynamicReply
	require.NoError(t, DecodeAlloc(fr, &b, arena))
	assert.Equal(t, ReplyBool, b.Kind)
	assert.True(t, b.Bool)

	var big DynamicReply
	require.NoError(t, DecodeAlloc(fr, &big, arena))
	assert.Equal(t, ReplyBigNumber, big.Kind)
	assert.Equal(t, "999999999999999999999", big.String())

	var nilReply DynamicReply
	require.NoError(t, DecodeAlloc(fr, &nilReply, arena))
	assert.Equal(t, ReplyNil, nilReply.Kind)
	assert.Equal(t, "<nil>", nilReply.String())
}

func TestDynamicReplyNestedMapAndList(t *testing.T) {
	arena := NewArena()
	wire := "%1\r\n$4\r\nkeys\r\n*2\r\n$1\r\na\r\n$1\r\nb\r\n"
	fr := NewFrameReader(strings.NewReader(wire))

	var dr DynamicReply
	require.NoError(t, DecodeAlloc(fr, &dr, arena))
	require.Equal(t, ReplyMap, dr.Kind)
	require.Len(t, dr.Map, 1)
	assert.Equal(t, "keys", string(dr.Map[0].Key.Str))
	require.Equal(t, ReplyList, dr.Map[0].Value.Kind)
	require.Len(t, dr.Map[0].Value.List, 2)
	assert.Equal(t, "a", string(dr.Map[0].Value.List[0].Str))
	assert.Equal(t, "b", string(dr.Map[0].Value.List[1].Str))

	require.NoError(t, Free(&dr, arena))
	outBytes, outCells := arena.Outstanding()
	assert.Zero(t, outBytes)
	assert.Zero(t, outCells)
}

func TestDynamicReplyErrorBranch(t *testing.T) {
	arena := NewArena()
	fr := NewFrameReader(strings.NewReader("-ERR something broke\r\n"))
	var dr DynamicReply
	require.NoError(t, DecodeAlloc(fr, &dr, arena))
	assert.Equal(t, ReplyError, dr.Kind)
	assert.Equal(t, "ERR something broke", string(dr.Str))

	require.NoError(t, Free(&dr, arena))
	outBytes, _ := arena.Outstanding()
	assert.Zero(t, outBytes)
}

func TestDynamicReplyPartialFailureReleasesPrefix(t *testing.T) {
	arena := NewArena()
	// Second list element is a malformed integer; the first element's
	// 3-byte string and the list cell must still be cleaned up.
	wire := "*2\r\n$3\r\nfoo\r\n:nope\r\n"
	fr := NewFrameReader(strings.NewReader(wire))
	var dr DynamicReply
	err := DecodeAlloc(fr, &dr, arena)
	assert.Error(t, err)

	outBytes, outCells := arena.Outstanding()
	assert.Zero(t, outBytes)
	assert.Zero(t, outCells)
}
