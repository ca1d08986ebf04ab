package resp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameReaderReadHeader(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("$5\r\nhello\r\n+OK\r\n"))

	hdr, err := fr.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, TagBulkString, hdr.Tag)
	assert.Equal(t, "5", string(hdr.Line))

	var buf [5]byte
	require.NoError(t, fr.ReadBodyInto(buf[:]))
	assert.Equal(t, "hello", string(buf[:]))

	hdr, err = fr.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, TagSimpleString, hdr.Tag)
	assert.Equal(t, "OK", string(hdr.Line))
}

func TestFrameReaderRejectsMissingCRLF(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("+OK\n"))
	_, err := fr.ReadHeader()
	assert.Error(t, err)
	var perr *ProtocolError
	assert.ErrorAs(t, err, &perr)
}

func TestFrameReaderRejectsUnrecognizedTag(t *testing.T) {
	fr := NewFrameReader(strings.NewReader("?weird\r\n"))
	_, err := fr.ReadHeader()
	assert.Error(t, err)
}

func TestPeekTagDoesNotConsume(t *testing.T) {
	fr := NewFrameReader(strings.NewReader(":42\r\n"))
	tag, err := fr.PeekTag()
	require.NoError(t, err)
	assert.Equal(t, TagInteger, tag)

	hdr, err := fr.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, TagInteger, hdr.Tag)
	assert.Equal(t, "42", string(hdr.Line))
}

func TestSkipFrameNestedArray(t *testing.T) {
	wire := "*2\r\n$3\r\nfoo\r\n*2\r\n:1\r\n:2\r\n+OK\r\n"
	fr := NewFrameReader(strings.NewReader(wire))
	require.NoError(t, fr.SkipFrame())

	var fb FixBuf
	var buf [2]byte
	fb.Reset(buf[:0])
	require.NoError(t, Decode(fr, &fb))
	assert.Equal(t, "OK", fb.String())
}

func TestSkipFrameNilBulkString(t *testing.T) {
	wire := "$-1\r\n+OK\r\n"
	fr := NewFrameReader(strings.NewReader(wire))
	require.NoError(t, fr.SkipFrame())

	var fb FixBuf
	var buf [2]byte
	fb.Reset(buf[:0])
	require.NoError(t, Decode(fr, &fb))
	assert.Equal(t, "OK", fb.String())
}

func TestParseLength(t *testing.T) {
	n, err := ParseLength([]byte("123"))
	require.NoError(t, err)
	assert.Equal(t, int64(123), n)

	n, err = ParseLength([]byte("-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), n)

	_, err = ParseLength([]byte("nope"))
	assert.Error(t, err)
}
