package resp

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

const defaultBufSize = 16 * 1024

// FrameReader reads RESP frames one at a time from an underlying byte
// stream, through a bufio read-ahead buffer. It never consumes past the end
// of a frame: after SkipFrame, or a Decode/DecodeAlloc call, returns
// successfully, the reader is positioned exactly one byte past that frame
// (invariant 1 of the data model).
//
// FrameReader is not safe for concurrent use; a client.Session owns exactly
// one and drives it from a single goroutine, matching the single-threaded,
// blocking model in §5.
type FrameReader struct {
	br *bufio.Reader
}

// NewFrameReader wraps r with the default read-ahead buffer size.
func NewFrameReader(r io.Reader) *FrameReader {
	return NewFrameReaderSize(r, defaultBufSize)
}

// NewFrameReaderSize wraps r with a read-ahead buffer of the given size.
func NewFrameReaderSize(r io.Reader, size int) *FrameReader {
	if br, ok := r.(*bufio.Reader); ok && br.Size() >= size {
		return &FrameReader{br: br}
	}
	return &FrameReader{br: bufio.NewReaderSize(r, size)}
}

// Header is the tag byte plus the header line that follows it, as found on
// the wire before any CRLF is stripped from the end.
//
// Line is a slice into the FrameReader's internal buffer: it is only valid
// until the next call on the FrameReader. Callers that need to retain it
// (e.g. to compute an error code) must copy it first.
type Header struct {
	Tag  Tag
	Line []byte
}

// PeekTag returns the tag of the next frame without consuming anything.
func (fr *FrameReader) PeekTag() (Tag, error) {
	b, err := fr.br.Peek(1)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return Tag(b[0]), nil
}

// ReadHeader consumes the tag byte and the header line up to and including
// its terminating CRLF, returning the tag and the line with the CRLF
// stripped.
func (fr *FrameReader) ReadHeader() (Header, error) {
	line, err := fr.readLine()
	if err != nil {
		return Header{}, err
	}
	if len(line) == 0 {
		return Header{}, newProtocolError("empty frame header")
	}
	tag := Tag(line[0])
	switch tag {
	case TagInteger, TagSimpleString, TagError, TagBulkString, TagArray,
		TagDouble, TagBoolean, TagBigNumber, TagNil, TagSet, TagMap:
	default:
		return Header{}, newProtocolError("unrecognized frame tag %q", line[0])
	}
	return Header{Tag: tag, Line: line[1:]}, nil
}

// readLine reads up to and including the next '\n', verifies a preceding
// '\r', and returns the line without the trailing CRLF. The returned slice
// aliases the internal buffer.
func (fr *FrameReader) readLine() ([]byte, error) {
	line, err := fr.br.ReadSlice('\n')
	if err != nil {
		if err == bufio.ErrBufferFull {
			return nil, newProtocolError("header line exceeds buffer size")
		}
		return nil, errors.WithStack(err)
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, newProtocolError("line missing CRLF terminator")
	}
	return line[:len(line)-2], nil
}

// ParseLength parses a bulk/array/set/map length header, which may be -1 to
// denote nil.
func ParseLength(line []byte) (int64, error) {
	n, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0, newProtocolError("invalid length %q", line)
	}
	return n, nil
}

// ReadBodyInto reads exactly len(dst) bytes of a bulk/simple-string body
// followed by its terminating CRLF, without allocating. It is used by the
// non-allocating decoder for FixBuf targets.
func (fr *FrameReader) ReadBodyInto(dst []byte) error {
	if _, err := io.ReadFull(fr.br, dst); err != nil {
		return errors.WithStack(err)
	}
	return fr.expectCRLF()
}

// ReadBody reads n bytes of a bulk-string body plus its terminating CRLF
// into a freshly allocated slice. The decoders in this package do not call
// it; they read bodies with ReadBodyInto.
func (fr *FrameReader) ReadBody(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := fr.ReadBodyInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (fr *FrameReader) expectCRLF() error {
	var crlf [2]byte
	if _, err := io.ReadFull(fr.br, crlf[:]); err != nil {
		return errors.WithStack(err)
	}
	if crlf[0] != '\r' || crlf[1] != '\n' {
		return newProtocolError("expected CRLF after bulk body")
	}
	return nil
}

// SkipFrame reads and discards exactly one frame, including every child of
// an aggregate frame. It is used for unknown Record keys/values and for
// values matched against Void.
func (fr *FrameReader) SkipFrame() error {
	hdr, err := fr.ReadHeader()
	if err != nil {
		return err
	}
	return fr.skipBody(hdr)
}

func (fr *FrameReader) skipBody(hdr Header) error {
	switch hdr.Tag {
	case TagInteger, TagSimpleString, TagError, TagDouble, TagBoolean, TagBigNumber, TagNil:
		return nil
	case TagBulkString:
		n, err := ParseLength(hdr.Line)
		if err != nil {
			return err
		}
		if isNilLength(n) {
			return nil
		}
		if _, err := fr.br.Discard(int(n)); err != nil {
			return errors.WithStack(err)
		}
		return fr.expectCRLF()
	case TagArray, TagSet:
		n, err := ParseLength(hdr.Line)
		if err != nil {
			return err
		}
		if isNilLength(n) {
			return nil
		}
		for i := int64(0); i < n; i++ {
			if err := fr.SkipFrame(); err != nil {
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
			return nil
		}
		for i := int64(0); i < 2*n; i++ {
			if err := fr.SkipFrame(); err != nil {
				return err
			}
		}
		return nil
	default:
		return newProtocolError("unrecognized frame tag %q", byte(hdr.Tag))
	}
}
