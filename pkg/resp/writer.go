package resp

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

// Writer serializes Redis commands as RESP arrays of bulk strings and
// writes them to an underlying stream. All Redis commands are uniformly
// RESP arrays of bulk strings; Writer inlines that encoding instead of
// going through a separate serializer tier, appending into a pooled scratch
// buffer it reuses across calls. The path is not allocation-free: each
// WriteCommand call allocates a slice for its encoded arguments, and
// string and numeric arguments are converted into freshly allocated byte
// slices before being appended.
type Writer struct {
	w   io.Writer
	buf *bytebufferpool.ByteBuffer
}

// NewWriter returns a Writer that writes commands to w, backed by a pooled
// scratch buffer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, buf: bytebufferpool.Get()}
}

// Release returns the Writer's scratch buffer to the shared pool. Call it
// when the Writer (and the session that owns it) is being closed.
func (wr *Writer) Release() {
	if wr.buf != nil {
		bytebufferpool.Put(wr.buf)
		wr.buf = nil
	}
}

// WriteCommand appends one RESP-array-of-bulk-strings command to the
// Writer's scratch buffer. It does not flush; call Flush to send buffered
// commands, which lets pipe/trans batch several WriteCommand calls into a
// single write.
//
// Acceptable argument types are byte strings, integers, floats, and bools;
// anything else (slices, maps, structs) is a caller error and is rejected
// without touching the buffer.
func (wr *Writer) WriteCommand(args ...interface{}) error {
	encoded := make([][]byte, len(args))
	for i, a := range args {
		b, err := encodeArg(a)
		if err != nil {
			return err
		}
		encoded[i] = b
	}
	appendArrayHeader(wr.buf, len(encoded))
	for _, b := range encoded {
		appendBulk(wr.buf, b)
	}
	return nil
}

// Flush writes everything buffered by WriteCommand to the underlying
// stream and resets the scratch buffer.
func (wr *Writer) Flush() error {
	_, err := wr.w.Write(wr.buf.B)
	wr.buf.Reset()
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// Buffered reports the number of bytes currently queued by WriteCommand.
func (wr *Writer) Buffered() int { return wr.buf.Len() }

// encodeArg converts a single command argument to its canonical byte-string
// representation. Structured values (slices, maps, structs, pointers) are
// rejected: Redis commands are always flat arrays of bulk strings, so a
// structured argument is a caller error to be caught at construction, not
// something to flatten automatically.
func encodeArg(a interface{}) ([]byte, error) {
	switch v := a.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case int:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int8:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int16:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int64:
		return strconv.AppendInt(nil, v, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint8:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint64:
		return strconv.AppendUint(nil, v, 10), nil
	case float32:
		return strconv.AppendFloat(nil, float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
	case bool:
		if v {
			return []byte("1"), nil
		}
		return []byte("0"), nil
	default:
		return nil, fmt.Errorf("resp: argument of type %T is not a valid command argument (structured values are rejected)", a)
	}
}

func appendArrayHeader(buf *bytebufferpool.ByteBuffer, n int) {
	buf.WriteByte(byte(TagArray))
	buf.WriteString(strconv.Itoa(n))
	buf.WriteString("\r\n")
}

func appendBulk(buf *bytebufferpool.ByteBuffer, b []byte) {
	buf.WriteByte(byte(TagBulkString))
	buf.WriteString(strconv.Itoa(len(b)))
	buf.WriteString("\r\n")
	buf.Write(b)
	buf.WriteString("\r\n")
}
