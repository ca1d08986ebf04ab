// Package client drives a single RESP connection: it writes commands and
// decodes their replies into caller-chosen target shapes from package resp.
//
// A Session is not safe for concurrent use — exactly like the gnet-style
// event loop its design is inherited from, which drives one connection from
// one goroutine at a time, a Session expects a single goroutine to own it
// and issue calls one at a time. Once a transport-level error occurs the
// Session is marked broken and every subsequent call fails immediately
// without touching the wire.
package client

import (
	"io"

	"go.uber.org/zap"

	"github.com/icefiredb-contrib/resp3client/pkg/resp"
)

// Session is a single connection to a RESP server, ready to send commands
// and decode their replies.
type Session struct {
	conn io.ReadWriteCloser
	fr   *resp.FrameReader
	wr   *resp.Writer
	log  *zap.Logger

	broken    bool
	brokenErr error
}

// New wraps conn in a Session. conn is typically a *net.TCPConn or
// *net.UnixConn, but anything satisfying io.ReadWriteCloser works, which
// makes a Session straightforward to test against net.Pipe or an in-memory
// buffer pair.
func New(conn io.ReadWriteCloser, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session{
		conn: conn,
		fr:   resp.NewFrameReaderSize(conn, cfg.readBufSize),
		wr:   resp.NewWriter(conn),
		log:  cfg.logger,
	}
}

// Close releases the Session's write buffer and closes the underlying
// connection.
func (s *Session) Close() error {
	s.wr.Release()
	return s.conn.Close()
}

// Broken reports whether a prior transport error or unrecoverable decode
// error has permanently disabled this Session, and the error that caused it.
func (s *Session) Broken() (bool, error) {
	return s.broken, s.brokenErr
}

// Send writes one command and decodes its reply into target using the
// non-allocating decoder. args are the command's words (e.g. "SET", key,
// value); see Writer.WriteCommand for accepted argument types.
func (s *Session) Send(target any, args ...any) error {
	if s.broken {
		return s.brokenErr
	}
	if err := s.wr.WriteCommand(args...); err != nil {
		return err
	}
	if err := s.wr.Flush(); err != nil {
		return s.markBroken(err)
	}
	if err := resp.Decode(s.fr, target); err != nil {
		if isRecoverableDecodeError(err) {
			return err
		}
		return s.markBroken(err)
	}
	return nil
}

// SendAlloc is Send's allocating counterpart: target may use the
// allocating-only shapes (OrFullErr[T], DynamicReply, []byte, variable
// slices, owned pointers). Every value placed in target must eventually be
// passed to resp.Free with the same Allocator.
func (s *Session) SendAlloc(target any, a resp.Allocator, args ...any) error {
	if s.broken {
		return s.brokenErr
	}
	if err := s.wr.WriteCommand(args...); err != nil {
		return err
	}
	if err := s.wr.Flush(); err != nil {
		return s.markBroken(err)
	}
	if err := resp.DecodeAlloc(s.fr, target, a); err != nil {
		if isRecoverableDecodeError(err) {
			return err
		}
		return s.markBroken(err)
	}
	return nil
}

func (s *Session) markBroken(err error) error {
	wrapped := resp.WrapConnectionBroken(err)
	s.broken = true
	s.brokenErr = wrapped
	s.log.Error("session marked broken", zap.Error(err))
	return wrapped
}

// isRecoverableDecodeError reports whether err is guaranteed, per the
// decoder's contract, to have consumed its frame fully and left the stream
// aligned — meaning the Session can stay healthy and the caller simply
// lost this one reply. Every other decode error (malformed framing, a
// target-shape mismatch, an allocator failure) leaves the stream's position
// impossible to trust, so the Session is marked broken instead.
func isRecoverableDecodeError(err error) bool {
	switch err.(type) {
	case resp.ServerError:
		return true
	case *resp.UnexpectedNilError:
		return true
	default:
		return false
	}
}
