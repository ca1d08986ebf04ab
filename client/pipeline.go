package client

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/icefiredb-contrib/resp3client/pkg/resp"
)

// Call is one command of a pipeline or transaction: its argument words and
// the target its reply decodes into.
type Call struct {
	Args   []any
	Target any
}

// Pipe writes every call's command back-to-back, flushes once, then decodes
// each reply in order into its Target using the non-allocating decoder.
//
// A recoverable decode error (see Session.Send) for one call does not stop
// the others from being decoded; Pipe instead collects every such error and
// returns them together. Any other error marks the Session broken and
// aborts the remaining decodes, since the stream can no longer be trusted.
func (s *Session) Pipe(calls []Call) error {
	if s.broken {
		return s.brokenErr
	}
	if err := s.writeAll(calls); err != nil {
		return err
	}
	if err := s.wr.Flush(); err != nil {
		return s.markBroken(err)
	}
	var errs *multierror.Error
	for i, c := range calls {
		if err := resp.Decode(s.fr, c.Target); err != nil {
			if isRecoverableDecodeError(err) {
				errs = multierror.Append(errs, fmt.Errorf("pipe[%d]: %w", i, err))
				continue
			}
			return s.markBroken(err)
		}
	}
	return errs.ErrorOrNil()
}

// PipeAlloc is Pipe's allocating counterpart. Every call in calls shares
// the same Allocator; each Target must eventually be passed to resp.Free.
func (s *Session) PipeAlloc(calls []Call, a resp.Allocator) error {
	if s.broken {
		return s.brokenErr
	}
	if err := s.writeAll(calls); err != nil {
		return err
	}
	if err := s.wr.Flush(); err != nil {
		return s.markBroken(err)
	}
	var errs *multierror.Error
	for i, c := range calls {
		if err := resp.DecodeAlloc(s.fr, c.Target, a); err != nil {
			if isRecoverableDecodeError(err) {
				errs = multierror.Append(errs, fmt.Errorf("pipe[%d]: %w", i, err))
				continue
			}
			return s.markBroken(err)
		}
	}
	return errs.ErrorOrNil()
}

func (s *Session) writeAll(calls []Call) error {
	for _, c := range calls {
		if err := s.wr.WriteCommand(c.Args...); err != nil {
			return err
		}
	}
	return nil
}
