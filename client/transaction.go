package client

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/icefiredb-contrib/resp3client/pkg/resp"
)

const ackBufCap = 32

// TransOutcome reports whether Trans/TransAlloc's EXEC actually ran the
// transaction or was discarded because a watched key changed. Per
// SPEC_FULL.md §4.5, this mirrors wrapping the transaction's record in
// resp.OrErr: EXEC replies with a nil aggregate on discard, not an error
// frame, so a discarded transaction is ordinary decodable data and never
// marks the Session broken. Callers must not read from any Call's Target
// when Aborted is true — nothing was decoded into them.
type TransOutcome struct {
	Aborted bool
}

// Trans wraps calls in a MULTI/EXEC transaction and decodes each call's
// reply from EXEC's aggregate result. The full exchange is MULTI, one
// command per call, EXEC — N+2 replies on the wire: "+OK", N "+QUEUED"
// acknowledgements, and EXEC's own array of N results.
//
// Any unexpected acknowledgement, or EXEC replying with anything other than
// an array or a nil aggregate, marks the Session broken: a transaction's
// handshake desyncing is not something the caller can safely recover from
// mid-stream. EXEC's own nil aggregate (a discarded transaction) is not
// such a desync — it is reported as TransOutcome{Aborted: true}, nil.
func (s *Session) Trans(calls []Call) (TransOutcome, error) {
	if s.broken {
		return TransOutcome{}, s.brokenErr
	}
	if err := s.writeTrans(calls); err != nil {
		return TransOutcome{}, err
	}
	if err := s.wr.Flush(); err != nil {
		return TransOutcome{}, s.markBroken(err)
	}
	if err := s.readTransAcks(len(calls)); err != nil {
		return TransOutcome{}, err
	}
	n, aborted, err := s.readExecHeader()
	if err != nil {
		return TransOutcome{}, err
	}
	if aborted {
		return TransOutcome{Aborted: true}, nil
	}
	if int(n) != len(calls) {
		return TransOutcome{}, s.markBroken(fmt.Errorf("client: EXEC replied with %d results, expected %d", n, len(calls)))
	}
	var errs *multierror.Error
	for i, c := range calls {
		if err := resp.Decode(s.fr, c.Target); err != nil {
			if isRecoverableDecodeError(err) {
				errs = multierror.Append(errs, fmt.Errorf("trans[%d]: %w", i, err))
				continue
			}
			return TransOutcome{}, s.markBroken(err)
		}
	}
	return TransOutcome{}, errs.ErrorOrNil()
}

// TransAlloc is Trans's allocating counterpart.
func (s *Session) TransAlloc(calls []Call, a resp.Allocator) (TransOutcome, error) {
	if s.broken {
		return TransOutcome{}, s.brokenErr
	}
	if err := s.writeTrans(calls); err != nil {
		return TransOutcome{}, err
	}
	if err := s.wr.Flush(); err != nil {
		return TransOutcome{}, s.markBroken(err)
	}
	if err := s.readTransAcks(len(calls)); err != nil {
		return TransOutcome{}, err
	}
	n, aborted, err := s.readExecHeader()
	if err != nil {
		return TransOutcome{}, err
	}
	if aborted {
		return TransOutcome{Aborted: true}, nil
	}
	if int(n) != len(calls) {
		return TransOutcome{}, s.markBroken(fmt.Errorf("client: EXEC replied with %d results, expected %d", n, len(calls)))
	}
	var errs *multierror.Error
	for i, c := range calls {
		if err := resp.DecodeAlloc(s.fr, c.Target, a); err != nil {
			if isRecoverableDecodeError(err) {
				errs = multierror.Append(errs, fmt.Errorf("trans[%d]: %w", i, err))
				continue
			}
			return TransOutcome{}, s.markBroken(err)
		}
	}
	return TransOutcome{}, errs.ErrorOrNil()
}

func (s *Session) writeTrans(calls []Call) error {
	if err := s.wr.WriteCommand("MULTI"); err != nil {
		return err
	}
	if err := s.writeAll(calls); err != nil {
		return err
	}
	return s.wr.WriteCommand("EXEC")
}

// readTransAcks consumes "+OK" for MULTI followed by n "+QUEUED" acks.
func (s *Session) readTransAcks(n int) error {
	if err := s.expectAck("MULTI", "OK"); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := s.expectAck(fmt.Sprintf("queue[%d]", i), "QUEUED"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) expectAck(step, want string) error {
	var buf [ackBufCap]byte
	ack := resp.NewFixBuf(buf[:0])
	if err := resp.Decode(s.fr, &ack); err != nil {
		return s.markBroken(err)
	}
	if ack.String() != want {
		return s.markBroken(&UnexpectedAckError{Step: step, Got: ack.String()})
	}
	return nil
}

// readExecHeader reads EXEC's own frame header and returns its element
// count. A nil aggregate (either "*-1" or RESP3 "_") means the transaction
// was discarded; that is reported via the aborted return, not an error —
// it leaves the stream fully consumed and the Session perfectly healthy, the
// same way a caller-chosen resp.OrErr's Nil branch would. Any other
// malformed EXEC reply marks the Session broken, since the stream can no
// longer be trusted to be frame-aligned.
func (s *Session) readExecHeader() (n int64, aborted bool, err error) {
	hdr, err := s.fr.ReadHeader()
	if err != nil {
		return 0, false, s.markBroken(err)
	}
	switch hdr.Tag {
	case resp.TagArray:
		n, err := resp.ParseLength(hdr.Line)
		if err != nil {
			return 0, false, s.markBroken(err)
		}
		if n < 0 {
			return 0, true, nil
		}
		return n, false, nil
	case resp.TagNil:
		return 0, true, nil
	default:
		return 0, false, s.markBroken(fmt.Errorf("client: EXEC replied with unexpected tag %s", hdr.Tag))
	}
}
