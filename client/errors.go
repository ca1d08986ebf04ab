package client

import "fmt"

// UnexpectedAckError reports that a MULTI/QUEUED handshake step returned
// something other than the acknowledgement it is required to send.
type UnexpectedAckError struct {
	Step string
	Got  string
}

func (e *UnexpectedAckError) Error() string {
	return fmt.Sprintf("client: expected acknowledgement for %s, got %q", e.Step, e.Got)
}
