package client

import "github.com/icefiredb-contrib/resp3client/pkg/resp"

// HelloInfo is the server's handshake reply to HELLO, as sent back by
// Redis-family servers on protocol negotiation.
type HelloInfo struct {
	Server  []byte               `resp:"server"`
	Version []byte               `resp:"version"`
	Proto   int64                `resp:"proto"`
	ID      int64                `resp:"id"`
	Mode    []byte               `resp:"mode"`
	Role    []byte               `resp:"role"`
	Modules []resp.DynamicReply  `resp:"modules"`
}

// Hello3 sends HELLO 3, optionally with AUTH credentials, and decodes the
// server's handshake map into a HelloInfo. It is sugar over SendAlloc, not
// a distinct wire capability: the caller must still call resp.Free(info, a)
// once done with it, and nothing in Session issues HELLO on its own — a
// caller that never calls Hello3 talks RESP2 the whole session.
//
// username may be empty, in which case AUTH is sent with the "default"
// username and the given password; both empty skips AUTH entirely.
func (s *Session) Hello3(username, password string, a resp.Allocator) (*HelloInfo, error) {
	args := []any{"HELLO", 3}
	switch {
	case username != "":
		args = append(args, "AUTH", username, password)
	case password != "":
		args = append(args, "AUTH", "default", password)
	}
	info := &HelloInfo{}
	if err := s.SendAlloc(info, a, args...); err != nil {
		return nil, err
	}
	return info, nil
}
