package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icefiredb-contrib/resp3client/pkg/resp"
)

func TestPipeDecodesRepliesInOrder(t *testing.T) {
	s, server, _ := newTestSession(t)
	go func() {
		buf := make([]byte, 256)
		server.Read(buf)
		server.Write([]byte(":1\r\n+OK\r\n"))
	}()

	var a int64
	var v resp.Void
	calls := []Call{
		{Args: []any{"INCR", "x"}, Target: &a},
		{Args: []any{"SET", "y", "1"}, Target: &v},
	}
	require.NoError(t, s.Pipe(calls))
	assert.Equal(t, int64(1), a)
}

func TestPipeAggregatesRecoverableErrorsWithoutAborting(t *testing.T) {
	s, server, _ := newTestSession(t)
	go func() {
		buf := make([]byte, 256)
		server.Read(buf)
		server.Write([]byte("-ERR first failed\r\n:2\r\n"))
	}()

	var a, b int64
	calls := []Call{
		{Args: []any{"INCR", "x"}, Target: &a},
		{Args: []any{"INCR", "y"}, Target: &b},
	}
	err := s.Pipe(calls)
	assert.Error(t, err)
	assert.Equal(t, int64(2), b)

	broken, _ := s.Broken()
	assert.False(t, broken)
}

func TestPipeAbortsOnUnrecoverableError(t *testing.T) {
	s, server, _ := newTestSession(t)
	go func() {
		buf := make([]byte, 256)
		server.Read(buf)
		server.Write([]byte("?garbage\r\n"))
	}()

	var a, b int64
	calls := []Call{
		{Args: []any{"INCR", "x"}, Target: &a},
		{Args: []any{"INCR", "y"}, Target: &b},
	}
	err := s.Pipe(calls)
	assert.Error(t, err)

	broken, _ := s.Broken()
	assert.True(t, broken)
}
