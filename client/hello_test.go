package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icefiredb-contrib/resp3client/pkg/resp"
)

func TestHello3SendsAuthAndDecodesHandshake(t *testing.T) {
	s, server, _ := newTestSession(t)
	arena := resp.NewArena()
	go func() {
		buf := make([]byte, 512)
		server.Read(buf)
		server.Write([]byte(
			"%7\r\n" +
				"$6\r\nserver\r\n$5\r\nredis\r\n" +
				"$7\r\nversion\r\n$5\r\n7.4.0\r\n" +
				"$5\r\nproto\r\n:3\r\n" +
				"$2\r\nid\r\n:7\r\n" +
				"$4\r\nmode\r\n$10\r\nstandalone\r\n" +
				"$4\r\nrole\r\n$6\r\nmaster\r\n" +
				"$7\r\nmodules\r\n*0\r\n"))
	}()

	info, err := s.Hello3("default", "secret", arena)
	require.NoError(t, err)
	assert.Equal(t, "redis", string(info.Server))
	assert.Equal(t, "7.4.0", string(info.Version))
	assert.Equal(t, int64(3), info.Proto)
	assert.Equal(t, int64(7), info.ID)
	assert.Equal(t, "standalone", string(info.Mode))
	assert.Equal(t, "master", string(info.Role))
	assert.Empty(t, info.Modules)

	require.NoError(t, resp.Free(info, arena))
}

func TestHello3SkipsAuthWhenNoCredentials(t *testing.T) {
	s, server, _ := newTestSession(t)
	arena := resp.NewArena()
	go func() {
		buf := make([]byte, 512)
		n, _ := server.Read(buf)
		written := string(buf[:n])
		assert.NotContains(t, written, "AUTH")
		server.Write([]byte(
			"%7\r\n" +
				"$6\r\nserver\r\n$5\r\nredis\r\n" +
				"$7\r\nversion\r\n$5\r\n7.4.0\r\n" +
				"$5\r\nproto\r\n:3\r\n" +
				"$2\r\nid\r\n:1\r\n" +
				"$4\r\nmode\r\n$10\r\nstandalone\r\n" +
				"$4\r\nrole\r\n$6\r\nmaster\r\n" +
				"$7\r\nmodules\r\n*0\r\n"))
	}()

	_, err := s.Hello3("", "", arena)
	require.NoError(t, err)
}
