package ipc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "aurond.sock")

	srv, err := Serve(sock, func(req Request) Response {
		switch req.Cmd {
		case "status":
			return Ok(map[string]any{"voice": true})
		case "say":
			require.Len(t, req.Args, 1)
			return Ok(map[string]any{"reply": "echo: " + req.Args[0]})
		default:
			return Fail("unknown command %q", req.Cmd)
		}
	})
	require.NoError(t, err)
	defer srv.Close()

	resp, err := Send(sock, Request{Cmd: "status"})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, true, resp.Data["voice"])

	resp, err = Send(sock, Request{Cmd: "say", Args: []string{"hello"}})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "echo: hello", resp.Data["reply"])

	resp, err = Send(sock, Request{Cmd: "dance"})
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "dance")
}

func TestSendNoServer(t *testing.T) {
	_, err := Send(filepath.Join(t.TempDir(), "nope.sock"), Request{Cmd: "status"})
	assert.Error(t, err)
}

func TestServeReplacesStaleSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "aurond.sock")

	srv, err := Serve(sock, func(Request) Response { return Ok(nil) })
	require.NoError(t, err)
	srv.Close()

	// a second Serve on the same path must succeed
	srv2, err := Serve(sock, func(Request) Response { return Ok(nil) })
	require.NoError(t, err)
	defer srv2.Close()

	resp, err := Send(sock, Request{Cmd: "ping"})
	require.NoError(t, err)
	assert.True(t, resp.OK)
}
