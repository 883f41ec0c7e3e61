// Package ipc is the local control channel of the daemon: one JSON
// request and one JSON response per connection over a unix socket.
package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

const DefaultSocketPath = "/tmp/aurond.sock"

type Request struct {
	Cmd  string   `json:"cmd"`
	Args []string `json:"args,omitempty"`
}

type Response struct {
	OK    bool           `json:"ok"`
	Error string         `json:"error,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Ok builds a success response with optional payload.
func Ok(data map[string]any) Response {
	return Response{OK: true, Data: data}
}

// Fail builds an error response.
func Fail(format string, args ...any) Response {
	return Response{OK: false, Error: fmt.Sprintf(format, args...)}
}

// HandlerFunc processes one request. It runs on the connection goroutine
// and should return quickly.
type HandlerFunc func(Request) Response

type Server struct {
	ln net.Listener
}

// Serve removes a stale socket, listens and accepts in the background.
func Serve(path string, handler HandlerFunc) (*Server, error) {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handleConn(conn, handler)
		}
	}()

	return &Server{ln: ln}, nil
}

func (s *Server) Close() error {
	return s.ln.Close()
}

func handleConn(conn net.Conn, handler HandlerFunc) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		json.NewEncoder(conn).Encode(Fail("bad request: %v", err))
		return
	}
	json.NewEncoder(conn).Encode(handler(req))
}

// Send performs one request/response round trip.
func Send(path string, req Request) (Response, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return resp, nil
}
