// Package rpc implements the JSON-RPC 2.0 transport the editor extension
// speaks: newline-delimited request and response objects over a byte
// stream (stdin/stdout when served from the CLI).
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

const Version = "2.0"

// Request is a JSON-RPC 2.0 request or notification (no id).
type Request struct {
	JSONRPC string           `json:"jsonrpc"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params,omitempty"`
	ID      *json.RawMessage `json:"id,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	Result  any              `json:"result,omitempty"`
	Error   *Error           `json:"error,omitempty"`
	ID      *json.RawMessage `json:"id,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// The reserved JSON-RPC 2.0 error codes.
func ErrParse() *Error          { return &Error{Code: -32700, Message: "Parse error"} }
func ErrInvalidRequest() *Error { return &Error{Code: -32600, Message: "Invalid Request"} }
func ErrMethodNotFound() *Error { return &Error{Code: -32601, Message: "Method not found"} }
func ErrInvalidParams() *Error  { return &Error{Code: -32602, Message: "Invalid params"} }

// ErrInternal wraps a handler failure; the cause travels in Data so the
// client can show it.
func ErrInternal(cause error) *Error {
	e := &Error{Code: -32603, Message: "Internal error"}
	if cause != nil {
		e.Data = cause.Error()
	}
	return e
}

// Handler processes one decoded request into a response.
type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

// Server reads newline-delimited JSON-RPC requests and writes responses.
// Responses are serialized by an internal mutex so handlers may be
// invoked concurrently in the future without interleaving output.
type Server struct {
	handler Handler
	in      io.Reader
	out     io.Writer
	wmu     sync.Mutex
}

// NewServer wires a handler to a byte stream pair.
func NewServer(handler Handler, in io.Reader, out io.Writer) *Server {
	return &Server{handler: handler, in: in, out: out}
}

// Serve processes requests until the input stream ends or ctx is
// cancelled. Notifications (requests without an id) produce no response.
func (s *Server) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.write(Response{JSONRPC: Version, Error: ErrParse()})
			continue
		}
		if req.JSONRPC != Version || req.Method == "" {
			s.write(Response{JSONRPC: Version, Error: ErrInvalidRequest(), ID: req.ID})
			continue
		}

		resp := s.handler.Handle(ctx, req)
		resp.JSONRPC = Version
		resp.ID = req.ID
		if req.ID != nil {
			s.write(resp)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

func (s *Server) write(resp Response) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	data, err := json.Marshal(resp)
	if err != nil {
		// The response contained an unmarshalable result; degrade to an
		// internal error rather than dropping the reply.
		data, _ = json.Marshal(Response{JSONRPC: Version, Error: ErrInternal(err), ID: resp.ID})
	}
	fmt.Fprintf(s.out, "%s\n", data)
}

// ResultResponse builds a success response shell (id is filled by Serve).
// A nil result is carried as an explicit JSON null so a success response
// never omits the result member.
func ResultResponse(result any) Response {
	if result == nil {
		result = json.RawMessage("null")
	}
	return Response{JSONRPC: Version, Result: result}
}

// ErrorResponse builds an error response shell.
func ErrorResponse(err *Error) Response {
	return Response{JSONRPC: Version, Error: err}
}
