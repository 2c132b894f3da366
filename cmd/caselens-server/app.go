package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/caselens/caselens/internal/reports"
	"github.com/caselens/caselens/internal/storage/sqlitestore"
	"github.com/caselens/caselens/internal/tools"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
)

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeNotFound       = -32001
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type server struct {
	registry *tools.Registry
	snaps    *tools.Snapshots
	reports  *reports.Assembler
	log      *slog.Logger
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (s *server) handle(ctx context.Context, req rpcRequest) rpcResponse {
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}

	result, err := s.dispatch(ctx, req)
	if err != nil {
		resp.Error = toRPCError(err)
		s.log.Warn("rpc failed", "method", req.Method, "code", resp.Error.Code, "err", err)
		return resp
	}
	resp.Result = result
	return resp
}

func (s *server) dispatch(ctx context.Context, req rpcRequest) (any, error) {
	switch req.Method {
	case "tools/list":
		return map[string]any{"tools": s.registry.Tools()}, nil

	case "tools/call":
		var params struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		payload, err := s.registry.Dispatch(ctx, params.Name, params.Arguments)
		if err != nil {
			return nil, err
		}
		return map[string]any{"content": []textContent{{Type: "text", Text: payload}}}, nil

	case "resources/list":
		return map[string]any{"resources": s.registry.Resources()}, nil

	case "resources/read":
		var params struct {
			URI string `json:"uri"`
		}
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		body, err := s.registry.ReadResource(ctx, params.URI, s.snaps)
		if err != nil {
			return nil, err
		}
		return map[string]any{"contents": []map[string]string{{
			"uri":       params.URI,
			"mime_type": "application/json",
			"text":      body,
		}}}, nil

	case "prompts/list":
		return map[string]any{"prompts": s.reports.Prompts()}, nil

	case "prompts/get":
		var params struct {
			Name      string            `json:"name"`
			Arguments map[string]string `json:"arguments"`
		}
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		rendered, err := s.reports.Render(ctx, params.Name, params.Arguments)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"description": rendered.Description,
			"messages": []map[string]any{{
				"role":    "user",
				"content": textContent{Type: "text", Text: rendered.Text},
			}},
		}, nil
	}

	return nil, errors.Wrap(errUnknownMethod, req.Method)
}

var errUnknownMethod = errors.New("unknown method")

func unmarshalParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(tools.ErrInvalidArgs, err.Error())
	}
	return nil
}

func toRPCError(err error) *rpcError {
	switch {
	case errors.Is(err, errUnknownMethod):
		return &rpcError{Code: codeMethodNotFound, Message: err.Error()}
	case errors.Is(err, tools.ErrInvalidArgs):
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	case errors.Is(err, tools.ErrToolNotFound),
		errors.Is(err, tools.ErrResourceNotFound),
		errors.Is(err, reports.ErrPromptNotFound),
		errors.Is(err, sqlitestore.ErrNotFound):
		return &rpcError{Code: codeNotFound, Message: err.Error()}
	}
	return &rpcError{Code: codeServerError, Message: err.Error()}
}

// runStdio serves newline-delimited JSON-RPC over the given streams until
// EOF or context cancellation.
func (s *server) runStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(out)

	s.log.Info("stdio transport ready")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			if err := enc.Encode(rpcResponse{
				JSONRPC: "2.0",
				Error:   &rpcError{Code: codeParseError, Message: err.Error()},
			}); err != nil {
				return errors.Wrap(err, "write response")
			}
			continue
		}
		if err := enc.Encode(s.handle(ctx, req)); err != nil {
			return errors.Wrap(err, "write response")
		}
	}
	return scanner.Err()
}

// runHTTP serves JSON-RPC over POST /rpc, shutting down gracefully when the
// context is cancelled.
func (s *server) runHTTP(ctx context.Context, lis net.Listener) error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/rpc", func(w http.ResponseWriter, req *http.Request) {
		var rpc rpcRequest
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewDecoder(req.Body).Decode(&rpc); err != nil {
			_ = json.NewEncoder(w).Encode(rpcResponse{
				JSONRPC: "2.0",
				Error:   &rpcError{Code: codeParseError, Message: err.Error()},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(s.handle(req.Context(), rpc))
	})

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("HTTP transport listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
