// Package serve exposes assistants over JSON-RPC 2.0 on stdio, so editors
// and other programs can drive a conversation the way a terminal user would.
// It implements a minimal method surface:
//   - initialize
//   - session/new
//   - session/prompt (emits session/update notifications with
//     agent_message_chunk and tool_output updates)
//
// Messages are newline-delimited JSON objects rather than Content-Length
// framed. Nothing but JSON-RPC ever goes to stdout; diagnostics go to the
// trace file and stderr.
package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parleyhq/parley/assistant"
)

// Factory builds a fresh assistant for each new session. Every session gets
// its own thread; the client, tools, and instructions behind them are shared
// however the host wired the factory.
type Factory func() (*assistant.Assistant, error)

// Run serves JSON-RPC until EOF on in. Sessions live in memory for the
// lifetime of the process.
func Run(ctx context.Context, factory Factory, in *bufio.Reader, out *bufio.Writer, traceEnabled bool) error {
	trace := func(msg string) {}
	if traceEnabled {
		traceFile, err := os.OpenFile("parley.trace", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			slog.Warn("could not open trace file, tracing disabled", "error", err)
		} else {
			defer traceFile.Close()
			trace = func(msg string) {
				fmt.Fprintf(traceFile, "[%s] %s\n", time.Now().Format("15:04:05.000"), msg)
			}
		}
	}

	trace("Run: starting server")
	s := &server{
		factory:  factory,
		sessions: make(map[string]*assistant.Assistant),
		in:       in,
		out:      out,
		trace:    trace,
	}

	for {
		payload, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				trace("Run: EOF received, exiting")
				return nil
			}
			trace(fmt.Sprintf("Run: read error: %v", err))
			return fmt.Errorf("serve: read error: %w", err)
		}
		if len(payload) == 0 {
			continue
		}

		trace(fmt.Sprintf("Run: received payload: %s", payload))
		var req jsonrpcRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			trace(fmt.Sprintf("Run: JSON parse error: %v", err))
			_ = s.writeResponseError(nil, -32700, "Parse error", nil)
			continue
		}

		trace(fmt.Sprintf("Run: dispatching method %s with id %v", req.Method, req.ID))
		switch req.Method {
		case "initialize":
			s.handleInitialize(&req)
		case "session/new":
			s.handleSessionNew(&req)
		case "session/prompt":
			s.handleSessionPrompt(ctx, &req)
		default:
			_ = s.writeResponseError(req.ID, -32601, "Method not found", nil)
		}
	}
}

// ---- JSON-RPC message types ----

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ---- server ----

type server struct {
	factory      Factory
	sessions     map[string]*assistant.Assistant
	sessionsLock sync.Mutex

	in        *bufio.Reader
	out       *bufio.Writer
	writeLock sync.Mutex
	trace     func(string)
}

// readMessage reads one newline-delimited JSON payload.
func (s *server) readMessage() ([]byte, error) {
	line, err := s.in.ReadString('\n')
	if err != nil {
		// A final unterminated line is still a message.
		if err == io.EOF && strings.TrimSpace(line) != "" {
			return []byte(strings.TrimSpace(line)), nil
		}
		return nil, err
	}
	return []byte(strings.TrimSpace(line)), nil
}

// writeFramedJSON serializes one JSON-RPC message and terminates it with a
// newline so the client knows the message is complete.
func (s *server) writeFramedJSON(obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to serialize JSON-RPC message: %w", err)
	}
	s.trace(fmt.Sprintf("writeFramedJSON: %s", data))

	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	if _, err := s.out.Write(data); err != nil {
		return err
	}
	if _, err := s.out.WriteString("\n"); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *server) writeResponseOK(id any, result json.RawMessage) error {
	return s.writeFramedJSON(jsonrpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *server) writeResponseError(id any, code int, msg string, data any) error {
	s.trace(fmt.Sprintf("writeResponseError: code=%d msg=%s", code, msg))
	return s.writeFramedJSON(jsonrpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &jsonrpcError{
			Code:    code,
			Message: msg,
			Data:    data,
		},
	})
}

// writeNotification sends a JSON-RPC notification (a request without an id).
func (s *server) writeNotification(method string, params any) error {
	return s.writeFramedJSON(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

// ---- Handlers ----

// handleInitialize reports the protocol version and capabilities. Sessions
// are not persisted, so loadSession is off.
func (s *server) handleInitialize(req *jsonrpcRequest) {
	s.trace("handleInitialize: starting")
	resp := map[string]any{
		"protocolVersion": 1,
		"agentCapabilities": map[string]any{
			"loadSession": false,
			"promptCapabilities": map[string]bool{
				"audio":           false,
				"embeddedContext": false,
				"image":           false,
			},
		},
		"authMethods": []any{},
	}
	respBytes, err := json.Marshal(resp)
	if err != nil {
		s.trace(fmt.Sprintf("handleInitialize: marshal error: %v", err))
		return
	}
	_ = s.writeResponseOK(req.ID, respBytes)
}

// handleSessionNew builds a fresh assistant and registers it under a new id.
func (s *server) handleSessionNew(req *jsonrpcRequest) {
	s.trace("handleSessionNew: starting")

	a, err := s.factory()
	if err != nil {
		s.trace(fmt.Sprintf("handleSessionNew: factory failed: %v", err))
		_ = s.writeResponseError(req.ID, -32603, "Internal error", fmt.Sprintf("failed to create session: %v", err))
		return
	}

	sid := "sess_" + uuid.NewString()
	s.sessionsLock.Lock()
	s.sessions[sid] = a
	s.sessionsLock.Unlock()
	s.trace(fmt.Sprintf("handleSessionNew: created session %s", sid))

	respBytes, err := json.Marshal(map[string]any{"sessionId": sid})
	if err != nil {
		s.trace(fmt.Sprintf("handleSessionNew: marshal error: %v", err))
		return
	}
	_ = s.writeResponseOK(req.ID, respBytes)
}

// contentBlock is a block in a session/prompt request. Text blocks carry the
// user's words; resource_link blocks reference files or URLs to include as
// context.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	// resource_link fields
	URI         string `json:"uri,omitempty"`
	Name        string `json:"name,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Size        *int64 `json:"size,omitempty"`
}

// handleSessionPrompt runs one assistant turn and streams every appended
// message back as a session/update notification before answering with
// stopReason end_turn.
func (s *server) handleSessionPrompt(ctx context.Context, req *jsonrpcRequest) {
	s.trace("handleSessionPrompt: starting")
	type promptParams struct {
		SessionID string         `json:"sessionId"`
		Prompt    []contentBlock `json:"prompt"`
	}

	var p promptParams
	b, err := json.Marshal(req.Params)
	if err != nil {
		_ = s.writeResponseError(req.ID, -32603, "Internal error", fmt.Sprintf("marshal error: %v", err))
		return
	}
	if err := json.Unmarshal(b, &p); err != nil {
		_ = s.writeResponseError(req.ID, -32603, "Internal error", fmt.Sprintf("unmarshal error: %v", err))
		return
	}

	s.sessionsLock.Lock()
	a, ok := s.sessions[p.SessionID]
	s.sessionsLock.Unlock()
	if !ok {
		s.trace("handleSessionPrompt: unknown sessionId")
		_ = s.writeResponseError(req.ID, -32602, "Invalid params", "unknown sessionId")
		return
	}

	userText := extractUserText(p.Prompt)
	s.trace(fmt.Sprintf("handleSessionPrompt: extracted user text: %s", userText))

	before := len(a.Messages())
	messages, err := a.AddMessageAndRun(ctx, userText, true)
	if err != nil {
		s.trace(fmt.Sprintf("handleSessionPrompt: run failed: %v", err))
		_ = s.writeResponseError(req.ID, -32603, "Internal error", fmt.Sprintf("error processing user input: %v", err))
		return
	}

	// Stream the turn's messages, skipping the user message that opened it.
	for _, msg := range messages[before+1:] {
		if toolName, isTool := strings.CutSuffix(msg.Role, "_output"); isTool {
			_ = s.sendToolOutput(p.SessionID, toolName, msg.Text)
			continue
		}
		_ = s.sendAgentMessageChunk(p.SessionID, msg.Text)
	}

	respBytes, err := json.Marshal(map[string]any{"stopReason": "end_turn"})
	if err != nil {
		s.trace(fmt.Sprintf("handleSessionPrompt: marshal error: %v", err))
		return
	}
	_ = s.writeResponseOK(req.ID, respBytes)
}

// sendToolOutput emits a session/update notification carrying one tool's
// output.
func (s *server) sendToolOutput(sessionID, toolName, output string) error {
	s.trace(fmt.Sprintf("sendToolOutput: session=%s tool=%s", sessionID, toolName))
	return s.writeNotification("session/update", map[string]any{
		"sessionId": sessionID,
		"update": map[string]any{
			"sessionUpdate": "tool_output",
			"toolOutput": map[string]any{
				"name":   toolName,
				"output": output,
			},
		},
	})
}

// sendAgentMessageChunk emits a session/update notification with assistant
// text.
func (s *server) sendAgentMessageChunk(sessionID, text string) error {
	s.trace(fmt.Sprintf("sendAgentMessageChunk: session=%s", sessionID))
	return s.writeNotification("session/update", map[string]any{
		"sessionId": sessionID,
		"update": map[string]any{
			"sessionUpdate": "agent_message_chunk",
			"content": map[string]any{
				"type": "text",
				"text": text,
			},
		},
	})
}

// readFileFromURI reads file contents from a file:// URI.
func readFileFromURI(uri string) (string, error) {
	parsedURL, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid URI: %v", err)
	}
	if parsedURL.Scheme != "file" {
		return "", fmt.Errorf("unsupported URI scheme: %s", parsedURL.Scheme)
	}

	content, err := os.ReadFile(parsedURL.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}
	return string(content), nil
}

// extractUserText flattens content blocks into the single user message the
// assistant sees. Text blocks pass through; resource_link blocks become an
// annotated context section, inlining file:// contents up to a size cap.
func extractUserText(blocks []contentBlock) string {
	var parts []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if strings.TrimSpace(b.Text) != "" {
				parts = append(parts, b.Text)
			}
		case "resource_link":
			resourceInfo := fmt.Sprintf("=== Resource: %s ===\n", b.Name)
			if b.Title != "" {
				resourceInfo += fmt.Sprintf("Title: %s\n", b.Title)
			}
			if b.Description != "" {
				resourceInfo += fmt.Sprintf("Description: %s\n", b.Description)
			}
			resourceInfo += fmt.Sprintf("URI: %s\n", b.URI)
			if b.MimeType != "" {
				resourceInfo += fmt.Sprintf("Type: %s\n", b.MimeType)
			}
			if b.Size != nil {
				resourceInfo += fmt.Sprintf("Size: %d bytes\n", *b.Size)
			}

			if strings.HasPrefix(b.URI, "file://") {
				content, err := readFileFromURI(b.URI)
				if err != nil {
					resourceInfo += fmt.Sprintf("\n[Error reading file: %v]\n", err)
				} else {
					const maxContentSize = 50000
					if len(content) > maxContentSize {
						content = content[:maxContentSize] + "\n\n[... truncated to 50KB ...]"
					}
					resourceInfo += fmt.Sprintf("\n--- File Contents ---\n%s\n--- End of File ---\n", content)
				}
			} else {
				resourceInfo += "\n[External resource - content not available]\n"
			}

			resourceInfo += "=== End Resource ===\n"
			parts = append(parts, resourceInfo)
		}
	}
	return strings.Join(parts, "\n")
}
