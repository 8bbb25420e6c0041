// Package gateway supervises a stdio MCP server subprocess and relays
// line-delimited JSON-RPC messages to it. One subprocess is spawned per
// relay lifetime; requests are strictly serialized so responses always
// match the request in flight.
package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/orrery-labs/orrery/internal/infra/eventbus"
)

// Standard JSON-RPC error codes.
const (
	jsonRPCParseError    = -32700
	jsonRPCInternalError = -32603
)

// DefaultCallTimeout bounds a single relayed request.
const DefaultCallTimeout = 10 * time.Second

// protocolVersion is advertised during the initialize handshake.
const protocolVersion = "2025-06-18"

// maxLineSize caps a single stdout line from the subprocess (4MB).
const maxLineSize = 4 << 20

var (
	ErrNotRunning = errors.New("gateway: subprocess not running")
	ErrClosed     = errors.New("gateway: relay closed")
)

// Event topics published on the bus.
const (
	TopicCallRelayed = "gateway.call.relayed"
	TopicProcExited  = "gateway.proc.exited"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse builds a JSON-RPC error response for the given request id.
func ErrorResponse(id json.RawMessage, code int, message string) json.RawMessage {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
	out, _ := json.Marshal(resp) //nolint:errcheck
	return out
}

// Options configures a Relay.
type Options struct {
	// CallTimeout bounds each relayed request. Zero means DefaultCallTimeout.
	CallTimeout time.Duration
	// Bus receives relay events. Nil disables publishing.
	Bus eventbus.EventBus
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Relay owns a stdio MCP server subprocess.
type Relay struct {
	command []string
	timeout time.Duration
	bus     eventbus.EventBus
	log     *slog.Logger

	cmd       *exec.Cmd
	stdin     io.WriteCloser
	lines     chan string
	done      chan struct{}
	startedAt time.Time

	// serializes writes to stdin and the matching stdout read
	mu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}

	serverInfo json.RawMessage
}

// Start spawns the subprocess and performs the MCP initialize handshake.
// The subprocess lives until Close; it is not restarted on exit.
func Start(ctx context.Context, command []string, opts Options) (*Relay, error) {
	if len(command) == 0 {
		return nil, errors.New("gateway: empty command")
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("gateway: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("gateway: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("gateway: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("gateway: start %q: %w", command[0], err)
	}

	r := &Relay{
		command:   command,
		timeout:   opts.CallTimeout,
		bus:       opts.Bus,
		log:       opts.Logger.With("component", "gateway", "pid", cmd.Process.Pid),
		cmd:       cmd,
		stdin:     stdin,
		lines:     make(chan string, 8),
		done:      make(chan struct{}),
		closed:    make(chan struct{}),
		startedAt: time.Now(),
	}

	go r.pumpStdout(stdout)
	go r.pumpStderr(stderr)
	go r.reap()

	if err := r.initialize(ctx); err != nil {
		r.Close()
		return nil, err
	}

	r.log.Info("subprocess started", "command", command)
	return r, nil
}

// Call relays one raw JSON-RPC request line and returns the response line.
// Transport failures and timeouts come back as JSON-RPC error responses
// rather than Go errors, so HTTP callers always get a well-formed body.
func (r *Relay) Call(ctx context.Context, request json.RawMessage) json.RawMessage {
	var req JSONRPCRequest
	if err := json.Unmarshal(request, &req); err != nil {
		return ErrorResponse(nil, jsonRPCParseError, "invalid JSON-RPC request: "+err.Error())
	}

	resp, err := r.roundTrip(ctx, request, req.ID)
	if err != nil {
		r.log.Error("relay failed", "method", req.Method, "error", err)
		return ErrorResponse(req.ID, jsonRPCInternalError, err.Error())
	}

	r.publish(TopicCallRelayed, map[string]any{"method": req.Method})
	return resp
}

// notification sends a request that expects no response.
func (r *Relay) notification(req JSONRPCRequest) error {
	line, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("gateway: marshal notification: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeLine(line)
}

// roundTrip writes one line and reads the matching response. Lines that
// carry a method field are server-initiated traffic and are skipped, as
// are stale replies left queued by an earlier timed-out request.
func (r *Relay) roundTrip(ctx context.Context, request json.RawMessage, id json.RawMessage) (json.RawMessage, error) {
	select {
	case <-r.closed:
		return nil, ErrClosed
	case <-r.done:
		return nil, ErrNotRunning
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writeLine(request); err != nil {
		return nil, err
	}

	// notifications have no id and expect no response
	if len(id) == 0 || string(id) == "null" {
		return json.RawMessage(`{"jsonrpc":"2.0","result":null}`), nil
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	for {
		select {
		case line, ok := <-r.lines:
			if !ok {
				return nil, ErrNotRunning
			}
			var msg struct {
				Method string          `json:"method"`
				ID     json.RawMessage `json:"id"`
			}
			if err := json.Unmarshal([]byte(line), &msg); err == nil {
				if msg.Method != "" {
					r.log.Debug("skipping server-initiated message", "method", msg.Method)
					continue
				}
				if string(msg.ID) != string(id) {
					r.log.Debug("discarding stale response", "id", string(msg.ID))
					continue
				}
			}
			return json.RawMessage(line), nil
		case <-timer.C:
			return nil, fmt.Errorf("gateway: no response within %s", r.timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *Relay) writeLine(line []byte) error {
	if _, err := r.stdin.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("gateway: write to subprocess: %w", err)
	}
	return nil
}

// initialize performs the MCP handshake: an initialize request followed
// by the notifications/initialized notification.
func (r *Relay) initialize(ctx context.Context) error {
	params, _ := json.Marshal(map[string]any{ //nolint:errcheck
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "orrery-gateway",
			"version": "1.0",
		},
	})
	req, _ := json.Marshal(JSONRPCRequest{ //nolint:errcheck
		JSONRPC: "2.0",
		ID:      json.RawMessage(`0`),
		Method:  "initialize",
		Params:  params,
	})

	raw, err := r.roundTrip(ctx, req, json.RawMessage(`0`))
	if err != nil {
		return fmt.Errorf("gateway: initialize: %w", err)
	}

	var resp JSONRPCResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("gateway: initialize: decode response: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("gateway: initialize: server error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	r.serverInfo = resp.Result

	return r.notification(JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	})
}

// Status describes the supervised subprocess.
type Status struct {
	Running    bool            `json:"running"`
	PID        int             `json:"pid"`
	Command    []string        `json:"command"`
	UptimeSec  int64           `json:"uptime_sec"`
	ServerInfo json.RawMessage `json:"server_info,omitempty"`
}

func (r *Relay) Status() Status {
	running := true
	select {
	case <-r.done:
		running = false
	case <-r.closed:
		running = false
	default:
	}
	return Status{
		Running:    running,
		PID:        r.cmd.Process.Pid,
		Command:    r.command,
		UptimeSec:  int64(time.Since(r.startedAt).Seconds()),
		ServerInfo: r.serverInfo,
	}
}

// Close stops the subprocess: SIGTERM first, SIGKILL after a grace period.
func (r *Relay) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.closed)
		r.stdin.Close() //nolint:errcheck

		if sigErr := r.cmd.Process.Signal(syscall.SIGTERM); sigErr != nil {
			r.log.Debug("sigterm failed", "error", sigErr)
		}

		select {
		case <-r.done:
		case <-time.After(3 * time.Second):
			r.log.Warn("subprocess ignored SIGTERM, killing")
			err = r.cmd.Process.Kill()
			<-r.done
		}
		r.log.Info("subprocess stopped")
	})
	return err
}

func (r *Relay) pumpStdout(stdout io.Reader) {
	defer close(r.lines)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		select {
		case r.lines <- line:
		case <-r.closed:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		r.log.Debug("stdout closed", "error", err)
	}
}

func (r *Relay) pumpStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		r.log.Warn("subprocess stderr", "line", scanner.Text())
	}
}

func (r *Relay) reap() {
	err := r.cmd.Wait()
	close(r.done)

	state := "exited"
	if err != nil {
		state = err.Error()
	}
	r.log.Info("subprocess exited", "state", state)
	r.publish(TopicProcExited, map[string]any{"state": state})
}

func (r *Relay) publish(topic string, payload map[string]any) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(topic, payload)
}
