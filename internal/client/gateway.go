package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/orrery-labs/orrery/internal/gateway"
)

// GatewayClient talks to the orrery gateway over its raw JSON-RPC
// relay endpoint (POST /call).
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
	nextID     atomic.Int64
}

// NewGatewayClient creates a GatewayClient with a 30s default timeout.
func NewGatewayClient(baseURL string) *GatewayClient {
	c := &GatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	c.nextID.Store(1)
	return c
}

// GatewayStatus is the body of the gateway's GET / endpoint.
type GatewayStatus struct {
	Service    string         `json:"service"`
	Version    string         `json:"version"`
	Subprocess gateway.Status `json:"subprocess"`
}

// Status fetches the gateway's status page.
func (c *GatewayClient) Status(ctx context.Context) (*GatewayStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("gateway status: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway status: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway status: status %d", resp.StatusCode)
	}

	var status GatewayStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("gateway status: decode response: %w", err)
	}
	return &status, nil
}

// RawCall posts one JSON-RPC request body to /call and returns the
// response body verbatim.
func (c *GatewayClient) RawCall(ctx context.Context, request json.RawMessage) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(request))
	if err != nil {
		return nil, fmt.Errorf("gateway call: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway call: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway call: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway call: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// ListTools relays tools/list through the gateway.
func (c *GatewayClient) ListTools(ctx context.Context) ([]ToolInfo, error) {
	result, err := c.roundTrip(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := json.Unmarshal(result, &decoded); err != nil {
		return nil, fmt.Errorf("gateway tools/list: decode result: %w", err)
	}
	return decoded.Tools, nil
}

// CallTool relays tools/call through the gateway and extracts the first
// text content block.
func (c *GatewayClient) CallTool(ctx context.Context, name string, args json.RawMessage) (ToolResult, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	params, err := json.Marshal(map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return ToolResult{}, fmt.Errorf("gateway tools/call: marshal params: %w", err)
	}

	result, err := c.roundTrip(ctx, "tools/call", params)
	if err != nil {
		return ToolResult{}, err
	}

	var decoded struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(result, &decoded); err != nil {
		return ToolResult{}, fmt.Errorf("gateway tools/call: decode result: %w", err)
	}

	out := ToolResult{IsError: decoded.IsError}
	if len(decoded.Content) > 0 {
		out.Text = decoded.Content[0].Text
	}
	return out, nil
}

func (c *GatewayClient) roundTrip(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	request, err := json.Marshal(gateway.JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      json.RawMessage(fmt.Sprintf("%d", id)),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway %s: marshal request: %w", method, err)
	}

	raw, err := c.RawCall(ctx, request)
	if err != nil {
		return nil, err
	}

	var resp gateway.JSONRPCResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("gateway %s: decode response: %w", method, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("gateway %s: server error %d: %s", method, resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}
