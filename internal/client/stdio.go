package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// StdioClient spawns a stdio MCP server as a subprocess and talks to it
// through the SDK's command transport.
type StdioClient struct {
	session *mcpsdk.ClientSession
}

// ConnectStdio starts the command and completes the MCP handshake.
// Close shuts the subprocess down.
func ConnectStdio(ctx context.Context, command []string) (*StdioClient, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("stdio client: empty command")
	}

	cmd := exec.Command(command[0], command[1:]...)
	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "orrery-cli"}, nil)

	session, err := mcpClient.Connect(ctx, &mcpsdk.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, fmt.Errorf("stdio client: connect %q: %w", command[0], err)
	}
	return &StdioClient{session: session}, nil
}

// ListTools fetches the server's tool catalog.
func (c *StdioClient) ListTools(ctx context.Context) ([]ToolInfo, error) {
	res, err := c.session.ListTools(ctx, &mcpsdk.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("stdio client: tools/list: %w", err)
	}

	out := make([]ToolInfo, 0, len(res.Tools))
	for _, t := range res.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("stdio client: tool %q: marshal schema: %w", t.Name, err)
		}
		out = append(out, ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return out, nil
}

// CallTool invokes one tool and extracts the first text content block.
func (c *StdioClient) CallTool(ctx context.Context, name string, args json.RawMessage) (ToolResult, error) {
	var arguments map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &arguments); err != nil {
			return ToolResult{}, fmt.Errorf("stdio client: tool %q: arguments must be a json object: %w", name, err)
		}
	}

	res, err := c.session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: arguments,
	})
	if err != nil {
		return ToolResult{}, fmt.Errorf("stdio client: tools/call %q: %w", name, err)
	}

	out := ToolResult{IsError: res.IsError}
	for _, content := range res.Content {
		if tc, ok := content.(*mcpsdk.TextContent); ok {
			out.Text = tc.Text
			break
		}
	}
	return out, nil
}

// Close terminates the session and the subprocess.
func (c *StdioClient) Close() error {
	return c.session.Close()
}
