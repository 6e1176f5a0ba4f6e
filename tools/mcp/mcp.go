// Package mcp adapts tools served over the Model Context Protocol so the
// assistant can invoke them like built-ins. Each configured server runs as a
// stdio subprocess; its tools are discovered at connect time and exposed
// under qualified "<server>:<tool>" names.
package mcp

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"

	"github.com/parleyhq/parley/errors"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client manages the connection to a single MCP server subprocess.
type Client struct {
	Name  string
	cmd   *exec.Cmd
	conn  *mcpsdk.ClientSession
	tools map[string]*Tool // keyed by the server's short tool name
}

// Connect starts the MCP server subprocess, establishes the session, and
// discovers the tools it provides.
func Connect(ctx context.Context, name, command string, args []string) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr
	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "parley", Version: "v1.0.0"}, nil)
	conn, err := mcpClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		cmd.Process.Kill()
		return nil, errors.Wrapf(err, "failed to connect to MCP server '%s'", name)
	}
	client := &Client{
		Name:  name,
		cmd:   cmd,
		conn:  conn,
		tools: make(map[string]*Tool),
	}
	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			cmd.Process.Kill()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server '%s'", name)
		}

		for _, t := range list.Tools {
			client.tools[t.Name] = &Tool{
				serverName:  name,
				toolName:    t.Name,
				description: t.Description,
				client:      client,
			}
		}

		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}

	return client, nil
}

// Tools returns every tool discovered on this server, keyed by short name.
func (c *Client) Tools() map[string]*Tool {
	return c.tools
}

// Stop terminates the MCP server subprocess.
func (c *Client) Stop() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}

// Tool is one tool served by a connected MCP server. It satisfies the
// tools.Tool interface without importing that package.
type Tool struct {
	serverName  string
	toolName    string
	description string
	client      *Client
}

// Name returns the qualified "<server>:<tool>" name. The tag-based
// invocation protocol has no constraint on colons, and qualification keeps
// tools from different servers collision-free.
func (t *Tool) Name() string {
	return t.serverName + ":" + t.toolName
}

// Description returns the tool's description as provided by the server.
func (t *Tool) Description() string {
	return t.description
}

// Execute forwards the invocation to the MCP server. The invocation input is
// decoded as a JSON object of arguments; plain text is passed through as
// {"input": text} so loosely-prompted models still reach the tool.
func (t *Tool) Execute(ctx context.Context, input string) (string, error) {
	args := map[string]interface{}{}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		args = map[string]interface{}{"input": input}
	}

	result, err := t.client.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.toolName,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call tool '%s'", t.Name())
	}
	op := ""
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			op += tc.Text
		}
	}
	return op, nil
}
