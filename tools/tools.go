package tools

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/parleyhq/parley/config"
	"github.com/parleyhq/parley/tools/mcp"
)

// Tool is a capability the assistant can invoke from a model completion.
// Execute receives the marker body verbatim; how a tool interprets that
// string is its own concern and should be explained in its description.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, input string) (string, error)
}

// NameAndDescription renders the one-line form used in the tools section of
// the prompt.
func NameAndDescription(t Tool) string {
	return fmt.Sprintf("%s: %s", t.Name(), t.Description())
}

// ValidateName rejects tool names that cannot be embedded in a
// <name>...</name> marker. Names must be non-empty and free of markup and
// whitespace characters.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if strings.ContainsAny(name, "<>&/") || strings.ContainsAny(name, " \t\n\r") {
		return fmt.Errorf("tool name '%s' contains characters that would break invocation markers", name)
	}
	return nil
}

// Registry holds every tool known to the host, keyed by name. Built-in tools
// are registered at construction; MCP-backed tools are registered when their
// servers are connected via ConnectMCP.
type Registry struct {
	tools      map[string]Tool
	mcpClients map[string]*mcp.Client
}

func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		tools:      make(map[string]Tool),
		mcpClients: make(map[string]*mcp.Client),
	}

	r.Register(&ReadFileTool{fsAccess: &cfg.FilesystemAccess})
	r.Register(&WriteFileTool{fsAccess: &cfg.FilesystemAccess})
	r.Register(&RunCommandTool{allowedCommands: cfg.AllowedCommands})

	return r
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// ConnectMCP starts each configured MCP server and registers its tools under
// their qualified "<server>:<tool>" names.
func (r *Registry) ConnectMCP(ctx context.Context, servers []config.MCPServer) error {
	for _, s := range servers {
		client, err := mcp.Connect(ctx, s.Name, s.Command, s.Args)
		if err != nil {
			return err
		}
		r.mcpClients[s.Name] = client
		for _, t := range client.Tools() {
			r.Register(t)
		}
	}
	return nil
}

// Close stops every connected MCP server. The first stop failure is
// returned; remaining servers are still stopped.
func (r *Registry) Close() error {
	var firstErr error
	for _, client := range r.mcpClients {
		if err := client.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Resolve returns the tool instances for a toolset, in the toolset's
// configured order. An entry "<server>:*" expands to every registered tool
// of that MCP server, sorted by name for a stable prompt order.
func (r *Registry) Resolve(ts *config.Toolset) ([]Tool, error) {
	var active []Tool
	for _, toolName := range ts.Tools {
		if server, ok := strings.CutSuffix(toolName, ":*"); ok {
			expanded := r.serverTools(server)
			if len(expanded) == 0 {
				return nil, fmt.Errorf("toolset '%s' references MCP server '%s' with no registered tools", ts.Name, server)
			}
			active = append(active, expanded...)
			continue
		}

		t, ok := r.Get(toolName)
		if !ok {
			return nil, fmt.Errorf("tool '%s' from toolset '%s' is not registered", toolName, ts.Name)
		}
		active = append(active, t)
	}
	return active, nil
}

// serverTools returns all registered tools with the "<server>:" prefix.
func (r *Registry) serverTools(server string) []Tool {
	prefix := server + ":"
	var names []string
	for name := range r.tools {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// isPathRestricted checks if a path matches any of the glob patterns.
func isPathRestricted(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return false, fmt.Errorf("invalid glob pattern '%s': %w", pattern, err)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// isCommandAllowed checks if a command matches the allowlist. Patterns are
// regular expressions; a pattern that fails to compile falls back to literal
// comparison.
func isCommandAllowed(command string, allowed []string) (bool, error) {
	if len(strings.Fields(command)) == 0 {
		return false, nil
	}

	for _, pattern := range allowed {
		re, err := regexp.Compile(pattern)
		if err != nil {
			if command == pattern {
				return true, nil
			}
			continue
		}
		if re.MatchString(command) {
			return true, nil
		}
	}
	return false, nil
}
