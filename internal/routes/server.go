package routes

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const instructions = "Tools for a virtualization cluster. Use list_vms to find VM ids. " +
	"power_off_vm returns immediately unless wait_timeout_seconds is set. " +
	"modify_vm requires the VM to be off and never restarts it."

// Resource is a read-only feed backed by a catalog tool.
type Resource struct {
	URI         string
	Name        string
	Description string
	Tool        string
}

// Resources lists the read-only feeds. Each returns the same JSON as its tool.
var Resources = []Resource{
	{URI: "verge://cluster/status", Name: "Cluster status", Description: "Cluster capacity and usage", Tool: "get_cluster_status"},
	{URI: "verge://vms", Name: "Virtual machines", Description: "First page of virtual machines", Tool: "list_vms"},
	{URI: "verge://networks", Name: "Networks", Description: "First page of virtual networks", Tool: "list_networks"},
	{URI: "verge://alarms", Name: "Alarms", Description: "Active alarms", Tool: "get_alarms"},
}

// ReadResource renders a resource through its tool.
func (c *Catalog) ReadResource(ctx context.Context, uri string) (string, error) {
	for _, r := range Resources {
		if r.URI != uri {
			continue
		}
		res := c.Call(ctx, r.Tool, nil)
		text := resultText(res)
		if res.IsError {
			return "", errors.New(text)
		}
		return text, nil
	}
	return "", fmt.Errorf("unknown resource %q", uri)
}

// NewMCPServer registers the catalog's tools and resources on an MCP server.
func NewMCPServer(c *Catalog, version string) *server.MCPServer {
	s := server.NewMCPServer("vergemcp", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	for _, t := range c.tools {
		s.AddTool(t.Definition, t.Handler)
	}

	for _, r := range Resources {
		uri := r.URI
		s.AddResource(
			mcp.NewResource(uri, r.Name,
				mcp.WithResourceDescription(r.Description),
				mcp.WithMIMEType("application/json"),
			),
			func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
				text, err := c.ReadResource(ctx, uri)
				if err != nil {
					return nil, err
				}
				return []mcp.ResourceContents{
					mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: text},
				}, nil
			},
		)
	}

	return s
}

func resultText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	for _, content := range res.Content {
		if text, ok := content.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}
