// CLAUDE:SUMMARY MCP tool surface: compute a changeset, classify a path, inspect the active ruleset.
package fiche

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/fiche/change"
	"github.com/hazyhaar/fiche/kit"
)

// RegisterMCP registers all fiche tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerComputeChangeSet(srv)
	e.registerClassifyPath(srv)
	e.registerRules(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (e *Engine) registerComputeChangeSet(srv *mcp.Server) {
	type req struct {
		Previous map[string]any `json:"previous"`
		Current  map[string]any `json:"current"`
	}

	tool := &mcp.Tool{
		Name:        "fiche_compute_changeset",
		Description: "Diff two snapshots of the same entity and return the classified, explained change set",
		InputSchema: inputSchema(map[string]any{
			"previous": map[string]any{"type": "object", "description": "Earlier snapshot"},
			"current":  map[string]any{"type": "object", "description": "Later snapshot"},
		}, []string{"previous", "current"}),
	}

	endpoint := kit.Logging(tool.Name, e.logger)(func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return e.ComputeChangeSet(change.Snapshot(p.Previous), change.Snapshot(p.Current))
	})

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (e *Engine) registerClassifyPath(srv *mcp.Server) {
	type req struct {
		Path string `json:"path"`
	}
	type resp struct {
		Path     string `json:"path"`
		Priority string `json:"priority"`
	}

	tool := &mcp.Tool{
		Name:        "fiche_classify_path",
		Description: "Return the priority tier the active ruleset assigns to a field path",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Field path, e.g. combat.hit_points.maximum"},
		}, []string{"path"}),
	}

	endpoint := kit.Logging(tool.Name, e.logger)(func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return resp{Path: p.Path, Priority: e.ruleset.Classify(p.Path).String()}, nil
	})

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (e *Engine) registerRules(srv *mcp.Server) {
	type req struct{}
	type resp struct {
		Patterns        []change.PatternRule `json:"patterns"`
		DefaultPriority string               `json:"default_priority"`
		CausalRules     []string             `json:"causal_rules"`
		MaxCascadeDepth int                  `json:"max_cascade_depth"`
		MinConfidence   float64              `json:"min_confidence"`
		ListIdentityKey string               `json:"list_identity_key"`
	}

	tool := &mcp.Tool{
		Name:        "fiche_rules",
		Description: "Inspect the active pattern rules, causal rules, and engine settings",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := kit.Logging(tool.Name, e.logger)(func(ctx context.Context, r any) (any, error) {
		names := make([]string, 0, len(e.cfg.CausalRules))
		for _, cr := range e.cfg.CausalRules {
			names = append(names, cr.Name())
		}
		return resp{
			Patterns:        e.cfg.PatternRules,
			DefaultPriority: e.cfg.DefaultPriority.String(),
			CausalRules:     names,
			MaxCascadeDepth: e.cfg.MaxCascadeDepth,
			MinConfidence:   e.cfg.MinConfidence,
			ListIdentityKey: e.cfg.ListIdentityKey,
		}, nil
	})

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &req{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
