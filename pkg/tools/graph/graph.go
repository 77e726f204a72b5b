// Package graph provides the property-graph tool implementation backed by Apache AGE
package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/machinae-labs/mcp-server-age-bridge/pkg/agtype"
	"github.com/machinae-labs/mcp-server-age-bridge/pkg/graph"
)

// Store is the slice of the repository the tool needs.
type Store interface {
	EnsureGraph(ctx context.Context, name string) error
	GraphExists(ctx context.Context, name string) (bool, error)
	GetGraph(ctx context.Context, name string) (*graph.Graph, error)
	GetOrCreateGraph(ctx context.Context, name string) (*graph.Graph, error)
	UpsertGraph(ctx context.Context, target *graph.Graph) (*graph.Graph, error)
	UpsertVertex(ctx context.Context, graphName, label, ident string, props graph.Properties) (*graph.Vertex, error)
	UpsertEdge(ctx context.Context, graphName, label, startIdent, endIdent, ident string, props graph.Properties) (*graph.Edge, error)
	DropVertex(ctx context.Context, graphName, ident string) error
	DropEdge(ctx context.Context, graphName, ident string) error
	TruncateGraph(ctx context.Context, graphName string) error
	DropGraphs(ctx context.Context, names ...string) error
	CypherFetch(ctx context.Context, graphName, stmt string) ([]agtype.Record, error)
	CypherExecute(ctx context.Context, graphName, stmt string) error
}

/*
Params documents the tool's argument surface. It exists so the schema shown
to the agent is generated from one place.
*/
type Params struct {
	Operation  string `json:"operation" jsonschema:"required,description=One of ensure_graph|graph_exists|get_graph|get_or_create_graph|upsert_graph|upsert_vertex|upsert_edge|drop_vertex|drop_edge|truncate_graph|drop_graph|cypher_fetch|cypher_execute"`
	Graph      string `json:"graph,omitempty" jsonschema:"description=Name of the graph to operate on"`
	GraphJSON  string `json:"graph_json,omitempty" jsonschema:"description=Full graph document as JSON with name vertices and edges"`
	Label      string `json:"label,omitempty" jsonschema:"description=Vertex or edge label"`
	Ident      string `json:"ident,omitempty" jsonschema:"description=Human-readable identifier of the vertex or edge"`
	StartIdent string `json:"start_ident,omitempty" jsonschema:"description=Ident of the edge's start vertex"`
	EndIdent   string `json:"end_ident,omitempty" jsonschema:"description=Ident of the edge's end vertex"`
	Properties string `json:"properties,omitempty" jsonschema:"description=Properties as a JSON object"`
	Cypher     string `json:"cypher,omitempty" jsonschema:"description=An openCypher statement to run against the graph"`
}

// Tool implements the property-graph management tool
type Tool struct {
	handle mcp.Tool
	store  Store
}

// New creates a new graph tool instance
func New(store Store) *Tool {
	tool := &Tool{
		handle: mcp.NewTool(
			"graph",
			mcp.WithDescription("Manage labeled property graphs stored in Apache AGE"),
			mcp.WithString(
				"operation",
				mcp.Required(),
				mcp.Description("The operation to perform (ensure_graph, graph_exists, get_graph, get_or_create_graph, upsert_graph, upsert_vertex, upsert_edge, drop_vertex, drop_edge, truncate_graph, drop_graph, cypher_fetch, cypher_execute)"),
			),
			mcp.WithString(
				"graph",
				mcp.Description("Name of the graph to operate on"),
			),
			mcp.WithString(
				"graph_json",
				mcp.Description("Full graph document as JSON, with name, vertices and edges"),
			),
			mcp.WithString(
				"label",
				mcp.Description("Vertex or edge label"),
			),
			mcp.WithString(
				"ident",
				mcp.Description("Human-readable identifier of the vertex or edge"),
			),
			mcp.WithString(
				"start_ident",
				mcp.Description("Ident of the edge's start vertex"),
			),
			mcp.WithString(
				"end_ident",
				mcp.Description("Ident of the edge's end vertex"),
			),
			mcp.WithString(
				"properties",
				mcp.Description("Properties as a JSON object"),
			),
			mcp.WithString(
				"cypher",
				mcp.Description("An openCypher statement to run against the graph"),
			),
		),
		store: store,
	}

	return tool
}

// Handle returns the MCP tool definition
func (tool *Tool) Handle() mcp.Tool {
	return tool.handle
}

/*
GenerateSchema renders the argument schema as a jsonschema string, which can
be injected into the prompt to explain the tool to the agent.
*/
func (tool *Tool) GenerateSchema() string {
	schema := jsonschema.Reflect(&Params{})
	buf, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Error(err)
		return "Error marshalling schema"
	}

	return string(buf)
}

func stringArg(request mcp.CallToolRequest, key string) string {
	if val, ok := request.Params.Arguments[key].(string); ok {
		return val
	}

	return ""
}

func (tool *Tool) params(request mcp.CallToolRequest) Params {
	return Params{
		Operation:  stringArg(request, "operation"),
		Graph:      stringArg(request, "graph"),
		GraphJSON:  stringArg(request, "graph_json"),
		Label:      stringArg(request, "label"),
		Ident:      stringArg(request, "ident"),
		StartIdent: stringArg(request, "start_ident"),
		EndIdent:   stringArg(request, "end_ident"),
		Properties: stringArg(request, "properties"),
		Cypher:     stringArg(request, "cypher"),
	}
}

// validate checks if the request contains valid parameters
func (tool *Tool) validate(p Params) error {
	if p.Operation == "" {
		return fmt.Errorf("operation is required")
	}

	switch p.Operation {
	case "upsert_graph":
		if p.GraphJSON == "" {
			return fmt.Errorf("graph_json is required for upsert_graph")
		}
	case "cypher_fetch", "cypher_execute":
		if p.Graph == "" || p.Cypher == "" {
			return fmt.Errorf("graph and cypher are required for %s", p.Operation)
		}
	case "upsert_vertex":
		if p.Graph == "" || p.Label == "" {
			return fmt.Errorf("graph and label are required for upsert_vertex")
		}
	case "upsert_edge":
		if p.Graph == "" || p.Label == "" || p.StartIdent == "" || p.EndIdent == "" {
			return fmt.Errorf("graph, label, start_ident and end_ident are required for upsert_edge")
		}
	case "drop_vertex", "drop_edge":
		if p.Graph == "" || p.Ident == "" {
			return fmt.Errorf("graph and ident are required for %s", p.Operation)
		}
	case "ensure_graph", "graph_exists", "get_graph", "get_or_create_graph",
		"truncate_graph", "drop_graph":
		if p.Graph == "" {
			return fmt.Errorf("graph is required for %s", p.Operation)
		}
	default:
		return fmt.Errorf("unknown operation: %s", p.Operation)
	}

	return nil
}

func (p Params) properties() (graph.Properties, error) {
	if p.Properties == "" {
		return graph.Properties{}, nil
	}

	var props graph.Properties
	if err := json.Unmarshal([]byte(p.Properties), &props); err != nil {
		return nil, fmt.Errorf("properties is not a JSON object: %w", err)
	}

	return props, nil
}

// Handler processes graph tool requests
func (tool *Tool) Handler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := tool.params(request)

	if err := tool.validate(p); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	log.Debug("graph tool call", "operation", p.Operation, "graph", p.Graph)

	switch p.Operation {
	case "ensure_graph":
		if err := tool.store.EnsureGraph(ctx, p.Graph); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("graph %q is ready", p.Graph)), nil

	case "graph_exists":
		exists, err := tool.store.GraphExists(ctx, p.Graph)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%t", exists)), nil

	case "get_graph":
		g, err := tool.store.GetGraph(ctx, p.Graph)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(g)

	case "get_or_create_graph":
		g, err := tool.store.GetOrCreateGraph(ctx, p.Graph)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(g)

	case "upsert_graph":
		return tool.handleUpsertGraph(ctx, p)

	case "upsert_vertex":
		return tool.handleUpsertVertex(ctx, p)

	case "upsert_edge":
		return tool.handleUpsertEdge(ctx, p)

	case "drop_vertex":
		if err := tool.store.DropVertex(ctx, p.Graph, p.Ident); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("dropped vertex %q", p.Ident)), nil

	case "drop_edge":
		if err := tool.store.DropEdge(ctx, p.Graph, p.Ident); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("dropped edge %q", p.Ident)), nil

	case "truncate_graph":
		if err := tool.store.TruncateGraph(ctx, p.Graph); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("truncated graph %q", p.Graph)), nil

	case "drop_graph":
		if err := tool.store.DropGraphs(ctx, p.Graph); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("dropped graph %q", p.Graph)), nil

	case "cypher_fetch":
		return tool.handleCypherFetch(ctx, p)

	case "cypher_execute":
		if err := tool.store.CypherExecute(ctx, p.Graph, p.Cypher); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("ok"), nil
	}

	return mcp.NewToolResultError("unknown operation: " + p.Operation), nil
}

func (tool *Tool) handleUpsertGraph(ctx context.Context, p Params) (*mcp.CallToolResult, error) {
	var target graph.Graph
	if err := json.Unmarshal([]byte(p.GraphJSON), &target); err != nil {
		return mcp.NewToolResultError("graph_json is not a valid graph document: " + err.Error()), nil
	}

	stored, err := tool.store.UpsertGraph(ctx, &target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(stored)
}

func (tool *Tool) handleUpsertVertex(ctx context.Context, p Params) (*mcp.CallToolResult, error) {
	props, err := p.properties()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	v, err := tool.store.UpsertVertex(ctx, p.Graph, p.Label, p.Ident, props)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(v)
}

func (tool *Tool) handleUpsertEdge(ctx context.Context, p Params) (*mcp.CallToolResult, error) {
	props, err := p.properties()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	e, err := tool.store.UpsertEdge(ctx, p.Graph, p.Label, p.StartIdent, p.EndIdent, p.Ident, props)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(e)
}

func (tool *Tool) handleCypherFetch(ctx context.Context, p Params) (*mcp.CallToolResult, error) {
	records, err := tool.store.CypherFetch(ctx, p.Graph, p.Cypher)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	lines := make([]string, 0, len(records))
	for _, record := range records {
		text, err := agtype.Encode(record)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		lines = append(lines, text)
	}

	buf, err := json.Marshal(lines)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(string(buf)), nil
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(string(buf)), nil
}
