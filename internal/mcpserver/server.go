// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes catalog tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vitrine/internal/facet"
	"github.com/starford/vitrine/internal/models"
	"github.com/starford/vitrine/internal/registry"
	"github.com/starford/vitrine/internal/schema"
	"github.com/starford/vitrine/internal/store"
)

// Server wraps the MCP server with catalog tools.
type Server struct {
	mcp      *server.MCPServer
	store    *store.Store
	registry *registry.Registry
}

// New creates a new MCP server with all catalog tools registered.
func New(st *store.Store, reg *registry.Registry) *Server {
	s := &Server{store: st, registry: reg}

	s.mcp = server.NewMCPServer(
		"Vitrine",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List all collections with their sections and item types."),
	), s.listCollections)

	s.mcp.AddTool(mcp.NewTool("get_type_schema",
		mcp.WithDescription("Describe the fields of an item type: key, label, kind, "+
			"mandatory flag, and any conditional visibility rule."),
		mcp.WithString("typeId", mcp.Required(), mcp.Description("Item type id")),
	), s.getTypeSchema)

	s.mcp.AddTool(mcp.NewTool("query_items",
		mcp.WithDescription("List the items of a section, optionally filtered by field values. "+
			"Filters are a JSON object mapping field ids to arrays of display values."),
		mcp.WithString("sectionId", mcp.Required(), mcp.Description("Section id")),
		mcp.WithString("filters", mcp.Description("Optional JSON filter object, e.g. {\"fdef_x\":[\"RPG\"]}")),
	), s.queryItems)

	s.mcp.AddTool(mcp.NewTool("create_item",
		mcp.WithDescription("Create an item of the given type. Data is a JSON object keyed by "+
			"field keys; call get_type_schema first to learn them. The name goes under \"nombre\"."),
		mcp.WithString("typeId", mcp.Required(), mcp.Description("Item type id")),
		mcp.WithString("data", mcp.Required(), mcp.Description("JSON object with the item's field values")),
	), s.createItem)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listCollections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type typeInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	type sectionInfo struct {
		ID    string     `json:"id"`
		Name  string     `json:"name"`
		Types []typeInfo `json:"types"`
	}
	type collectionInfo struct {
		ID       string        `json:"id"`
		Name     string        `json:"name"`
		Sections []sectionInfo `json:"sections"`
	}

	out := make([]collectionInfo, 0)
	for _, c := range s.store.Collections() {
		ci := collectionInfo{ID: c.ID, Name: c.Name, Sections: []sectionInfo{}}
		for _, sec := range s.store.SectionsByCollection(c.ID) {
			si := sectionInfo{ID: sec.ID, Name: sec.Name, Types: []typeInfo{}}
			for _, t := range s.store.TypesBySection(sec.ID) {
				si.Types = append(si.Types, typeInfo{ID: t.ID, Name: t.Name})
			}
			ci.Sections = append(ci.Sections, si)
		}
		out = append(out, ci)
	}
	payload, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) getTypeSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeID, err := req.RequireString("typeId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, ok := s.store.TypeByID(typeID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("type not found: %s", typeID)), nil
	}

	type fieldInfo struct {
		Key        string         `json:"key"`
		Label      string         `json:"label"`
		Kind       string         `json:"kind"`
		Mandatory  bool           `json:"mandatory"`
		Filterable bool           `json:"filterable"`
		ShowIf     *models.ShowIf `json:"showIf,omitempty"`
	}
	fields := make([]fieldInfo, 0, len(t.Fields))
	for _, u := range t.Fields {
		def := s.registry.Resolve(u)
		fields = append(fields, fieldInfo{
			Key:        def.Key,
			Label:      def.Label,
			Kind:       string(def.Type),
			Mandatory:  u.Mandatory,
			Filterable: u.Filterable,
			ShowIf:     u.ShowIf,
		})
	}
	payload, _ := json.MarshalIndent(map[string]any{
		"id":     t.ID,
		"name":   t.Name,
		"fields": fields,
	}, "", "  ")
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) queryItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sectionID, err := req.RequireString("sectionId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := s.store.SectionByID(sectionID); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("section not found: %s", sectionID)), nil
	}

	state := facet.NewState()
	if raw := req.GetString("filters", ""); raw != "" {
		var filters map[string][]string
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			return mcp.NewToolResultError("filters must be a JSON object of string arrays"), nil
		}
		for fieldID, values := range filters {
			for _, v := range values {
				state.Toggle(fieldID, v)
			}
		}
	}

	types := s.store.TypesBySection(sectionID)
	items := facet.Apply(state, types, s.store.ItemsBySection(sectionID), s.registry)

	type itemInfo struct {
		ID   string         `json:"id"`
		Name string         `json:"name"`
		Data map[string]any `json:"data"`
	}
	out := make([]itemInfo, 0, len(items))
	for _, it := range items {
		out = append(out, itemInfo{ID: it.ID, Name: it.Name(), Data: it.Data})
	}
	payload, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) createItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeID, err := req.RequireString("typeId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawData, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, ok := s.store.TypeByID(typeID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("type not found: %s", typeID)), nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(rawData), &data); err != nil {
		return mcp.NewToolResultError("data must be a JSON object"), nil
	}

	for _, u := range t.Fields {
		if !u.Mandatory || !schema.EvaluateShowIf(u, s.registry.Resolve, t, data) {
			continue
		}
		def := s.registry.Resolve(u)
		if v, ok := data[def.Key]; !ok || v == nil || v == "" {
			return mcp.NewToolResultError(fmt.Sprintf("mandatory field missing: %s (%s)", def.Label, def.Key)), nil
		}
	}

	it := models.Item{
		ID:        models.NewID("item"),
		TypeID:    t.ID,
		SectionID: t.SectionID,
		CreatedAt: time.Now().UTC(),
		Data:      data,
	}
	if err := s.store.SaveItem(it); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, _ := json.MarshalIndent(it, "", "  ")
	return mcp.NewToolResultText(string(payload)), nil
}
