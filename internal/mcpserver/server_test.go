package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/vitrine/internal/registry"
	"github.com/starford/vitrine/internal/store"
	"github.com/starford/vitrine/internal/testutil"
)

func testServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	s, _ := testutil.NewStore(t)
	testutil.SeedCatalog(t, s)
	return New(s, registry.New(s)), s
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error
	switch name {
	case "list_collections":
		result, err = srv.listCollections(ctx, req)
	case "get_type_schema":
		result, err = srv.getTypeSchema(ctx, req)
	case "query_items":
		result, err = srv.queryItems(ctx, req)
	case "create_item":
		result, err = srv.createItem(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) > 0 {
		if tc, ok := res.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListCollectionsTool(t *testing.T) {
	srv, _ := testServer(t)
	res := callTool(t, srv, "list_collections", nil)
	if res.IsError {
		t.Fatalf("error: %s", textOf(t, res))
	}
	text := textOf(t, res)
	if !strings.Contains(text, "Juegos") || !strings.Contains(text, "Consolas") {
		t.Errorf("output = %s", text)
	}
}

func TestGetTypeSchemaTool(t *testing.T) {
	srv, _ := testServer(t)
	res := callTool(t, srv, "get_type_schema", map[string]any{"typeId": testutil.TypeID})
	if res.IsError {
		t.Fatalf("error: %s", textOf(t, res))
	}

	var schema struct {
		Fields []struct {
			Key       string `json:"key"`
			Kind      string `json:"kind"`
			Mandatory bool   `json:"mandatory"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(textOf(t, res)), &schema); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(schema.Fields) != 2 {
		t.Fatalf("fields = %d", len(schema.Fields))
	}
	if schema.Fields[0].Key != "nombre" || !schema.Fields[0].Mandatory {
		t.Errorf("name field = %+v", schema.Fields[0])
	}
	if schema.Fields[1].Kind != "select" {
		t.Errorf("genre kind = %q", schema.Fields[1].Kind)
	}
}

func TestGetTypeSchemaUnknownType(t *testing.T) {
	srv, _ := testServer(t)
	res := callTool(t, srv, "get_type_schema", map[string]any{"typeId": "type_nope"})
	if !res.IsError {
		t.Error("expected tool error")
	}
}

func TestQueryItemsToolFiltered(t *testing.T) {
	srv, _ := testServer(t)
	res := callTool(t, srv, "query_items", map[string]any{
		"sectionId": testutil.SectionID,
		"filters":   `{"` + testutil.GenreFieldID + `":["RPG"]}`,
	})
	if res.IsError {
		t.Fatalf("error: %s", textOf(t, res))
	}
	var items []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(textOf(t, res)), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("items = %d, want the two RPGs", len(items))
	}
}

func TestCreateItemTool(t *testing.T) {
	srv, s := testServer(t)
	res := callTool(t, srv, "create_item", map[string]any{
		"typeId": testutil.TypeID,
		"data":   `{"nombre":"Hollow Knight","genero":"Aventura"}`,
	})
	if res.IsError {
		t.Fatalf("error: %s", textOf(t, res))
	}
	if len(s.ItemsByType(testutil.TypeID)) != 4 {
		t.Errorf("items = %d", len(s.ItemsByType(testutil.TypeID)))
	}
}

func TestCreateItemToolMandatoryCheck(t *testing.T) {
	srv, s := testServer(t)
	res := callTool(t, srv, "create_item", map[string]any{
		"typeId": testutil.TypeID,
		"data":   `{"genero":"RPG"}`,
	})
	if !res.IsError {
		t.Error("expected mandatory-field error")
	}
	if len(s.ItemsByType(testutil.TypeID)) != 3 {
		t.Error("failed create must not persist")
	}
}
