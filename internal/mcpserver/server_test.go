package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/notionsite/internal/apperr"
	"github.com/starford/notionsite/internal/models"
	"github.com/starford/notionsite/internal/pipeline"
	"github.com/starford/notionsite/internal/siteservice"
	"github.com/starford/notionsite/internal/testutil"
)

func testServer(t *testing.T) (*Server, *testutil.Runner) {
	t.Helper()
	_, store := testutil.TestSite(t)
	db := testutil.TestLedger(t)
	runner := &testutil.Runner{Store: store, Files: map[string]string{}}

	svc := siteservice.New(siteservice.Options{
		Collections: []pipeline.Collection{{
			PostType: "blog",
			Required: pipeline.Required{Title: "Title"},
			Paths:    pipeline.Paths{Markdown: "src/blog"},
		}},
		Runner: runner,
		Store:  store,
		Ledger: db,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return New(svc, "test"), runner
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
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
	case "run_pass":
		result, err = srv.runPass(ctx, req)
	case "list_passes":
		result, err = srv.listPasses(ctx, req)
	case "get_pass":
		result, err = srv.getPass(ctx, req)
	case "list_outputs":
		result, err = srv.listOutputs(ctx, req)
	case "read_output":
		result, err = srv.readOutput(ctx, req)
	case "search_outputs":
		result, err = srv.searchOutputs(ctx, req)
	case "list_remote_assets":
		result, err = srv.listRemoteAssets(ctx, req)
	case "get_frontmatter_contract":
		result, err = srv.getFrontmatterContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestRunPassAndReadOutput(t *testing.T) {
	srv, runner := testServer(t)
	runner.Files["src/blog/hello.md"] = "---\ntitle: Hello\n---\nWorld\n"

	r := callTool(t, srv, "run_pass", map[string]interface{}{"collection": "blog"})
	if r.IsError {
		t.Fatalf("run_pass error: %s", resultText(r))
	}
	var pass models.Pass
	if err := json.Unmarshal([]byte(resultText(r)), &pass); err != nil || pass.Succeeded != 1 {
		t.Fatalf("pass = %+v err = %v", pass, err)
	}

	r = callTool(t, srv, "get_pass", map[string]interface{}{"id": pass.ID})
	if r.IsError || !strings.Contains(resultText(r), "src/blog/hello.md") {
		t.Errorf("get_pass = %q", resultText(r))
	}

	r = callTool(t, srv, "list_outputs", map[string]interface{}{"collection": "blog"})
	if text := resultText(r); text != "src/blog/hello.md" {
		t.Errorf("list_outputs = %q", text)
	}

	r = callTool(t, srv, "read_output", map[string]interface{}{"path": "src/blog/hello.md"})
	if text := resultText(r); text != "---\ntitle: Hello\n---\nWorld\n" {
		t.Errorf("read_output = %q", text)
	}

	r = callTool(t, srv, "list_passes", map[string]interface{}{"collection": "blog"})
	if !strings.Contains(resultText(r), `"total": 1`) {
		t.Errorf("list_passes = %q", resultText(r))
	}
}

func TestRunPass_Failures(t *testing.T) {
	srv, runner := testServer(t)

	if r := callTool(t, srv, "run_pass", map[string]interface{}{}); !r.IsError {
		t.Error("expected error for missing collection")
	}
	if r := callTool(t, srv, "run_pass", map[string]interface{}{"collection": "nope"}); !r.IsError {
		t.Error("expected error for unknown collection")
	}

	runner.Err = apperr.ErrSelection
	r := callTool(t, srv, "run_pass", map[string]interface{}{"collection": "blog"})
	if !r.IsError || !strings.Contains(resultText(r), "aborted") {
		t.Errorf("selection failure = %q", resultText(r))
	}
}

func TestGetPassMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_pass", map[string]interface{}{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing pass")
	}
}

func TestReadOutputMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_output", map[string]interface{}{"path": "src/blog/nope.md"})
	if !r.IsError {
		t.Error("expected error for missing output")
	}
}

func TestListRemoteAssets(t *testing.T) {
	srv, runner := testServer(t)

	r := callTool(t, srv, "list_remote_assets", map[string]interface{}{})
	if text := resultText(r); text != "no remote assets found" {
		t.Errorf("empty = %q", text)
	}

	runner.Files["src/blog/a.md"] = "---\ntitle: A\n---\n![x](https://example.com/x.png)\n"
	callTool(t, srv, "run_pass", map[string]interface{}{"collection": "blog"})
	r = callTool(t, srv, "list_remote_assets", map[string]interface{}{})
	if !strings.Contains(resultText(r), "https://example.com/x.png") {
		t.Errorf("remote = %q", resultText(r))
	}
}

func TestContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_frontmatter_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "permalink") {
		t.Error("contract missing permalink")
	}
	res, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(res) != 1 {
		t.Fatalf("resource = %v, err = %v", res, err)
	}
	if tc, ok := res[0].(mcp.TextResourceContents); !ok || tc.URI != contractURI {
		t.Errorf("resource = %+v", res[0])
	}
}

func TestListCollections(t *testing.T) {
	srv, _ := testServer(t)
	if text := resultText(callTool(t, srv, "list_collections", map[string]interface{}{})); text != "blog" {
		t.Errorf("collections = %q", text)
	}
}
