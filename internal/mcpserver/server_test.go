package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/snapcode/internal/apperr"
	"github.com/starford/snapcode/internal/snapshot"
	"github.com/starford/snapcode/internal/snapshotservice"
	"github.com/starford/snapcode/internal/testutil"
)

type stubRebuilder struct {
	calls int
	err   error
}

func (s *stubRebuilder) Trigger() error {
	s.calls++
	return s.err
}

func testServer(t *testing.T) (*Server, *snapshot.Builder, *stubRebuilder) {
	t.Helper()
	_, store := testutil.TestProject(t, map[string]string{
		"cmd/main.go": "package main",
		"go.mod":      "module example",
		".env":        "TOKEN=x",
	})
	b := snapshot.New(store)
	rb := &stubRebuilder{}
	srv := New(snapshotservice.NewService(b, rb, nil), "test")
	return srv, b, rb
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
	case "get_snapshot":
		result, err = srv.getSnapshot(ctx, req)
	case "list_files":
		result, err = srv.listFiles(ctx, req)
	case "build_history":
		result, err = srv.buildHistory(ctx, req)
	case "rebuild":
		result, err = srv.rebuild(ctx, req)
	case "get_snapshot_format":
		result, err = srv.getSnapshotFormat(ctx, req)
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

func TestGetSnapshot_NotBuilt(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "get_snapshot", nil)
	if !r.IsError {
		t.Error("expected error before first build")
	}
}

func TestGetSnapshot_AfterBuild(t *testing.T) {
	srv, b, _ := testServer(t)
	if _, err := b.Build(); err != nil {
		t.Fatal(err)
	}
	text := resultText(callTool(t, srv, "get_snapshot", nil))
	if !strings.Contains(text, "File: cmd/main.go") || !strings.Contains(text, "File: go.mod") {
		t.Errorf("snapshot = %q", text)
	}
	if strings.Contains(text, ".env") {
		t.Error("hidden file leaked into snapshot")
	}
}

func TestListFiles(t *testing.T) {
	srv, _, _ := testServer(t)
	text := resultText(callTool(t, srv, "list_files", map[string]interface{}{}))
	if text != "go.mod\ncmd/main.go" {
		t.Errorf("list = %q", text)
	}
}

func TestBuildHistory_Disabled(t *testing.T) {
	srv, _, _ := testServer(t)
	text := resultText(callTool(t, srv, "build_history", map[string]interface{}{"limit": 5}))
	if text != "[]" {
		t.Errorf("history = %q, want []", text)
	}
}

func TestRebuild(t *testing.T) {
	srv, _, rb := testServer(t)
	r := callTool(t, srv, "rebuild", nil)
	if r.IsError || resultText(r) != "rebuild queued" {
		t.Errorf("rebuild result = %q", resultText(r))
	}
	if rb.calls != 1 {
		t.Errorf("calls = %d", rb.calls)
	}

	rb.err = apperr.ErrQueueFull
	if r := callTool(t, srv, "rebuild", nil); !r.IsError {
		t.Error("expected error when queue is full")
	}
}

func TestGetSnapshotFormat(t *testing.T) {
	srv, _, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_snapshot_format", nil))
	if !strings.Contains(text, strings.Repeat("=", 80)) {
		t.Error("format should show the rule line")
	}
}
