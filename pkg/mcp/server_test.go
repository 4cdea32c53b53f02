package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jllopis/adminqa/pkg/access"
	"github.com/jllopis/adminqa/pkg/agent"
	"github.com/jllopis/adminqa/pkg/dataset"
	"github.com/jllopis/adminqa/pkg/llm"
	"github.com/jllopis/adminqa/pkg/query"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

func newTestServer(t *testing.T, provider llm.Provider) *Server {
	t.Helper()
	data := dataset.New(nil, []dataset.Record{
		{Name: "Asha", Grade: 8, Region: "North"},
		{Name: "Ben", Grade: 9, Region: "South"},
	})
	svc, err := query.New(data, func(string) (agent.TableAgent, error) {
		return agent.New("table", provider)
	})
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return NewServer("adminqa-test", "1.0.0", svc)
}

func call(name string, args map[string]interface{}) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcpgo.CallToolResult) string {
	t.Helper()
	if res == nil {
		t.Fatal("nil result")
	}
	return extractTextContent(res.Content)
}

func TestServerListRoles(t *testing.T) {
	s := newTestServer(t, &llm.MockProvider{})
	res, err := s.listRoles(context.Background(), call(ToolListRoles, nil))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(resultText(t, res), "\n")
	if len(lines) != 4 || lines[0] != string(access.DefaultRole) {
		t.Errorf("unexpected roles %q", lines)
	}
}

func TestServerViewScope(t *testing.T) {
	s := newTestServer(t, &llm.MockProvider{})

	res, _ := s.viewScope(context.Background(), call(ToolViewScope, map[string]interface{}{"role": string(access.RoleRegionNorth)}))
	if res.IsError || !strings.Contains(resultText(t, res), "Asha") || strings.Contains(resultText(t, res), "Ben") {
		t.Errorf("unexpected scope %q", resultText(t, res))
	}

	res, _ = s.viewScope(context.Background(), call(ToolViewScope, map[string]interface{}{"role": "root"}))
	if !res.IsError {
		t.Errorf("expected error for unknown role")
	}
}

func TestServerAskQuestion(t *testing.T) {
	mock := &llm.MockProvider{Response: "Ben"}
	s := newTestServer(t, mock)

	res, err := s.askQuestion(context.Background(), call(ToolAskQuestion, map[string]interface{}{
		"role":     string(access.RoleRegionSouth),
		"question": "Who is there?",
		"api_key":  "sk-test",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError || resultText(t, res) != "Ben" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestServerAskQuestionErrors(t *testing.T) {
	s := newTestServer(t, &llm.FailingMockProvider{Err: stderrors.New("quota exceeded")})

	res, _ := s.askQuestion(context.Background(), call(ToolAskQuestion, map[string]interface{}{
		"role": string(access.RoleSuperAdmin), "question": "q",
	}))
	if !res.IsError || resultText(t, res) != query.MsgMissingCredential {
		t.Errorf("expected credential prompt, got %q", resultText(t, res))
	}

	res, _ = s.askQuestion(context.Background(), call(ToolAskQuestion, map[string]interface{}{
		"role": string(access.RoleSuperAdmin), "question": "q", "api_key": "k",
	}))
	text := resultText(t, res)
	if !res.IsError || !strings.Contains(text, "quota exceeded") || !strings.Contains(text, query.MsgAgentHint) {
		t.Errorf("expected delegation failure, got %q", text)
	}
}

func TestClientOverStreamableHTTP(t *testing.T) {
	s := newTestServer(t, &llm.MockProvider{Response: "1 student"})
	httpServer := mcpserver.NewTestStreamableHTTPServer(s.mcpServer)
	defer httpServer.Close()

	client, err := NewClientWithStreamableHTTPProtocol(httpServer.URL, mcpgo.LATEST_PROTOCOL_VERSION)
	if err != nil {
		t.Fatalf("NewClientWithStreamableHTTPProtocol error: %v", err)
	}
	defer client.Close()

	tools, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools error: %v", err)
	}
	if len(tools) != 3 {
		t.Fatalf("expected 3 tools, got %+v", tools)
	}

	roles, err := client.ListRoles(context.Background())
	if err != nil || len(roles) != 4 {
		t.Fatalf("ListRoles: %v %q", err, roles)
	}

	csv, err := client.ViewScope(context.Background(), string(access.RoleGrade8))
	if err != nil || !strings.HasPrefix(csv, "grade,region,name\n") {
		t.Fatalf("ViewScope: %v %q", err, csv)
	}

	answer, err := client.Ask(context.Background(), string(access.RoleGrade8), "How many?", "sk-test")
	if err != nil || answer != "1 student" {
		t.Fatalf("Ask: %v %q", err, answer)
	}

	if _, err := client.Ask(context.Background(), string(access.RoleGrade8), " ", "sk-test"); err == nil || err.Error() != query.MsgMissingQuestion {
		t.Errorf("expected question prompt, got %v", err)
	}
}

// countingHandler counts JSON-RPC methods and fails the first n tools/call requests.
type countingHandler struct {
	next      http.Handler
	failCalls int

	mu     sync.Mutex
	counts map[string]int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		var msg struct {
			Method string `json:"method"`
		}
		_ = json.Unmarshal(body, &msg)

		h.mu.Lock()
		h.counts[msg.Method]++
		fail := msg.Method == "tools/call" && h.failCalls > 0
		if fail {
			h.failCalls--
		}
		h.mu.Unlock()
		if fail {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	h.next.ServeHTTP(w, r)
}

func (h *countingHandler) count(method string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[method]
}

func TestClientRetriesReadsAndCachesTools(t *testing.T) {
	s := newTestServer(t, &llm.MockProvider{Response: "ok"})
	h := &countingHandler{next: s.HTTPHandler(), failCalls: 1, counts: map[string]int{}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	client, err := NewClientWithStreamableHTTP(srv.URL+"/mcp", WithRetry(2, time.Millisecond))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	roles, err := client.ListRoles(context.Background())
	if err != nil || len(roles) != 4 {
		t.Fatalf("ListRoles should survive one failure: %v %q", err, roles)
	}
	if got := h.count("tools/call"); got != 2 {
		t.Errorf("expected one retried call, got %d tools/call requests", got)
	}
	if _, err := client.ViewScope(context.Background(), string(access.RoleRegionSouth)); err != nil {
		t.Fatalf("ViewScope: %v", err)
	}
	if got := h.count("tools/list"); got != 1 {
		t.Errorf("expected the tool list to be cached, got %d tools/list requests", got)
	}
}

func TestClientAskIsNotRetried(t *testing.T) {
	mock := &llm.MockProvider{Response: "ok"}
	s := newTestServer(t, mock)
	h := &countingHandler{next: s.HTTPHandler(), failCalls: 1, counts: map[string]int{}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	client, err := NewClientWithStreamableHTTP(srv.URL+"/mcp", WithRetry(2, time.Millisecond))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if _, err := client.Ask(context.Background(), string(access.RoleGrade8), "How many?", "k"); err == nil {
		t.Fatal("expected the failed question to surface")
	}
	if got := h.count("tools/call"); got != 1 {
		t.Errorf("questions must be sent once, got %d tools/call requests", got)
	}
	if len(mock.Requests()) != 0 {
		t.Errorf("the reasoning service must not be reached")
	}
}

func TestClientEmptyScopeAndMissingTool(t *testing.T) {
	empty, err := query.New(dataset.New(nil, nil), func(string) (agent.TableAgent, error) { return nil, nil })
	if err != nil {
		t.Fatal(err)
	}
	httpServer := mcpserver.NewTestStreamableHTTPServer(NewServer("adminqa-test", "1.0.0", empty).mcpServer)
	defer httpServer.Close()
	client, err := NewClientWithStreamableHTTP(httpServer.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()
	if csv, err := client.ViewScope(context.Background(), string(access.RoleSuperAdmin)); err != nil || csv != "" {
		t.Errorf("expected empty scope without error, got %q %v", csv, err)
	}

	bare := mcpserver.NewMCPServer("bare", "1.0.0", mcpserver.WithToolCapabilities(false))
	bare.AddTool(mcpgo.NewTool(ToolListRoles), func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return mcpgo.NewToolResultText("Only"), nil
	})
	bareServer := mcpserver.NewTestStreamableHTTPServer(bare)
	defer bareServer.Close()
	other, err := NewClientWithStreamableHTTP(bareServer.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if _, err := other.ViewScope(context.Background(), string(access.RoleSuperAdmin)); !stderrors.Is(err, ErrToolUnavailable) {
		t.Errorf("expected ErrToolUnavailable, got %v", err)
	}
}
