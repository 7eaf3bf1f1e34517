package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/notionsite/internal/apperr"
	"github.com/starford/notionsite/internal/assets"
	"github.com/starford/notionsite/internal/pipeline"
	"github.com/starford/notionsite/internal/siteservice"
	"github.com/starford/notionsite/internal/testutil"
)

type apiEnv struct {
	svc    *siteservice.Service
	runner *testutil.Runner
	router http.Handler
	root   string
}

func blogCollection() pipeline.Collection {
	return pipeline.Collection{
		PostType: "blog",
		Required: pipeline.Required{Title: "Title"},
		Paths:    pipeline.Paths{Markdown: "src/blog/"},
		Assets: assets.Config{
			Image: assets.KindConfig{DownloadDir: "src/assets/img/", MarkdownPath: "/assets/img/"},
		},
	}
}

// testEnv sets up a temp site, SQLite ledger, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) *apiEnv {
	t.Helper()
	return testEnvFull(t, authToken != "", authToken, nil)
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) *apiEnv {
	t.Helper()
	root, store := testutil.TestSite(t)
	db := testutil.TestLedger(t)
	runner := &testutil.Runner{Store: store, Files: map[string]string{}}

	svc := siteservice.New(siteservice.Options{
		Collections: []pipeline.Collection{blogCollection()},
		Runner:      runner,
		Store:       store,
		Ledger:      db,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	router := NewRouter(svc, authEnabled, authToken, sseHandler, root)
	return &apiEnv{svc: svc, runner: runner, router: router, root: root}
}

func (e *apiEnv) do(method, target string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestListCollections(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(http.MethodGet, "/collections", nil)
	var resp CollectionsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || len(resp.Collections) != 1 || resp.Collections[0] != "blog" {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestRunPassAndGet(t *testing.T) {
	e := testEnv(t, "")
	e.runner.Files["src/blog/hello.md"] = "---\ntitle: Hello\n---\nWorld\n"

	w := e.do(http.MethodPost, "/passes", RunPassRequest{Collection: "blog", Wait: true})
	if w.Code != http.StatusOK {
		t.Fatalf("run status = %d, body = %s", w.Code, w.Body.String())
	}
	var pass Pass
	_ = json.Unmarshal(w.Body.Bytes(), &pass)
	if pass.ID == "" || pass.Succeeded != 1 {
		t.Fatalf("pass = %+v", pass)
	}

	w = e.do(http.MethodGet, "/passes/"+pass.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got Pass
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got.Records) != 1 || got.Records[0].Path != "src/blog/hello.md" {
		t.Errorf("records = %+v", got.Records)
	}

	w = e.do(http.MethodGet, "/passes?collection=blog", nil)
	var list PassListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || len(list.Passes) != 1 {
		t.Errorf("list = %+v", list)
	}
}

func TestRunPass_Background(t *testing.T) {
	e := testEnv(t, "")
	e.runner.Release = make(chan struct{})

	w := e.do(http.MethodPost, "/passes", RunPassRequest{Collection: "blog"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, body = %s", w.Code, w.Body.String())
	}
	w = e.do(http.MethodPost, "/passes", RunPassRequest{Collection: "blog", Wait: true})
	if w.Code != http.StatusConflict {
		t.Errorf("concurrent run = %d, want 409", w.Code)
	}
	close(e.runner.Release)
	e.svc.Wait()
}

func TestRunPass_Errors(t *testing.T) {
	e := testEnv(t, "")

	if w := e.do(http.MethodPost, "/passes", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing collection = %d, want 400", w.Code)
	}
	if w := e.do(http.MethodPost, "/passes", RunPassRequest{Collection: "nope", Wait: true}); w.Code != http.StatusNotFound {
		t.Errorf("unknown collection = %d, want 404", w.Code)
	}

	e.runner.Err = apperr.ErrSelection
	w := e.do(http.MethodPost, "/passes", RunPassRequest{Collection: "blog", Wait: true})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("selection failure = %d, want 502", w.Code)
	}
	var resp PassFailedResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Pass == nil || resp.Pass.Status != "aborted" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetPass_NotFound(t *testing.T) {
	e := testEnv(t, "")
	if w := e.do(http.MethodGet, "/passes/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing pass = %d, want 404", w.Code)
	}
}

func TestOutputs(t *testing.T) {
	e := testEnv(t, "")
	e.runner.Files["src/blog/hello.md"] = "---\ntitle: Hello\ntags: [\"go\"]\n---\nRemote ![x](https://example.com/x.png)\n"
	if w := e.do(http.MethodPost, "/passes", RunPassRequest{Collection: "blog", Wait: true}); w.Code != http.StatusOK {
		t.Fatalf("run status = %d", w.Code)
	}

	w := e.do(http.MethodGet, "/outputs?collection=blog", nil)
	var list OutputListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || list.Outputs[0].Title != "Hello" {
		t.Errorf("list = %+v", list)
	}

	w = e.do(http.MethodGet, "/outputs/src%2Fblog%2Fhello.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get output = %d, body = %s", w.Code, w.Body.String())
	}
	var out OutputDetail
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Title != "Hello" || len(out.Tags) != 1 || len(out.Assets) != 1 {
		t.Errorf("out = %+v", out)
	}

	w = e.do(http.MethodGet, "/assets/remote", nil)
	var remote RemoteAssetsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &remote)
	if urls := remote.Outputs["src/blog/hello.md"]; len(urls) != 1 || urls[0] != "https://example.com/x.png" {
		t.Errorf("remote = %+v", remote)
	}

	w = e.do(http.MethodGet, "/assets/users?destination=https://example.com/x.png", nil)
	var users AssetUsersResponse
	_ = json.Unmarshal(w.Body.Bytes(), &users)
	if len(users.Outputs) != 1 || users.Outputs[0] != "src/blog/hello.md" {
		t.Errorf("users = %+v", users)
	}
}

func TestGetOutput_NotFound(t *testing.T) {
	e := testEnv(t, "")
	if w := e.do(http.MethodGet, "/outputs/src/blog/nope.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing output = %d, want 404", w.Code)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	e := testEnv(t, "")
	if w := e.do(http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestAssetUsersMissingDestination(t *testing.T) {
	e := testEnv(t, "")
	if w := e.do(http.MethodGet, "/assets/users", nil); w.Code != http.StatusBadRequest {
		t.Errorf("no destination = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/collections", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	e := testEnv(t, "secret123")
	if w := e.do(http.MethodGet, "/passes", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	e := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/passes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	e := testEnv(t, "")
	if w := e.do(http.MethodGet, "/passes", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	e := testEnvFull(t, true, "secret", sseStub())
	if w := e.do(http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	e := testEnvFull(t, true, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// Asset file tests.

func TestServeAssetFile(t *testing.T) {
	e := testEnv(t, "")
	dir := filepath.Join(e.root, "src", "assets", "img")
	_ = os.MkdirAll(dir, 0o755)
	_ = os.WriteFile(filepath.Join(dir, "hello_0.png"), []byte("fake-png-data"), 0o644)

	w := e.do(http.MethodGet, "/files/assets/img/hello_0.png", nil)
	if w.Code != http.StatusOK || w.Body.String() != "fake-png-data" {
		t.Errorf("serve = %d, body = %q", w.Code, w.Body.String())
	}
}

func TestServeAssetFile_NotFound(t *testing.T) {
	e := testEnv(t, "")
	for _, p := range []string{"/files/assets/img/nope.png", "/files/unmounted/x.png", "/files/assets/img"} {
		if w := e.do(http.MethodGet, p, nil); w.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404", p, w.Code)
		}
	}
}

func TestServeAssetFile_TraversalBlocked(t *testing.T) {
	root := t.TempDir()
	_ = os.WriteFile(filepath.Join(root, "secret.md"), []byte("secret"), 0o644)
	h := NewAssetHandler(AssetMounts(root, []pipeline.Collection{blogCollection()}))

	for _, link := range []string{"assets/img/../../secret.md", "assets/img/../../../etc/passwd", "../secret.md"} {
		if p, ok := h.resolve(link); ok {
			t.Errorf("resolve(%q) = %q, want rejected", link, p)
		}
	}
}

func TestAssetMounts(t *testing.T) {
	c := blogCollection()
	c.Assets.PDF = assets.KindConfig{DownloadDir: "src/assets/pdf", MarkdownPath: "assets/pdf/"}
	mounts := AssetMounts("/site", []pipeline.Collection{c, blogCollection()})
	if len(mounts) != 2 {
		t.Fatalf("mounts = %+v", mounts)
	}
	for _, m := range mounts {
		if m.Prefix != "assets/img" && m.Prefix != "assets/pdf" {
			t.Errorf("prefix = %q", m.Prefix)
		}
	}
}
