package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jankiebot/jankie/internal/forum"
	"github.com/jankiebot/jankie/internal/forum/reddit"
	"github.com/jankiebot/jankie/internal/secrets"
)

const testCreds = `{"client_id":"id","client_secret":"secret","user_agent":"jankie-test/1.0","username":"jankie_bot","password":"pw"}`

type stubForum struct {
	mu       sync.Mutex
	comments []forum.Comment
	replies  []string
	meErr    error
}

func (s *stubForum) RecentComments(ctx context.Context, subreddit string, limit int) ([]forum.Comment, error) {
	return s.comments, nil
}

func (s *stubForum) Reply(ctx context.Context, c forum.Comment, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, c.ID)
	return nil
}

func (s *stubForum) Me(ctx context.Context) (string, error) {
	if s.meErr != nil {
		return "", s.meErr
	}
	return "jankie_bot", nil
}

// setupEnv points the bot at a JSON secrets file seeded with credentials and
// replaces the reddit client with stub.
func setupEnv(t *testing.T, stub *stubForum) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "secrets.json")
	seed, _ := json.Marshal(map[string]string{"/jankie/reddit/creds": testCreds})
	if err := os.WriteFile(path, seed, 0o600); err != nil {
		t.Fatalf("write secrets: %v", err)
	}

	t.Setenv("SECRET_BACKEND", "file")
	t.Setenv("SECRETS_FILE", path)
	t.Setenv("AWS_LAMBDA_RUNTIME_API", "")
	t.Setenv("RUN_MODE", "")
	t.Setenv("DRY_RUN", "")
	t.Setenv("TRIGGERS_FILE", "")
	t.Setenv("TRIGGER_JWT_SECRET", "")
	t.Setenv("LOG_LEVEL", "error")

	prevDotEnv, prevClient := loadDotEnv, newForumClient
	t.Cleanup(func() { loadDotEnv, newForumClient = prevDotEnv, prevClient })
	loadDotEnv = func(...string) error { return nil }
	newForumClient = func(cfg reddit.Config) (forum.Client, error) {
		if cfg.Username != "jankie_bot" || cfg.UserAgent != "jankie-test/1.0" {
			t.Errorf("reddit config = %+v", cfg)
		}
		return stub, nil
	}
	return path
}

func readCursor(t *testing.T, path string) string {
	t.Helper()
	store, err := secrets.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	v, err := store.Get(context.Background(), "/jankie/reddit/last_comment_id")
	if errors.Is(err, secrets.ErrNotFound) {
		return ""
	}
	if err != nil {
		t.Fatalf("read cursor: %v", err)
	}
	return v
}

func noServe(t *testing.T) serveFunc {
	return func(context.Context, string, http.Handler) error {
		t.Fatalf("serve should not be called")
		return nil
	}
}

func TestRun_OnceRepliesAndPersists(t *testing.T) {
	stub := &stubForum{comments: []forum.Comment{
		{ID: "c3", Body: "plain"},
		{ID: "c2", Body: "hey everyone!"},
		{ID: "c1", Body: "plain"},
	}}
	path := setupEnv(t, stub)

	if err := run(context.Background(), nil, noServe(t)); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(stub.replies) != 1 || stub.replies[0] != "c2" {
		t.Errorf("replies = %v, want [c2]", stub.replies)
	}
	if got := readCursor(t, path); got != "c3" {
		t.Errorf("cursor = %q, want c3", got)
	}
}

func TestRun_OnceDryRun(t *testing.T) {
	stub := &stubForum{comments: []forum.Comment{{ID: "c2", Body: "JANKIE"}}}
	path := setupEnv(t, stub)
	t.Setenv("DRY_RUN", "True")

	if err := run(context.Background(), nil, noServe(t)); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(stub.replies) != 0 {
		t.Errorf("dry run replied: %v", stub.replies)
	}
	if got := readCursor(t, path); got != "" {
		t.Errorf("dry run wrote cursor %q", got)
	}
}

func TestRun_MissingCredentials(t *testing.T) {
	stub := &stubForum{}
	setupEnv(t, stub)
	t.Setenv("SECRETS_FILE", filepath.Join(t.TempDir(), "empty.json"))

	err := run(context.Background(), nil, noServe(t))
	if !errors.Is(err, secrets.ErrNotFound) {
		t.Fatalf("run() error = %v, want ErrNotFound", err)
	}
}

func TestRun_IdentifyFailure(t *testing.T) {
	stub := &stubForum{meErr: errors.New("401 unauthorized")}
	setupEnv(t, stub)

	err := run(context.Background(), nil, noServe(t))
	if err == nil || !strings.Contains(err.Error(), "identify reddit account") {
		t.Fatalf("run() error = %v", err)
	}
}

func TestRun_LambdaHandler(t *testing.T) {
	stub := &stubForum{comments: []forum.Comment{{ID: "c1", Body: "jankie"}}}
	setupEnv(t, stub)
	t.Setenv("RUN_MODE", "lambda")

	var handler func(context.Context, json.RawMessage) (Response, error)
	prev := startLambda
	t.Cleanup(func() { startLambda = prev })
	startLambda = func(h any) {
		handler = h.(func(context.Context, json.RawMessage) (Response, error))
	}

	if err := run(context.Background(), nil, noServe(t)); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if handler == nil {
		t.Fatal("lambda handler not registered")
	}

	resp, err := handler(context.Background(), json.RawMessage(`{"source":"aws.events"}`))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != `"Completed check for keyword."` {
		t.Errorf("response = %+v", resp)
	}
	if len(stub.replies) != 1 {
		t.Errorf("replies = %v, want one", stub.replies)
	}
}

func TestRun_ServeWiresRoutes(t *testing.T) {
	stub := &stubForum{comments: []forum.Comment{{ID: "c1", Body: "plain"}}}
	setupEnv(t, stub)
	t.Setenv("RUN_MODE", "serve")
	t.Setenv("PORT", "4321")

	var servedAddr string
	var servedHandler http.Handler
	err := run(context.Background(), nil, func(_ context.Context, addr string, h http.Handler) error {
		servedAddr, servedHandler = addr, h
		return nil
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if servedAddr != ":4321" {
		t.Fatalf("serve addr = %q, want :4321", servedAddr)
	}

	rec := httptest.NewRecorder()
	servedHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/run status = %d (%s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	servedHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `jankie_invocations_total{result="success"} 1`) {
		t.Errorf("/metrics missing invocation count:\n%s", rec.Body.String())
	}
}

func TestRun_ServeFailure(t *testing.T) {
	setupEnv(t, &stubForum{})
	t.Setenv("RUN_MODE", "serve")

	expected := errors.New("listen failed")
	err := run(context.Background(), nil, func(context.Context, string, http.Handler) error { return expected })
	if !errors.Is(err, expected) {
		t.Fatalf("run() error = %v, want to wrap %v", err, expected)
	}
}

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	_, port, _ := net.SplitHostPort(l.Addr().String())
	return port
}

func TestRun_ServeStopsOnCancel(t *testing.T) {
	setupEnv(t, &stubForum{})
	t.Setenv("RUN_MODE", "serve")
	port := freePort(t)
	t.Setenv("PORT", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- run(ctx, nil, listenAndServe) }()

	url := "http://127.0.0.1:" + port + "/health"
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run still blocked after ctx cancel")
	}
}

func TestListenAndServe(t *testing.T) {
	t.Run("stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- listenAndServe(ctx, "127.0.0.1:0", http.NotFoundHandler())
		}()
		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("listenAndServe() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("listenAndServe did not return after cancel")
		}
	})

	t.Run("listen error", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		defer l.Close()

		err = listenAndServe(context.Background(), l.Addr().String(), http.NotFoundHandler())
		if err == nil {
			t.Fatal("expected error for address in use")
		}
	})
}

func TestRun_InvalidConfig(t *testing.T) {
	setupEnv(t, &stubForum{})
	t.Setenv("SECRET_BACKEND", "vault")

	err := run(context.Background(), nil, noServe(t))
	if err == nil || !strings.Contains(err.Error(), "failed to load configuration") {
		t.Fatalf("run() error = %v", err)
	}
}

func TestRun_TokenCommand(t *testing.T) {
	setupEnv(t, &stubForum{})
	t.Setenv("TRIGGER_JWT_SECRET", "s3cret")

	var buf bytes.Buffer
	prev := stdout
	t.Cleanup(func() { stdout = prev })
	stdout = &buf

	if err := run(context.Background(), []string{"token", "5m"}, noServe(t)); err != nil {
		t.Fatalf("run(token) error = %v", err)
	}
	if parts := strings.Split(strings.TrimSpace(buf.String()), "."); len(parts) != 3 {
		t.Errorf("output %q is not a JWT", buf.String())
	}

	t.Setenv("TRIGGER_JWT_SECRET", "")
	if err := run(context.Background(), []string{"token"}, noServe(t)); err == nil {
		t.Error("expected error without TRIGGER_JWT_SECRET")
	}
}
