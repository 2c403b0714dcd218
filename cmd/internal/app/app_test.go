package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"getcanvapro/cmd/internal/intake"
	"getcanvapro/cmd/internal/promo"
)

const testAdminToken = "test-admin-token-0123456789abcdef"

func TestRuntimeBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "explicit localhost", in: "127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{name: "bind all v4", in: "0.0.0.0:3000", want: "http://127.0.0.1:3000"},
		{name: "bind all v6", in: "[::]:9090", want: "http://127.0.0.1:9090"},
		{name: "empty host", in: ":3000", want: "http://127.0.0.1:3000"},
		{name: "ipv6 host", in: "[2001:db8::1]:9090", want: "http://[2001:db8::1]:9090"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := runtimeBaseURL(tc.in)
			if got != tc.want {
				t.Fatalf("runtimeBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWSBaseURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "http://127.0.0.1:8080", want: "ws://127.0.0.1:8080"},
		{in: "https://getcanvapro.in", want: "wss://getcanvapro.in"},
		{in: "127.0.0.1:8080", want: "ws://127.0.0.1:8080"},
	}

	for _, tc := range cases {
		got := wsBaseURL(tc.in)
		if got != tc.want {
			t.Fatalf("wsBaseURL(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()

	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>spa</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(static, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}

	return Config{
		HTTPAddr:           "127.0.0.1:0",
		LogLevel:           "error",
		LogFormat:          "json",
		CORSAllowedOrigins: []string{"https://getcanvapro.in"},
		CORSMaxAgeSeconds:  600,
		StaticDir:          static,
		UploadDir:          filepath.Join(t.TempDir(), "uploads"),
		MaxResumeBytes:     1 << 20,
		GateAdDelay:        50 * time.Millisecond,
		GateResetDelay:     50 * time.Millisecond,
		AdminToken:         testAdminToken,
		MetricsEnabled:     true,
	}
}

func newTestServer(t *testing.T, cfg Config) (*App, *httptest.Server) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = a.Close(context.Background())
	})
	return a, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func TestApp_HealthAndReady(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, testConfig(t))

	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok\n" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}

	resp, _ = get(t, ts.URL+"/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz = %d", resp.StatusCode)
	}
}

func TestApp_ReadyRequiresDB(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.ReadinessRequireDB = true
	_, ts := newTestServer(t, cfg)

	resp, _ := get(t, ts.URL+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d, want 503 for in-memory store", resp.StatusCode)
	}
}

func TestApp_Promotions(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, testConfig(t))

	resp, body := get(t, ts.URL+"/api/promotions")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Links []promo.Link `json:"links"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Links) != 10 || out.Links[0].ID != 1 {
		t.Fatalf("links = %+v", out.Links)
	}
}

func TestApp_ApplyAndList(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	_, ts := newTestServer(t, cfg)

	client := intake.NewClient(ts.URL, intake.WithMaxResumeBytes(cfg.MaxResumeBytes))
	app, err := client.Submit(context.Background(), intake.Form{
		Name:       "Jane Doe",
		Email:      "jane@example.com",
		Phone:      "9876543210",
		ResumeName: "cv.pdf",
		Resume:     []byte("%PDF-1.7"),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if app.ID == "" || app.Status != "pending" {
		t.Fatalf("application = %+v", app)
	}
	if _, err := os.Stat(filepath.FromSlash(app.ResumePath)); err != nil {
		t.Fatalf("resume not stored at %q: %v", app.ResumePath, err)
	}

	resp, _ := get(t, ts.URL+"/api/internship/applications")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("list without token = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/internship/applications", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var list struct {
		Applications []json.RawMessage `json:"applications"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || len(list.Applications) != 1 {
		t.Fatalf("list = %d %d", resp.StatusCode, len(list.Applications))
	}
}

func TestApp_APIUnknownIsJSON(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, testConfig(t))

	resp, body := get(t, ts.URL+"/api/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") || !strings.Contains(body, `"not_found"`) {
		t.Fatalf("body = %q", body)
	}
}

func TestApp_SPAFallback(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, testConfig(t))

	resp, body := get(t, ts.URL+"/internship")
	if resp.StatusCode != http.StatusOK || body != "<html>spa</html>" {
		t.Fatalf("fallback = %d %q", resp.StatusCode, body)
	}

	resp, body = get(t, ts.URL+"/app.js")
	if resp.StatusCode != http.StatusOK || body != "console.log(1)" {
		t.Fatalf("static = %d %q", resp.StatusCode, body)
	}
}

func TestApp_Metrics(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, testConfig(t))

	get(t, ts.URL+"/healthz")
	resp, body := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, `getcanvapro_http_requests_total{method="GET",route="/healthz",status="200"} 1`) {
		t.Fatalf("request counter missing:\n%s", body)
	}
}

func TestApp_MetricsDisabled(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.MetricsEnabled = false
	_, ts := newTestServer(t, cfg)

	_, body := get(t, ts.URL+"/metrics")
	if strings.Contains(body, "getcanvapro_") {
		t.Fatalf("metrics exposed while disabled")
	}
}

func TestApp_GateThroughRouter(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, testConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/gate/ws?link=2"
	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{Subprotocols: []string{promo.Subprotocol}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	_, raw, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m promo.Message
	if err := json.Unmarshal(raw, &m); err != nil || m.Type != promo.TypeState {
		t.Fatalf("first message = %s (%v)", raw, err)
	}
}

func TestApp_CorsRejectsForeignOrigin(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, testConfig(t))

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/promotions", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestApp_OriginEntriesAgreeAcrossCORSAndGate(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.CORSAllowedOrigins = []string{"https://getcanvapro.in/", "http://127.0.0.1:*"}
	if err := ValidateSecurityConfig(cfg); err != nil {
		t.Fatalf("ValidateSecurityConfig: %v", err)
	}
	_, ts := newTestServer(t, cfg)

	for _, o := range []string{"https://getcanvapro.in", "http://127.0.0.1:5173"} {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/promotions", nil)
		req.Header.Set("Origin", o)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("CORS %q: status = %d", o, resp.StatusCode)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/gate/ws"
		hdr := http.Header{}
		hdr.Set("Origin", o)
		conn, wsResp, err := websocket.Dial(ctx, u, &websocket.DialOptions{
			Subprotocols: []string{promo.Subprotocol},
			HTTPHeader:   hdr,
		})
		if wsResp != nil && wsResp.Body != nil {
			_ = wsResp.Body.Close()
		}
		if err != nil {
			cancel()
			t.Fatalf("gate %q: %v", o, err)
		}
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
		cancel()
	}
}
