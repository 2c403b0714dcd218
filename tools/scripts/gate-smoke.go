// Package main provides a CI-friendly WebSocket smoke test for the promotional gate.
//
// It validates:
//   - handshake + subprotocol selection
//   - initial state frame
//   - out-of-order steps are refused
//   - watch_ad -> ad_watched after the server-side delay
//   - follow -> follow_open
//   - reveal -> redirect to the requested link, then a normal close
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const (
	defaultSubprotocol = "getcanvapro.gate.v1"
	maxReadBytes       = 64 << 10
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type statePayload struct {
	AdWatched bool   `json:"ad_watched"`
	Followed  bool   `json:"followed"`
	Step      string `json:"step"`
}

type redirectPayload struct {
	URL    string `json:"url"`
	LinkID int    `json:"link_id"`
	Color  string `json:"color"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type smokeClient struct {
	conn  *websocket.Conn
	inbox chan frame
	errCh chan error
}

func main() {
	var (
		wsURL   = flag.String("url", "ws://127.0.0.1:3000/api/gate/ws", "Gate WebSocket URL")
		origin  = flag.String("origin", "http://localhost:3000", "Origin header to send (browser-like WS handshake)")
		link    = flag.Int("link", 0, "Promotion link id (0 = server default)")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}

	target := *wsURL
	if *link > 0 {
		u, _ := url.Parse(target)
		q := u.Query()
		q.Set("link", fmt.Sprint(*link))
		u.RawQuery = q.Encode()
		target = u.String()
	}

	root := context.Background()
	c := mustConnect(root, target, *origin, *timeout)
	defer closeWS(c.conn)

	st := c.mustState(root, *timeout)
	if st.AdWatched || st.Followed || st.Step != "watch_ad" {
		fatalf("fresh session not at watch_ad: %+v", st)
	}

	c.mustSend(root, "follow", *timeout)
	c.mustError(root, "step_locked", *timeout)

	c.mustSend(root, "watch_ad", *timeout)
	c.mustReadUntilType(root, "ad_started", *timeout)
	// The ad delay is server-configured; allow it on top of the step timeout.
	c.mustReadUntilType(root, "ad_watched", 2 * *timeout)
	if st := c.mustState(root, *timeout); st.Step != "follow" {
		fatalf("after ad: %+v", st)
	}

	c.mustSend(root, "follow", *timeout)
	c.mustReadUntilType(root, "follow_open", *timeout)
	if st := c.mustState(root, *timeout); st.Step != "reveal" {
		fatalf("after follow: %+v", st)
	}

	c.mustSend(root, "reveal", *timeout)
	m := c.mustReadUntilType(root, "redirect", *timeout)
	var rp redirectPayload
	if err := json.Unmarshal(m.Payload, &rp); err != nil {
		fatalf("unmarshal redirect payload: %v", err)
	}
	if rp.URL == "" {
		fatalf("redirect missing url")
	}
	if *link > 0 && rp.LinkID != *link {
		fatalf("redirect link mismatch: got=%d want=%d", rp.LinkID, *link)
	}

	c.mustClosedNormally(root, 2 * *timeout)

	if *verbose {
		fmt.Printf("redirect: id=%d color=%s url=%s\n", rp.LinkID, rp.Color, rp.URL)
	}
	fmt.Println("OK")
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	if strings.TrimSpace(u.Path) == "" {
		return errors.New("missing path")
	}
	return nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func mustConnect(parent context.Context, wsURL, origin string, stepTimeout time.Duration) *smokeClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{defaultSubprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect: %v", err)
	}

	if got := conn.Subprotocol(); got != defaultSubprotocol {
		fatalf("subprotocol mismatch: got=%q want=%q", got, defaultSubprotocol)
	}

	conn.SetReadLimit(maxReadBytes)

	c := &smokeClient{
		conn:  conn,
		inbox: make(chan frame, 64),
		errCh: make(chan error, 1),
	}
	c.startReadLoop()
	return c
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			mt, data, err := c.conn.Read(context.Background())
			if err != nil {
				select {
				case c.errCh <- err:
				default:
				}
				return
			}
			if mt != websocket.MessageText {
				select {
				case c.errCh <- fmt.Errorf("unsupported message type: %v", mt):
				default:
				}
				return
			}

			var f frame
			if err := json.Unmarshal(data, &f); err != nil || f.Type == "" {
				select {
				case c.errCh <- fmt.Errorf("bad frame: %q", data):
				default:
				}
				return
			}

			select {
			case c.inbox <- f:
			default:
				select {
				case c.errCh <- errors.New("inbox overflow: consumer too slow"):
				default:
				}
				return
			}
		}
	}()
}

func (c *smokeClient) mustSend(parent context.Context, typ string, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(frame{Type: typ})
	if err != nil {
		fatalf("marshal frame: %v", err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write %s failed: %v", typ, err)
	}
}

func (c *smokeClient) next(parent context.Context, want string, stepTimeout time.Duration) frame {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		fatalf("timeout waiting for %q: %v", want, ctx.Err())
	case err := <-c.errCh:
		fatalf("connection error while waiting for %q: %v", want, err)
	case f, ok := <-c.inbox:
		if !ok {
			fatalf("connection closed while waiting for %q", want)
		}
		return f
	}
	panic("unreachable")
}

func (c *smokeClient) mustReadUntilType(parent context.Context, wantType string, stepTimeout time.Duration) frame {
	f := c.next(parent, wantType, stepTimeout)
	if f.Type == wantType {
		return f
	}
	if f.Type == "error" {
		var ep errorPayload
		_ = json.Unmarshal(f.Payload, &ep)
		fatalf("server error: code=%q msg=%q", ep.Code, ep.Message)
	}
	fatalf("unexpected frame type: got=%q want=%q", f.Type, wantType)
	return frame{}
}

func (c *smokeClient) mustState(parent context.Context, stepTimeout time.Duration) statePayload {
	f := c.mustReadUntilType(parent, "state", stepTimeout)
	var p statePayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		fatalf("unmarshal state payload: %v", err)
	}
	return p
}

func (c *smokeClient) mustError(parent context.Context, code string, stepTimeout time.Duration) {
	f := c.next(parent, "error", stepTimeout)
	if f.Type != "error" {
		fatalf("expected error %q, got frame %q", code, f.Type)
	}
	var ep errorPayload
	_ = json.Unmarshal(f.Payload, &ep)
	if ep.Code != code {
		fatalf("error code mismatch: got=%q want=%q", ep.Code, code)
	}
}

func (c *smokeClient) mustClosedNormally(parent context.Context, wait time.Duration) {
	ctx, cancel := context.WithTimeout(parent, wait)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("server did not close the session: %v", ctx.Err())
		case err := <-c.errCh:
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				fatalf("unexpected close: %v", err)
			}
			return
		case f, ok := <-c.inbox:
			if !ok {
				c.inbox = nil
				continue
			}
			fatalf("unexpected frame after redirect: %q", f.Type)
		}
	}
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
