package promo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"

	"getcanvapro/cmd/internal/origin"
)

const (
	maxFrameBytes = 4 << 10 // 4 KiB; client frames carry no payload of note.

	defaultAdDelay      = 2 * time.Second
	defaultResetDelay   = 300 * time.Millisecond
	defaultReadIdle     = 2 * time.Minute
	defaultWriteTimeout = 5 * time.Second
	defaultRateEvents   = 30
	defaultRateWindow   = 10 * time.Second
	closeGrace          = time.Second

	// DefaultFollowURL is the social profile opened by the follow step.
	DefaultFollowURL = "https://www.instagram.com/tridev.maurya/"
)

// EventRecorder observes gate lifecycle events (metrics).
type EventRecorder interface {
	GateEvent(event string)
}

type nopRecorder struct{}

func (nopRecorder) GateEvent(string) {}

// GatewayConfig tunes the gate endpoint. Zero values fall back to defaults.
type GatewayConfig struct {
	// AllowedOrigins is the browser origin allow-list, shared with CORS.
	// "*" allows any origin.
	AllowedOrigins []string
	// OriginRequired rejects handshakes without an Origin header.
	OriginRequired bool

	AdDelay    time.Duration
	ResetDelay time.Duration
	FollowURL  string

	ReadIdleTimeout time.Duration
	WriteTimeout    time.Duration

	RateEvents int
	RateWindow time.Duration
}

func (c GatewayConfig) withDefaults() GatewayConfig {
	if c.AdDelay <= 0 {
		c.AdDelay = defaultAdDelay
	}
	if c.ResetDelay <= 0 {
		c.ResetDelay = defaultResetDelay
	}
	if strings.TrimSpace(c.FollowURL) == "" {
		c.FollowURL = DefaultFollowURL
	}
	if c.ReadIdleTimeout <= 0 {
		c.ReadIdleTimeout = defaultReadIdle
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.RateEvents <= 0 {
		c.RateEvents = defaultRateEvents
	}
	if c.RateWindow <= 0 {
		c.RateWindow = defaultRateWindow
	}
	return c
}

// Gateway is the WebSocket entrypoint for gate sessions.
// Each connection gets a fresh Gate; nothing outlives the connection.
type Gateway struct {
	log    *slog.Logger
	pool   *Pool
	cfg    GatewayConfig
	events EventRecorder

	// Hosts derived from AllowedOrigins for websocket.Accept's own origin check.
	originPatterns []string
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithEventRecorder sets the metrics sink.
func WithEventRecorder(r EventRecorder) GatewayOption {
	return func(g *Gateway) {
		if r != nil {
			g.events = r
		}
	}
}

// NewGateway constructs a Gateway serving links from pool.
func NewGateway(log *slog.Logger, pool *Pool, cfg GatewayConfig, opts ...GatewayOption) *Gateway {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	g := &Gateway{
		log:    log,
		pool:   pool,
		cfg:    cfg.withDefaults(),
		events: nopRecorder{},
	}
	g.originPatterns = origin.HostPatterns(g.cfg.AllowedOrigins)
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// ServeHTTP upgrades the request and runs one gate session.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	link, ok := g.resolveLink(r.URL.Query().Get("link"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_link", "unknown promotion link")
		return
	}

	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("gate.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		g.events.GateEvent("rejected")
		writeError(w, http.StatusForbidden, "forbidden", "origin not allowed")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.log.Info("gate.accept.fail", "err", err)
		return
	}

	if sp := conn.Subprotocol(); sp != Subprotocol {
		g.log.Info("gate.reject.subprotocol", "got", sp, "want", Subprotocol)
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	g.events.GateEvent("open")
	s := &session{
		g:    g,
		conn: conn,
		gate: NewGate(),
		link: link,
		rl:   newRateLimiter(g.cfg.RateEvents, g.cfg.RateWindow),
	}
	s.run(r.Context())
}

func (g *Gateway) resolveLink(raw string) (Link, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return g.pool.Default(), true
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return Link{}, false
	}
	return g.pool.Get(id)
}

// ---- session ----

type inbound struct {
	msg Message
	bad bool
}

// session owns one Gate. Only run's goroutine touches gate, rl and conn writes.
type session struct {
	g    *Gateway
	conn *websocket.Conn
	gate *Gate
	link Link
	rl   *rateLimiter

	adTimer    *time.Timer
	resetTimer *time.Timer
}

func (s *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)

	in := make(chan inbound)
	readErr := make(chan error, 1)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readLoop(ctx, in, readErr)
	}()

	code, reason := s.loop(ctx, in, readErr)

	s.stopTimers()
	s.gate.Reset()
	_ = s.conn.Close(code, reason)
	cancel()

	select {
	case <-readDone:
	case <-time.After(closeGrace):
	}
}

func (s *session) loop(ctx context.Context, in <-chan inbound, readErr <-chan error) (websocket.StatusCode, string) {
	if err := s.sendState(ctx); err != nil {
		return websocket.StatusAbnormalClosure, "write failed"
	}

	for {
		select {
		case <-ctx.Done():
			return websocket.StatusGoingAway, "context done"

		case err := <-readErr:
			s.g.events.GateEvent("abandoned")
			switch classifyReadErr(err) {
			case readErrClose, readErrCtxDone:
				return websocket.StatusNormalClosure, "peer closed"
			case readErrConnClosed:
				return websocket.StatusAbnormalClosure, "conn closed"
			default:
				s.g.log.Info("gate.read.fail", "err", err)
				return websocket.StatusAbnormalClosure, "read failed"
			}

		case <-s.timerC(s.adTimer):
			s.adTimer = nil
			if err := s.gate.CompleteAd(); err != nil {
				continue
			}
			s.g.events.GateEvent("ad_watched")
			if err := s.send(ctx, TypeAdWatched, nil); err != nil {
				return websocket.StatusAbnormalClosure, "write failed"
			}
			if err := s.sendState(ctx); err != nil {
				return websocket.StatusAbnormalClosure, "write failed"
			}

		case <-s.timerC(s.resetTimer):
			s.resetTimer = nil
			s.gate.Reset()
			return websocket.StatusNormalClosure, "revealed"

		case ev := <-in:
			if !s.rl.allow(time.Now()) {
				_ = s.sendError(ctx, "rate_limited", "too many events")
				s.g.events.GateEvent("rate_limited")
				return websocket.StatusPolicyViolation, "rate limited"
			}
			if ev.bad {
				if err := s.sendError(ctx, "bad_json", "invalid JSON"); err != nil {
					return websocket.StatusAbnormalClosure, "write failed"
				}
				continue
			}

			done, err := s.handle(ctx, ev.msg)
			if err != nil {
				return websocket.StatusAbnormalClosure, "write failed"
			}
			if done {
				return websocket.StatusNormalClosure, "closed"
			}
		}
	}
}

// handle applies one client action. done reports that the visitor closed the gate.
func (s *session) handle(ctx context.Context, m Message) (done bool, err error) {
	if s.resetTimer != nil && m.Type != TypeClose {
		return false, s.sendError(ctx, "closing", "gate is closing")
	}

	switch m.Type {
	case TypeWatchAd:
		if gerr := s.gate.StartAd(); gerr != nil {
			return false, s.sendGateError(ctx, gerr)
		}
		s.adTimer = time.NewTimer(s.g.cfg.AdDelay)
		s.g.events.GateEvent("ad_started")
		return false, s.send(ctx, TypeAdStarted, AdStartedPayload{DurationMS: s.g.cfg.AdDelay.Milliseconds()})

	case TypeFollow:
		if gerr := s.gate.Follow(); gerr != nil {
			return false, s.sendGateError(ctx, gerr)
		}
		s.g.events.GateEvent("followed")
		if err := s.send(ctx, TypeFollowOpen, FollowOpenPayload{URL: s.g.cfg.FollowURL}); err != nil {
			return false, err
		}
		return false, s.sendState(ctx)

	case TypeReveal:
		if gerr := s.gate.Reveal(); gerr != nil {
			return false, s.sendGateError(ctx, gerr)
		}
		s.g.events.GateEvent("revealed")
		s.g.log.Info("gate.reveal", "link_id", s.link.ID, "color", string(s.link.Color))
		s.resetTimer = time.NewTimer(s.g.cfg.ResetDelay)
		return false, s.send(ctx, TypeRedirect, RedirectPayload{URL: s.link.URL, LinkID: s.link.ID, Color: s.link.Color})

	case TypeClose:
		s.stopTimers()
		s.gate.Reset()
		s.g.events.GateEvent("closed")
		return true, s.sendState(ctx)

	default:
		return false, s.sendError(ctx, "unsupported", fmt.Sprintf("unsupported type: %s", m.Type))
	}
}

func (s *session) timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (s *session) stopTimers() {
	if s.adTimer != nil {
		s.adTimer.Stop()
		s.adTimer = nil
	}
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
}

func (s *session) readLoop(ctx context.Context, in chan<- inbound, readErr chan<- error) {
	for {
		readCtx, readCancel := context.WithTimeout(ctx, s.g.cfg.ReadIdleTimeout)
		mt, data, err := s.conn.Read(readCtx)
		readCancel()
		if err != nil {
			readErr <- err
			return
		}

		var ev inbound
		if mt != websocket.MessageText || json.Unmarshal(data, &ev.msg) != nil {
			ev.bad = true
		}

		select {
		case in <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// ---- writes ----

func (s *session) send(ctx context.Context, typ string, payload any) error {
	m, err := newMessage(typ, payload)
	if err != nil {
		return err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}

	wctx, cancel := context.WithTimeout(ctx, s.g.cfg.WriteTimeout)
	defer cancel()
	if err := s.conn.Write(wctx, websocket.MessageText, b); err != nil {
		s.g.log.Info("gate.write.fail", "close_status", websocket.CloseStatus(err), "err", err)
		return err
	}
	return nil
}

func (s *session) sendState(ctx context.Context) error {
	return s.send(ctx, TypeState, statePayload(s.gate))
}

func (s *session) sendError(ctx context.Context, code, msg string) error {
	return s.send(ctx, TypeError, ErrorPayload{Code: code, Message: msg})
}

func (s *session) sendGateError(ctx context.Context, err error) error {
	return s.sendError(ctx, gateErrorCode(err), err.Error())
}

func gateErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAdAlreadyWatched):
		return "ad_already_watched"
	case errors.Is(err, ErrAdInProgress):
		return "ad_in_progress"
	case errors.Is(err, ErrAdNotStarted):
		return "ad_not_started"
	case errors.Is(err, ErrStepLocked):
		return "step_locked"
	default:
		return "gate_error"
	}
}

// ---- read error classification ----

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
)

func classifyReadErr(err error) readErrKind {
	if websocket.CloseStatus(err) != -1 {
		return readErrClose
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return readErrCtxDone
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return readErrConnClosed
	}
	return readErrUnknown
}

// ---- origin policy ----

func (g *Gateway) enforceOrigin(r *http.Request) error {
	o := strings.TrimSpace(r.Header.Get("Origin"))
	if o == "" {
		if g.cfg.OriginRequired {
			return errors.New("missing origin")
		}
		return nil
	}
	// Same-host requests come from the static site served by this process.
	if origin.Allowed(g.cfg.AllowedOrigins, o) || origin.SameHost(o, r.Host) {
		return nil
	}
	return fmt.Errorf("origin not allowed: %s", o)
}
