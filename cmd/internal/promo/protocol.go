package promo

import "encoding/json"

// Subprotocol is the WebSocket subprotocol spoken by the gate endpoint.
const Subprotocol = "getcanvapro.gate.v1"

// Client -> server message types.
const (
	TypeWatchAd = "watch_ad"
	TypeFollow  = "follow"
	TypeReveal  = "reveal"
	TypeClose   = "close"
)

// Server -> client message types.
const (
	TypeState      = "state"
	TypeAdStarted  = "ad_started"
	TypeAdWatched  = "ad_watched"
	TypeFollowOpen = "follow_open"
	TypeRedirect   = "redirect"
	TypeError      = "error"
)

// Message is the JSON frame exchanged in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StatePayload accompanies TypeState.
type StatePayload struct {
	AdWatched bool `json:"ad_watched"`
	Followed  bool `json:"followed"`
	Step      Step `json:"step"`
}

// AdStartedPayload accompanies TypeAdStarted.
type AdStartedPayload struct {
	DurationMS int64 `json:"duration_ms"`
}

// FollowOpenPayload accompanies TypeFollowOpen.
type FollowOpenPayload struct {
	URL string `json:"url"`
}

// RedirectPayload accompanies TypeRedirect.
type RedirectPayload struct {
	URL    string `json:"url"`
	LinkID int    `json:"link_id"`
	Color  Color  `json:"color"`
}

// ErrorPayload accompanies TypeError.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newMessage(typ string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: typ}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Payload: b}, nil
}

func statePayload(g *Gate) StatePayload {
	s := g.State()
	return StatePayload{AdWatched: s.AdWatched, Followed: s.Followed, Step: g.Step()}
}
