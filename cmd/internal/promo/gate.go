package promo

import "errors"

// Gate errors. All are client errors: the visitor pressed a button out of order.
var (
	ErrAdAlreadyWatched = errors.New("ad already watched")
	ErrAdInProgress     = errors.New("ad in progress")
	ErrAdNotStarted     = errors.New("ad not started")
	ErrStepLocked       = errors.New("step locked")
)

// Step is the next action the visitor can take.
type Step string

const (
	StepWatchAd Step = "watch_ad"
	StepFollow  Step = "follow"
	StepReveal  Step = "reveal"
)

// GateState is the visitor-visible progress.
type GateState struct {
	AdWatched bool `json:"ad_watched"`
	Followed  bool `json:"followed"`
}

// Gate is the funnel for one visitor. Neither step is verified: the ad is a
// fixed delay and following is taken on trust.
//
// Followed implies AdWatched in every reachable state.
// A Gate is not safe for concurrent use.
type Gate struct {
	adRunning bool
	state     GateState
}

// NewGate returns a gate in its initial state.
func NewGate() *Gate { return &Gate{} }

// StartAd begins the simulated ad.
func (g *Gate) StartAd() error {
	switch {
	case g.state.AdWatched:
		return ErrAdAlreadyWatched
	case g.adRunning:
		return ErrAdInProgress
	}
	g.adRunning = true
	return nil
}

// CompleteAd finishes a running ad.
func (g *Gate) CompleteAd() error {
	if !g.adRunning {
		return ErrAdNotStarted
	}
	g.adRunning = false
	g.state.AdWatched = true
	return nil
}

// Follow records the follow step. It is idempotent once followed.
func (g *Gate) Follow() error {
	if !g.state.AdWatched {
		return ErrStepLocked
	}
	g.state.Followed = true
	return nil
}

// Reveal checks that the link may be handed out. The caller resets the gate afterwards.
func (g *Gate) Reveal() error {
	if !g.state.Followed {
		return ErrStepLocked
	}
	return nil
}

// Reset returns the gate to its initial state, cancelling any running ad.
func (g *Gate) Reset() {
	g.adRunning = false
	g.state = GateState{}
}

// State returns a snapshot of the progress flags.
func (g *Gate) State() GateState { return g.state }

// Step returns the next available action.
func (g *Gate) Step() Step {
	switch {
	case g.state.Followed:
		return StepReveal
	case g.state.AdWatched:
		return StepFollow
	default:
		return StepWatchAd
	}
}
