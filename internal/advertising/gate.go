package advertising

import (
	"context"

	"github.com/autoparts-market/backend/internal/models"
)

// GateState is whether the interstitial is on screen for a client.
type GateState int

const (
	GateHidden GateState = iota
	GateShown
)

func (s GateState) String() string {
	if s == GateShown {
		return "shown"
	}
	return "hidden"
}

// SeenStore persists, per client, the id of the last dismissed advertising.
type SeenStore interface {
	LastSeen() (int64, bool)
	MarkSeen(id int64)
}

// ActiveFetcher loads the active advertising, nil when none.
type ActiveFetcher func(ctx context.Context) (*models.Advertising, error)

// Gate decides whether a client sees the active advertising. Each distinct active id is shown
// until the client dismisses it once.
type Gate struct {
	seen    SeenStore
	state   GateState
	current *models.Advertising
}

// NewGate creates a hidden gate backed by seen.
func NewGate(seen SeenStore) *Gate {
	return &Gate{seen: seen}
}

// Mount fetches the active advertising and shows it unless its id was the last one dismissed.
// On fetch failure the gate stays hidden.
func (g *Gate) Mount(ctx context.Context, fetch ActiveFetcher) error {
	g.state = GateHidden
	g.current = nil
	a, err := fetch(ctx)
	if err != nil {
		return err
	}
	if a == nil {
		return nil
	}
	g.current = a
	if last, ok := g.seen.LastSeen(); ok && last == a.ID {
		return nil
	}
	g.state = GateShown
	return nil
}

// Dismiss hides the gate and remembers the shown advertising as seen.
func (g *Gate) Dismiss() {
	wasShown := g.state == GateShown
	g.state = GateHidden
	if wasShown && g.current != nil {
		g.seen.MarkSeen(g.current.ID)
	}
}

// State returns the current state.
func (g *Gate) State() GateState { return g.state }

// Current returns the advertising fetched by the last Mount, if any.
func (g *Gate) Current() *models.Advertising { return g.current }
