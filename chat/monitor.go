package chat

import (
	"github.com/poiesic/wayfarer/core"
)

// TurnMonitor provides hooks to observe a turn.
// Implement this interface to track intermediate steps and results.
// Hooks run synchronously on the turn's goroutine.
type TurnMonitor interface {
	Start(number int, query string)
	StateChanged(number int, state core.TurnState)
	AfterRetrieval(matches []core.Match)
	AfterEnrichment(facts []core.GraphFact)
	Finish(result core.TurnResult)
}

// noopMonitor is a no-op implementation of TurnMonitor
type noopMonitor struct{}

var _ TurnMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ int, _ string)                {}
func (n *noopMonitor) StateChanged(_ int, _ core.TurnState) {}
func (n *noopMonitor) AfterRetrieval(_ []core.Match)        {}
func (n *noopMonitor) AfterEnrichment(_ []core.GraphFact)   {}
func (n *noopMonitor) Finish(_ core.TurnResult)             {}
