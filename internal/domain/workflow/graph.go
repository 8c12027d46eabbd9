package workflow

import "github.com/openteams/taskflow/internal/domain/entity"

// Graph is the legal-move view over one workflow's transition set.
// It is a plain adjacency lookup: a single move is legal iff a direct
// edge exists for that exact ordered pair. There is no transitive or
// implicit reachability.
type Graph struct {
	edges map[string]map[string]*entity.Transition
}

// NewGraph builds a graph from a workflow's transitions. Transitions may
// form any shape: the linear chain created by authoring, or branches,
// skips, and cycles added by later edits.
func NewGraph(transitions []*entity.Transition) *Graph {
	edges := make(map[string]map[string]*entity.Transition)
	for _, t := range transitions {
		targets, ok := edges[t.FromPhaseID]
		if !ok {
			targets = make(map[string]*entity.Transition)
			edges[t.FromPhaseID] = targets
		}
		targets[t.ToPhaseID] = t
	}
	return &Graph{edges: edges}
}

// CanMove reports whether a direct edge (fromPhaseID, toPhaseID) exists.
func (g *Graph) CanMove(fromPhaseID, toPhaseID string) bool {
	return g.Edge(fromPhaseID, toPhaseID) != nil
}

// Edge returns the transition for the ordered pair, or nil.
func (g *Graph) Edge(fromPhaseID, toPhaseID string) *entity.Transition {
	targets, ok := g.edges[fromPhaseID]
	if !ok {
		return nil
	}
	return targets[toPhaseID]
}

// OutgoingFrom returns all transitions leaving the given phase.
func (g *Graph) OutgoingFrom(fromPhaseID string) []*entity.Transition {
	targets := g.edges[fromPhaseID]
	out := make([]*entity.Transition, 0, len(targets))
	for _, t := range targets {
		out = append(out, t)
	}
	return out
}

// Authorized reports whether userID may act on the phase. An empty
// allowed-users list means the phase is unrestricted.
func Authorized(phase *entity.Phase, userID string) bool {
	if len(phase.AllowedUsers) == 0 {
		return true
	}
	for _, id := range phase.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
