// Package graph implements the append-only assertion graph: node/edge
// taxonomy (this file), schema setup (schema.go), connection
// management (neo4j_client.go), and the store adapter (store.go).
package graph

import (
	"github.com/notewire/assertions/internal/models"
)

// EdgeType enumerates the six relationship kinds in the graph, per
// spec.md §3.
type EdgeType string

const (
	EdgeAuthoredBy EdgeType = "AUTHORED_BY"
	EdgeRespondsTo EdgeType = "RESPONDS_TO"
	EdgeSupersedes EdgeType = "SUPERSEDES"
	EdgeTaggedWith EdgeType = "TAGGED_WITH"
	EdgeMentions   EdgeType = "MENTIONS"
	EdgeReactedTo  EdgeType = "REACTED_TO"
)

// Edge is a directed relationship between two node ids. Properties
// carries edge attributes - only REACTED_TO has any (type, createdAt).
type Edge struct {
	Type       EdgeType
	Source     string
	Target     string
	Properties map[string]any
}

// Slice is a graph slice: a bounded set of assertion nodes plus the
// edges among them, as returned by a C3 read query. The feed projector
// (C6) is a pure function over a Slice - it never queries the store
// itself.
type Slice struct {
	Assertions []models.Assertion
	Edges      []Edge
}

// SupersededTargets returns the set of assertion ids that appear as
// the target of a SUPERSEDES edge in the slice - i.e. every assertion
// that has been revised or deleted at least once.
func SupersededTargets(edges []Edge) map[string]bool {
	targets := make(map[string]bool)
	for _, e := range edges {
		if e.Type == EdgeSupersedes {
			targets[e.Target] = true
		}
	}
	return targets
}

// IsHead reports whether a is the current version of its chain: not
// itself superseded, and not a tombstone (tombstones never appear in
// any projection).
func IsHead(a models.Assertion, supersededTargets map[string]bool) bool {
	if supersededTargets[a.ID] {
		return false
	}
	return a.AssertionType != models.AssertionTombstone
}

// RespondsToTargets returns the set of assertion ids that have at
// least one outgoing RESPONDS_TO edge, used by the home feed's
// belt-and-suspenders root detection (spec.md §4.5 step 2).
func RespondsToTargets(edges []Edge) map[string]bool {
	sources := make(map[string]bool)
	for _, e := range edges {
		if e.Type == EdgeRespondsTo {
			sources[e.Source] = true
		}
	}
	return sources
}

// ParentOf returns the id a responds to, if any, via its RESPONDS_TO edge.
func ParentOf(assertionID string, edges []Edge) (string, bool) {
	for _, e := range edges {
		if e.Type == EdgeRespondsTo && e.Source == assertionID {
			return e.Target, true
		}
	}
	return "", false
}

// ReactionsFor aggregates REACTED_TO edges targeting assertionID into
// counts by type. Unknown reaction-type values are never persisted
// (rejected at every ingress), so every edge here is one of the two
// accepted types.
func ReactionsFor(assertionID string, edges []Edge) models.ReactionCounts {
	var counts models.ReactionCounts
	for _, e := range edges {
		if e.Type != EdgeReactedTo || e.Target != assertionID {
			continue
		}
		rt, _ := e.Properties["type"].(string)
		switch models.ReactionType(rt) {
		case models.ReactionLike:
			counts.Like++
		case models.ReactionAcknowledge:
			counts.Acknowledge++
		}
	}
	return counts
}
