// Package feed implements the C6 feed projector: a pure function from
// a graph slice to ordered, visibility-filtered feed items. It never
// queries the store itself — internal/graph supplies the slice.
package feed

import (
	"log/slog"
	"sort"

	"github.com/notewire/assertions/internal/config"
	"github.com/notewire/assertions/internal/graph"
	"github.com/notewire/assertions/internal/models"
	"github.com/notewire/assertions/internal/observability"
)

// Item is one projected feed entry: an assertion plus its derived
// reaction counts and, for thread items, the parent it replies to.
type Item struct {
	Assertion models.Assertion
	Reactions models.ReactionCounts
	ReplyTo   *string
	Replies   []Item
}

// Context carries the viewer identity feed queries are scoped to.
type Context struct {
	ViewerID string
}

// Projector turns graph slices into ordered feed items. Root-purity
// enforcement depends on the deployment mode, so a Projector is built
// with one mode and one observability hook rather than taking them per
// call.
type Projector struct {
	mode   config.Mode
	hook   observability.Hook
	logger *slog.Logger
}

// New constructs a Projector. hook may be nil, in which case a no-op
// hook is used.
func New(mode config.Mode, hook observability.Hook) *Projector {
	if hook == nil {
		hook = observability.NoopHook{}
	}
	return &Projector{mode: mode, hook: hook, logger: slog.Default().With("component", "feed_projector")}
}

// isVisible reports whether a is visible to viewerID. public is
// always visible; every other level (including the degraded
// "followers") is visible only to the author.
func isVisible(a models.Assertion, viewerID string) bool {
	if a.Visibility == models.VisibilityPublic {
		return true
	}
	return a.AuthorID == viewerID
}

// Home projects the home feed: root assertions (heads with no
// outgoing RESPONDS_TO edge), newest first, each carrying its direct
// responses sorted oldest first.
func (p *Projector) Home(slice graph.Slice, ctx Context) []Item {
	supersededTargets := graph.SupersededTargets(slice.Edges)
	respondsToSources := graph.RespondsToTargets(slice.Edges)

	byID := make(map[string]models.Assertion, len(slice.Assertions))
	for _, a := range slice.Assertions {
		byID[a.ID] = a
	}

	var roots []models.Assertion
	for _, a := range slice.Assertions {
		if !graph.IsHead(a, supersededTargets) {
			continue
		}
		if a.AssertionType == models.AssertionResponse || respondsToSources[a.ID] {
			continue
		}
		if !isVisible(a, ctx.ViewerID) {
			continue
		}
		roots = append(roots, a)
	}

	sort.Slice(roots, func(i, j int) bool {
		return roots[i].CreatedAt.After(roots[j].CreatedAt)
	})

	items := make([]Item, 0, len(roots))
	for _, root := range roots {
		var replies []models.Assertion
		for _, e := range slice.Edges {
			if e.Type != graph.EdgeRespondsTo || e.Target != root.ID {
				continue
			}
			reply, ok := byID[e.Source]
			if !ok {
				continue
			}
			replies = append(replies, reply)
		}
		replySuperseded := graph.SupersededTargets(edgesAmong(slice.Edges, replies))
		var headReplies []models.Assertion
		for _, reply := range replies {
			if !graph.IsHead(reply, replySuperseded) {
				continue
			}
			if !isVisible(reply, ctx.ViewerID) {
				continue
			}
			headReplies = append(headReplies, reply)
		}
		sort.Slice(headReplies, func(i, j int) bool {
			return headReplies[i].CreatedAt.Before(headReplies[j].CreatedAt)
		})

		replyItems := make([]Item, 0, len(headReplies))
		for _, reply := range headReplies {
			replyItems = append(replyItems, Item{
				Assertion: reply,
				Reactions: graph.ReactionsFor(reply.ID, slice.Edges),
			})
		}

		p.assertRootPurity(root)
		items = append(items, Item{
			Assertion: root,
			Reactions: graph.ReactionsFor(root.ID, slice.Edges),
			Replies:   replyItems,
		})
	}

	return items
}

// assertRootPurity enforces spec.md §4.5's home-feed guarantee that no
// response assertion is ever emitted as a root-level item. Belt-and-
// suspenders: Home already filters out responses and anything with an
// outgoing RESPONDS_TO edge, so reaching here with a response means
// that filter missed a case.
func (p *Projector) assertRootPurity(a models.Assertion) {
	if a.AssertionType != models.AssertionResponse {
		return
	}
	switch {
	case p.mode.RaisesOnRootPurityViolation():
		panic("feed projector: response assertion emitted as a feed root")
	case p.mode == config.ModeDevelopment:
		p.logger.Error("root-purity violation: response assertion in root position", "assertionId", a.ID)
	default:
		p.hook.Notice("root_purity_violation", map[string]any{"assertionId": a.ID})
	}
}

// edgesAmong returns the SUPERSEDES edges whose target is one of members, used to
// scope version resolution to a bounded subset (e.g. one root's direct
// replies) rather than resolving the whole slice and subsetting after.
func edgesAmong(edges []graph.Edge, members []models.Assertion) []graph.Edge {
	memberIDs := make(map[string]bool, len(members))
	for _, m := range members {
		memberIDs[m.ID] = true
	}
	var out []graph.Edge
	for _, e := range edges {
		if e.Type == graph.EdgeSupersedes && memberIDs[e.Target] {
			out = append(out, e)
		}
	}
	return out
}

// Thread projects a single thread from a slice that already holds the
// root's RESPONDS_TO-reachable set (as ReadThreadGraph returns it). It
// does no traversal of its own: every head in the slice is emitted, and
// rootID is not consulted. Version resolution keeps a reply pointing at
// a superseded version while dropping the superseded version itself.
func (p *Projector) Thread(slice graph.Slice, rootID string, ctx Context) []Item {
	supersededTargets := graph.SupersededTargets(slice.Edges)

	var items []Item
	for _, a := range slice.Assertions {
		if !graph.IsHead(a, supersededTargets) {
			continue
		}
		if !isVisible(a, ctx.ViewerID) {
			continue
		}
		item := Item{
			Assertion: a,
			Reactions: graph.ReactionsFor(a.ID, slice.Edges),
		}
		if parentID, ok := graph.ParentOf(a.ID, slice.Edges); ok {
			parent := parentID
			item.ReplyTo = &parent
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Assertion.CreatedAt.Before(items[j].Assertion.CreatedAt)
	})
	return items
}

// Profile projects an identity's authored heads, visibility-filtered,
// newest first.
func (p *Projector) Profile(slice graph.Slice, authorID string, ctx Context) []Item {
	supersededTargets := graph.SupersededTargets(slice.Edges)

	var items []Item
	for _, a := range slice.Assertions {
		if a.AuthorID != authorID {
			continue
		}
		if !graph.IsHead(a, supersededTargets) {
			continue
		}
		if !isVisible(a, ctx.ViewerID) {
			continue
		}
		items = append(items, Item{
			Assertion: a,
			Reactions: graph.ReactionsFor(a.ID, slice.Edges),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Assertion.CreatedAt.After(items[j].Assertion.CreatedAt)
	})
	return items
}
