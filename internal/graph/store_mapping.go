package graph

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/models"
)

// This file converts raw Neo4j driver records (nodes, maps, lists) into
// the domain Slice/Assertion shapes store.go's queries promise. Kept
// separate from the query bodies themselves so each stays readable.

func nodeToAssertion(node neo4j.Node, authorID string) (models.Assertion, error) {
	props := node.Props

	id, _ := props["id"].(string)
	if id == "" {
		return models.Assertion{}, fmt.Errorf("assertion node missing id")
	}

	createdAt, err := parseNeo4jTime(props["createdAt"])
	if err != nil {
		return models.Assertion{}, fmt.Errorf("assertion %s: %w", id, err)
	}

	a := models.Assertion{
		ID:            id,
		AssertionType: models.AssertionType(asString(props["assertionType"])),
		AuthorID:      authorID,
		Text:          asString(props["text"]),
		Title:         asStringPtr(props["title"]),
		Visibility:    models.Visibility(asString(props["visibility"])),
		SupersedesID:  asStringPtr(props["supersedesId"]),
		RootAssertionID: asStringPtr(props["rootAssertionId"]),
		CreatedAt:     createdAt,
		Media:         []models.Media{},
		Refs:          []models.Ref{},
		Topics:        []string{},
		Mentions:      []string{},
	}
	if rn := asIntPtr(props["revisionNumber"]); rn != nil {
		a.RevisionNumber = rn
	}
	return a, nil
}

func parseNeo4jTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, fmt.Errorf("missing createdAt")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse createdAt %q: %w", s, err)
	}
	return t, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func asIntPtr(v any) *int {
	switch n := v.(type) {
	case int64:
		i := int(n)
		return &i
	case int:
		return &n
	default:
		return nil
	}
}

func recordsToAssertions(records []*neo4j.Record) ([]models.Assertion, error) {
	assertions := make([]models.Assertion, 0, len(records))
	for _, rec := range records {
		nodeVal, ok := rec.Get("a")
		if !ok {
			continue
		}
		node, ok := nodeVal.(neo4j.Node)
		if !ok {
			continue
		}
		authorIDVal, _ := rec.Get("authorId")
		authorID, _ := authorIDVal.(string)
		a, err := nodeToAssertion(node, authorID)
		if err != nil {
			return nil, apperrors.Graph(err, "malformed assertion node")
		}
		assertions = append(assertions, a)
	}
	return assertions, nil
}

// homeRecordsToSlice flattens readHomeGraph's per-root rows (each
// carrying its collected replies and reactions) into one Slice.
func homeRecordsToSlice(records []*neo4j.Record) (Slice, error) {
	slice := Slice{}
	seen := make(map[string]bool)

	addAssertion := func(a models.Assertion) {
		if seen[a.ID] {
			return
		}
		seen[a.ID] = true
		slice.Assertions = append(slice.Assertions, a)
	}

	for _, rec := range records {
		rootVal, ok := rec.Get("root")
		if !ok {
			continue
		}
		rootNode, ok := rootVal.(neo4j.Node)
		if !ok {
			continue
		}
		rootAuthorVal, _ := rec.Get("rootAuthorId")
		rootAuthorID, _ := rootAuthorVal.(string)
		root, err := nodeToAssertion(rootNode, rootAuthorID)
		if err != nil {
			return Slice{}, apperrors.Graph(err, "malformed root node")
		}
		addAssertion(root)

		if repliesVal, ok := rec.Get("replies"); ok {
			if repliesList, ok := repliesVal.([]any); ok {
				for _, item := range repliesList {
					entry, ok := item.(map[string]any)
					if !ok {
						continue
					}
					replyNode, ok := entry["reply"].(neo4j.Node)
					if !ok {
						continue
					}
					replyAuthorID, _ := entry["authorId"].(string)
					reply, err := nodeToAssertion(replyNode, replyAuthorID)
					if err != nil {
						continue
					}
					addAssertion(reply)
					slice.Edges = append(slice.Edges, Edge{
						Type: EdgeRespondsTo, Source: reply.ID, Target: root.ID,
					})
					if supersederID, ok := entry["supersederId"].(string); ok && supersederID != "" {
						slice.Edges = append(slice.Edges, Edge{
							Type: EdgeSupersedes, Source: supersederID, Target: reply.ID,
						})
					}
				}
			}
		}

		if reactionsVal, ok := rec.Get("reactions"); ok {
			if reactionsList, ok := reactionsVal.([]any); ok {
				for _, item := range reactionsList {
					entry, ok := item.(map[string]any)
					if !ok {
						continue
					}
					targetID, _ := entry["targetId"].(string)
					reactorID, _ := entry["reactorId"].(string)
					reactType, _ := entry["type"].(string)
					if targetID == "" || reactorID == "" || reactType == "" {
						continue
					}
					slice.Edges = append(slice.Edges, Edge{
						Type: EdgeReactedTo, Source: reactorID, Target: targetID,
						Properties: map[string]any{"type": reactType},
					})
				}
			}
		}
	}

	return slice, nil
}

// threadRecordsToSlice flattens readThreadGraph's per-node rows into a
// Slice, deriving RESPONDS_TO and SUPERSEDES edges from the collected
// parent/superseder fields each row carries.
func threadRecordsToSlice(records []*neo4j.Record) (Slice, error) {
	slice := Slice{}

	for _, rec := range records {
		nodeVal, ok := rec.Get("reply")
		if !ok {
			continue
		}
		node, ok := nodeVal.(neo4j.Node)
		if !ok {
			continue
		}
		authorIDVal, _ := rec.Get("authorId")
		authorID, _ := authorIDVal.(string)
		a, err := nodeToAssertion(node, authorID)
		if err != nil {
			return Slice{}, apperrors.Graph(err, "malformed thread node")
		}
		slice.Assertions = append(slice.Assertions, a)

		if respondsToVal, ok := rec.Get("respondsToId"); ok {
			if parentID, ok := respondsToVal.(string); ok && parentID != "" {
				slice.Edges = append(slice.Edges, Edge{
					Type: EdgeRespondsTo, Source: a.ID, Target: parentID,
				})
			}
		}

		if supersededByVal, ok := rec.Get("supersededBy"); ok {
			if list, ok := supersededByVal.([]any); ok {
				for _, item := range list {
					supersederID, ok := item.(string)
					if !ok || supersederID == "" {
						continue
					}
					slice.Edges = append(slice.Edges, Edge{
						Type: EdgeSupersedes, Source: supersederID, Target: a.ID,
					})
				}
			}
		}

		if reactionsVal, ok := rec.Get("reactions"); ok {
			if list, ok := reactionsVal.([]any); ok {
				for _, item := range list {
					entry, ok := item.(map[string]any)
					if !ok {
						continue
					}
					reactorID, _ := entry["reactorId"].(string)
					reactType, _ := entry["type"].(string)
					if reactorID == "" || reactType == "" {
						continue
					}
					slice.Edges = append(slice.Edges, Edge{
						Type: EdgeReactedTo, Source: reactorID, Target: a.ID,
						Properties: map[string]any{"type": reactType},
					})
				}
			}
		}
	}

	return slice, nil
}
