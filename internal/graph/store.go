package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	apperrors "github.com/notewire/assertions/internal/errors"
	"github.com/notewire/assertions/internal/models"
)

// Viewer is the caller identity a write path names, per spec.md §3
// ("any write path that names a user" ensures/enriches an Identity node).
type Viewer struct {
	ID          string
	Handle      *string
	DisplayName *string
	Role        models.Role
}

// RevisionMetadata carries the fields C5 computes when authorizing a
// revision before handing off to Publish.
type RevisionMetadata struct {
	RevisionNumber  int
	RootAssertionID string
}

// PublishResult is returned by Publish on success.
type PublishResult struct {
	AssertionID string
	CreatedAt   time.Time
}

// RevisionRef is the minimal shape getAssertionForRevision returns.
type RevisionRef struct {
	ID           string
	AuthorID     string
	SupersedesID *string
	CreatedAt    time.Time
}

// DeleteResult is returned by DeleteAssertion.
type DeleteResult struct {
	AlreadyDeleted bool
}

// HomeGraphOptions parameterizes readHomeGraph's keyset pagination.
type HomeGraphOptions struct {
	Limit            int
	CursorCreatedAt  *time.Time
	CursorID         *string
}

// Store is the C3 Graph Store Adapter surface spec.md §4.2 describes.
// Exported as an interface so C5/C6 can be tested against an in-memory
// fake rather than a live Neo4j instance.
type Store interface {
	Publish(ctx context.Context, viewer Viewer, c models.Assertion, supersedesID *string, revisionMeta *RevisionMetadata) (PublishResult, error)
	GetAssertionForRevision(ctx context.Context, id string) (*RevisionRef, error)
	GetRevisionHistory(ctx context.Context, id string) ([]models.Assertion, error)
	DeleteAssertion(ctx context.Context, id, userID string) (DeleteResult, error)
	ReadHomeGraph(ctx context.Context, opts HomeGraphOptions) (Slice, error)
	ReadThreadGraph(ctx context.Context, rootID string) (Slice, error)
	AddReaction(ctx context.Context, userID, assertionID string, reactionType models.ReactionType) error
	RemoveReaction(ctx context.Context, userID, assertionID string, reactionType models.ReactionType) (bool, error)
	GetReactionsForAssertion(ctx context.Context, assertionID string) (models.ReactionCounts, error)
}

// Neo4jStore implements Store against a live Neo4j database.
type Neo4jStore struct {
	client *Client
}

// NewNeo4jStore wraps a connected Client as a Store.
func NewNeo4jStore(client *Client) *Neo4jStore {
	return &Neo4jStore{client: client}
}

// Publish performs the single write transaction spec.md §4.2 describes:
// ensure identity, create the assertion node, link AUTHORED_BY, verify
// and link RESPONDS_TO for responses (rejecting reply-to-tombstone in
// the same transaction), tag topics, and link mentions.
func (s *Neo4jStore) Publish(ctx context.Context, viewer Viewer, a models.Assertion, supersedesID *string, revisionMeta *RevisionMetadata) (PublishResult, error) {
	txConfig := GetConfigForOperation("publish")
	session := s.client.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.client.database})
	defer session.Close(ctx)

	result, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx,
			`MERGE (i:Identity {id: $id})
			 ON CREATE SET i.handle = $handle, i.displayName = $displayName
			 ON MATCH SET i.handle = coalesce($handle, i.handle), i.displayName = coalesce($displayName, i.displayName)`,
			map[string]any{"id": viewer.ID, "handle": viewer.Handle, "displayName": viewer.DisplayName}); err != nil {
			return nil, fmt.Errorf("ensure identity: %w", err)
		}

		if a.AssertionType == models.AssertionResponse {
			parentID, ok := extractParentID(a.Refs)
			if !ok {
				return nil, apperrors.Validation("ERR_RESPONSE_NO_TARGET", "response has no extractable parent ref")
			}

			checkResult, err := tx.Run(ctx,
				`MATCH (parent:Assertion {id: $parentId})
				 OPTIONAL MATCH (tomb:Assertion {assertionType: 'tombstone', supersedesId: $parentId})
				 RETURN parent IS NOT NULL AS parentExists, tomb IS NOT NULL AS tombstoned`,
				map[string]any{"parentId": parentID})
			if err != nil {
				return nil, fmt.Errorf("check parent: %w", err)
			}
			record, err := checkResult.Single(ctx)
			if err != nil {
				return nil, apperrors.NotFound("parent_not_found", "response parent does not exist")
			}
			parentExists, _ := record.Get("parentExists")
			tombstoned, _ := record.Get("tombstoned")
			if parentExists != true {
				return nil, apperrors.NotFound("parent_not_found", "response parent does not exist")
			}
			if tombstoned == true {
				return nil, apperrors.Gone("reply_to_tombstoned", "parent assertion has been deleted")
			}

			if err := s.createAssertionNode(ctx, tx, a, supersedesID, revisionMeta); err != nil {
				return nil, err
			}
			if _, err := tx.Run(ctx,
				`MATCH (a:Assertion {id: $id}), (p:Assertion {id: $parentId})
				 MERGE (a)-[:RESPONDS_TO]->(p)`,
				map[string]any{"id": a.ID, "parentId": parentID}); err != nil {
				return nil, fmt.Errorf("link responds_to: %w", err)
			}
		} else {
			if err := s.createAssertionNode(ctx, tx, a, supersedesID, revisionMeta); err != nil {
				return nil, err
			}
		}

		if _, err := tx.Run(ctx,
			`MATCH (a:Assertion {id: $id}), (i:Identity {id: $authorId})
			 MERGE (a)-[:AUTHORED_BY]->(i)`,
			map[string]any{"id": a.ID, "authorId": a.AuthorID}); err != nil {
			return nil, fmt.Errorf("link authored_by: %w", err)
		}

		for _, topicID := range a.Topics {
			if _, err := tx.Run(ctx,
				`MERGE (t:Topic {id: $topicId})
				 WITH t
				 MATCH (a:Assertion {id: $id})
				 MERGE (a)-[:TAGGED_WITH]->(t)`,
				map[string]any{"topicId": topicID, "id": a.ID}); err != nil {
				return nil, fmt.Errorf("link topic %s: %w", topicID, err)
			}
		}

		for _, mentionID := range a.Mentions {
			if _, err := tx.Run(ctx,
				`MERGE (m:Identity {id: $mentionId})
				 WITH m
				 MATCH (a:Assertion {id: $id})
				 MERGE (a)-[:MENTIONS]->(m)`,
				map[string]any{"mentionId": mentionID, "id": a.ID}); err != nil {
				return nil, fmt.Errorf("link mention %s: %w", mentionID, err)
			}
		}

		return PublishResult{AssertionID: a.ID, CreatedAt: a.CreatedAt}, nil
	}, txConfig.AsNeo4jConfig()...)

	if err != nil {
		if isConstraintViolation(err) {
			return PublishResult{}, apperrors.RevisionConflict("supersedesId already claimed by another revision")
		}
		if _, ok := apperrors.As(err); ok {
			return PublishResult{}, err
		}
		return PublishResult{}, apperrors.Graph(err, "publish failed")
	}

	return result.(PublishResult), nil
}

func (s *Neo4jStore) createAssertionNode(ctx context.Context, tx neo4j.ManagedTransaction, a models.Assertion, supersedesID *string, revisionMeta *RevisionMetadata) error {
	params := map[string]any{
		"id":            a.ID,
		"assertionType": string(a.AssertionType),
		"text":          a.Text,
		"title":         a.Title,
		"visibility":    string(a.Visibility),
		"createdAt":     a.CreatedAt.Format(time.RFC3339Nano),
		"supersedesId":  supersedesID,
	}
	if revisionMeta != nil {
		params["revisionNumber"] = revisionMeta.RevisionNumber
		params["rootAssertionId"] = revisionMeta.RootAssertionID
	} else {
		params["revisionNumber"] = nil
		params["rootAssertionId"] = nil
	}

	_, err := tx.Run(ctx,
		`CREATE (a:Assertion {
			id: $id, assertionType: $assertionType, text: $text, title: $title,
			visibility: $visibility, createdAt: $createdAt, supersedesId: $supersedesId,
			revisionNumber: $revisionNumber, rootAssertionId: $rootAssertionId
		})`, params)
	if err != nil {
		return fmt.Errorf("create assertion: %w", err)
	}
	return nil
}

// extractParentID pulls the single parent assertion id out of a
// response's refs, expecting the "assertion:<id>" uri shape.
func ExtractParentID(refs []models.Ref) (string, bool) {
	return extractParentID(refs)
}

func extractParentID(refs []models.Ref) (string, bool) {
	if len(refs) == 0 {
		return "", false
	}
	const prefix = "assertion:"
	uri := refs[0].URI
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return "", false
	}
	return uri[len(prefix):], true
}

// isConstraintViolation detects a supersedesId uniqueness conflict.
// Matched by message rather than a driver-specific error type, since
// the constraint-violation code is stable across driver versions but
// its wrapper type is not part of the documented public API.
func isConstraintViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "ConstraintValidationFailed") ||
		strings.Contains(msg, "already exists with label")
}

// GetAssertionForRevision returns the minimal shape C5 needs to
// authorize a revision, or nil if the assertion does not exist.
func (s *Neo4jStore) GetAssertionForRevision(ctx context.Context, id string) (*RevisionRef, error) {
	result, err := s.client.ExecuteQuery(ctx, "read_thread",
		`MATCH (a:Assertion {id: $id})-[:AUTHORED_BY]->(author:Identity)
		 RETURN a.id AS id, author.id AS authorId, a.supersedesId AS supersedesId, a.createdAt AS createdAt`,
		map[string]any{"id": id})
	if err != nil {
		return nil, apperrors.Graph(err, "get assertion for revision failed")
	}
	if len(result.Records) == 0 {
		return nil, nil
	}
	rec := result.Records[0]
	idVal, _ := rec.Get("id")
	authorVal, _ := rec.Get("authorId")
	supersedesVal, _ := rec.Get("supersedesId")
	createdAtVal, _ := rec.Get("createdAt")

	ref := &RevisionRef{ID: idVal.(string), AuthorID: authorVal.(string)}
	if s, ok := supersedesVal.(string); ok {
		ref.SupersedesID = &s
	}
	if createdAt, err := parseNeo4jTime(createdAtVal); err == nil {
		ref.CreatedAt = createdAt
	}
	return ref, nil
}

// GetRevisionHistory returns every assertion in id's chain, ordered by
// createdAt ascending.
func (s *Neo4jStore) GetRevisionHistory(ctx context.Context, id string) ([]models.Assertion, error) {
	result, err := s.client.ExecuteQuery(ctx, "read_thread",
		`MATCH (start:Assertion {id: $id})
		 WITH coalesce(start.rootAssertionId, start.id) AS rootId
		 MATCH (a:Assertion)-[:AUTHORED_BY]->(author:Identity)
		 WHERE a.id = rootId OR a.rootAssertionId = rootId
		 RETURN a, author.id AS authorId
		 ORDER BY a.createdAt ASC`,
		map[string]any{"id": id})
	if err != nil {
		return nil, apperrors.Graph(err, "get revision history failed")
	}
	return recordsToAssertions(result.Records)
}

// DeleteAssertion tombstones id atomically: verifies ownership and
// that no superseder already exists (treating a tombstone superseder
// as "already deleted" rather than an error).
func (s *Neo4jStore) DeleteAssertion(ctx context.Context, id, userID string) (DeleteResult, error) {
	txConfig := GetConfigForOperation("delete_assertion")
	session := s.client.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.client.database})
	defer session.Close(ctx)

	result, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		checkResult, err := tx.Run(ctx,
			`MATCH (a:Assertion {id: $id})-[:AUTHORED_BY]->(author:Identity)
			 OPTIONAL MATCH (superseder:Assertion {supersedesId: $id})
			 RETURN author.id AS authorId, superseder.assertionType AS superederType`,
			map[string]any{"id": id})
		if err != nil {
			return nil, fmt.Errorf("check assertion: %w", err)
		}
		record, err := checkResult.Single(ctx)
		if err != nil {
			return nil, apperrors.NotFound("assertion_not_found", "assertion does not exist")
		}

		authorIDVal, _ := record.Get("authorId")
		if authorIDVal != userID {
			return nil, apperrors.Forbidden("only the author may delete this assertion")
		}

		superederType, hasSuperseder := record.Get("superederType")
		if hasSuperseder && superederType != nil {
			if superederType == string(models.AssertionTombstone) {
				return DeleteResult{AlreadyDeleted: true}, nil
			}
			return nil, apperrors.Conflict("already_superseded", "assertion has already been revised")
		}

		now := time.Now().UTC()
		if _, err := tx.Run(ctx,
			`CREATE (t:Assertion {
				id: $tombstoneId, assertionType: 'tombstone', text: '', visibility: $visibility,
				createdAt: $createdAt, supersedesId: $id
			})
			 WITH t
			 MATCH (author:Identity {id: $userId})
			 MERGE (t)-[:AUTHORED_BY]->(author)`,
			map[string]any{
				"tombstoneId": "tombstone_" + id,
				"visibility":  string(models.VisibilityPublic),
				"createdAt":   now.Format(time.RFC3339Nano),
				"id":          id,
				"userId":      userID,
			}); err != nil {
			return nil, fmt.Errorf("create tombstone: %w", err)
		}

		return DeleteResult{AlreadyDeleted: false}, nil
	}, txConfig.AsNeo4jConfig()...)

	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return DeleteResult{}, err
		}
		return DeleteResult{}, apperrors.Graph(err, "delete assertion failed")
	}
	return result.(DeleteResult), nil
}

// ReadHomeGraph returns root assertions (no outgoing RESPONDS_TO, not
// superseded), newest first, with a keyset cursor, plus their direct
// responses, topics, mentions, and reaction edges.
func (s *Neo4jStore) ReadHomeGraph(ctx context.Context, opts HomeGraphOptions) (Slice, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	params := map[string]any{"limit": limit}
	cursorClause := ""
	if opts.CursorCreatedAt != nil && opts.CursorID != nil {
		cursorClause = `AND (root.createdAt < $cursorCreatedAt OR (root.createdAt = $cursorCreatedAt AND root.id < $cursorId))`
		params["cursorCreatedAt"] = opts.CursorCreatedAt.Format(time.RFC3339Nano)
		params["cursorId"] = *opts.CursorID
	}

	query := fmt.Sprintf(`
		MATCH (root:Assertion)
		WHERE root.assertionType <> 'tombstone'
		  AND NOT EXISTS { (root)-[:RESPONDS_TO]->() }
		  AND NOT EXISTS { (:Assertion)-[:SUPERSEDES]->(root) }
		  AND NOT EXISTS { (other:Assertion) WHERE other.supersedesId = root.id }
		  %s
		WITH root
		ORDER BY root.createdAt DESC, root.id DESC
		LIMIT $limit
		OPTIONAL MATCH (reply:Assertion)-[:RESPONDS_TO]->(root)
		OPTIONAL MATCH (reply)-[:AUTHORED_BY]->(replyAuthor:Identity)
		OPTIONAL MATCH (replySuperseder:Assertion {supersedesId: reply.id})
		OPTIONAL MATCH (root)-[:AUTHORED_BY]->(rootAuthor:Identity)
		OPTIONAL MATCH (reactor:Identity)-[react:REACTED_TO]->(target:Assertion)
		  WHERE target = root OR target = reply
		RETURN root, rootAuthor.id AS rootAuthorId,
		       collect(DISTINCT {reply: reply, authorId: replyAuthor.id, supersederId: replySuperseder.id}) AS replies,
		       collect(DISTINCT {targetId: target.id, type: react.type, reactorId: reactor.id}) AS reactions
	`, cursorClause)

	result, err := s.client.ExecuteQuery(ctx, "read_home", query, params)
	if err != nil {
		return Slice{}, apperrors.Graph(err, "read home graph failed")
	}
	return homeRecordsToSlice(result.Records)
}

// ReadThreadGraph returns the full set reachable from rootId via
// RESPONDS_TO*, including superseded nodes (so deep replies stay
// reachable) but excluding tombstones. Version resolution is the
// projector's job, not this query's.
func (s *Neo4jStore) ReadThreadGraph(ctx context.Context, rootID string) (Slice, error) {
	result, err := s.client.ExecuteQuery(ctx, "read_thread",
		`MATCH (root:Assertion {id: $rootId})
		 MATCH path = (reply:Assertion)-[:RESPONDS_TO*0..]->(root)
		 WHERE reply.assertionType <> 'tombstone'
		 WITH DISTINCT reply
		 OPTIONAL MATCH (reply)-[:AUTHORED_BY]->(author:Identity)
		 OPTIONAL MATCH (reply)-[respondsTo:RESPONDS_TO]->(parent:Assertion)
		 OPTIONAL MATCH (superseder:Assertion {supersedesId: reply.id})
		 OPTIONAL MATCH (reactor:Identity)-[react:REACTED_TO]->(reply)
		 RETURN reply, author.id AS authorId, parent.id AS respondsToId,
		        collect(DISTINCT superseder.id) AS supersededBy,
		        collect(DISTINCT {type: react.type, reactorId: reactor.id}) AS reactions`,
		map[string]any{"rootId": rootID})
	if err != nil {
		return Slice{}, apperrors.Graph(err, "read thread graph failed")
	}
	return threadRecordsToSlice(result.Records)
}

// AddReaction MERGEs a REACTED_TO edge, idempotent per (user, assertion,
// type). Rejects reactions to a tombstoned or superseded assertion.
func (s *Neo4jStore) AddReaction(ctx context.Context, userID, assertionID string, reactionType models.ReactionType) error {
	if !models.IsValidReactionType(reactionType) {
		return apperrors.Validation("invalid_reaction_type", "unknown reaction type")
	}

	txConfig := GetConfigForOperation("reaction_write")
	session := s.client.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.client.database})
	defer session.Close(ctx)

	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		checkResult, err := tx.Run(ctx,
			`MATCH (a:Assertion {id: $assertionId})-[:AUTHORED_BY]->(author:Identity)
			 OPTIONAL MATCH (superseder:Assertion {supersedesId: a.id})
			 RETURN a.assertionType AS assertionType, a.visibility AS visibility,
			        author.id AS authorId, superseder IS NOT NULL AS superseded`,
			map[string]any{"assertionId": assertionID})
		if err != nil {
			return nil, fmt.Errorf("check assertion: %w", err)
		}
		record, err := checkResult.Single(ctx)
		if err != nil {
			return nil, apperrors.NotFound("assertion_not_found", "assertion does not exist")
		}
		assertionType, _ := record.Get("assertionType")
		superseded, _ := record.Get("superseded")
		if assertionType == string(models.AssertionTombstone) {
			return nil, apperrors.Conflict("tombstoned", "cannot react to a deleted assertion")
		}
		if superseded == true {
			return nil, apperrors.Conflict("superseded", "cannot react to a superseded assertion")
		}
		visibilityVal, _ := record.Get("visibility")
		authorIDVal, _ := record.Get("authorId")
		if visibilityVal != string(models.VisibilityPublic) && authorIDVal != userID {
			return nil, apperrors.Forbidden("assertion is not visible to this viewer")
		}

		if _, err := tx.Run(ctx,
			`MERGE (u:Identity {id: $userId})
			 WITH u
			 MATCH (a:Assertion {id: $assertionId})
			 MERGE (u)-[r:REACTED_TO {type: $type}]->(a)
			 ON CREATE SET r.createdAt = $createdAt`,
			map[string]any{
				"userId": userID, "assertionId": assertionID,
				"type": string(reactionType), "createdAt": time.Now().UTC().Format(time.RFC3339Nano),
			}); err != nil {
			return nil, fmt.Errorf("merge reaction: %w", err)
		}
		return nil, nil
	}, txConfig.AsNeo4jConfig()...)

	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return err
		}
		return apperrors.Graph(err, "add reaction failed")
	}
	return nil
}

// RemoveReaction deletes a REACTED_TO edge if present. Idempotent.
func (s *Neo4jStore) RemoveReaction(ctx context.Context, userID, assertionID string, reactionType models.ReactionType) (bool, error) {
	result, err := s.client.ExecuteQuery(ctx, "reaction_write",
		`MATCH (u:Identity {id: $userId})-[r:REACTED_TO {type: $type}]->(a:Assertion {id: $assertionId})
		 DELETE r
		 RETURN count(r) AS removed`,
		map[string]any{"userId": userID, "assertionId": assertionID, "type": string(reactionType)})
	if err != nil {
		return false, apperrors.Graph(err, "remove reaction failed")
	}
	if len(result.Records) == 0 {
		return false, nil
	}
	removed, _ := result.Records[0].Get("removed")
	count, _ := removed.(int64)
	return count > 0, nil
}

// GetReactionsForAssertion aggregates reaction counts for one assertion.
func (s *Neo4jStore) GetReactionsForAssertion(ctx context.Context, assertionID string) (models.ReactionCounts, error) {
	result, err := s.client.ExecuteQuery(ctx, "read_thread",
		`MATCH (:Identity)-[r:REACTED_TO]->(a:Assertion {id: $assertionId})
		 RETURN r.type AS type, count(*) AS count`,
		map[string]any{"assertionId": assertionID})
	if err != nil {
		return models.ReactionCounts{}, apperrors.Graph(err, "get reactions failed")
	}

	var counts models.ReactionCounts
	for _, rec := range result.Records {
		typeVal, _ := rec.Get("type")
		countVal, _ := rec.Get("count")
		n, _ := countVal.(int64)
		switch models.ReactionType(fmt.Sprint(typeVal)) {
		case models.ReactionLike:
			counts.Like = int(n)
		case models.ReactionAcknowledge:
			counts.Acknowledge = int(n)
		}
	}
	return counts, nil
}
