package graph

import (
	"context"
	"fmt"
)

// constraintStatements creates the uniqueness constraints spec.md §3
// requires: Assertion.id, Identity.id, Topic.id, and non-null
// Assertion.supersedesId (enforcing linear, non-branching revision
// history at the store level).
var constraintStatements = []string{
	`CREATE CONSTRAINT assertion_id_unique IF NOT EXISTS FOR (a:Assertion) REQUIRE a.id IS UNIQUE`,
	`CREATE CONSTRAINT identity_id_unique IF NOT EXISTS FOR (i:Identity) REQUIRE i.id IS UNIQUE`,
	`CREATE CONSTRAINT topic_id_unique IF NOT EXISTS FOR (t:Topic) REQUIRE t.id IS UNIQUE`,
	`CREATE CONSTRAINT assertion_supersedes_unique IF NOT EXISTS FOR (a:Assertion) REQUIRE a.supersedesId IS UNIQUE`,
}

// EnsureConstraints applies the graph's uniqueness constraints. Called
// once at daemon startup; idempotent via IF NOT EXISTS, so safe to run
// on every boot rather than through a separate migration tool.
func (c *Client) EnsureConstraints(ctx context.Context) error {
	for _, stmt := range constraintStatements {
		if _, err := c.ExecuteQuery(ctx, "schema_setup", stmt, nil); err != nil {
			return fmt.Errorf("ensure constraints: %w", err)
		}
	}
	c.logger.Info("graph constraints ensured", "count", len(constraintStatements))
	return nil
}
