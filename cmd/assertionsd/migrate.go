package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notewire/assertions/internal/graph"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Ensure the graph store's uniqueness constraints exist",
	Long: `Applies the Assertion/Identity/Topic uniqueness constraints Neo4j
needs, idempotently (IF NOT EXISTS). The relational schema
(notifications, notification_outbox, publish_idempotency, job_runs, composer_drafts,
session, user) is owned and migrated outside this daemon.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, err := graph.NewClientWithDatabase(ctx, cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, cfg.Graph.Database)
	if err != nil {
		return fmt.Errorf("connect to graph store: %w", err)
	}
	defer client.Close(ctx)

	if err := client.EnsureConstraints(ctx); err != nil {
		return fmt.Errorf("ensure constraints: %w", err)
	}

	logger.Info("graph constraints ensured")
	return nil
}
