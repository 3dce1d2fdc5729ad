package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/assertions/internal/models"
)

// setupTestClient connects to a real Postgres instance for integration
// tests. Skipped when no test database is configured, matching the
// pack's own pattern for store-layer tests.
func setupTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("skipping integration test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, os.Getenv("TEST_PG_HOST"), 5432, os.Getenv("TEST_PG_DB"),
		os.Getenv("TEST_PG_USER"), os.Getenv("TEST_PG_PASSWORD"), "disable")
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestIdempotencyStore_CreatePendingThenComplete(t *testing.T) {
	client := setupTestClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	key := uuid.NewString()
	userID := uuid.NewString()

	require.NoError(t, store.CreatePending(ctx, key, userID))

	rec, err := store.GetByKey(ctx, key, userID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, models.IdempotencyPending, rec.Status)

	assertionID := uuid.NewString()
	require.NoError(t, store.Complete(ctx, key, userID, assertionID))

	rec, err = store.GetByKey(ctx, key, userID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, models.IdempotencyComplete, rec.Status)
	require.NotNil(t, rec.AssertionID)
	assert.Equal(t, assertionID, *rec.AssertionID)
}

func TestIdempotencyStore_CreatePendingIsIdempotent(t *testing.T) {
	client := setupTestClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()

	key := uuid.NewString()
	userID := uuid.NewString()

	require.NoError(t, store.CreatePending(ctx, key, userID))
	require.NoError(t, store.CreatePending(ctx, key, userID))

	rec, err := store.GetByKey(ctx, key, userID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, models.IdempotencyPending, rec.Status)
}

func TestNotificationStore_InsertReplyIsIdempotent(t *testing.T) {
	client := setupTestClient(t)
	store := NewNotificationStore(client)
	ctx := context.Background()

	recipient, actor, assertion := uuid.NewString(), uuid.NewString(), uuid.NewString()

	id1, inserted1, err := store.InsertReply(ctx, recipient, actor, assertion)
	require.NoError(t, err)
	assert.True(t, inserted1)
	assert.NotEmpty(t, id1)

	_, inserted2, err := store.InsertReply(ctx, recipient, actor, assertion)
	require.NoError(t, err)
	assert.False(t, inserted2)
}

func TestOutboxStore_EnqueueAndMarkDelivered(t *testing.T) {
	client := setupTestClient(t)
	notifStore := NewNotificationStore(client)
	outbox := NewOutboxStore(client)
	ctx := context.Background()

	notificationID, _, err := notifStore.InsertReply(ctx, uuid.NewString(), uuid.NewString(), uuid.NewString())
	require.NoError(t, err)

	require.NoError(t, outbox.Enqueue(ctx, notificationID, models.AdapterWebSocket))

	rows, err := outbox.FetchPending(ctx, models.AdapterWebSocket, 10)
	require.NoError(t, err)
	var found *models.OutboxRow
	for i := range rows {
		if rows[i].NotificationID == notificationID {
			found = &rows[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, models.OutboxPending, found.Status)

	require.NoError(t, outbox.MarkDelivered(ctx, found.ID))
}

func TestOutboxStore_MarkFailedAttemptFirstFailureBacksOff60s(t *testing.T) {
	client := setupTestClient(t)
	notifStore := NewNotificationStore(client)
	outbox := NewOutboxStore(client)
	ctx := context.Background()

	notificationID, _, err := notifStore.InsertReply(ctx, uuid.NewString(), uuid.NewString(), uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, outbox.Enqueue(ctx, notificationID, models.AdapterWebSocket))

	rows, err := outbox.FetchPending(ctx, models.AdapterWebSocket, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0]

	require.NoError(t, outbox.MarkFailedAttempt(ctx, row.ID, row.Attempts, "delivery failed"))

	var attempts int
	var nextAttemptAt time.Time
	require.NoError(t, client.pool.QueryRow(ctx,
		`SELECT attempts, next_attempt_at FROM notification_outbox WHERE id = $1`, row.ID,
	).Scan(&attempts, &nextAttemptAt))

	assert.Equal(t, 1, attempts)
	assert.WithinDuration(t, time.Now().Add(60*time.Second), nextAttemptAt, 5*time.Second)
}

func TestOutboxStore_MarkFailedAttemptReschedulesUntilCap(t *testing.T) {
	client := setupTestClient(t)
	notifStore := NewNotificationStore(client)
	outbox := NewOutboxStore(client)
	ctx := context.Background()

	notificationID, _, err := notifStore.InsertReply(ctx, uuid.NewString(), uuid.NewString(), uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, outbox.Enqueue(ctx, notificationID, models.AdapterPush))

	rows, err := outbox.FetchPending(ctx, models.AdapterPush, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0]

	require.NoError(t, outbox.MarkFailedAttempt(ctx, row.ID, 4, "delivery failed"))

	rows, err = outbox.FetchPending(ctx, models.AdapterPush, 10)
	require.NoError(t, err)
	assert.Empty(t, rows, "row should have moved to failed after hitting the attempts cap")
}

func TestJobRunStore_HealthDerivation(t *testing.T) {
	client := setupTestClient(t)
	store := NewJobRunStore(client)
	ctx := context.Background()

	jobName := "test-job-" + uuid.NewString()

	id, err := store.Start(ctx, jobName)
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, id, 3))

	health, err := store.Health(ctx, jobName)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 0, health.ConsecutiveFailures)
	require.NotNil(t, health.LastRowCount)
	assert.Equal(t, 3, *health.LastRowCount)
}

func TestJobRunStore_HealthFailingAfterThreeConsecutiveFailures(t *testing.T) {
	client := setupTestClient(t)
	store := NewJobRunStore(client)
	ctx := context.Background()

	jobName := "test-job-" + uuid.NewString()

	id, err := store.Start(ctx, jobName)
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, id, 1))

	for i := 0; i < 3; i++ {
		failID, err := store.Start(ctx, jobName)
		require.NoError(t, err)
		require.NoError(t, store.Fail(ctx, failID, "boom"))
	}

	health, err := store.Health(ctx, jobName)
	require.NoError(t, err)
	assert.Equal(t, "failing", health.Status)
	assert.Equal(t, 3, health.ConsecutiveFailures)
}

func TestDraftStore_UpsertGetDelete(t *testing.T) {
	client := setupTestClient(t)
	store := NewDraftStore(client)
	ctx := context.Background()

	authorID := uuid.NewString()

	d, err := store.Upsert(ctx, authorID, nil, "first draft")
	require.NoError(t, err)
	assert.Equal(t, "first draft", d.Body)

	d, err = store.Upsert(ctx, authorID, nil, "revised draft")
	require.NoError(t, err)
	assert.Equal(t, "revised draft", d.Body)

	got, err := store.Get(ctx, authorID, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "revised draft", got.Body)

	require.NoError(t, store.Delete(ctx, authorID, nil))

	got, err = store.Get(ctx, authorID, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDraftStore_CleanupExpired(t *testing.T) {
	client := setupTestClient(t)
	store := NewDraftStore(client)
	ctx := context.Background()

	_, err := store.Upsert(ctx, uuid.NewString(), nil, "stale draft")
	require.NoError(t, err)

	count, err := store.CleanupExpired(ctx, -1*time.Hour)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)
}
