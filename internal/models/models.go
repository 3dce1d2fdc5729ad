package models

import (
	"time"
)

// AssertionType is the tagged-variant discriminator for an Assertion.
// The projector and the graph store both switch on this tag.
type AssertionType string

const (
	AssertionMoment   AssertionType = "moment"
	AssertionNote     AssertionType = "note"
	AssertionArticle  AssertionType = "article"
	AssertionArtifact AssertionType = "artifact"
	AssertionResponse AssertionType = "response"
	AssertionCuration AssertionType = "curation"
	AssertionTombstone AssertionType = "tombstone"
)

var validAssertionTypes = map[AssertionType]bool{
	AssertionMoment: true, AssertionNote: true, AssertionArticle: true,
	AssertionArtifact: true, AssertionResponse: true, AssertionCuration: true,
	AssertionTombstone: true,
}

// IsValidAssertionType reports whether t is one of the accepted kinds.
func IsValidAssertionType(t AssertionType) bool {
	return validAssertionTypes[t]
}

// Visibility controls who may see an assertion in a feed slice.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityFollowers Visibility = "followers"
	VisibilityUnlisted  Visibility = "unlisted"
)

var validVisibilities = map[Visibility]bool{
	VisibilityPublic: true, VisibilityPrivate: true,
	VisibilityFollowers: true, VisibilityUnlisted: true,
}

// IsValidVisibility reports whether v is one of the accepted levels.
func IsValidVisibility(v Visibility) bool {
	return validVisibilities[v]
}

// Ref is a reference a response or curation assertion points at. Refs
// are always objects - a bare string is rejected at construction.
type Ref struct {
	URI string `json:"uri"`
}

// Media is an ordered media descriptor attached to an assertion.
type Media struct {
	URL      string `json:"url"`
	Kind     string `json:"kind,omitempty"`
	AltText  string `json:"altText,omitempty"`
}

// Assertion is the atomic unit of published content: an immutable,
// append-only node in the assertion graph. Editing produces a new
// Assertion linked back to its predecessor via SupersedesID; the
// predecessor is never mutated.
type Assertion struct {
	ID              string        `json:"id" db:"id"`
	AssertionType   AssertionType `json:"assertionType" db:"assertion_type"`
	AuthorID        string        `json:"authorId" db:"author_id"`
	Text            string        `json:"text" db:"text"`
	Title           *string       `json:"title,omitempty" db:"title"`
	Visibility      Visibility    `json:"visibility" db:"visibility"`
	Media           []Media       `json:"media,omitempty"`
	Refs            []Ref         `json:"refs,omitempty"`
	Topics          []string      `json:"topics,omitempty"`
	Mentions        []string      `json:"mentions,omitempty"`
	SupersedesID    *string       `json:"supersedesId,omitempty" db:"supersedes_id"`
	RevisionNumber  *int          `json:"revisionNumber,omitempty" db:"revision_number"`
	RootAssertionID *string       `json:"rootAssertionId,omitempty" db:"root_assertion_id"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
}

// IsRoot reports whether a is the origin of its revision chain.
func (a Assertion) IsRoot() bool {
	return a.SupersedesID == nil
}

// Identity is an authoring account. Created or enriched by any write
// path that names a user; properties use coalesce-semantics (never
// overwrite a present value with null).
type Identity struct {
	ID          string `json:"id" db:"id"`
	Handle      *string `json:"handle,omitempty" db:"handle"`
	DisplayName *string `json:"displayName,omitempty" db:"display_name"`
}

// Role governs revision authorization: a user may only revise their
// own assertions, while admins and super_admins may revise anyone's.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// CanReviseAny reports whether the role may revise assertions it
// doesn't author.
func (r Role) CanReviseAny() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Topic is a curation tag an assertion can be TAGGED_WITH.
type Topic struct {
	ID string `json:"id" db:"id"`
}

// ReactionType enumerates the reaction kinds the platform accepts.
// Anything outside this set is rejected at every ingress (spec §9 open
// question, resolved: reject rather than silently ignore).
type ReactionType string

const (
	ReactionLike        ReactionType = "like"
	ReactionAcknowledge ReactionType = "acknowledge"
)

var validReactionTypes = map[ReactionType]bool{
	ReactionLike: true, ReactionAcknowledge: true,
}

// IsValidReactionType reports whether t is one of the accepted kinds.
func IsValidReactionType(t ReactionType) bool {
	return validReactionTypes[t]
}

// ReactionCounts aggregates REACTED_TO edges by type for one assertion.
type ReactionCounts struct {
	Like        int `json:"like"`
	Acknowledge int `json:"acknowledge"`
}

// NotificationKind enumerates the derived signals the notification
// pipeline produces.
type NotificationKind string

const (
	NotificationReply    NotificationKind = "reply"
	NotificationReaction NotificationKind = "reaction"
)

// Notification is a derived, de-duplicated signal delivered to a
// recipient identity. Derivation keys on
// (actorId, assertionId, notificationType, coalesce(reactionType, '')).
type Notification struct {
	ID               string            `json:"id" db:"id"`
	RecipientID      string            `json:"recipientId" db:"recipient_id"`
	ActorID          string            `json:"actorId" db:"actor_id"`
	AssertionID      string            `json:"assertionId" db:"assertion_id"`
	NotificationType NotificationKind  `json:"notificationType" db:"notification_type"`
	ReactionType     *ReactionType     `json:"reactionType,omitempty" db:"reaction_type"`
	Read             bool              `json:"read" db:"read"`
	CreatedAt        time.Time         `json:"createdAt" db:"created_at"`
	ReadAt           *time.Time        `json:"readAt,omitempty" db:"read_at"`
}

// OutboxAdapter enumerates the delivery channels a notification fans out to.
type OutboxAdapter string

const (
	AdapterWebSocket OutboxAdapter = "websocket"
	AdapterPush      OutboxAdapter = "push"
)

// OutboxStatus tracks an outbox row through the delivery state machine.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxDelivered OutboxStatus = "delivered"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxRow is a per-adapter fan-out of a Notification, retried with
// exponential backoff until delivered or the attempts cap is reached.
// Uniqueness: (notificationId, adapter).
type OutboxRow struct {
	ID             string        `json:"id" db:"id"`
	NotificationID string        `json:"notificationId" db:"notification_id"`
	RecipientID    string        `json:"recipientId" db:"recipient_id"`
	Adapter        OutboxAdapter `json:"adapter" db:"adapter"`
	Status         OutboxStatus  `json:"status" db:"status"`
	Attempts       int           `json:"attempts" db:"attempts"`
	NextAttemptAt  time.Time     `json:"nextAttemptAt" db:"next_attempt_at"`
	LastError      *string       `json:"lastError,omitempty" db:"last_error"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	DeliveredAt    *time.Time    `json:"deliveredAt,omitempty" db:"delivered_at"`
}

// IdempotencyStatus tracks a publish idempotency record.
type IdempotencyStatus string

const (
	IdempotencyPending  IdempotencyStatus = "pending"
	IdempotencyComplete IdempotencyStatus = "complete"
)

// IdempotencyRecord guards a client-supplied idempotency key against
// double-publish under retry. Uniqueness: (idempotencyKey, userId).
type IdempotencyRecord struct {
	IdempotencyKey string            `json:"idempotencyKey" db:"idempotency_key"`
	UserID         string            `json:"userId" db:"user_id"`
	AssertionID    *string           `json:"assertionId,omitempty" db:"assertion_id"`
	Status         IdempotencyStatus `json:"status" db:"status"`
	CreatedAt      time.Time         `json:"createdAt" db:"created_at"`
	ExpiresAt      time.Time         `json:"expiresAt" db:"expires_at"`
}

// JobStatus tracks a scheduled maintenance run.
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobSucceeded JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// JobRun records one execution of a scheduled job, used by the health
// endpoint to derive failing/drifting/healthy.
type JobRun struct {
	ID         string     `json:"id" db:"id"`
	JobName    string     `json:"jobName" db:"job_name"`
	Status     JobStatus  `json:"status" db:"status"`
	RowCount   *int       `json:"rowCount,omitempty" db:"row_count"`
	Error      *string    `json:"error,omitempty" db:"error"`
	StartedAt  time.Time  `json:"startedAt" db:"started_at"`
	FinishedAt *time.Time `json:"finishedAt,omitempty" db:"finished_at"`
}

// JobHealth is the derived health summary for one job, per spec §4.8.
type JobHealth struct {
	JobName            string     `json:"jobName"`
	LastSuccessAt      *time.Time `json:"lastSuccessAt,omitempty"`
	LastRowCount       *int       `json:"lastRowCount,omitempty"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	DriftHours         float64    `json:"driftHours"`
	Status             string     `json:"status"`
}

// Draft is the external composer-draft collaborator's record, given a
// real Postgres-backed implementation here since composer_drafts is
// already an owned table. Keyed so each author has at most one
// in-flight draft per response context.
type Draft struct {
	ID           string    `json:"id" db:"id"`
	AuthorID     string    `json:"authorId" db:"author_id"`
	RespondsToID *string   `json:"respondsToId,omitempty" db:"responds_to_id"`
	Body         string    `json:"body" db:"body"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
