package moderation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"qamod/internal/models"
)

// Store runs a unit of work inside one transaction. Implementations roll
// back when fn returns an error and may rerun fn on transient failures, so
// fn must not have side effects outside the Repo.
type Store interface {
	WithTx(ctx context.Context, fn func(Repo) error) error
}

// Repo is the transaction-scoped view of the shared relational store.
// Lock* methods take a row lock held until the transaction ends. Lookups of
// missing rows return an error wrapping models.ErrNotFound.
type Repo interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	LockUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	AwardReputation(ctx context.Context, userID uuid.UUID, points int, reason string, ref models.ReputationRef) (int, error)
	GetReputationHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.ReputationEntry, error)

	GetClosureConfig(ctx context.Context) (*models.ClosureConfig, error)
	GetCloseReason(ctx context.Context, code string) (*models.CloseReason, error)
	GetReviewThreshold(ctx context.Context, rt models.ReviewType) (*models.ReviewThreshold, error)

	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	LockQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	CloseQuestion(ctx context.Context, id uuid.UUID, c Closure) error
	ReopenQuestion(ctx context.Context, id uuid.UUID) error

	// InsertCloseVote returns false when an active vote for the same
	// (question, user, reason) already exists.
	InsertCloseVote(ctx context.Context, v *models.CloseVote) (bool, error)
	GetActiveCloseVotes(ctx context.Context, questionID uuid.UUID, reasonCode string) ([]models.CloseVote, error)
	CountActiveCloseVotes(ctx context.Context, questionID uuid.UUID) (map[string]int, error)
	DeactivateCloseVote(ctx context.Context, questionID, userID uuid.UUID, reasonCode string) (bool, error)
	DeactivateCloseVotes(ctx context.Context, questionID uuid.UUID) error

	// InsertReopenVote returns false when the user already has an active vote.
	InsertReopenVote(ctx context.Context, v *models.ReopenVote) (bool, error)
	GetActiveReopenVotes(ctx context.Context, questionID uuid.UUID) ([]models.ReopenVote, error)
	DeactivateReopenVotes(ctx context.Context, questionID uuid.UUID) error

	GetContent(ctx context.Context, ref models.ContentRef) (*models.Content, error)

	// LockPendingReviewItem finds or creates the sole pending item for
	// (content, review type) and locks it. created reports an insert.
	LockPendingReviewItem(ctx context.Context, ref models.ContentRef, rt models.ReviewType, flaggedBy uuid.UUID) (item *models.ReviewQueueItem, created bool, err error)
	GetReviewItem(ctx context.Context, id uuid.UUID) (*models.ReviewQueueItem, error)
	LockReviewItem(ctx context.Context, id uuid.UUID) (*models.ReviewQueueItem, error)
	ListPendingReviewItems(ctx context.Context, rt models.ReviewType, viewerID uuid.UUID, limit int) ([]models.ReviewQueueItem, error)
	// GetReviewVote returns nil without error when the user has not voted.
	GetReviewVote(ctx context.Context, itemID, userID uuid.UUID) (*models.ReviewVote, error)
	UpsertReviewVote(ctx context.Context, itemID, userID uuid.UUID, vote string) error
	GetReviewVotes(ctx context.Context, itemID uuid.UUID) ([]models.ReviewVote, error)
	UpdateReviewTally(ctx context.Context, itemID uuid.UUID, hide, keep int) error
	ResolveReviewItem(ctx context.Context, itemID uuid.UUID, status string, at time.Time) error
	// CountReviewsSince counts distinct items of rt the user first voted on at or after since.
	CountReviewsSince(ctx context.Context, userID uuid.UUID, rt models.ReviewType, since time.Time) (int, error)

	HasActiveContentFlag(ctx context.Context, ref models.ContentRef, flagType string) (bool, error)
	ApplyContentFlag(ctx context.Context, ref models.ContentRef, flagType string, itemID uuid.UUID) error

	InsertModerationLog(ctx context.Context, e *models.ModerationLogEntry) error

	// Badge checks read through the transaction so a privilege decision
	// never needs a second connection.
	BadgeRegistry
}

// Closure is the metadata written when a question closes.
type Closure struct {
	ReasonCode    string
	Details       *string
	ClosedBy      *uuid.UUID // nil for consensus closures
	DuplicateOfID *uuid.UUID
	At            time.Time
}

// BadgeRegistry answers tag badge queries. HasTagBadge reports whether the
// user holds an active badge of at least tier in tag.
type BadgeRegistry interface {
	HasTagBadge(ctx context.Context, userID uuid.UUID, tag string, tier models.BadgeTier) (bool, error)
}

// Event kinds
const (
	EventQuestionClosed   = "question_closed"
	EventQuestionReopened = "question_reopened"
	EventReviewResolved   = "review_resolved"
)

// Event describes a committed resolution.
type Event struct {
	Kind     string
	Question *models.Question
	Item     *models.ReviewQueueItem
	Voters   []uuid.UUID // users paid the consensus bonus
	Hammer   bool
}

// Notifier receives events after their transaction commits. Implementations
// must not block.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) {}
