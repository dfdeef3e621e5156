package moderation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"qamod/internal/models"
)

// Action is a moderation action checked by the Gate.
type Action int

const (
	ActionCloseVote Action = iota
	ActionHammer
	ActionRetag
	ActionReopenVote
	ActionReviewFlag
	ActionReviewVote
)

func (a Action) String() string {
	switch a {
	case ActionCloseVote:
		return "close_vote"
	case ActionHammer:
		return "hammer"
	case ActionRetag:
		return "retag"
	case ActionReopenVote:
		return "reopen_vote"
	case ActionReviewFlag:
		return "review_flag"
	case ActionReviewVote:
		return "review_vote"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// selfModeration lists actions a user may never take on their own content.
func (a Action) selfModeration() bool {
	switch a {
	case ActionCloseVote, ActionHammer, ActionReviewFlag, ActionReviewVote:
		return true
	}
	return false
}

// Actor is the user attempting an action.
type Actor struct {
	ID         uuid.UUID
	Reputation int
}

// ActorFromUser builds an Actor from a loaded user row.
func ActorFromUser(u *models.User) Actor {
	return Actor{ID: u.ID, Reputation: u.Reputation}
}

// Target is what the action is applied to.
type Target struct {
	OwnerID       uuid.UUID
	Tags          []string // tags on the content
	NewTags       []string // tags being applied, retag only
	MinReputation int
}

// Decision is the outcome of an authorization check. Reason is one of
// *ReputationError, *BadgeError or ErrSelfContent when Allowed is false.
type Decision struct {
	Allowed bool
	Reason  error
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason error) Decision { return Decision{Reason: reason} }

// Gate decides whether an actor may perform a moderation action. It has no
// side effects.
type Gate struct {
	badges BadgeRegistry
}

// NewGate creates a gate backed by the given badge registry.
func NewGate(badges BadgeRegistry) *Gate {
	return &Gate{badges: badges}
}

// Authorize checks action for actor against target. The error is only
// non-nil when the badge registry fails.
func (g *Gate) Authorize(ctx context.Context, actor Actor, action Action, target Target) (Decision, error) {
	if action.selfModeration() && actor.ID == target.OwnerID {
		return deny(ErrSelfContent), nil
	}

	switch action {
	case ActionCloseVote:
		if actor.Reputation >= target.MinReputation {
			return allow(), nil
		}
		gold, err := g.hasBadgeInAny(ctx, actor.ID, target.Tags, models.BadgeGold)
		if err != nil {
			return Decision{}, err
		}
		if gold {
			return allow(), nil
		}
		return deny(&ReputationError{Required: target.MinReputation, Current: actor.Reputation}), nil

	case ActionHammer:
		gold, err := g.hasBadgeInAny(ctx, actor.ID, target.Tags, models.BadgeGold)
		if err != nil {
			return Decision{}, err
		}
		if gold {
			return allow(), nil
		}
		return deny(&BadgeError{Tier: models.BadgeGold}), nil

	case ActionRetag:
		if actor.ID == target.OwnerID {
			return allow(), nil
		}
		silver, err := g.hasBadgeInAny(ctx, actor.ID, target.NewTags, models.BadgeSilver)
		if err != nil {
			return Decision{}, err
		}
		if silver {
			return allow(), nil
		}
		return deny(&BadgeError{Tier: models.BadgeSilver}), nil

	case ActionReopenVote, ActionReviewFlag, ActionReviewVote:
		if actor.Reputation >= target.MinReputation {
			return allow(), nil
		}
		return deny(&ReputationError{Required: target.MinReputation, Current: actor.Reputation}), nil
	}

	return Decision{}, fmt.Errorf("unknown moderation action %s", action)
}

func (g *Gate) hasBadgeInAny(ctx context.Context, userID uuid.UUID, tags []string, tier models.BadgeTier) (bool, error) {
	if g.badges == nil {
		return false, nil
	}
	for _, tag := range tags {
		ok, err := g.badges.HasTagBadge(ctx, userID, tag, tier)
		if err != nil {
			return false, fmt.Errorf("failed to check %s badge in %q: %w", tier, tag, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
