package moderation

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// CanRetag checks whether the actor may apply tags to a question: owners
// always may, others need a silver or gold badge in one of the new tags.
func (s *Service) CanRetag(ctx context.Context, actorID, questionID uuid.UUID, tags []string) (Decision, error) {
	var cleaned []string
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return Decision{}, ErrInvalidRetagTags
	}

	var decision Decision
	err := s.run(ctx, func(repo Repo, _ *outbox) error {
		q, err := repo.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		user, err := repo.GetUser(ctx, actorID)
		if err != nil {
			return err
		}
		decision, err = NewGate(repo).Authorize(ctx, ActorFromUser(user), ActionRetag, Target{
			OwnerID: q.OwnerID,
			Tags:    q.Tags,
			NewTags: cleaned,
		})
		return err
	})
	return decision, err
}
