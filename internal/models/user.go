package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the slice of the host application's user aggregate the engine reads
// and writes. Reputation is the cached running total of reputation_history.
type User struct {
	ID         uuid.UUID `json:"id"`
	Sub        string    `json:"sub"` // OIDC subject identifier
	Name       string    `json:"name"`
	Reputation int       `json:"reputation"`
	CreatedAt  time.Time `json:"created_at"`
}

// BadgeTier is the tier of a per-tag badge.
type BadgeTier string

// Badge tier constants
const (
	BadgeBronze BadgeTier = "bronze"
	BadgeSilver BadgeTier = "silver"
	BadgeGold   BadgeTier = "gold"
)

// Rank orders tiers so that a higher tier satisfies a lower requirement.
func (t BadgeTier) Rank() int {
	switch t {
	case BadgeGold:
		return 3
	case BadgeSilver:
		return 2
	case BadgeBronze:
		return 1
	}
	return 0
}

// Satisfies reports whether holding t meets a requirement of min.
func (t BadgeTier) Satisfies(min BadgeTier) bool {
	return t.Rank() > 0 && t.Rank() >= min.Rank()
}
