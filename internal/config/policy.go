package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"qamod/internal/models"
)

// Policy is the structure of the moderation policy file. It carries the
// hierarchical settings that are awkward as env vars: the close reason
// catalogue and per-category review thresholds. Entries are upserted into the
// store at startup; anything not listed keeps its stored value.
type Policy struct {
	Closure         *ClosurePolicy          `yaml:"closure,omitempty"`
	CloseReasons    []CloseReasonPolicy     `yaml:"close_reasons"`
	ReviewThreshold []ReviewThresholdPolicy `yaml:"review_thresholds"`
}

// ClosurePolicy overrides the close and reopen thresholds.
type ClosurePolicy struct {
	CloseVotesNeeded    *int `yaml:"close_votes_needed,omitempty"`
	ReopenVotesNeeded   *int `yaml:"reopen_votes_needed,omitempty"`
	MinReputationClose  *int `yaml:"min_reputation_close,omitempty"`
	MinReputationReopen *int `yaml:"min_reputation_reopen,omitempty"`
}

// CloseReasonPolicy defines one close reason.
type CloseReasonPolicy struct {
	Code            string `yaml:"code"`
	Label           string `yaml:"label"`
	RequiresDetails bool   `yaml:"requires_details,omitempty"`
	VotesNeeded     *int   `yaml:"votes_needed,omitempty"` // overrides closure.close_votes_needed
	Disabled        bool   `yaml:"disabled,omitempty"`
}

// ReviewThresholdPolicy configures one review category.
type ReviewThresholdPolicy struct {
	ReviewType    string `yaml:"review_type"`
	VotesNeeded   int    `yaml:"votes_needed"`
	MinReputation int    `yaml:"min_reputation"`
}

// LoadPolicy loads the policy file at path.
// Returns nil without error if the file doesn't exist.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Policy file is optional
			return nil, nil
		}
		return nil, err
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse policy %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks every entry before anything is written.
func (p *Policy) Validate() error {
	if p == nil {
		return nil
	}
	if c := p.Closure; c != nil {
		for name, v := range map[string]*int{
			"close_votes_needed":  c.CloseVotesNeeded,
			"reopen_votes_needed": c.ReopenVotesNeeded,
		} {
			if v != nil && *v < 1 {
				return fmt.Errorf("closure.%s must be at least 1", name)
			}
		}
		for name, v := range map[string]*int{
			"min_reputation_close":  c.MinReputationClose,
			"min_reputation_reopen": c.MinReputationReopen,
		} {
			if v != nil && *v < 0 {
				return fmt.Errorf("closure.%s must not be negative", name)
			}
		}
	}

	seen := make(map[string]bool)
	for _, r := range p.CloseReasons {
		if r.Code == "" || r.Label == "" {
			return fmt.Errorf("close reason needs code and label")
		}
		if seen[r.Code] {
			return fmt.Errorf("close reason %q listed twice", r.Code)
		}
		seen[r.Code] = true
		if r.VotesNeeded != nil && *r.VotesNeeded < 1 {
			return fmt.Errorf("close reason %q: votes_needed must be at least 1", r.Code)
		}
	}

	for _, t := range p.ReviewThreshold {
		if _, err := models.ParseReviewType(t.ReviewType); err != nil {
			return err
		}
		if t.VotesNeeded < 1 {
			return fmt.Errorf("review threshold %q: votes_needed must be at least 1", t.ReviewType)
		}
		if t.MinReputation < 0 {
			return fmt.Errorf("review threshold %q: min_reputation must not be negative", t.ReviewType)
		}
	}
	return nil
}

// ClosurePatch converts the closure section into a store patch.
func (p *Policy) ClosurePatch() models.ClosureConfigPatch {
	if p == nil || p.Closure == nil {
		return models.ClosureConfigPatch{}
	}
	return models.ClosureConfigPatch{
		CloseVotesNeeded:    p.Closure.CloseVotesNeeded,
		ReopenVotesNeeded:   p.Closure.ReopenVotesNeeded,
		MinReputationClose:  p.Closure.MinReputationClose,
		MinReputationReopen: p.Closure.MinReputationReopen,
	}
}

// Reasons converts the close reason entries into models.
func (p *Policy) Reasons() []models.CloseReason {
	if p == nil {
		return nil
	}
	out := make([]models.CloseReason, 0, len(p.CloseReasons))
	for _, r := range p.CloseReasons {
		out = append(out, models.CloseReason{
			Code:            r.Code,
			Label:           r.Label,
			RequiresDetails: r.RequiresDetails,
			VotesNeeded:     r.VotesNeeded,
			IsActive:        !r.Disabled,
		})
	}
	return out
}

// Thresholds converts the review threshold entries into models.
func (p *Policy) Thresholds() []models.ReviewThreshold {
	if p == nil {
		return nil
	}
	out := make([]models.ReviewThreshold, 0, len(p.ReviewThreshold))
	for _, t := range p.ReviewThreshold {
		out = append(out, models.ReviewThreshold{
			ReviewType:    models.ReviewType(t.ReviewType),
			VotesNeeded:   t.VotesNeeded,
			MinReputation: t.MinReputation,
		})
	}
	return out
}
