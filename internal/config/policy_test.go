package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qamod/internal/models"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write policy: %v", err)
	}
	return path
}

func TestLoadPolicy_Missing(t *testing.T) {
	p, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadPolicy() error = %v", err)
	}
	if p != nil {
		t.Errorf("LoadPolicy() = %+v, want nil", p)
	}

	// A nil policy converts to empty updates.
	if p.ClosurePatch() != (models.ClosureConfigPatch{}) || p.Reasons() != nil || p.Thresholds() != nil {
		t.Error("nil policy produced updates")
	}
}

func TestLoadPolicy(t *testing.T) {
	path := writePolicy(t, `
closure:
  close_votes_needed: 4
  min_reputation_reopen: 1000
close_reasons:
  - code: stale-prices
    label: Prices are out of date
    votes_needed: 2
  - code: off-topic
    label: Off-topic
    requires_details: true
  - code: not-reproducible
    label: Not reproducible
    disabled: true
review_thresholds:
  - review_type: spam_scam
    votes_needed: 6
    min_reputation: 150
`)

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy() error = %v", err)
	}

	patch := p.ClosurePatch()
	if patch.CloseVotesNeeded == nil || *patch.CloseVotesNeeded != 4 {
		t.Errorf("CloseVotesNeeded = %v, want 4", patch.CloseVotesNeeded)
	}
	if patch.MinReputationReopen == nil || *patch.MinReputationReopen != 1000 {
		t.Errorf("MinReputationReopen = %v, want 1000", patch.MinReputationReopen)
	}
	if patch.ReopenVotesNeeded != nil || patch.MinReputationClose != nil {
		t.Error("unset closure fields should stay nil")
	}

	reasons := p.Reasons()
	if len(reasons) != 3 {
		t.Fatalf("Reasons() returned %d, want 3", len(reasons))
	}
	if reasons[0].VotesNeeded == nil || *reasons[0].VotesNeeded != 2 || !reasons[0].IsActive {
		t.Errorf("stale-prices = %+v", reasons[0])
	}
	if !reasons[1].RequiresDetails {
		t.Error("off-topic should require details")
	}
	if reasons[2].IsActive {
		t.Error("disabled reason should be inactive")
	}

	thresholds := p.Thresholds()
	want := models.ReviewThreshold{ReviewType: models.ReviewSpamScam, VotesNeeded: 6, MinReputation: 150}
	if len(thresholds) != 1 || thresholds[0] != want {
		t.Errorf("Thresholds() = %+v, want [%+v]", thresholds, want)
	}
}

func TestLoadPolicy_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"bad yaml", "close_reasons: [", "failed to parse"},
		{"zero close votes", "closure:\n  close_votes_needed: 0\n", "close_votes_needed"},
		{"negative reputation", "closure:\n  min_reputation_close: -1\n", "min_reputation_close"},
		{"reason without label", "close_reasons:\n  - code: spam\n", "code and label"},
		{"duplicate reason", "close_reasons:\n  - {code: a, label: A}\n  - {code: a, label: B}\n", "listed twice"},
		{"zero reason votes", "close_reasons:\n  - {code: a, label: A, votes_needed: 0}\n", "votes_needed"},
		{"unknown review type", "review_thresholds:\n  - {review_type: rude, votes_needed: 3}\n", "unknown review type"},
		{"zero review votes", "review_thresholds:\n  - {review_type: outdated, votes_needed: 0}\n", "votes_needed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPolicy(writePolicy(t, tt.content))
			if err == nil {
				t.Fatal("LoadPolicy() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("LoadPolicy() error = %v, want it to mention %q", err, tt.errText)
			}
		})
	}
}
