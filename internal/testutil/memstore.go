package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"qamod/internal/models"
	"qamod/internal/moderation"
)

var (
	_ moderation.Store         = (*MemStore)(nil)
	_ moderation.BadgeRegistry = (*MemStore)(nil)
	_ moderation.Repo          = (*memRepo)(nil)
)

type post struct {
	owner      uuid.UUID
	questionID uuid.UUID
}

type badgeKey struct {
	user uuid.UUID
	tag  string
}

type voteKey struct {
	item uuid.UUID
	user uuid.UUID
}

type memState struct {
	users       map[uuid.UUID]models.User
	questions   map[uuid.UUID]models.Question
	answers     map[uuid.UUID]post
	comments    map[uuid.UUID]post
	closure     models.ClosureConfig
	reasons     map[string]models.CloseReason
	thresholds  map[models.ReviewType]models.ReviewThreshold
	closeVotes  []models.CloseVote
	reopenVotes []models.ReopenVote
	items       []models.ReviewQueueItem
	reviewVotes []models.ReviewVote
	flags       []models.ContentFlag
	ledger      []models.ReputationEntry
	log         []models.ModerationLogEntry
	seq         int64
}

func (s *memState) clone() *memState {
	c := *s
	c.users = cloneMap(s.users)
	c.questions = cloneMap(s.questions)
	c.answers = cloneMap(s.answers)
	c.comments = cloneMap(s.comments)
	c.reasons = cloneMap(s.reasons)
	c.thresholds = cloneMap(s.thresholds)
	c.closeVotes = append([]models.CloseVote(nil), s.closeVotes...)
	c.reopenVotes = append([]models.ReopenVote(nil), s.reopenVotes...)
	c.items = append([]models.ReviewQueueItem(nil), s.items...)
	c.reviewVotes = append([]models.ReviewVote(nil), s.reviewVotes...)
	c.flags = append([]models.ContentFlag(nil), s.flags...)
	c.ledger = append([]models.ReputationEntry(nil), s.ledger...)
	c.log = append([]models.ModerationLogEntry(nil), s.log...)
	return &c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// MemStore is an in-memory moderation.Store for tests. Transactions are
// serialized and run against a copy of the state that is only published when
// fn succeeds, so a failed operation leaves no trace.
type MemStore struct {
	mu sync.Mutex
	st *memState

	badgeMu sync.RWMutex
	badges  map[badgeKey]models.BadgeTier

	// Now stamps created rows. Defaults to time.Now.
	Now func() time.Time

	// FailOn makes the named Repo method return the error once.
	FailOn map[string]error

	// Attempts counts WithTx calls.
	Attempts int
}

// NewMemStore creates a store seeded with the default close reasons, closure
// config and review thresholds.
func NewMemStore() *MemStore {
	st := &memState{
		users:     map[uuid.UUID]models.User{},
		questions: map[uuid.UUID]models.Question{},
		answers:   map[uuid.UUID]post{},
		comments:  map[uuid.UUID]post{},
		closure: models.ClosureConfig{
			CloseVotesNeeded:    3,
			ReopenVotesNeeded:   3,
			MinReputationClose:  500,
			MinReputationReopen: 500,
		},
		reasons: map[string]models.CloseReason{},
		thresholds: map[models.ReviewType]models.ReviewThreshold{
			models.ReviewSpamScam: {ReviewType: models.ReviewSpamScam, VotesNeeded: 5, MinReputation: 100},
			models.ReviewOutdated: {ReviewType: models.ReviewOutdated, VotesNeeded: 5, MinReputation: 500},
		},
	}
	for _, r := range []models.CloseReason{
		{Code: "duplicate", Label: "Duplicate of another question", IsActive: true},
		{Code: "off-topic", Label: "Off-topic", RequiresDetails: true, IsActive: true},
		{Code: "needs-details", Label: "Needs details or clarity", IsActive: true},
		{Code: "needs-focus", Label: "Needs more focus", IsActive: true},
		{Code: "opinion-based", Label: "Opinion-based", IsActive: true},
		{Code: "spam", Label: "Spam or promotional content", IsActive: true},
		{Code: "stale-prices", Label: "Prices are out of date", IsActive: true},
	} {
		st.reasons[r.Code] = r
	}
	return &MemStore{
		st:     st,
		badges: map[badgeKey]models.BadgeTier{},
		Now:    time.Now,
		FailOn: map[string]error{},
	}
}

// WithTx implements moderation.Store.
func (m *MemStore) WithTx(ctx context.Context, fn func(moderation.Repo) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts++

	work := m.st.clone()
	if err := fn(&memRepo{m: m, st: work}); err != nil {
		return err
	}
	m.st = work
	return nil
}

// HasTagBadge implements moderation.BadgeRegistry.
func (m *MemStore) HasTagBadge(_ context.Context, userID uuid.UUID, tag string, tier models.BadgeTier) (bool, error) {
	m.badgeMu.RLock()
	defer m.badgeMu.RUnlock()
	held, ok := m.badges[badgeKey{userID, tag}]
	return ok && held.Satisfies(tier), nil
}

// Seeding helpers

// AddUser creates a user with the given reputation and returns its id. The
// starting reputation is not backed by ledger entries.
func (m *MemStore) AddUser(name string, reputation int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := models.User{ID: uuid.New(), Sub: name, Name: name, Reputation: reputation, CreatedAt: m.Now()}
	m.st.users[u.ID] = u
	return u.ID
}

// GrantBadge gives a user a badge tier in a tag.
func (m *MemStore) GrantBadge(userID uuid.UUID, tag string, tier models.BadgeTier) {
	m.badgeMu.Lock()
	defer m.badgeMu.Unlock()
	m.badges[badgeKey{userID, tag}] = tier
}

// AddQuestion creates an open question and returns its id.
func (m *MemStore) AddQuestion(owner uuid.UUID, tags ...string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := models.Question{
		ID:        uuid.New(),
		OwnerID:   owner,
		Title:     "question",
		Status:    models.QuestionOpen,
		Tags:      append([]string{}, tags...),
		CreatedAt: m.Now(),
	}
	m.st.questions[q.ID] = q
	return q.ID
}

// AddAnswer creates an answer on a question and returns its id.
func (m *MemStore) AddAnswer(owner, questionID uuid.UUID) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.st.answers[id] = post{owner: owner, questionID: questionID}
	return id
}

// AddComment creates a comment under a question and returns its id.
func (m *MemStore) AddComment(owner, questionID uuid.UUID) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.st.comments[id] = post{owner: owner, questionID: questionID}
	return id
}

// SetClosureConfig replaces the closure thresholds.
func (m *MemStore) SetClosureConfig(c models.ClosureConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.closure = c
}

// SetCloseReason creates or replaces a close reason.
func (m *MemStore) SetCloseReason(r models.CloseReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.reasons[r.Code] = r
}

// SetThreshold replaces a review type's threshold.
func (m *MemStore) SetThreshold(t models.ReviewThreshold) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.thresholds[t.ReviewType] = t
}

// Inspection helpers

// Reputation returns a user's cached reputation.
func (m *MemStore) Reputation(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.users[userID].Reputation
}

// Ledger returns a user's reputation entries, oldest first.
func (m *MemStore) Ledger(userID uuid.UUID) []models.ReputationEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReputationEntry
	for _, e := range m.st.ledger {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// Question returns a copy of a question.
func (m *MemStore) Question(id uuid.UUID) models.Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.questions[id]
}

// CloseVotes returns every close vote on a question, active or not.
func (m *MemStore) CloseVotes(questionID uuid.UUID) []models.CloseVote {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CloseVote
	for _, v := range m.st.closeVotes {
		if v.QuestionID == questionID {
			out = append(out, v)
		}
	}
	return out
}

// ReopenVotes returns every reopen vote on a question, active or not.
func (m *MemStore) ReopenVotes(questionID uuid.UUID) []models.ReopenVote {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReopenVote
	for _, v := range m.st.reopenVotes {
		if v.QuestionID == questionID {
			out = append(out, v)
		}
	}
	return out
}

// ReviewItems returns every review item on a piece of content.
func (m *MemStore) ReviewItems(ref models.ContentRef) []models.ReviewQueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReviewQueueItem
	for _, it := range m.st.items {
		if it.Content() == ref {
			out = append(out, it)
		}
	}
	return out
}

// ContentFlags returns every flag on a piece of content.
func (m *MemStore) ContentFlags(ref models.ContentRef) []models.ContentFlag {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ContentFlag
	for _, f := range m.st.flags {
		if f.ContentType == ref.Type && f.ContentID == ref.ID {
			out = append(out, f)
		}
	}
	return out
}

// ModerationLog returns all audit entries, oldest first.
func (m *MemStore) ModerationLog() []models.ModerationLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ModerationLogEntry(nil), m.st.log...)
}

// memRepo is the transaction view handed to fn.
type memRepo struct {
	m  *MemStore
	st *memState
}

func (r *memRepo) fail(op string) error {
	if err, ok := r.m.FailOn[op]; ok {
		delete(r.m.FailOn, op)
		return err
	}
	return nil
}

func (r *memRepo) nextID() int64 {
	r.st.seq++
	return r.st.seq
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, models.ErrNotFound)
}

func (r *memRepo) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, notFound("user")
	}
	return &u, nil
}

func (r *memRepo) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.GetUser(ctx, id)
}

func (r *memRepo) AwardReputation(_ context.Context, userID uuid.UUID, points int, reason string, ref models.ReputationRef) (int, error) {
	if err := r.fail("AwardReputation"); err != nil {
		return 0, err
	}
	u, ok := r.st.users[userID]
	if !ok {
		return 0, notFound("user")
	}
	u.Reputation = max(0, u.Reputation+points)
	r.st.users[userID] = u
	r.st.ledger = append(r.st.ledger, models.ReputationEntry{
		ID:            r.nextID(),
		UserID:        userID,
		Points:        points,
		Reason:        reason,
		ReferenceType: ref.Type,
		ReferenceID:   ref.ID,
		CreatedAt:     r.m.Now(),
	})
	return u.Reputation, nil
}

func (r *memRepo) GetReputationHistory(_ context.Context, userID uuid.UUID, limit int) ([]models.ReputationEntry, error) {
	var out []models.ReputationEntry
	for i := len(r.st.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if r.st.ledger[i].UserID == userID {
			out = append(out, r.st.ledger[i])
		}
	}
	return out, nil
}

func (r *memRepo) GetClosureConfig(context.Context) (*models.ClosureConfig, error) {
	c := r.st.closure
	return &c, nil
}

func (r *memRepo) GetCloseReason(_ context.Context, code string) (*models.CloseReason, error) {
	reason, ok := r.st.reasons[code]
	if !ok {
		return nil, notFound("close reason")
	}
	return &reason, nil
}

func (r *memRepo) GetReviewThreshold(_ context.Context, rt models.ReviewType) (*models.ReviewThreshold, error) {
	t, ok := r.st.thresholds[rt]
	if !ok {
		return nil, notFound("review threshold")
	}
	return &t, nil
}

func (r *memRepo) GetQuestion(_ context.Context, id uuid.UUID) (*models.Question, error) {
	q, ok := r.st.questions[id]
	if !ok {
		return nil, notFound("question")
	}
	q.Tags = append([]string{}, q.Tags...)
	return &q, nil
}

func (r *memRepo) LockQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	return r.GetQuestion(ctx, id)
}

func (r *memRepo) CloseQuestion(_ context.Context, id uuid.UUID, c moderation.Closure) error {
	q, ok := r.st.questions[id]
	if !ok || q.Status != models.QuestionOpen {
		return notFound("question")
	}
	code, at := c.ReasonCode, c.At
	q.Status = models.QuestionClosed
	q.CloseReasonCode = &code
	q.CloseDetails = c.Details
	q.ClosedBy = c.ClosedBy
	q.ClosedAt = &at
	q.DuplicateOfID = c.DuplicateOfID
	r.st.questions[id] = q
	return nil
}

func (r *memRepo) ReopenQuestion(_ context.Context, id uuid.UUID) error {
	q, ok := r.st.questions[id]
	if !ok || q.Status != models.QuestionClosed {
		return notFound("question")
	}
	q.Status = models.QuestionOpen
	q.CloseReasonCode, q.CloseDetails, q.ClosedBy, q.ClosedAt, q.DuplicateOfID = nil, nil, nil, nil, nil
	r.st.questions[id] = q
	return nil
}

func (r *memRepo) InsertCloseVote(_ context.Context, v *models.CloseVote) (bool, error) {
	for i, existing := range r.st.closeVotes {
		if existing.IsActive && existing.QuestionID == v.QuestionID &&
			existing.UserID == v.UserID && existing.ReasonCode == v.ReasonCode {
			r.st.closeVotes[i].IsHammer = existing.IsHammer || v.IsHammer
			v.ID, v.CreatedAt = existing.ID, existing.CreatedAt
			return false, nil
		}
	}
	v.ID = uuid.New()
	v.IsActive = true
	v.CreatedAt = r.m.Now()
	r.st.closeVotes = append(r.st.closeVotes, *v)
	return true, nil
}

func (r *memRepo) GetActiveCloseVotes(_ context.Context, questionID uuid.UUID, reasonCode string) ([]models.CloseVote, error) {
	var out []models.CloseVote
	for _, v := range r.st.closeVotes {
		if v.IsActive && v.QuestionID == questionID && v.ReasonCode == reasonCode {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memRepo) CountActiveCloseVotes(_ context.Context, questionID uuid.UUID) (map[string]int, error) {
	counts := map[string]int{}
	for _, v := range r.st.closeVotes {
		if v.IsActive && v.QuestionID == questionID {
			counts[v.ReasonCode]++
		}
	}
	return counts, nil
}

func (r *memRepo) DeactivateCloseVote(_ context.Context, questionID, userID uuid.UUID, reasonCode string) (bool, error) {
	for i, v := range r.st.closeVotes {
		if v.IsActive && v.QuestionID == questionID && v.UserID == userID && v.ReasonCode == reasonCode {
			r.st.closeVotes[i].IsActive = false
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) DeactivateCloseVotes(_ context.Context, questionID uuid.UUID) error {
	for i, v := range r.st.closeVotes {
		if v.QuestionID == questionID {
			r.st.closeVotes[i].IsActive = false
		}
	}
	return nil
}

func (r *memRepo) InsertReopenVote(_ context.Context, v *models.ReopenVote) (bool, error) {
	for _, existing := range r.st.reopenVotes {
		if existing.IsActive && existing.QuestionID == v.QuestionID && existing.UserID == v.UserID {
			return false, nil
		}
	}
	v.ID = uuid.New()
	v.IsActive = true
	v.CreatedAt = r.m.Now()
	r.st.reopenVotes = append(r.st.reopenVotes, *v)
	return true, nil
}

func (r *memRepo) GetActiveReopenVotes(_ context.Context, questionID uuid.UUID) ([]models.ReopenVote, error) {
	var out []models.ReopenVote
	for _, v := range r.st.reopenVotes {
		if v.IsActive && v.QuestionID == questionID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memRepo) DeactivateReopenVotes(_ context.Context, questionID uuid.UUID) error {
	for i, v := range r.st.reopenVotes {
		if v.QuestionID == questionID {
			r.st.reopenVotes[i].IsActive = false
		}
	}
	return nil
}

func (r *memRepo) GetContent(_ context.Context, ref models.ContentRef) (*models.Content, error) {
	var owner, questionID uuid.UUID
	switch ref.Type {
	case models.ContentQuestion:
		q, ok := r.st.questions[ref.ID]
		if !ok {
			return nil, notFound("content")
		}
		owner, questionID = q.OwnerID, q.ID
	case models.ContentAnswer, models.ContentComment:
		posts := r.st.answers
		if ref.Type == models.ContentComment {
			posts = r.st.comments
		}
		p, ok := posts[ref.ID]
		if !ok {
			return nil, notFound("content")
		}
		owner, questionID = p.owner, p.questionID
	default:
		return nil, fmt.Errorf("unsupported content type %q", ref.Type)
	}
	tags := append([]string{}, r.st.questions[questionID].Tags...)
	return &models.Content{ContentRef: ref, OwnerID: owner, Tags: tags}, nil
}

func (r *memRepo) itemIndex(id uuid.UUID) int {
	for i, it := range r.st.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (r *memRepo) LockPendingReviewItem(_ context.Context, ref models.ContentRef, rt models.ReviewType, flaggedBy uuid.UUID) (*models.ReviewQueueItem, bool, error) {
	for _, it := range r.st.items {
		if it.IsPending() && it.Content() == ref && it.ReviewType == rt {
			return &it, false, nil
		}
	}
	it := models.ReviewQueueItem{
		ID:          uuid.New(),
		ContentType: ref.Type,
		ContentID:   ref.ID,
		ReviewType:  rt,
		FlaggedBy:   flaggedBy,
		Status:      models.ReviewPending,
		CreatedAt:   r.m.Now(),
	}
	r.st.items = append(r.st.items, it)
	return &it, true, nil
}

func (r *memRepo) GetReviewItem(_ context.Context, id uuid.UUID) (*models.ReviewQueueItem, error) {
	i := r.itemIndex(id)
	if i < 0 {
		return nil, notFound("review item")
	}
	it := r.st.items[i]
	return &it, nil
}

func (r *memRepo) LockReviewItem(ctx context.Context, id uuid.UUID) (*models.ReviewQueueItem, error) {
	return r.GetReviewItem(ctx, id)
}

func (r *memRepo) ListPendingReviewItems(ctx context.Context, rt models.ReviewType, viewerID uuid.UUID, limit int) ([]models.ReviewQueueItem, error) {
	var out []models.ReviewQueueItem
	for _, it := range r.st.items {
		if len(out) >= limit {
			break
		}
		if !it.IsPending() || it.ReviewType != rt {
			continue
		}
		content, err := r.GetContent(ctx, it.Content())
		if err == nil && content.OwnerID == viewerID {
			continue
		}
		if v, _ := r.GetReviewVote(ctx, it.ID, viewerID); v != nil {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) GetReviewVote(_ context.Context, itemID, userID uuid.UUID) (*models.ReviewVote, error) {
	for _, v := range r.st.reviewVotes {
		if v.ItemID == itemID && v.UserID == userID {
			return &v, nil
		}
	}
	return nil, nil
}

func (r *memRepo) UpsertReviewVote(_ context.Context, itemID, userID uuid.UUID, vote string) error {
	now := r.m.Now()
	for i, v := range r.st.reviewVotes {
		if v.ItemID == itemID && v.UserID == userID {
			r.st.reviewVotes[i].Vote = vote
			r.st.reviewVotes[i].UpdatedAt = now
			return nil
		}
	}
	r.st.reviewVotes = append(r.st.reviewVotes, models.ReviewVote{
		ItemID: itemID, UserID: userID, Vote: vote, CreatedAt: now, UpdatedAt: now,
	})
	return nil
}

func (r *memRepo) GetReviewVotes(_ context.Context, itemID uuid.UUID) ([]models.ReviewVote, error) {
	var out []models.ReviewVote
	for _, v := range r.st.reviewVotes {
		if v.ItemID == itemID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memRepo) UpdateReviewTally(_ context.Context, itemID uuid.UUID, hide, keep int) error {
	i := r.itemIndex(itemID)
	if i < 0 {
		return notFound("review item")
	}
	r.st.items[i].HideVotes, r.st.items[i].KeepVotes = hide, keep
	return nil
}

func (r *memRepo) ResolveReviewItem(_ context.Context, itemID uuid.UUID, status string, at time.Time) error {
	i := r.itemIndex(itemID)
	if i < 0 || !r.st.items[i].IsPending() {
		return notFound("review item")
	}
	r.st.items[i].Status = status
	r.st.items[i].ResolvedAt = &at
	return nil
}

func (r *memRepo) CountReviewsSince(_ context.Context, userID uuid.UUID, rt models.ReviewType, since time.Time) (int, error) {
	seen := map[uuid.UUID]bool{}
	for _, v := range r.st.reviewVotes {
		if v.UserID != userID || v.CreatedAt.Before(since) {
			continue
		}
		if i := r.itemIndex(v.ItemID); i >= 0 && r.st.items[i].ReviewType == rt {
			seen[v.ItemID] = true
		}
	}
	return len(seen), nil
}

func (r *memRepo) HasActiveContentFlag(_ context.Context, ref models.ContentRef, flagType string) (bool, error) {
	for _, f := range r.st.flags {
		if f.IsActive && f.ContentType == ref.Type && f.ContentID == ref.ID && f.FlagType == flagType {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) ApplyContentFlag(_ context.Context, ref models.ContentRef, flagType string, itemID uuid.UUID) error {
	if err := r.fail("ApplyContentFlag"); err != nil {
		return err
	}
	id := itemID
	for i, f := range r.st.flags {
		if f.ContentType == ref.Type && f.ContentID == ref.ID && f.FlagType == flagType {
			r.st.flags[i].IsActive = true
			r.st.flags[i].ItemID = &id
			return nil
		}
	}
	r.st.flags = append(r.st.flags, models.ContentFlag{
		ID:          uuid.New(),
		ContentType: ref.Type,
		ContentID:   ref.ID,
		FlagType:    flagType,
		IsActive:    true,
		ItemID:      &id,
		CreatedAt:   r.m.Now(),
	})
	return nil
}

func (r *memRepo) InsertModerationLog(_ context.Context, e *models.ModerationLogEntry) error {
	if err := r.fail("InsertModerationLog"); err != nil {
		return err
	}
	e.ID = r.nextID()
	e.CreatedAt = r.m.Now()
	r.st.log = append(r.st.log, *e)
	return nil
}

func (r *memRepo) HasTagBadge(ctx context.Context, userID uuid.UUID, tag string, tier models.BadgeTier) (bool, error) {
	if err := r.fail("HasTagBadge"); err != nil {
		return false, err
	}
	return r.m.HasTagBadge(ctx, userID, tag, tier)
}

// Host-facing helpers used by the auth middleware and admin handlers.

// GetUser returns a user outside any transaction.
func (m *MemStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.st.users[id]
	if !ok {
		return nil, notFound("user")
	}
	return &u, nil
}

// GetUserBySub returns a user by OIDC subject.
func (m *MemStore) GetUserBySub(_ context.Context, sub string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.st.users {
		if u.Sub == sub {
			return &u, nil
		}
	}
	return nil, notFound("user")
}

// UpsertUser creates a user or updates its name.
func (m *MemStore) UpsertUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.st.users {
		if u.Sub == user.Sub {
			u.Name = user.Name
			m.st.users[id] = u
			*user = u
			return nil
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = m.Now()
	m.st.users[user.ID] = *user
	return nil
}

// GetClosureConfig returns the closure thresholds outside any transaction.
func (m *MemStore) GetClosureConfig(context.Context) (*models.ClosureConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.st.closure
	return &c, nil
}

// UpdateClosureConfig applies the non-nil fields of patch.
func (m *MemStore) UpdateClosureConfig(_ context.Context, p models.ClosureConfigPatch) (*models.ClosureConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	set(&m.st.closure.CloseVotesNeeded, p.CloseVotesNeeded)
	set(&m.st.closure.ReopenVotesNeeded, p.ReopenVotesNeeded)
	set(&m.st.closure.MinReputationClose, p.MinReputationClose)
	set(&m.st.closure.MinReputationReopen, p.MinReputationReopen)
	c := m.st.closure
	return &c, nil
}

// ListCloseReasons returns the active close reasons ordered by code.
func (m *MemStore) ListCloseReasons(context.Context) ([]models.CloseReason, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CloseReason
	for _, r := range m.st.reasons {
		if r.IsActive {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Ping always succeeds.
func (m *MemStore) Ping(context.Context) error {
	return nil
}
