package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"companion/internal/domain"
	"companion/internal/repository"
	"companion/internal/service"
)

// ──────────────────────────────────────────────
// MOCK SESSION STORE
// ──────────────────────────────────────────────

// MockSessionStore is an in-memory implementation of redis.SessionStoreInterface.
type MockSessionStore struct {
	mu      sync.RWMutex
	intents map[string]*domain.TripIntent

	// Counters for verification
	GetCallCount  int32
	ListCallCount int32
	PutCallCount  int32

	// Error injection
	GetError  error
	ListError error
	PutError  error

	// Per-user error injection for GetTripIntent.
	GetErrors map[string]error

	// Per-user artificial latency for GetTripIntent; honors ctx while waiting.
	GetDelays map[string]time.Duration
}

// NewMockSessionStore creates a new mock session store.
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		intents:   make(map[string]*domain.TripIntent),
		GetErrors: make(map[string]error),
		GetDelays: make(map[string]time.Duration),
	}
}

// AddIntent adds an intent to the mock store.
func (m *MockSessionStore) AddIntent(intent *domain.TripIntent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[intent.UserID] = intent
}

func (m *MockSessionStore) PutTripIntent(ctx context.Context, intent *domain.TripIntent, ttl time.Duration) error {
	atomic.AddInt32(&m.PutCallCount, 1)
	if m.PutError != nil {
		return m.PutError
	}
	m.AddIntent(intent)
	return nil
}

func (m *MockSessionStore) GetTripIntent(ctx context.Context, userID string) (*domain.TripIntent, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}

	m.mu.RLock()
	delay := m.GetDelays[userID]
	m.mu.RUnlock()
	if err := wait(ctx, delay); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.GetErrors[userID]; ok {
		return nil, err
	}
	intent, ok := m.intents[userID]
	if !ok {
		return nil, nil
	}
	// Return a copy to avoid mutation issues.
	cp := *intent
	return &cp, nil
}

func (m *MockSessionStore) DeleteTripIntent(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.intents, userID)
	return nil
}

func (m *MockSessionStore) ListActiveTripIntents(ctx context.Context) ([]*domain.TripIntent, error) {
	atomic.AddInt32(&m.ListCallCount, 1)
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.TripIntent, 0, len(m.intents))
	for _, intent := range m.intents {
		cp := *intent
		result = append(result, &cp)
	}
	// Shuffle-proof: callers must not rely on store order, but tests should be deterministic.
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// HasIntent reports whether the user has an intent (for test assertions).
func (m *MockSessionStore) HasIntent(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.intents[userID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK PROFILE STORE
// ──────────────────────────────────────────────

// MockProfileStore is an in-memory implementation of service.ProfileStore.
type MockProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*domain.StaticProfile

	// Counters for verification
	GetCallCount int32

	// Per-user error injection.
	Errors map[string]error

	// Per-user artificial latency; lookups honor ctx while waiting.
	Delays map[string]time.Duration
}

// NewMockProfileStore creates a new mock profile store.
func NewMockProfileStore() *MockProfileStore {
	return &MockProfileStore{
		profiles: make(map[string]*domain.StaticProfile),
		Errors:   make(map[string]error),
		Delays:   make(map[string]time.Duration),
	}
}

// AddProfile adds a profile to the mock store.
func (m *MockProfileStore) AddProfile(p *domain.StaticProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
}

func (m *MockProfileStore) GetStaticProfile(ctx context.Context, userID string) (*domain.StaticProfile, error) {
	atomic.AddInt32(&m.GetCallCount, 1)

	m.mu.RLock()
	delay := m.Delays[userID]
	err := m.Errors[userID]
	p, ok := m.profiles[userID]
	m.mu.RUnlock()

	if err := wait(ctx, delay); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// wait sleeps for d unless ctx ends first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ──────────────────────────────────────────────
// MOCK PROFILE REPOSITORY
// ──────────────────────────────────────────────

// MockProfileRepository is a mock implementation of repository.ProfileRepository.
type MockProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*domain.StaticProfile

	// Counters for verification
	UpsertCallCount int32

	// Error injection
	GetError    error
	UpsertError error
}

// NewMockProfileRepository creates a new mock profile repository.
func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{profiles: make(map[string]*domain.StaticProfile)}
}

func (m *MockProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.StaticProfile, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockProfileRepository) GetByUserIDs(ctx context.Context, userIDs []string) (map[string]*domain.StaticProfile, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]*domain.StaticProfile)
	for _, id := range userIDs {
		if p, ok := m.profiles[id]; ok {
			cp := *p
			result[id] = &cp
		}
	}
	return result, nil
}

func (m *MockProfileRepository) Upsert(ctx context.Context, p *domain.StaticProfile) error {
	atomic.AddInt32(&m.UpsertCallCount, 1)
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.UserID] = &cp
	return nil
}

// ──────────────────────────────────────────────
// MOCK SKIP REPOSITORY
// ──────────────────────────────────────────────

// MockSkipRepository is a mock implementation of repository.SkipRepository.
type MockSkipRepository struct {
	mu    sync.RWMutex
	skips []*domain.Skip

	// Error injection
	CreateError error
	ListError   error
}

// NewMockSkipRepository creates a new mock skip repository.
func NewMockSkipRepository() *MockSkipRepository {
	return &MockSkipRepository{}
}

func (m *MockSkipRepository) Create(ctx context.Context, skip *domain.Skip) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.skips {
		if s.UserID == skip.UserID && s.SkippedUserID == skip.SkippedUserID && s.Destination == skip.Destination {
			return nil
		}
	}
	m.skips = append(m.skips, skip)
	return nil
}

func (m *MockSkipRepository) ListSkipped(ctx context.Context, userID, destination string) ([]string, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, s := range m.skips {
		if s.UserID == userID && s.Destination == destination {
			ids = append(ids, s.SkippedUserID)
		}
	}
	return ids, nil
}

// Count returns the number of stored skips (for test assertions).
func (m *MockSkipRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.skips)
}

// ──────────────────────────────────────────────
// MOCK INTEREST REPOSITORY
// ──────────────────────────────────────────────

// MockInterestRepository is an in-memory implementation of repository.InterestRepository.
type MockInterestRepository struct {
	mu        sync.RWMutex
	interests map[string]*domain.Interest

	// Error injection
	CreateError error
	GetError    error
	ListError   error
}

// NewMockInterestRepository creates a new mock interest repository.
func NewMockInterestRepository() *MockInterestRepository {
	return &MockInterestRepository{interests: make(map[string]*domain.Interest)}
}

func (m *MockInterestRepository) Create(ctx context.Context, in *domain.Interest) (bool, error) {
	if m.CreateError != nil {
		return false, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.interests {
		if existing.FromUserID == in.FromUserID && existing.ToUserID == in.ToUserID && existing.Destination == in.Destination {
			return false, nil
		}
	}
	cp := *in
	m.interests[in.ID] = &cp
	return true, nil
}

func (m *MockInterestRepository) GetByID(ctx context.Context, id string) (*domain.Interest, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	in, ok := m.interests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *in
	return &cp, nil
}

func (m *MockInterestRepository) GetByPair(ctx context.Context, fromID, toID, destination string) (*domain.Interest, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, in := range m.interests {
		if in.FromUserID == fromID && in.ToUserID == toID && in.Destination == destination {
			cp := *in
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockInterestRepository) Resolve(ctx context.Context, id string, status domain.InterestStatus, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.interests[id]
	if !ok || in.Status != domain.InterestPending {
		return false, nil
	}
	in.Status = status
	in.UpdatedAt = at
	return true, nil
}

func (m *MockInterestRepository) MarkMutual(ctx context.Context, userA, userB, destination string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.interests {
		if in.Destination != destination {
			continue
		}
		if (in.FromUserID == userA && in.ToUserID == userB) || (in.FromUserID == userB && in.ToUserID == userA) {
			in.Status = domain.InterestAccepted
			in.UpdatedAt = at
		}
	}
	return nil
}

func (m *MockInterestRepository) ListReceived(ctx context.Context, userID string, status domain.InterestStatus) ([]*domain.Interest, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Interest
	for _, in := range m.interests {
		if in.ToUserID == userID && in.Status == status {
			cp := *in
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].FromUserID < out[j].FromUserID
	})
	return out, nil
}

func (m *MockInterestRepository) ListTargets(ctx context.Context, userID, destination string) ([]string, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, in := range m.interests {
		if in.FromUserID == userID && in.Destination == destination {
			ids = append(ids, in.ToUserID)
		}
	}
	return ids, nil
}

// Status returns the status of the interest fromID sent toID (for test assertions).
func (m *MockInterestRepository) Status(fromID, toID string) domain.InterestStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, in := range m.interests {
		if in.FromUserID == fromID && in.ToUserID == toID {
			return in.Status
		}
	}
	return ""
}

// ──────────────────────────────────────────────
// MOCK REPORT REPOSITORY
// ──────────────────────────────────────────────

// MockReportRepository is an in-memory implementation of repository.ReportRepository.
type MockReportRepository struct {
	mu      sync.RWMutex
	reports []*domain.Report

	// Error injection
	CreateError error
	ListError   error
}

// NewMockReportRepository creates a new mock report repository.
func NewMockReportRepository() *MockReportRepository {
	return &MockReportRepository{}
}

func (m *MockReportRepository) Create(ctx context.Context, r *domain.Report) (bool, error) {
	if m.CreateError != nil {
		return false, m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reports {
		if existing.ReporterID == r.ReporterID && existing.ReportedUserID == r.ReportedUserID {
			return false, nil
		}
	}
	cp := *r
	m.reports = append(m.reports, &cp)
	return true, nil
}

func (m *MockReportRepository) ListReported(ctx context.Context, reporterID string) ([]string, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, r := range m.reports {
		if r.ReporterID == reporterID {
			ids = append(ids, r.ReportedUserID)
		}
	}
	return ids, nil
}

// Count returns the number of stored reports (for test assertions).
func (m *MockReportRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reports)
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// MockNotifier records notifications.
type MockNotifier struct {
	mu   sync.Mutex
	sent []string

	// Err is returned from every Notify after recording it.
	Err error
}

func (m *MockNotifier) Notify(ctx context.Context, n service.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, string(n.Type)+":"+n.RecipientID)
	return m.Err
}

// Sent returns "TYPE:recipient" entries in send order.
func (m *MockNotifier) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}
