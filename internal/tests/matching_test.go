package tests

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"companion/internal/domain"
	"companion/internal/matching"
	"companion/internal/repository"
	"companion/internal/service"
)

var (
	tripStart = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	tripEnd   = time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
)

func intentFor(userID, destination string) *domain.TripIntent {
	return &domain.TripIntent{
		UserID:      userID,
		Destination: destination,
		StartDate:   tripStart,
		EndDate:     tripEnd,
		Budget:      1500,
	}
}

func profileFor(userID string, age int, interests, modes []string, profession string) *domain.StaticProfile {
	return &domain.StaticProfile{
		UserID:      userID,
		Age:         age,
		Interests:   interests,
		TravelModes: modes,
		Profession:  profession,
	}
}

// matchFixture seeds the Paris scenario: alice (requester) and bob share
// everything, carol is bob's clone heading to Tokyo.
type matchFixture struct {
	sessions *MockSessionStore
	profiles *MockProfileStore
	skips    *MockSkipRepository
}

func newMatchFixture() *matchFixture {
	f := &matchFixture{
		sessions: NewMockSessionStore(),
		profiles: NewMockProfileStore(),
		skips:    NewMockSkipRepository(),
	}

	f.sessions.AddIntent(intentFor("alice", "Paris"))
	f.sessions.AddIntent(intentFor("bob", "Paris"))
	f.sessions.AddIntent(intentFor("carol", "Tokyo"))

	f.profiles.AddProfile(profileFor("alice", 30, []string{"museums", "food", "hiking"}, []string{"train"}, "engineer"))
	f.profiles.AddProfile(profileFor("bob", 33, []string{"food", "museums"}, []string{"train", "bus"}, "engineer"))
	f.profiles.AddProfile(profileFor("carol", 33, []string{"food", "museums"}, []string{"train", "bus"}, "engineer"))
	return f
}

func (f *matchFixture) service(opts service.MatchingOptions) *service.MatchingService {
	return service.NewMatchingService(f.sessions, f.profiles, f.skips, matching.NewScorer(), opts)
}

func TestMatching_RanksCandidatesByScore(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()

	results, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}
	if results[0].UserID != "bob" || results[0].Score != 100 {
		t.Errorf("expected bob with 100 first, got %+v", results[0])
	}
	if results[1].UserID != "carol" || results[1].Score != 60 {
		t.Errorf("expected carol with 60 second, got %+v", results[1])
	}
}

func TestMatching_ExcludesRequester(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()

	results, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if r.UserID == "alice" {
			t.Fatal("requester must never appear in their own matches")
		}
	}
}

func TestMatching_CandidateWithoutProfileIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	f.sessions.AddIntent(intentFor("dave", "Paris")) // no profile

	results, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if r.UserID == "dave" {
			t.Fatalf("candidate without profile should be skipped, got %+v", r)
		}
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestMatching_CandidateProfileErrorIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	f.profiles.Errors["carol"] = errors.New("connection reset")

	results, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("candidate failure must not fail the match: %v", err)
	}
	if len(results) != 1 || results[0].UserID != "bob" {
		t.Errorf("expected only bob, got %+v", results)
	}
}

func TestMatching_SlowCandidateIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	f.profiles.Delays["carol"] = 2 * time.Second

	svc := f.service(service.MatchingOptions{LookupTimeout: 50 * time.Millisecond})

	start := time.Now()
	results, err := svc.Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("slow candidate should be cut off by the lookup timeout, took %v", elapsed)
	}
	if len(results) != 1 || results[0].UserID != "bob" {
		t.Errorf("expected only bob, got %+v", results)
	}
}

func TestMatching_NoSession_FailsBeforeLookingAtCandidates(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()

	_, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "zoe"})
	if !errors.Is(err, service.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
	if n := f.sessions.ListCallCount; n != 0 {
		t.Errorf("expected no active-session listing, got %d calls", n)
	}
	if n := f.profiles.GetCallCount; n != 0 {
		t.Errorf("expected no profile lookups, got %d", n)
	}
}

func TestMatching_MalformedRequesterIntent_NoSession(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	f.sessions.GetErrors["alice"] = repository.ErrMalformedRecord

	_, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if !errors.Is(err, service.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestMatching_RequesterWithoutProfile_ProfileIncomplete(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	f.sessions.AddIntent(intentFor("erin", "Paris"))

	_, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "erin"})
	if !errors.Is(err, service.ErrProfileIncomplete) {
		t.Fatalf("expected ErrProfileIncomplete, got %v", err)
	}
	if n := f.sessions.ListCallCount; n != 0 {
		t.Errorf("expected no active-session listing, got %d calls", n)
	}
}

func TestMatching_InvalidUserID(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()

	for _, id := range []string{"", " ", "has space", "-leading-dash"} {
		_, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: id})
		if !errors.Is(err, service.ErrInvalidUserID) {
			t.Errorf("id %q: expected ErrInvalidUserID, got %v", id, err)
		}
	}
	if n := f.sessions.GetCallCount; n != 0 {
		t.Errorf("invalid ids must not reach the store, got %d calls", n)
	}
}

func TestMatching_SessionStoreDown_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	cause := errors.New("dial tcp: connection refused")
	f.sessions.GetError = cause

	_, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if !errors.Is(err, service.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to stay in the chain, got %v", err)
	}
}

func TestMatching_ListingFails_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	f.sessions.ListError = errors.New("READONLY")

	_, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if !errors.Is(err, service.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestMatching_RequesterProfileError_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	f.profiles.Errors["alice"] = errors.New("pq: too many connections")

	_, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if !errors.Is(err, service.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestMatching_SlowRequesterProfile_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	f.profiles.Delays["alice"] = time.Second

	_, err := f.service(service.MatchingOptions{LookupTimeout: 20 * time.Millisecond}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if !errors.Is(err, service.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the deadline to stay in the chain, got %v", err)
	}
	if n := f.sessions.ListCallCount; n != 0 {
		t.Errorf("expected no active-session listing, got %d calls", n)
	}
}

func TestMatching_SlowRequesterSession_StoreUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	f.sessions.GetDelays["alice"] = time.Second

	start := time.Now()
	_, err := f.service(service.MatchingOptions{LookupTimeout: 20 * time.Millisecond}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if !errors.Is(err, service.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("requester lookup should be cut off by the lookup timeout, took %v", elapsed)
	}
	if n := f.profiles.GetCallCount; n != 0 {
		t.Errorf("expected no profile lookups, got %d", n)
	}
}

func TestMatching_TiesOrderedByUserID(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()

	// Three identical candidates inserted out of order.
	for _, id := range []string{"zed", "mia", "kai"} {
		f.sessions.AddIntent(intentFor(id, "Lisbon"))
		f.profiles.AddProfile(profileFor(id, 60, nil, nil, "chef"))
	}

	results, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var zeroes []string
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Fatalf("results not sorted by score: %+v", results)
		}
	}
	for _, r := range results {
		if r.Score == 0 {
			zeroes = append(zeroes, r.UserID)
		}
	}
	want := []string{"kai", "mia", "zed"}
	if len(zeroes) != len(want) {
		t.Fatalf("expected %v with score 0, got %v", want, zeroes)
	}
	for i := range want {
		if zeroes[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], zeroes[i])
		}
	}
}

func TestMatching_ZeroScoreCandidatesIncluded(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	f.sessions.AddIntent(intentFor("oscar", "Reykjavik"))
	f.profiles.AddProfile(profileFor("oscar", 70, []string{"fishing"}, []string{"boat"}, "sailor"))

	results, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := results[len(results)-1]
	if last.UserID != "oscar" || last.Score != 0 {
		t.Errorf("expected oscar with score 0 last, got %+v", last)
	}
}

func TestMatching_OnlyRequesterActive_EmptyResult(t *testing.T) {
	ctx := context.Background()
	sessions := NewMockSessionStore()
	profiles := NewMockProfileStore()
	sessions.AddIntent(intentFor("alice", "Paris"))
	profiles.AddProfile(profileFor("alice", 30, nil, nil, ""))

	svc := service.NewMatchingService(sessions, profiles, nil, nil, service.MatchingOptions{})
	results, err := svc.Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", results)
	}
}

func TestMatching_SkippedCandidatesFiltered(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	_ = f.skips.Create(ctx, &domain.Skip{UserID: "alice", SkippedUserID: "bob", Destination: "Paris"})

	results, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].UserID != "carol" {
		t.Errorf("expected only carol, got %+v", results)
	}
}

func TestMatching_SkipForOtherDestinationIgnored(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	_ = f.skips.Create(ctx, &domain.Skip{UserID: "alice", SkippedUserID: "bob", Destination: "Rome"})

	results, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected both candidates, got %+v", results)
	}
}

func TestMatching_SkipListFailure_MatchesUnfiltered(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()
	_ = f.skips.Create(ctx, &domain.Skip{UserID: "alice", SkippedUserID: "bob", Destination: "Paris"})
	f.skips.ListError = errors.New("pq: connection refused")

	results, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("skip list failure must not fail the match: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected unfiltered results, got %+v", results)
	}
}

func TestMatching_BudgetGapFilter(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()

	rich := intentFor("carol", "Tokyo")
	rich.Budget = 9000
	f.sessions.AddIntent(rich)

	results, err := f.service(service.MatchingOptions{MaxBudgetGap: 5000}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].UserID != "bob" {
		t.Errorf("expected only bob within budget, got %+v", results)
	}

	// Disabled by default.
	results, err = f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected budget filter off by default, got %+v", results)
	}
}

func TestMatching_ExplainListsSatisfiedCriteria(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()

	results, err := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice", Explain: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var carol *domain.MatchResult
	for i := range results {
		if results[i].UserID == "carol" {
			carol = &results[i]
		}
	}
	if carol == nil {
		t.Fatal("expected carol in results")
	}
	for _, r := range carol.Reasons {
		if r == matching.CriterionDestination {
			t.Errorf("carol is heading elsewhere, got reasons %v", carol.Reasons)
		}
	}
	if len(carol.Reasons) != 4 {
		t.Errorf("expected 4 satisfied criteria, got %v", carol.Reasons)
	}

	plain, _ := f.service(service.MatchingOptions{}).Match(ctx, service.MatchRequest{UserID: "alice"})
	for _, r := range plain {
		if r.Reasons != nil {
			t.Errorf("reasons should be omitted without explain, got %+v", r)
		}
	}
}

func TestMatching_DateOverlapBonus(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()

	later := intentFor("carol", "Paris")
	later.StartDate = tripEnd.AddDate(0, 1, 0)
	later.EndDate = later.StartDate.AddDate(0, 0, 5)
	f.sessions.AddIntent(later)

	scorer := matching.NewScorer(matching.WithDateOverlap(30))
	svc := service.NewMatchingService(f.sessions, f.profiles, f.skips, scorer, service.MatchingOptions{})

	results, err := svc.Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].UserID != "bob" || results[0].Score != 130 {
		t.Errorf("expected bob with 130, got %+v", results[0])
	}
	if results[1].UserID != "carol" || results[1].Score != 100 {
		t.Errorf("expected carol with 100, got %+v", results[1])
	}
}

func TestMatching_CallerCancellation(t *testing.T) {
	f := newMatchFixture()
	f.profiles.Delays["bob"] = 5 * time.Second
	f.profiles.Delays["carol"] = 5 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	svc := f.service(service.MatchingOptions{LookupTimeout: 10 * time.Second})

	start := time.Now()
	results, err := svc.Match(ctx, service.MatchRequest{UserID: "alice"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if results != nil {
		t.Errorf("expected no partial results, got %+v", results)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation should return promptly, took %v", elapsed)
	}
}

func TestMatching_ManyCandidatesBoundedConcurrency(t *testing.T) {
	ctx := context.Background()
	f := newMatchFixture()

	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("traveler-%03d", i)
		f.sessions.AddIntent(intentFor(id, "Paris"))
		f.profiles.AddProfile(profileFor(id, 30, []string{"food", "museums"}, []string{"train"}, "engineer"))
		f.profiles.Delays[id] = time.Millisecond
	}

	svc := f.service(service.MatchingOptions{MaxConcurrency: 8})
	results, err := svc.Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 202 {
		t.Errorf("expected 202 results, got %d", len(results))
	}
	if n := f.profiles.GetCallCount; n != 203 {
		t.Errorf("expected one profile lookup per traveler, got %d", n)
	}
}
