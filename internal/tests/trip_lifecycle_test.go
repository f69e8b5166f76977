package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"companion/internal/domain"
	"companion/internal/repository"
	"companion/internal/service"
)

// ──────────────────────────────────────────────
// TRIP INTENT LIFECYCLE
// ──────────────────────────────────────────────

func declareRequest(userID, destination string) service.DeclareTripRequest {
	return service.DeclareTripRequest{
		UserID:      userID,
		Destination: destination,
		StartDate:   tripStart,
		EndDate:     tripEnd,
		Budget:      1200,
	}
}

func TestTripIntent_DeclareThenGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sessions := NewMockSessionStore()
	notifier := &MockNotifier{}
	svc := service.NewTripIntentService(sessions, notifier, time.Hour)

	intent, err := svc.Declare(ctx, declareRequest("alice", "Paris"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be stamped")
	}

	got, err := svc.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Destination != "Paris" {
		t.Errorf("expected Paris, got %s", got.Destination)
	}

	sent := notifier.Sent()
	if len(sent) != 1 || sent[0] != string(service.NotificationTripDeclared)+":alice" {
		t.Errorf("expected one TRIP_DECLARED notification, got %v", sent)
	}
}

func TestTripIntent_RedeclareReplaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sessions := NewMockSessionStore()
	svc := service.NewTripIntentService(sessions, nil, 0)

	if _, err := svc.Declare(ctx, declareRequest("alice", "Paris")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Declare(ctx, declareRequest("alice", "Lisbon")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Destination != "Lisbon" {
		t.Errorf("expected the latest intent to win, got %s", got.Destination)
	}

	active, _ := sessions.ListActiveTripIntents(ctx)
	if len(active) != 1 {
		t.Errorf("expected a single active intent, got %d", len(active))
	}
}

func TestTripIntent_Declare_ValidationErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*service.DeclareTripRequest)
		want   error
	}{
		{"bad user id", func(r *service.DeclareTripRequest) { r.UserID = "not valid" }, service.ErrInvalidUserID},
		{"missing destination", func(r *service.DeclareTripRequest) { r.Destination = "" }, service.ErrInvalidTripIntent},
		{"missing start", func(r *service.DeclareTripRequest) { r.StartDate = time.Time{} }, service.ErrInvalidTripIntent},
		{"end before start", func(r *service.DeclareTripRequest) { r.EndDate = tripStart.AddDate(0, 0, -1) }, service.ErrInvalidTripIntent},
		{"negative budget", func(r *service.DeclareTripRequest) { r.Budget = -1 }, service.ErrInvalidTripIntent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := NewMockSessionStore()
			svc := service.NewTripIntentService(sessions, nil, time.Hour)

			req := declareRequest("alice", "Paris")
			tt.mutate(&req)

			_, err := svc.Declare(ctx, req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if n := sessions.PutCallCount; n != 0 {
				t.Errorf("invalid intent must not be stored, got %d puts", n)
			}
		})
	}
}

func TestTripIntent_SameDayTripAllowed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := service.NewTripIntentService(NewMockSessionStore(), nil, time.Hour)
	req := declareRequest("alice", "Paris")
	req.EndDate = req.StartDate

	if _, err := svc.Declare(ctx, req); err != nil {
		t.Fatalf("expected same-day trip to be valid, got %v", err)
	}
}

func TestTripIntent_Declare_StoreDown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sessions := NewMockSessionStore()
	sessions.PutError = errors.New("connection refused")
	notifier := &MockNotifier{}
	svc := service.NewTripIntentService(sessions, notifier, time.Hour)

	_, err := svc.Declare(ctx, declareRequest("alice", "Paris"))
	if !errors.Is(err, service.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if len(notifier.Sent()) != 0 {
		t.Error("no notification should be sent when the store write fails")
	}
}

func TestTripIntent_Get_NoIntent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sessions := NewMockSessionStore()
	sessions.GetErrors["bob"] = repository.ErrMalformedRecord
	svc := service.NewTripIntentService(sessions, nil, time.Hour)

	if _, err := svc.Get(ctx, "alice"); !errors.Is(err, service.ErrNoActiveSession) {
		t.Errorf("missing intent: expected ErrNoActiveSession, got %v", err)
	}
	if _, err := svc.Get(ctx, "bob"); !errors.Is(err, service.ErrNoActiveSession) {
		t.Errorf("malformed intent: expected ErrNoActiveSession, got %v", err)
	}
}

func TestTripIntent_CancelRemovesFromMatching(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newMatchFixture()
	trips := service.NewTripIntentService(f.sessions, nil, time.Hour)
	matcher := f.service(service.MatchingOptions{})

	if err := trips.Cancel(ctx, "bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.sessions.HasIntent("bob") {
		t.Fatal("expected bob's intent to be gone")
	}

	results, err := matcher.Match(ctx, service.MatchRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if r.UserID == "bob" {
			t.Error("cancelled traveler should not be matched")
		}
	}

	// Cancelling twice is fine.
	if err := trips.Cancel(ctx, "bob"); err != nil {
		t.Errorf("second cancel should succeed, got %v", err)
	}
}

func TestTripIntent_CancelNotificationFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sessions := NewMockSessionStore()
	sessions.AddIntent(intentFor("alice", "Paris"))
	notifier := &MockNotifier{Err: errors.New("push gateway down")}
	svc := service.NewTripIntentService(sessions, notifier, time.Hour)

	if err := svc.Cancel(ctx, "alice"); err != nil {
		t.Fatalf("notification failure must not fail the cancel: %v", err)
	}
	if sessions.HasIntent("alice") {
		t.Error("expected alice's intent to be gone")
	}
	sent := notifier.Sent()
	if len(sent) != 1 || sent[0] != string(service.NotificationTripCancelled)+":alice" {
		t.Errorf("expected one TRIP_CANCELLED notification, got %v", sent)
	}
}

// ──────────────────────────────────────────────
// PROFILES
// ──────────────────────────────────────────────

type recordingRefresher struct {
	ids []string
	err error
}

func (r *recordingRefresher) Refresh(ctx context.Context, p *domain.StaticProfile) error {
	r.ids = append(r.ids, p.UserID)
	return r.err
}

func TestProfile_UpsertRefreshesCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := NewMockProfileRepository()
	inv := &recordingRefresher{}
	svc := service.NewProfileService(repo, inv)

	p := profileFor("alice", 30, []string{"food"}, []string{"train"}, "engineer")
	if err := svc.Upsert(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inv.ids) != 1 || inv.ids[0] != "alice" {
		t.Errorf("expected alice refreshed, got %v", inv.ids)
	}

	got, err := svc.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Age != 30 || got.Profession != "engineer" {
		t.Errorf("unexpected profile %+v", got)
	}
}

func TestProfile_RefreshFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	inv := &recordingRefresher{err: errors.New("redis down")}
	svc := service.NewProfileService(NewMockProfileRepository(), inv)

	p := profileFor("alice", 30, nil, nil, "")
	if err := svc.Upsert(ctx, p); err != nil {
		t.Fatalf("expected upsert to succeed, got %v", err)
	}
}

func TestProfile_UpsertValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := NewMockProfileRepository()
	svc := service.NewProfileService(repo, nil)

	tests := []struct {
		name    string
		profile *domain.StaticProfile
		want    error
	}{
		{"bad id", profileFor("a b", 30, nil, nil, ""), service.ErrInvalidUserID},
		{"zero age", profileFor("alice", 0, nil, nil, ""), service.ErrInvalidProfile},
		{"absurd age", profileFor("alice", 200, nil, nil, ""), service.ErrInvalidProfile},
		{"empty interest", profileFor("alice", 30, []string{"food", ""}, nil, ""), service.ErrInvalidProfile},
		{"empty mode", profileFor("alice", 30, nil, []string{""}, ""), service.ErrInvalidProfile},
	}
	for _, tt := range tests {
		if err := svc.Upsert(ctx, tt.profile); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
	if n := repo.UpsertCallCount; n != 0 {
		t.Errorf("invalid profiles must not be stored, got %d upserts", n)
	}
}

func TestProfile_GetMissing_ProfileIncomplete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := service.NewProfileService(NewMockProfileRepository(), nil)
	if _, err := svc.Get(ctx, "nobody"); !errors.Is(err, service.ErrProfileIncomplete) {
		t.Errorf("expected ErrProfileIncomplete, got %v", err)
	}
}

func TestProfile_RepositoryDown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := NewMockProfileRepository()
	repo.GetError = errors.New("pq: connection refused")
	repo.UpsertError = repo.GetError
	svc := service.NewProfileService(repo, nil)

	if _, err := svc.Get(ctx, "alice"); !errors.Is(err, service.ErrStoreUnavailable) {
		t.Errorf("get: expected ErrStoreUnavailable, got %v", err)
	}
	if err := svc.Upsert(ctx, profileFor("alice", 30, nil, nil, "")); !errors.Is(err, service.ErrStoreUnavailable) {
		t.Errorf("upsert: expected ErrStoreUnavailable, got %v", err)
	}
}

// ──────────────────────────────────────────────
// SKIPS
// ──────────────────────────────────────────────

func TestSkip_RecordsCurrentDestination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newMatchFixture()
	svc := service.NewSkipService(f.sessions, f.skips)

	skip, err := svc.Skip(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skip.Destination != "Paris" {
		t.Errorf("expected skip scoped to Paris, got %s", skip.Destination)
	}

	// Idempotent.
	if _, err := svc.Skip(ctx, "alice", "bob"); err != nil {
		t.Fatalf("unexpected error on repeat: %v", err)
	}
	if n := f.skips.Count(); n != 1 {
		t.Errorf("expected 1 stored skip, got %d", n)
	}
}

func TestSkip_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newMatchFixture()
	f.sessions.GetErrors["mallory"] = repository.ErrMalformedRecord
	svc := service.NewSkipService(f.sessions, f.skips)

	if _, err := svc.Skip(ctx, "alice", "alice"); !errors.Is(err, service.ErrInvalidSkip) {
		t.Errorf("self skip: expected ErrInvalidSkip, got %v", err)
	}
	if _, err := svc.Skip(ctx, "alice", ""); !errors.Is(err, service.ErrInvalidUserID) {
		t.Errorf("empty target: expected ErrInvalidUserID, got %v", err)
	}
	if _, err := svc.Skip(ctx, "zoe", "bob"); !errors.Is(err, service.ErrNoActiveSession) {
		t.Errorf("no intent: expected ErrNoActiveSession, got %v", err)
	}
	if _, err := svc.Skip(ctx, "mallory", "bob"); !errors.Is(err, service.ErrNoActiveSession) {
		t.Errorf("malformed intent: expected ErrNoActiveSession, got %v", err)
	}

	f.skips.CreateError = errors.New("pq: deadlock detected")
	if _, err := svc.Skip(ctx, "alice", "carol"); !errors.Is(err, service.ErrStoreUnavailable) {
		t.Errorf("repo failure: expected ErrStoreUnavailable, got %v", err)
	}
}
