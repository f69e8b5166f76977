package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"golang.org/x/sync/errgroup"

	"companion/internal/domain"
	"companion/internal/logging"
	"companion/internal/matching"
	"companion/internal/metrics"
	"companion/internal/repository"
	"companion/internal/validation"
)

const (
	defaultLookupTimeout  = 2 * time.Second
	defaultMaxConcurrency = 16
)

// MatchingOptions tunes MatchingService.
type MatchingOptions struct {
	// LookupTimeout bounds each individual store call.
	LookupTimeout time.Duration
	// MaxConcurrency bounds in-flight candidate profile lookups.
	MaxConcurrency int
	// MaxBudgetGap drops candidates whose budget differs from the
	// requester's by more than this. Zero disables the filter.
	MaxBudgetGap float64
}

// MatchingService ranks active travelers by compatibility with a requester.
type MatchingService struct {
	sessions  SessionStore
	profiles  ProfileStore
	skipRepo  repository.SkipRepository
	interests repository.InterestRepository
	reports   repository.ReportRepository
	scorer    *matching.Scorer
	opts      MatchingOptions
}

// NewMatchingService creates a new MatchingService. skipRepo may be nil.
func NewMatchingService(
	sessions SessionStore,
	profiles ProfileStore,
	skipRepo repository.SkipRepository,
	scorer *matching.Scorer,
	opts MatchingOptions,
) *MatchingService {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = defaultLookupTimeout
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	if scorer == nil {
		scorer = matching.NewScorer()
	}
	return &MatchingService{
		sessions: sessions,
		profiles: profiles,
		skipRepo: skipRepo,
		scorer:   scorer,
		opts:     opts,
	}
}

// WithExclusions also hides candidates the requester already sent an interest
// to for the current destination, and anyone the requester reported. Either
// repository may be nil.
func (s *MatchingService) WithExclusions(interests repository.InterestRepository, reports repository.ReportRepository) *MatchingService {
	s.interests = interests
	s.reports = reports
	return s
}

// MatchRequest contains the parameters for a match.
type MatchRequest struct {
	UserID string
	// Explain adds the satisfied criteria to each result.
	Explain bool
}

// Match returns every active candidate that could be scored, ordered by
// score descending and then by user id. Candidates whose profile is
// missing, fails to load, or times out are left out; only failures on the
// requester's own records fail the call.
func (s *MatchingService) Match(ctx context.Context, req MatchRequest) (results []domain.MatchResult, err error) {
	start := time.Now()
	defer func() {
		metrics.MatchRequests.WithLabelValues(matchOutcome(err)).Inc()
		metrics.MatchDuration.Observe(time.Since(start).Seconds())
	}()

	if !validation.ValidUserID(req.UserID) {
		return nil, ErrInvalidUserID
	}
	log := logging.Ctx(ctx).With().Str("user_id", req.UserID).Logger()

	// Requester intent.
	intent, err := s.getTripIntent(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrMalformedRecord) {
			log.Warn().Err(err).Msg("requester trip intent is malformed")
			return nil, ErrNoActiveSession
		}
		return nil, err
	}
	if intent == nil {
		return nil, ErrNoActiveSession
	}

	// Requester profile.
	profile, err := s.getProfile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileIncomplete
	}
	requester := domain.Traveler{Intent: intent, Profile: profile}

	// Everyone else.
	active, err := s.listActive(ctx)
	if err != nil {
		return nil, err
	}
	candidates := s.filterCandidates(ctx, requester, active)
	metrics.MatchCandidates.Observe(float64(len(candidates)))

	results, err = s.scoreCandidates(ctx, requester, candidates, req.Explain)
	if err != nil {
		return nil, err
	}

	log.Debug().Int("active", len(active)).Int("candidates", len(candidates)).Int("matches", len(results)).Msg("match complete")
	return results, nil
}

func (s *MatchingService) getTripIntent(ctx context.Context, userID string) (*domain.TripIntent, error) {
	cctx, cancel := context.WithTimeout(ctx, s.opts.LookupTimeout)
	defer cancel()

	intent, err := s.sessions.GetTripIntent(cctx, userID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, storeFailure(err)
	}
	return intent, nil
}

func (s *MatchingService) getProfile(ctx context.Context, userID string) (*domain.StaticProfile, error) {
	cctx, cancel := context.WithTimeout(ctx, s.opts.LookupTimeout)
	defer cancel()

	profile, err := s.profiles.GetStaticProfile(cctx, userID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, storeFailure(err)
	}
	return profile, nil
}

func (s *MatchingService) listActive(ctx context.Context) ([]*domain.TripIntent, error) {
	cctx, cancel := context.WithTimeout(ctx, s.opts.LookupTimeout)
	defer cancel()

	active, err := s.sessions.ListActiveTripIntents(cctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, storeFailure(err)
	}
	return active, nil
}

// filterCandidates drops the requester, duplicate entries, travelers the
// requester excluded (skipped or interested for this destination, reported
// anywhere), and (when enabled) travelers outside the budget gap.
func (s *MatchingService) filterCandidates(ctx context.Context, requester domain.Traveler, active []*domain.TripIntent) []*domain.TripIntent {
	excluded := s.loadExcluded(ctx, requester)

	seen := make(map[string]struct{}, len(active))
	out := make([]*domain.TripIntent, 0, len(active))
	for _, c := range active {
		if c == nil || c.UserID == requester.Intent.UserID {
			continue
		}
		if _, dup := seen[c.UserID]; dup {
			continue
		}
		seen[c.UserID] = struct{}{}

		if reason, ok := excluded[c.UserID]; ok {
			metrics.MatchCandidatesSkipped.WithLabelValues(reason).Inc()
			continue
		}
		if s.opts.MaxBudgetGap > 0 && math.Abs(c.Budget-requester.Intent.Budget) > s.opts.MaxBudgetGap {
			metrics.MatchCandidatesSkipped.WithLabelValues(metrics.SkipReasonBudget).Inc()
			continue
		}
		out = append(out, c)
	}
	return out
}

type exclusionList struct {
	reason string
	load   func(ctx context.Context) ([]string, error)
}

// loadExcluded maps every id the requester excluded to the metric reason.
// The lists load concurrently; a failing list is logged and treated as
// empty.
func (s *MatchingService) loadExcluded(ctx context.Context, requester domain.Traveler) map[string]string {
	userID, destination := requester.Intent.UserID, requester.Intent.Destination

	var lists []exclusionList
	if s.skipRepo != nil {
		lists = append(lists, exclusionList{metrics.SkipReasonSkipped, func(ctx context.Context) ([]string, error) {
			return s.skipRepo.ListSkipped(ctx, userID, destination)
		}})
	}
	if s.reports != nil {
		lists = append(lists, exclusionList{metrics.SkipReasonReported, func(ctx context.Context) ([]string, error) {
			return s.reports.ListReported(ctx, userID)
		}})
	}
	if s.interests != nil {
		lists = append(lists, exclusionList{metrics.SkipReasonInterested, func(ctx context.Context) ([]string, error) {
			return s.interests.ListTargets(ctx, userID, destination)
		}})
	}
	if len(lists) == 0 {
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.LookupTimeout)
	defer cancel()

	ids := make([][]string, len(lists))
	var g errgroup.Group
	for i, l := range lists {
		g.Go(func() error {
			got, err := l.load(cctx)
			if err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Str("list", l.reason).Msg("exclusion list unavailable, matching unfiltered")
				return nil
			}
			ids[i] = got
			return nil
		})
	}
	_ = g.Wait()

	excluded := make(map[string]string)
	for i, l := range lists {
		for _, id := range ids[i] {
			if _, ok := excluded[id]; !ok {
				excluded[id] = l.reason
			}
		}
	}
	return excluded
}

// scoreCandidates fetches candidate profiles concurrently and scores every
// candidate whose profile arrives in time. Each goroutine writes only its own
// slot, so no locking is needed.
func (s *MatchingService) scoreCandidates(ctx context.Context, requester domain.Traveler, candidates []*domain.TripIntent, explain bool) ([]domain.MatchResult, error) {
	defer newrelic.FromContext(ctx).StartSegment("Matching/scoreCandidates").End()

	slots := make([]*domain.MatchResult, len(candidates))

	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrency)

	for i, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			profile, ok := s.candidateProfile(ctx, c.UserID)
			if !ok {
				return nil
			}
			bd := s.scorer.Explain(requester, domain.Traveler{Intent: c, Profile: profile})
			r := &domain.MatchResult{UserID: c.UserID, Score: bd.Score}
			if explain {
				r.Reasons = bd.Satisfied
			}
			slots[i] = r
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]domain.MatchResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	sortResults(results)
	return results, nil
}

// candidateProfile loads one candidate's profile under its own timeout.
// ok is false when the candidate must be skipped.
func (s *MatchingService) candidateProfile(ctx context.Context, userID string) (*domain.StaticProfile, bool) {
	cctx, cancel := context.WithTimeout(ctx, s.opts.LookupTimeout)
	defer cancel()

	profile, err := s.profiles.GetStaticProfile(cctx, userID)
	switch {
	case err != nil:
		reason := metrics.SkipReasonError
		if errors.Is(err, context.DeadlineExceeded) {
			reason = metrics.SkipReasonTimeout
		}
		metrics.MatchCandidatesSkipped.WithLabelValues(reason).Inc()
		if ctx.Err() == nil {
			logging.Ctx(ctx).Debug().Err(err).Str("candidate_id", userID).Str("reason", reason).Msg("skipping candidate")
		}
		return nil, false
	case profile == nil:
		metrics.MatchCandidatesSkipped.WithLabelValues(metrics.SkipReasonNoProfile).Inc()
		return nil, false
	}
	return profile, true
}

// sortResults orders by score descending, then user id ascending.
func sortResults(results []domain.MatchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].UserID < results[j].UserID
	})
}

func matchOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidUserID):
		return "invalid"
	case errors.Is(err, ErrNoActiveSession):
		return "no_session"
	case errors.Is(err, ErrProfileIncomplete):
		return "no_profile"
	case errors.Is(err, ErrStoreUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
