package service

import "errors"

var (
	// ErrInvalidUserID is returned when a traveler id is empty or malformed.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrNoActiveSession is returned when the requester has no live trip intent.
	ErrNoActiveSession = errors.New("no active session")

	// ErrProfileIncomplete is returned when the requester has no static profile.
	ErrProfileIncomplete = errors.New("profile incomplete")

	// ErrStoreUnavailable is returned when a backing store fails, times out,
	// or is shed by its circuit breaker.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidTripIntent is returned when a declared trip fails validation.
	ErrInvalidTripIntent = errors.New("invalid trip intent")

	// ErrInvalidProfile is returned when a submitted profile fails validation.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrInvalidSkip is returned when a traveler tries to skip themself.
	ErrInvalidSkip = errors.New("cannot skip yourself")

	// ErrInvalidInterest is returned when a traveler targets themself.
	ErrInvalidInterest = errors.New("cannot express interest in yourself")

	// ErrInvalidResponse is returned for an answer other than accept or decline.
	ErrInvalidResponse = errors.New("action must be accept or decline")

	// ErrInterestNotFound is returned when an interest does not exist or is
	// not addressed to the caller.
	ErrInterestNotFound = errors.New("interest not found")

	// ErrInterestResolved is returned when answering an interest that was
	// already accepted or declined.
	ErrInterestResolved = errors.New("interest already resolved")

	// ErrInvalidReport is returned when a report targets its author or fails
	// validation.
	ErrInvalidReport = errors.New("invalid report")
)
