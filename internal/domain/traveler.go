package domain

import "time"

// TripIntent is a traveler's live, ephemeral plan. It is stored in the
// session store and expires on its own.
type TripIntent struct {
	UserID      string    `json:"userId" validate:"required,userid"`
	Destination string    `json:"destination" validate:"required"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
	Budget      float64   `json:"budget" validate:"gte=0"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StaticProfile holds the durable attributes of a traveler.
type StaticProfile struct {
	UserID      string   `json:"userId" validate:"required,userid"`
	Age         int      `json:"age" validate:"gt=0,lt=150"`
	Interests   []string `json:"interests" validate:"dive,required"`
	TravelModes []string `json:"travelModes" validate:"dive,required"`
	Profession  string   `json:"profession"`
}

// Traveler composes a trip intent with the static profile of the same user.
// It is built on demand for scoring and never persisted.
type Traveler struct {
	Intent  *TripIntent
	Profile *StaticProfile
}

// UserID returns the id of the traveler.
func (t Traveler) UserID() string {
	if t.Intent != nil {
		return t.Intent.UserID
	}
	if t.Profile != nil {
		return t.Profile.UserID
	}
	return ""
}

// Complete reports whether both halves are present.
func (t Traveler) Complete() bool {
	return t.Intent != nil && t.Profile != nil
}

// MatchResult is one ranked candidate.
type MatchResult struct {
	UserID  string   `json:"userId"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// Skip records that a traveler dismissed a candidate for a destination.
type Skip struct {
	UserID        string
	SkippedUserID string
	Destination   string
	CreatedAt     time.Time
}

// InterestStatus is the lifecycle state of an Interest.
type InterestStatus string

const (
	InterestPending  InterestStatus = "pending"
	InterestAccepted InterestStatus = "accepted"
	InterestRejected InterestStatus = "rejected"
)

// Interest records that one traveler wants to travel with another to a
// destination. Two pending interests in opposite directions for the same
// destination are a mutual match and are both accepted.
type Interest struct {
	ID          string
	FromUserID  string
	ToUserID    string
	Destination string
	Status      InterestStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Report flags a traveler for review. Reports also hide the reported
// traveler from the reporter's matches for every destination.
type Report struct {
	ID             string
	ReporterID     string
	ReportedUserID string
	Reason         string `json:"reason" validate:"required,max=1000"`
	EvidenceURL    string `json:"evidenceUrl" validate:"omitempty,url"`
	CreatedAt      time.Time
}
