package models

import "time"

// Phase is the lifecycle phase of a consultation session.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseLive    Phase = "live"
	PhaseEnded   Phase = "ended"
)

// Participant names one side of a session.
type Participant string

const (
	ParticipantGuest        Participant = "guest"
	ParticipantPractitioner Participant = "practitioner"
)

// EndReason records how a session reached the ended phase.
type EndReason string

const (
	EndCompleted EndReason = "completed"
	EndRejected  EndReason = "rejected"
	EndExpired   EndReason = "expired"
)

// Session is a single consultation between one guest and one practitioner.
type Session struct {
	ID                       string     `bson:"id" json:"id"`
	GuestID                  string     `bson:"guestId" json:"guestId"`
	PractitionerID           string     `bson:"practitionerId" json:"practitionerId"`
	LiveSeconds              int        `bson:"liveSeconds" json:"liveSeconds"`
	Phase                    Phase      `bson:"phase" json:"phase"`
	AcknowledgedPractitioner bool       `bson:"acknowledgedPractitioner" json:"acknowledgedPractitioner"`
	ReadyPractitioner        bool       `bson:"readyPractitioner" json:"readyPractitioner"`
	ReadyGuest               bool       `bson:"readyGuest" json:"readyGuest"`
	AgoraChannel             string     `bson:"agoraChannel" json:"agoraChannel"`
	CreatedAt                time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt                time.Time  `bson:"updatedAt" json:"updatedAt"`
	LiveStartedAt            *time.Time `bson:"liveStartedAt,omitempty" json:"liveStartedAt,omitempty"`
	EndedAt                  *time.Time `bson:"endedAt,omitempty" json:"endedAt,omitempty"`
	EndReason                EndReason  `bson:"endReason,omitempty" json:"endReason,omitempty"`
	ExpiresAt                *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	Version                  int64      `bson:"version" json:"-"`
}

// ParticipantOf reports which side userID is on, if any.
func (s *Session) ParticipantOf(userID string) (Participant, bool) {
	switch userID {
	case s.GuestID:
		return ParticipantGuest, true
	case s.PractitionerID:
		return ParticipantPractitioner, true
	}
	return "", false
}

// SessionDetail is a session joined with both participants' profiles.
type SessionDetail struct {
	Session      Session  `json:"session"`
	Guest        *Profile `json:"guest,omitempty"`
	Practitioner *Profile `json:"practitioner,omitempty"`
	Rating       float64  `json:"practitionerRating"`
	ReviewCount  int      `json:"practitionerReviewCount"`
	Review       *Review  `json:"review,omitempty"`
}

// SessionSummary is one row of a practitioner's session history.
type SessionSummary struct {
	Session Session  `json:"session"`
	Guest   *Profile `json:"guest,omitempty"`
	Review  *Review  `json:"review,omitempty"`
}

// ExpiryPayload is the body of a delayed session expiry task.
type ExpiryPayload struct {
	SessionID string    `json:"sessionId"`
	FireAt    time.Time `json:"fireAt"`
}
