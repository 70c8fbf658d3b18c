package session

import (
	"context"
	"time"

	practitionerRepo "consultline/database/repository/practitioner"
	profileRepo "consultline/database/repository/profile"
	reviewRepo "consultline/database/repository/review"
	sessionRepo "consultline/database/repository/session"
	"consultline/models"
	"consultline/services/media"

	"go.uber.org/zap"
)

// SessionEngine drives the consultation lifecycle waiting -> live -> ended.
type SessionEngine interface {
	// Start creates a waiting session and reserves the practitioner.
	Start(ctx context.Context, caller models.Identity, req StartRequest) (*models.Session, error)
	// Acknowledge records that the practitioner has seen the request.
	Acknowledge(ctx context.Context, caller models.Identity, sessionID string) (*models.Session, error)
	// Accept acknowledges and marks the practitioner ready in one step.
	Accept(ctx context.Context, caller models.Identity, sessionID string) (*models.Session, error)
	// MarkReady sets one side ready; the session goes live when both are.
	MarkReady(ctx context.Context, caller models.Identity, sessionID string, who models.Participant) (*models.Session, error)
	// Reject declines a waiting session.
	Reject(ctx context.Context, caller models.Identity, sessionID string) (*models.Session, error)
	// End finishes a session from any phase. Ending twice is not an error.
	End(ctx context.Context, caller models.Identity, sessionID string) (*models.Session, error)
	// Get returns a session with both participants' profiles.
	Get(ctx context.Context, caller models.Identity, sessionID string) (*models.SessionDetail, error)
	// ListForPractitioner returns the caller's sessions, newest first.
	ListForPractitioner(ctx context.Context, caller models.Identity, practitionerID string) ([]models.SessionSummary, error)
	// MediaToken mints a media grant for a participant of a live session.
	MediaToken(ctx context.Context, caller models.Identity, sessionID string) (*models.MediaGrant, error)
	// MediaTokenForChannel resolves the session by channel; a non-empty uid
	// must match the caller's derived media identity.
	MediaTokenForChannel(ctx context.Context, caller models.Identity, channel, uid string) (*models.MediaGrant, error)
	// Expire ends the session if its deadline has passed.
	Expire(ctx context.Context, sessionID string) (*models.Session, error)
	// SweepDue expires every overdue session and reports how many it ended.
	SweepDue(ctx context.Context) (int, error)
}

// StartRequest is the input of Start.
type StartRequest struct {
	PractitionerID string `json:"practitionerId" binding:"required"`
	LiveSeconds    int    `json:"liveSeconds" binding:"required,gt=0"`
}

// Publisher receives every session snapshot after a successful change.
type Publisher interface {
	Publish(s models.Session)
}

// ExpiryScheduler arranges for Expire to run at the given time.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, sessionID string, at time.Time) error
}

// Timing holds the lifecycle deadlines.
type Timing struct {
	WaitingTimeout time.Duration
	LiveGrace      time.Duration
	MaxLiveSeconds int
}

// DefaultSessionEngine is the production implementation. Publisher and
// Expiry are optional.
type DefaultSessionEngine struct {
	Sessions      sessionRepo.SessionRepository
	Practitioners practitionerRepo.PractitionerRepository
	Profiles      profileRepo.ProfileRepository
	Reviews       reviewRepo.ReviewRepository
	Minter        media.Minter
	Publisher     Publisher
	Expiry        ExpiryScheduler
	Timing        Timing
	Now           func() time.Time
	Logger        *zap.Logger
}
