package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"consultline/database/repository"
	"consultline/models"
	"consultline/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sweepBatch = 100

func (e *DefaultSessionEngine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func (e *DefaultSessionEngine) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return utils.GetLogger()
}

func (e *DefaultSessionEngine) Start(ctx context.Context, caller models.Identity, req StartRequest) (*models.Session, error) {
	fields := map[string]string{}
	if req.PractitionerID == "" {
		fields["practitionerId"] = "is required"
	}
	if req.LiveSeconds <= 0 {
		fields["liveSeconds"] = "must be greater than 0"
	} else if e.Timing.MaxLiveSeconds > 0 && req.LiveSeconds > e.Timing.MaxLiveSeconds {
		fields["liveSeconds"] = fmt.Sprintf("must be at most %d", e.Timing.MaxLiveSeconds)
	}
	if len(fields) > 0 {
		return nil, utils.ValidationFields(fields)
	}

	profile, err := e.Profiles.GetByID(ctx, caller.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(err, "profile")
	}
	if profile == nil || profile.Role != models.RoleGuest {
		return nil, utils.Forbidden("only guests may start sessions")
	}

	practitioner, err := e.Practitioners.GetByID(ctx, req.PractitionerID)
	if err != nil {
		return nil, storeErr(err, "practitioner")
	}
	if !practitioner.IsOnline {
		return nil, utils.InvalidState("practitioner is not available")
	}
	if practitioner.InService {
		return nil, utils.InvalidState("practitioner is busy with another session")
	}

	now := e.now()
	id := uuid.NewString()
	expires := now.Add(e.Timing.WaitingTimeout)
	s := &models.Session{
		ID:             id,
		GuestID:        caller.UserID,
		PractitionerID: req.PractitionerID,
		LiveSeconds:    req.LiveSeconds,
		Phase:          models.PhaseWaiting,
		AgoraChannel:   channelFor(id),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if e.Timing.WaitingTimeout > 0 {
		s.ExpiresAt = &expires
	}

	if err := e.Sessions.CreateReserving(ctx, s, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, utils.InvalidState("practitioner is not available")
		}
		return nil, storeErr(err, "session")
	}

	e.logger().Info("session started",
		zap.String("sessionId", s.ID),
		zap.String("guestId", s.GuestID),
		zap.String("practitionerId", s.PractitionerID),
		zap.Int("liveSeconds", s.LiveSeconds))
	e.scheduleExpiry(ctx, s)
	e.publish(s)
	return s, nil
}

func (e *DefaultSessionEngine) Acknowledge(ctx context.Context, caller models.Identity, sessionID string) (*models.Session, error) {
	return e.practitionerAction(ctx, caller, sessionID, "acknowledge", func(s *models.Session, now time.Time) error {
		return setAcknowledgedAndReady(s, false, now)
	})
}

func (e *DefaultSessionEngine) Accept(ctx context.Context, caller models.Identity, sessionID string) (*models.Session, error) {
	return e.practitionerAction(ctx, caller, sessionID, "accept", func(s *models.Session, now time.Time) error {
		if err := setAcknowledgedAndReady(s, true, now); err != nil {
			return err
		}
		goLiveIfReady(s, now, e.Timing.LiveGrace)
		return nil
	})
}

func (e *DefaultSessionEngine) practitionerAction(ctx context.Context, caller models.Identity, sessionID, verb string, apply func(*models.Session, time.Time) error) (*models.Session, error) {
	if _, err := e.load(ctx, sessionID); err != nil {
		return nil, err
	}
	wasLive := false
	now := e.now()
	s, err := e.Sessions.Update(ctx, sessionID, func(s *models.Session) error {
		if s.PractitionerID != caller.UserID {
			return utils.Forbidden("only the practitioner may %s this session", verb)
		}
		if isExpired(s, now) {
			return utils.InvalidState("session has expired")
		}
		wasLive = s.Phase == models.PhaseLive
		return apply(s, now)
	})
	if err != nil {
		return nil, storeErr(err, "session")
	}
	e.afterChange(ctx, s, !wasLive && s.Phase == models.PhaseLive)
	return s, nil
}

func (e *DefaultSessionEngine) MarkReady(ctx context.Context, caller models.Identity, sessionID string, who models.Participant) (*models.Session, error) {
	if who != models.ParticipantGuest && who != models.ParticipantPractitioner {
		return nil, utils.ValidationFields(map[string]string{"who": "must be one of guest practitioner"})
	}
	if _, err := e.load(ctx, sessionID); err != nil {
		return nil, err
	}

	wentLive := false
	now := e.now()
	s, err := e.Sessions.Update(ctx, sessionID, func(s *models.Session) error {
		wentLive = false
		if _, ok := s.ParticipantOf(caller.UserID); !ok {
			return utils.Forbidden("not a participant of this session")
		}
		if isExpired(s, now) {
			return utils.InvalidState("session has expired")
		}
		if err := markReady(s, who, now); err != nil {
			return err
		}
		wentLive = goLiveIfReady(s, now, e.Timing.LiveGrace)
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "session")
	}
	e.afterChange(ctx, s, wentLive)
	return s, nil
}

func (e *DefaultSessionEngine) Reject(ctx context.Context, caller models.Identity, sessionID string) (*models.Session, error) {
	if _, err := e.load(ctx, sessionID); err != nil {
		return nil, err
	}
	now := e.now()
	s, err := e.Sessions.Update(ctx, sessionID, func(s *models.Session) error {
		if s.PractitionerID != caller.UserID {
			return utils.Forbidden("only the practitioner may reject this session")
		}
		if err := requireWaiting(s); err != nil {
			return err
		}
		endSession(s, models.EndRejected, now)
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "session")
	}
	if err := e.release(ctx, s); err != nil {
		return nil, err
	}
	e.logger().Info("session rejected", zap.String("sessionId", s.ID))
	e.publish(s)
	return s, nil
}

func (e *DefaultSessionEngine) End(ctx context.Context, caller models.Identity, sessionID string) (*models.Session, error) {
	if _, err := e.load(ctx, sessionID); err != nil {
		return nil, err
	}
	changed := false
	now := e.now()
	s, err := e.Sessions.Update(ctx, sessionID, func(s *models.Session) error {
		changed = false
		if _, ok := s.ParticipantOf(caller.UserID); !ok {
			return utils.Forbidden("not a participant of this session")
		}
		if !endSession(s, models.EndCompleted, now) {
			return repository.ErrSkip
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "session")
	}
	// Release even when already ended so a retried End repairs a failed release.
	if err := e.release(ctx, s); err != nil {
		return nil, err
	}
	if changed {
		e.logger().Info("session ended", zap.String("sessionId", s.ID), zap.String("by", caller.UserID))
		e.publish(s)
	}
	return s, nil
}

func (e *DefaultSessionEngine) Get(ctx context.Context, caller models.Identity, sessionID string) (*models.SessionDetail, error) {
	s, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, ok := s.ParticipantOf(caller.UserID); !ok {
		return nil, utils.Forbidden("not a participant of this session")
	}

	profiles, err := e.Profiles.GetByIDs(ctx, []string{s.GuestID, s.PractitionerID})
	if err != nil {
		return nil, storeErr(err, "profile")
	}
	detail := &models.SessionDetail{
		Session:      *s,
		Guest:        profiles[s.GuestID],
		Practitioner: profiles[s.PractitionerID],
	}
	if p, err := e.Practitioners.GetByID(ctx, s.PractitionerID); err == nil {
		detail.Rating = p.Rating
		detail.ReviewCount = p.ReviewCount
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(err, "practitioner")
	}
	review, err := e.reviewOf(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	detail.Review = review
	return detail, nil
}

func (e *DefaultSessionEngine) ListForPractitioner(ctx context.Context, caller models.Identity, practitionerID string) ([]models.SessionSummary, error) {
	if caller.Role != models.RolePractitioner {
		return nil, utils.Forbidden("only practitioners may list their sessions")
	}
	if practitionerID != "" && practitionerID != caller.UserID {
		return nil, utils.Forbidden("practitioners may only list their own sessions")
	}

	sessions, err := e.Sessions.ListByPractitioner(ctx, caller.UserID)
	if err != nil {
		return nil, storeErr(err, "session")
	}
	now := e.now()
	guestIDs := make([]string, 0, len(sessions))
	for i := range sessions {
		if isExpired(&sessions[i], now) {
			expired, err := e.Expire(ctx, sessions[i].ID)
			if err != nil {
				e.logger().Warn("failed to expire session", zap.String("sessionId", sessions[i].ID), zap.Error(err))
			} else if expired != nil {
				sessions[i] = *expired
			}
		}
		guestIDs = append(guestIDs, sessions[i].GuestID)
	}
	profiles, err := e.Profiles.GetByIDs(ctx, guestIDs)
	if err != nil {
		return nil, storeErr(err, "profile")
	}

	out := make([]models.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		review, err := e.reviewOf(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.SessionSummary{Session: s, Guest: profiles[s.GuestID], Review: review})
	}
	return out, nil
}

func (e *DefaultSessionEngine) MediaToken(ctx context.Context, caller models.Identity, sessionID string) (*models.MediaGrant, error) {
	s, err := e.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return e.mint(s, caller, "")
}

func (e *DefaultSessionEngine) MediaTokenForChannel(ctx context.Context, caller models.Identity, channel, uid string) (*models.MediaGrant, error) {
	if channel == "" {
		return nil, utils.ValidationFields(map[string]string{"channel": "is required"})
	}
	found, err := e.Sessions.GetByChannel(ctx, channel)
	if err != nil {
		return nil, storeErr(err, "session")
	}
	s, err := e.load(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	return e.mint(s, caller, uid)
}

func (e *DefaultSessionEngine) mint(s *models.Session, caller models.Identity, uid string) (*models.MediaGrant, error) {
	who, ok := s.ParticipantOf(caller.UserID)
	if !ok {
		return nil, utils.Forbidden("not a participant of this session")
	}
	if s.Phase != models.PhaseLive {
		return nil, utils.InvalidState("media is only available while the session is live")
	}
	identity := mediaIdentity(who, caller.UserID)
	if uid != "" && uid != identity {
		return nil, utils.Forbidden("uid does not match the caller")
	}
	if e.Minter == nil {
		return nil, utils.Upstream(errors.New("media minter not configured"), "media provider unavailable")
	}
	grant, err := e.Minter.Mint(s.AgoraChannel, identity, e.now())
	if err != nil {
		return nil, utils.Upstream(err, "failed to mint media token")
	}
	return grant, nil
}

func (e *DefaultSessionEngine) Expire(ctx context.Context, sessionID string) (*models.Session, error) {
	now := e.now()
	changed := false
	s, err := e.Sessions.Update(ctx, sessionID, func(s *models.Session) error {
		changed = false
		if !isExpired(s, now) {
			return repository.ErrSkip
		}
		changed = endSession(s, models.EndExpired, now)
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "session")
	}
	if changed {
		if err := e.release(ctx, s); err != nil {
			return nil, err
		}
		e.logger().Info("session expired", zap.String("sessionId", s.ID), zap.String("phase", string(models.PhaseEnded)))
		e.publish(s)
	}
	return s, nil
}

func (e *DefaultSessionEngine) SweepDue(ctx context.Context) (int, error) {
	due, err := e.Sessions.ListDue(ctx, e.now(), sweepBatch)
	if err != nil {
		return 0, storeErr(err, "session")
	}
	ended := 0
	for _, s := range due {
		got, err := e.Expire(ctx, s.ID)
		if err != nil {
			e.logger().Warn("sweep: failed to expire session", zap.String("sessionId", s.ID), zap.Error(err))
			continue
		}
		if got.Phase == models.PhaseEnded && got.EndReason == models.EndExpired {
			ended++
		}
	}
	return ended, nil
}

// load fetches a session and applies lazy expiry.
func (e *DefaultSessionEngine) load(ctx context.Context, sessionID string) (*models.Session, error) {
	s, err := e.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, storeErr(err, "session")
	}
	if isExpired(s, e.now()) {
		return e.Expire(ctx, sessionID)
	}
	return s, nil
}

func (e *DefaultSessionEngine) reviewOf(ctx context.Context, sessionID string) (*models.Review, error) {
	review, err := e.Reviews.GetBySession(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err, "review")
	}
	return review, nil
}

func (e *DefaultSessionEngine) release(ctx context.Context, s *models.Session) error {
	if _, err := e.Practitioners.Release(ctx, s.PractitionerID, s.ID, e.now()); err != nil {
		e.logger().Error("failed to release practitioner",
			zap.String("sessionId", s.ID), zap.String("practitionerId", s.PractitionerID), zap.Error(err))
		return storeErr(err, "practitioner")
	}
	return nil
}

func (e *DefaultSessionEngine) afterChange(ctx context.Context, s *models.Session, wentLive bool) {
	if wentLive {
		e.logger().Info("session live",
			zap.String("sessionId", s.ID),
			zap.String("channel", s.AgoraChannel),
			zap.Timep("expiresAt", s.ExpiresAt))
		e.scheduleExpiry(ctx, s)
	}
	e.publish(s)
}

// scheduleExpiry is best effort; lazy expiry and the sweep cover failures.
func (e *DefaultSessionEngine) scheduleExpiry(ctx context.Context, s *models.Session) {
	if e.Expiry == nil || s.ExpiresAt == nil {
		return
	}
	if err := e.Expiry.ScheduleExpiry(ctx, s.ID, *s.ExpiresAt); err != nil {
		e.logger().Warn("failed to schedule session expiry", zap.String("sessionId", s.ID), zap.Error(err))
	}
}

func (e *DefaultSessionEngine) publish(s *models.Session) {
	if e.Publisher != nil {
		e.Publisher.Publish(*s)
	}
}

// storeErr passes AppErrors through and maps repository failures.
func storeErr(err error, what string) error {
	var appErr *utils.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrNotFound):
		return utils.NotFound("%s not found", what)
	case errors.Is(err, repository.ErrConflict):
		return utils.InvalidState("%s was modified concurrently, retry", what)
	case errors.Is(err, repository.ErrDuplicate):
		return utils.InvalidState("%s already exists", what)
	}
	return utils.Upstream(err, "record store unavailable")
}
