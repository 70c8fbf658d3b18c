package session

import (
	"strings"
	"time"

	"consultline/models"
	"consultline/utils"
)

// channelFor derives the media channel from the session id. It is fixed at
// creation and never reassigned.
func channelFor(sessionID string) string {
	hex := strings.ReplaceAll(sessionID, "-", "")
	if len(hex) > 16 {
		hex = hex[:16]
	}
	return "s" + hex
}

// mediaIdentity is the role-tagged uid a participant joins the channel with.
func mediaIdentity(who models.Participant, userID string) string {
	return string(who) + "-" + userID
}

func isExpired(s *models.Session, now time.Time) bool {
	return s.Phase != models.PhaseEnded && s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

func requireWaiting(s *models.Session) error {
	switch s.Phase {
	case models.PhaseWaiting:
		return nil
	case models.PhaseLive:
		return utils.InvalidState("session is already live")
	default:
		return utils.InvalidState("session has ended")
	}
}

// setAcknowledgedAndReady backs both Acknowledge (ready=false) and Accept
// (ready=true).
func setAcknowledgedAndReady(s *models.Session, ready bool, now time.Time) error {
	if err := requireWaiting(s); err != nil {
		return err
	}
	s.AcknowledgedPractitioner = true
	if ready {
		s.ReadyPractitioner = true
	}
	s.UpdatedAt = now
	return nil
}

// markReady sets one side's ready flag.
func markReady(s *models.Session, who models.Participant, now time.Time) error {
	if err := requireWaiting(s); err != nil {
		return err
	}
	switch who {
	case models.ParticipantGuest:
		s.ReadyGuest = true
	case models.ParticipantPractitioner:
		if !s.AcknowledgedPractitioner {
			return utils.InvalidState("practitioner must acknowledge the session first")
		}
		s.ReadyPractitioner = true
	default:
		return utils.ValidationFields(map[string]string{"who": "must be one of guest practitioner"})
	}
	s.UpdatedAt = now
	return nil
}

// goLiveIfReady moves a waiting session to live once both sides are ready.
// The live deadline covers the booked length plus grace.
func goLiveIfReady(s *models.Session, now time.Time, grace time.Duration) bool {
	if s.Phase != models.PhaseWaiting || !s.ReadyGuest || !s.ReadyPractitioner {
		return false
	}
	started := now
	expires := started.Add(time.Duration(s.LiveSeconds)*time.Second + grace)
	s.Phase = models.PhaseLive
	s.LiveStartedAt = &started
	s.ExpiresAt = &expires
	s.UpdatedAt = now
	return true
}

// endSession moves s to ended. It reports false when s had already ended.
func endSession(s *models.Session, reason models.EndReason, now time.Time) bool {
	if s.Phase == models.PhaseEnded {
		return false
	}
	ended := now
	s.Phase = models.PhaseEnded
	s.EndReason = reason
	s.EndedAt = &ended
	s.UpdatedAt = now
	return true
}
