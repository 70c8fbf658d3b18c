package review

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"consultline/database/repository"
	practitionerRepo "consultline/database/repository/practitioner"
	reviewRepo "consultline/database/repository/review"
	sessionRepo "consultline/database/repository/session"
	"consultline/models"
	"consultline/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCommentLength = 2000

// ReviewService records guest reviews and maintains practitioner ratings.
type ReviewService interface {
	// Create stores a review of an ended session and recomputes the rating.
	Create(ctx context.Context, caller models.Identity, req CreateRequest) (*models.Review, error)
	// ListForSession returns the reviews of a session the caller took part in.
	ListForSession(ctx context.Context, caller models.Identity, sessionID string) ([]models.Review, error)
}

// CreateRequest is the input of Create.
type CreateRequest struct {
	SessionID string `json:"sessionId" binding:"required,uuid"`
	Rating    int    `json:"rating" binding:"required,min=1,max=5"`
	Comment   string `json:"comment,omitempty" binding:"max=2000"`
}

// Expirer ends a session whose deadline has passed.
type Expirer interface {
	Expire(ctx context.Context, sessionID string) (*models.Session, error)
}

// DefaultReviewService is the production implementation. Expiry settles
// overdue sessions before they are reviewed.
type DefaultReviewService struct {
	Reviews       reviewRepo.ReviewRepository
	Sessions      sessionRepo.SessionRepository
	Practitioners practitionerRepo.PractitionerRepository
	Expiry        Expirer
	Now           func() time.Time
}

func (s *DefaultReviewService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *DefaultReviewService) Create(ctx context.Context, caller models.Identity, req CreateRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, utils.ValidationFields(map[string]string{"rating": "must be between 1 and 5"})
	}
	comment := strings.TrimSpace(req.Comment)
	if len(comment) > maxCommentLength {
		return nil, utils.ValidationFields(map[string]string{"comment": "must be at most 2000"})
	}

	session, err := s.Sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, storeErr(err, "session")
	}
	if session.GuestID != caller.UserID {
		return nil, utils.Forbidden("only the guest of this session may review it")
	}
	now := s.now()
	if overdue(session, now) && s.Expiry != nil {
		if session, err = s.Expiry.Expire(ctx, session.ID); err != nil {
			return nil, storeErr(err, "session")
		}
	}
	if session.Phase != models.PhaseEnded {
		return nil, utils.InvalidState("Can only review completed sessions.")
	}

	review := &models.Review{
		ID:             uuid.NewString(),
		SessionID:      session.ID,
		GuestID:        caller.UserID,
		PractitionerID: session.PractitionerID,
		Rating:         req.Rating,
		Comment:        comment,
		CreatedAt:      now,
	}
	if err := s.Reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.InvalidState("session already reviewed")
		}
		return nil, storeErr(err, "review")
	}

	if err := s.recompute(ctx, session.PractitionerID, now); err != nil {
		return nil, err
	}
	return review, nil
}

func overdue(session *models.Session, now time.Time) bool {
	return session.Phase != models.PhaseEnded && session.ExpiresAt != nil && !now.Before(*session.ExpiresAt)
}

// recompute derives the rating from every stored review so concurrent
// reviews converge on the same aggregate.
func (s *DefaultReviewService) recompute(ctx context.Context, practitionerID string, now time.Time) error {
	reviews, err := s.Reviews.ListByPractitioner(ctx, practitionerID)
	if err != nil {
		return storeErr(err, "review")
	}
	rating, count := Aggregate(reviews)
	if err := s.Practitioners.UpdateRating(ctx, practitionerID, rating, count, now); err != nil {
		return storeErr(err, "practitioner")
	}
	utils.GetLogger().Debug("practitioner rating updated",
		zap.String("practitionerId", practitionerID),
		zap.Float64("rating", rating),
		zap.Int("reviewCount", count))
	return nil
}

func (s *DefaultReviewService) ListForSession(ctx context.Context, caller models.Identity, sessionID string) ([]models.Review, error) {
	session, err := s.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, storeErr(err, "session")
	}
	if _, ok := session.ParticipantOf(caller.UserID); !ok {
		return nil, utils.Forbidden("not a participant of this session")
	}
	review, err := s.Reviews.GetBySession(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return []models.Review{}, nil
	}
	if err != nil {
		return nil, storeErr(err, "review")
	}
	return []models.Review{*review}, nil
}

// Aggregate returns the mean rating rounded to one decimal and the count.
func Aggregate(reviews []models.Review) (float64, int) {
	if len(reviews) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	mean := float64(sum) / float64(len(reviews))
	return math.Round(mean*10) / 10, len(reviews)
}

func storeErr(err error, what string) error {
	var appErr *utils.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrNotFound):
		return utils.NotFound("%s not found", what)
	}
	return utils.Upstream(err, "record store unavailable")
}
