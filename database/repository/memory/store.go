// Package memory is an in-process implementation of every record repository.
// A single mutex serialises all access, so conditional writes are atomic.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"consultline/database/repository"
	practitionerRepo "consultline/database/repository/practitioner"
	profileRepo "consultline/database/repository/profile"
	reviewRepo "consultline/database/repository/review"
	sessionRepo "consultline/database/repository/session"
	userRepo "consultline/database/repository/user"
	"consultline/models"
)

// Store holds all records. Use the accessor methods to obtain repositories.
type Store struct {
	mu            sync.Mutex
	users         map[string]models.User
	profiles      map[string]models.Profile
	practitioners map[string]models.Practitioner
	sessions      map[string]models.Session
	reviews       map[string]models.Review // keyed by session ID
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:         make(map[string]models.User),
		profiles:      make(map[string]models.Profile),
		practitioners: make(map[string]models.Practitioner),
		sessions:      make(map[string]models.Session),
		reviews:       make(map[string]models.Review),
	}
}

func (s *Store) Users() userRepo.UserRepository { return users{s} }
func (s *Store) Profiles() profileRepo.ProfileRepository { return profiles{s} }
func (s *Store) Practitioners() practitionerRepo.PractitionerRepository { return practitioners{s} }
func (s *Store) Sessions() sessionRepo.SessionRepository { return sessions{s} }
func (s *Store) Reviews() reviewRepo.ReviewRepository { return reviews{s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

type users struct{ *Store }

func (r users) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = strings.ToLower(u.Email)
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return fmt.Errorf("insert user %s: %w", u.Email, repository.ErrDuplicate)
		}
	}
	if _, ok := r.users[u.ID]; ok {
		return fmt.Errorf("insert user %s: %w", u.ID, repository.ErrDuplicate)
	}
	r.users[u.ID] = *u
	return nil
}

func (r users) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("fetch user %s: %w", id, repository.ErrNotFound)
	}
	return &u, nil
}

func (r users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("fetch user %s: %w", email, repository.ErrNotFound)
}

type profiles struct{ *Store }

func (r profiles) Create(_ context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[p.ID]; ok {
		return fmt.Errorf("insert profile %s: %w", p.ID, repository.ErrDuplicate)
	}
	r.profiles[p.ID] = cloneProfile(*p)
	return nil
}

func (r profiles) GetByID(_ context.Context, id string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, fmt.Errorf("fetch profile %s: %w", id, repository.ErrNotFound)
	}
	p = cloneProfile(p)
	return &p, nil
}

func (r profiles) GetByIDs(_ context.Context, ids []string) (map[string]*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]*models.Profile, len(ids))
	for _, id := range ids {
		if p, ok := r.profiles[id]; ok {
			p = cloneProfile(p)
			out[id] = &p
		}
	}
	return out, nil
}

func (r profiles) Update(_ context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.profiles[p.ID]
	if !ok {
		return fmt.Errorf("update profile %s: %w", p.ID, repository.ErrNotFound)
	}
	updated := cloneProfile(*p)
	updated.Role = existing.Role
	updated.CreatedAt = existing.CreatedAt
	r.profiles[p.ID] = updated
	return nil
}

func cloneProfile(p models.Profile) models.Profile {
	p.GalleryURLs = append([]string(nil), p.GalleryURLs...)
	p.Specialties = append([]string(nil), p.Specialties...)
	return p
}

type practitioners struct{ *Store }

func (r practitioners) Create(_ context.Context, p *models.Practitioner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.practitioners[p.UserID]; ok {
		return fmt.Errorf("insert practitioner %s: %w", p.UserID, repository.ErrDuplicate)
	}
	r.practitioners[p.UserID] = *p
	return nil
}

func (r practitioners) GetByID(_ context.Context, userID string) (*models.Practitioner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.practitioners[userID]
	if !ok {
		return nil, fmt.Errorf("fetch practitioner %s: %w", userID, repository.ErrNotFound)
	}
	return &p, nil
}

func (r practitioners) List(_ context.Context, onlineOnly bool) ([]models.Practitioner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Practitioner
	for _, p := range r.practitioners {
		if onlineOnly && !p.IsOnline {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		if out[i].ReviewCount != out[j].ReviewCount {
			return out[i].ReviewCount > out[j].ReviewCount
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (r practitioners) SetOnline(_ context.Context, userID string, isOnline bool, now time.Time) (*models.Practitioner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.practitioners[userID]
	if !ok {
		return nil, fmt.Errorf("fetch practitioner %s: %w", userID, repository.ErrNotFound)
	}
	if !isOnline && p.InService {
		return nil, fmt.Errorf("set practitioner %s offline: %w", userID, repository.ErrConflict)
	}
	p.IsOnline = isOnline
	p.UpdatedAt = now
	r.practitioners[userID] = p
	return &p, nil
}

func (r practitioners) Release(_ context.Context, userID, sessionID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.practitioners[userID]
	if !ok || !p.InService || p.ActiveSessionID != sessionID {
		return false, nil
	}
	p.InService = false
	p.ActiveSessionID = ""
	p.UpdatedAt = now
	r.practitioners[userID] = p
	return true, nil
}

func (r practitioners) UpdateRating(_ context.Context, userID string, rating float64, count int, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.practitioners[userID]
	if !ok {
		return fmt.Errorf("update rating of %s: %w", userID, repository.ErrNotFound)
	}
	p.Rating = rating
	p.ReviewCount = count
	p.UpdatedAt = now
	r.practitioners[userID] = p
	return nil
}

type sessions struct{ *Store }

func (r sessions) CreateReserving(_ context.Context, s *models.Session, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.practitioners[s.PractitionerID]
	if !ok || !p.IsOnline || p.InService {
		return fmt.Errorf("reserve practitioner %s: %w", s.PractitionerID, repository.ErrConflict)
	}
	if _, exists := r.sessions[s.ID]; exists {
		return fmt.Errorf("insert session %s: %w", s.ID, repository.ErrDuplicate)
	}
	p.InService = true
	p.ActiveSessionID = s.ID
	p.UpdatedAt = now
	r.practitioners[p.UserID] = p
	r.sessions[s.ID] = *s
	return nil
}

func (r sessions) GetByID(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("fetch session %s: %w", id, repository.ErrNotFound)
	}
	return &s, nil
}

func (r sessions) GetByChannel(_ context.Context, channel string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.AgoraChannel == channel {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("fetch session on channel %s: %w", channel, repository.ErrNotFound)
}

func (r sessions) ListByPractitioner(_ context.Context, practitionerID string) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Session
	for _, s := range r.sessions {
		if s.PractitionerID == practitionerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r sessions) ListDue(_ context.Context, now time.Time, limit int) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Session
	for _, s := range r.sessions {
		if s.Phase != models.PhaseEnded && s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r sessions) Update(_ context.Context, id string, mutate sessionRepo.MutateFunc) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("fetch session %s: %w", id, repository.ErrNotFound)
	}
	working := current
	if err := mutate(&working); err != nil {
		if errors.Is(err, repository.ErrSkip) {
			return &current, nil
		}
		return nil, err
	}
	working.Version = current.Version + 1
	r.sessions[id] = working
	return &working, nil
}

type reviews struct{ *Store }

func (r reviews) Create(_ context.Context, rev *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reviews[rev.SessionID]; ok {
		return fmt.Errorf("insert review for session %s: %w", rev.SessionID, repository.ErrDuplicate)
	}
	r.reviews[rev.SessionID] = *rev
	return nil
}

func (r reviews) GetBySession(_ context.Context, sessionID string) (*models.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rev, ok := r.reviews[sessionID]
	if !ok {
		return nil, fmt.Errorf("fetch review for session %s: %w", sessionID, repository.ErrNotFound)
	}
	return &rev, nil
}

func (r reviews) ListByPractitioner(_ context.Context, practitionerID string) ([]models.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Review
	for _, rev := range r.reviews {
		if rev.PractitionerID == practitionerID {
			out = append(out, rev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
