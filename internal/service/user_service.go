package service

import (
	"context"
	"fmt"
	"time"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/presence"
)

// UserService reads public user information.
type UserService struct {
	profiles domain.ProfileRepository
	presence domain.PresenceRepository
	now      func() time.Time
}

func NewUserService(profiles domain.ProfileRepository, presence domain.PresenceRepository) *UserService {
	return &UserService{profiles: profiles, presence: presence, now: time.Now}
}

// UserCard is a profile together with its presence line.
type UserCard struct {
	*domain.Profile
	Presence *domain.PresenceRecord `json:"presence,omitempty"`
	Status   string                 `json:"status"`
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *UserService) GetCard(ctx context.Context, userID string) (*UserCard, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec, err := s.presence.GetPresence(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get presence: %w", err)
	}
	return &UserCard{
		Profile:  p,
		Presence: rec,
		Status:   presence.Describe(rec, s.now()),
	}, nil
}

// UpdateProfile changes the display name and photo of userID.
func (s *UserService) UpdateProfile(ctx context.Context, userID, displayName, photoURL string) (*domain.Profile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if displayName != "" {
		p.DisplayName = displayName
	}
	p.PhotoURL = photoURL
	if err := s.profiles.PutProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}
