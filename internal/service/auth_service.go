package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/security"
)

// User ids double as login names. "_" is the conversation key separator and
// is not allowed.
var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9.\-]{3,50}$`)

// AuthService handles registration, login, and logout.
type AuthService struct {
	profiles domain.ProfileRepository
	tokens   *security.TokenService
	hash     *security.PasswordHasher
	sessions *Sessions
}

func NewAuthService(profiles domain.ProfileRepository, tokens *security.TokenService, hash *security.PasswordHasher, sessions *Sessions) *AuthService {
	return &AuthService{
		profiles: profiles,
		tokens:   tokens,
		hash:     hash,
		sessions: sessions,
	}
}

type RegisterInput struct {
	UserID      string
	DisplayName string
	PhotoURL    string
	Password    string
}

type LoginInput struct {
	UserID   string
	Password string
}

type TokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	User        *domain.Profile `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Profile, error) {
	if !userIDPattern.MatchString(in.UserID) {
		return nil, fmt.Errorf("user id must be 3-50 letters, digits, dots or dashes: %w", domain.ErrInvalidInput)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("password is required: %w", domain.ErrInvalidInput)
	}

	existing, err := s.profiles.GetProfile(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("check user id: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrConflict
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name = in.UserID
	}
	profile := &domain.Profile{
		UserID:       in.UserID,
		DisplayName:  name,
		PhotoURL:     strings.TrimSpace(in.PhotoURL),
		PasswordHash: hashed,
	}
	if err := s.profiles.PutProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

// Login checks the credentials, signs the user in and returns an access token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	profile, err := s.profiles.GetProfile(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := s.hash.Verify(in.Password, profile.PasswordHash); err != nil {
		return nil, domain.ErrUnauthorized
	}

	token, err := s.tokens.Issue(profile.UserID)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	s.sessions.SignIn(profile.UserID)

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        profile,
	}, nil
}

// Resume signs in the holder of a valid token, for clients that kept their
// token across a server restart.
func (s *AuthService) Resume(token string) (string, error) {
	userID, err := s.tokens.Subject(token)
	if err != nil {
		return "", domain.ErrUnauthorized
	}
	s.sessions.SignIn(userID)
	return userID, nil
}

func (s *AuthService) Logout(_ context.Context, userID string) error {
	s.sessions.SignOut(userID)
	return nil
}
