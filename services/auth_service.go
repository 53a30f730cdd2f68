package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civictrack-be/apperr"
	"civictrack-be/models"
	"civictrack-be/store"
	"civictrack-be/utils"
)

// AuthService registers users and issues access and refresh tokens.
type AuthService struct {
	users      store.UserStore
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(users store.UserStore, secret []byte, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *AuthService) RefreshTTL() time.Duration { return s.refreshTTL }

// Session is the outcome of a successful login: the body for the client and
// the refresh token for the HttpOnly cookie.
type Session struct {
	Response     AuthResponse
	RefreshToken string
}

func (s *AuthService) session(u *models.User) (*Session, error) {
	access, err := utils.GenerateToken(s.secret, u.ID, utils.AccessToken, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := utils.GenerateToken(s.secret, u.ID, utils.RefreshToken, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &Session{
		Response: AuthResponse{
			FullName:    u.FullName,
			UserName:    u.UserName,
			Roles:       roleNames(u.Roles),
			AccessToken: access,
		},
		RefreshToken: refresh,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	fullName := strings.TrimSpace(in.FullName)
	userName := strings.TrimSpace(in.UserName)
	password := strings.TrimSpace(in.Password)

	// Binding checks the raw lengths; these apply once whitespace is gone.
	var invalid apperr.ValidationError
	if n := len(fullName); n < 3 || n > 200 {
		invalid.Add("fullName", "Full name must be between 3 and 200 characters and cannot be blank")
	}
	if n := len(userName); n < 3 || n > 50 {
		invalid.Add("userName", "Username must be between 3 and 50 characters and cannot be blank")
	}
	if n := len(password); n < 6 || n > 100 {
		invalid.Add("password", "Password must be between 6 and 100 characters and cannot be blank")
	}
	if err := invalid.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		ID:        utils.NewID(),
		FullName:  fullName,
		UserName:  userName,
		Password:  password,
		Roles:     []models.Role{models.RoleCitizen},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.BadRequest("Username is already taken!")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.session(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	user, err := s.users.GetByUserName(ctx, strings.TrimSpace(in.UserName))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.BadRequest("Incorrect username or password")
	} else if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.ComparePassword(strings.TrimSpace(in.Password)) {
		return nil, apperr.BadRequest("Incorrect username or password")
	}
	return s.session(user)
}

// Refresh issues a new access token. The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	userID, err := utils.ParseToken(s.secret, refreshToken, utils.RefreshToken)
	if err != nil {
		return nil, apperr.BadRequest("Invalid refresh token")
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.BadRequest("User not found with id: %d", userID)
	} else if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	sess, err := s.session(user)
	if err != nil {
		return nil, err
	}
	return &sess.Response, nil
}

// Authenticate resolves a bearer access token to its user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	userID, err := utils.ParseToken(s.secret, accessToken, utils.AccessToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid authorization token")
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthorized("Invalid authorization token")
	} else if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *AuthService) Me(actor *models.User) UserView {
	return userView(*actor)
}
