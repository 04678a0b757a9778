package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ayezhov/auth-service/internal/models"
	"github.com/ayezhov/auth-service/internal/mq"
	"github.com/ayezhov/auth-service/internal/repo"
	"github.com/ayezhov/auth-service/pkg/hash"
	"github.com/ayezhov/auth-service/pkg/logging"
	"github.com/ayezhov/auth-service/pkg/tokens"
)

const (
	AccessTokenTTL  = 30 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// dummyHash is compared against when the login email is unknown so that
// both failure paths cost one bcrypt verification.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

type Events interface {
	Publish(topic string, payload any)
}

type MailPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	URL      string `json:"url"`
}

type SMSPayload struct {
	Token string `json:"token"`
}

type PublicIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type LoginResult struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type AuthService struct {
	Repo   *repo.GormRepo
	Codec  *tokens.Codec
	Events Events
}

// Register creates an inactive, unverified user and hands the activation
// mail to the publisher. The mail is advisory: once the user row is
// written, nothing on the notification path can fail the registration.
func (s *AuthService) Register(ctx context.Context, username, email, password, baseURL string) error {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if username == "" || email == "" || password == "" {
		return ErrMissingFields
	}

	if _, err := s.Repo.UserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if _, err := s.Repo.UserByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_failed", "reason", "hash", "error", err)
		return err
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		l.Error("register_failed", "reason", "db_error", "error", err)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	activation, err := s.Codec.Sign(user.ID, tokens.PurposeAccess, AccessTokenTTL)
	if err != nil {
		l.Error("activation_token_failed", "error", err)
		return nil
	}
	s.Events.Publish(mq.TopicMails, MailPayload{
		Username: user.Username,
		Email:    user.Email,
		URL:      baseURL + "/api/v1/account/activate/" + activation,
	})

	l.Info("register_success", "user_id", user.ID)
	return nil
}

// ActivateAccount flips isActive and isVerified exactly once for the
// token's subject.
func (s *AuthService) ActivateAccount(ctx context.Context, tokenStr string) (*PublicIdentity, error) {
	l := logging.FromContext(ctx).With("svc", "auth.activate")

	claims, err := s.Codec.Verify(tokenStr, tokens.PurposeAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.Repo.UserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if user.IsActive && user.IsVerified {
		return nil, ErrAlreadyVerified
	}

	updated, err := s.Repo.ActivateUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	l.Info("account_activated", "user_id", updated.ID)
	return &PublicIdentity{ID: updated.ID, Username: updated.Username}, nil
}

// Login verifies the credentials, replaces the user's refresh session and
// mints a fresh access token. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			hash.CheckPassword(dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	refreshToken, err := s.Codec.Sign(user.ID, tokens.PurposeRefresh, RefreshTokenTTL)
	if err != nil {
		l.Error("login_failed", "reason", "sign_refresh", "error", err)
		return nil, err
	}
	refreshExp := time.Now().Add(RefreshTokenTTL)

	session := models.RefreshSession{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: refreshExp,
	}
	if err := s.Repo.UpsertSession(ctx, &session); err != nil {
		l.Error("login_failed", "reason", "session_upsert", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	accessToken, err := s.Codec.Sign(user.ID, tokens.PurposeAccess, AccessTokenTTL)
	if err != nil {
		l.Error("login_failed", "reason", "sign_access", "error", err)
		return nil, err
	}

	s.Events.Publish(mq.TopicSMS, SMSPayload{Token: accessToken})

	l.Info("login_success", "user_id", user.ID)
	return &LoginResult{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh mints a new access token for the holder of a valid refresh
// token backed by a stored session. The stored token is left untouched.
func (s *AuthService) Refresh(ctx context.Context, cookieToken string) (string, error) {
	claims, err := s.Codec.Verify(cookieToken, tokens.PurposeRefresh)
	if err != nil {
		return "", ErrUnauthenticated
	}

	if _, err := s.Repo.SessionByUserID(ctx, claims.Subject); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUnauthenticated
		}
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return s.Codec.Sign(claims.Subject, tokens.PurposeAccess, AccessTokenTTL)
}

// Logout drops the session holding exactly this token value. A token that
// is not stored still logs out cleanly.
func (s *AuthService) Logout(ctx context.Context, cookieToken string) error {
	if err := s.Repo.DeleteSessionByToken(ctx, cookieToken); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// AuthenticatedUser resolves a bearer access token to the full user
// record. The password hash never serializes thanks to its json tag.
func (s *AuthService) AuthenticatedUser(ctx context.Context, bearerToken string) (*models.User, error) {
	claims, err := s.Codec.Verify(bearerToken, tokens.PurposeAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.Repo.UserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return user, nil
}
