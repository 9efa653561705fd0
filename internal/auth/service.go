package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rentfolio/rentfolio-backend/internal/users"
	pkgAuth "github.com/rentfolio/rentfolio-backend/pkg/auth"
	"github.com/rentfolio/rentfolio-backend/pkg/config"
	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	pkgerrors "github.com/rentfolio/rentfolio-backend/pkg/errors"
	"github.com/rentfolio/rentfolio-backend/pkg/logger"
	"github.com/rentfolio/rentfolio-backend/pkg/mailer"
	"github.com/rentfolio/rentfolio-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	accountLockedMessage      = "account temporarily locked"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	VerifyTwoFactor(ctx context.Context, req VerifyTwoFactorRequest) (*TokenPairResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*TokenPairResponse, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordFailedLogin(ctx context.Context, id uuid.UUID, maxAttempts int, lockedUntil time.Time) error
	SetTwoFactorCode(ctx context.Context, id uuid.UUID, codeHash string, expiresAt time.Time) error
	ClearTwoFactorCode(ctx context.Context, id uuid.UUID) error
}

type tokenBlacklist interface {
	Revoke(ctx context.Context, jti string, userID uuid.UUID, expiresAt time.Time) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo  userRepository
	Blacklist tokenBlacklist
	Mailer    mailer.Sender
	JWTConfig config.JWTConfig
	Lockout   config.LockoutConfig
	TwoFactor config.TwoFactorConfig
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	users     userRepository
	blacklist tokenBlacklist
	mail      mailer.Sender
	jwtCfg    config.JWTConfig
	lockout   config.LockoutConfig
	twoFactor config.TwoFactorConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Blacklist == nil {
		return nil, fmt.Errorf("token blacklist is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		users:     params.UserRepo,
		blacklist: params.Blacklist,
		mail:      params.Mailer,
		jwtCfg:    params.JWTConfig,
		lockout:   params.Lockout,
		twoFactor: params.TwoFactor,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	// The 2FA challenge goes out before the verification gate so enrollment
	// state is not leaked; the gate applies again at code verification.
	if user.TwoFactorEnabled {
		if err := s.issueTwoFactorChallenge(ctx, user); err != nil {
			return nil, err
		}
		return &LoginResponse{TwoFactorRequired: true}, nil
	}

	if !user.CanLogin() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "email not verified")
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         pair.User,
	}, nil
}

func (s *service) VerifyTwoFactor(ctx context.Context, req VerifyTwoFactorRequest) (*TokenPairResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || strings.TrimSpace(req.Code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, accountLockedMessage)
	}
	if user.TwoFactorCode == nil || user.TwoFactorExpires == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "no pending verification")
	}
	if user.TwoFactorExpires.Before(now) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "verification code expired")
	}
	if subtle.ConstantTimeCompare([]byte(hashCode(req.Code)), []byte(*user.TwoFactorCode)) != 1 {
		if err := s.recordFailure(ctx, user); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid verification code")
	}

	// Account state may have changed between challenge and verification.
	if !user.CanLogin() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account is not active")
	}

	if err := s.users.ClearTwoFactorCode(ctx, user.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear verification code")
	}

	return s.issueTokens(ctx, user)
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*TokenPairResponse, error) {
	claims, err := pkgAuth.ParseToken(s.jwtCfg, req.RefreshToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid refresh token")
	}
	if claims.Kind != pkgAuth.TokenKindRefresh {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh token required")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing token id")
	}

	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check blacklist")
	}
	if revoked {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token revoked")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.CanLogin() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	// Rotate: the presented refresh token is single use.
	if claims.ExpiresAt != nil {
		if err := s.blacklist.Revoke(ctx, claims.ID, user.ID, claims.ExpiresAt.Time); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate refresh token")
		}
	}

	return s.mintPair(user)
}

func (s *service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	revoked := 0
	for _, raw := range []string{accessToken, refreshToken} {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		claims, err := pkgAuth.ParseTokenAllowExpired(s.jwtCfg, token)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
		}
		if claims.ID == "" || claims.ExpiresAt == nil {
			continue
		}
		if err := s.blacklist.Revoke(ctx, claims.ID, claims.UserID, claims.ExpiresAt.Time); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke token")
		}
		revoked++
	}
	if revoked == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no token provided")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.ToLower(strings.TrimSpace(email))
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, accountLockedMessage)
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		if err := s.recordFailure(ctx, user); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if user.IsDisabled() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) recordFailure(ctx context.Context, user *models.User) error {
	lockedUntil := s.now().Add(s.lockout.Duration)
	if err := s.users.RecordFailedLogin(ctx, user.ID, s.lockout.MaxFailedAttempts, lockedUntil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record failed login")
	}
	return nil
}

func (s *service) issueTwoFactorChallenge(ctx context.Context, user *models.User) error {
	length := s.twoFactor.CodeLength
	if length <= 0 {
		length = 6
	}
	code, err := security.GenerateNumericCode(length)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}

	expiresAt := s.now().Add(s.twoFactor.CodeTTL)
	if err := s.users.SetTwoFactorCode(ctx, user.ID, hashCode(code), expiresAt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store verification code")
	}

	if s.mail == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "mail sender unavailable")
	}
	msg := mailer.Message{
		ToEmail:  user.Email,
		ToName:   strings.TrimSpace(user.FirstName + " " + user.LastName),
		Subject:  "Your verification code",
		TextBody: fmt.Sprintf("Your verification code is %s. It expires in %s.", code, s.twoFactor.CodeTTL),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send verification code")
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String()})
		s.logg.Info(logCtx, "auth.2fa.challenge_sent")
	}
	return nil
}

func (s *service) issueTokens(ctx context.Context, user *models.User) (*TokenPairResponse, error) {
	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return s.mintPair(user)
}

func (s *service) mintPair(user *models.User) (*TokenPairResponse, error) {
	now := s.now()
	payload := pkgAuth.TokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refreshToken, err := pkgAuth.MintRefreshToken(s.jwtCfg, now, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint refresh token")
	}

	return &TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}
