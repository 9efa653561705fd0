package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/rentfolio/rentfolio-backend/pkg/auth"
	"github.com/rentfolio/rentfolio-backend/pkg/config"
	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
	"github.com/rentfolio/rentfolio-backend/pkg/enums"
	pkgerrors "github.com/rentfolio/rentfolio-backend/pkg/errors"
	"github.com/rentfolio/rentfolio-backend/pkg/mailer"
	"github.com/rentfolio/rentfolio-backend/pkg/security"
)

type fakeUserRepo struct {
	usersByEmail map[string]*models.User
	usersByID    map[uuid.UUID]*models.User

	failedLogins   int
	failedMax      int
	failedLockedAt time.Time
	lastLoginSet   bool
	twoFactorHash  string
	twoFactorExp   time.Time
	twoFactorClear bool
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := f.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := f.usersByID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, _ time.Time) error {
	f.lastLoginSet = true
	return nil
}

func (f *fakeUserRepo) RecordFailedLogin(_ context.Context, _ uuid.UUID, maxAttempts int, lockedUntil time.Time) error {
	f.failedLogins++
	f.failedMax = maxAttempts
	f.failedLockedAt = lockedUntil
	return nil
}

func (f *fakeUserRepo) SetTwoFactorCode(_ context.Context, _ uuid.UUID, codeHash string, expiresAt time.Time) error {
	f.twoFactorHash = codeHash
	f.twoFactorExp = expiresAt
	return nil
}

func (f *fakeUserRepo) ClearTwoFactorCode(_ context.Context, _ uuid.UUID) error {
	f.twoFactorClear = true
	return nil
}

type fakeBlacklist struct {
	revoked map[string]bool
}

func (f *fakeBlacklist) Revoke(_ context.Context, jti string, _ uuid.UUID, _ time.Time) error {
	if f.revoked == nil {
		f.revoked = map[string]bool{}
	}
	f.revoked[jti] = true
	return nil
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], nil
}

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func testConfigs() (config.JWTConfig, config.LockoutConfig, config.TwoFactorConfig) {
	jwtCfg := config.JWTConfig{
		Secret:                 "test-secret",
		Issuer:                 "rentfolio-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 120,
	}
	lockout := config.LockoutConfig{MaxFailedAttempts: 5, Duration: 30 * time.Minute}
	twoFactor := config.TwoFactorConfig{CodeLength: 6, CodeTTL: 10 * time.Minute}
	return jwtCfg, lockout, twoFactor
}

func newTestUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        "tenant@example.com",
		PasswordHash: hash,
		FirstName:    "Terry",
		LastName:     "Tenant",
		Role:         enums.UserRoleTenant,
		Status:       enums.UserStatusActive,
	}
}

func newTestService(t *testing.T, repo *fakeUserRepo, blacklist *fakeBlacklist, sender mailer.Sender) Service {
	t.Helper()
	jwtCfg, lockout, twoFactor := testConfigs()
	svc, err := NewService(ServiceParams{
		UserRepo:  repo,
		Blacklist: blacklist,
		Mailer:    sender,
		JWTConfig: jwtCfg,
		Lockout:   lockout,
		TwoFactor: twoFactor,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestLoginIssuesTokenPair(t *testing.T) {
	user := newTestUser(t, "correct horse")
	repo := &fakeUserRepo{usersByEmail: map[string]*models.User{user.Email: user}}
	svc := newTestService(t, repo, &fakeBlacklist{}, &fakeSender{})

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "Tenant@Example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.TwoFactorRequired {
		t.Fatal("expected no 2fa challenge")
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if !repo.lastLoginSet {
		t.Fatal("expected last login update")
	}
}

func TestLoginWrongPasswordRecordsFailure(t *testing.T) {
	user := newTestUser(t, "correct horse")
	repo := &fakeUserRepo{usersByEmail: map[string]*models.User{user.Email: user}}
	svc := newTestService(t, repo, &fakeBlacklist{}, &fakeSender{})

	_, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "wrong"})
	if err == nil {
		t.Fatal("expected error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if repo.failedLogins != 1 {
		t.Fatalf("expected 1 recorded failure, got %d", repo.failedLogins)
	}
	if repo.failedMax != 5 {
		t.Fatalf("expected threshold 5, got %d", repo.failedMax)
	}
}

func TestLoginLockedAccountRejectsEvenWithCorrectPassword(t *testing.T) {
	user := newTestUser(t, "correct horse")
	lockedUntil := time.Now().Add(10 * time.Minute)
	user.LockedUntil = &lockedUntil
	repo := &fakeUserRepo{usersByEmail: map[string]*models.User{user.Email: user}}
	svc := newTestService(t, repo, &fakeBlacklist{}, &fakeSender{})

	_, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct horse"})
	if err == nil {
		t.Fatal("expected error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if repo.failedLogins != 0 {
		t.Fatal("locked account should not accrue failures")
	}
}

func TestLoginPendingVerificationRejected(t *testing.T) {
	user := newTestUser(t, "correct horse")
	user.Status = enums.UserStatusPendingVerification
	repo := &fakeUserRepo{usersByEmail: map[string]*models.User{user.Email: user}}
	svc := newTestService(t, repo, &fakeBlacklist{}, &fakeSender{})

	if _, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct horse"}); err == nil {
		t.Fatal("expected error for unverified account")
	}
}

func TestLoginTwoFactorChallenge(t *testing.T) {
	user := newTestUser(t, "correct horse")
	user.TwoFactorEnabled = true
	repo := &fakeUserRepo{usersByEmail: map[string]*models.User{user.Email: user}}
	sender := &fakeSender{}
	svc := newTestService(t, repo, &fakeBlacklist{}, sender)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !resp.TwoFactorRequired {
		t.Fatal("expected 2fa challenge")
	}
	if resp.AccessToken != "" || resp.RefreshToken != "" {
		t.Fatal("challenge response must not carry tokens")
	}
	if repo.twoFactorHash == "" {
		t.Fatal("expected stored code hash")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	if sender.sent[0].ToEmail != user.Email {
		t.Fatalf("email sent to %q", sender.sent[0].ToEmail)
	}
}

func TestLoginUnverifiedTwoFactorUserGetsChallenge(t *testing.T) {
	user := newTestUser(t, "correct horse")
	user.Status = enums.UserStatusPendingVerification
	user.TwoFactorEnabled = true
	repo := &fakeUserRepo{usersByEmail: map[string]*models.User{user.Email: user}}
	sender := &fakeSender{}
	svc := newTestService(t, repo, &fakeBlacklist{}, sender)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !resp.TwoFactorRequired {
		t.Fatal("expected 2fa challenge before the verification gate")
	}
	if resp.AccessToken != "" || resp.RefreshToken != "" {
		t.Fatal("challenge response must not carry tokens")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
}

func TestVerifyTwoFactorRoundTrip(t *testing.T) {
	user := newTestUser(t, "correct horse")
	code := "123456"
	hash := hashCode(code)
	expires := time.Now().Add(5 * time.Minute)
	user.TwoFactorCode = &hash
	user.TwoFactorExpires = &expires
	repo := &fakeUserRepo{usersByEmail: map[string]*models.User{user.Email: user}}
	svc := newTestService(t, repo, &fakeBlacklist{}, &fakeSender{})

	pair, err := svc.VerifyTwoFactor(context.Background(), VerifyTwoFactorRequest{Email: user.Email, Code: code})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if !repo.twoFactorClear {
		t.Fatal("expected code cleared after use")
	}
}

func TestVerifyTwoFactorSuspendedAccountRejected(t *testing.T) {
	user := newTestUser(t, "correct horse")
	user.Status = enums.UserStatusSuspended
	code := "123456"
	hash := hashCode(code)
	expires := time.Now().Add(5 * time.Minute)
	user.TwoFactorCode = &hash
	user.TwoFactorExpires = &expires
	repo := &fakeUserRepo{usersByEmail: map[string]*models.User{user.Email: user}}
	svc := newTestService(t, repo, &fakeBlacklist{}, &fakeSender{})

	pair, err := svc.VerifyTwoFactor(context.Background(), VerifyTwoFactorRequest{Email: user.Email, Code: code})
	if err == nil {
		t.Fatal("expected suspended account rejection")
	}
	if pair != nil {
		t.Fatal("suspended account must not receive tokens")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestVerifyTwoFactorExpiredCode(t *testing.T) {
	user := newTestUser(t, "correct horse")
	code := "123456"
	hash := hashCode(code)
	expires := time.Now().Add(-time.Minute)
	user.TwoFactorCode = &hash
	user.TwoFactorExpires = &expires
	repo := &fakeUserRepo{usersByEmail: map[string]*models.User{user.Email: user}}
	svc := newTestService(t, repo, &fakeBlacklist{}, &fakeSender{})

	if _, err := svc.VerifyTwoFactor(context.Background(), VerifyTwoFactorRequest{Email: user.Email, Code: code}); err == nil {
		t.Fatal("expected expired code rejection")
	}
}

func TestVerifyTwoFactorWrongCodeRecordsFailure(t *testing.T) {
	user := newTestUser(t, "correct horse")
	hash := hashCode("123456")
	expires := time.Now().Add(5 * time.Minute)
	user.TwoFactorCode = &hash
	user.TwoFactorExpires = &expires
	repo := &fakeUserRepo{usersByEmail: map[string]*models.User{user.Email: user}}
	svc := newTestService(t, repo, &fakeBlacklist{}, &fakeSender{})

	if _, err := svc.VerifyTwoFactor(context.Background(), VerifyTwoFactorRequest{Email: user.Email, Code: "000000"}); err == nil {
		t.Fatal("expected rejection")
	}
	if repo.failedLogins != 1 {
		t.Fatalf("expected 1 recorded failure, got %d", repo.failedLogins)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	user := newTestUser(t, "correct horse")
	repo := &fakeUserRepo{
		usersByEmail: map[string]*models.User{user.Email: user},
		usersByID:    map[uuid.UUID]*models.User{user.ID: user},
	}
	blacklist := &fakeBlacklist{}
	svc := newTestService(t, repo, blacklist, &fakeSender{})

	jwtCfg, _, _ := testConfigs()
	refreshToken, err := pkgAuth.MintRefreshToken(jwtCfg, time.Now(), pkgAuth.TokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		JTI:    "refresh-jti-1",
	})
	if err != nil {
		t.Fatalf("mint refresh: %v", err)
	}

	pair, err := svc.Refresh(context.Background(), RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected new pair")
	}
	if !blacklist.revoked["refresh-jti-1"] {
		t.Fatal("expected old refresh jti blacklisted")
	}

	// Replaying the rotated token must fail.
	if _, err := svc.Refresh(context.Background(), RefreshRequest{RefreshToken: refreshToken}); err == nil {
		t.Fatal("expected replay rejection")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	user := newTestUser(t, "correct horse")
	repo := &fakeUserRepo{usersByID: map[uuid.UUID]*models.User{user.ID: user}}
	svc := newTestService(t, repo, &fakeBlacklist{}, &fakeSender{})

	jwtCfg, _, _ := testConfigs()
	accessToken, err := pkgAuth.MintAccessToken(jwtCfg, time.Now(), pkgAuth.TokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		t.Fatalf("mint access: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), RefreshRequest{RefreshToken: accessToken}); err == nil {
		t.Fatal("expected access token rejection")
	}
}

func TestLogoutBlacklistsBothTokens(t *testing.T) {
	user := newTestUser(t, "correct horse")
	blacklist := &fakeBlacklist{}
	svc := newTestService(t, &fakeUserRepo{}, blacklist, &fakeSender{})

	jwtCfg, _, _ := testConfigs()
	payload := pkgAuth.TokenPayload{UserID: user.ID, Email: user.Email, Role: user.Role, JTI: "access-jti"}
	accessToken, err := pkgAuth.MintAccessToken(jwtCfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint access: %v", err)
	}
	payload.JTI = "refresh-jti"
	refreshToken, err := pkgAuth.MintRefreshToken(jwtCfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint refresh: %v", err)
	}

	if err := svc.Logout(context.Background(), accessToken, refreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !blacklist.revoked["access-jti"] || !blacklist.revoked["refresh-jti"] {
		t.Fatalf("expected both jtis revoked, got %v", blacklist.revoked)
	}
}

func TestLogoutAcceptsExpiredToken(t *testing.T) {
	user := newTestUser(t, "correct horse")
	blacklist := &fakeBlacklist{}
	svc := newTestService(t, &fakeUserRepo{}, blacklist, &fakeSender{})

	jwtCfg, _, _ := testConfigs()
	expired, err := pkgAuth.MintAccessToken(jwtCfg, time.Now().Add(-2*time.Hour), pkgAuth.TokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		JTI:    "expired-jti",
	})
	if err != nil {
		t.Fatalf("mint expired: %v", err)
	}

	if err := svc.Logout(context.Background(), expired, ""); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !blacklist.revoked["expired-jti"] {
		t.Fatal("expected expired jti revoked")
	}
}
