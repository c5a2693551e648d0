package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/brightcart/auth-service/internal/auth"
	"github.com/brightcart/auth-service/internal/domain"
	"github.com/brightcart/auth-service/internal/repository"
	apperrors "github.com/brightcart/auth-service/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// actionTokenBytes is the entropy of the opaque single-use tokens sent in
// verification and password reset emails.
const actionTokenBytes = 32

// logoutBlacklistCap bounds the denylist TTL applied to a refresh token on
// logout. The ledger already records the revocation, so the Redis entry only
// serves as a fast rejection path and need not outlive the cap.
const logoutBlacklistCap = time.Hour

// TokenBlacklist is the advisory denylist consulted before token
// verification. A miss is never authoritative; the refresh token ledger
// remains the source of truth.
type TokenBlacklist interface {
	Add(ctx context.Context, rawToken string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, rawToken string) (bool, error)
}

// EventPublisher publishes auth domain events. Publish failures never fail
// the triggering operation.
type EventPublisher interface {
	PublishVerificationEmail(ctx context.Context, user *domain.User, actionURL string) error
	PublishWelcomeEmail(ctx context.Context, user *domain.User) error
	PublishPasswordResetEmail(ctx context.Context, user *domain.User, actionURL string) error
	PublishBreachDetected(ctx context.Context, userID, tokenFamily, reason string) error
}

// Config holds the tunable parameters of the auth service.
type Config struct {
	FrontendURL          string
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
}

// AuthService implements the account and session lifecycle.
type AuthService struct {
	userRepo        repository.UserRepository
	refreshRepo     repository.RefreshTokenRepository
	actionTokenRepo repository.ActionTokenRepository
	codec           *auth.TokenCodec
	blacklist       TokenBlacklist
	producer        EventPublisher
	cfg             Config
	logger          *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	refreshRepo repository.RefreshTokenRepository,
	actionTokenRepo repository.ActionTokenRepository,
	codec *auth.TokenCodec,
	blacklist TokenBlacklist,
	producer EventPublisher,
	cfg Config,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		refreshRepo:     refreshRepo,
		actionTokenRepo: actionTokenRepo,
		codec:           codec,
		blacklist:       blacklist,
		producer:        producer,
		cfg:             cfg,
		logger:          logger,
	}
}

// RegisterInput holds the parameters for registering a new account.
type RegisterInput struct {
	Email    string
	Password string
}

// LoginInput holds the parameters for logging in.
type LoginInput struct {
	Email    string
	Password string
}

// Register creates a new unverified account and emails a verification link.
// No tokens are issued; the user must verify their email and log in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if failed := domain.ValidatePasswordStrength(input.Password); len(failed) > 0 {
		return nil, apperrors.WeakPassword(failed)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleCustomer,
		IsVerified:   false,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.sendActionToken(ctx, user, domain.ActionTokenVerification); err != nil {
		s.logger.ErrorContext(ctx, "failed to issue verification token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login authenticates a user with email and password and starts a new
// session: a fresh token family with one access/refresh pair.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, nil, apperrors.InvalidCredentials()
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Same error as a wrong password so accounts cannot be enumerated.
		return nil, nil, apperrors.InvalidCredentials()
	}

	if !user.IsActive {
		return nil, nil, apperrors.Inactive()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.InvalidCredentials()
	}

	if !user.IsVerified {
		return nil, nil, apperrors.Unverified()
	}

	pair, _, err := s.issueTokenPair(ctx, user, auth.NewTokenFamily())
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, pair, nil
}

// Refresh rotates a refresh token: the presented token is retired and a new
// pair in the same family is issued. Presenting a token that was already
// rotated or revoked is treated as evidence of theft, and the whole family is
// revoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}

	claims, err := s.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.Expired("refresh token has expired")
		}
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	// Fast path: a denylisted token was already rotated or revoked. The
	// check is advisory, so a Redis failure falls through to the ledger.
	blacklisted, err := s.blacklist.IsBlacklisted(ctx, refreshToken)
	if err != nil {
		s.logger.WarnContext(ctx, "blacklist check failed, falling back to ledger",
			slog.String("error", err.Error()),
		)
	} else if blacklisted {
		return nil, s.handleTokenReuse(ctx, claims.UserID, claims.TokenFamily, "blacklisted refresh token presented")
	}

	record, err := s.refreshRepo.GetByHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("look up refresh token: %w", err)
	}

	if record.Revoked() {
		return nil, s.handleTokenReuse(ctx, record.UserID, record.TokenFamily, "revoked refresh token presented")
	}

	// An expired but unrevoked token is a stale session, not a breach.
	if record.Expired(time.Now().UTC()) {
		return nil, apperrors.Expired("refresh token has expired")
	}

	user, err := s.userRepo.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("get user for refresh: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.Inactive()
	}

	pair, newRecord, err := s.issueTokenPair(ctx, user, record.TokenFamily)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	won, err := s.refreshRepo.MarkReplaced(ctx, record.ID, newRecord.ID)
	if err != nil {
		return nil, fmt.Errorf("mark refresh token replaced: %w", err)
	}
	if !won {
		// A concurrent rotation of the same token got there first. Retire
		// the pair we just minted and treat the family as compromised.
		if err := s.refreshRepo.Revoke(ctx, newRecord.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to revoke token minted by losing rotation",
				slog.String("token_id", newRecord.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, s.handleTokenReuse(ctx, record.UserID, record.TokenFamily, "concurrent rotation of the same refresh token")
	}

	if err := s.blacklist.Add(ctx, refreshToken, time.Until(record.ExpiresAt)); err != nil {
		s.logger.WarnContext(ctx, "failed to blacklist rotated refresh token",
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "refresh token rotated",
		slog.String("user_id", user.ID),
		slog.String("token_family", record.TokenFamily),
	)

	return pair, nil
}

// handleTokenReuse revokes every token in the family, publishes a breach
// event, and returns the security breach error handed to the caller.
func (s *AuthService) handleTokenReuse(ctx context.Context, userID, tokenFamily, reason string) error {
	s.logger.WarnContext(ctx, "refresh token reuse detected",
		slog.String("user_id", userID),
		slog.String("token_family", tokenFamily),
		slog.String("reason", reason),
	)

	if err := s.refreshRepo.RevokeFamily(ctx, tokenFamily); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke compromised token family",
			slog.String("token_family", tokenFamily),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishBreachDetected(ctx, userID, tokenFamily, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish auth.breach_detected event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return apperrors.SecurityBreach()
}

// Logout ends the session the tokens belong to. The operation is idempotent:
// unknown, expired, or already-revoked tokens are silently accepted.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken != "" {
		if claims, err := s.codec.VerifyAccessToken(accessToken); err == nil {
			if err := s.blacklist.Add(ctx, accessToken, time.Until(claims.ExpiresAt.Time)); err != nil {
				s.logger.WarnContext(ctx, "failed to blacklist access token on logout",
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if refreshToken == "" {
		return nil
	}

	record, err := s.refreshRepo.GetByHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("look up refresh token for logout: %w", err)
	}

	if err := s.refreshRepo.Revoke(ctx, record.ID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	ttl := time.Until(record.ExpiresAt)
	if ttl > logoutBlacklistCap {
		ttl = logoutBlacklistCap
	}
	if err := s.blacklist.Add(ctx, refreshToken, ttl); err != nil {
		s.logger.WarnContext(ctx, "failed to blacklist refresh token on logout",
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", record.UserID),
	)

	return nil
}

// LogoutAll revokes every active refresh token for the user across all
// devices and families.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.refreshRepo.RevokeByUserID(ctx, userID); err != nil {
		return fmt.Errorf("revoke all refresh tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "all sessions revoked",
		slog.String("user_id", userID),
	)

	return nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.InvalidInput("verification token is required")
	}

	at, err := s.actionTokenRepo.FindActive(ctx, token, domain.ActionTokenVerification)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Expired("verification token is invalid or has expired")
		}
		return fmt.Errorf("look up verification token: %w", err)
	}

	if err := s.userRepo.SetVerified(ctx, at.UserID); err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}

	if err := s.actionTokenRepo.MarkUsed(ctx, at.ID); err != nil {
		return fmt.Errorf("consume verification token: %w", err)
	}

	if user, err := s.userRepo.GetByID(ctx, at.UserID); err == nil {
		if err := s.producer.PublishWelcomeEmail(ctx, user); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish welcome email event",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "email verified",
		slog.String("user_id", at.UserID),
	)

	return nil
}

// RequestPasswordReset emails a reset link when the address is registered.
// It reports success either way so the endpoint cannot be used to probe for
// accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.InfoContext(ctx, "password reset requested for unknown email",
			slog.String("email", email),
		)
		return nil
	}

	if err := s.sendActionToken(ctx, user, domain.ActionTokenPasswordReset); err != nil {
		s.logger.ErrorContext(ctx, "failed to issue password reset token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("user_id", user.ID),
	)

	return nil
}

// ResetPassword consumes a reset token, replaces the password, and revokes
// every existing session for the user.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperrors.InvalidInput("reset token is required")
	}
	if failed := domain.ValidatePasswordStrength(newPassword); len(failed) > 0 {
		return apperrors.WeakPassword(failed)
	}

	at, err := s.actionTokenRepo.FindActive(ctx, token, domain.ActionTokenPasswordReset)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Expired("reset token is invalid or has expired")
		}
		return fmt.Errorf("look up reset token: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, at.UserID, string(hashedPassword)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.actionTokenRepo.MarkUsed(ctx, at.ID); err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}

	if err := s.refreshRepo.RevokeByUserID(ctx, at.UserID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke sessions after password reset",
			slog.String("user_id", at.UserID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", at.UserID),
	)

	return nil
}

// Authenticate resolves a raw access token into the caller's identity. It is
// the entry point used by the HTTP authentication middleware.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (domain.Identity, error) {
	if accessToken == "" {
		return domain.Identity{}, apperrors.Unauthorized("missing access token")
	}

	blacklisted, err := s.blacklist.IsBlacklisted(ctx, accessToken)
	if err != nil {
		s.logger.WarnContext(ctx, "blacklist check failed for access token",
			slog.String("error", err.Error()),
		)
	} else if blacklisted {
		return domain.Identity{}, apperrors.Revoked("token has been revoked")
	}

	claims, err := s.codec.VerifyAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return domain.Identity{}, apperrors.Expired("access token has expired")
		}
		return domain.Identity{}, apperrors.Unauthorized("invalid access token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return domain.Identity{}, apperrors.Unauthorized("invalid access token")
	}
	if !user.IsActive {
		return domain.Identity{}, apperrors.Inactive()
	}

	return domain.IdentityOf(user), nil
}

// GetProfile retrieves a user by ID.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// AccessExpiry exposes the configured access token lifetime for response
// payloads and cookie settings.
func (s *AuthService) AccessExpiry() time.Duration {
	return s.codec.AccessExpiry()
}

// RefreshExpiry exposes the configured refresh token lifetime.
func (s *AuthService) RefreshExpiry() time.Duration {
	return s.codec.RefreshExpiry()
}

// --- Helpers ---

// issueTokenPair mints an access/refresh pair in the given family and records
// the refresh token hash in the ledger.
func (s *AuthService) issueTokenPair(ctx context.Context, user *domain.User, tokenFamily string) (*domain.TokenPair, *domain.RefreshTokenRecord, error) {
	accessToken, err := s.codec.MintAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("mint access token: %w", err)
	}

	refreshToken, err := s.codec.MintRefreshToken(user.ID, user.Email, tokenFamily)
	if err != nil {
		return nil, nil, fmt.Errorf("mint refresh token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.codec.RefreshExpiry())
	record, err := s.refreshRepo.Create(ctx, user.ID, auth.HashToken(refreshToken), tokenFamily, expiresAt)
	if err != nil {
		return nil, nil, fmt.Errorf("store refresh token: %w", err)
	}

	pair := &domain.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresIn:        int64(s.codec.AccessExpiry().Seconds()),
		RefreshExpiresIn: int64(s.codec.RefreshExpiry().Seconds()),
	}

	return pair, record, nil
}

// sendActionToken generates a single-use opaque token, stores it, and emails
// the matching link through the notification topic.
func (s *AuthService) sendActionToken(ctx context.Context, user *domain.User, kind domain.ActionTokenKind) error {
	token, err := newActionToken()
	if err != nil {
		return fmt.Errorf("generate action token: %w", err)
	}

	var ttl time.Duration
	var path string
	switch kind {
	case domain.ActionTokenVerification:
		ttl = s.cfg.VerificationTokenTTL
		path = "/verify-email"
	case domain.ActionTokenPasswordReset:
		ttl = s.cfg.ResetTokenTTL
		path = "/reset-password"
	default:
		return fmt.Errorf("unknown action token kind %q", kind)
	}

	if _, err := s.actionTokenRepo.Create(ctx, user.ID, token, kind, time.Now().UTC().Add(ttl)); err != nil {
		return fmt.Errorf("store action token: %w", err)
	}

	actionURL := fmt.Sprintf("%s%s?token=%s", strings.TrimRight(s.cfg.FrontendURL, "/"), path, token)

	switch kind {
	case domain.ActionTokenVerification:
		err = s.producer.PublishVerificationEmail(ctx, user, actionURL)
	case domain.ActionTokenPasswordReset:
		err = s.producer.PublishPasswordResetEmail(ctx, user, actionURL)
	}
	if err != nil {
		return fmt.Errorf("publish email event: %w", err)
	}

	return nil
}

// newActionToken returns a 64-character hex token with 256 bits of entropy.
func newActionToken() (string, error) {
	buf := make([]byte, actionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
