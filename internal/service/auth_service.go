package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"

	"github.com/maplecart/storefront/internal/domain"
	"github.com/maplecart/storefront/internal/platform/mailer"
	"github.com/maplecart/storefront/internal/platform/sms"
	"github.com/maplecart/storefront/internal/repo/postgres"
	"github.com/maplecart/storefront/internal/validate"
	"github.com/maplecart/storefront/pkg/auth"
	"github.com/maplecart/storefront/pkg/config"
	"github.com/maplecart/storefront/pkg/events"
	"github.com/maplecart/storefront/pkg/logger"
)

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	Me(ctx context.Context, userID int64) (*domain.Profile, error)

	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, userID int64) error

	SendMobileOTP(ctx context.Context, userID int64) error
	VerifyMobileOTP(ctx context.Context, userID int64, otp string) error

	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error
}

type authService struct {
	users    postgres.UserRepository
	mailer   mailer.Service
	sms      sms.Sender
	eventBus events.Publisher
	config   *config.Config
}

func NewAuthService(
	users postgres.UserRepository,
	mailer mailer.Service,
	sms sms.Sender,
	eventBus events.Publisher,
	config *config.Config,
) AuthService {
	return &authService{
		users:    users,
		mailer:   mailer,
		sms:      sms,
		eventBus: eventBus,
		config:   config,
	}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	req.Normalize()
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("email %s: %w", req.Email, domain.ErrDuplicate)
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req.Name, req.Email, req.Mobile, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, tokenHash, err := newURLToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}
	expiresAt := time.Now().Add(s.config.Auth.EmailVerificationTTL)
	if err := s.users.SetEmailVerification(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store verification token: %w", err)
	}

	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.config.Frontend.BaseURL, token)
	if err := s.mailer.SendVerificationEmail(user.Email, user.Name, verifyURL); err != nil {
		logger.ErrorContext(ctx, "failed to send verification email", "error", err, "user_id", user.ID)
		// Registration still succeeds; the user can request a resend.
	}

	if err := s.eventBus.Publish(ctx, events.UserRegistered, events.UserRegisteredEvent{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish user.registered", "error", err, "user_id", user.ID)
	}

	return s.authResponse(user)
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	req.Normalize()
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	valid, err := argon2id.ComparePasswordAndHash(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, domain.ErrInvalidCredentials
	}

	return s.authResponse(user)
}

func (s *authService) Me(ctx context.Context, userID int64) (*domain.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.users.ConsumeEmailVerification(ctx, hashToken(token))
	if err != nil {
		return fmt.Errorf("failed to consume verification token: %w", err)
	}
	if userID == 0 {
		return domain.ErrInvalidOrExpiredToken
	}
	return nil
}

func (s *authService) ResendVerification(ctx context.Context, userID int64) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return domain.ErrNotFound
	}
	if user.EmailVerified {
		return fmt.Errorf("email already verified: %w", domain.ErrInvalidState)
	}

	token, tokenHash, err := newURLToken()
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}
	expiresAt := time.Now().Add(s.config.Auth.EmailVerificationTTL)
	if err := s.users.SetEmailVerification(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.config.Frontend.BaseURL, token)
	if err := s.mailer.SendVerificationEmail(user.Email, user.Name, verifyURL); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

func (s *authService) SendMobileOTP(ctx context.Context, userID int64) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return domain.ErrNotFound
	}
	if user.Mobile == "" {
		return domain.NewValidationError("mobile", "is required")
	}

	code, err := newOTP()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}
	otpHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash OTP: %w", err)
	}

	expiresAt := time.Now().Add(s.config.Auth.MobileOTPTTL)
	if err := s.users.SetMobileOTP(ctx, user.ID, string(otpHash), expiresAt); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	if err := s.sms.SendOTP(user.Mobile, code); err != nil {
		logger.ErrorContext(ctx, "failed to send OTP SMS", "error", err, "user_id", user.ID)
		return fmt.Errorf("failed to send OTP: %w", err)
	}
	return nil
}

func (s *authService) VerifyMobileOTP(ctx context.Context, userID int64, otp string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return domain.ErrNotFound
	}
	if user.MobileOTPHash == nil || user.MobileOTPExpires == nil {
		return domain.ErrInvalidOrExpiredToken
	}
	if time.Now().After(*user.MobileOTPExpires) {
		return domain.ErrInvalidOrExpiredToken
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.MobileOTPHash), []byte(otp)) != nil {
		// Hash stays in place so the user can retry until expiry.
		return domain.ErrInvalidOrExpiredToken
	}

	if err := s.users.MarkMobileVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to mark mobile verified: %w", err)
	}
	return nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// Don't reveal whether the account exists.
		return nil
	}

	token, tokenHash, err := newURLToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	expiresAt := time.Now().Add(s.config.Auth.PasswordResetTTL)
	if err := s.users.SetPasswordReset(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.config.Frontend.BaseURL, token)
	if err := s.mailer.SendPasswordResetEmail(user.Email, user.Name, resetURL); err != nil {
		logger.ErrorContext(ctx, "failed to send password reset email", "error", err, "user_id", user.ID)
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *domain.ResetPasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}

	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.users.ConsumePasswordReset(ctx, hashToken(req.Token), passwordHash)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	if userID == 0 {
		return domain.ErrInvalidOrExpiredToken
	}
	return nil
}

func (s *authService) authResponse(user *domain.User) (*domain.AuthResponse, error) {
	token, err := auth.NewAccessToken(
		user.ID,
		user.Email,
		string(user.Role),
		s.config.Auth.JWTSecret,
		s.config.Auth.TokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	return &domain.AuthResponse{Token: token, User: user.Profile()}, nil
}

// newURLToken returns a random token for email links plus the sha256 hex
// digest that gets persisted. Only the hash touches the database.
func newURLToken() (token, tokenHash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(b)
	return token, hashToken(token), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
