package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maplecart/storefront/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, name, email, mobile, passwordHash string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)

	SetEmailVerification(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	// ConsumeEmailVerification marks the matching user verified and clears the
	// token in one statement. Returns 0 when the token is unknown, used, or
	// expired.
	ConsumeEmailVerification(ctx context.Context, tokenHash string) (int64, error)

	SetMobileOTP(ctx context.Context, userID int64, otpHash string, expiresAt time.Time) error
	// MarkMobileVerified sets the verified flag and clears the OTP fields.
	MarkMobileVerified(ctx context.Context, userID int64) error

	SetPasswordReset(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	// ConsumePasswordReset swaps in the new password hash and clears the reset
	// token in one statement. Returns 0 when the token is unknown or expired.
	ConsumePasswordReset(ctx context.Context, tokenHash, newPasswordHash string) (int64, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userCols = `id, name, email, mobile, password_hash, role,
email_verified, mobile_verified,
email_verification_token, email_verification_expires,
mobile_otp_hash, mobile_otp_expires,
reset_password_token, reset_password_expires,
shipping_addresses, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var addresses []byte
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Mobile, &u.PasswordHash, &u.Role,
		&u.EmailVerified, &u.MobileVerified,
		&u.EmailVerificationToken, &u.EmailVerificationExpires,
		&u.MobileOTPHash, &u.MobileOTPExpires,
		&u.ResetPasswordToken, &u.ResetPasswordExpires,
		&addresses, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(addresses) > 0 {
		if err := json.Unmarshal(addresses, &u.ShippingAddresses); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, name, email, mobile, passwordHash string) (*domain.User, error) {
	const q = `INSERT INTO users (name, email, mobile, password_hash, role, email_verified, mobile_verified, shipping_addresses)
		VALUES ($1, $2, $3, $4, 'user', false, false, '[]'::jsonb)
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q, name, email, mobile, passwordHash))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *userRepository) SetEmailVerification(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	const q = `UPDATE users
		SET email_verification_token = $2, email_verification_expires = $3, updated_at = now()
		WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, userID, tokenHash, expiresAt)
	return err
}

func (r *userRepository) ConsumeEmailVerification(ctx context.Context, tokenHash string) (int64, error) {
	const q = `UPDATE users
		SET email_verified = true,
		    email_verification_token = NULL,
		    email_verification_expires = NULL,
		    updated_at = now()
		WHERE email_verification_token = $1
		  AND email_verification_expires > now()
		RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var userID int64
	err := r.pool.QueryRow(ctx, q, tokenHash).Scan(&userID)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return userID, err
}

func (r *userRepository) SetMobileOTP(ctx context.Context, userID int64, otpHash string, expiresAt time.Time) error {
	const q = `UPDATE users
		SET mobile_otp_hash = $2, mobile_otp_expires = $3, updated_at = now()
		WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, userID, otpHash, expiresAt)
	return err
}

func (r *userRepository) MarkMobileVerified(ctx context.Context, userID int64) error {
	const q = `UPDATE users
		SET mobile_verified = true,
		    mobile_otp_hash = NULL,
		    mobile_otp_expires = NULL,
		    updated_at = now()
		WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) SetPasswordReset(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	const q = `UPDATE users
		SET reset_password_token = $2, reset_password_expires = $3, updated_at = now()
		WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, userID, tokenHash, expiresAt)
	return err
}

func (r *userRepository) ConsumePasswordReset(ctx context.Context, tokenHash, newPasswordHash string) (int64, error) {
	const q = `UPDATE users
		SET password_hash = $2,
		    reset_password_token = NULL,
		    reset_password_expires = NULL,
		    updated_at = now()
		WHERE reset_password_token = $1
		  AND reset_password_expires > now()
		RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var userID int64
	err := r.pool.QueryRow(ctx, q, tokenHash, newPasswordHash).Scan(&userID)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return userID, err
}
