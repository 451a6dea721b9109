package domain

import (
	"time"

	"github.com/maplecart/storefront/internal/utils"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func IsValidRole(r string) bool {
	return Role(r) == RoleUser || Role(r) == RoleAdmin
}

type Address struct {
	Name         string `json:"name" validate:"required"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode" validate:"required"`
	Country      string `json:"country" validate:"required"`
	Phone        string `json:"phone,omitempty"`
	IsDefault    bool   `json:"isDefault"`
}

type User struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Mobile         string `json:"mobile,omitempty"`
	PasswordHash   string `json:"-"`
	Role           Role   `json:"role"`
	EmailVerified  bool   `json:"emailVerified"`
	MobileVerified bool   `json:"mobileVerified"`

	// One-time secrets: only the hash is persisted, cleared on use.
	EmailVerificationToken   *string    `json:"-"`
	EmailVerificationExpires *time.Time `json:"-"`
	MobileOTPHash            *string    `json:"-"`
	MobileOTPExpires         *time.Time `json:"-"`
	ResetPasswordToken       *string    `json:"-"`
	ResetPasswordExpires     *time.Time `json:"-"`

	ShippingAddresses []Address `json:"shippingAddresses"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type Profile struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Mobile            string    `json:"mobile,omitempty"`
	Role              Role      `json:"role"`
	EmailVerified     bool      `json:"emailVerified"`
	MobileVerified    bool      `json:"mobileVerified"`
	ShippingAddresses []Address `json:"shippingAddresses"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Mobile:            u.Mobile,
		Role:              u.Role,
		EmailVerified:     u.EmailVerified,
		MobileVerified:    u.MobileVerified,
		ShippingAddresses: u.ShippingAddresses,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Mobile   string `json:"mobile" validate:"omitempty,e164"`
}

func (r *RegisterRequest) Normalize() {
	r.Name = utils.NormalizeString(r.Name)
	r.Email = utils.NormalizeEmail(r.Email)
	r.Mobile = utils.NormalizePhone(r.Mobile)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

type VerifyMobileOTPRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ForgotPasswordRequest) Normalize() {
	r.Email = utils.NormalizeEmail(r.Email)
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}
