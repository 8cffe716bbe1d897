package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/parkwise/service-parking/internal/common/auth"
)

// DefaultCountry is the vehicle registration country assumed when none is stored.
const DefaultCountry = "SG"

// User is the aggregate root for a driver account: credentials, profile and vehicle.
// Users are keyed by email.
type User struct {
	email              string
	passwordHash       string
	fullName           string
	phoneNumber        string
	country            string
	vehicleNo          string
	iuNo               string
	role               auth.Role
	mustChangePassword bool
	passwordResetAt    *time.Time
	version            int64
	createdAt          time.Time
	updatedAt          time.Time
}

// Details are the registration fields merged into the profile.
type Details struct {
	FullName    string
	PhoneNumber string
	Country     string
	VehicleNo   string
	IUNo        string
}

// Vehicle is the vehicle registered to a user.
type Vehicle struct {
	Email         string `json:"email"`
	VehicleNumber string `json:"vehicleNumber"`
	IUNo          string `json:"iuNo"`
	Country       string `json:"country"`
}

// ProfilePatch carries a partial profile update; nil fields are left unchanged.
type ProfilePatch struct {
	FullName    *string
	PhoneNumber *string
	Country     *string
	VehicleNo   *string
	IUNo        *string
}

// NewUser creates a driver account with a pre-hashed password.
func NewUser(email, passwordHash string, details Details, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a valid email is required")
	}
	if passwordHash == "" {
		return nil, fmt.Errorf("password is required")
	}

	now = now.UTC()
	u := &User{
		email:        email,
		passwordHash: passwordHash,
		role:         auth.RoleDriver,
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}
	u.apply(details)
	return u, nil
}

// Reconstruct rebuilds a User from persistence data (no validation).
func Reconstruct(
	email, passwordHash string,
	details Details,
	role auth.Role,
	mustChangePassword bool,
	passwordResetAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *User {
	u := &User{
		email:              email,
		passwordHash:       passwordHash,
		role:               role,
		mustChangePassword: mustChangePassword,
		passwordResetAt:    passwordResetAt,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
	u.apply(details)
	return u
}

// NormalizeEmail trims and lowercases an email for use as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// --- Getters ---

func (u *User) Email() string               { return u.email }
func (u *User) PasswordHash() string        { return u.passwordHash }
func (u *User) FullName() string            { return u.fullName }
func (u *User) PhoneNumber() string         { return u.phoneNumber }
func (u *User) Country() string             { return u.country }
func (u *User) VehicleNo() string           { return u.vehicleNo }
func (u *User) IUNo() string                { return u.iuNo }
func (u *User) Role() auth.Role             { return u.role }
func (u *User) MustChangePassword() bool    { return u.mustChangePassword }
func (u *User) PasswordResetAt() *time.Time { return u.passwordResetAt }
func (u *User) Version() int64              { return u.version }
func (u *User) CreatedAt() time.Time        { return u.createdAt }
func (u *User) UpdatedAt() time.Time        { return u.updatedAt }

// Details returns the profile fields.
func (u *User) Details() Details {
	return Details{
		FullName:    u.fullName,
		PhoneNumber: u.phoneNumber,
		Country:     u.country,
		VehicleNo:   u.vehicleNo,
		IUNo:        u.iuNo,
	}
}

// Vehicle returns the registered vehicle, defaulting the country.
func (u *User) Vehicle() Vehicle {
	country := u.country
	if country == "" {
		country = DefaultCountry
	}
	return Vehicle{
		Email:         u.email,
		VehicleNumber: u.vehicleNo,
		IUNo:          u.iuNo,
		Country:       country,
	}
}

// --- Behavior ---

// MergeDetails overwrites every registration field, empty values included.
func (u *User) MergeDetails(details Details, at time.Time) {
	u.apply(details)
	u.touch(at)
}

// UpdateVehicle overwrites the vehicle fields.
func (u *User) UpdateVehicle(country, vehicleNo, iuNo string, at time.Time) {
	u.country = strings.TrimSpace(country)
	u.vehicleNo = strings.ToUpper(strings.TrimSpace(vehicleNo))
	u.iuNo = strings.TrimSpace(iuNo)
	u.touch(at)
}

// ApplyPatch applies only the fields present in patch.
func (u *User) ApplyPatch(patch ProfilePatch, at time.Time) {
	if patch.FullName != nil {
		u.fullName = strings.TrimSpace(*patch.FullName)
	}
	if patch.PhoneNumber != nil {
		u.phoneNumber = strings.TrimSpace(*patch.PhoneNumber)
	}
	if patch.Country != nil {
		u.country = strings.TrimSpace(*patch.Country)
	}
	if patch.VehicleNo != nil {
		u.vehicleNo = strings.ToUpper(strings.TrimSpace(*patch.VehicleNo))
	}
	if patch.IUNo != nil {
		u.iuNo = strings.TrimSpace(*patch.IUNo)
	}
	u.touch(at)
}

// ChangePassword replaces the password hash and clears the must-change flag.
func (u *User) ChangePassword(passwordHash string, at time.Time) {
	at = at.UTC()
	u.passwordHash = passwordHash
	u.mustChangePassword = false
	u.passwordResetAt = &at
	u.touch(at)
}

// RequestPasswordReset records that a reset mail was requested.
func (u *User) RequestPasswordReset(at time.Time) {
	at = at.UTC()
	u.mustChangePassword = true
	u.passwordResetAt = &at
	u.touch(at)
}

// PromoteToAdmin grants the admin role.
func (u *User) PromoteToAdmin(at time.Time) {
	u.role = auth.RoleAdmin
	u.touch(at)
}

func (u *User) apply(d Details) {
	u.fullName = strings.TrimSpace(d.FullName)
	u.phoneNumber = strings.TrimSpace(d.PhoneNumber)
	u.country = strings.TrimSpace(d.Country)
	u.vehicleNo = strings.ToUpper(strings.TrimSpace(d.VehicleNo))
	u.iuNo = strings.TrimSpace(d.IUNo)
}

func (u *User) touch(at time.Time) {
	u.version++
	u.updatedAt = at.UTC()
}
