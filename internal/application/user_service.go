package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/common/auth"
	"github.com/parkwise/service-parking/internal/common/domain"
	"github.com/parkwise/service-parking/internal/common/kafka"
	userDomain "github.com/parkwise/service-parking/internal/domain/user"
	"github.com/parkwise/service-parking/internal/session"
)

// User-facing messages.
const (
	MsgDetailsUpdated       = "User/Vehicle details updated"
	MsgVehicleUpdated       = "Vehicle updated"
	MsgPasswordUpdated      = "Password updated successfully."
	MsgPasswordResetSent    = "Password reset email sent. Check your inbox."
	MsgEmailRequired        = "Email is required"
	MsgVehicleEmailRequired = "Email is required to update vehicle info."
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrPasswordChangeNotAuthorized is returned when a direct password change lacks a matching login.
	ErrPasswordChangeNotAuthorized = errors.New("Unable to update password. Please log in and try again.")
	// ErrResetMailFailed is returned when the reset request could not be handed to the mailer.
	ErrResetMailFailed = errors.New("Failed to send password reset email")
	// ErrPasswordResetFailed wraps unexpected store faults during a reset.
	ErrPasswordResetFailed = errors.New("An unexpected error occurred during password reset")
)

// RegisterRequest is the body of /register.
type RegisterRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	FullName          string `json:"fullName"`
	PhoneNumber       string `json:"phoneNumber"`
	Country           string `json:"country"`
	VehicleNo         string `json:"vehicleNo"`
	IUNo              string `json:"iuNo"`
	AlreadyRegistered bool   `json:"alreadyRegistered"`
}

// UpdateVehicleRequest is the body of /updateVehicle.
type UpdateVehicleRequest struct {
	Email     string `json:"email"`
	Country   string `json:"country"`
	VehicleNo string `json:"vehicleNo"`
	IUNo      string `json:"iuNo"`
}

// ResetPasswordRequest is the body of /resetPassword.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// UpdateProfileRequest is a partial profile update.
type UpdateProfileRequest struct {
	FullName    *string `json:"fullName"`
	PhoneNumber *string `json:"phoneNumber"`
	Country     *string `json:"country"`
	VehicleNo   *string `json:"vehicleNo"`
	IUNo        *string `json:"iuNo"`
}

// ProfileDTO is the stored user profile document.
type ProfileDTO struct {
	Email              string     `json:"email"`
	FullName           string     `json:"fullName"`
	PhoneNumber        string     `json:"phoneNumber"`
	Country            string     `json:"country"`
	VehicleNo          string     `json:"vehicleNo"`
	IUNo               string     `json:"iuNo"`
	Role               string     `json:"role"`
	MustChangePassword bool       `json:"mustChangePassword"`
	PasswordResetAt    *time.Time `json:"passwordResetAt,omitempty"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// LoginResult is the profile document plus the issued token.
type LoginResult struct {
	ProfileDTO
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserService handles accounts, vehicles and logins.
type UserService struct {
	repo        userDomain.UserRepository
	jwtManager  *auth.JWTManager
	sessions    *session.Store
	publisher   kafka.Publisher
	adminEmails map[string]bool
	clock       func() time.Time
	logger      *zap.Logger
}

// NewUserService creates a new UserService. Emails in adminEmails are promoted to admin on login.
func NewUserService(
	repo userDomain.UserRepository,
	jwtManager *auth.JWTManager,
	sessions *session.Store,
	publisher kafka.Publisher,
	adminEmails []string,
	logger *zap.Logger,
) *UserService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = userDomain.NormalizeEmail(e); e != "" {
			admins[e] = true
		}
	}
	return &UserService{
		repo:        repo,
		jwtManager:  jwtManager,
		sessions:    sessions,
		publisher:   publisher,
		adminEmails: admins,
		clock:       time.Now,
		logger:      logger,
	}
}

// Register creates an account, or merges details into an existing one when
// AlreadyRegistered is set.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*ProfileDTO, error) {
	email := userDomain.NormalizeEmail(req.Email)
	if email == "" {
		return nil, domain.NewValidationError(MsgEmailRequired)
	}
	details := userDomain.Details{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Country:     req.Country,
		VehicleNo:   req.VehicleNo,
		IUNo:        req.IUNo,
	}
	now := s.clock()

	if req.AlreadyRegistered {
		u, err := s.repo.FindByEmail(ctx, email)
		if err != nil {
			if domain.IsNotFound(err) {
				return nil, domain.NewValidationError("no account is registered for this email")
			}
			return nil, err
		}
		u.MergeDetails(details, now)
		if err := s.repo.Update(ctx, u); err != nil {
			return nil, err
		}
		s.refreshSessions(u)
		dto := toProfileDTO(u)
		return &dto, nil
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, domain.NewValidationError(err.Error())
		}
		return nil, err
	}

	u, err := userDomain.NewUser(email, hash, details, now)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if err := s.repo.Save(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("email", u.Email()))
	dto := toProfileDTO(u)
	return &dto, nil
}

// Login verifies credentials, issues a token and opens a session keyed by its jti.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = userDomain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.NewValidationError("email and password are required")
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewUnauthorizedError(ErrInvalidCredentials.Error())
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash(), password) {
		return nil, domain.NewUnauthorizedError(ErrInvalidCredentials.Error())
	}

	if s.adminEmails[u.Email()] && u.Role() != auth.RoleAdmin {
		u.PromoteToAdmin(s.clock())
		if err := s.repo.Update(ctx, u); err != nil {
			return nil, err
		}
	}

	token, claims, err := s.jwtManager.GenerateToken(u.Email(), u.Role())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	if s.sessions != nil {
		s.sessions.Create(claims.SessionID(), toSessionProfile(u), claims.ExpiresAt.Time)
	}

	s.logger.Info("user logged in", zap.String("email", u.Email()))
	return &LoginResult{
		ProfileDTO: toProfileDTO(u),
		Token:      token,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

// Logout ends the session with the given ID.
func (s *UserService) Logout(sessionID string) bool {
	if s.sessions == nil {
		return false
	}
	return s.sessions.Destroy(sessionID)
}

// UpdateVehicle overwrites the vehicle fields of a user.
func (s *UserService) UpdateVehicle(ctx context.Context, req UpdateVehicleRequest) (*userDomain.Vehicle, error) {
	email := userDomain.NormalizeEmail(req.Email)
	if email == "" {
		return nil, domain.NewValidationError(MsgVehicleEmailRequired)
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	u.UpdateVehicle(req.Country, req.VehicleNo, req.IUNo, s.clock())
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.refreshSessions(u)

	v := u.Vehicle()
	return &v, nil
}

// GetProfile returns the profile of email.
func (s *UserService) GetProfile(ctx context.Context, email string) (*ProfileDTO, error) {
	u, err := s.repo.FindByEmail(ctx, userDomain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	dto := toProfileDTO(u)
	return &dto, nil
}

// UpdateProfile applies a partial update to the profile of email.
func (s *UserService) UpdateProfile(ctx context.Context, email string, req UpdateProfileRequest) (*ProfileDTO, error) {
	u, err := s.repo.FindByEmail(ctx, userDomain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	u.ApplyPatch(userDomain.ProfilePatch{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Country:     req.Country,
		VehicleNo:   req.VehicleNo,
		IUNo:        req.IUNo,
	}, s.clock())
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.refreshSessions(u)

	dto := toProfileDTO(u)
	return &dto, nil
}

// GetVehicle returns the vehicle registered to email.
func (s *UserService) GetVehicle(ctx context.Context, email string) (*userDomain.Vehicle, error) {
	u, err := s.repo.FindByEmail(ctx, userDomain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	v := u.Vehicle()
	return &v, nil
}

// ResetPassword either changes the password directly (caller must be logged in
// as the same user) or hands a reset request to the mailer. It returns the
// message to show the user.
func (s *UserService) ResetPassword(ctx context.Context, req ResetPasswordRequest, caller *auth.Claims) (string, error) {
	email := userDomain.NormalizeEmail(req.Email)
	if email == "" {
		return "", domain.NewValidationError(MsgEmailRequired)
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return "", &domain.DomainError{Kind: domain.KindNotFound, Message: "User not found", Err: err}
		}
		return "", domain.NewOperationError(ErrPasswordResetFailed, err)
	}

	now := s.clock()
	message := MsgPasswordResetSent

	if req.NewPassword != "" {
		if caller == nil || !strings.EqualFold(caller.Email, email) {
			return "", domain.NewValidationErrorFrom(ErrPasswordChangeNotAuthorized)
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			if errors.Is(err, auth.ErrWeakPassword) {
				return "", domain.NewValidationError(err.Error())
			}
			return "", domain.NewOperationError(ErrPasswordResetFailed, err)
		}
		u.ChangePassword(hash, now)
		message = MsgPasswordUpdated
	} else {
		evt := PasswordResetRequestedEvent{Email: email, RequestedAt: now.UTC()}
		if err := publishEventStrict(ctx, s.publisher, TopicUserEvents, PasswordResetRequested, email, evt); err != nil {
			s.logger.Warn("could not request password reset email", zap.String("email", email), zap.Error(err))
			return "", &domain.DomainError{
				Kind:    domain.KindOperationFailed,
				Message: ErrResetMailFailed.Error(),
				Err:     fmt.Errorf("%w: %w", ErrResetMailFailed, err),
			}
		}
		u.RequestPasswordReset(now)
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return "", domain.NewOperationError(ErrPasswordResetFailed, err)
	}

	s.logger.Info("password reset handled", zap.String("email", email), zap.Bool("direct", req.NewPassword != ""))
	return message, nil
}

func (s *UserService) refreshSessions(u *userDomain.User) {
	if s.sessions == nil {
		return
	}
	p := toSessionProfile(u)
	for _, sess := range s.sessions.ForEmail(u.Email()) {
		sess.SetProfile(p)
	}
}

func toSessionProfile(u *userDomain.User) session.Profile {
	v := u.Vehicle()
	return session.Profile{
		Email:         u.Email(),
		FullName:      u.FullName(),
		VehicleNumber: v.VehicleNumber,
		IUNo:          v.IUNo,
		Country:       v.Country,
	}
}

func toProfileDTO(u *userDomain.User) ProfileDTO {
	return ProfileDTO{
		Email:              u.Email(),
		FullName:           u.FullName(),
		PhoneNumber:        u.PhoneNumber(),
		Country:            u.Country(),
		VehicleNo:          u.VehicleNo(),
		IUNo:               u.IUNo(),
		Role:               string(u.Role()),
		MustChangePassword: u.MustChangePassword(),
		PasswordResetAt:    u.PasswordResetAt(),
		UpdatedAt:          u.UpdatedAt(),
	}
}
