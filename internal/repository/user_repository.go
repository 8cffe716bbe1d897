package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/parkwise/service-parking/internal/common/auth"
	"github.com/parkwise/service-parking/internal/common/domain"
	userDomain "github.com/parkwise/service-parking/internal/domain/user"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	Email              string     `gorm:"primaryKey;size:255"`
	PasswordHash       string     `gorm:"size:100;not null"`
	FullName           string     `gorm:"size:100"`
	PhoneNumber        string     `gorm:"size:30"`
	Country            string     `gorm:"size:5"`
	VehicleNo          string     `gorm:"size:20"`
	IUNo               string     `gorm:"column:iu_no;size:20"`
	Role               string     `gorm:"size:20;not null;default:'driver'"`
	MustChangePassword bool       `gorm:"not null;default:false"`
	PasswordResetAt    *time.Time `gorm:""`
	Version            int64      `gorm:"not null;default:1"`
	CreatedAt          time.Time  `gorm:"not null"`
	UpdatedAt          time.Time  `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*userDomain.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("User", email)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return toUserDomain(&model), nil
}

func (r *GormUserRepository) Save(ctx context.Context, u *userDomain.User) error {
	if err := r.db.WithContext(ctx).Create(toUserModel(u)).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("The email address is already in use by another account.")
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *GormUserRepository) Update(ctx context.Context, u *userDomain.User) error {
	model := toUserModel(u)
	previousVersion := u.Version() - 1

	result := r.db.WithContext(ctx).
		Model(&UserModel{}).
		Where("email = ? AND version = ?", model.Email, previousVersion).
		Updates(map[string]interface{}{
			"password_hash":        model.PasswordHash,
			"full_name":            model.FullName,
			"phone_number":         model.PhoneNumber,
			"country":              model.Country,
			"vehicle_no":           model.VehicleNo,
			"iu_no":                model.IUNo,
			"role":                 model.Role,
			"must_change_password": model.MustChangePassword,
			"password_reset_at":    model.PasswordResetAt,
			"version":              model.Version,
			"updated_at":           model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("user was modified by another request")
	}
	return nil
}

// --- Conversions ---

func toUserModel(u *userDomain.User) *UserModel {
	d := u.Details()
	return &UserModel{
		Email:              u.Email(),
		PasswordHash:       u.PasswordHash(),
		FullName:           d.FullName,
		PhoneNumber:        d.PhoneNumber,
		Country:            d.Country,
		VehicleNo:          d.VehicleNo,
		IUNo:               d.IUNo,
		Role:               string(u.Role()),
		MustChangePassword: u.MustChangePassword(),
		PasswordResetAt:    u.PasswordResetAt(),
		Version:            u.Version(),
		CreatedAt:          u.CreatedAt(),
		UpdatedAt:          u.UpdatedAt(),
	}
}

func toUserDomain(m *UserModel) *userDomain.User {
	return userDomain.Reconstruct(
		m.Email, m.PasswordHash,
		userDomain.Details{
			FullName:    m.FullName,
			PhoneNumber: m.PhoneNumber,
			Country:     m.Country,
			VehicleNo:   m.VehicleNo,
			IUNo:        m.IUNo,
		},
		auth.Role(m.Role),
		m.MustChangePassword,
		m.PasswordResetAt,
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	)
}
