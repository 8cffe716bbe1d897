package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/parkwise/service-parking/internal/common/domain"
	bookingDomain "github.com/parkwise/service-parking/internal/domain/booking"
)

// BookingModel is the GORM model for the bookings table.
// Hours and date are stored as the strings clients send.
type BookingModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TicketNumber string     `gorm:"uniqueIndex;not null;size:20"`
	CarParkNo    string     `gorm:"not null;size:20;index"`
	Address      string     `gorm:"size:255"`
	Date         string     `gorm:"not null;size:10;default:'Today'"`
	HoursFrom    string     `gorm:"not null;size:2"`
	HoursTo      string     `gorm:"not null;size:2"`
	UserEmail    string     `gorm:"not null;size:255;index"`
	Status       string     `gorm:"not null;size:20;index"`
	Version      int64      `gorm:"not null;default:1"`
	BookedAt     time.Time  `gorm:"not null;index"`
	CheckedInAt  *time.Time `gorm:""`
	CancelledAt  *time.Time `gorm:""`
	UpdatedAt    time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByUserEmail retrieves every booking owned by email, newest first.
func (r *GormBookingRepository) FindByUserEmail(ctx context.Context, email string) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("user_email = ?", email).
		Order("booked_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find user bookings: %w", err)
	}
	return toDomainBookings(models)
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	if err := r.db.WithContext(ctx).Create(toBookingModel(bk)).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("booking already exists")
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// UpdateStatus writes the status columns of an existing booking with optimistic
// locking: the stored row must still be at the version the transition started from.
func (r *GormBookingRepository) UpdateStatus(ctx context.Context, bk *bookingDomain.Booking) error {
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", bk.ID(), expectedVersion).
		Updates(map[string]interface{}{
			"status":        string(bk.Status()),
			"checked_in_at": bk.CheckedInAt(),
			"cancelled_at":  bk.CancelledAt(),
			"updated_at":    bk.UpdatedAt(),
			"version":       bk.Version(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update booking status: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where("id = ?", bk.ID()).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	if count == 0 {
		return domain.NewNotFoundError("Booking", bk.ID().String())
	}
	return domain.NewConflictErrorFrom(bookingDomain.ErrBookingChanged)
}

// Delete removes a booking.
func (r *GormBookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&BookingModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Booking", id.String())
	}
	return nil
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("booked_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:           bk.ID(),
		TicketNumber: bk.TicketNumber(),
		CarParkNo:    bk.CarParkNo(),
		Address:      bk.Address(),
		Date:         bk.Date().String(),
		HoursFrom:    bk.HoursFrom().String(),
		HoursTo:      bk.HoursTo().String(),
		UserEmail:    bk.UserEmail(),
		Status:       string(bk.Status()),
		Version:      bk.Version(),
		BookedAt:     bk.BookedAt(),
		CheckedInAt:  bk.CheckedInAt(),
		CancelledAt:  bk.CancelledAt(),
		UpdatedAt:    bk.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}
	date, err := bookingDomain.ParseReservationDate(m.Date)
	if err != nil {
		return nil, err
	}
	from, err := bookingDomain.ParseHourOfDay(m.HoursFrom)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", m.ID, err)
	}
	to, err := bookingDomain.ParseHourOfDay(m.HoursTo)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", m.ID, err)
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.TicketNumber,
		m.CarParkNo,
		m.Address,
		date,
		from,
		to,
		m.UserEmail,
		status,
		m.BookedAt,
		m.CheckedInAt,
		m.CancelledAt,
		m.UpdatedAt,
		m.Version,
	), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}
