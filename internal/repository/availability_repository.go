package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parkwise/service-parking/internal/common/domain"
	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
)

// AvailabilityModel is the GORM model for the carpark_availability table.
type AvailabilityModel struct {
	CarParkNo     string    `gorm:"primaryKey;size:20"`
	TotalLots     int       `gorm:"not null"`
	LotsAvailable int       `gorm:"not null"`
	LotType       string    `gorm:"size:5"`
	Source        string    `gorm:"size:10"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (AvailabilityModel) TableName() string { return "carpark_availability" }

// GormAvailabilityRepository implements AvailabilityRepository using GORM.
type GormAvailabilityRepository struct {
	db *gorm.DB
}

// NewGormAvailabilityRepository creates a new GormAvailabilityRepository.
func NewGormAvailabilityRepository(db *gorm.DB) *GormAvailabilityRepository {
	return &GormAvailabilityRepository{db: db}
}

// Find returns the stored snapshot for a facility.
func (r *GormAvailabilityRepository) Find(ctx context.Context, carParkNo string) (*facilityDomain.Availability, error) {
	var model AvailabilityModel
	if err := r.db.WithContext(ctx).Where("car_park_no = ?", carParkNo).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Availability", carParkNo)
		}
		return nil, fmt.Errorf("failed to find availability: %w", err)
	}
	a := toAvailabilityDomain(&model)
	return &a, nil
}

// Upsert writes one snapshot.
func (r *GormAvailabilityRepository) Upsert(ctx context.Context, snapshot facilityDomain.Availability) error {
	return r.UpsertMany(ctx, []facilityDomain.Availability{snapshot})
}

// UpsertMany writes snapshots in batches, replacing existing rows.
func (r *GormAvailabilityRepository) UpsertMany(ctx context.Context, snapshots []facilityDomain.Availability) error {
	if len(snapshots) == 0 {
		return nil
	}
	models := make([]AvailabilityModel, len(snapshots))
	for i, s := range snapshots {
		models[i] = toAvailabilityModel(s)
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "car_park_no"}},
			UpdateAll: true,
		}).
		CreateInBatches(models, 500).Error; err != nil {
		return fmt.Errorf("failed to upsert availability: %w", err)
	}
	return nil
}

func toAvailabilityModel(a facilityDomain.Availability) AvailabilityModel {
	return AvailabilityModel{
		CarParkNo:     a.CarParkNo,
		TotalLots:     a.TotalLots,
		LotsAvailable: a.LotsAvailable,
		LotType:       a.LotType,
		Source:        string(a.Source),
		UpdatedAt:     a.UpdatedAt,
	}
}

func toAvailabilityDomain(m *AvailabilityModel) facilityDomain.Availability {
	return facilityDomain.Availability{
		CarParkNo:     m.CarParkNo,
		TotalLots:     m.TotalLots,
		LotsAvailable: m.LotsAvailable,
		LotType:       m.LotType,
		Source:        facilityDomain.Source(m.Source),
		UpdatedAt:     m.UpdatedAt,
	}
}
