package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parkwise/service-parking/internal/common/domain"
	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
)

// FacilityModel is the GORM model for the facilities table.
type FacilityModel struct {
	CarParkNo         string    `gorm:"primaryKey;size:20"`
	Address           string    `gorm:"size:255;not null"`
	CarParkType       string    `gorm:"size:100"`
	ParkingSystemType string    `gorm:"size:100"`
	ShortTermParking  string    `gorm:"size:100"`
	FreeParking       string    `gorm:"size:100"`
	NightParking      string    `gorm:"size:10"`
	Latitude          float64   `gorm:"not null;index:idx_facilities_lat_lon"`
	Longitude         float64   `gorm:"not null;index:idx_facilities_lat_lon"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (FacilityModel) TableName() string { return "facilities" }

// GormFacilityRepository implements FacilityRepository using GORM.
type GormFacilityRepository struct {
	db *gorm.DB
}

// NewGormFacilityRepository creates a new GormFacilityRepository.
func NewGormFacilityRepository(db *gorm.DB) *GormFacilityRepository {
	return &GormFacilityRepository{db: db}
}

// FindByCarParkNo retrieves a facility by its identifier.
func (r *GormFacilityRepository) FindByCarParkNo(ctx context.Context, carParkNo string) (*facilityDomain.Facility, error) {
	var model FacilityModel
	if err := r.db.WithContext(ctx).Where("car_park_no = ?", carParkNo).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Facility", carParkNo)
		}
		return nil, fmt.Errorf("failed to find facility: %w", err)
	}
	return toFacilityDomain(&model), nil
}

// FindInBox returns the facilities inside a lat/lon box.
func (r *GormFacilityRepository) FindInBox(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]*facilityDomain.Facility, error) {
	var models []FacilityModel
	if err := r.db.WithContext(ctx).
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLon, maxLon).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find facilities in box: %w", err)
	}
	return toFacilityDomains(models), nil
}

// Search matches the query against address and car park number.
func (r *GormFacilityRepository) Search(ctx context.Context, query string, limit int) ([]*facilityDomain.Facility, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var models []FacilityModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(address) LIKE ? OR LOWER(car_park_no) LIKE ?", pattern, pattern).
		Order("car_park_no").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to search facilities: %w", err)
	}
	return toFacilityDomains(models), nil
}

// UpsertMany inserts or replaces facilities in batches.
func (r *GormFacilityRepository) UpsertMany(ctx context.Context, facilities []*facilityDomain.Facility) error {
	if len(facilities) == 0 {
		return nil
	}
	models := make([]FacilityModel, len(facilities))
	for i, f := range facilities {
		models[i] = toFacilityModel(f)
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "car_park_no"}},
			UpdateAll: true,
		}).
		CreateInBatches(models, 500).Error; err != nil {
		return fmt.Errorf("failed to upsert facilities: %w", err)
	}
	return nil
}

// Count returns the number of catalogued facilities.
func (r *GormFacilityRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&FacilityModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count facilities: %w", err)
	}
	return n, nil
}

// --- Conversions ---

func toFacilityModel(f *facilityDomain.Facility) FacilityModel {
	d := f.Details()
	return FacilityModel{
		CarParkNo:         f.CarParkNo(),
		Address:           f.Address(),
		CarParkType:       d.CarParkType,
		ParkingSystemType: d.ParkingSystemType,
		ShortTermParking:  d.ShortTermParking,
		FreeParking:       d.FreeParking,
		NightParking:      d.NightParking,
		Latitude:          f.Location().Lat,
		Longitude:         f.Location().Lon,
		UpdatedAt:         f.UpdatedAt(),
	}
}

func toFacilityDomain(m *FacilityModel) *facilityDomain.Facility {
	return facilityDomain.Reconstruct(
		m.CarParkNo,
		m.Address,
		facilityDomain.Coordinates{Lat: m.Latitude, Lon: m.Longitude},
		facilityDomain.Details{
			CarParkType:       m.CarParkType,
			ParkingSystemType: m.ParkingSystemType,
			ShortTermParking:  m.ShortTermParking,
			FreeParking:       m.FreeParking,
			NightParking:      m.NightParking,
		},
		m.UpdatedAt,
	)
}

func toFacilityDomains(models []FacilityModel) []*facilityDomain.Facility {
	out := make([]*facilityDomain.Facility, len(models))
	for i := range models {
		out[i] = toFacilityDomain(&models[i])
	}
	return out
}
