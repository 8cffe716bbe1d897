package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/common/domain"
	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxRadiusKm        = 50.0
)

// FacilityDTO is the response representation of a facility.
type FacilityDTO struct {
	CarParkNo         string                       `json:"car_park_no"`
	Address           string                       `json:"address"`
	Latitude          float64                      `json:"latitude"`
	Longitude         float64                      `json:"longitude"`
	CarParkType       string                       `json:"car_park_type,omitempty"`
	ParkingSystemType string                       `json:"type_of_parking_system,omitempty"`
	ShortTermParking  string                       `json:"short_term_parking,omitempty"`
	FreeParking       string                       `json:"free_parking,omitempty"`
	NightParking      string                       `json:"night_parking,omitempty"`
	DistanceKm        *float64                     `json:"distance_km,omitempty"`
	Availability      *facilityDomain.Availability `json:"availability,omitempty"`
	UpdatedAt         time.Time                    `json:"updated_at"`
}

// FacilityImport is one catalogue row to load.
type FacilityImport struct {
	CarParkNo string
	Address   string
	Location  facilityDomain.Coordinates
	Details   facilityDomain.Details
}

// FacilityService answers catalogue queries and decorates results with live availability.
type FacilityService struct {
	repo         facilityDomain.FacilityRepository
	availability *AvailabilityService
	logger       *zap.Logger
}

// NewFacilityService creates a new FacilityService.
func NewFacilityService(
	repo facilityDomain.FacilityRepository,
	availability *AvailabilityService,
	logger *zap.Logger,
) *FacilityService {
	return &FacilityService{repo: repo, availability: availability, logger: logger}
}

// Nearby returns facilities within radiusKm of origin, nearest first.
func (s *FacilityService) Nearby(ctx context.Context, origin facilityDomain.Coordinates, radiusKm float64) ([]FacilityDTO, error) {
	if err := origin.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if radiusKm <= 0 {
		radiusKm = facilityDomain.DefaultRadiusKm
	}
	if radiusKm > maxRadiusKm {
		return nil, domain.NewValidationError(fmt.Sprintf("radius must not exceed %.0f km", maxRadiusKm))
	}

	minLat, maxLat, minLon, maxLon := facilityDomain.BoundingBox(origin, radiusKm)
	candidates, err := s.repo.FindInBox(ctx, minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, fmt.Errorf("failed to query facilities: %w", err)
	}

	nearby := facilityDomain.WithinRadius(candidates, origin, radiusKm)
	dtos := make([]FacilityDTO, len(nearby))
	for i, n := range nearby {
		distance := n.DistanceKm
		dtos[i] = s.toDTO(n.Facility)
		dtos[i].DistanceKm = &distance
	}
	return dtos, nil
}

// Get returns one facility with its latest availability.
func (s *FacilityService) Get(ctx context.Context, carParkNo string) (*FacilityDTO, error) {
	f, err := s.repo.FindByCarParkNo(ctx, strings.TrimSpace(carParkNo))
	if err != nil {
		return nil, err
	}

	dto := s.toDTO(f)
	if s.availability != nil {
		snap, ok, err := s.availability.Snapshot(ctx, f.CarParkNo())
		if err != nil {
			s.logger.Warn("failed to load availability", zap.String("car_park_no", f.CarParkNo()), zap.Error(err))
		} else if ok {
			dto.Availability = &snap
		}
	}
	return &dto, nil
}

// Search matches facilities by address or car park number.
func (s *FacilityService) Search(ctx context.Context, query string, limit int) ([]FacilityDTO, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("search query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	facilities, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search facilities: %w", err)
	}

	dtos := make([]FacilityDTO, len(facilities))
	for i, f := range facilities {
		dtos[i] = s.toDTO(f)
	}
	return dtos, nil
}

// Import validates and upserts catalogue rows. Invalid rows are skipped and counted.
func (s *FacilityService) Import(ctx context.Context, rows []FacilityImport) (imported, skipped int, err error) {
	facilities := make([]*facilityDomain.Facility, 0, len(rows))
	for _, row := range rows {
		f, ferr := facilityDomain.NewFacility(row.CarParkNo, row.Address, row.Location, row.Details)
		if ferr != nil {
			skipped++
			s.logger.Debug("skipping facility", zap.String("car_park_no", row.CarParkNo), zap.Error(ferr))
			continue
		}
		facilities = append(facilities, f)
	}

	if err := s.repo.UpsertMany(ctx, facilities); err != nil {
		return 0, skipped, fmt.Errorf("failed to import facilities: %w", err)
	}
	return len(facilities), skipped, nil
}

// Count returns the catalogue size.
func (s *FacilityService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// toDTO attaches only cached availability so list queries stay off the store.
func (s *FacilityService) toDTO(f *facilityDomain.Facility) FacilityDTO {
	d := f.Details()
	loc := f.Location()
	dto := FacilityDTO{
		CarParkNo:         f.CarParkNo(),
		Address:           f.Address(),
		Latitude:          loc.Lat,
		Longitude:         loc.Lon,
		CarParkType:       d.CarParkType,
		ParkingSystemType: d.ParkingSystemType,
		ShortTermParking:  d.ShortTermParking,
		FreeParking:       d.FreeParking,
		NightParking:      d.NightParking,
		UpdatedAt:         f.UpdatedAt(),
	}
	if s.availability != nil {
		if snap, ok := s.availability.Peek(f.CarParkNo()); ok {
			dto.Availability = &snap
		}
	}
	return dto
}
