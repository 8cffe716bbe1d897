package facility

import (
	"fmt"
	"strings"
	"time"
)

// Facility is a parking facility (car park) from the public catalogue.
type Facility struct {
	carParkNo         string
	address           string
	carParkType       string
	parkingSystemType string
	shortTermParking  string
	freeParking       string
	nightParking      string
	location          Coordinates
	updatedAt         time.Time
}

// Details carries the descriptive catalogue fields.
type Details struct {
	CarParkType       string
	ParkingSystemType string
	ShortTermParking  string
	FreeParking       string
	NightParking      string
}

// NewFacility validates and creates a Facility.
func NewFacility(carParkNo, address string, location Coordinates, details Details) (*Facility, error) {
	carParkNo = strings.TrimSpace(carParkNo)
	if carParkNo == "" {
		return nil, fmt.Errorf("car park number is required")
	}
	if err := location.Validate(); err != nil {
		return nil, err
	}
	return &Facility{
		carParkNo:         carParkNo,
		address:           strings.TrimSpace(address),
		carParkType:       details.CarParkType,
		parkingSystemType: details.ParkingSystemType,
		shortTermParking:  details.ShortTermParking,
		freeParking:       details.FreeParking,
		nightParking:      details.NightParking,
		location:          location,
		updatedAt:         time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a Facility from persistence.
func Reconstruct(carParkNo, address string, location Coordinates, details Details, updatedAt time.Time) *Facility {
	return &Facility{
		carParkNo:         carParkNo,
		address:           address,
		carParkType:       details.CarParkType,
		parkingSystemType: details.ParkingSystemType,
		shortTermParking:  details.ShortTermParking,
		freeParking:       details.FreeParking,
		nightParking:      details.NightParking,
		location:          location,
		updatedAt:         updatedAt,
	}
}

// Getters.
func (f *Facility) CarParkNo() string     { return f.carParkNo }
func (f *Facility) Address() string       { return f.address }
func (f *Facility) Location() Coordinates { return f.location }
func (f *Facility) UpdatedAt() time.Time  { return f.updatedAt }

// Details returns the descriptive catalogue fields.
func (f *Facility) Details() Details {
	return Details{
		CarParkType:       f.carParkType,
		ParkingSystemType: f.parkingSystemType,
		ShortTermParking:  f.shortTermParking,
		FreeParking:       f.freeParking,
		NightParking:      f.nightParking,
	}
}
