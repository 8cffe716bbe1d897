package facility

import "context"

// FacilityRepository defines persistence for the facility catalogue.
type FacilityRepository interface {
	FindByCarParkNo(ctx context.Context, carParkNo string) (*Facility, error)
	// FindInBox returns facilities whose coordinates fall inside the box.
	FindInBox(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]*Facility, error)
	// Search matches address or car park number case-insensitively.
	Search(ctx context.Context, query string, limit int) ([]*Facility, error)
	UpsertMany(ctx context.Context, facilities []*Facility) error
	Count(ctx context.Context) (int64, error)
}

// AvailabilityRepository persists the latest snapshot per facility.
type AvailabilityRepository interface {
	Find(ctx context.Context, carParkNo string) (*Availability, error)
	Upsert(ctx context.Context, snapshot Availability) error
	UpsertMany(ctx context.Context, snapshots []Availability) error
}
