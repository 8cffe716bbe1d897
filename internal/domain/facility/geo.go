package facility

import (
	"fmt"
	"math"
	"sort"
)

// DefaultRadiusKm is the search radius used when the caller gives none.
const DefaultRadiusKm = 5.0

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate rejects out-of-range coordinates.
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("coordinates out of range: %f,%f", c.Lat, c.Lon)
	}
	return nil
}

// Nearby is a facility annotated with its distance from the search origin.
type Nearby struct {
	Facility   *Facility
	DistanceKm float64
}

// WithinRadius returns the facilities no further than radiusKm from origin, nearest first.
func WithinRadius(facilities []*Facility, origin Coordinates, radiusKm float64) []Nearby {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	result := make([]Nearby, 0)
	for _, f := range facilities {
		d := HaversineKm(origin, f.Location())
		if d <= radiusKm {
			result = append(result, Nearby{Facility: f, DistanceKm: d})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DistanceKm < result[j].DistanceKm
	})
	return result
}

// HaversineKm calculates the great-circle distance between two coordinates in kilometers.
func HaversineKm(a, b Coordinates) float64 {
	const earthRadiusKm = 6371.0

	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lon - a.Lon)

	lat1Rad := degreesToRadians(a.Lat)
	lat2Rad := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// BoundingBox returns a lat/lon box enclosing the circle of radiusKm around origin,
// used to narrow the candidate set before the exact distance check.
func BoundingBox(origin Coordinates, radiusKm float64) (minLat, maxLat, minLon, maxLon float64) {
	const kmPerDegree = 111.32
	dLat := radiusKm / kmPerDegree
	cos := math.Cos(degreesToRadians(origin.Lat))
	dLon := 180.0
	if cos > 1e-6 {
		dLon = radiusKm / (kmPerDegree * cos)
	}
	return origin.Lat - dLat, origin.Lat + dLat, origin.Lon - dLon, origin.Lon + dLon
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
