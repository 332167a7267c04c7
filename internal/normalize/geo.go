package normalize

import "github.com/jonesrussell/eventcrawl/internal/domain"

// GeoPoint is a resolved coordinate pair.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// GeoResolver resolves an entity's venue to coordinates. Implementations can
// wrap external geocoding services.
type GeoResolver interface {
	Resolve(entity domain.Entity) (*GeoPoint, bool)
}

// NoopGeoResolver never resolves anything. It keeps the pipeline shape in
// place until a real geocoding backend is wired in.
type NoopGeoResolver struct{}

// Resolve always reports no coordinates.
func (NoopGeoResolver) Resolve(domain.Entity) (*GeoPoint, bool) {
	return nil, false
}
