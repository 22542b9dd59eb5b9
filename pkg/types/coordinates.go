package types

import "github.com/angelmondragon/swiftcart-backend/pkg/geo"

// Coordinates is a lat/lng pair as stored on shop records.
type Coordinates struct {
	Lat *FlexFloat `json:"lat,omitempty"`
	Lng *FlexFloat `json:"lng,omitempty"`
}

// Point returns nil when either coordinate is missing or malformed.
func (c *Coordinates) Point() *geo.Point {
	if c == nil || c.Lat == nil || c.Lng == nil {
		return nil
	}
	p := geo.Point{Lat: c.Lat.Float64(), Lng: c.Lng.Float64()}
	if !p.Valid() {
		return nil
	}
	return &p
}

// CoordinatesFrom builds Coordinates from a resolved point.
func CoordinatesFrom(p *geo.Point) *Coordinates {
	if p == nil {
		return nil
	}
	return &Coordinates{Lat: NewFlexFloat(p.Lat), Lng: NewFlexFloat(p.Lng)}
}
