package types

import "github.com/angelmondragon/swiftcart-backend/pkg/geo"

// Address is a saved delivery address as stored under users/{uid}/addresses.
type Address struct {
	Name             string     `json:"name,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	FormattedAddress string     `json:"formattedAddress,omitempty"`
	Area             string     `json:"area,omitempty"`
	City             string     `json:"city,omitempty"`
	State            string     `json:"state,omitempty"`
	Pincode          string     `json:"pincode,omitempty"`
	Lat              *FlexFloat `json:"lat,omitempty"`
	Lng              *FlexFloat `json:"lng,omitempty"`
}

// Point returns the address coordinates, or nil when they are missing or malformed.
func (a *Address) Point() *geo.Point {
	if a == nil {
		return nil
	}
	return (&Coordinates{Lat: a.Lat, Lng: a.Lng}).Point()
}

// Clone returns a deep copy so callers can freeze an address into an order.
func (a *Address) Clone() *Address {
	if a == nil {
		return nil
	}
	out := *a
	if a.Lat != nil {
		lat := *a.Lat
		out.Lat = &lat
	}
	if a.Lng != nil {
		lng := *a.Lng
		out.Lng = &lng
	}
	return &out
}
