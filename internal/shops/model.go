package shops

import (
	"github.com/angelmondragon/swiftcart-backend/pkg/geo"
	"github.com/angelmondragon/swiftcart-backend/pkg/types"
)

// Profile is the pricing-relevant view of shops/{shopId}.
type Profile struct {
	ID                string             `json:"-"`
	Name              string             `json:"name"`
	Image             string             `json:"image,omitempty"`
	Location          *types.Coordinates `json:"location,omitempty"`
	CommissionPercent *types.FlexFloat   `json:"commissionPercent,omitempty"`
	QRImage           string             `json:"qrImage,omitempty"`
}

// Point returns the shop location when it is present and well formed.
func (p *Profile) Point() *geo.Point {
	if p == nil {
		return nil
	}
	return p.Location.Point()
}

// Commission returns the configured commission percent, nil when unset or malformed.
func (p *Profile) Commission() *float64 {
	if p == nil {
		return nil
	}
	return p.CommissionPercent.Ptr()
}
