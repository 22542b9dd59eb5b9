package pricing

import "github.com/angelmondragon/swiftcart-backend/pkg/config"

// Policy holds the fee constants applied by Calculator.
type Policy struct {
	BaseDeliveryFee            int64
	PlatformFee                int64
	PremiumThreshold           int64
	PremiumRate                float64
	DefaultCommissionPercent   float64
	DefaultDeliveryChargePerKm float64
	// DistanceMultiplier inflates the raw haversine distance before the per-km
	// rate is applied. 1.0 charges on straight-line distance.
	DistanceMultiplier float64
}

func DefaultPolicy() Policy {
	return Policy{
		BaseDeliveryFee:            20,
		PlatformFee:                10,
		PremiumThreshold:           10000,
		PremiumRate:                0.00001,
		DefaultCommissionPercent:   15,
		DefaultDeliveryChargePerKm: 5,
		DistanceMultiplier:         1.3,
	}
}

func PolicyFromConfig(cfg config.PricingConfig) Policy {
	return Policy{
		BaseDeliveryFee:            cfg.BaseDeliveryFee,
		PlatformFee:                cfg.PlatformFee,
		PremiumThreshold:           cfg.PremiumThreshold,
		PremiumRate:                cfg.PremiumRate,
		DefaultCommissionPercent:   cfg.DefaultCommissionPercent,
		DefaultDeliveryChargePerKm: cfg.DefaultDeliveryChargePerKm,
		DistanceMultiplier:         cfg.DistanceMultiplier,
	}
}

// DeliveryRate returns the configured per-km rate, or the default when the
// admin value is missing or not positive.
func (p Policy) DeliveryRate(configured *float64) float64 {
	if configured == nil || !finite(*configured) || *configured <= 0 {
		return p.DefaultDeliveryChargePerKm
	}
	return *configured
}

// CommissionPercent returns the shop's commission or the default when unset.
func (p Policy) CommissionPercent(configured *float64) float64 {
	if configured == nil || !finite(*configured) || *configured <= 0 {
		return p.DefaultCommissionPercent
	}
	return *configured
}
