// Package admin reads platform-wide settings maintained under admin_data/general.
package admin

import (
	"context"
	"fmt"

	"github.com/angelmondragon/swiftcart-backend/pkg/store"
	"github.com/angelmondragon/swiftcart-backend/pkg/types"
)

const GeneralPath = "admin_data/general"

// RateConfig holds the admin-configured delivery rate.
type RateConfig struct {
	DeliveryChargePerKm *types.FlexFloat `json:"deliveryChargePerKm,omitempty"`
}

// Rate returns the configured rate, nil when unset or malformed.
func (c *RateConfig) Rate() *float64 {
	if c == nil {
		return nil
	}
	return c.DeliveryChargePerKm.Ptr()
}

type Repository struct {
	store store.Store
}

func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

// RateConfig reads only the delivery rate leaf so the coupon table is not
// pulled into every checkout. A missing record yields an empty config.
func (r *Repository) RateConfig(ctx context.Context) (*RateConfig, error) {
	snap, err := r.store.Get(ctx, store.Join(GeneralPath, "deliveryChargePerKm"))
	if err != nil {
		return nil, fmt.Errorf("load admin rate: %w", err)
	}
	cfg := &RateConfig{}
	if !snap.Exists() {
		return cfg, nil
	}
	var rate types.FlexFloat
	if err := snap.Decode(&rate); err != nil {
		// malformed values degrade to the policy default
		return cfg, nil
	}
	cfg.DeliveryChargePerKm = &rate
	return cfg, nil
}
