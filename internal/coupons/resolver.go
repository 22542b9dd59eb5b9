// Package coupons resolves flat-amount shop coupons from the admin coupon table.
package coupons

import (
	"context"
	"math"
	"strings"

	"github.com/angelmondragon/swiftcart-backend/internal/admin"
	"github.com/angelmondragon/swiftcart-backend/pkg/errors"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/store"
	"github.com/angelmondragon/swiftcart-backend/pkg/types"
)

// Resolver looks up coupon amounts.
type Resolver interface {
	Resolve(ctx context.Context, shopID, code string) (amount float64, ok bool, err error)
}

type resolver struct {
	store store.Store
	logg  *logger.Logger
}

func NewResolver(s store.Store, logg *logger.Logger) (Resolver, error) {
	if s == nil {
		return nil, errors.New(errors.CodeInternal, "coupon store required")
	}
	return &resolver{store: s, logg: logg}, nil
}

// Path returns the store path of a shop coupon.
func Path(shopID, code string) string {
	return store.Join(admin.GeneralPath, "coupons", shopID, code)
}

// Resolve matches code exactly against the shop's coupon table. Unknown codes
// and codes that cannot be expressed as a store key return ok=false.
func (r *resolver) Resolve(ctx context.Context, shopID, code string) (float64, bool, error) {
	if strings.TrimSpace(code) == "" {
		return 0, false, errors.New(errors.CodeValidation, "enter a coupon code")
	}
	if !store.ValidKey(shopID) || !store.ValidKey(code) {
		return 0, false, nil
	}

	snap, err := r.store.Get(ctx, Path(shopID, code))
	if err != nil {
		if r.logg != nil {
			r.logg.Error(ctx, "coupons.resolve_failed", err)
		}
		return 0, false, errors.Wrap(errors.CodeDependency, err, "failed to apply coupon")
	}
	if !snap.Exists() {
		return 0, false, nil
	}

	var amount types.FlexFloat
	if err := snap.Decode(&amount); err != nil {
		return 0, false, nil
	}
	v := amount.Float64()
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false, nil
	}
	return v, true, nil
}
