package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/swiftcart-backend/internal/admin"
	"github.com/angelmondragon/swiftcart-backend/internal/cart"
	"github.com/angelmondragon/swiftcart-backend/internal/shops"
	"github.com/angelmondragon/swiftcart-backend/internal/users"
	pkgerrors "github.com/angelmondragon/swiftcart-backend/pkg/errors"
	"github.com/angelmondragon/swiftcart-backend/pkg/geo"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/pricing"
	"github.com/angelmondragon/swiftcart-backend/pkg/store"
	"github.com/angelmondragon/swiftcart-backend/pkg/types"
	"golang.org/x/sync/errgroup"
)

type shopReader interface {
	FindByID(ctx context.Context, shopID string) (*shops.Profile, error)
}

type userReader interface {
	FindByID(ctx context.Context, uid string) (*users.DeliveryProfile, error)
}

type cartReader interface {
	Get(ctx context.Context, uid, shopID string) (*cart.Cart, error)
}

type rateReader interface {
	RateConfig(ctx context.Context) (*admin.RateConfig, error)
}

// LoadInput identifies the cart to load. Shop, User and Cart may be
// supplied by the caller to skip the corresponding reads.
type LoadInput struct {
	UserID    string
	ShopID    string
	AddressID string
	Shop      *shops.Profile
	User      *users.DeliveryProfile
	Cart      *cart.Cart
}

// Snapshot is everything a quote or commit is computed from. It is never
// mutated after Load; selecting another address yields a new snapshot.
type Snapshot struct {
	UserID              string
	Shop                *shops.Profile
	User                *users.DeliveryProfile
	Cart                *cart.Cart
	Address             *types.Address
	DeliveryChargePerKm float64
	CommissionPercent   float64
	LoadedAt            time.Time

	calc *pricing.Calculator
}

// DistanceKm is nil when either endpoint is unknown.
func (s *Snapshot) DistanceKm() *float64 {
	if s == nil {
		return nil
	}
	km, ok := geo.Between(s.Shop.Point(), s.Address.Point())
	if !ok {
		return nil
	}
	return &km
}

// Subtotal sums the product lines.
func (s *Snapshot) Subtotal() float64 {
	if s == nil {
		return 0
	}
	return s.Cart.Subtotal()
}

// Input returns the pricing input for the given discount.
func (s *Snapshot) Input(discount float64) pricing.Input {
	return pricing.Input{
		Subtotal:            s.Subtotal(),
		Discount:            discount,
		DistanceKm:          s.DistanceKm(),
		DeliveryChargePerKm: s.DeliveryChargePerKm,
		CommissionPercent:   s.CommissionPercent,
	}
}

// Quote prices the snapshot. Identical snapshots produce identical results.
func (s *Snapshot) Quote(discount float64) pricing.Result {
	return s.calc.Quote(s.Input(discount))
}

// Policy returns the fee constants the snapshot is priced with.
func (s *Snapshot) Policy() pricing.Policy {
	return s.calc.Policy()
}

// WithAddress returns a copy of the snapshot delivering to addr.
func (s *Snapshot) WithAddress(addr *types.Address) *Snapshot {
	out := *s
	out.Address = addr.Clone()
	return &out
}

// Loader assembles snapshots from shop, cart, user and admin records.
type Loader struct {
	shops shopReader
	users userReader
	carts cartReader
	rates rateReader
	calc  *pricing.Calculator
	logg  *logger.Logger
	now   func() time.Time
}

func NewLoader(shopRepo shopReader, userRepo userReader, cartRepo cartReader, rates rateReader, calc *pricing.Calculator, logg *logger.Logger) (*Loader, error) {
	if shopRepo == nil {
		return nil, fmt.Errorf("shop reader required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("user reader required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if rates == nil {
		return nil, fmt.Errorf("rate reader required")
	}
	if calc == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Loader{shops: shopRepo, users: userRepo, carts: cartRepo, rates: rates, calc: calc, logg: logg, now: time.Now}, nil
}

// Load reads everything needed to price a checkout. It performs no writes.
// A missing shop fails the load; an empty cart does not.
func (l *Loader) Load(ctx context.Context, in LoadInput) (*Snapshot, error) {
	if !store.ValidKey(in.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !store.ValidKey(in.ShopID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}

	var (
		shop             = in.Shop
		c                = in.Cart
		profile          = in.User
		rates            *admin.RateConfig
		shopErr, cartErr error
		userErr, rateErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	if shop == nil {
		g.Go(func() error {
			shop, shopErr = l.shops.FindByID(gctx, in.ShopID)
			return shopErr
		})
	}
	if c == nil {
		g.Go(func() error {
			c, cartErr = l.carts.Get(gctx, in.UserID, in.ShopID)
			return cartErr
		})
	}
	if profile == nil {
		g.Go(func() error {
			profile, userErr = l.users.FindByID(gctx, in.UserID)
			if errors.Is(userErr, store.ErrNotFound) {
				profile, userErr = &users.DeliveryProfile{UID: in.UserID}, nil
			}
			return userErr
		})
	}
	g.Go(func() error {
		rates, rateErr = l.rates.RateConfig(gctx)
		return rateErr
	})
	_ = g.Wait()

	if errors.Is(shopErr, store.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
	}
	if err := firstError(shopErr, cartErr, userErr, rateErr); err != nil {
		l.logg.Error(l.logg.WithShopID(ctx, in.ShopID), "checkout.load_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load checkout data")
	}

	snap := &Snapshot{
		UserID:              in.UserID,
		Shop:                shop,
		User:                profile,
		Cart:                c.Clone(),
		DeliveryChargePerKm: l.calc.Policy().DeliveryRate(rates.Rate()),
		CommissionPercent:   l.calc.Policy().CommissionPercent(shop.Commission()),
		LoadedAt:            l.now(),
		calc:                l.calc,
	}
	if snap.Cart == nil {
		snap.Cart = &cart.Cart{UserID: in.UserID, ShopID: in.ShopID, Lines: map[string]cart.Line{}}
	}

	if in.AddressID != "" {
		addr, ok := profile.Address(in.AddressID)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "address not found")
		}
		snap.Address = addr
	} else {
		snap.Address = profile.DeliveryAddress()
	}

	ctx = l.logg.WithFields(ctx, map[string]any{
		"user_id": in.UserID,
		"shop_id": in.ShopID,
		"lines":   len(snap.Cart.Lines),
	})
	l.logg.Info(ctx, "checkout.loaded")
	return snap, nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
