package checkout

import (
	"context"
	"reflect"
	"testing"

	"github.com/angelmondragon/swiftcart-backend/internal/cart"
	"github.com/angelmondragon/swiftcart-backend/internal/shops"
	pkgerrors "github.com/angelmondragon/swiftcart-backend/pkg/errors"
)

func TestLoadBuildsSnapshot(t *testing.T) {
	f := newFixture(t)
	snap, err := f.loader.Load(context.Background(), LoadInput{UserID: "u1", ShopID: "s1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Shop.Name != "Spice Route" || len(snap.Cart.Lines) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Address == nil || snap.Address.FormattedAddress != "12 MG Road" {
		t.Fatalf("expected main address, got %+v", snap.Address)
	}
	if snap.DeliveryChargePerKm != 5 || snap.CommissionPercent != 20 {
		t.Fatalf("unexpected rates %v / %v", snap.DeliveryChargePerKm, snap.CommissionPercent)
	}

	quote := snap.Quote(0)
	if quote.Subtotal != 450 || quote.DeliveryFee != 27 || quote.PlatformFee != 10 || quote.Total != 487 {
		t.Fatalf("unexpected quote %+v", quote)
	}
	if quote.PlatformCommission != 90 || quote.NetShopPayout != 360 {
		t.Fatalf("unexpected commission split %+v", quote)
	}
}

func TestLoadAppliesDefaultsWhenConfigMissing(t *testing.T) {
	f := newFixture(t,
		withoutSeed("admin_data/general/deliveryChargePerKm"),
		withSeed("shops/s1", map[string]any{"name": "Plain", "location": map[string]any{"lat": 12.9716, "lng": 77.5946}}),
	)
	snap, err := f.loader.Load(context.Background(), LoadInput{UserID: "u1", ShopID: "s1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.DeliveryChargePerKm != 5 || snap.CommissionPercent != 15 {
		t.Fatalf("expected defaults 5/15, got %v/%v", snap.DeliveryChargePerKm, snap.CommissionPercent)
	}
}

func TestLoadZeroRateFallsBackToDefault(t *testing.T) {
	f := newFixture(t, withSeed("admin_data/general/deliveryChargePerKm", 0))
	snap, err := f.loader.Load(context.Background(), LoadInput{UserID: "u1", ShopID: "s1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.DeliveryChargePerKm != 5 {
		t.Fatalf("expected default rate, got %v", snap.DeliveryChargePerKm)
	}
}

func TestLoadMissingShop(t *testing.T) {
	f := newFixture(t)
	_, err := f.loader.Load(context.Background(), LoadInput{UserID: "u1", ShopID: "nope"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLoadReadFailureIsDependencyError(t *testing.T) {
	for _, prefix := range []string{"shops/", "carts/", "users/", "admin_data/"} {
		t.Run(prefix, func(t *testing.T) {
			f := newFixture(t)
			f.store.failGet = prefix
			_, err := f.loader.Load(context.Background(), LoadInput{UserID: "u1", ShopID: "s1"})
			if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
				t.Fatalf("expected dependency error, got %v", err)
			}
			if pkgerrors.As(err).Message() != "failed to load checkout data" {
				t.Fatalf("unexpected message %q", pkgerrors.As(err).Message())
			}
		})
	}
}

func TestLoadEmptyCartIsNotAnError(t *testing.T) {
	f := newFixture(t, withoutSeed("carts/u1/s1"))
	snap, err := f.loader.Load(context.Background(), LoadInput{UserID: "u1", ShopID: "s1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !snap.Cart.IsEmpty() {
		t.Fatalf("expected empty cart, got %+v", snap.Cart.Lines)
	}
}

func TestLoadUsesSuppliedShopAndCart(t *testing.T) {
	f := newFixture(t)
	f.store.failGet = "shops/"
	supplied := &cart.Cart{UserID: "u1", ShopID: "s1", Lines: map[string]cart.Line{
		"x": {ProductID: "x", ProductName: "Thali", UnitPrice: 120, Quantity: 1},
	}}
	snap, err := f.loader.Load(context.Background(), LoadInput{
		UserID: "u1",
		ShopID: "s1",
		Shop:   &shops.Profile{ID: "s1", Name: "Given"},
		Cart:   supplied,
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Shop.Name != "Given" || snap.Subtotal() != 120 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.DistanceKm() != nil {
		t.Fatal("expected no distance without a shop location")
	}
	supplied.Lines["x"] = cart.Line{ProductID: "x", UnitPrice: 999, Quantity: 9}
	if snap.Subtotal() != 120 {
		t.Fatal("snapshot shares cart lines with the caller")
	}
}

func TestLoadMissingUserHasNoAddress(t *testing.T) {
	f := newFixture(t, withoutSeed("users/u1"), withSeed("carts/u2/s1", map[string]any{
		"p1": map[string]any{"productname": "Biryani", "price": 200, "qty": 1},
	}))
	snap, err := f.loader.Load(context.Background(), LoadInput{UserID: "u2", ShopID: "s1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Address != nil {
		t.Fatalf("expected no address, got %+v", snap.Address)
	}
	if quote := snap.Quote(0); quote.DeliveryFee != 0 || quote.Total != 210 {
		t.Fatalf("unexpected quote without address %+v", quote)
	}
}

func TestLoadSelectedAddress(t *testing.T) {
	f := newFixture(t)
	snap, err := f.loader.Load(context.Background(), LoadInput{UserID: "u1", ShopID: "s1", AddressID: "far"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Address.FormattedAddress != "Airport" {
		t.Fatalf("expected selected address, got %+v", snap.Address)
	}

	_, err = f.loader.Load(context.Background(), LoadInput{UserID: "u1", ShopID: "s1", AddressID: "ghost"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadTwiceQuotesIdentically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.loader.Load(ctx, LoadInput{UserID: "u1", ShopID: "s1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second, err := f.loader.Load(ctx, LoadInput{UserID: "u1", ShopID: "s1"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(first.Quote(50), second.Quote(50)) {
		t.Fatalf("quotes differ: %+v vs %+v", first.Quote(50), second.Quote(50))
	}
	if f.store.writeCount() != 0 {
		t.Fatalf("load wrote to the store %d times", f.store.writeCount())
	}
}
