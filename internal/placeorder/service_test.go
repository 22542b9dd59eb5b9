package placeorder

import (
	"context"
	stdErrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/angelmondragon/swiftcart-backend/internal/admin"
	"github.com/angelmondragon/swiftcart-backend/internal/cart"
	"github.com/angelmondragon/swiftcart-backend/internal/checkout"
	"github.com/angelmondragon/swiftcart-backend/internal/coupons"
	"github.com/angelmondragon/swiftcart-backend/internal/notifications"
	"github.com/angelmondragon/swiftcart-backend/internal/shops"
	"github.com/angelmondragon/swiftcart-backend/internal/users"
	"github.com/angelmondragon/swiftcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/swiftcart-backend/pkg/errors"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/pricing"
	"github.com/angelmondragon/swiftcart-backend/pkg/store"
	"github.com/angelmondragon/swiftcart-backend/pkg/types"
)

type capturedEvents struct {
	events []notifications.OrderPlacedEvent
	err    error
}

func (c *capturedEvents) PublishOrderPlaced(_ context.Context, event notifications.OrderPlacedEvent) (string, error) {
	c.events = append(c.events, event)
	return "evt-1", c.err
}

type rejectionCounter map[string]int

func (r rejectionCounter) IncRejection(reason string) { r[reason]++ }

type writeCounter struct {
	*store.Memory
	writes int
}

func (w *writeCounter) Set(ctx context.Context, path string, value any) error {
	w.writes++
	return w.Memory.Set(ctx, path, value)
}

func (w *writeCounter) Remove(ctx context.Context, path string) error {
	w.writes++
	return w.Memory.Remove(ctx, path)
}

type harness struct {
	svc        Service
	store      *writeCounter
	events     *capturedEvents
	rejections rejectionCounter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	seed := map[string]any{
		"shops/s1": map[string]any{
			"name":     "Spice Route",
			"location": map[string]any{"lat": 12.9716, "lng": 77.5946},
		},
		"users/u1": map[string]any{
			"name":     "Asha Rao",
			"location": map[string]any{"formattedAddress": "12 MG Road", "lat": 12.9806, "lng": 77.5946},
		},
		"carts/u1/s1": map[string]any{
			"shopname": "Spice Route",
			"p1":       map[string]any{"productname": "Biryani", "price": 200, "qty": 2},
			"p2":       map[string]any{"productname": "Raita", "price": 50, "qty": 1},
		},
		"admin_data/general/deliveryChargePerKm": 5,
		"admin_data/general/coupons/s1/SAVE50":   50,
	}
	for path, value := range seed {
		if err := mem.Set(ctx, path, value); err != nil {
			t.Fatalf("seed %s: %v", path, err)
		}
	}
	ws := &writeCounter{Memory: mem}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	userRepo := users.NewRepository(ws)
	loader, err := checkout.NewLoader(shops.NewRepository(ws), userRepo, cart.NewRepository(ws), admin.NewRepository(ws), pricing.NewCalculator(pricing.DefaultPolicy()), logg)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	resolver, err := coupons.NewResolver(ws, logg)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	committer, err := checkout.NewCommitter(ws, logg)
	if err != nil {
		t.Fatalf("committer: %v", err)
	}
	events := &capturedEvents{}
	rejections := rejectionCounter{}
	svc, err := NewService(ServiceParams{
		Users:     userRepo,
		Loader:    loader,
		Coupons:   resolver,
		Committer: committer,
		Events:    events,
		Metrics:   rejections,
		Logger:    logg,
	})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return &harness{svc: svc, store: ws, events: events, rejections: rejections}
}

func validRequest() Request {
	return Request{
		UserID: "u1",
		ShopID: "s1",
		Items: map[string]Item{
			"p1": {Price: types.NewFlexFloat(1), Qty: types.NewFlexFloat(2), ProductName: "Biryani"},
			"p2": {Price: types.NewFlexFloat(1), Qty: types.NewFlexFloat(1), ProductName: "Raita"},
		},
		PaymentMode: enums.PaymentModeCOD,
	}
}

func TestPlaceOrderPricesFromStoredRecords(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.PlaceOrder(context.Background(), "u1", validRequest())
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	order := res.Order
	if !res.Success || order.ID == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	// client prices of 1 are ignored in favour of the stored 200 and 50
	if order.Subtotal != 450 || order.DeliveryFee != 27 || order.PlatformFee != 10 || order.Total != 487 {
		t.Fatalf("unexpected totals %+v", order)
	}
	if order.RestaurantPayout.PlatformCommission != 68 || order.RestaurantPayout.NetPayout != 382 {
		t.Fatalf("unexpected payout %+v", order.RestaurantPayout)
	}
	if order.Address != "12 MG Road" || order.CalculationMetadata.Source != "server" {
		t.Fatalf("unexpected order metadata %+v", order)
	}

	c, err := cart.NewRepository(h.store.Memory).Get(context.Background(), "u1", "s1")
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if !c.IsEmpty() {
		t.Fatal("cart not cleared")
	}

	if len(h.events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(h.events.events))
	}
	event := h.events.events[0]
	if event.OrderID != order.ID || !strings.Contains(event.Body, "Spice Route") || !strings.Contains(event.Body, "₹487") {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestPlaceOrderRejections(t *testing.T) {
	cases := []struct {
		name   string
		caller string
		mutate func(*Request)
		code   pkgerrors.Code
	}{
		{name: "unauthenticated", caller: "", mutate: func(*Request) {}, code: pkgerrors.CodeUnauthorized},
		{name: "caller mismatch", caller: "u2", mutate: func(*Request) {}, code: pkgerrors.CodeForbidden},
		{name: "missing shop id", caller: "u1", mutate: func(r *Request) { r.ShopID = "" }, code: pkgerrors.CodeValidation},
		{name: "empty items", caller: "u1", mutate: func(r *Request) { r.Items = nil }, code: pkgerrors.CodeValidation},
		{name: "bad payment mode", caller: "u1", mutate: func(r *Request) { r.PaymentMode = "Cheque" }, code: pkgerrors.CodeValidation},
		{name: "online without transaction", caller: "u1", mutate: func(r *Request) { r.PaymentMode = enums.PaymentModeOnline }, code: pkgerrors.CodeValidation},
		{name: "unknown shop", caller: "u1", mutate: func(r *Request) { r.ShopID = "s9" }, code: pkgerrors.CodeNotFound},
		{name: "quantity mismatch", caller: "u1", mutate: func(r *Request) {
			r.Items["p1"] = Item{Qty: types.NewFlexFloat(5)}
		}, code: pkgerrors.CodeConflict},
		{name: "extra item", caller: "u1", mutate: func(r *Request) {
			r.Items["p9"] = Item{Qty: types.NewFlexFloat(1)}
		}, code: pkgerrors.CodeConflict},
		{name: "invalid coupon", caller: "u1", mutate: func(r *Request) { r.CouponCode = "BOGUS" }, code: pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			req := validRequest()
			tc.mutate(&req)
			_, err := h.svc.PlaceOrder(context.Background(), tc.caller, req)
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if h.store.writes != 0 {
				t.Fatalf("rejected request wrote %d times", h.store.writes)
			}
			if h.rejections[string(tc.code)] != 1 {
				t.Fatalf("expected rejection metric for %s, got %v", tc.code, h.rejections)
			}
		})
	}
}

func TestPlaceOrderMissingUser(t *testing.T) {
	h := newHarness(t)
	req := validRequest()
	req.UserID = "ghost"
	_, err := h.svc.PlaceOrder(context.Background(), "ghost", req)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPlaceOrderEmptyStoredCart(t *testing.T) {
	h := newHarness(t)
	if err := h.store.Memory.Remove(context.Background(), "carts/u1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	_, err := h.svc.PlaceOrder(context.Background(), "u1", validRequest())
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPlaceOrderDiscounts(t *testing.T) {
	h := newHarness(t)
	req := validRequest()
	req.CouponCode = "SAVE50"
	req.Discount = types.NewFlexFloat(400)
	res, err := h.svc.PlaceOrder(context.Background(), "u1", req)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if res.Order.Discount != 50 || res.Order.CouponCode != "SAVE50" {
		t.Fatalf("expected coupon amount to win over client discount, got %+v", res.Order)
	}

	h = newHarness(t)
	req = validRequest()
	req.Discount = types.NewFlexFloat(10000)
	res, err = h.svc.PlaceOrder(context.Background(), "u1", req)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if res.Order.Discount != 450 || res.Order.Total != 37 {
		t.Fatalf("expected discount clamped to subtotal, got %+v", res.Order)
	}

	h = newHarness(t)
	req = validRequest()
	req.Discount = types.NewFlexFloat(-30)
	res, err = h.svc.PlaceOrder(context.Background(), "u1", req)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if res.Order.Discount != 0 {
		t.Fatalf("expected negative discount ignored, got %d", res.Order.Discount)
	}
}

func TestPlaceOrderPublishFailureIsNotReturned(t *testing.T) {
	h := newHarness(t)
	h.events.err = stdErrors.New("broker unavailable")
	res, err := h.svc.PlaceOrder(context.Background(), "u1", validRequest())
	if err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
	if !res.Success {
		t.Fatal("expected success")
	}
}
