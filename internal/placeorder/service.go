// Package placeorder is the privileged order placement path. It prices
// orders from stored shop, user, cart and admin records only; client supplied
// amounts are never trusted.
package placeorder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/angelmondragon/swiftcart-backend/internal/checkout"
	"github.com/angelmondragon/swiftcart-backend/internal/coupons"
	"github.com/angelmondragon/swiftcart-backend/internal/notifications"
	"github.com/angelmondragon/swiftcart-backend/internal/orders"
	"github.com/angelmondragon/swiftcart-backend/internal/users"
	"github.com/angelmondragon/swiftcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/swiftcart-backend/pkg/errors"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/metrics"
	"github.com/angelmondragon/swiftcart-backend/pkg/store"
	"github.com/angelmondragon/swiftcart-backend/pkg/types"
)

type userReader interface {
	FindByID(ctx context.Context, uid string) (*users.DeliveryProfile, error)
}

type eventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event notifications.OrderPlacedEvent) (string, error)
}

type rejectionRecorder interface {
	IncRejection(reason string)
}

// Item is a client-side view of a cart line.
type Item struct {
	Price       *types.FlexFloat `json:"price"`
	Qty         *types.FlexFloat `json:"qty"`
	ProductName string           `json:"productname"`
}

// Request mirrors the placeOrder callable payload.
type Request struct {
	UserID        string            `json:"userId" validate:"required"`
	ShopID        string            `json:"shopId" validate:"required"`
	Items         map[string]Item   `json:"items" validate:"required,min=1"`
	Discount      *types.FlexFloat  `json:"discount"`
	CouponCode    string            `json:"couponCode"`
	PaymentMode   enums.PaymentMode `json:"paymentMode"`
	TransactionID string            `json:"transactionId"`
}

// Result is returned to the caller on success. Warning carries a partial
// commit notice when the cart could not be cleared.
type Result struct {
	Success bool             `json:"success"`
	Order   *orders.Order    `json:"order"`
	Warning *pkgerrors.Error `json:"-"`
}

type Service interface {
	PlaceOrder(ctx context.Context, callerUID string, req Request) (*Result, error)
}

type service struct {
	users     userReader
	loader    *checkout.Loader
	coupons   coupons.Resolver
	committer *checkout.Committer
	events    eventPublisher
	metrics   rejectionRecorder
	logg      *logger.Logger
}

// ServiceParams groups the collaborators of the placement service.
type ServiceParams struct {
	Users     userReader
	Loader    *checkout.Loader
	Coupons   coupons.Resolver
	Committer *checkout.Committer
	Events    eventPublisher
	Metrics   rejectionRecorder
	Logger    *logger.Logger
}

func NewService(p ServiceParams) (Service, error) {
	if p.Users == nil {
		return nil, fmt.Errorf("user reader required")
	}
	if p.Loader == nil {
		return nil, fmt.Errorf("checkout loader required")
	}
	if p.Coupons == nil {
		return nil, fmt.Errorf("coupon resolver required")
	}
	if p.Committer == nil {
		return nil, fmt.Errorf("committer required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		users:     p.Users,
		loader:    p.Loader,
		coupons:   p.Coupons,
		committer: p.Committer,
		events:    p.Events,
		metrics:   p.Metrics,
		logg:      p.Logger,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, callerUID string, req Request) (*Result, error) {
	result, err := s.place(ctx, callerUID, req)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			if s.metrics != nil {
				s.metrics.IncRejection(string(typed.Code()))
			}
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"user_id": req.UserID,
				"shop_id": req.ShopID,
				"code":    string(typed.Code()),
			})
			s.logg.Warn(logCtx, "placeorder.rejected")
		}
		return nil, err
	}
	return result, nil
}

func (s *service) place(ctx context.Context, callerUID string, req Request) (*Result, error) {
	if strings.TrimSpace(callerUID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.ShopID) == "" || len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing required order data")
	}
	if callerUID != req.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller does not match order user")
	}
	if !req.PaymentMode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "select a payment mode")
	}
	if req.PaymentMode.RequiresTransactionID() && strings.TrimSpace(req.TransactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "enter transaction ID")
	}

	profile, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load checkout data")
	}

	snap, err := s.loader.Load(ctx, checkout.LoadInput{UserID: req.UserID, ShopID: req.ShopID, User: profile})
	if err != nil {
		return nil, err
	}
	if snap.Cart.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if !matchesCart(snap, req.Items) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed since checkout")
	}

	discount, couponCode, err := s.discount(ctx, snap, req)
	if err != nil {
		return nil, err
	}

	committed, err := s.committer.Commit(ctx, checkout.CommitInput{
		Snapshot:      snap,
		Discount:      discount,
		CouponCode:    couponCode,
		PaymentMode:   req.PaymentMode,
		TransactionID: req.TransactionID,
		Source:        metrics.SourceServer,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, committed.Order)
	return &Result{Success: true, Order: committed.Order, Warning: committed.Warning}, nil
}

// discount re-resolves a coupon code on the server. Without a code the
// client amount is used, bounded to [0, subtotal] by pricing.
func (s *service) discount(ctx context.Context, snap *checkout.Snapshot, req Request) (float64, string, error) {
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		amount, ok, err := s.coupons.Resolve(ctx, req.ShopID, code)
		if err != nil {
			return 0, "", err
		}
		if !ok {
			return 0, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon code")
		}
		return amount, code, nil
	}
	value := req.Discount.Ptr()
	if value == nil || *value < 0 {
		return 0, "", nil
	}
	return math.Min(*value, math.Ceil(snap.Subtotal())), "", nil
}

func (s *service) publish(ctx context.Context, order *orders.Order) {
	if s.events == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, order.ID)
	event := notifications.NewOrderPlacedEvent(order.UserID, order.ID, order.ShopID, order.ShopName, order.Total)
	if _, err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		s.logg.Error(logCtx, "placeorder.publish_failed", err)
	}
}

// matchesCart reports whether the request lists exactly the stored lines
// with the same quantities.
func matchesCart(snap *checkout.Snapshot, items map[string]Item) bool {
	if len(items) != len(snap.Cart.Lines) {
		return false
	}
	for id, line := range snap.Cart.Lines {
		item, ok := items[id]
		if !ok || item.Qty == nil {
			return false
		}
		if int(item.Qty.Float64()) != line.Quantity || item.Qty.Float64() != float64(line.Quantity) {
			return false
		}
	}
	return true
}
