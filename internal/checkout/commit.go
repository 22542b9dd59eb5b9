package checkout

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/angelmondragon/swiftcart-backend/internal/cart"
	"github.com/angelmondragon/swiftcart-backend/internal/orders"
	"github.com/angelmondragon/swiftcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/swiftcart-backend/pkg/errors"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/store"
	"github.com/angelmondragon/swiftcart-backend/pkg/types"
)

// CleanupPath is where a pending cart cleanup is recorded after a partial commit.
func CleanupPath(orderID string) string {
	return store.Join("cart_cleanups", orderID)
}

type commitRecorder interface {
	IncCommitted(source string)
	IncPartialCommit()
}

// CommitInput is a priced-to-be order. Discount is the already resolved
// coupon amount.
type CommitInput struct {
	Snapshot      *Snapshot
	Discount      float64
	CouponCode    string
	PaymentMode   enums.PaymentMode
	TransactionID string
	CustomerEmail string
	Source        string
}

// CommitResult describes a stored order. Warning is set when the order was
// written but the cart could not be cleared.
type CommitResult struct {
	OrderID string
	Order   *orders.Order
	Warning *pkgerrors.Error
}

// Committer writes orders and clears the cart they came from.
type Committer struct {
	store   store.Store
	carts   *cart.Repository
	atomic  bool
	metrics commitRecorder
	logg    *logger.Logger
	now     func() time.Time
}

// CommitterOption configures a Committer.
type CommitterOption func(*Committer)

// WithAtomicCommit writes the order and deletes the cart in one multi-path update.
func WithAtomicCommit(enabled bool) CommitterOption {
	return func(c *Committer) { c.atomic = enabled }
}

func WithCommitMetrics(m commitRecorder) CommitterOption {
	return func(c *Committer) { c.metrics = m }
}

func NewCommitter(s store.Store, logg *logger.Logger, opts ...CommitterOption) (*Committer, error) {
	if s == nil {
		return nil, fmt.Errorf("store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	c := &Committer{store: s, carts: cart.NewRepository(s), logg: logg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Commit runs the write-then-delete protocol once. An order write failure
// leaves the cart untouched and is retryable. A cart delete failure after
// the order is stored returns the order with a partial commit warning and
// queues a cleanup record; the order write is never repeated.
func (c *Committer) Commit(ctx context.Context, in CommitInput) (*CommitResult, error) {
	snap := in.Snapshot
	if snap == nil || snap.Shop == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop is required")
	}

	order := BuildOrder(snap, in, c.now())
	if len(order.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	orderID, err := c.store.NewID(ctx, orders.UserPath(snap.UserID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to place order")
	}
	order.ID = orderID

	ctx = c.logg.WithFields(ctx, map[string]any{
		"user_id":  snap.UserID,
		"shop_id":  order.ShopID,
		"order_id": orderID,
		"source":   in.Source,
	})

	orderPath := orders.Path(snap.UserID, orderID)
	cartPath := cart.ShopPath(snap.UserID, order.ShopID)

	if c.atomic {
		if err := c.store.Update(ctx, map[string]any{orderPath: order.Value(), cartPath: nil}); err != nil {
			c.logg.Error(ctx, "checkout.order_write_failed", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to place order")
		}
		c.committed(ctx, in.Source)
		return &CommitResult{OrderID: orderID, Order: order}, nil
	}

	if err := c.store.Set(ctx, orderPath, order.Value()); err != nil {
		c.logg.Error(ctx, "checkout.order_write_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to place order")
	}
	c.committed(ctx, in.Source)

	if err := c.carts.Delete(ctx, snap.UserID, order.ShopID); err != nil {
		c.logg.Error(ctx, "checkout.partial_commit", err)
		if c.metrics != nil {
			c.metrics.IncPartialCommit()
		}
		if qerr := c.enqueueCleanup(ctx, order); qerr != nil {
			c.logg.Error(ctx, "checkout.cleanup_enqueue_failed", qerr)
		}
		warning := pkgerrors.Wrap(pkgerrors.CodePartialCommit, err, "order placed, cart cleanup pending").
			WithDetails(map[string]any{"orderId": orderID})
		return &CommitResult{OrderID: orderID, Order: order, Warning: warning}, nil
	}
	return &CommitResult{OrderID: orderID, Order: order}, nil
}

func (c *Committer) committed(ctx context.Context, source string) {
	if c.metrics != nil {
		c.metrics.IncCommitted(source)
	}
	c.logg.Info(ctx, "checkout.committed")
}

// CleanupRecord lists the ordered quantities the sweeper should remove.
type CleanupRecord struct {
	UserID    string         `json:"userId"`
	ShopID    string         `json:"shopId"`
	Items     map[string]int `json:"items"`
	CreatedAt int64          `json:"createdAt"`
	Attempts  int            `json:"attempts,omitempty"`
}

func (c *Committer) enqueueCleanup(ctx context.Context, order *orders.Order) error {
	items := make(map[string]int, len(order.Items))
	for id, item := range order.Items {
		items[id] = item.Qty
	}
	return c.store.Set(ctx, CleanupPath(order.ID), CleanupRecord{
		UserID:    order.UserID,
		ShopID:    order.ShopID,
		Items:     items,
		CreatedAt: c.now().UnixMilli(),
	})
}

// BuildOrder prices the snapshot and freezes it into an order record. Items
// are copies of the cart lines; lines without a usable price are left out.
func BuildOrder(snap *Snapshot, in CommitInput, now time.Time) *orders.Order {
	items := make(map[string]orders.Item, len(snap.Cart.Lines))
	for id, line := range snap.Cart.Lines {
		if math.IsNaN(line.UnitPrice) || math.IsInf(line.UnitPrice, 0) || line.UnitPrice < 0 || line.Quantity <= 0 {
			continue
		}
		name := line.ProductName
		if name == "" {
			name = "Product"
		}
		items[id] = orders.Item{Price: line.UnitPrice, Qty: line.Quantity, ProductName: name, ServiceType: line.ServiceType}
	}

	quote := snap.Quote(in.Discount)
	policy := snap.Policy()

	shopName := snap.Shop.Name
	if shopName == "" {
		shopName = "Unknown Shop"
	}
	address := orders.NoAddress
	if snap.Address != nil && strings.TrimSpace(snap.Address.FormattedAddress) != "" {
		address = snap.Address.FormattedAddress
	}
	var txID *string
	if in.PaymentMode.RequiresTransactionID() {
		trimmed := strings.TrimSpace(in.TransactionID)
		txID = &trimmed
	}
	customerName := snap.User.DisplayName()
	if customerName == "" {
		customerName = "Customer"
	}
	email := in.CustomerEmail
	if email == "" && snap.User != nil {
		email = snap.User.Email
	}

	return &orders.Order{
		UserID:        snap.UserID,
		ShopID:        snap.Shop.ID,
		ShopName:      shopName,
		ShopImage:     snap.Shop.Image,
		Items:         items,
		Subtotal:      quote.Subtotal,
		Discount:      quote.Discount,
		CouponCode:    in.CouponCode,
		DeliveryFee:   quote.DeliveryFee,
		PlatformFee:   quote.PlatformFee,
		Total:         quote.Total,
		PaymentMode:   in.PaymentMode,
		TransactionID: txID,
		Address:       address,
		CustomerName:  customerName,
		CustomerPhone: snap.User.ContactPhone(),
		CustomerEmail: email,
		Status:        enums.OrderStatusPending,
		CreatedAt:     now.UnixMilli(),
		RestaurantPayout: orders.RestaurantPayout{
			Subtotal:           quote.Subtotal,
			PlatformCommission: quote.PlatformCommission,
			NetPayout:          quote.NetShopPayout,
			CommissionPercent:  quote.CommissionPercent,
		},
		DriverPayout: quote.DeliveryFee,
		CalculationMetadata: orders.CalculationMetadata{
			DeliveryChargePerKm: snap.DeliveryChargePerKm,
			BaseDeliveryFee:     policy.BaseDeliveryFee,
			PlatformFee:         policy.PlatformFee,
			DistanceMultiplier:  policy.DistanceMultiplier,
			DistanceKm:          quote.DistanceKm,
			IsPremiumOrder:      quote.IsPremiumOrder,
			UserLocation:        snap.Address.Clone(),
			ShopLocation:        types.CoordinatesFrom(snap.Shop.Point()),
			CalculatedAt:        now.UnixMilli(),
			Source:              in.Source,
		},
	}
}
