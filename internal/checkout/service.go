package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/swiftcart-backend/internal/cart"
	"github.com/angelmondragon/swiftcart-backend/internal/coupons"
	"github.com/angelmondragon/swiftcart-backend/internal/orders"
	"github.com/angelmondragon/swiftcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/swiftcart-backend/pkg/errors"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/pricing"
	"github.com/angelmondragon/swiftcart-backend/pkg/types"
)

type rejectionRecorder interface {
	IncRejection(reason string)
}

// Service runs a checkout session per request for the HTTP surface.
type Service interface {
	Quote(ctx context.Context, uid string, input QuoteInput) (*QuoteResult, error)
	ApplyCoupon(ctx context.Context, uid, shopID, code string) (*CouponResult, error)
	Submit(ctx context.Context, uid, email string, input SubmitInput) (*SubmitResult, error)
}

type QuoteInput struct {
	ShopID     string `json:"-"`
	AddressID  string `json:"addressId"`
	CouponCode string `json:"couponCode"`
}

type QuoteResult struct {
	ShopID              string         `json:"shopId"`
	ShopName            string         `json:"shopName"`
	ShopImage           string         `json:"shopImage,omitempty"`
	Items               []cart.Line    `json:"items"`
	Address             *types.Address `json:"address,omitempty"`
	CouponCode          string         `json:"couponCode,omitempty"`
	DeliveryChargePerKm float64        `json:"deliveryChargePerKm"`
	Pricing             pricing.Result `json:"pricing"`
	State               State          `json:"state"`
}

type CouponResult struct {
	Code   string  `json:"code"`
	Amount float64 `json:"amount"`
}

type SubmitInput struct {
	ShopID        string            `json:"-"`
	AddressID     string            `json:"addressId"`
	CouponCode    string            `json:"couponCode"`
	PaymentMode   enums.PaymentMode `json:"paymentMode" validate:"required,oneof=COD Online"`
	TransactionID string            `json:"transactionId"`
}

type SubmitResult struct {
	OrderID string           `json:"orderId"`
	Order   *orders.Order    `json:"order"`
	Warning *pkgerrors.Error `json:"-"`
}

type service struct {
	loader    *Loader
	coupons   coupons.Resolver
	committer *Committer
	metrics   rejectionRecorder
	logg      *logger.Logger
}

func NewService(loader *Loader, resolver coupons.Resolver, committer *Committer, rejections rejectionRecorder, logg *logger.Logger) (Service, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("coupon resolver required")
	}
	if committer == nil {
		return nil, fmt.Errorf("committer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{loader: loader, coupons: resolver, committer: committer, metrics: rejections, logg: logg}, nil
}

func (s *service) Quote(ctx context.Context, uid string, input QuoteInput) (*QuoteResult, error) {
	session := NewSession(s.loader, s.coupons, s.committer, uid, "")
	snap, err := session.Load(ctx, LoadInput{ShopID: input.ShopID, AddressID: input.AddressID})
	if err != nil {
		return nil, err
	}
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		if _, err := session.ApplyCoupon(ctx, code); err != nil {
			return nil, err
		}
	}
	quote, err := session.Quote()
	if err != nil {
		return nil, err
	}
	return &QuoteResult{
		ShopID:              snap.Shop.ID,
		ShopName:            snap.Shop.Name,
		ShopImage:           snap.Shop.Image,
		Items:               snap.Cart.SortedLines(),
		Address:             snap.Address,
		CouponCode:          session.CouponCode(),
		DeliveryChargePerKm: snap.DeliveryChargePerKm,
		Pricing:             quote,
		State:               session.State(),
	}, nil
}

func (s *service) ApplyCoupon(ctx context.Context, uid, shopID, code string) (*CouponResult, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	code = strings.TrimSpace(code)
	amount, ok, err := s.coupons.Resolve(ctx, shopID, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon code")
	}
	return &CouponResult{Code: code, Amount: amount}, nil
}

func (s *service) Submit(ctx context.Context, uid, email string, input SubmitInput) (*SubmitResult, error) {
	result, err := s.submit(ctx, uid, email, input)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && s.metrics != nil {
			s.metrics.IncRejection(string(typed.Code()))
		}
		return nil, err
	}
	return result, nil
}

func (s *service) submit(ctx context.Context, uid, email string, input SubmitInput) (*SubmitResult, error) {
	session := NewSession(s.loader, s.coupons, s.committer, uid, email)
	if _, err := session.Load(ctx, LoadInput{ShopID: input.ShopID, AddressID: input.AddressID}); err != nil {
		return nil, err
	}
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		if _, err := session.ApplyCoupon(ctx, code); err != nil {
			return nil, err
		}
	}
	if err := session.SetPayment(input.PaymentMode, input.TransactionID); err != nil {
		return nil, err
	}
	committed, err := session.Submit(ctx)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{OrderID: committed.OrderID, Order: committed.Order, Warning: committed.Warning}, nil
}
