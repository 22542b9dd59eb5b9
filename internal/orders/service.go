package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/swiftcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/swiftcart-backend/pkg/errors"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/pagination"
	"github.com/angelmondragon/swiftcart-backend/pkg/store"
)

// Service exposes order tracking and status updates.
type Service interface {
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Get(ctx context.Context, uid, orderID string) (*Order, error)
	UpdateStatus(ctx context.Context, input StatusUpdateInput) (*Order, error)
}

// ListInput selects a user's orders. A zero Page returns every order.
type ListInput struct {
	UserID     string
	ActiveOnly bool
	Page       pagination.Params
}

type ListResult struct {
	Orders     []Order `json:"orders"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

// StatusUpdateInput moves an order along its lifecycle. Shop actors may only
// update orders placed at their own shop.
type StatusUpdateInput struct {
	UserID      string
	OrderID     string
	Status      enums.OrderStatus
	ActorRole   enums.ActorRole
	ActorShopID string
}

type service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if !store.ValidKey(input.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	list, err := s.repo.ListByUser(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load orders")
	}
	if input.ActiveOnly {
		active := make([]Order, 0, len(list))
		for _, order := range list {
			if order.Status.IsActive() {
				active = append(active, order)
			}
		}
		list = active
	}
	page, next, err := pagination.Window(list, func(o Order) string { return o.ID }, input.Page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return &ListResult{Orders: page, NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, uid, orderID string) (*Order, error) {
	order, err := s.repo.Get(ctx, uid, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order")
	}
	return order, nil
}

func (s *service) UpdateStatus(ctx context.Context, input StatusUpdateInput) (*Order, error) {
	switch input.ActorRole {
	case enums.ActorRoleAdmin, enums.ActorRoleShop:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only shops and admins can update orders")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	order, err := s.Get(ctx, input.UserID, input.OrderID)
	if err != nil {
		return nil, err
	}
	if input.ActorRole == enums.ActorRoleShop && order.ShopID != input.ActorShopID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another shop")
	}
	if !order.Status.CanTransitionTo(input.Status) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", order.Status, input.Status)
	}

	at := s.now()
	if err := s.repo.UpdateStatus(ctx, input.UserID, input.OrderID, input.Status, at); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update order")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id": input.OrderID,
		"from":     string(order.Status),
		"to":       string(input.Status),
	})
	s.logg.Info(ctx, "orders.status_updated")

	order.Status = input.Status
	order.StatusUpdatedAt = at.UnixMilli()
	return order, nil
}
