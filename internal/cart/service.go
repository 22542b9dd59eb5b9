package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/swiftcart-backend/internal/shops"
	pkgerrors "github.com/angelmondragon/swiftcart-backend/pkg/errors"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/store"
)

type shopLoader interface {
	FindByID(ctx context.Context, shopID string) (*shops.Profile, error)
}

// Service exposes cart mutations for the signed-in user.
type Service interface {
	Get(ctx context.Context, uid string) (*Cart, error)
	AddItem(ctx context.Context, uid string, input AddItemInput) (*Cart, error)
	Decrement(ctx context.Context, uid, shopID, productID string) (*Cart, error)
	Remove(ctx context.Context, uid, shopID, productID string) (*Cart, error)
	Clear(ctx context.Context, uid string) error
}

// AddItemInput adds one unit of a product. Replace discards a cart held for
// another shop instead of failing with a conflict.
type AddItemInput struct {
	ShopID    string `json:"shopId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
	Replace   bool   `json:"replace"`
}

type service struct {
	repo     *Repository
	products productReader
	shops    shopLoader
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(s store.Store, shopRepo shopLoader, logg *logger.Logger) (Service, error) {
	if s == nil {
		return nil, fmt.Errorf("store required")
	}
	if shopRepo == nil {
		return nil, fmt.Errorf("shop loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     NewRepository(s),
		products: productReader{store: s},
		shops:    shopRepo,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, uid string) (*Cart, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	c, err := s.repo.GetActive(ctx, uid)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load cart")
	}
	if c == nil {
		return &Cart{UserID: uid, Lines: map[string]Line{}}, nil
	}
	return c, nil
}

func (s *service) AddItem(ctx context.Context, uid string, input AddItemInput) (*Cart, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	shopID := strings.TrimSpace(input.ShopID)
	productID := strings.TrimSpace(input.ProductID)
	if shopID == "" || productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id and product id are required")
	}

	product, err := s.products.find(ctx, shopID, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to add product to cart")
	}
	if !product.Available() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is out of stock")
	}
	price := product.Price.Ptr()
	if price == nil || *price < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no valid price")
	}

	shop, err := s.shops.FindByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to add product to cart")
	}

	active, err := s.repo.GetActive(ctx, uid)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to add product to cart")
	}

	now := s.now()
	line := Line{
		ProductID:   productID,
		ProductName: product.Name,
		UnitPrice:   *price,
		Quantity:    1,
		ServiceType: product.ServiceType,
	}

	if active != nil && active.ShopID != shopID {
		if !input.Replace {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart contains items from another shop").
				WithDetails(map[string]any{"cartShopId": active.ShopID})
		}
		fresh := &Cart{UserID: uid, ShopID: shopID, ShopName: shop.Name, ShopImage: shop.Image, Lines: map[string]Line{productID: line}}
		if err := s.repo.Replace(ctx, fresh, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to add product to cart")
		}
		ctx = s.logg.WithShopID(ctx, shopID)
		s.logg.Info(ctx, "cart.replaced")
		return s.Get(ctx, uid)
	}

	current := &Cart{UserID: uid, ShopID: shopID, ShopName: shop.Name, ShopImage: shop.Image}
	if active != nil {
		if existing, ok := active.Lines[productID]; ok {
			line.Quantity = existing.Quantity + 1
		}
	}
	if err := s.repo.PutLine(ctx, current, line, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to add product to cart")
	}
	return s.Get(ctx, uid)
}

func (s *service) Decrement(ctx context.Context, uid, shopID, productID string) (*Cart, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	c, err := s.repo.Get(ctx, uid, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update cart")
	}
	line, ok := c.Lines[productID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	if line.Quantity-1 <= 0 {
		return s.Remove(ctx, uid, shopID, productID)
	}
	if err := s.repo.SetQuantity(ctx, uid, shopID, productID, line.Quantity-1, s.now()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update cart")
	}
	return s.Get(ctx, uid)
}

func (s *service) Remove(ctx context.Context, uid, shopID, productID string) (*Cart, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	if !store.ValidKey(shopID) || !store.ValidKey(productID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cart item")
	}
	if err := s.repo.RemoveLines(ctx, uid, shopID, []string{productID}, s.now()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to remove product from cart")
	}
	return s.Get(ctx, uid)
}

func (s *service) Clear(ctx context.Context, uid string) error {
	if err := requireUser(uid); err != nil {
		return err
	}
	if err := s.repo.Clear(ctx, uid); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to clear cart")
	}
	return nil
}

func requireUser(uid string) error {
	if !store.ValidKey(uid) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}
