package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/swiftcart-backend/pkg/store"
)

// Repository persists carts under carts/{uid}.
type Repository struct {
	store store.Store
}

func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

func UserPath(uid string) string {
	return store.Join("carts", uid)
}

func ShopPath(uid, shopID string) string {
	return store.Join("carts", uid, shopID)
}

func LinePath(uid, shopID, productID string) string {
	return store.Join("carts", uid, shopID, productID)
}

// Get reads the cart a user holds for one shop. A missing cart is returned
// as an empty cart, not an error.
func (r *Repository) Get(ctx context.Context, uid, shopID string) (*Cart, error) {
	if !store.ValidKey(uid) || !store.ValidKey(shopID) {
		return &Cart{UserID: uid, ShopID: shopID, Lines: map[string]Line{}}, nil
	}
	snap, err := r.store.Get(ctx, ShopPath(uid, shopID))
	if err != nil {
		return nil, fmt.Errorf("load cart %s/%s: %w", uid, shopID, err)
	}
	return parseShopCart(uid, shopID, snap), nil
}

// GetActive returns the shop cart holding product lines, or nil when the user
// has no such cart.
func (r *Repository) GetActive(ctx context.Context, uid string) (*Cart, error) {
	if !store.ValidKey(uid) {
		return nil, nil
	}
	snap, err := r.store.Get(ctx, UserPath(uid))
	if err != nil {
		return nil, fmt.Errorf("load carts %s: %w", uid, err)
	}
	updatedAt := millisToTime(snap.Child(KeyUpdatedAt).Value())
	for _, child := range snap.Children() {
		if child.Key() == KeyUpdatedAt {
			continue
		}
		c := parseShopCart(uid, child.Key(), child)
		if c.IsEmpty() {
			continue
		}
		c.UpdatedAt = updatedAt
		return c, nil
	}
	return nil, nil
}

// Delete removes a user's cart for one shop.
func (r *Repository) Delete(ctx context.Context, uid, shopID string) error {
	return r.store.Remove(ctx, ShopPath(uid, shopID))
}

// Clear removes every cart a user holds.
func (r *Repository) Clear(ctx context.Context, uid string) error {
	return r.store.Remove(ctx, UserPath(uid))
}

// Replace swaps the user's whole cart tree for a single shop cart.
func (r *Repository) Replace(ctx context.Context, c *Cart, now time.Time) error {
	shop := map[string]any{
		KeyShopName:  c.ShopName,
		KeyShopImage: c.ShopImage,
	}
	for id, line := range c.Lines {
		shop[id] = lineValue(line)
	}
	return r.store.Set(ctx, UserPath(c.UserID), map[string]any{
		c.ShopID:     shop,
		KeyUpdatedAt: now.UnixMilli(),
	})
}

// PutLine writes one line plus shop metadata and stamps updatedAt in a
// single multi-path update.
func (r *Repository) PutLine(ctx context.Context, c *Cart, line Line, now time.Time) error {
	shopPath := ShopPath(c.UserID, c.ShopID)
	return r.store.Update(ctx, map[string]any{
		store.Join(shopPath, KeyShopName):            c.ShopName,
		store.Join(shopPath, KeyShopImage):           c.ShopImage,
		LinePath(c.UserID, c.ShopID, line.ProductID): lineValue(line),
		store.Join(UserPath(c.UserID), KeyUpdatedAt): now.UnixMilli(),
	})
}

// SetQuantity updates only the qty leaf of an existing line.
func (r *Repository) SetQuantity(ctx context.Context, uid, shopID, productID string, qty int, now time.Time) error {
	return r.store.Update(ctx, map[string]any{
		store.Join(LinePath(uid, shopID, productID), "qty"): qty,
		store.Join(UserPath(uid), KeyUpdatedAt):             now.UnixMilli(),
	})
}

// RemoveLines deletes the given product lines and stamps updatedAt.
func (r *Repository) RemoveLines(ctx context.Context, uid, shopID string, productIDs []string, now time.Time) error {
	values := make(map[string]any, len(productIDs)+1)
	for _, id := range productIDs {
		values[LinePath(uid, shopID, id)] = nil
	}
	values[store.Join(UserPath(uid), KeyUpdatedAt)] = now.UnixMilli()
	return r.store.Update(ctx, values)
}
