package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/swiftcart-backend/pkg/enums"
	"github.com/angelmondragon/swiftcart-backend/pkg/store"
)

// Repository persists orders under orders/{uid}/{orderId}.
type Repository struct {
	store store.Store
}

func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

func UserPath(uid string) string {
	return store.Join("orders", uid)
}

func Path(uid, orderID string) string {
	return store.Join("orders", uid, orderID)
}

// Get loads a single order. Missing orders return store.ErrNotFound.
func (r *Repository) Get(ctx context.Context, uid, orderID string) (*Order, error) {
	if !store.ValidKey(uid) || !store.ValidKey(orderID) {
		return nil, store.ErrNotFound
	}
	snap, err := r.store.Get(ctx, Path(uid, orderID))
	if err != nil {
		return nil, fmt.Errorf("load order %s/%s: %w", uid, orderID, err)
	}
	return decodeOrder(uid, snap)
}

// ListByUser returns a user's orders newest first. Records that fail to
// decode are skipped.
func (r *Repository) ListByUser(ctx context.Context, uid string) ([]Order, error) {
	if !store.ValidKey(uid) {
		return nil, nil
	}
	snap, err := r.store.Get(ctx, UserPath(uid))
	if err != nil {
		return nil, fmt.Errorf("list orders %s: %w", uid, err)
	}
	children := snap.Children()
	out := make([]Order, 0, len(children))
	// ids are time ordered, so reverse key order is newest first
	for i := len(children) - 1; i >= 0; i-- {
		order, err := decodeOrder(uid, children[i])
		if err != nil {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

// UpdateStatus writes the status leaf and its timestamp.
func (r *Repository) UpdateStatus(ctx context.Context, uid, orderID string, status enums.OrderStatus, at time.Time) error {
	base := Path(uid, orderID)
	return r.store.Update(ctx, map[string]any{
		store.Join(base, "status"):          string(status),
		store.Join(base, "statusUpdatedAt"): at.UnixMilli(),
	})
}

func decodeOrder(uid string, snap store.Snapshot) (*Order, error) {
	var order Order
	if err := snap.Decode(&order); err != nil {
		return nil, err
	}
	order.ID = snap.Key()
	if order.UserID == "" {
		order.UserID = uid
	}
	return &order, nil
}
